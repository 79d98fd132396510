package models

import "time"

type User struct {
	ID           uint    `gorm:"primaryKey"`
	Username     string  `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string  `gorm:"not null"`
	Avatar       *string `gorm:"size:256"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Room struct {
	ID          uint      `gorm:"primaryKey"`
	OwnerID     uint      `gorm:"index;not null"`
	Name        string    `gorm:"size:128;not null"`
	Description string    `gorm:"size:512"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

// Message 按 (created_at, id) 全序排列，自增 id 与 created_at 单调一致，
// 游标分页的正确性依赖该顺序。
type Message struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    uint      `gorm:"index:idx_msg_cursor,priority:1;not null"`
	SenderID  uint      `gorm:"index;not null"`
	Content   string    `gorm:"type:text;not null"`
	Edited    bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"index:idx_msg_cursor,priority:2"`
	UpdatedAt time.Time
}
