package store

import (
	"gorm.io/gorm"

	"chatsync/internal/models"
	"chatsync/internal/page"
)

func (s *Store) CreateMessage(m *models.Message) error {
	return s.db.Create(m).Error
}

func (s *Store) MessageByID(id uint) (*models.Message, error) {
	var m models.Message
	if err := s.db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMessageContent 修改消息内容并标记 edited，id 和 created_at 保持不变。
func (s *Store) UpdateMessageContent(id uint, content string) error {
	return s.db.Model(&models.Message{}).Where("id = ?", id).
		Updates(map[string]interface{}{"content": content, "edited": true}).Error
}

func (s *Store) DeleteMessage(id uint) error {
	return s.db.Delete(&models.Message{}, id).Error
}

// Messages 按游标分页取指定房间的消息。锚点 id 必须解析为该房间内的消息，
// 否则视为记录不存在。结果永远是 (created_at, id) 升序。
func (s *Store) Messages(roomID uint, q page.Query) ([]models.Message, error) {
	var anchor *page.Anchor
	if q.Anchor() != 0 {
		m, err := s.MessageByID(q.Anchor())
		if err != nil {
			return nil, err
		}
		if m.RoomID != roomID {
			return nil, gorm.ErrRecordNotFound
		}
		anchor = &page.Anchor{At: m.CreatedAt, ID: m.ID}
	}
	var msgs []models.Message
	db := s.db.Model(&models.Message{}).Where("room_id = ?", roomID)
	if err := page.Apply(db, q, anchor).Find(&msgs).Error; err != nil {
		return nil, err
	}
	if q.Backward() {
		page.ReverseInPlace(msgs)
	}
	return msgs, nil
}
