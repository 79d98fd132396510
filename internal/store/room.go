package store

import (
	"chatsync/internal/models"
	"chatsync/internal/page"
)

func (s *Store) CreateRoom(r *models.Room) error {
	return s.db.Create(r).Error
}

func (s *Store) RoomByID(id uint) (*models.Room, error) {
	var r models.Room
	if err := s.db.First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) UpdateRoom(id uint, fields map[string]interface{}) error {
	return s.db.Model(&models.Room{}).Where("id = ?", id).Updates(fields).Error
}

func (s *Store) DeleteRoom(id uint) error {
	return s.db.Delete(&models.Room{}, id).Error
}

// Rooms 按游标分页列出房间，结果永远是 (created_at, id) 升序。
func (s *Store) Rooms(q page.Query) ([]models.Room, error) {
	var anchor *page.Anchor
	if q.Anchor() != 0 {
		r, err := s.RoomByID(q.Anchor())
		if err != nil {
			return nil, err
		}
		anchor = &page.Anchor{At: r.CreatedAt, ID: r.ID}
	}
	var rooms []models.Room
	if err := page.Apply(s.db.Model(&models.Room{}), q, anchor).Find(&rooms).Error; err != nil {
		return nil, err
	}
	if q.Backward() {
		page.ReverseInPlace(rooms)
	}
	return rooms, nil
}
