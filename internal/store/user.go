package store

import "chatsync/internal/models"

func (s *Store) CreateUser(u *models.User) error {
	return s.db.Create(u).Error
}

func (s *Store) UserByID(id uint) (*models.User, error) {
	var u models.User
	if err := s.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UserByName 按用户名精确查找，用户名区分大小写。
func (s *Store) UserByName(name string) (*models.User, error) {
	var u models.User
	if err := s.db.Where("username = ?", name).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UsernameTaken(name string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) UpdateUser(id uint, fields map[string]interface{}) error {
	return s.db.Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}
