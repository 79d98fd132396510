package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"chatsync/internal/models"
	"chatsync/internal/page"
	"chatsync/internal/store"
)

// RoomService 封装房间的增删改查。修改和删除只有房主可以执行，
// 检查顺序固定为 not_found 先于 forbidden。
type RoomService struct {
	store *store.Store
}

func NewRoomService(st *store.Store) *RoomService {
	return &RoomService{store: st}
}

// Create 创建房间，名字为空返回 invalid。
func (s *RoomService) Create(ownerID uint, name, description string) (*models.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(CodeInvalid, "Room name is required")
	}
	room := models.Room{OwnerID: ownerID, Name: name, Description: description}
	if err := s.store.CreateRoom(&room); err != nil {
		return nil, err
	}
	return &room, nil
}

// List 按游标分页列出房间，允许匿名调用。
func (s *RoomService) List(q page.Query) ([]models.Room, error) {
	rooms, err := s.store.Rooms(q)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(CodeNotFound, "Room not found")
		}
		return nil, err
	}
	return rooms, nil
}

func (s *RoomService) owned(roomID, subjectID uint) (*models.Room, error) {
	room, err := s.store.RoomByID(roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(CodeNotFound, "Room not found")
		}
		return nil, err
	}
	if room.OwnerID != subjectID {
		return nil, newError(CodeForbidden, "Forbidden access")
	}
	return room, nil
}

// Update 修改房间名称或描述，仅房主可操作。
func (s *RoomService) Update(subjectID, roomID uint, name, description *string) (*models.Room, error) {
	room, err := s.owned(roomID, subjectID)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, newError(CodeInvalid, "Room name is required")
		}
		fields["name"] = trimmed
	}
	if description != nil {
		fields["description"] = *description
	}
	if len(fields) > 0 {
		if err := s.store.UpdateRoom(room.ID, fields); err != nil {
			return nil, err
		}
	}
	return s.store.RoomByID(room.ID)
}

// Delete 删除房间，仅房主可操作。房间内的消息不做级联处理。
func (s *RoomService) Delete(subjectID, roomID uint) error {
	room, err := s.owned(roomID, subjectID)
	if err != nil {
		return err
	}
	return s.store.DeleteRoom(room.ID)
}
