package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"chatsync/internal/models"
	"chatsync/internal/page"
	"chatsync/internal/store"
)

// MessageService 封装消息的发布、编辑、删除和分页查询。
// 编辑和删除只有原发送者可以执行。
type MessageService struct {
	store *store.Store
}

func NewMessageService(st *store.Store) *MessageService {
	return &MessageService{store: st}
}

// Post 在房间内发布一条消息，内容为空返回 invalid，房间不存在返回 not_found。
func (s *MessageService) Post(senderID, roomID uint, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, newError(CodeInvalid, "Message content is required")
	}
	if _, err := s.store.RoomByID(roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(CodeNotFound, "Room not found")
		}
		return nil, err
	}
	msg := models.Message{RoomID: roomID, SenderID: senderID, Content: content}
	if err := s.store.CreateMessage(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// List 按游标分页取房间内的消息，无法解析的锚点返回 not_found。
func (s *MessageService) List(roomID uint, q page.Query) ([]models.Message, error) {
	msgs, err := s.store.Messages(roomID, q)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(CodeNotFound, "Message not found")
		}
		return nil, err
	}
	return msgs, nil
}

func (s *MessageService) sent(messageID, subjectID uint) (*models.Message, error) {
	msg, err := s.store.MessageByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(CodeNotFound, "Message not found")
		}
		return nil, err
	}
	if msg.SenderID != subjectID {
		return nil, newError(CodeForbidden, "Forbidden access")
	}
	return msg, nil
}

// Edit 修改消息内容并置 edited 标志，id 和 created_at 不变。
// 并发编辑按 last-write-wins 处理，不做版本校验。
func (s *MessageService) Edit(subjectID, messageID uint, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, newError(CodeInvalid, "Message content is required")
	}
	msg, err := s.sent(messageID, subjectID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateMessageContent(msg.ID, content); err != nil {
		return nil, err
	}
	return s.store.MessageByID(msg.ID)
}

// Delete 硬删除一条消息，删除后不可再读取。
func (s *MessageService) Delete(subjectID, messageID uint) error {
	msg, err := s.sent(messageID, subjectID)
	if err != nil {
		return err
	}
	return s.store.DeleteMessage(msg.ID)
}
