package service

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"chatsync/internal/auth"
	"chatsync/internal/config"
	"chatsync/internal/models"
	"chatsync/internal/store"
	"chatsync/internal/token"
)

// UserService 封装注册、登录、token 续期和资料更新。
type UserService struct {
	store *store.Store
	cfg   config.Config
}

func NewUserService(st *store.Store, cfg config.Config) *UserService {
	return &UserService{store: st, cfg: cfg}
}

func (s *UserService) accessTTL() time.Duration {
	return time.Duration(s.cfg.AccessTokenTTLMinutes) * time.Minute
}

func (s *UserService) refreshTTL() time.Duration {
	return time.Duration(s.cfg.RefreshTokenTTLDays) * 24 * time.Hour
}

// AuthResult 是登录 / refresh 续期成功后的完整凭证对。
type AuthResult struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AccessResult 是只换发 access token 的续期结果。
type AccessResult struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Access string `json:"access"`
}

// Register 注册新用户，用户名重复返回 duplicate。
func (s *UserService) Register(name, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, newError(CodeInvalid, "Name and password are required")
	}
	taken, err := s.store.UsernameTaken(name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, newError(CodeDuplicate, "User already exists")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := models.User{Username: name, PasswordHash: hash}
	if err := s.store.CreateUser(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login 校验用户名密码并签发 access + refresh 凭证对。
func (s *UserService) Login(name, password string) (*AuthResult, error) {
	user, err := s.store.UserByName(strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(CodeInvalid, "Invalid name or password")
		}
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, newError(CodeInvalid, "Invalid name or password")
	}
	return s.issuePair(user)
}

func (s *UserService) issuePair(user *models.User) (*AuthResult, error) {
	access, err := token.Issue(user.ID, user.Username, s.cfg.AccessSecret, s.accessTTL())
	if err != nil {
		return nil, err
	}
	refresh, err := token.Issue(user.ID, user.Username, s.cfg.RefreshSecret, s.refreshTTL())
	if err != nil {
		return nil, err
	}
	return &AuthResult{ID: user.ID, Name: user.Username, Access: access, Refresh: refresh}, nil
}

// RenewAccess 用 refresh token 换发新 access token。
// 续期前重新读取用户，用户已不存在时返回 not_found。
func (s *UserService) RenewAccess(refresh string) (*AccessResult, error) {
	user, err := s.subjectOfRefresh(refresh)
	if err != nil {
		return nil, err
	}
	access, err := token.Issue(user.ID, user.Username, s.cfg.AccessSecret, s.accessTTL())
	if err != nil {
		return nil, err
	}
	return &AccessResult{ID: user.ID, Name: user.Username, Access: access}, nil
}

// RenewRefresh 用 refresh token 换发新的完整凭证对。
func (s *UserService) RenewRefresh(refresh string) (*AuthResult, error) {
	user, err := s.subjectOfRefresh(refresh)
	if err != nil {
		return nil, err
	}
	return s.issuePair(user)
}

func (s *UserService) subjectOfRefresh(refresh string) (*models.User, error) {
	claims := token.Verify(refresh, s.cfg.RefreshSecret)
	if claims == nil {
		return nil, newError(CodeInvalid, "Invalid refresh token")
	}
	user, err := s.store.UserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(CodeNotFound, "User not found")
		}
		return nil, err
	}
	return user, nil
}

// Get 返回公开的用户资料，供消息发送者的懒解析使用。
func (s *UserService) Get(id uint) (*models.User, error) {
	user, err := s.store.UserByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(CodeNotFound, "User not found")
		}
		return nil, err
	}
	return user, nil
}

// Update 更新用户名或密码，只有本人可以操作，改名要查重。
func (s *UserService) Update(subjectID, userID uint, name, password *string) error {
	user, err := s.store.UserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newError(CodeNotFound, "User not found")
		}
		return err
	}
	if user.ID != subjectID {
		return newError(CodeForbidden, "Forbidden access")
	}
	fields := map[string]interface{}{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return newError(CodeInvalid, "Name must not be empty")
		}
		if trimmed != user.Username {
			taken, err := s.store.UsernameTaken(trimmed)
			if err != nil {
				return err
			}
			if taken {
				return newError(CodeDuplicate, "User already exists")
			}
		}
		fields["username"] = trimmed
	}
	if password != nil {
		if *password == "" {
			return newError(CodeInvalid, "Password must not be empty")
		}
		hash, err := auth.HashPassword(*password)
		if err != nil {
			return err
		}
		fields["password_hash"] = hash
	}
	if len(fields) == 0 {
		return nil
	}
	return s.store.UpdateUser(user.ID, fields)
}
