package auth

import (
	"net/http"
	"strings"

	"chatsync/internal/config"
	"chatsync/internal/token"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func VerifyPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Subject 是从 access token 解析出的请求身份。
type Subject struct {
	ID   uint
	Name string
}

const subjectKey = "authSubject"

// Middleware 校验 Bearer access token 并把身份写入请求上下文，
// 缺失或无效一律 401。
func Middleware(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := BearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"errors": []gin.H{{"code": "unauthorized", "message": "Missing bearer token"}},
			})
			return
		}
		claims := token.Verify(raw, cfg.AccessSecret)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"errors": []gin.H{{"code": "unauthorized", "message": "Invalid access token"}},
			})
			return
		}
		c.Set(subjectKey, Subject{ID: claims.UserID, Name: claims.Username})
		c.Next()
	}
}

// BearerToken 从 Authorization 头取出 token，没有则返回空串。
func BearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) < 8 || !strings.EqualFold(authz[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[7:])
}

// GetSubject 取出中间件写入的身份，second 返回值指示是否存在。
func GetSubject(c *gin.Context) (Subject, bool) {
	v, ok := c.Get(subjectKey)
	if !ok {
		return Subject{}, false
	}
	sub, ok := v.(Subject)
	return sub, ok
}
