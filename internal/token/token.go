package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 是 access / refresh token 共用的载荷：{id, name, iat, exp}。
// 两类 token 使用各自独立的密钥签名，泄露的 access token 无法冒充 refresh token。
type Claims struct {
	UserID   uint   `json:"id"`
	Username string `json:"name"`
	jwt.RegisteredClaims
}

// Issue 用指定密钥签发一个 HS256 token，exp = now + ttl。
func Issue(userID uint, username, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Verify 校验 token 并返回载荷。签名错误、过期、算法不符或载荷缺字段时
// 一律返回 nil，不向调用方抛错。过期判定是严格的，不做时钟偏移容忍。
func Verify(raw, secret string) *Claims {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.UserID == 0 || claims.Username == "" {
		return nil
	}
	return claims
}
