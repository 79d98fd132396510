package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	DatabaseDSN           string
	AccessSecret          string
	RefreshSecret         string
	Env                   string
	AccessTokenTTLMinutes int
	RefreshTokenTTLDays   int
	AllowedOrigins        string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// Load 读取环境变量（先加载 .env，如果有的话）并返回配置。
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:                  getenv("APP_PORT", "8080"),
		DatabaseDSN:           getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=chatsync port=5432 sslmode=disable TimeZone=UTC"),
		AccessSecret:          getenv("ACCESS_TOKEN_SECRET", "dev-access-secret-change-me"),
		RefreshSecret:         getenv("REFRESH_TOKEN_SECRET", "dev-refresh-secret-change-me"),
		Env:                   getenv("APP_ENV", "dev"),
		AccessTokenTTLMinutes: getenvInt("ACCESS_TOKEN_TTL_MINUTES", 15),
		RefreshTokenTTLDays:   getenvInt("REFRESH_TOKEN_TTL_DAYS", 7),
		AllowedOrigins:        getenv("ALLOWED_ORIGINS", ""),
	}
}

// Validate 检查配置是否可用：access 和 refresh 必须使用不同密钥，
// 非 dev 环境不允许使用默认密钥。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("config: port is empty")
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("config: database dsn is empty")
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return errors.New("config: token secret is empty")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return errors.New("config: access and refresh secrets must differ")
	}
	if cfg.Env != "dev" {
		if cfg.AccessSecret == "dev-access-secret-change-me" || cfg.RefreshSecret == "dev-refresh-secret-change-me" {
			return errors.New("config: default token secret outside dev")
		}
	}
	return nil
}
