package jwtmw

import (
	"os"
	"strconv"
	"time"
)

const (
	// EnvKeyJWTSecret は署名鍵を保持する環境変数名です。
	EnvKeyJWTSecret = "JWT_SECRET"
	// EnvKeyJWTExpiration はトークンの有効期間（分）を保持する環境変数名です。
	EnvKeyJWTExpiration = "JWT_EXPIRATION_MIN"

	defaultExpiration = time.Hour
)

// Config はJWTの署名鍵と有効期間です。
type Config struct {
	Secret     string
	Expiration time.Duration
}

// LoadConfig は環境変数からJWT設定を読み込みます。
// JWT_EXPIRATION_MIN が未設定または不正な場合は1時間を使います。
func LoadConfig() Config {
	cfg := Config{
		Secret:     os.Getenv(EnvKeyJWTSecret),
		Expiration: defaultExpiration,
	}
	if v, err := strconv.Atoi(os.Getenv(EnvKeyJWTExpiration)); err == nil && v > 0 {
		cfg.Expiration = time.Duration(v) * time.Minute
	}
	return cfg
}
