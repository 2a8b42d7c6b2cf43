// Package db はPostgreSQLへのGORM接続を提供します。
package db

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	connectTimeout = 60 * time.Second
	retryInterval  = 3 * time.Second
)

// Config はデータベース接続設定です。
type Config struct {
	User         string
	Password     string
	Name         string
	Host         string
	Port         string
	SSLMode      string
	InstanceName string // Cloud SQLのインスタンス接続名（設定時はUnixソケット接続）
}

// Opener はDSNからDB接続を開く関数です。テストで差し替えます。
type Opener func(dsn string) (*gorm.DB, error)

// LoadConfigFromEnv は環境変数からデータベース設定を読み込みます。
func LoadConfigFromEnv() Config {
	cfg := Config{
		User:         os.Getenv("DB_USER"),
		Password:     os.Getenv("DB_PASSWORD"),
		Name:         os.Getenv("DB_NAME"),
		Host:         os.Getenv("DB_HOST"),
		Port:         os.Getenv("DB_PORT"),
		SSLMode:      os.Getenv("DB_SSLMODE"),
		InstanceName: os.Getenv("INSTANCE_CONNECTION_NAME"),
	}
	if cfg.Port == "" {
		cfg.Port = "5432"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	return cfg
}

// BuildDSN はpgx形式のDSN文字列を生成します。
// InstanceNameが設定されている場合はHostより優先し、Cloud SQLのソケットに接続します。
func BuildDSN(cfg Config) string {
	host := cfg.Host
	if cfg.InstanceName != "" {
		host = "/cloudsql/" + cfg.InstanceName
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
}

// ConnectWithRetry はtimeoutに達するまで一定間隔で接続を再試行します。
func ConnectWithRetry(dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInterval
	b.MaxInterval = retryInterval
	b.Multiplier = 1
	b.RandomizationFactor = 0
	b.MaxElapsedTime = timeout

	var db *gorm.DB
	op := func() error {
		var err error
		db, err = open(dsn)
		return err
	}
	notify := func(err error, next time.Duration) {
		slog.Warn("DB connect failed, retrying", "error", err, "retry_in", next)
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, fmt.Errorf("DB connect failed after %s: %w", timeout, err)
	}
	return db, nil
}

// OpenPostgres はPostgreSQL用のOpenerです。一意制約違反をgorm.ErrDuplicatedKeyに変換します。
func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
}

// OpenDB は環境変数の設定でPostgreSQLに接続します。
// RUN_MIGRATIONS=true の場合は渡されたモデルをAutoMigrateします。
func OpenDB(models ...any) (*gorm.DB, error) {
	cfg := LoadConfigFromEnv()
	db, err := ConnectWithRetry(BuildDSN(cfg), connectTimeout, OpenPostgres)
	if err != nil {
		return nil, err
	}
	slog.Info("DB connection successful", "host", cfg.Host, "name", cfg.Name)

	if os.Getenv("RUN_MIGRATIONS") == "true" && len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
		slog.Info("DB migration completed", "models", len(models))
	}
	return db, nil
}
