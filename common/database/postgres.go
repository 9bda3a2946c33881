package database

import (
	"database/sql"
	"fmt"
	"time"

	"leadcrm/common/config"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// NewPostgresDB 创建PostgreSQL数据库连接
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.GetDSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// NewPostgresDBWithRetry keeps dialing with exponential backoff until maxElapsed passes.
// maxElapsed == 0 tries exactly once.
func NewPostgresDBWithRetry(cfg *config.DatabaseConfig, maxElapsed time.Duration, logger *zap.Logger) (*sql.DB, error) {
	if maxElapsed <= 0 {
		return NewPostgresDB(cfg)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = maxElapsed

	var db *sql.DB
	err := backoff.RetryNotify(func() error {
		d, err := NewPostgresDB(cfg)
		if err != nil {
			return err
		}
		db = d
		return nil
	}, bo, func(err error, next time.Duration) {
		logger.Warn("Database not ready, retrying",
			zap.String("host", cfg.Host),
			zap.Duration("next", next),
			zap.Error(err),
		)
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Close 关闭数据库连接
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
