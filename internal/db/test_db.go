package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nearmi/localhunt-backend/pkg/logger"
)

// SetupTestDB opens a migrated in-memory SQLite database. The pool is pinned
// to one connection since each new :memory: connection starts empty.
func SetupTestDB() (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	pool.SetMaxOpenConns(1)
	pool.SetMaxIdleConns(1)

	if err := conn.AutoMigrate(Models()...); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return conn, nil
}

// CleanupTestDB closes the database opened by SetupTestDB.
func CleanupTestDB(conn *gorm.DB) {
	pool, err := conn.DB()
	if err == nil {
		err = pool.Close()
	}
	if err != nil {
		logger.Warn("Test database close failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
