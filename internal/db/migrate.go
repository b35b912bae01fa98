package db

import (
	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Vendor{},
		&model.VendorKeyword{},
		&model.Review{},
		&model.Conversation{},
		&model.Message{},
	}
}

// postgresIndexes cover queries gorm tags cannot express. The geohash prefix
// LIKE only uses a btree index built with text_pattern_ops under a non-C
// collation.
var postgresIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_vendors_geohash_prefix ON vendors (location_geohash text_pattern_ops)`,
}

// Migrate runs database migrations
func Migrate(conn *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := conn.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if conn.Dialector.Name() == "postgres" {
		for _, stmt := range postgresIndexes {
			if err := conn.Exec(stmt).Error; err != nil {
				logger.Error("Failed to create index", err, map[string]interface{}{
					"statement": stmt,
				})
				return err
			}
		}
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
