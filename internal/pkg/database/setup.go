package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/InstaGrowth/app/models"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/config"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// DB is the process wide handle, nil when no store is configured.
var DB *gorm.DB

func GetDB() *gorm.DB {
	return DB
}

// SetupDatabase opens the configured store, retrying while it comes up. It
// returns a nil DB and no error when the store is not configured.
func SetupDatabase(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	if !cfg.Configured() {
		log.Warn("database not configured, running without persistence")
		return nil, nil
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(dialector(cfg), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		if err == nil {
			if err = AutoMigrate(db); err != nil {
				return nil, fmt.Errorf("auto migrate: %w", err)
			}
			DB = db
			log.Info("connected to database", zap.String("driver", cfg.Driver))
			return db, nil
		}

		log.Warn("failed to connect to database",
			zap.Int("attempt", i+1), zap.Int("max_attempts", maxRetries), zap.Error(err))
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("connect to database: %w", err)
}

// AutoMigrate creates or updates the tables the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Subscription{},
	)
}

// Close releases the pool behind db. A nil db is a no-op.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialector(cfg config.DatabaseConfig) gorm.Dialector {
	if cfg.Driver == "postgres" {
		return postgres.Open(cfg.GormDSN())
	}
	return mysql.New(mysql.Config{
		DSN:                       cfg.GormDSN(),
		DefaultStringSize:         256,  // default size for string fields
		DisableDatetimePrecision:  true, // disable datetime precision, which not supported before MySQL 5.6
		DontSupportRenameIndex:    true, // drop & create when rename index, rename index not supported before MySQL 5.7, MariaDB
		DontSupportRenameColumn:   true, // `change` when rename column, rename column not supported before MySQL 8, MariaDB
		SkipInitializeWithVersion: false,
	})
}
