package store

import (
	"fmt"
	"strings"
	"time"

	"simon-says-server/logger"
	"simon-says-server/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

// Open connects to DATABASE_URL. A sqlite:// URL selects the embedded
// driver for local development; anything else is handed to postgres.
func Open(databaseURL string, clock clockwork.Clock, log *logger.Logger) (*gorm.DB, error) {
	if strings.HasPrefix(databaseURL, sqlitePrefix) {
		return OpenSQLite(strings.TrimPrefix(databaseURL, sqlitePrefix), clock)
	}

	db, err := gorm.Open(postgres.Open(databaseURL), gormConfig(clock, gormlogger.Warn))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("connected to postgres")
	return db, nil
}

// OpenSQLite opens a sqlite database. The pool is pinned to one connection
// so in-memory databases are shared by every query.
func OpenSQLite(dsn string, clock clockwork.Clock) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(clock, gormlogger.Silent))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func gormConfig(clock clockwork.Clock, level gormlogger.LogLevel) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return clock.Now().UTC() },
		Logger:         gormlogger.Default.LogMode(level),
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Friend{},
		&models.GameSession{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
