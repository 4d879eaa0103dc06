// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"simon-says-server/models"
	"simon-says-server/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// DB returns a migrated in-memory sqlite database private to the test.
func DB(tb testing.TB, clock clockwork.Clock) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := store.OpenSQLite(dsn, clock)
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// FileDB returns a migrated sqlite database in a temp file with several
// connections, for tests that need transactions to really run concurrently.
// Writers take the lock at BEGIN and wait for each other.
func FileDB(tb testing.TB, clock clockwork.Clock) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_txlock=immediate",
		filepath.Join(tb.TempDir(), "test.db"))
	db, err := store.OpenSQLite(dsn, clock)
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(8)
	if err := store.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	tb.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Redis starts a miniredis server and returns a client connected to it.
func Redis(tb testing.TB) (*miniredis.Miniredis, *redis.Client) {
	tb.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		tb.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tb.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

// SeedUser inserts a user with a derived public id and email.
func SeedUser(tb testing.TB, db *gorm.DB, username string) *models.User {
	tb.Helper()
	publicID := strings.ToUpper(fmt.Sprintf("%-8s", username))
	publicID = strings.ReplaceAll(publicID, " ", "0")[:8]
	u := &models.User{
		ID:       uuid.NewString(),
		UserID:   publicID,
		Username: username,
		Email:    username + "@example.com",
		Password: "not-a-hash",
		IsActive: true,
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user %s: %v", username, err)
	}
	return u
}
