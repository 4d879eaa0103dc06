package store

import (
	"errors"
	"testing"
	"time"

	"simon-says-server/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T, clock clockwork.Clock) *gorm.DB {
	t.Helper()
	db, err := Open("sqlite://file:"+uuid.NewString()+"?mode=memory&cache=shared", clock, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestNowFuncFollowsClock(t *testing.T) {
	at := time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)
	db := openTestDB(t, clockwork.NewFakeClockAt(at))

	u := models.User{ID: uuid.NewString(), UserID: "AB12CD34", Username: "ada", Email: "ada@example.com", Password: "x", IsActive: true}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if !u.CreatedAt.Equal(at) {
		t.Fatalf("created_at = %s, want %s", u.CreatedAt, at)
	}
}

func TestUniqueViolationsAreTranslated(t *testing.T) {
	db := openTestDB(t, clockwork.NewRealClock())

	a := models.User{ID: uuid.NewString(), UserID: "AAAA0000", Username: "a", Email: "a@example.com", Password: "x"}
	b := models.User{ID: uuid.NewString(), UserID: "BBBB0000", Username: "b", Email: "b@example.com", Password: "x"}
	for _, u := range []*models.User{&a, &b} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	ab := models.Friend{ID: uuid.NewString(), RequesterID: a.ID, RecipientID: b.ID, Status: models.FriendStatusPending}
	if err := db.Create(&ab).Error; err != nil {
		t.Fatalf("create friend: %v", err)
	}

	// The reverse direction collides on the pair key.
	ba := models.Friend{ID: uuid.NewString(), RequesterID: b.ID, RecipientID: a.ID, Status: models.FriendStatusPending}
	err := db.Create(&ba).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected ErrDuplicatedKey, got %v", err)
	}
}
