package services

import (
	"context"
	"testing"

	"simon-says-server/logger"
	"simon-says-server/models"
	"simon-says-server/testutil"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

func newFriendService(t *testing.T) (*FriendService, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t, clockwork.NewRealClock())
	return NewFriendService(db, logger.Nop()), db
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}

func countFriends(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Friend{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestCreateRequest(t *testing.T) {
	svc, db := newFriendService(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, db, "alice")
	b := testutil.SeedUser(t, db, "bob")

	req, err := svc.CreateRequest(ctx, a.ID, b.UserID, "  hi bob  ")
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if req.Status != models.FriendStatusPending || req.RequestMessage != "hi bob" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Recipient == nil || req.Recipient.Username != "bob" {
		t.Fatalf("recipient profile not attached: %+v", req.Recipient)
	}
}

func TestCreateRequestErrors(t *testing.T) {
	svc, db := newFriendService(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, db, "alice")

	_, err := svc.CreateRequest(ctx, a.ID, "NOPE0000", "")
	wantKind(t, err, KindNotFound)

	_, err = svc.CreateRequest(ctx, a.ID, a.UserID, "")
	wantKind(t, err, KindInvalidOperation)

	_, err = svc.CreateRequest(ctx, a.ID, "", "")
	wantKind(t, err, KindInvalidOperation)
}

func TestCreateRequestConflictsInBothDirections(t *testing.T) {
	svc, db := newFriendService(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, db, "alice")
	b := testutil.SeedUser(t, db, "bob")

	if _, err := svc.CreateRequest(ctx, a.ID, b.UserID, ""); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	_, err := svc.CreateRequest(ctx, a.ID, b.UserID, "")
	wantKind(t, err, KindConflict)
	_, err = svc.CreateRequest(ctx, b.ID, a.UserID, "")
	wantKind(t, err, KindConflict)

	if n := countFriends(t, db); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestConflictMessageReflectsStatus(t *testing.T) {
	svc, db := newFriendService(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, db, "alice")
	b := testutil.SeedUser(t, db, "bob")

	req, err := svc.CreateRequest(ctx, a.ID, b.UserID, "")
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if err := svc.DeclineRequest(ctx, b.ID, req.ID); err != nil {
		t.Fatalf("DeclineRequest: %v", err)
	}

	_, err = svc.CreateRequest(ctx, a.ID, b.UserID, "")
	wantKind(t, err, KindConflict)
	if msg := err.(*AppError).Message; msg != "Friend request was previously declined" {
		t.Fatalf("message = %q", msg)
	}

	if err := db.Model(&models.Friend{}).Where("id = ?", req.ID).Update("status", models.FriendStatusBlocked).Error; err != nil {
		t.Fatalf("block: %v", err)
	}
	_, err = svc.CreateRequest(ctx, b.ID, a.UserID, "")
	wantKind(t, err, KindConflict)
	if msg := err.(*AppError).Message; msg != "Unable to send friend request" {
		t.Fatalf("message = %q", msg)
	}
}

func TestOnlyRecipientMayRespond(t *testing.T) {
	svc, db := newFriendService(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, db, "alice")
	b := testutil.SeedUser(t, db, "bob")

	req, err := svc.CreateRequest(ctx, a.ID, b.UserID, "")
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	_, err = svc.AcceptRequest(ctx, a.ID, req.ID)
	wantKind(t, err, KindForbidden)
	err = svc.DeclineRequest(ctx, a.ID, req.ID)
	wantKind(t, err, KindForbidden)

	_, err = svc.AcceptRequest(ctx, b.ID, "missing")
	wantKind(t, err, KindNotFound)

	friendship, err := svc.AcceptRequest(ctx, b.ID, req.ID)
	if err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}
	if friendship.Friend.ID != a.ID {
		t.Fatalf("friendship should show the requester, got %+v", friendship.Friend)
	}

	// No longer pending.
	_, err = svc.AcceptRequest(ctx, b.ID, req.ID)
	wantKind(t, err, KindInvalidOperation)
	err = svc.DeclineRequest(ctx, b.ID, req.ID)
	wantKind(t, err, KindInvalidOperation)
}

func TestListFriendsResolvesOtherParty(t *testing.T) {
	svc, db := newFriendService(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, db, "alice")
	b := testutil.SeedUser(t, db, "bob")
	c := testutil.SeedUser(t, db, "carol")

	// alice requested bob, carol requested alice.
	ab, _ := svc.CreateRequest(ctx, a.ID, b.UserID, "")
	ca, _ := svc.CreateRequest(ctx, c.ID, a.UserID, "")
	if _, err := svc.AcceptRequest(ctx, b.ID, ab.ID); err != nil {
		t.Fatalf("accept ab: %v", err)
	}
	if _, err := svc.AcceptRequest(ctx, a.ID, ca.ID); err != nil {
		t.Fatalf("accept ca: %v", err)
	}

	list, err := svc.ListFriends(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListFriends: %v", err)
	}
	got := map[string]string{}
	for _, f := range list {
		got[f.ID] = f.FriendshipID
	}
	if len(got) != 2 || got[b.ID] != ab.ID || got[c.ID] != ca.ID {
		t.Fatalf("alice's friends = %+v", list)
	}

	for _, u := range []*models.User{b, c} {
		list, err := svc.ListFriends(ctx, u.ID)
		if err != nil {
			t.Fatalf("ListFriends(%s): %v", u.Username, err)
		}
		if len(list) != 1 || list[0].ID != a.ID || list[0].Username != "alice" {
			t.Fatalf("%s's friends = %+v", u.Username, list)
		}
	}
}

func TestPendingAndSent(t *testing.T) {
	svc, db := newFriendService(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, db, "alice")
	b := testutil.SeedUser(t, db, "bob")

	if _, err := svc.CreateRequest(ctx, a.ID, b.UserID, "yo"); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	pending, err := svc.ListPending(ctx, b.ID)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].Requester == nil || pending[0].Requester.ID != a.ID || pending[0].Recipient != nil {
		t.Fatalf("bob's pending = %+v", pending)
	}

	sent, err := svc.ListSent(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListSent: %v", err)
	}
	if len(sent) != 1 || sent[0].Recipient == nil || sent[0].Recipient.ID != b.ID || sent[0].RequestMessage != "yo" {
		t.Fatalf("alice's sent = %+v", sent)
	}

	empty, err := svc.ListPending(ctx, a.ID)
	if err != nil || len(empty) != 0 {
		t.Fatalf("alice should have no pending requests: %v %+v", err, empty)
	}
}

func TestRemoveFriendship(t *testing.T) {
	svc, db := newFriendService(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, db, "alice")
	b := testutil.SeedUser(t, db, "bob")
	c := testutil.SeedUser(t, db, "carol")

	req, _ := svc.CreateRequest(ctx, a.ID, b.UserID, "")

	wantKind(t, svc.RemoveFriendship(ctx, c.ID, req.ID), KindForbidden)
	wantKind(t, svc.RemoveFriendship(ctx, a.ID, "missing"), KindNotFound)

	// Allowed while still pending.
	if err := svc.RemoveFriendship(ctx, b.ID, req.ID); err != nil {
		t.Fatalf("RemoveFriendship: %v", err)
	}
	if n := countFriends(t, db); n != 0 {
		t.Fatalf("rows = %d, want 0", n)
	}
}

func TestFriendshipLifecycle(t *testing.T) {
	svc, db := newFriendService(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, db, "alice")
	b := testutil.SeedUser(t, db, "bob")
	if err := db.Model(a).Update("user_id", "ABC12345").Error; err != nil {
		t.Fatalf("set public id: %v", err)
	}

	req, err := svc.CreateRequest(ctx, a.ID, b.UserID, "")
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if _, err := svc.AcceptRequest(ctx, b.ID, req.ID); err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}

	for _, pair := range [][2]*models.User{{a, b}, {b, a}} {
		list, err := svc.ListFriends(ctx, pair[0].ID)
		if err != nil || len(list) != 1 || list[0].ID != pair[1].ID {
			t.Fatalf("%s should list %s: %v %+v", pair[0].Username, pair[1].Username, err, list)
		}
	}

	if err := svc.RemoveFriendship(ctx, a.ID, req.ID); err != nil {
		t.Fatalf("RemoveFriendship: %v", err)
	}
	for _, u := range []*models.User{a, b} {
		list, err := svc.ListFriends(ctx, u.ID)
		if err != nil || len(list) != 0 {
			t.Fatalf("%s should have no friends: %v %+v", u.Username, err, list)
		}
	}

	if _, err := svc.CreateRequest(ctx, a.ID, b.UserID, ""); err != nil {
		t.Fatalf("re-request after removal: %v", err)
	}
}

func TestLookupByPublicID(t *testing.T) {
	svc, db := newFriendService(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, db, "alice")
	b := testutil.SeedUser(t, db, "bob")

	look, err := svc.LookupByPublicID(ctx, a.ID, b.UserID)
	if err != nil {
		t.Fatalf("LookupByPublicID: %v", err)
	}
	if look.User.Username != "bob" || look.Relationship.PendingRequest || look.Relationship.AreFriends {
		t.Fatalf("unexpected lookup %+v", look)
	}

	req, _ := svc.CreateRequest(ctx, a.ID, b.UserID, "")

	fromA, _ := svc.LookupByPublicID(ctx, a.ID, b.UserID)
	if !fromA.Relationship.PendingRequest || !fromA.Relationship.RequestSentByMe || fromA.Relationship.RequestSentToMe {
		t.Fatalf("alice's view = %+v", fromA.Relationship)
	}
	fromB, _ := svc.LookupByPublicID(ctx, b.ID, a.UserID)
	if !fromB.Relationship.RequestSentToMe || fromB.Relationship.RequestID == nil || *fromB.Relationship.RequestID != req.ID {
		t.Fatalf("bob's view = %+v", fromB.Relationship)
	}

	if _, err := svc.AcceptRequest(ctx, b.ID, req.ID); err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}
	after, _ := svc.LookupByPublicID(ctx, a.ID, b.UserID)
	if !after.Relationship.AreFriends || after.Relationship.PendingRequest {
		t.Fatalf("after accept = %+v", after.Relationship)
	}

	_, err = svc.LookupByPublicID(ctx, a.ID, "ZZZZZZZZ")
	wantKind(t, err, KindNotFound)
}

func TestInviteLink(t *testing.T) {
	svc, db := newFriendService(t)
	a := testutil.SeedUser(t, db, "alice")

	inv, err := svc.InviteLink(context.Background(), a.ID, "https://simon.example/")
	if err != nil {
		t.Fatalf("InviteLink: %v", err)
	}
	if inv.InviteLink != "https://simon.example/add-friend/"+a.UserID || inv.Username != "alice" {
		t.Fatalf("unexpected invite %+v", inv)
	}
}

func TestDuplicatePairRejectedByStore(t *testing.T) {
	svc, db := newFriendService(t)
	a := testutil.SeedUser(t, db, "alice")
	b := testutil.SeedUser(t, db, "bob")

	if _, err := svc.CreateRequest(context.Background(), a.ID, b.UserID, ""); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	// Simulate the losing side of a race that passed the existence check.
	err := db.Create(&models.Friend{ID: "race", RequesterID: b.ID, RecipientID: a.ID, Status: models.FriendStatusPending}).Error
	if err == nil {
		t.Fatalf("store accepted a second row for the same pair")
	}
}

func TestCreateRequestLosesRaceToReverseRequest(t *testing.T) {
	svc, db := newFriendService(t)
	a := testutil.SeedUser(t, db, "alice")
	b := testutil.SeedUser(t, db, "bob")

	// Bob's request lands after alice's existence check but before her insert.
	fired := false
	err := db.Callback().Create().Before("gorm:create").Register("test:reverse_request", func(tx *gorm.DB) {
		if fired || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "friends" {
			return
		}
		fired = true
		reverse := &models.Friend{ID: "concurrent", RequesterID: b.ID, RecipientID: a.ID, Status: models.FriendStatusPending}
		if err := tx.Session(&gorm.Session{NewDB: true}).Create(reverse).Error; err != nil {
			t.Errorf("insert reverse request: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	_, err = svc.CreateRequest(context.Background(), a.ID, b.UserID, "")
	if !fired {
		t.Fatalf("callback never ran")
	}
	wantKind(t, err, KindConflict)
}

func TestMalformedPublicIDIsNotFound(t *testing.T) {
	svc, db := newFriendService(t)
	a := testutil.SeedUser(t, db, "alice")
	testutil.SeedUser(t, db, "bob")
	ctx := context.Background()

	for _, id := range []string{"bob00000", "BOB0000", "BOB-0000", "BOB000000"} {
		_, err := svc.CreateRequest(ctx, a.ID, id, "")
		wantKind(t, err, KindNotFound)
		_, err = svc.LookupByPublicID(ctx, a.ID, id)
		wantKind(t, err, KindNotFound)
	}
	if n := countFriends(t, db); n != 0 {
		t.Fatalf("friend rows = %d, want 0", n)
	}
}
