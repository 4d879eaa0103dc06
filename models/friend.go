package models

import (
	"errors"

	"gorm.io/gorm"
)

type FriendStatus string

const (
	FriendStatusPending  FriendStatus = "pending"
	FriendStatusAccepted FriendStatus = "accepted"
	FriendStatusDeclined FriendStatus = "declined"
	FriendStatusBlocked  FriendStatus = "blocked"
)

var ErrSelfFriendship = errors.New("requester and recipient must differ")

// Friend is one directed relationship record. At most one record exists per
// unordered pair; PairKey carries that constraint into the database.
type Friend struct {
	ID             string       `json:"_id" gorm:"primaryKey;size:36"`
	RequesterID    string       `json:"requester" gorm:"size:36;not null;uniqueIndex:idx_friend_direction,priority:1"`
	RecipientID    string       `json:"recipient" gorm:"size:36;not null;uniqueIndex:idx_friend_direction,priority:2;index"`
	PairKey        string       `json:"-" gorm:"size:80;not null;uniqueIndex"`
	Status         FriendStatus `json:"status" gorm:"size:16;not null;default:pending;index"`
	RequestMessage string       `json:"requestMessage" gorm:"size:200"`

	Timestamps
}

// PairKey is identical for (a, b) and (b, a).
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

func (f *Friend) BeforeCreate(tx *gorm.DB) error {
	if f.RequesterID == f.RecipientID {
		return ErrSelfFriendship
	}
	f.PairKey = PairKey(f.RequesterID, f.RecipientID)
	return nil
}

// Involves reports whether userID is either side of the relationship.
func (f *Friend) Involves(userID string) bool {
	return f.RequesterID == userID || f.RecipientID == userID
}

// OtherParty returns the id of the side that is not selfID.
func (f *Friend) OtherParty(selfID string) string {
	if f.RequesterID == selfID {
		return f.RecipientID
	}
	return f.RequesterID
}
