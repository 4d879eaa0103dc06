package models

import (
	"time"

	"gorm.io/datatypes"
)

type GameMode string

const (
	GameModeRegistered GameMode = "registered"
	GameModeGuest      GameMode = "guest"
)

func (m GameMode) Valid() bool {
	return m == GameModeRegistered || m == GameModeGuest
}

// Sequence colors the client may send.
const (
	ColorRed    = "red"
	ColorYellow = "yellow"
	ColorGreen  = "green"
	ColorPurple = "purple"
)

// GameSession is one completed play. SessionID is the client-supplied
// idempotency key; the unique index makes ingestion at-most-once.
type GameSession struct {
	ID            string                      `json:"_id" gorm:"primaryKey;size:36"`
	SessionID     *string                     `json:"sessionId,omitempty" gorm:"size:128;uniqueIndex"`
	UserID        *string                     `json:"user,omitempty" gorm:"size:36;index:idx_session_user_created,priority:1"`
	GameMode      GameMode                    `json:"gameMode" gorm:"size:16;not null;index"`
	GuestName     *string                     `json:"guestName,omitempty" gorm:"size:50"`
	Score         int                         `json:"score" gorm:"not null;check:score >= 0"`
	Level         int                         `json:"level" gorm:"not null;check:level >= 1"`
	Sequence      datatypes.JSONSlice[string] `json:"sequence"`
	GameStartTime time.Time                   `json:"gameStartTime" gorm:"not null"`
	GameEndTime   time.Time                   `json:"gameEndTime" gorm:"not null"`
	GameDuration  int64                       `json:"gameDuration" gorm:"not null;default:0"`
	CorrectMoves  int                         `json:"correctMoves" gorm:"not null;default:0"`
	TotalMoves    int                         `json:"totalMoves" gorm:"not null;default:0"`
	Accuracy      int                         `json:"accuracy" gorm:"not null;default:0"`
	CreatedAt     time.Time                   `json:"createdAt" gorm:"autoCreateTime;index;index:idx_session_user_created,priority:2"`
	UpdatedAt     time.Time                   `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Accuracy is round(100 * correct / total), or 0 when no moves were made.
func Accuracy(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (correct*200 + total) / (total * 2)
}
