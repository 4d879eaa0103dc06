package models

import "time"

const (
	GenderMale           = "male"
	GenderFemale         = "female"
	GenderOther          = "other"
	GenderPreferNotToSay = "prefer-not-to-say"
)

// User is a registered player. ID is internal; UserID is the 8-character
// public id shared in invite links.
type User struct {
	ID        string    `json:"_id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"userId" gorm:"uniqueIndex;size:8;not null"`
	Username  string    `json:"username" gorm:"uniqueIndex;size:20;not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"not null"`
	Profile   Profile   `json:"profile" gorm:"embedded;embeddedPrefix:profile_"`
	GameStats GameStats `json:"gameStats" gorm:"embedded"`
	IsActive  bool      `json:"isActive" gorm:"not null;default:true"`

	Timestamps
}

type Profile struct {
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Gender      string     `json:"gender" gorm:"size:32;default:prefer-not-to-say"`
	PhoneNumber string     `json:"phoneNumber,omitempty" gorm:"size:32"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Avatar      string     `json:"avatar"`
}

// GameStats is denormalized onto the user row and only ever changed by
// a single conditional UPDATE per ingested session.
type GameStats struct {
	TotalGamesPlayed int `json:"totalGamesPlayed" gorm:"not null;default:0"`
	HighestScore     int `json:"highestScore" gorm:"not null;default:0;index"`
	TotalScore       int `json:"totalScore" gorm:"not null;default:0"`
	AverageScore     int `json:"averageScore" gorm:"not null;default:0"`
}

// PublicProfile is the subset of a profile other players may see.
type PublicProfile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar"`
}

// PublicUser is how a user appears inside friend and request listings.
type PublicUser struct {
	ID       string        `json:"_id"`
	UserID   string        `json:"userId"`
	Username string        `json:"username"`
	Profile  PublicProfile `json:"profile"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		UserID:   u.UserID,
		Username: u.Username,
		Profile: PublicProfile{
			FirstName: u.Profile.FirstName,
			LastName:  u.Profile.LastName,
			Avatar:    u.Profile.Avatar,
		},
	}
}
