package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"simon-says-server/logger"
	"simon-says-server/models"

	"gorm.io/gorm"
)

type UserService struct {
	DB  *gorm.DB
	log *logger.Logger
}

func NewUserService(db *gorm.DB, log *logger.Logger) *UserService {
	return &UserService{DB: db, log: log.With("service", "UserService")}
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("User not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// ProfileUpdate holds the fields a user may change. Nil means unchanged.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Gender      *string
	PhoneNumber *string
	DateOfBirth *time.Time
	Avatar      *string
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*models.User, error) {
	changes := map[string]interface{}{}
	if in.FirstName != nil {
		changes["profile_first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		changes["profile_last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.Gender != nil {
		switch *in.Gender {
		case models.GenderMale, models.GenderFemale, models.GenderOther, models.GenderPreferNotToSay:
			changes["profile_gender"] = *in.Gender
		default:
			return nil, InvalidOperation("Invalid gender")
		}
	}
	if in.PhoneNumber != nil {
		changes["profile_phone_number"] = strings.TrimSpace(*in.PhoneNumber)
	}
	if in.DateOfBirth != nil {
		dob := in.DateOfBirth.UTC()
		changes["profile_date_of_birth"] = &dob
	}
	if in.Avatar != nil {
		changes["profile_avatar"] = strings.TrimSpace(*in.Avatar)
	}

	if len(changes) > 0 {
		res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(changes)
		if res.Error != nil {
			return nil, fmt.Errorf("update profile: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, NotFound("User not found")
		}
	}
	return s.Get(ctx, id)
}

// SetAvatar stores an uploaded avatar URL on the profile.
func (s *UserService) SetAvatar(ctx context.Context, id, url string) (*models.User, error) {
	return s.UpdateProfile(ctx, id, ProfileUpdate{Avatar: &url})
}

// SessionStats is computed from a user's stored sessions. Rank is the
// position among registered players by best session score, nil when the
// user has not played.
type SessionStats struct {
	TotalGames    int64 `json:"totalGames"`
	HighestScore  int64 `json:"highestScore"`
	AverageScore  int64 `json:"averageScore"`
	TotalAccuracy int64 `json:"totalAccuracy"`
	Rank          *int  `json:"rank"`
}

func (s *UserService) SessionStats(ctx context.Context, id string) (*SessionStats, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	var agg struct {
		TotalGames   int64
		HighestScore int64
		AvgScore     float64
		AvgAccuracy  float64
	}
	err := db.Model(&models.GameSession{}).
		Select(`COUNT(*) AS total_games,
			COALESCE(MAX(score), 0) AS highest_score,
			CAST(COALESCE(AVG(score), 0) AS DOUBLE PRECISION) AS avg_score,
			CAST(COALESCE(AVG(accuracy), 0) AS DOUBLE PRECISION) AS avg_accuracy`).
		Where("user_id = ?", id).
		Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate sessions: %w", err)
	}

	out := &SessionStats{
		TotalGames:    agg.TotalGames,
		HighestScore:  agg.HighestScore,
		AverageScore:  int64(math.Round(agg.AvgScore)),
		TotalAccuracy: int64(math.Round(agg.AvgAccuracy)),
	}
	if agg.TotalGames == 0 {
		return out, nil
	}

	best := db.Model(&models.GameSession{}).
		Select("user_id, MAX(score) AS best").
		Where("game_mode = ? AND user_id IS NOT NULL", models.GameModeRegistered).
		Group("user_id")

	var higher int64
	err = db.Table("(?) AS b", best).Where("b.best > ?", agg.HighestScore).Count(&higher).Error
	if err != nil {
		return nil, fmt.Errorf("rank by best score: %w", err)
	}
	rank := int(higher) + 1
	out.Rank = &rank
	return out, nil
}
