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

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

const DefaultHistoryLimit = 10

type GameService struct {
	DB    *gorm.DB
	ranks RankIndex
	clock clockwork.Clock
	log   *logger.Logger
}

func NewGameService(db *gorm.DB, ranks RankIndex, clock clockwork.Clock, log *logger.Logger) *GameService {
	return &GameService{DB: db, ranks: ranks, clock: clock, log: log.With("service", "GameService")}
}

// SessionInput is a finished game as reported by the client.
type SessionInput struct {
	SessionID     string
	GameMode      models.GameMode
	GuestName     string
	Score         int
	Level         int
	Sequence      []string
	GameStartTime time.Time
	GameEndTime   time.Time
	CorrectMoves  int
	TotalMoves    int
}

func (in *SessionInput) validate(userID string) error {
	switch in.GameMode {
	case models.GameModeRegistered:
		if userID == "" {
			return InvalidOperation("User authentication required for registered mode")
		}
	case models.GameModeGuest:
		if strings.TrimSpace(in.GuestName) == "" {
			return InvalidOperation("Guest name required for guest mode")
		}
	default:
		return InvalidOperation(`Invalid gameMode. Must be "registered" or "guest"`)
	}

	if in.Score < 0 {
		return InvalidOperation("Score cannot be negative")
	}
	if in.Level < 1 {
		return InvalidOperation("Level must be at least 1")
	}
	if in.GameStartTime.IsZero() || in.GameEndTime.IsZero() {
		return InvalidOperation("gameStartTime and gameEndTime are required")
	}
	if in.GameEndTime.Before(in.GameStartTime) {
		return InvalidOperation("gameEndTime cannot be before gameStartTime")
	}
	if in.CorrectMoves < 0 || in.TotalMoves < 0 || in.CorrectMoves > in.TotalMoves {
		return InvalidOperation("correctMoves must be between 0 and totalMoves")
	}
	return nil
}

// SaveResult holds the stored session and, for registered play, the user
// with updated stats.
type SaveResult struct {
	Session *models.GameSession
	User    *models.User
}

// SaveSession records a finished game once. A repeated sessionId returns
// ErrSessionAlreadySaved and writes nothing. For registered play the user's
// stats are updated in the same transaction with a single UPDATE, so
// concurrent submissions for one user cannot lose increments.
func (s *GameService) SaveSession(ctx context.Context, userID string, in SessionInput) (*SaveResult, error) {
	if err := in.validate(userID); err != nil {
		return nil, err
	}

	session := &models.GameSession{
		ID:            uuid.NewString(),
		GameMode:      in.GameMode,
		Score:         in.Score,
		Level:         in.Level,
		Sequence:      in.Sequence,
		GameStartTime: in.GameStartTime.UTC(),
		GameEndTime:   in.GameEndTime.UTC(),
		GameDuration:  in.GameEndTime.Sub(in.GameStartTime).Milliseconds(),
		CorrectMoves:  in.CorrectMoves,
		TotalMoves:    in.TotalMoves,
		Accuracy:      models.Accuracy(in.CorrectMoves, in.TotalMoves),
		CreatedAt:     s.clock.Now().UTC(),
	}
	if session.Sequence == nil {
		session.Sequence = []string{}
	}
	if id := strings.TrimSpace(in.SessionID); id != "" {
		session.SessionID = &id
	}
	if in.GameMode == models.GameModeRegistered {
		session.UserID = &userID
	} else {
		name := strings.TrimSpace(in.GuestName)
		session.GuestName = &name
	}

	var user *models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSessionAlreadySaved
			}
			return fmt.Errorf("insert game session: %w", err)
		}

		if session.UserID == nil {
			return nil
		}

		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(statsIncrement(in.Score))
		if res.Error != nil {
			return fmt.Errorf("update user stats: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return NotFound("User not found")
		}

		user = &models.User{}
		if err := tx.Where("id = ?", userID).First(user).Error; err != nil {
			return fmt.Errorf("reload user: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionAlreadySaved) {
			s.log.Info("duplicate game session ignored", "session_id", in.SessionID)
		}
		return nil, err
	}

	if user != nil && s.ranks != nil {
		if err := s.ranks.Set(ctx, user.ID, user.GameStats.HighestScore); err != nil {
			s.log.Warn("rank index update failed, ranks use the database until the next rebuild", "user_id", user.ID, "error", err)
		}
	}

	s.log.Info("game session saved", "id", session.ID, "mode", session.GameMode, "score", session.Score)
	return &SaveResult{Session: session, User: user}, nil
}

// statsIncrement folds one score into the stored aggregate. The right-hand
// sides all read the pre-update row, so the average is computed from the
// new totals explicitly and rounded half up in integer arithmetic.
func statsIncrement(score int) map[string]interface{} {
	return map[string]interface{}{
		"total_games_played": gorm.Expr("total_games_played + 1"),
		"total_score":        gorm.Expr("total_score + ?", score),
		"highest_score":      gorm.Expr("CASE WHEN highest_score < ? THEN ? ELSE highest_score END", score, score),
		"average_score":      gorm.Expr("((total_score + ?) * 2 + total_games_played + 1) / ((total_games_played + 1) * 2)", score),
	}
}

type History struct {
	GameSessions []models.GameSession `json:"gameSessions"`
	TotalPages   int                  `json:"totalPages"`
	CurrentPage  int                  `json:"currentPage"`
	Total        int64                `json:"total"`
}

// History pages through a user's sessions, newest first.
func (s *GameService) History(ctx context.Context, userID string, page, limit int) (*History, error) {
	page, limit = normalizePage(page, limit, DefaultHistoryLimit)

	db := s.DB.WithContext(ctx)

	var total int64
	if err := db.Model(&models.GameSession{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	sessions := []models.GameSession{}
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return &History{
		GameSessions: sessions,
		TotalPages:   int((total + int64(limit) - 1) / int64(limit)),
		CurrentPage:  page,
		Total:        total,
	}, nil
}

type RecentGame struct {
	Score    int       `json:"score"`
	Level    int       `json:"level"`
	Accuracy int       `json:"accuracy"`
	Date     time.Time `json:"date"`
}

type PlayerStats struct {
	models.GameStats
	TotalPlayTime   int64        `json:"totalPlayTime"`
	AverageAccuracy int          `json:"averageAccuracy"`
	RecentGames     []RecentGame `json:"recentGames"`
}

// Stats combines the stored aggregate with figures computed from sessions.
func (s *GameService) Stats(ctx context.Context, userID string) (*PlayerStats, error) {
	db := s.DB.WithContext(ctx)

	var u models.User
	if err := db.Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("User not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	var agg struct {
		PlayTime    int64
		AvgAccuracy float64
	}
	err := db.Model(&models.GameSession{}).
		Select("COALESCE(SUM(game_duration), 0) AS play_time, CAST(COALESCE(AVG(accuracy), 0) AS DOUBLE PRECISION) AS avg_accuracy").
		Where("user_id = ?", userID).
		Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate sessions: %w", err)
	}

	var recent []models.GameSession
	err = db.Select("score", "level", "accuracy", "created_at").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(5).
		Find(&recent).Error
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}

	out := &PlayerStats{
		GameStats:       u.GameStats,
		TotalPlayTime:   agg.PlayTime,
		AverageAccuracy: int(math.Round(agg.AvgAccuracy)),
		RecentGames:     make([]RecentGame, 0, len(recent)),
	}
	for _, g := range recent {
		out.RecentGames = append(out.RecentGames, RecentGame{
			Score:    g.Score,
			Level:    g.Level,
			Accuracy: g.Accuracy,
			Date:     g.CreatedAt,
		})
	}
	return out, nil
}
