package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"simon-says-server/logger"
	"simon-says-server/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100
	// MaxPage bounds page numbers so (page-1)*limit cannot overflow.
	MaxPage = 10000
)

type LeaderboardService struct {
	DB      *gorm.DB
	friends *FriendService
	ranks   RankIndex
	clock   clockwork.Clock
	loc     *time.Location
	log     *logger.Logger
}

// NewLeaderboardService builds the aggregator. ranks may be nil, in which
// case UserRank always counts in SQL.
func NewLeaderboardService(db *gorm.DB, friends *FriendService, ranks RankIndex, clock clockwork.Clock, loc *time.Location, log *logger.Logger) *LeaderboardService {
	if loc == nil {
		loc = time.Local
	}
	return &LeaderboardService{
		DB:      db,
		friends: friends,
		ranks:   ranks,
		clock:   clock,
		loc:     loc,
		log:     log.With("service", "LeaderboardService"),
	}
}

type LeaderboardEntry struct {
	ID              string  `json:"_id"`
	UserID          string  `json:"userId"`
	Username        string  `json:"username"`
	FirstName       string  `json:"firstName,omitempty"`
	LastName        string  `json:"lastName,omitempty"`
	Avatar          string  `json:"avatar,omitempty"`
	HighestScore    int     `json:"highestScore"`
	TotalGames      int     `json:"totalGames"`
	TotalScore      int     `json:"totalScore"`
	AverageScore    float64 `json:"averageScore"`
	AverageAccuracy float64 `json:"averageAccuracy"`
	Rank            int     `json:"rank"`
	IsCurrentUser   *bool   `json:"isCurrentUser,omitempty"`
}

type LeaderboardPage struct {
	Entries []LeaderboardEntry
	Page    int
	Limit   int
}

type UserRank struct {
	Rank         int   `json:"rank"`
	HighestScore int   `json:"highestScore"`
	TotalUsers   int64 `json:"totalUsers"`
}

// aggregateRow is one GROUP BY user_id result joined to the users table.
type aggregateRow struct {
	UserID          string
	HighestScore    int64
	TotalGames      int64
	TotalScore      int64
	AverageScore    float64
	AverageAccuracy float64
	Username        string
	PublicID        string
	FirstName       string
	LastName        string
	Avatar          string
}

// NormalizePage applies the defaults, clamps page to [1, MaxPage] and limit
// to [1, 100].
func NormalizePage(page, limit int) (int, int) {
	return normalizePage(page, limit, DefaultLeaderboardLimit)
}

func normalizePage(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	return page, limit
}

// Global ranks every registered player by best score within the period.
func (s *LeaderboardService) Global(ctx context.Context, period Period, page, limit int) (*LeaderboardPage, error) {
	page, limit = NormalizePage(page, limit)
	rows, err := s.aggregate(ctx, period, nil, page, limit)
	if err != nil {
		return nil, err
	}
	return &LeaderboardPage{Entries: toEntries(rows, page, limit, ""), Page: page, Limit: limit}, nil
}

// Friends ranks userID and everyone they are friends with. The second return
// value is the size of that set.
func (s *LeaderboardService) Friends(ctx context.Context, userID string, period Period, page, limit int) (*LeaderboardPage, int, error) {
	page, limit = NormalizePage(page, limit)

	ids, err := s.friends.FriendIDs(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	set := append(ids, userID)

	rows, err := s.aggregate(ctx, period, set, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return &LeaderboardPage{Entries: toEntries(rows, page, limit, userID), Page: page, Limit: limit}, len(set), nil
}

func (s *LeaderboardService) aggregate(ctx context.Context, period Period, userIDs []string, page, limit int) ([]aggregateRow, error) {
	q := s.DB.WithContext(ctx).
		Table("game_sessions AS gs").
		Select(`gs.user_id AS user_id,
			MAX(gs.score) AS highest_score,
			COUNT(*) AS total_games,
			SUM(gs.score) AS total_score,
			CAST(AVG(gs.score) AS DOUBLE PRECISION) AS average_score,
			CAST(AVG(gs.accuracy) AS DOUBLE PRECISION) AS average_accuracy,
			u.username AS username,
			u.user_id AS public_id,
			u.profile_first_name AS first_name,
			u.profile_last_name AS last_name,
			u.profile_avatar AS avatar`).
		Joins("JOIN users AS u ON u.id = gs.user_id").
		Where("gs.game_mode = ?", models.GameModeRegistered)

	if start, ok := period.Start(s.clock.Now(), s.loc); ok {
		q = q.Where("gs.created_at >= ?", start)
	}
	if userIDs != nil {
		q = q.Where("gs.user_id IN ?", userIDs)
	}

	var rows []aggregateRow
	err := q.
		Group("gs.user_id, u.username, u.user_id, u.profile_first_name, u.profile_last_name, u.profile_avatar").
		Order("highest_score DESC, total_score DESC, gs.user_id ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate leaderboard: %w", err)
	}
	return rows, nil
}

// toEntries assigns page-relative ranks. When currentUserID is set every
// entry carries isCurrentUser.
func toEntries(rows []aggregateRow, page, limit int, currentUserID string) []LeaderboardEntry {
	offset := (page - 1) * limit
	out := make([]LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		e := LeaderboardEntry{
			ID:              r.UserID,
			UserID:          r.PublicID,
			Username:        r.Username,
			FirstName:       r.FirstName,
			LastName:        r.LastName,
			Avatar:          r.Avatar,
			HighestScore:    int(r.HighestScore),
			TotalGames:      int(r.TotalGames),
			TotalScore:      int(r.TotalScore),
			AverageScore:    round1(r.AverageScore),
			AverageAccuracy: round1(r.AverageAccuracy),
			Rank:            offset + i + 1,
		}
		if currentUserID != "" {
			me := r.UserID == currentUserID
			e.IsCurrentUser = &me
		}
		out = append(out, e)
	}
	return out
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// UserRank is the all-time rank from the users' stored highest score. It
// does not look at sessions or periods.
func (s *LeaderboardService) UserRank(ctx context.Context, userID string) (*UserRank, error) {
	db := s.DB.WithContext(ctx)

	var u models.User
	if err := db.Select("id", "highest_score").Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("User not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	score := u.GameStats.HighestScore

	higher, err := s.countAbove(ctx, score)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	return &UserRank{Rank: int(higher) + 1, HighestScore: score, TotalUsers: total}, nil
}

func (s *LeaderboardService) countAbove(ctx context.Context, score int) (int64, error) {
	if s.ranks != nil {
		n, err := s.ranks.CountAbove(ctx, score)
		if err == nil {
			return n, nil
		}
		if errors.Is(err, ErrRankIndexStale) {
			s.log.Debug("rank index stale, counting in database")
		} else {
			s.log.Warn("rank index unavailable, counting in database", "error", err)
		}
	}

	var n int64
	err := s.DB.WithContext(ctx).Model(&models.User{}).Where("highest_score > ?", score).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count higher scores: %w", err)
	}
	return n, nil
}

// RebuildRankIndex merges every user's stored highest score into the rank
// index and clears its stale mark.
func (s *LeaderboardService) RebuildRankIndex(ctx context.Context) (int, error) {
	if s.ranks == nil {
		return 0, nil
	}
	return s.ranks.Rebuild(ctx, s.highestScores)
}

func (s *LeaderboardService) highestScores(ctx context.Context) (map[string]int, error) {
	scores := make(map[string]int)
	var batch []models.User
	err := s.DB.WithContext(ctx).
		Model(&models.User{}).
		Select("id", "highest_score").
		FindInBatches(&batch, 1000, func(tx *gorm.DB, _ int) error {
			for _, u := range batch {
				scores[u.ID] = u.GameStats.HighestScore
			}
			return nil
		}).Error
	if err != nil {
		return nil, fmt.Errorf("load highest scores: %w", err)
	}
	return scores, nil
}
