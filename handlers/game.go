package handlers

import (
	"errors"
	"time"

	"simon-says-server/logger"
	"simon-says-server/middleware"
	"simon-says-server/models"
	"simon-says-server/services"

	"github.com/gofiber/fiber/v2"
)

type gameHandler struct {
	svc *services.GameService
	log *logger.Logger
}

type sessionBody struct {
	SessionID     string    `json:"sessionId" validate:"max=128"`
	GameMode      string    `json:"gameMode"`
	GuestName     string    `json:"guestName" validate:"max=50"`
	Score         int       `json:"score"`
	Level         int       `json:"level"`
	Sequence      []string  `json:"sequence" validate:"max=10000,dive,oneof=red yellow green purple"`
	GameStartTime time.Time `json:"gameStartTime"`
	GameEndTime   time.Time `json:"gameEndTime"`
	CorrectMoves  int       `json:"correctMoves"`
	TotalMoves    int       `json:"totalMoves"`
}

func (b *sessionBody) input() services.SessionInput {
	return services.SessionInput{
		SessionID:     b.SessionID,
		GameMode:      models.GameMode(b.GameMode),
		GuestName:     b.GuestName,
		Score:         b.Score,
		Level:         b.Level,
		Sequence:      b.Sequence,
		GameStartTime: b.GameStartTime,
		GameEndTime:   b.GameEndTime,
		CorrectMoves:  b.CorrectMoves,
		TotalMoves:    b.TotalMoves,
	}
}

// sessionUser is the slice of the player returned after a registered save.
type sessionUser struct {
	ID        string           `json:"_id"`
	Username  string           `json:"username"`
	Email     string           `json:"email"`
	GameStats models.GameStats `json:"gameStats"`
}

func SetupGameRoutes(router fiber.Router, svc *services.GameService, requireAuth, optionalAuth fiber.Handler, log *logger.Logger) {
	h := &gameHandler{svc: svc, log: log}

	game := router.Group("/game")
	game.Post("/session", optionalAuth, h.saveSession)
	game.Get("/history", requireAuth, h.history)
	game.Get("/stats", requireAuth, h.stats)
}

func (h *gameHandler) saveSession(c *fiber.Ctx) error {
	var body sessionBody
	if err := parseBody(c, &body); err != nil {
		return respondError(c, h.log, err)
	}

	res, err := h.svc.SaveSession(c.UserContext(), middleware.UserID(c), body.input())
	if errors.Is(err, services.ErrSessionAlreadySaved) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success":   false,
			"message":   "Game session already saved",
			"sessionId": body.SessionID,
		})
	}
	if err != nil {
		return respondError(c, h.log, err)
	}

	var user *sessionUser
	if res.User != nil {
		user = &sessionUser{
			ID:        res.User.ID,
			Username:  res.User.Username,
			Email:     res.User.Email,
			GameStats: res.User.GameStats,
		}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Game session saved successfully",
		"gameSession": res.Session,
		"user":        user,
	})
}

func (h *gameHandler) history(c *fiber.Ctx) error {
	hist, err := h.svc.History(c.UserContext(), middleware.UserID(c),
		c.QueryInt("page", 1), c.QueryInt("limit", services.DefaultHistoryLimit))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(hist)
}

func (h *gameHandler) stats(c *fiber.Ctx) error {
	st, err := h.svc.Stats(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(st)
}
