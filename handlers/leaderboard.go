package handlers

import (
	"simon-says-server/logger"
	"simon-says-server/middleware"
	"simon-says-server/services"

	"github.com/gofiber/fiber/v2"
)

type leaderboardHandler struct {
	svc *services.LeaderboardService
	log *logger.Logger
}

func SetupLeaderboardRoutes(router fiber.Router, svc *services.LeaderboardService, requireAuth, optionalAuth fiber.Handler, log *logger.Logger) {
	h := &leaderboardHandler{svc: svc, log: log}

	lb := router.Group("/leaderboard")
	lb.Get("/global", optionalAuth, h.global)
	lb.Get("/friends", requireAuth, h.friends)
	lb.Get("/rank", requireAuth, h.rank)
}

// periodParam returns the raw period for echoing back and its parsed form.
func periodParam(c *fiber.Ctx) (string, services.Period) {
	raw := c.Query("period", "all")
	return raw, services.ParsePeriod(raw)
}

func (h *leaderboardHandler) global(c *fiber.Ctx) error {
	raw, period := periodParam(c)
	page, err := h.svc.Global(c.UserContext(), period,
		c.QueryInt("page", 1), c.QueryInt("limit", services.DefaultLeaderboardLimit))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"leaderboard": page.Entries,
		"period":      raw,
		"page":        page.Page,
		"limit":       page.Limit,
	})
}

func (h *leaderboardHandler) friends(c *fiber.Ctx) error {
	raw, period := periodParam(c)
	page, total, err := h.svc.Friends(c.UserContext(), middleware.UserID(c), period,
		c.QueryInt("page", 1), c.QueryInt("limit", services.DefaultLeaderboardLimit))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"leaderboard":  page.Entries,
		"period":       raw,
		"page":         page.Page,
		"limit":        page.Limit,
		"totalFriends": total,
	})
}

func (h *leaderboardHandler) rank(c *fiber.Ctx) error {
	r, err := h.svc.UserRank(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(r)
}
