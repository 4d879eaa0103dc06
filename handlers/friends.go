package handlers

import (
	"simon-says-server/logger"
	"simon-says-server/middleware"
	"simon-says-server/services"

	"github.com/gofiber/fiber/v2"
)

type friendHandler struct {
	svc       *services.FriendService
	clientURL string
	log       *logger.Logger
}

type friendRequestBody struct {
	UserID  string `json:"userId" validate:"max=32"`
	Message string `json:"message" validate:"max=200"`
}

func SetupFriendRoutes(router fiber.Router, svc *services.FriendService, auth fiber.Handler, clientURL string, log *logger.Logger) {
	h := &friendHandler{svc: svc, clientURL: clientURL, log: log}

	friends := router.Group("/friends", auth)
	friends.Get("/list", h.list)
	friends.Get("/requests/pending", h.pending)
	friends.Get("/requests/sent", h.sent)
	friends.Post("/request", h.request)
	friends.Post("/accept/:requestId", h.accept)
	friends.Post("/decline/:requestId", h.decline)
	friends.Delete("/remove/:friendshipId", h.remove)
	friends.Get("/invite-link", h.inviteLink)
	friends.Get("/user/:publicId", h.lookup)
}

func (h *friendHandler) list(c *fiber.Ctx) error {
	friends, err := h.svc.ListFriends(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, fiber.Map{"friends": friends})
}

func (h *friendHandler) pending(c *fiber.Ctx) error {
	reqs, err := h.svc.ListPending(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, fiber.Map{"requests": reqs})
}

func (h *friendHandler) sent(c *fiber.Ctx) error {
	reqs, err := h.svc.ListSent(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, fiber.Map{"requests": reqs})
}

func (h *friendHandler) request(c *fiber.Ctx) error {
	var body friendRequestBody
	if err := parseBody(c, &body); err != nil {
		return respondError(c, h.log, err)
	}
	req, err := h.svc.CreateRequest(c.UserContext(), middleware.UserID(c), body.UserID, body.Message)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, fiber.Map{
		"message": "Friend request sent to " + req.Recipient.Username,
		"request": req,
	})
}

func (h *friendHandler) accept(c *fiber.Ctx) error {
	friendship, err := h.svc.AcceptRequest(c.UserContext(), middleware.UserID(c), c.Params("requestId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, fiber.Map{
		"message":    "Friend request accepted",
		"friendship": friendship,
	})
}

func (h *friendHandler) decline(c *fiber.Ctx) error {
	if err := h.svc.DeclineRequest(c.UserContext(), middleware.UserID(c), c.Params("requestId")); err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, fiber.Map{"message": "Friend request declined"})
}

func (h *friendHandler) remove(c *fiber.Ctx) error {
	if err := h.svc.RemoveFriendship(c.UserContext(), middleware.UserID(c), c.Params("friendshipId")); err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, fiber.Map{"message": "Friend removed successfully"})
}

func (h *friendHandler) inviteLink(c *fiber.Ctx) error {
	inv, err := h.svc.InviteLink(c.UserContext(), middleware.UserID(c), h.clientURL)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, fiber.Map{
		"inviteLink": inv.InviteLink,
		"userId":     inv.UserID,
		"username":   inv.Username,
	})
}

func (h *friendHandler) lookup(c *fiber.Ctx) error {
	look, err := h.svc.LookupByPublicID(c.UserContext(), middleware.UserID(c), c.Params("publicId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, fiber.Map{
		"user":         look.User,
		"relationship": look.Relationship,
	})
}
