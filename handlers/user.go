package handlers

import (
	"time"

	"simon-says-server/logger"
	"simon-says-server/middleware"
	"simon-says-server/models"
	"simon-says-server/services"
	"simon-says-server/utils"

	"github.com/gofiber/fiber/v2"
)

type userHandler struct {
	svc     *services.UserService
	avatars utils.ObjectUploader
	log     *logger.Logger
}

type profileBody struct {
	FirstName   *string    `json:"firstName" validate:"omitempty,max=50"`
	LastName    *string    `json:"lastName" validate:"omitempty,max=50"`
	Gender      *string    `json:"gender" validate:"omitempty,oneof=male female other prefer-not-to-say"`
	PhoneNumber *string    `json:"phoneNumber" validate:"omitempty,max=32"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	Avatar      *string    `json:"avatar" validate:"omitempty,max=512"`
}

type publicAccount struct {
	ID        string         `json:"_id"`
	LegacyID  string         `json:"id"`
	UserID    string         `json:"userId"`
	Username  string         `json:"username"`
	Profile   models.Profile `json:"profile"`
	CreatedAt time.Time      `json:"createdAt"`
}

// SetupUserRoutes registers profile endpoints. avatars may be nil when
// object storage is not configured.
func SetupUserRoutes(router fiber.Router, svc *services.UserService, avatars utils.ObjectUploader, requireAuth fiber.Handler, log *logger.Logger) {
	h := &userHandler{svc: svc, avatars: avatars, log: log}

	user := router.Group("/user")
	user.Get("/profile", requireAuth, h.profile)
	user.Put("/profile", requireAuth, h.updateProfile)
	user.Post("/avatar", requireAuth, h.uploadAvatar)
	user.Get("/profile/:id", requireAuth, h.publicProfile)
	user.Get("/stats/:id", requireAuth, h.sessionStats)
}

func (h *userHandler) profile(c *fiber.Ctx) error {
	u, err := h.svc.Get(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"user": newAccountView(u)})
}

func (h *userHandler) updateProfile(c *fiber.Ctx) error {
	var body profileBody
	if err := parseBody(c, &body); err != nil {
		return respondError(c, h.log, err)
	}
	u, err := h.svc.UpdateProfile(c.UserContext(), middleware.UserID(c), services.ProfileUpdate{
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		Gender:      body.Gender,
		PhoneNumber: body.PhoneNumber,
		DateOfBirth: body.DateOfBirth,
		Avatar:      body.Avatar,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    newAccountView(u),
	})
}

func (h *userHandler) uploadAvatar(c *fiber.Ctx) error {
	if h.avatars == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"message": "Avatar storage is not configured",
		})
	}
	file, err := c.FormFile("avatar")
	if err != nil {
		return respondError(c, h.log, services.InvalidOperation("avatar file is required"))
	}
	if !utils.IsImageType(file.Header.Get(fiber.HeaderContentType)) {
		return respondError(c, h.log, services.InvalidOperation("Avatar must be a PNG, JPEG, GIF or WebP image"))
	}

	current := middleware.CurrentUser(c)
	url, err := h.avatars.Upload(c.UserContext(), file, utils.AvatarKey(current.Username, file.Filename))
	if err != nil {
		return respondError(c, h.log, err)
	}
	u, err := h.svc.SetAvatar(c.UserContext(), current.ID, url)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, fiber.Map{
		"message": "Avatar updated successfully",
		"avatar":  url,
		"user":    newAccountView(u),
	})
}

func (h *userHandler) publicProfile(c *fiber.Ctx) error {
	u, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	profile := u.Profile
	profile.PhoneNumber = ""
	profile.DateOfBirth = nil
	return c.JSON(fiber.Map{"user": publicAccount{
		ID:        u.ID,
		LegacyID:  u.ID,
		UserID:    u.UserID,
		Username:  u.Username,
		Profile:   profile,
		CreatedAt: u.CreatedAt,
	}})
}

func (h *userHandler) sessionStats(c *fiber.Ctx) error {
	st, err := h.svc.SessionStats(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"stats": st})
}
