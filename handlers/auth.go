package handlers

import (
	"time"

	"simon-says-server/logger"
	"simon-says-server/middleware"
	"simon-says-server/models"
	"simon-says-server/services"

	"github.com/gofiber/fiber/v2"
)

type authHandler struct {
	svc *services.AuthService
	log *logger.Logger
}

type registerBody struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginBody struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// accountView is the owner's view of their account.
type accountView struct {
	ID        string           `json:"_id"`
	LegacyID  string           `json:"id"`
	UserID    string           `json:"userId"`
	Username  string           `json:"username"`
	Email     string           `json:"email"`
	Profile   models.Profile   `json:"profile"`
	GameStats models.GameStats `json:"gameStats"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func newAccountView(u *models.User) accountView {
	return accountView{
		ID:        u.ID,
		LegacyID:  u.ID,
		UserID:    u.UserID,
		Username:  u.Username,
		Email:     u.Email,
		Profile:   u.Profile,
		GameStats: u.GameStats,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// SetupAuthRoutes registers the account endpoints. limit guards register and
// login and may be nil.
func SetupAuthRoutes(router fiber.Router, svc *services.AuthService, requireAuth, limit fiber.Handler, log *logger.Logger) {
	h := &authHandler{svc: svc, log: log}

	auth := router.Group("/auth")
	if limit != nil {
		auth.Post("/register", limit, h.register)
		auth.Post("/login", limit, h.login)
	} else {
		auth.Post("/register", h.register)
		auth.Post("/login", h.login)
	}
	auth.Get("/verify", requireAuth, h.verify)
}

func (h *authHandler) register(c *fiber.Ctx) error {
	var body registerBody
	if err := parseBody(c, &body); err != nil {
		return respondError(c, h.log, err)
	}
	user, token, err := h.svc.Register(c.UserContext(), services.RegisterInput{
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"token":   token,
		"user":    newAccountView(user),
	})
}

func (h *authHandler) login(c *fiber.Ctx) error {
	var body loginBody
	if err := parseBody(c, &body); err != nil {
		return respondError(c, h.log, err)
	}
	user, token, err := h.svc.Login(c.UserContext(), body.Identifier, body.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    newAccountView(user),
	})
}

func (h *authHandler) verify(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"user": newAccountView(middleware.CurrentUser(c))})
}
