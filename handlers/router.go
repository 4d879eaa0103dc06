package handlers

import (
	"simon-says-server/logger"
	"simon-says-server/middleware"
	"simon-says-server/services"
	"simon-says-server/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
)

// Deps is everything the HTTP layer needs. Avatars and AuthLimiter are
// optional.
type Deps struct {
	Auth        *services.AuthService
	Users       *services.UserService
	Friends     *services.FriendService
	Leaderboard *services.LeaderboardService
	Games       *services.GameService

	Avatars     utils.ObjectUploader
	AuthLimiter *middleware.RateLimiter

	ClientURL      string
	AllowedOrigins string
	BodyLimit      int
	Clock          clockwork.Clock
	Log            *logger.Logger
}

// NewApp builds the fiber app with every route mounted under /api.
func NewApp(d Deps) *fiber.App {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	cfg := fiber.Config{
		AppName: "simon-says-server",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(fiber.Map{"success": false, "message": fe.Message})
			}
			return respondError(c, d.Log, err)
		},
	}
	if d.BodyLimit > 0 {
		cfg.BodyLimit = d.BodyLimit
	}
	app := fiber.New(cfg)

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(d.Log))
	origins := d.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, x-auth-token",
		ExposeHeaders:    "Content-Length, Content-Type",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	requireAuth := middleware.RequireAuth(d.Auth, d.Log)
	optionalAuth := middleware.OptionalAuth(d.Auth, d.Log)
	var authLimit fiber.Handler
	if d.AuthLimiter != nil {
		authLimit = d.AuthLimiter.Handler()
	}

	api := app.Group("/api")
	SetupHealthRoutes(app, api, d.Clock)
	SetupAuthRoutes(api, d.Auth, requireAuth, authLimit, d.Log)
	SetupUserRoutes(api, d.Users, d.Avatars, requireAuth, d.Log)
	SetupGameRoutes(api, d.Games, requireAuth, optionalAuth, d.Log)
	SetupLeaderboardRoutes(api, d.Leaderboard, requireAuth, optionalAuth, d.Log)
	SetupFriendRoutes(api, d.Friends, requireAuth, d.ClientURL, d.Log)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Resource not found"})
	})
	return app
}
