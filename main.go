package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"simon-says-server/config"
	"simon-says-server/handlers"
	"simon-says-server/logger"
	"simon-says-server/middleware"
	"simon-says-server/services"
	"simon-says-server/store"
	"simon-says-server/utils"
	"simon-says-server/workers"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot, _ := logger.New("development")
		boot.Fatal("invalid configuration", "error", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if envErr != nil {
		log.Info("no .env file found, reading environment variables directly")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("invalid timezone", "error", err)
	}

	clock := clockwork.NewRealClock()

	db, err := store.Open(cfg.DatabaseURL, clock, log)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if err := store.Migrate(db); err != nil {
		log.Fatal("failed to migrate database", "error", err)
	}

	var ranks services.RankIndex
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL", "error", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, rank lookups fall back to the database", "error", err)
		}
		ranks = services.NewRedisRankIndex(rdb, cfg.RankIndexKey)
	} else {
		log.Info("REDIS_URL not set, rank lookups use the database")
	}

	var avatars utils.ObjectUploader
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Storage(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client", "error", err)
		}
		avatars = r2
	} else {
		log.Info("R2 not configured, avatar uploads disabled")
	}

	authService := services.NewAuthService(db, cfg.JWTSecret, cfg.JWTTTL, clock, log)
	friendService := services.NewFriendService(db, log)
	leaderboardService := services.NewLeaderboardService(db, friendService, ranks, clock, loc, log)

	app := handlers.NewApp(handlers.Deps{
		Auth:           authService,
		Users:          services.NewUserService(db, log),
		Friends:        friendService,
		Leaderboard:    leaderboardService,
		Games:          services.NewGameService(db, ranks, clock, log),
		Avatars:        avatars,
		AuthLimiter:    middleware.NewRateLimiter(ctx, cfg.AuthRatePerMinute),
		ClientURL:      cfg.ClientURL,
		AllowedOrigins: cfg.Origins(),
		BodyLimit:      cfg.BodyLimitMB * 1024 * 1024,
		Clock:          clock,
		Log:            log,
	})

	if ranks != nil {
		rankSync := workers.NewRankSyncWorker(leaderboardService, cfg.RankSyncInterval, clock, log)
		if err := rankSync.Start(ctx); err != nil {
			log.Fatal("failed to start rank sync", "error", err)
		}
		defer rankSync.Stop()
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("server error", "error", err)
			stop()
		}
	}()
	log.Info("server running", "port", cfg.Port, "origins", cfg.Origins())

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
