package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blogapi/config"
	"blogapi/database"
	"blogapi/handlers"
	"blogapi/logging"
	"blogapi/media"
	"blogapi/middleware"
	"blogapi/routes"
	"blogapi/services"
	"blogapi/token"
	"blogapi/websocket"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("[main] invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("[main] server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("[main] starting blog API", "store", cfg.StoreDriver, "port", cfg.Port)

	// The store must be ready before the listener opens.
	var (
		posts services.PostStore
		users services.UserStore
		ping  func(context.Context) error
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		posts, users = database.NewMemoryPostStore(), database.NewMemoryUserStore()
	default:
		db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB, log)
		if err != nil {
			return fmt.Errorf("connect store: %w", err)
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := db.Disconnect(dctx); err != nil {
				log.Warn("[main] mongo disconnect", "error", err)
			}
		}()
		posts, users, ping = db.Posts, db.Users, db.Ping
	}

	limiter, closeLimiter := newLimiter(ctx, cfg, log)
	defer closeLimiter()

	var uploader services.Uploader
	if cfg.CloudinaryURL != "" {
		cld, err := media.NewCloudinary(cfg.CloudinaryURL, media.DefaultFolder, log)
		if err != nil {
			return err
		}
		uploader = cld
	} else {
		log.Info("[main] CLOUDINARY_URL not set, picture uploads disabled")
	}

	feed := websocket.NewManager(cfg.CORSOrigins, log)
	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()
	go feed.Start(feedCtx)

	issuer := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := services.NewAuthService(users, issuer, bcrypt.DefaultCost, log)
	postSvc := services.NewPostService(posts, users, feed, log)
	userSvc := services.NewUserService(users, uploader, bcrypt.DefaultCost, log)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	router := routes.SetupRouter(routes.Deps{
		Auth:        handlers.NewAuthHandler(authSvc, cfg.RequestTimeout, log),
		Posts:       handlers.NewPostHandler(postSvc, cfg.RequestTimeout, log),
		Users:       handlers.NewUserHandler(userSvc, cfg.RequestTimeout, log),
		Verifier:    issuer,
		Limiter:     limiter,
		Feed:        feed,
		Ping:        ping,
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("[main] listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("[main] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("[main] server stopped")
	return nil
}

// newLimiter prefers Redis when REDIS_ADDR is set and reachable, and falls
// back to the in-process limiter otherwise.
func newLimiter(ctx context.Context, cfg *config.Config, log *slog.Logger) (middleware.Limiter, func()) {
	memory := middleware.NewIPRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	if cfg.RedisAddr == "" {
		return memory, func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		log.Warn("[main] redis unreachable, using in-memory rate limiter", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return memory, func() {}
	}

	log.Info("[main] rate limiter backed by redis", "addr", cfg.RedisAddr)
	return middleware.NewRedisRateLimiter(client, cfg.RateLimit, cfg.RateLimitWindow), func() { _ = client.Close() }
}
