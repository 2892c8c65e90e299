package routes

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"blogapi/handlers"
	"blogapi/middleware"
	"blogapi/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps is everything the router needs. Feed and Ping may be nil.
type Deps struct {
	Auth  *handlers.AuthHandler
	Posts *handlers.PostHandler
	Users *handlers.UserHandler

	Verifier middleware.TokenVerifier
	Limiter  middleware.Limiter
	Feed     *websocket.Manager
	Ping     func(ctx context.Context) error

	CORSOrigins []string
	Log         *slog.Logger
}

func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(d.Log),
		cors.New(corsConfig(d.CORSOrigins)),
	)

	router.GET("/health", health(d.Ping))
	if d.Feed != nil {
		router.GET("/ws", gin.WrapF(d.Feed.Handler()))
	}

	requireAuth := middleware.Auth(d.Verifier)
	api := router.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Use(middleware.RateLimit(d.Limiter, d.Log))
	auth.POST("/registeruser", d.Auth.Register)
	auth.POST("/loginuser", d.Auth.Login)

	blog := api.Group("/blog")
	blog.POST("/createblog", requireAuth, d.Posts.Create)
	blog.PUT("/editblog/:id", requireAuth, d.Posts.Edit)
	// path spelling is part of the public API
	blog.DELETE("/deteleblog/:id", requireAuth, d.Posts.Delete)
	blog.GET("/getallblogs", d.Posts.GetAll)
	blog.GET("/getsingleblog/:id", d.Posts.GetOne)
	blog.GET("/getblogbytopic/:topic", d.Posts.GetByTopic)
	blog.GET("/getblogsbyquery", d.Posts.GetByQuery)
	blog.GET("/getblogsbymultiplequeries", d.Posts.GetByMultipleQueries)

	user := api.Group("/user")
	user.Use(requireAuth)
	user.GET("/me", d.Auth.Me)
	user.PUT("/updateuser/:id", d.Users.Update)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.Response{
			Success: false,
			Message: "Endpoint not found: " + c.Request.URL.Path,
		})
	})

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func health(ping func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, handlers.Response{Success: false, Message: "store unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, handlers.Response{Success: true, Message: "ok"})
	}
}
