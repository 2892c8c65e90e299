package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"blogapi/services"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthHandler struct {
	auth    *services.AuthService
	timeout time.Duration
	log     *slog.Logger
}

func NewAuthHandler(auth *services.AuthService, timeout time.Duration, log *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, timeout: timeout, log: log}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, bindError(err))
		return
	}

	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	user, err := h.auth.Register(ctx, services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, "User registered successfully", user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, bindError(err))
		return
	}

	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	tok, user, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: "Login successful",
		Data:    user,
		Token:   tok,
	})
}

// Me returns the caller's own profile.
func (h *AuthHandler) Me(c *gin.Context) {
	who, found := identity(c)
	if !found {
		return
	}

	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	user, err := h.auth.Me(ctx, who)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, "User found", user)
}
