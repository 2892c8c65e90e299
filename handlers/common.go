package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"blogapi/middleware"
	"blogapi/services"
	"blogapi/token"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Response is the envelope every endpoint writes.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Token   string `json:"token,omitempty"`
}

func ok(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Message: message})
}

// requestContext bounds every store call made while serving c.
func requestContext(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), timeout)
}

func identity(c *gin.Context) (token.Identity, bool) {
	id, found := middleware.CurrentIdentity(c)
	if !found {
		fail(c, http.StatusUnauthorized, "Authentication required")
	}
	return id, found
}

// respondError maps service errors onto status codes. Anything unexpected is
// logged and reported as a bare 500.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidID):
		fail(c, http.StatusBadRequest, capitalize(err.Error()))
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrUnauthenticated):
		fail(c, http.StatusUnauthorized, capitalize(err.Error()))
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, capitalize(err.Error()))
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrNoPostsForTopic):
		fail(c, http.StatusNotFound, capitalize(err.Error()))
	case errors.Is(err, services.ErrDuplicateEmail):
		fail(c, http.StatusConflict, capitalize(err.Error()))
	default:
		log.ErrorContext(c.Request.Context(), "[http] request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"requestId", c.GetString(middleware.RequestIDKey),
			"error", err,
		)
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}

// bindError turns a gin binding failure into a client message.
func bindError(err error) string {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		msgs := make([]string, 0, len(ves))
		for _, fe := range ves {
			msgs = append(msgs, describeField(fe))
		}
		return capitalize(strings.Join(msgs, "; "))
	}
	if errors.Is(err, io.EOF) {
		return "Request body is required"
	}
	return "Malformed request body"
}

func describeField(fe validator.FieldError) string {
	name := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "url":
		return name + " must be a URL"
	default:
		return name + " is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
