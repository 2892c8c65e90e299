package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"blogapi/services"

	"github.com/gin-gonic/gin"
)

const maxPictureBytes = 5 << 20

type UpdateUserRequest struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Password   *string `json:"password"`
	ProfilePic *string `json:"profilePic"`
}

type UserHandler struct {
	users   *services.UserService
	timeout time.Duration
	log     *slog.Logger
}

func NewUserHandler(users *services.UserService, timeout time.Duration, log *slog.Logger) *UserHandler {
	return &UserHandler{users: users, timeout: timeout, log: log}
}

// Update accepts either a JSON patch or a multipart form whose optional
// profilePic file is uploaded as the new picture.
func (h *UserHandler) Update(c *gin.Context) {
	who, found := identity(c)
	if !found {
		return
	}

	var in services.ProfileUpdate
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		var closer io.Closer
		var err error
		in, closer, err = multipartUpdate(c)
		if err != nil {
			fail(c, http.StatusBadRequest, capitalize(err.Error()))
			return
		}
		if closer != nil {
			defer closer.Close()
		}
	} else {
		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			fail(c, http.StatusBadRequest, bindError(err))
			return
		}
		in = services.ProfileUpdate{
			Name:       req.Name,
			Email:      req.Email,
			Password:   req.Password,
			ProfilePic: req.ProfilePic,
		}
	}

	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	user, err := h.users.UpdateProfile(ctx, who, c.Param("id"), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, "User updated successfully", user)
}

func multipartUpdate(c *gin.Context) (services.ProfileUpdate, io.Closer, error) {
	var in services.ProfileUpdate
	field := func(name string) *string {
		if v, present := c.GetPostForm(name); present {
			return &v
		}
		return nil
	}
	in.Name = field("name")
	in.Email = field("email")
	in.Password = field("password")
	in.ProfilePic = field("profilePic")

	header, err := c.FormFile("profilePic")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, nil
	}
	if err != nil {
		return in, nil, errors.New("malformed multipart body")
	}
	if header.Size > maxPictureBytes {
		return in, nil, errors.New("profile picture must be 5MB or smaller")
	}
	file, err := header.Open()
	if err != nil {
		return in, nil, errors.New("cannot read profile picture")
	}
	in.Picture = file
	in.ProfilePic = nil
	return in, file, nil
}
