package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"blogapi/database"
	"blogapi/models"
	"blogapi/token"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// ProfileUpdate is a partial profile edit. Picture, when non-nil, is an
// uploaded image that replaces ProfilePic.
type ProfileUpdate struct {
	Name       *string
	Email      *string
	Password   *string
	ProfilePic *string
	Picture    io.Reader
}

type UserService struct {
	users    UserStore
	uploader Uploader
	cost     int
	validate *validator.Validate
	log      *slog.Logger
}

// NewUserService wires a UserService. uploader may be nil, in which case
// picture uploads are rejected.
func NewUserService(users UserStore, uploader Uploader, bcryptCost int, log *slog.Logger) *UserService {
	return &UserService{
		users:    users,
		uploader: uploader,
		cost:     bcryptCost,
		validate: validator.New(),
		log:      log,
	}
}

// UpdateProfile edits the caller's own record. targetID must be the caller.
func (s *UserService) UpdateProfile(ctx context.Context, who token.Identity, targetID string, in ProfileUpdate) (*models.User, error) {
	id, err := parseID(targetID)
	if err != nil {
		return nil, err
	}
	if id.Hex() != who.ID {
		s.log.WarnContext(ctx, "[users] profile update for another user rejected", "targetId", targetID, "callerId", who.ID)
		return nil, fmt.Errorf("%w to update this user", ErrForbidden)
	}

	patch, err := s.buildPatch(in)
	if err != nil {
		return nil, err
	}

	if in.Picture != nil {
		if s.uploader == nil {
			return nil, invalidField("profilePic", "uploads are not enabled")
		}
		url, err := s.uploader.Upload(ctx, id.Hex(), in.Picture)
		if err != nil {
			return nil, fmt.Errorf("upload profile picture: %w", err)
		}
		patch.ProfilePic = &url
	}

	user, err := s.users.Update(ctx, id, patch)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, fmt.Errorf("user %w", ErrNotFound)
	case errors.Is(err, database.ErrDuplicateKey):
		return nil, ErrDuplicateEmail
	case err != nil:
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.log.InfoContext(ctx, "[users] profile updated", "userId", who.ID)
	return user, nil
}

func (s *UserService) buildPatch(in ProfileUpdate) (models.UserPatch, error) {
	var patch models.UserPatch

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return patch, invalidField("name", "must not be empty")
		}
		patch.Name = &name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if err := s.validate.Var(email, "required,email"); err != nil {
			return patch, invalidField("email", "must be a valid email address")
		}
		patch.Email = &email
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLen {
			return patch, invalidField("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.cost)
		if err != nil {
			return patch, fmt.Errorf("hash password: %w", err)
		}
		h := string(hashed)
		patch.Password = &h
	}
	if in.ProfilePic != nil {
		pic := strings.TrimSpace(*in.ProfilePic)
		if pic != "" {
			if err := s.validate.Var(pic, "url"); err != nil {
				return patch, invalidField("profilePic", "must be a URL")
			}
		}
		patch.ProfilePic = &pic
	}
	return patch, nil
}
