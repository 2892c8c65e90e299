package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"blogapi/database"
	"blogapi/models"
	"blogapi/token"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthService registers users and exchanges credentials for bearer tokens.
type AuthService struct {
	users    UserStore
	tokens   TokenIssuer
	cost     int
	validate *validator.Validate
	log      *slog.Logger

	// compared against when the email is unknown so both failure paths
	// spend the same bcrypt time
	dummyHash []byte
}

func NewAuthService(users UserStore, tokens TokenIssuer, bcryptCost int, log *slog.Logger) *AuthService {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)
	return &AuthService{
		users:     users,
		tokens:    tokens,
		cost:      bcryptCost,
		validate:  validator.New(),
		log:       log,
		dummyHash: dummy,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	if name == "" {
		return nil, invalidField("name", "is required")
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, invalidField("email", "must be a valid email address")
	}
	if len(in.Password) < minPasswordLen {
		return nil, invalidField("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:      name,
		Email:     email,
		Password:  string(hashed),
		Role:      models.RoleUser,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.InfoContext(ctx, "[auth] user registered", "userId", user.ID.Hex())
	return user, nil
}

// Login returns a signed token for valid credentials. An unknown email and a
// wrong password fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, database.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(token.Identity{ID: user.ID.Hex(), Name: user.Name})
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return tok, user, nil
}

// Me loads the caller's own record.
func (s *AuthService) Me(ctx context.Context, who token.Identity) (*models.User, error) {
	id, err := callerID(who)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("user %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
