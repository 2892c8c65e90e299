// Package services holds the blog's business rules: who may do what to
// which post or profile, and how topic queries match. Persistence, token
// signing and uploads are reached through the interfaces below.
package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"blogapi/models"
	"blogapi/token"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostStore interface {
	Insert(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	FindAll(ctx context.Context) ([]models.Post, error)
	FindByTopics(ctx context.Context, topics []string) ([]models.Post, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.PostPatch) (*models.Post, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error)
}

type TokenIssuer interface {
	Issue(id token.Identity) (string, error)
}

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, publicID string, file io.Reader) (string, error)
}

const (
	EventPostCreated = "post_created"
	EventPostUpdated = "post_updated"
	EventPostDeleted = "post_deleted"
)

// PostEvents receives a notification after every successful post mutation.
type PostEvents interface {
	BroadcastPostEvent(kind string, post models.Post)
}

// parseID validates a store identifier before any lookup is attempted.
func parseID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}

func callerID(who token.Identity) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(who.ID)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: token subject is not a user id", ErrUnauthenticated)
	}
	return id, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
