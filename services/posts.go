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

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CreatePostInput struct {
	Title   string
	Image   string
	Content string
	Topic   string
}

// PostService implements blog post CRUD. Only a post's author may edit or
// delete it; reads are open to everyone.
type PostService struct {
	posts  PostStore
	users  UserStore
	events PostEvents
	now    func() time.Time
	log    *slog.Logger
}

// NewPostService wires a PostService. users and events may be nil; without
// users the author name is taken from the token.
func NewPostService(posts PostStore, users UserStore, events PostEvents, log *slog.Logger) *PostService {
	return &PostService{posts: posts, users: users, events: events, now: time.Now, log: log}
}

func (s *PostService) Create(ctx context.Context, who token.Identity, in CreatePostInput) (*models.Post, error) {
	authorID, err := callerID(who)
	if err != nil {
		return nil, err
	}
	fields := map[string]string{"title": in.Title, "image": in.Image, "content": in.Content, "topic": in.Topic}
	for _, name := range []string{"title", "image", "content", "topic"} {
		if strings.TrimSpace(fields[name]) == "" {
			return nil, invalidField(name, "is required")
		}
	}

	name, err := s.authorName(ctx, authorID, who.Name)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:     in.Title,
		Image:     in.Image,
		Content:   in.Content,
		Topic:     in.Topic,
		CreatedAt: s.now().UTC(),
		Author:    models.Author{ID: authorID, Name: name},
	}
	if err := s.posts.Insert(ctx, post); err != nil {
		return nil, fmt.Errorf("create blog: %w", err)
	}

	s.log.InfoContext(ctx, "[posts] blog created", "postId", post.ID.Hex(), "authorId", who.ID)
	s.publish(EventPostCreated, *post)
	return post, nil
}

// authorName reads the current display name so a renamed user's new posts
// carry the new name even with an older token.
func (s *PostService) authorName(ctx context.Context, id primitive.ObjectID, fallback string) (string, error) {
	if s.users == nil {
		return fallback, nil
	}
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return "", fmt.Errorf("%w: account no longer exists", ErrUnauthenticated)
	}
	if err != nil {
		return "", fmt.Errorf("load author: %w", err)
	}
	return user.Name, nil
}

// Edit applies the present fields of patch to a post the caller wrote. The
// id is checked first, then existence, then ownership, then the fields.
func (s *PostService) Edit(ctx context.Context, who token.Identity, postID string, patch models.PostPatch) (*models.Post, error) {
	id, err := parseID(postID)
	if err != nil {
		return nil, err
	}
	post, err := s.ownedPost(ctx, who, id, "edit")
	if err != nil {
		return nil, err
	}
	for name, v := range patch.Fields() {
		if strings.TrimSpace(v) == "" {
			return nil, invalidField(name, "must not be empty")
		}
	}
	if patch.IsEmpty() {
		return post, nil
	}

	updated, err := s.posts.Update(ctx, id, patch)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("blog %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update blog: %w", err)
	}

	s.log.InfoContext(ctx, "[posts] blog updated", "postId", postID, "authorId", who.ID)
	s.publish(EventPostUpdated, *updated)
	return updated, nil
}

func (s *PostService) Delete(ctx context.Context, who token.Identity, postID string) error {
	id, err := parseID(postID)
	if err != nil {
		return err
	}
	post, err := s.ownedPost(ctx, who, id, "delete")
	if err != nil {
		return err
	}

	err = s.posts.Delete(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("blog %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete blog: %w", err)
	}

	s.log.InfoContext(ctx, "[posts] blog deleted", "postId", postID, "authorId", who.ID)
	s.publish(EventPostDeleted, *post)
	return nil
}

// ownedPost loads a post and checks the caller is its author.
func (s *PostService) ownedPost(ctx context.Context, who token.Identity, id primitive.ObjectID, action string) (*models.Post, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Author.ID.Hex() != who.ID {
		s.log.WarnContext(ctx, "[posts] ownership check failed", "postId", id.Hex(), "callerId", who.ID, "action", action)
		return nil, fmt.Errorf("%w to %s this blog", ErrForbidden, action)
	}
	return post, nil
}

func (s *PostService) load(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("blog %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load blog: %w", err)
	}
	return post, nil
}

// GetAll lists every post. No posts is an empty list, not an error.
func (s *PostService) GetAll(ctx context.Context) ([]models.Post, error) {
	posts, err := s.posts.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blogs: %w", err)
	}
	return posts, nil
}

func (s *PostService) GetOne(ctx context.Context, postID string) (*models.Post, error) {
	id, err := parseID(postID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// GetByTopic returns posts whose topic contains topic, ignoring case.
// Unlike GetAll, an empty result is ErrNoPostsForTopic.
func (s *PostService) GetByTopic(ctx context.Context, topic string) ([]models.Post, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, invalidField("topic", "is required")
	}
	return s.byTopics(ctx, []string{topic})
}

// GetByTopics returns posts matching any of topics.
func (s *PostService) GetByTopics(ctx context.Context, topics []string) ([]models.Post, error) {
	var terms []string
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil, invalidField("topic", "is required")
	}
	return s.byTopics(ctx, terms)
}

func (s *PostService) byTopics(ctx context.Context, topics []string) ([]models.Post, error) {
	posts, err := s.posts.FindByTopics(ctx, topics)
	if err != nil {
		return nil, fmt.Errorf("find blogs by topic: %w", err)
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPostsForTopic, strings.Join(topics, ", "))
	}
	return posts, nil
}

func (s *PostService) publish(kind string, post models.Post) {
	if s.events != nil {
		s.events.BroadcastPostEvent(kind, post)
	}
}
