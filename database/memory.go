package database

import (
	"context"
	"sort"
	"strings"
	"sync"

	"blogapi/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryPostStore is an in-process PostStore used with STORE_DRIVER=memory
// and in tests. It mirrors the Mongo store's matching and ordering rules.
type MemoryPostStore struct {
	mu    sync.RWMutex
	posts map[primitive.ObjectID]models.Post
}

func NewMemoryPostStore() *MemoryPostStore {
	return &MemoryPostStore{posts: make(map[primitive.ObjectID]models.Post)}
}

func (s *MemoryPostStore) Insert(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	s.posts[post.ID] = *post
	return nil
}

func (s *MemoryPostStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryPostStore) FindAll(_ context.Context) ([]models.Post, error) {
	return s.filter(func(models.Post) bool { return true }), nil
}

func (s *MemoryPostStore) FindByTopics(_ context.Context, topics []string) ([]models.Post, error) {
	needles := make([]string, 0, len(topics))
	for _, t := range topics {
		needles = append(needles, strings.ToLower(t))
	}
	return s.filter(func(p models.Post) bool {
		topic := strings.ToLower(p.Topic)
		for _, n := range needles {
			if strings.Contains(topic, n) {
				return true
			}
		}
		return false
	}), nil
}

func (s *MemoryPostStore) filter(keep func(models.Post) bool) []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Post{}
	for _, p := range s.posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryPostStore) Update(_ context.Context, id primitive.ObjectID, patch models.PostPatch) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(&p)
	s.posts[id] = p
	return &p, nil
}

func (s *MemoryPostStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

// MemoryUserStore is the in-process counterpart of UserStore. Emails are
// unique, compared exactly as stored.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[primitive.ObjectID]models.User)}
}

func (s *MemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(user.Email, primitive.NilObjectID) {
		return ErrDuplicateKey
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryUserStore) Update(_ context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Email != nil && s.emailTaken(*patch.Email, id) {
		return nil, ErrDuplicateKey
	}
	patch.Apply(&u)
	s.users[id] = u
	return &u, nil
}

// emailTaken must be called with mu held.
func (s *MemoryUserStore) emailTaken(email string, except primitive.ObjectID) bool {
	for id, u := range s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}
