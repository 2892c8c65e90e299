package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"blogapi/database"
	"blogapi/logging"
	"blogapi/models"
	"blogapi/token"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type recordedEvent struct {
	kind string
	post models.Post
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) BroadcastPostEvent(kind string, post models.Post) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{kind: kind, post: post})
}

func (r *eventRecorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.kind)
	}
	return out
}

// countingPostStore wraps a PostStore and counts lookups, so tests can prove
// a malformed id never reached the store.
type countingPostStore struct {
	PostStore
	mu    sync.Mutex
	calls int
}

func (c *countingPostStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.PostStore.FindByID(ctx, id)
}

func (c *countingPostStore) lookups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type failingPostStore struct {
	PostStore
}

var errBoom = errors.New("boom")

func (failingPostStore) FindAll(context.Context) ([]models.Post, error) { return nil, errBoom }

func (failingPostStore) Insert(context.Context, *models.Post) error { return errBoom }

type fakeUploader struct {
	gotID   string
	gotBody string
	url     string
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, publicID string, file io.Reader) (string, error) {
	b, _ := io.ReadAll(file)
	f.gotID, f.gotBody = publicID, string(b)
	return f.url, f.err
}

type env struct {
	users   *database.MemoryUserStore
	posts   *countingPostStore
	events  *eventRecorder
	issuer  *token.Issuer
	auth    *AuthService
	postSvc *PostService
	userSvc *UserService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logging.Discard()
	e := &env{
		users:  database.NewMemoryUserStore(),
		posts:  &countingPostStore{PostStore: database.NewMemoryPostStore()},
		events: &eventRecorder{},
		issuer: token.NewIssuer("test-secret", time.Hour),
	}
	e.auth = NewAuthService(e.users, e.issuer, bcrypt.MinCost, log)
	e.postSvc = NewPostService(e.posts, e.users, e.events, log)
	e.userSvc = NewUserService(e.users, nil, bcrypt.MinCost, log)
	return e
}

// register creates a user and returns the identity its login token carries.
func (e *env) register(t *testing.T, name, email string) token.Identity {
	t.Helper()
	ctx := context.Background()
	_, err := e.auth.Register(ctx, RegisterInput{Name: name, Email: email, Password: "secret"})
	require.NoError(t, err)

	tok, _, err := e.auth.Login(ctx, email, "secret")
	require.NoError(t, err)
	id, err := e.issuer.Verify(tok)
	require.NoError(t, err)
	return id
}

func (e *env) createPost(t *testing.T, who token.Identity, topic string) *models.Post {
	t.Helper()
	p, err := e.postSvc.Create(context.Background(), who, CreatePostInput{
		Title:   "About " + topic,
		Image:   "https://img.example/" + topic + ".png",
		Content: "original content",
		Topic:   topic,
	})
	require.NoError(t, err)
	return p
}

func strPtr(s string) *string { return &s }

func tokenFor(id string) token.Identity { return token.Identity{ID: id, Name: "someone"} }
