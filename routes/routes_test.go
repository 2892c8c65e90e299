package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blogapi/database"
	"blogapi/handlers"
	"blogapi/logging"
	"blogapi/middleware"
	"blogapi/services"
	"blogapi/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Token   string          `json:"token"`
}

type post struct {
	ID      string `json:"_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Topic   string `json:"topic"`
	Author  struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"author"`
}

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T, limit int, ping func(context.Context) error) *apiClient {
	t.Helper()
	log := logging.Discard()
	users := database.NewMemoryUserStore()
	issuer := token.NewIssuer("route-secret", time.Hour)

	authSvc := services.NewAuthService(users, issuer, bcrypt.MinCost, log)
	postSvc := services.NewPostService(database.NewMemoryPostStore(), users, nil, log)
	userSvc := services.NewUserService(users, nil, bcrypt.MinCost, log)

	r := SetupRouter(Deps{
		Auth:     handlers.NewAuthHandler(authSvc, time.Second, log),
		Posts:    handlers.NewPostHandler(postSvc, time.Second, log),
		Users:    handlers.NewUserHandler(userSvc, time.Second, log),
		Verifier: issuer,
		Limiter:  middleware.NewIPRateLimiter(limit, time.Minute),
		Ping:     ping,
		Log:      log,
	})
	return &apiClient{t: t, router: r}
}

func (a *apiClient) call(method, path, tok string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (a *apiClient) signup(name, email string) string {
	a.t.Helper()
	code, _ := a.call(http.MethodPost, "/api/v1/auth/registeruser", "", map[string]string{"name": name, "email": email, "password": "secret"})
	require.Equal(a.t, http.StatusOK, code)
	code, env := a.call(http.MethodPost, "/api/v1/auth/loginuser", "", map[string]string{"email": email, "password": "secret"})
	require.Equal(a.t, http.StatusOK, code)
	require.NotEmpty(a.t, env.Token)
	return env.Token
}

func decodePost(t *testing.T, raw json.RawMessage) post {
	t.Helper()
	var p post
	require.NoError(t, json.Unmarshal(raw, &p))
	return p
}

func TestOwnershipScenario(t *testing.T) {
	api := newAPI(t, 100, nil)
	alice := api.signup("Alice", "a@x.com")

	code, env := api.call(http.MethodPost, "/api/v1/blog/createblog", alice, map[string]string{
		"title": "First", "image": "https://img.example/1.png", "content": "original", "topic": "Databases",
	})
	require.Equal(t, http.StatusOK, code)
	p1 := decodePost(t, env.Data)
	assert.Equal(t, "Alice", p1.Author.Name)

	bob := api.signup("Bob", "b@x.com")
	code, env = api.call(http.MethodPut, "/api/v1/blog/editblog/"+p1.ID, bob, map[string]string{"title": "hijacked"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, env.Success)

	code, _ = api.call(http.MethodDelete, "/api/v1/blog/deteleblog/"+p1.ID, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.call(http.MethodPut, "/api/v1/blog/editblog/"+p1.ID, alice, map[string]string{"title": "new"})
	require.Equal(t, http.StatusOK, code)

	code, env = api.call(http.MethodGet, "/api/v1/blog/getsingleblog/"+p1.ID, "", nil)
	require.Equal(t, http.StatusOK, code)
	got := decodePost(t, env.Data)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, "original", got.Content)
	assert.Equal(t, p1.Author, got.Author)

	for _, q := range []string{"data", "DATA", "abases"} {
		code, _ = api.call(http.MethodGet, "/api/v1/blog/getblogbytopic/"+q, "", nil)
		assert.Equal(t, http.StatusOK, code, q)
	}

	code, _ = api.call(http.MethodDelete, "/api/v1/blog/deteleblog/"+p1.ID, alice, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = api.call(http.MethodGet, "/api/v1/blog/getsingleblog/"+p1.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newAPI(t, 100, nil)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/blog/createblog"},
		{http.MethodPut, "/api/v1/blog/editblog/65a000000000000000000001"},
		{http.MethodDelete, "/api/v1/blog/deteleblog/65a000000000000000000001"},
		{http.MethodPut, "/api/v1/user/updateuser/65a000000000000000000001"},
		{http.MethodGet, "/api/v1/user/me"},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			code, env := api.call(r.method, r.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, code)
			assert.False(t, env.Success)
		})
	}
}

func TestPublicReads(t *testing.T) {
	api := newAPI(t, 100, nil)

	code, env := api.call(http.MethodGet, "/api/v1/blog/getallblogs", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))

	code, _ = api.call(http.MethodGet, "/api/v1/blog/getblogsbyquery?topic=go", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = api.call(http.MethodGet, "/api/v1/blog/getblogsbymultiplequeries", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.call(http.MethodGet, "/api/v1/blog/getsingleblog/not-hex", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUpdateUserRoute(t *testing.T) {
	api := newAPI(t, 100, nil)
	alice := api.signup("Alice", "a@x.com")

	code, env := api.call(http.MethodGet, "/api/v1/user/me", alice, nil)
	require.Equal(t, http.StatusOK, code)
	var me struct {
		ID string `json:"_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))

	code, _ = api.call(http.MethodPut, "/api/v1/user/updateuser/"+me.ID, alice, map[string]string{"name": "Alicia"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = api.call(http.MethodPut, "/api/v1/user/updateuser/65a000000000000000000001", alice, map[string]string{"name": "x"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	api := newAPI(t, 2, nil)
	creds := map[string]string{"email": "nobody@x.com", "password": "secret"}

	for i := 0; i < 2; i++ {
		code, _ := api.call(http.MethodPost, "/api/v1/auth/loginuser", "", creds)
		assert.Equal(t, http.StatusUnauthorized, code)
	}
	code, _ := api.call(http.MethodPost, "/api/v1/auth/loginuser", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, code)

	// reads are not limited
	code, _ = api.call(http.MethodGet, "/api/v1/blog/getallblogs", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestHealth(t *testing.T) {
	code, env := newAPI(t, 1, nil).call(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	down := func(context.Context) error { return errors.New("no primary") }
	code, env = newAPI(t, 1, down).call(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, env.Success)
}

func TestUnknownRoute(t *testing.T) {
	code, env := newAPI(t, 1, nil).call(http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "/api/v1/nope")
}

func TestCORSConfig(t *testing.T) {
	open := corsConfig(nil)
	assert.True(t, open.AllowAllOrigins)
	assert.False(t, open.AllowCredentials)

	strict := corsConfig([]string{"https://blog.example"})
	assert.False(t, strict.AllowAllOrigins)
	assert.Equal(t, []string{"https://blog.example"}, strict.AllowOrigins)
	assert.True(t, strict.AllowCredentials)
}
