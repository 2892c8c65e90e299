package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"blogapi/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func TestUpdateProfile_Self(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.register(t, "Alice", "a@x.com")

	u, err := e.userSvc.UpdateProfile(ctx, alice, alice.ID, ProfileUpdate{
		Name:     strPtr("Alice B"),
		Password: strPtr("n3wpass"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice B", u.Name)
	assert.Equal(t, "a@x.com", u.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("n3wpass")))

	_, _, err = e.auth.Login(ctx, "a@x.com", "n3wpass")
	assert.NoError(t, err)
}

func TestUpdateProfile_OtherUserIsForbidden(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.register(t, "Alice", "a@x.com")
	bob := e.register(t, "Bob", "b@x.com")

	_, err := e.userSvc.UpdateProfile(ctx, bob, alice.ID, ProfileUpdate{Name: strPtr("pwned")})
	require.ErrorIs(t, err, ErrForbidden)

	me, err := e.auth.Me(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "Alice", me.Name)
}

func TestUpdateProfile_Errors(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "Alice", "a@x.com")
	e.register(t, "Bob", "b@x.com")

	tests := []struct {
		name   string
		target string
		in     ProfileUpdate
		want   error
	}{
		{"malformed id", "abc", ProfileUpdate{Name: strPtr("x")}, ErrInvalidID},
		{"blank name", alice.ID, ProfileUpdate{Name: strPtr(" ")}, ErrValidation},
		{"bad email", alice.ID, ProfileUpdate{Email: strPtr("nope")}, ErrValidation},
		{"short password", alice.ID, ProfileUpdate{Password: strPtr("123")}, ErrValidation},
		{"bad picture url", alice.ID, ProfileUpdate{ProfilePic: strPtr("not a url")}, ErrValidation},
		{"email taken", alice.ID, ProfileUpdate{Email: strPtr("B@x.com")}, ErrDuplicateEmail},
		{"upload disabled", alice.ID, ProfileUpdate{Picture: strings.NewReader("png")}, ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.userSvc.UpdateProfile(context.Background(), alice, tc.target, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUpdateProfile_UnknownUser(t *testing.T) {
	e := newEnv(t)
	ghost := primitive.NewObjectID().Hex()
	who := tokenFor(ghost)

	_, err := e.userSvc.UpdateProfile(context.Background(), who, ghost, ProfileUpdate{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfile_UploadsPicture(t *testing.T) {
	e := newEnv(t)
	up := &fakeUploader{url: "https://cdn.example/a.png"}
	svc := NewUserService(e.users, up, bcrypt.MinCost, logging.Discard())
	alice := e.register(t, "Alice", "a@x.com")

	u, err := svc.UpdateProfile(context.Background(), alice, alice.ID, ProfileUpdate{Picture: strings.NewReader("png-bytes")})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example/a.png", u.ProfilePic)
	assert.Equal(t, alice.ID, up.gotID)
	assert.Equal(t, "png-bytes", up.gotBody)
}

func TestUpdateProfile_UploadFailure(t *testing.T) {
	e := newEnv(t)
	up := &fakeUploader{err: errors.New("cloud down")}
	svc := NewUserService(e.users, up, bcrypt.MinCost, logging.Discard())
	alice := e.register(t, "Alice", "a@x.com")

	_, err := svc.UpdateProfile(context.Background(), alice, alice.ID, ProfileUpdate{Picture: strings.NewReader("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cloud down")

	me, err := e.auth.Me(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, me.ProfilePic)
}
