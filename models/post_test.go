package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func strPtr(s string) *string { return &s }

func TestPostPatch_ApplyLeavesAbsentFields(t *testing.T) {
	id := primitive.NewObjectID()
	author := Author{ID: primitive.NewObjectID(), Name: "Alice"}
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	post := Post{ID: id, Title: "old", Image: "img", Content: "body", Topic: "go", CreatedAt: created, Author: author}

	patch := PostPatch{Title: strPtr("new")}
	patch.Apply(&post)

	assert.Equal(t, "new", post.Title)
	assert.Equal(t, "img", post.Image)
	assert.Equal(t, "body", post.Content)
	assert.Equal(t, "go", post.Topic)
	assert.Equal(t, id, post.ID)
	assert.Equal(t, author, post.Author)
	assert.Equal(t, created, post.CreatedAt)
}

func TestPostPatch_ApplyTwiceIsIdempotent(t *testing.T) {
	patch := PostPatch{Title: strPtr("t2"), Topic: strPtr("rust")}

	once := Post{Title: "t1", Topic: "go", Content: "c"}
	patch.Apply(&once)

	twice := Post{Title: "t1", Topic: "go", Content: "c"}
	patch.Apply(&twice)
	patch.Apply(&twice)

	assert.Equal(t, once, twice)
}

func TestPostPatch_Fields(t *testing.T) {
	assert.True(t, PostPatch{}.IsEmpty())
	assert.Empty(t, PostPatch{}.Fields())

	fields := PostPatch{Image: strPtr("x.png"), Content: strPtr("")}.Fields()
	assert.Equal(t, map[string]string{"image": "x.png", "content": ""}, fields)
}

func TestUserPatch_Fields(t *testing.T) {
	p := UserPatch{Name: strPtr("Bob"), ProfilePic: strPtr("https://cdn/x.png")}
	assert.False(t, p.IsEmpty())
	assert.Equal(t, map[string]string{"name": "Bob", "profilePic": "https://cdn/x.png"}, p.Fields())

	u := User{Name: "Alice", Email: "a@x.com", Role: RoleUser}
	p.Apply(&u)
	assert.Equal(t, "Bob", u.Name)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, RoleUser, u.Role)
}
