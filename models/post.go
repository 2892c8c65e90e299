package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Author is a snapshot of the creating user taken when the post is written.
// It is not updated when the user later changes their name.
type Author struct {
	ID   primitive.ObjectID `bson:"id" json:"id"`
	Name string             `bson:"name" json:"name"`
}

type Post struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title     string             `bson:"title" json:"title"`
	Image     string             `bson:"image" json:"image"`
	Content   string             `bson:"content" json:"content"`
	Topic     string             `bson:"topic" json:"topic"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Author    Author             `bson:"author" json:"author"`
}

// PostPatch carries the editable fields of a post; nil means "leave as is".
type PostPatch struct {
	Title   *string
	Image   *string
	Content *string
	Topic   *string
}

// Fields returns the present fields keyed by their document name.
func (p PostPatch) Fields() map[string]string {
	out := make(map[string]string, 4)
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.Image != nil {
		out["image"] = *p.Image
	}
	if p.Content != nil {
		out["content"] = *p.Content
	}
	if p.Topic != nil {
		out["topic"] = *p.Topic
	}
	return out
}

func (p PostPatch) IsEmpty() bool {
	return p.Title == nil && p.Image == nil && p.Content == nil && p.Topic == nil
}

// Apply copies the present fields onto post. ID, author and createdAt are
// never touched.
func (p PostPatch) Apply(post *Post) {
	if p.Title != nil {
		post.Title = *p.Title
	}
	if p.Image != nil {
		post.Image = *p.Image
	}
	if p.Content != nil {
		post.Content = *p.Content
	}
	if p.Topic != nil {
		post.Topic = *p.Topic
	}
}
