package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"blogapi/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostCollection matches the collection earlier deployments wrote blogs to.
const PostCollection = "blogs"

// PostStore handles blog post CRUD in the blogs collection.
type PostStore struct {
	col *mongo.Collection
}

func NewPostStore(db *mongo.Database) *PostStore {
	return &PostStore{col: db.Collection(PostCollection)}
}

func (s *PostStore) Insert(ctx context.Context, post *models.Post) error {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, post); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *PostStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	return &post, nil
}

// FindAll returns every post, newest first. An empty collection yields an
// empty, non-nil slice.
func (s *PostStore) FindAll(ctx context.Context) ([]models.Post, error) {
	return s.find(ctx, bson.M{})
}

// FindByTopics returns posts whose topic contains any of the given terms,
// ignoring case. Terms are matched literally, not as patterns.
func (s *PostStore) FindByTopics(ctx context.Context, topics []string) ([]models.Post, error) {
	if len(topics) == 0 {
		return []models.Post{}, nil
	}
	patterns := make(bson.A, 0, len(topics))
	for _, t := range topics {
		patterns = append(patterns, topicPattern(t))
	}
	return s.find(ctx, bson.M{"topic": bson.M{"$in": patterns}})
}

func (s *PostStore) find(ctx context.Context, filter bson.M) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}
	defer cur.Close(ctx)

	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

// Update applies the present fields of patch with $set and returns the
// post as stored afterwards.
func (s *PostStore) Update(ctx context.Context, id primitive.ObjectID, patch models.PostPatch) (*models.Post, error) {
	if patch.IsEmpty() {
		return s.FindByID(ctx, id)
	}

	set := bson.M{}
	for k, v := range patch.Fields() {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post models.Post
	err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return &post, nil
}

func (s *PostStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func topicPattern(topic string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(topic), Options: "i"}
}
