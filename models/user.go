package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin" // reserved; nothing checks it yet
)

type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Password   string             `bson:"password" json:"-"` // bcrypt hash
	Role       Role               `bson:"role" json:"role"`
	ProfilePic string             `bson:"profilePic,omitempty" json:"profilePic,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// UserPatch carries the self-editable profile fields. Password, when set,
// is already hashed.
type UserPatch struct {
	Name       *string
	Email      *string
	Password   *string
	ProfilePic *string
}

func (p UserPatch) Fields() map[string]string {
	out := make(map[string]string, 4)
	if p.Name != nil {
		out["name"] = *p.Name
	}
	if p.Email != nil {
		out["email"] = *p.Email
	}
	if p.Password != nil {
		out["password"] = *p.Password
	}
	if p.ProfilePic != nil {
		out["profilePic"] = *p.ProfilePic
	}
	return out
}

func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Password == nil && p.ProfilePic == nil
}

func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Password != nil {
		u.Password = *p.Password
	}
	if p.ProfilePic != nil {
		u.ProfilePic = *p.ProfilePic
	}
}
