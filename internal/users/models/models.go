package models

import (
	"time"

	authModels "loot-tracker/internal/auth/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const UsersCollection = "users"

// User is a guild member account
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username      string             `bson:"username" json:"username"`
	PasswordHash  string             `bson:"password_hash" json:"-"`
	CharacterName string             `bson:"character_name" json:"character_name"`
	Role          authModels.Role    `bson:"role" json:"role"`
	Disabled      bool               `bson:"disabled" json:"disabled"`
	DisabledAt    *time.Time         `bson:"disabled_at,omitempty" json:"disabled_at,omitempty"`
	LastLogin     *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// ListFilter narrows the admin user listing
type ListFilter struct {
	Role     authModels.Role
	Disabled *bool
	Search   string
	Skip     int64
	Limit    int64
}
