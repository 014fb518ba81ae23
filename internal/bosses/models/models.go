package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const BossesCollection = "bosses"

// Boss is an entry of the guild's boss catalogue
type Boss struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Level        int                `bson:"level" json:"level"`
	RespawnHours int                `bson:"respawn_hours" json:"respawn_hours"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}
