package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const GuildSettingsCollection = "guild_settings"

// SettingType represents the data type of a guild setting value
type SettingType string

const (
	SettingTypeString  SettingType = "string"
	SettingTypeNumber  SettingType = "number"
	SettingTypeBoolean SettingType = "boolean"
)

// Keys read by the loot lifecycle
const (
	KeyApplyDeadlineHours  = "apply_deadline_hours"
	KeyAuctionMinPrice     = "auction_min_price"
	KeyAuctionMaxPrice     = "auction_max_price"
	KeyAuctionDefaultHours = "auction_default_hours"
	KeyInactiveUserDays    = "inactive_user_days"
	KeyDKPPerKill          = "dkp_per_kill"
)

// Setting is one guild-scoped configuration value
type Setting struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Key         string             `bson:"key" json:"key"`
	Value       interface{}        `bson:"value" json:"value"`
	Type        SettingType        `bson:"type" json:"type"`
	Description string             `bson:"description,omitempty" json:"description"`
	UpdatedBy   string             `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// DefaultSettings are seeded by migration and used whenever a key is missing
var DefaultSettings = []Setting{
	{
		Key:         KeyApplyDeadlineHours,
		Value:       48,
		Type:        SettingTypeNumber,
		Description: "Hours after a kill during which members may apply for its loot",
	},
	{
		Key:         KeyAuctionMinPrice,
		Value:       100,
		Type:        SettingTypeNumber,
		Description: "Lowest allowed auction starting price",
	},
	{
		Key:         KeyAuctionMaxPrice,
		Value:       9999,
		Type:        SettingTypeNumber,
		Description: "Highest allowed auction starting price",
	},
	{
		Key:         KeyAuctionDefaultHours,
		Value:       24,
		Type:        SettingTypeNumber,
		Description: "Auction length used when no end time is given",
	},
	{
		Key:         KeyInactiveUserDays,
		Value:       90,
		Type:        SettingTypeNumber,
		Description: "Days without login after which an account is disabled",
	},
	{
		Key:         KeyDKPPerKill,
		Value:       0,
		Type:        SettingTypeNumber,
		Description: "DKP credited to each registered attendee when a kill is recorded",
	},
}

// DefaultValue returns the seeded value for key
func DefaultValue(key string) (interface{}, bool) {
	for _, setting := range DefaultSettings {
		if setting.Key == key {
			return setting.Value, true
		}
	}
	return nil, false
}
