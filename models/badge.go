package models

import (
	"time"
)

// BadgeType: static config (loaded from DB or JSON)
type BadgeType struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Code        string `gorm:"uniqueIndex;not null"` // e.g., "FIRST_BOSS", "LEVEL_5"
	Name        string `gorm:"not null"`
	Description string
	IconURL     string           `gorm:"type:text"`
	Rarity      string           `gorm:"type:varchar(16);default:'common'"` // common, rare, epic, legendary
	Threshold   map[string]int64 `gorm:"serializer:json;type:jsonb"`        // e.g., {"battles_won": 10}
	CreatedAt   time.Time        `gorm:"autoCreateTime"`
}

// UserBadge: awarded instance, keyed by the badge's stable code
type UserBadge struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string    `gorm:"uniqueIndex:idx_user_badge;not null" json:"external_user_id"`
	BadgeCode      string    `gorm:"uniqueIndex:idx_user_badge;not null" json:"badge_code"`
	AwardedAt      time.Time `gorm:"autoCreateTime" json:"awarded_at"`
	Metadata       string    `gorm:"type:jsonb" json:"metadata,omitempty"` // e.g., {"battle_id": "..."}
}

// Predefined badge triggers
var BadgeTriggers = []BadgeType{
	{
		Code:        "FIRST_BOSS",
		Name:        "Boss Slayer",
		Description: "Helped defeat your first group boss",
		Rarity:      "common",
		Threshold:   map[string]int64{"battles_won": 1},
	},
	{
		Code:        "RAID_VETERAN",
		Name:        "Raid Veteran",
		Description: "Defeated 10 group bosses",
		Rarity:      "rare",
		Threshold:   map[string]int64{"battles_won": 10},
	},
	{
		Code:        "LEVEL_5",
		Name:        "Seasoned Scholar",
		Description: "Reached level 5",
		Rarity:      "rare",
		Threshold:   map[string]int64{"level": 5},
	},
	{
		Code:        "MAX_LEVEL",
		Name:        "Grandmaster",
		Description: "Reached the level cap",
		Rarity:      "legendary",
		Threshold:   map[string]int64{"level": 9},
	},
}
