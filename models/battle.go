package models

import (
	"encoding/json"
	"time"
)

// GroupBossBattle is one shared combat session: a boss with a finite health
// pool attacked concurrently by the members of a study group. Reward terms are
// fixed at creation and never change afterwards.
type GroupBossBattle struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	GroupID   string `gorm:"index;not null" json:"group_id"`
	Title     string `gorm:"not null" json:"title"`
	CreatedBy string `gorm:"index;not null" json:"created_by"`

	Difficulty int `json:"difficulty" gorm:"check:difficulty BETWEEN 1 AND 10"`

	// Combat state. CurrentHealth stays within [0, MaxHealth]; Score accumulates
	// the full damage of every accepted attack, including overkill on the
	// finishing blow.
	CurrentHealth int `json:"current_health"`
	MaxHealth     int `json:"max_health"`
	GroupHealth   int `json:"group_health"`
	Score         int `json:"score" gorm:"default:0"`
	Phase         int `json:"phase" gorm:"default:1"`

	// Lifecycle. IsCompleted implies !IsActive; a battle is terminal exactly
	// once, there is no reopening.
	IsActive    bool `json:"is_active" gorm:"default:true"`
	IsCompleted bool `json:"is_completed" gorm:"default:false"`
	Passed      bool `json:"passed" gorm:"default:false"`

	// Reward terms, immutable after creation.
	RewardXP          int    `json:"reward_xp"`
	RewardSkillPoints int    `json:"reward_skill_points"`
	RewardItems       string `json:"reward_items" gorm:"type:text"` // JSON-encoded []string

	Timestamps
}

// RewardItemList decodes the JSON-encoded reward item names. An empty or
// malformed list yields nil rather than an error; reward items are best-effort.
func (b *GroupBossBattle) RewardItemList() []string {
	if b.RewardItems == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(b.RewardItems), &items); err != nil {
		return nil
	}
	return items
}

// BattleParticipant links a user to a battle they have joined. Created once by
// the join action, never mutated.
type BattleParticipant struct {
	ID       string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	BattleID string    `gorm:"uniqueIndex:idx_battle_user;not null" json:"battle_id"`
	UserID   string    `gorm:"uniqueIndex:idx_battle_user;not null" json:"user_id"`
	JoinedAt time.Time `json:"joined_at" gorm:"autoCreateTime"`
}
