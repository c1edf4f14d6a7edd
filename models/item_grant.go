package models

import "time"

// ItemGrant records one reward item handed to one participant when a battle
// completes. Grants are append-only; the client inventory reads from here.
type ItemGrant struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string    `gorm:"index;not null" json:"external_user_id"`
	BattleID       string    `gorm:"index;not null" json:"battle_id"`
	ItemName       string    `gorm:"not null" json:"item_name"`
	Viewed         bool      `gorm:"default:false;index" json:"viewed"`
	GrantedAt      time.Time `json:"granted_at" gorm:"autoCreateTime"`
}
