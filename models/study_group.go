package models

import "time"

// StudyGroup is the membership scope for group boss battles. Battles belong to
// a group; only members may join or attack them.
type StudyGroup struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name           string `gorm:"size:50;index;not null" json:"name"`
	Slug           string `gorm:"uniqueIndex;not null" json:"slug"`
	Description    string `gorm:"size:200" json:"description"`
	IsPublic       bool   `json:"is_public" gorm:"default:true"`
	MaxMembers     int    `json:"max_members" gorm:"default:10"`
	CreatorID      string `gorm:"index;not null" json:"creator_id"`
	CurrentMembers int    `json:"current_members" gorm:"default:0"`

	Timestamps
}

// GroupMember links a user to a study group. The membership guard answers
// "is user U a member of group G" from these rows.
type GroupMember struct {
	ID       string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	GroupID  string    `gorm:"uniqueIndex:idx_group_user;not null" json:"group_id"`
	UserID   string    `gorm:"uniqueIndex:idx_group_user;not null" json:"user_id"`
	JoinedAt time.Time `json:"joined_at" gorm:"autoCreateTime"`
}
