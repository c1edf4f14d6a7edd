// services/frames.go
package services

import (
	"time"

	"github.com/Lyzus243/Studyrpg2/models"
)

// Frame types published on battle channels.
const (
	FrameBattleUpdate     = "battle_update"
	FrameBattleCreated    = "battle_created"
	FrameUserJoinedBattle = "user_joined_battle"
	FrameChatMessage      = "chat_message"
	FrameError            = "error"
)

// BattleChannel is the channel key for one battle's stream.
func BattleChannel(battleID string) string {
	return "battle_" + battleID
}

// GroupChannel is the channel key for group-level announcements.
func GroupChannel(groupID string) string {
	return "group_" + groupID
}

// FrameTimestamp formats broadcast timestamps (RFC3339 UTC).
func FrameTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

type BattleUpdateFrame struct {
	Type          string `json:"type"`
	BattleID      string `json:"battle_id"`
	CurrentHealth int    `json:"current_health"`
	Score         int    `json:"score"`
	IsCompleted   bool   `json:"is_completed"`
	Passed        bool   `json:"passed"`
	Timestamp     string `json:"timestamp"`
}

// SnapshotFrame builds the battle_update frame for a battle's current state.
func SnapshotFrame(b *models.GroupBossBattle) BattleUpdateFrame {
	return BattleUpdateFrame{
		Type:          FrameBattleUpdate,
		BattleID:      b.ID,
		CurrentHealth: b.CurrentHealth,
		Score:         b.Score,
		IsCompleted:   b.IsCompleted,
		Passed:        b.Passed,
		Timestamp:     FrameTimestamp(),
	}
}

type UserJoinedFrame struct {
	Type      string `json:"type"`
	BattleID  string `json:"battle_id"`
	UserID    string `json:"user_id"`
	Timestamp string `json:"timestamp"`
}

type BattleCreatedFrame struct {
	Type      string `json:"type"`
	BattleID  string `json:"battle_id"`
	GroupID   string `json:"group_id"`
	Timestamp string `json:"timestamp"`
}

type ChatMessageFrame struct {
	Type      string `json:"type"`
	BattleID  string `json:"battle_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
