// services/membership.go
package services

import (
	"errors"

	"github.com/Lyzus243/Studyrpg2/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipGuard answers "is user U a member of group G". The battle engine
// consumes the answer and never touches group rows directly.
type MembershipGuard interface {
	IsGroupMember(groupID, userID string) (bool, error)
}

// ParticipantRepo owns the battle participant roster: who has joined a battle
// and may attack it.
type ParticipantRepo interface {
	IsParticipant(battleID, userID string) (bool, error)
	List(battleID string) ([]string, error)
	Add(battleID, userID string) error
}

// GormMembershipGuard checks group membership against the group_members table.
type GormMembershipGuard struct {
	DB *gorm.DB
}

func NewGormMembershipGuard(db *gorm.DB) *GormMembershipGuard {
	return &GormMembershipGuard{DB: db}
}

func (g *GormMembershipGuard) IsGroupMember(groupID, userID string) (bool, error) {
	var count int64
	err := g.DB.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

// GormParticipantRepo stores participant links in battle_participants.
type GormParticipantRepo struct {
	DB *gorm.DB
}

func NewGormParticipantRepo(db *gorm.DB) *GormParticipantRepo {
	return &GormParticipantRepo{DB: db}
}

func (r *GormParticipantRepo) IsParticipant(battleID, userID string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.BattleParticipant{}).
		Where("battle_id = ? AND user_id = ?", battleID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *GormParticipantRepo) List(battleID string) ([]string, error) {
	var userIDs []string
	err := r.DB.Model(&models.BattleParticipant{}).
		Where("battle_id = ?", battleID).
		Order("joined_at ASC").
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

// Add creates the participant link; a duplicate join maps to ErrAlreadyJoined
// via the unique (battle_id, user_id) index.
func (r *GormParticipantRepo) Add(battleID, userID string) error {
	link := models.BattleParticipant{BattleID: battleID, UserID: userID}
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&link)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrAlreadyJoined
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyJoined
	}
	return nil
}
