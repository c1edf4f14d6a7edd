// services/reward_distributor.go
package services

import (
	"log"

	"github.com/Lyzus243/Studyrpg2/models"

	"gorm.io/gorm"
)

// ProgressionCrediter is the slice of the progression service the distributor
// needs: atomic per-user credits.
type ProgressionCrediter interface {
	AwardXP(externalUserID string, xp int64, reason string) (*models.UserProgress, error)
	AddSkillPoints(externalUserID string, points int) error
	RecordBattleWon(externalUserID string) error
}

// ItemGranter hands reward items to a participant.
type ItemGranter interface {
	GrantItems(externalUserID, battleID string, items []string) error
}

// RewardDistributor awards XP, skill points and items to every registered
// participant of a completed battle. It is invoked only by the attack that
// observed completedNow, so it runs exactly once per battle. Crediting is a
// best-effort fan-out over independent targets: one participant failing never
// aborts the rest.
type RewardDistributor struct {
	Participants ParticipantRepo
	Progress     ProgressionCrediter
	Items        ItemGranter
}

func NewRewardDistributor(participants ParticipantRepo, progress ProgressionCrediter, items ItemGranter) *RewardDistributor {
	return &RewardDistributor{Participants: participants, Progress: progress, Items: items}
}

func (d *RewardDistributor) Distribute(battle *models.GroupBossBattle) error {
	userIDs, err := d.Participants.List(battle.ID)
	if err != nil {
		return err
	}

	rewardItems := battle.RewardItemList()
	reason := "group_boss_" + battle.ID

	for _, userID := range userIDs {
		if _, err := d.Progress.AwardXP(userID, int64(battle.RewardXP), reason); err != nil {
			log.Printf("⚠️ [Rewards] XP credit failed for user %s on battle %s: %v", userID, battle.ID, err)
			continue
		}
		if err := d.Progress.AddSkillPoints(userID, battle.RewardSkillPoints); err != nil {
			log.Printf("⚠️ [Rewards] skill point credit failed for user %s on battle %s: %v", userID, battle.ID, err)
		}
		if err := d.Progress.RecordBattleWon(userID); err != nil {
			log.Printf("⚠️ [Rewards] win counter failed for user %s on battle %s: %v", userID, battle.ID, err)
		}
		if len(rewardItems) > 0 {
			if err := d.Items.GrantItems(userID, battle.ID, rewardItems); err != nil {
				log.Printf("⚠️ [Rewards] item grant failed for user %s on battle %s: %v", userID, battle.ID, err)
			}
		}
	}

	log.Printf("✅ Distributed rewards for battle %s to %d participant(s)", battle.ID, len(userIDs))
	return nil
}

// ItemGrantService is the GORM-backed ItemGranter.
type ItemGrantService struct {
	DB *gorm.DB
}

func NewItemGrantService(db *gorm.DB) *ItemGrantService {
	return &ItemGrantService{DB: db}
}

func (s *ItemGrantService) GrantItems(externalUserID, battleID string, items []string) error {
	grants := make([]models.ItemGrant, 0, len(items))
	for _, name := range items {
		grants = append(grants, models.ItemGrant{
			ExternalUserID: externalUserID,
			BattleID:       battleID,
			ItemName:       name,
		})
	}
	return s.DB.Create(&grants).Error
}
