package services

import (
	"fmt"

	"github.com/Lyzus243/Studyrpg2/models"

	"gorm.io/gorm"
)

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// AutoAwardBadges checks all badge triggers for a user after a progress update
func (s *BadgeService) AutoAwardBadges(externalUserID string) error {
	var prog models.UserProgress
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
		return err
	}

	for _, trigger := range models.BadgeTriggers {
		if s.meetsThreshold(&prog, trigger.Threshold) {
			// Check if already awarded
			var count int64
			s.DB.Model(&models.UserBadge{}).
				Where("external_user_id = ? AND badge_code = ?", externalUserID, trigger.Code).
				Count(&count)
			if count == 0 {
				userBadge := models.UserBadge{
					ExternalUserID: externalUserID,
					BadgeCode:      trigger.Code,
				}
				if err := s.DB.Create(&userBadge).Error; err != nil {
					return err
				}
				fmt.Printf("🎖️ Badge awarded: %s → %s\n", trigger.Name, externalUserID)
			}
		}
	}

	return nil
}

func (s *BadgeService) meetsThreshold(prog *models.UserProgress, req map[string]int64) bool {
	for key, required := range req {
		switch key {
		case "battles_joined":
			if prog.BattlesJoined < required {
				return false
			}
		case "battles_won":
			if prog.BattlesWon < required {
				return false
			}
		case "level":
			if int64(prog.Level) < required {
				return false
			}
		case "total_xp":
			if prog.TotalXP < required {
				return false
			}
		}
	}
	return true
}
