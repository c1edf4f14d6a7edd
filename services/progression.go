package services

import (
	"fmt"
	"math"
	"time"

	"github.com/Lyzus243/Studyrpg2/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LevelXPThresholds holds total XP needed to sit at each level; index == level.
var LevelXPThresholds = []int64{0, 100, 300, 600, 1000, 1500, 2100, 2800, 3600, 4500}

// MaxLevel is the level cap (last threshold index).
var MaxLevel = len(LevelXPThresholds) - 1

// SkillPointsPerLevel is granted on every level-up.
const SkillPointsPerLevel = 5

// NextLevelXP returns the total XP required to reach level+1.
func NextLevelXP(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	if currentLevel >= MaxLevel {
		return math.MaxInt64
	}
	return LevelXPThresholds[currentLevel+1]
}

// LevelProgress returns how far (percent) the user is into the current level.
func LevelProgress(prog *models.UserProgress) float64 {
	if prog.Level >= MaxLevel {
		return 100
	}
	currentLevelXP := LevelXPThresholds[prog.Level]
	nextXP := NextLevelXP(prog.Level)
	progress := float64(prog.TotalXP-currentLevelXP) / float64(nextXP-currentLevelXP)
	return math.Round(progress*10000) / 100
}

type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// EnsureProgressRecord ensures a UserProgress row exists (idempotent)
func (s *ProgressionService) EnsureProgressRecord(externalUserID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error
	if err == gorm.ErrRecordNotFound {
		prog = models.UserProgress{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			TotalXP:        0,
			Level:          1,
		}
		if err := s.DB.Create(&prog).Error; err != nil {
			return nil, err
		}
		return &prog, nil
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

// AwardXP atomically updates XP and level, granting skill points on each
// level-up; returns updated progress
func (s *ProgressionService) AwardXP(externalUserID string, xp int64, reason string) (*models.UserProgress, error) {
	var updatedProg *models.UserProgress
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var prog models.UserProgress
		if err := tx.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
			return fmt.Errorf("progress record not found for %s", externalUserID)
		}

		prog.TotalXP += xp

		// Level-up loop: a big award can cross several thresholds at once
		for prog.Level < MaxLevel && prog.TotalXP >= NextLevelXP(prog.Level) {
			prog.Level++
			prog.SkillPoints += SkillPointsPerLevel
			now := time.Now()
			prog.LastLevelUpAt = &now
		}

		if err := tx.Save(&prog).Error; err != nil {
			return err
		}

		// Auto-award badges
		badgeSvc := NewBadgeService(s.DB)
		_ = badgeSvc.AutoAwardBadges(externalUserID) // fire-and-forget

		updatedProg = &models.UserProgress{}
		*updatedProg = prog

		fmt.Printf("🎮 XP Awarded: %s → XP=%d, Lvl=%d, SP=%d (reason: %s)\n",
			externalUserID, prog.TotalXP, prog.Level, prog.SkillPoints, reason)

		return nil
	})
	if err != nil {
		return nil, err
	}
	return updatedProg, nil
}

// AddSkillPoints credits bonus skill points outside the level-up path (battle
// reward terms carry their own skill-point amount).
func (s *ProgressionService) AddSkillPoints(externalUserID string, points int) error {
	if points <= 0 {
		return nil
	}
	res := s.DB.Model(&models.UserProgress{}).
		Where("external_user_id = ?", externalUserID).
		Update("skill_points", gorm.Expr("skill_points + ?", points))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("progress record not found for %s", externalUserID)
	}
	return nil
}

// RecordBattleJoined bumps the participation counter.
func (s *ProgressionService) RecordBattleJoined(externalUserID string) error {
	return s.DB.Model(&models.UserProgress{}).
		Where("external_user_id = ?", externalUserID).
		Update("battles_joined", gorm.Expr("battles_joined + 1")).Error
}

// RecordBattleWon bumps the victory counter and re-checks badge triggers.
func (s *ProgressionService) RecordBattleWon(externalUserID string) error {
	err := s.DB.Model(&models.UserProgress{}).
		Where("external_user_id = ?", externalUserID).
		Update("battles_won", gorm.Expr("battles_won + 1")).Error
	if err != nil {
		return err
	}
	badgeSvc := NewBadgeService(s.DB)
	_ = badgeSvc.AutoAwardBadges(externalUserID)
	return nil
}
