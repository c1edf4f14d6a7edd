// services/users.go
package services

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/Lyzus243/Studyrpg2/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// UserService reads the local StudyUser mirror kept fresh by the sync worker.
type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// Username resolves a display name for chat frames; unknown users fall back
// to their external id so a stale mirror never blocks a message.
func (s *UserService) Username(externalUserID string) string {
	var user models.StudyUser
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("⚠️ [Users] lookup failed for %s: %v", externalUserID, err)
		}
		return externalUserID
	}
	return user.Username
}

// SearchUsers searches the local mirror (used when inviting members to a
// study group).
func (s *UserService) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limitStr := c.Query("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	var users []models.StudyUser
	db := s.DB.Model(&models.StudyUser{}).Limit(limit)

	if query != "" {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where(
			"LOWER(username) LIKE ? OR LOWER(email) LIKE ?",
			searchTerm, searchTerm,
		)
	}

	if err := db.Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "search failed", "details": err.Error()})
	}

	type UserSummary struct {
		ID             string `json:"id"`
		ExternalUserID string `json:"external_user_id"`
		Username       string `json:"username"`
		Email          string `json:"email"`
	}

	res := make([]UserSummary, len(users))
	for i, u := range users {
		res[i] = UserSummary{
			ID:             u.ID,
			ExternalUserID: u.ExternalUserID,
			Username:       u.Username,
			Email:          u.Email,
		}
	}

	return c.JSON(res)
}
