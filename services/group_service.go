// services/group_service.go
package services

import (
	"errors"
	"log"

	"github.com/Lyzus243/Studyrpg2/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// GroupService manages study groups, the membership substrate the battle
// engine's guard reads from.
type GroupService struct {
	DB *gorm.DB
}

func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{DB: db}
}

// CreateGroup creates a study group; the creator becomes its first member.
func (s *GroupService) CreateGroup(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		IsPublic    *bool  `json:"is_public"`
		MaxMembers  int    `json:"max_members"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" || len(req.Name) > 50 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Group name must be 1-50 characters"})
	}
	if req.MaxMembers <= 0 {
		req.MaxMembers = 10
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	group := models.StudyGroup{
		Name:           req.Name,
		Slug:           slug.Make(req.Name),
		Description:    req.Description,
		IsPublic:       isPublic,
		MaxMembers:     req.MaxMembers,
		CreatorID:      userID,
		CurrentMembers: 1,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.StudyGroup{}).Where("slug = ?", group.Slug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errors.New("group name already taken")
		}
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		member := models.GroupMember{GroupID: group.ID, UserID: userID}
		return tx.Create(&member).Error
	})
	if err != nil {
		log.Printf("DB Error creating study group: %v", err)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(group)
}

// ListPublicGroups lists joinable groups.
func (s *GroupService) ListPublicGroups(c *fiber.Ctx) error {
	var groups []models.StudyGroup
	if err := s.DB.Where("is_public = ?", true).Order("created_at DESC").Find(&groups).Error; err != nil {
		log.Printf("DB Error listing study groups: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch groups"})
	}
	return c.JSON(groups)
}

// JoinGroup adds the caller to a group.
func (s *GroupService) JoinGroup(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	groupID := c.Params("id")

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var group models.StudyGroup
		if err := tx.First(&group, "id = ?", groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}
		var count int64
		if err := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyJoined
		}
		if group.CurrentMembers >= group.MaxMembers {
			return ErrGroupFull
		}
		member := models.GroupMember{GroupID: groupID, UserID: userID}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		return tx.Model(&group).Update("current_members", gorm.Expr("current_members + 1")).Error
	})
	switch {
	case errors.Is(err, ErrGroupNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Study group not found"})
	case errors.Is(err, ErrAlreadyJoined):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Already a member of this group"})
	case errors.Is(err, ErrGroupFull):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Study group is full"})
	case err != nil:
		log.Printf("DB Error joining study group %s: %v", groupID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to join group"})
	}

	return c.JSON(fiber.Map{"message": "Joined group successfully", "group_id": groupID})
}
