// handlers/progression_routes.go
package handlers

import (
	"log"

	"github.com/Lyzus243/Studyrpg2/middleware"
	"github.com/Lyzus243/Studyrpg2/models"
	"github.com/Lyzus243/Studyrpg2/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ProgressionHandler serves the read side of user progression: level, XP,
// badges, reward item grants.
type ProgressionHandler struct {
	DB          *gorm.DB
	Progression *services.ProgressionService
	Grants      *services.ItemGrantService
}

func NewProgressionHandler(db *gorm.DB, progression *services.ProgressionService, grants *services.ItemGrantService) *ProgressionHandler {
	return &ProgressionHandler{DB: db, Progression: progression, Grants: grants}
}

func SetupProgressionRoutes(app *fiber.App, h *ProgressionHandler, authClient services.TokenValidator) {
	// SSE grant stream authenticates via ?token=, same as the battle stream.
	app.Get("/progress/me/grants/stream",
		middleware.StreamAuthMiddleware(authClient),
		h.Grants.StreamUserGrantsSSE,
	)

	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/progress/me", h.GetMyProgress)
	secured.Get("/progress/me/badges", h.GetMyBadges)
	secured.Get("/progress/me/grants", h.GetMyGrants)
	secured.Post("/progress/me/grants/viewed", h.MarkGrantsViewed)
}

// GetMyProgress returns the caller's progress with derived level fields. The
// record is created on first read so new users never see a 404.
func (h *ProgressionHandler) GetMyProgress(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	prog, err := h.Progression.EnsureProgressRecord(userID)
	if err != nil {
		log.Printf("❌ [Progress] fetch failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch progress"})
	}

	nextXP := services.NextLevelXP(prog.Level)
	resp := fiber.Map{
		"progress":       prog,
		"level_progress": services.LevelProgress(prog),
		"max_level":      services.MaxLevel,
	}
	if prog.Level >= services.MaxLevel {
		resp["next_level_xp"] = nil
	} else {
		resp["next_level_xp"] = nextXP
	}
	return c.JSON(resp)
}

// GetMyBadges lists earned badges, newest first.
func (h *ProgressionHandler) GetMyBadges(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var badges []models.UserBadge
	if err := h.DB.Where("external_user_id = ?", userID).
		Order("awarded_at DESC").
		Find(&badges).Error; err != nil {
		log.Printf("❌ [Progress] badge fetch failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch badges"})
	}
	return c.JSON(badges)
}

// GetMyGrants lists reward item grants; ?unviewed=true narrows to toasts the
// client has not shown yet.
func (h *ProgressionHandler) GetMyGrants(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	db := h.DB.Where("external_user_id = ?", userID)
	if c.Query("unviewed") == "true" {
		db = db.Where("viewed = ?", false)
	}

	var grants []models.ItemGrant
	if err := db.Order("granted_at DESC").Find(&grants).Error; err != nil {
		log.Printf("❌ [Progress] grant fetch failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch item grants"})
	}
	return c.JSON(grants)
}

// MarkGrantsViewed flags the caller's grants as seen so they stop surfacing
// as unviewed.
func (h *ProgressionHandler) MarkGrantsViewed(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		GrantIDs []string `json:"grant_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	db := h.DB.Model(&models.ItemGrant{}).Where("external_user_id = ?", userID)
	if len(req.GrantIDs) > 0 {
		db = db.Where("id IN ?", req.GrantIDs)
	}
	res := db.Update("viewed", true)
	if res.Error != nil {
		log.Printf("❌ [Progress] grant viewed update failed for user %s: %v", userID, res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update grants"})
	}
	return c.JSON(fiber.Map{"updated": res.RowsAffected})
}
