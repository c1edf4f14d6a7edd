// handlers/battle_routes.go
package handlers

import (
	"errors"
	"log"

	"github.com/Lyzus243/Studyrpg2/middleware"
	"github.com/Lyzus243/Studyrpg2/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// BattleHandler exposes the battle engine over HTTP. All state changes go
// through BattleService so websocket and REST attacks share one code path.
type BattleHandler struct {
	Battles  *services.BattleService
	Progress *services.ProgressionService
}

func NewBattleHandler(battles *services.BattleService, progress *services.ProgressionService) *BattleHandler {
	return &BattleHandler{Battles: battles, Progress: progress}
}

// recordJoin ensures the participant has a progress record (rewards credit
// against it on completion) and bumps the participation counter. Best effort;
// the join itself already succeeded.
func (h *BattleHandler) recordJoin(userID string) {
	if _, err := h.Progress.EnsureProgressRecord(userID); err != nil {
		log.Printf("⚠️ [Battle] progress record init failed for user %s: %v", userID, err)
		return
	}
	if err := h.Progress.RecordBattleJoined(userID); err != nil {
		log.Printf("⚠️ [Battle] join counter failed for user %s: %v", userID, err)
	}
}

func SetupBattleRoutes(app *fiber.App, h *BattleHandler, stream *BattleStreamHandler, authClient services.TokenValidator) {
	// Websocket stream authenticates via ?token= (browsers cannot set headers
	// on the upgrade request).
	app.Get("/battles/:id/stream",
		middleware.StreamAuthMiddleware(authClient),
		stream.StreamUpgrade,
		websocket.New(stream.HandleStream),
	)

	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/battles", h.CreateBattle)
	secured.Get("/battles/:id", h.GetBattle)
	secured.Post("/battles/:id/join", h.JoinBattle)
	secured.Post("/battles/:id/attack", h.AttackBattle)
	secured.Get("/groups/:id/battles", h.ListGroupBattles)
}

// CreateBattle starts a boss battle in the caller's group.
func (h *BattleHandler) CreateBattle(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req services.BattleCreate
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Battle title is required"})
	}

	battle, err := h.Battles.Create(userID, req)
	if err != nil {
		return battleError(c, err, "Failed to create battle")
	}
	h.recordJoin(userID)
	return c.Status(fiber.StatusCreated).JSON(battle)
}

// GetBattle returns one battle for a group member.
func (h *BattleHandler) GetBattle(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	battle, err := h.Battles.Get(c.Params("id"), userID)
	if err != nil {
		return battleError(c, err, "Failed to fetch battle")
	}
	return c.JSON(battle)
}

// JoinBattle registers the caller as a participant.
func (h *BattleHandler) JoinBattle(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	battleID := c.Params("id")

	if err := h.Battles.Join(battleID, userID); err != nil {
		return battleError(c, err, "Failed to join battle")
	}
	h.recordJoin(userID)
	return c.JSON(fiber.Map{"message": "Joined battle", "battle_id": battleID})
}

// AttackBattle applies damage over REST. Same engine call as the websocket
// path; clients without a live stream still fight.
func (h *BattleHandler) AttackBattle(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Damage int `json:"damage"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	battle, err := h.Battles.Attack(c.Params("id"), userID, req.Damage)
	if err != nil {
		return battleError(c, err, "Failed to process attack")
	}
	return c.JSON(battle)
}

// ListGroupBattles lists a group's battles, newest first.
func (h *BattleHandler) ListGroupBattles(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	battles, err := h.Battles.ListForGroup(c.Params("id"), userID)
	if err != nil {
		return battleError(c, err, "Failed to fetch battles")
	}
	return c.JSON(battles)
}

// battleError maps the service error taxonomy onto HTTP statuses.
func battleError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrBattleNotFound), errors.Is(err, services.ErrGroupNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotGroupMember), errors.Is(err, services.ErrNotParticipant):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidDamage), errors.Is(err, services.ErrInvalidHealth), errors.Is(err, services.ErrInvalidDifficulty):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrBattleClosed), errors.Is(err, services.ErrAlreadyJoined):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("❌ [Battle] %s: %v", fallback, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}
