// handlers/battle_stream.go
package handlers

import (
	"encoding/json"
	"log"

	"github.com/Lyzus243/Studyrpg2/models"
	"github.com/Lyzus243/Studyrpg2/services"

	fws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// streamConn is the slice of *websocket.Conn the stream loop needs; tests
// substitute scripted fakes.
type streamConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
}

// UsernameResolver attaches display names to chat frames.
type UsernameResolver interface {
	Username(externalUserID string) string
}

// BattleStreamHandler runs the per-connection lifecycle of a battle stream:
// authenticate, authorize against the group, subscribe to the battle channel,
// then pump inbound frames until the connection dies. A closed stream is never
// reused.
type BattleStreamHandler struct {
	Battles  *services.BattleService
	Registry *services.ChannelRegistry
	Guard    services.MembershipGuard
	Users    UsernameResolver
}

func NewBattleStreamHandler(battles *services.BattleService, registry *services.ChannelRegistry, guard services.MembershipGuard, users UsernameResolver) *BattleStreamHandler {
	return &BattleStreamHandler{Battles: battles, Registry: registry, Guard: guard, Users: users}
}

// StreamUpgrade gates the route to real websocket handshakes.
func (h *BattleStreamHandler) StreamUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleStream is the websocket entry point. Identity arrives via
// StreamAuthMiddleware locals; authorization happens here, before any
// subscription is registered.
func (h *BattleStreamHandler) HandleStream(c *websocket.Conn) {
	defer func() {
		_ = c.Close()
	}()

	battleID := c.Params("id")
	userID, _ := c.Locals("user_id").(string)
	username, _ := c.Locals("username").(string)

	battle, closeCode, reason := h.authorize(battleID, userID)
	if battle == nil {
		closeStream(c, closeCode, reason)
		return
	}
	if username == "" {
		username = h.Users.Username(userID)
	}

	key := services.BattleChannel(battleID)
	h.Registry.Subscribe(key, c)
	defer h.Registry.Unsubscribe(key, c)

	// New viewers get the current snapshot immediately.
	_ = c.WriteJSON(services.SnapshotFrame(battle))

	h.pump(c, battleID, userID, username)
}

// authorize decides whether a viewer may subscribe to a battle. Denials return
// a nil battle with the close code and reason to send; no subscription is
// registered until this passes.
func (h *BattleStreamHandler) authorize(battleID, userID string) (*models.GroupBossBattle, int, string) {
	if userID == "" {
		return nil, fws.ClosePolicyViolation, "Authentication required"
	}
	battle, err := h.Battles.Store.Get(battleID)
	if err != nil {
		log.Printf("[BattleStream] battle %s not available for user %s: %v", battleID, userID, err)
		return nil, fws.ClosePolicyViolation, "Battle not found"
	}
	member, err := h.Guard.IsGroupMember(battle.GroupID, userID)
	if err != nil {
		log.Printf("[BattleStream] membership check failed for user %s on battle %s: %v", userID, battleID, err)
		return nil, fws.CloseInternalServerErr, "Membership check failed"
	}
	if !member {
		log.Printf("[BattleStream] user %s rejected from battle %s: not a group member", userID, battleID)
		return nil, fws.ClosePolicyViolation, "Not a group member"
	}
	return battle, 0, ""
}

// pump reads and dispatches inbound frames until the connection errors or a
// malformed frame forces a close.
func (h *BattleStreamHandler) pump(conn streamConn, battleID, userID, username string) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame map[string]interface{}
		if err := json.Unmarshal(data, &frame); err != nil {
			_ = conn.WriteJSON(services.ErrorFrame{Type: services.FrameError, Message: "malformed frame"})
			closeStream(conn, fws.CloseUnsupportedData, "malformed frame")
			return
		}

		frameType, _ := frame["type"].(string)
		switch frameType {
		case "attack":
			damage, ok := frame["damage"].(float64)
			if !ok || damage != float64(int(damage)) {
				_ = conn.WriteJSON(services.ErrorFrame{Type: services.FrameError, Message: services.ErrInvalidDamage.Error()})
				continue
			}
			if _, err := h.Battles.Attack(battleID, userID, int(damage)); err != nil {
				// Validation and state errors stay on this connection; the
				// battle_update fan-out only fires for accepted attacks.
				_ = conn.WriteJSON(services.ErrorFrame{Type: services.FrameError, Message: err.Error()})
			}

		case services.FrameChatMessage:
			content, _ := frame["content"].(string)
			if content == "" {
				continue
			}
			h.Registry.Publish(services.BattleChannel(battleID), services.ChatMessageFrame{
				Type:      services.FrameChatMessage,
				BattleID:  battleID,
				UserID:    userID,
				Username:  username,
				Content:   content,
				Timestamp: services.FrameTimestamp(),
			}, conn)

		default:
			// Opaque passthrough: republish with sender metadata attached.
			frame["battle_id"] = battleID
			frame["user_id"] = userID
			frame["username"] = username
			frame["timestamp"] = services.FrameTimestamp()
			h.Registry.Publish(services.BattleChannel(battleID), frame, conn)
		}
	}
}

func closeStream(conn streamConn, code int, reason string) {
	_ = conn.WriteMessage(fws.CloseMessage, fws.FormatCloseMessage(code, reason))
}
