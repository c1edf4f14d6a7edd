package handlers

import (
	"io"
	"sync"
	"testing"

	"github.com/Lyzus243/Studyrpg2/models"
	"github.com/Lyzus243/Studyrpg2/services"

	fws "github.com/fasthttp/websocket"
	"github.com/stretchr/testify/require"
)

// scriptedConn feeds a fixed sequence of inbound frames to the pump and
// records everything written back.
type scriptedConn struct {
	mu      sync.Mutex
	inbound [][]byte
	written []interface{}
	closes  []closeCall
}

type closeCall struct {
	messageType int
	data        []byte
}

func newScriptedConn(frames ...string) *scriptedConn {
	c := &scriptedConn{}
	for _, f := range frames {
		c.inbound = append(c.inbound, []byte(f))
	}
	return c
}

func (c *scriptedConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbound) == 0 {
		return 0, nil, io.EOF
	}
	data := c.inbound[0]
	c.inbound = c.inbound[1:]
	return fws.TextMessage, data, nil
}

func (c *scriptedConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, v)
	return nil
}

func (c *scriptedConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes = append(c.closes, closeCall{messageType: messageType, data: data})
	return nil
}

// peerConn is a passive registry subscriber.
type peerConn struct {
	mu       sync.Mutex
	received []interface{}
}

func (c *peerConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, v)
	return nil
}

type allowAllGuard struct{}

func (allowAllGuard) IsGroupMember(groupID, userID string) (bool, error) { return true, nil }

type denyAllGuard struct{}

func (denyAllGuard) IsGroupMember(groupID, userID string) (bool, error) { return false, nil }

type memParticipants struct {
	mu    sync.Mutex
	joins map[string]map[string]struct{}
}

func newMemParticipants() *memParticipants {
	return &memParticipants{joins: make(map[string]map[string]struct{})}
}

func (p *memParticipants) IsParticipant(battleID, userID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.joins[battleID][userID]
	return ok, nil
}

func (p *memParticipants) List(battleID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for u := range p.joins[battleID] {
		out = append(out, u)
	}
	return out, nil
}

func (p *memParticipants) Add(battleID, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.joins[battleID]
	if !ok {
		set = make(map[string]struct{})
		p.joins[battleID] = set
	}
	set[userID] = struct{}{}
	return nil
}

type noopDistributor struct{}

func (noopDistributor) Distribute(battle *models.GroupBossBattle) error { return nil }

func newStreamFixture(t *testing.T) (*BattleStreamHandler, *services.ChannelRegistry, string) {
	t.Helper()
	store := services.NewMemoryBattleStore()
	registry := services.NewChannelRegistry()
	participants := newMemParticipants()
	battles := services.NewBattleService(store, allowAllGuard{}, participants, registry, noopDistributor{})

	battle, err := battles.Create("user-1", services.BattleCreate{
		GroupID:    "group-1",
		Title:      "Pump Test Boss",
		Difficulty: 5,
		MaxHealth:  100,
	})
	require.NoError(t, err)

	h := NewBattleStreamHandler(battles, registry, allowAllGuard{}, nil)
	return h, registry, battle.ID
}

func TestPumpAttackBroadcastsUpdate(t *testing.T) {
	h, registry, battleID := newStreamFixture(t)

	sender := newScriptedConn(`{"type":"attack","damage":30}`)
	peer := &peerConn{}
	registry.Subscribe(services.BattleChannel(battleID), sender)
	registry.Subscribe(services.BattleChannel(battleID), peer)

	h.pump(sender, battleID, "user-1", "alice")

	require.Len(t, peer.received, 1)
	update, ok := peer.received[0].(services.BattleUpdateFrame)
	require.True(t, ok)
	require.Equal(t, services.FrameBattleUpdate, update.Type)
	require.Equal(t, 70, update.CurrentHealth)
	require.Equal(t, 30, update.Score)

	// battle_update goes to every subscriber, attacker included.
	require.Len(t, sender.written, 1)
	require.Empty(t, sender.closes)
}

func TestPumpAttackErrorStaysOnConnection(t *testing.T) {
	h, registry, battleID := newStreamFixture(t)

	// user-2 never joined; the attack is rejected but the stream stays open
	// for the next frame.
	sender := newScriptedConn(
		`{"type":"attack","damage":30}`,
		`{"type":"attack","damage":-1}`,
	)
	peer := &peerConn{}
	registry.Subscribe(services.BattleChannel(battleID), sender)
	registry.Subscribe(services.BattleChannel(battleID), peer)

	h.pump(sender, battleID, "user-2", "bob")

	require.Len(t, sender.written, 2)
	for _, w := range sender.written {
		errFrame, ok := w.(services.ErrorFrame)
		require.True(t, ok)
		require.Equal(t, services.FrameError, errFrame.Type)
	}
	require.Empty(t, peer.received)
	require.Empty(t, sender.closes)
}

func TestPumpChatExcludesSender(t *testing.T) {
	h, registry, battleID := newStreamFixture(t)

	sender := newScriptedConn(`{"type":"chat_message","content":"go go go"}`)
	peer := &peerConn{}
	registry.Subscribe(services.BattleChannel(battleID), sender)
	registry.Subscribe(services.BattleChannel(battleID), peer)

	h.pump(sender, battleID, "user-1", "alice")

	require.Len(t, peer.received, 1)
	chat, ok := peer.received[0].(services.ChatMessageFrame)
	require.True(t, ok)
	require.Equal(t, "alice", chat.Username)
	require.Equal(t, "go go go", chat.Content)
	require.Equal(t, battleID, chat.BattleID)

	require.Empty(t, sender.written)
}

func TestPumpPassthroughAttachesSenderMetadata(t *testing.T) {
	h, registry, battleID := newStreamFixture(t)

	sender := newScriptedConn(`{"type":"emote","emote":"cheer"}`)
	peer := &peerConn{}
	registry.Subscribe(services.BattleChannel(battleID), sender)
	registry.Subscribe(services.BattleChannel(battleID), peer)

	h.pump(sender, battleID, "user-1", "alice")

	require.Len(t, peer.received, 1)
	frame, ok := peer.received[0].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "emote", frame["type"])
	require.Equal(t, "cheer", frame["emote"])
	require.Equal(t, "user-1", frame["user_id"])
	require.Equal(t, "alice", frame["username"])
	require.Equal(t, battleID, frame["battle_id"])
	require.NotEmpty(t, frame["timestamp"])

	require.Empty(t, sender.written)
}

func TestPumpMalformedFrameCloses(t *testing.T) {
	h, registry, battleID := newStreamFixture(t)

	sender := newScriptedConn(`{not json`, `{"type":"chat_message","content":"never read"}`)
	peer := &peerConn{}
	registry.Subscribe(services.BattleChannel(battleID), sender)
	registry.Subscribe(services.BattleChannel(battleID), peer)

	h.pump(sender, battleID, "user-1", "alice")

	// Error frame, then a close with the unsupported-data code; the second
	// inbound frame is never processed.
	require.Len(t, sender.written, 1)
	errFrame, ok := sender.written[0].(services.ErrorFrame)
	require.True(t, ok)
	require.Equal(t, services.FrameError, errFrame.Type)

	require.Len(t, sender.closes, 1)
	require.Equal(t, fws.CloseMessage, sender.closes[0].messageType)
	require.Empty(t, peer.received)
}

func TestAuthorizeRejectsNonMember(t *testing.T) {
	h, _, battleID := newStreamFixture(t)
	h.Guard = denyAllGuard{}

	battle, code, reason := h.authorize(battleID, "outsider")
	require.Nil(t, battle)
	require.Equal(t, fws.ClosePolicyViolation, code)
	require.Equal(t, "Not a group member", reason)
}

func TestAuthorizeRejectsUnknownBattleAndMissingUser(t *testing.T) {
	h, _, battleID := newStreamFixture(t)

	battle, code, _ := h.authorize("missing", "user-1")
	require.Nil(t, battle)
	require.Equal(t, fws.ClosePolicyViolation, code)

	battle, code, reason := h.authorize(battleID, "")
	require.Nil(t, battle)
	require.Equal(t, fws.ClosePolicyViolation, code)
	require.Equal(t, "Authentication required", reason)
}

func TestAuthorizeAllowsMember(t *testing.T) {
	h, _, battleID := newStreamFixture(t)

	battle, _, _ := h.authorize(battleID, "user-1")
	require.NotNil(t, battle)
	require.Equal(t, battleID, battle.ID)
}

func TestPumpNonIntegerDamageRejected(t *testing.T) {
	h, registry, battleID := newStreamFixture(t)

	sender := newScriptedConn(
		`{"type":"attack","damage":12.5}`,
		`{"type":"attack","damage":"lots"}`,
	)
	registry.Subscribe(services.BattleChannel(battleID), sender)

	h.pump(sender, battleID, "user-1", "alice")

	require.Len(t, sender.written, 2)
	for _, w := range sender.written {
		errFrame, ok := w.(services.ErrorFrame)
		require.True(t, ok)
		require.Equal(t, services.ErrInvalidDamage.Error(), errFrame.Message)
	}

	// No damage landed.
	battle, err := h.Battles.Store.Get(battleID)
	require.NoError(t, err)
	require.Equal(t, 100, battle.CurrentHealth)
}
