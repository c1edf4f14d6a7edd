// services/battle_service.go
package services

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/Lyzus243/Studyrpg2/models"
)

// DefaultMaxHitDamage bounds a single attack. A plausible study session never
// earns more than this in one hit; anything above it is a tampered client
// trying to drain the boss alone.
const DefaultMaxHitDamage = 500

// Distributor is the completion hook; RewardDistributor is the production
// implementation.
type Distributor interface {
	Distribute(battle *models.GroupBossBattle) error
}

// BattleService validates and serializes battle actions: create, join, attack.
// Attacks flow through the BattleStore's per-id mutation, which makes the
// completion transition the single serialization point for exactly-once
// reward distribution.
type BattleService struct {
	Store        BattleStore
	Guard        MembershipGuard
	Participants ParticipantRepo
	Registry     *ChannelRegistry
	Distributor  Distributor
	MaxHitDamage int

	ordMu    sync.Mutex
	ordLocks map[string]*sync.Mutex
}

func NewBattleService(store BattleStore, guard MembershipGuard, participants ParticipantRepo, registry *ChannelRegistry, distributor Distributor) *BattleService {
	return &BattleService{
		Store:        store,
		Guard:        guard,
		Participants: participants,
		Registry:     registry,
		Distributor:  distributor,
		MaxHitDamage: DefaultMaxHitDamage,
		ordLocks:     make(map[string]*sync.Mutex),
	}
}

// orderLock serializes mutation and snapshot staging for one battle. The
// snapshot's delivery ticket is taken while this lock is held, so snapshots
// enter the channel's delivery order in mutation order.
func (s *BattleService) orderLock(battleID string) *sync.Mutex {
	s.ordMu.Lock()
	defer s.ordMu.Unlock()
	l, ok := s.ordLocks[battleID]
	if !ok {
		l = &sync.Mutex{}
		s.ordLocks[battleID] = l
	}
	return l
}

// dropOrderLock releases the entry once a battle is terminal. Late attackers
// take the closed path and never stage a snapshot, so they do not need a
// shared lock identity.
func (s *BattleService) dropOrderLock(battleID string) {
	s.ordMu.Lock()
	defer s.ordMu.Unlock()
	delete(s.ordLocks, battleID)
}

// BattleCreate carries the reward terms fixed at creation.
type BattleCreate struct {
	GroupID           string   `json:"group_id"`
	Title             string   `json:"title"`
	Difficulty        int      `json:"difficulty"`
	MaxHealth         int      `json:"max_health"`
	RewardXP          int      `json:"reward_xp"`
	RewardSkillPoints int      `json:"reward_skill_points"`
	RewardItems       []string `json:"reward_items"`
}

// Create starts a battle in the caller's group. The creator joins as the
// first participant.
func (s *BattleService) Create(userID string, req BattleCreate) (*models.GroupBossBattle, error) {
	if req.Difficulty < 1 || req.Difficulty > 10 {
		return nil, ErrInvalidDifficulty
	}
	if req.MaxHealth <= 0 {
		return nil, ErrInvalidHealth
	}
	member, err := s.Guard.IsGroupMember(req.GroupID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotGroupMember
	}

	items := "[]"
	if len(req.RewardItems) > 0 {
		raw, err := json.Marshal(req.RewardItems)
		if err != nil {
			return nil, err
		}
		items = string(raw)
	}

	battle := &models.GroupBossBattle{
		GroupID:           req.GroupID,
		Title:             req.Title,
		CreatedBy:         userID,
		Difficulty:        req.Difficulty,
		CurrentHealth:     req.MaxHealth,
		MaxHealth:         req.MaxHealth,
		GroupHealth:       req.MaxHealth,
		Phase:             1,
		IsActive:          true,
		RewardXP:          req.RewardXP,
		RewardSkillPoints: req.RewardSkillPoints,
		RewardItems:       items,
	}
	if err := s.Store.Create(battle); err != nil {
		return nil, err
	}
	if err := s.Participants.Add(battle.ID, userID); err != nil {
		log.Printf("⚠️ [Battle] creator auto-join failed for battle %s: %v", battle.ID, err)
	}

	s.Registry.Publish(GroupChannel(battle.GroupID), BattleCreatedFrame{
		Type:      FrameBattleCreated,
		BattleID:  battle.ID,
		GroupID:   battle.GroupID,
		Timestamp: FrameTimestamp(),
	}, nil)

	log.Printf("✅ Created group boss battle %s for group %s", battle.ID, battle.GroupID)
	return battle, nil
}

// Join registers the user as a participant. Joining a battle that can no
// longer be fought, completed or deactivated by the sweeper, fails with
// ErrBattleClosed; joining twice with ErrAlreadyJoined.
func (s *BattleService) Join(battleID, userID string) error {
	battle, err := s.Store.Get(battleID)
	if err != nil {
		return err
	}
	member, err := s.Guard.IsGroupMember(battle.GroupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotGroupMember
	}
	if !battle.IsActive {
		return ErrBattleClosed
	}
	if err := s.Participants.Add(battleID, userID); err != nil {
		return err
	}

	s.Registry.Publish(BattleChannel(battleID), UserJoinedFrame{
		Type:      FrameUserJoinedBattle,
		BattleID:  battleID,
		UserID:    userID,
		Timestamp: FrameTimestamp(),
	}, nil)

	log.Printf("User %s joined group boss battle %s", userID, battleID)
	return nil
}

// Attack applies damage from userID to the battle.
//
// Damage is applied before completion is decided, so the hit that crosses zero
// is the one whose call observes completedNow, the exactly-once trigger for
// reward distribution. Overkill damage on the finishing blow is credited to
// score in full, deliberately uncapped.
func (s *BattleService) Attack(battleID, userID string, damage int) (*models.GroupBossBattle, error) {
	if damage <= 0 || damage > s.MaxHitDamage {
		return nil, ErrInvalidDamage
	}

	isParticipant, err := s.Participants.IsParticipant(battleID, userID)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return nil, ErrNotParticipant
	}

	var closed bool
	key := BattleChannel(battleID)

	// Mutation and snapshot ticket happen under one per-battle lock, so
	// snapshots enter the channel's delivery order in mutation order and
	// viewers see health fall monotonically. Delivery itself happens after
	// the lock is released.
	l := s.orderLock(battleID)
	l.Lock()
	battle, completedNow, err := s.Store.Mutate(battleID, func(b *models.GroupBossBattle) {
		if !b.IsActive {
			closed = true
			return
		}
		b.CurrentHealth -= damage
		b.Score += damage
		if b.CurrentHealth <= 0 {
			b.CurrentHealth = 0
			b.IsActive = false
			b.IsCompleted = true
			b.Passed = true
		}
	})
	if err != nil {
		l.Unlock()
		return nil, err
	}
	var ticket uint64
	if !closed {
		ticket = s.Registry.Ticket(key)
	}
	l.Unlock()

	if closed {
		return nil, ErrBattleClosed
	}

	// Every viewer sees the post-mutation snapshot, completing hit included.
	s.Registry.PublishAt(key, ticket, SnapshotFrame(battle), nil)

	if completedNow {
		s.dropOrderLock(battleID)
		// The per-battle lock is already released; slow reward crediting
		// cannot stall other attacks.
		if err := s.Distributor.Distribute(battle); err != nil {
			log.Printf("⚠️ [Battle] reward distribution failed for battle %s: %v", battle.ID, err)
		}
	}

	return battle, nil
}

// Get returns one battle after a membership check.
func (s *BattleService) Get(battleID, userID string) (*models.GroupBossBattle, error) {
	battle, err := s.Store.Get(battleID)
	if err != nil {
		return nil, err
	}
	member, err := s.Guard.IsGroupMember(battle.GroupID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotGroupMember
	}
	return battle, nil
}

// ListForGroup returns the group's battles, newest first.
func (s *BattleService) ListForGroup(groupID, userID string) ([]models.GroupBossBattle, error) {
	member, err := s.Guard.IsGroupMember(groupID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotGroupMember
	}
	return s.Store.ListByGroup(groupID)
}
