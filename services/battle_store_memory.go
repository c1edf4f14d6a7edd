// services/battle_store_memory.go
package services

import (
	"sort"
	"sync"

	"github.com/Lyzus243/Studyrpg2/models"

	"github.com/google/uuid"
)

// MemoryBattleStore keeps the canonical battle state in process, one mutex per
// battle. It backs single-process deployments and the test suite; semantics
// match GormBattleStore.
type MemoryBattleStore struct {
	mu      sync.Mutex
	battles map[string]*battleSlot
}

type battleSlot struct {
	mu     sync.Mutex
	battle models.GroupBossBattle
}

func NewMemoryBattleStore() *MemoryBattleStore {
	return &MemoryBattleStore{battles: make(map[string]*battleSlot)}
}

func (s *MemoryBattleStore) Create(b *models.GroupBossBattle) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.battles[b.ID] = &battleSlot{battle: *b}
	return nil
}

func (s *MemoryBattleStore) slot(battleID string) *battleSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.battles[battleID]
}

func (s *MemoryBattleStore) Get(battleID string) (*models.GroupBossBattle, error) {
	slot := s.slot(battleID)
	if slot == nil {
		return nil, ErrBattleNotFound
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	b := slot.battle
	return &b, nil
}

func (s *MemoryBattleStore) ListByGroup(groupID string) ([]models.GroupBossBattle, error) {
	s.mu.Lock()
	slots := make([]*battleSlot, 0, len(s.battles))
	for _, slot := range s.battles {
		slots = append(slots, slot)
	}
	s.mu.Unlock()

	var battles []models.GroupBossBattle
	for _, slot := range slots {
		slot.mu.Lock()
		if slot.battle.GroupID == groupID {
			battles = append(battles, slot.battle)
		}
		slot.mu.Unlock()
	}
	sort.Slice(battles, func(i, j int) bool {
		return battles[i].CreatedAt.After(battles[j].CreatedAt)
	})
	return battles, nil
}

func (s *MemoryBattleStore) Mutate(battleID string, fn func(*models.GroupBossBattle)) (*models.GroupBossBattle, bool, error) {
	slot := s.slot(battleID)
	if slot == nil {
		return nil, false, ErrBattleNotFound
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	next := slot.battle
	wasCompleted := next.IsCompleted
	fn(&next)
	completedNow := !wasCompleted && next.IsCompleted
	slot.battle = next

	out := next
	return &out, completedNow, nil
}
