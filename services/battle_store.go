// services/battle_store.go
package services

import (
	"errors"
	"sync"

	"github.com/Lyzus243/Studyrpg2/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BattleStore is the durable record of a battle's combat state.
//
// Mutate is linearizable per battle id: two concurrent calls on the same id
// observe each other's effects in some total order, with no lost updates to
// health or score. Calls on different ids never block each other. The returned
// bool reports whether this call drove IsCompleted from false to true. It is
// true for at most one call across the lifetime of a battle, and is the
// exactly-once signal that gates reward distribution.
type BattleStore interface {
	Create(b *models.GroupBossBattle) error
	Get(battleID string) (*models.GroupBossBattle, error)
	ListByGroup(groupID string) ([]models.GroupBossBattle, error)
	Mutate(battleID string, fn func(*models.GroupBossBattle)) (*models.GroupBossBattle, bool, error)
}

// GormBattleStore persists battles in Postgres. Mutation serializes on a
// per-id mutex and additionally takes a row lock (SELECT ... FOR UPDATE)
// inside the transaction, so state stays consistent even when another process
// writes the same row.
type GormBattleStore struct {
	DB *gorm.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewGormBattleStore(db *gorm.DB) *GormBattleStore {
	return &GormBattleStore{DB: db, locks: make(map[string]*sync.Mutex)}
}

func (s *GormBattleStore) lockFor(battleID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[battleID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[battleID] = l
	}
	return l
}

// dropLock releases a battle's lock entry so the map does not grow with every
// battle ever fought. Called once a mutation observes the terminal completed
// state; stragglers get a fresh mutex, and the row lock inside the transaction
// still serializes them.
func (s *GormBattleStore) dropLock(battleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, battleID)
}

func (s *GormBattleStore) Create(b *models.GroupBossBattle) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return s.DB.Create(b).Error
}

func (s *GormBattleStore) Get(battleID string) (*models.GroupBossBattle, error) {
	var b models.GroupBossBattle
	if err := s.DB.First(&b, "id = ?", battleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBattleNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *GormBattleStore) ListByGroup(groupID string) ([]models.GroupBossBattle, error) {
	var battles []models.GroupBossBattle
	err := s.DB.Where("group_id = ?", groupID).
		Order("created_at DESC").
		Find(&battles).Error
	return battles, err
}

func (s *GormBattleStore) Mutate(battleID string, fn func(*models.GroupBossBattle)) (*models.GroupBossBattle, bool, error) {
	l := s.lockFor(battleID)
	l.Lock()
	defer l.Unlock()

	var out models.GroupBossBattle
	var completedNow bool
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var b models.GroupBossBattle
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&b, "id = ?", battleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBattleNotFound
			}
			return err
		}

		wasCompleted := b.IsCompleted
		fn(&b)
		completedNow = !wasCompleted && b.IsCompleted

		if err := tx.Save(&b).Error; err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if out.IsCompleted {
		s.dropLock(battleID)
	}
	return &out, completedNow, nil
}
