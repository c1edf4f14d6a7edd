// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/Lyzus243/Studyrpg2/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// StaleBattleAfter is how long an uncompleted battle may sit idle before the
// sweeper deactivates it.
const StaleBattleAfter = 24 * time.Hour

// StartStaleBattleSweeper deactivates battles that never completed. Completed
// battles are terminal already and are never touched; deactivation only flips
// is_active so late attacks fail with the closed-battle error.
func (s *BattleService) StartStaleBattleSweeper(db *gorm.DB) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			cutoff := time.Now().Add(-StaleBattleAfter)
			var battles []models.GroupBossBattle
			err := db.Where("is_active = ? AND is_completed = ? AND updated_at <= ?", true, false, cutoff).
				Find(&battles).Error
			if err != nil {
				log.Printf("[Sweeper] DB error: %v", err)
				return
			}

			for _, stale := range battles {
				key := BattleChannel(stale.ID)
				l := s.orderLock(stale.ID)
				l.Lock()
				updated, _, err := s.Store.Mutate(stale.ID, func(b *models.GroupBossBattle) {
					if b.IsCompleted {
						return
					}
					b.IsActive = false
				})
				if err != nil {
					l.Unlock()
					log.Printf("[Sweeper] Failed to deactivate battle %s: %v", stale.ID, err)
					continue
				}
				ticket := s.Registry.Ticket(key)
				l.Unlock()

				s.Registry.PublishAt(key, ticket, SnapshotFrame(updated), nil)
				log.Printf("✅ Deactivated stale battle: %s (%s)", updated.ID, updated.Title)
			}
		}),
	)
}
