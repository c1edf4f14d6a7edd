package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Lyzus243/Studyrpg2/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamUserGrantsSSE streams newly granted reward items for the
// authenticated user, so the client can pop a "you earned X" toast without
// holding a battle stream open.
func (s *ItemGrantService) StreamUserGrantsSSE(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastMaxGrantedAt time.Time

		// Initialize cursor
		var latest models.ItemGrant
		if err := s.DB.
			Where("external_user_id = ?", userID).
			Order("granted_at DESC").
			First(&latest).Error; err == nil {
			lastMaxGrantedAt = latest.GrantedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for user %s: %v", userID, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var newGrants []models.ItemGrant

				err := s.DB.
					Where("external_user_id = ?", userID).
					Where("granted_at > ?", lastMaxGrantedAt).
					Order("granted_at ASC").
					Find(&newGrants).Error

				if err != nil {
					log.Printf("SSE query error for user %s: %v", userID, err)
					continue
				}

				if len(newGrants) == 0 {
					continue
				}

				lastMaxGrantedAt = newGrants[len(newGrants)-1].GrantedAt

				for _, g := range newGrants {
					payload, _ := json.Marshal(g)

					fmt.Fprintf(w,
						"event: item_grant\ndata: %s\n\n",
						payload,
					)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}
