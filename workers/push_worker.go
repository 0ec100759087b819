package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"shop-community-system/models"
	"shop-community-system/utils"

	"gorm.io/gorm"
)

// PushRelayClient forwards stored notifications to the external push
// relay. Delivery is strictly best-effort: a relay outage never blocks
// or rolls back the badge grant or claim that produced the record —
// undelivered notifications just stay queued for the next tick.
type PushRelayClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewPushRelayClient(db *gorm.DB) *PushRelayClient {
	baseURL := os.Getenv("PUSH_RELAY_URL")
	if baseURL == "" {
		log.Fatal("PUSH_RELAY_URL environment variable is required for push delivery")
	}
	token := os.Getenv("COMMUNITY_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("COMMUNITY_SERVICE_TOKEN environment variable is required for push delivery")
	}

	return &PushRelayClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

type pushPayload struct {
	RecipientID string `json:"recipient_id"`
	Type        string `json:"type"`
	Message     string `json:"message,omitempty"`
	BadgeName   string `json:"badge_name,omitempty"`
	PostID      string `json:"post_id,omitempty"`
}

func (c *PushRelayClient) deliver(ctx context.Context, batch []models.Notification) error {
	payload := make([]pushPayload, len(batch))
	for i, n := range batch {
		payload[i] = pushPayload{
			RecipientID: n.RecipientID,
			Type:        string(n.Type),
			Message:     n.Message,
			BadgeName:   n.BadgeName,
			PostID:      n.PostID,
		}
	}

	body, err := json.Marshal(map[string]any{"notifications": payload})
	if err != nil {
		return fmt.Errorf("failed to encode push batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/api/v1/push", c.BaseURL), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call push relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("push relay returned status %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}

// PollNotifications ships unpushed notifications to the relay in batches.
func PollNotifications(ctx context.Context, client *PushRelayClient, pollInterval time.Duration) {
	log.Println("Starting notification push polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Notification push polling stopped.")
			return
		case <-ticker.C:
			var batch []models.Notification
			err := client.DB.Where("pushed = ?", false).
				Order("created_at ASC").
				Limit(100).
				Find(&batch).Error
			if err != nil {
				log.Printf("❌ Error loading unpushed notifications: %v", err)
				continue
			}
			if len(batch) == 0 {
				continue
			}

			if err := client.deliver(ctx, batch); err != nil {
				// Leave the batch unpushed; retried next tick.
				log.Printf("⚠️  Push delivery failed (%d queued): %v", len(batch), err)
				continue
			}

			ids := make([]string, len(batch))
			for i, n := range batch {
				ids[i] = n.ID
			}
			if err := client.DB.Model(&models.Notification{}).
				Where("id IN ?", ids).
				Update("pushed", true).Error; err != nil {
				log.Printf("❌ Failed to mark %d notification(s) pushed: %v", len(ids), err)
				continue
			}
			log.Printf("📤 Delivered %d notification(s) to push relay.", len(ids))
		}
	}
}
