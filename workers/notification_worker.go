// workers/notification_worker.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Aksuiekbro/debetter-sub000/models"
	"github.com/Aksuiekbro/debetter-sub000/utils"
	"gorm.io/gorm"
)

const maxDeliveryAttempts = 5

// NotificationDispatchWorker polls pending notification rows and POSTs each
// one to the external webhook. The core never blocks on delivery; it only
// writes rows, and this worker owns getting them out.
type NotificationDispatchWorker struct {
	db           *gorm.DB
	interval     time.Duration
	webhookURL   string
	serviceToken string
	httpClient   *http.Client
}

func NewNotificationDispatchWorker(db *gorm.DB, webhookURL, serviceToken string) *NotificationDispatchWorker {
	return &NotificationDispatchWorker{
		db:           db,
		interval:     15 * time.Second,
		webhookURL:   webhookURL,
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
	}
}

func (w *NotificationDispatchWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Notification Dispatch Worker…")
	go w.run(ctx)
}

func (w *NotificationDispatchWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.dispatchBatch(ctx); err != nil {
				log.Printf("❌ Notification dispatch batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Notification Dispatch Worker stopped")
			return
		}
	}
}

// dispatchBatch delivers up to 50 pending rows oldest-first. A failed POST
// bumps the attempt counter; rows that exhaust their attempts are marked
// failed and never retried.
func (w *NotificationDispatchWorker) dispatchBatch(ctx context.Context) error {
	var pending []models.Notification
	err := w.db.Where("delivery = ?", models.DeliveryPending).
		Order("created_at ASC").
		Limit(50).
		Find(&pending).Error
	if err != nil {
		return fmt.Errorf("failed to load pending notifications: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	var sent, failed int
	for i := range pending {
		n := &pending[i]
		if err := w.deliver(ctx, n); err != nil {
			n.Attempts++
			if n.Attempts >= maxDeliveryAttempts {
				n.Delivery = models.DeliveryFailed
				failed++
				log.Printf("[NOTIFY_WORKER] ⚠️ Notification %s failed permanently after %d attempts: %v",
					n.ID, n.Attempts, err)
			}
		} else {
			now := time.Now()
			n.Delivery = models.DeliverySent
			n.SentAt = &now
			n.Attempts++
			sent++
		}
		if err := w.db.Save(n).Error; err != nil {
			log.Printf("[NOTIFY_WORKER] ⚠️ Failed to persist notification %s state: %v", n.ID, err)
		}
	}

	log.Printf("[NOTIFY_WORKER] Dispatched %d notification(s): %d sent, %d failed permanently",
		len(pending), sent, failed)
	return nil
}

func (w *NotificationDispatchWorker) deliver(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
