package infra

// dlq.go — dead-letter list for failed invoice notifications.
// Sends that fail after schedule advancement are recorded here for manual
// inspection; the schedule itself never stalls on a mail failure.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const notificationDLQKey = "dlq:notifications"

// DLQEntry wraps a failed notification with metadata for debugging.
type DLQEntry struct {
	AutomationID  string `json:"automation_id"`
	InvoiceNumber string `json:"invoice_number"`
	Email         string `json:"email"`
	Reason        string `json:"reason"`
	FailedAt      string `json:"failed_at"` // ISO 8601
}

// RecordFailedNotification pushes the entry onto the dead-letter list.
func RecordFailedNotification(ctx context.Context, rdb *redis.Client, entry DLQEntry) {
	entry.FailedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Msg("dlq: failed to marshal entry")
		return
	}
	if err := rdb.LPush(ctx, notificationDLQKey, data).Err(); err != nil {
		log.Error().Err(err).Msg("dlq: failed to push entry")
		return
	}

	log.Warn().
		Str("automation_id", entry.AutomationID).
		Str("invoice_number", entry.InvoiceNumber).
		Str("reason", entry.Reason).
		Msg("dlq: notification moved to dead letter list")
}

// NotificationDLQLength returns the number of entries for monitoring.
func NotificationDLQLength(ctx context.Context, rdb *redis.Client) (int64, error) {
	return rdb.LLen(ctx, notificationDLQKey).Result()
}
