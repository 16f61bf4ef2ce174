package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NotificationJob is one message for the out-of-process notification worker.
type NotificationJob struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Recipient string                 `json:"recipient"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

const (
	NotificationSetPassword  = "nurse_set_password"
	NotificationShiftClaimed = "shift_claimed"
)

// Notifier pushes jobs onto a Redis list consumed by the notification worker.
// Delivery is fire-and-forget: a Redis outage costs notifications, never the
// request that triggered them.
type Notifier struct {
	redis  *redis.Client
	queue  string
	logger *zap.Logger
}

func NewNotifier(redisClient *redis.Client, queue string, logger *zap.Logger) *Notifier {
	return &Notifier{redis: redisClient, queue: queue, logger: logger}
}

func (n *Notifier) Enqueue(ctx context.Context, jobType, recipient string, payload map[string]interface{}) {
	job := NotificationJob{
		ID:        uuid.NewString(),
		Type:      jobType,
		Recipient: recipient,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		n.logger.Error("failed to marshal notification job", zap.Error(err))
		return
	}
	if err := n.redis.LPush(ctx, n.queue, data).Err(); err != nil {
		n.logger.Error("failed to enqueue notification",
			zap.String("type", jobType), zap.Error(err))
	}
}
