package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
)

// TypeContentGenerate is the asynq task type for one content request.
const TypeContentGenerate = "content:generate"

// AsynqClient enqueues generation jobs onto Redis. This is the managed
// queue used in production; leasing, retries and redelivery are asynq's
// problem there, while the poll-based adapters above cover dev mode.
type AsynqClient struct {
	client *asynq.Client
}

func NewAsynqClient(addr, password string) *AsynqClient {
	return &AsynqClient{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     addr,
			Password: password,
		}),
	}
}

func (c *AsynqClient) Enqueue(ctx context.Context, msg JobMessage, delay time.Duration) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	opts := []asynq.Option{
		asynq.MaxRetry(3),
		asynq.Timeout(10 * time.Minute), // generation + per-draft images is slow
		asynq.Retention(24 * time.Hour),
	}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}
	task := asynq.NewTask(TypeContentGenerate, payload, opts...)

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	log.Printf("[queue] asynq task enqueued: id=%s request=%s", info.ID, msg.RequestID)
	return nil
}

func (c *AsynqClient) Close() error {
	return c.client.Close()
}
