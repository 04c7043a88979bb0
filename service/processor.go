package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"brandcast-server/models"
	"brandcast-server/queue"
	"brandcast-server/storage"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
)

const terminalWriteAttempts = 3

// Processor is the worker. One instance runs one serial loop: dequeue,
// drive the request through queued → processing → completed/failed, then
// poll again. Multiple instances must not share the file-backed queue.
type Processor struct {
	Store     storage.Store
	Queue     queue.Adapter
	Generator *Generator

	PollInterval      time.Duration
	VisibilityTimeout time.Duration
}

func NewProcessor(store storage.Store, q queue.Adapter, gen *Generator) *Processor {
	return &Processor{
		Store:             store,
		Queue:             q,
		Generator:         gen,
		PollInterval:      250 * time.Millisecond,
		VisibilityTimeout: queue.DefaultVisibilityTimeout,
	}
}

// Run polls until the context is canceled. A bad job never stops the
// loop; errors are logged and the next cycle starts after the interval.
func (p *Processor) Run(ctx context.Context) {
	log.Printf("[worker] poll loop started, interval=%s", p.PollInterval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[worker] poll loop stopped: %v", ctx.Err())
			return
		default:
		}

		if _, err := p.ProcessOnce(ctx); err != nil {
			log.Printf("[worker] cycle error: %v", err)
		}
		time.Sleep(p.PollInterval)
	}
}

// ProcessOnce handles at most one message. It reports whether a message
// was leased; the error is non-nil when the job could not reach a terminal
// state and its lease was released for redelivery.
func (p *Processor) ProcessOnce(ctx context.Context) (bool, error) {
	delivery, err := p.Queue.Dequeue(ctx, p.VisibilityTimeout)
	if err != nil {
		return false, fmt.Errorf("dequeue failed: %w", err)
	}
	if delivery == nil {
		return false, nil
	}
	if delivery.Attempts > 1 {
		// No dead-letter policy: a poison message shows up here forever,
		// so at least make it visible.
		log.Printf("[worker] redelivery of request %s, attempt %d",
			delivery.Message.RequestID, delivery.Attempts)
	}

	if err := p.processRequest(ctx, delivery.Message); err != nil {
		if abandonErr := p.Queue.Abandon(ctx, delivery.Receipt); abandonErr != nil {
			log.Printf("[worker] abandon failed: %v", abandonErr)
		}
		return true, err
	}

	if err := p.Queue.Complete(ctx, delivery.Receipt); err != nil {
		log.Printf("[worker] complete failed: %v", err)
	}
	return true, nil
}

// processRequest drives one request through its lifecycle. It returns an
// error only when the request could not be brought to a terminal state
// (store unreachable); every other failure is recorded on the request as
// status failed and the message is considered handled.
func (p *Processor) processRequest(ctx context.Context, msg queue.JobMessage) error {
	req, err := p.Store.GetRequest(ctx, msg.RequestID)
	if errors.Is(err, storage.ErrNotFound) {
		log.Printf("[worker] request %s not found, dropping message", msg.RequestID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load request %s failed: %w", msg.RequestID, err)
	}

	// Idempotency guard: the only safeguard against at-least-once
	// redelivery. A terminal request is never reprocessed.
	if models.IsTerminalStatus(req.Status) {
		log.Printf("[worker] request %s already %s, skipping", req.ID, req.Status)
		return nil
	}

	log.Printf("[worker] processing request %s (account=%s, platform=%s)",
		req.ID, req.AccountID, req.Brief.SocialPlatform)
	if err := p.Store.UpdateRequestStatus(ctx, req.ID, models.RequestStatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing failed: %w", err)
	}

	profile, err := p.Store.GetBrandProfile(ctx, msg.AccountID)
	if errors.Is(err, storage.ErrNotFound) {
		return p.fail(ctx, req.ID, fmt.Sprintf("no brand profile for account %s", msg.AccountID))
	}
	if err != nil {
		// Transient store error: leave the lease to expire-and-redeliver
		// rather than failing the request over a hiccup.
		return fmt.Errorf("load brand profile for %s failed: %w", msg.AccountID, err)
	}

	drafts, diagErr := p.Generator.GenerateContent(ctx, profile.Brand, req.Brief)
	if diagErr != nil {
		log.Printf("[worker] request %s used fallback drafts: %v", req.ID, diagErr)
	}
	for i := range drafts {
		drafts[i].RequestID = req.ID
	}

	if err := p.Store.SaveDrafts(ctx, drafts); err != nil {
		return p.fail(ctx, req.ID, fmt.Sprintf("persist drafts failed: %v", err))
	}

	if err := p.setTerminal(ctx, req.ID, models.RequestStatusCompleted, ""); err != nil {
		return err
	}
	log.Printf("[worker] request %s completed with %d drafts", req.ID, len(drafts))
	return nil
}

func (p *Processor) fail(ctx context.Context, requestID, message string) error {
	log.Printf("[worker] request %s failed: %s", requestID, message)
	return p.setTerminal(ctx, requestID, models.RequestStatusFailed, message)
}

// setTerminal retries the terminal status write a few times before giving
// up; the caller then abandons the lease so the message redelivers once
// the store recovers, instead of leaving the request stuck in processing.
func (p *Processor) setTerminal(ctx context.Context, requestID, status, errorMessage string) error {
	var err error
	for attempt := 1; attempt <= terminalWriteAttempts; attempt++ {
		err = p.Store.UpdateRequestStatus(ctx, requestID, status, errorMessage)
		if err == nil {
			return nil
		}
		log.Printf("[worker] terminal status write failed (attempt %d/%d): %v",
			attempt, terminalWriteAttempts, err)
		if attempt < terminalWriteAttempts {
			time.Sleep(200 * time.Millisecond)
		}
	}
	return fmt.Errorf("terminal status write for %s failed: %w", requestID, err)
}

// StartAsynq runs the worker as an asynq consumer instead of the poll
// loop. Leasing and retries are the managed queue's job in this mode.
func (p *Processor) StartAsynq(redisAddr, redisPassword string, concurrency int) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: redisPassword,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeContentGenerate, p.HandleGenerateTask)

	log.Printf("[worker] starting asynq consumer, concurrency=%d", concurrency)
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("could not run asynq server: %v", err)
		}
	}()
}

// HandleGenerateTask adapts one asynq task to the shared lifecycle logic.
func (p *Processor) HandleGenerateTask(ctx context.Context, t *asynq.Task) error {
	var msg queue.JobMessage
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	// Non-nil only when the store was unreachable; asynq retries then.
	return p.processRequest(ctx, msg)
}
