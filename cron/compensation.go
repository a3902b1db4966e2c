package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"time"

	"commonroom/config"
	"commonroom/services/booking"
	"commonroom/services/ledger"

	"github.com/hibiken/asynq"
)

const TypeRefundCompensate = "refund:compensate"

// CompensationClient enqueues compensating credits. It implements
// booking.Compensator.
type CompensationClient struct {
	client *asynq.Client
}

// NewCompensationClient builds the asynq producer over the queue Redis DB.
func NewCompensationClient() *CompensationClient {
	return &CompensationClient{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     config.AppConfig.RedisAddr,
			Password: config.AppConfig.RedisPassword,
			DB:       config.AppConfig.RedisQueueDB,
		}),
	}
}

// EnqueueCredit schedules the compensating credit for a payment that was
// captured without a booking. The task retries with asynq's backoff; the
// ledger's idempotency key keeps retries single-shot.
func (c *CompensationClient) EnqueueCredit(ctx context.Context, task booking.CompensationTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal compensation task: %w", err)
	}
	_, err = c.client.EnqueueContext(ctx,
		asynq.NewTask(TypeRefundCompensate, payload),
		asynq.MaxRetry(10),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue compensation task: %w", err)
	}
	return nil
}

// Close releases the producer connection.
func (c *CompensationClient) Close() error {
	return c.client.Close()
}

// InitCompensationWorker runs the async worker in background.
func InitCompensationWorker(ledgerSvc ledger.Service) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRefundCompensate, handleCompensationTask(ledgerSvc))

	go func() {
		log.Println("[CompensationWorker] starting async worker...")
		if err := srv.Run(mux); err != nil {
			log.Fatalf("[CompensationWorker] failed to start worker: %v", err)
		}
	}()
}

func handleCompensationTask(ledgerSvc ledger.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var task booking.CompensationTask
		if err := json.Unmarshal(t.Payload(), &task); err != nil {
			return fmt.Errorf("unreadable compensation payload: %v: %w", err, asynq.SkipRetry)
		}
		amount, ok := new(big.Int).SetString(task.Amount, 10)
		if !ok || amount.Sign() <= 0 {
			return fmt.Errorf("invalid compensation amount %q: %w", task.Amount, asynq.SkipRetry)
		}

		idemKey := "compensate:" + task.PaymentRef
		txRef, err := ledgerSvc.Credit(ctx, task.Network, task.Token, task.Address, amount, idemKey)
		if err != nil {
			log.Printf("[CompensationWorker] credit failed for payment %s, will retry: %v", task.PaymentRef, err)
			return err
		}
		log.Printf("[CompensationWorker] compensated payment %s with credit %s (%s %s to %s), reason: %s",
			task.PaymentRef, txRef, task.Amount, task.Token, task.Address, task.Reason)
		return nil
	}
}
