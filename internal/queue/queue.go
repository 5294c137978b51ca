// Package queue implements the enrichment job queue on Redis lists.
//
// Jobs wait in <prefix>:pending. Dequeue atomically moves one into
// <prefix>:processing, where it stays until Ack, Requeue or Nack removes it,
// so a crash never loses a job. Requeued jobs wait in the <prefix>:delayed
// sorted set, scored by the unix millisecond at which they become ready.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
)

// ErrMalformedJob is returned by Dequeue for a payload that cannot be
// decoded or validated. The payload has already been dropped.
var ErrMalformedJob = errors.New("malformed job payload")

// promoteScript moves up to ARGV[2] delayed members whose score is at most
// ARGV[1] onto the tail of the pending list.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, member in ipairs(due) do
	redis.call('ZREM', KEYS[1], member)
	redis.call('LPUSH', KEYS[2], member)
end
return #due
`)

// Delivery is a dequeued job together with the exact payload that has to be
// removed from the processing list.
type Delivery struct {
	Job     domain.EnrichmentJob
	payload string
}

// Stats reports queue depths.
type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Delayed    int64 `json:"delayed"`
}

// Total is the number of jobs not yet acknowledged.
func (s Stats) Total() int64 {
	return s.Pending + s.Processing + s.Delayed
}

// Queue is a durable at-least-once job queue.
type Queue struct {
	client *redis.Client
	cfg    Config
	now    func() time.Time

	pendingKey    string
	processingKey string
	delayedKey    string
}

// New creates a queue on client.
func New(client *redis.Client, cfg Config) *Queue {
	cfg.SetDefaults()
	return &Queue{
		client:        client,
		cfg:           cfg,
		now:           time.Now,
		pendingKey:    cfg.KeyPrefix + ":pending",
		processingKey: cfg.KeyPrefix + ":processing",
		delayedKey:    cfg.KeyPrefix + ":delayed",
	}
}

// Enqueue appends job to the pending list. It gives up after EnqueueTimeout;
// callers on the write path log the error and carry on.
func (q *Queue) Enqueue(ctx context.Context, job domain.EnrichmentJob) error {
	if err := job.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("serialize job: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, q.cfg.EnqueueTimeout)
	defer cancel()

	if pushErr := q.client.LPush(ctx, q.pendingKey, payload).Err(); pushErr != nil {
		return fmt.Errorf("enqueue job for link %s: %w", job.LinkID, pushErr)
	}
	return nil
}

// Dequeue waits up to timeout for a job. It returns nil, nil when the queue
// stayed empty. A timeout of zero or less polls without blocking. Redis
// rounds blocking timeouts below one second up to one second.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	if _, err := q.promoteDue(ctx); err != nil {
		return nil, err
	}

	var (
		payload string
		err     error
	)
	if timeout <= 0 {
		payload, err = q.client.LMove(ctx, q.pendingKey, q.processingKey, "RIGHT", "LEFT").Result()
	} else {
		payload, err = q.client.BLMove(ctx, q.pendingKey, q.processingKey, "RIGHT", "LEFT", timeout).Result()
	}
	if errors.Is(err, redis.Nil) {
		return nil, nil //nolint:nilnil // empty poll is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}

	var job domain.EnrichmentJob
	decodeErr := json.Unmarshal([]byte(payload), &job)
	if decodeErr == nil {
		decodeErr = job.Validate()
	}
	if decodeErr != nil {
		if remErr := q.client.LRem(ctx, q.processingKey, 1, payload).Err(); remErr != nil {
			return nil, fmt.Errorf("drop malformed payload: %w", remErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedJob, decodeErr)
	}

	return &Delivery{Job: job, payload: payload}, nil
}

// Ack removes a delivery from the processing list after terminal handling.
func (q *Queue) Ack(ctx context.Context, d *Delivery) error {
	if err := q.client.LRem(ctx, q.processingKey, 1, d.payload).Err(); err != nil {
		return fmt.Errorf("ack job for link %s: %w", d.Job.LinkID, err)
	}
	return nil
}

// Requeue charges the job one attempt and schedules it backoff from now.
// Removal from processing and the reinsert happen in one transaction.
func (q *Queue) Requeue(ctx context.Context, d *Delivery, backoff time.Duration) error {
	next := d.Job.NextAttempt()
	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("serialize job: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processingKey, 1, d.payload)
		if backoff <= 0 {
			pipe.LPush(ctx, q.pendingKey, payload)
			return nil
		}
		readyAt := q.now().Add(backoff).UnixMilli()
		pipe.ZAdd(ctx, q.delayedKey, redis.Z{Score: float64(readyAt), Member: payload})
		return nil
	})
	if err != nil {
		return fmt.Errorf("requeue job for link %s: %w", d.Job.LinkID, err)
	}
	return nil
}

// Nack returns an interrupted job to the front of the pending list
// unchanged. The attempt is not charged.
func (q *Queue) Nack(ctx context.Context, d *Delivery) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processingKey, 1, d.payload)
		pipe.RPush(ctx, q.pendingKey, d.payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("nack job for link %s: %w", d.Job.LinkID, err)
	}
	return nil
}

// Recover moves every processing entry back to pending and returns how many
// moved. Only call it while no worker of any instance is consuming.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.LMove(ctx, q.processingKey, q.pendingKey, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("recover processing jobs: %w", err)
		}
		moved++
	}
}

// Stats returns the current queue depths.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.client.Pipeline()
	pending := pipe.LLen(ctx, q.pendingKey)
	processing := pipe.LLen(ctx, q.processingKey)
	delayed := pipe.ZCard(ctx, q.delayedKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}

	return Stats{
		Pending:    pending.Val(),
		Processing: processing.Val(),
		Delayed:    delayed.Val(),
	}, nil
}

// Ping checks the Redis connection.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *Queue) promoteDue(ctx context.Context) (int64, error) {
	n, err := promoteScript.Run(ctx, q.client,
		[]string{q.delayedKey, q.pendingKey},
		q.now().UnixMilli(), q.cfg.PromoteBatch,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("promote delayed jobs: %w", err)
	}
	return n, nil
}
