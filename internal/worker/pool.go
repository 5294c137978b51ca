// Package worker runs the enrichment worker pool.
//
// A Pool owns N workers that pop jobs from the queue, hand them to a
// JobHandler, and apply the returned Decision to the queue. Nothing here is
// package-level state, so several pools can coexist in one process.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/queue"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/telemetry"
)

// ErrAlreadyStarted is returned by Start on a pool that was started before.
// Pools are single-use.
var ErrAlreadyStarted = errors.New("worker pool already started")

// dequeueErrorDelay spaces out retries while the queue backend is failing.
const dequeueErrorDelay = time.Second

// JobQueue is the queue as seen by the pool.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Delivery, error)
	Ack(ctx context.Context, d *queue.Delivery) error
	Requeue(ctx context.Context, d *queue.Delivery, backoff time.Duration) error
	Nack(ctx context.Context, d *queue.Delivery) error
	Stats(ctx context.Context) (queue.Stats, error)
}

// JobHandler decides the fate of one job.
type JobHandler interface {
	Handle(ctx context.Context, job domain.EnrichmentJob) Decision
}

// Pool is a fixed set of workers sharing one queue.
type Pool struct {
	id        string
	queue     JobQueue
	handler   JobHandler
	cfg       Config
	logger    infralogger.Logger
	telemetry *telemetry.Provider

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	runCtx   context.Context //nolint:containedctx // owned by the pool, cancelled by Stop
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewPool creates a pool. tp may be nil.
func NewPool(q JobQueue, h JobHandler, cfg Config, log infralogger.Logger, tp *telemetry.Provider) *Pool {
	id := uuid.NewString()
	return &Pool{
		id:        id,
		queue:     q,
		handler:   h,
		cfg:       cfg.WithDefaults(),
		logger:    log.With(infralogger.String("pool_id", id)),
		telemetry: tp,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the workers and, when telemetry is set, the stats
// reporter. Cancelling ctx has the same effect as the grace period of Stop
// running out.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true
	p.runCtx, p.cancel = context.WithCancel(ctx)

	for i := range p.cfg.Count {
		p.wg.Add(1)
		go p.run(i)
	}

	if p.telemetry != nil && p.cfg.StatsInterval > 0 {
		p.wg.Add(1)
		go p.reportStats()
	}

	p.logger.Info("Worker pool started",
		infralogger.Int("workers", p.cfg.Count),
		infralogger.Int("max_attempts", p.cfg.MaxAttempts),
		infralogger.Duration("job_timeout", p.cfg.JobTimeout),
	)
	return nil
}

// Stop stops new dequeues, waits up to ShutdownGrace for in-flight jobs,
// then cancels them. It returns once every goroutine has exited, or with
// ctx's error if ctx ends first.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return nil
	}

	p.stopOnce.Do(func() { close(p.stopCh) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	grace := time.NewTimer(p.cfg.ShutdownGrace)
	defer grace.Stop()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("Worker pool stopped")
		return nil
	case <-grace.C:
		p.logger.Warn("Shutdown grace elapsed, cancelling in-flight jobs",
			infralogger.Duration("grace", p.cfg.ShutdownGrace))
	case <-ctx.Done():
	}

	p.cancel()

	select {
	case <-done:
		p.logger.Info("Worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) stopping() bool {
	select {
	case <-p.stopCh:
		return true
	case <-p.runCtx.Done():
		return true
	default:
		return false
	}
}

func (p *Pool) run(workerID int) {
	defer p.wg.Done()

	log := p.logger.With(infralogger.Int("worker_id", workerID))
	log.Debug("Worker started")
	defer log.Debug("Worker stopped")

	for !p.stopping() {
		d, err := p.queue.Dequeue(p.runCtx, p.cfg.PollTimeout)
		if err != nil {
			if p.runCtx.Err() != nil {
				return
			}
			if errors.Is(err, queue.ErrMalformedJob) {
				log.Warn("Dropped malformed job", infralogger.Error(err))
				continue
			}
			log.Error("Dequeue failed", infralogger.Error(err))
			p.pause(dequeueErrorDelay)
			continue
		}
		if d == nil {
			continue
		}

		if p.stopping() {
			p.settle(log, d, Decision{Action: ActionNack, Outcome: telemetry.OutcomeAbandoned})
			return
		}

		p.process(log, d)
	}
}

func (p *Pool) pause(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-p.stopCh:
	case <-p.runCtx.Done():
	}
}

func (p *Pool) process(log infralogger.Logger, d *queue.Delivery) {
	done := p.telemetry.WorkerBusy()
	defer done()

	start := time.Now()
	jobCtx, cancel := context.WithTimeout(p.runCtx, p.cfg.JobTimeout)
	defer cancel()

	decision := p.handle(jobCtx, log, d.Job)
	p.settle(log, d, decision)
	p.telemetry.RecordJob(decision.Outcome, decision.Provider, time.Since(start))
}

// handle isolates the handler: a panic acks the job so it cannot loop.
func (p *Pool) handle(ctx context.Context, log infralogger.Logger, job domain.EnrichmentJob) (decision Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Job handler panicked, dropping job",
				infralogger.String("link_id", job.LinkID),
				infralogger.String("url", job.URL),
				infralogger.Any("panic", rec),
				infralogger.Stack("stack"),
			)
			decision = Decision{Action: ActionAck, Outcome: telemetry.OutcomeDropped}
		}
	}()
	return p.handler.Handle(ctx, job)
}

// settle applies decision to the queue. It runs detached from the pool
// context so a job cancelled by shutdown can still be handed back.
func (p *Pool) settle(log infralogger.Logger, d *queue.Delivery, decision Decision) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(p.runCtx), bookkeepingTimeout)
	defer cancel()

	var err error
	switch decision.Action {
	case ActionRequeue:
		err = p.queue.Requeue(ctx, d, decision.Backoff)
	case ActionNack:
		err = p.queue.Nack(ctx, d)
	default:
		err = p.queue.Ack(ctx, d)
	}
	if err != nil {
		log.Error("Failed to settle job",
			infralogger.String("link_id", d.Job.LinkID),
			infralogger.String("action", decision.Action.String()),
			infralogger.Error(err),
		)
	}
}

func (p *Pool) reportStats() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.StatsInterval)
	defer ticker.Stop()

	p.refreshStats()
	for {
		select {
		case <-ticker.C:
			p.refreshStats()
		case <-p.stopCh:
			return
		case <-p.runCtx.Done():
			return
		}
	}
}

func (p *Pool) refreshStats() {
	stats, err := p.queue.Stats(p.runCtx)
	if err != nil {
		if p.runCtx.Err() == nil {
			p.logger.Warn("Failed to read queue stats", infralogger.Error(err))
		}
		return
	}
	p.telemetry.SetQueueDepth(stats.Pending, stats.Processing, stats.Delayed)
}
