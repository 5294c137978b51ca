package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/extractor"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/queue"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/worker"
)

var errTimeout = fmt.Errorf("%w: dial tcp: i/o timeout", domain.ErrTransient)

// memQueue is an in-memory JobQueue. Requeued jobs become ready at once.
type memQueue struct {
	mu         sync.Mutex
	pending    []domain.EnrichmentJob
	processing int
	acked      []domain.EnrichmentJob
	backoffs   []time.Duration
	nacked     []domain.EnrichmentJob
	statsErr   error
}

func newMemQueue(jobs ...domain.EnrichmentJob) *memQueue {
	return &memQueue{pending: jobs}
}

func (q *memQueue) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Delivery, error) {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			job := q.pending[0]
			q.pending = q.pending[1:]
			q.processing++
			q.mu.Unlock()
			return &queue.Delivery{Job: job}, nil
		}
		q.mu.Unlock()

		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func (q *memQueue) Ack(_ context.Context, d *queue.Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processing--
	q.acked = append(q.acked, d.Job)
	return nil
}

func (q *memQueue) Requeue(_ context.Context, d *queue.Delivery, backoff time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processing--
	q.backoffs = append(q.backoffs, backoff)
	q.pending = append(q.pending, d.Job.NextAttempt())
	return nil
}

func (q *memQueue) Nack(_ context.Context, d *queue.Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processing--
	q.nacked = append(q.nacked, d.Job)
	q.pending = append([]domain.EnrichmentJob{d.Job}, q.pending...)
	return nil
}

func (q *memQueue) Stats(context.Context) (queue.Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.statsErr != nil {
		return queue.Stats{}, q.statsErr
	}
	return queue.Stats{Pending: int64(len(q.pending)), Processing: int64(q.processing)}, nil
}

func (q *memQueue) ackedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.acked)
}

func (q *memQueue) snapshot() (pending []domain.EnrichmentJob, processing int, backoffs []time.Duration, nacked int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.EnrichmentJob(nil), q.pending...), q.processing,
		append([]time.Duration(nil), q.backoffs...), len(q.nacked)
}

// memStore mirrors the repository's SQL: rows that do not exist are
// skipped, and an empty fallback never replaces existing metadata.
type memStore struct {
	mu         sync.Mutex
	rows       map[string]*domain.Metadata
	writes     map[string][]*domain.Metadata
	persistErr error
	getErr     error
	persists   int
}

func newMemStore(linkIDs ...string) *memStore {
	s := &memStore{
		rows:   make(map[string]*domain.Metadata),
		writes: make(map[string][]*domain.Metadata),
	}
	for _, id := range linkIDs {
		s.rows[id] = nil
	}
	return s
}

func (s *memStore) GetMetadata(_ context.Context, linkID string) (*domain.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	md, ok := s.rows[linkID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return md, nil
}

func (s *memStore) Persist(_ context.Context, linkID string, md *domain.Metadata) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persists++
	if s.persistErr != nil {
		return false, s.persistErr
	}
	if md == nil {
		return false, domain.ErrNilMetadata
	}
	current, ok := s.rows[linkID]
	if !ok {
		return false, nil
	}
	if md.IsEmpty() && current != nil {
		return false, nil
	}
	s.rows[linkID] = md
	s.writes[linkID] = append(s.writes[linkID], md)
	return true, nil
}

func (s *memStore) set(linkID string, md *domain.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[linkID] = md
}

func (s *memStore) delete(linkID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, linkID)
}

func (s *memStore) metadata(linkID string) (*domain.Metadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, ok := s.rows[linkID]
	return md, ok
}

func (s *memStore) writesFor(linkID string) []*domain.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Metadata(nil), s.writes[linkID]...)
}

func (s *memStore) persistCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persists
}

type resolverFunc func(ctx context.Context, rawURL string) (extractor.Result, error)

func (f resolverFunc) Resolve(ctx context.Context, rawURL string) (extractor.Result, error) {
	return f(ctx, rawURL)
}

// countingResolver returns the same result every time and counts calls.
type countingResolver struct {
	mu    sync.Mutex
	calls int
	res   extractor.Result
	err   error
}

func (r *countingResolver) Resolve(context.Context, string) (extractor.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.res, r.err
}

func (r *countingResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type published struct {
	contentID string
	linkID    string
	md        *domain.Metadata
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, contentID, linkID string, md *domain.Metadata) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{contentID: contentID, linkID: linkID, md: md})
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// panicHandler panics for one link and acks everything else.
type panicHandler struct {
	panicFor string
}

func (h panicHandler) Handle(_ context.Context, job domain.EnrichmentJob) worker.Decision {
	if job.LinkID == h.panicFor {
		panic(errors.New("nil map write"))
	}
	return worker.Decision{Action: worker.ActionAck}
}
