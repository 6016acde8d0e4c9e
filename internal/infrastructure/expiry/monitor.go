// Package expiry rejects transfers whose deadline passes before they are
// finalized.
package expiry

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/iho/escrowledger/internal/domain"
	"github.com/iho/escrowledger/internal/infrastructure/logger"
)

// DefaultSweepInterval is how often Run looks for expired transfers.
const DefaultSweepInterval = time.Second

// Expirer rejects one transfer if it is still unfinalized and past its deadline.
type Expirer interface {
	ExpireTransfer(ctx context.Context, transferID string) error
}

// Monitor keeps the deadlines of unfinalized transfers in memory.
type Monitor struct {
	mu       sync.Mutex
	queue    deadlineQueue
	index    map[string]*deadline
	now      func() time.Time
	logger   zerolog.Logger
	interval time.Duration
	watched  prometheus.Gauge
}

// Config for Monitor.
type Config struct {
	Logger   *zerolog.Logger
	Interval time.Duration
	Clock    func() time.Time
	Watched  prometheus.Gauge // optional, tracks Len
}

// NewMonitor creates an empty monitor.
func NewMonitor(cfg Config) *Monitor {
	m := &Monitor{
		index:    make(map[string]*deadline),
		now:      cfg.Clock,
		logger:   logger.Component(cfg.Logger, "expiry"),
		interval: cfg.Interval,
		watched:  cfg.Watched,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.interval == 0 {
		m.interval = DefaultSweepInterval
	}
	return m
}

// Watch schedules the transfer for expiry. Transfers without a deadline and
// finalized transfers are ignored. Watching again moves the deadline.
func (m *Monitor) Watch(transfer *domain.Transfer) {
	if transfer.ExpiresAt == nil || transfer.IsFinalized() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.index[transfer.ID]; ok {
		d.at = *transfer.ExpiresAt
		heap.Fix(&m.queue, d.pos)
		return
	}

	d := &deadline{id: transfer.ID, at: *transfer.ExpiresAt}
	heap.Push(&m.queue, d)
	m.index[transfer.ID] = d
	m.report()
}

// Unwatch cancels a scheduled expiry.
func (m *Monitor) Unwatch(transferID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.index[transferID]; ok {
		heap.Remove(&m.queue, d.pos)
		delete(m.index, transferID)
		m.report()
	}
}

// ValidateNotExpired fails if the transfer's deadline has already passed.
func (m *Monitor) ValidateNotExpired(transfer *domain.Transfer) error {
	if transfer.IsExpiredAt(m.now()) {
		return fmt.Errorf("%w: cannot modify transfer after expires_at date", domain.ErrUnprocessableEntity)
	}
	return nil
}

// Len returns the number of watched transfers.
func (m *Monitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

// ProcessExpiredTransfers expires every watched transfer whose deadline has
// passed. A transfer whose expiry fails stays watched and is retried on the
// next sweep.
func (m *Monitor) ProcessExpiredTransfers(ctx context.Context, expirer Expirer) (int, error) {
	due := m.popDue(m.now())

	var (
		processed int
		firstErr  error
	)

	for _, d := range due {
		if err := expirer.ExpireTransfer(ctx, d.id); err != nil {
			m.logger.Error().Err(err).Str("transfer_id", d.id).Msg("failed to expire transfer")
			m.requeue(d)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		processed++
	}

	if processed > 0 {
		m.logger.Info().Int("count", processed).Msg("expired transfers processed")
	}

	return processed, firstErr
}

// Run sweeps for expired transfers until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, expirer Expirer) error {
	m.logger.Info().Dur("interval", m.interval).Msg("expiry monitor started")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("expiry monitor shutting down")
			return ctx.Err()
		case <-ticker.C:
			_, _ = m.ProcessExpiredTransfers(ctx, expirer)
		}
	}
}

func (m *Monitor) popDue(now time.Time) []*deadline {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*deadline
	for m.queue.Len() > 0 && !now.Before(m.queue[0].at) {
		d := heap.Pop(&m.queue).(*deadline)
		delete(m.index, d.id)
		due = append(due, d)
	}
	m.report()
	return due
}

func (m *Monitor) requeue(d *deadline) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[d.id]; ok {
		return
	}
	heap.Push(&m.queue, d)
	m.index[d.id] = d
	m.report()
}

// report publishes the queue length; m.mu must be held.
func (m *Monitor) report() {
	if m.watched != nil {
		m.watched.Set(float64(m.queue.Len()))
	}
}

type deadline struct {
	id  string
	at  time.Time
	pos int
}

// deadlineQueue is a min-heap ordered by deadline.
type deadlineQueue []*deadline

func (q deadlineQueue) Len() int { return len(q) }

func (q deadlineQueue) Less(i, j int) bool { return q[i].at.Before(q[j].at) }

func (q deadlineQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].pos = i
	q[j].pos = j
}

func (q *deadlineQueue) Push(x any) {
	d := x.(*deadline)
	d.pos = len(*q)
	*q = append(*q, d)
}

func (q *deadlineQueue) Pop() any {
	old := *q
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return d
}
