package expiry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/iho/escrowledger/internal/domain"
)

// TaskTypeExpireTransfer is the asynq task type for transfer expiry.
const TaskTypeExpireTransfer = "transfer:expire"

// DefaultQueue is the asynq queue expiry tasks are placed on.
const DefaultQueue = "transfer_expiry"

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type taskDeleter interface {
	DeleteTask(queue, id string) error
}

// Scheduler hands expiry deadlines to asynq, so that any worker process can
// expire a transfer and deadlines survive restarts.
type Scheduler struct {
	*Monitor
	client    enqueuer
	inspector taskDeleter
	queue     string
	logger    zerolog.Logger
}

// NewScheduler creates a Scheduler backed by Redis.
func NewScheduler(opt asynq.RedisConnOpt, queue string, monitor *Monitor) *Scheduler {
	return newScheduler(asynq.NewClient(opt), asynq.NewInspector(opt), queue, monitor)
}

func newScheduler(client enqueuer, inspector taskDeleter, queue string, monitor *Monitor) *Scheduler {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Scheduler{
		Monitor:   monitor,
		client:    client,
		inspector: inspector,
		queue:     queue,
		logger:    monitor.logger,
	}
}

// Watch enqueues an expiry task due at the transfer's deadline. The task id is
// the transfer id, so watching twice does not duplicate it.
func (s *Scheduler) Watch(transfer *domain.Transfer) {
	if transfer.ExpiresAt == nil || transfer.IsFinalized() {
		return
	}

	payload, err := json.Marshal(transfer.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("transfer_id", transfer.ID).Msg("failed to encode expiry task")
		return
	}

	task := asynq.NewTask(TaskTypeExpireTransfer, payload)

	_, err = s.client.EnqueueContext(context.Background(), task,
		asynq.TaskID(transfer.ID),
		asynq.Queue(s.queue),
		asynq.ProcessAt(*transfer.ExpiresAt),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		s.logger.Error().Err(err).Str("transfer_id", transfer.ID).Msg("failed to enqueue expiry task")
	}
}

// Unwatch deletes the pending expiry task.
func (s *Scheduler) Unwatch(transferID string) {
	err := s.inspector.DeleteTask(s.queue, transferID)
	if err != nil && !errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
		s.logger.Warn().Err(err).Str("transfer_id", transferID).Msg("failed to delete expiry task")
	}
}

// NewTaskHandler returns the asynq handler that expires transfers.
func NewTaskHandler(expirer Expirer) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var transferID string
		if err := json.Unmarshal(task.Payload(), &transferID); err != nil {
			return fmt.Errorf("decode expiry task: %v: %w", err, asynq.SkipRetry)
		}

		err := expirer.ExpireTransfer(ctx, transferID)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("expire transfer %s: %v: %w", transferID, err, asynq.SkipRetry)
		}

		return err
	}
}

// NewWorker builds an asynq server that processes expiry tasks.
func NewWorker(opt asynq.RedisConnOpt, queue string, expirer Expirer) (*asynq.Server, *asynq.ServeMux) {
	if queue == "" {
		queue = DefaultQueue
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{queue: 1},
	})

	mux := asynq.NewServeMux()
	mux.Handle(TaskTypeExpireTransfer, NewTaskHandler(expirer))

	return srv, mux
}
