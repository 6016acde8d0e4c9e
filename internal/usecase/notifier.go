package usecase

import (
	"context"
	"time"

	"github.com/iho/escrowledger/internal/domain"
)

// OutboxNotifier queues one transfer.update event per affected account in the
// outbox. The outbox publisher delivers them after commit.
type OutboxNotifier struct {
	outboxRepo OutboxRepository
	idGen      IDGenerator
	now        func() time.Time
}

// NewOutboxNotifier creates a new OutboxNotifier.
func NewOutboxNotifier(outboxRepo OutboxRepository, idGen IDGenerator) *OutboxNotifier {
	return &OutboxNotifier{
		outboxRepo: outboxRepo,
		idGen:      idGen,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// QueueNotifications writes the events inside tx.
func (n *OutboxNotifier) QueueNotifications(ctx context.Context, tx Transaction, transfer *domain.Transfer) error {
	events, err := domain.NewTransferUpdateEvents(transfer, n.idGen.Generate, n.now())
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := n.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}
	}

	return nil
}
