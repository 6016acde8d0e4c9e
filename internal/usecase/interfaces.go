package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/escrowledger/internal/domain"
)

// AccountRepository defines data access for accounts. Every call is scoped to
// the caller's transaction.
type AccountRepository interface {
	FindByName(ctx context.Context, tx Transaction, name string) (*domain.Account, error)
	// FindByNamesForUpdate locks the named accounts in name order. Missing
	// names are omitted from the result.
	FindByNamesForUpdate(ctx context.Context, tx Transaction, names []string) ([]*domain.Account, error)
	Save(ctx context.Context, tx Transaction, account *domain.Account) error
}

// TransferRepository defines data access for transfers.
type TransferRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Transfer, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Transfer, error)
	// Create inserts a transfer that must not exist yet. It runs before any
	// entry referencing the transfer is written.
	Create(ctx context.Context, tx Transaction, transfer *domain.Transfer) error
	Upsert(ctx context.Context, tx Transaction, transfer *domain.Transfer) error
	ListUnfinalizedWithExpiry(ctx context.Context) ([]*domain.Transfer, error)
}

// FulfillmentRepository defines data access for condition fulfillments.
type FulfillmentRepository interface {
	// GetByTransfer reads inside tx when it is non-nil.
	GetByTransfer(ctx context.Context, tx Transaction, transferID string) (*domain.FulfillmentRecord, error)
	Upsert(ctx context.Context, tx Transaction, record *domain.FulfillmentRecord) error
}

// EntryRepository defines data access for entries.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	GetByTransfer(ctx context.Context, transferID string) ([]*domain.Entry, error)
	GetByAccount(ctx context.Context, accountName string, limit, offset int) ([]*domain.Entry, error)
}

// LedgerRepository defines data access for ledger-wide checks.
type LedgerRepository interface {
	// SumEntries returns the total of every entry amount.
	SumEntries(ctx context.Context) (decimal.Decimal, error)
	// FindBalanceMismatches returns the accounts whose balance differs from
	// the resulting balance of their latest entry.
	FindBalanceMismatches(ctx context.Context) ([]domain.BalanceMismatch, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release removes a claim so a failed request can be retried.
	Release(ctx context.Context, key string) error
}

// ExpiryMonitor schedules expiry of transfers that carry a deadline.
type ExpiryMonitor interface {
	Watch(transfer *domain.Transfer)
	Unwatch(transferID string)
	ValidateNotExpired(transfer *domain.Transfer) error
}

// NotificationQueue enqueues change notifications in the caller's transaction.
type NotificationQueue interface {
	QueueNotifications(ctx context.Context, tx Transaction, transfer *domain.Transfer) error
}

// ConditionVerifier checks a fulfillment against a condition of the same type.
type ConditionVerifier interface {
	// Validate fails for a condition no fulfillment could be verified against.
	Validate(condition domain.Condition) error
	Verify(condition domain.Condition, fulfillment domain.Fulfillment) (bool, error)
}

// ReceiptSigner builds state receipts.
type ReceiptSigner interface {
	Receipt(receiptType, transferID string, state, conditionState domain.TransferState) (*domain.Receipt, error)
}

// Metrics receives state machine observations.
type Metrics interface {
	ObserveTransition(state domain.TransferState)
	ObserveFulfillment(branch string)
	ObserveError(err error)
}
