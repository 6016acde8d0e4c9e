package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/escrowledger/internal/domain"
	"github.com/iho/escrowledger/internal/usecase"
)

const (
	getTransfer = `SELECT data FROM transfers WHERE id = $1`

	getTransferForUpdate = `SELECT data FROM transfers WHERE id = $1 FOR UPDATE`

	insertTransfer = `INSERT INTO transfers (id, state, expires_at, data, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)`

	upsertTransfer = `INSERT INTO transfers (id, state, expires_at, data, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (id) DO UPDATE SET
	state = EXCLUDED.state,
	expires_at = EXCLUDED.expires_at,
	data = EXCLUDED.data,
	updated_at = EXCLUDED.updated_at`

	listUnfinalizedWithExpiry = `SELECT data FROM transfers
WHERE state NOT IN ('executed', 'rejected') AND expires_at IS NOT NULL
ORDER BY expires_at`
)

// TransferRepository implements usecase.TransferRepository. The transfer
// document is stored as JSONB next to the columns it is queried by.
type TransferRepository struct {
	db  querier
	now func() time.Time
}

// NewTransferRepository creates a new TransferRepository.
func NewTransferRepository(pool *pgxpool.Pool) *TransferRepository {
	return newTransferRepository(pool)
}

func newTransferRepository(db querier) *TransferRepository {
	return &TransferRepository{db: db, now: time.Now}
}

// GetByID retrieves a transfer by ID.
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*domain.Transfer, error) {
	return scanTransfer(r.db.QueryRow(ctx, getTransfer, id))
}

// GetByIDForUpdate retrieves a transfer by ID with a FOR UPDATE lock.
func (r *TransferRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transfer, error) {
	q, err := mustWithin(tx)
	if err != nil {
		return nil, err
	}

	return scanTransfer(q.QueryRow(ctx, getTransferForUpdate, id))
}

// Create inserts a new transfer. A second transaction creating the same ID
// fails with a unique violation once the first one commits.
func (r *TransferRepository) Create(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	return r.write(ctx, tx, insertTransfer, transfer)
}

// Upsert inserts or replaces a transfer.
func (r *TransferRepository) Upsert(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	return r.write(ctx, tx, upsertTransfer, transfer)
}

func (r *TransferRepository) write(ctx context.Context, tx usecase.Transaction, query string, transfer *domain.Transfer) error {
	q, err := mustWithin(tx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(transfer)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, query,
		transfer.ID,
		string(transfer.State),
		transfer.ExpiresAt,
		data,
		r.now().UTC(),
	)

	return err
}

// ListUnfinalizedWithExpiry returns transfers still waiting for a deadline,
// earliest first.
func (r *TransferRepository) ListUnfinalizedWithExpiry(ctx context.Context) ([]*domain.Transfer, error) {
	rows, err := r.db.Query(ctx, listUnfinalizedWithExpiry)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []*domain.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}

	return transfers, rows.Err()
}

func scanTransfer(row pgx.Row) (*domain.Transfer, error) {
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransferNotFound
		}
		return nil, err
	}

	var t domain.Transfer
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}

	return &t, nil
}
