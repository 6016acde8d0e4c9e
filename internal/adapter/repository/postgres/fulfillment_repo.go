package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/escrowledger/internal/domain"
	"github.com/iho/escrowledger/internal/usecase"
)

const (
	getFulfillment = `SELECT transfer_id, data, created_at FROM fulfillments WHERE transfer_id = $1`

	upsertFulfillment = `INSERT INTO fulfillments (transfer_id, data, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (transfer_id) DO UPDATE SET data = EXCLUDED.data`
)

// FulfillmentRepository implements usecase.FulfillmentRepository.
type FulfillmentRepository struct {
	db querier
}

// NewFulfillmentRepository creates a new FulfillmentRepository.
func NewFulfillmentRepository(pool *pgxpool.Pool) *FulfillmentRepository {
	return &FulfillmentRepository{db: pool}
}

// GetByTransfer returns the fulfillment stored for a transfer.
func (r *FulfillmentRepository) GetByTransfer(ctx context.Context, tx usecase.Transaction, transferID string) (*domain.FulfillmentRecord, error) {
	q, err := within(tx, r.db)
	if err != nil {
		return nil, err
	}

	var (
		record domain.FulfillmentRecord
		data   []byte
	)

	err = q.QueryRow(ctx, getFulfillment, transferID).Scan(&record.TransferID, &data, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFulfillmentNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(data, &record.Fulfillment); err != nil {
		return nil, err
	}

	return &record, nil
}

// Upsert stores the fulfillment, replacing any previous one.
func (r *FulfillmentRepository) Upsert(ctx context.Context, tx usecase.Transaction, record *domain.FulfillmentRecord) error {
	q, err := mustWithin(tx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(record.Fulfillment)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, upsertFulfillment, record.TransferID, data, record.CreatedAt)

	return err
}
