package dto

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/escrowledger/internal/domain"
)

func TestErrorFromDomain(t *testing.T) {
	tests := []struct {
		name string
		err  error
		id   string
	}{
		{"not found", domain.ErrTransferNotFound, "NotFoundError"},
		{"invalid body", fmt.Errorf("%w: bad", domain.ErrInvalidBody), "InvalidBodyError"},
		{"unauthorized", domain.ErrUnauthorized, "UnauthorizedError"},
		{"unmet condition", domain.ErrUnmetCondition, "UnmetConditionError"},
		{"unprocessable", domain.ErrUnprocessableEntity, "UnprocessableEntityError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ErrorFromDomain(tt.err)
			assert.Equal(t, tt.id, resp.ID)
			assert.Equal(t, tt.err.Error(), resp.Message)
		})
	}
}

func TestErrorFromDomain_InsufficientFunds(t *testing.T) {
	resp := ErrorFromDomain(fmt.Errorf("debit: %w", &domain.InsufficientFundsError{Account: "alice"}))

	assert.Equal(t, "InsufficientFundsError", resp.ID)
	assert.Equal(t, "alice", resp.Account)
}

func TestErrorFromDomain_InvalidModificationCarriesDiff(t *testing.T) {
	diff := []domain.FieldChange{{Path: "State", Old: "proposed", New: "executed"}}
	resp := ErrorFromDomain(&domain.InvalidModificationError{Message: "transfer may not be modified", Diff: diff})

	assert.Equal(t, "InvalidModificationError", resp.ID)
	assert.Equal(t, diff, resp.Diff)
}

func TestErrorFromDomain_HidesInternalDetail(t *testing.T) {
	resp := ErrorFromDomain(errors.New("connection refused on 10.0.0.3"))

	assert.Equal(t, "InternalServerError", resp.ID)
	assert.Equal(t, "internal server error", resp.Message)
}

func TestEntriesFromDomain(t *testing.T) {
	created := time.Date(2015, 6, 16, 0, 0, 0, 0, time.UTC)
	entries := []*domain.Entry{{
		ID:               "e1",
		AccountName:      "bob",
		TransferID:       "t1",
		Amount:           decimal.NewFromInt(5),
		PreviousBalance:  decimal.Zero,
		ResultingBalance: decimal.NewFromInt(5),
		CreatedAt:        created,
	}}

	got := EntriesFromDomain(entries)

	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].Account)
	assert.Equal(t, "t1", got[0].TransferID)
	assert.Equal(t, created, got[0].CreatedAt)
	assert.Empty(t, EntriesFromDomain(nil))
}
