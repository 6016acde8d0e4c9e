package usecase

import (
	"context"

	"github.com/iho/escrowledger/internal/domain"
)

// EntryUseCase handles entry business logic.
type EntryUseCase struct {
	entryRepo EntryRepository
}

// NewEntryUseCase creates a new EntryUseCase.
func NewEntryUseCase(entryRepo EntryRepository) *EntryUseCase {
	return &EntryUseCase{
		entryRepo: entryRepo,
	}
}

// GetEntriesByAccountInput represents input for listing entries.
type GetEntriesByAccountInput struct {
	AccountName string
	Limit       int
	Offset      int
}

// GetEntriesByAccount lists entries for an account, newest first.
func (uc *EntryUseCase) GetEntriesByAccount(ctx context.Context, input GetEntriesByAccountInput) ([]*domain.Entry, error) {
	if err := domain.ValidateAccountName(input.AccountName); err != nil {
		return nil, err
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	return uc.entryRepo.GetByAccount(ctx, input.AccountName, limit, offset)
}

// GetEntriesByTransfer lists entries for a transfer.
func (uc *EntryUseCase) GetEntriesByTransfer(ctx context.Context, transferID string) ([]*domain.Entry, error) {
	return uc.entryRepo.GetByTransfer(ctx, transferID)
}
