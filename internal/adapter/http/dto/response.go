package dto

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/escrowledger/internal/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	ID      string               `json:"id"`
	Message string               `json:"message"`
	Account string               `json:"account,omitempty"`
	Diff    []domain.FieldChange `json:"diff,omitempty"`
}

// ErrorFromDomain describes err for the client.
func ErrorFromDomain(err error) ErrorResponse {
	resp := ErrorResponse{ID: errorID(err), Message: err.Error()}

	var insufficient *domain.InsufficientFundsError
	if errors.As(err, &insufficient) {
		resp.Account = insufficient.Account
	}

	var modification *domain.InvalidModificationError
	if errors.As(err, &modification) {
		resp.Diff = modification.Diff
	}

	if resp.ID == "InternalServerError" {
		resp.Message = "internal server error"
	}

	return resp
}

func errorID(err error) string {
	switch domain.Kind(err) {
	case domain.ErrNotFound:
		return "NotFoundError"
	case domain.ErrInvalidBody:
		return "InvalidBodyError"
	case domain.ErrInvalidModification:
		return "InvalidModificationError"
	case domain.ErrUnauthorized:
		return "UnauthorizedError"
	case domain.ErrInsufficientFunds:
		return "InsufficientFundsError"
	case domain.ErrUnmetCondition:
		return "UnmetConditionError"
	case domain.ErrUnprocessableEntity:
		return "UnprocessableEntityError"
	default:
		return "InternalServerError"
	}
}

// EntryResponse represents an entry in API responses.
type EntryResponse struct {
	ID               string          `json:"id"`
	Account          string          `json:"account"`
	TransferID       string          `json:"transfer_id"`
	Amount           decimal.Decimal `json:"amount"`
	PreviousBalance  decimal.Decimal `json:"previous_balance"`
	ResultingBalance decimal.Decimal `json:"resulting_balance"`
	CreatedAt        time.Time       `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:               e.ID,
		Account:          e.AccountName,
		TransferID:       e.TransferID,
		Amount:           e.Amount,
		PreviousBalance:  e.PreviousBalance,
		ResultingBalance: e.ResultingBalance,
		CreatedAt:        e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}
