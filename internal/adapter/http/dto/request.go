package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iho/escrowledger/internal/domain"
	"github.com/iho/escrowledger/internal/usecase"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// ParseTransfer decodes a transfer submitted to /transfers/{id}. The body id
// may be omitted, the bare id, or the transfer URI under baseURI; anything
// else must match the path.
func ParseTransfer(body []byte, pathID, baseURI string) (*domain.Transfer, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidBody, err)
	}
	if _, ok := fields["type"]; ok {
		return nil, fmt.Errorf("%w: transfers do not accept a type field", domain.ErrInvalidBody)
	}

	var transfer domain.Transfer
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&transfer); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidBody, err)
	}

	id := strings.TrimPrefix(transfer.ID, strings.TrimSuffix(baseURI, "/")+"/transfers/")
	switch {
	case transfer.ID == "":
		transfer.ID = pathID
	case id != pathID:
		return nil, fmt.Errorf("%w: transfer id does not match the URL", domain.ErrInvalidBody)
	default:
		transfer.ID = id
	}

	return &transfer, nil
}

// ParseFulfillment decodes a condition fulfillment.
func ParseFulfillment(body []byte) (domain.Fulfillment, error) {
	var f domain.Fulfillment
	if err := json.Unmarshal(body, &f); err != nil {
		if domain.Kind(err) != nil {
			return f, err
		}
		return f, fmt.Errorf("%w: %v", domain.ErrInvalidBody, err)
	}
	return f, nil
}

// PaginationRequest represents pagination parameters.
type PaginationRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// EntriesByAccountInput converts to use case input.
func (p PaginationRequest) EntriesByAccountInput(account string) usecase.GetEntriesByAccountInput {
	return usecase.GetEntriesByAccountInput{
		AccountName: account,
		Limit:       p.Limit,
		Offset:      p.Offset,
	}
}
