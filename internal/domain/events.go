package domain

import (
	"encoding/json"
	"time"
)

// EventTypeTransferUpdate is sent to every account a transfer touches each
// time the transfer changes.
const EventTypeTransferUpdate = "transfer.update"

// AggregateTypeAccount marks events addressed to an account.
const AggregateTypeAccount = "account"

// OutboxEvent is a notification waiting to be delivered. AggregateID is the
// recipient account.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// NewTransferUpdateEvents builds one transfer.update event per affected
// account. newID is called once per event.
func NewTransferUpdateEvents(transfer *Transfer, newID func() string, at time.Time) ([]*OutboxEvent, error) {
	resource, err := resourceOf(transfer)
	if err != nil {
		return nil, err
	}

	accounts := transfer.AffectedAccounts()
	events := make([]*OutboxEvent, 0, len(accounts))
	for _, account := range accounts {
		events = append(events, &OutboxEvent{
			ID:            newID(),
			AggregateID:   account,
			AggregateType: AggregateTypeAccount,
			EventType:     EventTypeTransferUpdate,
			Payload: map[string]any{
				"type":     EventTypeTransferUpdate,
				"resource": resource,
			},
			CreatedAt: at,
		})
	}
	return events, nil
}

// resourceOf renders the transfer in its wire form as a generic map so the
// event payload can be stored as JSONB.
func resourceOf(transfer *Transfer) (map[string]any, error) {
	data, err := json.Marshal(transfer)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
