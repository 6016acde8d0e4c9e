package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransferUpdateEvents(t *testing.T) {
	tr := newTestTransfer()
	tr.State = TransferStatePrepared
	at := time.Date(2015, 6, 16, 0, 0, 0, 0, time.UTC)

	n := 0
	events, err := NewTransferUpdateEvents(tr, func() string {
		n++
		return fmt.Sprintf("evt-%d", n)
	}, at)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "evt-1", events[0].ID)
	assert.Equal(t, "alice", events[0].AggregateID)
	assert.Equal(t, "bob", events[1].AggregateID)
	assert.Equal(t, AggregateTypeAccount, events[1].AggregateType)
	assert.Equal(t, at, events[1].CreatedAt)

	resource, ok := events[0].Payload["resource"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, EventTypeTransferUpdate, events[0].Payload["type"])
	assert.Equal(t, "prepared", resource["state"])
	assert.Equal(t, tr.ID, resource["id"])
}
