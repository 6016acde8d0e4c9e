package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/escrowledger/internal/domain"
	"github.com/iho/escrowledger/internal/infrastructure/cryptocondition"
	"github.com/iho/escrowledger/internal/usecase"
	"github.com/iho/escrowledger/internal/usecase/mocks"
)

func TestTransferUseCase_UnconditionedTransferExecutes(t *testing.T) {
	f := newFixture(t).allowExpiry()

	result, err := f.uc.SetTransfer(context.Background(), newTransfer("t1", "50", true), alice)
	require.NoError(t, err)

	assert.False(t, result.Existed)
	assert.Equal(t, domain.TransferStateExecuted, result.Transfer.State)
	assert.Equal(t, testBaseURI, result.Transfer.Ledger)
	assert.NotNil(t, result.Transfer.Timeline.ProposedAt)
	assert.NotNil(t, result.Transfer.Timeline.PreparedAt)
	assert.NotNil(t, result.Transfer.Timeline.ExecutedAt)

	assert.Equal(t, "50", f.balance(t, "alice"))
	assert.Equal(t, "50", f.balance(t, "bob"))
	assert.Equal(t, "0", f.balance(t, "hold"))

	stored := f.store.Transfer("t1")
	require.NotNil(t, stored)
	assert.Equal(t, domain.TransferStateExecuted, stored.State)

	events := f.store.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "alice", events[0].AggregateID)
	assert.Equal(t, "bob", events[1].AggregateID)
	assert.Equal(t, domain.EventTypeTransferUpdate, events[0].EventType)
}

func TestTransferUseCase_TransferRowPrecedesItsEntries(t *testing.T) {
	f := newFixture(t).allowExpiry()

	_, err := f.uc.SetTransfer(context.Background(), newTransfer("t1", "50", true), alice)
	require.NoError(t, err)

	entries := f.store.Entries()
	require.Len(t, entries, 4)
	for _, e := range entries {
		assert.Equal(t, "t1", e.TransferID)
	}
	assert.Equal(t, 1, f.store.Commits())
}

// staleTransferRepository misses the stored row on the first locked read, as
// a transaction does when a concurrent create of the same ID has not yet
// committed.
type staleTransferRepository struct {
	usecase.TransferRepository
	misses int
}

func (r *staleTransferRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transfer, error) {
	if r.misses > 0 {
		r.misses--
		return nil, domain.ErrTransferNotFound
	}
	return r.TransferRepository.GetByIDForUpdate(ctx, tx, id)
}

// retryOnDuplicate re-runs an operation that failed with a duplicate key.
type retryOnDuplicate struct{ attempts int }

func (r *retryOnDuplicate) Retry(_ context.Context, operation func() error) error {
	var err error
	for range 3 {
		r.attempts++
		if err = operation(); !errors.Is(err, mocks.ErrDuplicateKey) {
			return err
		}
	}
	return err
}

func TestTransferUseCase_ConcurrentCreateOfSameIDDebitsOnce(t *testing.T) {
	stale := &staleTransferRepository{}
	retrier := &retryOnDuplicate{}
	f := newFixture(t, func(d *usecase.TransferDeps, _ *usecase.TransferConfig) {
		stale.TransferRepository = d.TransferRepo
		d.TransferRepo = stale
		d.Retrier = retrier
	}).allowExpiry()
	ctx := context.Background()

	first, err := f.uc.SetTransfer(ctx, newTransfer("t1", "10", true), alice)
	require.NoError(t, err)
	assert.False(t, first.Existed)

	stale.misses = 1
	retrier.attempts = 0

	second, err := f.uc.SetTransfer(ctx, newTransfer("t1", "10", true), alice)
	require.NoError(t, err)
	assert.True(t, second.Existed)
	assert.Equal(t, 2, retrier.attempts)

	assert.Equal(t, "90", f.balance(t, "alice"))
	assert.Equal(t, "10", f.balance(t, "bob"))
	assert.Equal(t, "0", f.balance(t, "hold"))
	assert.Len(t, f.store.Entries(), 4)
}

func TestTransferUseCase_RejectedRequestsLeaveLedgerUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		transfer func() *domain.Transfer
		identity *domain.Identity
		errKind  error
	}{
		{
			name: "debits and credits do not balance",
			transfer: func() *domain.Transfer {
				tr := newTransfer("t1", "50", true)
				tr.Credits[0].Amount = decimal.NewFromInt(49)
				return tr
			},
			identity: alice,
			errKind:  domain.ErrUnprocessableEntity,
		},
		{
			name: "non-positive amount",
			transfer: func() *domain.Transfer {
				return newTransfer("t1", "0", true)
			},
			identity: alice,
			errKind:  domain.ErrUnprocessableEntity,
		},
		{
			name: "amount exceeds scale",
			transfer: func() *domain.Transfer {
				return newTransfer("t1", "0.001", true)
			},
			identity: alice,
			errKind:  domain.ErrUnprocessableEntity,
		},
		{
			name: "insufficient funds",
			transfer: func() *domain.Transfer {
				return newTransfer("t1", "150", true)
			},
			identity: alice,
			errKind:  domain.ErrInsufficientFunds,
		},
		{
			name: "wrong ledger",
			transfer: func() *domain.Transfer {
				tr := newTransfer("t1", "10", true)
				tr.Ledger = "http://other.example"
				return tr
			},
			identity: alice,
			errKind:  domain.ErrInvalidBody,
		},
		{
			name: "no credits",
			transfer: func() *domain.Transfer {
				tr := newTransfer("t1", "10", true)
				tr.Credits = nil
				return tr
			},
			identity: alice,
			errKind:  domain.ErrInvalidBody,
		},
		{
			name: "unknown account",
			transfer: func() *domain.Transfer {
				tr := newTransfer("t1", "10", true)
				tr.Credits[0].Account = "zed"
				return tr
			},
			identity: alice,
			errKind:  domain.ErrUnprocessableEntity,
		},
		{
			name: "authorizing without identity",
			transfer: func() *domain.Transfer {
				return newTransfer("t1", "10", true)
			},
			identity: nil,
			errKind:  domain.ErrUnauthorized,
		},
		{
			name: "non-participant identity",
			transfer: func() *domain.Transfer {
				return newTransfer("t1", "10", false)
			},
			identity: &domain.Identity{Name: "mallory"},
			errKind:  domain.ErrUnauthorized,
		},
		{
			name: "participant authorizing someone else's debit",
			transfer: func() *domain.Transfer {
				return newTransfer("t1", "10", true)
			},
			identity: &domain.Identity{Name: "bob"},
			errKind:  domain.ErrUnauthorized,
		},
		{
			name: "execution condition without digest",
			transfer: func() *domain.Transfer {
				tr := newTransfer("t1", "10", true)
				tr.ExecutionCondition = &domain.Condition{Type: cryptocondition.TypePreimageSHA256, Params: map[string]any{}}
				return tr
			},
			identity: alice,
			errKind:  domain.ErrInvalidBody,
		},
		{
			name: "cancellation condition of unknown type",
			transfer: func() *domain.Transfer {
				exec := cryptocondition.PreimageCondition([]byte("execute"))
				tr := newTransfer("t1", "10", true)
				tr.ExecutionCondition = &exec
				tr.CancellationCondition = &domain.Condition{Type: "rsa-sha-256"}
				return tr
			},
			identity: alice,
			errKind:  domain.ErrInvalidBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t).allowExpiry()

			_, err := f.uc.SetTransfer(context.Background(), tt.transfer(), tt.identity)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.errKind)

			assert.Nil(t, f.store.Transfer("t1"))
			assert.Equal(t, "100", f.balance(t, "alice"))
			assert.Equal(t, "0", f.balance(t, "bob"))
			assert.Equal(t, "0", f.balance(t, "hold"))
			assert.Empty(t, f.store.Entries())
			assert.Empty(t, f.store.Events())
		})
	}
}

func TestTransferUseCase_InsufficientFundsNamesAccount(t *testing.T) {
	f := newFixture(t).allowExpiry()

	_, err := f.uc.SetTransfer(context.Background(), newTransfer("t1", "100.01", true), alice)

	var insufficient *domain.InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "alice", insufficient.Account)
}

func TestTransferUseCase_DisabledAccount(t *testing.T) {
	f := newFixture(t).allowExpiry()
	f.store.PutAccount(&domain.Account{Name: "bob", IsDisabled: true})

	_, err := f.uc.SetTransfer(context.Background(), newTransfer("t1", "10", true), alice)
	assert.ErrorIs(t, err, domain.ErrUnprocessableEntity)
	assert.Contains(t, err.Error(), "disabled")
}

func TestTransferUseCase_MissingHoldAccount(t *testing.T) {
	// the configured hold account does not exist in the store
	f := newFixture(t, func(_ *usecase.TransferDeps, c *usecase.TransferConfig) {
		c.HoldAccount = "escrow"
	}).allowExpiry()

	_, err := f.uc.SetTransfer(context.Background(), newTransfer("t1", "10", true), alice)
	assert.ErrorIs(t, err, domain.ErrMissingHoldAccount)
	assert.Equal(t, "100", f.balance(t, "alice"))
	assert.Nil(t, f.store.Transfer("t1"))
}

func TestTransferUseCase_AuthorizeOnUpdate(t *testing.T) {
	f := newFixture(t).allowExpiry()
	ctx := context.Background()

	result, err := f.uc.SetTransfer(ctx, newTransfer("t1", "10", false), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStateProposed, result.Transfer.State)
	assert.Equal(t, "100", f.balance(t, "alice"))

	result, err = f.uc.SetTransfer(ctx, newTransfer("t1", "10", true), alice)
	require.NoError(t, err)
	assert.True(t, result.Existed)
	assert.Equal(t, domain.TransferStateExecuted, result.Transfer.State)
	assert.True(t, result.Transfer.Timeline.ProposedAt.Equal(f.now))
	assert.Equal(t, "90", f.balance(t, "alice"))
	assert.Equal(t, "10", f.balance(t, "bob"))
}

func TestTransferUseCase_InvalidModification(t *testing.T) {
	f := newFixture(t).allowExpiry()
	ctx := context.Background()

	_, err := f.uc.SetTransfer(ctx, newTransfer("t1", "10", false), nil)
	require.NoError(t, err)

	_, err = f.uc.SetTransfer(ctx, newTransfer("t1", "20", false), nil)

	var modErr *domain.InvalidModificationError
	require.True(t, errors.As(err, &modErr))
	require.NotEmpty(t, modErr.Diff)
	assert.Equal(t, "Debits[0].Amount", modErr.Diff[0].Path)

	stored := f.store.Transfer("t1")
	assert.True(t, stored.Debits[0].Amount.Equal(decimal.NewFromInt(10)))
}

func TestTransferUseCase_ChangingLineCountIsUnprocessable(t *testing.T) {
	f := newFixture(t).allowExpiry()
	ctx := context.Background()

	_, err := f.uc.SetTransfer(ctx, newTransfer("t1", "10", false), nil)
	require.NoError(t, err)

	tr := newTransfer("t1", "10", false)
	tr.Credits = []domain.Funds{
		{Account: "bob", Amount: decimal.NewFromInt(5)},
		{Account: "bob", Amount: decimal.NewFromInt(5)},
	}

	_, err = f.uc.SetTransfer(ctx, tr, nil)
	assert.ErrorIs(t, err, domain.ErrUnprocessableEntity)
}

func TestTransferUseCase_FinalizedTransferIsImmutable(t *testing.T) {
	f := newFixture(t).allowExpiry()
	ctx := context.Background()

	_, err := f.uc.SetTransfer(ctx, newTransfer("t1", "10", true), alice)
	require.NoError(t, err)

	result, err := f.uc.SetTransfer(ctx, newTransfer("t1", "10", true), alice)
	require.NoError(t, err)
	assert.True(t, result.Existed)
	assert.Equal(t, domain.TransferStateExecuted, result.Transfer.State)
	assert.Equal(t, "90", f.balance(t, "alice"))

	tr := newTransfer("t1", "10", true)
	tr.Memo = map[string]any{"note": "changed"}
	_, err = f.uc.SetTransfer(ctx, tr, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidModification)
}

func TestTransferUseCase_FinalizedTransferRejectsLineChanges(t *testing.T) {
	f := newFixture(t).allowExpiry()
	ctx := context.Background()

	_, err := f.uc.SetTransfer(ctx, newTransfer("t1", "10", true), alice)
	require.NoError(t, err)

	tr := newTransfer("t1", "10", true)
	tr.Credits = []domain.Funds{
		{Account: "bob", Amount: decimal.NewFromInt(5)},
		{Account: "bob", Amount: decimal.NewFromInt(5)},
	}

	_, err = f.uc.SetTransfer(ctx, tr, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidModification)
	assert.NotErrorIs(t, err, domain.ErrUnprocessableEntity)

	var modErr *domain.InvalidModificationError
	require.True(t, errors.As(err, &modErr))
	assert.NotEmpty(t, modErr.Diff)
	assert.Len(t, f.store.Transfer("t1").Credits, 1)
}

func TestTransferUseCase_CreditAuthorizationFeature(t *testing.T) {
	f := newFixture(t, func(_ *usecase.TransferDeps, c *usecase.TransferConfig) {
		c.RequireCreditAuthorization = true
	}).allowExpiry()

	result, err := f.uc.SetTransfer(context.Background(), newTransfer("t1", "10", true), alice)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStateProposed, result.Transfer.State)

	tr := newTransfer("t1", "10", true)
	tr.Credits[0].Authorized = true
	result, err = f.uc.SetTransfer(context.Background(), tr, &domain.Identity{Name: "bob"})
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStateExecuted, result.Transfer.State)
}

func conditionedTransfer(id string, execute, cancel *domain.Condition) *domain.Transfer {
	tr := newTransfer(id, "50", true)
	tr.ExecutionCondition = execute
	tr.CancellationCondition = cancel
	return tr
}

func TestTransferUseCase_ExecutionFulfillment(t *testing.T) {
	f := newFixture(t).allowExpiry()
	ctx := context.Background()

	exec := cryptocondition.PreimageCondition([]byte("execute"))
	result, err := f.uc.SetTransfer(ctx, conditionedTransfer("t1", &exec, nil), alice)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatePrepared, result.Transfer.State)
	assert.Equal(t, "50", f.balance(t, "alice"))
	assert.Equal(t, "50", f.balance(t, "hold"))

	ful := cryptocondition.PreimageFulfillment([]byte("execute"))
	fr, err := f.uc.FulfillTransfer(ctx, "t1", ful)
	require.NoError(t, err)
	assert.False(t, fr.Existed)
	assert.Equal(t, domain.TransferStateExecuted, f.store.Transfer("t1").State)
	assert.Equal(t, "50", f.balance(t, "bob"))
	assert.Equal(t, "0", f.balance(t, "hold"))

	entries := len(f.store.Entries())

	again, err := f.uc.FulfillTransfer(ctx, "t1", ful)
	require.NoError(t, err)
	assert.True(t, again.Existed)
	assert.Equal(t, fr.Fulfillment, again.Fulfillment)
	assert.Equal(t, "50", f.balance(t, "bob"))
	assert.Len(t, f.store.Entries(), entries)

	stored, err := f.uc.GetFulfillment(ctx, "t1", alice)
	require.NoError(t, err)
	assert.Equal(t, ful.Type, stored.Type)
}

func TestTransferUseCase_CancellationFulfillment(t *testing.T) {
	f := newFixture(t).allowExpiry()
	ctx := context.Background()

	exec := cryptocondition.PreimageCondition([]byte("execute"))
	cancel := cryptocondition.PreimageCondition([]byte("cancel"))
	_, err := f.uc.SetTransfer(ctx, conditionedTransfer("t1", &exec, &cancel), alice)
	require.NoError(t, err)
	assert.Equal(t, "50", f.balance(t, "alice"))

	_, err = f.uc.FulfillTransfer(ctx, "t1", cryptocondition.PreimageFulfillment([]byte("cancel")))
	require.NoError(t, err)

	stored := f.store.Transfer("t1")
	assert.Equal(t, domain.TransferStateRejected, stored.State)
	assert.Equal(t, domain.RejectionReasonCancelled, stored.RejectionReason)
	assert.Equal(t, "100", f.balance(t, "alice"))
	assert.Equal(t, "0", f.balance(t, "hold"))
	assert.Equal(t, "0", f.balance(t, "bob"))

	_, err = f.uc.FulfillTransfer(ctx, "t1", cryptocondition.PreimageFulfillment([]byte("execute")))
	assert.ErrorIs(t, err, domain.ErrInvalidModification)
}

func TestTransferUseCase_CancelProposedDoesNotTouchBalances(t *testing.T) {
	f := newFixture(t).allowExpiry()
	ctx := context.Background()

	exec := cryptocondition.PreimageCondition([]byte("execute"))
	cancel := cryptocondition.PreimageCondition([]byte("cancel"))
	tr := conditionedTransfer("t1", &exec, &cancel)
	tr.Debits[0].Authorized = false

	_, err := f.uc.SetTransfer(ctx, tr, nil)
	require.NoError(t, err)

	_, err = f.uc.FulfillTransfer(ctx, "t1", cryptocondition.PreimageFulfillment([]byte("cancel")))
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStateRejected, f.store.Transfer("t1").State)
	assert.Equal(t, "100", f.balance(t, "alice"))
	assert.Empty(t, f.store.Entries())
}

func TestTransferUseCase_FulfillmentErrors(t *testing.T) {
	f := newFixture(t).allowExpiry()
	ctx := context.Background()

	exec := cryptocondition.PreimageCondition([]byte("execute"))
	tr := conditionedTransfer("t1", &exec, nil)
	tr.Debits[0].Authorized = false
	_, err := f.uc.SetTransfer(ctx, tr, nil)
	require.NoError(t, err)

	_, err = f.uc.FulfillTransfer(ctx, "t1", cryptocondition.PreimageFulfillment([]byte("wrong")))
	assert.ErrorIs(t, err, domain.ErrUnmetCondition)

	_, err = f.uc.FulfillTransfer(ctx, "t1", cryptocondition.PreimageFulfillment([]byte("execute")))
	assert.ErrorIs(t, err, domain.ErrInvalidModification, "a proposed transfer cannot be executed")

	_, err = f.uc.FulfillTransfer(ctx, "missing", cryptocondition.PreimageFulfillment([]byte("execute")))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransferUseCase_FulfillmentMatchingBothConditions(t *testing.T) {
	f := newFixture(t).allowExpiry()
	ctx := context.Background()

	cond := cryptocondition.PreimageCondition([]byte("same"))
	_, err := f.uc.SetTransfer(ctx, conditionedTransfer("t1", &cond, &cond), alice)
	require.NoError(t, err)

	_, err = f.uc.FulfillTransfer(ctx, "t1", cryptocondition.PreimageFulfillment([]byte("same")))
	assert.ErrorIs(t, err, domain.ErrUnmetCondition)
	assert.Equal(t, "50", f.balance(t, "hold"))
}

func TestTransferUseCase_ExpiryRestoresFunds(t *testing.T) {
	f := newFixture(t).allowExpiry()
	ctx := context.Background()

	exec := cryptocondition.PreimageCondition([]byte("execute"))
	tr := conditionedTransfer("t1", &exec, nil)
	deadline := f.now.Add(time.Second)
	tr.ExpiresAt = &deadline

	_, err := f.uc.SetTransfer(ctx, tr, alice)
	require.NoError(t, err)
	assert.Equal(t, "50", f.balance(t, "alice"))

	require.NoError(t, f.uc.ExpireTransfer(ctx, "t1"))
	assert.Equal(t, domain.TransferStatePrepared, f.store.Transfer("t1").State, "not yet expired")

	f.now = deadline.Add(time.Millisecond)
	require.NoError(t, f.uc.ExpireTransfer(ctx, "t1"))

	stored := f.store.Transfer("t1")
	assert.Equal(t, domain.TransferStateRejected, stored.State)
	assert.Equal(t, domain.RejectionReasonExpired, stored.RejectionReason)
	assert.Equal(t, "100", f.balance(t, "alice"))
	assert.Equal(t, "0", f.balance(t, "hold"))

	entries := len(f.store.Entries())
	require.NoError(t, f.uc.ExpireTransfer(ctx, "t1"))
	assert.Len(t, f.store.Entries(), entries)

	_, err = f.uc.FulfillTransfer(ctx, "t1", cryptocondition.PreimageFulfillment([]byte("execute")))
	assert.ErrorIs(t, err, domain.ErrInvalidModification)
}

func TestTransferUseCase_CancellingAnExpiredTransferIsInvalid(t *testing.T) {
	f := newFixture(t).allowExpiry()
	ctx := context.Background()

	exec := cryptocondition.PreimageCondition([]byte("execute"))
	cancel := cryptocondition.PreimageCondition([]byte("cancel"))
	tr := conditionedTransfer("t1", &exec, &cancel)
	deadline := f.now.Add(time.Second)
	tr.ExpiresAt = &deadline

	_, err := f.uc.SetTransfer(ctx, tr, alice)
	require.NoError(t, err)

	f.now = deadline.Add(time.Millisecond)
	require.NoError(t, f.uc.ExpireTransfer(ctx, "t1"))
	entries := len(f.store.Entries())

	_, err = f.uc.FulfillTransfer(ctx, "t1", cryptocondition.PreimageFulfillment([]byte("cancel")))
	assert.ErrorIs(t, err, domain.ErrInvalidModification)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), domain.RejectionReasonExpired)

	assert.Len(t, f.store.Entries(), entries)
	assert.Equal(t, "100", f.balance(t, "alice"))
}

func TestTransferUseCase_LateFulfillmentBeforeSweepIsHonored(t *testing.T) {
	f := newFixture(t).allowExpiry()
	ctx := context.Background()

	exec := cryptocondition.PreimageCondition([]byte("execute"))
	tr := conditionedTransfer("t1", &exec, nil)
	deadline := f.now.Add(time.Second)
	tr.ExpiresAt = &deadline

	_, err := f.uc.SetTransfer(ctx, tr, alice)
	require.NoError(t, err)

	f.now = deadline.Add(time.Minute)
	_, err = f.uc.FulfillTransfer(ctx, "t1", cryptocondition.PreimageFulfillment([]byte("execute")))
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStateExecuted, f.store.Transfer("t1").State)

	require.NoError(t, f.uc.ExpireTransfer(ctx, "t1"))
	assert.Equal(t, domain.TransferStateExecuted, f.store.Transfer("t1").State)
	assert.Equal(t, "50", f.balance(t, "bob"))
}

func TestTransferUseCase_WatchesAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	exec := cryptocondition.PreimageCondition([]byte("execute"))
	tr := conditionedTransfer("t1", &exec, nil)

	f.expiry.EXPECT().ValidateNotExpired(gomock.Any()).Return(nil).Times(1)
	f.expiry.EXPECT().Watch(gomock.Any()).Do(func(w *domain.Transfer) {
		assert.Equal(t, "t1", w.ID)
		assert.Equal(t, 1, f.store.Commits(), "watch must happen after commit")
	}).Times(1)

	_, err := f.uc.SetTransfer(ctx, tr, alice)
	require.NoError(t, err)

	f.expiry.EXPECT().Unwatch("t1").Times(1)
	_, err = f.uc.FulfillTransfer(ctx, "t1", cryptocondition.PreimageFulfillment([]byte("execute")))
	require.NoError(t, err)
}

func TestTransferUseCase_AlreadyExpiredSubmission(t *testing.T) {
	f := newFixture(t)
	f.expiry.EXPECT().ValidateNotExpired(gomock.Any()).Return(
		domain.ErrUnprocessableEntity,
	)

	_, err := f.uc.SetTransfer(context.Background(), newTransfer("t1", "10", true), alice)
	assert.ErrorIs(t, err, domain.ErrUnprocessableEntity)
	assert.Equal(t, 0, f.store.Commits())
}

func TestTransferUseCase_FailedCommitRollsBack(t *testing.T) {
	f := newFixture(t).allowExpiry()
	f.store.FailNextCommit = errors.New("connection reset")

	_, err := f.uc.SetTransfer(context.Background(), newTransfer("t1", "10", true), alice)
	require.Error(t, err)

	assert.Nil(t, f.store.Transfer("t1"))
	assert.Equal(t, "100", f.balance(t, "alice"))
	assert.Empty(t, f.store.Events())
}

func TestTransferUseCase_RetriesWholeTransaction(t *testing.T) {
	retrier := &countingRetrier{retryOn: errTransient, max: 3}
	f := newFixture(t, func(d *usecase.TransferDeps, _ *usecase.TransferConfig) {
		d.Retrier = retrier
	}).allowExpiry()
	f.store.FailNextCommit = errTransient

	result, err := f.uc.SetTransfer(context.Background(), newTransfer("t1", "10", true), alice)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStateExecuted, result.Transfer.State)
	assert.Equal(t, 2, retrier.calls)
	assert.Equal(t, "90", f.balance(t, "alice"))
	assert.Len(t, f.store.Entries(), 4)
}

func TestTransferUseCase_GetTransfer(t *testing.T) {
	f := newFixture(t).allowExpiry()

	_, err := f.uc.GetTransfer(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.uc.SetTransfer(context.Background(), newTransfer("t1", "10", false), nil)
	require.NoError(t, err)

	tr, err := f.uc.GetTransfer(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStateProposed, tr.State)
}

func TestTransferUseCase_GetTransferCachesFinalized(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCache(ctrl)

	f := newFixture(t, func(d *usecase.TransferDeps, _ *usecase.TransferConfig) {
		d.Cache = cache
	}).allowExpiry()

	_, err := f.uc.SetTransfer(context.Background(), newTransfer("t1", "10", true), alice)
	require.NoError(t, err)

	var cached []byte
	cache.EXPECT().Get(gomock.Any(), "transfer:t1").Return(nil, nil)
	cache.EXPECT().Set(gomock.Any(), "transfer:t1", gomock.Any(), usecase.DefaultTransferCacheTTL).
		DoAndReturn(func(_ context.Context, _ string, value []byte, _ time.Duration) error {
			cached = value
			return nil
		})

	first, err := f.uc.GetTransfer(context.Background(), "t1")
	require.NoError(t, err)

	cache.EXPECT().Get(gomock.Any(), "transfer:t1").DoAndReturn(func(context.Context, string) ([]byte, error) {
		return cached, nil
	})

	second, err := f.uc.GetTransfer(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, first.State, second.State)
	assert.True(t, first.Debits[0].Amount.Equal(second.Debits[0].Amount))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(cached, &decoded))
	assert.Equal(t, "executed", decoded["state"])
}

func TestTransferUseCase_GetFulfillment(t *testing.T) {
	f := newFixture(t).allowExpiry()

	_, err := f.uc.GetFulfillment(context.Background(), "t1", nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.uc.GetFulfillment(context.Background(), "t1", alice)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransferUseCase_GetStateReceipt(t *testing.T) {
	ctrl := gomock.NewController(t)
	signer := mocks.NewMockReceiptSigner(ctrl)

	f := newFixture(t, func(d *usecase.TransferDeps, _ *usecase.TransferConfig) {
		d.Signer = signer
	}).allowExpiry()

	signer.EXPECT().
		Receipt(domain.ReceiptTypeSHA256, "unknown", domain.TransferStateNonexistent, domain.TransferStateExecuted).
		Return(&domain.Receipt{Type: domain.ReceiptTypeSHA256}, nil)

	receipt, err := f.uc.GetStateReceipt(context.Background(), "unknown", domain.ReceiptTypeSHA256, domain.TransferStateExecuted)
	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptTypeSHA256, receipt.Type)

	_, err = f.uc.GetStateReceipt(context.Background(), "unknown", domain.ReceiptTypeSHA256, "bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidBody)
}

func TestTransferUseCase_RestoreWatches(t *testing.T) {
	f := newFixture(t)

	deadline := f.now.Add(time.Hour)
	pending := newTransfer("t1", "10", false)
	pending.State = domain.TransferStateProposed
	pending.ExpiresAt = &deadline
	f.store.PutTransfer(pending)

	done := newTransfer("t2", "10", true)
	done.State = domain.TransferStateExecuted
	done.ExpiresAt = &deadline
	f.store.PutTransfer(done)

	f.expiry.EXPECT().Watch(gomock.Any()).Do(func(w *domain.Transfer) {
		assert.Equal(t, "t1", w.ID)
	}).Times(1)

	n, err := f.uc.RestoreWatches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

var errTransient = errors.New("serialization failure")

type countingRetrier struct {
	calls   int
	retryOn error
	max     int
}

func (r *countingRetrier) Retry(_ context.Context, operation func() error) error {
	for {
		r.calls++
		err := operation()
		if err == nil || r.retryOn == nil || !errors.Is(err, r.retryOn) || r.calls >= r.max {
			return err
		}
	}
}
