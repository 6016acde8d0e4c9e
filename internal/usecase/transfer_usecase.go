package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/escrowledger/internal/domain"
)

// TransferConfig holds the ledger settings the state machine enforces.
type TransferConfig struct {
	BaseURI                    string
	HoldAccount                string
	AmountPrecision            int
	AmountScale                int
	RequireCreditAuthorization bool
	TransferCacheTTL           time.Duration
}

// TransferDeps are the collaborators of TransferUseCase. Retrier, Cache,
// Metrics and Clock are optional.
type TransferDeps struct {
	TxManager       TransactionManager
	AccountRepo     AccountRepository
	TransferRepo    TransferRepository
	FulfillmentRepo FulfillmentRepository
	EntryRepo       EntryRepository
	IDGen           IDGenerator
	Verifier        ConditionVerifier
	Expiry          ExpiryMonitor
	Notifier        NotificationQueue
	Signer          ReceiptSigner
	Retrier         Retrier
	Cache           Cache
	Metrics         Metrics
	Logger          *zerolog.Logger
	Clock           func() time.Time
}

// TransferUseCase drives transfers through proposed, prepared, executed and
// rejected.
type TransferUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	transferRepo    TransferRepository
	fulfillmentRepo FulfillmentRepository
	entryRepo       EntryRepository
	idGen           IDGenerator
	validator       *ConditionValidator
	expiry          ExpiryMonitor
	notifier        NotificationQueue
	signer          ReceiptSigner
	retrier         Retrier
	cache           Cache
	metrics         Metrics
	logger          zerolog.Logger
	now             func() time.Time
	cfg             TransferConfig
}

// NewTransferUseCase creates a new TransferUseCase.
func NewTransferUseCase(deps TransferDeps, cfg TransferConfig) *TransferUseCase {
	if cfg.HoldAccount == "" {
		cfg.HoldAccount = DefaultHoldAccount
	}
	if cfg.AmountPrecision == 0 {
		cfg.AmountPrecision = DefaultAmountPrecision
	}
	if cfg.AmountScale == 0 {
		cfg.AmountScale = DefaultAmountScale
	}
	if cfg.TransferCacheTTL == 0 {
		cfg.TransferCacheTTL = DefaultTransferCacheTTL
	}

	uc := &TransferUseCase{
		txManager:       deps.TxManager,
		accountRepo:     deps.AccountRepo,
		transferRepo:    deps.TransferRepo,
		fulfillmentRepo: deps.FulfillmentRepo,
		entryRepo:       deps.EntryRepo,
		idGen:           deps.IDGen,
		validator:       NewConditionValidator(deps.Verifier),
		expiry:          deps.Expiry,
		notifier:        deps.Notifier,
		signer:          deps.Signer,
		retrier:         deps.Retrier,
		cache:           deps.Cache,
		metrics:         deps.Metrics,
		logger:          zerolog.Nop(),
		now:             deps.Clock,
		cfg:             cfg,
	}

	if deps.Logger != nil {
		uc.logger = deps.Logger.With().Str("component", "transfers").Logger()
	}
	if uc.retrier == nil {
		uc.retrier = noRetry{}
	}
	if uc.metrics == nil {
		uc.metrics = noopMetrics{}
	}
	if uc.now == nil {
		uc.now = func() time.Time { return time.Now().UTC() }
	}

	return uc
}

// SetTransferResult is the outcome of SetTransfer.
type SetTransferResult struct {
	Transfer *domain.Transfer
	Existed  bool
}

// FulfillResult is the outcome of FulfillTransfer.
type FulfillResult struct {
	Fulfillment domain.Fulfillment
	Existed     bool
}

// SetTransfer creates a transfer or applies an allowed update to an existing
// one. A transfer whose debits are all authorized is prepared, and a prepared
// transfer without an execution condition is executed immediately.
func (uc *TransferUseCase) SetTransfer(ctx context.Context, transfer *domain.Transfer, identity *domain.Identity) (*SetTransferResult, error) {
	if err := uc.expiry.ValidateNotExpired(transfer); err != nil {
		return nil, uc.fail(err)
	}

	if transfer.Ledger != "" && transfer.Ledger != uc.cfg.BaseURI {
		return nil, uc.fail(fmt.Errorf("%w: transfer contains incorrect ledger URI", domain.ErrInvalidBody))
	}

	if err := transfer.ValidateShape(); err != nil {
		return nil, uc.fail(err)
	}

	if err := uc.validator.ValidateConditions(transfer); err != nil {
		return nil, uc.fail(err)
	}

	if err := transfer.ValidateAmounts(uc.cfg.AmountPrecision, uc.cfg.AmountScale); err != nil {
		return nil, uc.fail(err)
	}

	requester := ""
	if identity != nil {
		requester = identity.Name
	}

	var result *SetTransferResult

	err := uc.inTransaction(ctx, func(ctx context.Context, tx Transaction) error {
		incoming := transfer.Clone()
		incoming.Ledger = uc.cfg.BaseURI

		stored, err := uc.transferRepo.GetByIDForUpdate(ctx, tx, incoming.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		scope := NewAccountScope(uc.accountRepo, tx)
		if err := scope.Lock(ctx, append(incoming.AffectedAccounts(), uc.cfg.HoldAccount)); err != nil {
			return err
		}

		var (
			current                         *domain.Transfer
			previousDebits, previousCredits []domain.Funds
		)

		if stored != nil && stored.IsFinalized() {
			if changes := domain.DiffTransfers(stored, asUpdateOf(stored, incoming)); len(changes) > 0 {
				return &domain.InvalidModificationError{
					Message: fmt.Sprintf("transfers in state %s may not be modified", stored.State),
					Diff:    changes,
				}
			}

			result = &SetTransferResult{Transfer: stored, Existed: true}

			return nil
		}

		if stored != nil {
			previousDebits, previousCredits = stored.Debits, stored.Credits

			current, err = mergeUpdate(stored, incoming)
			if err != nil {
				return err
			}
		} else {
			current = incoming
			current.RejectionReason = ""
			current.Timeline = domain.Timeline{}

			if err := scope.ValidateNoDisabledAccounts(ctx, current.AffectedAccounts()); err != nil {
				return err
			}

			current.SetState(domain.TransferStateProposed, uc.now())

			// Entries reference the transfer row, and a concurrent create of
			// the same ID must fail here before any balance moves.
			if err := uc.transferRepo.Create(ctx, tx, current); err != nil {
				return err
			}
		}

		if requester != "" && !current.IsAffectedAccount(requester) {
			return fmt.Errorf("%w: invalid attempt to authorize debit", domain.ErrUnauthorized)
		}

		if err := validateAuthorizations(requester, current.Debits, previousDebits, "debit"); err != nil {
			return err
		}

		if err := validateAuthorizations(requester, current.Credits, previousCredits, "credit"); err != nil {
			return err
		}

		if err := uc.advance(ctx, scope, current); err != nil {
			return err
		}

		if err := uc.transferRepo.Upsert(ctx, tx, current); err != nil {
			return err
		}

		if err := uc.notifier.QueueNotifications(ctx, tx, current); err != nil {
			return err
		}

		result = &SetTransferResult{Transfer: current, Existed: stored != nil}

		return nil
	})
	if err != nil {
		return nil, uc.fail(err)
	}

	uc.afterCommit(result.Transfer)

	uc.logger.Info().
		Str("transfer_id", result.Transfer.ID).
		Str("state", string(result.Transfer.State)).
		Bool("existed", result.Existed).
		Msg("transfer stored")

	return result, nil
}

// advance runs the automatic transitions: proposed to prepared once
// authorized, and prepared to executed when there is no execution condition.
func (uc *TransferUseCase) advance(ctx context.Context, scope *AccountScope, transfer *domain.Transfer) error {
	balances := NewAccountBalances(scope, uc.entryRepo, uc.idGen, uc.cfg.HoldAccount, transfer, uc.now(), uc.logger)

	if transfer.State == domain.TransferStateProposed && transfer.IsAuthorized(uc.cfg.RequireCreditAuthorization) {
		if err := balances.ApplyDebits(ctx); err != nil {
			return err
		}

		transfer.SetState(domain.TransferStatePrepared, uc.now())
		uc.metrics.ObserveTransition(domain.TransferStatePrepared)
	}

	if transfer.State == domain.TransferStatePrepared && transfer.ExecutionCondition == nil {
		if err := balances.ApplyCredits(ctx); err != nil {
			return err
		}

		transfer.SetState(domain.TransferStateExecuted, uc.now())
		uc.metrics.ObserveTransition(domain.TransferStateExecuted)
	}

	return nil
}

// FulfillTransfer executes or cancels a transfer with a condition fulfillment.
// Replaying the fulfillment of an already finalized branch returns the stored
// fulfillment without touching balances.
func (uc *TransferUseCase) FulfillTransfer(ctx context.Context, transferID string, fulfillment domain.Fulfillment) (*FulfillResult, error) {
	var (
		result   *FulfillResult
		transfer *domain.Transfer
	)

	err := uc.inTransaction(ctx, func(ctx context.Context, tx Transaction) error {
		var err error

		transfer, err = uc.transferRepo.GetByIDForUpdate(ctx, tx, transferID)
		if err != nil {
			return err
		}

		branch, err := uc.validator.Validate(transfer, fulfillment)
		if err != nil {
			return err
		}

		if (branch == BranchExecute && transfer.State == domain.TransferStateExecuted) ||
			(branch == BranchCancel && transfer.State == domain.TransferStateRejected) {
			record, err := uc.fulfillmentRepo.GetByTransfer(ctx, tx, transferID)
			if errors.Is(err, domain.ErrNotFound) {
				// Finalized without this fulfillment, e.g. rejected on expiry.
				return fmt.Errorf("%w: transfer is already %s (%s)",
					domain.ErrInvalidModification, transfer.State, transfer.RejectionReason)
			}
			if err != nil {
				return err
			}

			result = &FulfillResult{Fulfillment: record.Fulfillment, Existed: true}

			return nil
		}

		valid := domain.ValidExecutionStates
		verb := "executed"
		if branch == BranchCancel {
			valid, verb = domain.ValidCancellationStates, "cancelled"
		}

		if !containsState(valid, transfer.State) {
			return fmt.Errorf("%w: transfers in state %s may not be %s", domain.ErrInvalidModification, transfer.State, verb)
		}

		scope := NewAccountScope(uc.accountRepo, tx)
		if err := scope.Lock(ctx, append(transfer.AffectedAccounts(), uc.cfg.HoldAccount)); err != nil {
			return err
		}

		balances := NewAccountBalances(scope, uc.entryRepo, uc.idGen, uc.cfg.HoldAccount, transfer, uc.now(), uc.logger)

		if branch == BranchExecute {
			if err := balances.ApplyCredits(ctx); err != nil {
				return err
			}

			transfer.SetState(domain.TransferStateExecuted, uc.now())
		} else {
			if transfer.State == domain.TransferStatePrepared {
				if err := balances.RevertDebits(ctx); err != nil {
					return err
				}
			}

			transfer.RejectionReason = domain.RejectionReasonCancelled
			transfer.SetState(domain.TransferStateRejected, uc.now())
		}

		record := &domain.FulfillmentRecord{
			TransferID:  transferID,
			Fulfillment: *fulfillment.Clone(),
			CreatedAt:   uc.now(),
		}

		if err := uc.fulfillmentRepo.Upsert(ctx, tx, record); err != nil {
			return err
		}

		if err := uc.transferRepo.Upsert(ctx, tx, transfer); err != nil {
			return err
		}

		if err := uc.notifier.QueueNotifications(ctx, tx, transfer); err != nil {
			return err
		}

		uc.metrics.ObserveTransition(transfer.State)
		uc.metrics.ObserveFulfillment(string(branch))

		result = &FulfillResult{Fulfillment: record.Fulfillment, Existed: false}

		return nil
	})
	if err != nil {
		return nil, uc.fail(err)
	}

	if !result.Existed {
		uc.afterCommit(transfer)

		uc.logger.Info().
			Str("transfer_id", transfer.ID).
			Str("state", string(transfer.State)).
			Msg("transfer fulfilled")
	}

	return result, nil
}

// ExpireTransfer rejects a transfer whose deadline has passed, refunding the
// debits if they were held. Finalized and not yet expired transfers are left
// alone, so repeated calls are harmless.
func (uc *TransferUseCase) ExpireTransfer(ctx context.Context, transferID string) error {
	var expired bool

	err := uc.inTransaction(ctx, func(ctx context.Context, tx Transaction) error {
		expired = false

		transfer, err := uc.transferRepo.GetByIDForUpdate(ctx, tx, transferID)
		if err != nil {
			return err
		}

		if transfer.IsFinalized() || !transfer.IsExpiredAt(uc.now()) {
			return nil
		}

		if transfer.State == domain.TransferStatePrepared {
			scope := NewAccountScope(uc.accountRepo, tx)
			if err := scope.Lock(ctx, append(transfer.AffectedAccounts(), uc.cfg.HoldAccount)); err != nil {
				return err
			}

			balances := NewAccountBalances(scope, uc.entryRepo, uc.idGen, uc.cfg.HoldAccount, transfer, uc.now(), uc.logger)
			if err := balances.RevertDebits(ctx); err != nil {
				return err
			}
		}

		transfer.RejectionReason = domain.RejectionReasonExpired
		transfer.SetState(domain.TransferStateRejected, uc.now())

		if err := uc.transferRepo.Upsert(ctx, tx, transfer); err != nil {
			return err
		}

		if err := uc.notifier.QueueNotifications(ctx, tx, transfer); err != nil {
			return err
		}

		expired = true

		return nil
	})
	if err != nil {
		return uc.fail(err)
	}

	if expired {
		uc.metrics.ObserveTransition(domain.TransferStateRejected)
		uc.logger.Info().Str("transfer_id", transferID).Msg("transfer expired")
	}

	return nil
}

// GetTransfer retrieves a transfer by ID. Finalized transfers are served from
// the cache when one is configured.
func (uc *TransferUseCase) GetTransfer(ctx context.Context, id string) (*domain.Transfer, error) {
	key := transferCacheKey(id)

	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, key); err == nil && data != nil {
			var t domain.Transfer
			if err := json.Unmarshal(data, &t); err == nil {
				return &t, nil
			}
		}
	}

	t, err := uc.transferRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil && t.IsFinalized() {
		if data, err := json.Marshal(t); err == nil {
			if err := uc.cache.Set(ctx, key, data, uc.cfg.TransferCacheTTL); err != nil {
				uc.logger.Warn().Err(err).Str("transfer_id", id).Msg("failed to cache transfer")
			}
		}
	}

	return t, nil
}

// GetFulfillment returns the stored fulfillment of a transfer. Only
// authenticated callers may read fulfillments.
func (uc *TransferUseCase) GetFulfillment(ctx context.Context, transferID string, identity *domain.Identity) (*domain.Fulfillment, error) {
	if identity == nil || identity.Name == "" {
		return nil, fmt.Errorf("%w: not authorized", domain.ErrUnauthorized)
	}

	record, err := uc.fulfillmentRepo.GetByTransfer(ctx, nil, transferID)
	if err != nil {
		return nil, err
	}

	return &record.Fulfillment, nil
}

// GetStateReceipt returns a receipt for the transfer's current state. An
// unknown transfer is reported in state nonexistent.
func (uc *TransferUseCase) GetStateReceipt(ctx context.Context, transferID, receiptType string, conditionState domain.TransferState) (*domain.Receipt, error) {
	if conditionState != "" && !conditionState.IsValid() {
		return nil, fmt.Errorf("%w: condition_state is not valid", domain.ErrInvalidBody)
	}

	state := domain.TransferStateNonexistent

	t, err := uc.transferRepo.GetByID(ctx, transferID)
	switch {
	case err == nil:
		state = t.State
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	return uc.signer.Receipt(receiptType, transferID, state, conditionState)
}

// RestoreWatches re-registers every stored unfinalized transfer that carries
// a deadline with the expiry monitor.
func (uc *TransferUseCase) RestoreWatches(ctx context.Context) (int, error) {
	transfers, err := uc.transferRepo.ListUnfinalizedWithExpiry(ctx)
	if err != nil {
		return 0, err
	}

	for _, t := range transfers {
		uc.expiry.Watch(t)
	}

	return len(transfers), nil
}

func (uc *TransferUseCase) afterCommit(transfer *domain.Transfer) {
	if transfer.IsFinalized() {
		uc.expiry.Unwatch(transfer.ID)
		return
	}

	uc.expiry.Watch(transfer)
}

func (uc *TransferUseCase) inTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error {
	return uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer tx.Rollback(txCtx)

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
}

func (uc *TransferUseCase) fail(err error) error {
	uc.metrics.ObserveError(err)

	if errors.Is(err, domain.ErrMissingHoldAccount) {
		uc.logger.Error().Err(err).Msg("ledger is misconfigured")
	}

	return err
}

// asUpdateOf copies the fields a client does not set from stored onto a clone
// of incoming.
func asUpdateOf(stored, incoming *domain.Transfer) *domain.Transfer {
	candidate := incoming.Clone()
	candidate.State = stored.State
	candidate.Timeline = stored.Timeline
	candidate.RejectionReason = stored.RejectionReason
	candidate.Ledger = stored.Ledger

	return candidate
}

// mergeUpdate applies the changes a client may make to a stored transfer:
// setting authorized on a line and adding condition fulfillments. Anything
// else is an invalid modification.
func mergeUpdate(stored, incoming *domain.Transfer) (*domain.Transfer, error) {
	if len(incoming.Debits) != len(stored.Debits) {
		return nil, fmt.Errorf("%w: invalid change in number of debits", domain.ErrUnprocessableEntity)
	}
	if len(incoming.Credits) != len(stored.Credits) {
		return nil, fmt.Errorf("%w: invalid change in number of credits", domain.ErrUnprocessableEntity)
	}

	updated := stored.Clone()
	candidate := asUpdateOf(stored, incoming)

	for i := range updated.Debits {
		if candidate.Debits[i].Authorized {
			updated.Debits[i].Authorized = true
		}
	}
	for i := range updated.Credits {
		if candidate.Credits[i].Authorized {
			updated.Credits[i].Authorized = true
		}
	}

	if candidate.ExecutionConditionFulfillment != nil {
		updated.ExecutionConditionFulfillment = candidate.ExecutionConditionFulfillment
	}
	if candidate.CancellationConditionFulfillment != nil {
		updated.CancellationConditionFulfillment = candidate.CancellationConditionFulfillment
	}

	if changes := domain.DiffTransfers(updated, candidate); len(changes) > 0 {
		return nil, &domain.InvalidModificationError{
			Message: "transfer may not be modified in this way",
			Diff:    changes,
		}
	}

	return updated, nil
}

// validateAuthorizations rejects lines newly marked authorized by anyone
// other than their account owner.
func validateAuthorizations(requester string, funds, previous []domain.Funds, kind string) error {
	for i, f := range funds {
		wasAuthorized := previous != nil && previous[i].Authorized
		if f.Authorized && !wasAuthorized && f.Account != requester {
			return fmt.Errorf("%w: invalid attempt to authorize %s", domain.ErrUnauthorized, kind)
		}
	}

	return nil
}

func containsState(states []domain.TransferState, s domain.TransferState) bool {
	for _, v := range states {
		if v == s {
			return true
		}
	}

	return false
}

func transferCacheKey(id string) string {
	return "transfer:" + id
}

type noRetry struct{}

func (noRetry) Retry(_ context.Context, operation func() error) error {
	return operation()
}

type noopMetrics struct{}

func (noopMetrics) ObserveTransition(domain.TransferState) {}
func (noopMetrics) ObserveFulfillment(string)              {}
func (noopMetrics) ObserveError(error)                     {}
