package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/escrowledger/internal/domain"
	"github.com/iho/escrowledger/internal/usecase"
)

var (
	// ErrTxClosed is returned when a finished transaction is committed again.
	ErrTxClosed = errors.New("tx is closed")
	// ErrDuplicateKey is returned when a transfer is created twice.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrForeignKeyViolation is returned when a row references a transfer
	// that is neither committed nor staged.
	ErrForeignKeyViolation = errors.New("foreign key violation")
)

// Store is an in-memory transactional store. Transactions are serialized and
// stage their writes until Commit, so a rolled back transaction leaves no trace.
type Store struct {
	txLock sync.Mutex

	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	transfers    map[string]*domain.Transfer
	fulfillments map[string]*domain.FulfillmentRecord
	entries      []*domain.Entry
	events       []*domain.OutboxEvent

	// FailNextCommit, when set, is returned by the next Commit, which then
	// behaves like a rollback.
	FailNextCommit error
	commits        int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*domain.Account),
		transfers:    make(map[string]*domain.Transfer),
		fulfillments: make(map[string]*domain.FulfillmentRecord),
	}
}

// PutAccount stores a copy of account outside any transaction.
func (s *Store) PutAccount(account *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.Name] = cloneAccount(account)
}

// Account returns a copy of the committed account, or nil.
func (s *Store) Account(name string) *domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.accounts[name]; ok {
		return cloneAccount(a)
	}
	return nil
}

// Transfer returns a copy of the committed transfer, or nil.
func (s *Store) Transfer(id string) *domain.Transfer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transfers[id].Clone()
}

// PutTransfer stores a copy of transfer outside any transaction.
func (s *Store) PutTransfer(transfer *domain.Transfer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers[transfer.ID] = transfer.Clone()
}

// Entries returns the committed entries in insertion order.
func (s *Store) Entries() []*domain.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.Entry(nil), s.entries...)
}

// Events returns the committed outbox events in insertion order.
func (s *Store) Events() []*domain.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.OutboxEvent(nil), s.events...)
}

// Commits returns the number of successful commits.
func (s *Store) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

// Begin starts a transaction, waiting for any running one to finish.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	s.txLock.Lock()
	return &Tx{
		store:        s,
		accounts:     make(map[string]*domain.Account),
		transfers:    make(map[string]*domain.Transfer),
		fulfillments: make(map[string]*domain.FulfillmentRecord),
	}, nil
}

// Tx is a transaction on Store.
type Tx struct {
	store        *Store
	done         bool
	accounts     map[string]*domain.Account
	transfers    map[string]*domain.Transfer
	fulfillments map[string]*domain.FulfillmentRecord
	entries      []*domain.Entry
	events       []*domain.OutboxEvent
}

// Commit publishes the staged writes.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxClosed
	}
	t.done = true
	defer t.store.txLock.Unlock()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.FailNextCommit; err != nil {
		s.FailNextCommit = nil
		return err
	}

	for k, v := range t.accounts {
		s.accounts[k] = v
	}
	for k, v := range t.transfers {
		s.transfers[k] = v
	}
	for k, v := range t.fulfillments {
		s.fulfillments[k] = v
	}
	s.entries = append(s.entries, t.entries...)
	s.events = append(s.events, t.events...)
	s.commits++

	return nil
}

// Rollback discards the staged writes. It is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.txLock.Unlock()
	return nil
}

func (t *Tx) hasTransfer(id string) bool {
	if _, ok := t.transfers[id]; ok {
		return true
	}
	return t.store.Transfer(id) != nil
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	if tx == nil {
		return nil, nil
	}
	t, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("unexpected transaction type %T", tx)
	}
	if t.done {
		return nil, ErrTxClosed
	}
	return t, nil
}

// AccountRepository returns a usecase.AccountRepository backed by s.
func (s *Store) AccountRepository() usecase.AccountRepository {
	return accountRepo{s}
}

// TransferRepository returns a usecase.TransferRepository backed by s.
func (s *Store) TransferRepository() usecase.TransferRepository {
	return transferRepo{s}
}

// FulfillmentRepository returns a usecase.FulfillmentRepository backed by s.
func (s *Store) FulfillmentRepository() usecase.FulfillmentRepository {
	return fulfillmentRepo{s}
}

// EntryRepository returns a usecase.EntryRepository backed by s.
func (s *Store) EntryRepository() usecase.EntryRepository {
	return entryRepo{s}
}

// OutboxRepository returns a usecase.OutboxRepository backed by s.
func (s *Store) OutboxRepository() usecase.OutboxRepository {
	return outboxRepo{s}
}

type accountRepo struct{ s *Store }

func (r accountRepo) FindByName(ctx context.Context, tx usecase.Transaction, name string) (*domain.Account, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if t != nil {
		if a, ok := t.accounts[name]; ok {
			return cloneAccount(a), nil
		}
	}
	if a := r.s.Account(name); a != nil {
		return a, nil
	}
	return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, name)
}

func (r accountRepo) FindByNamesForUpdate(ctx context.Context, tx usecase.Transaction, names []string) ([]*domain.Account, error) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	var out []*domain.Account
	for _, n := range sorted {
		a, err := r.FindByName(ctx, tx, n)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r accountRepo) Save(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if t == nil {
		return errors.New("save requires a transaction")
	}
	t.accounts[account.Name] = cloneAccount(account)
	return nil
}

type transferRepo struct{ s *Store }

func (r transferRepo) GetByID(ctx context.Context, id string) (*domain.Transfer, error) {
	if t := r.s.Transfer(id); t != nil {
		return t, nil
	}
	return nil, domain.ErrTransferNotFound
}

func (r transferRepo) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transfer, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if t != nil {
		if staged, ok := t.transfers[id]; ok {
			return staged.Clone(), nil
		}
	}
	return r.GetByID(ctx, id)
}

func (r transferRepo) Create(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if t == nil {
		return errors.New("create requires a transaction")
	}
	if t.hasTransfer(transfer.ID) {
		return fmt.Errorf("%w: transfer %s", ErrDuplicateKey, transfer.ID)
	}
	t.transfers[transfer.ID] = transfer.Clone()
	return nil
}

func (r transferRepo) Upsert(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if t == nil {
		return errors.New("upsert requires a transaction")
	}
	t.transfers[transfer.ID] = transfer.Clone()
	return nil
}

func (r transferRepo) ListUnfinalizedWithExpiry(ctx context.Context) ([]*domain.Transfer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Transfer
	for _, t := range r.s.transfers {
		if !t.IsFinalized() && t.ExpiresAt != nil {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	return out, nil
}

type fulfillmentRepo struct{ s *Store }

func (r fulfillmentRepo) GetByTransfer(ctx context.Context, tx usecase.Transaction, transferID string) (*domain.FulfillmentRecord, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if t != nil {
		if f, ok := t.fulfillments[transferID]; ok {
			return cloneRecord(f), nil
		}
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if f, ok := r.s.fulfillments[transferID]; ok {
		return cloneRecord(f), nil
	}
	return nil, domain.ErrFulfillmentNotFound
}

func (r fulfillmentRepo) Upsert(ctx context.Context, tx usecase.Transaction, record *domain.FulfillmentRecord) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if t == nil {
		return errors.New("upsert requires a transaction")
	}
	if !t.hasTransfer(record.TransferID) {
		return fmt.Errorf("%w: fulfillment for transfer %s", ErrForeignKeyViolation, record.TransferID)
	}
	t.fulfillments[record.TransferID] = cloneRecord(record)
	return nil
}

type entryRepo struct{ s *Store }

func (r entryRepo) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if t == nil {
		return errors.New("create requires a transaction")
	}
	if !t.hasTransfer(entry.TransferID) {
		return fmt.Errorf("%w: entry for transfer %s", ErrForeignKeyViolation, entry.TransferID)
	}
	e := *entry
	t.entries = append(t.entries, &e)
	return nil
}

func (r entryRepo) GetByTransfer(ctx context.Context, transferID string) ([]*domain.Entry, error) {
	var out []*domain.Entry
	for _, e := range r.s.Entries() {
		if e.TransferID == transferID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r entryRepo) GetByAccount(ctx context.Context, accountName string, limit, offset int) ([]*domain.Entry, error) {
	var all []*domain.Entry
	for _, e := range r.s.Entries() {
		if e.AccountName == accountName {
			all = append(all, e)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// LedgerRepository returns a usecase.LedgerRepository over the committed
// entries and accounts.
func (s *Store) LedgerRepository() usecase.LedgerRepository {
	return ledgerRepo{s}
}

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) SumEntries(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range r.s.Entries() {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (r ledgerRepo) FindBalanceMismatches(ctx context.Context) ([]domain.BalanceMismatch, error) {
	latest := make(map[string]decimal.Decimal)
	for _, e := range r.s.Entries() {
		latest[e.AccountName] = e.ResultingBalance
	}

	names := make([]string, 0, len(latest))
	for name := range latest {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []domain.BalanceMismatch
	for _, name := range names {
		a := r.s.Account(name)
		if a == nil || a.Balance.Equal(latest[name]) {
			continue
		}
		out = append(out, domain.BalanceMismatch{Account: name, Balance: a.Balance, EntryBalance: latest[name]})
	}
	return out, nil
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if t == nil {
		return errors.New("create requires a transaction")
	}
	e := *event
	t.events = append(t.events, &e)
	return nil
}

func (r outboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	var out []*domain.OutboxEvent
	for _, e := range r.s.Events() {
		if !e.Published && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r outboxRepo) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.events {
		if e.ID == id {
			at := publishedAt
			e.Published = true
			e.PublishedAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r outboxRepo) DeletePublished(ctx context.Context, before time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.events[:0]
	for _, e := range r.s.events {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	r.s.events = kept
	return nil
}

// SequenceIDGenerator returns prefix-1, prefix-2, ...
type SequenceIDGenerator struct {
	mu     sync.Mutex
	n      int
	Prefix string
}

// Generate returns the next id.
func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	prefix := g.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return fmt.Sprintf("%s-%d", prefix, g.n)
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func cloneRecord(r *domain.FulfillmentRecord) *domain.FulfillmentRecord {
	c := *r
	c.Fulfillment = *r.Fulfillment.Clone()
	return &c
}
