package service_test

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/subscription-billing-ledger/internal/domain/asset"
	"github.com/subscription-billing-ledger/internal/domain/journal"
	"github.com/subscription-billing-ledger/internal/domain/money"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
	"github.com/subscription-billing-ledger/internal/domain/transaction"
)

// memStore is an in-memory ledger. Row locks taken through a fakeTx are held
// until the transaction ends, like SELECT ... FOR UPDATE.
type memStore struct {
	mu           sync.Mutex
	assets       map[uuid.UUID]asset.Asset
	subs         map[uuid.UUID]subscription.Subscription
	transactions []transaction.Transaction
	journal      []journal.Entry
	rowLocks     map[uuid.UUID]*sync.Mutex

	listDueErr     error
	assetLockErrs  []error // consumed one per asset lock
	createTxErr    error
	execStatements []string
	commits        int
	rollbacks      int
}

func newMemStore() *memStore {
	return &memStore{
		assets:   make(map[uuid.UUID]asset.Asset),
		subs:     make(map[uuid.UUID]subscription.Subscription),
		rowLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *memStore) rowLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.rowLocks[id] = l
	}
	return l
}

func (s *memStore) putAsset(a *asset.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.ID] = *a
}

func (s *memStore) putSub(sub *subscription.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.ID] = *sub
}

func (s *memStore) asset(id uuid.UUID) asset.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assets[id]
}

func (s *memStore) sub(id uuid.UUID) subscription.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[id]
}

func (s *memStore) txs() []transaction.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transaction.Transaction(nil), s.transactions...)
}

func (s *memStore) entries() []journal.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]journal.Entry(nil), s.journal...)
}

// Begin implements persistence.TxBeginner
func (s *memStore) Begin(context.Context) (pgx.Tx, error) {
	return &fakeTx{store: s}, nil
}

// fakeTx satisfies pgx.Tx for the calls the billing engine makes. Any other
// method panics on the nil embedded interface.
type fakeTx struct {
	pgx.Tx
	store    *memStore
	unlocks  []func()
	finished bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.store.mu.Lock()
	t.store.execStatements = append(t.store.execStatements, sql)
	t.store.mu.Unlock()
	return pgconn.NewCommandTag("SET"), nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.end(func() { t.store.commits++ })
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.end(func() { t.store.rollbacks++ })
	return nil
}

func (t *fakeTx) end(count func()) {
	if t.finished {
		return
	}
	t.finished = true
	t.store.mu.Lock()
	count()
	t.store.mu.Unlock()
	for i := len(t.unlocks) - 1; i >= 0; i-- {
		t.unlocks[i]()
	}
}

func (t *fakeTx) lock(id uuid.UUID) {
	l := t.store.rowLock(id)
	l.Lock()
	t.unlocks = append(t.unlocks, l.Unlock)
}

func txOf(tx pgx.Tx) *fakeTx {
	ft, _ := tx.(*fakeTx)
	return ft
}

var errNotImplemented = errors.New("not implemented in memStore")

// memSubscriptions implements subscription.Repository
type memSubscriptions struct {
	store *memStore
	tx    *fakeTx
}

func (r *memSubscriptions) Create(_ context.Context, sub *subscription.Subscription) error {
	r.store.putSub(sub)
	return nil
}

func (r *memSubscriptions) GetByID(_ context.Context, ownerID, id uuid.UUID) (*subscription.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sub, ok := r.store.subs[id]
	if !ok || sub.OwnerID != ownerID {
		return nil, subscription.ErrSubscriptionNotFound{SubscriptionID: id}
	}
	return &sub, nil
}

func (r *memSubscriptions) List(context.Context, uuid.UUID, *subscription.Status) ([]*subscription.Subscription, error) {
	return nil, errNotImplemented
}

func (r *memSubscriptions) Update(_ context.Context, sub *subscription.Subscription) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.subs[sub.ID]
	if !ok || stored.Version != sub.Version-1 {
		return subscription.ErrConcurrentModification{SubscriptionID: sub.ID}
	}
	r.store.subs[sub.ID] = *sub
	return nil
}

func (r *memSubscriptions) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return errNotImplemented
}

func (r *memSubscriptions) ListDue(_ context.Context, ownerID uuid.UUID, targetDate time.Time) ([]*subscription.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.listDueErr != nil {
		return nil, r.store.listDueErr
	}
	due := []*subscription.Subscription{}
	for _, sub := range r.store.subs {
		sub := sub
		if sub.OwnerID == ownerID && sub.IsDue(targetDate) {
			due = append(due, &sub)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextBillingDate.Equal(due[j].NextBillingDate) {
			return due[i].NextBillingDate.Before(due[j].NextBillingDate)
		}
		return bytes.Compare(due[i].ID[:], due[j].ID[:]) < 0
	})
	return due, nil
}

func (r *memSubscriptions) ListUpcoming(context.Context, uuid.UUID, time.Time, time.Time) ([]*subscription.Upcoming, error) {
	return nil, errNotImplemented
}

func (r *memSubscriptions) OwnersWithDue(context.Context, time.Time) ([]uuid.UUID, error) {
	return nil, errNotImplemented
}

func (r *memSubscriptions) LockForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*subscription.Subscription, error) {
	if r.tx != nil {
		r.tx.lock(id)
	}
	return r.GetByID(ctx, ownerID, id)
}

func (r *memSubscriptions) WithTx(tx pgx.Tx) subscription.Repository {
	return &memSubscriptions{store: r.store, tx: txOf(tx)}
}

// memAssets implements asset.Repository
type memAssets struct {
	store *memStore
	tx    *fakeTx
}

func (r *memAssets) Create(_ context.Context, a *asset.Asset) error {
	r.store.putAsset(a)
	return nil
}

func (r *memAssets) GetByID(_ context.Context, ownerID, id uuid.UUID) (*asset.Asset, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.assets[id]
	if !ok || a.OwnerID != ownerID {
		return nil, asset.ErrAssetNotFound{AssetID: id}
	}
	return &a, nil
}

func (r *memAssets) List(context.Context, uuid.UUID) ([]*asset.Asset, error) {
	return nil, errNotImplemented
}

func (r *memAssets) Total(context.Context, uuid.UUID) (money.Money, error) {
	return money.Zero, errNotImplemented
}

func (r *memAssets) UpdateDetails(context.Context, *asset.Asset) error {
	return errNotImplemented
}

func (r *memAssets) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return errNotImplemented
}

func (r *memAssets) LockForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*asset.Asset, error) {
	r.store.mu.Lock()
	if len(r.store.assetLockErrs) > 0 {
		err := r.store.assetLockErrs[0]
		r.store.assetLockErrs = r.store.assetLockErrs[1:]
		r.store.mu.Unlock()
		return nil, err
	}
	r.store.mu.Unlock()

	if r.tx != nil {
		r.tx.lock(id)
	}
	return r.GetByID(ctx, ownerID, id)
}

func (r *memAssets) Debit(_ context.Context, id uuid.UUID, amount money.Money, version int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.assets[id]
	if !ok || a.Version != version || a.Balance.Cmp(amount) < 0 {
		return asset.ErrConcurrentModification{AssetID: id}
	}
	a.Balance = a.Balance.Sub(amount)
	a.Version++
	r.store.assets[id] = a
	return nil
}

func (r *memAssets) Credit(_ context.Context, id uuid.UUID, amount money.Money, version int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.assets[id]
	if !ok || a.Version != version {
		return asset.ErrConcurrentModification{AssetID: id}
	}
	a.Balance = a.Balance.Add(amount)
	a.Version++
	r.store.assets[id] = a
	return nil
}

func (r *memAssets) WithTx(tx pgx.Tx) asset.Repository {
	return &memAssets{store: r.store, tx: txOf(tx)}
}

// memTransactions implements transaction.Repository
type memTransactions struct {
	store *memStore
}

func (r *memTransactions) Create(_ context.Context, tx *transaction.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.createTxErr != nil {
		return r.store.createTxErr
	}
	r.store.transactions = append(r.store.transactions, *tx)
	return nil
}

func (r *memTransactions) GetByID(context.Context, uuid.UUID, uuid.UUID) (*transaction.Transaction, error) {
	return nil, errNotImplemented
}

func (r *memTransactions) List(context.Context, uuid.UUID, transaction.Filter) ([]*transaction.Transaction, error) {
	return nil, errNotImplemented
}

func (r *memTransactions) WithTx(pgx.Tx) transaction.Repository {
	return r
}

// memOutbox implements service.OutboxManager by journaling directly
type memOutbox struct {
	store *memStore
}

func (m *memOutbox) CreateChargeEntry(_ context.Context, _ pgx.Tx, entry *journal.Entry) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.journal = append(m.store.journal, *entry)
	return nil
}
