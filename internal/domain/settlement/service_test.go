package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpulse/internal/core/apperror"
	appctx "ledgerpulse/internal/core/context"
	"ledgerpulse/internal/core/id"
	"ledgerpulse/internal/core/types"
	"ledgerpulse/internal/domain/ledger"
	"ledgerpulse/internal/events"
)

// memRepo is an in-memory ledger store. LockEntry hands out copies, so
// service-side mutations only become visible through Update, matching
// the transactional store.
type memRepo struct {
	mu      sync.Mutex
	entries map[id.ID]*ledger.Entry

	failUpdate bool
	failInsert bool
}

func newMemRepo() *memRepo {
	return &memRepo{entries: make(map[id.ID]*ledger.Entry)}
}

func (r *memRepo) put(e *ledger.Entry) {
	cp := *e
	r.entries[e.ID] = &cp
}

func (r *memRepo) get(entryID id.ID) *ledger.Entry {
	cp := *r.entries[entryID]
	return &cp
}

func (r *memRepo) GetByID(ctx context.Context, ownerID, entryID id.ID) (*ledger.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[entryID]
	if !ok || e.OwnerID != ownerID {
		return nil, apperror.NewNotFound("ledger entry", entryID.String())
	}
	cp := *e
	return &cp, nil
}

func (r *memRepo) LockEntry(ctx context.Context, ownerID, entryID id.ID) (*ledger.Entry, error) {
	return r.GetByID(ctx, ownerID, entryID)
}

func (r *memRepo) Insert(ctx context.Context, e *ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failInsert {
		return errors.New("insert failed")
	}
	r.put(e)
	return nil
}

func (r *memRepo) Update(ctx context.Context, e *ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate {
		return errors.New("update failed")
	}
	if _, ok := r.entries[e.ID]; !ok {
		return apperror.NewNotFound("ledger entry", e.ID.String())
	}
	r.put(e)
	return nil
}

func (r *memRepo) Delete(ctx context.Context, ownerID, entryID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, entryID)
	return nil
}

func (r *memRepo) DeleteBySource(ctx context.Context, ownerID, sourceEntryID id.ID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key, e := range r.entries {
		if e.OwnerID == ownerID && e.SourceEntryID != nil && *e.SourceEntryID == sourceEntryID {
			delete(r.entries, key)
			n++
		}
	}
	return n, nil
}

func (r *memRepo) List(ctx context.Context, ownerID id.ID, filter ledger.ListFilter) ([]ledger.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.Entry
	for _, e := range r.entries {
		if e.OwnerID == ownerID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memRepo) derivedOf(sourceID id.ID) []*ledger.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range r.entries {
		if e.SourceEntryID != nil && *e.SourceEntryID == sourceID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

func (r *memRepo) snapshot() map[id.ID]ledger.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make(map[id.ID]ledger.Entry, len(r.entries))
	for key, e := range r.entries {
		snap[key] = *e
	}
	return snap
}

func (r *memRepo) restore(snap map[id.ID]ledger.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[id.ID]*ledger.Entry, len(snap))
	for key, e := range snap {
		cp := e
		r.entries[key] = &cp
	}
}

// fakeTxManager snapshots the store before fn and restores it when fn
// fails, mirroring transactional rollback.
type fakeTxManager struct {
	repo *memRepo
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := m.repo.snapshot()
	if err := fn(ctx); err != nil {
		m.repo.restore(snap)
		return err
	}
	return nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type fixture struct {
	repo      *memRepo
	service   *Service
	publisher *recordingPublisher
	ownerID   id.ID
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemRepo()
	publisher := &recordingPublisher{}
	ownerID := id.New()
	return &fixture{
		repo:      repo,
		service:   NewService(repo, &fakeTxManager{repo: repo}, publisher, nil),
		publisher: publisher,
		ownerID:   ownerID,
		ctx: appctx.WithUser(context.Background(), &appctx.UserContext{
			UserID:  "tester",
			OwnerID: ownerID,
		}),
	}
}

func (f *fixture) addEntry(entryType ledger.EntryType, category ledger.Category, method ledger.PaymentMethod, amount string, daysAgo int) *ledger.Entry {
	e := ledger.NewEntry(
		f.ownerID, entryType, category, method,
		types.MustMoney(amount),
		time.Now().UTC().AddDate(0, 0, -daysAgo),
	)
	f.repo.put(e)
	return e
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.Code
}

func TestSettle_CreditPartial(t *testing.T) {
	f := newFixture(t)
	credit := f.addEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "1000.00", 10)

	result, err := f.service.Settle(f.ctx, SettleRequest{
		EntryID:        credit.ID,
		Amount:         types.MustMoney("400.00"),
		SettlementDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.True(t, result.Entry.RemainingAmount.Equal(types.MustMoney("600.00")))
	assert.False(t, result.Entry.Settled)

	require.NotNil(t, result.Derived)
	assert.Equal(t, ledger.TypeCashIn, result.Derived.Type)
	assert.Equal(t, ledger.CategorySales, result.Derived.Category)
	assert.Equal(t, ledger.MethodCash, result.Derived.PaymentMethod)
	assert.True(t, result.Derived.Amount.Equal(types.MustMoney("400.00")))
	require.NotNil(t, result.Derived.SourceEntryID)
	assert.Equal(t, credit.ID, *result.Derived.SourceEntryID)

	// Both writes are visible in the store.
	stored := f.repo.get(credit.ID)
	assert.True(t, stored.RemainingAmount.Equal(types.MustMoney("600.00")))
	assert.Len(t, f.repo.derivedOf(credit.ID), 1)
}

func TestSettle_CreditFull(t *testing.T) {
	f := newFixture(t)
	credit := f.addEntry(ledger.TypeCredit, ledger.CategoryCOGS, ledger.MethodNone, "650.00", 7)

	result, err := f.service.Settle(f.ctx, SettleRequest{
		EntryID:        credit.ID,
		Amount:         types.MustMoney("650.00"),
		SettlementDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.True(t, result.Entry.Settled)
	assert.True(t, result.Entry.RemainingAmount.IsZero())
	require.NotNil(t, result.Entry.SettledAt)

	// A COGS credit settles as cash going out.
	require.NotNil(t, result.Derived)
	assert.Equal(t, ledger.TypeCashOut, result.Derived.Type)
}

func TestSettle_AdvanceCreatesNoDerivedEntry(t *testing.T) {
	f := newFixture(t)
	advance := f.addEntry(ledger.TypeAdvance, ledger.CategorySales, ledger.MethodBank, "500.00", 3)

	result, err := f.service.Settle(f.ctx, SettleRequest{
		EntryID:        advance.ID,
		Amount:         types.MustMoney("500.00"),
		SettlementDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.True(t, result.Entry.Settled)
	assert.Nil(t, result.Derived, "advance cash was recognized at receipt")
	assert.Empty(t, f.repo.derivedOf(advance.ID))
}

func TestSettle_PaymentMethodSelection(t *testing.T) {
	f := newFixture(t)

	// Explicit method on the request wins.
	credit := f.addEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "100.00", 5)
	bank := ledger.MethodBank
	result, err := f.service.Settle(f.ctx, SettleRequest{
		EntryID:        credit.ID,
		Amount:         types.MustMoney("100.00"),
		SettlementDate: time.Now().UTC(),
		PaymentMethod:  &bank,
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.MethodBank, result.Derived.PaymentMethod)

	// Without one, a source without a money-moving method falls back to cash.
	credit2 := f.addEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "100.00", 5)
	result, err = f.service.Settle(f.ctx, SettleRequest{
		EntryID:        credit2.ID,
		Amount:         types.MustMoney("100.00"),
		SettlementDate: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.MethodCash, result.Derived.PaymentMethod)
}

func TestSettle_OverSettlement(t *testing.T) {
	f := newFixture(t)
	credit := f.addEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "100.00", 5)

	_, err := f.service.Settle(f.ctx, SettleRequest{
		EntryID:        credit.ID,
		Amount:         types.MustMoney("150.00"),
		SettlementDate: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeExceedsRemaining, errCode(t, err))

	// Store untouched.
	stored := f.repo.get(credit.ID)
	assert.True(t, stored.RemainingAmount.Equal(types.MustMoney("100.00")))
	assert.Empty(t, f.repo.derivedOf(credit.ID))
}

func TestSettle_ConcurrentConflict(t *testing.T) {
	f := newFixture(t)
	credit := f.addEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "1000.00", 5)

	// First caller settles 700 of the observed 1000.
	_, err := f.service.Settle(f.ctx, SettleRequest{
		EntryID:        credit.ID,
		Amount:         types.MustMoney("700.00"),
		SettlementDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	// Second caller still believes 1000 remains and asks for 500:
	// valid against its observation, stale against the store.
	expected := types.MustMoney("1000.00")
	_, err = f.service.Settle(f.ctx, SettleRequest{
		EntryID:           credit.ID,
		Amount:            types.MustMoney("500.00"),
		SettlementDate:    time.Now().UTC(),
		ExpectedRemaining: &expected,
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeConcurrentConflict, errCode(t, err))

	// Without the observed balance the same request is a plain
	// over-settlement.
	_, err = f.service.Settle(f.ctx, SettleRequest{
		EntryID:        credit.ID,
		Amount:         types.MustMoney("500.00"),
		SettlementDate: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeExceedsRemaining, errCode(t, err))
}

func TestSettle_StateErrors(t *testing.T) {
	f := newFixture(t)

	cash := f.addEntry(ledger.TypeCashIn, ledger.CategorySales, ledger.MethodCash, "100.00", 5)
	_, err := f.service.Settle(f.ctx, SettleRequest{
		EntryID:        cash.ID,
		Amount:         types.MustMoney("50.00"),
		SettlementDate: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeNotSettleable, errCode(t, err))

	credit := f.addEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "100.00", 5)
	_, err = f.service.Settle(f.ctx, SettleRequest{
		EntryID:        credit.ID,
		Amount:         types.MustMoney("100.00"),
		SettlementDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = f.service.Settle(f.ctx, SettleRequest{
		EntryID:        credit.ID,
		Amount:         types.MustMoney("1.00"),
		SettlementDate: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeAlreadySettled, errCode(t, err))
}

func TestSettle_DateBeforeEntryDate(t *testing.T) {
	f := newFixture(t)
	credit := f.addEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "100.00", 5)

	_, err := f.service.Settle(f.ctx, SettleRequest{
		EntryID:        credit.ID,
		Amount:         types.MustMoney("50.00"),
		SettlementDate: time.Now().UTC().AddDate(0, 0, -10),
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeValidation, errCode(t, err))
}

func TestSettle_ValidationErrors(t *testing.T) {
	f := newFixture(t)
	credit := f.addEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "100.00", 5)

	tests := []struct {
		name string
		req  SettleRequest
	}{
		{"zero amount", SettleRequest{EntryID: credit.ID, Amount: types.Zero(), SettlementDate: time.Now().UTC()}},
		{"negative amount", SettleRequest{EntryID: credit.ID, Amount: types.MustMoney("-10.00"), SettlementDate: time.Now().UTC()}},
		{"excess scale", SettleRequest{EntryID: credit.ID, Amount: types.MustMoney("10.001"), SettlementDate: time.Now().UTC()}},
		{"missing date", SettleRequest{EntryID: credit.ID, Amount: types.MustMoney("10.00")}},
		{"missing entry id", SettleRequest{Amount: types.MustMoney("10.00"), SettlementDate: time.Now().UTC()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Settle(f.ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, apperror.CodeValidation, errCode(t, err))
		})
	}
}

func TestSettle_Unauthorized(t *testing.T) {
	f := newFixture(t)
	credit := f.addEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "100.00", 5)

	_, err := f.service.Settle(context.Background(), SettleRequest{
		EntryID:        credit.ID,
		Amount:         types.MustMoney("50.00"),
		SettlementDate: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeUnauthorized, errCode(t, err))
}

func TestSettle_OtherOwnerEntryNotAccessible(t *testing.T) {
	f := newFixture(t)
	credit := f.addEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "100.00", 5)

	strangerCtx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:  "stranger",
		OwnerID: id.New(),
	})

	_, err := f.service.Settle(strangerCtx, SettleRequest{
		EntryID:        credit.ID,
		Amount:         types.MustMoney("50.00"),
		SettlementDate: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestSettle_RollbackOnUpdateFailure(t *testing.T) {
	f := newFixture(t)
	credit := f.addEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "1000.00", 5)

	f.repo.failUpdate = true
	_, err := f.service.Settle(f.ctx, SettleRequest{
		EntryID:        credit.ID,
		Amount:         types.MustMoney("400.00"),
		SettlementDate: time.Now().UTC(),
	})
	require.Error(t, err)

	// The derived insert succeeded inside the transaction but the
	// rollback must take it with the failed update.
	assert.Empty(t, f.repo.derivedOf(credit.ID))
	stored := f.repo.get(credit.ID)
	assert.True(t, stored.RemainingAmount.Equal(types.MustMoney("1000.00")))
	assert.Empty(t, f.publisher.events, "no event for an uncommitted settlement")
}

func TestReverseSettlement(t *testing.T) {
	f := newFixture(t)
	credit := f.addEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "1000.00", 10)

	// Settle in two steps, then reverse.
	for _, amount := range []string{"400.00", "600.00"} {
		_, err := f.service.Settle(f.ctx, SettleRequest{
			EntryID:        credit.ID,
			Amount:         types.MustMoney(amount),
			SettlementDate: time.Now().UTC(),
		})
		require.NoError(t, err)
	}
	require.Len(t, f.repo.derivedOf(credit.ID), 2)

	reversed, err := f.service.ReverseSettlement(f.ctx, credit.ID)
	require.NoError(t, err)

	assert.False(t, reversed.Settled)
	assert.True(t, reversed.RemainingAmount.Equal(types.MustMoney("1000.00")), "full balance restored")
	assert.Nil(t, reversed.SettledAt)
	assert.Empty(t, f.repo.derivedOf(credit.ID), "derived cash entries removed")
}

func TestReverseSettlement_Advance(t *testing.T) {
	f := newFixture(t)
	advance := f.addEntry(ledger.TypeAdvance, ledger.CategoryCOGS, ledger.MethodCash, "300.00", 4)

	_, err := f.service.Settle(f.ctx, SettleRequest{
		EntryID:        advance.ID,
		Amount:         types.MustMoney("300.00"),
		SettlementDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	reversed, err := f.service.ReverseSettlement(f.ctx, advance.ID)
	require.NoError(t, err)
	assert.False(t, reversed.Settled)
	assert.True(t, reversed.RemainingAmount.Equal(types.MustMoney("300.00")))
}

func TestReverseSettlement_Errors(t *testing.T) {
	f := newFixture(t)

	unsettled := f.addEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "100.00", 5)
	_, err := f.service.ReverseSettlement(f.ctx, unsettled.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidState, errCode(t, err))

	cash := f.addEntry(ledger.TypeCashIn, ledger.CategorySales, ledger.MethodCash, "100.00", 5)
	_, err = f.service.ReverseSettlement(f.ctx, cash.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeNotSettleable, errCode(t, err))

	_, err = f.service.ReverseSettlement(context.Background(), unsettled.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeUnauthorized, errCode(t, err))
}

func TestSettle_PublishesEvent(t *testing.T) {
	f := newFixture(t)
	credit := f.addEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "100.00", 5)

	_, err := f.service.Settle(f.ctx, SettleRequest{
		EntryID:        credit.ID,
		Amount:         types.MustMoney("100.00"),
		SettlementDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, events.TypeSettlementApplied, event.Type)
	assert.Equal(t, credit.ID.String(), event.EntryID)
	assert.Equal(t, f.ownerID.String(), event.OwnerID)

	_, err = f.service.ReverseSettlement(f.ctx, credit.ID)
	require.NoError(t, err)
	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, events.TypeSettlementReversed, f.publisher.events[1].Type)
}

func TestSettle_FloorsRemainderToCents(t *testing.T) {
	f := newFixture(t)
	credit := f.addEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "100.00", 5)

	_, err := f.service.Settle(f.ctx, SettleRequest{
		EntryID:        credit.ID,
		Amount:         types.MustMoney("33.33"),
		SettlementDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	stored := f.repo.get(credit.ID)
	assert.True(t, stored.RemainingAmount.Equal(types.MustMoney("66.67")))
	assert.True(t, types.HasValidScale(stored.RemainingAmount))
}
