package ledger

import (
	"context"
	"testing"
	"time"

	"ledgerpulse/internal/core/id"
	"ledgerpulse/internal/core/types"
)

func validEntry() *Entry {
	return NewEntry(
		id.New(),
		TypeCashIn,
		CategorySales,
		MethodCash,
		types.MustMoney("100.00"),
		time.Now().UTC().AddDate(0, 0, -1),
	)
}

func TestNewEntry_InitializesBalance(t *testing.T) {
	e := validEntry()

	if !e.RemainingAmount.Equal(e.Amount) {
		t.Errorf("expected remaining %s to equal amount %s", e.RemainingAmount, e.Amount)
	}
	if e.Settled {
		t.Error("new entry must not be settled")
	}
	if e.Version != 1 {
		t.Errorf("expected version 1, got %d", e.Version)
	}
}

func TestEntryValidate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(e *Entry)
		wantErr bool
	}{
		{"valid", func(e *Entry) {}, false},
		{"missing owner", func(e *Entry) { e.OwnerID = id.Nil() }, true},
		{"unknown type", func(e *Entry) { e.Type = "transfer" }, true},
		{"unknown category", func(e *Entry) { e.Category = "misc" }, true},
		{"unknown method", func(e *Entry) { e.PaymentMethod = "crypto" }, true},
		{"zero amount", func(e *Entry) {
			e.Amount = types.Zero()
			e.RemainingAmount = types.Zero()
			e.Settled = true
		}, true},
		{"negative amount", func(e *Entry) { e.Amount = types.MustMoney("-5.00") }, true},
		{"too many decimals", func(e *Entry) {
			e.Amount = types.MustMoney("10.001")
			e.RemainingAmount = e.Amount
		}, true},
		{"amount over bound", func(e *Entry) {
			e.Amount = types.MustMoney("1000000000.00")
			e.RemainingAmount = e.Amount
		}, true},
		{"future date", func(e *Entry) { e.EntryDate = time.Now().UTC().AddDate(0, 0, 2) }, true},
		{"too far past", func(e *Entry) { e.EntryDate = time.Now().UTC().AddDate(-6, 0, 0) }, true},
		{"remaining exceeds amount", func(e *Entry) { e.RemainingAmount = types.MustMoney("200.00") }, true},
		{"negative remaining", func(e *Entry) { e.RemainingAmount = types.MustMoney("-1.00") }, true},
		{"settled with balance", func(e *Entry) { e.Settled = true }, true},
		{"unsettled with zero balance", func(e *Entry) { e.RemainingAmount = types.Zero() }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(e)
			err := e.Validate(ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarkSettled(t *testing.T) {
	e := NewEntry(id.New(), TypeCredit, CategorySales, MethodNone, types.MustMoney("1000.00"), time.Now().UTC().AddDate(0, 0, -7))
	settledAt := time.Now().UTC()

	e.MarkSettled(settledAt)

	if !e.Settled {
		t.Error("expected settled")
	}
	if !e.RemainingAmount.IsZero() {
		t.Errorf("expected zero remaining, got %s", e.RemainingAmount)
	}
	if e.SettledAt == nil || !e.SettledAt.Equal(settledAt) {
		t.Error("expected settledAt to be stamped")
	}
	if e.Version != 2 {
		t.Errorf("expected version bump to 2, got %d", e.Version)
	}
}

func TestRestoreUnsettled(t *testing.T) {
	e := NewEntry(id.New(), TypeCredit, CategorySales, MethodNone, types.MustMoney("1000.00"), time.Now().UTC().AddDate(0, 0, -7))
	e.MarkSettled(time.Now().UTC())

	e.RestoreUnsettled()

	if e.Settled {
		t.Error("expected unsettled")
	}
	if !e.RemainingAmount.Equal(e.Amount) {
		t.Errorf("expected remaining restored to %s, got %s", e.Amount, e.RemainingAmount)
	}
	if e.SettledAt != nil {
		t.Error("expected settledAt cleared")
	}
}

func TestOutstanding(t *testing.T) {
	credit := NewEntry(id.New(), TypeCredit, CategorySales, MethodNone, types.MustMoney("100.00"), time.Now().UTC())
	if !credit.Outstanding() {
		t.Error("unsettled credit must be outstanding")
	}

	credit.MarkSettled(time.Now().UTC())
	if credit.Outstanding() {
		t.Error("settled credit must not be outstanding")
	}

	cash := validEntry()
	if cash.Outstanding() {
		t.Error("cash entries are never outstanding")
	}
}

func TestIsSettlementDerived(t *testing.T) {
	e := validEntry()
	if e.IsSettlementDerived() {
		t.Error("plain entry is not derived")
	}

	source := id.New()
	e.SourceEntryID = &source
	if !e.IsSettlementDerived() {
		t.Error("entry with source reference is derived")
	}
}
