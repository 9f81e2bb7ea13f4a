package ledger

import (
	"testing"
	"time"

	"ledgerpulse/internal/core/id"
	"ledgerpulse/internal/core/types"
)

func TestCompileEntryFilter(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"simple comparison", `category == 'sales'`, false},
		{"amount threshold", `amount > 100.0`, false},
		{"compound", `entryType == 'credit' && !settled`, false},
		{"notes match", `notes.contains('invoice')`, false},
		{"syntax error", `category ==`, true},
		{"unknown variable", `warehouse == 'main'`, true},
		{"non-boolean result", `amount + 1.0`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileEntryFilter(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("CompileEntryFilter(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestEntryFilterApply(t *testing.T) {
	ownerID := id.New()
	date := time.Now().UTC().AddDate(0, 0, -1)

	sale := NewEntry(ownerID, TypeCashIn, CategorySales, MethodCash, types.MustMoney("250.00"), date)
	smallSale := NewEntry(ownerID, TypeCashIn, CategorySales, MethodBank, types.MustMoney("40.00"), date)
	credit := NewEntry(ownerID, TypeCredit, CategoryCOGS, MethodNone, types.MustMoney("600.00"), date)
	entries := []Entry{*sale, *smallSale, *credit}

	f, err := CompileEntryFilter(`category == 'sales' && amount > 100.0`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	matched, err := f.Apply(entries)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(matched) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matched))
	}
	if matched[0].ID != sale.ID {
		t.Errorf("expected the large sale to match")
	}
}

func TestEntryFilterDerivedFlag(t *testing.T) {
	ownerID := id.New()
	date := time.Now().UTC().AddDate(0, 0, -1)

	plain := NewEntry(ownerID, TypeCashIn, CategorySales, MethodCash, types.MustMoney("100.00"), date)
	source := id.New()
	derived := NewEntry(ownerID, TypeCashIn, CategorySales, MethodCash, types.MustMoney("100.00"), date)
	derived.SourceEntryID = &source

	f, err := CompileEntryFilter(`derived`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	matched, err := f.Apply([]Entry{*plain, *derived})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(matched) != 1 || matched[0].ID != derived.ID {
		t.Errorf("expected only the derived entry to match")
	}
}
