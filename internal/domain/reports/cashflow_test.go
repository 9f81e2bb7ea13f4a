package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpulse/internal/core/id"
	"ledgerpulse/internal/core/types"
	"ledgerpulse/internal/domain/ledger"
)

func newEntry(entryType ledger.EntryType, category ledger.Category, method ledger.PaymentMethod, amount string, daysAgo int) *ledger.Entry {
	return ledger.NewEntry(
		id.New(), entryType, category, method,
		types.MustMoney(amount),
		time.Now().UTC().AddDate(0, 0, -daysAgo),
	)
}

func TestBuildCashflowReport_Totals(t *testing.T) {
	entries := []ledger.Entry{
		*newEntry(ledger.TypeCashIn, ledger.CategorySales, ledger.MethodCash, "1000.00", 5),
		*newEntry(ledger.TypeCashIn, ledger.CategorySales, ledger.MethodBank, "500.00", 4),
		*newEntry(ledger.TypeCashOut, ledger.CategoryOpex, ledger.MethodCash, "300.00", 3),
		*newEntry(ledger.TypeAdvance, ledger.CategorySales, ledger.MethodBank, "200.00", 2),
		*newEntry(ledger.TypeAdvance, ledger.CategoryCOGS, ledger.MethodCash, "150.00", 1),
		// A credit sale moves no cash yet.
		*newEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "900.00", 1),
	}

	report := BuildCashflowReport(entries)

	assert.True(t, report.Inflow.Equal(types.MustMoney("1700.00")), "inflow = %s", report.Inflow)
	assert.True(t, report.Outflow.Equal(types.MustMoney("450.00")), "outflow = %s", report.Outflow)
	assert.True(t, report.Net.Equal(types.MustMoney("1250.00")), "net = %s", report.Net)

	cash := report.ByChannel[ledger.MethodCash]
	assert.True(t, cash.Inflow.Equal(types.MustMoney("1000.00")))
	assert.True(t, cash.Outflow.Equal(types.MustMoney("450.00")))

	bank := report.ByChannel[ledger.MethodBank]
	assert.True(t, bank.Inflow.Equal(types.MustMoney("700.00")))
}

func TestBuildCashflowReport_CreditSettlementScenario(t *testing.T) {
	// Credit sale of 1000, partially settled with 400 cash.
	credit := newEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "1000.00", 10)
	credit.RemainingAmount = types.MustMoney("600.00")
	credit.Version = 2

	derived := newEntry(ledger.TypeCashIn, ledger.CategorySales, ledger.MethodCash, "400.00", 2)
	derived.SourceEntryID = &credit.ID

	report := BuildCashflowReport([]ledger.Entry{*credit, *derived})

	// Only the settled portion is cash.
	assert.True(t, report.Inflow.Equal(types.MustMoney("400.00")), "inflow = %s", report.Inflow)

	// The unsettled remainder is a pending collection.
	require.Equal(t, 1, report.PendingCollections.Count)
	assert.True(t, report.PendingCollections.Total.Equal(types.MustMoney("600.00")))
}

func TestBuildCashflowReport_PendingBucketsByParty(t *testing.T) {
	partyA := id.New()
	partyB := id.New()

	c1 := newEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "100.00", 5)
	c1.PartyID = &partyA
	c2 := newEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "250.00", 4)
	c2.PartyID = &partyB
	c3 := newEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "50.00", 3)
	c3.PartyID = &partyA
	unattributed := newEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "999.00", 2)

	report := BuildCashflowReport([]ledger.Entry{*c1, *c2, *c3, *unattributed})

	bucket := report.PendingCollections
	assert.True(t, bucket.Total.Equal(types.MustMoney("1399.00")))
	assert.Equal(t, 4, bucket.Count)

	require.Len(t, bucket.ByParty, 3)
	// Attributed parties ranked by outstanding total, unattributed last.
	require.NotNil(t, bucket.ByParty[0].PartyID)
	assert.Equal(t, partyB.String(), *bucket.ByParty[0].PartyID)
	assert.True(t, bucket.ByParty[1].Total.Equal(types.MustMoney("150.00")))
	assert.Equal(t, 2, bucket.ByParty[1].Count)
	assert.Nil(t, bucket.ByParty[2].PartyID)
}

func TestBuildCashflowReport_AdvanceBuckets(t *testing.T) {
	received := newEntry(ledger.TypeAdvance, ledger.CategorySales, ledger.MethodBank, "500.00", 3)
	paid := newEntry(ledger.TypeAdvance, ledger.CategoryCOGS, ledger.MethodCash, "200.00", 2)

	report := BuildCashflowReport([]ledger.Entry{*received, *paid})

	assert.True(t, report.PendingAdvances.Received.Total.Equal(types.MustMoney("500.00")))
	assert.Equal(t, 1, report.PendingAdvances.Received.Count)
	assert.True(t, report.PendingAdvances.Paid.Total.Equal(types.MustMoney("200.00")))
	assert.Equal(t, 1, report.PendingAdvances.Paid.Count)
}

func TestBuildCashflowReport_InconsistentEntries(t *testing.T) {
	good := newEntry(ledger.TypeCashIn, ledger.CategorySales, ledger.MethodCash, "100.00", 1)
	bad := newEntry(ledger.TypeCashOut, ledger.CategoryOpex, ledger.MethodNone, "60.00", 1)

	report := BuildCashflowReport([]ledger.Entry{*good, *bad})

	assert.Equal(t, 1, report.InconsistentEntries)
	// The inconsistent entry is excluded from totals, not guessed at.
	assert.True(t, report.Outflow.IsZero(), "outflow = %s", report.Outflow)
	assert.True(t, report.Inflow.Equal(types.MustMoney("100.00")))
}

func TestBuildCashflowReport_SettlementHistoryOrder(t *testing.T) {
	older := newEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "100.00", 30)
	older.MarkSettled(time.Now().UTC().AddDate(0, 0, -10))

	newer := newEntry(ledger.TypeAdvance, ledger.CategoryCOGS, ledger.MethodCash, "200.00", 20)
	newer.MarkSettled(time.Now().UTC().AddDate(0, 0, -1))

	unsettled := newEntry(ledger.TypeCredit, ledger.CategorySales, ledger.MethodNone, "300.00", 5)

	report := BuildCashflowReport([]ledger.Entry{*older, *newer, *unsettled})

	require.Len(t, report.SettlementHistory, 2)
	assert.Equal(t, newer.ID, report.SettlementHistory[0].ID)
	assert.Equal(t, older.ID, report.SettlementHistory[1].ID)
}

func TestBuildCashflowReport_Empty(t *testing.T) {
	report := BuildCashflowReport(nil)

	assert.True(t, report.Inflow.IsZero())
	assert.True(t, report.Outflow.IsZero())
	assert.True(t, report.Net.IsZero())
	assert.Empty(t, report.SettlementHistory)
	assert.Equal(t, 0, report.PendingCollections.Count)
}
