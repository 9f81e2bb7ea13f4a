package reports

import (
	"sort"

	"ledgerpulse/internal/core/types"
	"ledgerpulse/internal/domain/ledger"
)

// BuildCashflowReport folds a set of entries into the cash-basis view.
// Pure function: no I/O, no mutation of the input.
func BuildCashflowReport(entries []ledger.Entry) CashflowReport {
	report := CashflowReport{
		Inflow:    types.Zero(),
		Outflow:   types.Zero(),
		Net:       types.Zero(),
		ByChannel: make(map[ledger.PaymentMethod]ChannelFlow),
	}

	collections := newBucketBuilder()
	bills := newBucketBuilder()
	advReceived := newBucketBuilder()
	advPaid := newBucketBuilder()

	for i := range entries {
		e := &entries[i]

		if ledger.IsCashInconsistent(e) {
			report.InconsistentEntries++
		}

		switch ledger.CountsForCash(e) {
		case ledger.CashInflow:
			report.Inflow = report.Inflow.Add(e.Amount)
			flow := report.ByChannel[e.PaymentMethod]
			flow.Inflow = flow.Inflow.Add(e.Amount)
			report.ByChannel[e.PaymentMethod] = flow
		case ledger.CashOutflow:
			report.Outflow = report.Outflow.Add(e.Amount)
			flow := report.ByChannel[e.PaymentMethod]
			flow.Outflow = flow.Outflow.Add(e.Amount)
			report.ByChannel[e.PaymentMethod] = flow
		}

		switch {
		case ledger.IsPendingCollection(e):
			collections.add(e)
		case ledger.IsPendingBill(e):
			bills.add(e)
		case ledger.IsPendingAdvance(e):
			if ledger.IsAdvanceReceived(e) {
				advReceived.add(e)
			} else {
				advPaid.add(e)
			}
		}

		if ledger.IsSettlementHistory(e) {
			report.SettlementHistory = append(report.SettlementHistory, *e)
		}
	}

	report.Net = report.Inflow.Sub(report.Outflow)
	report.PendingCollections = collections.build()
	report.PendingBills = bills.build()
	report.PendingAdvances = AdvanceBuckets{
		Received: advReceived.build(),
		Paid:     advPaid.build(),
	}

	sortSettlementHistory(report.SettlementHistory)

	return report
}

// sortSettlementHistory orders by settled_at descending, ties broken by
// the ISO date string of entry_date.
func sortSettlementHistory(history []ledger.Entry) {
	sort.SliceStable(history, func(i, j int) bool {
		a, b := history[i], history[j]
		switch {
		case a.SettledAt == nil:
			return false
		case b.SettledAt == nil:
			return true
		case !a.SettledAt.Equal(*b.SettledAt):
			return a.SettledAt.After(*b.SettledAt)
		}
		return a.EntryDate.Format("2006-01-02") > b.EntryDate.Format("2006-01-02")
	})
}

// bucketBuilder accumulates one pending bucket with per-party grouping.
type bucketBuilder struct {
	total   types.Money
	count   int
	byParty map[string]*PartyBalance
	order   []string
}

func newBucketBuilder() *bucketBuilder {
	return &bucketBuilder{
		total:   types.Zero(),
		byParty: make(map[string]*PartyBalance),
	}
}

func (b *bucketBuilder) add(e *ledger.Entry) {
	b.total = b.total.Add(e.RemainingAmount)
	b.count++

	key := ""
	var partyID *string
	if e.PartyID != nil {
		s := e.PartyID.String()
		key = s
		partyID = &s
	}

	balance, ok := b.byParty[key]
	if !ok {
		balance = &PartyBalance{PartyID: partyID, Total: types.Zero()}
		b.byParty[key] = balance
		b.order = append(b.order, key)
	}
	balance.Total = balance.Total.Add(e.RemainingAmount)
	balance.Count++
}

func (b *bucketBuilder) build() PendingBucket {
	bucket := PendingBucket{Total: b.total, Count: b.count}
	for _, key := range b.order {
		bucket.ByParty = append(bucket.ByParty, *b.byParty[key])
	}
	// Largest outstanding first; unattributed entries sort last.
	sort.SliceStable(bucket.ByParty, func(i, j int) bool {
		if (bucket.ByParty[i].PartyID == nil) != (bucket.ByParty[j].PartyID == nil) {
			return bucket.ByParty[j].PartyID == nil
		}
		return bucket.ByParty[i].Total.GreaterThan(bucket.ByParty[j].Total)
	})
	return bucket
}
