// Package reports builds the two read views over the ledger: the
// cash-basis view (how much cash moved) and the accrual-basis view
// (how much was earned or incurred).
package reports

import (
	"time"

	"ledgerpulse/internal/core/types"
	"ledgerpulse/internal/domain/ledger"
)

// Filter bounds a report to a date range over entry_date.
type Filter struct {
	DateFrom *time.Time
	DateTo   *time.Time
}

// ChannelFlow is the inflow/outflow pair for one payment channel.
type ChannelFlow struct {
	Inflow  types.Money `json:"inflow"`
	Outflow types.Money `json:"outflow"`
}

// PartyBalance is an outstanding total grouped by counterpart.
// Entries without a party are accumulated under a nil key and reported
// as unattributed.
type PartyBalance struct {
	PartyID *string     `json:"partyId,omitempty"`
	Total   types.Money `json:"total"`
	Count   int         `json:"count"`
}

// PendingBucket aggregates outstanding balances of one kind.
type PendingBucket struct {
	Total   types.Money    `json:"total"`
	Count   int            `json:"count"`
	ByParty []PartyBalance `json:"byParty,omitempty"`
}

// AdvanceBuckets splits pending advances by direction: received from
// customers (Sales) vs paid to vendors (everything else).
type AdvanceBuckets struct {
	Received PendingBucket `json:"received"`
	Paid     PendingBucket `json:"paid"`
}

// CashflowReport is the cash-basis view ("Cash Pulse").
type CashflowReport struct {
	Inflow  types.Money `json:"inflow"`
	Outflow types.Money `json:"outflow"`
	Net     types.Money `json:"net"`

	ByChannel map[ledger.PaymentMethod]ChannelFlow `json:"byChannel"`

	PendingCollections PendingBucket  `json:"pendingCollections"`
	PendingBills       PendingBucket  `json:"pendingBills"`
	PendingAdvances    AdvanceBuckets `json:"pendingAdvances"`

	// SettlementHistory lists fully settled Credit/Advance entries,
	// most recent settlement first.
	SettlementHistory []ledger.Entry `json:"settlementHistory"`

	// InconsistentEntries counts cash-movement entries recorded
	// without a cash/bank method; they are excluded from the totals.
	InconsistentEntries int `json:"inconsistentEntries"`
}

// ExpenseShare is one row of the ranked expense breakdown.
type ExpenseShare struct {
	Category ledger.Category `json:"category"`
	Amount   types.Money     `json:"amount"`
	// Share is the percentage of total COGS+Opex, 2 decimal places.
	Share types.Money `json:"share"`
}

// ProfitReport is the accrual-basis view ("Profit Lens").
type ProfitReport struct {
	Revenue           types.Money `json:"revenue"`
	COGS              types.Money `json:"cogs"`
	OperatingExpenses types.Money `json:"operatingExpenses"`

	GrossProfit types.Money `json:"grossProfit"`
	NetProfit   types.Money `json:"netProfit"`

	// Margins are ratios in percent, 2 decimal places; defined as 0
	// (not NaN) when revenue is zero.
	GrossMargin types.Money `json:"grossMargin"`
	NetMargin   types.Money `json:"netMargin"`

	ExpenseBreakdown []ExpenseShare `json:"expenseBreakdown"`
}
