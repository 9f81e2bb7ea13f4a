// Package ledger provides the ledger entry model and classification rules.
package ledger

import (
	"context"
	"time"

	"ledgerpulse/internal/core/apperror"
	"ledgerpulse/internal/core/id"
	"ledgerpulse/internal/core/types"
)

// EntryType discriminates the four kinds of recorded financial events.
type EntryType string

const (
	TypeCashIn  EntryType = "cash_in"
	TypeCashOut EntryType = "cash_out"
	TypeCredit  EntryType = "credit"
	TypeAdvance EntryType = "advance"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case TypeCashIn, TypeCashOut, TypeCredit, TypeAdvance:
		return true
	}
	return false
}

// Settleable reports whether entries of this type carry an outstanding
// balance that can be settled.
func (t EntryType) Settleable() bool {
	return t == TypeCredit || t == TypeAdvance
}

// Category is the economic classification of an entry.
type Category string

const (
	CategorySales  Category = "sales"
	CategoryCOGS   Category = "cogs"
	CategoryOpex   Category = "opex"
	CategoryAssets Category = "assets"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategorySales, CategoryCOGS, CategoryOpex, CategoryAssets:
		return true
	}
	return false
}

// PaymentMethod is the channel money moved through, if any.
type PaymentMethod string

const (
	MethodCash PaymentMethod = "cash"
	MethodBank PaymentMethod = "bank"
	MethodNone PaymentMethod = "none"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBank, MethodNone:
		return true
	}
	return false
}

// MovesMoney reports whether the method represents an actual cash or
// bank movement. Entries recorded without one are excluded from cash
// totals and flagged as inconsistencies.
func (m PaymentMethod) MovesMoney() bool {
	return m == MethodCash || m == MethodBank
}

// MaxEntryAge bounds how far in the past an entry date may lie.
const MaxEntryAge = 5 * 365 * 24 * time.Hour

// Entry is the sole persisted entity: one recorded financial event.
//
// Credit and Advance entries carry an outstanding balance
// (RemainingAmount) that the settlement engine consumes; CashIn and
// CashOut entries are immutable once created, except for being
// referenced by a settlement-derived entry through SourceEntryID.
type Entry struct {
	ID      id.ID `db:"id" json:"id"`
	OwnerID id.ID `db:"owner_id" json:"ownerId"`

	Type          EntryType     `db:"entry_type" json:"entryType"`
	Category      Category      `db:"category" json:"category"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"paymentMethod"`

	// Amount is the original value; fixed at creation.
	Amount types.Money `db:"amount" json:"amount"`

	// RemainingAmount is the outstanding balance not yet settled.
	// Starts equal to Amount; monotonically non-increasing; only
	// meaningful for Credit/Advance entries.
	RemainingAmount types.Money `db:"remaining_amount" json:"remainingAmount"`

	// EntryDate is the date the economic event occurred.
	EntryDate time.Time `db:"entry_date" json:"entryDate"`

	// Settled is true exactly when RemainingAmount has reached zero.
	Settled   bool       `db:"settled" json:"settled"`
	SettledAt *time.Time `db:"settled_at" json:"settledAt,omitempty"`

	// Notes is free text for display only. Settlement linkage uses
	// SourceEntryID, never note parsing.
	Notes string `db:"notes" json:"notes,omitempty"`

	// PartyID optionally identifies the counterpart (customer/vendor),
	// used to group pending balances.
	PartyID *id.ID `db:"party_id" json:"partyId,omitempty"`

	// SourceEntryID back-references the Credit entry a derived cash
	// entry was created from. Nil for ordinary entries.
	SourceEntryID *id.ID `db:"source_entry_id" json:"sourceEntryId,omitempty"`

	// Version for optimistic bookkeeping (incremented on each update).
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewEntry creates an entry with generated ID and the outstanding
// balance initialized to the full amount.
func NewEntry(ownerID id.ID, entryType EntryType, category Category, method PaymentMethod, amount types.Money, entryDate time.Time) *Entry {
	now := time.Now().UTC()
	return &Entry{
		ID:              id.New(),
		OwnerID:         ownerID,
		Type:            entryType,
		Category:        category,
		PaymentMethod:   method,
		Amount:          amount,
		RemainingAmount: amount,
		EntryDate:       entryDate,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Touch updates the UpdatedAt timestamp and increments version.
func (e *Entry) Touch() {
	e.UpdatedAt = time.Now().UTC()
	e.Version++
}

// Validate checks entry invariants. Called once at the store boundary;
// entries read back from the store are trusted.
func (e *Entry) Validate(ctx context.Context) error {
	if id.IsNil(e.OwnerID) {
		return apperror.NewValidation("owner is required").
			WithDetail("field", "ownerId")
	}

	if !e.Type.Valid() {
		return apperror.NewValidation("unknown entry type").
			WithDetail("field", "entryType").
			WithDetail("value", string(e.Type))
	}

	if !e.Category.Valid() {
		return apperror.NewValidation("unknown category").
			WithDetail("field", "category").
			WithDetail("value", string(e.Category))
	}

	if !e.PaymentMethod.Valid() {
		return apperror.NewValidation("unknown payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", string(e.PaymentMethod))
	}

	if !types.InAmountRange(e.Amount) {
		return apperror.NewValidation("amount must be positive and within bounds").
			WithDetail("field", "amount").
			WithDetail("value", e.Amount.String())
	}

	if !types.HasValidScale(e.Amount) {
		return apperror.NewValidation("amount must have at most 2 decimal places").
			WithDetail("field", "amount").
			WithDetail("value", e.Amount.String())
	}

	if err := ValidateEventDate(e.EntryDate); err != nil {
		return err
	}

	if e.RemainingAmount.IsNegative() || e.RemainingAmount.GreaterThan(e.Amount) {
		return apperror.NewValidation("remaining amount out of range").
			WithDetail("field", "remainingAmount").
			WithDetail("value", e.RemainingAmount.String())
	}

	if e.Settled != e.RemainingAmount.IsZero() {
		return apperror.NewValidation("settled flag inconsistent with remaining amount").
			WithDetail("settled", e.Settled).
			WithDetail("remainingAmount", e.RemainingAmount.String())
	}

	return nil
}

// ValidateEventDate checks an economic event date: not in the future,
// not more than five years in the past.
func ValidateEventDate(d time.Time) error {
	if d.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}

	now := time.Now().UTC()
	if d.After(now.Truncate(24 * time.Hour).Add(24 * time.Hour)) {
		return apperror.NewValidation("date must not be in the future").
			WithDetail("field", "date").
			WithDetail("value", d.Format("2006-01-02"))
	}
	if d.Before(now.Add(-MaxEntryAge)) {
		return apperror.NewValidation("date must not be more than 5 years in the past").
			WithDetail("field", "date").
			WithDetail("value", d.Format("2006-01-02"))
	}
	return nil
}

// Outstanding reports whether the entry still carries an unsettled
// balance.
func (e *Entry) Outstanding() bool {
	return e.Type.Settleable() && !e.Settled && e.RemainingAmount.IsPositive()
}

// IsSettlementDerived reports whether the entry was created as the cash
// side-effect of settling a Credit entry.
func (e *Entry) IsSettlementDerived() bool {
	return e.SourceEntryID != nil && !id.IsNil(*e.SourceEntryID)
}

// MarkSettled zeroes the balance and stamps the final settlement date.
func (e *Entry) MarkSettled(settledAt time.Time) {
	e.RemainingAmount = types.Zero()
	e.Settled = true
	t := settledAt
	e.SettledAt = &t
	e.Touch()
}

// RestoreUnsettled reverts the entry to its pre-settlement state.
// Partial-settlement history is not preserved: the balance returns to
// the original amount.
func (e *Entry) RestoreUnsettled() {
	e.RemainingAmount = e.Amount
	e.Settled = false
	e.SettledAt = nil
	e.Touch()
}
