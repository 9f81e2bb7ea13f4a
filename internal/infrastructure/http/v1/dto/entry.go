package dto

import (
	"time"

	"ledgerpulse/internal/core/apperror"
	"ledgerpulse/internal/core/id"
	"ledgerpulse/internal/core/types"
	"ledgerpulse/internal/domain/ledger"
	"ledgerpulse/internal/domain/settlement"
)

// CreateEntryRequest records one financial event.
// Amounts travel as strings so no precision is lost to JSON floats.
type CreateEntryRequest struct {
	EntryType     string  `json:"entryType" binding:"required"`
	Category      string  `json:"category" binding:"required"`
	PaymentMethod string  `json:"paymentMethod"`
	Amount        string  `json:"amount" binding:"required"`
	EntryDate     string  `json:"entryDate" binding:"required"`
	Notes         string  `json:"notes"`
	PartyID       *string `json:"partyId"`
}

// ToEntry converts the request into a domain entry for the given owner.
// Enum and amount validity is re-checked by Entry.Validate; this only
// converts wire types.
func (r *CreateEntryRequest) ToEntry(ownerID id.ID) (*ledger.Entry, error) {
	amount, err := types.NewMoneyFromString(r.Amount)
	if err != nil {
		return nil, apperror.NewValidation("invalid amount").
			WithDetail("field", "amount").
			WithDetail("value", r.Amount)
	}

	entryDate, err := ParseDate("entryDate", r.EntryDate)
	if err != nil {
		return nil, err
	}

	method := ledger.PaymentMethod(r.PaymentMethod)
	if r.PaymentMethod == "" {
		method = ledger.MethodNone
	}

	entry := ledger.NewEntry(ownerID, ledger.EntryType(r.EntryType), ledger.Category(r.Category), method, amount, entryDate)
	entry.Notes = r.Notes

	partyID, err := ParseOptionalID("partyId", r.PartyID)
	if err != nil {
		return nil, err
	}
	entry.PartyID = partyID

	return entry, nil
}

// ListEntriesRequest narrows the entry listing.
type ListEntriesRequest struct {
	DateFrom   string   `form:"dateFrom"`
	DateTo     string   `form:"dateTo"`
	Types      []string `form:"type"`
	Categories []string `form:"category"`
	Settled    *bool    `form:"settled"`
	PartyID    *string  `form:"partyId"`

	// Filter is an optional CEL expression evaluated per entry,
	// e.g. category == 'sales' && amount > 100.0
	Filter string `form:"filter"`

	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// ToFilter converts query parameters into a store filter.
func (r *ListEntriesRequest) ToFilter() (ledger.ListFilter, error) {
	filter := ledger.ListFilter{
		Settled: r.Settled,
		Limit:   r.Limit,
		Offset:  r.Offset,
	}

	var err error
	if filter.DateFrom, err = ParseOptionalDate("dateFrom", r.DateFrom); err != nil {
		return filter, err
	}
	if filter.DateTo, err = ParseOptionalDate("dateTo", r.DateTo); err != nil {
		return filter, err
	}

	for _, t := range r.Types {
		et := ledger.EntryType(t)
		if !et.Valid() {
			return filter, apperror.NewValidation("unknown entry type").
				WithDetail("field", "type").
				WithDetail("value", t)
		}
		filter.Types = append(filter.Types, et)
	}

	for _, cat := range r.Categories {
		c := ledger.Category(cat)
		if !c.Valid() {
			return filter, apperror.NewValidation("unknown category").
				WithDetail("field", "category").
				WithDetail("value", cat)
		}
		filter.Categories = append(filter.Categories, c)
	}

	if filter.PartyID, err = ParseOptionalID("partyId", r.PartyID); err != nil {
		return filter, err
	}

	return filter, nil
}

// EntryResponse is the wire form of a ledger entry.
type EntryResponse struct {
	ID              string     `json:"id"`
	EntryType       string     `json:"entryType"`
	Category        string     `json:"category"`
	PaymentMethod   string     `json:"paymentMethod"`
	Amount          string     `json:"amount"`
	RemainingAmount string     `json:"remainingAmount"`
	EntryDate       string     `json:"entryDate"`
	Settled         bool       `json:"settled"`
	SettledAt       *time.Time `json:"settledAt,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	PartyID         *string    `json:"partyId,omitempty"`
	SourceEntryID   *string    `json:"sourceEntryId,omitempty"`
	Version         int        `json:"version"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// FromEntry converts a domain entry to its wire form.
func FromEntry(e *ledger.Entry) EntryResponse {
	resp := EntryResponse{
		ID:              e.ID.String(),
		EntryType:       string(e.Type),
		Category:        string(e.Category),
		PaymentMethod:   string(e.PaymentMethod),
		Amount:          e.Amount.StringFixed(2),
		RemainingAmount: e.RemainingAmount.StringFixed(2),
		EntryDate:       e.EntryDate.Format(dateLayout),
		Settled:         e.Settled,
		SettledAt:       e.SettledAt,
		Notes:           e.Notes,
		Version:         e.Version,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
	if e.PartyID != nil {
		s := e.PartyID.String()
		resp.PartyID = &s
	}
	if e.SourceEntryID != nil {
		s := e.SourceEntryID.String()
		resp.SourceEntryID = &s
	}
	return resp
}

// FromEntries converts a slice of domain entries.
func FromEntries(entries []ledger.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, FromEntry(&entries[i]))
	}
	return out
}

// SettleEntryRequest applies a settlement to an outstanding entry.
type SettleEntryRequest struct {
	Amount         string  `json:"amount" binding:"required"`
	SettlementDate string  `json:"settlementDate" binding:"required"`
	PaymentMethod  *string `json:"paymentMethod"`

	// ExpectedRemaining is the balance the client last displayed.
	// When set, a mismatch under lock is reported as a conflict rather
	// than a generic over-settlement error.
	ExpectedRemaining *string `json:"expectedRemaining"`
}

// ToSettleRequest converts the wire request for the given entry.
func (r *SettleEntryRequest) ToSettleRequest(entryID id.ID) (settlement.SettleRequest, error) {
	req := settlement.SettleRequest{EntryID: entryID}

	amount, err := types.NewMoneyFromString(r.Amount)
	if err != nil {
		return req, apperror.NewValidation("invalid amount").
			WithDetail("field", "amount").
			WithDetail("value", r.Amount)
	}
	req.Amount = amount

	if req.SettlementDate, err = ParseDate("settlementDate", r.SettlementDate); err != nil {
		return req, err
	}

	if r.PaymentMethod != nil && *r.PaymentMethod != "" {
		m := ledger.PaymentMethod(*r.PaymentMethod)
		req.PaymentMethod = &m
	}

	if r.ExpectedRemaining != nil && *r.ExpectedRemaining != "" {
		expected, err := types.NewMoneyFromString(*r.ExpectedRemaining)
		if err != nil {
			return req, apperror.NewValidation("invalid expected remaining").
				WithDetail("field", "expectedRemaining").
				WithDetail("value", *r.ExpectedRemaining)
		}
		req.ExpectedRemaining = &expected
	}

	return req, nil
}

// SettleEntryResponse reports the committed effect of a settlement.
type SettleEntryResponse struct {
	Entry   EntryResponse  `json:"entry"`
	Derived *EntryResponse `json:"derived,omitempty"`
}

// FromSettlementResult converts a settlement result to its wire form.
func FromSettlementResult(res *settlement.Result) SettleEntryResponse {
	out := SettleEntryResponse{Entry: FromEntry(res.Entry)}
	if res.Derived != nil {
		derived := FromEntry(res.Derived)
		out.Derived = &derived
	}
	return out
}
