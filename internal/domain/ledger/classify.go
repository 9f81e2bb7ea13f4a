package ledger

// Classification rules for the two read views.
//
// The asymmetry is deliberate and load-bearing: Credit entries count
// immediately for accrual but never for cash; Advance entries count
// for cash immediately but for accrual only once settled. Every
// aggregation must preserve it exactly, or the same economic event is
// counted twice.

// CashDirection tells which side of the cash view an entry falls on.
type CashDirection int

const (
	CashNone CashDirection = iota
	CashInflow
	CashOutflow
)

// CountsForCash reports whether money actually moved with this entry,
// and in which direction.
//
//   - CashIn/CashOut count only with a cash/bank method; an entry
//     recorded as a cash movement without one is an inconsistency and
//     excluded.
//   - Advance entries count the moment they are received/paid,
//     regardless of category or settlement state.
//   - Credit entries never count directly: their cash impact appears
//     later as a derived CashIn/CashOut at settlement time.
func CountsForCash(e *Entry) CashDirection {
	if !e.PaymentMethod.MovesMoney() {
		return CashNone
	}

	switch e.Type {
	case TypeCashIn:
		return CashInflow
	case TypeCashOut:
		return CashOutflow
	case TypeAdvance:
		if e.Category == CategorySales {
			return CashInflow
		}
		return CashOutflow
	}
	return CashNone
}

// IsCashInconsistent flags cash-movement entries recorded without a
// cash/bank method.
func IsCashInconsistent(e *Entry) bool {
	return (e.Type == TypeCashIn || e.Type == TypeCashOut) && !e.PaymentMethod.MovesMoney()
}

// IsPendingCollection matches unsettled credit sales awaiting payment
// from a customer.
func IsPendingCollection(e *Entry) bool {
	return e.Type == TypeCredit && e.Category == CategorySales && e.Outstanding()
}

// IsPendingBill matches unsettled credit purchases (COGS or Opex)
// awaiting payment to a vendor.
func IsPendingBill(e *Entry) bool {
	return e.Type == TypeCredit && (e.Category == CategoryCOGS || e.Category == CategoryOpex) && e.Outstanding()
}

// IsPendingAdvance matches advances still awaiting recognition.
// Sales advances were received from customers; all others were paid to
// vendors.
func IsPendingAdvance(e *Entry) bool {
	return e.Type == TypeAdvance && e.Outstanding()
}

// IsAdvanceReceived distinguishes a customer advance from a vendor one.
func IsAdvanceReceived(e *Entry) bool {
	return e.Category == CategorySales
}

// CountsForAccrual reports whether the entry contributes to the
// accrual view under its own category.
//
// The three-way rule, applied symmetrically to revenue (Sales) and
// expense (COGS/Opex):
//   - Credit: always, settled or not. A credit sale is revenue the
//     moment it is made.
//   - CashIn/CashOut: only when the entry is not itself
//     settlement-derived, otherwise the credit sale and its settlement
//     cash would both count.
//   - Advance: only once settled. Cash received in advance is not yet
//     earned.
//
// Assets never contribute to either side of the accrual view.
func CountsForAccrual(e *Entry) bool {
	if e.Category == CategoryAssets {
		return false
	}

	switch e.Type {
	case TypeCredit:
		return true
	case TypeCashIn, TypeCashOut:
		return !e.IsSettlementDerived()
	case TypeAdvance:
		return e.Settled
	}
	return false
}

// IsSettlementHistory matches entries that appear in the settlement
// history list: fully settled Credit or Advance entries.
func IsSettlementHistory(e *Entry) bool {
	return e.Settled && e.Type.Settleable()
}
