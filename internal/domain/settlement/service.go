// Package settlement provides the settlement engine: the only
// component that mutates existing ledger entries.
//
// Every operation runs as a single store transaction with the target
// row locked for its duration. The balance is re-read under that lock;
// a caller-supplied value is never trusted. Either the derived-entry
// write and the source-entry update both commit, or neither does.
package settlement

import (
	"context"
	"fmt"
	"time"

	"ledgerpulse/internal/core/apperror"
	appctx "ledgerpulse/internal/core/context"
	"ledgerpulse/internal/core/id"
	"ledgerpulse/internal/core/tx"
	"ledgerpulse/internal/core/types"
	"ledgerpulse/internal/domain/ledger"
	"ledgerpulse/internal/events"
	"ledgerpulse/pkg/logger"
)

// Auditor records settlement operations for operator diagnosis.
// Implementations live in infrastructure; recording is best-effort
// after commit.
type Auditor interface {
	Record(ctx context.Context, action string, entryID id.ID, changes any) error
}

// Service applies settlements and their reversals.
// It holds no in-memory state across calls; the store is the only
// shared mutable resource.
type Service struct {
	repo      ledger.Repository
	txManager tx.Manager
	publisher events.Publisher
	auditor   Auditor
}

// NewService creates a settlement service. Publisher and auditor may be
// nil-equivalents (events.NopPublisher, nil auditor) in tests.
func NewService(repo ledger.Repository, txManager tx.Manager, publisher events.Publisher, auditor Auditor) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		publisher: publisher,
		auditor:   auditor,
	}
}

// SettleRequest describes one settlement of an outstanding entry.
type SettleRequest struct {
	EntryID id.ID

	// Amount to settle; positive, at most 2 decimal places, no larger
	// than the remaining balance re-read under lock.
	Amount types.Money

	// SettlementDate is the business date of the settlement.
	SettlementDate time.Time

	// PaymentMethod for the derived cash entry. When nil, the source
	// entry's method is used if it is cash/bank, otherwise cash.
	PaymentMethod *ledger.PaymentMethod

	// ExpectedRemaining is the balance the caller last observed. When
	// set and the locked re-read disagrees, the request fails with a
	// concurrency conflict rather than a plain invalid-state error, so
	// the caller knows a retry with a recomputed amount may succeed.
	ExpectedRemaining *types.Money
}

// Result reports the committed effect of a settlement.
type Result struct {
	Entry *ledger.Entry `json:"entry"`

	// Derived is the cash entry created for a Credit settlement;
	// nil for Advance settlements.
	Derived *ledger.Entry `json:"derived,omitempty"`
}

// Settle applies a settlement to a Credit or Advance entry.
//
// For Credit entries exactly one derived CashIn (Sales) or CashOut
// (otherwise) entry is created, linked to the source via its
// source_entry_id column. For Advance entries no derived entry is
// created: the cash effect was recognized when the advance was first
// recorded.
func (s *Service) Settle(ctx context.Context, req SettleRequest) (*Result, error) {
	ownerID := appctx.GetOwnerID(ctx)
	if id.IsNil(ownerID) {
		return nil, apperror.NewUnauthorized("authentication required")
	}

	if err := s.validateSettleRequest(req); err != nil {
		return nil, err
	}

	var result Result
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.repo.LockEntry(ctx, ownerID, req.EntryID)
		if err != nil {
			return err
		}

		if err := s.checkSettleable(entry, req); err != nil {
			return err
		}

		if entry.Type == ledger.TypeCredit {
			derived := s.buildDerivedEntry(entry, req)
			if err := s.repo.Insert(ctx, derived); err != nil {
				return fmt.Errorf("insert derived entry: %w", err)
			}
			result.Derived = derived
		}

		remaining := types.FloorCents(entry.RemainingAmount.Sub(req.Amount))
		if remaining.IsPositive() {
			entry.RemainingAmount = remaining
			entry.Touch()
		} else {
			entry.MarkSettled(req.SettlementDate)
		}

		if err := s.repo.Update(ctx, entry); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}

		result.Entry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "settlement applied",
		"entry_id", req.EntryID,
		"amount", req.Amount,
		"remaining", result.Entry.RemainingAmount,
		"settled", result.Entry.Settled,
	)

	s.notify(ctx, events.TypeSettlementApplied, result.Entry, map[string]any{
		"amount":    req.Amount,
		"remaining": result.Entry.RemainingAmount,
		"settled":   result.Entry.Settled,
		"derived":   derivedID(result.Derived),
	})

	return &result, nil
}

// ReverseSettlement reverts a fully settled entry to its unsettled
// state. For Credit entries the derived cash entries are removed by
// their source reference. The balance is restored to the original
// amount; partial-settlement history is not preserved.
func (s *Service) ReverseSettlement(ctx context.Context, entryID id.ID) (*ledger.Entry, error) {
	ownerID := appctx.GetOwnerID(ctx)
	if id.IsNil(ownerID) {
		return nil, apperror.NewUnauthorized("authentication required")
	}

	var reversed *ledger.Entry
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.repo.LockEntry(ctx, ownerID, entryID)
		if err != nil {
			return err
		}

		if !entry.Type.Settleable() {
			return apperror.NewInvalidState(apperror.CodeNotSettleable,
				"only credit and advance entries can be reversed").
				WithDetail("entry_type", string(entry.Type))
		}
		if !entry.Settled {
			return apperror.NewInvalidState(apperror.CodeInvalidState,
				"entry is not settled").
				WithDetail("entry_id", entry.ID.String())
		}

		if entry.Type == ledger.TypeCredit {
			if _, err := s.repo.DeleteBySource(ctx, ownerID, entry.ID); err != nil {
				return fmt.Errorf("delete derived entries: %w", err)
			}
		}

		entry.RestoreUnsettled()
		if err := s.repo.Update(ctx, entry); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}

		reversed = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "settlement reversed",
		"entry_id", entryID,
		"restored_amount", reversed.RemainingAmount,
	)

	s.notify(ctx, events.TypeSettlementReversed, reversed, map[string]any{
		"restoredAmount": reversed.RemainingAmount,
	})

	return reversed, nil
}

// validateSettleRequest rejects malformed input before any store
// access.
func (s *Service) validateSettleRequest(req SettleRequest) error {
	if id.IsNil(req.EntryID) {
		return apperror.NewValidation("entry id is required").
			WithDetail("field", "entryId")
	}

	if !req.Amount.IsPositive() {
		return apperror.NewValidation("settlement amount must be positive").
			WithDetail("field", "amount").
			WithDetail("value", req.Amount.String())
	}

	if !types.HasValidScale(req.Amount) {
		return apperror.NewValidation("settlement amount must have at most 2 decimal places").
			WithDetail("field", "amount").
			WithDetail("value", req.Amount.String())
	}

	if err := ledger.ValidateEventDate(req.SettlementDate); err != nil {
		return err
	}

	if req.PaymentMethod != nil && !req.PaymentMethod.Valid() {
		return apperror.NewValidation("unknown payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", string(*req.PaymentMethod))
	}

	return nil
}

// checkSettleable validates the locked entry against the request.
func (s *Service) checkSettleable(entry *ledger.Entry, req SettleRequest) error {
	if !entry.Type.Settleable() {
		return apperror.NewInvalidState(apperror.CodeNotSettleable,
			"only credit and advance entries can be settled").
			WithDetail("entry_type", string(entry.Type))
	}

	if entry.Settled {
		return apperror.NewInvalidState(apperror.CodeAlreadySettled,
			"entry is already fully settled").
			WithDetail("entry_id", entry.ID.String())
	}

	if req.SettlementDate.Before(entry.EntryDate) {
		return apperror.NewValidation("settlement date precedes entry date").
			WithDetail("entryDate", entry.EntryDate.Format("2006-01-02")).
			WithDetail("settlementDate", req.SettlementDate.Format("2006-01-02"))
	}

	if req.Amount.GreaterThan(entry.RemainingAmount) {
		// A request that was valid against the caller's observed
		// balance lost a race with another settlement.
		if req.ExpectedRemaining != nil &&
			!req.ExpectedRemaining.Equal(entry.RemainingAmount) &&
			req.Amount.LessThanOrEqual(*req.ExpectedRemaining) {
			return apperror.NewConcurrentConflict("ledger entry", entry.ID.String()).
				WithDetail("expected_remaining", req.ExpectedRemaining.String()).
				WithDetail("actual_remaining", entry.RemainingAmount.String())
		}
		return apperror.NewExceedsRemaining(
			entry.ID.String(),
			req.Amount.String(),
			entry.RemainingAmount.String(),
		)
	}

	return nil
}

// buildDerivedEntry constructs the cash side-effect of a Credit
// settlement.
func (s *Service) buildDerivedEntry(source *ledger.Entry, req SettleRequest) *ledger.Entry {
	entryType := ledger.TypeCashOut
	if source.Category == ledger.CategorySales {
		entryType = ledger.TypeCashIn
	}

	method := ledger.MethodCash
	switch {
	case req.PaymentMethod != nil && req.PaymentMethod.MovesMoney():
		method = *req.PaymentMethod
	case source.PaymentMethod.MovesMoney():
		method = source.PaymentMethod
	}

	derived := ledger.NewEntry(source.OwnerID, entryType, source.Category, method, req.Amount, req.SettlementDate)
	sourceID := source.ID
	derived.SourceEntryID = &sourceID
	derived.PartyID = source.PartyID
	derived.Notes = fmt.Sprintf("Settlement of entry %s", source.ID)
	return derived
}

// notify publishes the event and writes the audit record after commit.
// Failures are logged, never surfaced: the settlement has already
// committed.
func (s *Service) notify(ctx context.Context, eventType string, entry *ledger.Entry, changes map[string]any) {
	err := s.publisher.Publish(ctx, events.Event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		OwnerID:    entry.OwnerID.String(),
		EntryID:    entry.ID.String(),
		Payload:    changes,
	})
	if err != nil {
		logger.Warn(ctx, "event publish failed", "event_type", eventType, "error", err)
	}

	if s.auditor != nil {
		if err := s.auditor.Record(ctx, eventType, entry.ID, changes); err != nil {
			logger.Warn(ctx, "audit record failed", "event_type", eventType, "error", err)
		}
	}
}

func derivedID(derived *ledger.Entry) string {
	if derived == nil {
		return ""
	}
	return derived.ID.String()
}
