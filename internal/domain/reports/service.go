package reports

import (
	"context"
	"fmt"

	"ledgerpulse/internal/core/id"
	"ledgerpulse/internal/domain/ledger"
)

// Service generates read views for an owner. Read-only: it lists
// committed entries without locks and folds them in memory, so a
// re-run immediately reflects any settlement that committed before it.
type Service struct {
	repo ledger.Repository
}

// NewService creates a new reports service.
func NewService(repo ledger.Repository) *Service {
	return &Service{repo: repo}
}

// GetCashflow builds the cash-basis view for the owner.
func (s *Service) GetCashflow(ctx context.Context, ownerID id.ID, filter Filter) (*CashflowReport, error) {
	entries, err := s.loadEntries(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("cashflow report: %w", err)
	}

	report := BuildCashflowReport(entries)
	return &report, nil
}

// GetProfit builds the accrual-basis view for the owner.
func (s *Service) GetProfit(ctx context.Context, ownerID id.ID, filter Filter) (*ProfitReport, error) {
	entries, err := s.loadEntries(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("profit report: %w", err)
	}

	report := BuildProfitReport(entries)
	return &report, nil
}

func (s *Service) loadEntries(ctx context.Context, ownerID id.ID, filter Filter) ([]ledger.Entry, error) {
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, fmt.Errorf("dateFrom must be before dateTo")
	}

	return s.repo.List(ctx, ownerID, ledger.ListFilter{
		DateFrom: filter.DateFrom,
		DateTo:   filter.DateTo,
	})
}
