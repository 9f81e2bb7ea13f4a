package ledger

import (
	"context"
	"fmt"

	"ledgerpulse/internal/core/id"
	"ledgerpulse/internal/core/tx"
	"ledgerpulse/pkg/logger"
)

// Service provides entry creation and read operations.
// Settlement mutations live in the settlement package; this service
// never touches an existing entry's balance.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new ledger entry service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// Create validates and stores a new entry.
func (s *Service) Create(ctx context.Context, e *Entry) error {
	if err := e.Validate(ctx); err != nil {
		return err
	}

	// Manually recorded entries never carry a settlement linkage.
	if e.IsSettlementDerived() {
		return fmt.Errorf("source entry reference is reserved for settlement-derived entries")
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Insert(ctx, e)
	})
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}

	logger.Info(ctx, "ledger entry created",
		"entry_id", e.ID,
		"entry_type", e.Type,
		"category", e.Category,
		"amount", e.Amount,
	)

	return nil
}

// GetByID retrieves a single entry for the owner.
func (s *Service) GetByID(ctx context.Context, ownerID, entryID id.ID) (*Entry, error) {
	return s.repo.GetByID(ctx, ownerID, entryID)
}

// List returns entries for an owner, optionally narrowed by a filter
// expression evaluated after the store-level filter.
func (s *Service) List(ctx context.Context, ownerID id.ID, filter ListFilter, expr string) ([]Entry, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}

	entries, err := s.repo.List(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	if expr != "" {
		f, err := CompileEntryFilter(expr)
		if err != nil {
			return nil, err
		}
		entries, err = f.Apply(entries)
		if err != nil {
			return nil, err
		}
	}

	return entries, nil
}
