package ledger

import (
	"context"
	"time"

	"ledgerpulse/internal/core/id"
)

// ListFilter narrows entry listing. All reads are owner-scoped; the
// owner is a separate argument, never part of the filter.
type ListFilter struct {
	// Date range over entry_date (inclusive from, exclusive to).
	DateFrom *time.Time
	DateTo   *time.Time

	Types      []EntryType
	Categories []Category

	// Settled filters by settlement state when non-nil.
	Settled *bool

	// PartyID filters to a single counterpart.
	PartyID *id.ID

	Limit  int
	Offset int
}

// Repository is the Ledger Store contract.
//
// LockEntry, Insert, Update, Delete and DeleteBySource are valid only
// inside an open transaction (tx.Manager.RunInTransaction); the lock
// acquired by LockEntry is held for the remainder of that transaction.
// GetByID and List are plain reads with no lock, reflecting some
// committed state.
type Repository interface {
	// GetByID retrieves an entry scoped to its owner.
	GetByID(ctx context.Context, ownerID, entryID id.ID) (*Entry, error)

	// LockEntry re-reads an entry under an exclusive row lock.
	// The settlement engine must not trust any balance read outside
	// this lock.
	LockEntry(ctx context.Context, ownerID, entryID id.ID) (*Entry, error)

	// Insert stores a new entry (including settlement-derived ones).
	Insert(ctx context.Context, e *Entry) error

	// Update persists entry mutations.
	Update(ctx context.Context, e *Entry) error

	// Delete removes an entry.
	Delete(ctx context.Context, ownerID, entryID id.ID) error

	// DeleteBySource removes derived entries linked to a source entry,
	// returning how many were removed.
	DeleteBySource(ctx context.Context, ownerID, sourceEntryID id.ID) (int64, error)

	// List returns entries for an owner, optionally filtered.
	List(ctx context.Context, ownerID id.ID, filter ListFilter) ([]Entry, error)
}
