package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"ledgerpulse/internal/core/apperror"
	"ledgerpulse/internal/core/id"
	"ledgerpulse/internal/domain/ledger"
)

const entriesTable = "ledger_entries"

var entryColumns = []string{
	"id", "owner_id", "entry_type", "category", "payment_method",
	"amount", "remaining_amount", "entry_date",
	"settled", "settled_at", "notes", "party_id", "source_entry_id",
	"version", "created_at", "updated_at",
}

// Compile-time check that LedgerRepo implements ledger.Repository.
var _ ledger.Repository = (*LedgerRepo)(nil)

// LedgerRepo is the PostgreSQL implementation of the ledger store.
// Every query carries the owner_id predicate; there is no unscoped
// access path.
type LedgerRepo struct {
	txManager *TxManager
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txManager *TxManager) *LedgerRepo {
	return &LedgerRepo{txManager: txManager}
}

// builder returns a squirrel builder with PostgreSQL placeholder format.
func (r *LedgerRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *LedgerRepo) baseSelect(ownerID, entryID id.ID) squirrel.SelectBuilder {
	return r.builder().
		Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{"id": entryID}).
		Where(squirrel.Eq{"owner_id": ownerID})
}

// GetByID retrieves an entry scoped to its owner.
func (r *LedgerRepo) GetByID(ctx context.Context, ownerID, entryID id.ID) (*ledger.Entry, error) {
	q := r.baseSelect(ownerID, entryID).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entry ledger.Entry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &entry, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("ledger entry", entryID.String())
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}

	return &entry, nil
}

// LockEntry re-reads an entry under FOR UPDATE. Valid only inside an
// open transaction; the lock is held until the transaction ends.
func (r *LedgerRepo) LockEntry(ctx context.Context, ownerID, entryID id.ID) (*ledger.Entry, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, apperror.NewInternal(errors.New("LockEntry called outside a transaction"))
	}

	q := r.baseSelect(ownerID, entryID).Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entry ledger.Entry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &entry, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("ledger entry", entryID.String())
		}
		return nil, fmt.Errorf("lock entry: %w", err)
	}

	return &entry, nil
}

// Insert stores a new entry.
func (r *LedgerRepo) Insert(ctx context.Context, e *ledger.Entry) error {
	q := r.builder().
		Insert(entriesTable).
		Columns(entryColumns...).
		Values(
			e.ID, e.OwnerID, e.Type, e.Category, e.PaymentMethod,
			e.Amount, e.RemainingAmount, e.EntryDate,
			e.Settled, e.SettledAt, e.Notes, e.PartyID, e.SourceEntryID,
			e.Version, e.CreatedAt, e.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	_, err = r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewConflict("entry already exists").
				WithDetail("id", e.ID.String()).
				WithCause(err)
		}
		return fmt.Errorf("insert entry: %w", err)
	}

	return nil
}

// Update persists entry mutations with optimistic version check against
// the version the entry was read at. Under LockEntry the check never
// fires; it guards misuse outside the lock.
func (r *LedgerRepo) Update(ctx context.Context, e *ledger.Entry) error {
	q := r.builder().
		Update(entriesTable).
		Set("remaining_amount", e.RemainingAmount).
		Set("settled", e.Settled).
		Set("settled_at", e.SettledAt).
		Set("notes", e.Notes).
		Set("party_id", e.PartyID).
		Set("version", e.Version).
		Set("updated_at", e.UpdatedAt).
		Where(squirrel.Eq{"id": e.ID}).
		Where(squirrel.Eq{"owner_id": e.OwnerID}).
		Where(squirrel.Eq{"version": e.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentConflict("ledger entry", e.ID.String())
	}

	return nil
}

// Delete removes an entry.
func (r *LedgerRepo) Delete(ctx context.Context, ownerID, entryID id.ID) error {
	q := r.builder().
		Delete(entriesTable).
		Where(squirrel.Eq{"id": entryID}).
		Where(squirrel.Eq{"owner_id": ownerID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperror.NewConflict("entry is referenced by settlement-derived entries").
				WithDetail("id", entryID.String()).
				WithCause(err)
		}
		return fmt.Errorf("delete entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("ledger entry", entryID.String())
	}

	return nil
}

// DeleteBySource removes the derived cash entries linked to a source
// entry, returning how many were removed.
func (r *LedgerRepo) DeleteBySource(ctx context.Context, ownerID, sourceEntryID id.ID) (int64, error) {
	q := r.builder().
		Delete(entriesTable).
		Where(squirrel.Eq{"source_entry_id": sourceEntryID}).
		Where(squirrel.Eq{"owner_id": ownerID})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete derived entries: %w", err)
	}

	return result.RowsAffected(), nil
}

// List returns entries for an owner, newest entry date first.
func (r *LedgerRepo) List(ctx context.Context, ownerID id.ID, filter ledger.ListFilter) ([]ledger.Entry, error) {
	q := r.builder().
		Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{"owner_id": ownerID})

	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"entry_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.Lt{"entry_date": *filter.DateTo})
	}
	if len(filter.Types) > 0 {
		q = q.Where(squirrel.Eq{"entry_type": filter.Types})
	}
	if len(filter.Categories) > 0 {
		q = q.Where(squirrel.Eq{"category": filter.Categories})
	}
	if filter.Settled != nil {
		q = q.Where(squirrel.Eq{"settled": *filter.Settled})
	}
	if filter.PartyID != nil {
		q = q.Where(squirrel.Eq{"party_id": *filter.PartyID})
	}

	q = q.OrderBy("entry_date DESC", "created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []ledger.Entry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	return entries, nil
}
