// Package store provides persistence for import groups and line items.
//
// The Postgres implementation is the production path; the in-memory
// implementation backs tests and local development. Both satisfy
// core.Store.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tigerops/salesops/internal/core"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PG is the Postgres-backed store.
type PG struct {
	db DBTX
}

// NewPG creates a Postgres store on top of a pool or transaction.
func NewPG(db DBTX) *PG {
	return &PG{db: db}
}

// UpsertGroup resolves or creates the group for key. The DO UPDATE clause
// is a no-op write that makes RETURNING work on the conflict path, so one
// round trip covers both cases.
func (s *PG) UpsertGroup(ctx context.Context, key core.GroupKey) (core.ImportGroup, error) {
	const q = `
		INSERT INTO import_groups (id, owner_id, period_key, row_type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, period_key, row_type)
		DO UPDATE SET owner_id = EXCLUDED.owner_id
		RETURNING id, last_seq`

	group := core.ImportGroup{Key: key}
	err := s.db.QueryRow(ctx, q, uuid.New(), key.OwnerID, key.PeriodKey, string(key.RowType)).
		Scan(&group.ID, &group.LastSeq)
	if err != nil {
		return core.ImportGroup{}, fmt.Errorf("upsert import group: %w", err)
	}
	return group, nil
}

// ReserveSequence claims a block of n sequence numbers in a single atomic
// update and returns the first of the block. Concurrent reservations on
// the same group serialize on the row lock and receive disjoint blocks.
func (s *PG) ReserveSequence(ctx context.Context, groupID uuid.UUID, n int) (int, error) {
	const q = `
		UPDATE import_groups
		SET last_seq = last_seq + $2
		WHERE id = $1
		RETURNING last_seq`

	var last int
	if err := s.db.QueryRow(ctx, q, groupID, n).Scan(&last); err != nil {
		if err == pgx.ErrNoRows {
			return 0, fmt.Errorf("reserve sequence: group %s not found", groupID)
		}
		return 0, fmt.Errorf("reserve sequence: %w", err)
	}
	return last - n + 1, nil
}

// InsertLineItem persists one committed row. Empty notes are stored as
// NULL.
func (s *PG) InsertLineItem(ctx context.Context, item core.LineItem) error {
	const q = `
		INSERT INTO line_items
			(id, group_id, seq_no, shipper_name, teu_qty,
			 revenue_paise, profitability_ratio, profit_paise, row_type, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	notes := pgtype.Text{String: item.Notes, Valid: item.Notes != ""}

	_, err := s.db.Exec(ctx, q,
		item.ID, item.GroupID, item.SequenceNumber, item.ShipperName, item.TeuQty,
		item.RevenuePaise, item.ProfitabilityRatio, item.ProfitPaise,
		string(item.RowType), notes,
	)
	if err != nil {
		return fmt.Errorf("insert line item: %w", err)
	}
	return nil
}

// FindGroup looks up a group by key without creating it.
func (s *PG) FindGroup(ctx context.Context, key core.GroupKey) (core.ImportGroup, bool, error) {
	const q = `
		SELECT id, last_seq
		FROM import_groups
		WHERE owner_id = $1 AND period_key = $2 AND row_type = $3`

	group := core.ImportGroup{Key: key}
	err := s.db.QueryRow(ctx, q, key.OwnerID, key.PeriodKey, string(key.RowType)).
		Scan(&group.ID, &group.LastSeq)
	if err == pgx.ErrNoRows {
		return core.ImportGroup{}, false, nil
	}
	if err != nil {
		return core.ImportGroup{}, false, fmt.Errorf("find import group: %w", err)
	}
	return group, true, nil
}

// ListLineItems returns a group's rows ordered by sequence number.
func (s *PG) ListLineItems(ctx context.Context, groupID uuid.UUID) ([]core.LineItem, error) {
	const q = `
		SELECT id, group_id, seq_no, shipper_name, teu_qty,
		       revenue_paise, profitability_ratio, profit_paise, row_type, notes
		FROM line_items
		WHERE group_id = $1
		ORDER BY seq_no`

	rows, err := s.db.Query(ctx, q, groupID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	var items []core.LineItem
	for rows.Next() {
		var item core.LineItem
		var rowType string
		var notes pgtype.Text
		if err := rows.Scan(
			&item.ID, &item.GroupID, &item.SequenceNumber, &item.ShipperName, &item.TeuQty,
			&item.RevenuePaise, &item.ProfitabilityRatio, &item.ProfitPaise, &rowType, &notes,
		); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		item.RowType = core.RowType(rowType)
		item.Notes = notes.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	return items, nil
}

// MaxSequence returns the highest committed sequence number in the group.
func (s *PG) MaxSequence(ctx context.Context, groupID uuid.UUID) (int, error) {
	const q = `SELECT COALESCE(MAX(seq_no), 0) FROM line_items WHERE group_id = $1`

	var max int
	if err := s.db.QueryRow(ctx, q, groupID).Scan(&max); err != nil {
		return 0, fmt.Errorf("max sequence: %w", err)
	}
	return max, nil
}
