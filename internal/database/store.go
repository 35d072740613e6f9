package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nao1215/bygglarm/internal/addresses"
	"github.com/nao1215/bygglarm/internal/model"
)

var _ addresses.Store = (*DB)(nil)

// Update runs fn in a transaction that is committed when fn returns nil and
// rolled back otherwise.
func (d *DB) Update(ctx context.Context, fn func(addresses.Tx) error) error {
	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&tx{ctx: ctx, tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// View runs fn in a transaction that is always rolled back.
func (d *DB) View(ctx context.Context, fn func(addresses.Tx) error) error {
	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()
	return fn(&tx{ctx: ctx, tx: sqlTx})
}

// tx implements addresses.Tx on a SQL transaction. The context of the
// enclosing Update or View is used for every statement.
type tx struct {
	ctx context.Context //nolint:containedctx // scoped to one transaction
	tx  *sql.Tx
}

func (t *tx) CountQueries() (int, error) {
	var n int
	if err := t.tx.QueryRowContext(t.ctx, "SELECT COUNT(*) FROM queries").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queries: %w", err)
	}
	return n, nil
}

func (t *tx) NextQuery() (*model.Query, error) {
	query := `
	SELECT id, prefix, status, full_entry, num_results, created_at
	FROM queries
	WHERE status IN (?, ?)
	ORDER BY full_entry DESC, created_at, id
	LIMIT 1
	`

	var (
		q         model.Query
		status    int
		timestamp string
	)
	err := t.tx.QueryRowContext(t.ctx, query, int(model.QueryTBD), int(model.QueryExpandOnly)).Scan(
		&q.ID,
		&q.Prefix,
		&status,
		&q.FullEntry,
		&q.NumResults,
		&timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select next query: %w", err)
	}
	q.Status = model.QueryStatus(status)
	q.CreatedAt = parseTimestamp(timestamp)
	return &q, nil
}

func (t *tx) AddQuery(q model.Query) (bool, error) {
	query := `
	INSERT INTO queries (prefix, status, full_entry, num_results)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(prefix, full_entry) DO NOTHING
	`

	result, err := t.tx.ExecContext(t.ctx, query, q.Prefix, int(q.Status), q.FullEntry, q.NumResults)
	if err != nil {
		return false, fmt.Errorf("failed to insert query: %w", err)
	}
	return inserted(result)
}

func (t *tx) UpdateQueryStatus(id int64, from, to model.QueryStatus, numResults int) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s to %s", addresses.ErrStatusRegression, from, to)
	}

	result, err := t.tx.ExecContext(t.ctx,
		"UPDATE queries SET status = ?, num_results = ? WHERE id = ? AND status = ?",
		int(to), numResults, id, int(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update query status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update query status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: query %d is no longer %s", addresses.ErrStaleQuery, id, from)
	}
	return nil
}

func (t *tx) Characters() ([]string, error) {
	rows, err := t.tx.QueryContext(t.ctx, "SELECT value FROM characters ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	defer rows.Close()

	var chars []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan character: %w", err)
		}
		chars = append(chars, c)
	}
	return chars, rows.Err()
}

func (t *tx) AddCharacter(c string) (bool, error) {
	result, err := t.tx.ExecContext(t.ctx,
		"INSERT INTO characters (value) VALUES (?) ON CONFLICT(value) DO NOTHING", c)
	if err != nil {
		return false, fmt.Errorf("failed to insert character: %w", err)
	}
	return inserted(result)
}

func (t *tx) FirstRawEntry(name string) (*model.RawEntry, error) {
	query := `
	SELECT id, name, row_key, result, section, symbol, x, y, prefix, first
	FROM raw_entries
	WHERE name = ? AND first = 1
	ORDER BY id
	LIMIT 1
	`

	var e model.RawEntry
	err := t.tx.QueryRowContext(t.ctx, query, name).Scan(
		&e.ID,
		&e.Name,
		&e.Key,
		&e.Result,
		&e.Section,
		&e.Symbol,
		&e.X,
		&e.Y,
		&e.Query,
		&e.First,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raw entry: %w", err)
	}
	return &e, nil
}

func (t *tx) InsertRawEntry(e model.RawEntry) (int64, error) {
	query := `
	INSERT INTO raw_entries (name, row_key, result, section, symbol, x, y, prefix, first)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := t.tx.ExecContext(t.ctx, query,
		e.Name,
		e.Key,
		e.Result,
		e.Section,
		e.Symbol,
		e.X,
		e.Y,
		e.Query,
		e.First,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert raw entry: %w", err)
	}
	return result.LastInsertId()
}

func (t *tx) EntryByName(name string) (*model.Entry, error) {
	query := `
	SELECT id, name, type, x_min, x_max, y_min, y_max
	FROM entries
	WHERE name = ?
	`

	var (
		e                      model.Entry
		entryType              int
		xMin, xMax, yMin, yMax sql.NullFloat64
	)
	err := t.tx.QueryRowContext(t.ctx, query, name).Scan(&e.ID, &e.Name, &entryType, &xMin, &xMax, &yMin, &yMax)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	e.Type = model.EntryType(entryType)
	if xMin.Valid && xMax.Valid && yMin.Valid && yMax.Valid {
		e.Bounds = &model.Bounds{XMin: xMin.Float64, XMax: xMax.Float64, YMin: yMin.Float64, YMax: yMax.Float64}
	}
	return &e, nil
}

func (t *tx) InsertEntry(e model.Entry) (int64, error) {
	var xMin, xMax, yMin, yMax sql.NullFloat64
	if e.Bounds != nil {
		xMin = sql.NullFloat64{Float64: e.Bounds.XMin, Valid: true}
		xMax = sql.NullFloat64{Float64: e.Bounds.XMax, Valid: true}
		yMin = sql.NullFloat64{Float64: e.Bounds.YMin, Valid: true}
		yMax = sql.NullFloat64{Float64: e.Bounds.YMax, Valid: true}
	}

	result, err := t.tx.ExecContext(t.ctx,
		"INSERT INTO entries (name, type, x_min, x_max, y_min, y_max) VALUES (?, ?, ?, ?, ?, ?)",
		e.Name, int(e.Type), xMin, xMax, yMin, yMax,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert entry: %w", err)
	}
	return result.LastInsertId()
}

func (t *tx) UpdateEntryBounds(id int64, b model.Bounds) error {
	_, err := t.tx.ExecContext(t.ctx,
		"UPDATE entries SET x_min = ?, x_max = ?, y_min = ?, y_max = ? WHERE id = ?",
		b.XMin, b.XMax, b.YMin, b.YMax, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry bounds: %w", err)
	}
	return nil
}

func (t *tx) EntryNumber(entryID int64, name string) (*model.EntryNumber, error) {
	var (
		n    model.EntryNumber
		x, y sql.NullFloat64
	)
	err := t.tx.QueryRowContext(t.ctx,
		"SELECT id, entry_id, name, x, y FROM entry_numbers WHERE entry_id = ? AND name = ?",
		entryID, name,
	).Scan(&n.ID, &n.EntryID, &n.Name, &x, &y)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry number: %w", err)
	}
	if x.Valid && y.Valid {
		n.Coord = &model.Coord{X: x.Float64, Y: y.Float64}
	}
	return &n, nil
}

func (t *tx) InsertEntryNumber(n model.EntryNumber) (int64, error) {
	var x, y sql.NullFloat64
	if n.Coord != nil {
		x = sql.NullFloat64{Float64: n.Coord.X, Valid: true}
		y = sql.NullFloat64{Float64: n.Coord.Y, Valid: true}
	}

	result, err := t.tx.ExecContext(t.ctx,
		"INSERT INTO entry_numbers (entry_id, name, x, y) VALUES (?, ?, ?, ?)",
		n.EntryID, n.Name, x, y,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert entry number: %w", err)
	}
	return result.LastInsertId()
}

func inserted(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
