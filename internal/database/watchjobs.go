package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nao1215/bygglarm/internal/model"
)

// AddWatchjob stores a new watchjob for the JSON encoded query.
func (d *DB) AddWatchjob(ctx context.Context, query string) (*model.Watchjob, error) {
	result, err := d.db.ExecContext(ctx, "INSERT INTO watchjobs (query) VALUES (?)", query)
	if err != nil {
		return nil, fmt.Errorf("failed to insert watchjob: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to insert watchjob: %w", err)
	}
	return d.Watchjob(ctx, id)
}

// Watchjob returns the watchjob with id, or ErrWatchjobNotFound.
func (d *DB) Watchjob(ctx context.Context, id int64) (*model.Watchjob, error) {
	query := `
	SELECT id, query, last_case_id, created_at
	FROM watchjobs
	WHERE id = ?
	`

	var (
		job       model.Watchjob
		timestamp string
	)
	err := d.db.QueryRowContext(ctx, query, id).Scan(&job.ID, &job.Query, &job.LastCaseID, &timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrWatchjobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watchjob: %w", err)
	}
	job.CreatedAt = parseTimestamp(timestamp)
	return &job, nil
}

// Watchjobs returns all watchjobs ordered by id.
func (d *DB) Watchjobs(ctx context.Context) ([]model.Watchjob, error) {
	query := `
	SELECT id, query, last_case_id, created_at
	FROM watchjobs
	ORDER BY id
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchjobs: %w", err)
	}
	defer rows.Close()

	jobs := []model.Watchjob{}
	for rows.Next() {
		var (
			job       model.Watchjob
			timestamp string
		)
		if err := rows.Scan(&job.ID, &job.Query, &job.LastCaseID, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan watchjob: %w", err)
		}
		job.CreatedAt = parseTimestamp(timestamp)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// RemoveWatchjob deletes the watchjob with id.
func (d *DB) RemoveWatchjob(ctx context.Context, id int64) error {
	result, err := d.db.ExecContext(ctx, "DELETE FROM watchjobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete watchjob: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete watchjob: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrWatchjobNotFound, id)
	}
	return nil
}

// SetLastCaseID moves the watermark of watchjob id to caseID.
func (d *DB) SetLastCaseID(ctx context.Context, id int64, caseID string) error {
	result, err := d.db.ExecContext(ctx, "UPDATE watchjobs SET last_case_id = ? WHERE id = ?", caseID, id)
	if err != nil {
		return fmt.Errorf("failed to update watchjob: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update watchjob: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrWatchjobNotFound, id)
	}
	return nil
}
