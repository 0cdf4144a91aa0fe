package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/trackui/internal/models"
	"github.com/desertthunder/trackui/internal/shared"
)

// OutcomeFilter narrows [OutcomeRepository.List]. Zero fields match everything.
type OutcomeFilter struct {
	JobID  string
	Status models.JobStatus
	Since  time.Time
	Limit  int
}

// OutcomeStats summarizes the journal.
type OutcomeStats struct {
	Completed int
	Failed    int
	Files     int
	Last      time.Time
}

// OutcomeRepository journals terminal job outcomes in SQLite.
//
// Runs are keyed by (job_id, started_at) so that polling the same finished job every tick records it once.
type OutcomeRepository struct {
	db *sql.DB
}

// NewOutcomeRepository creates a new OutcomeRepository with the given database connection
func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Record inserts o unless its run is already journaled, reporting whether a row was written.
//
// The generated ID is set on o only when the row is new.
func (r *OutcomeRepository) Record(o *models.Outcome) (bool, error) {
	if o.JobID == "" {
		return false, fmt.Errorf("%w: outcome requires a job id", shared.ErrInvalidInput)
	}
	if !o.Status.IsTerminal() {
		return false, fmt.Errorf("%w: status %q is not terminal", shared.ErrInvalidInput, o.Status)
	}

	id := shared.GenerateID()
	observed := o.ObservedAt
	if observed.IsZero() {
		observed = time.Now()
	}

	query := `
		INSERT OR IGNORE INTO job_outcomes (
			id, job_id, status, files_downloaded, total_files,
			started_at, ended_at, observed_at, last_log
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var endedAt any
	if !o.EndedAt.IsZero() {
		endedAt = o.EndedAt.UTC()
	}

	result, err := r.db.Exec(query,
		id,
		o.JobID,
		string(o.Status),
		o.FilesDownloaded,
		o.TotalFiles,
		o.StartedAt.UTC(),
		endedAt,
		observed.UTC(),
		o.LastLog,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert outcome: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	o.ID = id
	o.ObservedAt = observed
	return true, nil
}

// RecordCollection journals every terminal job of c observed at now and returns the number of new rows.
func (r *OutcomeRepository) RecordCollection(c models.Collection, now time.Time) (int, error) {
	recorded := 0
	for _, job := range c.Jobs {
		if !job.Status.IsTerminal() || job.ID == "" {
			continue
		}
		ok, err := r.Record(models.NewOutcome(job, now))
		if err != nil {
			return recorded, err
		}
		if ok {
			recorded++
		}
	}
	return recorded, nil
}

// Get retrieves an outcome by ID
func (r *OutcomeRepository) Get(id string) (*models.Outcome, error) {
	query := `
		SELECT id, job_id, status, files_downloaded, total_files,
			started_at, ended_at, observed_at, last_log
		FROM job_outcomes
		WHERE id = ?
	`

	o, err := scanOutcome(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: outcome %s", shared.ErrJobNotFound, id)
	}
	return o, err
}

// List retrieves outcomes matching filter, most recently observed first
func (r *OutcomeRepository) List(filter OutcomeFilter) ([]*models.Outcome, error) {
	query := `
		SELECT id, job_id, status, files_downloaded, total_files,
			started_at, ended_at, observed_at, last_log
		FROM job_outcomes
		WHERE 1 = 1
	`
	args := []any{}

	if filter.JobID != "" {
		query += " AND job_id = ?"
		args = append(args, filter.JobID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if !filter.Since.IsZero() {
		query += " AND observed_at >= ?"
		args = append(args, filter.Since.UTC())
	}

	query += " ORDER BY observed_at DESC, job_id ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*models.Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcomes: %w", err)
	}

	return outcomes, nil
}

// Stats counts journaled outcomes by status
func (r *OutcomeRepository) Stats() (OutcomeStats, error) {
	var stats OutcomeStats

	rows, err := r.db.Query(`
		SELECT status, COUNT(*), COALESCE(SUM(files_downloaded), 0)
		FROM job_outcomes
		GROUP BY status
	`)
	if err != nil {
		return stats, fmt.Errorf("failed to query outcome stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
			files  int
		)
		if err := rows.Scan(&status, &count, &files); err != nil {
			return stats, fmt.Errorf("failed to scan outcome stats: %w", err)
		}
		switch models.JobStatus(status) {
		case models.StatusCompleted:
			stats.Completed = count
		case models.StatusFailed:
			stats.Failed = count
		}
		stats.Files += files
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("error iterating outcome stats: %w", err)
	}

	recent, err := r.List(OutcomeFilter{Limit: 1})
	if err != nil {
		return stats, err
	}
	if len(recent) == 1 {
		stats.Last = recent[0].ObservedAt
	}

	return stats, nil
}

// Prune deletes outcomes observed before cutoff and returns how many were removed
func (r *OutcomeRepository) Prune(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM job_outcomes WHERE observed_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune outcomes: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

func scanOutcome(row scanner) (*models.Outcome, error) {
	var (
		o         models.Outcome
		status    string
		startedAt sql.NullTime
		endedAt   sql.NullTime
	)

	err := row.Scan(
		&o.ID,
		&o.JobID,
		&status,
		&o.FilesDownloaded,
		&o.TotalFiles,
		&startedAt,
		&endedAt,
		&o.ObservedAt,
		&o.LastLog,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan outcome: %w", err)
	}

	o.Status = models.JobStatus(status)
	if startedAt.Valid && startedAt.Time.Year() > 1 {
		o.StartedAt = startedAt.Time
	}
	if endedAt.Valid {
		o.EndedAt = endedAt.Time
	}
	return &o, nil
}
