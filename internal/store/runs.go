package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/claimspilot/pkg/models"
)

// InsertRunSummary records a completed agent run for the history endpoint
func (s *Store) InsertRunSummary(ctx context.Context, summary *models.RunSummary) error {
	errorsJSON, err := json.Marshal(summary.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode run errors: %w", err)
	}

	query := `
		INSERT INTO run_history (run_id, trigger_source, started_at, finished_at, processed, tasks_completed, emails_sent, escalations, documents_processed, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.db.ExecContext(
		ctx, query,
		summary.RunID,
		summary.TriggerSource,
		summary.StartedAt,
		summary.FinishedAt,
		summary.Processed,
		summary.TasksCompleted,
		summary.EmailsSent,
		summary.Escalations,
		summary.DocumentsProcessed,
		errorsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run summary: %w", err)
	}

	return nil
}

// ListRecentRuns returns the latest run summaries, newest first
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]*models.RunSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT run_id, trigger_source, started_at, finished_at, processed, tasks_completed, emails_sent, escalations, documents_processed, errors
		FROM run_history
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.RunSummary, 0)
	for rows.Next() {
		run := &models.RunSummary{}
		var errorsJSON []byte
		err := rows.Scan(
			&run.RunID,
			&run.TriggerSource,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Processed,
			&run.TasksCompleted,
			&run.EmailsSent,
			&run.Escalations,
			&run.DocumentsProcessed,
			&errorsJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		if err := json.Unmarshal(errorsJSON, &run.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode run errors: %w", err)
		}
		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run history: %w", err)
	}

	return runs, nil
}
