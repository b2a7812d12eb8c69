package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/claimspilot/pkg/models"
)

// CountAutoExecutedSince counts auto-executed audit entries for a claim at or
// after the given instant. The budget gate calls this with the UTC day start.
func (s *Store) CountAutoExecutedSince(ctx context.Context, claimID int64, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM audit_log
		WHERE claim_id = $1 AND was_auto_executed = TRUE AND executed_at >= $2
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, claimID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count auto-executed entries: %w", err)
	}

	return count, nil
}

// HasAuditEntrySince reports whether an entry of the given type (and dedup
// key, when non-empty) exists for the claim at or after since.
func (s *Store) HasAuditEntrySince(ctx context.Context, claimID int64, actionType, dedupKey string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM audit_log
			WHERE claim_id = $1 AND action_type = $2 AND executed_at >= $3
			  AND ($4 = '' OR dedup_key = $4)
		)
	`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, claimID, actionType, since, dedupKey).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check audit entries: %w", err)
	}

	return exists, nil
}

// InsertAuditEntry appends an entry unconditionally
func (s *Store) InsertAuditEntry(ctx context.Context, entry *models.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (claim_id, action_type, was_auto_executed, result_summary, detail, dedup_key, trigger_source, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := s.db.QueryRowContext(
		ctx, query,
		entry.ClaimID,
		entry.ActionType,
		entry.WasAutoExecuted,
		entry.ResultSummary,
		nullableJSON(entry.Detail),
		entry.DedupKey,
		entry.TriggerSource,
		entry.ExecutedAt,
	).Scan(&entry.ID)

	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// InsertAuditEntryIfAbsent appends the entry only if no entry with the same
// (claim_id, action_type, dedup_key) exists at or after since. The existence
// check and the insert run as one INSERT ... SELECT ... WHERE NOT EXISTS
// statement, so two concurrent runs cannot both insert within the window.
func (s *Store) InsertAuditEntryIfAbsent(ctx context.Context, entry *models.AuditLogEntry, since time.Time) (bool, error) {
	query := `
		INSERT INTO audit_log (claim_id, action_type, was_auto_executed, result_summary, detail, dedup_key, trigger_source, executed_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE NOT EXISTS (
			SELECT 1 FROM audit_log
			WHERE claim_id = $1 AND action_type = $2 AND dedup_key = $6 AND executed_at >= $9
		)
		RETURNING id
	`

	err := s.db.QueryRowContext(
		ctx, query,
		entry.ClaimID,
		entry.ActionType,
		entry.WasAutoExecuted,
		entry.ResultSummary,
		nullableJSON(entry.Detail),
		entry.DedupKey,
		entry.TriggerSource,
		entry.ExecutedAt,
		since,
	).Scan(&entry.ID)

	if err != nil {
		if err == sql.ErrNoRows {
			// NOT EXISTS guard suppressed the insert
			return false, nil
		}
		return false, fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return true, nil
}

// ListAuditEntries returns a claim's recent audit trail, newest first
func (s *Store) ListAuditEntries(ctx context.Context, claimID int64, limit int) ([]*models.AuditLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, claim_id, action_type, was_auto_executed, result_summary, COALESCE(detail, 'null'), COALESCE(dedup_key, ''), trigger_source, executed_at
		FROM audit_log
		WHERE claim_id = $1
		ORDER BY executed_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, claimID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.AuditLogEntry, 0)
	for rows.Next() {
		entry := &models.AuditLogEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.ClaimID,
			&entry.ActionType,
			&entry.WasAutoExecuted,
			&entry.ResultSummary,
			&entry.Detail,
			&entry.DedupKey,
			&entry.TriggerSource,
			&entry.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
