package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claimspilot/pkg/models"
)

// ListPendingActions returns a claim's undispatched actions, oldest first
func (s *Store) ListPendingActions(ctx context.Context, claimID int64) ([]*models.PendingAction, error) {
	query := `
		SELECT id, claim_id, action_type, draft, status, COALESCE(ai_reasoning, ''), created_at, sent_at
		FROM pending_actions
		WHERE claim_id = $1 AND status = 'pending'
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending actions: %w", err)
	}
	defer rows.Close()

	actions := make([]*models.PendingAction, 0)
	for rows.Next() {
		action := &models.PendingAction{}
		var draftJSON []byte
		err := rows.Scan(
			&action.ID,
			&action.ClaimID,
			&action.ActionType,
			&draftJSON,
			&action.Status,
			&action.AIReasoning,
			&action.CreatedAt,
			&action.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending action: %w", err)
		}
		if err := json.Unmarshal(draftJSON, &action.Draft); err != nil {
			return nil, fmt.Errorf("failed to decode draft content for action %d: %w", action.ID, err)
		}
		actions = append(actions, action)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending actions: %w", err)
	}

	return actions, nil
}

// CreatePendingAction stores a freshly drafted action awaiting dispatch or
// human approval.
func (s *Store) CreatePendingAction(ctx context.Context, action *models.PendingAction) error {
	draftJSON, err := json.Marshal(action.Draft)
	if err != nil {
		return fmt.Errorf("failed to encode draft content: %w", err)
	}

	query := `
		INSERT INTO pending_actions (claim_id, action_type, draft, status, ai_reasoning, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err = s.db.QueryRowContext(
		ctx, query,
		action.ClaimID,
		action.ActionType,
		draftJSON,
		action.Status,
		action.AIReasoning,
		action.CreatedAt,
	).Scan(&action.ID)

	if err != nil {
		return fmt.Errorf("failed to insert pending action: %w", err)
	}

	return nil
}

// MarkActionSent transitions a pending action to sent. The status guard makes
// the transition consume-once: a concurrent dispatch of the same action fails
// here instead of double-sending the row's lifecycle.
func (s *Store) MarkActionSent(ctx context.Context, actionID int64, sentAt time.Time) error {
	query := `
		UPDATE pending_actions
		SET status = 'sent', sent_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	result, err := s.db.ExecContext(ctx, query, actionID, sentAt)
	if err != nil {
		return fmt.Errorf("failed to mark action sent: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("pending action %d not found or already dispatched", actionID)
	}

	return nil
}
