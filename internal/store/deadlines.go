package store

import (
	"context"
	"fmt"
	"time"

	"github.com/claimspilot/pkg/models"
)

// ListUpcomingDeadlines returns a claim's unresolved carrier deadlines due on
// or before the given instant. Deadlines are written by the external deadline
// tracker; the agent only reads them.
func (s *Store) ListUpcomingDeadlines(ctx context.Context, claimID int64, dueBefore time.Time) ([]*models.CarrierDeadline, error) {
	query := `
		SELECT id, claim_id, description, due_at, is_resolved
		FROM carrier_deadlines
		WHERE claim_id = $1 AND is_resolved = FALSE AND due_at <= $2
		ORDER BY due_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, claimID, dueBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to query carrier deadlines: %w", err)
	}
	defer rows.Close()

	deadlines := make([]*models.CarrierDeadline, 0)
	for rows.Next() {
		deadline := &models.CarrierDeadline{}
		err := rows.Scan(
			&deadline.ID,
			&deadline.ClaimID,
			&deadline.Description,
			&deadline.DueAt,
			&deadline.IsResolved,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan carrier deadline: %w", err)
		}
		deadlines = append(deadlines, deadline)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating carrier deadlines: %w", err)
	}

	return deadlines, nil
}
