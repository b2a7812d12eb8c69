package store

import (
	"context"
	"fmt"
	"time"

	"github.com/claimspilot/pkg/models"
)

// ListOpenTasks returns a claim's uncompleted tasks, oldest first
func (s *Store) ListOpenTasks(ctx context.Context, claimID int64) ([]*models.Task, error) {
	query := `
		SELECT id, claim_id, title, is_completed, completed_at, completed_by, created_at
		FROM tasks
		WHERE claim_id = $1 AND is_completed = FALSE
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task := &models.Task{}
		err := rows.Scan(
			&task.ID,
			&task.ClaimID,
			&task.Title,
			&task.IsCompleted,
			&task.CompletedAt,
			&task.CompletedBy,
			&task.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// CompleteTaskBySystem marks a task completed with completed_by left NULL,
// which is how the system signals its own action.
func (s *Store) CompleteTaskBySystem(ctx context.Context, taskID int64, completedAt time.Time) error {
	query := `
		UPDATE tasks
		SET is_completed = TRUE, completed_at = $2, completed_by = NULL
		WHERE id = $1 AND is_completed = FALSE
	`

	result, err := s.db.ExecContext(ctx, query, taskID, completedAt)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %d not found or already completed", taskID)
	}

	return nil
}
