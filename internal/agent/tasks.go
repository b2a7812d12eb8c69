package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/claimspilot/internal/logging"
	"github.com/claimspilot/pkg/models"
)

// followUpTaskKeywords lexically identify tasks that track an expected reply
var followUpTaskKeywords = []string{
	"follow up",
	"follow-up",
	"followup",
	"reminder",
	"awaiting response",
	"await response",
	"check in",
	"check-in",
	"nudge",
}

// TaskCompletionWorker closes open follow-up tasks whose precondition has been
// satisfied: an inbound message arrived on the claim after the task was
// created, so the nudge the task tracked is no longer needed.
type TaskCompletionWorker struct {
	store  Store
	budget *BudgetGate
	clock  Clock
}

// NewTaskCompletionWorker creates a task auto-completion worker
func NewTaskCompletionWorker(store Store, budget *BudgetGate, clock Clock) *TaskCompletionWorker {
	return &TaskCompletionWorker{store: store, budget: budget, clock: clock}
}

// isFollowUpTask reports whether a task title matches the follow-up pattern
func isFollowUpTask(title string) bool {
	normalized := strings.ToLower(title)
	for _, kw := range followUpTaskKeywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// Run completes eligible tasks for one claim and returns how many it closed
func (w *TaskCompletionWorker) Run(ctx context.Context, claim *models.Claim, policy *models.AutomationPolicy, triggerSource string) (int, error) {
	if !policy.AutoCompleteTasks {
		return 0, nil
	}

	logger := logging.GetCurrentLogger()

	tasks, err := w.store.ListOpenTasks(ctx, claim.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list open tasks: %w", err)
	}

	completed := 0
	for _, task := range tasks {
		if !isFollowUpTask(task.Title) {
			continue
		}

		// Each completion counts against the daily budget
		allowed, err := w.budget.Allow(ctx, claim.ID, policy)
		if err != nil {
			return completed, err
		}
		if !allowed {
			logger.Log("Claim %d: daily action budget exhausted, leaving remaining tasks open", claim.ID)
			return completed, nil
		}

		replied, err := w.store.HasInboundMessageSince(ctx, claim.ID, task.CreatedAt)
		if err != nil {
			return completed, fmt.Errorf("failed to check inbound messages: %w", err)
		}
		if !replied {
			continue
		}

		now := w.clock.Now()
		// CompletedBy stays NULL: the system, not a staff member, closed it
		if err := w.store.CompleteTaskBySystem(ctx, task.ID, now); err != nil {
			return completed, fmt.Errorf("failed to complete task %d: %w", task.ID, err)
		}

		detail, _ := json.Marshal(map[string]interface{}{
			"task_id":    task.ID,
			"task_title": task.Title,
		})
		entry := &models.AuditLogEntry{
			ClaimID:         claim.ID,
			ActionType:      models.AuditTaskCompleted,
			WasAutoExecuted: true,
			ResultSummary:   fmt.Sprintf("Auto-completed task %q after inbound reply", task.Title),
			Detail:          detail,
			TriggerSource:   triggerSource,
			ExecutedAt:      now,
		}
		if err := w.store.InsertAuditEntry(ctx, entry); err != nil {
			return completed, fmt.Errorf("failed to write audit entry: %w", err)
		}

		logger.Log("Claim %d: auto-completed task %d (%s)", claim.ID, task.ID, task.Title)
		completed++
	}

	return completed, nil
}
