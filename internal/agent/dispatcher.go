package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claimspilot/internal/logging"
	"github.com/claimspilot/pkg/models"
)

// DispatchResult summarizes one claim's pass through the dispatcher
type DispatchResult struct {
	Sent         int
	Queued       int
	Escalated    int
	SendFailures int
}

// Dispatcher consumes pending outbound actions for a claim, applies the
// content safety gate, and either sends, queues for human review, or
// escalates. A transport failure leaves the action pending so the next cycle
// retries it; no audit entry is written for a failed send.
type Dispatcher struct {
	store     Store
	deliverer Deliverer
	budget    *BudgetGate
	clock     Clock
}

// NewDispatcher creates an outbound action dispatcher
func NewDispatcher(store Store, deliverer Deliverer, budget *BudgetGate, clock Clock) *Dispatcher {
	return &Dispatcher{store: store, deliverer: deliverer, budget: budget, clock: clock}
}

// Run processes all pending actions for the claim
func (d *Dispatcher) Run(ctx context.Context, claim *models.Claim, policy *models.AutomationPolicy, triggerSource string) (DispatchResult, error) {
	var result DispatchResult

	logger := logging.GetCurrentLogger()

	actions, err := d.store.ListPendingActions(ctx, claim.ID)
	if err != nil {
		return result, fmt.Errorf("failed to list pending actions: %w", err)
	}

	for _, action := range actions {
		if action.Status != models.ActionStatusPending {
			continue
		}

		// Re-check the budget per action: earlier sends in this loop count
		allowed, err := d.budget.Allow(ctx, claim.ID, policy)
		if err != nil {
			return result, err
		}
		if !allowed {
			logger.Log("Claim %d: daily action budget exhausted, leaving %d pending action(s)", claim.ID, len(actions))
			return result, nil
		}

		decision := EvaluateSafety(policy, action.Draft)

		switch decision.Outcome {
		case OutcomeAutoSend:
			if err := d.send(ctx, claim, action); err != nil {
				// Transport failure: action stays pending, retried next cycle
				logger.LogError(fmt.Sprintf("dispatch action %d", action.ID), err)
				result.SendFailures++
				continue
			}
			if err := d.auditSent(ctx, claim.ID, action, triggerSource); err != nil {
				return result, err
			}
			result.Sent++

		case OutcomeQueueReview:
			// Status stays pending; the audit entry tells staff why it stalled
			queued, err := d.auditOutcome(ctx, claim.ID, action, models.AuditPendingReview, false, decision, triggerSource)
			if err != nil {
				return result, err
			}
			if queued {
				result.Queued++
			}

		case OutcomeEscalate:
			escalated, err := d.auditOutcome(ctx, claim.ID, action, models.AuditEscalation, false, decision, triggerSource)
			if err != nil {
				return result, err
			}
			if escalated {
				result.Escalated++
			}
		}
	}

	return result, nil
}

func (d *Dispatcher) send(ctx context.Context, claim *models.Claim, action *models.PendingAction) error {
	var err error
	switch action.ActionType {
	case models.ActionSMS:
		err = d.deliverer.SendSMS(ctx, claim.ID, action.Draft.RecipientAddress, action.Draft.Body)
	default:
		err = d.deliverer.SendEmail(ctx, claim.ID, action.Draft.RecipientAddress, action.Draft.Subject, action.Draft.Body)
	}
	if err != nil {
		return err
	}

	if err := d.store.MarkActionSent(ctx, action.ID, d.clock.Now()); err != nil {
		return fmt.Errorf("failed to mark action sent: %w", err)
	}
	return nil
}

func (d *Dispatcher) auditSent(ctx context.Context, claimID int64, action *models.PendingAction, triggerSource string) error {
	logger := logging.GetCurrentLogger()

	actionType := models.AuditEmailSent
	if action.ActionType == models.ActionSMS {
		actionType = models.AuditSMSSent
	}

	detail, _ := json.Marshal(map[string]interface{}{
		"pending_action_id": action.ID,
		"recipient":         action.Draft.RecipientAddress,
	})
	entry := &models.AuditLogEntry{
		ClaimID:         claimID,
		ActionType:      actionType,
		WasAutoExecuted: true,
		ResultSummary:   fmt.Sprintf("Auto-sent %s to %s", action.ActionType, action.Draft.RecipientName),
		Detail:          detail,
		TriggerSource:   triggerSource,
		ExecutedAt:      d.clock.Now(),
	}
	if err := d.store.InsertAuditEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	logger.Log("Claim %d: sent action %d (%s) to %s", claimID, action.ID, action.ActionType, action.Draft.RecipientAddress)
	return nil
}

// auditOutcome records why an action did not auto-send. The action keeps its
// pending status until a human handles it, so the entry is deduped on the
// action id: a blocked draft is flagged once, not once per cycle.
func (d *Dispatcher) auditOutcome(ctx context.Context, claimID int64, action *models.PendingAction, auditType string, autoExecuted bool, decision SafetyDecision, triggerSource string) (bool, error) {
	logger := logging.GetCurrentLogger()

	detail, _ := json.Marshal(map[string]interface{}{
		"pending_action_id": action.ID,
		"recipient":         action.Draft.RecipientAddress,
		"recipient_class":   string(decision.RecipientClass),
		"blocked_keyword":   decision.BlockedKeyword,
	})
	entry := &models.AuditLogEntry{
		ClaimID:         claimID,
		ActionType:      auditType,
		WasAutoExecuted: autoExecuted,
		ResultSummary:   decision.Reason,
		Detail:          detail,
		DedupKey:        fmt.Sprintf("action_%d", action.ID),
		TriggerSource:   triggerSource,
		ExecutedAt:      d.clock.Now(),
	}
	inserted, err := d.store.InsertAuditEntryIfAbsent(ctx, entry, time.Time{})
	if err != nil {
		return false, fmt.Errorf("failed to write audit entry: %w", err)
	}
	if !inserted {
		return false, nil
	}

	logger.Log("Claim %d: action %d -> %s (%s)", claimID, action.ID, auditType, decision.Reason)
	return true, nil
}
