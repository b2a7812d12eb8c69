package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claimspilot/internal/logging"
	"github.com/claimspilot/pkg/models"
)

const (
	// StalledClaimWindow is both the inactivity threshold for flagging a claim
	// and the dedup window for the resulting escalation. The two are kept as a
	// single constant on purpose: a shorter dedup window would re-flag a claim
	// that is still inside the same stall.
	StalledClaimWindow = 7 * 24 * time.Hour

	// DeadlineWarningWindow flags carrier deadlines due within this horizon
	DeadlineWarningWindow = 3 * 24 * time.Hour
)

// Dedup keys for escalation reasons
const (
	dedupStalledClaim = "stalled_claim"
)

// EscalationDetector raises human-attention signals for stalled claims and
// approaching carrier deadlines. Each trigger deduplicates independently
// through the audit log.
type EscalationDetector struct {
	store Store
	clock Clock
}

// NewEscalationDetector creates an escalation detector
func NewEscalationDetector(store Store, clock Clock) *EscalationDetector {
	return &EscalationDetector{store: store, clock: clock}
}

// Run evaluates both escalation triggers for one claim and returns how many
// escalations it raised.
func (e *EscalationDetector) Run(ctx context.Context, claim *models.Claim, policy *models.AutomationPolicy, triggerSource string) (int, error) {
	raised := 0

	stalled, err := e.checkStalledClaim(ctx, claim, policy, triggerSource)
	if err != nil {
		return raised, err
	}
	raised += stalled

	deadlines, err := e.checkDeadlines(ctx, claim, triggerSource)
	if err != nil {
		return raised, err
	}
	raised += deadlines

	return raised, nil
}

func (e *EscalationDetector) checkStalledClaim(ctx context.Context, claim *models.Claim, policy *models.AutomationPolicy, triggerSource string) (int, error) {
	if !policy.AutoEscalateUrgency {
		return 0, nil
	}

	now := e.clock.Now()

	lastActivity, err := e.store.LastActivityAt(ctx, claim.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to read last activity: %w", err)
	}
	if lastActivity != nil && now.Sub(*lastActivity) < StalledClaimWindow {
		return 0, nil
	}

	detail, _ := json.Marshal(map[string]interface{}{
		"reason":           dedupStalledClaim,
		"last_activity_at": lastActivity,
	})
	entry := &models.AuditLogEntry{
		ClaimID:         claim.ID,
		ActionType:      models.AuditEscalation,
		WasAutoExecuted: false,
		ResultSummary:   fmt.Sprintf("Claim %s has had no activity for %d+ days", claim.ClaimNumber, int(StalledClaimWindow.Hours()/24)),
		Detail:          detail,
		DedupKey:        dedupStalledClaim,
		TriggerSource:   triggerSource,
		ExecutedAt:      now,
	}

	inserted, err := e.store.InsertAuditEntryIfAbsent(ctx, entry, now.Add(-StalledClaimWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to write stalled-claim escalation: %w", err)
	}
	if !inserted {
		return 0, nil
	}

	logging.GetCurrentLogger().Log("Claim %d: escalated as stalled (no activity since %v)", claim.ID, lastActivity)
	return 1, nil
}

func (e *EscalationDetector) checkDeadlines(ctx context.Context, claim *models.Claim, triggerSource string) (int, error) {
	now := e.clock.Now()

	deadlines, err := e.store.ListUpcomingDeadlines(ctx, claim.ID, now.Add(DeadlineWarningWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to list upcoming deadlines: %w", err)
	}

	raised := 0
	for _, deadline := range deadlines {
		detail, _ := json.Marshal(map[string]interface{}{
			"reason":      "approaching_deadline",
			"deadline_id": deadline.ID,
			"due_at":      deadline.DueAt,
			"description": deadline.Description,
		})
		entry := &models.AuditLogEntry{
			ClaimID:         claim.ID,
			ActionType:      models.AuditEscalation,
			WasAutoExecuted: false,
			ResultSummary:   fmt.Sprintf("Carrier deadline %q due %s", deadline.Description, deadline.DueAt.Format("2006-01-02")),
			Detail:          detail,
			DedupKey:        fmt.Sprintf("deadline_%d", deadline.ID),
			TriggerSource:   triggerSource,
			ExecutedAt:      now,
		}

		// A specific deadline is escalated once, ever: the dedup window spans
		// all history, keyed by the deadline id.
		inserted, err := e.store.InsertAuditEntryIfAbsent(ctx, entry, time.Time{})
		if err != nil {
			return raised, fmt.Errorf("failed to write deadline escalation: %w", err)
		}
		if inserted {
			logging.GetCurrentLogger().Log("Claim %d: escalated for deadline %d due %s", claim.ID, deadline.ID, deadline.DueAt.Format(time.RFC3339))
			raised++
		}
	}

	return raised, nil
}
