package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/claimspilot/internal/logging"
	"github.com/claimspilot/pkg/models"
)

// DefaultFollowUpIntervalDays applies when a policy sets no interval
const DefaultFollowUpIntervalDays = 7

// FollowUpResult reports what the follow-up scheduler did for one claim
type FollowUpResult struct {
	Sent   bool
	Queued bool
}

// FollowUpScheduler decides whether a carrier nudge is due on a claim that is
// waiting on the carrier, drafts it, and either sends it (fully autonomous)
// or queues it for human review. At most one attempt per claim per UTC day.
type FollowUpScheduler struct {
	store   Store
	drafter Drafter
	deliver Deliverer
	clock   Clock
}

// NewFollowUpScheduler creates a carrier follow-up scheduler
func NewFollowUpScheduler(store Store, drafter Drafter, deliver Deliverer, clock Clock) *FollowUpScheduler {
	return &FollowUpScheduler{store: store, drafter: drafter, deliver: deliver, clock: clock}
}

// Run evaluates the follow-up state machine for one claim
func (f *FollowUpScheduler) Run(ctx context.Context, claim *models.Claim, policy *models.AutomationPolicy, triggerSource string) (FollowUpResult, error) {
	var result FollowUpResult

	logger := logging.GetCurrentLogger()

	if ClassifyStatus(claim.Status) != StateAwaitingCarrier {
		return result, nil
	}

	now := f.clock.Now()

	interval := policy.FollowUpIntervalDays
	if interval <= 0 {
		interval = DefaultFollowUpIntervalDays
	}

	lastOutbound, err := f.store.LastOutboundCarrierMessageAt(ctx, claim.ID)
	if err != nil {
		return result, fmt.Errorf("failed to read last outbound carrier message: %w", err)
	}

	daysSinceContact := interval // no outbound contact on record counts as overdue
	if lastOutbound != nil {
		daysSinceContact = int(now.Sub(*lastOutbound).Hours() / 24)
		if daysSinceContact < interval {
			return result, nil
		}
	}

	// One attempt per day, even if the previous attempt only queued a draft
	already, err := f.store.HasAuditEntrySince(ctx, claim.ID, models.AuditCarrierFollowUp, "", startOfUTCDay(now))
	if err != nil {
		return result, fmt.Errorf("failed to check follow-up audit entries: %w", err)
	}
	if already {
		return result, nil
	}

	draft, err := f.drafter.DraftMessage(ctx, DraftRequest{
		Claim:            claim,
		Reason:           fmt.Sprintf("No carrier response for %d days while status is %q", daysSinceContact, claim.Status),
		DaysSinceContact: daysSinceContact,
		Tone:             "professional and firm",
	})
	if err != nil {
		// Drafting failure skips this claim for the cycle; nothing is logged
		// to the audit trail so tomorrow's run tries again.
		logger.LogError(fmt.Sprintf("draft follow-up for claim %d", claim.ID), err)
		return result, nil
	}

	autoSent := false
	if policy.AutonomyLevel == models.AutonomyFull {
		if err := f.deliver.SendEmail(ctx, claim.ID, claim.AdjusterEmail, draft.Subject, draft.Body); err != nil {
			logger.LogError(fmt.Sprintf("send follow-up for claim %d", claim.ID), err)
			return result, nil
		}
		autoSent = true
		result.Sent = true
	} else {
		action := &models.PendingAction{
			ClaimID:    claim.ID,
			ActionType: models.ActionEmailResponse,
			Draft: models.DraftContent{
				RecipientAddress: claim.AdjusterEmail,
				RecipientName:    claim.CarrierName,
				RecipientClass:   "adjuster",
				Subject:          draft.Subject,
				Body:             draft.Body,
			},
			Status:      models.ActionStatusPending,
			AIReasoning: fmt.Sprintf("Carrier follow-up drafted after %d days without response", daysSinceContact),
			CreatedAt:   now,
		}
		if err := f.store.CreatePendingAction(ctx, action); err != nil {
			return result, fmt.Errorf("failed to create follow-up pending action: %w", err)
		}
		result.Queued = true
	}

	detail, _ := json.Marshal(map[string]interface{}{
		"autoSent":           autoSent,
		"queuedForReview":    !autoSent,
		"days_since_contact": daysSinceContact,
		"recipient":          claim.AdjusterEmail,
	})
	entry := &models.AuditLogEntry{
		ClaimID:         claim.ID,
		ActionType:      models.AuditCarrierFollowUp,
		WasAutoExecuted: autoSent,
		ResultSummary:   followUpSummary(autoSent, claim.CarrierName, daysSinceContact),
		Detail:          detail,
		TriggerSource:   triggerSource,
		ExecutedAt:      now,
	}
	// Atomic insert-or-skip backstops the pre-check against concurrent runs
	inserted, err := f.store.InsertAuditEntryIfAbsent(ctx, entry, startOfUTCDay(now))
	if err != nil {
		return result, fmt.Errorf("failed to write follow-up audit entry: %w", err)
	}
	if !inserted {
		logger.Log("Claim %d: follow-up audit entry already written by a concurrent run", claim.ID)
	}

	logger.Log("Claim %d: carrier follow-up %s (%d days since contact)", claim.ID, followUpVerb(autoSent), daysSinceContact)
	return result, nil
}

func followUpSummary(autoSent bool, carrier string, days int) string {
	if autoSent {
		return fmt.Sprintf("Auto-sent follow-up to %s after %d days without response", carrier, days)
	}
	return fmt.Sprintf("Queued follow-up to %s for review after %d days without response", carrier, days)
}

func followUpVerb(autoSent bool) string {
	if autoSent {
		return "auto-sent"
	}
	return "queued for review"
}
