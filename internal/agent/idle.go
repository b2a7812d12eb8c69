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
	// IdleClaimThreshold is how long a claim must be quiet before the
	// policyholder gets a status nudge.
	IdleClaimThreshold = 14 * 24 * time.Hour

	// IdleNudgeWindow rate-limits nudges to one per week; clients need less
	// frequent contact than carriers.
	IdleNudgeWindow = 7 * 24 * time.Hour
)

// IdleNudgeScheduler sends the policyholder a check-in when their claim has
// seen no activity for two weeks. Client-facing messages are low risk: they
// auto-send for both semi- and fully-autonomous claims, still subject to the
// budget gate and the keyword scan.
type IdleNudgeScheduler struct {
	store   Store
	drafter Drafter
	deliver Deliverer
	clock   Clock
}

// NewIdleNudgeScheduler creates an idle-claim nudge scheduler
func NewIdleNudgeScheduler(store Store, drafter Drafter, deliver Deliverer, clock Clock) *IdleNudgeScheduler {
	return &IdleNudgeScheduler{store: store, drafter: drafter, deliver: deliver, clock: clock}
}

// Run evaluates the idle-nudge state machine for one claim
func (s *IdleNudgeScheduler) Run(ctx context.Context, claim *models.Claim, policy *models.AutomationPolicy, triggerSource string) (FollowUpResult, error) {
	var result FollowUpResult

	logger := logging.GetCurrentLogger()
	now := s.clock.Now()

	lastActivity, err := s.store.LastActivityAt(ctx, claim.ID)
	if err != nil {
		return result, fmt.Errorf("failed to read last activity: %w", err)
	}
	if lastActivity != nil && now.Sub(*lastActivity) < IdleClaimThreshold {
		return result, nil
	}

	idleDays := 0
	if lastActivity != nil {
		idleDays = int(now.Sub(*lastActivity).Hours() / 24)
	}

	already, err := s.store.HasAuditEntrySince(ctx, claim.ID, models.AuditIdleNudge, "", now.Add(-IdleNudgeWindow))
	if err != nil {
		return result, fmt.Errorf("failed to check idle-nudge audit entries: %w", err)
	}
	if already {
		return result, nil
	}

	draft, err := s.drafter.DraftMessage(ctx, DraftRequest{
		Claim:            claim,
		Reason:           fmt.Sprintf("Claim has been quiet for %d days; reassure the policyholder and summarize where things stand", idleDays),
		DaysSinceContact: idleDays,
		Tone:             "warm and reassuring",
	})
	if err != nil {
		logger.LogError(fmt.Sprintf("draft idle nudge for claim %d", claim.ID), err)
		return result, nil
	}

	// The recipient is always the policyholder, so recipient class never
	// gates the send; the keyword scan still applies.
	if keyword, blocked := FindBlockedKeyword(draft.Subject, draft.Body, policy.KeywordBlockers); blocked {
		logger.Log("Claim %d: idle nudge draft blocked by keyword %q, skipping send", claim.ID, keyword)
		return result, nil
	}

	autoSent := policy.AutonomyLevel == models.AutonomySemi || policy.AutonomyLevel == models.AutonomyFull
	if autoSent {
		if err := s.deliver.SendEmail(ctx, claim.ID, claim.PolicyholderEmail, draft.Subject, draft.Body); err != nil {
			logger.LogError(fmt.Sprintf("send idle nudge for claim %d", claim.ID), err)
			return result, nil
		}
		result.Sent = true
	} else {
		action := &models.PendingAction{
			ClaimID:    claim.ID,
			ActionType: models.ActionEmailResponse,
			Draft: models.DraftContent{
				RecipientAddress: claim.PolicyholderEmail,
				RecipientName:    claim.PolicyholderName,
				RecipientClass:   "policyholder",
				Subject:          draft.Subject,
				Body:             draft.Body,
			},
			Status:      models.ActionStatusPending,
			AIReasoning: fmt.Sprintf("Idle-claim nudge drafted after %d days of inactivity", idleDays),
			CreatedAt:   now,
		}
		if err := s.store.CreatePendingAction(ctx, action); err != nil {
			return result, fmt.Errorf("failed to create idle-nudge pending action: %w", err)
		}
		result.Queued = true
	}

	detail, _ := json.Marshal(map[string]interface{}{
		"autoSent":  autoSent,
		"idle_days": idleDays,
		"recipient": claim.PolicyholderEmail,
	})
	entry := &models.AuditLogEntry{
		ClaimID:         claim.ID,
		ActionType:      models.AuditIdleNudge,
		WasAutoExecuted: autoSent,
		ResultSummary:   fmt.Sprintf("Idle-claim nudge to %s after %d quiet days", claim.PolicyholderName, idleDays),
		Detail:          detail,
		TriggerSource:   triggerSource,
		ExecutedAt:      now,
	}
	inserted, err := s.store.InsertAuditEntryIfAbsent(ctx, entry, now.Add(-IdleNudgeWindow))
	if err != nil {
		return result, fmt.Errorf("failed to write idle-nudge audit entry: %w", err)
	}
	if !inserted {
		logger.Log("Claim %d: idle-nudge audit entry already written by a concurrent run", claim.ID)
	}

	logger.Log("Claim %d: idle nudge %s (%d quiet days)", claim.ID, followUpVerb(autoSent), idleDays)
	return result, nil
}
