package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/claimspilot/internal/logging"
	"github.com/claimspilot/pkg/models"
)

// Orchestrator runs one full agent cycle: document triage once globally, then
// the per-claim pipeline for every claim opted into automation. A failure in
// one claim's processing is recorded and never aborts the remaining claims.
type Orchestrator struct {
	store      Store
	drafter    Drafter
	deliverer  Deliverer
	classifier Classifier
	clock      Clock

	budget     *BudgetGate
	tasks      *TaskCompletionWorker
	dispatcher *Dispatcher
	escalation *EscalationDetector
	followUp   *FollowUpScheduler
	idleNudge  *IdleNudgeScheduler
	triage     *TriageWorker
}

// NewOrchestrator wires the agent components around the injected collaborators
func NewOrchestrator(store Store, drafter Drafter, deliverer Deliverer, classifier Classifier, clock Clock) *Orchestrator {
	budget := NewBudgetGate(store, clock)

	return &Orchestrator{
		store:      store,
		drafter:    drafter,
		deliverer:  deliverer,
		classifier: classifier,
		clock:      clock,
		budget:     budget,
		tasks:      NewTaskCompletionWorker(store, budget, clock),
		dispatcher: NewDispatcher(store, deliverer, budget, clock),
		escalation: NewEscalationDetector(store, clock),
		followUp:   NewFollowUpScheduler(store, drafter, deliverer, clock),
		idleNudge:  NewIdleNudgeScheduler(store, drafter, deliverer, clock),
		triage:     NewTriageWorker(store, classifier, clock),
	}
}

// Run executes one agent cycle and returns its summary. Claims are processed
// sequentially: per-claim budget and dedup checks interleave with their audit
// writes, and serializing claims keeps that read-check-write window closed
// within a run.
func (o *Orchestrator) Run(ctx context.Context, triggerSource string) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:         uuid.NewString(),
		TriggerSource: triggerSource,
		StartedAt:     o.clock.Now(),
		Errors:        make([]string, 0),
	}

	logger, err := logging.StartRunLogging(summary.RunID)
	if err != nil {
		// Run-log files are an audit convenience, not a prerequisite
		log.Warn().Err(err).Msg("failed to start run logging")
	}
	defer logger.Close()

	logger.LogSection(fmt.Sprintf("AGENT RUN %s (trigger: %s)", summary.RunID, triggerSource))

	// Document triage runs once per cycle, not per claim
	triaged, err := o.triage.Run(ctx, triggerSource)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("document triage: %v", err))
		logger.LogError("document triage", err)
	}
	summary.DocumentsProcessed = triaged

	claims, err := o.store.ListAutomatedClaims(ctx)
	if err != nil {
		summary.FinishedAt = o.clock.Now()
		return summary, fmt.Errorf("failed to load automated claims: %w", err)
	}

	for _, claim := range claims {
		if err := ctx.Err(); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("run cancelled: %v", err))
			break
		}

		o.processClaimSafely(ctx, claim, triggerSource, summary)
	}

	summary.FinishedAt = o.clock.Now()
	logger.Log("Run complete: %d claims, %d tasks completed, %d messages sent, %d escalations, %d documents, %d errors",
		summary.Processed, summary.TasksCompleted, summary.EmailsSent, summary.Escalations, summary.DocumentsProcessed, len(summary.Errors))

	return summary, nil
}

// processClaimSafely is the per-claim error boundary: panics and errors are
// converted into summary entries so one bad claim cannot sink the run.
func (o *Orchestrator) processClaimSafely(ctx context.Context, claim *models.Claim, triggerSource string, summary *models.RunSummary) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("claim %d: panic: %v", claim.ID, r)
			summary.Errors = append(summary.Errors, msg)
			log.Error().Int64("claim_id", claim.ID).Interface("panic", r).Msg("claim processing panicked")
		}
	}()

	if err := o.processClaim(ctx, claim, triggerSource, summary); err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("claim %d: %v", claim.ID, err))
		logging.GetCurrentLogger().LogError(fmt.Sprintf("claim %d", claim.ID), err)
	}

	summary.Processed++
}

func (o *Orchestrator) processClaim(ctx context.Context, claim *models.Claim, triggerSource string, summary *models.RunSummary) error {
	policy, err := o.store.GetPolicy(ctx, claim.ID)
	if err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}
	if policy == nil || !policy.Enabled {
		return nil
	}

	// The budget gate is the backstop against runaway automation and runs
	// before anything that could have a side effect.
	allowed, err := o.budget.Allow(ctx, claim.ID, policy)
	if err != nil {
		return err
	}
	if !allowed {
		logging.GetCurrentLogger().Log("Claim %d: daily action budget exhausted, skipping", claim.ID)
		return nil
	}

	completed, err := o.tasks.Run(ctx, claim, policy, triggerSource)
	summary.TasksCompleted += completed
	if err != nil {
		return err
	}

	dispatched, err := o.dispatcher.Run(ctx, claim, policy, triggerSource)
	summary.EmailsSent += dispatched.Sent
	summary.Escalations += dispatched.Escalated
	if err != nil {
		return err
	}

	escalated, err := o.escalation.Run(ctx, claim, policy, triggerSource)
	summary.Escalations += escalated
	if err != nil {
		return err
	}

	// Follow-up and idle nudge both send; the budget may have been consumed
	// by the steps above, so each re-checks before acting.
	if allowed, err = o.budget.Allow(ctx, claim.ID, policy); err != nil {
		return err
	} else if allowed {
		followUp, err := o.followUp.Run(ctx, claim, policy, triggerSource)
		if followUp.Sent {
			summary.EmailsSent++
		}
		if err != nil {
			return err
		}
	} else {
		logging.GetCurrentLogger().Log("Claim %d: budget exhausted before carrier follow-up, deferring to next day", claim.ID)
	}

	if allowed, err = o.budget.Allow(ctx, claim.ID, policy); err != nil {
		return err
	} else if allowed {
		nudge, err := o.idleNudge.Run(ctx, claim, policy, triggerSource)
		if nudge.Sent {
			summary.EmailsSent++
		}
		if err != nil {
			return err
		}
	} else {
		logging.GetCurrentLogger().Log("Claim %d: budget exhausted before idle nudge, deferring to next day", claim.ID)
	}

	return nil
}
