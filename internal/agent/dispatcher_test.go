package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimspilot/pkg/models"
)

func pendingEmail(id, claimID int64, class, subject, body string) *models.PendingAction {
	return &models.PendingAction{
		ID:         id,
		ClaimID:    claimID,
		ActionType: models.ActionEmailResponse,
		Draft: models.DraftContent{
			RecipientAddress: "adjuster@acmemutual.com",
			RecipientName:    "Acme Mutual",
			RecipientClass:   class,
			Subject:          subject,
			Body:             body,
		},
		Status:    models.ActionStatusPending,
		CreatedAt: day0.Add(-time.Hour),
	}
}

func newDispatcher(store *fakeStore, deliverer *fakeDeliverer, clock Clock) *Dispatcher {
	return NewDispatcher(store, deliverer, NewBudgetGate(store, clock), clock)
}

func TestDispatcher_FullyAutonomousSendsCleanDraft(t *testing.T) {
	store := newFakeStore()
	deliverer := &fakeDeliverer{}
	clock := &fixedClock{now: day0}

	store.pendingActions = append(store.pendingActions, pendingEmail(1, 1, "adjuster", "Status", "All documents attached."))

	result, err := newDispatcher(store, deliverer, clock).Run(context.Background(), testClaim(1), testPolicy(1, models.AutonomyFull), "scheduler")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)

	require.Len(t, deliverer.sent, 1)
	assert.Equal(t, "email", deliverer.sent[0].Kind)
	assert.Equal(t, models.ActionStatusSent, store.pendingActions[0].Status)
	require.NotNil(t, store.pendingActions[0].SentAt)

	entries := store.entriesOf(models.AuditEmailSent)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].WasAutoExecuted)
}

func TestDispatcher_SemiAutonomousQueuesCarrierDraft(t *testing.T) {
	store := newFakeStore()
	deliverer := &fakeDeliverer{}
	clock := &fixedClock{now: day0}

	// Clean draft, but addressed to the carrier's adjuster
	store.pendingActions = append(store.pendingActions, pendingEmail(1, 1, "adjuster", "Supplement", "Please find the revised estimate."))

	result, err := newDispatcher(store, deliverer, clock).Run(context.Background(), testClaim(1), testPolicy(1, models.AutonomySemi), "scheduler")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Queued)
	assert.Zero(t, result.Sent)

	assert.Empty(t, deliverer.sent)
	// Action stays pending for a human to approve
	assert.Equal(t, models.ActionStatusPending, store.pendingActions[0].Status)

	entries := store.entriesOf(models.AuditPendingReview)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].WasAutoExecuted)
}

func TestDispatcher_KeywordEscalatesInsteadOfSending(t *testing.T) {
	store := newFakeStore()
	deliverer := &fakeDeliverer{}
	clock := &fixedClock{now: day0}

	store.pendingActions = append(store.pendingActions, pendingEmail(1, 1, "adjuster", "Urgent", "Our client has retained an attorney."))

	result, err := newDispatcher(store, deliverer, clock).Run(context.Background(), testClaim(1), testPolicy(1, models.AutonomyFull), "scheduler")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Escalated)

	assert.Empty(t, deliverer.sent)
	entries := store.entriesOf(models.AuditEscalation)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ResultSummary, "attorney")
}

func TestDispatcher_TransportFailureLeavesActionPending(t *testing.T) {
	store := newFakeStore()
	deliverer := &fakeDeliverer{emailErr: errors.New("smtp unavailable")}
	clock := &fixedClock{now: day0}

	store.pendingActions = append(store.pendingActions, pendingEmail(1, 1, "adjuster", "Status", "All quiet."))

	result, err := newDispatcher(store, deliverer, clock).Run(context.Background(), testClaim(1), testPolicy(1, models.AutonomyFull), "scheduler")
	require.NoError(t, err)
	assert.Equal(t, 1, result.SendFailures)
	assert.Zero(t, result.Sent)

	// No audit entry and no status change: the next cycle retries the send
	assert.Equal(t, models.ActionStatusPending, store.pendingActions[0].Status)
	assert.Empty(t, store.auditLog)
}

func TestDispatcher_SMSUsesSMSChannel(t *testing.T) {
	store := newFakeStore()
	deliverer := &fakeDeliverer{}
	clock := &fixedClock{now: day0}

	action := pendingEmail(1, 1, "policyholder", "", "Quick update: inspection confirmed for Friday.")
	action.ActionType = models.ActionSMS
	store.pendingActions = append(store.pendingActions, action)

	result, err := newDispatcher(store, deliverer, clock).Run(context.Background(), testClaim(1), testPolicy(1, models.AutonomyFull), "scheduler")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)

	require.Len(t, deliverer.sent, 1)
	assert.Equal(t, "sms", deliverer.sent[0].Kind)
	require.Len(t, store.entriesOf(models.AuditSMSSent), 1)
}

func TestDispatcher_BudgetStopsMidBatch(t *testing.T) {
	store := newFakeStore()
	deliverer := &fakeDeliverer{}
	clock := &fixedClock{now: day0}
	policy := testPolicy(1, models.AutonomyFull)
	policy.DailyActionLimit = 2

	for i := int64(1); i <= 4; i++ {
		store.pendingActions = append(store.pendingActions, pendingEmail(i, 1, "policyholder", "Update", "All quiet."))
	}

	result, err := newDispatcher(store, deliverer, clock).Run(context.Background(), testClaim(1), policy, "scheduler")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	assert.Len(t, deliverer.sent, 2)

	pending := 0
	for _, action := range store.pendingActions {
		if action.Status == models.ActionStatusPending {
			pending++
		}
	}
	assert.Equal(t, 2, pending)
}

func TestDispatcher_SkipsAlreadySentActions(t *testing.T) {
	store := newFakeStore()
	deliverer := &fakeDeliverer{}
	clock := &fixedClock{now: day0}

	sent := pendingEmail(1, 1, "policyholder", "Old", "Already handled.")
	sent.Status = models.ActionStatusSent
	store.pendingActions = append(store.pendingActions, sent)

	result, err := newDispatcher(store, deliverer, clock).Run(context.Background(), testClaim(1), testPolicy(1, models.AutonomyFull), "scheduler")
	require.NoError(t, err)
	assert.Zero(t, result.Sent)
	assert.Empty(t, deliverer.sent)
}

func TestDispatcher_BlockedDraftEscalatesOnlyOnce(t *testing.T) {
	store := newFakeStore()
	deliverer := &fakeDeliverer{}
	clock := &fixedClock{now: day0}
	dispatcher := newDispatcher(store, deliverer, clock)

	store.pendingActions = append(store.pendingActions, pendingEmail(7, 1, "adjuster", "Urgent", "Our client has retained an attorney."))

	result, err := dispatcher.Run(context.Background(), testClaim(1), testPolicy(1, models.AutonomyFull), "scheduler")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Escalated)

	// Next cycle an hour later: the action is still pending and still blocked,
	// but the escalation is already on record
	clock.Advance(time.Hour)
	result, err = dispatcher.Run(context.Background(), testClaim(1), testPolicy(1, models.AutonomyFull), "scheduler")
	require.NoError(t, err)
	assert.Zero(t, result.Escalated)

	entries := store.entriesOf(models.AuditEscalation)
	require.Len(t, entries, 1)
	assert.Equal(t, "action_7", entries[0].DedupKey)
}

func TestDispatcher_QueuedDraftAuditedOnlyOnce(t *testing.T) {
	store := newFakeStore()
	deliverer := &fakeDeliverer{}
	clock := &fixedClock{now: day0}
	dispatcher := newDispatcher(store, deliverer, clock)

	store.pendingActions = append(store.pendingActions, pendingEmail(3, 1, "adjuster", "Supplement", "Please find the revised estimate."))

	for i := 0; i < 3; i++ {
		_, err := dispatcher.Run(context.Background(), testClaim(1), testPolicy(1, models.AutonomySemi), "scheduler")
		require.NoError(t, err)
		clock.Advance(24 * time.Hour)
	}

	// One pending_review row no matter how many cycles see the same action
	require.Len(t, store.entriesOf(models.AuditPendingReview), 1)
	assert.Equal(t, models.ActionStatusPending, store.pendingActions[0].Status)
}
