package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/claimspilot/pkg/models"
)

// DefaultDailyActionLimit applies when a policy carries no explicit limit
const DefaultDailyActionLimit = 3

// BudgetGate enforces the per-claim daily ceiling on autonomous actions. It
// recomputes today's count from the audit log on every check, so the cap
// resets naturally at the UTC day boundary and survives process restarts.
type BudgetGate struct {
	store Store
	clock Clock
}

// NewBudgetGate creates a budget gate backed by the audit log
func NewBudgetGate(store Store, clock Clock) *BudgetGate {
	return &BudgetGate{store: store, clock: clock}
}

// Allow reports whether the claim may execute another autonomous action today.
// It must be consulted before every side-effecting step; a denied claim is
// skipped for the rest of the run, not retried.
func (g *BudgetGate) Allow(ctx context.Context, claimID int64, policy *models.AutomationPolicy) (bool, error) {
	limit := policy.DailyActionLimit
	if limit <= 0 {
		limit = DefaultDailyActionLimit
	}

	count, err := g.store.CountAutoExecutedSince(ctx, claimID, startOfUTCDay(g.clock.Now()))
	if err != nil {
		return false, fmt.Errorf("failed to count executed actions: %w", err)
	}

	return count < limit, nil
}

// startOfUTCDay truncates t to the UTC calendar day boundary
func startOfUTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
