package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/claimspilot/pkg/models"
)

// ListAutomatedClaims returns claims whose policy opts them into automation:
// enabled with semi- or fully-autonomous level.
func (s *Store) ListAutomatedClaims(ctx context.Context) ([]*models.Claim, error) {
	query := `
		SELECT c.id, c.claim_number, c.policyholder_name, c.policyholder_email,
		       COALESCE(c.policyholder_phone, ''), c.carrier_name, COALESCE(c.adjuster_email, ''),
		       c.status, c.last_contact_at, c.updated_at, c.created_at
		FROM claims c
		JOIN automation_policies p ON p.claim_id = c.id
		WHERE p.enabled = TRUE
		  AND p.autonomy_level IN ('semi_autonomous', 'fully_autonomous')
		ORDER BY c.id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query automated claims: %w", err)
	}
	defer rows.Close()

	claims := make([]*models.Claim, 0)
	for rows.Next() {
		claim := &models.Claim{}
		err := rows.Scan(
			&claim.ID,
			&claim.ClaimNumber,
			&claim.PolicyholderName,
			&claim.PolicyholderEmail,
			&claim.PolicyholderPhone,
			&claim.CarrierName,
			&claim.AdjusterEmail,
			&claim.Status,
			&claim.LastContactAt,
			&claim.UpdatedAt,
			&claim.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claims: %w", err)
	}

	return claims, nil
}

// GetPolicy loads the automation policy for a claim; nil when none exists
func (s *Store) GetPolicy(ctx context.Context, claimID int64) (*models.AutomationPolicy, error) {
	query := `
		SELECT claim_id, enabled, autonomy_level, daily_action_limit,
		       keyword_blockers, follow_up_interval_days,
		       auto_escalate_urgency, auto_complete_tasks, updated_at
		FROM automation_policies
		WHERE claim_id = $1
	`

	policy := &models.AutomationPolicy{}
	var blockers pq.StringArray
	err := s.db.QueryRowContext(ctx, query, claimID).Scan(
		&policy.ClaimID,
		&policy.Enabled,
		&policy.AutonomyLevel,
		&policy.DailyActionLimit,
		&blockers,
		&policy.FollowUpIntervalDays,
		&policy.AutoEscalateUrgency,
		&policy.AutoCompleteTasks,
		&policy.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get automation policy: %w", err)
	}

	policy.KeywordBlockers = []string(blockers)
	return policy, nil
}
