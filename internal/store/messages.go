package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// HasInboundMessageSince reports whether the claim received any inbound
// message at or after the given instant. The task auto-completion worker uses
// this as the "counterparty replied" precondition.
func (s *Store) HasInboundMessageSince(ctx context.Context, claimID int64, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM messages
			WHERE claim_id = $1 AND direction = 'inbound' AND sent_at >= $2
		)
	`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, claimID, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check inbound messages: %w", err)
	}

	return exists, nil
}

// LastOutboundCarrierMessageAt returns when the claim last messaged an
// adjuster/insurance/carrier recipient; nil when no such message exists.
func (s *Store) LastOutboundCarrierMessageAt(ctx context.Context, claimID int64) (*time.Time, error) {
	query := `
		SELECT sent_at
		FROM messages
		WHERE claim_id = $1
		  AND direction = 'outbound'
		  AND (recipient_class ILIKE '%adjuster%' OR recipient_class ILIKE '%insurance%' OR recipient_class ILIKE '%carrier%')
		ORDER BY sent_at DESC
		LIMIT 1
	`

	var sentAt time.Time
	err := s.db.QueryRowContext(ctx, query, claimID).Scan(&sentAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last outbound carrier message: %w", err)
	}

	return &sentAt, nil
}

// LastActivityAt returns the most recent of the claim's update timestamp and
// its latest message; nil only when the claim itself is missing.
func (s *Store) LastActivityAt(ctx context.Context, claimID int64) (*time.Time, error) {
	query := `
		SELECT GREATEST(
			c.updated_at,
			COALESCE((SELECT MAX(m.sent_at) FROM messages m WHERE m.claim_id = c.id), c.updated_at)
		)
		FROM claims c
		WHERE c.id = $1
	`

	var at time.Time
	err := s.db.QueryRowContext(ctx, query, claimID).Scan(&at)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last activity: %w", err)
	}

	return &at, nil
}
