package agent

import "strings"

// ClaimState is the agent's coarse classification of a claim's free-text
// status. Statuses arrive from the claims UI and drift over time, so
// classification is substring-based in both directions rather than an exact
// match.
type ClaimState string

const (
	StateAwaitingCarrier ClaimState = "awaiting_carrier"
	StateOther           ClaimState = "other"
)

// awaitingCarrierStatuses is the fixed vocabulary of statuses that mean the
// ball is in the carrier's court and a follow-up nudge may be due.
var awaitingCarrierStatuses = []string{
	"submitted to insurance",
	"awaiting adjuster assignment",
	"awaiting adjuster",
	"awaiting carrier response",
	"supplement submitted",
	"under review",
	"inspection scheduled",
	"pending carrier",
}

// ClassifyStatus maps a free-text claim status onto a ClaimState
func ClassifyStatus(status string) ClaimState {
	normalized := normalizeStatus(status)
	if normalized == "" {
		return StateOther
	}

	for _, known := range awaitingCarrierStatuses {
		// Substring match both directions: "Under Review - Carrier" should
		// match "under review", and "review" stored by an older UI version
		// should match too.
		if strings.Contains(normalized, known) || strings.Contains(known, normalized) {
			return StateAwaitingCarrier
		}
	}

	return StateOther
}

func normalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}
