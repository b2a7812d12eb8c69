package agent

import (
	"strings"

	"github.com/claimspilot/pkg/models"
)

// SafetyOutcome is the content safety gate's decision for a draft
type SafetyOutcome string

const (
	OutcomeAutoSend    SafetyOutcome = "auto_send"
	OutcomeQueueReview SafetyOutcome = "queue_review"
	OutcomeEscalate    SafetyOutcome = "escalate"
)

// SafetyDecision carries the outcome plus the evidence behind it
type SafetyDecision struct {
	Outcome        SafetyOutcome
	RecipientClass models.RecipientClass
	BlockedKeyword string
	Reason         string
}

// defaultKeywordBlockers is the standard legal-escalation lexicon applied when
// a policy configures no blockers of its own. Policy blockers are added on
// top, never replacing these.
var defaultKeywordBlockers = []string{
	"lawsuit",
	"attorney",
	"lawyer",
	"bad faith",
	"litigation",
	"legal action",
	"sue",
	"department of insurance",
	"complaint",
}

// insurancePartyKeywords classify a recipient as an insurance party
var insurancePartyKeywords = []string{
	"adjuster",
	"insurance",
	"carrier",
	"primary adjuster",
}

// ClassifyRecipient buckets a free-text recipient class into the two classes
// the decision table distinguishes.
func ClassifyRecipient(recipientClass string) models.RecipientClass {
	normalized := strings.ToLower(strings.TrimSpace(recipientClass))
	for _, kw := range insurancePartyKeywords {
		if strings.Contains(normalized, kw) {
			return models.RecipientInsuranceParty
		}
	}
	return models.RecipientOther
}

// FindBlockedKeyword scans subject+body against the policy's blockers plus
// the default lexicon, case-insensitively. First match wins.
func FindBlockedKeyword(subject, body string, policyBlockers []string) (string, bool) {
	content := strings.ToLower(subject + " " + body)

	blockers := make([]string, 0, len(policyBlockers)+len(defaultKeywordBlockers))
	blockers = append(blockers, policyBlockers...)
	blockers = append(blockers, defaultKeywordBlockers...)

	for _, blocker := range blockers {
		kw := strings.ToLower(strings.TrimSpace(blocker))
		if kw == "" {
			continue
		}
		if strings.Contains(content, kw) {
			return kw, true
		}
	}

	return "", false
}

// EvaluateSafety applies the autonomy decision table to a draft:
//
//	fully_autonomous + clean draft          -> auto-send
//	fully_autonomous + blocked keyword      -> escalate
//	semi_autonomous  + insurance recipient  -> queue for review
//	semi_autonomous  + other + clean        -> auto-send
//	semi_autonomous  + other + keyword      -> escalate
//	supervised                              -> queue for review
func EvaluateSafety(policy *models.AutomationPolicy, draft models.DraftContent) SafetyDecision {
	recipient := ClassifyRecipient(draft.RecipientClass)
	keyword, blocked := FindBlockedKeyword(draft.Subject, draft.Body, policy.KeywordBlockers)

	decision := SafetyDecision{RecipientClass: recipient, BlockedKeyword: keyword}

	switch policy.AutonomyLevel {
	case models.AutonomyFull:
		if blocked {
			decision.Outcome = OutcomeEscalate
			decision.Reason = "draft contains blocked keyword: " + keyword
		} else {
			decision.Outcome = OutcomeAutoSend
			decision.Reason = "fully autonomous, draft passed keyword scan"
		}

	case models.AutonomySemi:
		// Semi-autonomous never auto-sends to carriers regardless of content
		if recipient == models.RecipientInsuranceParty {
			decision.Outcome = OutcomeQueueReview
			decision.Reason = "semi-autonomous requires review for insurance party recipients"
		} else if blocked {
			decision.Outcome = OutcomeEscalate
			decision.Reason = "draft contains blocked keyword: " + keyword
		} else {
			decision.Outcome = OutcomeAutoSend
			decision.Reason = "semi-autonomous, non-carrier recipient, draft passed keyword scan"
		}

	default:
		// Supervised (and anything unrecognized) always goes to a human
		decision.Outcome = OutcomeQueueReview
		decision.Reason = "supervised autonomy requires human review"
	}

	return decision
}
