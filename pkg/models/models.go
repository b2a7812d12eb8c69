package models

import (
	"encoding/json"
	"time"
)

// AutonomyLevel controls how much the agent may do without human approval
type AutonomyLevel string

const (
	AutonomySupervised AutonomyLevel = "supervised"
	AutonomySemi       AutonomyLevel = "semi_autonomous"
	AutonomyFull       AutonomyLevel = "fully_autonomous"
)

// ActionType identifies the kind of outbound action a pending action carries
type ActionType string

const (
	ActionEmailResponse ActionType = "email_response"
	ActionSMS           ActionType = "sms"
)

// PendingActionStatus tracks the lifecycle of a drafted outbound action
type PendingActionStatus string

const (
	ActionStatusPending  PendingActionStatus = "pending"
	ActionStatusSent     PendingActionStatus = "sent"
	ActionStatusRejected PendingActionStatus = "rejected"
)

// RecipientClass partitions draft recipients for the safety gate
type RecipientClass string

const (
	RecipientInsuranceParty RecipientClass = "insurance_party"
	RecipientOther          RecipientClass = "other"
)

// Audit action kinds written by the agent
const (
	AuditTaskCompleted      = "task_completed"
	AuditEmailSent          = "email_sent"
	AuditSMSSent            = "sms_sent"
	AuditPendingReview      = "pending_review"
	AuditEscalation         = "escalation"
	AuditCarrierFollowUp    = "carrier_follow_up"
	AuditIdleNudge          = "idle_nudge"
	AuditDocumentClassified = "document_classified"
)

// Claim represents an insurance claim under management.
// The agent treats claims as read-mostly: status and contact timestamps feed
// the scheduling decisions, but only collaborators mutate the claim itself.
type Claim struct {
	ID                int64      `json:"id" db:"id"`
	ClaimNumber       string     `json:"claim_number" db:"claim_number"`
	PolicyholderName  string     `json:"policyholder_name" db:"policyholder_name"`
	PolicyholderEmail string     `json:"policyholder_email" db:"policyholder_email"`
	PolicyholderPhone string     `json:"policyholder_phone,omitempty" db:"policyholder_phone"`
	CarrierName       string     `json:"carrier_name" db:"carrier_name"`
	AdjusterEmail     string     `json:"adjuster_email,omitempty" db:"adjuster_email"`
	Status            string     `json:"status" db:"status"`
	LastContactAt     *time.Time `json:"last_contact_at,omitempty" db:"last_contact_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// AutomationPolicy is the per-claim automation configuration. Staff configure
// it through the management UI; the agent only reads it.
type AutomationPolicy struct {
	ClaimID              int64         `json:"claim_id" db:"claim_id"`
	Enabled              bool          `json:"enabled" db:"enabled"`
	AutonomyLevel        AutonomyLevel `json:"autonomy_level" db:"autonomy_level"`
	DailyActionLimit     int           `json:"daily_action_limit" db:"daily_action_limit"`
	KeywordBlockers      []string      `json:"keyword_blockers" db:"keyword_blockers"`
	FollowUpIntervalDays int           `json:"follow_up_interval_days" db:"follow_up_interval_days"`
	AutoEscalateUrgency  bool          `json:"auto_escalate_urgency" db:"auto_escalate_urgency"`
	AutoCompleteTasks    bool          `json:"auto_complete_tasks" db:"auto_complete_tasks"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`
}

// DraftContent is the message payload carried by a pending action
type DraftContent struct {
	RecipientAddress string `json:"recipient_address"`
	RecipientName    string `json:"recipient_name"`
	RecipientClass   string `json:"recipient_class"`
	Subject          string `json:"subject,omitempty"`
	Body             string `json:"body"`
}

// PendingAction is a drafted outbound message awaiting automatic dispatch or
// human approval. It is consumed exactly once: pending -> sent, or left
// pending with a review-queue audit entry.
type PendingAction struct {
	ID          int64               `json:"id" db:"id"`
	ClaimID     int64               `json:"claim_id" db:"claim_id"`
	ActionType  ActionType          `json:"action_type" db:"action_type"`
	Draft       DraftContent        `json:"draft" db:"draft"`
	Status      PendingActionStatus `json:"status" db:"status"`
	AIReasoning string              `json:"ai_reasoning,omitempty" db:"ai_reasoning"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	SentAt      *time.Time          `json:"sent_at,omitempty" db:"sent_at"`
}

// AuditLogEntry is the append-only record of every agent decision. It doubles
// as the dedup oracle: a (claim, action type, dedup key) triple must not
// repeat within its window.
type AuditLogEntry struct {
	ID              int64           `json:"id" db:"id"`
	ClaimID         int64           `json:"claim_id" db:"claim_id"`
	ActionType      string          `json:"action_type" db:"action_type"`
	WasAutoExecuted bool            `json:"was_auto_executed" db:"was_auto_executed"`
	ResultSummary   string          `json:"result_summary" db:"result_summary"`
	Detail          json.RawMessage `json:"detail,omitempty" db:"detail"`
	DedupKey        string          `json:"dedup_key,omitempty" db:"dedup_key"`
	TriggerSource   string          `json:"trigger_source" db:"trigger_source"`
	ExecutedAt      time.Time       `json:"executed_at" db:"executed_at"`
}

// Task is a claim-owned work item. The agent may flip IsCompleted (with
// CompletedBy left NULL to signal a system action) but never creates or
// deletes tasks.
type Task struct {
	ID          int64      `json:"id" db:"id"`
	ClaimID     int64      `json:"claim_id" db:"claim_id"`
	Title       string     `json:"title" db:"title"`
	IsCompleted bool       `json:"is_completed" db:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CompletedBy *int64     `json:"completed_by,omitempty" db:"completed_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// MessageDirection distinguishes inbound replies from outbound sends
type MessageDirection string

const (
	MessageInbound  MessageDirection = "inbound"
	MessageOutbound MessageDirection = "outbound"
)

// Message is one email/SMS exchanged on a claim; last-contact and
// reply-detection logic derives from these rows.
type Message struct {
	ID             int64            `json:"id" db:"id"`
	ClaimID        int64            `json:"claim_id" db:"claim_id"`
	Direction      MessageDirection `json:"direction" db:"direction"`
	RecipientClass string           `json:"recipient_class,omitempty" db:"recipient_class"`
	Subject        string           `json:"subject,omitempty" db:"subject"`
	Body           string           `json:"body" db:"body"`
	SentAt         time.Time        `json:"sent_at" db:"sent_at"`
}

// CarrierDeadline mirrors the external deadline tracker's records; the agent
// only reads and reacts.
type CarrierDeadline struct {
	ID          int64     `json:"id" db:"id"`
	ClaimID     int64     `json:"claim_id" db:"claim_id"`
	Description string    `json:"description" db:"description"`
	DueAt       time.Time `json:"due_at" db:"due_at"`
	IsResolved  bool      `json:"is_resolved" db:"is_resolved"`
}

// Document is an uploaded claim file awaiting classification
type Document struct {
	ID             int64      `json:"id" db:"id"`
	ClaimID        int64      `json:"claim_id" db:"claim_id"`
	FileName       string     `json:"file_name" db:"file_name"`
	FileID         string     `json:"file_id" db:"file_id"`
	Classification *string    `json:"classification,omitempty" db:"classification"`
	Confidence     *float64   `json:"confidence,omitempty" db:"confidence"`
	ClassifiedAt   *time.Time `json:"classified_at,omitempty" db:"classified_at"`
	UploadedAt     time.Time  `json:"uploaded_at" db:"uploaded_at"`
}

// RunSummary aggregates one orchestrator cycle's outcome
type RunSummary struct {
	RunID              string    `json:"run_id"`
	TriggerSource      string    `json:"trigger_source"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
	Processed          int       `json:"processed"`
	TasksCompleted     int       `json:"tasks_completed"`
	EmailsSent         int       `json:"emails_sent"`
	Escalations        int       `json:"escalations"`
	DocumentsProcessed int       `json:"documents_processed"`
	Errors             []string  `json:"errors"`
}
