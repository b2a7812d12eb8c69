package agent

import (
	"context"
	"time"

	"github.com/claimspilot/pkg/models"
)

// Store is the data-store collaborator. The postgres implementation lives in
// internal/store; tests inject an in-memory fake.
type Store interface {
	// Claims and policies
	ListAutomatedClaims(ctx context.Context) ([]*models.Claim, error)
	GetPolicy(ctx context.Context, claimID int64) (*models.AutomationPolicy, error)

	// Tasks
	ListOpenTasks(ctx context.Context, claimID int64) ([]*models.Task, error)
	CompleteTaskBySystem(ctx context.Context, taskID int64, completedAt time.Time) error

	// Messages
	HasInboundMessageSince(ctx context.Context, claimID int64, since time.Time) (bool, error)
	LastOutboundCarrierMessageAt(ctx context.Context, claimID int64) (*time.Time, error)
	LastActivityAt(ctx context.Context, claimID int64) (*time.Time, error)

	// Pending actions
	ListPendingActions(ctx context.Context, claimID int64) ([]*models.PendingAction, error)
	CreatePendingAction(ctx context.Context, action *models.PendingAction) error
	MarkActionSent(ctx context.Context, actionID int64, sentAt time.Time) error

	// Deadlines
	ListUpcomingDeadlines(ctx context.Context, claimID int64, dueBefore time.Time) ([]*models.CarrierDeadline, error)

	// Documents
	ListUnclassifiedDocuments(ctx context.Context, limit int) ([]*models.Document, error)
	SetDocumentClassification(ctx context.Context, documentID int64, label string, confidence float64, at time.Time) error

	// Audit log
	CountAutoExecutedSince(ctx context.Context, claimID int64, since time.Time) (int, error)
	HasAuditEntrySince(ctx context.Context, claimID int64, actionType, dedupKey string, since time.Time) (bool, error)
	InsertAuditEntry(ctx context.Context, entry *models.AuditLogEntry) error
	// InsertAuditEntryIfAbsent writes the entry only if no entry with the same
	// (claim, action type, dedup key) exists at or after since. The insert and
	// the existence check execute as one statement so concurrent runs cannot
	// both write. Returns whether the entry was inserted.
	InsertAuditEntryIfAbsent(ctx context.Context, entry *models.AuditLogEntry, since time.Time) (bool, error)
}

// DraftRequest carries the claim facts the text generator needs to write a
// follow-up or nudge body.
type DraftRequest struct {
	Claim            *models.Claim
	Reason           string
	DaysSinceContact int
	Tone             string
}

// Draft is the generated message content
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Drafter is the text-generation collaborator
type Drafter interface {
	DraftMessage(ctx context.Context, req DraftRequest) (*Draft, error)
}

// Deliverer is the email/SMS delivery collaborator
type Deliverer interface {
	SendEmail(ctx context.Context, claimID int64, recipient, subject, body string) error
	SendSMS(ctx context.Context, claimID int64, recipient, body string) error
}

// Classification is the result of routing a document through the classifier
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier is the document-classification collaborator
type Classifier interface {
	ClassifyDocument(ctx context.Context, fileID string) (*Classification, error)
}

// Clock abstracts time.Now so dedup-window and budget tests can pin the day
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
