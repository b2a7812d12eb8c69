package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/claimspilot/pkg/models"
)

// fixedClock pins time for budget and dedup window tests
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// day0 is an arbitrary mid-day UTC anchor most tests start from
var day0 = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

// fakeStore is the in-memory Store used across the agent tests
type fakeStore struct {
	mu sync.Mutex

	claims   []*models.Claim
	policies map[int64]*models.AutomationPolicy

	tasks          []*models.Task
	inboundTimes   map[int64][]time.Time
	lastOutbound   map[int64]*time.Time
	lastActivity   map[int64]*time.Time
	pendingActions []*models.PendingAction
	deadlines      []*models.CarrierDeadline
	documents      []*models.Document

	auditLog []*models.AuditLogEntry

	nextID int64

	// error injection per method name
	failures map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		policies:     make(map[int64]*models.AutomationPolicy),
		inboundTimes: make(map[int64][]time.Time),
		lastOutbound: make(map[int64]*time.Time),
		lastActivity: make(map[int64]*time.Time),
		failures:     make(map[string]error),
		nextID:       1000,
	}
}

func (f *fakeStore) fail(method string) error {
	if err, ok := f.failures[method]; ok {
		return err
	}
	return nil
}

func (f *fakeStore) ListAutomatedClaims(ctx context.Context) ([]*models.Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListAutomatedClaims"); err != nil {
		return nil, err
	}
	return f.claims, nil
}

func (f *fakeStore) GetPolicy(ctx context.Context, claimID int64) (*models.AutomationPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetPolicy"); err != nil {
		return nil, err
	}
	return f.policies[claimID], nil
}

func (f *fakeStore) ListOpenTasks(ctx context.Context, claimID int64) ([]*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListOpenTasks"); err != nil {
		return nil, err
	}
	var open []*models.Task
	for _, task := range f.tasks {
		if task.ClaimID == claimID && !task.IsCompleted {
			open = append(open, task)
		}
	}
	return open, nil
}

func (f *fakeStore) CompleteTaskBySystem(ctx context.Context, taskID int64, completedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CompleteTaskBySystem"); err != nil {
		return err
	}
	for _, task := range f.tasks {
		if task.ID == taskID {
			task.IsCompleted = true
			task.CompletedAt = &completedAt
			task.CompletedBy = nil
			return nil
		}
	}
	return errors.New("task not found")
}

func (f *fakeStore) HasInboundMessageSince(ctx context.Context, claimID int64, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("HasInboundMessageSince"); err != nil {
		return false, err
	}
	for _, at := range f.inboundTimes[claimID] {
		if at.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) LastOutboundCarrierMessageAt(ctx context.Context, claimID int64) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("LastOutboundCarrierMessageAt"); err != nil {
		return nil, err
	}
	return f.lastOutbound[claimID], nil
}

func (f *fakeStore) LastActivityAt(ctx context.Context, claimID int64) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("LastActivityAt"); err != nil {
		return nil, err
	}
	return f.lastActivity[claimID], nil
}

func (f *fakeStore) ListPendingActions(ctx context.Context, claimID int64) ([]*models.PendingAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListPendingActions"); err != nil {
		return nil, err
	}
	var pending []*models.PendingAction
	for _, action := range f.pendingActions {
		if action.ClaimID == claimID {
			pending = append(pending, action)
		}
	}
	return pending, nil
}

func (f *fakeStore) CreatePendingAction(ctx context.Context, action *models.PendingAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreatePendingAction"); err != nil {
		return err
	}
	f.nextID++
	action.ID = f.nextID
	f.pendingActions = append(f.pendingActions, action)
	return nil
}

func (f *fakeStore) MarkActionSent(ctx context.Context, actionID int64, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("MarkActionSent"); err != nil {
		return err
	}
	for _, action := range f.pendingActions {
		if action.ID == actionID && action.Status == models.ActionStatusPending {
			action.Status = models.ActionStatusSent
			action.SentAt = &sentAt
			return nil
		}
	}
	return errors.New("pending action not found or not pending")
}

func (f *fakeStore) ListUpcomingDeadlines(ctx context.Context, claimID int64, dueBefore time.Time) ([]*models.CarrierDeadline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListUpcomingDeadlines"); err != nil {
		return nil, err
	}
	var upcoming []*models.CarrierDeadline
	for _, deadline := range f.deadlines {
		if deadline.ClaimID == claimID && !deadline.IsResolved && deadline.DueAt.Before(dueBefore) {
			upcoming = append(upcoming, deadline)
		}
	}
	return upcoming, nil
}

func (f *fakeStore) ListUnclassifiedDocuments(ctx context.Context, limit int) ([]*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListUnclassifiedDocuments"); err != nil {
		return nil, err
	}
	var unclassified []*models.Document
	for _, doc := range f.documents {
		if doc.Classification == nil {
			unclassified = append(unclassified, doc)
			if len(unclassified) >= limit {
				break
			}
		}
	}
	return unclassified, nil
}

func (f *fakeStore) SetDocumentClassification(ctx context.Context, documentID int64, label string, confidence float64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SetDocumentClassification"); err != nil {
		return err
	}
	for _, doc := range f.documents {
		if doc.ID == documentID {
			doc.Classification = &label
			doc.Confidence = &confidence
			doc.ClassifiedAt = &at
			return nil
		}
	}
	return errors.New("document not found")
}

func (f *fakeStore) CountAutoExecutedSince(ctx context.Context, claimID int64, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CountAutoExecutedSince"); err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range f.auditLog {
		if entry.ClaimID == claimID && entry.WasAutoExecuted && !entry.ExecutedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) HasAuditEntrySince(ctx context.Context, claimID int64, actionType, dedupKey string, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("HasAuditEntrySince"); err != nil {
		return false, err
	}
	return f.hasEntryLocked(claimID, actionType, dedupKey, since), nil
}

func (f *fakeStore) hasEntryLocked(claimID int64, actionType, dedupKey string, since time.Time) bool {
	for _, entry := range f.auditLog {
		if entry.ClaimID != claimID || entry.ActionType != actionType {
			continue
		}
		if dedupKey != "" && entry.DedupKey != dedupKey {
			continue
		}
		if !entry.ExecutedAt.Before(since) {
			return true
		}
	}
	return false
}

func (f *fakeStore) InsertAuditEntry(ctx context.Context, entry *models.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("InsertAuditEntry"); err != nil {
		return err
	}
	f.nextID++
	entry.ID = f.nextID
	f.auditLog = append(f.auditLog, entry)
	return nil
}

func (f *fakeStore) InsertAuditEntryIfAbsent(ctx context.Context, entry *models.AuditLogEntry, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("InsertAuditEntryIfAbsent"); err != nil {
		return false, err
	}
	if f.hasEntryLocked(entry.ClaimID, entry.ActionType, entry.DedupKey, since) {
		return false, nil
	}
	f.nextID++
	entry.ID = f.nextID
	f.auditLog = append(f.auditLog, entry)
	return true, nil
}

// entriesOf filters the audit log by action type
func (f *fakeStore) entriesOf(actionType string) []*models.AuditLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*models.AuditLogEntry
	for _, entry := range f.auditLog {
		if entry.ActionType == actionType {
			matched = append(matched, entry)
		}
	}
	return matched
}

// fakeDrafter returns a canned draft or a canned error
type fakeDrafter struct {
	draft    *Draft
	err      error
	requests []DraftRequest
}

func (d *fakeDrafter) DraftMessage(ctx context.Context, req DraftRequest) (*Draft, error) {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return nil, d.err
	}
	if d.draft != nil {
		return d.draft, nil
	}
	return &Draft{Subject: "Checking in", Body: "Just following up on the claim."}, nil
}

type sentMessage struct {
	ClaimID   int64
	Kind      string
	Recipient string
	Subject   string
	Body      string
}

// fakeDeliverer records sends and can simulate transport failures
type fakeDeliverer struct {
	sent     []sentMessage
	emailErr error
	smsErr   error
}

func (d *fakeDeliverer) SendEmail(ctx context.Context, claimID int64, recipient, subject, body string) error {
	if d.emailErr != nil {
		return d.emailErr
	}
	d.sent = append(d.sent, sentMessage{ClaimID: claimID, Kind: "email", Recipient: recipient, Subject: subject, Body: body})
	return nil
}

func (d *fakeDeliverer) SendSMS(ctx context.Context, claimID int64, recipient, body string) error {
	if d.smsErr != nil {
		return d.smsErr
	}
	d.sent = append(d.sent, sentMessage{ClaimID: claimID, Kind: "sms", Recipient: recipient, Body: body})
	return nil
}

// fakeClassifier returns a fixed label and records which files it saw
type fakeClassifier struct {
	label      string
	confidence float64
	err        error
	seen       []string
}

func (c *fakeClassifier) ClassifyDocument(ctx context.Context, fileID string) (*Classification, error) {
	c.seen = append(c.seen, fileID)
	if c.err != nil {
		return nil, c.err
	}
	label := c.label
	if label == "" {
		label = "estimate"
	}
	confidence := c.confidence
	if confidence == 0 {
		confidence = 0.92
	}
	return &Classification{Label: label, Confidence: confidence}, nil
}

// Test data helpers

func testClaim(id int64) *models.Claim {
	return &models.Claim{
		ID:                id,
		ClaimNumber:       "CLM-2025-0042",
		PolicyholderName:  "Dana Whitfield",
		PolicyholderEmail: "dana@example.com",
		CarrierName:       "Acme Mutual",
		AdjusterEmail:     "adjuster@acmemutual.com",
		Status:            "awaiting carrier response",
		UpdatedAt:         day0.Add(-48 * time.Hour),
		CreatedAt:         day0.Add(-30 * 24 * time.Hour),
	}
}

func testPolicy(claimID int64, level models.AutonomyLevel) *models.AutomationPolicy {
	return &models.AutomationPolicy{
		ClaimID:              claimID,
		Enabled:              true,
		AutonomyLevel:        level,
		DailyActionLimit:     3,
		FollowUpIntervalDays: 7,
		AutoEscalateUrgency:  true,
		AutoCompleteTasks:    true,
	}
}
