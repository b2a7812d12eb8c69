package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/claimspilot/internal/logging"
	"github.com/claimspilot/pkg/models"
)

// DocumentBatchSize caps how many unclassified documents one run will triage
const DocumentBatchSize = 10

// imageExtensions short-circuit classification: a photo is a photo
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".heic": true,
	".webp": true,
	".bmp":  true,
}

// TriageWorker routes a bounded batch of unclassified documents through the
// classification collaborator once per run. Failures are counted but never
// block the run; an unclassified document simply waits for the next cycle.
type TriageWorker struct {
	store      Store
	classifier Classifier
	clock      Clock
}

// NewTriageWorker creates a document triage worker
func NewTriageWorker(store Store, classifier Classifier, clock Clock) *TriageWorker {
	return &TriageWorker{store: store, classifier: classifier, clock: clock}
}

// Run triages one batch of documents and returns how many were classified
func (t *TriageWorker) Run(ctx context.Context, triggerSource string) (int, error) {
	logger := logging.GetCurrentLogger()

	docs, err := t.store.ListUnclassifiedDocuments(ctx, DocumentBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unclassified documents: %w", err)
	}

	processed := 0
	for _, doc := range docs {
		classification, err := t.classify(ctx, doc)
		if err != nil {
			logger.LogError(fmt.Sprintf("classify document %d (%s)", doc.ID, doc.FileName), err)
			continue
		}

		now := t.clock.Now()
		if err := t.store.SetDocumentClassification(ctx, doc.ID, classification.Label, classification.Confidence, now); err != nil {
			logger.LogError(fmt.Sprintf("store classification for document %d", doc.ID), err)
			continue
		}

		detail, _ := json.Marshal(map[string]interface{}{
			"document_id": doc.ID,
			"file_name":   doc.FileName,
			"label":       classification.Label,
			"confidence":  classification.Confidence,
		})
		entry := &models.AuditLogEntry{
			ClaimID:         doc.ClaimID,
			ActionType:      models.AuditDocumentClassified,
			WasAutoExecuted: false,
			ResultSummary:   fmt.Sprintf("Classified %s as %s (%.2f)", doc.FileName, classification.Label, classification.Confidence),
			Detail:          detail,
			TriggerSource:   triggerSource,
			ExecutedAt:      now,
		}
		if err := t.store.InsertAuditEntry(ctx, entry); err != nil {
			logger.LogError(fmt.Sprintf("audit classification for document %d", doc.ID), err)
			continue
		}

		processed++
	}

	return processed, nil
}

func (t *TriageWorker) classify(ctx context.Context, doc *models.Document) (*Classification, error) {
	ext := strings.ToLower(filepath.Ext(doc.FileName))
	if imageExtensions[ext] {
		// Image files skip the classifier entirely
		return &Classification{Label: "photo", Confidence: 1.0}, nil
	}

	return t.classifier.ClassifyDocument(ctx, doc.FileID)
}
