package store

import (
	"context"
	"fmt"
	"time"

	"github.com/claimspilot/pkg/models"
)

// ListUnclassifiedDocuments returns up to limit documents across automated
// claims that still lack a classification, oldest uploads first.
func (s *Store) ListUnclassifiedDocuments(ctx context.Context, limit int) ([]*models.Document, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT d.id, d.claim_id, d.file_name, d.file_id, d.classification, d.confidence, d.classified_at, d.uploaded_at
		FROM documents d
		JOIN automation_policies p ON p.claim_id = d.claim_id
		WHERE d.classification IS NULL
		  AND p.enabled = TRUE
		  AND p.autonomy_level IN ('semi_autonomous', 'fully_autonomous')
		ORDER BY d.uploaded_at ASC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unclassified documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*models.Document, 0)
	for rows.Next() {
		doc := &models.Document{}
		err := rows.Scan(
			&doc.ID,
			&doc.ClaimID,
			&doc.FileName,
			&doc.FileID,
			&doc.Classification,
			&doc.Confidence,
			&doc.ClassifiedAt,
			&doc.UploadedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

// SetDocumentClassification records the triage outcome for a document
func (s *Store) SetDocumentClassification(ctx context.Context, documentID int64, label string, confidence float64, at time.Time) error {
	query := `
		UPDATE documents
		SET classification = $2, confidence = $3, classified_at = $4
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, documentID, label, confidence, at)
	if err != nil {
		return fmt.Errorf("failed to set document classification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document %d not found", documentID)
	}

	return nil
}
