// Package audit appends disposition events to an Elasticsearch index. Indexing
// failures are logged and swallowed: the audit trail never affects a
// disposition. Events carry statuses and timings only, never raw evidence.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"medverify/internal/common/logger"
	"medverify/internal/models"
)

type Event struct {
	SubjectID          string             `json:"subjectId"`
	RunID              string             `json:"runId"`
	FinalStatus        models.FinalStatus `json:"finalStatus"`
	IdentityStatus     string             `json:"identityStatus,omitempty"`
	ProfessionalStatus string             `json:"professionalStatus,omitempty"`
	WarningCount       int                `json:"warningCount"`
	ErrorCount         int                `json:"errorCount"`
	ManualReview       bool               `json:"manualReview"`
	DurationMS         int64              `json:"durationMs"`
	Timestamp          time.Time          `json:"timestamp"`
}

type Indexer struct {
	es     *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(es *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		es:     es,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

// Record indexes one disposition event. A nil Indexer is a no-op so callers
// can wire auditing optionally.
func (i *Indexer) Record(ctx context.Context, subjectID, runID string, result *models.PipelineResult, elapsed time.Duration) {
	if i == nil || i.es == nil {
		return
	}

	event := Event{
		SubjectID:    subjectID,
		RunID:        runID,
		FinalStatus:  result.FinalStatus,
		WarningCount: len(result.Warnings),
		ErrorCount:   len(result.Errors),
		ManualReview: result.RequiresManualReview,
		DurationMS:   elapsed.Milliseconds(),
		Timestamp:    time.Now().UTC(),
	}
	if result.IdentityResult != nil {
		event.IdentityStatus = string(result.IdentityResult.Status)
	}
	if result.ProfessionalResult != nil {
		event.ProfessionalStatus = string(result.ProfessionalResult.Status)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		i.logger.WithError(err).Warn("failed to marshal audit event", nil)
		return
	}

	res, err := i.es.Index(
		i.index,
		bytes.NewReader(payload),
		i.es.Index.WithContext(ctx),
		i.es.Index.WithDocumentID(runID),
	)
	if err != nil {
		i.logger.WithError(err).Warn("failed to index audit event", map[string]interface{}{
			"runId": runID,
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		i.logger.Warn("audit index rejected event", map[string]interface{}{
			"runId":  runID,
			"status": res.Status(),
		})
	}
}
