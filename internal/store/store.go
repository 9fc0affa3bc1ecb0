// Package store persists pipeline results. Every run is an immutable row; a
// re-run supersedes the previous latest row but never deletes it, so the full
// decision history stays auditable. Raw provider evidence is encrypted before
// insert in production.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medverify/internal/common/crypto"
	"medverify/internal/common/logger"
	"medverify/internal/models"
)

// ErrNotFound is returned when a subject has no verification record.
var ErrNotFound = errors.New("verification record not found")

// Verifier re-runs the pipeline for stored requests.
type Verifier interface {
	VerifyDoctor(ctx context.Context, req *models.VerificationRequest) *models.PipelineResult
}

type Store struct {
	db        *sql.DB
	encryptor *crypto.EvidenceEncryptor
	verifier  Verifier
	logger    logger.Logger
}

// evidenceBlob bundles the per-stage raw provider payloads for storage.
type evidenceBlob struct {
	Identity     []byte `json:"identity,omitempty"`
	Professional []byte `json:"professional,omitempty"`
}

// New creates the record store. encryptor may be nil only outside production;
// verifier may be nil if Rerun is not needed by the caller.
func New(db *sql.DB, encryptor *crypto.EvidenceEncryptor, verifier Verifier, log logger.Logger) *Store {
	return &Store{
		db:        db,
		encryptor: encryptor,
		verifier:  verifier,
		logger:    log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// Save records a pipeline result for the subject, superseding the prior latest
// record. The original request is stored alongside so a privileged re-run can
// replay it.
func (s *Store) Save(ctx context.Context, subjectID string, req *models.VerificationRequest, result *models.PipelineResult) (string, error) {
	requestJSON, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}

	evidence, encrypted, err := s.packEvidence(result)
	if err != nil {
		return "", err
	}

	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE verification_records SET superseded = true WHERE subject_id = $1 AND superseded = false`,
		subjectID,
	); err != nil {
		return "", fmt.Errorf("supersede prior records: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO verification_records
			(id, subject_id, request, result, raw_evidence, evidence_encrypted, final_status, superseded, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)`,
		runID, subjectID, requestJSON, resultJSON, evidence, encrypted,
		string(result.FinalStatus), time.Now().UTC(),
	); err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("verification record saved", map[string]interface{}{
		"subjectId":   subjectID,
		"runId":       runID,
		"finalStatus": result.FinalStatus,
		"encrypted":   encrypted,
	})

	return runID, nil
}

// Get returns the latest (non-superseded) result for the subject.
func (s *Store) Get(ctx context.Context, subjectID string) (*models.PipelineResult, error) {
	var resultJSON []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM verification_records WHERE subject_id = $1 AND superseded = false`,
		subjectID,
	).Scan(&resultJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query record: %w", err)
	}

	var result models.PipelineResult
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

// Rerun replays the stored request through the pipeline and saves the new
// result. The prior result is superseded, not deleted.
func (s *Store) Rerun(ctx context.Context, subjectID string) (*models.PipelineResult, error) {
	if s.verifier == nil {
		return nil, errors.New("store has no verifier configured")
	}

	var requestJSON []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT request FROM verification_records WHERE subject_id = $1 AND superseded = false`,
		subjectID,
	).Scan(&requestJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query record: %w", err)
	}

	var req models.VerificationRequest
	if err := json.Unmarshal(requestJSON, &req); err != nil {
		return nil, fmt.Errorf("unmarshal stored request: %w", err)
	}

	result := s.verifier.VerifyDoctor(ctx, &req)
	if _, err := s.Save(ctx, subjectID, &req, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) packEvidence(result *models.PipelineResult) ([]byte, bool, error) {
	blob := evidenceBlob{}
	if result.IdentityResult != nil {
		blob.Identity = result.IdentityResult.RawEvidence
	}
	if result.ProfessionalResult != nil {
		blob.Professional = result.ProfessionalResult.RawEvidence
	}

	raw, err := json.Marshal(blob)
	if err != nil {
		return nil, false, fmt.Errorf("marshal evidence: %w", err)
	}

	if s.encryptor == nil {
		return raw, false, nil
	}

	sealed, err := s.encryptor.Encrypt(raw)
	if err != nil {
		return nil, false, fmt.Errorf("encrypt evidence: %w", err)
	}
	return sealed, true, nil
}
