package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medverify/internal/common/crypto"
	"medverify/internal/common/logger"
	"medverify/internal/models"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type fakeVerifier struct {
	result *models.PipelineResult
	calls  int
}

func (f *fakeVerifier) VerifyDoctor(_ context.Context, _ *models.VerificationRequest) *models.PipelineResult {
	f.calls++
	return f.result
}

func newMockStore(t *testing.T, encryptor *crypto.EvidenceEncryptor, verifier Verifier) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, encryptor, verifier, logger.NewTestLogger(t)), mock
}

func sampleRequest() *models.VerificationRequest {
	return &models.VerificationRequest{
		NationalID: "12345678",
		CheckDigit: "5",
		FullName:   "Maria Elena Gonzalez Soto",
	}
}

func approvedResult() *models.PipelineResult {
	return &models.PipelineResult{
		FinalStatus: models.StatusApproved,
		IdentityResult: &models.IdentityVerificationResult{
			Status:      models.IdentityVerified,
			NationalID:  "12345678",
			RawEvidence: []byte(`{"found":true}`),
		},
		ProfessionalResult: &models.ProfessionalVerificationResult{
			Status:      models.ProfessionalVerified,
			RawEvidence: []byte(`{"registered":true}`),
		},
	}
}

func TestSave_SupersedesThenInserts(t *testing.T) {
	store, mock := newMockStore(t, nil, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE verification_records SET superseded = true`).
		WithArgs("subject-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO verification_records`).
		WithArgs(sqlmock.AnyArg(), "subject-1", sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), false, "APPROVED", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	runID, err := store.Save(context.Background(), "subject-1", sampleRequest(), approvedResult())

	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_MarksEvidenceEncrypted(t *testing.T) {
	encryptor, err := crypto.NewEvidenceEncryptor(testKeyHex)
	require.NoError(t, err)
	store, mock := newMockStore(t, encryptor, nil)

	var storedEvidence []byte
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE verification_records`).
		WithArgs("subject-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO verification_records`).
		WithArgs(sqlmock.AnyArg(), "subject-1", sqlmock.AnyArg(), sqlmock.AnyArg(),
			evidenceCapture(&storedEvidence), true, "APPROVED", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	_, err = store.Save(context.Background(), "subject-1", sampleRequest(), approvedResult())

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.NotContains(t, string(storedEvidence), "found", "evidence must not be stored in plaintext")

	opened, err := encryptor.Decrypt(storedEvidence)
	require.NoError(t, err)

	var blob struct {
		Identity     []byte `json:"identity"`
		Professional []byte `json:"professional"`
	}
	require.NoError(t, json.Unmarshal(opened, &blob))
	assert.JSONEq(t, `{"found":true}`, string(blob.Identity))
	assert.JSONEq(t, `{"registered":true}`, string(blob.Professional))
}

// evidenceCapture matches any []byte argument and stores a copy for inspection.
func evidenceCapture(dst *[]byte) sqlmock.Argument {
	return captureArg{dst: dst}
}

type captureArg struct {
	dst *[]byte
}

func (c captureArg) Match(v driver.Value) bool {
	b, ok := v.([]byte)
	if !ok {
		return false
	}
	*c.dst = append([]byte(nil), b...)
	return true
}

func TestSave_RollsBackOnInsertFailure(t *testing.T) {
	store, mock := newMockStore(t, nil, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE verification_records`).
		WithArgs("subject-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO verification_records`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := store.Save(context.Background(), "subject-1", sampleRequest(), approvedResult())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert record")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	t.Run("returns latest result", func(t *testing.T) {
		store, mock := newMockStore(t, nil, nil)

		resultJSON, err := json.Marshal(approvedResult())
		require.NoError(t, err)

		mock.ExpectQuery(`SELECT result FROM verification_records`).
			WithArgs("subject-1").
			WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(resultJSON))

		result, err := store.Get(context.Background(), "subject-1")

		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, result.FinalStatus)
		require.NotNil(t, result.IdentityResult)
		assert.Equal(t, models.IdentityVerified, result.IdentityResult.Status)
	})

	t.Run("unknown subject", func(t *testing.T) {
		store, mock := newMockStore(t, nil, nil)

		mock.ExpectQuery(`SELECT result FROM verification_records`).
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"result"}))

		_, err := store.Get(context.Background(), "nobody")

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRerun(t *testing.T) {
	t.Run("replays stored request and saves", func(t *testing.T) {
		verifier := &fakeVerifier{result: &models.PipelineResult{FinalStatus: models.StatusManualReview}}
		store, mock := newMockStore(t, nil, verifier)

		requestJSON, err := json.Marshal(sampleRequest())
		require.NoError(t, err)

		mock.ExpectQuery(`SELECT request FROM verification_records`).
			WithArgs("subject-1").
			WillReturnRows(sqlmock.NewRows([]string{"request"}).AddRow(requestJSON))
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE verification_records`).
			WithArgs("subject-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO verification_records`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		result, err := store.Rerun(context.Background(), "subject-1")

		require.NoError(t, err)
		assert.Equal(t, models.StatusManualReview, result.FinalStatus)
		assert.Equal(t, 1, verifier.calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown subject", func(t *testing.T) {
		verifier := &fakeVerifier{}
		store, mock := newMockStore(t, nil, verifier)

		mock.ExpectQuery(`SELECT request FROM verification_records`).
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"request"}))

		_, err := store.Rerun(context.Background(), "nobody")

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 0, verifier.calls)
	})

	t.Run("no verifier configured", func(t *testing.T) {
		store, _ := newMockStore(t, nil, nil)

		_, err := store.Rerun(context.Background(), "subject-1")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no verifier")
	})
}
