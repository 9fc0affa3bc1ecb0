// Package pipeline reduces the identity and professional verification stages
// into one disposition. The reduction is a pure function of the two stage
// statuses; the professional stage never runs unless identity verified.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"medverify/internal/common/logger"
	"medverify/internal/common/metrics"
	"medverify/internal/common/observability"
	"medverify/internal/models"
)

// IdentityVerifier is the civil-identity stage contract.
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, req *models.VerificationRequest) *models.IdentityVerificationResult
}

// ProfessionalVerifier is the professional-registry stage contract.
type ProfessionalVerifier interface {
	VerifyProfessional(ctx context.Context, req *models.VerificationRequest) *models.ProfessionalVerificationResult
}

type Dependencies struct {
	Identity      IdentityVerifier
	Professional  ProfessionalVerifier
	Logger        logger.Logger
	Observability *observability.Observability
}

type Pipeline struct {
	identity     IdentityVerifier
	professional ProfessionalVerifier
	logger       logger.Logger
	obs          *observability.Observability
}

func New(deps Dependencies) *Pipeline {
	obs := deps.Observability
	if obs == nil {
		obs = &observability.Observability{}
	}
	return &Pipeline{
		identity:     deps.Identity,
		professional: deps.Professional,
		logger:       deps.Logger.WithFields(map[string]interface{}{"component": "pipeline"}),
		obs:          obs,
	}
}

// VerifyDoctor runs the full verification for one signup request. It always
// returns a result: panics and cancellation resolve to MANUAL_REVIEW, never to
// an approval, a silent rejection or a crash. Persistence is the caller's
// responsibility.
func (p *Pipeline) VerifyDoctor(ctx context.Context, req *models.VerificationRequest) (result *models.PipelineResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result = p.manualReviewResult(result, fmt.Sprintf("unexpected error during verification: %v", r))
		}
		result.VerifiedAt = time.Now().UTC()
		result.RequiresManualReview = result.FinalStatus == models.StatusManualReview
		p.record(ctx, result, time.Since(start))
	}()

	result = &models.PipelineResult{FinalStatus: models.StatusPending}

	if violations := validateRequest(req); violations != nil {
		result.IdentityResult = &models.IdentityVerificationResult{
			Status:       models.IDInvalid,
			NationalID:   req.NationalID,
			CheckDigit:   req.CheckDigit,
			NameProvided: req.FullName,
			Errors:       violations,
			VerifiedAt:   time.Now().UTC(),
		}
		result.FinalStatus = models.StatusRejectedAtIdentity
		result.Errors = append(result.Errors, violations...)
		return result
	}

	if ctx.Err() != nil {
		return p.manualReviewResult(result, "cancelled: caller deadline elapsed before identity stage")
	}

	idResult := p.identity.VerifyIdentity(ctx, req)
	result.IdentityResult = idResult

	switch idResult.Status {
	case models.IDInvalid, models.IdentityMismatch:
		// An unverifiable identity disqualifies regardless of license.
		result.FinalStatus = models.StatusRejectedAtIdentity
		result.Errors = append(result.Errors, idResult.Errors...)
		return result

	case models.ProviderUnreachable, models.ErrorValidation:
		// Without confirmed civil identity the professional-identity linkage
		// cannot be established, so the professional stage is skipped.
		result.FinalStatus = models.StatusManualReview
		result.Warnings = append(result.Warnings, idResult.Errors...)
		return result

	case models.IdentityVerified:
		// proceed

	default:
		return p.manualReviewResult(result, fmt.Sprintf("unknown identity status %q", idResult.Status))
	}

	if ctx.Err() != nil {
		return p.manualReviewResult(result, "cancelled: caller deadline elapsed before professional stage")
	}

	profResult := p.professional.VerifyProfessional(ctx, req)
	result.ProfessionalResult = profResult

	switch profResult.Status {
	case models.NotRegistered, models.WrongProfession, models.NotLicensed:
		result.FinalStatus = models.StatusRejectedAtProfessional
		result.Errors = append(result.Errors, profResult.Errors...)

	case models.NameInconsistent:
		result.FinalStatus = models.StatusManualReview
		result.Warnings = append(result.Warnings, profResult.Inconsistencies...)

	case models.ProviderError:
		result.FinalStatus = models.StatusManualReview
		result.Warnings = append(result.Warnings, profResult.Errors...)

	case models.ProfessionalVerified:
		result.FinalStatus = models.StatusApproved

	default:
		return p.manualReviewResult(result, fmt.Sprintf("unknown professional status %q", profResult.Status))
	}

	return result
}

func (p *Pipeline) manualReviewResult(result *models.PipelineResult, reason string) *models.PipelineResult {
	if result == nil {
		result = &models.PipelineResult{}
	}
	result.FinalStatus = models.StatusManualReview
	result.Errors = append(result.Errors, reason)
	return result
}

// record emits duration and disposition only. Stage payloads and raw evidence
// stay out of logs.
func (p *Pipeline) record(ctx context.Context, result *models.PipelineResult, elapsed time.Duration) {
	metrics.VerificationsCompleted.WithLabelValues(string(result.FinalStatus)).Inc()
	if result.FinalStatus == models.StatusManualReview {
		metrics.ManualReviewQueue.Inc()
	}
	p.obs.RecordRun(ctx, string(result.FinalStatus))
	p.obs.RecordRunDuration(ctx, elapsed, string(result.FinalStatus))

	p.logger.Info("verification finished", map[string]interface{}{
		"finalStatus": result.FinalStatus,
		"durationMs":  elapsed.Milliseconds(),
		"manual":      result.RequiresManualReview,
	})
}
