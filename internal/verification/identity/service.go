package identity

import (
	"context"
	"regexp"
	"time"

	stderrors "medverify/internal/common/errors"
	"medverify/internal/common/logger"
	"medverify/internal/common/metrics"
	"medverify/internal/models"
	"medverify/internal/verification/rut"
)

var (
	nationalIDPattern = regexp.MustCompile(`^\d{7,9}$`)
	checkDigitPattern = regexp.MustCompile(`^[0-9Kk]$`)
)

type ServiceDependencies struct {
	Provider Provider
	Logger   logger.Logger
}

// Service orchestrates the civil-identity stage: local format checks, the
// availability probe, the provider call, and the local-only fallback when the
// provider is unreachable.
type Service struct {
	config   *Config
	provider Provider
	logger   logger.Logger
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:   config,
		provider: deps.Provider,
		logger:   deps.Logger.WithFields(map[string]interface{}{"stage": "identity"}),
	}
}

// VerifyIdentity never returns an error: every failure mode is folded into the
// result status so the pipeline reduces one closed taxonomy.
func (s *Service) VerifyIdentity(ctx context.Context, req *models.VerificationRequest) *models.IdentityVerificationResult {
	start := time.Now()
	result := s.verify(ctx, req)
	result.VerifiedAt = time.Now().UTC()

	metrics.StageDuration.WithLabelValues("identity", string(result.Status)).
		Observe(time.Since(start).Seconds())
	s.logger.Info("identity stage finished", map[string]interface{}{
		"nationalId": req.NationalID,
		"status":     result.Status,
		"durationMs": time.Since(start).Milliseconds(),
	})

	return result
}

func (s *Service) verify(ctx context.Context, req *models.VerificationRequest) *models.IdentityVerificationResult {
	result := &models.IdentityVerificationResult{
		NationalID:   req.NationalID,
		CheckDigit:   req.CheckDigit,
		NameProvided: req.FullName,
		Provider:     s.provider.Name(),
	}

	// Shape errors are terminal and never reach the provider.
	if !nationalIDPattern.MatchString(req.NationalID) {
		result.Status = models.IDInvalid
		result.Errors = append(result.Errors, "national id must be 7 to 9 digits")
		return result
	}
	if !checkDigitPattern.MatchString(req.CheckDigit) {
		result.Status = models.IDInvalid
		result.Errors = append(result.Errors, "check digit must be a digit or K")
		return result
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.config.ProbeTimeout)
	available := s.provider.IsAvailable(probeCtx)
	cancel()

	if !available {
		return s.verifyLocally(result)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	providerResult, err := s.provider.VerifyIdentity(callCtx, req)
	if err != nil {
		return s.classifyProviderError(result, err)
	}

	return providerResult
}

// verifyLocally is the degraded path: the check digit is validated with the
// local modulo-11 rule, and anything that passes stays pending for a human.
// A down provider never produces an approval.
func (s *Service) verifyLocally(result *models.IdentityVerificationResult) *models.IdentityVerificationResult {
	s.logger.Warn("identity provider unreachable, falling back to local validation", map[string]interface{}{
		"provider":   s.provider.Name(),
		"nationalId": result.NationalID,
	})
	metrics.ProviderErrors.WithLabelValues(s.provider.Name(), string(stderrors.ErrCodeProviderUnreachable)).Inc()

	if !rut.Verify(result.NationalID, result.CheckDigit) {
		result.Status = models.IDInvalid
		result.Errors = append(result.Errors, "check digit does not satisfy modulo-11 rule")
		return result
	}

	result.Status = models.ProviderUnreachable
	result.Errors = append(result.Errors,
		"identity provider unreachable; check digit validated locally, pending manual confirmation")
	return result
}

func (s *Service) classifyProviderError(result *models.IdentityVerificationResult, err error) *models.IdentityVerificationResult {
	code := stderrors.ErrCodeInternal
	if se := stderrors.AsStandard(err); se != nil {
		code = se.Code
	}
	metrics.ProviderErrors.WithLabelValues(s.provider.Name(), string(code)).Inc()

	switch {
	case stderrors.IsAuth(err):
		// Generic entry only: no credential material in results or logs.
		s.logger.Error("identity provider rejected our credentials", map[string]interface{}{
			"provider": s.provider.Name(),
		})
		result.Status = models.ErrorValidation
		result.Errors = append(result.Errors, "identity provider rejected the verification request")

	case stderrors.IsCancelled(err):
		result.Status = models.ErrorValidation
		result.Errors = append(result.Errors, "cancelled: identity verification aborted by caller deadline")

	default:
		s.logger.WithError(err).Error("identity provider call failed", map[string]interface{}{
			"provider": s.provider.Name(),
		})
		result.Status = models.ErrorValidation
		result.Errors = append(result.Errors, err.Error())
	}

	return result
}
