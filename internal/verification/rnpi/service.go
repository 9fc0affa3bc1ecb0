// Package rnpi implements the professional-registry verification stage: the
// registry lookup plus the licensure business rules that decide whether a
// registered professional is an actively licensed physician.
package rnpi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	stderrors "medverify/internal/common/errors"
	"medverify/internal/common/logger"
	"medverify/internal/common/metrics"
	"medverify/internal/models"
	"medverify/internal/verification/namematch"
)

// physicianKeywords is the profession allowlist; the registry stores free-text
// profession names, so matching is substring over normalized text.
var physicianKeywords = []string{"medico", "medica", "cirujano", "medicina"}

// activeLicenseKeywords is the allowlist of license statuses that count as
// currently licensed.
var activeLicenseKeywords = []string{"habilitado", "habilitada", "vigente", "activo", "activa"}

type ServiceDependencies struct {
	Provider Provider
	Logger   logger.Logger
}

type Service struct {
	config   *Config
	provider Provider
	logger   logger.Logger
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:   config,
		provider: deps.Provider,
		logger:   deps.Logger.WithFields(map[string]interface{}{"stage": "professional"}),
	}
}

// VerifyProfessional never returns an error: every failure mode is folded into
// the result status. A transport failure is PROVIDER_ERROR, never a rejection
// and never an approval.
func (s *Service) VerifyProfessional(ctx context.Context, req *models.VerificationRequest) *models.ProfessionalVerificationResult {
	start := time.Now()
	result := s.verify(ctx, req)
	result.VerifiedAt = time.Now().UTC()

	metrics.StageDuration.WithLabelValues("professional", string(result.Status)).
		Observe(time.Since(start).Seconds())
	s.logger.Info("professional stage finished", map[string]interface{}{
		"nationalId": req.NationalID,
		"status":     result.Status,
		"durationMs": time.Since(start).Milliseconds(),
	})

	return result
}

func (s *Service) verify(ctx context.Context, req *models.VerificationRequest) *models.ProfessionalVerificationResult {
	result := &models.ProfessionalVerificationResult{
		NationalID:   req.NationalID,
		CheckDigit:   req.CheckDigit,
		NameProvided: req.FullName,
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	lookup, err := s.provider.LookupProfessional(callCtx, req.NationalID, req.CheckDigit)
	if err != nil {
		return s.classifyLookupError(result, err)
	}

	data := lookup.Data
	result.ProfessionalData = data
	result.RawEvidence = lookup.RawEvidence

	if !matchesAny(data.Profession, physicianKeywords) {
		result.Status = models.WrongProfession
		result.Errors = append(result.Errors,
			fmt.Sprintf("registered profession %q is not a physician profession", data.Profession))
		return result
	}

	if !matchesAny(data.LicenseStatus, activeLicenseKeywords) {
		result.Status = models.NotLicensed
		result.Errors = append(result.Errors,
			fmt.Sprintf("license status %q is not active", data.LicenseStatus))
		return result
	}

	score := namematch.Compare(req.FullName, data.NameOfficial)
	if score < s.config.NameMatchThreshold {
		result.Status = models.NameInconsistent
		result.Inconsistencies = append(result.Inconsistencies,
			fmt.Sprintf("claimed name %q scored %d against registry name %q", req.FullName, score, data.NameOfficial))
		return result
	}

	if req.ClaimedSpecialty != "" && !specialtyRegistered(req.ClaimedSpecialty, data.Specialties) {
		// An unregistered specialty claim needs a human, but it is not an
		// independent reject: the professional data stays attached.
		result.Status = models.NameInconsistent
		result.Inconsistencies = append(result.Inconsistencies,
			fmt.Sprintf("claimed specialty %q is not among registered specialties", req.ClaimedSpecialty))
		return result
	}

	result.Status = models.ProfessionalVerified
	return result
}

func (s *Service) classifyLookupError(result *models.ProfessionalVerificationResult, err error) *models.ProfessionalVerificationResult {
	if errors.Is(err, ErrNotRegistered) {
		result.Status = models.NotRegistered
		result.Errors = append(result.Errors, "national id is not registered in the professional registry")
		return result
	}

	code := stderrors.ErrCodeInternal
	if se := stderrors.AsStandard(err); se != nil {
		code = se.Code
	}
	metrics.ProviderErrors.WithLabelValues(s.provider.Name(), string(code)).Inc()

	switch {
	case stderrors.IsAuth(err):
		s.logger.Error("professional registry rejected our credentials", map[string]interface{}{
			"provider": s.provider.Name(),
		})
		result.Errors = append(result.Errors, "professional registry rejected the verification request")

	case stderrors.IsCancelled(err):
		result.Errors = append(result.Errors, "cancelled: professional verification aborted by caller deadline")

	default:
		s.logger.WithError(err).Error("professional registry lookup failed", map[string]interface{}{
			"provider": s.provider.Name(),
		})
		result.Errors = append(result.Errors, err.Error())
	}

	result.Status = models.ProviderError
	return result
}

func matchesAny(value string, keywords []string) bool {
	normalized := namematch.Normalize(value)
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

func specialtyRegistered(claimed string, registered []string) bool {
	c := namematch.Normalize(claimed)
	for _, spec := range registered {
		r := namematch.Normalize(spec)
		if strings.Contains(r, c) || strings.Contains(c, r) {
			return true
		}
	}
	return false
}
