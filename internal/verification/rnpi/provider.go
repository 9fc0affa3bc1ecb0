package rnpi

import (
	"context"
	"errors"

	"medverify/internal/models"
)

// ErrNotRegistered is returned by a provider when the national id has no
// record in the professional registry.
var ErrNotRegistered = errors.New("NOT_REGISTERED")

// Lookup is a raw registry record plus the provider evidence that produced it.
type Lookup struct {
	Data        *models.ProfessionalData
	RawEvidence []byte
}

// Provider is the strategy contract for an external professional registry.
// Implementations return ErrNotRegistered for missing records and a
// transport-kind StandardError for timeout/network/auth failures. They fetch;
// the service owns every licensure business rule.
type Provider interface {
	Name() string
	LookupProfessional(ctx context.Context, nationalID, checkDigit string) (*Lookup, error)
}
