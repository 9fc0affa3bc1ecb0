package identity

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"medverify/internal/models"
)

// Provider is the strategy contract for an external identity verifier. One
// implementation exists per vendor; selection happens at startup, never inside
// the pipeline. Implementations must be safe for concurrent use.
type Provider interface {
	// Name identifies the vendor in results, logs and metrics.
	Name() string

	// IsAvailable is a short-timeout liveness probe used as a circuit-breaker
	// gate before VerifyIdentity is attempted.
	IsAvailable(ctx context.Context) bool

	// VerifyIdentity maps the vendor response to exactly one of
	// IDENTITY_VERIFIED, IDENTITY_MISMATCH or ID_INVALID, or returns a
	// transport-kind StandardError for timeout/network/auth failures.
	VerifyIdentity(ctx context.Context, req *models.VerificationRequest) (*models.IdentityVerificationResult, error)
}

// Registry holds the providers registered at startup.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("identity provider %q is not registered (have %v)", name, r.names())
	}
	return p, nil
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
