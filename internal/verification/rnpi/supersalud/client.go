// Package supersalud implements the rnpi.Provider contract against the
// national health-professional registry HTTP API. Positive lookups are cached
// briefly in redis: registry records change rarely, re-submissions within
// minutes are common.
package supersalud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	stderrors "medverify/internal/common/errors"
	httpclient "medverify/internal/common/http"
	"medverify/internal/models"
	"medverify/internal/verification/rnpi"
)

const ProviderName = "supersalud"

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *httpclient.Client
	redis      *redis.Client
	cacheTTL   time.Duration
}

type registryResponse struct {
	Registered         bool     `json:"registered"`
	FullName           string   `json:"fullName"`
	Profession         string   `json:"profession"`
	LicenseStatus      string   `json:"licenseStatus"`
	Specialties        []string `json:"specialties"`
	RegistrationNumber string   `json:"registrationNumber"`
}

// NewClient creates the registry client. redisClient may be nil to disable caching.
func NewClient(baseURL, apiKey string, timeout time.Duration, redisClient *redis.Client, cacheTTL time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpclient.NewClient(timeout),
		redis:      redisClient,
		cacheTTL:   cacheTTL,
	}
}

func (c *Client) Name() string {
	return ProviderName
}

func (c *Client) LookupProfessional(ctx context.Context, nationalID, checkDigit string) (*rnpi.Lookup, error) {
	cacheKey := fmt.Sprintf("rnpi:%s-%s", nationalID, strings.ToUpper(checkDigit))

	if c.redis != nil {
		if val, err := c.redis.Get(ctx, cacheKey).Result(); err == nil {
			var data models.ProfessionalData
			if err := json.Unmarshal([]byte(val), &data); err == nil {
				return &rnpi.Lookup{Data: &data, RawEvidence: []byte(val)}, nil
			}
		}
	}

	url := fmt.Sprintf("%s/api/v1/professionals/%s-%s", c.baseURL, nationalID, strings.ToUpper(checkDigit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, stderrors.NewProviderBadResponseError(ProviderName, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, stderrors.NewProviderTimeoutError(ProviderName, err)
		}
		return nil, stderrors.NewProviderUnreachableError(ProviderName)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, stderrors.NewProviderBadResponseError(ProviderName, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, stderrors.NewProviderAuthError(ProviderName)

	case resp.StatusCode == http.StatusNotFound:
		return nil, rnpi.ErrNotRegistered

	case resp.StatusCode != http.StatusOK:
		return nil, stderrors.NewProviderBadResponseError(ProviderName,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var reg registryResponse
	if err := json.Unmarshal(body, &reg); err != nil {
		return nil, stderrors.NewProviderBadResponseError(ProviderName, err)
	}

	if !reg.Registered {
		return nil, rnpi.ErrNotRegistered
	}

	data := &models.ProfessionalData{
		NameOfficial:       reg.FullName,
		Profession:         reg.Profession,
		LicenseStatus:      reg.LicenseStatus,
		Specialties:        reg.Specialties,
		RegistrationNumber: reg.RegistrationNumber,
	}

	if c.redis != nil {
		if cached, err := json.Marshal(data); err == nil {
			c.redis.Set(ctx, cacheKey, cached, c.cacheTTL)
		}
	}

	return &rnpi.Lookup{Data: data, RawEvidence: body}, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
