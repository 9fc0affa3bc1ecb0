// Package civilregistry implements the identity.Provider contract against the
// civil registry's person-lookup HTTP API.
package civilregistry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	stderrors "medverify/internal/common/errors"
	httpclient "medverify/internal/common/http"
	"medverify/internal/models"
	"medverify/internal/verification/namematch"
)

const ProviderName = "civilregistry"

// matchThreshold is the score below which the official and claimed names are
// treated as belonging to different persons.
const matchThreshold = 80

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *httpclient.Client
}

type personResponse struct {
	Found          bool   `json:"found"`
	FullName       string `json:"fullName"`
	BirthDate      string `json:"birthDate"`
	DocumentStatus string `json:"documentStatus"`
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpclient.NewClient(timeout),
	}
}

func (c *Client) Name() string {
	return ProviderName
}

// IsAvailable probes the registry health endpoint. The caller bounds ctx with
// the probe timeout.
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (c *Client) VerifyIdentity(ctx context.Context, req *models.VerificationRequest) (*models.IdentityVerificationResult, error) {
	url := fmt.Sprintf("%s/api/v1/persons/%s-%s", c.baseURL, req.NationalID, strings.ToUpper(req.CheckDigit))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, stderrors.NewProviderBadResponseError(ProviderName, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
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

	result := &models.IdentityVerificationResult{
		NationalID:   req.NationalID,
		CheckDigit:   req.CheckDigit,
		NameProvided: req.FullName,
		Provider:     ProviderName,
		RawEvidence:  body,
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, stderrors.NewProviderAuthError(ProviderName)

	case resp.StatusCode == http.StatusNotFound:
		result.Status = models.IDInvalid
		result.Errors = append(result.Errors, "national id not found in civil registry")
		return result, nil

	case resp.StatusCode != http.StatusOK:
		return nil, stderrors.NewProviderBadResponseError(ProviderName,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var person personResponse
	if err := json.Unmarshal(body, &person); err != nil {
		return nil, stderrors.NewProviderBadResponseError(ProviderName, err)
	}

	if !person.Found {
		result.Status = models.IDInvalid
		result.Errors = append(result.Errors, "national id not found in civil registry")
		return result, nil
	}

	result.NameOfficial = person.FullName
	result.BirthDateOfficial = person.BirthDate
	result.IDCardStatus = person.DocumentStatus

	if blocked(person.DocumentStatus) {
		result.Status = models.IDInvalid
		result.Errors = append(result.Errors, "identity document is not valid: "+person.DocumentStatus)
		return result, nil
	}

	score := namematch.Compare(req.FullName, person.FullName)
	result.MatchScore = &score

	if score < matchThreshold {
		result.Status = models.IdentityMismatch
		result.Errors = append(result.Errors,
			fmt.Sprintf("claimed name does not match civil registry record (score %d)", score))
		return result, nil
	}

	result.Status = models.IdentityVerified
	return result, nil
}

func blocked(documentStatus string) bool {
	status := namematch.Normalize(documentStatus)
	for _, bad := range []string{"bloqueado", "expirado", "vencido", "anulado"} {
		if strings.Contains(status, bad) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
