package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	gateway "github.com/bodhi-gateway/core/internal"
	"github.com/bodhi-gateway/core/internal/accessrequest"
)

// ConsentRegistrationClient registers an approved access request's consent
// with the authorization server, at the same issuer ExchangeClient talks
// to. It implements accessrequest.ConsentRegistrar.
type ConsentRegistrationClient struct {
	ConsentURL string // authorization-server consent-registration endpoint
	HTTPClient *http.Client
}

var _ accessrequest.ConsentRegistrar = (*ConsentRegistrationClient)(nil)

// consentRequest is the registration payload; description is the
// human-readable summary of what was approved, for the authorization
// server's own audit/consent-screen record.
type consentRequest struct {
	AppClientID     string `json:"app_client_id"`
	AccessRequestID string `json:"access_request_id"`
	Description     string `json:"description"`
}

// consentResponse is the authorization server's registration envelope.
type consentResponse struct {
	Scope              string `json:"scope"`
	AccessRequestScope string `json:"access_request_scope"`
}

// RegisterConsent registers appClientID's approved access to accessRequestID
// with the authorization server, authenticated as the user via userToken.
// A 409 response means the access-request UUID already exists there -- it
// is returned as accessrequest.ErrConsentConflict, on which
// accessrequest.Service transitions the request to Failed rather than
// erroring the approver's call.
func (c *ConsentRegistrationClient) RegisterConsent(ctx context.Context, userToken, appClientID, accessRequestID, description string) error {
	payload, err := json.Marshal(consentRequest{
		AppClientID:     appClientID,
		AccessRequestID: accessRequestID,
		Description:     description,
	})
	if err != nil {
		return fmt.Errorf("encode consent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ConsentURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build consent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+userToken)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var out consentResponse
		_ = json.NewDecoder(resp.Body).Decode(&out) // best-effort; registration already succeeded
		return nil
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: not logged in", gateway.ErrUnauthorized)
	case http.StatusForbidden:
		return fmt.Errorf("%w: gated", gateway.ErrForbidden)
	case http.StatusConflict:
		return accessrequest.ErrConsentConflict
	default:
		return fmt.Errorf("%w: status %d", gateway.ErrExchangeFailed, resp.StatusCode)
	}
}
