package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/maypok86/otter/v2"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	gateway "github.com/bodhi-gateway/core/internal"
)

// grantTypeTokenExchange is the RFC 8693 token-exchange grant.
const grantTypeTokenExchange = "urn:ietf:params:oauth:grant-type:token-exchange"

// exchangeCacheTTL bounds how long a successful exchange is reused for the
// same incoming bearer token.
const exchangeCacheTTL = 5 * time.Minute

// ExchangeClient performs the actual RFC-8693 HTTP exchange against the
// configured authorization server's token endpoint.
type ExchangeClient struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

// NewExchangeClientFromIssuer discovers the token endpoint via OIDC
// discovery (coreos/go-oidc) and returns a ready ExchangeClient.
func NewExchangeClientFromIssuer(ctx context.Context, issuer, clientID, clientSecret string) (*ExchangeClient, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider: %w", err)
	}
	var claims struct {
		TokenEndpoint string `json:"token_endpoint"`
	}
	if err := provider.Claims(&claims); err != nil {
		return nil, fmt.Errorf("read token_endpoint: %w", err)
	}
	return &ExchangeClient{
		TokenURL:     claims.TokenEndpoint,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTPClient:   http.DefaultClient,
	}, nil
}

// exchangeResponse is the authorization server's token-exchange response
// envelope (access_token + scope, per the external interface contract).
type exchangeResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// Exchange performs the RFC-8693 exchange for subjectToken, returning the
// result as an *oauth2.Token so it composes with the rest of the
// golang.org/x/oauth2 ecosystem (the exchanged scope travels in
// Token.Extra("scope"), the same shape stacklok-toolhive's tokenexchange
// package uses for its own TokenSource).
func (c *ExchangeClient) Exchange(ctx context.Context, subjectToken string) (*oauth2.Token, error) {
	form := url.Values{
		"grant_type":         {grantTypeTokenExchange},
		"subject_token":      {subjectToken},
		"subject_token_type": {"urn:ietf:params:oauth:token-type:access_token"},
		"client_id":          {c.ClientID},
		"client_secret":      {c.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: not logged in", gateway.ErrUnauthorized)
	case http.StatusForbidden:
		return nil, fmt.Errorf("%w: gated", gateway.ErrForbidden)
	default:
		return nil, fmt.Errorf("%w: status %d", gateway.ErrExchangeFailed, resp.StatusCode)
	}

	var out exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", gateway.ErrExchangeFailed, err)
	}
	token := &oauth2.Token{AccessToken: out.AccessToken, TokenType: out.TokenType}
	return token.WithExtra(map[string]any{"scope": out.Scope}), nil
}

// Exchanger classifies an external bearer token into an ExternalApp
// AuthContext, caching successful exchanges and coalescing concurrent
// misses for the same token via singleflight so the exchange endpoint is
// never stormed by parallel requests bearing the same credential.
type Exchanger struct {
	client *ExchangeClient
	cache  *otter.Cache[string, gateway.TokenExchangeCacheEntry]
	group  singleflight.Group
}

// NewExchanger returns an Exchanger backed by client.
func NewExchanger(client *ExchangeClient) *Exchanger {
	cache := otter.Must(&otter.Options[string, gateway.TokenExchangeCacheEntry]{
		MaximumSize:      10_000,
		ExpiryCalculator: otter.ExpiryWriting[string, gateway.TokenExchangeCacheEntry](exchangeCacheTTL),
	})
	return &Exchanger{client: client, cache: cache}
}

// Exchange resolves bearer into an ExternalApp AuthContext, using the
// cache on hit and performing (at most one concurrent) RFC-8693 exchange
// on miss.
func (e *Exchanger) Exchange(ctx context.Context, bearer string) (*gateway.AuthContext, error) {
	key := gateway.HashToken(bearer)

	if cached, ok := e.cache.GetIfPresent(key); ok {
		return &gateway.AuthContext{
			Kind:            gateway.AuthExternalApp,
			AppClientID:     cached.AppClientID,
			UserScope:       cached.UserScope,
			TokenHash:       key,
			AccessRequestID: cached.AccessRequestID,
		}, nil
	}

	v, err, _ := e.group.Do(key, func() (any, error) {
		token, err := e.client.Exchange(ctx, bearer)
		if err != nil {
			// Never cache an error -- the next request retries the exchange.
			return nil, err
		}
		exchangedScope, _ := token.Extra("scope").(string)
		scope, ok := gateway.HighestUserScope(exchangedScope)
		if !ok {
			scope = gateway.ScopeUserUser
		}
		claims, claimsErr := parseClaimsUnverified(token.AccessToken)
		entry := gateway.TokenExchangeCacheEntry{
			ExchangedJWT:    token.AccessToken,
			AppClientID:     clientIDFromClaims(claims, claimsErr),
			UserScope:       scope,
			AccessRequestID: accessRequestIDFromClaims(claims, claimsErr),
			CachedAt:        time.Now(),
		}
		e.cache.Set(key, entry)
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	entry := v.(gateway.TokenExchangeCacheEntry)

	return &gateway.AuthContext{
		Kind:            gateway.AuthExternalApp,
		AppClientID:     entry.AppClientID,
		UserScope:       entry.UserScope,
		TokenHash:       key,
		AccessRequestID: entry.AccessRequestID,
	}, nil
}

// clientIDFromClaims reads the "azp" claim (signature already validated
// upstream by the authorization server that issued the exchanged JWT) to
// recover the caller application's client id.
func clientIDFromClaims(claims jwt.MapClaims, err error) string {
	if err != nil {
		return ""
	}
	azp, _ := claims["azp"].(string)
	return azp
}

// accessRequestIDFromClaims reads the "access_request_id" claim, present
// when the exchanged token was issued on behalf of a caller acting under a
// specific delegated Access Request rather than its own full grant.
func accessRequestIDFromClaims(claims jwt.MapClaims, err error) string {
	if err != nil {
		return ""
	}
	id, _ := claims["access_request_id"].(string)
	return id
}
