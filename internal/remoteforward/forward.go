// Package remoteforward implements the Remote Forwarder: it rewrites,
// authenticates, and streams a request to an upstream API-shaped alias.
package remoteforward

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/dnscache"
	"github.com/tidwall/gjson"

	gateway "github.com/bodhi-gateway/core/internal"
	"github.com/bodhi-gateway/core/internal/cryptoutil"
)

const forwardTimeout = 30 * time.Second

// Forwarder implements gateway.RemoteForwarder for AliasAPI destinations.
type Forwarder struct {
	client           *http.Client
	encryptionSecret string
}

var _ gateway.RemoteForwarder = (*Forwarder)(nil)

// New returns a Forwarder. resolver may be nil to use the system resolver
// directly; encryptionSecret is BODHI_ENCRYPTION_KEY, used to lazily
// decrypt per-alias API keys.
func New(resolver *dnscache.Resolver, encryptionSecret string) *Forwarder {
	t := &http.Transport{
		MaxIdleConnsPerHost: 100,
		MaxConnsPerHost:     200,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if resolver != nil {
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return net.Dial(network, addr)
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil || len(ips) == 0 {
				return net.Dial(network, addr)
			}
			return net.Dial(network, net.JoinHostPort(ips[0], port))
		}
	}
	return &Forwarder{
		client:           &http.Client{Transport: t, Timeout: forwardTimeout},
		encryptionSecret: encryptionSecret,
	}
}

// Forward rewrites the model field (stripping the alias's configured
// prefix when applicable), attaches the decrypted API key if configured,
// POSTs to the alias's upstream, and streams the response back to w with
// the upstream body preserved; an upstream error status (>= 400) is
// replaced by its TranslateStatus mapping.
func (f *Forwarder) Forward(ctx context.Context, w http.ResponseWriter, r *http.Request, alias gateway.Alias) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	body = rewriteModelPrefix(body, alias)

	apiPath := strings.TrimSuffix(alias.BaseURL, "/") + "/" + strings.TrimPrefix(r.URL.Path, "/v1/")
	req, err := http.NewRequestWithContext(ctx, r.Method, apiPath, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := cryptoutil.Validate(alias.APIKeyEnc, alias.APIKeySalt, alias.APIKeyNnc); err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrUpstreamError, err)
	}
	if len(alias.APIKeyEnc) > 0 {
		key, err := cryptoutil.Decrypt(f.encryptionSecret, alias.APIKeyEnc, alias.APIKeySalt, alias.APIKeyNnc)
		if err != nil {
			return fmt.Errorf("%w: decrypt api key: %v", gateway.ErrUpstreamError, err)
		}
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrUpstreamError, err)
	}
	defer resp.Body.Close()

	return pipe(w, resp, TranslateStatus(resp.StatusCode))
}

// FetchModels retrieves the upstream model list from alias's
// {base_url}/models endpoint, in OpenAI's {data:[{id:...}]} list shape. It
// satisfies apimodelcache.Fetcher so the same Forwarder that proxies chat
// and embedding traffic also backs the API-Model Cache's upstream lookups.
func (f *Forwarder) FetchModels(ctx context.Context, alias gateway.Alias) ([]string, error) {
	url := strings.TrimSuffix(alias.BaseURL, "/") + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build models request: %w", err)
	}

	if err := cryptoutil.Validate(alias.APIKeyEnc, alias.APIKeySalt, alias.APIKeyNnc); err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrUpstreamError, err)
	}
	if len(alias.APIKeyEnc) > 0 {
		key, err := cryptoutil.Decrypt(f.encryptionSecret, alias.APIKeyEnc, alias.APIKeySalt, alias.APIKeyNnc)
		if err != nil {
			return nil, fmt.Errorf("%w: decrypt api key: %v", gateway.ErrUpstreamError, err)
		}
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrUpstreamError, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: upstream models endpoint returned %d", gateway.ErrUpstreamError, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read models response: %w", err)
	}
	var ids []string
	for _, m := range gjson.GetBytes(data, "data.#.id").Array() {
		ids = append(ids, m.String())
	}
	return ids, nil
}

// rewriteModelPrefix strips alias.Prefix from the request's "model" field
// in place, using gjson/cheap string surgery rather than a full unmarshal.
func rewriteModelPrefix(body []byte, alias gateway.Alias) []byte {
	if alias.Prefix == "" {
		return body
	}
	model := gjson.GetBytes(body, "model")
	if !model.Exists() || !strings.HasPrefix(model.String(), alias.Prefix) {
		return body
	}
	stripped := strings.TrimPrefix(model.String(), alias.Prefix)
	out, err := setJSONModel(body, stripped)
	if err != nil {
		return body
	}
	return out
}

// setJSONModel rewrites the top-level "model" string field of a JSON
// request body without disturbing the rest of the document's field order
// or unrelated content -- a full unmarshal/remarshal would reorder fields
// and could lose unknown ones under differing struct tags.
func setJSONModel(body []byte, model string) ([]byte, error) {
	field := gjson.GetBytes(body, "model")
	if !field.Exists() || field.Index <= 0 {
		return nil, fmt.Errorf("locate model field")
	}
	encoded, err := json.Marshal(model)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)-len(field.Raw)+len(encoded))
	out = append(out, body[:field.Index]...)
	out = append(out, encoded...)
	return append(out, body[field.Index+len(field.Raw):]...), nil
}

// TranslateStatus maps an upstream HTTP status to the status this service
// returns to its own caller, per the Remote Forwarder's status-translation
// table.
func TranslateStatus(upstream int) int {
	switch upstream {
	case http.StatusUnauthorized:
		return http.StatusUnauthorized
	case http.StatusNotFound:
		return http.StatusNotFound
	case http.StatusTooManyRequests:
		return http.StatusTooManyRequests
	default:
		if upstream >= 200 && upstream < 300 {
			return upstream
		}
		return http.StatusBadGateway
	}
}

func pipe(w http.ResponseWriter, resp *http.Response, statusOverride int) error {
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	status := resp.StatusCode
	if resp.StatusCode >= 400 {
		status = statusOverride
	}
	w.WriteHeader(status)
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
