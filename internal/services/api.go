package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/qlink/internal/shared"
)

// ResponseKind discriminates the three shapes a Spotify Web API response can take.
type ResponseKind int

const (
	ResponseEmpty         ResponseKind = iota // no body (204, or 200 with nothing in it)
	ResponsePayload                           // a JSON document that is not an error envelope
	ResponseErrorEnvelope                     // {"error": {"status": ..., "message": ...}} or a non-2xx status
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseEmpty:
		return "empty"
	case ResponsePayload:
		return "payload"
	case ResponseErrorEnvelope:
		return "error"
	default:
		return "unknown"
	}
}

// APIError is the body of a Spotify error envelope.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API error %d: %s", e.Status, e.Message)
}

// APIResponse is a classified raw API response.
//
// Kind is decided once when the response is read; callers switch on it instead of probing the body for fields.
// Error is set only for [ResponseErrorEnvelope].
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Kind       ResponseKind
	Error      *APIError
}

// Decode unmarshals a payload response into v.
func (r *APIResponse) Decode(v any) error {
	if r.Kind != ResponsePayload {
		return fmt.Errorf("%w: cannot decode %s response", shared.ErrAPIRequest, r.Kind)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// Status returns the status carried by the error envelope, falling back to the HTTP status code.
func (r *APIResponse) Status() int {
	if r.Error != nil && r.Error.Status != 0 {
		return r.Error.Status
	}
	return r.StatusCode
}

// APIClient makes bearer-authorized requests against a JSON HTTP API.
//
// Requests pass through a token bucket limiter; a zero rate means unlimited.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	mu         sync.RWMutex
}

// NewAPIClient creates a client for baseURL. A nil client gets one with the given timeout.
func NewAPIClient(baseURL string, client *http.Client, timeout time.Duration, requestsPerSecond float64) *APIClient {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return &APIClient{
		baseURL:    baseURL,
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// BaseURL returns the URL requests are resolved against.
func (a *APIClient) BaseURL() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.baseURL
}

// SetBaseURL points the client at a different host, mostly for tests.
func (a *APIClient) SetBaseURL(baseURL string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.baseURL = baseURL
}

// Get performs a GET request to path with the given bearer token.
func (a *APIClient) Get(ctx context.Context, token, path string, query url.Values) (*APIResponse, error) {
	return a.Do(ctx, token, http.MethodGet, path, query, nil)
}

// Post performs a POST request to path with an optional JSON body.
func (a *APIClient) Post(ctx context.Context, token, path string, query url.Values, data []byte) (*APIResponse, error) {
	return a.Do(ctx, token, http.MethodPost, path, query, data)
}

// Do performs the request and classifies the response.
//
// Only transport failures are returned as errors; any HTTP status, including 4xx and 5xx, yields an [APIResponse].
func (a *APIClient) Do(ctx context.Context, token, method, path string, query url.Values, data []byte) (*APIResponse, error) {
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", shared.ErrAPIRequest, err)
	}

	fullURL := a.BaseURL() + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrAPIRequest, err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	return Classify(resp.StatusCode, resp.Header, raw), nil
}

// Classify builds an [APIResponse] from a status code and body.
func Classify(status int, headers http.Header, body []byte) *APIResponse {
	resp := &APIResponse{StatusCode: status, Headers: headers, Body: body}

	if len(bytes.TrimSpace(body)) > 0 {
		var envelope struct {
			Error *APIError `json:"error"`
		}
		// The accounts service uses {"error": "invalid_grant"}, which fails to decode here and is handled by the status check below.
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
			if envelope.Error.Status == 0 {
				envelope.Error.Status = status
			}
			resp.Kind = ResponseErrorEnvelope
			resp.Error = envelope.Error
			return resp
		}
	}

	if status >= http.StatusBadRequest {
		resp.Kind = ResponseErrorEnvelope
		resp.Error = &APIError{Status: status, Message: http.StatusText(status)}
		return resp
	}

	if status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		resp.Kind = ResponseEmpty
		return resp
	}

	resp.Kind = ResponsePayload
	return resp
}
