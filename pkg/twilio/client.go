// Package twilio is a client for the Twilio Lookup v2 API surface used by
// the validation pipeline: line-type intelligence and carrier reachability.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://lookups.twilio.com/v2"

// Client performs Lookup v2 queries.
type Client interface {
	// Lookup fetches line-type intelligence for a number.
	Lookup(ctx context.Context, number, sid, secret string) (*LookupResponse, error)
	// Status fetches carrier reachability for a number.
	Status(ctx context.Context, number, sid, secret string) (*StatusResponse, error)
}

// LookupResponse is the subset of GET /PhoneNumbers/{number} the pipeline
// consumes.
type LookupResponse struct {
	Valid              bool   `json:"valid"`
	PhoneNumber        string `json:"phone_number"`
	NationalFormat     string `json:"national_format"`
	CountryCode        string `json:"country_code"`
	CallingCountryCode string `json:"calling_country_code"`

	LineTypeIntelligence struct {
		Type              string `json:"type"`
		CarrierName       string `json:"carrier_name"`
		MobileCountryCode string `json:"mobile_country_code"`
		MobileNetworkCode string `json:"mobile_network_code"`
	} `json:"line_type_intelligence"`
}

// StatusResponse reports carrier-level reachability for a number.
type StatusResponse struct {
	Reachable    bool   `json:"reachable"`
	Active       bool   `json:"active"`
	Ported       bool   `json:"ported"`
	StatusReason string `json:"status_reason,omitempty"`
}

// APIError is a non-2xx Twilio response.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio: http %d code %d: %s", e.StatusCode, e.Code, e.Message)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Twilio Lookup client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Lookup(ctx context.Context, number, sid, secret string) (*LookupResponse, error) {
	q := url.Values{}
	q.Set("Fields", "line_type_intelligence")

	var out LookupResponse
	if err := c.get(ctx, "/PhoneNumbers/"+url.PathEscape(number)+"?"+q.Encode(), sid, secret, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Status(ctx context.Context, number, sid, secret string) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.get(ctx, "/PhoneNumbers/"+url.PathEscape(number)+"/Status", sid, secret, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) get(ctx context.Context, path, sid, secret string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "twilio: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "twilio: create request")
	}
	req.SetBasicAuth(sid, secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "twilio: request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return eris.Wrap(err, "twilio: read body")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "twilio: decode response")
	}
	return nil
}
