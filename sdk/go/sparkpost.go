// Package sparkpost composes email transmissions and sends them through the
// SparkPost Transmissions API.
package sparkpost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Region selects one of the provider's regional API endpoints.
type Region string

const (
	RegionUS Region = "us"
	RegionEU Region = "eu"
)

// Base URLs of the regional endpoints.
const (
	GlobalBaseURL = "https://api.sparkpost.com/api/v1"
	EUBaseURL     = "https://api.eu.sparkpost.com/api/v1"
)

const transmissionsPath = "/transmissions"

// Config holds the configuration for the client.
type Config struct {
	// APIKey is sent verbatim in the Authorization header. Required.
	APIKey string

	// Region picks the default endpoint when BaseURL is empty.
	// Default: RegionUS
	Region Region

	// BaseURL overrides the regional endpoint.
	// The "/api/v1" suffix is appended automatically if missing.
	BaseURL string

	// HTTPClient is an optional custom HTTP client.
	// If nil, a default client with 30s timeout is used.
	HTTPClient *http.Client

	// Headers are added to every request. They cannot replace Accept,
	// Content-Type or Authorization.
	Headers map[string]string

	// Logger receives debug-level request traces. Nil disables tracing.
	Logger *zerolog.Logger

	// Metrics records call outcomes. Nil disables metrics.
	Metrics *Metrics
}

func (c *Config) defaults() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Region == "" {
		c.Region = RegionUS
	}
	if c.BaseURL == "" {
		switch c.Region {
		case RegionUS:
			c.BaseURL = GlobalBaseURL
		case RegionEU:
			c.BaseURL = EUBaseURL
		default:
			return fmt.Errorf("%w: %q", ErrUnknownRegion, c.Region)
		}
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if !strings.HasSuffix(c.BaseURL, "/api/v1") {
		c.BaseURL = c.BaseURL + "/api/v1"
	}
	return nil
}

// Client sends transmissions. It is safe for concurrent use; every call is an
// independent request.
type Client struct {
	cfg Config
}

// NewClient creates a new client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg}, nil
}

// NewEUClient creates a client for the EU endpoint with default settings.
func NewEUClient(apiKey string) (*Client, error) {
	return NewClient(Config{APIKey: apiKey, Region: RegionEU})
}

// BaseURL returns the resolved API root.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Send submits msg as a new transmission. A provider refusal is returned as a
// *Failure response, not as an error. Errors are *TransportError or
// *MalformedResponseError.
func (c *Client) Send(ctx context.Context, msg *Message) (TransmissionResponse, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	payload, err := msg.JSON()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	status, body, err := c.do(ctx, http.MethodPost, transmissionsPath, payload, nil)
	if err != nil {
		c.cfg.Metrics.observe("send", OutcomeTransport, time.Since(start))
		return nil, err
	}

	resp, err := DecodeResponse(body)
	if err != nil {
		c.cfg.Metrics.observe("send", OutcomeMalformed, time.Since(start))
		return nil, withStatus(err, status)
	}

	switch r := resp.(type) {
	case *Success:
		c.cfg.Metrics.observe("send", OutcomeAccepted, time.Since(start))
		c.cfg.Metrics.observeSuccess(r)
	case *Failure:
		c.cfg.Metrics.observe("send", OutcomeRejected, time.Since(start))
	}
	return resp, nil
}

// Transmission retrieves a scheduled transmission by id.
func (c *Client) Transmission(ctx context.Context, id string) (*ScheduledTransmission, error) {
	if id == "" {
		return nil, ErrEmptyTransmissionID
	}

	var result struct {
		Transmission *ScheduledTransmission `json:"transmission"`
	}
	if err := c.lookup(ctx, "get", transmissionsPath+"/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	if result.Transmission == nil {
		return nil, &MalformedResponseError{Reason: "results has no transmission"}
	}
	return result.Transmission, nil
}

// ListFilter narrows ListTransmissions. Empty fields are not sent.
type ListFilter struct {
	CampaignID string
	TemplateID string
}

func (f ListFilter) headers() map[string]string {
	h := make(map[string]string, 2)
	if f.CampaignID != "" {
		h["campaign_id"] = f.CampaignID
	}
	if f.TemplateID != "" {
		h["template_id"] = f.TemplateID
	}
	return h
}

// ListTransmissions lists scheduled transmissions. Filters travel as
// campaign_id / template_id headers; entries in extra override them.
func (c *Client) ListTransmissions(ctx context.Context, filter ListFilter, extra map[string]string) ([]ScheduledTransmission, error) {
	headers := filter.headers()
	for k, v := range extra {
		headers[k] = v
	}

	var result []ScheduledTransmission
	if err := c.lookup(ctx, "list", transmissionsPath, headers, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// lookup performs a GET and decodes the results into out. A provider error
// list is returned as *Failure.
func (c *Client) lookup(ctx context.Context, operation, path string, headers map[string]string, out any) error {
	start := time.Now()
	status, body, err := c.do(ctx, http.MethodGet, path, nil, headers)
	if err != nil {
		c.cfg.Metrics.observe(operation, OutcomeTransport, time.Since(start))
		return err
	}

	results, failure, err := decodeEnvelope(body)
	if err != nil {
		c.cfg.Metrics.observe(operation, OutcomeMalformed, time.Since(start))
		return withStatus(err, status)
	}
	if failure != nil {
		c.cfg.Metrics.observe(operation, OutcomeRejected, time.Since(start))
		return failure
	}

	if err := json.Unmarshal(results, out); err != nil {
		c.cfg.Metrics.observe(operation, OutcomeMalformed, time.Since(start))
		return &MalformedResponseError{
			StatusCode: status,
			Body:       string(body),
			Reason:     "unexpected results shape",
			Err:        err,
		}
	}
	c.cfg.Metrics.observe(operation, OutcomeAccepted, time.Since(start))
	return nil
}

// do sends a request and returns the status and JSON body. Any failure before
// a JSON body is in hand is a *TransportError.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, headers map[string]string) (int, []byte, error) {
	target := c.cfg.BaseURL + path
	requestID := uuid.NewString()
	log := c.cfg.Logger.With().
		Str("request_id", requestID).
		Str("method", method).
		Str("url", target).
		Logger()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return 0, nil, &TransportError{Op: method, URL: target, Err: err}
	}
	c.constructHeaders(req.Header, headers)

	start := time.Now()
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Dur("duration", time.Since(start)).Msg("request failed")
		return 0, nil, &TransportError{Op: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Op: method, URL: target, StatusCode: resp.StatusCode, Err: err}
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request completed")

	if !json.Valid(body) {
		return resp.StatusCode, nil, &TransportError{
			Op:         method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        errNonJSONBody,
		}
	}
	return resp.StatusCode, body, nil
}

// constructHeaders layers configured headers, then per-call headers, then the
// fixed headers, so the fixed ones always win.
func (c *Client) constructHeaders(h http.Header, extra map[string]string) {
	for k, v := range c.cfg.Headers {
		h.Set(k, v)
	}
	for k, v := range extra {
		h.Set(k, v)
	}
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", c.cfg.APIKey)
}

func withStatus(err error, status int) error {
	var me *MalformedResponseError
	if errors.As(err, &me) {
		me.StatusCode = status
	}
	return err
}
