package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/beevik/etree"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

// SecurityMode selects how requests are protected.
type SecurityMode string

const (
	// SecurityTransport requires https and sends basic credentials.
	SecurityTransport SecurityMode = "transport"
	// SecurityNone allows plain http. Only meant for local stubs.
	SecurityNone SecurityMode = "none"
)

var ErrMessageTooLarge = errors.New("response exceeds maximum message size")

// ParseSecurityMode parses "transport" or "none".
func ParseSecurityMode(s string) (SecurityMode, error) {
	mode := SecurityMode(s)
	if !slices.Contains([]SecurityMode{SecurityTransport, SecurityNone}, mode) {
		return "", fmt.Errorf("unknown security mode %q", s)
	}
	return mode, nil
}

// ServiceClient runs queryxml documents against the service.
type ServiceClient interface {
	Query(ctx context.Context, queryXML string) (*QueryResult, error)
}

type Config struct {
	Endpoint        string
	UserName        string
	Password        string
	IntegrationCode string
	SecurityMode    SecurityMode
	Timeout         time.Duration
	RetryMax        int
	MaxMessageSize  int64
}

// Client talks SOAP to one ATWS endpoint. The same client answers zone
// lookups; use WithEndpoint to bind it to the zone it returns.
type Client struct {
	endpoint   *url.URL
	config     Config
	httpClient *http.Client
	log        zerolog.Logger
}

var (
	_ ZoneResolver  = (*Client)(nil)
	_ ServiceClient = (*Client)(nil)
)

func NewClient(config Config, log zerolog.Logger) (*Client, error) {
	if config.SecurityMode == "" {
		config.SecurityMode = SecurityTransport
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = 2147483647
	}

	endpoint, err := parseEndpoint(config.Endpoint, config.SecurityMode)
	if err != nil {
		return nil, err
	}

	jar, _ := cookiejar.New(nil)

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = config.RetryMax
	retryClient.HTTPClient = &http.Client{
		Jar:     jar,
		Timeout: config.Timeout,
	}
	retryClient.Logger = leveledLogger{log: log}
	retryClient.CheckRetry = checkRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		endpoint:   endpoint,
		config:     config,
		httpClient: retryClient.StandardClient(),
		log:        log,
	}, nil
}

// WithEndpoint returns a client that shares c's transport and credentials but
// sends requests to endpoint.
func (c *Client) WithEndpoint(endpoint string) (*Client, error) {
	u, err := parseEndpoint(endpoint, c.config.SecurityMode)
	if err != nil {
		return nil, err
	}
	bound := *c
	bound.endpoint = u
	bound.config.Endpoint = endpoint
	return &bound, nil
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// ZoneInfo asks the service which zone serves userName.
func (c *Client) ZoneInfo(ctx context.Context, userName string) (*ZoneInfo, error) {
	response, err := c.call(ctx, "getZoneInfo", false, param{"UserName", userName})
	if err != nil {
		return nil, fmt.Errorf("getZoneInfo: %w", err)
	}
	return decodeZoneInfo(response, userName)
}

// Query runs a queryxml document. When the service answers with a failing
// ReturnCode, the decoded result is returned together with a *ReturnCodeError.
func (c *Client) Query(ctx context.Context, queryXML string) (*QueryResult, error) {
	response, err := c.call(ctx, "query", true, param{"sXML", queryXML})
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	result, err := decodeQueryResult(response)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	c.log.Debug().
		Int("return_code", result.ReturnCode).
		Str("entity_type", result.EntityResultType).
		Int("count", len(result.EntityResults)).
		Msg("Query completed")

	if result.ReturnCode != ReturnCodeSuccess {
		return result, &ReturnCodeError{ReturnCode: result.ReturnCode, Messages: result.Errors}
	}
	if result.Truncated() {
		c.log.Warn().
			Int("count", len(result.EntityResults)).
			Msg("Result set reached the per-query record limit, remaining records are not fetched")
	}
	return result, nil
}

func (c *Client) call(ctx context.Context, operation string, authenticated bool, params ...param) (*etree.Element, error) {
	integrationCode := ""
	if authenticated {
		integrationCode = c.config.IntegrationCode
	}
	body, err := newEnvelope(operation, integrationCode, params...).WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapAction(operation))
	if authenticated {
		req.SetBasicAuth(c.config.UserName, c.config.Password)
	}

	c.log.Debug().
		Str("operation", operation).
		Str("url", c.endpoint.String()).
		Msg("Sending SOAP request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxMessageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(respBody)) > c.config.MaxMessageSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrMessageTooLarge, c.config.MaxMessageSize)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("server returned %s for user %s", resp.Status, c.config.UserName)
	}

	payload, err := parseEnvelope(respBody, resp.StatusCode)
	if err != nil {
		var fault *FaultError
		if errors.As(err, &fault) {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("server returned error status %s: %w", resp.Status, err)
		}
		return nil, err
	}
	return payload, nil
}

// checkRetry leaves SOAP faults (HTTP 500 with a fault body) alone and retries
// everything else the default policy retries.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp != nil && resp.StatusCode == http.StatusInternalServerError {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func parseEndpoint(endpoint string, mode SecurityMode) (*url.URL, error) {
	if _, err := ParseSecurityMode(string(mode)); err != nil {
		return nil, err
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	switch {
	case mode == SecurityTransport && u.Scheme != "https":
		return nil, fmt.Errorf("endpoint %q must use https in %s security mode", endpoint, mode)
	case u.Scheme != "https" && u.Scheme != "http":
		return nil, fmt.Errorf("endpoint %q has unsupported scheme %q", endpoint, u.Scheme)
	}
	return u, nil
}
