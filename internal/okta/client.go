// Package okta implements the identity provider's out-of-band direct
// authentication flow: primary-authenticate issues an oob_code and pushes a
// confirmation to the approver's device, and the token endpoint is polled
// with that code until the approver decides or the code expires.
package okta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pranav-okta/Cosmos-Circuitry/internal/approval"
)

// oobGrantType is the token grant used to redeem an oob_code.
const oobGrantType = "urn:okta:params:oauth:grant-type:oob"

// Provider error codes that mean the authorization is still pending.
// slow_down additionally asks the client to back off; both are non-fatal.
const (
	codeAuthorizationPending = "authorization_pending"
	codeSlowDown             = "slow_down"
)

// Config holds the client credentials and endpoints for one Okta org.
type Config struct {
	// OrgURL is the issuer base, e.g. "https://example.okta.com/oauth2/v1".
	OrgURL string

	// ClientID and ClientSecret are sent with every call.
	ClientID     string
	ClientSecret string

	// Timeout bounds each HTTP request. Defaults to 10 seconds.
	Timeout time.Duration
}

// Client calls the org's primary-authenticate and token endpoints.
// It implements approval.Authenticator.
type Client struct {
	cfg  Config
	http *http.Client
}

// Compile-time check.
var _ approval.Authenticator = (*Client)(nil)

// NewClient creates a client for the given org.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.OrgURL = strings.TrimRight(cfg.OrgURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// oobResponse is the primary-authenticate payload.
type oobResponse struct {
	OOBCode       string `json:"oob_code"`
	ExpiresIn     int    `json:"expires_in"`
	Interval      int    `json:"interval"`
	Channel       string `json:"channel"`
	BindingMethod string `json:"binding_method"`
}

// apiError is the provider's error payload.
type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Begin starts an out-of-band authentication for the approver and returns
// the oob_code handle. One attempt, no retry.
func (c *Client) Begin(ctx context.Context, req approval.BeginRequest) (string, error) {
	form := url.Values{
		"client_id":    {c.cfg.ClientID},
		"login_hint":   {req.Approver},
		"channel_hint": {req.ChannelHint},
	}
	if c.cfg.ClientSecret != "" {
		form.Set("client_secret", c.cfg.ClientSecret)
	}

	body, status, err := c.post(ctx, c.cfg.OrgURL+"/primary-authenticate", form)
	if err != nil {
		return "", fmt.Errorf("okta: primary-authenticate: %w", err)
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("okta: primary-authenticate status %d: %s", status, errorDetail(body))
	}

	var parsed oobResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("okta: primary-authenticate: invalid response: %w", err)
	}
	if parsed.OOBCode == "" {
		return "", fmt.Errorf("okta: primary-authenticate returned no oob_code")
	}
	return parsed.OOBCode, nil
}

// Check redeems the handle once at the token endpoint. A 2xx answer means
// the approver confirmed. The authorization_pending and slow_down error
// codes mean no decision yet. Every other provider answer is a denial with
// the provider's detail attached. Transport failures return an error so
// callers can retry without treating them as denials.
func (c *Client) Check(ctx context.Context, handle string) (approval.CheckResult, error) {
	form := url.Values{
		"client_id":  {c.cfg.ClientID},
		"grant_type": {oobGrantType},
		"oob_code":   {handle},
	}
	if c.cfg.ClientSecret != "" {
		form.Set("client_secret", c.cfg.ClientSecret)
	}

	body, status, err := c.post(ctx, c.cfg.OrgURL+"/token", form)
	if err != nil {
		return approval.CheckResult{}, fmt.Errorf("okta: token: %w", err)
	}

	if status >= 200 && status < 300 {
		return approval.CheckResult{Status: approval.CheckApproved}, nil
	}

	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error == "" {
		return approval.CheckResult{
			Status: approval.CheckDenied,
			Detail: fmt.Sprintf("unexpected provider status %d: %s", status, strings.TrimSpace(string(body))),
		}, nil
	}

	switch parsed.Error {
	case codeAuthorizationPending, codeSlowDown:
		return approval.CheckResult{Status: approval.CheckPending}, nil
	default:
		return approval.CheckResult{
			Status:    approval.CheckDenied,
			ErrorCode: parsed.Error,
			Detail:    fallbackDetail(parsed.ErrorDescription, parsed.Error),
		}, nil
	}
}

// post sends a form-encoded request and returns the response body and status.
func (c *Client) post(ctx context.Context, endpoint string, form url.Values) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func errorDetail(body []byte) string {
	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return fallbackDetail(parsed.ErrorDescription, parsed.Error)
	}
	return strings.TrimSpace(string(body))
}

func fallbackDetail(description, code string) string {
	if strings.TrimSpace(description) == "" {
		return code
	}
	return description
}
