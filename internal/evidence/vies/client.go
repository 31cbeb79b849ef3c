package vies

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"euvat/pkg/domain"
	"euvat/pkg/platform/tracing"
)

const maxResponseBytes = 64 << 10

// Client calls the VIES REST API:
//
//	GET {base}/ms/{vatPrefix}/vat/{number}
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client. The timeout bounds the whole round-trip.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: tracing.WrapHTTPClient(&http.Client{Timeout: timeout}, "vies"),
	}
}

type checkResponse struct {
	IsValid   *bool  `json:"isValid"`
	UserError string `json:"userError"`
	Name      string `json:"name"`
	Address   string `json:"address"`
}

// Check asks the registry about a VAT number without its country prefix.
// Registry-level refusals (busy, member state down) come back as an unknown
// Result; transport failures come back as a *ProviderError.
func (c *Client) Check(ctx context.Context, country domain.CountryCode, number string) (Result, error) {
	endpoint := fmt.Sprintf("%s/ms/%s/vat/%s", c.baseURL,
		url.PathEscape(domain.VATPrefix(country)), url.PathEscape(number))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, NewProviderError(ErrorInternal, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return Result{}, NewProviderError(ErrorTimeout, "registry did not answer in time", err)
		}
		return Result{}, NewProviderError(ErrorProviderOutage, "registry unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, NewProviderError(ErrorRateLimited, "registry rate limited", nil)
	case resp.StatusCode >= 500:
		return Result{}, NewProviderError(ErrorProviderOutage, fmt.Sprintf("registry returned %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest:
		return Result{}, NewProviderError(ErrorContractMismatch, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var body checkResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return Result{}, NewProviderError(ErrorBadData, "decode registry response", err)
	}
	return body.result(), nil
}

func (b checkResponse) result() Result {
	code := strings.ToUpper(strings.TrimSpace(b.UserError))
	switch {
	case code == "VALID" || (code == "" && b.IsValid != nil && *b.IsValid):
		return Result{Outcome: OutcomeValid, Name: b.Name, Address: b.Address}
	case code == "INVALID" || (code == "" && b.IsValid != nil && !*b.IsValid):
		return Result{Outcome: OutcomeInvalid}
	case code == ErrCodeInvalidInput:
		return Result{Outcome: OutcomeInvalid, Errors: []string{ErrCodeInvalidInput}}
	case code == "":
		return Unknown(ErrCodeInvalidResponse)
	default:
		return Unknown(code)
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
