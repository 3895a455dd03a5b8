// internal/ads/client.go
package ads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"matching-platform/internal/common/config"
	"matching-platform/internal/common/httpclient"
)

// apiError is the error envelope of the REST API.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// api is the authenticated transport shared by the conversion and campaign clients.
type api struct {
	http       *resty.Client
	customerID string
}

func newAPI(ctx context.Context, cfg config.GoogleAdsConfig, ts oauth2.TokenSource) *api {
	headers := map[string]string{
		"developer-token": cfg.DeveloperToken,
		"Content-Type":    "application/json",
	}
	if cfg.LoginCustomerID != "" {
		headers["login-customer-id"] = normalizeCustomerID(cfg.LoginCustomerID)
	}

	return &api{
		http: httpclient.New(httpclient.Options{
			BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
			Timeout:    config.GetDuration(cfg.Timeout),
			RetryCount: 2,
			Headers:    headers,
			HTTPClient: oauth2.NewClient(ctx, ts),
		}),
		customerID: normalizeCustomerID(cfg.CustomerID),
	}
}

func (a *api) post(ctx context.Context, path string, body, result interface{}) error {
	var apiErr apiError
	resp, err := a.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode(), apiErr.Error.Message)
		}
		return fmt.Errorf("status %d", resp.StatusCode())
	}
	return nil
}

func (a *api) customerPath(suffix string) string {
	return "/customers/" + a.customerID + suffix
}

// normalizeCustomerID strips the dashes of the 123-456-7890 display form.
func normalizeCustomerID(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), "-", "")
}

var errNotConfigured = errors.New("advertising platform credentials not configured")
