// internal/ads/conversions.go
package ads

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"matching-platform/internal/common/config"
	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/common/metrics"
)

// ErrNoIdentifier is returned for a conversion without gclid or email.
var ErrNoIdentifier = errors.New("conversion needs a gclid or an email")

// Conversion is one offline click conversion.
type Conversion struct {
	Gclid    string
	Email    string
	Value    float64
	Currency string
	OrderID  string
	Time     time.Time
}

type clickConversion struct {
	Gclid              string           `json:"gclid,omitempty"`
	ConversionAction   string           `json:"conversionAction"`
	ConversionDateTime string           `json:"conversionDateTime"`
	ConversionValue    float64          `json:"conversionValue,omitempty"`
	CurrencyCode       string           `json:"currencyCode,omitempty"`
	OrderID            string           `json:"orderId,omitempty"`
	UserIdentifiers    []userIdentifier `json:"userIdentifiers,omitempty"`
}

type userIdentifier struct {
	HashedEmail string `json:"hashedEmail"`
}

type uploadRequest struct {
	Conversions    []clickConversion `json:"conversions"`
	PartialFailure bool              `json:"partialFailure"`
}

type uploadResponse struct {
	PartialFailureError *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"partialFailureError,omitempty"`
	Results []struct {
		Gclid              string `json:"gclid"`
		ConversionAction   string `json:"conversionAction"`
		ConversionDateTime string `json:"conversionDateTime"`
	} `json:"results"`
}

// ConversionClient uploads lead conversions. Without credentials it is disabled and Upload is
// a no-op.
type ConversionClient struct {
	api      *api
	actionID string
	enabled  bool
	log      logger.Logger
}

// NewConversionClient builds a client. ts may be nil to derive a token source from cfg.
func NewConversionClient(ctx context.Context, cfg config.GoogleAdsConfig, ts oauth2.TokenSource, log logger.Logger) *ConversionClient {
	c := &ConversionClient{
		actionID: cfg.ConversionActionID,
		enabled:  cfg.Enabled() && cfg.ConversionActionID != "",
		log:      log.WithFields(map[string]interface{}{"component": "ads-conversions"}),
	}
	if !c.enabled {
		return c
	}
	if ts == nil {
		ts = TokenSource(ctx, cfg)
	}
	c.api = newAPI(ctx, cfg, ts)
	return c
}

func (c *ConversionClient) Enabled() bool {
	return c.enabled
}

// Upload sends one conversion with partial-failure semantics: a rejected row is reported as
// a non-retryable error while the request itself succeeds.
func (c *ConversionClient) Upload(ctx context.Context, conv Conversion) error {
	if !c.enabled {
		metrics.ConversionsUploaded.WithLabelValues("skipped").Inc()
		c.log.Debug("Conversion upload skipped", map[string]interface{}{"reason": errNotConfigured.Error()})
		return nil
	}
	if conv.Gclid == "" && conv.Email == "" {
		return ErrNoIdentifier
	}

	row := clickConversion{
		Gclid:              conv.Gclid,
		ConversionAction:   fmt.Sprintf("customers/%s/conversionActions/%s", c.api.customerID, c.actionID),
		ConversionDateTime: formatConversionTime(conv.Time),
		ConversionValue:    conv.Value,
		CurrencyCode:       conv.Currency,
		OrderID:            conv.OrderID,
	}
	if conv.Email != "" {
		row.UserIdentifiers = []userIdentifier{{HashedEmail: HashEmail(conv.Email)}}
	}

	var resp uploadResponse
	err := c.api.post(ctx, c.api.customerPath(":uploadClickConversions"), uploadRequest{
		Conversions:    []clickConversion{row},
		PartialFailure: true,
	}, &resp)
	if err != nil {
		metrics.ConversionsUploaded.WithLabelValues("failed").Inc()
		return stderrors.NewConversionUploadFailedError(err)
	}

	if resp.PartialFailureError != nil && resp.PartialFailureError.Message != "" {
		metrics.ConversionsUploaded.WithLabelValues("rejected").Inc()
		stdErr := stderrors.NewConversionUploadFailedError(errors.New(resp.PartialFailureError.Message)).
			WithMetadata("partialFailure", true)
		stdErr.Retryable = false
		return stdErr
	}

	metrics.ConversionsUploaded.WithLabelValues("uploaded").Inc()
	c.log.Info("Conversion uploaded", map[string]interface{}{
		"hasGclid": conv.Gclid != "",
		"hasEmail": conv.Email != "",
	})
	return nil
}

// HashEmail normalizes and SHA-256 hashes an email for enhanced conversions. Dots in the
// local part of gmail addresses are removed.
func HashEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if local, domain, ok := strings.Cut(email, "@"); ok && (domain == "gmail.com" || domain == "googlemail.com") {
		email = strings.ReplaceAll(local, ".", "") + "@" + domain
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}

// formatConversionTime renders the API's "yyyy-mm-dd hh:mm:ss+hh:mm" form.
func formatConversionTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("2006-01-02 15:04:05-07:00")
}
