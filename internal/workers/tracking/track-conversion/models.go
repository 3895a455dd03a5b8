// internal/workers/tracking/track-conversion/models.go
package trackconversion

import (
	"context"

	"matching-platform/internal/ads"
	"matching-platform/internal/store"
)

type Input struct {
	LeadID string `json:"leadId"`
}

type Output struct {
	ConversionUploaded bool   `json:"conversionUploaded"`
	SkipReason         string `json:"conversionSkipReason,omitempty"`
}

type LeadReader interface {
	Get(ctx context.Context, id string) (*store.Lead, error)
}

type Uploader interface {
	Enabled() bool
	Upload(ctx context.Context, conv ads.Conversion) error
}
