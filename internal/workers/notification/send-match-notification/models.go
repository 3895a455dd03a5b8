// internal/workers/notification/send-match-notification/models.go
package sendmatchnotification

import (
	"context"

	"matching-platform/internal/store"
)

type Input struct {
	LeadID         string `json:"leadId"`
	MatchCount     int    `json:"matchCount"`
	SelectionToken string `json:"selectionToken"`
}

type Output struct {
	Notified            bool   `json:"matchNotificationSent"`
	NotificationChannel string `json:"matchNotificationChannel,omitempty"`
	SelectionLink       string `json:"selectionLink,omitempty"`
}

type LeadReader interface {
	Get(ctx context.Context, id string) (*store.Lead, error)
}

type Notifier interface {
	Email(ctx context.Context, to, templateID string, vars map[string]string) error
	SMS(ctx context.Context, phone, templateID string, vars map[string]string) error
}
