// internal/workers/leads/create-lead-record/models.go
package createleadrecord

import (
	"context"

	"matching-platform/internal/intake"
	"matching-platform/internal/store"
)

type Input struct {
	Lead *intake.Form `json:"lead"`
}

type Output struct {
	LeadID     string `json:"leadId"`
	LeadStatus string `json:"leadStatus"`
	CreatedAt  string `json:"createdAt"`
}

// LeadCreator persists a lead and returns its id.
type LeadCreator interface {
	CreateLead(ctx context.Context, lead *store.Lead) (string, error)
}

// EventTracker records analytics events without blocking.
type EventTracker interface {
	Track(eventType, source string, props map[string]interface{})
}
