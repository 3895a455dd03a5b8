// internal/workers/leads/validate-lead/models.go
package validatelead

import "matching-platform/internal/intake"

type Input struct {
	Lead map[string]interface{} `json:"lead"`
}

type Output struct {
	LeadValid           bool         `json:"leadValid"`
	Lead                *intake.Form `json:"lead"`
	VerificationChannel string       `json:"verificationChannel"`
	Contact             string       `json:"contact"`
}
