// internal/workers/verification/send-verification-code/models.go
package sendverificationcode

import "context"

type Input struct {
	LeadID              string   `json:"leadId"`
	VerificationChannel string   `json:"verificationChannel"`
	Contact             string   `json:"contact"`
	Lead                *LeadRef `json:"lead,omitempty"`
}

// LeadRef is the part of the lead variable used for the greeting.
type LeadRef struct {
	Name string `json:"name"`
}

type Output struct {
	CodeSent bool   `json:"codeSent"`
	SentAt   string `json:"codeSentAt"`
}

// CodeSender issues and delivers a verification code.
type CodeSender interface {
	Send(ctx context.Context, channel, contact, name string) error
}
