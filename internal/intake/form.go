// Package intake validates and normalizes submitted lead forms.
package intake

import (
	"encoding/json"
	"fmt"
	"strings"

	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/validation"
	"matching-platform/internal/notification"
	"matching-platform/internal/store"
)

// Form is a lead form after schema validation and normalization.
type Form struct {
	Type               string   `json:"type"`
	Name               string   `json:"name"`
	Email              string   `json:"email,omitempty"`
	Phone              string   `json:"phone,omitempty"`
	ContactMethod      string   `json:"contactMethod,omitempty"`
	Consent            bool     `json:"consent"`
	City               string   `json:"city,omitempty"`
	GenderPreference   string   `json:"genderPreference,omitempty"`
	SessionPreferences []string `json:"sessionPreferences,omitempty"`
	Schwerpunkte       []string `json:"schwerpunkte,omitempty"`
	Specializations    []string `json:"specializations,omitempty"`
	Gclid              string   `json:"gclid,omitempty"`
	Campaign           string   `json:"campaign,omitempty"`
}

// Parse validates raw JSON against validation.LeadSchema and returns the normalized form.
// Every failure is a LEAD_VALIDATION_FAILED error listing the offending fields.
func Parse(raw []byte) (*Form, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, stderrors.NewLeadValidationError(fmt.Sprintf("invalid JSON: %v", err))
	}
	return FromMap(doc)
}

// FromMap validates an already decoded document.
func FromMap(doc map[string]interface{}) (*Form, error) {
	res, err := validation.Validate(validation.LeadSchema, doc)
	if err != nil {
		return nil, stderrors.NewInternalError(err)
	}
	if !res.Valid {
		return nil, stderrors.NewLeadValidationError(strings.Join(res.Messages(), "; "))
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, stderrors.NewInternalError(err)
	}
	var f Form
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, stderrors.NewLeadValidationError(err.Error())
	}

	f.normalize()
	if err := f.check(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Form) normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	if f.Phone != "" {
		f.Phone = validation.NormalizePhone(f.Phone)
	}
	f.City = strings.TrimSpace(f.City)
	f.GenderPreference = strings.ToLower(strings.TrimSpace(f.GenderPreference))
	f.SessionPreferences = cleanList(f.SessionPreferences)
	f.Schwerpunkte = cleanList(f.Schwerpunkte)
	f.Specializations = cleanList(f.Specializations)
	f.Gclid = strings.TrimSpace(f.Gclid)
	f.Campaign = strings.TrimSpace(f.Campaign)
	if f.ContactMethod == "" {
		f.ContactMethod = "email"
		if f.Email == "" {
			f.ContactMethod = "phone"
		}
	}
}

func (f *Form) check() error {
	var problems []string
	if f.Name == "" {
		problems = append(problems, "name: must not be blank")
	}
	if f.Email != "" && !validation.ValidateEmail(f.Email) {
		problems = append(problems, "email: invalid address")
	}
	if f.Phone != "" && !validation.ValidatePhone(f.Phone) {
		problems = append(problems, "phone: invalid number")
	}
	if f.ContactMethod == "email" && f.Email == "" {
		problems = append(problems, "email: required for contact method email")
	}
	if f.ContactMethod == "phone" && f.Phone == "" {
		problems = append(problems, "phone: required for contact method phone")
	}
	if len(problems) > 0 {
		return stderrors.NewLeadValidationError(strings.Join(problems, "; "))
	}
	return nil
}

// VerificationTarget returns the channel and address the confirmation code goes to.
func (f *Form) VerificationTarget() (channel, contact string) {
	if f.ContactMethod == "phone" {
		return notification.ChannelSMS, f.Phone
	}
	return notification.ChannelEmail, f.Email
}

// Lead builds the row stored for this form.
func (f *Form) Lead() *store.Lead {
	return &store.Lead{
		Type:           f.Type,
		Name:           f.Name,
		Email:          f.Email,
		Phone:          f.Phone,
		Status:         store.StatusPreConfirmation,
		CampaignSource: f.Campaign,
		Gclid:          f.Gclid,
		Intake: store.Intake{
			GenderPreference:   f.GenderPreference,
			SessionPreferences: f.SessionPreferences,
			City:               f.City,
			Schwerpunkte:       f.Schwerpunkte,
			Specializations:    f.Specializations,
		},
	}
}

func cleanList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
