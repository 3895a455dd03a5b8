package intake

import (
	"testing"

	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/notification"
	"matching-platform/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_NormalizesPatientForm(t *testing.T) {
	raw := []byte(`{
		"type": "patient",
		"name": "  Anna Schmidt ",
		"email": "Anna@Example.DE",
		"phone": "0170 1234567",
		"consent": true,
		"city": " Berlin ",
		"genderPreference": "Female",
		"sessionPreferences": ["Online", "online", " in_person "],
		"schwerpunkte": ["Trauma", "", "trauma", "Angst"],
		"gclid": " abc123 "
	}`)

	form, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "Anna Schmidt", form.Name)
	assert.Equal(t, "anna@example.de", form.Email)
	assert.Equal(t, "+491701234567", form.Phone)
	assert.Equal(t, "Berlin", form.City)
	assert.Equal(t, "female", form.GenderPreference)
	assert.Equal(t, []string{"online", "in_person"}, form.SessionPreferences)
	assert.Equal(t, []string{"trauma", "angst"}, form.Schwerpunkte)
	assert.Equal(t, "abc123", form.Gclid)
	assert.Equal(t, "email", form.ContactMethod)

	channel, contact := form.VerificationTarget()
	assert.Equal(t, notification.ChannelEmail, channel)
	assert.Equal(t, "anna@example.de", contact)
}

func TestParse_PhoneOnlyDefaultsToSMS(t *testing.T) {
	form, err := Parse([]byte(`{"type":"patient","name":"Ben","phone":"+49 151 2345678","consent":true}`))
	require.NoError(t, err)

	channel, contact := form.VerificationTarget()
	assert.Equal(t, notification.ChannelSMS, channel)
	assert.Equal(t, "+491512345678", contact)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantMsg string
	}{
		{
			name:    "not json",
			raw:     `{`,
			wantMsg: "invalid JSON",
		},
		{
			name:    "missing consent",
			raw:     `{"type":"patient","name":"Anna","email":"anna@example.de"}`,
			wantMsg: "consent",
		},
		{
			name:    "consent false",
			raw:     `{"type":"patient","name":"Anna","email":"anna@example.de","consent":false}`,
			wantMsg: "consent",
		},
		{
			name:    "no contact",
			raw:     `{"type":"patient","name":"Anna","consent":true}`,
			wantMsg: "",
		},
		{
			name:    "unknown type",
			raw:     `{"type":"clinic","name":"Anna","email":"anna@example.de","consent":true}`,
			wantMsg: "type",
		},
		{
			name:    "blank name",
			raw:     `{"type":"patient","name":"   ","email":"anna@example.de","consent":true}`,
			wantMsg: "name",
		},
		{
			name:    "phone method without phone",
			raw:     `{"type":"patient","name":"Anna","email":"anna@example.de","consent":true,"contactMethod":"phone"}`,
			wantMsg: "phone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeLeadValidationFailed))
			if tt.wantMsg != "" {
				assert.Contains(t, stderrors.AsStandardError(err).Details, tt.wantMsg)
			}
		})
	}
}

func TestForm_Lead(t *testing.T) {
	form := &Form{
		Type:               "patient",
		Name:               "Anna",
		Email:              "anna@example.de",
		City:               "Berlin",
		GenderPreference:   "female",
		SessionPreferences: []string{"online"},
		Schwerpunkte:       []string{"trauma"},
		Gclid:              "g-1",
		Campaign:           "spring",
	}

	lead := form.Lead()
	assert.Equal(t, store.StatusPreConfirmation, lead.Status)
	assert.Equal(t, "spring", lead.CampaignSource)
	assert.Equal(t, "g-1", lead.Gclid)
	assert.Equal(t, "Berlin", lead.Intake.City)

	prefs := lead.Intake.Preferences()
	assert.True(t, prefs.Schwerpunkte.Has("trauma"))
}
