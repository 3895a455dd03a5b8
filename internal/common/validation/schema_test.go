// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLead() map[string]interface{} {
	return map[string]interface{}{
		"type":               "patient",
		"name":               "Mara K.",
		"email":              "mara@example.com",
		"consent":            true,
		"sessionPreferences": []interface{}{"online", "in_person"},
		"schwerpunkte":       []interface{}{"trauma"},
	}
}

func TestValidate_LeadSchema(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m map[string]interface{})
		valid   bool
		errorIn string
	}{
		{name: "valid patient lead", mutate: func(m map[string]interface{}) {}, valid: true},
		{
			name:    "missing consent",
			mutate:  func(m map[string]interface{}) { delete(m, "consent") },
			errorIn: "consent",
		},
		{
			name:    "consent false",
			mutate:  func(m map[string]interface{}) { m["consent"] = false },
			errorIn: "consent",
		},
		{
			name:    "unknown lead type",
			mutate:  func(m map[string]interface{}) { m["type"] = "clinic" },
			errorIn: "type",
		},
		{
			name: "phone instead of email",
			mutate: func(m map[string]interface{}) {
				delete(m, "email")
				m["phone"] = "+49 30 1234567"
			},
			valid: true,
		},
		{
			name:   "no contact channel",
			mutate: func(m map[string]interface{}) { delete(m, "email") },
		},
		{
			name:    "schwerpunkte must be strings",
			mutate:  func(m map[string]interface{}) { m["schwerpunkte"] = []interface{}{1} },
			errorIn: "schwerpunkte.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := validLead()
			tt.mutate(lead)

			res, err := Validate(LeadSchema, lead)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid, res.Messages())
			if tt.errorIn != "" {
				assert.True(t, res.HasErrors(tt.errorIn), res.Messages())
			}
		})
	}
}

func TestValidate_VerificationCheckSchema(t *testing.T) {
	res, err := Validate(VerificationCheckSchema, map[string]interface{}{
		"channel": "sms", "contact": "+4915112345678", "code": "12ab",
	})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("code"))
}

func TestContactHelpers(t *testing.T) {
	assert.True(t, ValidateEmail("a.b+c@example.de"))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.True(t, ValidatePhone("+49 (30) 123-4567"))
	assert.False(t, ValidatePhone("12"))

	assert.Equal(t, "+4915112345678", NormalizePhone("0151 1234 5678"))
	assert.Equal(t, "+4915112345678", NormalizePhone("0049 151 12345678"))
	assert.Equal(t, "+4915112345678", NormalizePhone("+49 151-123 456 78"))
}
