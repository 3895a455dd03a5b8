// internal/common/validation/lead.go
package validation

// Lead types accepted by the intake form.
const (
	LeadTypePatient   = "patient"
	LeadTypeTherapist = "therapist"
)

var stringList = map[string]interface{}{
	"type":  "array",
	"items": map[string]interface{}{"type": "string", "maxLength": 80},
}

// LeadSchema describes a submitted intake form.
var LeadSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"type", "name", "consent"},
	"properties": map[string]interface{}{
		"type":    map[string]interface{}{"type": "string", "enum": []interface{}{LeadTypePatient, LeadTypeTherapist}},
		"name":    map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 200},
		"email":   map[string]interface{}{"type": "string", "format": "email"},
		"phone":   map[string]interface{}{"type": "string", "minLength": 6, "maxLength": 32},
		"consent": map[string]interface{}{"type": "boolean", "enum": []interface{}{true}},
		"contactMethod": map[string]interface{}{
			"type": "string", "enum": []interface{}{"email", "phone"},
		},
		"city":               map[string]interface{}{"type": "string", "maxLength": 120},
		"genderPreference":   map[string]interface{}{"type": "string", "maxLength": 32},
		"sessionPreferences": stringList,
		"schwerpunkte":       stringList,
		"specializations":    stringList,
		"gclid":              map[string]interface{}{"type": "string", "maxLength": 256},
		"campaign":           map[string]interface{}{"type": "string", "maxLength": 120},
	},
	"anyOf": []interface{}{
		map[string]interface{}{"required": []interface{}{"email"}},
		map[string]interface{}{"required": []interface{}{"phone"}},
	},
}

// VerificationSendSchema describes a request for a verification code.
var VerificationSendSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"channel", "contact"},
	"properties": map[string]interface{}{
		"channel": map[string]interface{}{"type": "string", "enum": []interface{}{"email", "sms"}},
		"contact": map[string]interface{}{"type": "string", "minLength": 3, "maxLength": 200},
		"leadId":  map[string]interface{}{"type": "string"},
	},
}

// VerificationCheckSchema describes a code submission.
var VerificationCheckSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"channel", "contact", "code"},
	"properties": map[string]interface{}{
		"channel": map[string]interface{}{"type": "string", "enum": []interface{}{"email", "sms"}},
		"contact": map[string]interface{}{"type": "string", "minLength": 3, "maxLength": 200},
		"code":    map[string]interface{}{"type": "string", "pattern": "^[0-9]{4,10}$"},
		"leadId":  map[string]interface{}{"type": "string"},
	},
}
