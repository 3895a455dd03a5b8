// Package notification renders message templates and delivers them over email (SES) and
// SMS (SNS).
package notification

import (
	"regexp"
	"sync"

	stderrors "matching-platform/internal/common/errors"
)

// Template ids.
const (
	TemplateVerificationEmail = "verification_code_email"
	TemplateVerificationSMS   = "verification_code_sms"
	TemplateMatchSelection    = "match_selection_email"
	TemplateMatchSelectionSMS = "match_selection_sms"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

type Template struct {
	ID      string
	Subject string
	Body    string
}

// Registry holds templates by id. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewRegistry returns a registry preloaded with the built-in templates.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[string]Template)}
	for _, t := range defaultTemplates {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.ID] = t
}

// Render fills {{key}} placeholders from vars. Placeholders without a value render empty.
func (r *Registry) Render(id string, vars map[string]string) (subject, body string, err error) {
	r.mu.RLock()
	t, ok := r.templates[id]
	r.mu.RUnlock()
	if !ok {
		return "", "", stderrors.NewTemplateNotFoundError(id)
	}
	return fill(t.Subject, vars), fill(t.Body, vars), nil
}

func fill(s string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		return vars[key]
	})
}

var defaultTemplates = []Template{
	{
		ID:      TemplateVerificationEmail,
		Subject: "Dein Bestätigungscode: {{code}}",
		Body: "Hallo {{name}},\n\n" +
			"dein Bestätigungscode lautet {{code}}. Er ist {{minutes}} Minuten gültig.\n\n" +
			"Falls du keine Anfrage gestellt hast, kannst du diese E-Mail ignorieren.",
	},
	{
		ID:   TemplateVerificationSMS,
		Body: "Dein Bestätigungscode: {{code}} (gültig für {{minutes}} Minuten)",
	},
	{
		ID:      TemplateMatchSelection,
		Subject: "Deine Therapeut:innen-Vorschläge sind da",
		Body: "Hallo {{name}},\n\n" +
			"wir haben {{count}} passende Therapeut:innen für dich gefunden.\n" +
			"Hier kannst du sie dir ansehen und ein Kennenlerngespräch buchen:\n{{link}}\n",
	},
	{
		ID:   TemplateMatchSelectionSMS,
		Body: "{{count}} Therapeut:innen-Vorschläge für dich: {{link}}",
	},
}
