package createleadrecord

import (
	"context"
	"errors"
	"testing"
	"time"

	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/intake"
	"matching-platform/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLeads struct {
	id   string
	err  error
	got  *store.Lead
	hits int
}

func (f *fakeLeads) CreateLead(_ context.Context, lead *store.Lead) (string, error) {
	f.hits++
	f.got = lead
	return f.id, f.err
}

type trackedEvent struct {
	eventType string
	props     map[string]interface{}
}

type fakeTracker struct {
	events []trackedEvent
}

func (f *fakeTracker) Track(eventType, _ string, props map[string]interface{}) {
	f.events = append(f.events, trackedEvent{eventType: eventType, props: props})
}

func createTestHandler(t *testing.T, leads LeadCreator, tracker EventTracker) *Handler {
	h := NewHandler(&Config{Timeout: time.Second}, leads, tracker, logger.NewTestLogger(t))
	h.now = func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC) }
	return h
}

func createForm() *intake.Form {
	return &intake.Form{
		Type:             "patient",
		Name:             "Anna",
		Email:            "anna@example.de",
		ContactMethod:    "email",
		Consent:          true,
		City:             "Berlin",
		GenderPreference: "female",
		Gclid:            "g-123",
		Campaign:         "spring",
	}
}

func TestHandler_Execute_Success(t *testing.T) {
	leads := &fakeLeads{id: "lead-1"}
	tracker := &fakeTracker{}
	h := createTestHandler(t, leads, tracker)

	out, err := h.Execute(context.Background(), &Input{Lead: createForm()})
	require.NoError(t, err)

	assert.Equal(t, "lead-1", out.LeadID)
	assert.Equal(t, store.StatusPreConfirmation, out.LeadStatus)
	assert.Equal(t, "2026-03-02T09:30:00Z", out.CreatedAt)

	require.NotNil(t, leads.got)
	assert.Equal(t, "anna@example.de", leads.got.Email)
	assert.Equal(t, "Berlin", leads.got.Intake.City)

	require.Len(t, tracker.events, 1)
	assert.Equal(t, EventLeadSubmitted, tracker.events[0].eventType)
	assert.Equal(t, "lead-1", tracker.events[0].props["leadId"])
	assert.Equal(t, true, tracker.events[0].props["hasGclid"])
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name          string
		input         *Input
		storeErr      error
		wantCode      stderrors.ErrorCode
		wantRetryable bool
	}{
		{
			name:     "missing lead",
			input:    &Input{},
			wantCode: stderrors.ErrCodeLeadValidationFailed,
		},
		{
			name:     "duplicate lead",
			input:    &Input{Lead: createForm()},
			storeErr: store.ErrDuplicateLead,
			wantCode: stderrors.ErrCodeDuplicateLead,
		},
		{
			name:          "database failure",
			input:         &Input{Lead: createForm()},
			storeErr:      errors.New("connection reset"),
			wantCode:      stderrors.ErrCodeDatabaseInsertFailed,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := &fakeTracker{}
			h := createTestHandler(t, &fakeLeads{err: tt.storeErr}, tracker)

			out, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.Empty(t, tracker.events)

			stdErr := toStandardError(tt.input.Lead, err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.wantRetryable, stdErr.Retryable)
		})
	}
}

func TestHandler_Execute_NilTracker(t *testing.T) {
	h := createTestHandler(t, &fakeLeads{id: "lead-2"}, nil)

	out, err := h.Execute(context.Background(), &Input{Lead: createForm()})
	require.NoError(t, err)
	assert.Equal(t, "lead-2", out.LeadID)
}
