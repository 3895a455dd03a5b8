package sendmatchnotification

import (
	"context"
	"errors"
	"testing"
	"time"

	"matching-platform/internal/common/config"
	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/notification"
	"matching-platform/internal/store"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLeads struct {
	leads map[string]*store.Lead
	err   error
}

func (f *fakeLeads) Get(_ context.Context, id string) (*store.Lead, error) {
	if f.err != nil {
		return nil, f.err
	}
	lead, ok := f.leads[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return lead, nil
}

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	return &ses.SendEmailOutput{MessageId: sdkaws.String("m-1")}, f.err
}

type fakeSNS struct {
	inputs []*sns.PublishInput
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sns.PublishOutput{MessageId: sdkaws.String("s-1")}, nil
}

func createTestHandler(t *testing.T, leads LeadReader, email *fakeSES, sms *fakeSNS) *Handler {
	log := logger.NewTestLogger(t)
	sender := notification.NewSender(
		notification.SenderConfig{FromEmail: "team@example.org", SMSSenderID: "Matching"},
		email, sms, nil, log,
	)
	cfg := LoadConfig(config.WorkerConfig{Timeout: 2000}, config.AppConfig{PublicBaseURL: "https://example.org/"})
	return NewHandler(cfg, leads, sender, log)
}

func testLeads() *fakeLeads {
	return &fakeLeads{leads: map[string]*store.Lead{
		"lead-1": {ID: "lead-1", Name: "Anna", Email: "anna@example.de"},
		"lead-2": {ID: "lead-2", Name: "Ben", Phone: "+491512345678"},
		"lead-3": {ID: "lead-3", Name: "Cem"},
	}}
}

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(config.WorkerConfig{Timeout: 2000}, config.AppConfig{PublicBaseURL: "https://example.org/"})
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, "https://example.org", cfg.PublicBaseURL)
}

func TestHandler_Execute_Email(t *testing.T) {
	email := &fakeSES{}
	h := createTestHandler(t, testLeads(), email, &fakeSNS{})

	out, err := h.Execute(context.Background(), &Input{LeadID: "lead-1", MatchCount: 3, SelectionToken: "tok-1"})
	require.NoError(t, err)

	assert.True(t, out.Notified)
	assert.Equal(t, notification.ChannelEmail, out.NotificationChannel)
	assert.Equal(t, "https://example.org/matches/tok-1", out.SelectionLink)

	require.Len(t, email.inputs, 1)
	body := sdkaws.ToString(email.inputs[0].Message.Body.Text.Data)
	assert.Contains(t, body, "Hallo Anna")
	assert.Contains(t, body, "3 passende")
	assert.Contains(t, body, "https://example.org/matches/tok-1")
	assert.Equal(t, []string{"anna@example.de"}, email.inputs[0].Destination.ToAddresses)
}

func TestHandler_Execute_SMSFallback(t *testing.T) {
	sms := &fakeSNS{}
	h := createTestHandler(t, testLeads(), &fakeSES{}, sms)

	out, err := h.Execute(context.Background(), &Input{LeadID: "lead-2", MatchCount: 2, SelectionToken: "tok-2"})
	require.NoError(t, err)

	assert.Equal(t, notification.ChannelSMS, out.NotificationChannel)
	require.Len(t, sms.inputs, 1)
	assert.Equal(t, "+491512345678", sdkaws.ToString(sms.inputs[0].PhoneNumber))
	assert.Contains(t, sdkaws.ToString(sms.inputs[0].Message), "https://example.org/matches/tok-2")
}

func TestHandler_Execute_NothingToNotify(t *testing.T) {
	email := &fakeSES{}
	h := createTestHandler(t, testLeads(), email, &fakeSNS{})

	out, err := h.Execute(context.Background(), &Input{LeadID: "lead-1", MatchCount: 0})
	require.NoError(t, err)
	assert.False(t, out.Notified)
	assert.Empty(t, email.inputs)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name          string
		leads         *fakeLeads
		sesErr        error
		input         *Input
		wantCode      stderrors.ErrorCode
		wantRetryable bool
	}{
		{
			name:     "missing lead id",
			leads:    testLeads(),
			input:    &Input{MatchCount: 1, SelectionToken: "t"},
			wantCode: stderrors.ErrCodeInvalidJobInput,
		},
		{
			name:     "unknown lead",
			leads:    testLeads(),
			input:    &Input{LeadID: "nope", MatchCount: 1, SelectionToken: "t"},
			wantCode: stderrors.ErrCodePatientNotFound,
		},
		{
			name:     "lead without contact",
			leads:    testLeads(),
			input:    &Input{LeadID: "lead-3", MatchCount: 1, SelectionToken: "t"},
			wantCode: stderrors.ErrCodeUnsupportedChannel,
		},
		{
			name:          "store failure",
			leads:         &fakeLeads{err: errors.New("connection refused")},
			input:         &Input{LeadID: "lead-1", MatchCount: 1, SelectionToken: "t"},
			wantCode:      stderrors.ErrCodeQueryExecutionFailed,
			wantRetryable: true,
		},
		{
			name:          "ses failure",
			leads:         testLeads(),
			sesErr:        errors.New("throttled"),
			input:         &Input{LeadID: "lead-1", MatchCount: 1, SelectionToken: "t"},
			wantCode:      stderrors.ErrCodeNotificationSendFailed,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t, tt.leads, &fakeSES{err: tt.sesErr}, &fakeSNS{})

			out, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, out)

			stdErr := toStandardError(tt.input.LeadID, err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.wantRetryable, stdErr.Retryable)
		})
	}
}
