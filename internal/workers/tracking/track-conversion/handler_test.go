package trackconversion

import (
	"context"
	"errors"
	"testing"
	"time"

	"matching-platform/internal/ads"
	"matching-platform/internal/common/config"
	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeLeads struct {
	leads map[string]*store.Lead
}

func (f *fakeLeads) Get(_ context.Context, id string) (*store.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return lead, nil
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *MockUploader) Upload(ctx context.Context, conv ads.Conversion) error {
	return m.Called(ctx, conv).Error(0)
}

func newMockUploader(enabled bool) *MockUploader {
	up := &MockUploader{}
	up.On("Enabled").Return(enabled)
	return up
}

var (
	created  = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	verified = time.Date(2026, 3, 1, 8, 5, 0, 0, time.UTC)
)

func testLeads() *fakeLeads {
	return &fakeLeads{leads: map[string]*store.Lead{
		"lead-1": {ID: "lead-1", Email: "anna@example.de", Gclid: "g-1", CreatedAt: created, VerifiedAt: &verified},
		"lead-2": {ID: "lead-2", Email: "ben@example.de", CreatedAt: created},
		"lead-3": {ID: "lead-3", Phone: "+491512345678", CreatedAt: created},
	}}
}

func createTestHandler(t *testing.T, up Uploader) *Handler {
	return NewHandler(LoadConfig(config.WorkerConfig{}), testLeads(), up, logger.NewTestLogger(t))
}

func TestHandler_Execute_Uploads(t *testing.T) {
	tests := []struct {
		name      string
		leadID    string
		wantTime  time.Time
		wantGclid string
	}{
		{name: "verified lead with gclid", leadID: "lead-1", wantTime: verified, wantGclid: "g-1"},
		{name: "email only", leadID: "lead-2", wantTime: created},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newMockUploader(true)
			up.On("Upload", mock.Anything, mock.MatchedBy(func(conv ads.Conversion) bool {
				return conv.OrderID == tt.leadID &&
					conv.Gclid == tt.wantGclid &&
					conv.Time.Equal(tt.wantTime) &&
					conv.Currency == "EUR" &&
					conv.Value == 1.0
			})).Return(nil).Once()

			out, err := createTestHandler(t, up).Execute(context.Background(), &Input{LeadID: tt.leadID})
			require.NoError(t, err)

			assert.True(t, out.ConversionUploaded)
			up.AssertExpectations(t)
		})
	}
}

func TestHandler_Execute_Skips(t *testing.T) {
	up := newMockUploader(false)
	out, err := createTestHandler(t, up).Execute(context.Background(), &Input{LeadID: "lead-1"})
	require.NoError(t, err)
	assert.False(t, out.ConversionUploaded)
	assert.Equal(t, SkipDisabled, out.SkipReason)
	up.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)

	up = newMockUploader(true)
	out, err = createTestHandler(t, up).Execute(context.Background(), &Input{LeadID: "lead-3"})
	require.NoError(t, err)
	assert.Equal(t, SkipNoIdentifier, out.SkipReason)
	up.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name          string
		input         *Input
		uploadErr     error
		wantCode      stderrors.ErrorCode
		wantRetryable bool
	}{
		{
			name:     "missing lead id",
			input:    &Input{},
			wantCode: stderrors.ErrCodeInvalidJobInput,
		},
		{
			name:     "unknown lead",
			input:    &Input{LeadID: "nope"},
			wantCode: stderrors.ErrCodePatientNotFound,
		},
		{
			name:          "upload failure",
			input:         &Input{LeadID: "lead-1"},
			uploadErr:     errors.New("503 from api"),
			wantCode:      stderrors.ErrCodeConversionUploadFailed,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newMockUploader(true)
			up.On("Upload", mock.Anything, mock.Anything).Return(tt.uploadErr).Maybe()
			h := createTestHandler(t, up)

			out, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, out)

			stdErr := toStandardError(tt.input.LeadID, err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.wantRetryable, stdErr.Retryable)
		})
	}
}
