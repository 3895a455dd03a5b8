package validatelead

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"matching-platform/internal/common/config"
	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestHandler(t *testing.T) *Handler {
	return NewHandler(&Config{Timeout: time.Second}, logger.NewTestLogger(t))
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "lead-intake",
		ElementId:          "Activity_ValidateLead",
		CustomHeaders:      "{}",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func TestHandler_Execute_Success(t *testing.T) {
	h := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{Lead: map[string]interface{}{
		"type":          "patient",
		"name":          "Anna",
		"email":         "Anna@Example.de",
		"phone":         "0151 2345678",
		"contactMethod": "phone",
		"consent":       true,
	}})
	require.NoError(t, err)

	assert.True(t, out.LeadValid)
	assert.Equal(t, "sms", out.VerificationChannel)
	assert.Equal(t, "+491512345678", out.Contact)
	assert.Equal(t, "anna@example.de", out.Lead.Email)
}

func TestHandler_Execute_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		lead map[string]interface{}
	}{
		{name: "missing lead", lead: nil},
		{name: "no consent", lead: map[string]interface{}{"type": "patient", "name": "Anna", "email": "anna@example.de"}},
		{name: "no contact", lead: map[string]interface{}{"type": "patient", "name": "Anna", "consent": true}},
	}

	h := createTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Execute(context.Background(), &Input{Lead: tt.lead})
			require.Error(t, err)
			assert.Nil(t, out)

			stdErr := stderrors.AsStandardError(err)
			assert.Equal(t, stderrors.ErrCodeLeadValidationFailed, stdErr.Code)
			assert.False(t, stdErr.Retryable)
		})
	}
}

func TestHandler_JobVariablesDecode(t *testing.T) {
	job := createMockJob(7, map[string]interface{}{
		"lead": map[string]interface{}{"type": "therapist", "name": "Dr. Weber", "email": "weber@example.de", "consent": true},
	})

	var input Input
	require.NoError(t, json.Unmarshal([]byte(job.Variables), &input))

	out, err := createTestHandler(t).Execute(context.Background(), &input)
	require.NoError(t, err)
	assert.Equal(t, "therapist", out.Lead.Type)
	assert.Equal(t, "email", out.VerificationChannel)
}

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 5*time.Second, LoadConfig(config.WorkerConfig{}).Timeout)
	assert.Equal(t, 1500*time.Millisecond, LoadConfig(config.WorkerConfig{Timeout: 1500}).Timeout)
}
