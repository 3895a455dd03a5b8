// internal/workers/tracking/track-conversion/handler.go
package trackconversion

import (
	"context"
	"encoding/json"
	"errors"

	"matching-platform/internal/ads"
	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/common/metrics"
	"matching-platform/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "track-conversion"
)

// Skip reasons reported in the job output.
const (
	SkipDisabled     = "disabled"
	SkipNoIdentifier = "no_identifier"
)

var ErrLeadIDMissing = errors.New("LEAD_ID_MISSING")

type Handler struct {
	config   *Config
	leads    LeadReader
	uploader Uploader
	errors   *stderrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, leads LeadReader, uploader Uploader, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		leads:    leads,
		uploader: uploader,
		errors:   stderrors.NewErrorHandler(scoped),
		logger:   scoped,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, stderrors.NewInvalidJobInputError(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, toStandardError(input.LeadID, err))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.LeadID == "" {
		return nil, ErrLeadIDMissing
	}
	if !h.uploader.Enabled() {
		return &Output{SkipReason: SkipDisabled}, nil
	}

	lead, err := h.leads.Get(ctx, input.LeadID)
	if err != nil {
		return nil, err
	}
	if lead.Gclid == "" && lead.Email == "" {
		return &Output{SkipReason: SkipNoIdentifier}, nil
	}

	at := lead.CreatedAt
	if lead.VerifiedAt != nil {
		at = *lead.VerifiedAt
	}

	err = h.uploader.Upload(ctx, ads.Conversion{
		Gclid:    lead.Gclid,
		Email:    lead.Email,
		Value:    h.config.Value,
		Currency: h.config.Currency,
		OrderID:  lead.ID,
		Time:     at,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("conversion uploaded", map[string]interface{}{
		"leadId":   lead.ID,
		"hasGclid": lead.Gclid != "",
	})
	return &Output{ConversionUploaded: true}, nil
}

func toStandardError(leadID string, err error) *stderrors.StandardError {
	switch {
	case errors.Is(err, ErrLeadIDMissing):
		return stderrors.NewInvalidJobInputError(err)
	case errors.Is(err, store.ErrNotFound):
		return stderrors.NewPatientNotFoundError(leadID)
	}
	var stdErr *stderrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return stderrors.NewConversionUploadFailedError(err)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, stdErr *stderrors.StandardError) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(context.Background(), client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
