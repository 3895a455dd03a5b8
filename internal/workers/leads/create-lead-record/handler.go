// internal/workers/leads/create-lead-record/handler.go
package createleadrecord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/common/metrics"
	"matching-platform/internal/intake"
	"matching-platform/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "create-lead-record"

	EventLeadSubmitted = "lead_submitted"
)

var (
	ErrLeadMissing          = errors.New("LEAD_MISSING")
	ErrDatabaseInsertFailed = errors.New("DATABASE_INSERT_FAILED")
)

type Handler struct {
	config *Config
	leads  LeadCreator
	events EventTracker
	errors *stderrors.ErrorHandler
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, leads LeadCreator, events EventTracker, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		leads:  leads,
		events: events,
		errors: stderrors.NewErrorHandler(scoped),
		logger: scoped,
		now:    time.Now,
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
		h.failJob(client, job, toStandardError(input.Lead, err))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Lead == nil {
		return nil, ErrLeadMissing
	}

	lead := input.Lead.Lead()
	id, err := h.leads.CreateLead(ctx, lead)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateLead) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseInsertFailed, err)
	}

	if h.events != nil {
		h.events.Track(EventLeadSubmitted, TaskType, map[string]interface{}{
			"leadId":   id,
			"leadType": lead.Type,
			"campaign": lead.CampaignSource,
			"hasGclid": lead.Gclid != "",
		})
	}

	h.logger.Info("lead record created", map[string]interface{}{
		"leadId":   id,
		"leadType": lead.Type,
	})

	return &Output{
		LeadID:     id,
		LeadStatus: lead.Status,
		CreatedAt:  h.now().UTC().Format(time.RFC3339),
	}, nil
}

func toStandardError(form *intake.Form, err error) *stderrors.StandardError {
	switch {
	case errors.Is(err, store.ErrDuplicateLead):
		contact := ""
		if form != nil {
			_, contact = form.VerificationTarget()
		}
		return stderrors.NewDuplicateLeadError(contact)
	case errors.Is(err, ErrLeadMissing):
		return stderrors.NewLeadValidationError(err.Error())
	case errors.Is(err, ErrDatabaseInsertFailed):
		return stderrors.NewDatabaseInsertFailedError(err)
	}
	return stderrors.AsStandardError(err)
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
