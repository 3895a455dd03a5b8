// internal/workers/notification/send-match-notification/handler.go
package sendmatchnotification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/common/metrics"
	"matching-platform/internal/notification"
	"matching-platform/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "send-match-notification"
)

var (
	ErrLeadIDMissing = errors.New("LEAD_ID_MISSING")
	ErrNoContact     = errors.New("NO_CONTACT")
)

type Handler struct {
	config   *Config
	leads    LeadReader
	notifier Notifier
	errors   *stderrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, leads LeadReader, notifier Notifier, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		leads:    leads,
		notifier: notifier,
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
	if input.MatchCount == 0 || input.SelectionToken == "" {
		h.logger.Info("nothing to notify", map[string]interface{}{"leadId": input.LeadID})
		return &Output{}, nil
	}

	lead, err := h.leads.Get(ctx, input.LeadID)
	if err != nil {
		return nil, err
	}

	link := h.SelectionLink(input.SelectionToken)
	vars := map[string]string{
		"name":  lead.Name,
		"count": strconv.Itoa(input.MatchCount),
		"link":  link,
	}

	out := &Output{Notified: true, SelectionLink: link}
	switch {
	case lead.Email != "":
		out.NotificationChannel = notification.ChannelEmail
		err = h.notifier.Email(ctx, lead.Email, notification.TemplateMatchSelection, vars)
	case lead.Phone != "":
		out.NotificationChannel = notification.ChannelSMS
		err = h.notifier.SMS(ctx, lead.Phone, notification.TemplateMatchSelectionSMS, vars)
	default:
		return nil, ErrNoContact
	}
	if err != nil {
		return nil, err
	}

	h.logger.Info("match notification sent", map[string]interface{}{
		"leadId":  input.LeadID,
		"channel": out.NotificationChannel,
	})
	return out, nil
}

// SelectionLink is the patient-facing URL for a selection token.
func (h *Handler) SelectionLink(token string) string {
	return h.config.PublicBaseURL + "/matches/" + url.PathEscape(token)
}

func toStandardError(leadID string, err error) *stderrors.StandardError {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return stderrors.NewPatientNotFoundError(leadID)
	case errors.Is(err, ErrLeadIDMissing):
		return stderrors.NewInvalidJobInputError(err)
	case errors.Is(err, ErrNoContact):
		return stderrors.NewUnsupportedChannelError(fmt.Sprintf("lead %s has no email or phone", leadID))
	}
	var stdErr *stderrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return stderrors.NewQueryExecutionFailedError("get_lead", err)
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
