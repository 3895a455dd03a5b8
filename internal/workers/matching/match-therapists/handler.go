// internal/workers/matching/match-therapists/handler.go
package matchtherapists

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/common/metrics"
	"matching-platform/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "match-therapists"
)

var (
	ErrLeadIDMissing      = errors.New("LEAD_ID_MISSING")
	ErrMatchPersistFailed = errors.New("MATCH_PERSIST_FAILED")
)

type Handler struct {
	config      *Config
	recommender Recommender
	matches     MatchWriter
	people      StatusWriter
	errors      *stderrors.ErrorHandler
	logger      logger.Logger
}

func NewHandler(config *Config, recommender Recommender, matches MatchWriter, people StatusWriter, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		recommender: recommender,
		matches:     matches,
		people:      people,
		errors:      stderrors.NewErrorHandler(scoped),
		logger:      scoped,
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
		h.failJob(client, job, toStandardError(err))
		return
	}

	h.completeJob(client, job, output)
}

// execute ranks therapists for the lead and stores the proposals. An empty ranking is a
// normal outcome; the process decides what to do with matchCount 0.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.LeadID == "" {
		return nil, ErrLeadIDMissing
	}

	rec, err := h.recommender.Recommend(ctx, input.LeadID, h.config.MaxResults)
	if err != nil {
		return nil, err
	}

	out := &Output{
		TherapistIDs: make([]string, 0, len(rec.Candidates)),
		Evaluated:    rec.Evaluated,
		Eligible:     rec.Eligible,
	}
	if len(rec.Candidates) == 0 {
		h.logger.Warn("no eligible therapists", map[string]interface{}{
			"leadId":    input.LeadID,
			"evaluated": rec.Evaluated,
		})
		return out, nil
	}

	stored, err := h.matches.CreateMatches(ctx, input.LeadID, rec.Candidates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMatchPersistFailed, err)
	}

	for _, m := range stored {
		out.TherapistIDs = append(out.TherapistIDs, m.TherapistID)
	}
	out.MatchCount = len(stored)
	out.SelectionToken = stored[0].SecureUUID

	if err := h.people.SetStatus(ctx, input.LeadID, store.StatusMatched); err != nil {
		h.logger.Warn("failed to mark lead as matched", map[string]interface{}{
			"leadId": input.LeadID,
			"error":  err.Error(),
		})
	}

	h.logger.Info("therapists matched", map[string]interface{}{
		"leadId":     input.LeadID,
		"matchCount": out.MatchCount,
		"eligible":   rec.Eligible,
	})
	return out, nil
}

func toStandardError(err error) *stderrors.StandardError {
	switch {
	case errors.Is(err, ErrLeadIDMissing):
		return stderrors.NewInvalidJobInputError(err)
	case errors.Is(err, ErrMatchPersistFailed):
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
