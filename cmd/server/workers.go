// cmd/server/workers.go
package main

import (
	"matching-platform/internal/ads"
	"matching-platform/internal/common/camunda"
	"matching-platform/internal/common/config"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/common/observability"
	"matching-platform/internal/events"
	"matching-platform/internal/notification"
	"matching-platform/internal/recommend"
	"matching-platform/internal/store"
	"matching-platform/internal/verification"

	clr "matching-platform/internal/workers/leads/create-lead-record"
	vl "matching-platform/internal/workers/leads/validate-lead"
	mt "matching-platform/internal/workers/matching/match-therapists"
	smn "matching-platform/internal/workers/notification/send-match-notification"
	tc "matching-platform/internal/workers/tracking/track-conversion"
	svc "matching-platform/internal/workers/verification/send-verification-code"
)

type workerDeps struct {
	people      *store.People
	matches     *store.Matches
	tracker     *events.Tracker
	verifier    *verification.Service
	recommender *recommend.Service
	sender      *notification.Sender
	conversions *ads.ConversionClient
}

// startWorkers opens a job worker for every enabled task type and returns the started types.
func startWorkers(zeebe *camunda.Client, cfg *config.Config, deps workerDeps, obs *observability.Observability, log logger.Logger) []string {
	client := zeebe.Raw()
	var started []string

	start := func(taskType string, h camunda.JobHandler) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if !wcfg.Enabled {
			log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			return
		}
		camunda.StartWorker(client, taskType, wcfg, h, obs, log)
		started = append(started, taskType)
	}

	// Lead intake
	start(vl.TaskType, vl.NewHandler(vl.LoadConfig(config.GetWorkerConfig(cfg, vl.TaskType)), log))
	start(clr.TaskType, clr.NewHandler(
		clr.LoadConfig(config.GetWorkerConfig(cfg, clr.TaskType)),
		deps.people, deps.tracker, log,
	))

	// Verification
	start(svc.TaskType, svc.NewHandler(
		svc.LoadConfig(config.GetWorkerConfig(cfg, svc.TaskType)),
		deps.verifier, log,
	))

	// Matching and notification
	start(mt.TaskType, mt.NewHandler(
		mt.LoadConfig(config.GetWorkerConfig(cfg, mt.TaskType), cfg.Matching),
		deps.recommender, deps.matches, deps.people, log,
	))
	start(smn.TaskType, smn.NewHandler(
		smn.LoadConfig(config.GetWorkerConfig(cfg, smn.TaskType), cfg.App),
		deps.people, deps.sender, log,
	))

	// Tracking
	start(tc.TaskType, tc.NewHandler(
		tc.LoadConfig(config.GetWorkerConfig(cfg, tc.TaskType)),
		deps.people, deps.conversions, log,
	))

	return started
}
