// Package recommend loads a patient and the therapist pool, annotates availability and runs
// the matching ranker.
package recommend

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"matching-platform/internal/booking"
	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/common/metrics"
	"matching-platform/internal/matching"
	"matching-platform/internal/store"
)

const slotLookupConcurrency = 8

type PatientStore interface {
	GetPatient(ctx context.Context, id string) (*store.Lead, error)
}

type CandidateStore interface {
	ListCandidates(ctx context.Context, ids []string) ([]matching.TherapistCandidate, error)
}

// Prefilter narrows the candidate pool before it is loaded from the store.
type Prefilter interface {
	CandidateIDs(ctx context.Context, prefs *matching.PatientPreferences, size int) ([]string, error)
}

type SlotSource interface {
	IntroSlotCounts(ctx context.Context, username, slug string) (booking.SlotCounts, error)
}

type Options struct {
	MaxResults    int
	CandidatePool int
	Tracer        trace.Tracer
}

// Recommendation is the ranked result for one patient.
type Recommendation struct {
	PatientID  string                     `json:"patientId"`
	Candidates []matching.ScoredCandidate `json:"candidates"`
	Evaluated  int                        `json:"evaluated"`
	Eligible   int                        `json:"eligible"`
}

type Service struct {
	patients   PatientStore
	candidates CandidateStore
	prefilter  Prefilter
	slots      SlotSource
	opts       Options
	tracer     trace.Tracer
	log        logger.Logger
}

// NewService wires the pipeline. prefilter and slots may be nil: without a prefilter every
// verified therapist is loaded, without a slot source all slot counts are zero.
func NewService(patients PatientStore, candidates CandidateStore, prefilter Prefilter, slots SlotSource, opts Options, log logger.Logger) *Service {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 3
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("recommend")
	}
	return &Service{
		patients:   patients,
		candidates: candidates,
		prefilter:  prefilter,
		slots:      slots,
		opts:       opts,
		tracer:     tracer,
		log:        log.WithFields(map[string]interface{}{"component": "recommend"}),
	}
}

// Recommend ranks therapists for a patient. limit <= 0 uses the configured maximum.
func (s *Service) Recommend(ctx context.Context, patientID string, limit int) (*Recommendation, error) {
	ctx, span := s.tracer.Start(ctx, "recommend.Recommend",
		trace.WithAttributes(attribute.String("patient.id", patientID)))
	defer span.End()

	if limit <= 0 {
		limit = s.opts.MaxResults
	}

	prefs, err := s.loadPreferences(ctx, patientID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	pool, err := s.loadPool(ctx, prefs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	eligible := s.annotateSlots(ctx, prefs, pool)
	ranked := matching.Rank(prefs, pool, limit)
	metrics.RankingDuration.Observe(time.Since(start).Seconds())
	metrics.CandidatesEvaluated.WithLabelValues("loaded").Observe(float64(len(pool)))
	metrics.CandidatesEvaluated.WithLabelValues("eligible").Observe(float64(eligible))

	span.SetAttributes(
		attribute.Int("candidates.loaded", len(pool)),
		attribute.Int("candidates.eligible", eligible),
		attribute.Int("candidates.returned", len(ranked)),
	)
	s.log.Info("Ranked therapists", map[string]interface{}{
		"patientId": patientID,
		"loaded":    len(pool),
		"eligible":  eligible,
		"returned":  len(ranked),
	})

	return &Recommendation{
		PatientID:  patientID,
		Candidates: ranked,
		Evaluated:  len(pool),
		Eligible:   eligible,
	}, nil
}

// Explain reports eligibility, scores and mismatches for every therapist in the pool.
func (s *Service) Explain(ctx context.Context, patientID string) ([]matching.Explanation, error) {
	ctx, span := s.tracer.Start(ctx, "recommend.Explain")
	defer span.End()

	prefs, err := s.loadPreferences(ctx, patientID)
	if err != nil {
		return nil, err
	}
	pool, err := s.candidates.ListCandidates(ctx, nil)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("list_candidates", err)
	}
	s.annotateSlots(ctx, prefs, pool)
	return matching.Explain(prefs, pool), nil
}

func (s *Service) loadPreferences(ctx context.Context, patientID string) (*matching.PatientPreferences, error) {
	lead, err := s.patients.GetPatient(ctx, patientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, stderrors.NewPatientNotFoundError(patientID)
	}
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("get_patient", err)
	}
	return lead.Intake.Preferences(), nil
}

func (s *Service) loadPool(ctx context.Context, prefs *matching.PatientPreferences) ([]matching.TherapistCandidate, error) {
	var ids []string
	if s.prefilter != nil {
		var err error
		ids, err = s.prefilter.CandidateIDs(ctx, prefs, s.opts.CandidatePool)
		if err != nil {
			s.log.Warn("Directory prefilter failed, loading full pool", map[string]interface{}{
				"error": err.Error(),
			})
			ids = nil
		} else if len(ids) == 0 {
			return nil, nil
		}
	}

	pool, err := s.candidates.ListCandidates(ctx, ids)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("list_candidates", err)
	}
	return pool, nil
}

// annotateSlots fills intro slot counts for eligible candidates in place and returns how
// many are eligible. Lookup failures leave the counts at zero.
func (s *Service) annotateSlots(ctx context.Context, prefs *matching.PatientPreferences, pool []matching.TherapistCandidate) int {
	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, slotLookupConcurrency)
		eligible int
	)
	for i := range pool {
		c := &pool[i]
		if !matching.IsEligible(c, prefs) {
			continue
		}
		eligible++
		if s.slots == nil || c.CalUsername == "" {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			counts, err := s.slots.IntroSlotCounts(ctx, c.CalUsername, "")
			if err != nil {
				s.log.Warn("Slot lookup failed", map[string]interface{}{
					"therapistId": c.ID,
					"error":       err.Error(),
				})
				return
			}
			c.IntroSlotsWithin7Days = counts.Within7Days
			c.IntroSlotsWithin14Days = counts.Within14Days
		}()
	}
	wg.Wait()
	return eligible
}
