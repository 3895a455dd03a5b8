package matchtherapists

import (
	"context"
	"errors"
	"testing"
	"time"

	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/matching"
	"matching-platform/internal/recommend"
	"matching-platform/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecommender struct {
	rec       *recommend.Recommendation
	err       error
	gotLimit  int
	gotLeadID string
}

func (f *fakeRecommender) Recommend(_ context.Context, patientID string, limit int) (*recommend.Recommendation, error) {
	f.gotLeadID = patientID
	f.gotLimit = limit
	return f.rec, f.err
}

type fakeMatches struct {
	err    error
	ranked []matching.ScoredCandidate
}

func (f *fakeMatches) CreateMatches(_ context.Context, patientID string, ranked []matching.ScoredCandidate) ([]store.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.ranked = ranked
	out := make([]store.Match, len(ranked))
	for i, c := range ranked {
		out[i] = store.Match{
			ID:          "match-" + c.TherapistID,
			PatientID:   patientID,
			TherapistID: c.TherapistID,
			Rank:        i + 1,
			SecureUUID:  "secure-" + c.TherapistID,
		}
	}
	return out, nil
}

type fakePeople struct {
	statuses map[string]string
	err      error
}

func (f *fakePeople) SetStatus(_ context.Context, id, status string) error {
	if f.err != nil {
		return f.err
	}
	if f.statuses == nil {
		f.statuses = map[string]string{}
	}
	f.statuses[id] = status
	return nil
}

func createRecommendation(ids ...string) *recommend.Recommendation {
	rec := &recommend.Recommendation{PatientID: "lead-1", Evaluated: len(ids) + 2, Eligible: len(ids)}
	for i, id := range ids {
		rec.Candidates = append(rec.Candidates, matching.ScoredCandidate{
			TherapistID: id,
			TotalScore:  float64(100 - i*10),
		})
	}
	return rec
}

func createTestHandler(t *testing.T, r Recommender, m MatchWriter, p StatusWriter) *Handler {
	return NewHandler(&Config{Timeout: time.Second, MaxResults: 3}, r, m, p, logger.NewTestLogger(t))
}

func TestHandler_Execute_Success(t *testing.T) {
	rec := &fakeRecommender{rec: createRecommendation("t-2", "t-1")}
	matches := &fakeMatches{}
	people := &fakePeople{}
	h := createTestHandler(t, rec, matches, people)

	out, err := h.Execute(context.Background(), &Input{LeadID: "lead-1"})
	require.NoError(t, err)

	assert.Equal(t, "lead-1", rec.gotLeadID)
	assert.Equal(t, 3, rec.gotLimit)
	assert.Equal(t, 2, out.MatchCount)
	assert.Equal(t, []string{"t-2", "t-1"}, out.TherapistIDs)
	assert.Equal(t, "secure-t-2", out.SelectionToken)
	assert.Equal(t, 4, out.Evaluated)
	assert.Equal(t, 2, out.Eligible)
	assert.Equal(t, store.StatusMatched, people.statuses["lead-1"])
}

func TestHandler_Execute_NoCandidates(t *testing.T) {
	matches := &fakeMatches{}
	people := &fakePeople{}
	h := createTestHandler(t, &fakeRecommender{rec: createRecommendation()}, matches, people)

	out, err := h.Execute(context.Background(), &Input{LeadID: "lead-1"})
	require.NoError(t, err)

	assert.Zero(t, out.MatchCount)
	assert.Empty(t, out.TherapistIDs)
	assert.Empty(t, out.SelectionToken)
	assert.Nil(t, matches.ranked)
	assert.Empty(t, people.statuses)
}

func TestHandler_Execute_StatusFailureIsNotFatal(t *testing.T) {
	h := createTestHandler(t,
		&fakeRecommender{rec: createRecommendation("t-1")},
		&fakeMatches{},
		&fakePeople{err: errors.New("deadlock")},
	)

	out, err := h.Execute(context.Background(), &Input{LeadID: "lead-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.MatchCount)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name          string
		input         *Input
		recErr        error
		storeErr      error
		wantCode      stderrors.ErrorCode
		wantRetryable bool
	}{
		{
			name:     "missing lead id",
			input:    &Input{},
			wantCode: stderrors.ErrCodeInvalidJobInput,
		},
		{
			name:     "unknown patient",
			input:    &Input{LeadID: "lead-x"},
			recErr:   stderrors.NewPatientNotFoundError("lead-x"),
			wantCode: stderrors.ErrCodePatientNotFound,
		},
		{
			name:          "persist failure",
			input:         &Input{LeadID: "lead-1"},
			storeErr:      errors.New("tx aborted"),
			wantCode:      stderrors.ErrCodeDatabaseInsertFailed,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecommender{rec: createRecommendation("t-1"), err: tt.recErr}
			h := createTestHandler(t, rec, &fakeMatches{err: tt.storeErr}, &fakePeople{})

			out, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, out)

			stdErr := toStandardError(err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.wantRetryable, stdErr.Retryable)
		})
	}
}
