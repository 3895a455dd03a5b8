// internal/store/store_test.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-platform/internal/matching"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var leadCols = []string{"id", "type", "name", "email", "phone", "status", "campaign_source",
	"gclid", "metadata", "created_at", "verified_at"}

var therapistCols = []string{"id", "first_name", "last_name", "email", "gender", "city", "status",
	"accepting_new", "session_preferences", "schwerpunkte", "modalities", "photo_url",
	"approach_text", "who_comes_to_me", "cal_username", "cal_event_types", "metadata", "created_at"}

// ==========================
// People
// ==========================

func TestPeople_CreateLead(t *testing.T) {
	db, mock := newMock(t)
	people := NewPeople(db)

	mock.ExpectQuery("INSERT INTO people").
		WithArgs("patient", "Anna", "anna@example.com", nil, StatusPreConfirmation, nil, "gc-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("lead-1"))

	id, err := people.CreateLead(context.Background(), &Lead{
		Type:   "patient",
		Name:   "Anna",
		Email:  "anna@example.com",
		Gclid:  "gc-1",
		Intake: Intake{City: "Berlin", Schwerpunkte: []string{"trauma"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "lead-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeople_CreateLead_Duplicate(t *testing.T) {
	db, mock := newMock(t)
	people := NewPeople(db)

	mock.ExpectQuery("INSERT INTO people").
		WillReturnError(&pq.Error{Code: uniqueViolation, Message: "duplicate key"})

	_, err := people.CreateLead(context.Background(), &Lead{Type: "patient", Name: "Anna", Email: "anna@example.com"})

	assert.ErrorIs(t, err, ErrDuplicateLead)
}

func TestPeople_CreateLead_DatabaseError(t *testing.T) {
	db, mock := newMock(t)
	people := NewPeople(db)

	mock.ExpectQuery("INSERT INTO people").WillReturnError(errors.New("connection reset"))

	_, err := people.CreateLead(context.Background(), &Lead{Type: "patient", Name: "Anna"})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateLead)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPeople_GetPatient(t *testing.T) {
	db, mock := newMock(t)
	people := NewPeople(db)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM people WHERE id").
		WithArgs("lead-1").
		WillReturnRows(sqlmock.NewRows(leadCols).AddRow(
			"lead-1", "patient", "Anna", "anna@example.com", "", StatusEmailConfirmed, "", "",
			`{"gender_preference":"female","session_preferences":["online","in_person"],"city":" Berlin ","schwerpunkte":["Trauma"," angst"]}`,
			created, created,
		))

	lead, err := people.GetPatient(context.Background(), "lead-1")
	require.NoError(t, err)

	assert.Equal(t, "Anna", lead.Name)
	require.NotNil(t, lead.VerifiedAt)

	prefs := lead.Intake.Preferences()
	assert.Equal(t, matching.PreferFemale, prefs.GenderPreference)
	assert.True(t, prefs.SessionPreferences.Both())
	assert.Equal(t, "Berlin", prefs.City)
	assert.Equal(t, []string{"angst", "trauma"}, prefs.Schwerpunkte.Values())
}

func TestPeople_GetPatient_NotFound(t *testing.T) {
	t.Run("no rows", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("SELECT (.+) FROM people").WillReturnError(sql.ErrNoRows)

		_, err := NewPeople(db).GetPatient(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("therapist lead", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("SELECT (.+) FROM people").
			WillReturnRows(sqlmock.NewRows(leadCols).AddRow(
				"lead-2", "therapist", "Tom", "", "", StatusPreConfirmation, "", "", "{}", time.Now(), nil,
			))

		_, err := NewPeople(db).GetPatient(context.Background(), "lead-2")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPeople_MarkVerified(t *testing.T) {
	tests := []struct {
		name     string
		channel  string
		status   string
		affected int64
		wantErr  error
	}{
		{name: "email", channel: "email", status: StatusEmailConfirmed, affected: 1},
		{name: "sms", channel: "sms", status: StatusPhoneConfirmed, affected: 1},
		{name: "unknown lead", channel: "email", status: StatusEmailConfirmed, affected: 0, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectExec("UPDATE people SET status").
				WithArgs("lead-1", tt.status).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := NewPeople(db).MarkVerified(context.Background(), "lead-1", tt.channel)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPeople_ListLeads(t *testing.T) {
	db, mock := newMock(t)
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM people\\s+WHERE created_at >=").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows(leadCols).
			AddRow("a", "patient", "Anna", "a@example.com", "", StatusPreConfirmation, "search", "g1", "{}", since.Add(2*time.Hour), nil).
			AddRow("b", "therapist", "Ben", "", "+4915112345678", StatusPhoneConfirmed, "", "", "not json", since.Add(time.Hour), since.Add(time.Hour)))

	leads, err := NewPeople(db).ListLeads(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "search", leads[0].CampaignSource)
	assert.Nil(t, leads[0].VerifiedAt)
	assert.Equal(t, Intake{}, leads[1].Intake)
}

// ==========================
// Therapists
// ==========================

func therapistRow(rows *sqlmock.Rows, id string, hidden bool) *sqlmock.Rows {
	metadata := `{}`
	if hidden {
		metadata = `{"hide_from_directory":true}`
	}
	return rows.AddRow(id, "Eva", "Schmidt", "eva@example.com", "Female", "Berlin", TherapistStatusVerified,
		true, "{online,in_person}", "{Trauma,angst}", "{NARM}", "https://cdn/p.jpg", "approach", "who",
		"eva-schmidt", "{kennenlernen,therapiesitzung}", metadata, time.Now())
}

func TestTherapists_ListCandidates(t *testing.T) {
	db, mock := newMock(t)

	rows := sqlmock.NewRows(therapistCols)
	therapistRow(rows, "t-1", false)
	therapistRow(rows, "t-2", true)
	mock.ExpectQuery("SELECT (.+) FROM therapists WHERE status = \\$1 ORDER BY id").
		WithArgs(TherapistStatusVerified).
		WillReturnRows(rows)

	candidates, err := NewTherapists(db).ListCandidates(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	c := candidates[0]
	assert.Equal(t, "t-1", c.ID)
	assert.Equal(t, matching.GenderFemale, c.Gender)
	assert.True(t, c.SessionPreferences.Both())
	assert.Equal(t, []string{"angst", "trauma"}, c.Schwerpunkte.Values())
	assert.True(t, c.Modalities.Has("narm"))
	assert.True(t, matching.HasFullBookingJourney(&c))
	assert.False(t, c.HiddenFromDirectory)

	assert.True(t, candidates[1].HiddenFromDirectory)
	assert.False(t, matching.IsEligible(&candidates[1], nil))
}

func TestTherapists_ListCandidates_ByIDs(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("AND id = ANY\\(\\$2\\)").
		WithArgs(TherapistStatusVerified, sqlmock.AnyArg()).
		WillReturnRows(therapistRow(sqlmock.NewRows(therapistCols), "t-9", false))

	candidates, err := NewTherapists(db).ListCandidates(context.Background(), []string{"t-9"})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "t-9", candidates[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTherapists_Get_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM therapists WHERE id").WillReturnError(sql.ErrNoRows)

	_, err := NewTherapists(db).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTherapists_List_DefaultLimit(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("ORDER BY created_at DESC LIMIT").
		WithArgs(50, 0).
		WillReturnRows(therapistRow(sqlmock.NewRows(therapistCols), "t-1", false))

	list, err := NewTherapists(db).List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, []string{"kennenlernen", "therapiesitzung"}, list[0].CalEventTypes)
}

// ==========================
// Matches
// ==========================

func TestMatches_CreateMatches(t *testing.T) {
	db, mock := newMock(t)
	matches := NewMatches(db)
	fixed := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	matches.now = func() time.Time { return fixed }

	ranked := []matching.ScoredCandidate{
		{TherapistID: "t-1", MatchScore: 30, PlatformScore: 40, TotalScore: 85},
		{TherapistID: "t-2", MatchScore: 20, PlatformScore: 15, TotalScore: 45},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO matches")
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), "p-1", "t-1", MatchStatusProposed, 1, 30, 40, 85.0, sqlmock.AnyArg(), fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), "p-1", "t-2", MatchStatusProposed, 2, 20, 15, 45.0, sqlmock.AnyArg(), fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	out, err := matches.CreateMatches(context.Background(), "p-1", ranked)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Rank)
	assert.NotEqual(t, out[0].SecureUUID, out[1].SecureUUID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatches_CreateMatches_RollsBackOnError(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO matches").
		ExpectExec().
		WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	_, err := NewMatches(db).CreateMatches(context.Background(), "p-1",
		[]matching.ScoredCandidate{{TherapistID: "t-1"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert match 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatches_CreateMatches_Empty(t *testing.T) {
	db, mock := newMock(t)

	out, err := NewMatches(db).CreateMatches(context.Background(), "p-1", nil)
	assert.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatches_ListForPatient(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery("FROM matches WHERE patient_id").
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "therapist_id", "status", "rank",
			"match_score", "platform_score", "total_score", "secure_uuid", "created_at"}).
			AddRow("m-1", "p-1", "t-1", MatchStatusProposed, 1, 30, 40, 85.0, "s-1", now))

	list, err := NewMatches(db).ListForPatient(context.Background(), "p-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 85.0, list[0].TotalScore)
}

// ==========================
// Events & stats
// ==========================

func TestEvents_Insert_Defaults(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec("INSERT INTO events").
		WithArgs(sqlmock.AnyArg(), LevelInfo, "lead_submitted", "api", []byte("{}"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewEvents(db).Insert(context.Background(), Event{Type: "lead_submitted", Source: "api"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvents_ListErrors(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("FROM events WHERE level").
		WithArgs(LevelError, 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "level", "type", "source", "properties", "created_at"}).
			AddRow("e-1", LevelError, "booking_failed", "worker", `{"status":502}`, time.Now()))

	events, err := NewEvents(db).ListErrors(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, float64(502), events[0].Properties["status"])
}

func TestLoadStats(t *testing.T) {
	db, mock := newMock(t)
	since := time.Now().Add(-7 * 24 * time.Hour)

	mock.ExpectQuery("SELECT\\s+\\(SELECT count").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c", "d", "e", "f", "g"}).
			AddRow(12, 3, 9, 27, 40, 31, 2))

	stats, err := LoadStats(context.Background(), db, since)
	require.NoError(t, err)
	assert.Equal(t, 12, stats.PatientLeads)
	assert.Equal(t, 31, stats.AcceptingNew)
	assert.Equal(t, 2, stats.Errors)
}
