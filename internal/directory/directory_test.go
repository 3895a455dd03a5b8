// internal/directory/directory_test.go
package directory

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/matching"
	"matching-platform/internal/store"
)

func esServer(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return es
}

func TestBuildCandidateQuery(t *testing.T) {
	prefs := &matching.PatientPreferences{
		GenderPreference:   matching.PreferFemale,
		SessionPreferences: matching.NewFormatSet("online"),
		City:               "Berlin",
		Schwerpunkte:       matching.NewTagSet("Trauma"),
	}

	q := buildCandidateQuery(prefs, 50)
	raw, err := json.Marshal(q)
	require.NoError(t, err)
	s := string(raw)

	assert.Contains(t, s, `"acceptingNew":true`)
	assert.Contains(t, s, `"hidden":false`)
	assert.Contains(t, s, `"sessionPreferences":["online"]`)
	assert.Contains(t, s, `"gender":"female"`)
	assert.Contains(t, s, `"schwerpunkte":["trauma"]`)
	assert.NotContains(t, s, `"modalities"`)
	assert.Equal(t, 50, q["size"])
}

func TestBuildCandidateQuery_Unconstrained(t *testing.T) {
	q := buildCandidateQuery(&matching.PatientPreferences{GenderPreference: matching.PreferAny}, 10)
	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})

	assert.Len(t, boolQuery["filter"], 3)
	assert.NotContains(t, boolQuery, "should")
}

func TestCandidateIDs(t *testing.T) {
	es := esServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/therapists/_search", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"size":200`)
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":2},"hits":[{"_id":"t-2"},{"_id":"t-1"}]}}`))
	})

	ids, err := New(es, "therapists", logger.NewTestLogger(t)).
		CandidateIDs(context.Background(), &matching.PatientPreferences{}, 200)

	require.NoError(t, err)
	assert.Equal(t, []string{"t-2", "t-1"}, ids)
}

func TestCandidateIDs_IndexMissing(t *testing.T) {
	es := esServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"},"status":404}`))
	})

	_, err := New(es, "therapists", logger.NewTestLogger(t)).CandidateIDs(context.Background(), nil, 0)

	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeIndexNotFound))
}

func TestIndexTherapist(t *testing.T) {
	var doc Document
	es := esServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/therapists/_doc/t-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	err := New(es, "therapists", logger.NewTestLogger(t)).IndexTherapist(context.Background(), &store.Therapist{
		ID:                 "t-1",
		Status:             store.TherapistStatusVerified,
		AcceptingNew:       true,
		Gender:             "Weiblich",
		City:               " Berlin",
		SessionPreferences: []string{"in-person"},
		Schwerpunkte:       []string{"Trauma", "trauma"},
		Metadata:           store.Metadata{HideFromDirectory: true},
	})

	require.NoError(t, err)
	assert.Equal(t, "female", doc.Gender)
	assert.Equal(t, "Berlin", doc.City)
	assert.Equal(t, []string{"in_person"}, doc.SessionPreferences)
	assert.Equal(t, []string{"trauma"}, doc.Schwerpunkte)
	assert.True(t, doc.Hidden)
}
