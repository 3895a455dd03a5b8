// Package directory keeps the searchable therapist index and uses it to preselect matching
// candidates.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/matching"
	"matching-platform/internal/store"
)

const maxCandidatePool = 500

// Document is the indexed form of a therapist. Tag fields are canonical.
type Document struct {
	ID                 string   `json:"id"`
	Status             string   `json:"status"`
	AcceptingNew       bool     `json:"acceptingNew"`
	Hidden             bool     `json:"hidden"`
	Gender             string   `json:"gender"`
	City               string   `json:"city"`
	SessionPreferences []string `json:"sessionPreferences"`
	Schwerpunkte       []string `json:"schwerpunkte"`
	Modalities         []string `json:"modalities"`
}

// NewDocument builds the index document for a therapist row.
func NewDocument(t *store.Therapist) Document {
	c := t.Candidate()
	return Document{
		ID:                 t.ID,
		Status:             t.Status,
		AcceptingNew:       c.AcceptingNew,
		Hidden:             c.HiddenFromDirectory,
		Gender:             string(c.Gender),
		City:               c.City,
		SessionPreferences: c.SessionPreferences.Strings(),
		Schwerpunkte:       c.Schwerpunkte.Values(),
		Modalities:         c.Modalities.Values(),
	}
}

type Directory struct {
	es    *elasticsearch.Client
	index string
	log   logger.Logger
}

func New(es *elasticsearch.Client, index string, log logger.Logger) *Directory {
	return &Directory{
		es:    es,
		index: index,
		log:   log.WithFields(map[string]interface{}{"component": "directory", "index": index}),
	}
}

// IndexTherapist upserts the therapist's document.
func (d *Directory) IndexTherapist(ctx context.Context, t *store.Therapist) error {
	body, err := json.Marshal(NewDocument(t))
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      d.index,
		DocumentID: t.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, d.es)
	if err != nil {
		return stderrors.NewSearchQueryFailedError(d.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return stderrors.NewSearchQueryFailedError(d.index, fmt.Errorf("index document: %s", res.Status()))
	}
	return nil
}

// CandidateIDs returns ids of accepting, visible, verified therapists compatible with the
// patient's format and gender constraints, best lexical fit first. The result is a
// prefilter only.
func (d *Directory) CandidateIDs(ctx context.Context, prefs *matching.PatientPreferences, size int) ([]string, error) {
	if size <= 0 || size > maxCandidatePool {
		size = maxCandidatePool
	}

	body, err := json.Marshal(buildCandidateQuery(prefs, size))
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{d.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, d.es)
	if err != nil {
		return nil, stderrors.NewSearchQueryFailedError(d.index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, stderrors.NewIndexNotFoundError(d.index)
	}
	if res.IsError() {
		return nil, stderrors.NewSearchQueryFailedError(d.index, fmt.Errorf("search: %s", res.Status()))
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, stderrors.NewSearchQueryFailedError(d.index, err)
	}

	ids := make([]string, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.ID)
	}
	d.log.Debug("Directory prefilter", map[string]interface{}{"candidates": len(ids)})
	return ids, nil
}

func buildCandidateQuery(prefs *matching.PatientPreferences, size int) map[string]interface{} {
	filter := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"status": store.TherapistStatusVerified}},
		map[string]interface{}{"term": map[string]interface{}{"acceptingNew": true}},
		map[string]interface{}{"term": map[string]interface{}{"hidden": false}},
	}
	var should []interface{}

	if prefs != nil {
		if !prefs.SessionPreferences.Empty() {
			filter = append(filter, map[string]interface{}{
				"terms": map[string]interface{}{"sessionPreferences": prefs.SessionPreferences.Strings()},
			})
		}
		if gp := prefs.GenderPreference; gp == matching.PreferMale || gp == matching.PreferFemale {
			filter = append(filter, map[string]interface{}{
				"term": map[string]interface{}{"gender": string(gp)},
			})
		}
		if prefs.City != "" {
			should = append(should, map[string]interface{}{
				"term": map[string]interface{}{"city": map[string]interface{}{"value": prefs.City, "boost": 2}},
			})
		}
		if prefs.Schwerpunkte.Len() > 0 {
			should = append(should, map[string]interface{}{
				"terms": map[string]interface{}{"schwerpunkte": prefs.Schwerpunkte.Values(), "boost": 1.5},
			})
		}
		if prefs.Specializations.Len() > 0 {
			should = append(should, map[string]interface{}{
				"terms": map[string]interface{}{"modalities": prefs.Specializations.Values()},
			})
		}
	}

	boolQuery := map[string]interface{}{"filter": filter}
	if len(should) > 0 {
		boolQuery["should"] = should
	}
	return map[string]interface{}{
		"size":    size,
		"_source": false,
		"query":   map[string]interface{}{"bool": boolQuery},
		"sort":    []interface{}{"_score", map[string]interface{}{"id": "asc"}},
	}
}
