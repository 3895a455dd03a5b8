package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/reports"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	reindexPageSize = 200
)

// handleStats accepts ?since=<RFC3339> or ?days=<n>; the default window is seven days.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	since, err := windowStart(r, defaultStatsWindow)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	stats, err := s.deps.Stats(r.Context(), since)
	if err != nil {
		s.writeError(w, r, stderrors.NewQueryExecutionFailedError("load_stats", err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTherapists(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", defaultPageSize, maxPageSize)
	offset := intParam(r, "offset", 0, -1)

	therapists, err := s.deps.Therapists.List(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, r, stderrors.NewQueryExecutionFailedError("list_therapists", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"therapists": therapists,
		"limit":      limit,
		"offset":     offset,
	})
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", defaultPageSize, maxPageSize)

	events, err := s.deps.Errors.ListErrors(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, stderrors.NewQueryExecutionFailedError("list_errors", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"errors": events})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("patientId")

	explanations, err := s.deps.Recommender.Explain(r.Context(), patientID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patientId":  patientID,
		"candidates": explanations,
	})
}

// handleExport streams the leads of the export window as an xlsx workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	since, err := windowStart(r, s.opts.ExportWindow)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	leads, err := s.deps.Leads.ListLeads(r.Context(), since)
	if err != nil {
		s.writeError(w, r, stderrors.NewQueryExecutionFailedError("list_leads", err))
		return
	}
	data, err := reports.LeadsWorkbook(leads)
	if err != nil {
		s.writeError(w, r, stderrors.NewInternalError(err))
		return
	}

	name := fmt.Sprintf("leads-%s.xlsx", since.UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleWorkers(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Registry == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"activities": []interface{}{}})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Registry)
}

// handleReindex pushes every therapist into the directory index. Individual failures are
// counted and logged; the run continues.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	indexed, failed := 0, 0

	for offset := 0; ; offset += reindexPageSize {
		page, err := s.deps.Therapists.List(ctx, reindexPageSize, offset)
		if err != nil {
			s.writeError(w, r, stderrors.NewQueryExecutionFailedError("list_therapists", err))
			return
		}
		for i := range page {
			if err := s.deps.Directory.IndexTherapist(ctx, &page[i]); err != nil {
				failed++
				s.log.Warn("therapist not indexed", map[string]interface{}{
					"therapistId": page[i].ID,
					"error":       err.Error(),
				})
				continue
			}
			indexed++
		}
		if len(page) < reindexPageSize {
			break
		}
	}

	s.log.Info("directory reindexed", map[string]interface{}{"indexed": indexed, "failed": failed})
	writeJSON(w, http.StatusOK, map[string]int{"indexed": indexed, "failed": failed})
}

// windowStart reads ?since or ?days, falling back to now minus def.
func windowStart(r *http.Request, def time.Duration) (time.Time, error) {
	q := r.URL.Query()
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, stderrors.NewLeadValidationError(fmt.Sprintf("since: %v", err))
		}
		return t, nil
	}
	if v := q.Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return time.Time{}, stderrors.NewLeadValidationError("days: must be a positive integer")
		}
		return time.Now().Add(-time.Duration(days) * 24 * time.Hour), nil
	}
	return time.Now().Add(-def), nil
}

// intParam parses a non-negative query value. upper < 0 means unbounded.
func intParam(r *http.Request, key string, def, upper int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	if upper >= 0 && v > upper {
		return upper
	}
	return v
}
