package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/validation"
	"matching-platform/internal/intake"
	"matching-platform/internal/matching"
	"matching-platform/internal/store"
	"matching-platform/internal/verification"
)

const (
	eventLeadSubmitted   = "lead_submitted"
	eventCodeSent        = "verification_code_sent"
	eventContactVerified = "contact_verified"
	eventWorkflowFailed  = "workflow_start_failed"
	eventMessageFailed   = "workflow_message_failed"
	eventCodeSendFailed  = "verification_send_failed"
	sourceAPI            = "api"
)

type createLeadResponse struct {
	LeadID              string `json:"leadId"`
	Status              string `json:"status"`
	VerificationChannel string `json:"verificationChannel"`
	VerificationSent    bool   `json:"verificationSent"`
	WorkflowInstanceKey int64  `json:"workflowInstanceKey,omitempty"`
}

// handleCreateLead stores the lead and hands verification to the lead workflow, or sends the
// code inline when no workflow client is configured.
func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	raw, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	form, err := intake.Parse(raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.deps.Leads.CreateLead(r.Context(), form.Lead())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateLead):
			s.writeError(w, r, stderrors.NewDuplicateLeadError(form.Email))
		default:
			s.writeError(w, r, stderrors.NewDatabaseInsertFailedError(err))
		}
		return
	}

	channel, contact := form.VerificationTarget()
	s.deps.Tracker.Track(eventLeadSubmitted, sourceAPI, map[string]interface{}{
		"leadId":   id,
		"type":     form.Type,
		"channel":  channel,
		"campaign": form.Campaign,
		"hasGclid": form.Gclid != "",
	})

	resp := createLeadResponse{LeadID: id, Status: store.StatusPreConfirmation, VerificationChannel: channel}

	if s.deps.Workflow != nil {
		key, err := s.deps.Workflow.StartLeadWorkflow(r.Context(), s.opts.LeadProcessID, map[string]interface{}{
			"leadId":              id,
			"lead":                form,
			"verificationChannel": channel,
			"contact":             contact,
		})
		if err == nil {
			resp.WorkflowInstanceKey = key
			resp.VerificationSent = true
			writeJSON(w, http.StatusCreated, resp)
			return
		}
		s.log.Warn("lead workflow not started, sending code inline", map[string]interface{}{
			"leadId": id,
			"error":  err.Error(),
		})
		s.deps.Tracker.Error(eventWorkflowFailed, sourceAPI, err, map[string]interface{}{"leadId": id})
	}

	if err := s.deps.Verifier.Send(r.Context(), channel, contact, form.Name); err != nil {
		s.log.Warn("verification code not sent", map[string]interface{}{
			"leadId":  id,
			"channel": channel,
			"error":   err.Error(),
		})
		s.deps.Tracker.Error(eventCodeSendFailed, sourceAPI, err, map[string]interface{}{"leadId": id, "channel": channel})
	} else {
		resp.VerificationSent = true
	}
	writeJSON(w, http.StatusCreated, resp)
}

type verificationRequest struct {
	Channel string `json:"channel"`
	Contact string `json:"contact"`
	Code    string `json:"code,omitempty"`
	LeadID  string `json:"leadId,omitempty"`
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeVerification(w, r, validation.VerificationSendSchema)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	name := ""
	if req.LeadID != "" {
		if lead, err := s.deps.Leads.Get(r.Context(), req.LeadID); err == nil {
			name = lead.Name
		}
	}

	if err := s.deps.Verifier.Send(r.Context(), req.Channel, req.Contact, name); err != nil {
		s.deps.Tracker.Error(eventCodeSendFailed, sourceAPI, err, map[string]interface{}{"channel": req.Channel})
		s.writeError(w, r, verification.ToStandardError(err))
		return
	}

	s.deps.Tracker.Track(eventCodeSent, sourceAPI, map[string]interface{}{"channel": req.Channel, "leadId": req.LeadID})
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"sent": true})
}

// handleVerifyCode checks a code. With a lead id the lead is marked verified and the waiting
// workflow instance is resumed.
func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeVerification(w, r, validation.VerificationCheckSchema)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.deps.Verifier.Verify(r.Context(), req.Channel, req.Contact, req.Code); err != nil {
		s.writeError(w, r, verification.ToStandardError(err))
		return
	}

	if req.LeadID != "" {
		if err := s.deps.Leads.MarkVerified(r.Context(), req.LeadID, req.Channel); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.writeError(w, r, stderrors.NewPatientNotFoundError(req.LeadID))
				return
			}
			s.writeError(w, r, stderrors.NewQueryExecutionFailedError("mark_verified", err))
			return
		}
		s.resumeWorkflow(req.LeadID, req.Channel, r)
	}

	s.deps.Tracker.Track(eventContactVerified, sourceAPI, map[string]interface{}{"channel": req.Channel, "leadId": req.LeadID})
	writeJSON(w, http.StatusOK, map[string]interface{}{"verified": true, "leadId": req.LeadID})
}

// resumeWorkflow publishes the verified message. A failure leaves the lead verified and is
// recorded in the error log for follow-up.
func (s *Server) resumeWorkflow(leadID, channel string, r *http.Request) {
	if s.deps.Workflow == nil || s.opts.VerifiedMessage == "" {
		return
	}
	err := s.deps.Workflow.PublishMessage(r.Context(), s.opts.VerifiedMessage, leadID, map[string]interface{}{
		"verifiedChannel": channel,
	})
	if err != nil {
		s.log.Error("verified message not published", map[string]interface{}{
			"leadId": leadID,
			"error":  err.Error(),
		})
		s.deps.Tracker.Error(eventMessageFailed, sourceAPI, err, map[string]interface{}{"leadId": leadID})
	}
}

type matchView struct {
	TherapistID   string                   `json:"therapistId"`
	Rank          int                      `json:"rank"`
	MatchScore    int                      `json:"matchScore"`
	PlatformScore int                      `json:"platformScore"`
	TotalScore    float64                  `json:"totalScore"`
	Report        *matching.MismatchReport `json:"report,omitempty"`
}

type matchesResponse struct {
	PatientID string      `json:"patientId"`
	Source    string      `json:"source"`
	Matches   []matchView `json:"matches"`
}

// handleMatches returns the stored proposals for a patient, or a live ranking when none have
// been stored yet.
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("patientId")

	stored, err := s.deps.Matches.ListForPatient(r.Context(), patientID)
	if err != nil {
		s.writeError(w, r, stderrors.NewQueryExecutionFailedError("list_matches", err))
		return
	}
	if len(stored) > 0 {
		views := make([]matchView, len(stored))
		for i, m := range stored {
			views[i] = matchView{
				TherapistID:   m.TherapistID,
				Rank:          m.Rank,
				MatchScore:    m.MatchScore,
				PlatformScore: m.PlatformScore,
				TotalScore:    m.TotalScore,
			}
		}
		writeJSON(w, http.StatusOK, matchesResponse{PatientID: patientID, Source: "stored", Matches: views})
		return
	}

	rec, err := s.deps.Recommender.Recommend(r.Context(), patientID, s.opts.MaxResults)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]matchView, len(rec.Candidates))
	for i, c := range rec.Candidates {
		report := c.Mismatches
		views[i] = matchView{
			TherapistID:   c.TherapistID,
			Rank:          i + 1,
			MatchScore:    c.MatchScore,
			PlatformScore: c.PlatformScore,
			TotalScore:    c.TotalScore,
			Report:        &report,
		}
	}
	writeJSON(w, http.StatusOK, matchesResponse{PatientID: patientID, Source: "live", Matches: views})
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		return nil, stderrors.NewLeadValidationError(fmt.Sprintf("unreadable body: %v", err))
	}
	return raw, nil
}

// decodeVerification validates the body against schema before decoding it.
func (s *Server) decodeVerification(w http.ResponseWriter, r *http.Request, schema map[string]interface{}) (*verificationRequest, error) {
	raw, err := s.readBody(w, r)
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, stderrors.NewLeadValidationError(fmt.Sprintf("invalid JSON: %v", err))
	}
	res, err := validation.Validate(schema, doc)
	if err != nil {
		return nil, stderrors.NewInternalError(err)
	}
	if !res.Valid {
		return nil, stderrors.NewLeadValidationError(fmt.Sprint(res.Messages()))
	}

	var req verificationRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, stderrors.NewLeadValidationError(fmt.Sprintf("invalid JSON: %v", err))
	}
	return &req, nil
}
