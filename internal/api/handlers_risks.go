package api

import (
	"net/http"
	"time"

	"github.com/iso27001/tracker/internal/models"
)

func (s *Server) listRisks(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListRisks(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "Risk")
		return
	}
	respondList(w, items)
}

func (s *Server) getRisk(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	risk, err := s.store.GetRisk(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err, "Risk")
		return
	}
	if risk == nil {
		respondError(w, http.StatusNotFound, "not_found", "Risk not found")
		return
	}

	respondJSON(w, http.StatusOK, risk)
}

// validateRisk fills the same defaults the risk form uses. An explicit
// risk_level is kept even when it disagrees with likelihood x impact.
func validateRisk(risk *models.RiskRegister, now time.Time) string {
	if risk.Title == "" {
		return "title is required"
	}
	if risk.RiskID == "" {
		risk.RiskID = models.DefaultRiskID(now)
	}
	if risk.Likelihood == "" {
		risk.Likelihood = models.RatingMedium
	}
	if risk.Impact == "" {
		risk.Impact = models.RatingMedium
	}
	if risk.RiskLevel == "" {
		risk.RiskLevel = models.CalculateRiskLevel(risk.Likelihood, risk.Impact)
	}
	if risk.TreatmentStatus == "" {
		risk.TreatmentStatus = models.TreatmentOpen
	}

	switch {
	case !oneOf(risk.Likelihood, models.RatingValues):
		return "invalid likelihood: " + string(risk.Likelihood)
	case !oneOf(risk.Impact, models.RatingValues):
		return "invalid impact: " + string(risk.Impact)
	case !oneOf(risk.RiskLevel, models.RiskLevelValues):
		return "invalid risk_level: " + string(risk.RiskLevel)
	case !oneOf(risk.TreatmentStatus, models.TreatmentStatusValues):
		return "invalid treatment_status: " + string(risk.TreatmentStatus)
	}
	return ""
}

func (s *Server) createRisk(w http.ResponseWriter, r *http.Request) {
	var risk models.RiskRegister
	if !decodeJSON(w, r, &risk) {
		return
	}
	if msg := validateRisk(&risk, s.now()); msg != "" {
		respondValidation(w, msg)
		return
	}

	if err := s.store.CreateRisk(r.Context(), &risk); err != nil {
		s.respondStoreError(w, err, "Risk")
		return
	}

	respondJSON(w, http.StatusCreated, risk)
}

func (s *Server) updateRisk(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var risk models.RiskRegister
	if !decodeJSON(w, r, &risk) {
		return
	}
	risk.ID = id
	if msg := validateRisk(&risk, s.now()); msg != "" {
		respondValidation(w, msg)
		return
	}

	if err := s.store.UpdateRisk(r.Context(), &risk); err != nil {
		s.respondStoreError(w, err, "Risk")
		return
	}

	respondJSON(w, http.StatusOK, risk)
}

func (s *Server) deleteRisk(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteRisk(r.Context(), id); err != nil {
		s.respondStoreError(w, err, "Risk")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
