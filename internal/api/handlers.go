package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iso27001/tracker/internal/models"
	"github.com/iso27001/tracker/internal/store"
)

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_id", "Invalid ID")
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error, entity string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", entity+" not found")
	case errors.Is(err, store.ErrDuplicateRiskID):
		respondError(w, http.StatusConflict, "duplicate_risk_id", err.Error())
	default:
		s.logger.Error("store operation failed", "entity", entity, "error", err)
		respondError(w, http.StatusInternalServerError, "db_error", err.Error())
	}
}

// respondList never encodes a nil slice, so clients always get an array.
func respondList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	respondJSON(w, http.StatusOK, items)
}

func respondValidation(w http.ResponseWriter, msg string) {
	respondError(w, http.StatusBadRequest, "validation_error", msg)
}

func (s *Server) listGapAssessments(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListGapAssessments(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "Gap assessment")
		return
	}
	respondList(w, items)
}

func (s *Server) getGapAssessment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	item, err := s.store.GetGapAssessment(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err, "Gap assessment")
		return
	}
	if item == nil {
		respondError(w, http.StatusNotFound, "not_found", "Gap assessment not found")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

func validateGapAssessment(a *models.GapAssessment) string {
	if a.StandardRef == "" {
		return "standard_ref is required"
	}
	if a.Compliance == "" {
		a.Compliance = models.ComplianceNone
	}
	if !a.Compliance.Valid() {
		return "invalid compliance value: " + string(a.Compliance)
	}
	return ""
}

func (s *Server) createGapAssessment(w http.ResponseWriter, r *http.Request) {
	var a models.GapAssessment
	if !decodeJSON(w, r, &a) {
		return
	}
	if msg := validateGapAssessment(&a); msg != "" {
		respondValidation(w, msg)
		return
	}

	if err := s.store.CreateGapAssessment(r.Context(), &a); err != nil {
		s.respondStoreError(w, err, "Gap assessment")
		return
	}

	respondJSON(w, http.StatusCreated, a)
}

func (s *Server) updateGapAssessment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var a models.GapAssessment
	if !decodeJSON(w, r, &a) {
		return
	}
	a.ID = id
	if msg := validateGapAssessment(&a); msg != "" {
		respondValidation(w, msg)
		return
	}

	if err := s.store.UpdateGapAssessment(r.Context(), &a); err != nil {
		s.respondStoreError(w, err, "Gap assessment")
		return
	}

	respondJSON(w, http.StatusOK, a)
}

func (s *Server) deleteGapAssessment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteGapAssessment(r.Context(), id); err != nil {
		s.respondStoreError(w, err, "Gap assessment")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) listMaturityAssessments(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListMaturityAssessments(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "Maturity assessment")
		return
	}
	respondList(w, items)
}

func (s *Server) getMaturityAssessment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	item, err := s.store.GetMaturityAssessment(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err, "Maturity assessment")
		return
	}
	if item == nil {
		respondError(w, http.StatusNotFound, "not_found", "Maturity assessment not found")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// validateMaturityAssessment also re-derives the scores, so a client can
// never persist a score that disagrees with its level.
func validateMaturityAssessment(a *models.MaturityAssessment) string {
	if a.StandardRef == "" {
		return "standard_ref is required"
	}
	a.SetCurrentLevel(a.CurrentMaturityLevel)
	a.SetTargetLevel(a.TargetMaturityLevel)
	return ""
}

func (s *Server) createMaturityAssessment(w http.ResponseWriter, r *http.Request) {
	var a models.MaturityAssessment
	if !decodeJSON(w, r, &a) {
		return
	}
	if msg := validateMaturityAssessment(&a); msg != "" {
		respondValidation(w, msg)
		return
	}

	if err := s.store.CreateMaturityAssessment(r.Context(), &a); err != nil {
		s.respondStoreError(w, err, "Maturity assessment")
		return
	}

	respondJSON(w, http.StatusCreated, a)
}

func (s *Server) updateMaturityAssessment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var a models.MaturityAssessment
	if !decodeJSON(w, r, &a) {
		return
	}
	a.ID = id
	if msg := validateMaturityAssessment(&a); msg != "" {
		respondValidation(w, msg)
		return
	}

	if err := s.store.UpdateMaturityAssessment(r.Context(), &a); err != nil {
		s.respondStoreError(w, err, "Maturity assessment")
		return
	}

	respondJSON(w, http.StatusOK, a)
}

func (s *Server) deleteMaturityAssessment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteMaturityAssessment(r.Context(), id); err != nil {
		s.respondStoreError(w, err, "Maturity assessment")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
