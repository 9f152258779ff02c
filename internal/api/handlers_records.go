package api

import (
	"net/http"

	"github.com/iso27001/tracker/internal/models"
)

func (s *Server) listActionItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListActionItems(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "Action item")
		return
	}
	respondList(w, items)
}

func (s *Server) getActionItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	item, err := s.store.GetActionItem(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err, "Action item")
		return
	}
	if item == nil {
		respondError(w, http.StatusNotFound, "not_found", "Action item not found")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

func validateActionItem(item *models.ActionItem) string {
	if item.Title == "" {
		return "title is required"
	}
	if item.Status == "" {
		item.Status = models.ActionNotStarted
	}
	if item.Priority == "" {
		item.Priority = models.PriorityMedium
	}
	if !oneOf(item.Status, models.ActionStatusValues) {
		return "invalid status: " + string(item.Status)
	}
	if !oneOf(item.Priority, models.PriorityValues) {
		return "invalid priority: " + string(item.Priority)
	}
	return ""
}

func (s *Server) createActionItem(w http.ResponseWriter, r *http.Request) {
	var item models.ActionItem
	if !decodeJSON(w, r, &item) {
		return
	}
	if msg := validateActionItem(&item); msg != "" {
		respondValidation(w, msg)
		return
	}

	if err := s.store.CreateActionItem(r.Context(), &item); err != nil {
		s.respondStoreError(w, err, "Action item")
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

func (s *Server) updateActionItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var item models.ActionItem
	if !decodeJSON(w, r, &item) {
		return
	}
	item.ID = id
	if msg := validateActionItem(&item); msg != "" {
		respondValidation(w, msg)
		return
	}

	if err := s.store.UpdateActionItem(r.Context(), &item); err != nil {
		s.respondStoreError(w, err, "Action item")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

func (s *Server) deleteActionItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteActionItem(r.Context(), id); err != nil {
		s.respondStoreError(w, err, "Action item")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) listEvidence(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListEvidence(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "Evidence")
		return
	}
	respondList(w, items)
}

func (s *Server) getEvidence(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	item, err := s.store.GetEvidence(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err, "Evidence")
		return
	}
	if item == nil {
		respondError(w, http.StatusNotFound, "not_found", "Evidence not found")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

func (s *Server) createEvidence(w http.ResponseWriter, r *http.Request) {
	var e models.Evidence
	if !decodeJSON(w, r, &e) {
		return
	}
	if e.Title == "" {
		respondValidation(w, "title is required")
		return
	}

	if err := s.store.CreateEvidence(r.Context(), &e); err != nil {
		s.respondStoreError(w, err, "Evidence")
		return
	}

	respondJSON(w, http.StatusCreated, e)
}

func (s *Server) updateEvidence(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var e models.Evidence
	if !decodeJSON(w, r, &e) {
		return
	}
	e.ID = id
	if e.Title == "" {
		respondValidation(w, "title is required")
		return
	}

	if err := s.store.UpdateEvidence(r.Context(), &e); err != nil {
		s.respondStoreError(w, err, "Evidence")
		return
	}

	respondJSON(w, http.StatusOK, e)
}

func (s *Server) deleteEvidence(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteEvidence(r.Context(), id); err != nil {
		s.respondStoreError(w, err, "Evidence")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func oneOf[T comparable](v T, values []T) bool {
	for _, x := range values {
		if v == x {
			return true
		}
	}
	return false
}
