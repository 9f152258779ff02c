package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iso27001/tracker/internal/reports"
)

func (s *Server) listClauseTemplates(w http.ResponseWriter, r *http.Request) {
	templates := reports.Templates()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"clauses": templates,
		"count":   len(templates),
	})
}

func (s *Server) generateClauseDocument(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, &reports.ReportRequest{
		Type:   reports.ReportTypeClause,
		Clause: chi.URLParam(r, "clause"),
	})
}

func (s *Server) generateSoA(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, &reports.ReportRequest{
		Type:   reports.ReportTypeSoA,
		Format: reports.ReportFormat(r.URL.Query().Get("format")),
	})
}

func (s *Server) generateNotionExport(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, &reports.ReportRequest{Type: reports.ReportTypeNotionExport})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, req *reports.ReportRequest) {
	report, err := s.reportGenerator.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, reports.ErrMissingClause) || errors.Is(err, reports.ErrUnsupportedFormat) {
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		s.logger.Error("document generation failed", "type", req.Type, "error", err)
		respondError(w, http.StatusInternalServerError, "report_error", err.Error())
		return
	}

	documentsGeneratedTotal.WithLabelValues(string(report.Type), string(report.Format)).Inc()

	w.Header().Set("Content-Type", report.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(report.Data)))
	_, _ = w.Write(report.Data)
}
