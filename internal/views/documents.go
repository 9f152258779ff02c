package views

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/iso27001/tracker/internal/client"
	"github.com/iso27001/tracker/internal/clauses"
	"github.com/iso27001/tracker/internal/models"
)

// DocumentSource is the part of the API client the document page uses.
type DocumentSource interface {
	Templates(ctx context.Context) ([]string, error)
	Download(ctx context.Context, kind client.DocumentKind, clause string) (*client.Document, error)
}

// DocumentView lists the clauses a document can be generated for and saves
// generated documents to a directory.
type DocumentView struct {
	src    DocumentSource
	gaps   *List[models.GapAssessment]
	outDir string
	logger *slog.Logger

	mu        sync.Mutex
	templates []string
}

func NewDocumentView(src DocumentSource, gaps Collection[models.GapAssessment], outDir string, logger *slog.Logger) *DocumentView {
	if logger == nil {
		logger = slog.Default()
	}
	if outDir == "" {
		outDir = "."
	}
	return &DocumentView{
		src:    src,
		gaps:   NewList(gaps, func(g models.GapAssessment) int64 { return g.ID }, logger),
		outDir: outDir,
		logger: logger,
	}
}

// Refresh loads the template list and the gap assessments concurrently.
func (v *DocumentView) Refresh(ctx context.Context) error {
	return refreshAll(ctx, v.refreshTemplates, v.gaps.Refresh)
}

func (v *DocumentView) refreshTemplates(ctx context.Context) error {
	ts, err := v.src.Templates(ctx)
	if err != nil {
		v.logger.Warn("fetching clause templates failed", "error", err)
		return err
	}
	v.mu.Lock()
	v.templates = clauses.Unique(ts)
	v.mu.Unlock()
	return nil
}

// Templates is the clause numbers with a dedicated template.
func (v *DocumentView) Templates() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.templates...)
}

// AssessedClauses is the clause numbers referenced by gap assessments.
func (v *DocumentView) AssessedClauses() []string {
	items := v.gaps.Items()
	refs := make([]string, 0, len(items))
	for _, g := range items {
		refs = append(refs, g.StandardRef)
	}
	return clauses.Unique(refs)
}

// Clauses is every clause a document can be generated for: templates plus
// assessed clauses, in clause order.
func (v *DocumentView) Clauses() []string {
	return clauses.Merge(v.Templates(), v.AssessedClauses())
}

// Generate downloads a document and writes it under the output directory
// using the document's filename. It returns the written path.
func (v *DocumentView) Generate(ctx context.Context, kind client.DocumentKind, clause string) (string, error) {
	doc, err := v.src.Download(ctx, kind, clause)
	if err != nil {
		v.logger.Error("document generation failed", "kind", kind, "clause", clause, "error", err)
		return "", err
	}
	if err := os.MkdirAll(v.outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(v.outDir, filepath.Base(doc.Filename))
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	v.logger.Info("document written", "kind", kind, "path", path, "bytes", len(doc.Data))
	return path, nil
}
