package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/iso27001/tracker/internal/models"
	"github.com/iso27001/tracker/internal/notifications"
	"github.com/iso27001/tracker/internal/reports"
)

// OverdueSource lists the records the overdue digest checks.
type OverdueSource interface {
	ListActionItems(ctx context.Context) ([]models.ActionItem, error)
	ListRisks(ctx context.Context) ([]models.RiskRegister, error)
}

type Notifier interface {
	NotifyOverdueDigest(ctx context.Context, digest notifications.OverdueDigest) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, req *reports.ReportRequest) (*reports.Report, error)
}

// Handlers wires the built-in job types to their dependencies.
type Handlers struct {
	Source    OverdueSource
	Notifier  Notifier
	Generator ReportGenerator
	OutputDir string
	Now       func() time.Time
}

func (h *Handlers) Register(s *Scheduler) {
	now := h.Now
	if now == nil {
		now = time.Now
	}
	if h.Source != nil && h.Notifier != nil {
		s.RegisterHandler(JobOverdueDigest, OverdueDigestHandler(h.Source, h.Notifier, now))
	}
	if h.Generator != nil {
		s.RegisterHandler(JobSoASnapshot, SoASnapshotHandler(h.Generator, h.OutputDir))
	}
}

// CollectOverdue gathers overdue action items (by due date) and, unless
// includeRisks is false, overdue risk treatments (by target date).
func CollectOverdue(ctx context.Context, src OverdueSource, now time.Time, includeRisks bool) (notifications.OverdueDigest, error) {
	digest := notifications.OverdueDigest{Now: now}

	items, err := src.ListActionItems(ctx)
	if err != nil {
		return digest, fmt.Errorf("listing action items: %w", err)
	}
	for _, a := range items {
		if a.Overdue(now) {
			digest.ActionItems = append(digest.ActionItems, a)
		}
	}
	sort.SliceStable(digest.ActionItems, func(i, j int) bool {
		return digest.ActionItems[i].DueDate.Before(digest.ActionItems[j].DueDate.Time)
	})

	if !includeRisks {
		return digest, nil
	}

	risks, err := src.ListRisks(ctx)
	if err != nil {
		return digest, fmt.Errorf("listing risks: %w", err)
	}
	for _, r := range risks {
		if r.Overdue(now) {
			digest.Risks = append(digest.Risks, r)
		}
	}
	sort.SliceStable(digest.Risks, func(i, j int) bool {
		return digest.Risks[i].TargetDate.Before(digest.Risks[j].TargetDate.Time)
	})

	return digest, nil
}

// OverdueDigestHandler sends the overdue digest. Option include_risks=false
// limits it to action items.
func OverdueDigestHandler(src OverdueSource, notifier Notifier, now func() time.Time) JobHandler {
	return func(ctx context.Context, job *Job) (string, error) {
		includeRisks, err := strconv.ParseBool(job.Option("include_risks", "true"))
		if err != nil {
			return "", fmt.Errorf("include_risks: %w", err)
		}

		digest, err := CollectOverdue(ctx, src, now(), includeRisks)
		if err != nil {
			return "", err
		}
		if err := notifier.NotifyOverdueDigest(ctx, digest); err != nil {
			return "", fmt.Errorf("sending digest: %w", err)
		}
		return fmt.Sprintf("%d overdue action items, %d overdue risks", len(digest.ActionItems), len(digest.Risks)), nil
	}
}

// SoASnapshotHandler writes the Statement of Applicability to outDir. Options:
// format (markdown, csv or pdf) and output_dir.
func SoASnapshotHandler(gen ReportGenerator, outDir string) JobHandler {
	return func(ctx context.Context, job *Job) (string, error) {
		format := reports.ReportFormat(job.Option("format", string(reports.FormatMarkdown)))
		dir := job.Option("output_dir", outDir)

		report, err := gen.Generate(ctx, &reports.ReportRequest{
			Type:   reports.ReportTypeSoA,
			Format: format,
		})
		if err != nil {
			return "", fmt.Errorf("generating statement of applicability: %w", err)
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output directory: %w", err)
		}
		path := filepath.Join(dir, filepath.Base(report.Filename))
		if err := os.WriteFile(path, report.Data, 0o644); err != nil {
			return "", fmt.Errorf("writing snapshot: %w", err)
		}
		return "wrote " + path, nil
	}
}
