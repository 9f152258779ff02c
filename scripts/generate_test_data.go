// generate_test_data fills a running tracker with sample action items,
// evidence and risks linked to the seeded gap assessments.
//
//	go run ./scripts -n 40
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/iso27001/tracker/internal/client"
	"github.com/iso27001/tracker/internal/models"
)

var (
	owners = []string{"Priya Shah", "Tom Becker", "Ana Costa", "Lee Morgan", "Sam Okafor", "Jo Lindqvist"}

	actionTitles = []string{
		"Document the ISMS scope statement",
		"Run the annual information security risk assessment",
		"Review supplier security agreements",
		"Update the access control policy",
		"Schedule the internal audit programme",
		"Collect management review minutes",
		"Roll out security awareness training",
		"Test the backup restore procedure",
		"Define information security objectives and metrics",
		"Record nonconformities in the corrective action log",
	}

	evidenceTitles = []string{
		"Signed information security policy",
		"Risk treatment plan v2",
		"Internal audit report",
		"Training attendance records",
		"Asset inventory export",
		"Management review minutes",
	}

	fileTypes = []string{"application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "text/markdown"}

	risks = []struct {
		title    string
		category string
		controls string
	}{
		{"Ransomware on file servers", "Technical", "A.8.7, A.8.13"},
		{"Laptop theft with unencrypted data", "Physical", "A.7.9, A.8.1"},
		{"Supplier breach exposes customer data", "Third Party", "A.5.19, A.5.21"},
		{"Phishing leads to account takeover", "People", "A.6.3, A.8.5"},
		{"Cloud misconfiguration exposes storage", "Technical", "A.8.9, A.5.23"},
		{"Loss of key security staff", "Organizational", "A.5.2, A.6.1"},
	}
)

func main() {
	baseURL := flag.String("api-url", client.BaseURLFromEnv(), "API base URL")
	count := flag.Int("n", 20, "number of action items to create")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	if err := run(context.Background(), client.New(*baseURL), *count, rand.New(rand.NewSource(*seed))); err != nil {
		fmt.Fprintf(os.Stderr, "generate_test_data: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, count int, rng *rand.Rand) error {
	gaps, err := c.GapAssessments().List(ctx)
	if err != nil {
		return fmt.Errorf("listing gap assessments: %w", err)
	}
	if len(gaps) == 0 {
		return fmt.Errorf("no gap assessments found; seed the database first")
	}

	today := models.DateOf(time.Now())

	fmt.Printf("Creating %d action items...\n", count)
	for i := 0; i < count; i++ {
		gap := gaps[rng.Intn(len(gaps))]
		due := models.DateOf(today.AddDate(0, 0, rng.Intn(120)-45))
		item := &models.ActionItem{
			Title:           actionTitles[rng.Intn(len(actionTitles))],
			Description:     "Raised from " + gap.StandardRef,
			Status:          models.ActionStatusValues[rng.Intn(len(models.ActionStatusValues))],
			Priority:        models.PriorityValues[rng.Intn(len(models.PriorityValues))],
			AssignedTo:      owners[rng.Intn(len(owners))],
			DueDate:         &due,
			GapAssessmentID: &gap.ID,
			Category:        gap.Category,
		}
		if item.Status == models.ActionCompleted {
			done := models.DateOf(today.AddDate(0, 0, -rng.Intn(30)))
			item.CompletedDate = &done
		}
		if _, err := c.ActionItems().Create(ctx, item); err != nil {
			return fmt.Errorf("creating action item: %w", err)
		}
	}

	fmt.Printf("Creating %d evidence records...\n", len(evidenceTitles))
	for _, title := range evidenceTitles {
		gap := gaps[rng.Intn(len(gaps))]
		size := int64(10_000 + rng.Intn(5_000_000))
		e := &models.Evidence{
			Title:           title,
			FileName:        fmt.Sprintf("%s.pdf", title),
			FileSize:        &size,
			FileType:        fileTypes[rng.Intn(len(fileTypes))],
			GapAssessmentID: &gap.ID,
			ClauseReference: gap.StandardRef,
			UploadedBy:      owners[rng.Intn(len(owners))],
		}
		if _, err := c.Evidence().Create(ctx, e); err != nil {
			return fmt.Errorf("creating evidence: %w", err)
		}
	}

	fmt.Printf("Creating %d risks...\n", len(risks))
	for i, r := range risks {
		likelihood := models.RatingValues[rng.Intn(len(models.RatingValues))]
		impact := models.RatingValues[rng.Intn(len(models.RatingValues))]
		target := models.DateOf(today.AddDate(0, 0, rng.Intn(180)-30))
		risk := &models.RiskRegister{
			RiskID:          fmt.Sprintf("RISK-%03d", i+1),
			Title:           r.title,
			Category:        r.category,
			Likelihood:      likelihood,
			Impact:          impact,
			RiskLevel:       models.CalculateRiskLevel(likelihood, impact),
			TreatmentStatus: models.TreatmentStatusValues[rng.Intn(len(models.TreatmentStatusValues))],
			Owner:           owners[rng.Intn(len(owners))],
			TargetDate:      &target,
			AnnexAControls:  r.controls,
		}
		if _, err := c.Risks().Create(ctx, risk); err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Code == "duplicate_risk_id" {
				fmt.Printf("  %s exists, skipped\n", risk.RiskID)
				continue
			}
			return fmt.Errorf("creating risk: %w", err)
		}
	}

	fmt.Println("Done.")
	return nil
}
