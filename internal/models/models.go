package models

import (
	"strconv"
	"time"
)

type Compliance string

const (
	ComplianceFull          Compliance = "Fully Compliant"
	CompliancePartial       Compliance = "Partially Compliant"
	ComplianceNone          Compliance = "Not Compliant"
	ComplianceNotApplicable Compliance = "Not Applicable"
)

// ComplianceValues lists the compliance options in display order.
var ComplianceValues = []Compliance{
	ComplianceFull,
	CompliancePartial,
	ComplianceNone,
	ComplianceNotApplicable,
}

func (c Compliance) Valid() bool {
	for _, v := range ComplianceValues {
		if c == v {
			return true
		}
	}
	return false
}

type ActionStatus string

const (
	ActionNotStarted ActionStatus = "Not Started"
	ActionInProgress ActionStatus = "In Progress"
	ActionCompleted  ActionStatus = "Completed"
	ActionOnHold     ActionStatus = "On Hold"
)

var ActionStatusValues = []ActionStatus{ActionNotStarted, ActionInProgress, ActionCompleted, ActionOnHold}

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

var PriorityValues = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Rating is the five-point scale used for risk likelihood and impact.
type Rating string

const (
	RatingVeryLow  Rating = "Very Low"
	RatingLow      Rating = "Low"
	RatingMedium   Rating = "Medium"
	RatingHigh     Rating = "High"
	RatingVeryHigh Rating = "Very High"
)

var RatingValues = []Rating{RatingVeryLow, RatingLow, RatingMedium, RatingHigh, RatingVeryHigh}

type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "Very Low"
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskVeryHigh RiskLevel = "Very High"
	RiskCritical RiskLevel = "Critical"
)

var RiskLevelValues = []RiskLevel{RiskVeryLow, RiskLow, RiskMedium, RiskHigh, RiskVeryHigh, RiskCritical}

type TreatmentStatus string

const (
	TreatmentOpen        TreatmentStatus = "Open"
	TreatmentInProgress  TreatmentStatus = "In Progress"
	TreatmentMitigated   TreatmentStatus = "Mitigated"
	TreatmentAccepted    TreatmentStatus = "Accepted"
	TreatmentTransferred TreatmentStatus = "Transferred"
)

var TreatmentStatusValues = []TreatmentStatus{
	TreatmentOpen,
	TreatmentInProgress,
	TreatmentMitigated,
	TreatmentAccepted,
	TreatmentTransferred,
}

// Maturity level labels as stored. The separator after the digit is an
// en dash for levels 1-5, which is how the assessment workbook spells them.
const (
	MaturityNotApplicable = "NA - Not Applicable"
	MaturityLevel0        = "0 - No"
	MaturityLevel1        = "1 – Yes, but ad hoc"
	MaturityLevel2        = "2 – Yes, documented but inconsistent"
	MaturityLevel3        = "3 – Yes, Consistent but no metrics"
	MaturityLevel4        = "4 – Yes, Consistent with metrics"
	MaturityLevel5        = "5 – Yes, Optimized"
)

var MaturityLevels = []string{
	MaturityNotApplicable,
	MaturityLevel0,
	MaturityLevel1,
	MaturityLevel2,
	MaturityLevel3,
	MaturityLevel4,
	MaturityLevel5,
}

type GapAssessment struct {
	ID                 int64      `json:"id" db:"id"`
	Category           string     `json:"category" db:"category"`
	Section            string     `json:"section" db:"section"`
	StandardRef        string     `json:"standard_ref" db:"standard_ref"`
	AssessmentQuestion string     `json:"assessment_question" db:"assessment_question"`
	Compliance         Compliance `json:"compliance" db:"compliance"`
	Notes              string     `json:"notes" db:"notes"`
	TargetDate         *Date      `json:"target_date,omitempty" db:"target_date"`
	ActionItemID       *int64     `json:"action_item_id,omitempty" db:"action_item_id"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

type MaturityAssessment struct {
	ID                      int64     `json:"id" db:"id"`
	Category                string    `json:"category" db:"category"`
	Section                 string    `json:"section" db:"section"`
	StandardRef             string    `json:"standard_ref" db:"standard_ref"`
	AssessmentQuestion      string    `json:"assessment_question" db:"assessment_question"`
	CurrentMaturityLevel    string    `json:"current_maturity_level" db:"current_maturity_level"`
	CurrentMaturityScore    *int      `json:"current_maturity_score" db:"current_maturity_score"`
	CurrentMaturityComments string    `json:"current_maturity_comments" db:"current_maturity_comments"`
	TargetMaturityLevel     string    `json:"target_maturity_level" db:"target_maturity_level"`
	TargetMaturityScore     *int      `json:"target_maturity_score" db:"target_maturity_score"`
	TargetMaturityComments  string    `json:"target_maturity_comments" db:"target_maturity_comments"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}

// SetCurrentLevel assigns the level and keeps the score derived from it.
func (m *MaturityAssessment) SetCurrentLevel(level string) {
	m.CurrentMaturityLevel = level
	m.CurrentMaturityScore = MaturityScore(level)
}

func (m *MaturityAssessment) SetTargetLevel(level string) {
	m.TargetMaturityLevel = level
	m.TargetMaturityScore = MaturityScore(level)
}

type ActionItem struct {
	ID                   int64        `json:"id" db:"id"`
	Title                string       `json:"title" db:"title"`
	Description          string       `json:"description" db:"description"`
	Status               ActionStatus `json:"status" db:"status"`
	Priority             Priority     `json:"priority" db:"priority"`
	AssignedTo           string       `json:"assigned_to" db:"assigned_to"`
	DueDate              *Date        `json:"due_date,omitempty" db:"due_date"`
	CompletedDate        *Date        `json:"completed_date,omitempty" db:"completed_date"`
	GapAssessmentID      *int64       `json:"gap_assessment_id,omitempty" db:"gap_assessment_id"`
	MaturityAssessmentID *int64       `json:"maturity_assessment_id,omitempty" db:"maturity_assessment_id"`
	Category             string       `json:"category" db:"category"`
	FileName             *string      `json:"file_name,omitempty" db:"file_name"`
	FilePath             *string      `json:"file_path,omitempty" db:"file_path"`
	FileSize             *int64       `json:"file_size,omitempty" db:"file_size"`
	FileType             *string      `json:"file_type,omitempty" db:"file_type"`
	ClauseReference      *string      `json:"clause_reference,omitempty" db:"clause_reference"`
	AnnexReference       *string      `json:"annex_reference,omitempty" db:"annex_reference"`
	CreatedAt            time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at" db:"updated_at"`
}

// Overdue reports whether the item has a due date before now and is not
// completed.
func (a ActionItem) Overdue(now time.Time) bool {
	if a.DueDate == nil || a.Status == ActionCompleted {
		return false
	}
	return a.DueDate.Before(now)
}

type Evidence struct {
	ID                   int64     `json:"id" db:"id"`
	Title                string    `json:"title" db:"title"`
	Description          string    `json:"description" db:"description"`
	FileName             string    `json:"file_name" db:"file_name"`
	FilePath             string    `json:"file_path" db:"file_path"`
	FileSize             *int64    `json:"file_size,omitempty" db:"file_size"`
	FileType             string    `json:"file_type" db:"file_type"`
	GapAssessmentID      *int64    `json:"gap_assessment_id,omitempty" db:"gap_assessment_id"`
	MaturityAssessmentID *int64    `json:"maturity_assessment_id,omitempty" db:"maturity_assessment_id"`
	ClauseReference      string    `json:"clause_reference" db:"clause_reference"`
	AnnexReference       string    `json:"annex_reference" db:"annex_reference"`
	UploadedBy           string    `json:"uploaded_by" db:"uploaded_by"`
	UploadedAt           time.Time `json:"uploaded_at" db:"uploaded_at"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

type RiskRegister struct {
	ID              int64           `json:"id" db:"id"`
	RiskID          string          `json:"risk_id" db:"risk_id"`
	Title           string          `json:"title" db:"title"`
	Description     string          `json:"description" db:"description"`
	Category        string          `json:"category" db:"category"`
	Likelihood      Rating          `json:"likelihood" db:"likelihood"`
	Impact          Rating          `json:"impact" db:"impact"`
	RiskLevel       RiskLevel       `json:"risk_level" db:"risk_level"`
	CurrentControls string          `json:"current_controls" db:"current_controls"`
	TreatmentPlan   string          `json:"treatment_plan" db:"treatment_plan"`
	TreatmentStatus TreatmentStatus `json:"treatment_status" db:"treatment_status"`
	Owner           string          `json:"owner" db:"owner"`
	TargetDate      *Date           `json:"target_date,omitempty" db:"target_date"`
	GapAssessmentID *int64          `json:"gap_assessment_id,omitempty" db:"gap_assessment_id"`
	AnnexAControls  string          `json:"annex_a_controls" db:"annex_a_controls"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// Overdue reports whether the treatment target date has passed while the
// risk is still untreated.
func (r RiskRegister) Overdue(now time.Time) bool {
	if r.TargetDate == nil || r.TreatmentStatus == TreatmentMitigated {
		return false
	}
	return r.TargetDate.Before(now)
}

// DefaultRiskID builds the client-side default identifier for a new risk.
func DefaultRiskID(now time.Time) string {
	return "RISK-" + strconv.FormatInt(now.UnixMilli(), 10)
}
