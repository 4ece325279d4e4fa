package models

import "time"

// GradeStatus tracks the review state of a grade record. Only confirmed and
// overridden grades are eligible for export.
type GradeStatus string

const (
	GradeStatusDraft               GradeStatus = "draft"
	GradeStatusPendingConfirmation GradeStatus = "pending_confirmation"
	GradeStatusConfirmed           GradeStatus = "confirmed"
	GradeStatusOverridden          GradeStatus = "overridden"
)

// GradeRecord is a confirmed-or-better grade row consumed read-only by the
// export pipeline. Upstream population of these rows is out of scope.
type GradeRecord struct {
	ID             string      `db:"id" json:"id"`
	OrganizationID string      `db:"organization_id" json:"organization_id"`
	StudentID      string      `db:"student_id" json:"student_id"`
	StudentName    string      `db:"student_name" json:"student_name"`
	StudentNumber  string      `db:"student_number" json:"student_number"`
	SchoolYearID   string      `db:"school_year_id" json:"school_year_id"`
	SchoolYearName string      `db:"school_year_name" json:"school_year_name"`
	TermPeriod     string      `db:"term_period" json:"term_period"`
	ProgramName    string      `db:"program_name" json:"program_name"`
	SectionName    string      `db:"section_name" json:"section_name"`
	GradeValue     string      `db:"grade_value" json:"grade_value"`
	Status         GradeStatus `db:"status" json:"status"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// TranscriptStatus tracks whether a transcript line has been finalized.
type TranscriptStatus string

const (
	TranscriptStatusDraft     TranscriptStatus = "draft"
	TranscriptStatusFinalized TranscriptStatus = "finalized"
)

// TranscriptRecord is an immutable, reviewed transcript line eligible for
// compliance export once finalized.
type TranscriptRecord struct {
	ID               string           `db:"id" json:"id"`
	OrganizationID   string           `db:"organization_id" json:"organization_id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	StudentName      string           `db:"student_name" json:"student_name"`
	StudentNumber    string           `db:"student_number" json:"student_number"`
	LRN              string           `db:"lrn" json:"lrn"`
	SchoolYearID     string           `db:"school_year_id" json:"school_year_id"`
	SchoolYearName   string           `db:"school_year_name" json:"school_year_name"`
	TermPeriod       string           `db:"term_period" json:"term_period"`
	CourseName       string           `db:"course_name" json:"course_name"`
	GradeValue       string           `db:"grade_value" json:"grade_value"`
	Credits          float64          `db:"credits" json:"credits"`
	TranscriptStatus TranscriptStatus `db:"transcript_status" json:"transcript_status"`
	FinalizedAt      *time.Time       `db:"finalized_at" json:"finalized_at,omitempty"`
}
