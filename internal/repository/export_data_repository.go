package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campusworks/sis-export-api/internal/models"
)

// ExportDataRepository performs the read-only queries feeding document
// generation. It is the enforcement point for the export boundary: only
// confirmed or overridden grades and finalized transcript records are ever
// returned, regardless of what the job parameters match.
type ExportDataRepository struct {
	db *sqlx.DB
}

// NewExportDataRepository constructs the repository.
func NewExportDataRepository(db *sqlx.DB) *ExportDataRepository {
	return &ExportDataRepository{db: db}
}

// ConfirmedGrades returns grade records for the organization filtered by the
// job parameters. Draft and pending-confirmation grades are excluded at the
// query level.
func (r *ExportDataRepository) ConfirmedGrades(ctx context.Context, organizationID string, params models.ExportJobParams) ([]models.GradeRecord, error) {
	args := []interface{}{organizationID, string(models.GradeStatusConfirmed), string(models.GradeStatusOverridden)}
	query := `SELECT id, organization_id, student_id, student_name, student_number, school_year_id, school_year_name,
term_period, program_name, section_name, grade_value, status, updated_at
FROM grade_records WHERE organization_id = $1 AND status IN ($2, $3)`

	if len(params.StudentIDs) > 0 {
		args = append(args, pq.Array(params.StudentIDs))
		query += fmt.Sprintf(" AND student_id = ANY($%d)", len(args))
	}
	if params.SchoolYearID != "" {
		args = append(args, params.SchoolYearID)
		query += fmt.Sprintf(" AND school_year_id = $%d", len(args))
	}
	if params.TermPeriod != "" {
		args = append(args, params.TermPeriod)
		query += fmt.Sprintf(" AND term_period = $%d", len(args))
	}
	if params.ProgramID != nil && *params.ProgramID != "" {
		args = append(args, *params.ProgramID)
		query += fmt.Sprintf(" AND program_id = $%d", len(args))
	}
	if params.SectionID != nil && *params.SectionID != "" {
		args = append(args, *params.SectionID)
		query += fmt.Sprintf(" AND section_id = $%d", len(args))
	}
	query += " ORDER BY student_name ASC, term_period ASC"

	var records []models.GradeRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("query confirmed grades: %w", err)
	}
	return records, nil
}

// FinalizedTranscripts returns transcript records for the organization,
// restricted to finalized lines.
func (r *ExportDataRepository) FinalizedTranscripts(ctx context.Context, organizationID string, params models.ExportJobParams) ([]models.TranscriptRecord, error) {
	args := []interface{}{organizationID, string(models.TranscriptStatusFinalized)}
	query := `SELECT id, organization_id, student_id, student_name, student_number, lrn, school_year_id, school_year_name,
term_period, course_name, grade_value, credits, transcript_status, finalized_at
FROM transcript_records WHERE organization_id = $1 AND transcript_status = $2`

	if len(params.StudentIDs) > 0 {
		args = append(args, pq.Array(params.StudentIDs))
		query += fmt.Sprintf(" AND student_id = ANY($%d)", len(args))
	}
	if params.SchoolYearID != "" {
		args = append(args, params.SchoolYearID)
		query += fmt.Sprintf(" AND school_year_id = $%d", len(args))
	}
	if params.TermPeriod != "" {
		args = append(args, params.TermPeriod)
		query += fmt.Sprintf(" AND term_period = $%d", len(args))
	}
	query += " ORDER BY student_name ASC, course_name ASC"

	var records []models.TranscriptRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("query finalized transcripts: %w", err)
	}
	return records, nil
}
