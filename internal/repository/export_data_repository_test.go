package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/sis-export-api/internal/models"
)

func TestConfirmedGradesFiltersDraftsAtQueryLevel(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExportDataRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "student_id", "student_name", "student_number", "school_year_id",
		"school_year_name", "term_period", "program_name", "section_name", "grade_value", "status", "updated_at",
	}).AddRow("g1", "org-1", "s1", "Ana Cruz", "2024-001", "sy1", "2024-2025", "Q1", "STEM", "A", "92", "confirmed", time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM grade_records WHERE organization_id = $1 AND status IN ($2, $3)")).
		WithArgs("org-1", "confirmed", "overridden", sqlmock.AnyArg(), "sy1", "Q1").
		WillReturnRows(rows)

	records, err := repo.ConfirmedGrades(context.Background(), "org-1", models.ExportJobParams{
		StudentIDs:   []string{"s1"},
		SchoolYearID: "sy1",
		TermPeriod:   "Q1",
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, models.GradeStatusConfirmed, records[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmedGradesZeroRowsIsEmptySlice(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExportDataRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM grade_records WHERE organization_id = $1 AND status IN ($2, $3)")).
		WithArgs("org-1", "confirmed", "overridden", "sy1", "Q1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	records, err := repo.ConfirmedGrades(context.Background(), "org-1", models.ExportJobParams{
		SchoolYearID: "sy1",
		TermPeriod:   "Q1",
	})
	require.NoError(t, err)
	require.Empty(t, records)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizedTranscriptsRestrictsStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExportDataRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "student_id", "student_name", "student_number", "lrn", "school_year_id",
		"school_year_name", "term_period", "course_name", "grade_value", "credits", "transcript_status", "finalized_at",
	}).AddRow("t1", "org-1", "s1", "Ana Cruz", "2024-001", "136414090001", "sy1", "2024-2025", "Q1", "General Mathematics", "90", 1.0, "finalized", time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM transcript_records WHERE organization_id = $1 AND transcript_status = $2")).
		WithArgs("org-1", "finalized").
		WillReturnRows(rows)

	records, err := repo.FinalizedTranscripts(context.Background(), "org-1", models.ExportJobParams{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, models.TranscriptStatusFinalized, records[0].TranscriptStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}
