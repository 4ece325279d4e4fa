package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/sis-export-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func exportJobRows(id string, status models.ExportStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "organization_id", "school_id", "requested_by", "export_type", "export_parameters",
		"status", "file_path", "file_size_bytes", "error_message", "created_at", "updated_at",
		"started_at", "completed_at", "archived_at",
	}).AddRow(id, "org-1", nil, "user-1", "transcript", `{"termPeriod":"Q1"}`,
		string(status), nil, nil, nil, time.Now(), time.Now(), nil, nil, nil)
}

func TestExportJobRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExportJobRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO export_jobs")).
		WithArgs(sqlmock.AnyArg(), "org-1", nil, "user-1", "transcript", sqlmock.AnyArg(), "pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ExportJob{
		OrganizationID: "org-1",
		RequestedBy:    "user-1",
		ExportType:     models.ExportTypeTranscript,
		Parameters:     models.ExportJobParams{TermPeriod: "Q1"},
	}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)
	require.Equal(t, models.ExportStatusPending, job.Status)

	mock.ExpectQuery("SELECT .+ FROM export_jobs WHERE id = ").
		WithArgs(job.ID).
		WillReturnRows(exportJobRows(job.ID, models.ExportStatusPending))

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, job.ID, fetched.ID)
	require.Equal(t, "Q1", fetched.Parameters.TermPeriod)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryListExcludesArchived(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM export_jobs WHERE organization_id = $1 AND archived_at IS NULL AND status = $2")).
		WithArgs("org-1", "completed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT .+ FROM export_jobs WHERE organization_id = .+ AND archived_at IS NULL AND status = .+ ORDER BY created_at DESC").
		WithArgs("org-1", "completed", 20, 0).
		WillReturnRows(exportJobRows("job-1", models.ExportStatusCompleted))

	jobs, total, err := repo.List(context.Background(), "org-1", models.ExportJobFilter{Status: models.ExportStatusCompleted})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, jobs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryListUnscopedWithoutOrganization(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM export_jobs WHERE archived_at IS NULL")).
		WithArgs().
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT .+ FROM export_jobs WHERE archived_at IS NULL ORDER BY created_at DESC").
		WithArgs(20, 0).
		WillReturnRows(exportJobRows("job-1", models.ExportStatusPending))

	jobs, total, err := repo.List(context.Background(), "", models.ExportJobFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, jobs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryMarkProcessingCAS(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET status = $1, started_at = $2, updated_at = $2\nWHERE id = $3 AND status = $4 AND archived_at IS NULL")).
		WithArgs("processing", now, "job-1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkProcessing(context.Background(), "job-1", now)
	require.NoError(t, err)
	require.True(t, ok)

	// second invocation loses the swap
	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET status = $1, started_at = $2, updated_at = $2")).
		WithArgs("processing", now, "job-1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = repo.MarkProcessing(context.Background(), "job-1", now)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryMarkCompleted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET status = $1, file_path = $2, file_size_bytes = $3, completed_at = $4, updated_at = $4")).
		WithArgs("completed", "exports/org-1/null/job-1/transcript_job-1.pdf", int64(1024), now, "job-1", "processing").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkCompleted(context.Background(), "job-1", "exports/org-1/null/job-1/transcript_job-1.pdf", 1024, now)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryMarkFailed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET status = $1, error_message = $2, completed_at = $3, updated_at = $3")).
		WithArgs("failed", "no confirmed grades for selected scope", now, "job-1", "processing").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkFailed(context.Background(), "job-1", "no confirmed grades for selected scope", now)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryArchive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET archived_at = $1, updated_at = $1\nWHERE id = $2 AND organization_id = $3 AND archived_at IS NULL")).
		WithArgs(sqlmock.AnyArg(), "job-1", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Archive(context.Background(), "job-1", "org-1"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET archived_at = $1")).
		WithArgs(sqlmock.AnyArg(), "job-1", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.Error(t, repo.Archive(context.Background(), "job-1", "org-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryListPendingBefore(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectQuery("SELECT .+ FROM export_jobs\nWHERE status = .+ AND archived_at IS NULL AND created_at < .+ ORDER BY created_at ASC").
		WithArgs("pending", sqlmock.AnyArg(), 20).
		WillReturnRows(exportJobRows("job-1", models.ExportStatusPending))

	jobs, err := repo.ListPendingBefore(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
