package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/sis-export-api/internal/models"
)

const exportJobColumns = `id, organization_id, school_id, requested_by, export_type, export_parameters,
status, file_path, file_size_bytes, error_message, created_at, updated_at, started_at, completed_at, archived_at`

// ExportJobRepository persists export job records. Jobs are append-only from
// the caller's perspective: after creation the only mutations are the status
// transitions applied by the processor, plus the archive soft delete.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository constructs the repository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a new export job row with generated defaults.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusPending
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = now
	}
	const query = `INSERT INTO export_jobs (id, organization_id, school_id, requested_by, export_type, export_parameters, status, created_at, updated_at)
VALUES (:id, :organization_id, :school_id, :requested_by, :export_type, :export_parameters, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *ExportJobRepository) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM export_jobs WHERE id = $1`, exportJobColumns)
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get export job: %w", err)
	}
	return &job, nil
}

// List returns non-archived jobs for the organization, newest first, with the
// total count for pagination. An empty organizationID skips the tenant filter
// for platform-level callers.
func (r *ExportJobRepository) List(ctx context.Context, organizationID string, filter models.ExportJobFilter) ([]models.ExportJob, int, error) {
	args := []interface{}{}
	conditions := []string{}
	if organizationID != "" {
		args = append(args, organizationID)
		conditions = append(conditions, fmt.Sprintf("organization_id = $%d", len(args)))
	}
	conditions = append(conditions, "archived_at IS NULL")

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ExportType != "" {
		args = append(args, filter.ExportType)
		conditions = append(conditions, fmt.Sprintf("export_type = $%d", len(args)))
	}
	if filter.SchoolID != "" {
		args = append(args, filter.SchoolID)
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM export_jobs WHERE %s", where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count export jobs: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	args = append(args, pageSize, (page-1)*pageSize)

	query := fmt.Sprintf(`SELECT %s FROM export_jobs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		exportJobColumns, where, len(args)-1, len(args))

	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list export jobs: %w", err)
	}
	return jobs, total, nil
}

// Archive soft-deletes a job by timestamping archived_at. The job status is
// untouched.
func (r *ExportJobRepository) Archive(ctx context.Context, id, organizationID string) error {
	const query = `UPDATE export_jobs SET archived_at = $1, updated_at = $1
WHERE id = $2 AND organization_id = $3 AND archived_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id, organizationID)
	if err != nil {
		return fmt.Errorf("archive export job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive export job result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("export job %s not found or already archived", id)
	}
	return nil
}

// MarkProcessing transitions pending -> processing as an atomic
// compare-and-swap. Returns false when the job was not pending, which covers
// the race of two concurrent trigger invocations: only one wins the update.
func (r *ExportJobRepository) MarkProcessing(ctx context.Context, id string, now time.Time) (bool, error) {
	const query = `UPDATE export_jobs SET status = $1, started_at = $2, updated_at = $2
WHERE id = $3 AND status = $4 AND archived_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, models.ExportStatusProcessing, now, id, models.ExportStatusPending)
	if err != nil {
		return false, fmt.Errorf("mark export job processing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark export job processing result: %w", err)
	}
	return affected == 1, nil
}

// MarkCompleted records the terminal success state with the artifact location.
func (r *ExportJobRepository) MarkCompleted(ctx context.Context, id, filePath string, fileSizeBytes int64, now time.Time) error {
	const query = `UPDATE export_jobs SET status = $1, file_path = $2, file_size_bytes = $3, completed_at = $4, updated_at = $4
WHERE id = $5 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, models.ExportStatusCompleted, filePath, fileSizeBytes, now, id, models.ExportStatusProcessing)
	if err != nil {
		return fmt.Errorf("mark export job completed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark export job completed result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("export job %s not processing", id)
	}
	return nil
}

// MarkFailed records the terminal failure state with a diagnostic message.
func (r *ExportJobRepository) MarkFailed(ctx context.Context, id, message string, now time.Time) error {
	const query = `UPDATE export_jobs SET status = $1, error_message = $2, completed_at = $3, updated_at = $3
WHERE id = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, models.ExportStatusFailed, message, now, id, models.ExportStatusProcessing)
	if err != nil {
		return fmt.Errorf("mark export job failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark export job failed result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("export job %s not processing", id)
	}
	return nil
}

// ListPendingBefore fetches jobs still pending past the cutoff, oldest first.
// Used by the sweep that re-dispatches jobs whose fire-and-forget trigger was
// lost.
func (r *ExportJobRepository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM export_jobs
WHERE status = $1 AND archived_at IS NULL AND created_at < $2 ORDER BY created_at ASC LIMIT $3`, exportJobColumns)
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, models.ExportStatusPending, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list pending export jobs: %w", err)
	}
	return jobs, nil
}
