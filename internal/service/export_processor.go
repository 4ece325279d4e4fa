package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campusworks/sis-export-api/internal/models"
	appErrors "github.com/campusworks/sis-export-api/pkg/errors"
	"github.com/campusworks/sis-export-api/pkg/render"
)

type exportJobStore interface {
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	MarkProcessing(ctx context.Context, id string, now time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id, filePath string, fileSizeBytes int64, now time.Time) error
	MarkFailed(ctx context.Context, id, message string, now time.Time) error
}

type profileStore interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

type datasetBuilder interface {
	Build(ctx context.Context, job *models.ExportJob) (render.Dataset, string, error)
}

type blobStore interface {
	Save(key string, data []byte) (string, error)
}

type documentRenderer interface {
	Render(data render.Dataset, title string) (*render.File, error)
}

// ProcessResult reports a successful processing attempt.
type ProcessResult struct {
	FilePath      string
	FileSizeBytes int64
}

// ExportProcessor drives one export job from pending to a terminal state:
// authorize the requester, claim the job, read records, render the document,
// upload the artifact, and persist the outcome.
type ExportProcessor struct {
	jobs     exportJobStore
	profiles profileStore
	datasets datasetBuilder
	storage  blobStore
	pdf      documentRenderer
	csv      documentRenderer
	xlsx     documentRenderer
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewExportProcessor wires the processor dependencies.
func NewExportProcessor(jobs exportJobStore, profiles profileStore, datasets datasetBuilder, storage blobStore,
	pdf, csv, xlsx documentRenderer, metrics *MetricsService, logger *zap.Logger) *ExportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportProcessor{
		jobs:     jobs,
		profiles: profiles,
		datasets: datasets,
		storage:  storage,
		pdf:      pdf,
		csv:      csv,
		xlsx:     xlsx,
		metrics:  metrics,
		logger:   logger,
	}
}

// Process executes one processing attempt for the job on behalf of the
// requester. Failures after the job is claimed are recorded on the job row;
// failures before claiming leave the job untouched.
func (p *ExportProcessor) Process(ctx context.Context, jobID, requesterID string) (*ProcessResult, error) {
	start := time.Now()
	log := p.logger.Sugar().With("exportJobId", jobID, "requesterId", requesterID)

	job, err := p.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load export job")
	}
	if job.ArchivedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}

	profile, err := p.profiles.GetByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "requester profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load requester profile")
	}
	if err := authorizeExport(profile, job); err != nil {
		return nil, err
	}

	if job.Status != models.ExportStatusPending {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("export job is not pending (current status: %s)", job.Status))
	}

	claimed, err := p.jobs.MarkProcessing(ctx, job.ID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "claim export job")
	}
	if !claimed {
		// another invocation won the swap between our read and the update
		return nil, appErrors.Clone(appErrors.ErrConflict, "export job already claimed by another processor")
	}

	result, err := p.generate(ctx, job)
	outcome := "completed"
	if err != nil {
		outcome = "failed"
	}
	p.metrics.ObserveExportJob(string(job.ExportType), outcome, time.Since(start))

	if err != nil {
		log.Warnw("export job failed", "error", err)
		p.failJob(ctx, job.ID, err.Error())
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, err.Error())
	}

	log.Infow("export job completed", "filePath", result.FilePath, "fileSizeBytes", result.FileSizeBytes)
	return result, nil
}

func (p *ExportProcessor) generate(ctx context.Context, job *models.ExportJob) (*ProcessResult, error) {
	dataset, title, err := p.datasets.Build(ctx, job)
	if err != nil {
		return nil, err
	}

	renderer, err := p.rendererFor(job)
	if err != nil {
		return nil, err
	}
	file, err := renderer.Render(dataset, title)
	if err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}

	fileName := fmt.Sprintf("%s_%s.%s", job.ExportType, job.ID, file.Extension)
	key := storageKey(job, fileName)
	if _, err := p.storage.Save(key, file.Data); err != nil {
		return nil, fmt.Errorf("Storage upload failed: %w", err)
	}

	size := int64(len(file.Data))
	if err := p.jobs.MarkCompleted(ctx, job.ID, key, size, time.Now().UTC()); err != nil {
		// the artifact is durable; losing the bookkeeping write must not
		// surface as a processing failure
		p.logger.Sugar().Errorw("failed to record export completion",
			"exportJobId", job.ID, "filePath", key, "error", err)
	}
	return &ProcessResult{FilePath: key, FileSizeBytes: size}, nil
}

func (p *ExportProcessor) rendererFor(job *models.ExportJob) (documentRenderer, error) {
	switch job.ExportType {
	case models.ExportTypeTranscript, models.ExportTypeReportCard:
		if job.Parameters.Format == models.ExportFormatCSV {
			return p.csv, nil
		}
		return p.pdf, nil
	case models.ExportTypeComplianceExport:
		if job.Parameters.Format == models.ExportFormatExcel {
			return p.xlsx, nil
		}
		return p.csv, nil
	default:
		return nil, fmt.Errorf("unsupported export type: %s", job.ExportType)
	}
}

func (p *ExportProcessor) failJob(ctx context.Context, jobID, message string) {
	if err := p.jobs.MarkFailed(ctx, jobID, message, time.Now().UTC()); err != nil {
		p.logger.Sugar().Errorw("failed to record export failure",
			"exportJobId", jobID, "error", err)
	}
}

// storageKey builds the canonical artifact location. Jobs without a school
// scope use the literal "null" segment.
func storageKey(job *models.ExportJob, fileName string) string {
	school := "null"
	if job.SchoolID != nil && *job.SchoolID != "" {
		school = *job.SchoolID
	}
	return fmt.Sprintf("exports/%s/%s/%s/%s", job.OrganizationID, school, job.ID, fileName)
}

// authorizeExport checks the requester may process exports for the job's
// organization. Registrars are limited to compliance exports.
func authorizeExport(profile *models.Profile, job *models.ExportJob) error {
	if profile == nil || !profile.Active {
		return appErrors.Clone(appErrors.ErrForbidden, "requester profile is inactive")
	}
	if profile.IsSuperAdmin() {
		return nil
	}
	if profile.OrganizationID != job.OrganizationID {
		return appErrors.Clone(appErrors.ErrForbidden, "cross-organization access denied")
	}
	switch profile.Role {
	case models.RoleAdmin, models.RolePrincipal:
		return nil
	case models.RoleRegistrar:
		if job.ExportType == models.ExportTypeComplianceExport {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "registrars may only run compliance exports")
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "role not permitted to run exports")
	}
}
