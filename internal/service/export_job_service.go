package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusworks/sis-export-api/internal/dto"
	"github.com/campusworks/sis-export-api/internal/models"
	"github.com/campusworks/sis-export-api/pkg/config"
	appErrors "github.com/campusworks/sis-export-api/pkg/errors"
	"github.com/campusworks/sis-export-api/pkg/jobs"
	"github.com/campusworks/sis-export-api/pkg/render"
)

type exportJobCatalog interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	List(ctx context.Context, organizationID string, filter models.ExportJobFilter) ([]models.ExportJob, int, error)
	Archive(ctx context.Context, id, organizationID string) error
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type jobDispatcher interface {
	Dispatch(job jobs.Job) error
}

type downloadSigner interface {
	Generate(jobID, key string, ttl time.Duration) (string, time.Time, error)
	Parse(token string) (jobID, key string, expiresAt time.Time, err error)
}

type artifactStore interface {
	Open(key string) (*os.File, error)
}

// ExportDownload is a resolved artifact ready to stream to the client.
type ExportDownload struct {
	File        *os.File
	FileName    string
	ContentType string
}

// ExportJobService is the client-facing facade over the export pipeline:
// job creation, listing, archive, regeneration, trigger dispatch, and signed
// download links. Processing itself belongs to ExportProcessor.
type ExportJobService struct {
	repo       exportJobCatalog
	dispatcher jobDispatcher
	signer     downloadSigner
	artifacts  artifactStore
	validate   *validator.Validate
	cfg        config.ExportsConfig
	apiPrefix  string
	logger     *zap.Logger
}

// NewExportJobService constructs the facade. apiPrefix is the route prefix the
// download endpoint is mounted under, so issued links resolve against the
// running server.
func NewExportJobService(repo exportJobCatalog, dispatcher jobDispatcher, signer downloadSigner,
	artifacts artifactStore, cfg config.ExportsConfig, apiPrefix string, logger *zap.Logger) *ExportJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := validator.New()
	// honour the same tags gin binding uses so non-HTTP callers get identical
	// validation
	validate.SetTagName("binding")
	return &ExportJobService{
		repo:       repo,
		dispatcher: dispatcher,
		signer:     signer,
		artifacts:  artifacts,
		validate:   validate,
		cfg:        cfg,
		apiPrefix:  strings.TrimSuffix(apiPrefix, "/"),
		logger:     logger,
	}
}

// Create persists a new export job in pending state. Triggering the first
// processing attempt is the caller's responsibility; a lost trigger leaves the
// job pending for the sweep.
func (s *ExportJobService) Create(ctx context.Context, req dto.CreateExportJobRequest, requesterID, organizationID string) (*dto.ExportJobResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export job request")
	}
	if !isValidExportType(req.ExportType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export type: %s", req.ExportType))
	}
	if !isValidExportFormat(req.Parameters.Format) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format: %s", req.Parameters.Format))
	}

	job := &models.ExportJob{
		OrganizationID: organizationID,
		SchoolID:       req.SchoolID,
		RequestedBy:    requesterID,
		ExportType:     req.ExportType,
		Parameters:     req.Parameters,
		Status:         models.ExportStatusPending,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create export job")
	}

	s.logger.Sugar().Infow("export job created",
		"exportJobId", job.ID, "exportType", job.ExportType, "organizationId", organizationID)
	resp := toExportJobResponse(job)
	return &resp, nil
}

// Trigger dispatches one processing attempt for the job. The error is
// advisory: a failed dispatch leaves the job pending and the sweep or a manual
// retrigger picks it up later.
func (s *ExportJobService) Trigger(jobID, requesterID string) error {
	if err := s.dispatcher.Dispatch(jobs.Job{ID: jobID, RequesterID: requesterID}); err != nil {
		return fmt.Errorf("dispatch export job %s: %w", jobID, err)
	}
	return nil
}

// Get returns a job scoped to the organization. An empty organizationID skips
// the scope check for platform-level callers.
func (s *ExportJobService) Get(ctx context.Context, id, organizationID string) (*dto.ExportJobResponse, error) {
	job, err := s.loadScoped(ctx, id, organizationID)
	if err != nil {
		return nil, err
	}
	resp := toExportJobResponse(job)
	return &resp, nil
}

// List returns non-archived jobs for the organization with pagination metadata.
func (s *ExportJobService) List(ctx context.Context, organizationID string, query dto.ListExportJobsQuery) ([]dto.ExportJobResponse, *models.Pagination, error) {
	filter := models.ExportJobFilter{
		Status:     models.ExportStatus(query.Status),
		ExportType: models.ExportType(query.ExportType),
		SchoolID:   query.SchoolID,
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	jobsList, total, err := s.repo.List(ctx, organizationID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list export jobs")
	}

	responses := make([]dto.ExportJobResponse, 0, len(jobsList))
	for i := range jobsList {
		responses = append(responses, toExportJobResponse(&jobsList[i]))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return responses, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Archive soft-deletes a job. Completed artifacts stay on storage.
func (s *ExportJobService) Archive(ctx context.Context, id, organizationID string) error {
	if _, err := s.loadScoped(ctx, id, organizationID); err != nil {
		return err
	}
	if err := s.repo.Archive(ctx, id, organizationID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export job not found or already archived")
	}
	return nil
}

// Regenerate creates a fresh pending job copying the original's type, scope,
// and parameters. The new job is attributed to the caller, not the original
// requester, and gets its own storage key.
func (s *ExportJobService) Regenerate(ctx context.Context, originalID, requesterID, organizationID string) (*dto.ExportJobResponse, error) {
	original, err := s.loadScoped(ctx, originalID, organizationID)
	if err != nil {
		return nil, err
	}

	job := &models.ExportJob{
		OrganizationID: original.OrganizationID,
		SchoolID:       original.SchoolID,
		RequestedBy:    requesterID,
		ExportType:     original.ExportType,
		Parameters:     original.Parameters,
		Status:         models.ExportStatusPending,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create regenerated export job")
	}

	s.logger.Sugar().Infow("export job regenerated",
		"originalJobId", originalID, "exportJobId", job.ID, "requesterId", requesterID)
	resp := toExportJobResponse(job)
	return &resp, nil
}

// GetDownloadURL issues a signed, time-limited download link for a completed
// job's artifact. A non-positive ttl falls back to the configured default.
func (s *ExportJobService) GetDownloadURL(ctx context.Context, id, organizationID string, ttl time.Duration) (*dto.DownloadURLResponse, error) {
	job, err := s.loadScoped(ctx, id, organizationID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ExportStatusCompleted || job.FilePath == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "export job has no downloadable artifact")
	}

	if ttl <= 0 {
		ttl = s.cfg.SignedURLTTL
	}
	token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath, ttl)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign download url")
	}
	return &dto.DownloadURLResponse{
		URL:       fmt.Sprintf("%s/exports/download/%s", s.apiPrefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveDownload validates a signed token and opens the referenced artifact.
// The token is the sole credential; no bearer auth is required on download.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, key, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}

	job, err := s.loadScoped(ctx, jobID, "")
	if err != nil {
		return nil, err
	}
	if job.FilePath == nil || *job.FilePath != key {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export artifact not found")
	}

	file, err := s.artifacts.Open(key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export artifact not found")
	}

	name := filepath.Base(key)
	return &ExportDownload{
		File:        file,
		FileName:    name,
		ContentType: contentTypeForName(name),
	}, nil
}

// StartPendingSweep periodically re-dispatches jobs stuck in pending beyond
// the configured age, covering lost fire-and-forget triggers. Runs until the
// context is cancelled.
func (s *ExportJobService) StartPendingSweep(ctx context.Context) {
	interval := s.cfg.PendingSweepInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepPending(ctx)
			}
		}
	}()
}

func (s *ExportJobService) sweepPending(ctx context.Context) {
	age := s.cfg.PendingSweepAge
	if age <= 0 {
		age = 10 * time.Minute
	}
	cutoff := time.Now().UTC().Add(-age)

	stale, err := s.repo.ListPendingBefore(ctx, cutoff, 50)
	if err != nil {
		s.logger.Sugar().Warnw("pending sweep query failed", "error", err)
		return
	}
	for _, job := range stale {
		if err := s.Trigger(job.ID, job.RequestedBy); err != nil {
			s.logger.Sugar().Warnw("pending sweep dispatch failed", "exportJobId", job.ID, "error", err)
			continue
		}
		s.logger.Sugar().Infow("pending export job re-dispatched", "exportJobId", job.ID)
	}
}

// loadScoped fetches a job, treating archived rows and organization mismatches
// as not found so cross-tenant probing cannot distinguish the two.
func (s *ExportJobService) loadScoped(ctx context.Context, id, organizationID string) (*models.ExportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load export job")
	}
	if job.ArchivedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if organizationID != "" && job.OrganizationID != organizationID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

func toExportJobResponse(job *models.ExportJob) dto.ExportJobResponse {
	return dto.ExportJobResponse{
		ID:             job.ID,
		OrganizationID: job.OrganizationID,
		SchoolID:       job.SchoolID,
		RequestedBy:    job.RequestedBy,
		ExportType:     job.ExportType,
		Parameters:     job.Parameters,
		Status:         job.Status,
		FilePath:       job.FilePath,
		FileSizeBytes:  job.FileSizeBytes,
		ErrorMessage:   job.ErrorMessage,
		CreatedAt:      job.CreatedAt,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
	}
}

func isValidExportType(t models.ExportType) bool {
	switch t {
	case models.ExportTypeTranscript, models.ExportTypeReportCard, models.ExportTypeComplianceExport:
		return true
	default:
		return false
	}
}

func isValidExportFormat(f models.ExportFormat) bool {
	switch f {
	case "", models.ExportFormatPDF, models.ExportFormatCSV, models.ExportFormatExcel:
		return true
	default:
		return false
	}
}

func contentTypeForName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return render.ContentTypePDF
	case ".csv":
		return render.ContentTypeCSV
	case ".xlsx":
		return render.ContentTypeXLSX
	default:
		return "application/octet-stream"
	}
}
