package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campusworks/sis-export-api/internal/dto"
	"github.com/campusworks/sis-export-api/internal/middleware"
	"github.com/campusworks/sis-export-api/internal/models"
	"github.com/campusworks/sis-export-api/internal/service"
	appErrors "github.com/campusworks/sis-export-api/pkg/errors"
	"github.com/campusworks/sis-export-api/pkg/response"
)

type exportJobAPI interface {
	Create(ctx context.Context, req dto.CreateExportJobRequest, requesterID, organizationID string) (*dto.ExportJobResponse, error)
	Get(ctx context.Context, id, organizationID string) (*dto.ExportJobResponse, error)
	List(ctx context.Context, organizationID string, query dto.ListExportJobsQuery) ([]dto.ExportJobResponse, *models.Pagination, error)
	Archive(ctx context.Context, id, organizationID string) error
	Regenerate(ctx context.Context, originalID, requesterID, organizationID string) (*dto.ExportJobResponse, error)
	Trigger(jobID, requesterID string) error
	GetDownloadURL(ctx context.Context, id, organizationID string, ttl time.Duration) (*dto.DownloadURLResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

type exportProcessorAPI interface {
	Process(ctx context.Context, jobID, requesterID string) (*service.ProcessResult, error)
}

// ExportHandler exposes the export job endpoints.
type ExportHandler struct {
	jobs      exportJobAPI
	processor exportProcessorAPI
	logger    *zap.Logger
}

// NewExportHandler constructs the handler.
func NewExportHandler(jobs exportJobAPI, processor exportProcessorAPI, logger *zap.Logger) *ExportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{jobs: jobs, processor: processor, logger: logger}
}

// Create handles POST /exports. The job is persisted first, then a processing
// attempt is dispatched fire-and-forget: a lost dispatch leaves the job
// pending for the sweep.
func (h *ExportHandler) Create(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateExportJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	if claims.Role == models.RoleRegistrar && req.ExportType != models.ExportTypeComplianceExport {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "registrars may only run compliance exports"))
		return
	}

	job, err := h.jobs.Create(c.Request.Context(), req, claims.ProfileID, claims.OrganizationID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.jobs.Trigger(job.ID, claims.ProfileID); err != nil {
		h.logger.Sugar().Warnw("export trigger dispatch failed", "exportJobId", job.ID, "error", err)
	}
	response.Created(c, job)
}

// List handles GET /exports.
func (h *ExportHandler) List(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query dto.ListExportJobsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}

	jobs, pagination, err := h.jobs.List(c.Request.Context(), orgScope(claims), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, pagination)
}

// Get handles GET /exports/:id.
func (h *ExportHandler) Get(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"), orgScope(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Archive handles POST /exports/:id/archive.
func (h *ExportHandler) Archive(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.jobs.Archive(c.Request.Context(), c.Param("id"), claims.OrganizationID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Regenerate handles POST /exports/:id/regenerate creating a fresh job from a
// prior one.
func (h *ExportHandler) Regenerate(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	job, err := h.jobs.Regenerate(c.Request.Context(), c.Param("id"), claims.ProfileID, orgScope(claims))
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.jobs.Trigger(job.ID, claims.ProfileID); err != nil {
		h.logger.Sugar().Warnw("export trigger dispatch failed", "exportJobId", job.ID, "error", err)
	}
	response.Created(c, job)
}

// Trigger handles POST /exports/:id/trigger dispatching an async processing
// attempt.
func (h *ExportHandler) Trigger(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id := c.Param("id")
	if _, err := h.jobs.Get(c.Request.Context(), id, orgScope(claims)); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.jobs.Trigger(id, claims.ProfileID); err != nil {
		h.logger.Sugar().Warnw("export trigger dispatch failed", "exportJobId", id, "error", err)
	}
	response.Accepted(c, gin.H{"export_job_id": id})
}

// Process handles POST /exports/process, the synchronous processing
// invocation. The requester is the authenticated caller; authorization happens
// inside the processor against the job row.
func (h *ExportHandler) Process(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ProcessExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	result, err := h.processor.Process(c.Request.Context(), req.ExportJobID, claims.ProfileID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dto.ProcessExportResponse{
		Success:       true,
		ExportJobID:   req.ExportJobID,
		FilePath:      result.FilePath,
		FileSizeBytes: result.FileSizeBytes,
	}, nil)
}

// DownloadURL handles GET /exports/:id/download-url. An optional ttl query
// parameter (seconds) shortens or extends the link lifetime.
func (h *ExportHandler) DownloadURL(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var ttl time.Duration
	if raw := c.Query("ttl"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "ttl must be a positive number of seconds"))
			return
		}
		ttl = time.Duration(seconds) * time.Second
	}

	url, err := h.jobs.GetDownloadURL(c.Request.Context(), c.Param("id"), orgScope(claims), ttl)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, url, nil)
}

// Download handles GET /exports/download/:token. The signed token is the sole
// credential, so this route carries no bearer auth.
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "read export artifact"))
		return
	}

	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, map[string]string{
		"Content-Disposition": `attachment; filename="` + download.FileName + `"`,
	})
}

// orgScope maps claims to the organization filter: superadmins see across
// organizations.
func orgScope(claims *models.JWTClaims) string {
	if claims.Role == models.RoleSuperAdmin {
		return ""
	}
	return claims.OrganizationID
}
