package dto

import (
	"time"

	"github.com/campusworks/sis-export-api/internal/models"
)

// CreateExportJobRequest captures POST /exports payload.
type CreateExportJobRequest struct {
	ExportType models.ExportType      `json:"exportType" binding:"required"`
	SchoolID   *string                `json:"schoolId,omitempty"`
	Parameters models.ExportJobParams `json:"exportParameters"`
}

// ExportJobResponse exposes job metadata to clients.
type ExportJobResponse struct {
	ID             string                 `json:"id"`
	OrganizationID string                 `json:"organizationId"`
	SchoolID       *string                `json:"schoolId,omitempty"`
	RequestedBy    string                 `json:"requestedBy"`
	ExportType     models.ExportType      `json:"exportType"`
	Parameters     models.ExportJobParams `json:"exportParameters"`
	Status         models.ExportStatus    `json:"status"`
	FilePath       *string                `json:"filePath,omitempty"`
	FileSizeBytes  *int64                 `json:"fileSizeBytes,omitempty"`
	ErrorMessage   *string                `json:"errorMessage,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	StartedAt      *time.Time             `json:"startedAt,omitempty"`
	CompletedAt    *time.Time             `json:"completedAt,omitempty"`
}

// ListExportJobsQuery captures listing filters from query parameters.
type ListExportJobsQuery struct {
	Status     string `form:"status"`
	ExportType string `form:"type"`
	SchoolID   string `form:"schoolId"`
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
}

// ProcessExportRequest is the service-to-service trigger invocation body.
type ProcessExportRequest struct {
	ExportJobID string `json:"export_job_id" binding:"required"`
}

// ProcessExportResponse reports a completed processing attempt.
type ProcessExportResponse struct {
	Success       bool   `json:"success"`
	ExportJobID   string `json:"export_job_id"`
	FilePath      string `json:"file_path"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// DownloadURLResponse carries a time-limited signed download location.
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CreateTemplateRequest captures POST /export-templates payload.
type CreateTemplateRequest struct {
	Name       string                `json:"name" binding:"required"`
	ExportType models.ExportType     `json:"exportType" binding:"required"`
	Config     models.TemplateConfig `json:"templateConfig"`
}

// UpdateTemplateRequest replaces a template's config, bumping its version.
type UpdateTemplateRequest struct {
	Config models.TemplateConfig `json:"templateConfig" binding:"required"`
}
