package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportType enumerates supported document generation categories.
type ExportType string

const (
	ExportTypeTranscript       ExportType = "transcript"
	ExportTypeReportCard       ExportType = "report_card"
	ExportTypeComplianceExport ExportType = "compliance_export"
)

// ExportFormat enumerates requested output formats.
type ExportFormat string

const (
	ExportFormatPDF   ExportFormat = "pdf"
	ExportFormatCSV   ExportFormat = "csv"
	ExportFormatExcel ExportFormat = "excel"
)

// ExportStatus captures the job lifecycle. Transitions are one-directional:
// pending -> processing -> completed | failed.
type ExportStatus string

const (
	ExportStatusPending    ExportStatus = "pending"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusCompleted  ExportStatus = "completed"
	ExportStatusFailed     ExportStatus = "failed"
)

// ExportJob tracks one document-generation request end to end. Rows are
// mutated only by the processor after creation and are archived, never deleted.
type ExportJob struct {
	ID             string          `db:"id" json:"id"`
	OrganizationID string          `db:"organization_id" json:"organization_id"`
	SchoolID       *string         `db:"school_id" json:"school_id,omitempty"`
	RequestedBy    string          `db:"requested_by" json:"requested_by"`
	ExportType     ExportType      `db:"export_type" json:"export_type"`
	Parameters     ExportJobParams `db:"export_parameters" json:"export_parameters"`
	Status         ExportStatus    `db:"status" json:"status"`
	FilePath       *string         `db:"file_path" json:"file_path,omitempty"`
	FileSizeBytes  *int64          `db:"file_size_bytes" json:"file_size_bytes,omitempty"`
	ErrorMessage   *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
	StartedAt      *time.Time      `db:"started_at" json:"started_at,omitempty"`
	CompletedAt    *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	ArchivedAt     *time.Time      `db:"archived_at" json:"archived_at,omitempty"`
}

// ExportJobParams stores request-scoped generation options persisted as JSONB.
// Only the keys a renderer needs are validated; everything else is carried
// through as opaque configuration.
type ExportJobParams struct {
	StudentIDs         []string          `json:"studentIds,omitempty"`
	SchoolYearID       string            `json:"schoolYearId,omitempty"`
	TermPeriod         string            `json:"termPeriod,omitempty"`
	ProgramID          *string           `json:"programId,omitempty"`
	SectionID          *string           `json:"sectionId,omitempty"`
	TemplateID         *string           `json:"templateId,omitempty"`
	Format             ExportFormat      `json:"format,omitempty"`
	IncludeExternalIDs bool              `json:"includeExternalIds,omitempty"`
	ExternalSystem     string            `json:"externalSystem,omitempty"`
	Extras             map[string]string `json:"extras,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p ExportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal export job params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ExportJobParams) Scan(value interface{}) error {
	if value == nil {
		*p = ExportJobParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ExportJobParams", value)
	}
	if len(data) == 0 {
		*p = ExportJobParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal export job params: %w", err)
	}
	return nil
}

// ExportJobFilter captures listing criteria for export jobs.
type ExportJobFilter struct {
	Status     ExportStatus
	ExportType ExportType
	SchoolID   string
	Page       int
	PageSize   int
}

// IsTerminal reports whether the status admits no further transitions.
func (s ExportStatus) IsTerminal() bool {
	return s == ExportStatusCompleted || s == ExportStatusFailed
}
