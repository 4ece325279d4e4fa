package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/campusworks/sis-export-api/internal/models"
	"github.com/campusworks/sis-export-api/pkg/render"
)

// Column layouts for each document family. The compliance layout is fixed by
// the receiving agency and must not be reordered or renamed.
var (
	gradeHeaders = []string{
		"Student ID", "Student Name", "Student Number", "School Year",
		"Term Period", "Program", "Section", "Grade Value", "Status",
	}
	transcriptHeaders = []string{
		"Student ID", "Student Name", "Student Number", "LRN", "School Year",
		"Term Period", "Course Name", "Grade Value", "Credits",
	}
)

const externalIDHeader = "External ID"

type exportDataStore interface {
	ConfirmedGrades(ctx context.Context, organizationID string, params models.ExportJobParams) ([]models.GradeRecord, error)
	FinalizedTranscripts(ctx context.Context, organizationID string, params models.ExportJobParams) ([]models.TranscriptRecord, error)
}

type externalIDStore interface {
	MapForEntities(ctx context.Context, organizationID string, entityType models.ExternalEntityType, entityIDs []string, externalSystem string) (map[string]string, error)
}

// ExportDatasetService assembles the tabular dataset and document title for a
// job before rendering. It owns no job state; it only reads academic records.
type ExportDatasetService struct {
	data        exportDataStore
	externalIDs externalIDStore
	logger      *zap.Logger
}

// NewExportDatasetService constructs the service.
func NewExportDatasetService(data exportDataStore, externalIDs externalIDStore, logger *zap.Logger) *ExportDatasetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportDatasetService{data: data, externalIDs: externalIDs, logger: logger}
}

// Build reads the records matching the job parameters and shapes them into a
// render.Dataset. An empty result set is an error: a document with zero rows
// is never generated. Transcript and report card documents are built from
// confirmed grade records; only compliance exports read finalized transcript
// records.
func (s *ExportDatasetService) Build(ctx context.Context, job *models.ExportJob) (render.Dataset, string, error) {
	switch job.ExportType {
	case models.ExportTypeTranscript:
		return s.buildGrades(ctx, job, "Transcript")
	case models.ExportTypeReportCard:
		return s.buildGrades(ctx, job, "Report Card")
	case models.ExportTypeComplianceExport:
		return s.buildTranscript(ctx, job, "Compliance Export")
	default:
		return render.Dataset{}, "", fmt.Errorf("unsupported export type: %s", job.ExportType)
	}
}

func (s *ExportDatasetService) buildGrades(ctx context.Context, job *models.ExportJob, title string) (render.Dataset, string, error) {
	records, err := s.data.ConfirmedGrades(ctx, job.OrganizationID, job.Parameters)
	if err != nil {
		return render.Dataset{}, "", err
	}
	if len(records) == 0 {
		return render.Dataset{}, "", fmt.Errorf("no confirmed grades for selected scope")
	}

	headers := gradeHeaders
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, map[string]string{
			"Student ID":     rec.StudentID,
			"Student Name":   rec.StudentName,
			"Student Number": rec.StudentNumber,
			"School Year":    rec.SchoolYearName,
			"Term Period":    rec.TermPeriod,
			"Program":        rec.ProgramName,
			"Section":        rec.SectionName,
			"Grade Value":    rec.GradeValue,
			"Status":         string(rec.Status),
		})
	}

	dataset := render.Dataset{Headers: headers, Rows: rows}
	if err := s.appendExternalIDs(ctx, job, &dataset); err != nil {
		return render.Dataset{}, "", err
	}
	return dataset, title, nil
}

func (s *ExportDatasetService) buildTranscript(ctx context.Context, job *models.ExportJob, title string) (render.Dataset, string, error) {
	records, err := s.data.FinalizedTranscripts(ctx, job.OrganizationID, job.Parameters)
	if err != nil {
		return render.Dataset{}, "", err
	}
	if len(records) == 0 {
		return render.Dataset{}, "", fmt.Errorf("no finalized transcript records for selected scope")
	}

	headers := transcriptHeaders
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, map[string]string{
			"Student ID":     rec.StudentID,
			"Student Name":   rec.StudentName,
			"Student Number": rec.StudentNumber,
			"LRN":            rec.LRN,
			"School Year":    rec.SchoolYearName,
			"Term Period":    rec.TermPeriod,
			"Course Name":    rec.CourseName,
			"Grade Value":    rec.GradeValue,
			"Credits":        strconv.FormatFloat(rec.Credits, 'f', -1, 64),
		})
	}

	dataset := render.Dataset{Headers: headers, Rows: rows}
	if err := s.appendExternalIDs(ctx, job, &dataset); err != nil {
		return render.Dataset{}, "", err
	}
	return dataset, title, nil
}

// appendExternalIDs adds an External ID column when the job asks for one.
// Students without a mapping get an empty cell rather than failing the export.
func (s *ExportDatasetService) appendExternalIDs(ctx context.Context, job *models.ExportJob, dataset *render.Dataset) error {
	if !job.Parameters.IncludeExternalIDs || job.Parameters.ExternalSystem == "" {
		return nil
	}

	seen := make(map[string]struct{}, len(dataset.Rows))
	ids := make([]string, 0, len(dataset.Rows))
	for _, row := range dataset.Rows {
		id := row["Student ID"]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	mapping, err := s.externalIDs.MapForEntities(ctx, job.OrganizationID, models.ExternalEntityStudent, ids, job.Parameters.ExternalSystem)
	if err != nil {
		return fmt.Errorf("resolve external ids: %w", err)
	}

	dataset.Headers = append(dataset.Headers, externalIDHeader)
	for _, row := range dataset.Rows {
		row[externalIDHeader] = mapping[row["Student ID"]]
	}

	missing := len(ids) - len(mapping)
	if missing > 0 {
		s.logger.Sugar().Warnw("students missing external id mapping",
			"exportJobId", job.ID,
			"externalSystem", job.Parameters.ExternalSystem,
			"missing", missing)
	}
	return nil
}
