package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusworks/sis-export-api/internal/dto"
	"github.com/campusworks/sis-export-api/internal/middleware"
	"github.com/campusworks/sis-export-api/internal/models"
	"github.com/campusworks/sis-export-api/internal/service"
	appErrors "github.com/campusworks/sis-export-api/pkg/errors"
)

type stubJobAPI struct {
	created    *dto.ExportJobResponse
	createErr  error
	got        *dto.ExportJobResponse
	getErr     error
	triggered  []string
	triggerErr error
	listedOrg  string
	download   *service.ExportDownload
	processErr error
}

func (s *stubJobAPI) Create(_ context.Context, req dto.CreateExportJobRequest, requesterID, organizationID string) (*dto.ExportJobResponse, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = &dto.ExportJobResponse{
		ID:             "job-1",
		OrganizationID: organizationID,
		RequestedBy:    requesterID,
		ExportType:     req.ExportType,
		Parameters:     req.Parameters,
		Status:         models.ExportStatusPending,
	}
	return s.created, nil
}

func (s *stubJobAPI) Get(_ context.Context, id, _ string) (*dto.ExportJobResponse, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.got != nil {
		return s.got, nil
	}
	return &dto.ExportJobResponse{ID: id}, nil
}

func (s *stubJobAPI) List(_ context.Context, organizationID string, _ dto.ListExportJobsQuery) ([]dto.ExportJobResponse, *models.Pagination, error) {
	s.listedOrg = organizationID
	return []dto.ExportJobResponse{{ID: "job-1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (s *stubJobAPI) Archive(_ context.Context, _, _ string) error { return nil }

func (s *stubJobAPI) Regenerate(_ context.Context, originalID, requesterID, _ string) (*dto.ExportJobResponse, error) {
	return &dto.ExportJobResponse{ID: "regen-" + originalID, RequestedBy: requesterID, Status: models.ExportStatusPending}, nil
}

func (s *stubJobAPI) Trigger(jobID, _ string) error {
	if s.triggerErr != nil {
		return s.triggerErr
	}
	s.triggered = append(s.triggered, jobID)
	return nil
}

func (s *stubJobAPI) GetDownloadURL(_ context.Context, id, _ string, _ time.Duration) (*dto.DownloadURLResponse, error) {
	return &dto.DownloadURLResponse{URL: "/exports/download/token-" + id}, nil
}

func (s *stubJobAPI) ResolveDownload(_ context.Context, _ string) (*service.ExportDownload, error) {
	if s.download == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}
	return s.download, nil
}

type stubProcessorAPI struct {
	result *service.ProcessResult
	err    error
	jobID  string
}

func (s *stubProcessorAPI) Process(_ context.Context, jobID, _ string) (*service.ProcessResult, error) {
	s.jobID = jobID
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func testClaims(role models.Role) *models.JWTClaims {
	return &models.JWTClaims{ProfileID: "user-1", OrganizationID: "org-1", Role: role}
}

func newExportRouter(api *stubJobAPI, processor *stubProcessorAPI, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewExportHandler(api, processor, zap.NewNop())

	router := gin.New()
	authed := router.Group("/", func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, claims)
		c.Next()
	})
	authed.POST("/exports", h.Create)
	authed.GET("/exports", h.List)
	authed.GET("/exports/:id", h.Get)
	authed.POST("/exports/:id/archive", h.Archive)
	authed.POST("/exports/:id/regenerate", h.Regenerate)
	authed.POST("/exports/:id/trigger", h.Trigger)
	authed.POST("/exports/process", h.Process)
	authed.GET("/exports/:id/download-url", h.DownloadURL)
	router.GET("/exports/download/:token", h.Download)
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateExportJobDispatchesTrigger(t *testing.T) {
	api := &stubJobAPI{}
	router := newExportRouter(api, &stubProcessorAPI{}, testClaims(models.RoleAdmin))

	rec := doJSON(router, http.MethodPost, "/exports", dto.CreateExportJobRequest{
		ExportType: models.ExportTypeTranscript,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, []string{"job-1"}, api.triggered)
}

func TestCreateExportJobSucceedsWhenTriggerDispatchFails(t *testing.T) {
	api := &stubJobAPI{triggerErr: fmt.Errorf("buffer full")}
	router := newExportRouter(api, &stubProcessorAPI{}, testClaims(models.RoleAdmin))

	rec := doJSON(router, http.MethodPost, "/exports", dto.CreateExportJobRequest{
		ExportType: models.ExportTypeTranscript,
	})
	// the job stays pending for the sweep; creation still reports success
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateExportJobRegistrarLimitedToCompliance(t *testing.T) {
	api := &stubJobAPI{}
	router := newExportRouter(api, &stubProcessorAPI{}, testClaims(models.RoleRegistrar))

	rec := doJSON(router, http.MethodPost, "/exports", dto.CreateExportJobRequest{
		ExportType: models.ExportTypeTranscript,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(router, http.MethodPost, "/exports", dto.CreateExportJobRequest{
		ExportType: models.ExportTypeComplianceExport,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestListScopesByRole(t *testing.T) {
	api := &stubJobAPI{}
	router := newExportRouter(api, &stubProcessorAPI{}, testClaims(models.RoleAdmin))

	rec := doJSON(router, http.MethodGet, "/exports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "org-1", api.listedOrg)

	// superadmins list across organizations, same as the other job operations
	api = &stubJobAPI{listedOrg: "sentinel"}
	router = newExportRouter(api, &stubProcessorAPI{}, testClaims(models.RoleSuperAdmin))

	rec = doJSON(router, http.MethodGet, "/exports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, api.listedOrg)
}

func TestProcessEndpointResponseShape(t *testing.T) {
	processor := &stubProcessorAPI{result: &service.ProcessResult{
		FilePath:      "exports/org-1/null/job-1/transcript_job-1.pdf",
		FileSizeBytes: 2048,
	}}
	router := newExportRouter(&stubJobAPI{}, processor, testClaims(models.RoleAdmin))

	rec := doJSON(router, http.MethodPost, "/exports/process", dto.ProcessExportRequest{ExportJobID: "job-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "job-1", processor.jobID)

	var envelope struct {
		Data dto.ProcessExportResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Data.Success)
	require.Equal(t, "job-1", envelope.Data.ExportJobID)
	require.Equal(t, "exports/org-1/null/job-1/transcript_job-1.pdf", envelope.Data.FilePath)
	require.Equal(t, int64(2048), envelope.Data.FileSizeBytes)
	require.Contains(t, rec.Body.String(), `"file_size_bytes"`)
}

func TestProcessEndpointMapsNonPendingToBadRequest(t *testing.T) {
	processor := &stubProcessorAPI{err: appErrors.Clone(appErrors.ErrValidation, "export job is not pending (current status: completed)")}
	router := newExportRouter(&stubJobAPI{}, processor, testClaims(models.RoleAdmin))

	rec := doJSON(router, http.MethodPost, "/exports/process", dto.ProcessExportRequest{ExportJobID: "job-1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "current status: completed")
}

func TestProcessEndpointRequiresJobID(t *testing.T) {
	router := newExportRouter(&stubJobAPI{}, &stubProcessorAPI{}, testClaims(models.RoleAdmin))

	rec := doJSON(router, http.MethodPost, "/exports/process", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerEndpointAccepted(t *testing.T) {
	api := &stubJobAPI{}
	router := newExportRouter(api, &stubProcessorAPI{}, testClaims(models.RoleAdmin))

	rec := doJSON(router, http.MethodPost, "/exports/job-1/trigger", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, []string{"job-1"}, api.triggered)
}

func TestDownloadStreamsAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript_job-1.csv")
	require.NoError(t, os.WriteFile(path, []byte("Student ID,Student Name\ns1,Ana Cruz\n"), 0o644))
	file, err := os.Open(path)
	require.NoError(t, err)

	api := &stubJobAPI{download: &service.ExportDownload{
		File:        file,
		FileName:    "transcript_job-1.csv",
		ContentType: "text/csv",
	}}
	router := newExportRouter(api, &stubProcessorAPI{}, testClaims(models.RoleAdmin))

	rec := doJSON(router, http.MethodGet, "/exports/download/some-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "transcript_job-1.csv")
	require.Contains(t, rec.Body.String(), "Ana Cruz")
}

func TestDownloadInvalidTokenUnauthorized(t *testing.T) {
	router := newExportRouter(&stubJobAPI{}, &stubProcessorAPI{}, testClaims(models.RoleAdmin))

	rec := doJSON(router, http.MethodGet, "/exports/download/bad", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
