package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusworks/sis-export-api/internal/dto"
	"github.com/campusworks/sis-export-api/internal/models"
	appErrors "github.com/campusworks/sis-export-api/pkg/errors"
)

type templateStore interface {
	Create(ctx context.Context, tpl *models.ExportTemplate) error
	GetByID(ctx context.Context, id, organizationID string) (*models.ExportTemplate, error)
	List(ctx context.Context, organizationID string) ([]models.ExportTemplate, error)
	UpdateConfig(ctx context.Context, id, organizationID string, config models.TemplateConfig) error
	Archive(ctx context.Context, id, organizationID string) error
}

// TemplateService manages versioned export templates per organization.
type TemplateService struct {
	repo   templateStore
	logger *zap.Logger
}

// NewTemplateService constructs the service.
func NewTemplateService(repo templateStore, logger *zap.Logger) *TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{repo: repo, logger: logger}
}

// Create stores a new template at version 1.
func (s *TemplateService) Create(ctx context.Context, req dto.CreateTemplateRequest, organizationID string) (*models.ExportTemplate, error) {
	if !isValidExportType(req.ExportType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export type: %s", req.ExportType))
	}
	tpl := &models.ExportTemplate{
		OrganizationID: organizationID,
		Name:           req.Name,
		ExportType:     req.ExportType,
		Config:         req.Config,
	}
	if tpl.Config == nil {
		tpl.Config = models.TemplateConfig{}
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create export template")
	}
	s.logger.Sugar().Infow("export template created", "templateId", tpl.ID, "name", tpl.Name)
	return tpl, nil
}

// Get returns one template scoped to the organization.
func (s *TemplateService) Get(ctx context.Context, id, organizationID string) (*models.ExportTemplate, error) {
	tpl, err := s.repo.GetByID(ctx, id, organizationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load export template")
	}
	if tpl.ArchivedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export template not found")
	}
	return tpl, nil
}

// List returns non-archived templates for the organization.
func (s *TemplateService) List(ctx context.Context, organizationID string) ([]models.ExportTemplate, error) {
	templates, err := s.repo.List(ctx, organizationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list export templates")
	}
	return templates, nil
}

// UpdateConfig replaces the config and bumps the version, returning the fresh
// row.
func (s *TemplateService) UpdateConfig(ctx context.Context, id, organizationID string, config models.TemplateConfig) (*models.ExportTemplate, error) {
	if _, err := s.Get(ctx, id, organizationID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateConfig(ctx, id, organizationID, config); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export template not found")
	}
	return s.Get(ctx, id, organizationID)
}

// Archive soft-deletes a template.
func (s *TemplateService) Archive(ctx context.Context, id, organizationID string) error {
	if err := s.repo.Archive(ctx, id, organizationID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export template not found or already archived")
	}
	return nil
}
