package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/sis-export-api/internal/models"
)

const exportTemplateColumns = `id, organization_id, name, export_type, template_config, version, created_at, updated_at, archived_at`

// ExportTemplateRepository persists versioned rendering templates.
type ExportTemplateRepository struct {
	db *sqlx.DB
}

// NewExportTemplateRepository constructs the repository.
func NewExportTemplateRepository(db *sqlx.DB) *ExportTemplateRepository {
	return &ExportTemplateRepository{db: db}
}

// Create inserts a template at version 1.
func (r *ExportTemplateRepository) Create(ctx context.Context, tpl *models.ExportTemplate) error {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	tpl.Version = 1
	now := time.Now().UTC()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now
	const query = `INSERT INTO export_templates (id, organization_id, name, export_type, template_config, version, created_at, updated_at)
VALUES (:id, :organization_id, :name, :export_type, :template_config, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tpl); err != nil {
		return fmt.Errorf("create export template: %w", err)
	}
	return nil
}

// GetByID returns a template scoped to the organization.
func (r *ExportTemplateRepository) GetByID(ctx context.Context, id, organizationID string) (*models.ExportTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM export_templates WHERE id = $1 AND organization_id = $2`, exportTemplateColumns)
	var tpl models.ExportTemplate
	if err := r.db.GetContext(ctx, &tpl, query, id, organizationID); err != nil {
		return nil, fmt.Errorf("get export template: %w", err)
	}
	return &tpl, nil
}

// List returns non-archived templates for the organization.
func (r *ExportTemplateRepository) List(ctx context.Context, organizationID string) ([]models.ExportTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM export_templates
WHERE organization_id = $1 AND archived_at IS NULL ORDER BY name ASC`, exportTemplateColumns)
	var templates []models.ExportTemplate
	if err := r.db.SelectContext(ctx, &templates, query, organizationID); err != nil {
		return nil, fmt.Errorf("list export templates: %w", err)
	}
	return templates, nil
}

// UpdateConfig replaces the template config and bumps the version.
func (r *ExportTemplateRepository) UpdateConfig(ctx context.Context, id, organizationID string, config models.TemplateConfig) error {
	const query = `UPDATE export_templates SET template_config = $1, version = version + 1, updated_at = $2
WHERE id = $3 AND organization_id = $4 AND archived_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, config, time.Now().UTC(), id, organizationID)
	if err != nil {
		return fmt.Errorf("update export template: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update export template result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("export template %s not found", id)
	}
	return nil
}

// Archive soft-deletes a template.
func (r *ExportTemplateRepository) Archive(ctx context.Context, id, organizationID string) error {
	const query = `UPDATE export_templates SET archived_at = $1, updated_at = $1
WHERE id = $2 AND organization_id = $3 AND archived_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id, organizationID)
	if err != nil {
		return fmt.Errorf("archive export template: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive export template result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("export template %s not found or already archived", id)
	}
	return nil
}
