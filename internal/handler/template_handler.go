package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/sis-export-api/internal/dto"
	"github.com/campusworks/sis-export-api/internal/middleware"
	"github.com/campusworks/sis-export-api/internal/models"
	appErrors "github.com/campusworks/sis-export-api/pkg/errors"
	"github.com/campusworks/sis-export-api/pkg/response"
)

type templateAPI interface {
	Create(ctx context.Context, req dto.CreateTemplateRequest, organizationID string) (*models.ExportTemplate, error)
	Get(ctx context.Context, id, organizationID string) (*models.ExportTemplate, error)
	List(ctx context.Context, organizationID string) ([]models.ExportTemplate, error)
	UpdateConfig(ctx context.Context, id, organizationID string, config models.TemplateConfig) (*models.ExportTemplate, error)
	Archive(ctx context.Context, id, organizationID string) error
}

// TemplateHandler exposes export template management endpoints.
type TemplateHandler struct {
	templates templateAPI
}

// NewTemplateHandler constructs the handler.
func NewTemplateHandler(templates templateAPI) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// Create handles POST /export-templates.
func (h *TemplateHandler) Create(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	tpl, err := h.templates.Create(c.Request.Context(), req, claims.OrganizationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tpl)
}

// List handles GET /export-templates.
func (h *TemplateHandler) List(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	templates, err := h.templates.List(c.Request.Context(), claims.OrganizationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// Get handles GET /export-templates/:id.
func (h *TemplateHandler) Get(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	tpl, err := h.templates.Get(c.Request.Context(), c.Param("id"), claims.OrganizationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// UpdateConfig handles PUT /export-templates/:id.
func (h *TemplateHandler) UpdateConfig(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	tpl, err := h.templates.UpdateConfig(c.Request.Context(), c.Param("id"), claims.OrganizationID, req.Config)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// Archive handles DELETE /export-templates/:id.
func (h *TemplateHandler) Archive(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.templates.Archive(c.Request.Context(), c.Param("id"), claims.OrganizationID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
