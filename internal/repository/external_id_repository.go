package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campusworks/sis-export-api/internal/models"
)

// ExternalIDRepository reads cross-references from internal entities to
// identifiers in named external systems. Consumed when export parameters
// request external id columns.
type ExternalIDRepository struct {
	db *sqlx.DB
}

// NewExternalIDRepository constructs the repository.
func NewExternalIDRepository(db *sqlx.DB) *ExternalIDRepository {
	return &ExternalIDRepository{db: db}
}

// MapForEntities returns entity id -> external id for the given entities in
// the named external system. Entities without a mapping are absent from the
// result.
func (r *ExternalIDRepository) MapForEntities(ctx context.Context, organizationID string, entityType models.ExternalEntityType, entityIDs []string, externalSystem string) (map[string]string, error) {
	if len(entityIDs) == 0 {
		return map[string]string{}, nil
	}
	const query = `SELECT id, organization_id, entity_type, entity_id, external_system, external_id, created_at
FROM external_id_mappings
WHERE organization_id = $1 AND entity_type = $2 AND external_system = $3 AND entity_id = ANY($4)`
	var mappings []models.ExternalIDMapping
	if err := r.db.SelectContext(ctx, &mappings, query, organizationID, entityType, externalSystem, pq.Array(entityIDs)); err != nil {
		return nil, fmt.Errorf("query external id mappings: %w", err)
	}
	result := make(map[string]string, len(mappings))
	for _, m := range mappings {
		result[m.EntityID] = m.ExternalID
	}
	return result, nil
}
