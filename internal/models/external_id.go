package models

import "time"

// ExternalEntityType names the internal entity kinds that can be
// cross-referenced into external systems.
type ExternalEntityType string

const (
	ExternalEntityStudent    ExternalEntityType = "student"
	ExternalEntitySchool     ExternalEntityType = "school"
	ExternalEntityProgram    ExternalEntityType = "program"
	ExternalEntitySection    ExternalEntityType = "section"
	ExternalEntitySchoolYear ExternalEntityType = "school_year"
	ExternalEntityStaff      ExternalEntityType = "staff"
)

// ExternalIDMapping cross-references an internal entity to an identifier in a
// named external system.
type ExternalIDMapping struct {
	ID             string             `db:"id" json:"id"`
	OrganizationID string             `db:"organization_id" json:"organization_id"`
	EntityType     ExternalEntityType `db:"entity_type" json:"entity_type"`
	EntityID       string             `db:"entity_id" json:"entity_id"`
	ExternalSystem string             `db:"external_system" json:"external_system"`
	ExternalID     string             `db:"external_id" json:"external_id"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
}
