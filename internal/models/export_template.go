package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportTemplate is a named, versioned rendering configuration scoped to one
// organization. Version increments whenever the config changes; archiving is a
// soft delete.
type ExportTemplate struct {
	ID             string         `db:"id" json:"id"`
	OrganizationID string         `db:"organization_id" json:"organization_id"`
	Name           string         `db:"name" json:"name"`
	ExportType     ExportType     `db:"export_type" json:"export_type"`
	Config         TemplateConfig `db:"template_config" json:"template_config"`
	Version        int            `db:"version" json:"version"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
	ArchivedAt     *time.Time     `db:"archived_at" json:"archived_at,omitempty"`
}

// TemplateConfig holds free-form rendering options persisted as JSONB.
type TemplateConfig map[string]interface{}

// Value marshals the config for persistence.
func (c TemplateConfig) Value() (driver.Value, error) {
	if c == nil {
		c = TemplateConfig{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal template config: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB payload into the config map.
func (c *TemplateConfig) Scan(value interface{}) error {
	if value == nil {
		*c = TemplateConfig{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for TemplateConfig", value)
	}
	if len(data) == 0 {
		*c = TemplateConfig{}
		return nil
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("unmarshal template config: %w", err)
	}
	return nil
}
