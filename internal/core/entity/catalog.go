package entity

import (
	"context"

	"paydocs/internal/core/apperror"
)

// Catalog is the base type for reference data (accounts, journals, partners, modes).
type Catalog struct {
	BaseEntity

	// Code is a human-readable identifier, unique per catalog
	Code string `db:"code" json:"code"`

	// Name is the display name
	Name string `db:"name" json:"name"`
}

// NewCatalog creates a new Catalog with generated ID.
func NewCatalog(code, name string) Catalog {
	return Catalog{
		BaseEntity: NewBaseEntity(),
		Code:       code,
		Name:       name,
	}
}

// Validate implements Validatable interface.
func (c *Catalog) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}

// DisplayName returns "[code] name" when a code is set.
func (c *Catalog) DisplayName() string {
	if c.Code == "" {
		return c.Name
	}
	return "[" + c.Code + "] " + c.Name
}
