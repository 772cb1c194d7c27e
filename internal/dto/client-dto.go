package dto

import (
	"github.com/aarondl/null/v8"

	"crm-system/internal/entities"
)

type CreateClientDTO struct {
	FullName       string                 `json:"fullName" validate:"required,max=255"`
	Phone          string                 `json:"phone" validate:"required,phone"`
	SecondaryPhone *string                `json:"secondaryPhone" validate:"omitempty,phone"`
	City           *string                `json:"city" validate:"omitempty,max=100"`
	Address        *string                `json:"address" validate:"omitempty,max=500"`
	Notes          *string                `json:"notes" validate:"omitempty,max=5000"`
	AdditionalData map[string]interface{} `json:"additionalData"`
	Commitments    []entities.Commitment  `json:"commitments"`
}

type UpdateClientDTO struct {
	FullName       null.String            `json:"fullName" validate:"omitempty,min=1,max=255"`
	Phone          null.String            `json:"phone" validate:"omitempty,phone"`
	SecondaryPhone null.String            `json:"secondaryPhone" validate:"omitempty,phone"`
	City           null.String            `json:"city" validate:"omitempty,max=100"`
	Address        null.String            `json:"address" validate:"omitempty,max=500"`
	Notes          null.String            `json:"notes" validate:"omitempty,max=5000"`
	AdditionalData map[string]interface{} `json:"additionalData"`
	Commitments    []entities.Commitment  `json:"commitments"`

	Fields map[string]bool `json:"-"`
}

func (d UpdateClientDTO) Has(field string) bool {
	return d.Fields[field]
}

type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type ClientImportResult struct {
	Imported int              `json:"imported"`
	Skipped  []ImportRowError `json:"skipped"`
}
