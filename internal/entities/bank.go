package entities

import (
	"github.com/shopspring/decimal"

	"crm-system/pkg/types"
)

type Bank struct {
	ID            string          `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	AnnualRate    decimal.Decimal `json:"annualRate" db:"annual_rate"`
	MaxTermMonths int             `json:"maxTermMonths" db:"max_term_months"`
	IsActive      bool            `json:"isActive" db:"is_active"`

	types.BaseEntity
}
