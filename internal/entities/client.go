package entities

import (
	"github.com/shopspring/decimal"

	"crm-system/pkg/types"
)

// Commitment is an existing financial obligation of a client.
type Commitment struct {
	Type   string          `json:"type"`
	Lender string          `json:"lender,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

type Client struct {
	ID             string                 `json:"id" db:"id"`
	FullName       string                 `json:"fullName" db:"full_name"`
	Phone          string                 `json:"phone" db:"phone"`
	SecondaryPhone *string                `json:"secondaryPhone" db:"secondary_phone"`
	City           *string                `json:"city" db:"city"`
	Address        *string                `json:"address" db:"address"`
	Notes          *string                `json:"notes" db:"notes"`
	AdditionalData map[string]interface{} `json:"additionalData" db:"additional_data"`
	Commitments    []Commitment           `json:"commitments" db:"commitments"`
	CreatedByID    string                 `json:"createdById" db:"created_by_id"`

	types.BaseEntity
}

type ClientRef struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}
