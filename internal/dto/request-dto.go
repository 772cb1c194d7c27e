package dto

import (
	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
)

type ObligationDTO struct {
	Type   string          `json:"type" validate:"required,max=100"`
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
}

type InstallmentDetailsDTO struct {
	BankID        *string         `json:"bankId" validate:"omitempty,uuid"`
	Salary        decimal.Decimal `json:"salary" validate:"gte=0"`
	Obligations   []ObligationDTO `json:"obligations" validate:"omitempty,dive"`
	DownPayment   decimal.Decimal `json:"downPayment" validate:"gte=0"`
	TermMonths    int             `json:"termMonths" validate:"gte=0,lte=120"`
	DeductionRate decimal.Decimal `json:"deductionRate" validate:"gte=0,lte=1"`
}

type CreateRequestDTO struct {
	ClientID           string                 `json:"clientId" validate:"required,uuid"`
	Title              string                 `json:"title" validate:"required,max=255"`
	Type               string                 `json:"type" validate:"required,request_type"`
	InitialStatus      string                 `json:"initialStatus" validate:"omitempty,request_status"`
	AssignedToID       *string                `json:"assignedToId" validate:"omitempty,uuid"`
	Price              decimal.NullDecimal    `json:"price" validate:"omitempty,gte=0"`
	CustomFields       map[string]interface{} `json:"customFields"`
	InstallmentDetails *InstallmentDetailsDTO `json:"installmentDetails"`
}

// UpdateRequestDTO is a partial update. Fields lists the keys present in the body.
type UpdateRequestDTO struct {
	Title              null.String            `json:"title" validate:"omitempty,min=1,max=255"`
	AssignedToID       null.String            `json:"assignedToId" validate:"omitempty,uuid"`
	Price              decimal.NullDecimal    `json:"price" validate:"omitempty,gte=0"`
	CustomFields       map[string]interface{} `json:"customFields"`
	Archived           null.Bool              `json:"archived"`
	InstallmentDetails *InstallmentDetailsDTO `json:"installmentDetails"`

	Fields map[string]bool `json:"-"`
}

func (d UpdateRequestDTO) Has(field string) bool {
	return d.Fields[field]
}

// MoveRequestDTO accepts the legacy "feedback" key; "comment" wins when both are set.
type MoveRequestDTO struct {
	ToStatus string  `json:"toStatus" validate:"required,request_status"`
	Comment  *string `json:"comment" validate:"omitempty,max=2000"`
	Feedback *string `json:"feedback" validate:"omitempty,max=2000"`
}
