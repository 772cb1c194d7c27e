package dto

import (
	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
)

type CreateCommentDTO struct {
	Body string `json:"body" validate:"required,max=5000"`
}

type CreateBankDTO struct {
	Name          string          `json:"name" validate:"required,max=255"`
	AnnualRate    decimal.Decimal `json:"annualRate" validate:"gte=0,lte=100"`
	MaxTermMonths int             `json:"maxTermMonths" validate:"gte=1,lte=360"`
	IsActive      *bool           `json:"isActive"`
}

type UpdateBankDTO struct {
	Name          null.String         `json:"name" validate:"omitempty,min=1,max=255"`
	AnnualRate    decimal.NullDecimal `json:"annualRate" validate:"omitempty,gte=0,lte=100"`
	MaxTermMonths null.Int            `json:"maxTermMonths"`
	IsActive      null.Bool           `json:"isActive"`
}

type AttachmentURLDTO struct {
	URL string `json:"url"`
}
