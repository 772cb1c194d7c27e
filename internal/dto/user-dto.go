package dto

import "github.com/aarondl/null/v8"

type CreateUserDTO struct {
	FullName    string  `json:"fullName" validate:"required,max=255"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       *string `json:"phone" validate:"omitempty,phone"`
	Role        string  `json:"role" validate:"required,role"`
	Password    string  `json:"password" validate:"required,min=8"`
	AssistantID *string `json:"assistantId" validate:"omitempty,uuid"`
}

type UpdateUserDTO struct {
	FullName    null.String `json:"fullName" validate:"omitempty,min=1,max=255"`
	Email       null.String `json:"email" validate:"omitempty,email"`
	Phone       null.String `json:"phone" validate:"omitempty,phone"`
	Role        null.String `json:"role" validate:"omitempty,role"`
	Password    null.String `json:"password" validate:"omitempty,min=8"`
	IsActive    null.Bool   `json:"isActive"`
	AssistantID null.String `json:"assistantId" validate:"omitempty,uuid"`

	Fields map[string]bool `json:"-"`
}

func (d UpdateUserDTO) Has(field string) bool {
	return d.Fields[field]
}
