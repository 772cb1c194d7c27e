package entities

import (
	"crm-system/pkg/constants"
	"crm-system/pkg/types"
)

type User struct {
	ID           string         `json:"id" db:"id"`
	FullName     string         `json:"fullName" db:"full_name"`
	Email        string         `json:"email" db:"email"`
	Phone        *string        `json:"phone" db:"phone"`
	Role         constants.Role `json:"role" db:"role"`
	PasswordHash string         `json:"-" db:"password_hash"`
	IsActive     bool           `json:"isActive" db:"is_active"`
	AssistantID  *string        `json:"assistantId" db:"assistant_id"`

	types.BaseEntity
}

type UserRef struct {
	ID       string         `json:"id"`
	FullName string         `json:"fullName"`
	Role     constants.Role `json:"role"`
}
