package validation

import (
	"errors"
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Status string          `json:"status" validate:"required,request_status"`
	Type   string          `json:"type" validate:"omitempty,request_type"`
	Phone  null.String     `json:"phone" validate:"omitempty,phone"`
	Price  decimal.Decimal `json:"price" validate:"gte=0"`
}

func TestValidatorCustomRules(t *testing.T) {
	v := New()

	ok := sample{Status: "SOLD", Type: "CASH", Phone: null.StringFrom("+966501234567"), Price: decimal.NewFromInt(10)}
	assert.NoError(t, v.Validate(ok))

	bad := sample{Status: "SHIPPED", Type: "LEASE", Phone: null.StringFrom("call me"), Price: decimal.NewFromInt(-1)}
	err := v.Validate(bad)
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := map[string]string{}
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	assert.Equal(t, map[string]string{
		"status": "request_status",
		"type":   "request_type",
		"phone":  "phone",
		"price":  "gte",
	}, fields)
}

func TestValidatorSkipsNullPhone(t *testing.T) {
	assert.NoError(t, New().Validate(sample{Status: "FOLLOW_UP"}))
}
