package entities

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInstallmentRecalculate(t *testing.T) {
	d := InstallmentDetails{
		Salary:        decimal.NewFromInt(10000),
		DeductionRate: decimal.RequireFromString("0.45"),
		DownPayment:   decimal.NewFromInt(15000),
		Obligations: []Obligation{
			{Type: "car", Amount: decimal.NewFromInt(1200)},
			{Type: "card", Amount: decimal.NewFromInt(300)},
		},
	}

	d.Recalculate(decimal.NewFromInt(95000))

	assert.True(t, decimal.NewFromInt(3000).Equal(d.DeductedAmount), d.DeductedAmount.String())
	assert.True(t, decimal.NewFromInt(80000).Equal(d.FinalAmount), d.FinalAmount.String())
}

func TestInstallmentRecalculateFloorsAtZero(t *testing.T) {
	d := InstallmentDetails{
		Salary:        decimal.NewFromInt(1000),
		DeductionRate: decimal.RequireFromString("0.33"),
		DownPayment:   decimal.NewFromInt(50000),
		Obligations:   []Obligation{{Type: "loan", Amount: decimal.NewFromInt(900)}},
	}

	d.Recalculate(decimal.NewFromInt(20000))

	assert.True(t, d.DeductedAmount.IsZero())
	assert.True(t, d.FinalAmount.IsZero())
}
