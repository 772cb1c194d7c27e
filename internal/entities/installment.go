package entities

import (
	"github.com/shopspring/decimal"

	"crm-system/pkg/types"
)

type Obligation struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// InstallmentDetails holds the financing inputs and derived amounts of an INSTALLMENT request.
type InstallmentDetails struct {
	RequestID      string          `json:"requestId" db:"request_id"`
	BankID         *string         `json:"bankId" db:"bank_id"`
	Salary         decimal.Decimal `json:"salary" db:"salary"`
	Obligations    []Obligation    `json:"obligations" db:"obligations"`
	DownPayment    decimal.Decimal `json:"downPayment" db:"down_payment"`
	TermMonths     int             `json:"termMonths" db:"term_months"`
	DeductionRate  decimal.Decimal `json:"deductionRate" db:"deduction_rate"`
	DeductedAmount decimal.Decimal `json:"deductedAmount" db:"deducted_amount"`
	FinalAmount    decimal.Decimal `json:"finalAmount" db:"final_amount"`

	types.BaseEntity
}

// Recalculate derives DeductedAmount and FinalAmount. Both are floored at zero.
//
//	deducted = salary * deductionRate - sum(obligations)
//	final    = price - downPayment
func (d *InstallmentDetails) Recalculate(price decimal.Decimal) {
	total := decimal.Zero
	for _, o := range d.Obligations {
		total = total.Add(o.Amount)
	}

	d.DeductedAmount = nonNegative(d.Salary.Mul(d.DeductionRate).Sub(total)).Round(2)
	d.FinalAmount = nonNegative(price.Sub(d.DownPayment)).Round(2)
}

func nonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
