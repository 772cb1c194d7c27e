package seeders

import "github.com/shopspring/decimal"

type bankSeed struct {
	Name          string
	AnnualRate    decimal.Decimal
	MaxTermMonths int
}

var banksData = []bankSeed{
	{Name: "Al Rajhi Bank", AnnualRate: decimal.RequireFromString("4.25"), MaxTermMonths: 60},
	{Name: "Saudi National Bank", AnnualRate: decimal.RequireFromString("4.50"), MaxTermMonths: 60},
	{Name: "Riyad Bank", AnnualRate: decimal.RequireFromString("4.75"), MaxTermMonths: 48},
	{Name: "Bank Albilad", AnnualRate: decimal.RequireFromString("4.95"), MaxTermMonths: 60},
	{Name: "Alinma Bank", AnnualRate: decimal.RequireFromString("5.10"), MaxTermMonths: 72},
}
