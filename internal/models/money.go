package models

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places every stored amount keeps.
// Derived metrics are summed in decimal and only the columns are float64.
const MoneyPlaces = 8

// RoundMoney quantizes f to MoneyPlaces decimal places.
func RoundMoney(f float64) float64 {
	v, _ := decimal.NewFromFloat(f).Round(MoneyPlaces).Float64()
	return v
}
