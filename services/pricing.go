package services

import (
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/models"
)

var basisPoints = decimal.NewFromInt(10000)

// PricingPolicy decides discount and tax for a checkout. Amounts are whole currency units.
type PricingPolicy struct {
	TaxRateBps int64
}

type OrderAmounts struct {
	Subtotal int64
	Discount int64
	Tax      int64
	Total    int64
}

func (p PricingPolicy) Compute(items []models.OrderItem) OrderAmounts {
	var subtotal int64
	for _, it := range items {
		subtotal += it.LineTotal
	}
	tax := decimal.NewFromInt(subtotal).
		Mul(decimal.NewFromInt(p.TaxRateBps)).
		Div(basisPoints).
		Round(0).
		IntPart()

	amounts := OrderAmounts{Subtotal: subtotal, Discount: 0, Tax: tax}
	amounts.Total = amounts.Subtotal - amounts.Discount + amounts.Tax
	return amounts
}
