package payments

import "github.com/shopspring/decimal"

var centTolerance = decimal.New(1, -2)

// AmountMatches reports whether paid is within one cent of the order total.
func AmountMatches(orderTotal, paid decimal.Decimal) bool {
	return orderTotal.Sub(paid).Abs().LessThanOrEqual(centTolerance)
}
