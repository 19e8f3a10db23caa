// Package format renders amounts for presentation. Rounding happens here and
// nowhere in the cost model.
package format

import (
	"strings"

	"github.com/iwvelando/hiring-cost/pkg/constants"
	"github.com/shopspring/decimal"
)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(constants.CurrencyPlaces)
	if d.IsNegative() {
		return "-$" + group(d.Abs().StringFixed(constants.CurrencyPlaces))
	}
	return "$" + group(d.StringFixed(constants.CurrencyPlaces))
}

// Plain returns the amount rounded to cents without symbol or separators (e.g., "1234.56"),
// suitable for CSV cells.
func Plain(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(constants.CurrencyPlaces)
}

// Whole returns the amount rounded to the nearest whole unit (e.g., "1235").
func Whole(amount float64) string {
	return decimal.NewFromFloat(amount).Round(0).String()
}

func group(fixed string) string {
	parts := strings.SplitN(fixed, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return intPart + "." + decPart
}
