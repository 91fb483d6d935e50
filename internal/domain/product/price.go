package product

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Price is a non-negative amount in cents.
type Price int64

// priceToken captures a leading minus so "-12.99" and "-$12.99" read as negative.
var priceToken = regexp.MustCompile(`(-?)\$?([0-9]+(?:\.[0-9]+)?)`)

// PriceFromDollars converts a dollar amount, rounding to the nearest cent.
func PriceFromDollars(d float64) (Price, error) {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("price %v is not a number", d)
	}
	if d < 0 {
		return 0, fmt.Errorf("price %.2f is negative", d)
	}
	return Price(math.Round(d * 100)), nil
}

// ParsePrice extracts a positive price from a raw catalog value. Strings such
// as "$1,299.00" or "from 19.99 USD" yield the first numeric token; a negative
// first token or anything without a positive amount reports false.
func ParsePrice(raw any) (Price, bool) {
	var d float64
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		d = v
	case float32:
		d = float64(v)
	case int:
		d = float64(v)
	case int64:
		d = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return ParsePrice(v.String())
		}
		d = f
	case string:
		m := priceToken.FindStringSubmatch(strings.ReplaceAll(v, ",", ""))
		if m == nil || m[1] == "-" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, false
		}
		d = f
	default:
		return 0, false
	}
	if d <= 0 {
		return 0, false
	}
	p, err := PriceFromDollars(d)
	if err != nil || p == 0 {
		return 0, false
	}
	return p, true
}

// Dollars returns the price as a dollar amount.
func (p Price) Dollars() float64 { return float64(p) / 100 }

func (p Price) String() string {
	return fmt.Sprintf("$%d.%02d", int64(p)/100, int64(p)%100)
}
