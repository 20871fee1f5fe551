package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Payload is the loosely-typed key/value bag attached to a notification.
// Category-specific fields are extracted where the expected shape is known
// (resolver and eligibility filter), not forced into one rigid schema.
type Payload map[string]any

const payloadUSDValueKey = "usd_value"

// USDValue extracts the trade value in USD, accepting the numeric and string
// encodings that survive a JSON round trip.
func (p Payload) USDValue() (decimal.Decimal, bool) {
	if p == nil {
		return decimal.Zero, false
	}

	raw, ok := p[payloadUSDValueKey]
	if !ok {
		return decimal.Zero, false
	}

	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case decimal.Decimal:
		return v, true
	default:
		return decimal.Zero, false
	}
}

// StringValue returns a string payload field, or "" when absent or not a string.
func (p Payload) StringValue(key string) string {
	if p == nil {
		return ""
	}
	s, _ := p[key].(string)
	return s
}
