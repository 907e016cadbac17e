package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DecimalBounds describes a NUMERIC(MaxDigits, Places) column.
type DecimalBounds struct {
	MaxDigits int
	Places    int
}

// EarningsBounds matches companies.earnings_declared.
var EarningsBounds = DecimalBounds{MaxDigits: 19, Places: 4}

// ParseDecimal reads a JSON number or string into a decimal within bounds.
// The returned message is empty when the value is acceptable.
func ParseDecimal(raw json.RawMessage, bounds DecimalBounds) (decimal.Decimal, string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Decimal{}, MsgRequired
	}
	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Decimal{}, MsgInvalidNum
		}
		text = strings.TrimSpace(s)
	}
	if text == "" {
		return decimal.Decimal{}, MsgInvalidNum
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, MsgInvalidNum
	}
	if msg := checkDigits(d, bounds); msg != "" {
		return decimal.Decimal{}, msg
	}
	return d, ""
}

// checkDigits counts digits the way the value was written, trailing zeros included.
func checkDigits(d decimal.Decimal, bounds DecimalBounds) string {
	coef := d.Coefficient()
	coef.Abs(coef)
	coefDigits := len(coef.String())
	if coef.Sign() == 0 {
		coefDigits = 1
	}
	exp := int(d.Exponent())

	var digits, places int
	if exp >= 0 {
		digits = coefDigits + exp
	} else {
		places = -exp
		digits = coefDigits
		if places > digits {
			digits = places
		}
	}
	whole := digits - places

	switch {
	case digits > bounds.MaxDigits:
		return fmt.Sprintf("Ensure that there are no more than %d digits in total.", bounds.MaxDigits)
	case places > bounds.Places:
		return fmt.Sprintf("Ensure that there are no more than %d decimal places.", bounds.Places)
	case whole > bounds.MaxDigits-bounds.Places:
		return fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", bounds.MaxDigits-bounds.Places)
	}
	return ""
}

// FormatDecimal renders d with the column's fixed number of places.
func FormatDecimal(d decimal.Decimal, bounds DecimalBounds) string {
	return d.StringFixed(int32(bounds.Places))
}
