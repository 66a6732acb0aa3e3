package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// MaxPrice is the largest price a DECIMAL(5,2) column can hold, in cents.
const MaxPrice Price = 99999

var ErrInvalidPrice = errors.New("invalid price")

// Price is a fixed-point amount in cents. It renders as a two-decimal
// string ("30.00") and accepts either a JSON number or a decimal string.
type Price int64

// Valid reports whether p fits the recipes.price column and is not negative.
func (p Price) Valid() bool {
	return p >= 0 && p <= MaxPrice
}

// ParsePrice parses a decimal string with at most two fraction digits.
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidPrice
	}

	neg := false
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, ErrInvalidPrice
	}
	if !allDigits(whole) || !allDigits(frac) {
		return 0, ErrInvalidPrice
	}
	if len(frac) > 2 {
		// Allow trailing zeros beyond the second digit, reject real precision loss.
		if strings.Trim(frac[2:], "0") != "" {
			return 0, ErrInvalidPrice
		}
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || f < 0 {
		return 0, ErrInvalidPrice
	}
	if w > 1<<40 {
		return 0, ErrInvalidPrice
	}

	cents := w*100 + f
	if neg {
		cents = -cents
	}
	return Price(cents), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String formats the price with exactly two decimals.
func (p Price) String() string {
	v := int64(p)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON renders the price as a decimal string.
func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts 30, 30.5, "30.50".
func (p *Price) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return ErrInvalidPrice
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ErrInvalidPrice
		}
		raw = s
	}
	parsed, err := ParsePrice(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value stores the price as a decimal string for the DECIMAL column.
func (p Price) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan reads a DECIMAL column, which the MySQL driver returns as []byte.
func (p *Price) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		parsed, err := ParsePrice(string(v))
		if err != nil {
			return err
		}
		*p = parsed
	case string:
		parsed, err := ParsePrice(v)
		if err != nil {
			return err
		}
		*p = parsed
	case int64:
		*p = Price(v * 100)
	case float64:
		parsed, err := ParsePrice(strconv.FormatFloat(v, 'f', 2, 64))
		if err != nil {
			return err
		}
		*p = parsed
	default:
		return fmt.Errorf("scan price: unsupported type %T", src)
	}
	return nil
}
