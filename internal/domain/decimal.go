package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Decimal is an exact fixed-point amount
type Decimal struct {
	decimal.Decimal
}

// ZeroDecimal returns an exact zero
func ZeroDecimal() Decimal {
	return Decimal{Decimal: decimal.Zero}
}

// NewDecimal parses a decimal string such as "4.99"
func NewDecimal(value string) (Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", value, err)
	}
	return Decimal{Decimal: d}, nil
}

// String renders the amount with at least one fractional digit, "0" becomes "0.0"
func (d Decimal) String() string {
	s := d.Decimal.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// MarshalJSON encodes the amount as a JSON string
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts both JSON numbers and strings
func (d *Decimal) UnmarshalJSON(data []byte) error {
	return d.Decimal.UnmarshalJSON(data)
}

// MarshalBSONValue stores the amount as a string so no precision is lost
func (d Decimal) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(d.String())
}

// UnmarshalBSONValue reads an amount stored by MarshalBSONValue
func (d *Decimal) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	s, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("decimal: cannot decode bson type %s", t)
	}
	parsed, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("decimal: %w", err)
	}
	d.Decimal = parsed
	return nil
}
