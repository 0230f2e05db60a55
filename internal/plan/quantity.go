package plan

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Quantity is a 256-bit unsigned integer with a TOML text form. It accepts
// decimal ("100000000") and 0x-prefixed hexadecimal ("0x5f5e100") input and
// always serializes as decimal.
type Quantity struct {
	uint256.Int
}

// NewQuantity returns a Quantity holding v.
func NewQuantity(v uint64) *Quantity {
	q := &Quantity{}
	q.SetUint64(v)
	return q
}

// ParseQuantity parses a decimal or 0x-hex string.
func ParseQuantity(s string) (*Quantity, error) {
	q := &Quantity{}
	if err := q.UnmarshalText([]byte(s)); err != nil {
		return nil, err
	}
	return q, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *Quantity) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		return fmt.Errorf("empty quantity")
	}
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		err = q.SetFromHex("0x" + s[2:])
	} else {
		err = q.SetFromDecimal(s)
	}
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (q Quantity) MarshalText() ([]byte, error) {
	return []byte(q.Dec()), nil
}

// Value returns the underlying 256-bit integer.
func (q *Quantity) Value() *uint256.Int {
	return &q.Int
}
