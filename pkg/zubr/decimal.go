package zubr

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

// Decimal is an arbitrary-precision decimal carried on the wire as a
// mantissa/exponent pair, e.g. 1003.8 as {"mantissa":10038,"exponent":-1}.
type Decimal struct {
	decimal.Decimal
}

type wireDecimal struct {
	Mantissa int64 `json:"mantissa"`
	Exponent int32 `json:"exponent"`
}

// NewDecimal wraps a shopspring decimal.
func NewDecimal(d decimal.Decimal) Decimal {
	return Decimal{d}
}

// DecimalFromString parses a decimal string such as "1003.8".
func DecimalFromString(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("zubr: parse decimal: %w", err)
	}
	return Decimal{d}, nil
}

// DecimalFromInt builds a whole-number decimal.
func DecimalFromInt(v int64) Decimal {
	return Decimal{decimal.NewFromInt(v)}
}

// DecimalFromFloat converts a float with the shortest exact representation.
func DecimalFromFloat(v float64) Decimal {
	return Decimal{decimal.NewFromFloat(v)}
}

// MarshalJSON encodes the wire mantissa/exponent object.
func (d Decimal) MarshalJSON() ([]byte, error) {
	coeff := d.Coefficient()
	if !coeff.IsInt64() {
		return nil, fmt.Errorf("zubr: decimal %s: mantissa overflows int64", d)
	}
	return sonic.ConfigFastest.Marshal(wireDecimal{
		Mantissa: coeff.Int64(),
		Exponent: d.Exponent(),
	})
}

// UnmarshalJSON accepts the wire object form as well as plain JSON numbers
// and quoted decimal strings.
func (d *Decimal) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '{' {
		var w wireDecimal
		if err := sonic.ConfigFastest.Unmarshal(b, &w); err != nil {
			return fmt.Errorf("zubr: decode decimal: %w", err)
		}
		d.Decimal = decimal.New(w.Mantissa, w.Exponent)
		return nil
	}
	return d.Decimal.UnmarshalJSON(b)
}
