package plan

import (
	"encoding/json"
	"fmt"
	"math"
)

// Money is an amount in cents. It travels over JSON as a decimal number.
type Money int64

func FromFloat(v float64) Money {
	return Money(math.Round(v * 100))
}

func (m Money) Float() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	*m = FromFloat(v)
	return nil
}
