package kma

import "fmt"

// Rational ...
type Rational struct {
	Nominator   uint64
	Denominator uint64
}

// NewRational ...
func NewRational(nominator uint64, denominator uint64) Rational {
	return Rational{
		Nominator:   nominator,
		Denominator: denominator,
	}
}

// MulUint64 ...
func (r Rational) MulUint64(v uint64) uint64 {
	if r.Denominator == 0 {
		return 0
	}
	return v * r.Nominator / r.Denominator
}

// Float64 returns the value as a float, zero for an empty denominator.
func (r Rational) Float64() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return float64(r.Nominator) / float64(r.Denominator)
}

// Percent formats the value with two decimals, e.g. "87.50%".
func (r Rational) Percent() string {
	if r.Denominator == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", r.Float64()*100)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Nominator, r.Denominator)
}
