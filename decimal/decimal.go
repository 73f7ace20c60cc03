// Package decimal implements the arbitrary-precision, fixed-scale decimal
// scalar carried by the DECIMAL4/DECIMAL8/DECIMAL16 wire types. It is backed
// by math/big so that DECIMAL16's 38 digits of precision never overflow a
// machine word.
package decimal

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shredpack/variant/errs"
	"github.com/shredpack/variant/format"
)

// Decimal is an unscaled big.Int paired with a non-negative scale: the
// represented value is Unscaled * 10^-Scale. A Decimal is immutable once
// constructed; every method that would change either field returns a new
// value.
type Decimal struct {
	unscaled *big.Int
	scale    uint8
}

// New builds a Decimal from an unscaled integer and a scale.
func New(unscaled *big.Int, scale uint8) Decimal {
	return Decimal{unscaled: new(big.Int).Set(unscaled), scale: scale}
}

// FromInt64 builds a Decimal representing an exact integer at scale 0.
func FromInt64(v int64) Decimal {
	return Decimal{unscaled: big.NewInt(v), scale: 0}
}

// Unscaled returns the underlying unscaled integer. The returned value must
// not be mutated by the caller.
func (d Decimal) Unscaled() *big.Int { return d.unscaled }

// Scale returns the number of digits to the right of the decimal point.
func (d Decimal) Scale() uint8 { return d.scale }

// Precision returns the number of significant decimal digits in the
// unscaled value (at least 1, even for zero).
func (d Decimal) Precision() int {
	abs := new(big.Int).Abs(d.unscaled)
	if abs.Sign() == 0 {
		return 1
	}
	return len(abs.Text(10))
}

// CheckPrecision reports whether d fits within maxPrecision significant
// digits, mirroring the read-time bound check the reference implementation
// performs before handing a DECIMAL16 value to a caller.
func (d Decimal) CheckPrecision(maxPrecision int) error {
	if d.Precision() > maxPrecision {
		return fmt.Errorf("%w: precision %d exceeds %d", errs.ErrDecimalPrecisionExceeded, d.Precision(), maxPrecision)
	}
	return nil
}

// FitsWidth reports which of DECIMAL4/DECIMAL8/DECIMAL16 is the narrowest
// wire width whose precision bound holds d's digit count: DECIMAL4 up to 9
// digits, DECIMAL8 up to 18, DECIMAL16 up to 38. Only the precision is
// considered; the scale is not (the builder's AppendDecimal also requires
// the scale to be within the chosen width's bound). It returns false if d
// exceeds even DECIMAL16.
func (d Decimal) FitsWidth() (format.PrimitiveType, bool) {
	p := d.Precision()
	switch {
	case p <= format.MaxDecimal4Precision:
		return format.PrimitiveDecimal4, true
	case p <= format.MaxDecimal8Precision:
		return format.PrimitiveDecimal8, true
	case p <= format.MaxDecimal16Precision:
		return format.PrimitiveDecimal16, true
	default:
		return 0, false
	}
}

// Rescale returns d rewritten at newScale, if that can be done without
// losing precision (i.e. newScale >= d.Scale(), or the low-order digits
// being dropped are all zero). ok is false when rescaling would be lossy.
func (d Decimal) Rescale(newScale uint8) (out Decimal, ok bool) {
	if newScale == d.scale {
		return d, true
	}
	if newScale > d.scale {
		diff := int(newScale) - int(d.scale)
		factor := pow10(diff)
		return Decimal{unscaled: new(big.Int).Mul(d.unscaled, factor), scale: newScale}, true
	}

	diff := int(d.scale) - int(newScale)
	factor := pow10(diff)
	q, r := new(big.Int).QuoRem(d.unscaled, factor, new(big.Int))
	if r.Sign() != 0 {
		return Decimal{}, false
	}
	return Decimal{unscaled: q, scale: newScale}, true
}

// Int64 returns the decimal's value at scale 0 as an int64, and whether
// that conversion was exact and representable; when d has a nonzero
// fractional part or does not fit an int64 it returns 0, false. It is used by the
// DECIMAL-to-Integral cast rule, which requires the rescale to be lossless.
func (d Decimal) Int64() (v int64, exact bool) {
	rescaled, ok := d.Rescale(0)
	if !ok {
		return 0, false
	}
	if !rescaled.unscaled.IsInt64() {
		return 0, false
	}
	return rescaled.unscaled.Int64(), true
}

// UnscaledInt64 returns d's unscaled mantissa as an int64, and whether it
// fits. Used when emitting the DECIMAL4/DECIMAL8 wire forms, whose unscaled
// fields are narrow enough that this always succeeds for precisions the
// builder has already chosen those widths for.
func (d Decimal) UnscaledInt64() (v int64, ok bool) {
	if !d.unscaled.IsInt64() {
		return 0, false
	}
	return d.unscaled.Int64(), true
}

// SignedBytes returns the two's-complement, big-endian representation of
// d's unscaled mantissa in exactly width bytes, failing if the value does
// not fit. This is the wire form DECIMAL16 stores (after the builder
// reverses it into the output buffer; see variant.Builder.AppendDecimal).
func (d Decimal) SignedBytes(width int) ([]byte, error) {
	maxVal := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(width*8-1)), big.NewInt(1))
	minVal := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(width*8-1)))
	if d.unscaled.Cmp(maxVal) > 0 || d.unscaled.Cmp(minVal) < 0 {
		return nil, fmt.Errorf("%w: unscaled value out of range for %d-byte signed integer", errs.ErrDecimalPrecisionExceeded, width)
	}

	out := make([]byte, width)
	if d.unscaled.Sign() >= 0 {
		b := d.unscaled.Bytes()
		copy(out[width-len(b):], b)
		return out, nil
	}

	mod := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
	tc := new(big.Int).Add(mod, d.unscaled)
	b := tc.Bytes()
	copy(out[width-len(b):], b)
	return out, nil
}

// String renders d as a plain decimal literal (no exponent notation),
// matching the reference implementation's str(Decimal(...)) output.
func (d Decimal) String() string {
	neg := d.unscaled.Sign() < 0
	digits := new(big.Int).Abs(d.unscaled).Text(10)

	if d.scale == 0 {
		if neg {
			return "-" + digits
		}
		return digits
	}

	scale := int(d.scale)
	for len(digits) <= scale {
		digits = "0" + digits
	}
	intPart := digits[:len(digits)-scale]
	fracPart := digits[len(digits)-scale:]

	out := intPart + "." + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

// Parse interprets s as a plain or exponential decimal literal (e.g.
// "123", "-1.50", "2.5e10"), the same set of forms Python's
// decimal.Decimal(str(...)) constructor accepts from a JSON number token.
// It reports ok=false for anything that isn't a valid decimal literal.
func Parse(s string) (Decimal, bool) {
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if s == "" {
		return Decimal{}, false
	}

	mantissa := s
	exp := 0
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa = s[:i]
		e, err := parseExp(s[i+1:])
		if err != nil {
			return Decimal{}, false
		}
		exp = e
	}

	intPart, fracPart, hasDot := mantissa, "", false
	if i := strings.IndexByte(mantissa, '.'); i >= 0 {
		intPart, fracPart, hasDot = mantissa[:i], mantissa[i+1:], true
	}
	if intPart == "" && fracPart == "" {
		return Decimal{}, false
	}
	if !isDigits(intPart) || (hasDot && !isDigits(fracPart)) {
		return Decimal{}, false
	}

	digits := intPart + fracPart
	scale := len(fracPart) - exp
	if digits == "" {
		digits = "0"
	}

	unscaled, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Decimal{}, false
	}
	if neg {
		unscaled.Neg(unscaled)
	}

	if scale < 0 {
		unscaled.Mul(unscaled, pow10(-scale))
		scale = 0
	}
	if scale > 255 {
		return Decimal{}, false
	}

	return Decimal{unscaled: unscaled, scale: uint8(scale)}, true
}

func parseExp(s string) (int, error) {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg, s = true, s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if !isDigits(s) || s == "" {
		return 0, fmt.Errorf("invalid exponent %q", s)
	}
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

func isDigits(s string) bool {
	if s == "" {
		return true
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
