// Package fixedpoint converts between human decimal strings and integer
// amounts in a token's smallest unit. All arithmetic is 256-bit integer;
// floats never touch monetary values because rate/fee/decimals compositions
// overflow the 53-bit safe range for high-decimal tokens.
package fixedpoint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/holiman/uint256"
)

// ScaleDecimals is the fixed scale for conversion rates: a rate of 10^18
// means 1:1.
const ScaleDecimals = 18

// Scale is 10^18 as a 256-bit integer.
var Scale = Pow10(ScaleDecimals)

var amountPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Parse converts a decimal string into smallest-unit form at the given
// precision. Fractional digits beyond the precision are truncated, not
// rounded.
func Parse(s string, decimals int) (*uint256.Int, error) {
	if decimals < 0 {
		return nil, fmt.Errorf("negative decimals %d", decimals)
	}
	if !amountPattern.MatchString(s) {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > decimals {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))
	digits := strings.TrimLeft(whole+frac, "0")
	if digits == "" {
		return uint256.NewInt(0), nil
	}
	units, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("amount %q out of range", s)
	}
	return units, nil
}

// Format renders a smallest-unit amount as a decimal string, stripping
// trailing zeros. It inverts Parse for any value representable at the given
// precision.
func Format(units *uint256.Int, decimals int) string {
	if decimals <= 0 {
		return units.Dec()
	}
	pow := Pow10(decimals)
	whole := new(uint256.Int).Div(units, pow)
	frac := new(uint256.Int).Mod(units, pow)
	if frac.IsZero() {
		return whole.Dec()
	}
	digits := frac.Dec()
	if pad := decimals - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	digits = strings.TrimRight(digits, "0")
	return whole.Dec() + "." + digits
}

// Pow10 returns 10^n. Values of n beyond 77 overflow 256 bits and clamp to
// the wrapped result; callers pass token decimals, which are far smaller.
func Pow10(n int) *uint256.Int {
	z := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := 0; i < n; i++ {
		z.Mul(z, ten)
	}
	return z
}
