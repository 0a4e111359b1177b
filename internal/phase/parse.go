package phase

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrSyntax is returned for text that is not an angle expression.
	ErrSyntax = errors.New("invalid angle expression")

	// ErrInexact is returned when an angle is not recognizably a rational
	// multiple of π. Such angles cannot be carried through a diagram exactly.
	ErrInexact = errors.New("angle is not an exact rational multiple of pi")
)

// Recognition limits for float angles. A float is accepted as n/d turns when
// d <= maxRecognizedDen and the float is within recognizeTolerance of n/d.
const (
	maxRecognizedDen   = 1 << 12
	recognizeTolerance = 1e-9
)

// piExprRegex matches: pi, 2pi, 2*pi, pi/2, 3pi/4, 0.5*pi, -pi, -3*pi/4
var piExprRegex = regexp.MustCompile(`^(-?)(\d*\.?\d*)\s*\*?\s*pi(?:\s*/\s*(\d+))?$`)

// Parse parses an OpenQASM angle expression (radians) into an exact phase.
//
// Pi expressions are converted exactly. Plain numbers are recognized with
// FromRadians.
func Parse(expr string) (Phase, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return Phase{}, ErrSyntax
	}

	if m := piExprRegex.FindStringSubmatch(s); m != nil {
		num, den := int64(1), int64(1)
		if m[2] != "" {
			var ok bool
			num, den, ok = decimal(m[2])
			if !ok {
				return Phase{}, ErrSyntax
			}
		}
		if m[3] != "" {
			d, err := strconv.ParseInt(m[3], 10, 64)
			if err != nil || d == 0 {
				return Phase{}, ErrSyntax
			}
			if d > maxRecognizedDen {
				return Phase{}, ErrInexact
			}
			den *= d
		}
		if m[1] == "-" {
			num = -num
		}
		if 2*den/gcd(abs(num), 2*den) > MaxSumDenominator {
			return Phase{}, ErrInexact
		}
		// coeff·π radians is coeff/2 turns
		return New(num, 2*den), nil
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Phase{}, ErrSyntax
	}
	return FromRadians(val)
}

// FromRadians recognizes rad as an exact rational multiple of π.
func FromRadians(rad float64) (Phase, error) {
	if math.IsNaN(rad) || math.IsInf(rad, 0) {
		return Phase{}, ErrInexact
	}
	t := rad / (2 * math.Pi)
	t -= math.Floor(t)
	n, d := approximate(t, maxRecognizedDen)
	if math.Abs(t-float64(n)/float64(d)) > recognizeTolerance {
		return Phase{}, ErrInexact
	}
	return New(n, d), nil
}

// approximate returns the last continued-fraction convergent of x whose
// denominator does not exceed maxDen.
func approximate(x float64, maxDen int64) (int64, int64) {
	h0, h1 := int64(0), int64(1)
	k0, k1 := int64(1), int64(0)
	f := x
	for range 64 {
		a := int64(math.Floor(f))
		h2 := a*h1 + h0
		k2 := a*k1 + k0
		if k2 > maxDen {
			break
		}
		h0, h1 = h1, h2
		k0, k1 = k1, k2
		frac := f - float64(a)
		if frac < 1e-12 {
			break
		}
		f = 1 / frac
	}
	return h1, k1
}

// decimal parses an unsigned decimal literal ("2", "0.25", ".5", "3.") as an
// exact fraction.
func decimal(s string) (int64, int64, bool) {
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return 0, 0, false
	}
	if len(intPart)+len(fracPart) > 15 {
		return 0, 0, false
	}
	digits := intPart + fracPart
	num, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	den := int64(1)
	for range len(fracPart) {
		den *= 10
	}
	return num, den, true
}
