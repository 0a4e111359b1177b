// Package phase implements exact spider phases.
//
// A Phase is a rational fraction of a full turn (2π radians), always kept
// reduced and in [0, 1). The zero value is the zero phase.
package phase

import (
	"fmt"
	"math"
	"math/big"
)

// maxDenominator bounds denominators so products in Add cannot overflow int64.
const maxDenominator = 1 << 40

// MaxSumDenominator bounds the denominator of phases that come from parsing or
// from adding two arbitrary phases. Adding a Clifford phase at most quadruples
// a denominator, so phases kept within this bound never exceed maxDenominator.
const MaxSumDenominator = maxDenominator / 4

// Phase is an exact rational multiple of a full turn, reduced modulo one turn.
type Phase struct {
	num int64
	den int64
}

// Common phases.
var (
	Zero          = Phase{}
	Quarter       = New(1, 4) // S
	Half          = New(1, 2) // Z
	ThreeQuarters = New(3, 4) // S†
	Eighth        = New(1, 8) // T
)

// New returns num/den turns reduced modulo one turn. It panics if den is zero.
func New(num, den int64) Phase {
	if den == 0 {
		panic("phase: zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	num %= den
	if num < 0 {
		num += den
	}
	if num == 0 {
		return Phase{}
	}
	g := gcd(num, den)
	num, den = num/g, den/g
	if den > maxDenominator {
		panic(fmt.Sprintf("phase: denominator %d exceeds %d", den, int64(maxDenominator)))
	}
	return Phase{num: num, den: den}
}

// Num returns the reduced numerator.
func (p Phase) Num() int64 { return p.num }

// Den returns the reduced denominator (1 for the zero phase).
func (p Phase) Den() int64 {
	if p.den == 0 {
		return 1
	}
	return p.den
}

// Add returns p+q mod 1. It panics if the common denominator exceeds the
// supported range; use AddChecked for sums of arbitrary phases.
func (p Phase) Add(q Phase) Phase {
	r, ok := p.add(q, maxDenominator)
	if !ok {
		panic(fmt.Sprintf("phase: denominator of %v + %v exceeds %d", p, q, int64(maxDenominator)))
	}
	return r
}

// AddChecked returns p+q mod 1. ok is false when the denominator of the sum
// would exceed MaxSumDenominator.
func (p Phase) AddChecked(q Phase) (sum Phase, ok bool) {
	return p.add(q, MaxSumDenominator)
}

func (p Phase) add(q Phase, limit int64) (Phase, bool) {
	if p.IsZero() {
		return q, q.den <= limit
	}
	if q.IsZero() {
		return p, p.den <= limit
	}
	g := gcd(p.den, q.den)
	a := p.den / g
	if a > limit/q.den {
		// the common denominator may still reduce below the limit
		if r, ok := bigSum(p, q); ok && r.den <= limit {
			return r, true
		}
		return Phase{}, false
	}
	l := a * q.den
	r := New(p.num*(l/p.den)+q.num*(l/q.den), l)
	return r, r.den <= limit
}

// Neg returns -p mod 1.
func (p Phase) Neg() Phase {
	if p.IsZero() {
		return p
	}
	return Phase{num: p.den - p.num, den: p.den}
}

// Sub returns p-q mod 1.
func (p Phase) Sub(q Phase) Phase { return p.Add(q.Neg()) }

// IsZero reports whether p is the zero phase.
func (p Phase) IsZero() bool { return p.num == 0 }

// IsPauli reports whether p is 0 or ½ turn.
func (p Phase) IsPauli() bool { return p.IsZero() || p == Half }

// IsProperClifford reports whether p is ¼ or ¾ turn.
func (p Phase) IsProperClifford() bool { return p == Quarter || p == ThreeQuarters }

// IsClifford reports whether p is a multiple of ¼ turn.
func (p Phase) IsClifford() bool { return 4%p.Den() == 0 }

// Turns returns p as a float fraction of a turn. Only for display and
// simulation; never feed the result back into a Phase.
func (p Phase) Turns() float64 {
	return float64(p.num) / float64(p.Den())
}

// Radians returns the phase angle in (-π, π].
func (p Phase) Radians() float64 {
	t := p.Turns()
	if t > 0.5 {
		t -= 1
	}
	return 2 * math.Pi * t
}

// String renders the phase as a fraction of a turn, e.g. "1/4".
func (p Phase) String() string {
	if p.IsZero() {
		return "0"
	}
	return fmt.Sprintf("%d/%d", p.num, p.den)
}

// PiString renders the phase as an angle in multiples of π in (-π, π],
// the notation OpenQASM uses: ¼ turn is "pi/2", ¾ turn is "-pi/2".
func (p Phase) PiString() string {
	if p.IsZero() {
		return "0"
	}
	// angle = 2π·num/den = (2num/den)π, shifted into (-π, π]
	a, b := 2*p.num, p.den
	if 2*p.num > p.den {
		a -= 2 * p.den
	}
	g := gcd(abs(a), b)
	a, b = a/g, b/g
	sign := ""
	if a < 0 {
		sign = "-"
		a = -a
	}
	switch {
	case b == 1 && a == 1:
		return sign + "pi"
	case b == 1:
		return fmt.Sprintf("%s%d*pi", sign, a)
	case a == 1:
		return fmt.Sprintf("%spi/%d", sign, b)
	default:
		return fmt.Sprintf("%s%d*pi/%d", sign, a, b)
	}
}

// bigSum adds p and q without overflow. ok is false when the reduced sum
// does not fit a Phase.
func bigSum(p, q Phase) (Phase, bool) {
	r := new(big.Rat).Add(big.NewRat(p.num, p.den), big.NewRat(q.num, q.den))
	den := r.Denom()
	if !den.IsInt64() || den.Int64() > maxDenominator {
		return Phase{}, false
	}
	num := new(big.Int).Mod(r.Num(), den)
	return New(num.Int64(), den.Int64()), true
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}
