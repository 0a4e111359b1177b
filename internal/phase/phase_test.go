package phase

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReduces(t *testing.T) {
	tests := []struct {
		num, den int64
		want     Phase
	}{
		{0, 7, Zero},
		{2, 8, Quarter},
		{-1, 4, ThreeQuarters},
		{5, 4, Quarter},
		{4, 4, Zero},
		{3, -6, Half},
	}
	for _, tt := range tests {
		got := New(tt.num, tt.den)
		if got != tt.want {
			t.Errorf("New(%d, %d) = %v, want %v", tt.num, tt.den, got, tt.want)
		}
	}
}

func TestAddIsExact(t *testing.T) {
	// ¼ + ⅓ = 7/12
	got := Quarter.Add(New(1, 3))
	assert.Equal(t, New(7, 12), got)
	assert.Equal(t, "7/12", got.String())

	// ¾ + ½ wraps to ¼
	assert.Equal(t, Quarter, ThreeQuarters.Add(Half))

	// 1/3 three times is exactly zero, which a float would miss.
	third := New(1, 3)
	assert.True(t, third.Add(third).Add(third).IsZero())
}

func TestAddCheckedBoundsDenominator(t *testing.T) {
	// four coprime denominators close to the parser's recognition limit
	sum := Zero
	for _, d := range []int64{4093, 4091, 4079} {
		var ok bool
		sum, ok = sum.AddChecked(New(1, d))
		require.True(t, ok, "1/%d", d)
	}
	assert.Equal(t, int64(4093*4091*4079), sum.Den())

	_, ok := sum.AddChecked(New(1, 4073))
	assert.False(t, ok)
	assert.Panics(t, func() { sum.Add(New(1, 4073)) })

	// a common denominator past the bound that reduces below it
	big := int64(3) << 37
	got, ok := New(1, big).AddChecked(New(2, big))
	require.True(t, ok)
	assert.Equal(t, New(1, 1<<37), got)
	assert.Equal(t, got, New(1, big).Add(New(2, big)))
}

func TestNegSub(t *testing.T) {
	assert.Equal(t, ThreeQuarters, Quarter.Neg())
	assert.Equal(t, Zero, Zero.Neg())
	assert.Equal(t, New(7, 8), Zero.Sub(Eighth))
	assert.Equal(t, Zero, Half.Sub(Half))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		p                               Phase
		pauli, properClifford, clifford bool
	}{
		{Zero, true, false, true},
		{Half, true, false, true},
		{Quarter, false, true, true},
		{ThreeQuarters, false, true, true},
		{Eighth, false, false, false},
		{New(1, 3), false, false, false},
	}
	for _, tt := range tests {
		if tt.p.IsPauli() != tt.pauli {
			t.Errorf("%v.IsPauli() = %v, want %v", tt.p, !tt.pauli, tt.pauli)
		}
		if tt.p.IsProperClifford() != tt.properClifford {
			t.Errorf("%v.IsProperClifford() = %v, want %v", tt.p, !tt.properClifford, tt.properClifford)
		}
		if tt.p.IsClifford() != tt.clifford {
			t.Errorf("%v.IsClifford() = %v, want %v", tt.p, !tt.clifford, tt.clifford)
		}
	}
}

func TestPiString(t *testing.T) {
	tests := []struct {
		p    Phase
		want string
	}{
		{Zero, "0"},
		{Half, "pi"},
		{Quarter, "pi/2"},
		{ThreeQuarters, "-pi/2"},
		{Eighth, "pi/4"},
		{New(3, 8), "3*pi/4"},
		{New(1, 3), "2*pi/3"},
		{New(5, 6), "-pi/3"},
	}
	for _, tt := range tests {
		if got := tt.p.PiString(); got != tt.want {
			t.Errorf("%v.PiString() = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestRadians(t *testing.T) {
	assert.InDelta(t, math.Pi/2, Quarter.Radians(), 1e-12)
	assert.InDelta(t, -math.Pi/2, ThreeQuarters.Radians(), 1e-12)
	assert.InDelta(t, math.Pi, Half.Radians(), 1e-12)
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Phase
	}{
		{"pi", Half},
		{"PI", Half},
		{"pi/2", Quarter},
		{"-pi/2", ThreeQuarters},
		{"pi/4", Eighth},
		{"2*pi", Zero},
		{"3pi/4", New(3, 8)},
		{" 3 * pi / 4 ", New(3, 8)},
		{"-3*pi/4", New(5, 8)},
		{"0.5*pi", Quarter},
		{"0", Zero},
		{"0.7853981633974483", Eighth},
		{"3.141592653589793", Half},
		{"-1.5707963267948966", ThreeQuarters},
	}
	for _, tt := range tests {
		got, err := Parse(tt.input)
		require.NoError(t, err, "Parse(%q)", tt.input)
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrSyntax)
	_, err = Parse("theta")
	assert.ErrorIs(t, err, ErrSyntax)
	_, err = Parse("pi/0")
	assert.ErrorIs(t, err, ErrSyntax)
	_, err = Parse("1.0")
	assert.ErrorIs(t, err, ErrInexact)
}

func TestFromRadiansRejectsNonFinite(t *testing.T) {
	_, err := FromRadians(math.NaN())
	assert.ErrorIs(t, err, ErrInexact)
	_, err = FromRadians(math.Inf(1))
	assert.ErrorIs(t, err, ErrInexact)
}
