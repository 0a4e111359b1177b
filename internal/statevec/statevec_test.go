package statevec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qzxopt/internal/circuit"
)

func mustParse(t *testing.T, src string) *circuit.Circuit {
	t.Helper()
	c, err := circuit.ParseQASM(src)
	require.NoError(t, err)
	return c
}

func TestBellState(t *testing.T) {
	c := circuit.New(2)
	c.AddGate("H", 0)
	c.AddGate("CX", 1, 0)

	s, err := Simulate(c)
	require.NoError(t, err)

	amp := 1 / math.Sqrt2
	assert.InDelta(t, amp, real(s.Amplitudes[0]), 1e-12)
	assert.InDelta(t, 0, real(s.Amplitudes[1]), 1e-12)
	assert.InDelta(t, 0, real(s.Amplitudes[2]), 1e-12)
	assert.InDelta(t, amp, real(s.Amplitudes[3]), 1e-12)

	probs := s.Probabilities()
	require.Len(t, probs, 2)
	for q, p := range probs {
		assert.InDelta(t, 0.5, p.Prob0, 1e-12, "qubit %d", q)
		assert.InDelta(t, 0.5, p.Prob1, 1e-12, "qubit %d", q)
	}
}

func TestToffoliTruthTable(t *testing.T) {
	c := circuit.New(3)
	c.AddMultiControlGate("CCX", 2, []int{0, 1})
	for in := range 8 {
		s := Basis(3, in)
		require.NoError(t, s.Run(c))
		want := in
		if in&0b011 == 0b011 {
			want ^= 0b100
		}
		assert.InDelta(t, 1, real(s.Amplitudes[want]), 1e-12, "input %03b", in)
	}
}

func TestSwap(t *testing.T) {
	c := circuit.New(2)
	c.AddGate("SWAP", 1, 0)
	s := Basis(2, 0b01)
	require.NoError(t, s.Run(c))
	assert.InDelta(t, 1, real(s.Amplitudes[0b10]), 1e-12)
}

func TestNonUnitaryRejected(t *testing.T) {
	c := circuit.New(1)
	c.AddGate("H", 0)
	c.AddMeasure(0, 0)
	_, err := Simulate(c)
	require.ErrorIs(t, err, ErrNotUnitary)

	c = circuit.New(1)
	c.AddReset(0)
	_, err = Simulate(c)
	require.ErrorIs(t, err, ErrNotUnitary)
}

func TestUnknownGate(t *testing.T) {
	c := circuit.New(1)
	c.AddGate("FOO", 0)
	_, err := Simulate(c)
	require.ErrorIs(t, err, ErrUnsupportedGate)
}

func TestEquivalentIdentities(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{
			name: "hzh is x",
			a:    "qreg q[1];\nh q[0];\nz q[0];\nh q[0];",
			b:    "qreg q[1];\nx q[0];",
			want: true,
		},
		{
			name: "t t is s",
			a:    "qreg q[1];\nt q[0];\nt q[0];",
			b:    "qreg q[1];\ns q[0];",
			want: true,
		},
		{
			name: "rz differs from p by global phase",
			a:    "qreg q[1];\nrz(pi/3) q[0];",
			b:    "qreg q[1];\np(pi/3) q[0];",
			want: true,
		},
		{
			name: "cx is h cz h",
			a:    "qreg q[2];\ncx q[0], q[1];",
			b:    "qreg q[2];\nh q[1];\ncz q[0], q[1];\nh q[1];",
			want: true,
		},
		{
			name: "cx direction matters",
			a:    "qreg q[2];\ncx q[0], q[1];",
			b:    "qreg q[2];\ncx q[1], q[0];",
			want: false,
		},
		{
			name: "swap is three cx",
			a:    "qreg q[2];\nswap q[0], q[1];",
			b:    "qreg q[2];\ncx q[0], q[1];\ncx q[1], q[0];\ncx q[0], q[1];",
			want: true,
		},
		{
			name: "s and sdg differ",
			a:    "qreg q[1];\ns q[0];",
			b:    "qreg q[1];\nsdg q[0];",
			want: false,
		},
		{
			name: "sx squared is x",
			a:    "qreg q[1];\nsx q[0];\nsx q[0];",
			b:    "qreg q[1];\nx q[0];",
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustParse(t, "OPENQASM 2.0;\n"+tt.a)
			b := mustParse(t, "OPENQASM 2.0;\n"+tt.b)
			got, err := Equivalent(a, b, 8, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEquivalentWidensRegister(t *testing.T) {
	a := circuit.New(1)
	a.AddGate("X", 0)
	b := circuit.New(3)
	b.AddGate("X", 0)
	ok, err := Equivalent(a, b, 8, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEquivalentQubitLimit(t *testing.T) {
	a := circuit.New(5)
	_, err := Equivalent(a, a, 4, 0)
	require.ErrorIs(t, err, ErrTooManyQubits)
}
