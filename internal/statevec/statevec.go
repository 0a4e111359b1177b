// Package statevec is a small dense state-vector simulator. The optimizer
// uses it to check that a rewritten circuit implements the same unitary as
// the original; it is exponential in the qubit count and meant for a handful
// of qubits.
package statevec

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"qzxopt/internal/circuit"
)

var (
	// ErrNotUnitary is returned for measurements, resets and classically
	// controlled gates, which have no unitary to compare.
	ErrNotUnitary = errors.New("operation is not unitary")

	// ErrUnsupportedGate is returned for gate names the simulator does not know.
	ErrUnsupportedGate = errors.New("gate not supported by the simulator")

	// ErrTooManyQubits is returned when a unitary comparison would be too large.
	ErrTooManyQubits = errors.New("too many qubits to simulate")
)

type Complex = complex128

// Matrix is a single-qubit operator in row-major order.
type Matrix [2][2]Complex

type StateVector struct {
	Amplitudes []Complex
	NumQubits  int
}

// New returns |0...0> on numQubits qubits. Qubit q is bit q of the index.
func New(numQubits int) *StateVector {
	return Basis(numQubits, 0)
}

// Basis returns the computational basis state |index>.
func Basis(numQubits, index int) *StateVector {
	amps := make([]Complex, 1<<numQubits)
	amps[index] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}
}

func (s *StateVector) Clone() *StateVector {
	amps := make([]Complex, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &StateVector{Amplitudes: amps, NumQubits: s.NumQubits}
}

var (
	hFactor = complex(1/math.Sqrt2, 0)
	matH    = Matrix{{hFactor, hFactor}, {hFactor, -hFactor}}
	matX    = Matrix{{0, 1}, {1, 0}}
	matY    = Matrix{{0, -1i}, {1i, 0}}
	matZ    = Matrix{{1, 0}, {0, -1}}
	matSX   = Matrix{{0.5 + 0.5i, 0.5 - 0.5i}, {0.5 - 0.5i, 0.5 + 0.5i}}
)

func phaseMatrix(lambda float64) Matrix {
	return Matrix{{1, 0}, {0, cmplx.Exp(complex(0, lambda))}}
}

func rx(theta float64) Matrix {
	c, s := complex(math.Cos(theta/2), 0), complex(0, -math.Sin(theta/2))
	return Matrix{{c, s}, {s, c}}
}

func ry(theta float64) Matrix {
	c, s := complex(math.Cos(theta/2), 0), complex(math.Sin(theta/2), 0)
	return Matrix{{c, -s}, {s, c}}
}

func rz(theta float64) Matrix {
	p := cmplx.Exp(complex(0, theta/2))
	return Matrix{{cmplx.Conj(p), 0}, {0, p}}
}

func u3(theta, phi, lambda float64) Matrix {
	c, s := math.Cos(theta/2), math.Sin(theta/2)
	return Matrix{
		{complex(c, 0), -cmplx.Exp(complex(0, lambda)) * complex(s, 0)},
		{cmplx.Exp(complex(0, phi)) * complex(s, 0), cmplx.Exp(complex(0, phi+lambda)) * complex(c, 0)},
	}
}

func (m Matrix) dagger() Matrix {
	return Matrix{
		{cmplx.Conj(m[0][0]), cmplx.Conj(m[1][0])},
		{cmplx.Conj(m[0][1]), cmplx.Conj(m[1][1])},
	}
}

// matrixFor returns the single-qubit operator a gate applies to its target.
// Controlled gates use the operator of their uncontrolled base.
func matrixFor(typ string, params []float64, dagger bool) (Matrix, error) {
	p := func(i int) float64 {
		if i < len(params) {
			return params[i]
		}
		return 0
	}
	var m Matrix
	switch typ {
	case "H", "CH":
		m = matH
	case "X", "CX", "CCX":
		m = matX
	case "Y", "CY":
		m = matY
	case "Z", "CZ", "CCZ":
		m = matZ
	case "S":
		m = phaseMatrix(math.Pi / 2)
	case "T":
		m = phaseMatrix(math.Pi / 4)
	case "SX":
		m = matSX
	case "ID", "I":
		m = Matrix{{1, 0}, {0, 1}}
	case "RX", "CRX":
		m = rx(p(0))
	case "RY", "CRY":
		m = ry(p(0))
	case "RZ", "CRZ":
		m = rz(p(0))
	case "P", "U1", "CP", "CU1":
		m = phaseMatrix(p(0))
	case "U2":
		m = u3(math.Pi/2, p(0), p(1))
	case "U3", "U", "CU3":
		m = u3(p(0), p(1), p(2))
	default:
		return Matrix{}, fmt.Errorf("%w: %s", ErrUnsupportedGate, typ)
	}
	if dagger {
		m = m.dagger()
	}
	return m, nil
}

// Apply applies g to the state. Barriers and noise annotations are no-ops.
func (s *StateVector) Apply(g circuit.Gate) error {
	switch {
	case g.Type == "BARRIER" || g.IsNoise:
		return nil
	case g.Type == "MEASURE" || g.IsReset || g.ClassicalControl >= 0:
		return fmt.Errorf("%w: %s", ErrNotUnitary, g.QASMName())
	}
	for _, q := range g.Qubits() {
		if q < 0 || q >= s.NumQubits {
			return fmt.Errorf("%s: qubit %d out of range", g.QASMName(), q)
		}
	}

	controls := append([]int(nil), g.Controls...)
	if g.Control >= 0 {
		controls = append(controls, g.Control)
	}
	if g.Type == "SWAP" || g.Type == "CSWAP" {
		qs := g.Qubits()
		a, b := qs[len(qs)-2], qs[len(qs)-1]
		s.applySwap(controls[:len(controls)-1], a, b)
		return nil
	}
	m, err := matrixFor(g.Type, g.Params, g.IsDagger)
	if err != nil {
		return err
	}
	s.applyControlled(controls, g.Target, m)
	return nil
}

func controlMask(controls []int) int {
	mask := 0
	for _, c := range controls {
		mask |= 1 << c
	}
	return mask
}

func (s *StateVector) applyControlled(controls []int, target int, m Matrix) {
	mask := controlMask(controls)
	bit := 1 << target
	for i := range s.Amplitudes {
		if i&bit != 0 || i&mask != mask {
			continue
		}
		j := i | bit
		a0, a1 := s.Amplitudes[i], s.Amplitudes[j]
		s.Amplitudes[i] = m[0][0]*a0 + m[0][1]*a1
		s.Amplitudes[j] = m[1][0]*a0 + m[1][1]*a1
	}
}

func (s *StateVector) applySwap(controls []int, q1, q2 int) {
	mask := controlMask(controls)
	bit1 := 1 << q1
	bit2 := 1 << q2
	for i := range s.Amplitudes {
		if i&bit1 != 0 && i&bit2 == 0 && i&mask == mask {
			j := (i &^ bit1) | bit2
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

// Run applies every gate of c to s in order.
func (s *StateVector) Run(c *circuit.Circuit) error {
	for i, g := range c.Gates {
		if err := s.Apply(g); err != nil {
			return fmt.Errorf("gate %d: %w", i, err)
		}
	}
	return nil
}

// Simulate runs c from |0...0>.
func Simulate(c *circuit.Circuit) (*StateVector, error) {
	s := New(max(c.NumQubits, 1))
	if err := s.Run(c); err != nil {
		return nil, err
	}
	return s, nil
}

type QubitProbability struct {
	Prob0 float64
	Prob1 float64
}

// Probabilities returns the marginal measurement probabilities per qubit.
func (s *StateVector) Probabilities() []QubitProbability {
	probs := make([]QubitProbability, s.NumQubits)
	for i, a := range s.Amplitudes {
		prob := real(a * cmplx.Conj(a))
		for q := 0; q < s.NumQubits; q++ {
			if i&(1<<q) != 0 {
				probs[q].Prob1 += prob
			} else {
				probs[q].Prob0 += prob
			}
		}
	}
	return probs
}
