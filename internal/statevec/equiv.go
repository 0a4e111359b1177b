package statevec

import (
	"fmt"
	"math/cmplx"

	"qzxopt/internal/circuit"
)

// DefaultTolerance is the per-amplitude tolerance used by Equivalent.
const DefaultTolerance = 1e-9

// Unitary returns the columns of the unitary implemented by c: column k is
// the state reached from the basis state |k>.
func Unitary(c *circuit.Circuit, maxQubits int) ([][]Complex, error) {
	n := max(c.NumQubits, 1)
	if maxQubits > 0 && n > maxQubits {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyQubits, n, maxQubits)
	}
	cols := make([][]Complex, 1<<n)
	for k := range cols {
		s := Basis(n, k)
		if err := s.Run(c); err != nil {
			return nil, err
		}
		cols[k] = s.Amplitudes
	}
	return cols, nil
}

// Equivalent reports whether a and b implement the same unitary up to a
// global phase. Both circuits are simulated on the larger register.
func Equivalent(a, b *circuit.Circuit, maxQubits int, tol float64) (bool, error) {
	n := max(a.NumQubits, b.NumQubits)
	a, b = widen(a, n), widen(b, n)
	ua, err := Unitary(a, maxQubits)
	if err != nil {
		return false, fmt.Errorf("first circuit: %w", err)
	}
	ub, err := Unitary(b, maxQubits)
	if err != nil {
		return false, fmt.Errorf("second circuit: %w", err)
	}
	if tol <= 0 {
		tol = DefaultTolerance
	}

	// The global phase is fixed by the largest entry of the first column.
	var best int
	for i, v := range ua[0] {
		if cmplx.Abs(v) > cmplx.Abs(ua[0][best]) {
			best = i
		}
	}
	if cmplx.Abs(ub[0][best]) < tol {
		return false, nil
	}
	g := ua[0][best] / ub[0][best]
	if abs := cmplx.Abs(g); abs < 1-1e-6 || abs > 1+1e-6 {
		return false, nil
	}
	for k := range ua {
		for i := range ua[k] {
			if cmplx.Abs(ua[k][i]-g*ub[k][i]) > tol {
				return false, nil
			}
		}
	}
	return true, nil
}

func widen(c *circuit.Circuit, n int) *circuit.Circuit {
	if c.NumQubits == n {
		return c
	}
	w := c.Clone()
	w.NumQubits = n
	return w
}
