package circuit

import (
	"cmp"
	"fmt"
)

// Cost is the optimizer's comparison metric for a circuit.
type Cost struct {
	TwoQubit int // gates acting on two or more qubits
	Total    int // all gates except barriers and noise annotations
	Depth    int
}

// Cost computes the circuit's cost metric.
func (c *Circuit) Cost() Cost {
	var cost Cost
	for _, g := range c.Gates {
		if g.Type == "BARRIER" || g.IsNoise {
			continue
		}
		cost.Total++
		if g.Arity() >= 2 {
			cost.TwoQubit++
		}
	}
	cost.Depth = BuildDAG(c).Depth()
	return cost
}

// Compare orders costs by two-qubit count, then total gate count.
// Depth is reported but never decides acceptance.
func (a Cost) Compare(b Cost) int {
	if a.TwoQubit != b.TwoQubit {
		return cmp.Compare(a.TwoQubit, b.TwoQubit)
	}
	return cmp.Compare(a.Total, b.Total)
}

func (a Cost) String() string {
	return fmt.Sprintf("2q=%d total=%d depth=%d", a.TwoQubit, a.Total, a.Depth)
}
