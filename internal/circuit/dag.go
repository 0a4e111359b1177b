package circuit

import (
	"slices"
)

// DAGNode represents a gate in the circuit as a node in a DAG.
// Dependencies represent ordering constraints - a gate cannot execute before
// the gates that act on the same qubits earlier in the circuit.
type DAGNode struct {
	Index        int   // position of the gate in Circuit.Gates
	Layer        int   // longest dependency chain ending here
	Dependencies []int // indices of nodes that must execute before this one
}

// DAG is the dependency graph of a circuit. It is derived, read-only data:
// rebuild it after changing the circuit.
type DAG struct {
	Nodes []DAGNode
	gates []Gate
}

// BuildDAG derives the dependency graph of c. Barriers depend on every qubit;
// classically controlled gates depend on every earlier measurement.
func BuildDAG(c *Circuit) *DAG {
	dag := &DAG{
		Nodes: make([]DAGNode, len(c.Gates)),
		gates: c.Gates,
	}
	lastOnQubit := make(map[int]int)
	lastBarrier, lastMeasure := -1, -1

	for i, g := range c.Gates {
		node := DAGNode{Index: i}
		deps := make(map[int]bool)
		if g.Type == "BARRIER" {
			for _, last := range lastOnQubit {
				deps[last] = true
			}
		} else {
			for _, q := range g.Qubits() {
				if last, ok := lastOnQubit[q]; ok {
					deps[last] = true
				}
			}
		}
		if lastBarrier >= 0 {
			deps[lastBarrier] = true
		}
		if g.ClassicalControl >= 0 && lastMeasure >= 0 {
			deps[lastMeasure] = true
		}
		for d := range deps {
			node.Dependencies = append(node.Dependencies, d)
			node.Layer = max(node.Layer, dag.Nodes[d].Layer+1)
		}
		slices.Sort(node.Dependencies)
		dag.Nodes[i] = node

		switch {
		case g.Type == "BARRIER":
			lastBarrier = i
			clear(lastOnQubit)
		case g.Type == "MEASURE":
			lastMeasure = i
		}
		if g.Type != "BARRIER" {
			for _, q := range g.Qubits() {
				lastOnQubit[q] = i
			}
		}
	}
	return dag
}

// Depth returns the number of layers, ignoring barriers and noise annotations.
func (dag *DAG) Depth() int {
	depth := 0
	for _, n := range dag.Nodes {
		g := dag.gates[n.Index]
		if g.Type == "BARRIER" || g.IsNoise {
			continue
		}
		depth = max(depth, n.Layer+1)
	}
	return depth
}

// Layers groups gate indices by layer, preserving circuit order within a layer.
func (dag *DAG) Layers() [][]int {
	var layers [][]int
	for _, n := range dag.Nodes {
		for len(layers) <= n.Layer {
			layers = append(layers, nil)
		}
		layers[n.Layer] = append(layers[n.Layer], n.Index)
	}
	return layers
}

// TopologicalSort returns gate indices in layer order. Any such order is
// equivalent to the original circuit.
func (dag *DAG) TopologicalSort() []int {
	out := make([]int, 0, len(dag.Nodes))
	for _, layer := range dag.Layers() {
		out = append(out, layer...)
	}
	return out
}
