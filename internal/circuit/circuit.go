// Package circuit holds the gate-level circuit model shared by the importer,
// the extractor and the command line tools, together with its OpenQASM 2.0
// reader and writer.
package circuit

import (
	"slices"
)

// Gate represents a quantum operation placed on the circuit.
type Gate struct {
	Type             string
	Target           int
	Control          int       // -1 if not a controlled gate
	Controls         []int     // Multiple control qubits (CCX, CCZ)
	Step             int       // moment index, assigned by Append
	Params           []float64 // Angles in radians
	IsDagger         bool      // True if gate is the adjoint (SDG, TDG, SXDG)
	IsReset          bool      // True if this is a reset operation
	ClassicalControl int       // -1 if not classically controlled, else classical bit index
	ClassicalValue   int       // value compared against the classical register
	IsNoise          bool      // True if this is a noise annotation
	NoiseType        string    // Type of noise
	Cbit             int       // destination bit for MEASURE, -1 otherwise
}

// NewGate returns a gate with all optional qubit and bit fields unset.
func NewGate(gateType string, target int) Gate {
	return Gate{
		Type:             gateType,
		Target:           target,
		Control:          -1,
		ClassicalControl: -1,
		Cbit:             -1,
	}
}

// Qubits returns every qubit the gate references: controls first, then the target.
// A barrier spanning all qubits returns nil.
func (g Gate) Qubits() []int {
	if g.Target < 0 {
		return nil
	}
	qs := make([]int, 0, 1+len(g.Controls)+1)
	qs = append(qs, g.Controls...)
	if g.Control >= 0 {
		qs = append(qs, g.Control)
	}
	return append(qs, g.Target)
}

// References reports whether the gate touches the given qubit.
func (g Gate) References(qubit int) bool {
	return g.Type == "BARRIER" || slices.Contains(g.Qubits(), qubit)
}

// Arity returns the number of qubits the gate acts on.
func (g Gate) Arity() int { return len(g.Qubits()) }

// Clone returns a deep copy of the gate.
func (g Gate) Clone() Gate {
	g.Controls = slices.Clone(g.Controls)
	g.Params = slices.Clone(g.Params)
	return g
}

// Circuit holds an ordered gate list over NumQubits qubits.
//
// Gates are stored in causal order. Step is derived: it is the ASAP moment of
// each gate, so gates on disjoint qubits may share a step.
type Circuit struct {
	NumQubits int
	NumCbits  int
	Gates     []Gate
	MaxSteps  int

	lastStep []int // per-qubit next free step; rebuilt lazily
}

// New returns an empty circuit over n qubits.
func New(n int) *Circuit {
	return &Circuit{NumQubits: n}
}

// Append adds a gate at the earliest step after every earlier gate on the same
// qubits. Barriers occupy a step of their own across all qubits.
func (c *Circuit) Append(g Gate) {
	c.ensureSteps()
	for _, q := range g.Qubits() {
		if q >= c.NumQubits {
			c.NumQubits = q + 1
		}
	}
	for len(c.lastStep) < c.NumQubits {
		c.lastStep = append(c.lastStep, c.barrierFloor())
	}

	step := 0
	if g.Type == "BARRIER" {
		step = c.MaxSteps
		for i := range c.lastStep {
			c.lastStep[i] = step + 1
		}
	} else {
		for _, q := range g.Qubits() {
			step = max(step, c.lastStep[q])
		}
		if g.ClassicalControl >= 0 {
			// conditionals wait for everything that could write the register
			step = max(step, slices.Max(append([]int{0}, c.lastStep...)))
		}
		for _, q := range g.Qubits() {
			c.lastStep[q] = step + 1
		}
	}
	g.Step = step
	if g.Cbit >= c.NumCbits {
		c.NumCbits = g.Cbit + 1
	}
	if g.ClassicalControl >= c.NumCbits {
		c.NumCbits = g.ClassicalControl + 1
	}
	c.Gates = append(c.Gates, g)
	c.MaxSteps = max(c.MaxSteps, step+1)
}

// barrierFloor returns the first step after the latest barrier.
func (c *Circuit) barrierFloor() int {
	floor := 0
	for _, g := range c.Gates {
		if g.Type == "BARRIER" {
			floor = max(floor, g.Step+1)
		}
	}
	return floor
}

// ensureSteps rebuilds the per-qubit step table when the circuit was built
// as a literal rather than through Append.
func (c *Circuit) ensureSteps() {
	if c.lastStep != nil {
		return
	}
	c.lastStep = make([]int, c.NumQubits)
	for _, g := range c.Gates {
		if g.Type == "BARRIER" {
			for i := range c.lastStep {
				c.lastStep[i] = max(c.lastStep[i], g.Step+1)
			}
			continue
		}
		for _, q := range g.Qubits() {
			for len(c.lastStep) <= q {
				c.lastStep = append(c.lastStep, 0)
			}
			c.lastStep[q] = max(c.lastStep[q], g.Step+1)
		}
		c.MaxSteps = max(c.MaxSteps, g.Step+1)
	}
}

// AddGate appends a gate with an optional control qubit.
func (c *Circuit) AddGate(gateType string, target int, control ...int) {
	g := NewGate(gateType, target)
	if len(control) > 0 {
		g.Control = control[0]
	}
	c.Append(g)
}

// AddParameterizedGate appends a gate with angle parameters and an optional control.
func (c *Circuit) AddParameterizedGate(gateType string, target int, params []float64, control ...int) {
	g := NewGate(gateType, target)
	g.Params = params
	if len(control) > 0 {
		g.Control = control[0]
	}
	c.Append(g)
}

// AddMultiControlGate appends a multi-controlled gate such as CCX.
func (c *Circuit) AddMultiControlGate(gateType string, target int, controls []int) {
	g := NewGate(gateType, target)
	g.Controls = controls
	c.Append(g)
}

// AddDaggerGate appends the adjoint of a single-qubit gate.
func (c *Circuit) AddDaggerGate(gateType string, target int) {
	g := NewGate(gateType, target)
	g.IsDagger = true
	c.Append(g)
}

// AddClassicalControlGate appends a gate conditioned on classical bit cbit being 1.
func (c *Circuit) AddClassicalControlGate(gateType string, target, cbit int) {
	g := NewGate(gateType, target)
	g.ClassicalControl = cbit
	g.ClassicalValue = 1
	c.Append(g)
}

// AddMeasure appends a measurement of qubit into classical bit cbit.
func (c *Circuit) AddMeasure(qubit, cbit int) {
	g := NewGate("MEASURE", qubit)
	g.Cbit = cbit
	c.Append(g)
}

// AddReset appends a reset of the target qubit.
func (c *Circuit) AddReset(target int) {
	g := NewGate("RESET", target)
	g.IsReset = true
	c.Append(g)
}

// AddNoise appends a noise annotation.
func (c *Circuit) AddNoise(target int, noiseType string, params ...float64) {
	g := NewGate("NOISE", target)
	g.IsNoise = true
	g.NoiseType = noiseType
	g.Params = params
	c.Append(g)
}

// AddBarrier appends a barrier spanning all qubits.
func (c *Circuit) AddBarrier() {
	g := NewGate("BARRIER", -1)
	c.Append(g)
}

// Clone returns a deep copy of the circuit.
func (c *Circuit) Clone() *Circuit {
	out := &Circuit{
		NumQubits: c.NumQubits,
		NumCbits:  c.NumCbits,
		MaxSteps:  c.MaxSteps,
		Gates:     make([]Gate, len(c.Gates)),
	}
	for i, g := range c.Gates {
		out.Gates[i] = g.Clone()
	}
	return out
}

// GetGateAt returns the gate at the given step and qubit, or nil.
func (c *Circuit) GetGateAt(step, qubit int) *Gate {
	for i := range c.Gates {
		g := &c.Gates[i]
		if g.Step == step && g.References(qubit) {
			return g
		}
	}
	return nil
}

// GatesAtStep returns the gates placed at a step, in circuit order.
func (c *Circuit) GatesAtStep(step int) []Gate {
	var out []Gate
	for _, g := range c.Gates {
		if g.Step == step {
			out = append(out, g)
		}
	}
	return out
}
