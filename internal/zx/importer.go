package zx

import (
	"fmt"
	"slices"

	"qzxopt/internal/circuit"
	"qzxopt/internal/phase"
)

type opKind uint8

const (
	opZ  opKind = iota // Z spider with phase
	opX                // X spider with phase
	opH                // hadamard on the wire
	opCX               // q controls q2
	opCZ
)

// primOp is one primitive the importer knows how to draw.
type primOp struct {
	kind  opKind
	q, q2 int
	p     phase.Phase
}

// paramCount lists the parameterized gates; every other gate takes none.
var paramCount = map[string]int{
	"RZ": 1, "P": 1, "U1": 1, "RX": 1, "RY": 1,
	"U2": 2, "U3": 3, "U": 3,
	"CP": 1, "CU1": 1, "CRZ": 1,
}

// Supported reports whether the importer can translate g exactly.
func Supported(g circuit.Gate) bool {
	_, err := decompose(g)
	return err == nil
}

// decompose lowers a gate to primitives. Angles must be exact rational
// multiples of pi.
func decompose(g circuit.Gate) ([]primOp, error) {
	if g.ClassicalControl >= 0 || g.IsNoise || g.IsReset {
		return nil, fmt.Errorf("%w: %s is not unitary", ErrUnsupportedGate, g.QASMName())
	}
	if len(g.Params) != paramCount[g.Type] {
		return nil, fmt.Errorf("%w: %s with %d parameters", ErrUnsupportedGate, g.QASMName(), len(g.Params))
	}
	qs := g.Qubits()
	slices.Sort(qs)
	if len(slices.Compact(qs)) != g.Arity() {
		return nil, fmt.Errorf("%w: %s repeats a qubit", ErrUnsupportedGate, g.QASMName())
	}

	var ops []primOp
	var err error
	angle := func(i int, scale float64) phase.Phase {
		if err != nil {
			return phase.Zero
		}
		if i >= len(g.Params) {
			err = fmt.Errorf("%w: %s needs %d parameters", ErrUnsupportedGate, g.QASMName(), i+1)
			return phase.Zero
		}
		var p phase.Phase
		p, err = phase.FromRadians(g.Params[i] * scale)
		if err != nil {
			err = fmt.Errorf("%w: %s angle %g: %v", ErrUnsupportedGate, g.QASMName(), g.Params[i], err)
		}
		return p
	}
	z := func(q int, p phase.Phase) { ops = append(ops, primOp{kind: opZ, q: q, p: p}) }
	x := func(q int, p phase.Phase) { ops = append(ops, primOp{kind: opX, q: q, p: p}) }
	h := func(q int) { ops = append(ops, primOp{kind: opH, q: q}) }
	cx := func(c, t int) { ops = append(ops, primOp{kind: opCX, q: c, q2: t}) }
	ry := func(q int, p phase.Phase) {
		z(q, phase.ThreeQuarters)
		x(q, p)
		z(q, phase.Quarter)
	}
	ccz := func(a, b, c int) {
		tdg := phase.New(7, 8)
		cx(b, c)
		z(c, tdg)
		cx(a, c)
		z(c, phase.Eighth)
		cx(b, c)
		z(c, tdg)
		cx(a, c)
		z(b, phase.Eighth)
		z(c, phase.Eighth)
		cx(a, b)
		z(a, phase.Eighth)
		z(b, tdg)
		cx(a, b)
	}

	t := g.Target
	arity := 1
	switch g.Type {
	case "ID", "I":
	case "H":
		h(t)
	case "X":
		x(t, phase.Half)
	case "Y":
		z(t, phase.Half)
		x(t, phase.Half)
	case "Z":
		z(t, phase.Half)
	case "S":
		z(t, dagger(phase.Quarter, g.IsDagger))
	case "T":
		z(t, dagger(phase.Eighth, g.IsDagger))
	case "SX":
		x(t, dagger(phase.Quarter, g.IsDagger))
	case "RZ", "P", "U1":
		z(t, angle(0, 1))
	case "RX":
		x(t, angle(0, 1))
	case "RY":
		ry(t, angle(0, 1))
	case "U2":
		lam, phi := angle(1, 1), angle(0, 1)
		z(t, lam)
		ry(t, phase.Quarter)
		z(t, phi)
	case "U3", "U":
		lam, theta, phi := angle(2, 1), angle(0, 1), angle(1, 1)
		z(t, lam)
		ry(t, theta)
		z(t, phi)
	case "CX", "CZ", "SWAP", "CP", "CU1", "CRZ":
		arity = 2
		c := g.Control
		switch g.Type {
		case "CX":
			cx(c, t)
		case "CZ":
			ops = append(ops, primOp{kind: opCZ, q: c, q2: t})
		case "SWAP":
			cx(c, t)
			cx(t, c)
			cx(c, t)
		case "CP", "CU1":
			half, negHalf := angle(0, 0.5), angle(0, -0.5)
			z(c, half)
			cx(c, t)
			z(t, negHalf)
			cx(c, t)
			z(t, half)
		case "CRZ":
			half, negHalf := angle(0, 0.5), angle(0, -0.5)
			z(t, half)
			cx(c, t)
			z(t, negHalf)
			cx(c, t)
		}
	case "CCZ", "CCX":
		arity = 3
		if len(g.Controls) != 2 {
			return nil, fmt.Errorf("%w: %s needs two controls", ErrUnsupportedGate, g.QASMName())
		}
		a, b := g.Controls[0], g.Controls[1]
		if g.Type == "CCX" {
			h(t)
		}
		ccz(a, b, t)
		if g.Type == "CCX" {
			h(t)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGate, g.QASMName())
	}
	if err != nil {
		return nil, err
	}
	if g.Arity() != arity {
		return nil, fmt.Errorf("%w: %s on %d qubits", ErrUnsupportedGate, g.QASMName(), g.Arity())
	}
	return ops, nil
}

func dagger(p phase.Phase, adjoint bool) phase.Phase {
	if adjoint {
		return p.Neg()
	}
	return p
}

// builder draws a circuit into a diagram wire by wire. A hadamard gate is
// not drawn as a vertex: it flips the type of the next edge on its wire.
type builder struct {
	d        *Diagram
	last     []VertexID
	pendingH []bool
}

func (b *builder) spider(q int, kind VertexKind, p phase.Phase) VertexID {
	v := b.d.AddVertex(kind, p)
	b.connect(q, v)
	return v
}

func (b *builder) connect(q int, v VertexID) {
	t := Plain
	if b.pendingH[q] {
		t = Hadamard
	}
	b.d.addEdge(b.last[q], v, t)
	b.last[q] = v
	b.pendingH[q] = false
}

func (b *builder) apply(op primOp) {
	switch op.kind {
	case opZ:
		b.spider(op.q, Z, op.p)
	case opX:
		b.spider(op.q, X, op.p)
	case opH:
		b.pendingH[op.q] = !b.pendingH[op.q]
	case opCX:
		c := b.spider(op.q, Z, phase.Zero)
		t := b.spider(op.q2, X, phase.Zero)
		b.d.addEdge(c, t, Plain)
	case opCZ:
		u := b.spider(op.q, Z, phase.Zero)
		v := b.spider(op.q2, Z, phase.Zero)
		b.d.addEdge(u, v, Hadamard)
	}
}

// Import translates c into a diagram. Every gate must be Supported; the
// first unsupported gate fails the whole import with ErrUnsupportedGate.
func Import(c *circuit.Circuit) (*Diagram, error) {
	n := c.NumQubits
	b := &builder{
		d:        NewDiagram(),
		last:     make([]VertexID, n),
		pendingH: make([]bool, n),
	}
	for q := range n {
		b.last[q] = b.d.AddInput()
	}
	for i, g := range c.Gates {
		for _, q := range g.Qubits() {
			if q < 0 || q >= n {
				return nil, fmt.Errorf("gate %d: qubit %d out of range: %w", i, q, ErrMalformedDiagram)
			}
		}
		ops, err := decompose(g)
		if err != nil {
			return nil, fmt.Errorf("gate %d: %w", i, err)
		}
		for _, op := range ops {
			b.apply(op)
		}
	}
	for q := range n {
		b.connect(q, b.d.AddOutput())
	}
	return b.d, nil
}
