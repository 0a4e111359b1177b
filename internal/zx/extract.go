package zx

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"qzxopt/internal/circuit"
	"qzxopt/internal/gf2"
	"qzxopt/internal/phase"
)

// ExtractState is the phase of extraction an ExtractEvent reports.
type ExtractState uint8

const (
	// StateFrontier: peeling gates off the current frontier.
	StateFrontier ExtractState = iota
	// StateResidual: no frontier vertex could be peeled directly and the
	// frontier is being resolved with Gauss-Jordan elimination.
	StateResidual
	// StateDone: every qubit reached its input.
	StateDone
)

func (s ExtractState) String() string {
	switch s {
	case StateFrontier:
		return "frontier"
	case StateResidual:
		return "residual"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("ExtractState(%d)", uint8(s))
}

// ExtractEvent describes one step of extraction.
type ExtractEvent struct {
	State    ExtractState
	Round    int
	Frontier int // qubits still being extracted
	Residual int // interior vertices left
	Gates    int // gates emitted so far
}

// ExtractOption configures Extract.
type ExtractOption func(*extractor)

// WithObserver registers a callback for extraction progress.
func WithObserver(fn func(ExtractEvent)) ExtractOption {
	return func(x *extractor) { x.observe = fn }
}

// WithExtractLogger sets the logger used for per-round debug output.
func WithExtractLogger(l *zap.Logger) ExtractOption {
	return func(x *extractor) { x.log = l }
}

// Extract recovers a circuit from d. The diagram itself is left untouched;
// extraction works on a clone.
//
// The clone is brought to graph-like form and fused. Gates are then peeled
// off from the outputs towards the inputs, so they are collected back to
// front. A frontier that cannot be peeled is reduced over GF(2) and the row
// operations are emitted as CNOTs. When every qubit has reached an input,
// the remaining wiring is a permutation, realized by leading SWAPs.
func Extract(ctx context.Context, d *Diagram, opts ...ExtractOption) (*circuit.Circuit, error) {
	_, span := tracer.Start(ctx, "zx.Extract", trace.WithAttributes(attribute.Int("zx.nodes", d.InteriorCount())))
	defer span.End()

	c, err := extract(d, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("zx.gates", len(c.Gates)))
	return c, nil
}

type extractor struct {
	g          *Diagram
	inputs     []VertexID
	outputs    []VertexID
	inputIndex map[VertexID]int
	frontier   []VertexID // -1 once the qubit reached its input
	perm       []int      // input index feeding each output
	rev        []circuit.Gate
	observe    func(ExtractEvent)
	log        *zap.Logger
}

func extract(d *Diagram, opts []ExtractOption) (*circuit.Circuit, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	g := d.Clone()
	ToGraphLike(g)
	for v := range g.Vertices() {
		if g.Kind(v) == HBox {
			return nil, fmt.Errorf("%w: h-box %d survived graph-like conversion", ErrExtractionFailure, v)
		}
	}
	if _, err := (&Engine{Order: []RuleKind{Fusion}}).Run(g); err != nil {
		return nil, err
	}

	n := len(g.inputs)
	x := &extractor{
		g:          g,
		inputs:     g.Inputs(),
		outputs:    g.Outputs(),
		inputIndex: make(map[VertexID]int, n),
		frontier:   make([]VertexID, n),
		perm:       make([]int, n),
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	for i, v := range x.inputs {
		x.inputIndex[v] = i
	}
	for q := range x.perm {
		x.perm[q] = -1
	}

	if err := x.normalizeOutputs(); err != nil {
		return nil, err
	}
	if err := x.run(); err != nil {
		return nil, err
	}
	return x.assemble()
}

func (x *extractor) fail(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExtractionFailure, fmt.Sprintf(format, args...))
}

func (x *extractor) emit(g circuit.Gate) { x.rev = append(x.rev, g) }

func (x *extractor) notify(state ExtractState, round int) {
	if x.observe == nil {
		return
	}
	x.observe(ExtractEvent{
		State:    state,
		Round:    round,
		Frontier: len(x.active()),
		Residual: x.g.InteriorCount(),
		Gates:    len(x.rev),
	})
}

func (x *extractor) isInput(v VertexID) bool {
	_, ok := x.inputIndex[v]
	return ok
}

// normalizeOutputs gives every output its own frontier spider joined by a
// plain edge.
func (x *extractor) normalizeOutputs() error {
	g := x.g
	claimed := make(map[VertexID]bool)
	for q, o := range x.outputs {
		nb := g.Neighbors(o)[0]
		t, _ := g.EdgeType(o, nb)
		switch {
		case x.isInput(nb):
			if t == Hadamard {
				x.emit(hGate(q))
			}
			x.perm[q] = x.inputIndex[nb]
			x.frontier[q] = -1
		case g.IsOutput(nb):
			return x.fail("outputs %d and %d are wired together", o, nb)
		case claimed[nb]:
			// o-t-nb is o-plain-w-hadamard-nb, after an H if t is plain
			if t == Plain {
				x.emit(hGate(q))
			}
			g.RemoveEdge(o, nb)
			w := g.AddVertex(Z, phase.Zero)
			g.addEdge(o, w, Plain)
			g.addEdge(w, nb, Hadamard)
			x.frontier[q] = w
			claimed[w] = true
		default:
			if t == Hadamard {
				x.emit(hGate(q))
				g.SetEdgeType(o, nb, Plain)
			}
			x.frontier[q] = nb
			claimed[nb] = true
		}
	}
	return nil
}

// active returns the qubits still being extracted, ascending.
func (x *extractor) active() []int {
	var qs []int
	for q, f := range x.frontier {
		if f >= 0 {
			qs = append(qs, q)
		}
	}
	return qs
}

// inner returns the neighbours of f other than its output.
func (x *extractor) inner(q int) []VertexID {
	f := x.frontier[q]
	return slices.DeleteFunc(x.g.Neighbors(f), func(n VertexID) bool { return n == x.outputs[q] })
}

func (x *extractor) run() error {
	g := x.g
	for round := 0; ; round++ {
		active := x.active()
		if len(active) == 0 {
			x.notify(StateDone, round)
			return nil
		}
		x.notify(StateFrontier, round)
		progress := false

		for _, q := range active {
			f := x.frontier[q]
			if p := g.Phase(f); !p.IsZero() {
				x.emit(phaseGate(q, p))
				g.SetPhase(f, phase.Zero)
			}
		}

		for i, q1 := range active {
			for _, q2 := range active[i+1:] {
				f1, f2 := x.frontier[q1], x.frontier[q2]
				t, ok := g.EdgeType(f1, f2)
				if !ok {
					continue
				}
				if t != Hadamard {
					return x.fail("plain edge between frontier spiders %d and %d", f1, f2)
				}
				x.emit(twoQubit("CZ", q1, q2))
				g.RemoveEdge(f1, f2)
			}
		}

		for _, q := range active {
			f := x.frontier[q]
			ns := x.inner(q)
			var ins []VertexID
			for _, n := range ns {
				if x.isInput(n) {
					ins = append(ins, n)
				}
			}
			if len(ns) == 1 && len(ins) == 1 {
				if t, _ := g.EdgeType(f, ins[0]); t == Hadamard {
					x.emit(hGate(q))
				}
				x.perm[q] = x.inputIndex[ins[0]]
				x.frontier[q] = -1
				progress = true
				continue
			}
			// reroute b-t-f as b-toggle(t)-w-hadamard-f so f only sees spiders
			for _, b := range ins {
				t, _ := g.EdgeType(b, f)
				g.RemoveEdge(b, f)
				w := g.AddVertex(Z, phase.Zero)
				g.addEdge(b, w, t.Toggle())
				g.addEdge(w, f, Hadamard)
			}
		}

		// spiders whose phase sum was out of range stay joined by a plain
		// edge; the frontier's phase is emitted, so it fuses into them exactly
		merged := false
		for _, q := range x.active() {
			f := x.frontier[q]
			for _, n := range x.inner(q) {
				if t, _ := g.EdgeType(f, n); t != Plain || x.isInput(n) || slices.Contains(x.frontier, n) {
					continue
				}
				applyFusion(g, Match{Rule: Fusion, Vertices: []VertexID{n, f}})
				x.frontier[q] = n
				merged = true
				break
			}
		}
		if merged {
			continue
		}

		active = x.active()
		if len(active) == 0 {
			continue
		}
		m, cols, err := x.biadjacency(active)
		if err != nil {
			return err
		}
		if !hasUnitRow(m) {
			x.notify(StateResidual, round)
			_, ops := m.Clone().GaussJordan()
			for _, op := range ops {
				src, dst := active[op.Src], active[op.Dst]
				fd := x.frontier[dst]
				for _, n := range x.inner(src) {
					if g.Connected(fd, n) {
						g.RemoveEdge(fd, n)
					} else {
						g.addEdge(fd, n, Hadamard)
					}
				}
				x.emit(twoQubit("CX", dst, src))
			}
			if m, cols, err = x.biadjacency(active); err != nil {
				return err
			}
		}

		used := make(map[VertexID]bool)
		for i, q := range active {
			if m.RowWeight(i) != 1 {
				continue
			}
			w := cols[m.RowOnes(i)[0]]
			if used[w] {
				continue
			}
			used[w] = true
			x.emit(hGate(q))
			g.RemoveVertex(x.frontier[q])
			g.addEdge(x.outputs[q], w, Plain)
			x.frontier[q] = w
			progress = true
		}

		x.log.Debug("extract round",
			zap.Int("round", round),
			zap.Int("frontier", len(active)),
			zap.Int("interior", g.InteriorCount()),
			zap.Int("gates", len(x.rev)))
		if !progress {
			return x.fail("no frontier vertex can be peeled (round %d, %d qubits left)", round, len(active))
		}
	}
}

// biadjacency builds the frontier × neighbour matrix over GF(2). Columns are
// the union of the frontier's non-output neighbours, ascending.
func (x *extractor) biadjacency(active []int) (*gf2.Matrix, []VertexID, error) {
	colSet := make(map[VertexID]bool)
	for _, q := range active {
		for _, n := range x.inner(q) {
			if t, _ := x.g.EdgeType(x.frontier[q], n); t != Hadamard {
				return nil, nil, x.fail("plain edge from frontier spider %d to %d", x.frontier[q], n)
			}
			colSet[n] = true
		}
	}
	cols := make([]VertexID, 0, len(colSet))
	for n := range colSet {
		cols = append(cols, n)
	}
	slices.Sort(cols)
	index := make(map[VertexID]int, len(cols))
	for i, n := range cols {
		index[n] = i
	}
	m := gf2.New(len(active), len(cols))
	for r, q := range active {
		for _, n := range x.inner(q) {
			m.Set(r, index[n], true)
		}
	}
	return m, cols, nil
}

func hasUnitRow(m *gf2.Matrix) bool {
	for r := range m.Rows() {
		if m.RowWeight(r) == 1 {
			return true
		}
	}
	return false
}

// assemble checks the final permutation and returns the circuit in causal
// order.
func (x *extractor) assemble() (*circuit.Circuit, error) {
	n := len(x.outputs)
	seen := make([]bool, n)
	for q, p := range x.perm {
		if p < 0 || seen[p] {
			return nil, x.fail("output %d is not matched to a unique input", q)
		}
		seen[p] = true
	}

	c := circuit.New(n)
	// cur[w] is the input whose state currently travels on wire w
	cur := make([]int, n)
	for w := range cur {
		cur[w] = w
	}
	for q := range n {
		if cur[q] == x.perm[q] {
			continue
		}
		w := slices.Index(cur, x.perm[q])
		c.Append(twoQubit("SWAP", q, w))
		cur[q], cur[w] = cur[w], cur[q]
	}
	for i := len(x.rev) - 1; i >= 0; i-- {
		c.Append(x.rev[i])
	}
	return c, nil
}

func hGate(q int) circuit.Gate { return circuit.NewGate("H", q) }

// twoQubit returns a two-qubit gate with the given control and target.
func twoQubit(typ string, control, target int) circuit.Gate {
	g := circuit.NewGate(typ, target)
	g.Control = control
	return g
}

// phaseGate names a Z rotation canonically: S, SDG, T, TDG, Z, else RZ.
func phaseGate(q int, p phase.Phase) circuit.Gate {
	switch p {
	case phase.Quarter:
		return circuit.NewGate("S", q)
	case phase.ThreeQuarters:
		g := circuit.NewGate("S", q)
		g.IsDagger = true
		return g
	case phase.Eighth:
		return circuit.NewGate("T", q)
	case phase.New(7, 8):
		g := circuit.NewGate("T", q)
		g.IsDagger = true
		return g
	case phase.Half:
		return circuit.NewGate("Z", q)
	}
	g := circuit.NewGate("RZ", q)
	g.Params = []float64{p.Radians()}
	return g
}
