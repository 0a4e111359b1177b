// Package zx implements ZX-diagrams and the rewrite system used to optimize
// circuits: the diagram data structure, a circuit importer, the rule engine,
// the simplification strategy and circuit extraction.
//
// A Diagram is owned by one goroutine. Nothing in this package locks.
package zx

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	"qzxopt/internal/phase"
)

// VertexID addresses a vertex. IDs are never reused within one diagram, so a
// stale ID is detected by HasVertex instead of aliasing a newer vertex.
type VertexID int

// EdgeID identifies one edge instance. Re-adding an edge between the same
// pair yields a new EdgeID.
type EdgeID int

// VertexKind is the tensor a vertex stands for.
type VertexKind uint8

const (
	Boundary VertexKind = iota
	Z
	X
	HBox
)

func (k VertexKind) String() string {
	switch k {
	case Boundary:
		return "B"
	case Z:
		return "Z"
	case X:
		return "X"
	case HBox:
		return "H"
	}
	return fmt.Sprintf("VertexKind(%d)", uint8(k))
}

// IsSpider reports whether k is a Z or X spider.
func (k VertexKind) IsSpider() bool { return k == Z || k == X }

// EdgeType tags an edge as a plain wire or a wire carrying a Hadamard.
type EdgeType uint8

const (
	Plain EdgeType = iota
	Hadamard
)

func (t EdgeType) String() string {
	if t == Hadamard {
		return "hadamard"
	}
	return "plain"
}

// Toggle returns the other edge type.
func (t EdgeType) Toggle() EdgeType { return 1 - t }

// FuseEdgePair composes two edges in series: plain+plain and
// hadamard+hadamard give plain, mixed pairs give hadamard.
func FuseEdgePair(a, b EdgeType) EdgeType {
	if a == b {
		return Plain
	}
	return Hadamard
}

type edge struct {
	typ EdgeType
	id  EdgeID
}

type vertex struct {
	kind  VertexKind
	phase phase.Phase
	adj   map[VertexID]edge
	alive bool
}

// Diagram is an open ZX graph (V, E, I, O). It is kept simple: no self loops
// and at most one edge per vertex pair.
type Diagram struct {
	verts    []vertex
	live     int
	edges    int
	nextEdge EdgeID
	inputs   []VertexID
	outputs  []VertexID
}

// NewDiagram returns an empty diagram.
func NewDiagram() *Diagram {
	return &Diagram{}
}

// AddVertex adds a vertex and returns its ID.
func (d *Diagram) AddVertex(kind VertexKind, p phase.Phase) VertexID {
	id := VertexID(len(d.verts))
	d.verts = append(d.verts, vertex{
		kind:  kind,
		phase: p,
		adj:   make(map[VertexID]edge),
		alive: true,
	})
	d.live++
	return id
}

// AddInput adds a boundary vertex and appends it to the input list.
func (d *Diagram) AddInput() VertexID {
	v := d.AddVertex(Boundary, phase.Zero)
	d.inputs = append(d.inputs, v)
	return v
}

// AddOutput adds a boundary vertex and appends it to the output list.
func (d *Diagram) AddOutput() VertexID {
	v := d.AddVertex(Boundary, phase.Zero)
	d.outputs = append(d.outputs, v)
	return v
}

// HasVertex reports whether v is a live vertex of d.
func (d *Diagram) HasVertex(v VertexID) bool {
	return v >= 0 && int(v) < len(d.verts) && d.verts[v].alive
}

func (d *Diagram) mustVertex(v VertexID) *vertex {
	if !d.HasVertex(v) {
		panic(fmt.Sprintf("zx: vertex %d does not exist", v))
	}
	return &d.verts[v]
}

// AddEdge adds an edge of type t between u and v. It rejects self loops,
// stale vertices and pairs that are already connected.
func (d *Diagram) AddEdge(u, v VertexID, t EdgeType) error {
	switch {
	case !d.HasVertex(u) || !d.HasVertex(v):
		return fmt.Errorf("%w: edge %d-%d references a missing vertex", ErrMalformedDiagram, u, v)
	case u == v:
		return fmt.Errorf("%w: self loop on %d", ErrMalformedDiagram, u)
	case d.Connected(u, v):
		return fmt.Errorf("%w: parallel edge %d-%d", ErrMalformedDiagram, u, v)
	}
	d.addEdge(u, v, t)
	return nil
}

func (d *Diagram) addEdge(u, v VertexID, t EdgeType) {
	e := edge{typ: t, id: d.nextEdge}
	d.nextEdge++
	d.verts[u].adj[v] = e
	d.verts[v].adj[u] = e
	d.edges++
}

// AddEdgeSmart adds an edge of type t between u and v and normalizes any
// parallel edge it creates, so the graph stays simple.
//
// Between two spiders of the same colour a plain edge fuses them: the
// merged pair keeps one plain edge, and each hadamard edge in the pair turns
// into a self loop worth half a turn on u. Two hadamard edges cancel (Hopf
// law). Between spiders of different colours plain and hadamard swap roles.
//
// Parallel edges involving a boundary or an H-box are an invariant violation
// and panic.
func (d *Diagram) AddEdgeSmart(u, v VertexID, t EdgeType) {
	if u == v {
		panic(fmt.Sprintf("zx: self loop on %d", u))
	}
	uv, vv := d.mustVertex(u), d.mustVertex(v)
	old, ok := uv.adj[v]
	if !ok {
		d.addEdge(u, v, t)
		return
	}
	if !uv.kind.IsSpider() || !vv.kind.IsSpider() {
		panic(fmt.Sprintf("zx: parallel edge between %s%d and %s%d", uv.kind, u, vv.kind, v))
	}

	// fusing is the edge type that merges the two spiders into one
	fusing := Plain
	if uv.kind != vv.kind {
		fusing = Hadamard
	}
	nFusing, nOther := 0, 0
	for _, et := range []EdgeType{old.typ, t} {
		if et == fusing {
			nFusing++
		} else {
			nOther++
		}
	}

	d.RemoveEdge(u, v)
	switch {
	case nFusing > 0:
		d.addEdge(u, v, fusing)
		if nOther%2 == 1 {
			uv.phase = uv.phase.Add(phase.Half)
		}
	case nOther%2 == 1:
		d.addEdge(u, v, fusing.Toggle())
	}
}

// RemoveEdge removes the edge between u and v if there is one.
func (d *Diagram) RemoveEdge(u, v VertexID) {
	uv := d.mustVertex(u)
	if _, ok := uv.adj[v]; !ok {
		return
	}
	delete(uv.adj, v)
	delete(d.verts[v].adj, u)
	d.edges--
}

// SetEdgeType changes the type of an existing edge.
func (d *Diagram) SetEdgeType(u, v VertexID, t EdgeType) {
	e, ok := d.mustVertex(u).adj[v]
	if !ok {
		panic(fmt.Sprintf("zx: no edge %d-%d", u, v))
	}
	e.typ = t
	d.verts[u].adj[v] = e
	d.verts[v].adj[u] = e
}

// RemoveVertex removes v and every edge incident to it. Removing an input or
// output also drops it from the boundary list.
func (d *Diagram) RemoveVertex(v VertexID) {
	vv := d.mustVertex(v)
	for n := range vv.adj {
		delete(d.verts[n].adj, v)
		d.edges--
	}
	vv.adj = nil
	vv.alive = false
	d.live--
	d.inputs = slices.DeleteFunc(d.inputs, func(id VertexID) bool { return id == v })
	d.outputs = slices.DeleteFunc(d.outputs, func(id VertexID) bool { return id == v })
}

// Connected reports whether u and v share an edge.
func (d *Diagram) Connected(u, v VertexID) bool {
	if !d.HasVertex(u) {
		return false
	}
	_, ok := d.verts[u].adj[v]
	return ok
}

// EdgeType returns the type of the edge between u and v.
func (d *Diagram) EdgeType(u, v VertexID) (EdgeType, bool) {
	e, ok := d.mustVertex(u).adj[v]
	return e.typ, ok
}

// EdgeID returns the identity of the edge between u and v.
func (d *Diagram) EdgeID(u, v VertexID) (EdgeID, bool) {
	e, ok := d.mustVertex(u).adj[v]
	return e.id, ok
}

// Neighbors returns the neighbours of v in ascending ID order.
func (d *Diagram) Neighbors(v VertexID) []VertexID {
	return slices.Sorted(maps.Keys(d.mustVertex(v).adj))
}

// Degree returns the number of edges at v.
func (d *Diagram) Degree(v VertexID) int {
	return len(d.mustVertex(v).adj)
}

// Kind returns the kind of v.
func (d *Diagram) Kind(v VertexID) VertexKind { return d.mustVertex(v).kind }

// SetKind changes the kind of v.
func (d *Diagram) SetKind(v VertexID, k VertexKind) { d.mustVertex(v).kind = k }

// Phase returns the phase of v.
func (d *Diagram) Phase(v VertexID) phase.Phase { return d.mustVertex(v).phase }

// SetPhase replaces the phase of v.
func (d *Diagram) SetPhase(v VertexID, p phase.Phase) { d.mustVertex(v).phase = p }

// AddToPhase adds p to the phase of v.
func (d *Diagram) AddToPhase(v VertexID, p phase.Phase) {
	vv := d.mustVertex(v)
	vv.phase = vv.phase.Add(p)
}

// Inputs returns the input boundaries in qubit order.
func (d *Diagram) Inputs() []VertexID { return slices.Clone(d.inputs) }

// Outputs returns the output boundaries in qubit order.
func (d *Diagram) Outputs() []VertexID { return slices.Clone(d.outputs) }

// IsInput reports whether v is an input boundary.
func (d *Diagram) IsInput(v VertexID) bool { return slices.Contains(d.inputs, v) }

// IsOutput reports whether v is an output boundary.
func (d *Diagram) IsOutput(v VertexID) bool { return slices.Contains(d.outputs, v) }

// Vertices yields the live vertices in ascending ID order.
func (d *Diagram) Vertices() iter.Seq[VertexID] {
	return func(yield func(VertexID) bool) {
		for i := range d.verts {
			if d.verts[i].alive && !yield(VertexID(i)) {
				return
			}
		}
	}
}

// Edges yields every edge once, as (u, v) with u < v.
func (d *Diagram) Edges() iter.Seq2[[2]VertexID, EdgeType] {
	return func(yield func([2]VertexID, EdgeType) bool) {
		for u := range d.Vertices() {
			for _, v := range d.Neighbors(u) {
				if u < v && !yield([2]VertexID{u, v}, d.verts[u].adj[v].typ) {
					return
				}
			}
		}
	}
}

// VertexCount returns the number of live vertices, boundaries included.
func (d *Diagram) VertexCount() int { return d.live }

// InteriorCount returns the number of live non-boundary vertices.
func (d *Diagram) InteriorCount() int {
	n := 0
	for v := range d.Vertices() {
		if d.verts[v].kind != Boundary {
			n++
		}
	}
	return n
}

// EdgeCount returns the number of edges.
func (d *Diagram) EdgeCount() int { return d.edges }

// Clone returns an independent copy of d. IDs are preserved.
func (d *Diagram) Clone() *Diagram {
	c := &Diagram{
		verts:    make([]vertex, len(d.verts)),
		live:     d.live,
		edges:    d.edges,
		nextEdge: d.nextEdge,
		inputs:   slices.Clone(d.inputs),
		outputs:  slices.Clone(d.outputs),
	}
	for i, v := range d.verts {
		c.verts[i] = vertex{kind: v.kind, phase: v.phase, alive: v.alive}
		if v.alive {
			c.verts[i].adj = maps.Clone(v.adj)
		}
	}
	return c
}

// Stats summarizes the shape of a diagram.
type Stats struct {
	Qubits   int
	Interior int
	Edges    int
	Hadamard int // hadamard edges
	TCount   int // spiders whose phase is not a multiple of a quarter turn
}

// Stats computes summary counts.
func (d *Diagram) Stats() Stats {
	s := Stats{Qubits: len(d.inputs), Edges: d.edges}
	for v := range d.Vertices() {
		vv := d.verts[v]
		if vv.kind == Boundary {
			continue
		}
		s.Interior++
		if vv.kind.IsSpider() && !vv.phase.IsClifford() {
			s.TCount++
		}
	}
	for _, t := range d.Edges() {
		if t == Hadamard {
			s.Hadamard++
		}
	}
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("qubits=%d interior=%d edges=%d hadamard=%d t=%d",
		s.Qubits, s.Interior, s.Edges, s.Hadamard, s.TCount)
}
