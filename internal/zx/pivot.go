package zx

import (
	"fmt"
	"iter"

	"qzxopt/internal/phase"
)

// Pivoting: two Pauli Z spiders u and v joined by a hadamard edge, with only
// hadamard edges to Z spiders around them, are removed together. Their
// neighbourhoods split into A (only u), B (only v) and C (both); every A-B,
// A-C and B-C pair is complemented and the phases are redistributed.
//
// At most one boundary may hang off the pair. Its edge is first rerouted
// through a fresh phase-0 spider, which survives the pivot, so the boundary
// keeps exactly one edge.

func pivotMatches(d *Diagram) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		for uv, t := range d.Edges() {
			if t != Hadamard {
				continue
			}
			m := Match{Rule: Pivoting, Vertices: []VertexID{uv[0], uv[1]}}
			b, ok := pivotBoundary(d, uv[0], uv[1])
			if !ok {
				continue
			}
			if b >= 0 {
				m.Vertices = append(m.Vertices, b)
			}
			if checkPivot(d, m) == "" && !yield(m) {
				return
			}
		}
	}
}

// pivotBoundary returns the single boundary next to u or v, -1 if there is
// none, or false if there are several.
func pivotBoundary(d *Diagram, u, v VertexID) (VertexID, bool) {
	found := VertexID(-1)
	for _, x := range []VertexID{u, v} {
		for n := range d.verts[x].adj {
			if d.Kind(n) != Boundary {
				continue
			}
			if found >= 0 {
				return -1, false
			}
			found = n
		}
	}
	return found, true
}

func checkPivot(d *Diagram, m Match) string {
	u, v := m.Vertices[0], m.Vertices[1]
	boundary := VertexID(-1)
	if len(m.Vertices) == 3 {
		boundary = m.Vertices[2]
	}
	if got, ok := pivotBoundary(d, u, v); !ok || got != boundary {
		return "boundary neighbourhood changed"
	}
	if t, ok := d.EdgeType(u, v); !ok || t != Hadamard {
		return "no hadamard edge between the pair"
	}
	for _, x := range []VertexID{u, v} {
		if d.Kind(x) != Z {
			return fmt.Sprintf("%d is a %s", x, d.Kind(x))
		}
		if !d.Phase(x).IsPauli() {
			return fmt.Sprintf("phase %v of %d is not Pauli", d.Phase(x), x)
		}
		if !allHadamard(d, x, boundary) {
			return fmt.Sprintf("plain edge at %d", x)
		}
		for n := range d.verts[x].adj {
			if n != boundary && d.Kind(n) != Z {
				return fmt.Sprintf("neighbour %d is a %s", n, d.Kind(n))
			}
		}
	}
	return ""
}

func applyPivot(d *Diagram, m Match) {
	u, v := m.Vertices[0], m.Vertices[1]
	if len(m.Vertices) == 3 {
		b := m.Vertices[2]
		x := u
		if d.Connected(v, b) {
			x = v
		}
		t, _ := d.EdgeType(x, b)
		d.RemoveEdge(x, b)
		w := d.AddVertex(Z, phase.Zero)
		d.addEdge(x, w, Hadamard)
		d.addEdge(w, b, t.Toggle())
	}

	pu, pv := d.Phase(u), d.Phase(v)
	var a, bs, c []VertexID
	for _, n := range d.Neighbors(u) {
		switch {
		case n == v:
		case d.Connected(v, n):
			c = append(c, n)
		default:
			a = append(a, n)
		}
	}
	for _, n := range d.Neighbors(v) {
		if n != u && !d.Connected(u, n) {
			bs = append(bs, n)
		}
	}
	d.RemoveVertex(u)
	d.RemoveVertex(v)

	complement := func(xs, ys []VertexID) {
		for _, x := range xs {
			for _, y := range ys {
				d.AddEdgeSmart(x, y, Hadamard)
			}
		}
	}
	complement(a, bs)
	complement(a, c)
	complement(bs, c)

	for _, n := range a {
		d.AddToPhase(n, pv)
	}
	for _, n := range bs {
		d.AddToPhase(n, pu)
	}
	both := pu.Add(pv).Add(phase.Half)
	for _, n := range c {
		d.AddToPhase(n, both)
	}
}
