package zx

import (
	"fmt"
	"iter"
)

// Local complementation: a Z spider with phase ±π/2 whose edges are all
// hadamard edges to Z spiders can be removed by complementing the edges
// among its neighbours and subtracting its phase from each of them.

func lcompMatches(d *Diagram) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		for v := range d.Vertices() {
			m := Match{Rule: LocalComplementation, Vertices: []VertexID{v}}
			if checkLcomp(d, m) == "" && !yield(m) {
				return
			}
		}
	}
}

func checkLcomp(d *Diagram, m Match) string {
	v := m.Vertices[0]
	if d.Kind(v) != Z {
		return fmt.Sprintf("%d is a %s", v, d.Kind(v))
	}
	if !d.Phase(v).IsProperClifford() {
		return fmt.Sprintf("phase %v is not ±1/4", d.Phase(v))
	}
	if !allHadamard(d, v, -1) {
		return "plain edge at the spider"
	}
	for n := range d.verts[v].adj {
		if d.Kind(n) != Z {
			return fmt.Sprintf("neighbour %d is a %s", n, d.Kind(n))
		}
	}
	return ""
}

func applyLcomp(d *Diagram, m Match) {
	v := m.Vertices[0]
	a := d.Phase(v)
	ns := d.Neighbors(v)
	d.RemoveVertex(v)
	for i, x := range ns {
		d.AddToPhase(x, a.Neg())
		for _, y := range ns[i+1:] {
			d.AddEdgeSmart(x, y, Hadamard)
		}
	}
}
