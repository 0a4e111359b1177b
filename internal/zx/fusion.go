package zx

import (
	"fmt"
	"iter"
)

// Spider fusion: two Z spiders (or two X spiders) joined by a plain edge are
// one spider whose phase is the sum of both.

func fusionMatches(d *Diagram) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		for uv, t := range d.Edges() {
			m := Match{Rule: Fusion, Vertices: []VertexID{uv[0], uv[1]}}
			if t == Plain && checkFusion(d, m) == "" && !yield(m) {
				return
			}
		}
	}
}

func checkFusion(d *Diagram, m Match) string {
	u, v := m.Vertices[0], m.Vertices[1]
	ku, kv := d.Kind(u), d.Kind(v)
	if !ku.IsSpider() || ku != kv {
		return fmt.Sprintf("%s%d and %s%d are not same-colour spiders", ku, u, kv, v)
	}
	if t, ok := d.EdgeType(u, v); !ok || t != Plain {
		return "no plain edge between the spiders"
	}
	if _, ok := d.Phase(u).AddChecked(d.Phase(v)); !ok {
		return fmt.Sprintf("phase %v + %v is out of range", d.Phase(u), d.Phase(v))
	}
	// common neighbours receive a parallel edge, which only spiders absorb
	for n := range d.verts[v].adj {
		if n != u && d.Connected(u, n) && !d.Kind(n).IsSpider() {
			return fmt.Sprintf("common neighbour %d is a %s", n, d.Kind(n))
		}
	}
	return ""
}

func applyFusion(d *Diagram, m Match) {
	u, v := m.Vertices[0], m.Vertices[1]
	d.AddToPhase(u, d.Phase(v))
	for _, n := range d.Neighbors(v) {
		if n == u {
			continue
		}
		t, _ := d.EdgeType(v, n)
		d.AddEdgeSmart(u, n, t)
	}
	d.RemoveVertex(v)
}
