package zx

import (
	"fmt"
	"iter"
)

// Identity removal: a phase-0 spider of degree 2 is a wire.

func identityMatches(d *Diagram) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		for v := range d.Vertices() {
			m := Match{Rule: IdentityRemoval, Vertices: []VertexID{v}}
			if checkIdentity(d, m) == "" && !yield(m) {
				return
			}
		}
	}
}

func checkIdentity(d *Diagram, m Match) string {
	v := m.Vertices[0]
	switch {
	case !d.Kind(v).IsSpider():
		return fmt.Sprintf("%d is a %s", v, d.Kind(v))
	case !d.Phase(v).IsZero():
		return fmt.Sprintf("phase %v is not zero", d.Phase(v))
	case d.Degree(v) != 2:
		return fmt.Sprintf("degree %d", d.Degree(v))
	}
	ns := d.Neighbors(v)
	a, b := ns[0], ns[1]
	if d.Connected(a, b) && (!d.Kind(a).IsSpider() || !d.Kind(b).IsSpider()) {
		return fmt.Sprintf("neighbours %d and %d are already joined", a, b)
	}
	return ""
}

func applyIdentity(d *Diagram, m Match) {
	v := m.Vertices[0]
	ns := d.Neighbors(v)
	a, b := ns[0], ns[1]
	ta, _ := d.EdgeType(v, a)
	tb, _ := d.EdgeType(v, b)
	d.RemoveVertex(v)
	d.AddEdgeSmart(a, b, FuseEdgePair(ta, tb))
}
