package zx

import "fmt"

// Validate checks the structural invariants of d and returns an error
// wrapping ErrMalformedDiagram describing the first violation found.
func (d *Diagram) Validate() error {
	if len(d.inputs) != len(d.outputs) {
		return fmt.Errorf("%w: %d inputs but %d outputs", ErrMalformedDiagram, len(d.inputs), len(d.outputs))
	}

	role := make(map[VertexID]string, len(d.inputs)+len(d.outputs))
	for _, list := range []struct {
		name string
		ids  []VertexID
	}{{"input", d.inputs}, {"output", d.outputs}} {
		for i, v := range list.ids {
			if !d.HasVertex(v) {
				return fmt.Errorf("%w: %s %d refers to missing vertex %d", ErrMalformedDiagram, list.name, i, v)
			}
			if prev, dup := role[v]; dup {
				return fmt.Errorf("%w: vertex %d is listed as %s and %s", ErrMalformedDiagram, v, prev, list.name)
			}
			role[v] = list.name
		}
	}

	for v := range d.Vertices() {
		vv := &d.verts[v]
		for n, e := range vv.adj {
			switch {
			case n == v:
				return fmt.Errorf("%w: self loop on %d", ErrMalformedDiagram, v)
			case !d.HasVertex(n):
				return fmt.Errorf("%w: dangling edge %d-%d", ErrMalformedDiagram, v, n)
			}
			if back, ok := d.verts[n].adj[v]; !ok || back != e {
				return fmt.Errorf("%w: asymmetric edge %d-%d", ErrMalformedDiagram, v, n)
			}
		}

		switch vv.kind {
		case Boundary:
			if _, ok := role[v]; !ok {
				return fmt.Errorf("%w: boundary %d is neither an input nor an output", ErrMalformedDiagram, v)
			}
			if len(vv.adj) != 1 {
				return fmt.Errorf("%w: boundary %d has degree %d", ErrMalformedDiagram, v, len(vv.adj))
			}
			if !vv.phase.IsZero() {
				return fmt.Errorf("%w: boundary %d carries phase %v", ErrMalformedDiagram, v, vv.phase)
			}
		case HBox:
			if len(vv.adj) != 2 {
				return fmt.Errorf("%w: h-box %d has degree %d", ErrMalformedDiagram, v, len(vv.adj))
			}
		}
		if _, ok := role[v]; ok && vv.kind != Boundary {
			return fmt.Errorf("%w: %s vertex %d is listed as a boundary", ErrMalformedDiagram, vv.kind, v)
		}
	}
	return nil
}
