package zx

import (
	"fmt"
	"iter"
	"slices"

	"qzxopt/internal/phase"
)

// Phase gadgets: a degree-1 Z spider (the leaf) carrying a non-Clifford
// phase, joined by a hadamard edge to a Pauli Z spider (the hub) whose other
// hadamard edges reach the target spiders. Gadgets on the same target set
// are one gadget whose leaf phase is the sum.
//
// No rule in this package creates gadgets and the importer puts every
// spider on a wire, so on imported circuits this rule has nothing to merge.
// It applies to diagrams built or gadgetized by the caller.

type gadget struct {
	leaf, hub VertexID
	targets   []VertexID
}

// asGadget reports whether leaf is the leaf of a phase gadget.
func asGadget(d *Diagram, leaf VertexID) (gadget, string) {
	if d.Kind(leaf) != Z || d.Degree(leaf) != 1 {
		return gadget{}, fmt.Sprintf("%d is not a degree-1 Z spider", leaf)
	}
	if d.Phase(leaf).IsClifford() {
		return gadget{}, fmt.Sprintf("leaf phase %v is Clifford", d.Phase(leaf))
	}
	hub := d.Neighbors(leaf)[0]
	if t, _ := d.EdgeType(leaf, hub); t != Hadamard {
		return gadget{}, "leaf edge is plain"
	}
	if d.Kind(hub) != Z || !d.Phase(hub).IsPauli() {
		return gadget{}, fmt.Sprintf("hub %d is not a Pauli Z spider", hub)
	}
	if !allHadamard(d, hub, -1) {
		return gadget{}, "plain edge at the hub"
	}
	g := gadget{leaf: leaf, hub: hub}
	for _, n := range d.Neighbors(hub) {
		if n == leaf {
			continue
		}
		if d.Kind(n) != Z {
			return gadget{}, fmt.Sprintf("hub target %d is a %s", n, d.Kind(n))
		}
		if d.Degree(n) == 1 {
			// a second leaf on the same hub: not a plain gadget
			return gadget{}, fmt.Sprintf("hub %d has several leaves", hub)
		}
		g.targets = append(g.targets, n)
	}
	if len(g.targets) == 0 {
		return gadget{}, "hub has no targets"
	}
	return g, ""
}

func targetKey(ts []VertexID) string {
	return fmt.Sprint(ts)
}

func gadgetMatches(d *Diagram) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		groups := make(map[string][]gadget)
		var keys []string
		for v := range d.Vertices() {
			g, reason := asGadget(d, v)
			if reason != "" {
				continue
			}
			k := targetKey(g.targets)
			if _, ok := groups[k]; !ok {
				keys = append(keys, k)
			}
			groups[k] = append(groups[k], g)
		}
		for _, k := range keys {
			gs := groups[k]
			if len(gs) < 2 {
				continue
			}
			m := Match{Rule: GadgetMerge}
			for _, g := range gs {
				m.Vertices = append(m.Vertices, g.leaf, g.hub)
			}
			if checkGadget(d, m) != "" {
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}

func checkGadget(d *Diagram, m Match) string {
	if len(m.Vertices) < 4 || len(m.Vertices)%2 != 0 {
		return fmt.Sprintf("%d vertices do not form at least two gadgets", len(m.Vertices))
	}
	var want []VertexID
	total := phase.Zero
	for i := 0; i < len(m.Vertices); i += 2 {
		g, reason := asGadget(d, m.Vertices[i])
		if reason != "" {
			return reason
		}
		if g.hub != m.Vertices[i+1] {
			return fmt.Sprintf("leaf %d moved to hub %d", g.leaf, g.hub)
		}
		var ok bool
		if total, ok = total.AddChecked(gadgetPhase(d, g.leaf, g.hub)); !ok {
			return "merged gadget phase is out of range"
		}
		if i == 0 {
			want = g.targets
		} else if !slices.Equal(want, g.targets) {
			return "gadgets no longer share targets"
		}
	}
	return ""
}

func applyGadget(d *Diagram, m Match) {
	keep, keepHub := m.Vertices[0], m.Vertices[1]
	total := phase.Zero
	for i := 0; i < len(m.Vertices); i += 2 {
		leaf, hub := m.Vertices[i], m.Vertices[i+1]
		total = total.Add(gadgetPhase(d, leaf, hub))
		if i > 0 {
			d.RemoveVertex(leaf)
			d.RemoveVertex(hub)
		}
	}
	d.SetPhase(keep, total)
	d.SetPhase(keepHub, phase.Zero)
}

// gadgetPhase is the phase a gadget contributes; a ½ hub flips its sign.
func gadgetPhase(d *Diagram, leaf, hub VertexID) phase.Phase {
	p := d.Phase(leaf)
	if d.Phase(hub) == phase.Half {
		p = p.Neg()
	}
	return p
}
