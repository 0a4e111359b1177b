package circuit

// Segment is a contiguous slice of a circuit. Optimizable segments contain
// only gates accepted by the split predicate; the others hold a single
// passthrough operation.
type Segment struct {
	Optimizable bool
	Gates       []Gate
}

// Circuit returns the segment as a standalone circuit over numQubits qubits.
func (s Segment) Circuit(numQubits int) *Circuit {
	out := New(numQubits)
	for _, g := range s.Gates {
		out.Append(g.Clone())
	}
	return out
}

// Split cuts c into maximal runs of gates accepted by supported, separated
// by the operations it rejects. Rejected operations keep their position.
func Split(c *Circuit, supported func(Gate) bool) []Segment {
	var segs []Segment
	var run []Gate
	flush := func() {
		if len(run) > 0 {
			segs = append(segs, Segment{Optimizable: true, Gates: run})
			run = nil
		}
	}
	for _, g := range c.Gates {
		if supported(g) {
			run = append(run, g)
			continue
		}
		flush()
		segs = append(segs, Segment{Gates: []Gate{g}})
	}
	flush()
	return segs
}

// Join reassembles segments into one circuit, recomputing steps.
func Join(numQubits, numCbits int, segs []Segment) *Circuit {
	out := New(numQubits)
	out.NumCbits = numCbits
	for _, s := range segs {
		for _, g := range s.Gates {
			out.Append(g.Clone())
		}
	}
	return out
}
