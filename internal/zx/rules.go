package zx

import (
	"fmt"
	"iter"
	"strings"
)

// RuleKind is the closed set of rewrite rule families.
type RuleKind uint8

const (
	Fusion RuleKind = iota
	IdentityRemoval
	LocalComplementation
	Pivoting
	GadgetMerge
)

// AllRules lists every rule family in the default priority order.
var AllRules = []RuleKind{Fusion, IdentityRemoval, LocalComplementation, Pivoting, GadgetMerge}

var ruleNames = map[RuleKind]string{
	Fusion:               "fusion",
	IdentityRemoval:      "identity",
	LocalComplementation: "lcomp",
	Pivoting:             "pivot",
	GadgetMerge:          "gadget",
}

var ruleDescriptions = map[RuleKind]string{
	Fusion:               "merge same-colour spiders joined by a plain edge, adding phases",
	IdentityRemoval:      "remove phase-0 spiders of degree 2, joining their neighbours",
	LocalComplementation: "remove a ±π/2 spider, complementing its neighbourhood",
	Pivoting:             "remove a Pauli spider pair joined by a hadamard edge",
	GadgetMerge:          "merge phase gadgets acting on the same qubits",
}

func (k RuleKind) String() string {
	if s, ok := ruleNames[k]; ok {
		return s
	}
	return fmt.Sprintf("RuleKind(%d)", uint8(k))
}

// Description returns a one-line summary of what the rule does.
func (k RuleKind) Description() string { return ruleDescriptions[k] }

// ParseRuleKind maps a rule name as printed by String back to its kind.
func ParseRuleKind(s string) (RuleKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range ruleNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown rule %q", s)
}

// ParseRuleOrder parses a priority list. Names must be distinct.
func ParseRuleOrder(names []string) ([]RuleKind, error) {
	seen := make(map[RuleKind]bool, len(names))
	order := make([]RuleKind, 0, len(names))
	for _, n := range names {
		k, err := ParseRuleKind(n)
		if err != nil {
			return nil, err
		}
		if seen[k] {
			return nil, fmt.Errorf("rule %q listed twice", n)
		}
		seen[k] = true
		order = append(order, k)
	}
	return order, nil
}

// Match locates one application of a rule. The meaning of Vertices is rule
// specific:
//
//	Fusion               [survivor, absorbed]
//	IdentityRemoval      [spider]
//	LocalComplementation [spider]
//	Pivoting             [u, v] or [u, v, boundary]
//	GadgetMerge          [leaf0, hub0, leaf1, hub1, ...]
type Match struct {
	Rule     RuleKind
	Vertices []VertexID
}

// Matches lazily yields every current match of the rule. The diagram must
// not be modified while the sequence is being consumed.
func (k RuleKind) Matches(d *Diagram) iter.Seq[Match] {
	switch k {
	case Fusion:
		return fusionMatches(d)
	case IdentityRemoval:
		return identityMatches(d)
	case LocalComplementation:
		return lcompMatches(d)
	case Pivoting:
		return pivotMatches(d)
	case GadgetMerge:
		return gadgetMatches(d)
	}
	panic(fmt.Sprintf("zx: unknown rule %d", k))
}

// Check re-validates m against the live diagram and returns the reason it
// no longer applies, or "" if it does.
func (k RuleKind) Check(d *Diagram, m Match) string {
	if m.Rule != k {
		return fmt.Sprintf("match belongs to %s", m.Rule)
	}
	for _, v := range m.Vertices {
		if !d.HasVertex(v) {
			return fmt.Sprintf("vertex %d was removed", v)
		}
	}
	switch k {
	case Fusion:
		return checkFusion(d, m)
	case IdentityRemoval:
		return checkIdentity(d, m)
	case LocalComplementation:
		return checkLcomp(d, m)
	case Pivoting:
		return checkPivot(d, m)
	case GadgetMerge:
		return checkGadget(d, m)
	}
	return "unknown rule"
}

// Apply rewrites d in place. Applying a match that no longer holds panics
// with a *StaleMatchError.
func (k RuleKind) Apply(d *Diagram, m Match) {
	if reason := k.Check(d, m); reason != "" {
		panic(&StaleMatchError{Match: m, Reason: reason})
	}
	switch k {
	case Fusion:
		applyFusion(d, m)
	case IdentityRemoval:
		applyIdentity(d, m)
	case LocalComplementation:
		applyLcomp(d, m)
	case Pivoting:
		applyPivot(d, m)
	case GadgetMerge:
		applyGadget(d, m)
	}
}

// Footprint returns every vertex the match reads or writes: its own
// vertices and their neighbourhoods. Matches with disjoint footprints
// commute.
func (m Match) Footprint(d *Diagram) []VertexID {
	seen := make(map[VertexID]bool)
	var out []VertexID
	add := func(v VertexID) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range m.Vertices {
		add(v)
		for _, n := range d.Neighbors(v) {
			add(n)
		}
	}
	return out
}

// allHadamard reports whether every edge at v is a hadamard edge, ignoring
// the edge to skip.
func allHadamard(d *Diagram, v, skip VertexID) bool {
	for n, e := range d.verts[v].adj {
		if n != skip && e.typ != Hadamard {
			return false
		}
	}
	return true
}
