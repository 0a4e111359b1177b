package main

import (
	"slices"
	"strings"

	"qzxopt/internal/circuit"
)

// cellInfo describes what occupies a single cell in the circuit grid.
type cellInfo struct {
	gate         *circuit.Gate
	isControl    bool
	isTarget     bool
	vertAbove    bool
	vertBelow    bool
	passThrough  bool
	measureBelow bool
	isBarrier    bool
}

// getCellInfo returns rendering information for the cell at (step, qubit).
func getCellInfo(c *circuit.Circuit, step, qubit int) cellInfo {
	var info cellInfo

	if gate := c.GetGateAt(step, qubit); gate != nil {
		info.gate = gate
		info.isBarrier = gate.Type == "BARRIER"
		multi := gate.Control >= 0 || len(gate.Controls) > 0
		info.isControl = gate.Control == qubit || slices.Contains(gate.Controls, qubit)
		info.isTarget = multi && gate.Target == qubit
	}

	for _, g := range c.GatesAtStep(step) {
		qs := g.Qubits()
		if len(qs) >= 2 {
			lo, hi := slices.Min(qs), slices.Max(qs)
			if qubit >= lo && qubit <= hi {
				info.vertAbove = info.vertAbove || qubit > lo
				info.vertBelow = info.vertBelow || qubit < hi
				if qubit > lo && qubit < hi && info.gate == nil {
					info.passThrough = true
				}
			}
		}
		// measurement results drop down to the classical wire
		if g.Type == "MEASURE" && qubit > g.Target {
			info.measureBelow = true
		}
	}

	return info
}

// measureAtStep returns the measured qubit and its classical bit at step,
// or -1, -1.
func measureAtStep(c *circuit.Circuit, step int) (qubit, cbit int) {
	for _, g := range c.GatesAtStep(step) {
		if g.Type == "MEASURE" {
			return g.Target, g.Cbit
		}
	}
	return -1, -1
}

// gateDisplayName returns a short display name for a gate.
func gateDisplayName(g circuit.Gate) string {
	switch g.Type {
	case "MEASURE":
		return "M"
	case "NOISE":
		return "N"
	}
	return strings.ToUpper(g.QASMName())
}

// targetName strips the control prefix from a controlled gate's name so the
// target box shows the operation that is applied.
func targetName(g circuit.Gate) string {
	name := gateDisplayName(g)
	for n := max(len(g.Controls), 1); n > 0 && strings.HasPrefix(name, "C") && len(name) > 1; n-- {
		name = name[1:]
	}
	return name
}

// controlSymbol returns the wire symbol for a control qubit.
func controlSymbol(gateType string) string {
	if gateType == "SWAP" {
		return "×"
	}
	return "●"
}

// targetSymbol returns the wire symbol for the target qubit of a controlled
// gate, or "" when the target is drawn as a box.
func targetSymbol(gateType string) string {
	switch gateType {
	case "CX", "CCX":
		return "⊕"
	case "CZ", "CCZ":
		return "●"
	case "SWAP", "CSWAP":
		return "×"
	default:
		return ""
	}
}

// describeGate renders a gate as a short human-readable line for the status bar.
func describeGate(g circuit.Gate) string {
	var sb strings.Builder
	sb.WriteString(g.QASMName())
	if len(g.Params) > 0 {
		sb.WriteString("(")
		for i, p := range g.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(circuit.FormatParam(p))
		}
		sb.WriteString(")")
	}
	return sb.String()
}
