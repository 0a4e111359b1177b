package main

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qzxopt/internal/circuit"
)

func parseCircuit(t *testing.T, body string) *circuit.Circuit {
	t.Helper()
	c, err := circuit.ParseQASM("OPENQASM 2.0;\ninclude \"qelib1.inc\";\n" + body)
	require.NoError(t, err)
	return c
}

func TestPadCenter(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"H", 5, "  H  "},
		{"RZ", 5, " RZ  "},
		{"RESET", 5, "RESET"},
		{"TOOLONG", 5, "TOOLO"},
	}
	for _, tt := range tests {
		if got := padCenter(tt.in, tt.width); got != tt.want {
			t.Errorf("padCenter(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestCellInfoSpansControlledGate(t *testing.T) {
	c := parseCircuit(t, "qreg q[3];\ncx q[0], q[2];")

	ctrl := getCellInfo(c, 0, 0)
	assert.True(t, ctrl.isControl)
	assert.False(t, ctrl.vertAbove)
	assert.True(t, ctrl.vertBelow)

	mid := getCellInfo(c, 0, 1)
	assert.Nil(t, mid.gate)
	assert.True(t, mid.passThrough)
	assert.True(t, mid.vertAbove && mid.vertBelow)

	tgt := getCellInfo(c, 0, 2)
	assert.True(t, tgt.isTarget)
	assert.True(t, tgt.vertAbove)
	assert.False(t, tgt.vertBelow)
}

func TestCellInfoMeasurement(t *testing.T) {
	c := parseCircuit(t, "qreg q[2];\ncreg c[2];\nmeasure q[0] -> c[1];")

	q, bit := measureAtStep(c, 0)
	assert.Equal(t, 0, q)
	assert.Equal(t, 1, bit)
	assert.False(t, getCellInfo(c, 0, 0).measureBelow)
	assert.True(t, getCellInfo(c, 0, 1).measureBelow)

	q, bit = measureAtStep(c, 1)
	assert.Equal(t, -1, q)
	assert.Equal(t, -1, bit)
}

func TestGateNames(t *testing.T) {
	c := parseCircuit(t, "qreg q[3];\ncreg c[1];\ncrz(pi/4) q[0], q[1];\nch q[1], q[2];\nsdg q[0];\nmeasure q[2] -> c[0];")
	byType := map[string]circuit.Gate{}
	for _, g := range c.Gates {
		byType[g.Type] = g
	}
	assert.Equal(t, "RZ", targetName(byType["CRZ"]))
	assert.Equal(t, "H", targetName(byType["CH"]))
	assert.Equal(t, "SDG", gateDisplayName(byType["S"]))
	assert.Equal(t, "M", gateDisplayName(byType["MEASURE"]))
	assert.Equal(t, "crz(pi/4)", describeGate(byType["CRZ"]))
}

func TestRenderCellWidths(t *testing.T) {
	c := parseCircuit(t, "qreg q[3];\ncreg c[1];\nh q[0];\ncx q[0], q[2];\ncrz(pi/2) q[2], q[0];\nbarrier q;\nmeasure q[0] -> c[0];\nswap q[1], q[2];")
	for step := range c.MaxSteps + 1 {
		for q := range c.NumQubits {
			for _, cursor := range []bool{false, true} {
				top, mid, bot := renderCell(getCellInfo(c, step, q), cursor)
				for _, line := range []string{top, mid, bot} {
					assert.Equal(t, cellW, ansi.StringWidth(line), "step %d qubit %d cursor %v: %q", step, q, cursor, line)
				}
			}
		}
	}
}

func TestGridView(t *testing.T) {
	c := parseCircuit(t, "qreg q[2];\ncreg c[2];\nh q[0];\ncx q[0], q[1];\nmeasure q[1] -> c[1];")
	out := gridView(c, 80, 1, 0)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	// header, three rows per qubit, separator and classical wire
	require.Len(t, lines, 1+3*2+2)
	assert.Contains(t, lines[2], "q[0]")
	assert.Contains(t, lines[5], "q[1]")
	assert.Contains(t, out, "╩1")
	assert.Contains(t, out, "⊕")
	assert.Contains(t, out, "╔")
}

func TestSpliceLineAt(t *testing.T) {
	assert.Equal(t, "abXYefgh", spliceLineAt("abcdefgh", "XY", 2))
	assert.Equal(t, "ab  XY", spliceLineAt("ab", "XY", 4))
	assert.Equal(t, "XYcd", spliceLineAt("abcd", "XY", 0))

	styled := lipgloss.NewStyle().Bold(true).Render("abcd") + "efgh"
	assert.Equal(t, "abXYZfgh", ansi.Strip(spliceLineAt(styled, "XYZ", 2)))
}

func TestOverlayAt(t *testing.T) {
	bg := "......\n......\n......"
	got := overlayAt(bg, "ab\ncd\nef", 1, 1)
	assert.Equal(t, "......\n.ab...\n.cd...", got)
}
