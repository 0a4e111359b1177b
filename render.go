package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"qzxopt/internal/circuit"
	"qzxopt/internal/statevec"
)

// maxProbQubits bounds the qubit count for the probability readout.
const maxProbQubits = 12

// ──────────────────────────── Rendering helpers ────────────────────────────

// padCenter centres a string within the given width.
func padCenter(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	total := width - len(s)
	left := total / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", total-left)
}

// boxEdge draws the top or bottom of a gate box, with a connector in the
// middle when a vertical wire meets it.
func boxEdge(left, right, connector string, connected bool) string {
	if !connected {
		return left + strings.Repeat("─", gateNameW) + right
	}
	half := gateNameW / 2
	return left + strings.Repeat("─", half) + connector + strings.Repeat("─", gateNameW-half-1) + right
}

// ──────────────────────────── Cell rendering ────────────────────────────

// renderCell returns 3 lines (top, mid, bot) for a single cell.
// Each line is exactly cellW visual characters wide.
func renderCell(info cellInfo, cursor bool) (top, mid, bot string) {
	emptyRow := strings.Repeat(" ", cellW)
	halfW := cellW / 2
	vertRow := strings.Repeat(" ", halfW) + "│" + strings.Repeat(" ", cellW-halfW-1)
	dblVertRow := strings.Repeat(" ", halfW) + cbitConnectorStyle.Render("║") + strings.Repeat(" ", cellW-halfW-1)
	margin := (cellW - gateBoxW) / 2
	rightMargin := cellW - margin - gateBoxW

	wire := func(sym string, width int) string {
		l := (width - 1) / 2
		return strings.Repeat("─", l) + sym + strings.Repeat("─", width-l-1)
	}
	below := func() string {
		switch {
		case info.measureBelow:
			return dblVertRow
		case info.vertBelow:
			return vertRow
		}
		return emptyRow
	}
	above := func() string {
		if info.vertAbove {
			return vertRow
		}
		return emptyRow
	}

	if cursor {
		innerW := cellW - 2
		bdr := cursorBoxStyle
		top = bdr.Render("╔" + strings.Repeat("═", innerW) + "╗")
		bot = bdr.Render("╚" + strings.Repeat("═", innerW) + "╝")
		switch {
		case info.isBarrier:
			mid = bdr.Render("║") + wire("│", innerW) + bdr.Render("║")
		case info.gate != nil && info.isControl:
			mid = bdr.Render("║") + wire(gateStyle.Render(controlSymbol(info.gate.Type)), innerW) + bdr.Render("║")
		case info.gate != nil && info.isTarget && targetSymbol(info.gate.Type) != "":
			mid = bdr.Render("║") + wire(gateStyle.Render(targetSymbol(info.gate.Type)), innerW) + bdr.Render("║")
		case info.gate != nil:
			name := gateDisplayName(*info.gate)
			if info.isTarget {
				name = targetName(*info.gate)
			}
			mid = bdr.Render("║") + "─┤" + gateStyle.Render(padCenter(name, gateNameW)) + "├─" + bdr.Render("║")
		case info.passThrough:
			mid = bdr.Render("║") + wire("┼", innerW) + bdr.Render("║")
		default:
			mid = bdr.Render("║") + strings.Repeat("─", innerW) + bdr.Render("║")
		}
		return
	}

	switch {
	case info.isBarrier:
		top, mid, bot = vertRow, wire("│", cellW), vertRow

	case info.gate != nil && info.isControl:
		top = above()
		mid = wire(gateStyle.Render(controlSymbol(info.gate.Type)), cellW)
		bot = below()

	case info.gate != nil && info.isTarget && targetSymbol(info.gate.Type) != "":
		top = above()
		mid = wire(gateStyle.Render(targetSymbol(info.gate.Type)), cellW)
		bot = below()

	case info.gate != nil:
		name := gateDisplayName(*info.gate)
		if info.isTarget {
			name = targetName(*info.gate)
		}
		top = strings.Repeat(" ", margin) + gateStyle.Render(boxEdge("┌", "┐", "┴", info.vertAbove)) + strings.Repeat(" ", rightMargin)
		mid = strings.Repeat("─", margin) + gateStyle.Render("┤"+padCenter(name, gateNameW)+"├") + strings.Repeat("─", rightMargin)
		bot = strings.Repeat(" ", margin) + gateStyle.Render(boxEdge("└", "┘", "┬", info.vertBelow)) + strings.Repeat(" ", rightMargin)
		if info.measureBelow {
			bot = dblVertRow
		}

	case info.passThrough:
		top, mid, bot = vertRow, wire("┼", cellW), below()
		if bot == emptyRow {
			bot = vertRow
		}

	case info.measureBelow:
		// a measurement result crosses this wire on its way down
		top = dblVertRow
		if info.vertAbove {
			top = vertRow
		}
		mid = wire(cbitConnectorStyle.Render("╫"), cellW)
		bot = dblVertRow

	default:
		top, mid, bot = above(), strings.Repeat("─", cellW), below()
	}
	return
}

// ──────────────────────────── Panel rendering ────────────────────────────

// gridView renders c as a wire grid. cursorStep/cursorQubit of -1 draw no
// cursor. The view scrolls so the cursor stays visible.
func gridView(c *circuit.Circuit, width, cursorStep, cursorQubit int) string {
	var sb strings.Builder

	maxSteps := max((width-labelVisualW-4)/cellW, 1)
	startStep := 0
	if cursorStep >= maxSteps {
		startStep = cursorStep - maxSteps + 1
	}
	endStep := startStep + maxSteps

	if startStep > 0 {
		fmt.Fprintf(&sb, "  ◀ showing steps %d–%d\n", startStep, endStep-1)
	}

	header := strings.Repeat(" ", labelVisualW)
	for step := startStep; step < endStep; step++ {
		header += dimStyle.Render(padCenter(fmt.Sprintf("%d", step), cellW))
	}
	sb.WriteString(header + "\n")

	for qubit := range c.NumQubits {
		topLine := strings.Repeat(" ", labelVisualW)
		midLine := qubitLabelStyle.Render(fmt.Sprintf("%-5s", fmt.Sprintf("q[%d]", qubit))) + "──"
		botLine := strings.Repeat(" ", labelVisualW)
		for step := startStep; step < endStep; step++ {
			top, mid, bot := renderCell(getCellInfo(c, step, qubit), step == cursorStep && qubit == cursorQubit)
			topLine += top
			midLine += mid
			botLine += bot
		}
		sb.WriteString(topLine + "\n" + midLine + "\n" + botLine + "\n")
	}

	if c.NumCbits > 0 {
		halfW := cellW / 2
		sepLine := strings.Repeat(" ", labelVisualW)
		cbitLine := cbitLabelStyle.Render(fmt.Sprintf("%-5s", fmt.Sprintf("c%d", c.NumCbits))) + cbitWireStyle.Render("══")
		for step := startStep; step < endStep; step++ {
			q, bit := measureAtStep(c, step)
			if q < 0 {
				sepLine += strings.Repeat(" ", cellW)
				cbitLine += cbitWireStyle.Render(strings.Repeat("═", cellW))
				continue
			}
			sepLine += strings.Repeat(" ", halfW) + cbitConnectorStyle.Render("║") + strings.Repeat(" ", cellW-halfW-1)
			label := fmt.Sprintf("%d", bit)
			dashR := max(cellW-halfW-1-len(label), 0)
			cbitLine += cbitWireStyle.Render(strings.Repeat("═", halfW)) +
				cbitConnectorStyle.Render("╩"+label) +
				cbitWireStyle.Render(strings.Repeat("═", dashR))
		}
		sb.WriteString(sepLine + "\n" + cbitLine + "\n")
	}
	return sb.String()
}

// renderCircuitPanel renders one side of the comparison.
func (m Model) renderCircuitPanel(which pane, width, height int) string {
	c, style, title := m.original, originalStyle, "Original"
	if which == paneOptimized {
		c, style, title = m.optimizedCircuit(), optimizedStyle, "Optimized"
	}

	var sb strings.Builder
	if m.active == which {
		title += " [ACTIVE]"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("  " + dimStyle.Render(c.Cost().String()))
	sb.WriteString("\n")

	cs, cq := -1, -1
	if m.active == which {
		cs, cq = m.cursorStep, m.cursorQubit
	}
	sb.WriteString(gridView(c, width, cs, cq))

	if m.active == which {
		if g := c.GetGateAt(m.cursorStep, m.cursorQubit); g != nil {
			fmt.Fprintf(&sb, "\n  Step %d, q[%d]: %s", m.cursorStep, m.cursorQubit, activeGateStyle.Render(describeGate(*g)))
		} else {
			fmt.Fprintf(&sb, "\n  Step %d, q[%d]", m.cursorStep, m.cursorQubit)
		}
	}
	return style.Width(width).Height(height).Render(sb.String())
}

// renderQASMPanel renders the input editor and the optimized output side by side.
func (m Model) renderQASMPanel(width, height int) string {
	var sb strings.Builder
	title := "Input QASM"
	if m.focus == focusQASM {
		title += " [EDITING]"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")
	sb.WriteString(m.qasmEditor.View())
	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("Output QASM"))
	sb.WriteString("\n")
	sb.WriteString(m.output.View())
	return qasmStyle.Width(width).Height(height).Render(sb.String())
}

// renderDiagnostics summarises the last optimization run.
func (m Model) renderDiagnostics() string {
	var sb strings.Builder
	switch {
	case m.running:
		sb.WriteString(activeGateStyle.Render("optimizing…"))
	case m.err != nil:
		sb.WriteString(rejectedStyle.Render("error: " + m.err.Error()))
	case m.result != nil:
		d := m.result.Diagnostics
		if d.Accepted {
			sb.WriteString(acceptedStyle.Render("accepted"))
		} else {
			sb.WriteString(rejectedStyle.Render("kept original (" + d.FallbackReason + ")"))
		}
		fmt.Fprintf(&sb, "  nodes %d→%d  %s → %s  %s",
			d.NodesBefore, d.NodesAfter, d.CostBefore, d.CostAfter, dimStyle.Render(d.Duration.Round(time.Microsecond).String()))
		applied := d.Applied()
		var parts []string
		for _, k := range m.order {
			if n := applied[k]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s×%d", k, n))
			}
		}
		if len(parts) > 0 {
			sb.WriteString("\n  rules: " + strings.Join(parts, " "))
		}
		for _, s := range d.Segments {
			if s.Fallback != "" {
				fmt.Fprintf(&sb, "\n  segment %d kept: %s", s.Index, s.Fallback)
			}
		}
	}
	if p := m.probabilities(); p != "" {
		sb.WriteString("\n  P(1): " + p)
	}
	return sb.String()
}

// probabilities reports per-qubit marginals of the active circuit run from
// |0…0⟩, or "" when the circuit is too wide or not unitary.
func (m Model) probabilities() string {
	c := m.original
	if m.active == paneOptimized {
		c = m.optimizedCircuit()
	}
	if c == nil || c.NumQubits > maxProbQubits {
		return ""
	}
	sv, err := statevec.Simulate(c)
	if err != nil {
		return ""
	}
	parts := make([]string, 0, sv.NumQubits)
	for q, p := range sv.Probabilities() {
		parts = append(parts, fmt.Sprintf("q%d=%.3f", q, p.Prob1))
	}
	return strings.Join(parts, " ")
}

// renderControlsPanel renders the bottom status and help bar.
func (m Model) renderControlsPanel(width, height int) string {
	var sb strings.Builder
	sb.WriteString(m.renderDiagnostics())
	sb.WriteString("\n")
	if m.statusMsg != "" {
		sb.WriteString(activeGateStyle.Render(m.statusMsg) + "  ")
	}
	sb.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return controlsStyle.Width(width).Height(height).Render(sb.String())
}

// ──────────────────────────── Overlay helpers ────────────────────────────

// overlayAt composites the overlay string on top of the background at position (x, y).
func overlayAt(bg, overlay string, x, y int) string {
	bgLines := strings.Split(bg, "\n")
	for i, ovLine := range strings.Split(overlay, "\n") {
		if idx := y + i; idx >= 0 && idx < len(bgLines) {
			bgLines[idx] = spliceLineAt(bgLines[idx], ovLine, x)
		}
	}
	return strings.Join(bgLines, "\n")
}

// spliceLineAt replaces the visible columns starting at x with overlay,
// keeping the escape sequences on both sides intact.
func spliceLineAt(bgLine, overlay string, x int) string {
	left := ansi.Truncate(bgLine, x, "")
	if pad := x - ansi.StringWidth(left); pad > 0 {
		left += strings.Repeat(" ", pad)
	}
	right := ""
	if end := x + ansi.StringWidth(overlay); end < ansi.StringWidth(bgLine) {
		right = ansi.TruncateLeft(bgLine, end, "")
	}
	return left + overlay + right
}

// ──────────────────────────── Layout ────────────────────────────

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	qasmWidth := m.width / 3
	circuitWidth := m.width - qasmWidth - 4
	controlsHeight := 7
	bodyHeight := max(m.height-controlsHeight-2, 8)
	half := max(bodyHeight/2-2, 4)

	circuits := lipgloss.JoinVertical(lipgloss.Left,
		m.renderCircuitPanel(paneOriginal, circuitWidth, half),
		m.renderCircuitPanel(paneOptimized, circuitWidth, half))
	top := lipgloss.JoinHorizontal(lipgloss.Top, circuits, m.renderQASMPanel(qasmWidth, bodyHeight))
	frame := lipgloss.JoinVertical(lipgloss.Left, top, m.renderControlsPanel(m.width-4, controlsHeight-2))

	if m.focus == focusMenu {
		frame = overlayAt(frame, m.renderMenu(), 2, 2)
	}
	return frame
}
