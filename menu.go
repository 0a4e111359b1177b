package main

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"qzxopt/internal/zx"
)

// menuRule is one row of the rule-priority menu.
type menuRule struct {
	kind    zx.RuleKind
	enabled bool
}

// menuRulesFor lists the enabled rules in priority order, followed by the
// disabled ones.
func menuRulesFor(order []zx.RuleKind) []menuRule {
	rules := make([]menuRule, 0, len(zx.AllRules))
	for _, k := range order {
		rules = append(rules, menuRule{kind: k, enabled: true})
	}
	for _, k := range zx.AllRules {
		if !slices.Contains(order, k) {
			rules = append(rules, menuRule{kind: k})
		}
	}
	return rules
}

func (m *Model) openMenu() {
	m.menuRules = menuRulesFor(m.order)
	m.menuIdx = 0
	m.focus = focusMenu
}

// menuOrder returns the enabled rules of the menu in their listed order.
func (m Model) menuOrder() []zx.RuleKind {
	var order []zx.RuleKind
	for _, r := range m.menuRules {
		if r.enabled {
			order = append(order, r.kind)
		}
	}
	return order
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.menuRules)
	switch msg.String() {
	case "esc", "q":
		m.focus = focusCircuit
	case "up", "k":
		if m.menuIdx > 0 {
			m.menuIdx--
		}
	case "down", "j":
		if m.menuIdx < n-1 {
			m.menuIdx++
		}
	case "shift+up", "K":
		if m.menuIdx > 0 {
			m.menuRules[m.menuIdx], m.menuRules[m.menuIdx-1] = m.menuRules[m.menuIdx-1], m.menuRules[m.menuIdx]
			m.menuIdx--
		}
	case "shift+down", "J":
		if m.menuIdx < n-1 {
			m.menuRules[m.menuIdx], m.menuRules[m.menuIdx+1] = m.menuRules[m.menuIdx+1], m.menuRules[m.menuIdx]
			m.menuIdx++
		}
	case " ":
		r := &m.menuRules[m.menuIdx]
		if r.enabled && len(m.menuOrder()) == 1 {
			m.statusMsg = "At least one rule must stay enabled"
			break
		}
		r.enabled = !r.enabled
	case "enter":
		order := m.menuOrder()
		names := make([]string, len(order))
		for i, k := range order {
			names[i] = k.String()
		}
		m.focus = focusCircuit
		if slices.Equal(order, m.order) {
			return m, nil
		}
		m.order = order
		m.cfg.Simplify.RuleOrder = names
		m.statusMsg = "Rule order: " + strings.Join(names, ", ")
		return m, m.rerun()
	}
	return m, nil
}

// renderMenu renders the floating rule-priority popup.
func (m Model) renderMenu() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Rule Priority"))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(strings.Repeat("─", 46)))
	sb.WriteString("\n")

	for i, r := range m.menuRules {
		mark := "[x]"
		if !r.enabled {
			mark = "[ ]"
		}
		line := fmt.Sprintf("%s %-9s", mark, r.kind)
		if i == m.menuIdx {
			sb.WriteString(menuSelectedStyle.Render(" ▸ " + line))
		} else if r.enabled {
			sb.WriteString("   " + menuNormalStyle.Render(line))
		} else {
			sb.WriteString("   " + dimStyle.Render(line))
		}
		sb.WriteString(" " + dimStyle.Render(r.kind.Description()))
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render(" ↑↓ Select  ⇧↑↓ Move  Space Toggle  ⏎ Run  Esc ✕"))

	return menuBorderStyle.Render(sb.String())
}
