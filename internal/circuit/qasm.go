package circuit

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrParse is returned for QASM statements the reader cannot interpret.
var ErrParse = errors.New("qasm parse error")

// Pre-compiled regexps for QASM parsing.
var (
	qregRegex    = regexp.MustCompile(`^qreg\s+(\w+)\s*\[\s*(\d+)\s*\]$`)
	cregRegex    = regexp.MustCompile(`^creg\s+(\w+)\s*\[\s*(\d+)\s*\]$`)
	measureRegex = regexp.MustCompile(`^measure\s+(\w+)\s*\[\s*(\d+)\s*\]\s*->\s*(\w+)\s*\[\s*(\d+)\s*\]$`)
	ifRegex      = regexp.MustCompile(`^if\s*\(\s*(\w+)(?:\s*\[\s*(\d+)\s*\])?\s*==\s*(\d+)\s*\)\s*(.+)$`)
	gateRegex    = regexp.MustCompile(`^(\w+)\s*(?:\(([^)]*)\))?\s*(.*)$`)
	operandRegex = regexp.MustCompile(`^(\w+)\s*\[\s*(\d+)\s*\]$`)
	noiseRegex   = regexp.MustCompile(`^//\s*noise\s+(\w+)\s+q\[(\d+)\](?:\s+param=(` + paramPattern + `))?$`)
)

// register is a named slice of the flat qubit or bit index space.
type register struct {
	offset, size int
}

type qasmReader struct {
	c     *Circuit
	qregs map[string]register
	cregs map[string]register
}

// ParseQASM parses OpenQASM 2.0 text into a circuit.
//
// Registers are flattened in declaration order: with "qreg a[2]; qreg b[1];"
// b[0] becomes qubit 2. Gate names are kept as written (upper-cased), so gates
// the optimizer does not know still round-trip.
func ParseQASM(src string) (*Circuit, error) {
	r := &qasmReader{
		c:     New(0),
		qregs: make(map[string]register),
		cregs: make(map[string]register),
	}
	for n, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "//") {
			if m := noiseRegex.FindStringSubmatch(line); m != nil {
				target, _ := strconv.Atoi(m[2])
				var params []float64
				if p, ok := ParseParam(m[3]); ok {
					params = append(params, p)
				}
				r.c.AddNoise(target, m[1], params...)
			}
			continue
		}
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		for stmt := range strings.SplitSeq(line, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if err := r.statement(stmt); err != nil {
				return nil, fmt.Errorf("line %d: %w: %v", n+1, ErrParse, err)
			}
		}
	}
	return r.c, nil
}

func (r *qasmReader) statement(stmt string) error {
	switch {
	case strings.HasPrefix(stmt, "OPENQASM"), strings.HasPrefix(stmt, "include"):
		return nil
	case strings.HasPrefix(stmt, "gate "), strings.HasPrefix(stmt, "opaque "):
		return fmt.Errorf("custom gate definitions are not supported: %q", stmt)
	}

	if m := qregRegex.FindStringSubmatch(stmt); m != nil {
		size, _ := strconv.Atoi(m[2])
		r.qregs[m[1]] = register{offset: r.c.NumQubits, size: size}
		r.c.NumQubits += size
		return nil
	}
	if m := cregRegex.FindStringSubmatch(stmt); m != nil {
		size, _ := strconv.Atoi(m[2])
		r.cregs[m[1]] = register{offset: r.c.NumCbits, size: size}
		r.c.NumCbits += size
		return nil
	}
	if m := measureRegex.FindStringSubmatch(stmt); m != nil {
		q, err := r.resolve(r.qregs, m[1], m[2])
		if err != nil {
			return err
		}
		cb, err := r.resolve(r.cregs, m[3], m[4])
		if err != nil {
			return err
		}
		r.c.AddMeasure(q, cb)
		return nil
	}

	cbit, cval := -1, 0
	if m := ifRegex.FindStringSubmatch(stmt); m != nil {
		var err error
		if cbit, err = r.resolve(r.cregs, m[1], m[2]); err != nil {
			return err
		}
		cval, _ = strconv.Atoi(m[3])
		stmt = m[4]
	}

	m := gateRegex.FindStringSubmatch(stmt)
	if m == nil {
		return fmt.Errorf("unrecognized statement %q", stmt)
	}
	name := strings.ToLower(m[1])
	params, err := parseParamList(m[2])
	if err != nil {
		return err
	}

	if name == "barrier" {
		r.c.AddBarrier()
		return nil
	}

	var qubits []int
	for op := range strings.SplitSeq(m[3], ",") {
		om := operandRegex.FindStringSubmatch(strings.TrimSpace(op))
		if om == nil {
			return fmt.Errorf("bad operand %q in %q", strings.TrimSpace(op), stmt)
		}
		q, err := r.resolve(r.qregs, om[1], om[2])
		if err != nil {
			return err
		}
		qubits = append(qubits, q)
	}

	g := gateFromName(name, qubits)
	g.Params = params
	if cbit >= 0 {
		g.ClassicalControl = cbit
		g.ClassicalValue = cval
	}
	r.c.Append(g)
	return nil
}

// resolve maps reg[idx] to its flat index.
func (r *qasmReader) resolve(regs map[string]register, name, idx string) (int, error) {
	reg, ok := regs[name]
	if !ok {
		return 0, fmt.Errorf("undeclared register %q", name)
	}
	if idx == "" {
		return reg.offset, nil
	}
	i, _ := strconv.Atoi(idx)
	if i >= reg.size {
		return 0, fmt.Errorf("index %s out of range for %s[%d]", idx, name, reg.size)
	}
	return reg.offset + i, nil
}

// gateFromName builds a gate from its QASM name and operands. The last
// operand is the target; earlier operands are controls.
func gateFromName(name string, qubits []int) Gate {
	if name == "reset" {
		g := NewGate("RESET", qubits[0])
		g.IsReset = true
		return g
	}

	typ := strings.ToUpper(name)
	dagger := false
	switch name {
	case "sdg", "tdg", "sxdg":
		typ = strings.TrimSuffix(typ, "DG")
		dagger = true
	case "cnot":
		typ = "CX"
	case "toffoli":
		typ = "CCX"
	}

	g := NewGate(typ, qubits[len(qubits)-1])
	g.IsDagger = dagger
	switch len(qubits) {
	case 1:
	case 2:
		g.Control = qubits[0]
	default:
		g.Controls = append([]int(nil), qubits[:len(qubits)-1]...)
	}
	return g
}

// ToQASM generates QASM 2.0 output from the circuit.
func (c *Circuit) ToQASM() string {
	numQubits := max(c.NumQubits, 1)
	numCbits := max(c.NumCbits, 1)

	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", numQubits)
	fmt.Fprintf(&sb, "creg c[%d];\n\n", numCbits)

	for _, g := range c.Gates {
		writeGate(&sb, g, numQubits)
	}
	return sb.String()
}

func writeGate(sb *strings.Builder, g Gate, numQubits int) {
	switch {
	case g.Type == "BARRIER":
		qubits := make([]string, numQubits)
		for q := range numQubits {
			qubits[q] = fmt.Sprintf("q[%d]", q)
		}
		fmt.Fprintf(sb, "barrier %s;\n", strings.Join(qubits, ", "))
		return
	case g.IsNoise:
		// noise is not standard QASM and is kept as an annotation
		if len(g.Params) > 0 {
			fmt.Fprintf(sb, "// noise %s q[%d] param=%s\n", g.NoiseType, g.Target, FormatParam(g.Params[0]))
		} else {
			fmt.Fprintf(sb, "// noise %s q[%d]\n", g.NoiseType, g.Target)
		}
		return
	case g.Type == "MEASURE":
		fmt.Fprintf(sb, "measure q[%d] -> c[%d];\n", g.Target, g.Cbit)
		return
	}

	if g.ClassicalControl >= 0 {
		fmt.Fprintf(sb, "if (c[%d]==%d) ", g.ClassicalControl, g.ClassicalValue)
	}
	sb.WriteString(g.QASMName())
	if len(g.Params) > 0 {
		ps := make([]string, len(g.Params))
		for i, p := range g.Params {
			ps[i] = FormatParam(p)
		}
		fmt.Fprintf(sb, "(%s)", strings.Join(ps, ", "))
	}
	for i, q := range g.Qubits() {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "q[%d]", q)
	}
	sb.WriteString(";\n")
}

// QASMName returns the lower-case OpenQASM mnemonic of the gate.
func (g Gate) QASMName() string {
	if g.IsReset {
		return "reset"
	}
	name := strings.ToLower(g.Type)
	if g.IsDagger {
		name += "dg"
	}
	return name
}
