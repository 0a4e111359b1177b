package zx

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"qzxopt/internal/circuit"
	"qzxopt/internal/phase"
	"qzxopt/internal/statevec"
)

func parse(t *testing.T, body string) *circuit.Circuit {
	t.Helper()
	c, err := circuit.ParseQASM("OPENQASM 2.0;\ninclude \"qelib1.inc\";\n" + body)
	require.NoError(t, err)
	return c
}

var equivalenceCircuits = []struct {
	name string
	qasm string
}{
	{"double hadamard", "qreg q[1];\nh q[0];\nh q[0];"},
	{"cnot", "qreg q[2];\ncx q[0], q[1];"},
	{"reversed cnot", "qreg q[2];\ncx q[1], q[0];"},
	{"swap", "qreg q[2];\nswap q[0], q[1];"},
	{"t sandwich", "qreg q[2];\nh q[0];\ncx q[0], q[1];\nt q[1];\ncx q[0], q[1];\nh q[0];"},
	{"clifford mix", "qreg q[2];\ns q[0];\nh q[1];\ncz q[0], q[1];\nsdg q[1];\nx q[0];\ny q[1];"},
	{"rotations", "qreg q[2];\nrz(pi/4) q[0];\nrx(pi/2) q[1];\ncx q[0], q[1];\nu3(pi/2, pi/4, pi) q[1];\nry(3*pi/4) q[0];"},
	{"controlled phases", "qreg q[3];\ncp(pi/2) q[0], q[1];\ncrz(pi/2) q[1], q[2];\ncx q[2], q[0];"},
	{"toffoli", "qreg q[3];\nh q[0];\nccx q[0], q[1], q[2];\nt q[2];"},
	{"ghz", "qreg q[3];\nh q[0];\ncx q[0], q[1];\ncx q[1], q[2];\nsx q[2];"},
}

func TestImportExtractEquivalence(t *testing.T) {
	for _, tt := range equivalenceCircuits {
		t.Run(tt.name, func(t *testing.T) {
			c := parse(t, tt.qasm)
			d, err := Import(c)
			require.NoError(t, err)
			require.NoError(t, d.Validate())

			out, err := Extract(context.Background(), d)
			require.NoError(t, err)
			assert.Equal(t, c.NumQubits, out.NumQubits)

			ok, err := statevec.Equivalent(c, out, 8, 1e-8)
			require.NoError(t, err)
			assert.True(t, ok, "extracted circuit:\n%s", out.ToQASM())
		})
	}
}

func TestSimplifyExtractEquivalence(t *testing.T) {
	for _, tt := range equivalenceCircuits {
		t.Run(tt.name, func(t *testing.T) {
			c := parse(t, tt.qasm)
			d, err := Import(c)
			require.NoError(t, err)

			s := DefaultStrategy()
			s.Logger = zaptest.NewLogger(t)
			res, err := Simplify(context.Background(), d, s)
			require.NoError(t, err)
			assert.LessOrEqual(t, res.NodesAfter, res.NodesBefore)
			require.NoError(t, d.Validate())

			out, err := Extract(context.Background(), d, WithExtractLogger(zaptest.NewLogger(t)))
			require.NoError(t, err)

			ok, err := statevec.Equivalent(c, out, 8, 1e-8)
			require.NoError(t, err)
			assert.True(t, ok, "extracted circuit:\n%s", out.ToQASM())
		})
	}
}

func TestExtractBareWires(t *testing.T) {
	d, err := Import(circuit.New(3))
	require.NoError(t, err)

	out, err := Extract(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 3, out.NumQubits)
	assert.Empty(t, out.Gates)
}

func TestExtractPermutation(t *testing.T) {
	// outputs wired straight to crossed inputs
	d := NewDiagram()
	i0, i1 := d.AddInput(), d.AddInput()
	o0, o1 := d.AddOutput(), d.AddOutput()
	require.NoError(t, d.AddEdge(i1, o0, Plain))
	require.NoError(t, d.AddEdge(i0, o1, Plain))

	out, err := Extract(context.Background(), d)
	require.NoError(t, err)
	require.Len(t, out.Gates, 1)
	assert.Equal(t, "SWAP", out.Gates[0].Type)
}

func TestExtractLeavesDiagramUntouched(t *testing.T) {
	d, err := Import(parse(t, "qreg q[2];\nh q[0];\ncx q[0], q[1];\nt q[1];"))
	require.NoError(t, err)
	before := d.Stats()

	_, err = Extract(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, before, d.Stats())
}

// rankDeficient wires both outputs through the same two spiders, so the
// frontier matrix is [[1,1],[1,1]] and has no inverse.
func rankDeficient(t *testing.T) *Diagram {
	t.Helper()
	d := NewDiagram()
	i0, i1 := d.AddInput(), d.AddInput()
	o0, o1 := d.AddOutput(), d.AddOutput()
	f0 := d.AddVertex(Z, phase.Zero)
	f1 := d.AddVertex(Z, phase.Zero)
	a := d.AddVertex(Z, phase.Zero)
	b := d.AddVertex(Z, phase.Zero)
	require.NoError(t, d.AddEdge(o0, f0, Plain))
	require.NoError(t, d.AddEdge(o1, f1, Plain))
	for _, f := range []VertexID{f0, f1} {
		require.NoError(t, d.AddEdge(f, a, Hadamard))
		require.NoError(t, d.AddEdge(f, b, Hadamard))
	}
	require.NoError(t, d.AddEdge(a, i0, Plain))
	require.NoError(t, d.AddEdge(b, i1, Plain))
	return d
}

func TestExtractFailsOnRankDeficientFrontier(t *testing.T) {
	d := rankDeficient(t)
	require.NoError(t, d.Validate())

	_, err := Extract(context.Background(), d)
	require.ErrorIs(t, err, ErrExtractionFailure)
}

func TestExtractRejectsMalformed(t *testing.T) {
	d := NewDiagram()
	d.AddInput()
	_, err := Extract(context.Background(), d)
	require.ErrorIs(t, err, ErrMalformedDiagram)
}

func TestExtractObserver(t *testing.T) {
	d, err := Import(parse(t, "qreg q[2];\nh q[0];\ncx q[0], q[1];\ns q[1];"))
	require.NoError(t, err)

	var events []ExtractEvent
	out, err := Extract(context.Background(), d, WithObserver(func(e ExtractEvent) {
		events = append(events, e)
	}))
	require.NoError(t, err)
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, StateDone, last.State)
	assert.Equal(t, 0, last.Frontier)
	assert.Equal(t, len(out.Gates), last.Gates+countSwaps(out))
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Gates, events[i-1].Gates)
	}
}

func countSwaps(c *circuit.Circuit) int {
	n := 0
	for _, g := range c.Gates {
		if g.Type == "SWAP" {
			n++
		}
	}
	return n
}

func TestPhaseGateNames(t *testing.T) {
	d, err := Import(parse(t, "qreg q[1];\nt q[0];\nt q[0];"))
	require.NoError(t, err)
	_, err = Simplify(context.Background(), d, DefaultStrategy())
	require.NoError(t, err)
	assert.Equal(t, 1, d.InteriorCount())

	out, err := Extract(context.Background(), d)
	require.NoError(t, err)
	require.Len(t, out.Gates, 1)
	assert.Equal(t, "S", out.Gates[0].Type)
	assert.False(t, out.Gates[0].IsDagger)
}

func TestExtractSpidersLeftUnfused(t *testing.T) {
	c := parse(t, "qreg q[1];\nrz(2*pi/4093) q[0];\nrz(2*pi/4091) q[0];\nrz(2*pi/4079) q[0];\nrz(2*pi/4073) q[0];")
	d, err := Import(c)
	require.NoError(t, err)
	_, err = Simplify(context.Background(), d, DefaultStrategy())
	require.NoError(t, err)
	require.Equal(t, 2, d.InteriorCount())

	out, err := Extract(context.Background(), d)
	require.NoError(t, err)
	assert.Len(t, out.Gates, 2)

	ok, err := statevec.Equivalent(c, out, 8, 1e-8)
	require.NoError(t, err)
	assert.True(t, ok, "extracted circuit:\n%s", out.ToQASM())
}

// randomCircuit draws a Clifford+T circuit with a few arbitrary rotations.
func randomCircuit(r *rand.Rand, qubits, gates int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "qreg q[%d];\n", qubits)
	single := []string{"h", "s", "sdg", "t", "tdg", "x", "z", "sx"}
	for range gates {
		a := r.IntN(qubits)
		b := (a + 1 + r.IntN(qubits-1)) % qubits
		switch k := r.IntN(10); {
		case k < 5:
			fmt.Fprintf(&sb, "%s q[%d];\n", single[r.IntN(len(single))], a)
		case k < 6:
			fmt.Fprintf(&sb, "rz(%d*pi/%d) q[%d];\n", 1+r.IntN(7), []int{3, 4, 8, 16}[r.IntN(4)], a)
		case k < 8:
			fmt.Fprintf(&sb, "cx q[%d], q[%d];\n", a, b)
		case k < 9:
			fmt.Fprintf(&sb, "cz q[%d], q[%d];\n", a, b)
		default:
			fmt.Fprintf(&sb, "swap q[%d], q[%d];\n", a, b)
		}
	}
	return sb.String()
}

func TestRandomCircuitsStayEquivalent(t *testing.T) {
	orders := [][]RuleKind{
		AllRules,
		{Pivoting, LocalComplementation, IdentityRemoval, Fusion},
		{IdentityRemoval, Fusion},
	}
	r := rand.New(rand.NewPCG(7, 11))
	for i := range 150 {
		src := randomCircuit(r, 2+r.IntN(3), 4+r.IntN(24))
		c := parse(t, src)
		for _, order := range orders {
			d, err := Import(c)
			require.NoError(t, err)
			_, err = Simplify(context.Background(), d, Strategy{Order: order, GraphLike: true})
			require.NoError(t, err, "circuit %d:\n%s", i, src)

			out, err := Extract(context.Background(), d)
			require.NoError(t, err, "circuit %d order %v:\n%s", i, order, src)

			ok, err := statevec.Equivalent(c, out, 8, 1e-8)
			require.NoError(t, err)
			require.True(t, ok, "circuit %d order %v:\n%s\nextracted:\n%s", i, order, src, out.ToQASM())
		}
	}
}
