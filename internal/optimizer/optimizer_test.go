package optimizer

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"qzxopt/internal/circuit"
	"qzxopt/internal/config"
	"qzxopt/internal/phase"
	"qzxopt/internal/statevec"
	"qzxopt/internal/zx"
)

const header = "OPENQASM 2.0;\ninclude \"qelib1.inc\";\n"

func parse(t *testing.T, body string) *circuit.Circuit {
	t.Helper()
	c, err := circuit.ParseQASM(header + body)
	require.NoError(t, err)
	return c
}

func newOptimizer(t *testing.T, opts ...Option) *Optimizer {
	t.Helper()
	o, err := New(append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
	require.NoError(t, err)
	return o
}

func TestOptimizeMergesPhases(t *testing.T) {
	c := parse(t, "qreg q[1];\nt q[0];\nt q[0];")
	res, err := newOptimizer(t).Optimize(context.Background(), c)
	require.NoError(t, err)

	d := res.Diagnostics
	assert.True(t, d.Accepted)
	assert.Empty(t, d.FallbackReason)
	assert.NotEmpty(t, d.RunID)
	assert.Equal(t, 2, d.NodesBefore)
	assert.Equal(t, 1, d.NodesAfter)
	assert.Equal(t, 1, d.Applied()[zx.Fusion])

	require.Len(t, res.Circuit.Gates, 1)
	assert.Equal(t, "S", res.Circuit.Gates[0].Type)
}

func TestOptimizeKeepsPassthroughInPlace(t *testing.T) {
	c := parse(t, `qreg q[1];
creg c[1];
t q[0];
t q[0];
measure q[0] -> c[0];
t q[0];
tdg q[0];
`)
	res, err := newOptimizer(t).Optimize(context.Background(), c)
	require.NoError(t, err)
	require.True(t, res.Diagnostics.Accepted)

	want := header + "\nqreg q[1];\ncreg c[1];\n\ns q[0];\nmeasure q[0] -> c[0];\n"
	assert.Equal(t, want, res.Circuit.ToQASM())

	segs := res.Diagnostics.Segments
	require.Len(t, segs, 3)
	assert.True(t, segs[0].Optimizable)
	assert.False(t, segs[1].Optimizable)
	assert.Equal(t, 0, segs[2].GatesAfter)
}

func TestOptimizeRejectsWorseResult(t *testing.T) {
	// a lone cx extracts as h, cz, h
	c := parse(t, "qreg q[2];\ncx q[0], q[1];")
	before := testutil.ToFloat64(optimizationsTotal.WithLabelValues(OutcomeNoImprovement))

	res, err := newOptimizer(t).Optimize(context.Background(), c)
	require.NoError(t, err)

	assert.False(t, res.Diagnostics.Accepted)
	assert.Equal(t, ReasonNoImprovement, res.Diagnostics.FallbackReason)
	assert.Equal(t, c.ToQASM(), res.Circuit.ToQASM())
	assert.Equal(t, before+1, testutil.ToFloat64(optimizationsTotal.WithLabelValues(OutcomeNoImprovement)))
}

// rankDeficient returns a two-qubit diagram whose frontier matrix is
// [[1,1],[1,1]], so extraction can never peel a vertex.
func rankDeficient() *zx.Diagram {
	d := zx.NewDiagram()
	i0, i1 := d.AddInput(), d.AddInput()
	o0, o1 := d.AddOutput(), d.AddOutput()
	f0 := d.AddVertex(zx.Z, phase.Zero)
	f1 := d.AddVertex(zx.Z, phase.Zero)
	a := d.AddVertex(zx.Z, phase.Zero)
	b := d.AddVertex(zx.Z, phase.Zero)
	_ = d.AddEdge(o0, f0, zx.Plain)
	_ = d.AddEdge(o1, f1, zx.Plain)
	for _, f := range []zx.VertexID{f0, f1} {
		_ = d.AddEdge(f, a, zx.Hadamard)
		_ = d.AddEdge(f, b, zx.Hadamard)
	}
	_ = d.AddEdge(a, i0, zx.Plain)
	_ = d.AddEdge(b, i1, zx.Plain)
	return d
}

func TestExtractionFailureReturnsOriginal(t *testing.T) {
	c := parse(t, "qreg q[2];\nh q[0];\ncx q[0], q[1];\nt q[1];\ncx q[0], q[1];")
	o := newOptimizer(t, WithOptimizeFunc(func(context.Context, *zx.Diagram) (*zx.Diagram, error) {
		return rankDeficient(), nil
	}))

	before := testutil.ToFloat64(optimizationsTotal.WithLabelValues(OutcomeFallback))
	res, err := o.Optimize(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, c.ToQASM(), res.Circuit.ToQASM())
	assert.Equal(t, c.Gates, res.Circuit.Gates)
	require.Len(t, res.Diagnostics.Segments, 1)
	assert.Equal(t, "extraction", res.Diagnostics.Segments[0].Fallback)
	assert.Equal(t, res.Diagnostics.NodesBefore, res.Diagnostics.NodesAfter)

	assert.False(t, res.Diagnostics.Accepted)
	assert.Equal(t, "segment 0: extraction", res.Diagnostics.FallbackReason)
	assert.Equal(t, before+1, testutil.ToFloat64(optimizationsTotal.WithLabelValues(OutcomeFallback)))
}

func TestPartialFallbackIsAccepted(t *testing.T) {
	c := parse(t, "qreg q[1];\ncreg c[1];\nt q[0];\nt q[0];\nmeasure q[0] -> c[0];\nh q[0];")
	calls := 0
	o := newOptimizer(t, WithOptimizeFunc(func(_ context.Context, d *zx.Diagram) (*zx.Diagram, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("boom")
		}
		_, err := zx.Simplify(context.Background(), d, zx.DefaultStrategy())
		return d, err
	}))
	res, err := o.Optimize(context.Background(), c)
	require.NoError(t, err)

	d := res.Diagnostics
	assert.True(t, d.Accepted)
	assert.Empty(t, d.FallbackReason)
	assert.Empty(t, d.Segments[0].Fallback)
	assert.Equal(t, "optimize hook", d.Segments[2].Fallback)
	require.Len(t, res.Circuit.Gates, 3)
	assert.Equal(t, "S", res.Circuit.Gates[0].Type)
}

func TestNothingToOptimize(t *testing.T) {
	c := parse(t, "qreg q[1];\ncreg c[1];\nmeasure q[0] -> c[0];")
	res, err := newOptimizer(t).Optimize(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, res.Diagnostics.Accepted)
	assert.Equal(t, ReasonNothingToOptimize, res.Diagnostics.FallbackReason)
	assert.Equal(t, c.ToQASM(), res.Circuit.ToQASM())
}

func TestHookErrorFallsBack(t *testing.T) {
	c := parse(t, "qreg q[1];\nt q[0];\nt q[0];")
	o := newOptimizer(t, WithOptimizeFunc(func(context.Context, *zx.Diagram) (*zx.Diagram, error) {
		return nil, errors.New("boom")
	}))
	res, err := o.Optimize(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, c.ToQASM(), res.Circuit.ToQASM())
	assert.Equal(t, "optimize hook", res.Diagnostics.Segments[0].Fallback)
	assert.False(t, res.Diagnostics.Accepted)
}

func TestVerifyRejectsWrongRewrite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pipeline.Verify = true
	c := parse(t, "qreg q[1];\nt q[0];\nt q[0];")

	// flips the phase of the first spider, changing the unitary
	o := newOptimizer(t, WithConfig(cfg), WithOptimizeFunc(func(_ context.Context, d *zx.Diagram) (*zx.Diagram, error) {
		for v := range d.Vertices() {
			if d.Kind(v) == zx.Z {
				d.SetPhase(v, phase.Half)
				break
			}
		}
		return d, nil
	}))
	res, err := o.Optimize(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, c.ToQASM(), res.Circuit.ToQASM())
	assert.Equal(t, ReasonVerifyFailed, res.Diagnostics.Segments[0].Fallback)
	assert.False(t, res.Diagnostics.Accepted)
	assert.Contains(t, res.Diagnostics.FallbackReason, ReasonVerifyFailed)
}

func TestVerifyAcceptsSimplification(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pipeline.Verify = true
	c := parse(t, "qreg q[2];\nh q[0];\ncx q[0], q[1];\nt q[1];\ncx q[0], q[1];\nh q[0];")

	res, err := newOptimizer(t, WithConfig(cfg)).Optimize(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics.Segments, 1)
	assert.True(t, res.Diagnostics.Segments[0].Verified)
	assert.Empty(t, res.Diagnostics.Segments[0].Fallback)
}

func TestOptimizeIsEquivalent(t *testing.T) {
	circuits := []string{
		"qreg q[2];\nh q[0];\ncx q[0], q[1];\nt q[1];\ncx q[0], q[1];\nh q[0];",
		"qreg q[3];\nh q[0];\nccx q[0], q[1], q[2];\nt q[2];\nccx q[0], q[1], q[2];",
		"qreg q[3];\ncx q[0], q[1];\ncx q[1], q[2];\ncx q[0], q[1];\ns q[2];\nswap q[0], q[2];",
		"qreg q[2];\nrz(pi/4) q[0];\nrz(pi/4) q[0];\nh q[1];\nh q[1];\ncz q[0], q[1];\ncz q[0], q[1];",
		"qreg q[3];\ncp(pi/2) q[0], q[1];\ncrz(pi/4) q[1], q[2];\nu3(pi/2, 0, pi) q[0];\nt q[1];\ntdg q[1];",
	}
	o := newOptimizer(t)
	for _, src := range circuits {
		c := parse(t, src)
		res, err := o.Optimize(context.Background(), c)
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Diagnostics.CostAfter.Compare(res.Diagnostics.CostBefore), 0)

		ok, err := statevec.Equivalent(c, res.Circuit, 8, 1e-8)
		require.NoError(t, err)
		assert.True(t, ok, "input:\n%s\noutput:\n%s", c.ToQASM(), res.Circuit.ToQASM())
	}
}

func TestOptimizeCoprimeRotations(t *testing.T) {
	// the four angles have no common denominator a phase can hold
	c := parse(t, "qreg q[1];\nrz(2*pi/4093) q[0];\nrz(2*pi/4091) q[0];\nrz(2*pi/4079) q[0];\nrz(2*pi/4073) q[0];")
	for _, g := range c.Gates {
		require.True(t, zx.Supported(g))
	}

	res, err := newOptimizer(t).Optimize(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, res.Diagnostics.Accepted)
	assert.Equal(t, 2, res.Diagnostics.Applied()[zx.Fusion])
	assert.Len(t, res.Circuit.Gates, 2)

	ok, err := statevec.Equivalent(c, res.Circuit, 8, 1e-8)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOptimizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newOptimizer(t).Optimize(ctx, parse(t, "qreg q[1];\nh q[0];"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestOptimizeNil(t *testing.T) {
	_, err := newOptimizer(t).Optimize(context.Background(), nil)
	require.Error(t, err)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Simplify.RuleOrder = []string{"fusion", "teleport"}
	_, err := New(WithConfig(cfg))
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRuleMetrics(t *testing.T) {
	fusion := ruleApplicationsTotal.WithLabelValues(zx.Fusion.String())
	before := testutil.ToFloat64(fusion)

	_, err := newOptimizer(t).Optimize(context.Background(), parse(t, "qreg q[1];\nt q[0];\nt q[0];\nt q[0];"))
	require.NoError(t, err)
	assert.Greater(t, testutil.ToFloat64(fusion), before)
}

func TestOptimizeSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	_, err := newOptimizer(t).Optimize(context.Background(), parse(t, "qreg q[1];\nt q[0];\nt q[0];"))
	require.NoError(t, err)

	names := map[string]bool{}
	var root sdktrace.ReadOnlySpan
	for _, s := range rec.Ended() {
		names[s.Name()] = true
		if s.Name() == "optimizer.Optimize" {
			root = s
		}
	}
	assert.True(t, names["optimizer.Optimize"])
	assert.True(t, names["zx.Simplify"])
	assert.True(t, names["zx.Extract"])
	require.NotNil(t, root)
	for _, s := range rec.Ended() {
		if s.Name() == "zx.Extract" {
			assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID())
		}
	}
}
