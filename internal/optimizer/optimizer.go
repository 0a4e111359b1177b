// Package optimizer runs circuits through the ZX pipeline: split into
// optimizable segments, import, simplify, extract, reassemble, and keep the
// result only when it is no worse than the input.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"qzxopt/internal/circuit"
	"qzxopt/internal/config"
	"qzxopt/internal/statevec"
	"qzxopt/internal/zx"
)

var tracer = otel.Tracer("qzxopt/optimizer")

// Fallback reasons reported in Diagnostics and SegmentReport.
const (
	ReasonNoImprovement     = "no improvement"
	ReasonVerifyFailed      = "verification failed"
	ReasonNothingToOptimize = "nothing to optimize"
)

// OptimizeFunc replaces the simplification step for one segment. It receives
// the imported diagram and returns the diagram to extract from.
type OptimizeFunc func(ctx context.Context, d *zx.Diagram) (*zx.Diagram, error)

type Option func(*Optimizer)

func WithLogger(l *zap.Logger) Option {
	return func(o *Optimizer) { o.log = l }
}

func WithConfig(cfg config.Config) Option {
	return func(o *Optimizer) { o.cfg = cfg }
}

// WithOptimizeFunc swaps the built-in simplification for fn.
func WithOptimizeFunc(fn OptimizeFunc) Option {
	return func(o *Optimizer) { o.hook = fn }
}

// Optimizer is safe for concurrent use; every call works on its own copies.
type Optimizer struct {
	log      *zap.Logger
	cfg      config.Config
	strategy zx.Strategy
	hook     OptimizeFunc
}

// New builds an optimizer. The configuration is validated here so a bad rule
// order fails once instead of on every circuit.
func New(opts ...Option) (*Optimizer, error) {
	o := &Optimizer{
		log: zap.NewNop(),
		cfg: config.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := o.cfg.Strategy()
	if err != nil {
		return nil, err
	}
	s.Logger = o.log
	o.strategy = s
	return o, nil
}

// SegmentReport describes what happened to one segment.
type SegmentReport struct {
	Index       int
	Optimizable bool
	GatesBefore int
	GatesAfter  int
	NodesBefore int
	NodesAfter  int
	Rounds      int
	Applied     map[zx.RuleKind]int
	Verified    bool
	// Fallback is set when the segment kept its original gates.
	Fallback string
}

type Diagnostics struct {
	RunID          string
	NodesBefore    int
	NodesAfter     int
	CostBefore     circuit.Cost
	CostAfter      circuit.Cost
	Accepted       bool
	FallbackReason string
	Segments       []SegmentReport
	Duration       time.Duration
}

// Applied sums rule applications over all segments.
func (d Diagnostics) Applied() map[zx.RuleKind]int {
	total := make(map[zx.RuleKind]int)
	for _, s := range d.Segments {
		for k, n := range s.Applied {
			total[k] += n
		}
	}
	return total
}

type Result struct {
	Circuit     *circuit.Circuit
	Diagnostics Diagnostics
}

// Optimize returns a circuit equivalent to c. Failures inside a segment fall
// back to that segment's original gates, and a result that costs more than c
// is discarded in favour of an unchanged copy of c. The only errors returned
// are a nil circuit and context cancellation.
func (o *Optimizer) Optimize(ctx context.Context, c *circuit.Circuit) (*Result, error) {
	if c == nil {
		return nil, errors.New("optimize: nil circuit")
	}
	start := time.Now()
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "optimizer.Optimize", trace.WithAttributes(
		attribute.String("qzx.run_id", runID),
		attribute.Int("qzx.qubits", c.NumQubits),
		attribute.Int("qzx.gates", len(c.Gates)),
	))
	defer span.End()
	log := o.log.With(zap.String("run_id", runID))

	diag := Diagnostics{RunID: runID, CostBefore: c.Cost()}
	segs := circuit.Split(c, zx.Supported)
	replaced, firstFallback := 0, ""
	for i := range segs {
		if err := ctx.Err(); err != nil {
			optimizationsTotal.WithLabelValues(OutcomeError).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("optimize: %w", err)
		}
		rep := SegmentReport{Index: i, Optimizable: segs[i].Optimizable, GatesBefore: len(segs[i].Gates)}
		if segs[i].Optimizable {
			segs[i].Gates, rep = o.optimizeSegment(ctx, log, c.NumQubits, segs[i], rep)
			if rep.Fallback == "" {
				replaced++
			} else if firstFallback == "" {
				firstFallback = fmt.Sprintf("segment %d: %s", i, rep.Fallback)
			}
		}
		rep.GatesAfter = len(segs[i].Gates)
		diag.NodesBefore += rep.NodesBefore
		diag.NodesAfter += rep.NodesAfter
		diag.Segments = append(diag.Segments, rep)
	}

	out := circuit.Join(c.NumQubits, c.NumCbits, segs)
	diag.CostAfter = out.Cost()
	switch {
	case replaced == 0 && firstFallback != "":
		diag.FallbackReason = firstFallback
	case replaced == 0:
		diag.FallbackReason = ReasonNothingToOptimize
	case diag.CostAfter.Compare(diag.CostBefore) > 0:
		diag.FallbackReason = ReasonNoImprovement
		out = c.Clone()
	default:
		diag.Accepted = true
	}
	diag.Duration = time.Since(start)

	o.record(diag)
	span.SetAttributes(
		attribute.Bool("qzx.accepted", diag.Accepted),
		attribute.Int("qzx.nodes_before", diag.NodesBefore),
		attribute.Int("qzx.nodes_after", diag.NodesAfter),
	)
	log.Info("optimized circuit",
		zap.Int("segments", len(segs)),
		zap.Stringer("before", diag.CostBefore),
		zap.Stringer("after", diag.CostAfter),
		zap.Bool("accepted", diag.Accepted),
		zap.Duration("took", diag.Duration))
	return &Result{Circuit: out, Diagnostics: diag}, nil
}

// optimizeSegment returns the gates to use for seg and the filled-in report.
// Any failure returns seg's own gates.
func (o *Optimizer) optimizeSegment(ctx context.Context, log *zap.Logger, numQubits int, seg circuit.Segment, rep SegmentReport) ([]circuit.Gate, SegmentReport) {
	log = log.With(zap.Int("segment", rep.Index))
	fallback := func(reason string, err error) ([]circuit.Gate, SegmentReport) {
		rep.Fallback = reason
		rep.NodesAfter = rep.NodesBefore
		log.Warn("segment kept unoptimized", zap.String("reason", reason), zap.Error(err))
		return seg.Gates, rep
	}

	sub := seg.Circuit(numQubits)
	d, err := zx.Import(sub)
	if err != nil {
		return fallback("import", err)
	}
	if err := d.Validate(); err != nil {
		return fallback("malformed diagram", err)
	}
	rep.NodesBefore = d.InteriorCount()

	if o.hook != nil {
		if d, err = o.hook(ctx, d); err != nil {
			return fallback("optimize hook", err)
		}
		if d == nil {
			return fallback("optimize hook", errors.New("hook returned no diagram"))
		}
	} else {
		res, err := zx.Simplify(ctx, d, o.strategy)
		rep.Rounds = res.Rounds
		rep.Applied = res.Applied
		if err != nil {
			return fallback("simplify", err)
		}
	}
	rep.NodesAfter = d.InteriorCount()

	ext, err := zx.Extract(ctx, d, zx.WithExtractLogger(log))
	if err != nil {
		return fallback("extraction", err)
	}
	if ext.NumQubits != numQubits {
		return fallback("extraction", fmt.Errorf("extracted %d qubits, want %d", ext.NumQubits, numQubits))
	}

	if o.cfg.Pipeline.Verify && numQubits <= o.cfg.Pipeline.VerifyMaxQubits {
		ok, err := statevec.Equivalent(sub, ext, o.cfg.Pipeline.VerifyMaxQubits, statevec.DefaultTolerance)
		if err != nil {
			return fallback(ReasonVerifyFailed, err)
		}
		if !ok {
			return fallback(ReasonVerifyFailed, errors.New("unitaries differ"))
		}
		rep.Verified = true
	}

	log.Debug("segment optimized",
		zap.Int("nodes_before", rep.NodesBefore),
		zap.Int("nodes_after", rep.NodesAfter),
		zap.Int("gates_before", len(seg.Gates)),
		zap.Int("gates_after", len(ext.Gates)))
	return ext.Gates, rep
}

func (o *Optimizer) record(diag Diagnostics) {
	outcome := OutcomeAccepted
	switch {
	case diag.Accepted:
	case diag.FallbackReason == ReasonNoImprovement:
		outcome = OutcomeNoImprovement
	default:
		outcome = OutcomeFallback
	}
	optimizationsTotal.WithLabelValues(outcome).Inc()
	optimizeDuration.Observe(diag.Duration.Seconds())
	if diag.NodesBefore > 0 {
		nodeReductionRatio.Observe(float64(diag.NodesAfter) / float64(diag.NodesBefore))
	}
	for k, n := range diag.Applied() {
		ruleApplicationsTotal.WithLabelValues(k.String()).Add(float64(n))
	}
}
