package zx

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("qzxopt/zx")

// Strategy configures Simplify.
type Strategy struct {
	// Order is the rule priority. Nil means AllRules.
	Order []RuleKind
	// GraphLike converts the diagram to graph-like form first: H-boxes
	// become hadamard edges and X spiders are recoloured to Z.
	GraphLike bool
	// MaxRounds bounds the number of rewrite rounds; 0 means unlimited.
	MaxRounds int
	Logger    *zap.Logger
}

// DefaultStrategy returns the strategy used when nothing is configured.
func DefaultStrategy() Strategy {
	return Strategy{Order: slices.Clone(AllRules), GraphLike: true}
}

// SimplifyResult reports the effect of Simplify.
type SimplifyResult struct {
	NodesBefore int
	NodesAfter  int
	EdgesBefore int
	EdgesAfter  int
	Rounds      int
	Applied     map[RuleKind]int
}

// Simplify rewrites d in place until no rule in s.Order matches.
func Simplify(ctx context.Context, d *Diagram, s Strategy) (SimplifyResult, error) {
	_, span := tracer.Start(ctx, "zx.Simplify")
	defer span.End()

	order := s.Order
	if order == nil {
		order = AllRules
	}
	res := SimplifyResult{
		NodesBefore: d.InteriorCount(),
		EdgesBefore: d.EdgeCount(),
	}
	if s.GraphLike {
		ToGraphLike(d)
	}
	eng := &Engine{Order: order, MaxRounds: s.MaxRounds, Logger: s.Logger}
	stats, err := eng.Run(d)
	res.Rounds = stats.Rounds
	res.Applied = stats.Applied
	res.NodesAfter = d.InteriorCount()
	res.EdgesAfter = d.EdgeCount()

	span.SetAttributes(
		attribute.Int("zx.nodes_before", res.NodesBefore),
		attribute.Int("zx.nodes_after", res.NodesAfter),
		attribute.Int("zx.rounds", res.Rounds),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	return res, nil
}

// ToGraphLike removes H-boxes of degree 2 in favour of hadamard edges and
// recolours every X spider to Z by toggling its edges. It does not change
// the interior count except by the removed H-boxes.
func ToGraphLike(d *Diagram) {
	for changed := true; changed; {
		changed = false
		for v := range d.Vertices() {
			if d.Kind(v) != HBox || d.Degree(v) != 2 {
				continue
			}
			ns := d.Neighbors(v)
			a, b := ns[0], ns[1]
			if d.Connected(a, b) && (!d.Kind(a).IsSpider() || !d.Kind(b).IsSpider()) {
				continue
			}
			ta, _ := d.EdgeType(v, a)
			tb, _ := d.EdgeType(v, b)
			d.RemoveVertex(v)
			d.AddEdgeSmart(a, b, FuseEdgePair(FuseEdgePair(ta, Hadamard), tb))
			changed = true
		}
	}

	for v := range d.Vertices() {
		if d.Kind(v) != X {
			continue
		}
		d.SetKind(v, Z)
		for _, n := range d.Neighbors(v) {
			t, _ := d.EdgeType(v, n)
			d.SetEdgeType(v, n, t.Toggle())
		}
	}
}
