package zx

import (
	"fmt"

	"go.uber.org/zap"
)

// Engine applies rewrite rules to a diagram until none matches.
//
// Each round picks the first rule in Order that has a match, collects a
// batch of its matches with pairwise disjoint footprints, and applies them.
// Matches are derived afresh every round and never reused.
type Engine struct {
	Order     []RuleKind
	MaxRounds int // 0 means unlimited
	Logger    *zap.Logger
}

// EngineStats reports what a run of the engine did.
type EngineStats struct {
	Rounds  int
	Applied map[RuleKind]int
}

// Total returns the number of rule applications.
func (s EngineStats) Total() int {
	n := 0
	for _, c := range s.Applied {
		n += c
	}
	return n
}

// Run rewrites d to a fixpoint of e.Order. It returns ErrRoundLimit if
// MaxRounds batches were applied and matches remain.
func (e *Engine) Run(d *Diagram) (EngineStats, error) {
	log := e.Logger
	if log == nil {
		log = zap.NewNop()
	}
	stats := EngineStats{Applied: make(map[RuleKind]int)}
	for {
		kind, batch := e.nextBatch(d)
		if len(batch) == 0 {
			return stats, nil
		}
		if e.MaxRounds > 0 && stats.Rounds >= e.MaxRounds {
			return stats, fmt.Errorf("%w: %d rounds, %s still matches", ErrRoundLimit, stats.Rounds, kind)
		}
		for _, m := range batch {
			kind.Apply(d, m)
		}
		stats.Rounds++
		stats.Applied[kind] += len(batch)
		log.Debug("rewrite round",
			zap.Int("round", stats.Rounds),
			zap.Stringer("rule", kind),
			zap.Int("matches", len(batch)),
			zap.Int("interior", d.InteriorCount()))
	}
}

// nextBatch returns the highest-priority rule with matches and a greedy
// selection of its matches whose footprints do not overlap.
func (e *Engine) nextBatch(d *Diagram) (RuleKind, []Match) {
	for _, kind := range e.Order {
		claimed := make(map[VertexID]bool)
		var batch []Match
		for m := range kind.Matches(d) {
			fp := m.Footprint(d)
			if overlaps(claimed, fp) {
				continue
			}
			for _, v := range fp {
				claimed[v] = true
			}
			batch = append(batch, m)
		}
		if len(batch) > 0 {
			return kind, batch
		}
	}
	return 0, nil
}

func overlaps(claimed map[VertexID]bool, fp []VertexID) bool {
	for _, v := range fp {
		if claimed[v] {
			return true
		}
	}
	return false
}
