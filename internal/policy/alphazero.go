// Package policy implements the two Policy Driver styles named in the spec:
// AlphaZero (search directly over the real game) and MuZero (search over a
// latent-space Simulated game reached via a representation network). Both
// drive internal/puct.Search and submit their network calls through
// internal/scheduler, so many concurrent Play calls share one batched model.
//
// Grounded on original_source's ggpf/src/policies/mcts/muz/mod.rs (MuzPolicy::play)
// and ggpf/src/policies/mcts/puct/mod.rs (PUCTPolicy_::play, the AlphaZero case).
package policy

import (
	"context"

	"github.com/janpfeifer/ggpfgo/internal/game"
	"github.com/janpfeifer/ggpfgo/internal/puct"
	"github.com/janpfeifer/ggpfgo/internal/scheduler"
)

// PredictionResult is a single prediction network output: a dense policy over
// the full action space plus a decoded scalar value.
type PredictionResult struct {
	Policy []float32
	Value  float32
}

// Predictor is the subset of model.PredictionNet a driver needs, batched.
type Predictor interface {
	PredictBatch(stateFeatures [][]float32) (policies [][]float32, values []float32, err error)
}

// predictionBatchFunc adapts a Predictor into the scheduler.BatchFunc shape.
func predictionBatchFunc(net Predictor) scheduler.BatchFunc[[]float32, PredictionResult] {
	return func(reqs [][]float32) ([]PredictionResult, error) {
		policies, values, err := net.PredictBatch(reqs)
		if err != nil {
			return nil, err
		}
		out := make([]PredictionResult, len(reqs))
		for i := range reqs {
			out[i] = PredictionResult{Policy: policies[i], Value: values[i]}
		}
		return out, nil
	}
}

// AlphaZeroDriver runs PUCT directly over a real game, evaluating each leaf with
// a batched prediction network. One driver's scheduler can be shared by many
// concurrent Play calls (see internal/engine).
type AlphaZeroDriver[S game.State, M game.Move] struct {
	g         game.Features[S, M]
	sched     *scheduler.Scheduler[[]float32, PredictionResult]
	nPlayouts int
	cfg       puct.Config
}

// NewAlphaZeroDriver builds a driver around g and net, batching prediction calls
// according to schedCfg and running nPlayouts PUCT playouts per Play call.
func NewAlphaZeroDriver[S game.State, M game.Move](ctx context.Context, g game.Features[S, M], net Predictor, schedCfg scheduler.Config, nPlayouts int, cfg puct.Config) *AlphaZeroDriver[S, M] {
	return &AlphaZeroDriver[S, M]{
		g:         g,
		sched:     scheduler.New(ctx, schedCfg, predictionBatchFunc(net)),
		nPlayouts: nPlayouts,
		cfg:       cfg,
	}
}

// Play runs a fresh PUCT search from state and returns the chosen move and its
// root visit-count policy (a training target, per the spec's self-play use case).
func (d *AlphaZeroDriver[S, M]) Play(ctx context.Context, state S) (M, map[M]float32, error) {
	eval := func(s S) (map[M]float32, float32, error) {
		features := d.g.StateToFeature(s)
		result, err := d.sched.Submit(ctx, features)
		if err != nil {
			var zero map[M]float32
			return zero, 0, err
		}
		return d.g.FeatureToMoves(s, result.Policy), result.Value, nil
	}
	search := puct.New[S, M](d.g, state, d.cfg, eval)
	best, err := search.Play(d.nPlayouts)
	if err != nil {
		var zero M
		return zero, nil, err
	}
	return best, search.VisitPolicy(), nil
}
