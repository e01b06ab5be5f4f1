package policy

import (
	"context"

	"github.com/janpfeifer/ggpfgo/internal/game"
	"github.com/janpfeifer/ggpfgo/internal/puct"
	"github.com/janpfeifer/ggpfgo/internal/scheduler"
	"github.com/janpfeifer/ggpfgo/internal/simgame"
)

// Representer is the subset of model.RepresentationNet a driver needs, batched.
type Representer interface {
	RepresentBatch(obs [][]float32) (latents [][]float32, err error)
}

// DynamicsResult is a single dynamics network output.
type DynamicsResult struct {
	NextLatent []float32
	Reward     float32
}

// dynamicsRequest bundles a latent state with the action played from it, the
// dynamics network's input.
type dynamicsRequest struct {
	Latent []float32
	Action []float32
}

// Dynamicer is the subset of model.DynamicsNet a driver needs, batched.
type Dynamicer interface {
	DynamicsBatch(latents, actions [][]float32) (nextLatents [][]float32, rewards []float32, err error)
}

func representationBatchFunc(net Representer) scheduler.BatchFunc[[]float32, []float32] {
	return func(reqs [][]float32) ([][]float32, error) {
		return net.RepresentBatch(reqs)
	}
}

func dynamicsBatchFunc(net Dynamicer) scheduler.BatchFunc[dynamicsRequest, DynamicsResult] {
	return func(reqs []dynamicsRequest) ([]DynamicsResult, error) {
		latents := make([][]float32, len(reqs))
		actions := make([][]float32, len(reqs))
		for i, r := range reqs {
			latents[i], actions[i] = r.Latent, r.Action
		}
		nextLatents, rewards, err := net.DynamicsBatch(latents, actions)
		if err != nil {
			return nil, err
		}
		out := make([]DynamicsResult, len(reqs))
		for i := range reqs {
			out[i] = DynamicsResult{NextLatent: nextLatents[i], Reward: rewards[i]}
		}
		return out, nil
	}
}

// scheduledDynamics adapts a dynamics scheduler into simgame.Dynamics, routing
// every Simulated.Play call through the shared batched network.
type scheduledDynamics[M game.Move] struct {
	ctx   context.Context
	sched *scheduler.Scheduler[dynamicsRequest, DynamicsResult]
}

func (d scheduledDynamics[M]) Dynamics(latent, action []float32) ([]float32, float32, error) {
	result, err := d.sched.Submit(d.ctx, dynamicsRequest{Latent: latent, Action: action})
	if err != nil {
		return nil, 0, err
	}
	return result.NextLatent, result.Reward, nil
}

// MuZeroDriver searches a real game through its latent representation only: a
// representation call turns the current real state into a latent one, and every
// PUCT playout from then on advances that latent state via the dynamics network
// (internal/simgame.Simulated), never touching the real game's rules again.
//
// allMoves fixes the full action space the dynamics/prediction networks were
// trained against; it need not match PossibleMoves(state) at every real state
// (MuZero networks are expected to learn which outputs are actually legal).
type MuZeroDriver[S game.State, M game.Move] struct {
	g         game.Features[S, M]
	allMoves  []M
	reprSched *scheduler.Scheduler[[]float32, []float32]
	dynSched  *scheduler.Scheduler[dynamicsRequest, DynamicsResult]
	predSched *scheduler.Scheduler[[]float32, PredictionResult]
	nPlayouts int
	cfg       puct.Config
}

// NewMuZeroDriver builds a driver around g's representation/dynamics/prediction
// networks, each batched independently according to schedCfg.
func NewMuZeroDriver[S game.State, M game.Move](
	ctx context.Context,
	g game.Features[S, M],
	allMoves []M,
	repr Representer,
	dyn Dynamicer,
	pred Predictor,
	schedCfg scheduler.Config,
	nPlayouts int,
	cfg puct.Config,
) *MuZeroDriver[S, M] {
	return &MuZeroDriver[S, M]{
		g:         g,
		allMoves:  allMoves,
		reprSched: scheduler.New(ctx, schedCfg, representationBatchFunc(repr)),
		dynSched:  scheduler.New(ctx, schedCfg, dynamicsBatchFunc(dyn)),
		predSched: scheduler.New(ctx, schedCfg, predictionBatchFunc(pred)),
		nPlayouts: nPlayouts,
		cfg:       cfg,
	}
}

// Play runs the representation call once, then searches the resulting latent
// state with PUCT, returning the chosen move and the root's visit policy.
func (d *MuZeroDriver[S, M]) Play(ctx context.Context, state S) (M, map[M]float32, error) {
	var zero M
	obs := d.g.StateToFeature(state)
	latent, err := d.reprSched.Submit(ctx, obs)
	if err != nil {
		return zero, nil, err
	}

	sim := simgame.New[M](scheduledDynamics[M]{ctx: ctx, sched: d.dynSched}, d.g.PossibleMoves(state), d.allMoves, d.g.PlayerAfter)
	root := simgame.NewRootState(latent, d.g.Turn(state))

	eval := func(s simgame.State) (map[M]float32, float32, error) {
		result, err := d.predSched.Submit(ctx, sim.StateToFeature(s))
		if err != nil {
			var zero map[M]float32
			return zero, 0, err
		}
		return sim.FeatureToMoves(s, result.Policy), result.Value, nil
	}

	search := puct.New[simgame.State, M](sim, root, d.cfg, eval)
	best, err := search.Play(d.nPlayouts)
	if err != nil {
		return zero, nil, err
	}
	return best, search.VisitPolicy(), nil
}
