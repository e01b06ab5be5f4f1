// Package simgame implements the MuZero "simulated game" adapter: a
// game.Features implementation whose states live entirely in a dynamics
// network's latent space, so that PUCT can search a MuZero model exactly the
// way it searches a real game.
//
// Grounded on original_source's ggpf/src/game/meta/simulated.rs (Simulated<G>).
package simgame

import (
	"github.com/janpfeifer/ggpfgo/internal/game"
)

// Dynamics is the subset of the Model Adapter a Simulated game needs: running the
// dynamics network once per Play call.
type Dynamics interface {
	Dynamics(latent, action []float32) (nextLatent []float32, reward float32, err error)
}

// State is a single MuZero simulated position: a latent vector, the player to
// move, and whether it is the search root (firstPly, which decides the legal
// moves, see PossibleMoves). Simulated never mutates a State in place;
// Play returns a new one, matching the real game's own convention.
type State struct {
	Latent   []float32
	turn     game.Player
	firstPly bool
}

// Simulated adapts a dynamics network into a game.Features[State, M] that PUCT
// can search without ever touching the real game's rules again after the initial
// representation call. M is the real game's move type; allMoves fixes the order
// in which moves are packed into/out of dense network tensors.
//
// Its defining invariant (spec): Play calls the dynamics network exactly once per
// move, and IsFinished always reports false — a simulated game only ends because
// the caller stops searching it, never because the model says so.
type Simulated[M game.Move] struct {
	dyn          Dynamics
	initialMoves []M
	allMoves     []M
	playerAfter  func(game.Player) game.Player
}

// New builds a Simulated game from the dynamics network, the real game's legal
// moves at the root (initialMoves), the full action space (every move the real
// game could ever offer, in a fixed order), and the real game's player-rotation
// rule. Grounded on original_source's Simulated::new, which takes both
// initial_possible_moves and all_possible_moves.
func New[M game.Move](dyn Dynamics, initialMoves, allMoves []M, playerAfter func(game.Player) game.Player) *Simulated[M] {
	return &Simulated[M]{dyn: dyn, initialMoves: initialMoves, allMoves: allMoves, playerAfter: playerAfter}
}

// PossibleMoves implements game.Game. Per the spec, a simulated game's legal
// moves are the real game's first-ply choices only at the very root; every
// successive ply offers the full action space, since nothing about a latent
// state constrains which of the model's outputs are legal.
func (s *Simulated[M]) PossibleMoves(state State) []M {
	if state.firstPly {
		return s.initialMoves
	}
	return s.allMoves
}

// Play runs the dynamics network once on (state.Latent, action-one-hot(move)),
// advancing the latent state and returning the network's predicted reward.
func (s *Simulated[M]) Play(state State, move M) (State, float32, game.Player, error) {
	actionVec := s.encodeMove(move)
	nextLatent, reward, err := s.dyn.Dynamics(state.Latent, actionVec)
	if err != nil {
		return state, 0, state.turn, err
	}
	next := State{Latent: nextLatent, turn: s.playerAfter(state.turn)}
	return next, reward, next.turn, nil
}

// IsFinished always returns false: see Simulated's doc comment.
func (s *Simulated[M]) IsFinished(State) bool { return false }

// Turn implements game.Game.
func (s *Simulated[M]) Turn(state State) game.Player { return state.turn }

// PlayerAfter implements game.Game by delegating to the real game's rotation
// rule, the same one Play uses to advance state.turn.
func (s *Simulated[M]) PlayerAfter(player game.Player) game.Player { return s.playerAfter(player) }

// StateDimension implements game.Features.
func (s *Simulated[M]) StateDimension() []int {
	if len(s.allMoves) == 0 {
		return nil
	}
	return []int{len(s.allMoves)}
}

// ActionDimension implements game.Features.
func (s *Simulated[M]) ActionDimension() int { return len(s.allMoves) }

// StateToFeature implements game.Features: the latent vector IS the feature
// vector, since the representation/dynamics network already produced it in
// network-ready form.
func (s *Simulated[M]) StateToFeature(state State) []float32 { return state.Latent }

// MovesToFeature one-hot/probability-encodes a distribution over the full action
// space, for use as a dynamics network input or a training label.
func (s *Simulated[M]) MovesToFeature(_ State, probs map[M]float32) []float32 {
	dense := make([]float32, len(s.allMoves))
	for i, m := range s.allMoves {
		dense[i] = probs[m]
	}
	return dense
}

// FeatureToMoves implements game.Features.
func (s *Simulated[M]) FeatureToMoves(state State, dense []float32) map[M]float32 {
	legal := s.PossibleMoves(state)
	out := make(map[M]float32, len(legal))
	var z float32
	for _, m := range legal {
		idx := s.indexOf(m)
		out[m] = dense[idx]
		z += dense[idx]
	}
	if z == 0 {
		z = 1
	}
	for m := range out {
		out[m] /= z
	}
	return out
}

func (s *Simulated[M]) encodeMove(move M) []float32 {
	dense := make([]float32, len(s.allMoves))
	dense[s.indexOf(move)] = 1
	return dense
}

func (s *Simulated[M]) indexOf(move M) int {
	for i, m := range s.allMoves {
		if m == move {
			return i
		}
	}
	return -1
}

// NewRootState builds the initial Simulated state from a representation
// network's output, the first of the three Model Adapter calls a MuZero search
// makes (see internal/policy.MuZeroDriver). It is the only State ever marked
// firstPly, since every state Play produces is one dynamics step removed from
// the real game's actual position.
func NewRootState(latent []float32, turn game.Player) State {
	return State{Latent: latent, turn: turn, firstPly: true}
}
