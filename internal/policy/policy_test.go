package policy

import (
	"context"
	"testing"
	"time"

	"github.com/janpfeifer/ggpfgo/internal/game"
	"github.com/janpfeifer/ggpfgo/internal/puct"
	"github.com/janpfeifer/ggpfgo/internal/scheduler"
	"github.com/stretchr/testify/require"
)

// twoChoice is a one-ply real game: from state 0, moveA leads to a reward-1
// terminal, moveB to a reward-5 terminal.
type twoChoice struct{}

type move int

const (
	moveA move = iota
	moveB
)

var allMoves = []move{moveA, moveB}

func (twoChoice) PossibleMoves(state int) []move {
	if state != 0 {
		return nil
	}
	return allMoves
}

func (twoChoice) Play(state int, m move) (int, float32, game.Player, error) {
	if m == moveA {
		return 1, 1.0, 0, nil
	}
	return 2, 5.0, 0, nil
}

func (twoChoice) IsFinished(state int) bool { return state != 0 }
func (twoChoice) Turn(int) game.Player { return 0 }
func (twoChoice) PlayerAfter(p game.Player) game.Player { return p }

func (twoChoice) StateDimension() []int { return []int{1} }
func (twoChoice) ActionDimension() int  { return 2 }
func (twoChoice) StateToFeature(state int) []float32 {
	return []float32{float32(state)}
}
func (twoChoice) MovesToFeature(_ int, probs map[move]float32) []float32 {
	return []float32{probs[moveA], probs[moveB]}
}
func (twoChoice) FeatureToMoves(state int, dense []float32) map[move]float32 {
	if state != 0 {
		return nil
	}
	z := dense[0] + dense[1]
	if z == 0 {
		z = 1
	}
	return map[move]float32{moveA: dense[0] / z, moveB: dense[1] / z}
}

// preferBPredictor always favors moveB with a mild value; it stands in for a
// network that has learned the higher-reward move is better.
type preferBPredictor struct{}

func (preferBPredictor) PredictBatch(reqs [][]float32) ([][]float32, []float32, error) {
	policies := make([][]float32, len(reqs))
	values := make([]float32, len(reqs))
	for i := range reqs {
		policies[i] = []float32{0.2, 0.8}
		values[i] = 0
	}
	return policies, values, nil
}

func testSchedConfig() scheduler.Config {
	return scheduler.Config{BatchSize: 1, IdleTimeout: 5 * time.Millisecond}
}

func TestAlphaZeroDriverPrefersHigherRewardMove(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := puct.DefaultConfig(nil)
	cfg.RootExplorationFraction = 0
	driver := NewAlphaZeroDriver[int, move](ctx, twoChoice{}, preferBPredictor{}, testSchedConfig(), 30, cfg)

	best, visitPolicy, err := driver.Play(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, moveB, best)
	require.Greater(t, visitPolicy[moveB], visitPolicy[moveA])
}

// fakeRepresenter maps a real-game state directly onto a one-dimensional latent
// equal to the observation, so fakeDynamics can read the original state back out.
type fakeRepresenter struct{}

func (fakeRepresenter) RepresentBatch(obs [][]float32) ([][]float32, error) {
	out := make([][]float32, len(obs))
	copy(out, obs)
	return out, nil
}

// fakeDynamics treats latent[0]==0 as the undecided root: playing moveB's
// one-hot action moves the latent to 2 (mirroring twoChoice's real transition),
// moveA's to 1, each with the matching reward; any other latent is a terminal
// plateau that just repeats itself with zero reward.
type fakeDynamics struct{}

func (fakeDynamics) DynamicsBatch(latents, actions [][]float32) ([][]float32, []float32, error) {
	next := make([][]float32, len(latents))
	rewards := make([]float32, len(latents))
	for i, lat := range latents {
		if lat[0] != 0 {
			next[i] = lat
			rewards[i] = 0
			continue
		}
		if actions[i][0] > actions[i][1] {
			next[i] = []float32{1}
			rewards[i] = 1.0
		} else {
			next[i] = []float32{2}
			rewards[i] = 5.0
		}
	}
	return next, rewards, nil
}

func TestMuZeroDriverSearchesLatentSpace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := puct.DefaultConfig(nil)
	cfg.RootExplorationFraction = 0
	driver := NewMuZeroDriver[int, move](ctx, twoChoice{}, allMoves, fakeRepresenter{}, fakeDynamics{}, preferBPredictor{}, testSchedConfig(), 30, cfg)

	best, visitPolicy, err := driver.Play(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, moveB, best)
	require.Greater(t, visitPolicy[moveB], visitPolicy[moveA])
}
