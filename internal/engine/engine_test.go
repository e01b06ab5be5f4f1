package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/janpfeifer/ggpfgo/internal/game"
	"github.com/stretchr/testify/require"
)

// countdownGame ends after 3 plies regardless of move played.
type countdownGame struct{}

type move int

const onlyMove move = 0

func (countdownGame) PossibleMoves(state int) []move {
	if state >= 3 {
		return nil
	}
	return []move{onlyMove}
}

func (countdownGame) Play(state int, m move) (int, float32, game.Player, error) {
	return state + 1, 1.0, 0, nil
}

func (countdownGame) IsFinished(state int) bool { return state >= 3 }
func (countdownGame) Turn(int) game.Player { return 0 }
func (countdownGame) PlayerAfter(p game.Player) game.Player { return p }

type alwaysPlayDriver struct {
	calls atomic.Int64
}

func (d *alwaysPlayDriver) Play(ctx context.Context, state int) (move, map[move]float32, error) {
	d.calls.Add(1)
	return onlyMove, map[move]float32{onlyMove: 1}, nil
}

func TestRunPlaysExactlyMaxEpisodes(t *testing.T) {
	driver := &alwaysPlayDriver{}
	episodes, err := Run[int, move](context.Background(), countdownGame{}, driver, 0, Config{
		Parallelism: 4,
		MaxEpisodes: 10,
		MaxPlies:    20,
	})
	require.NoError(t, err)
	require.Len(t, episodes, 10)
	for _, ep := range episodes {
		require.Len(t, ep.Steps, 3)
	}
}

func TestRunStopsAtMaxPlies(t *testing.T) {
	driver := &alwaysPlayDriver{}
	episodes, err := Run[int, move](context.Background(), neverEndingGame{}, driver, 0, Config{
		Parallelism: 1,
		MaxEpisodes: 1,
		MaxPlies:    5,
	})
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	require.Len(t, episodes[0].Steps, 5)
}

type neverEndingGame struct{}

func (neverEndingGame) PossibleMoves(int) []move { return []move{onlyMove} }
func (neverEndingGame) Play(state int, m move) (int, float32, game.Player, error) {
	return state + 1, 0, 0, nil
}
func (neverEndingGame) IsFinished(int) bool { return false }
func (neverEndingGame) Turn(int) game.Player { return 0 }
func (neverEndingGame) PlayerAfter(p game.Player) game.Player { return p }

func TestRunPropagatesDriverError(t *testing.T) {
	_, err := Run[int, move](context.Background(), countdownGame{}, failingDriver{}, 0, Config{
		Parallelism: 1,
		MaxEpisodes: 1,
		MaxPlies:    5,
	})
	require.Error(t, err)
}

type failingDriver struct{}

var errBoom = errors.New("driver failed")

func (failingDriver) Play(ctx context.Context, state int) (move, map[move]float32, error) {
	return 0, nil, errBoom
}
