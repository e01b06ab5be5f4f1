// Package engine runs many concurrent Policy Driver self-play episodes against
// one game, fanning whole episodes out across goroutines whose drivers can all
// submit their network calls through the same batched scheduler (the concurrency
// model the rest of this repo's components exist to support).
//
// Grounded on cmd/trainer/play_and_train.go's playAndTrain: an errgroup.WithContext
// fan-out of continuouslyPlay workers, panic-contained via exceptions.Try and
// turned into a plain error, feeding results onto a channel that is closed once
// every worker has returned.
package engine

import (
	"context"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/ggpfgo/internal/game"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Driver is the interface both policy.AlphaZeroDriver and policy.MuZeroDriver
// satisfy: pick a move from state, reporting the search's root visit policy
// alongside it (the self-play training target).
type Driver[S game.State, M game.Move] interface {
	Play(ctx context.Context, state S) (M, map[M]float32, error)
}

// Step records one ply of a played episode.
type Step[S game.State, M game.Move] struct {
	State       S
	Move        M
	VisitPolicy map[M]float32
	Reward      float32
}

// Episode is one complete self-play game, from its initial state to the first
// terminal state reached (or until MaxPlies ply, whichever comes first).
type Episode[S game.State, M game.Move] struct {
	ID    int
	Steps []Step[S, M]
}

// Config bounds a run of concurrent episodes.
type Config struct {
	// Parallelism is the number of goroutines playing episodes concurrently.
	Parallelism int
	// MaxEpisodes is the total number of episodes to play across all workers.
	MaxEpisodes int
	// MaxPlies caps a single episode's length, guarding against a driver/game
	// pair that never reaches a terminal state (e.g. a MuZero search run past
	// its networks' trained horizon).
	MaxPlies int
}

// Run plays cfg.MaxEpisodes episodes of g starting from initial, cfg.Parallelism
// at a time, driving move selection with driver. It returns once every episode
// has completed, ctx is cancelled, or any worker's panic/error aborts the run.
func Run[S game.State, M game.Move](ctx context.Context, g game.Game[S, M], driver Driver[S, M], initial S, cfg Config) ([]Episode[S, M], error) {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	var nextID atomic.Int64
	episodes := make(chan Episode[S, M], cfg.Parallelism)

	wg, wgCtx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Parallelism; i++ {
		wg.Go(func() error {
			return runWorker(wgCtx, g, driver, initial, cfg, &nextID, episodes)
		})
	}

	go func() {
		wg.Wait()
		close(episodes)
	}()

	var out []Episode[S, M]
	for ep := range episodes {
		out = append(out, ep)
	}
	if err := wg.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

func runWorker[S game.State, M game.Move](ctx context.Context, g game.Game[S, M], driver Driver[S, M], initial S, cfg Config, nextID *atomic.Int64, out chan<- Episode[S, M]) error {
	exception := exceptions.Try(func() {
		for {
			id := int(nextID.Add(1) - 1)
			if id >= cfg.MaxEpisodes {
				return
			}
			episode, err := playEpisode(ctx, g, driver, initial, cfg.MaxPlies, id)
			if err != nil {
				panic(err)
			}
			select {
			case <-ctx.Done():
				return
			case out <- episode:
			}
		}
	})
	return exceptionToError(exception)
}

func playEpisode[S game.State, M game.Move](ctx context.Context, g game.Game[S, M], driver Driver[S, M], state S, maxPlies, id int) (Episode[S, M], error) {
	episode := Episode[S, M]{ID: id}
	for ply := 0; maxPlies <= 0 || ply < maxPlies; ply++ {
		if g.IsFinished(state) {
			break
		}
		move, visitPolicy, err := driver.Play(ctx, state)
		if err != nil {
			return episode, err
		}
		next, reward, _, err := g.Play(state, move)
		if err != nil {
			return episode, err
		}
		episode.Steps = append(episode.Steps, Step[S, M]{State: state, Move: move, VisitPolicy: visitPolicy, Reward: reward})
		state = next
	}
	return episode, nil
}

func exceptionToError(exception any) error {
	if exception == nil {
		return nil
	}
	if err, ok := exception.(error); ok {
		return err
	}
	return errors.Errorf("episode worker failed with exception: %v", exception)
}
