package treeview

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/janpfeifer/ggpfgo/internal/game"
	"github.com/janpfeifer/ggpfgo/internal/puct"
	"github.com/stretchr/testify/require"
)

type move int

const (
	moveA move = iota
	moveB
)

type twoChoiceGame struct{}

func (twoChoiceGame) PossibleMoves(state int) []move {
	if state != 0 {
		return nil
	}
	return []move{moveA, moveB}
}

func (twoChoiceGame) Play(state int, m move) (int, float32, game.Player, error) {
	if m == moveA {
		return 1, 1.0, 0, nil
	}
	return 2, 5.0, 0, nil
}

func (twoChoiceGame) IsFinished(state int) bool { return state != 0 }
func (twoChoiceGame) Turn(int) game.Player { return 0 }
func (twoChoiceGame) PlayerAfter(p game.Player) game.Player { return p }

func uniformEvaluator(int) (map[move]float32, float32, error) {
	return map[move]float32{moveA: 0.5, moveB: 0.5}, 0, nil
}

func TestRenderListsBothMovesWithHighestVisitsFirst(t *testing.T) {
	cfg := puct.DefaultConfig(rand.New(rand.NewSource(7)))
	cfg.RootExplorationFraction = 0
	search := puct.New[int, move](twoChoiceGame{}, 0, cfg, uniformEvaluator)
	_, err := search.Play(40)
	require.NoError(t, err)

	out := Render[int, move](search)
	require.Contains(t, out, "move")
	require.Contains(t, out, "visits")

	lines := strings.Split(out, "\n")
	var moveARow, moveBRow int
	for i, line := range lines {
		trimmed := strings.Trim(line, " │")
		switch {
		case strings.HasPrefix(trimmed, "0 "):
			moveARow = i
		case strings.HasPrefix(trimmed, "1 "):
			moveBRow = i
		}
	}
	require.Greater(t, moveARow, 0)
	require.Greater(t, moveBRow, 0)
	// moveB (reward 5) accumulates more visits than moveA (reward 1), so its row
	// sorts first.
	require.Less(t, moveBRow, moveARow)
}
