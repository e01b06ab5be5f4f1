package puct

import (
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// sampleDirichlet draws an n-dimensional Dirichlet(alpha, alpha, ..., alpha)
// sample by drawing n independent Gamma(alpha, 1) variates and normalizing them to
// sum to 1, the standard construction used by original_source's
// `rand_distr::Gamma` call in ggpf/src/policies/mcts/puct/mod.rs's backpropagate.
func sampleDirichlet(alpha float32, n int, rng *rand.Rand) []float32 {
	if n == 0 {
		return nil
	}
	gamma := distuv.Gamma{Alpha: float64(alpha), Beta: 1, Src: rng}
	draws := make([]float64, n)
	var sum float64
	for i := range draws {
		draws[i] = gamma.Rand()
		sum += draws[i]
	}
	out := make([]float32, n)
	if sum == 0 {
		// Degenerate (should not happen for alpha > 0); fall back to uniform.
		for i := range out {
			out[i] = 1 / float32(n)
		}
		return out
	}
	for i, d := range draws {
		out[i] = float32(d / sum)
	}
	return out
}
