package puct

import (
	"math/rand"

	"github.com/janpfeifer/ggpfgo/internal/parameters"
)

// Config holds the PUCT search hyperparameters, matching the selection formula
// grounded on original_source's ggpf/src/policies/mcts/puct/mod.rs:
//
//	pb_c = ln((N + CPuctBase + 1) / CPuctBase) + CPuctInit
//	prior(m) = pb_c * pi(m) * sqrt(N) / (1 + N_a(m))
//	score(m) = prior(m) + normalize(reward(m) + Discount*Q(m))
type Config struct {
	CPuctBase float32
	CPuctInit float32
	Discount  float32

	// RootDirichletAlpha and RootExplorationFraction configure the exploration
	// noise mixed into the root's priors on its first expansion:
	// pi' = frac*pi + (1-frac)*noise, noise ~ Dirichlet(alpha) (sampled here via
	// independent Gamma draws, see dirichlet.go).
	RootDirichletAlpha      float32
	RootExplorationFraction float32

	// Rand seeds the root noise sampler. A fixed seed makes a search
	// deterministic end to end.
	Rand *rand.Rand
}

// DefaultConfig returns the reference hyperparameters used throughout
// AlphaZero/MuZero style implementations (c_base=19652, c_init=1.25).
func DefaultConfig(rng *rand.Rand) Config {
	return Config{
		CPuctBase:               19652,
		CPuctInit:                1.25,
		Discount:                 1.0,
		RootDirichletAlpha:       0.3,
		RootExplorationFraction:  0.25,
		Rand:                     rng,
	}
}

// ConfigFromParams overrides DefaultConfig's fields from a parameters.Params
// config string, in the style of internal/searchers/mcts's player construction
// from Params (e.g. "mcts,c_puct_base=19652,c_puct_init=1.25,discount=1").
func ConfigFromParams(params parameters.Params, rng *rand.Rand) (Config, error) {
	cfg := DefaultConfig(rng)
	var err error
	if cfg.CPuctBase, err = parameters.GetParamOr(params, "c_puct_base", cfg.CPuctBase); err != nil {
		return cfg, err
	}
	if cfg.CPuctInit, err = parameters.GetParamOr(params, "c_puct_init", cfg.CPuctInit); err != nil {
		return cfg, err
	}
	if cfg.Discount, err = parameters.GetParamOr(params, "discount", cfg.Discount); err != nil {
		return cfg, err
	}
	if cfg.RootDirichletAlpha, err = parameters.GetParamOr(params, "root_dirichlet_alpha", cfg.RootDirichletAlpha); err != nil {
		return cfg, err
	}
	if cfg.RootExplorationFraction, err = parameters.GetParamOr(params, "root_exploration_fraction", cfg.RootExplorationFraction); err != nil {
		return cfg, err
	}
	return cfg, nil
}
