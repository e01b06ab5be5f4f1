package model

import (
	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers/activations"
	"github.com/gomlx/gomlx/ml/layers/fnn"
	"github.com/gomlx/gomlx/ml/layers/regularizers"
	"github.com/gomlx/gomlx/ml/train/optimizers"
)

// Dims describes the tensor shapes a network operates on. Unlike the teacher's
// board-feature-specific models, these are plain sizes supplied by the caller: the
// network architecture itself carries no knowledge of any particular game.
type Dims struct {
	// InputSize is the length of the flat input feature vector.
	InputSize int
	// OutputSize is the length of the flat output vector (e.g. ActionDimension
	// for a policy head, or SupportSize(halfWidth) for a support-encoded value).
	OutputSize int
	// HiddenNodes and HiddenLayers size the FNN tower between input and output.
	HiddenNodes  int
	HiddenLayers int
}

// newTowerContext builds a context.Context with the FNN hyperparameters the
// teacher sets in internal/ai/gomlx/fnn.go's CreateContext, sized to dims instead
// of a fixed board-feature width.
func newTowerContext(dims Dims) *context.Context {
	ctx := context.New()
	ctx.RngStateReset()
	ctx.SetParams(map[string]any{
		"batch_size": 32,

		optimizers.ParamOptimizer:    "adam",
		optimizers.ParamLearningRate: 0.001,
		activations.ParamActivation:  "relu",

		fnn.ParamNumHiddenLayers: dims.HiddenLayers,
		fnn.ParamNumHiddenNodes:  dims.HiddenNodes,
		fnn.ParamResidual:        true,
		fnn.ParamNormalization:   "layer",

		regularizers.ParamL2: 1e-5,
	})
	return ctx
}

// towerGraph builds the forward graph for a single input->output FNN tower, shared
// by the prediction, dynamics and representation networks (they differ only in
// input/output width and in how many outputs they split the tower's output into).
func towerGraph(ctx *context.Context, input *graph.Node, outputSize int) *graph.Node {
	return fnn.New(ctx, input, outputSize).Done()
}
