// Package model implements the Model Adapter contract: prediction, dynamics and
// representation networks built on gomlx, a guarded handle for swapping their
// weights under concurrent inference, and the scalar<->support transform used to
// decode/encode their value and reward heads.
package model

import (
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/types/dtypes"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"
)

// vectorTensor packs a flat []float32 as a single-row [1, len(values)] tensor, the
// same tensors.FromShape + tensors.MutableFlatData pattern
// internal/ai/gomlx/alphazerofnn.go's createBoardsFeatures uses to fill board
// feature tensors.
func vectorTensor(values []float32) *tensors.Tensor {
	return batchTensor([][]float32{values})
}

// batchTensor packs rows of equal length as an [N, width] tensor, letting a single
// tower.call serve an entire inference-scheduler batch in one gomlx executor call
// instead of one call per request.
func batchTensor(rows [][]float32) *tensors.Tensor {
	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}
	t := tensors.FromShape(shapes.Make(dtypes.Float32, len(rows), width))
	tensors.MutableFlatData(t, func(flat []float32) {
		for i, row := range rows {
			copy(flat[i*width:(i+1)*width], row)
		}
	})
	return t
}

// splitRows slices a flat [N*width] buffer back into N rows of width each.
func splitRows(flat []float32, width int) [][]float32 {
	n := len(flat) / width
	rows := make([][]float32, n)
	for i := range rows {
		rows[i] = flat[i*width : (i+1)*width]
	}
	return rows
}

// backend is a process-wide singleton, exactly as internal/ai/gomlx/gomlx.go's
// backend() does: gomlx backends are expensive to create and safe to share.
var backend = sync.OnceValue(func() backends.Backend { return backends.New() })

// tower pairs a context (holding the trainable variables) with the compiled
// executor built from it. Swapping the weights means rebuilding both together.
type tower struct {
	ctx  *context.Context
	exec *context.Exec
}

func newTower(dims Dims) *tower {
	ctx := newTowerContext(dims)
	exec := context.NewExec(backend(), ctx, func(ctx *context.Context, inputs []*graph.Node) *graph.Node {
		return towerGraph(ctx, inputs[0], dims.OutputSize)
	})
	return &tower{ctx: ctx, exec: exec}
}

func (t *tower) call(input *tensors.Tensor) (out *tensors.Tensor, err error) {
	cause := exceptions.TryCatch[error](func() {
		out = t.exec.Call(graph.DonateTensorBuffer(input, backend()))[0]
	})
	if cause != nil {
		return nil, &ErrInferenceFailed{Op: "tower", Cause: cause}
	}
	return out, nil
}

// PredictionNet computes (policy, value) from a state feature tensor. The value
// head is support-encoded; ValueHalfWidth configures its decoding.
type PredictionNet struct {
	handle         *GuardedHandle[*tower]
	stateDim       int
	actionDim      int
	valueHalfWidth int
}

// NewPredictionNet builds a prediction network mapping a stateDim-wide feature
// vector to an actionDim policy plus a SupportSize(valueHalfWidth) value head,
// packed as a single [actionDim+SupportSize]-wide output tensor.
func NewPredictionNet(stateDim, actionDim, valueHalfWidth, hiddenNodes, hiddenLayers int) *PredictionNet {
	dims := Dims{
		InputSize:    stateDim,
		OutputSize:   actionDim + SupportSize(valueHalfWidth),
		HiddenNodes:  hiddenNodes,
		HiddenLayers: hiddenLayers,
	}
	return &PredictionNet{
		handle:         NewGuardedHandle(newTower(dims)),
		stateDim:       stateDim,
		actionDim:      actionDim,
		valueHalfWidth: valueHalfWidth,
	}
}

// Predict runs the network on a single state feature vector, returning a dense
// policy over the full action space and a decoded scalar value.
func (n *PredictionNet) Predict(stateFeatures []float32) (policy []float32, value float32, err error) {
	if len(stateFeatures) != n.stateDim {
		return nil, 0, errors.Wrapf(ErrShapeMismatch, "prediction: want %d state features, got %d", n.stateDim, len(stateFeatures))
	}
	input := vectorTensor(stateFeatures)
	var out *tensors.Tensor
	n.handle.Read(func(t *tower) {
		out, err = t.call(input)
	})
	if err != nil {
		return nil, 0, err
	}
	flat := tensors.CopyFlatData[float32](out)
	policy = flat[:n.actionDim]
	value = SupportToValue(flat[n.actionDim:], n.valueHalfWidth)
	return policy, value, nil
}

// PredictBatch runs the network once over many state feature vectors, the shape
// internal/scheduler hands a flushed batch to its BatchFunc in.
func (n *PredictionNet) PredictBatch(stateFeatures [][]float32) (policies [][]float32, values []float32, err error) {
	for _, f := range stateFeatures {
		if len(f) != n.stateDim {
			return nil, nil, errors.Wrapf(ErrShapeMismatch, "prediction: want %d state features, got %d", n.stateDim, len(f))
		}
	}
	input := batchTensor(stateFeatures)
	var out *tensors.Tensor
	n.handle.Read(func(t *tower) {
		out, err = t.call(input)
	})
	if err != nil {
		return nil, nil, err
	}
	outputWidth := n.actionDim + SupportSize(n.valueHalfWidth)
	rows := splitRows(tensors.CopyFlatData[float32](out), outputWidth)
	policies = make([][]float32, len(rows))
	values = make([]float32, len(rows))
	for i, row := range rows {
		policies[i] = row[:n.actionDim]
		values[i] = SupportToValue(row[n.actionDim:], n.valueHalfWidth)
	}
	return policies, values, nil
}

// ReplaceWeights rebuilds the network's variables from scratch under the writer
// side of the guarded handle, excluding all concurrent Predict calls while it runs.
// Concrete weight loading is a caller concern (out of scope here); this only
// demonstrates/exercises the safe swap point the rest of the engine relies on.
func (n *PredictionNet) ReplaceWeights(dims Dims) {
	n.handle.Write(func(*tower) *tower { return newTower(dims) })
}

// DynamicsNet computes (nextLatent, reward) from a latent state and an encoded
// action, the MuZero "dynamics" function.
type DynamicsNet struct {
	handle         *GuardedHandle[*tower]
	latentDim      int
	actionDim      int
	rewardHalfWidth int
}

// NewDynamicsNet builds a dynamics network. Its input is the concatenation of the
// latentDim-wide state and the actionDim-wide action encoding; its output packs the
// next latentDim-wide state followed by a SupportSize(rewardHalfWidth) reward head.
func NewDynamicsNet(latentDim, actionDim, rewardHalfWidth, hiddenNodes, hiddenLayers int) *DynamicsNet {
	dims := Dims{
		InputSize:    latentDim + actionDim,
		OutputSize:   latentDim + SupportSize(rewardHalfWidth),
		HiddenNodes:  hiddenNodes,
		HiddenLayers: hiddenLayers,
	}
	return &DynamicsNet{
		handle:          NewGuardedHandle(newTower(dims)),
		latentDim:       latentDim,
		actionDim:       actionDim,
		rewardHalfWidth: rewardHalfWidth,
	}
}

// Dynamics runs the network on a latent state and an encoded action, returning the
// next latent state and a decoded scalar reward.
func (n *DynamicsNet) Dynamics(latent, action []float32) (nextLatent []float32, reward float32, err error) {
	if len(latent) != n.latentDim {
		return nil, 0, errors.Wrapf(ErrShapeMismatch, "dynamics: want %d latent dims, got %d", n.latentDim, len(latent))
	}
	if len(action) != n.actionDim {
		return nil, 0, errors.Wrapf(ErrShapeMismatch, "dynamics: want %d action dims, got %d", n.actionDim, len(action))
	}
	joined := make([]float32, 0, n.latentDim+n.actionDim)
	joined = append(joined, latent...)
	joined = append(joined, action...)
	input := vectorTensor(joined)
	var out *tensors.Tensor
	n.handle.Read(func(t *tower) {
		out, err = t.call(input)
	})
	if err != nil {
		return nil, 0, err
	}
	flat := tensors.CopyFlatData[float32](out)
	nextLatent = flat[:n.latentDim]
	reward = SupportToValue(flat[n.latentDim:], n.rewardHalfWidth)
	return nextLatent, reward, nil
}

// DynamicsBatch runs the network once over many (latent, action) pairs.
func (n *DynamicsNet) DynamicsBatch(latents, actions [][]float32) (nextLatents [][]float32, rewards []float32, err error) {
	if len(latents) != len(actions) {
		return nil, nil, errors.Wrapf(ErrShapeMismatch, "dynamics: %d latents but %d actions", len(latents), len(actions))
	}
	joined := make([][]float32, len(latents))
	for i := range latents {
		if len(latents[i]) != n.latentDim {
			return nil, nil, errors.Wrapf(ErrShapeMismatch, "dynamics: want %d latent dims, got %d", n.latentDim, len(latents[i]))
		}
		if len(actions[i]) != n.actionDim {
			return nil, nil, errors.Wrapf(ErrShapeMismatch, "dynamics: want %d action dims, got %d", n.actionDim, len(actions[i]))
		}
		row := make([]float32, 0, n.latentDim+n.actionDim)
		row = append(row, latents[i]...)
		row = append(row, actions[i]...)
		joined[i] = row
	}
	input := batchTensor(joined)
	var out *tensors.Tensor
	n.handle.Read(func(t *tower) {
		out, err = t.call(input)
	})
	if err != nil {
		return nil, nil, err
	}
	outputWidth := n.latentDim + SupportSize(n.rewardHalfWidth)
	rows := splitRows(tensors.CopyFlatData[float32](out), outputWidth)
	nextLatents = make([][]float32, len(rows))
	rewards = make([]float32, len(rows))
	for i, row := range rows {
		nextLatents[i] = row[:n.latentDim]
		rewards[i] = SupportToValue(row[n.latentDim:], n.rewardHalfWidth)
	}
	return nextLatents, rewards, nil
}

// ReplaceWeights rebuilds the dynamics network's variables, see PredictionNet.ReplaceWeights.
func (n *DynamicsNet) ReplaceWeights(dims Dims) {
	n.handle.Write(func(*tower) *tower { return newTower(dims) })
}

// RepresentationNet computes an initial latent state from a raw observation, the
// MuZero "representation" function.
type RepresentationNet struct {
	handle  *GuardedHandle[*tower]
	obsDim  int
	latentDim int
}

// NewRepresentationNet builds a representation network mapping an obsDim-wide raw
// observation to a latentDim-wide latent state.
func NewRepresentationNet(obsDim, latentDim, hiddenNodes, hiddenLayers int) *RepresentationNet {
	dims := Dims{
		InputSize:    obsDim,
		OutputSize:   latentDim,
		HiddenNodes:  hiddenNodes,
		HiddenLayers: hiddenLayers,
	}
	return &RepresentationNet{
		handle:    NewGuardedHandle(newTower(dims)),
		obsDim:    obsDim,
		latentDim: latentDim,
	}
}

// Represent runs the network on a raw observation, returning the initial latent state.
func (n *RepresentationNet) Represent(obs []float32) (latent []float32, err error) {
	if len(obs) != n.obsDim {
		return nil, errors.Wrapf(ErrShapeMismatch, "representation: want %d obs dims, got %d", n.obsDim, len(obs))
	}
	input := vectorTensor(obs)
	var out *tensors.Tensor
	n.handle.Read(func(t *tower) {
		out, err = t.call(input)
	})
	if err != nil {
		return nil, err
	}
	return tensors.CopyFlatData[float32](out), nil
}

// RepresentBatch runs the network once over many raw observations.
func (n *RepresentationNet) RepresentBatch(obs [][]float32) (latents [][]float32, err error) {
	for _, o := range obs {
		if len(o) != n.obsDim {
			return nil, errors.Wrapf(ErrShapeMismatch, "representation: want %d obs dims, got %d", n.obsDim, len(o))
		}
	}
	input := batchTensor(obs)
	var out *tensors.Tensor
	n.handle.Read(func(t *tower) {
		out, err = t.call(input)
	})
	if err != nil {
		return nil, err
	}
	return splitRows(tensors.CopyFlatData[float32](out), n.latentDim), nil
}

// ReplaceWeights rebuilds the representation network's variables, see PredictionNet.ReplaceWeights.
func (n *RepresentationNet) ReplaceWeights(dims Dims) {
	n.handle.Write(func(*tower) *tower { return newTower(dims) })
}
