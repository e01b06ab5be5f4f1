package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPredictionNetShapes(t *testing.T) {
	net := NewPredictionNet(4, 3, 5, 16, 1)
	policy, value, err := net.Predict([]float32{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, err)
	require.Len(t, policy, 3)
	require.False(t, value != value) // not NaN
}

func TestPredictionNetRejectsWrongShape(t *testing.T) {
	net := NewPredictionNet(4, 3, 5, 16, 1)
	_, _, err := net.Predict([]float32{0.1, 0.2})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestPredictionNetPredictBatch(t *testing.T) {
	net := NewPredictionNet(4, 3, 5, 16, 1)
	policies, values, err := net.PredictBatch([][]float32{
		{0, 0, 0, 0},
		{1, 1, 1, 1},
		{0.5, 0.5, 0.5, 0.5},
	})
	require.NoError(t, err)
	require.Len(t, policies, 3)
	require.Len(t, values, 3)
	for _, p := range policies {
		require.Len(t, p, 3)
	}
}

func TestDynamicsNetShapes(t *testing.T) {
	net := NewDynamicsNet(4, 2, 3, 16, 1)
	next, reward, err := net.Dynamics([]float32{0, 0, 0, 0}, []float32{1, 0})
	require.NoError(t, err)
	require.Len(t, next, 4)
	require.False(t, reward != reward)
}

func TestDynamicsNetRejectsWrongShape(t *testing.T) {
	net := NewDynamicsNet(4, 2, 3, 16, 1)
	_, _, err := net.Dynamics([]float32{0, 0, 0, 0}, []float32{1})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestRepresentationNetShapes(t *testing.T) {
	net := NewRepresentationNet(6, 4, 16, 1)
	latent, err := net.Represent([]float32{0, 1, 0, 1, 0, 1})
	require.NoError(t, err)
	require.Len(t, latent, 4)
}
