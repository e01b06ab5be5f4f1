package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueToSupportRoundTrip(t *testing.T) {
	for _, v := range []float32{0, 1, -1, 5.5, -12.25, 100} {
		probs := ValueToSupport(v, 10)
		require.Len(t, probs, SupportSize(10))
		got := SupportToValue(probs, 10)
		require.InDelta(t, v, got, 0.05)
	}
}

func TestValueToSupportIsTwoHot(t *testing.T) {
	probs := ValueToSupport(2.5, 5)
	var nonZero int
	var sum float32
	for _, p := range probs {
		if p > 0 {
			nonZero++
		}
		sum += p
	}
	require.LessOrEqual(t, nonZero, 2)
	require.InDelta(t, 1.0, sum, 1e-5)
}

func TestSupportSize(t *testing.T) {
	require.Equal(t, 1, SupportSize(0))
	require.Equal(t, 21, SupportSize(10))
}
