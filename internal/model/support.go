package model

import "github.com/chewxy/math32"

// supportEpsilon is the invertible-squashing constant used by ValueToSupport and
// SupportToValue, matching the scaling originally proposed for MuZero-style scalar
// transforms.
const supportEpsilon = 1e-3

// SupportSize returns the number of bins a support distribution with the given
// half-width (number of bins on either side of zero) occupies.
func SupportSize(halfWidth int) int {
	return 2*halfWidth + 1
}

// SupportToValue decodes a categorical support distribution (dense probabilities
// over bins -halfWidth..+halfWidth) back into a scalar value.
//
// x is first computed as the probability-weighted sum of bin indices, then
// unsquashed with:
//
//	v = sign(x) * (((sqrt(1+4*eps*(|x|+1+eps)) - 1) / (2*eps))^2 - 1)
func SupportToValue(probs []float32, halfWidth int) float32 {
	var x float32
	for i, p := range probs {
		bin := float32(i - halfWidth)
		x += bin * p
	}
	return unsquash(x)
}

func unsquash(x float32) float32 {
	sign := float32(1)
	if x < 0 {
		sign = -1
	}
	ax := math32.Abs(x)
	inner := (math32.Sqrt(1+4*supportEpsilon*(ax+1+supportEpsilon)) - 1) / (2 * supportEpsilon)
	return sign * (inner*inner - 1)
}

func squash(v float32) float32 {
	sign := float32(1)
	if v < 0 {
		sign = -1
	}
	av := math32.Abs(v)
	return sign*(math32.Sqrt(av+1)-1) + supportEpsilon*v
}

// ValueToSupport encodes a scalar value as a categorical distribution over
// 2*halfWidth+1 bins by applying the inverse squashing transform and splitting the
// resulting (possibly fractional) bin position between its two neighbors, the
// standard two-hot encoding used to train support-based value/reward heads.
func ValueToSupport(v float32, halfWidth int) []float32 {
	size := SupportSize(halfWidth)
	out := make([]float32, size)
	x := squash(v)
	if x <= float32(-halfWidth) {
		out[0] = 1
		return out
	}
	if x >= float32(halfWidth) {
		out[size-1] = 1
		return out
	}
	lower := math32.Floor(x)
	frac := x - lower
	lowIdx := int(lower) + halfWidth
	out[lowIdx] = 1 - frac
	if frac > 0 {
		out[lowIdx+1] = frac
	}
	return out
}
