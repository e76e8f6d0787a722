package scoring

import (
	"math"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMinerProbsKeepsWellFormedInput(t *testing.T) {
	labels := []float64{0, 1, 1, 0}
	raw := []float64{0, 0.25, 1, 0.999}

	assert.Equal(t, raw, NormalizeMinerProbs(RawProbabilities(raw...), labels))
}

func TestNormalizeMinerProbsLengthMismatch(t *testing.T) {
	labels := []float64{0, 1, 1}

	for _, raw := range [][]RawProbability{
		nil,
		RawProbabilities(0.1),
		RawProbabilities(0, 1, 1, 0),
	} {
		assert.Equal(t, []float64{1, 0, 0}, NormalizeMinerProbs(raw, labels))
	}
}

func TestNormalizeMinerProbsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		value any
		label float64
		want  float64
	}{
		{name: "nan", value: math.NaN(), label: 1, want: 0},
		{name: "positive infinity", value: math.Inf(1), label: 0, want: 1},
		{name: "negative infinity", value: math.Inf(-1), label: 1, want: 0},
		{name: "string", value: "0.5", label: 1, want: 0},
		{name: "nil", value: nil, label: 0, want: 1},
		{name: "object", value: map[string]any{"p": 0.4}, label: 1, want: 0},
		{name: "above range", value: 1.5, label: 1, want: 0},
		{name: "below range", value: -0.3, label: 0, want: 1},
		{name: "true", value: true, label: 0, want: 1},
		{name: "false", value: false, label: 1, want: 0},
		{name: "int", value: 1, label: 1, want: 1},
		{name: "int out of range", value: 3, label: 0, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeMinerProbs([]RawProbability{NewRawProbability(tt.value)}, []float64{tt.label})
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestRawProbabilityFromJSON(t *testing.T) {
	var raw []RawProbability
	require.NoError(t, sonic.Unmarshal([]byte(`[0.2, "x", null, true, {"a": 1}, [0.5], 7]`), &raw))
	require.Len(t, raw, 7)

	labels := []float64{1, 1, 1, 0, 1, 1, 1}
	assert.Equal(t, []float64{0.2, 0, 0, 1, 0, 0, 0}, NormalizeMinerProbs(raw, labels))
}

func TestRawProbabilityMarshalNonFinite(t *testing.T) {
	data, err := sonic.Marshal(RawProbabilities(0.5, math.NaN(), math.Inf(1)))
	require.NoError(t, err)
	assert.JSONEq(t, `[0.5, "NaN", "+Inf"]`, string(data))
}

func TestL1Normalize(t *testing.T) {
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, L1Normalize([]float64{1, 3}), 1e-12)
	assert.Equal(t, []float64{0, 0}, L1Normalize([]float64{0, 0}))
}
