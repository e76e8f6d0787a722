package scoring

import (
	"fmt"
	"math"

	"github.com/bytedance/sonic"
	"gonum.org/v1/gonum/floats"
)

// RawProbability is a single value exactly as a miner sent it. Miners are
// untrusted, so it may hold a number, a bool, a string, null or any other
// JSON value.
type RawProbability struct {
	value any
}

func NewRawProbability(v any) RawProbability {
	return RawProbability{value: v}
}

// RawProbabilities wraps plain floats, mostly for requests and tests.
func RawProbabilities(values ...float64) []RawProbability {
	out := make([]RawProbability, len(values))
	for i, v := range values {
		out[i] = RawProbability{value: v}
	}
	return out
}

// DefaultProbabilities is the placeholder sent to miners and kept when a
// miner does not answer.
func DefaultProbabilities(n int) []RawProbability {
	out := make([]RawProbability, n)
	for i := range out {
		out[i] = RawProbability{value: InvalidPrediction}
	}
	return out
}

func (r RawProbability) Value() any {
	return r.value
}

// Float reports the numeric value, or false when the value is not a finite
// number. Booleans count as 1 and 0.
func (r RawProbability) Float() (float64, bool) {
	var f float64
	switch v := r.value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case bool:
		if v {
			f = 1
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (r RawProbability) String() string {
	return fmt.Sprintf("%v", r.value)
}

func (r *RawProbability) UnmarshalJSON(data []byte) error {
	var v any
	if err := sonic.Unmarshal(data, &v); err != nil {
		r.value = string(data)
		return nil
	}
	r.value = v
	return nil
}

func (r RawProbability) MarshalJSON() ([]byte, error) {
	if f, ok := r.value.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return sonic.Marshal(fmt.Sprintf("%v", f))
	}
	data, err := sonic.Marshal(r.value)
	if err != nil {
		return sonic.Marshal(r.String())
	}
	return data, nil
}

// NormalizeMinerProbs turns a miner answer into one probability per label.
// A length mismatch invalidates the whole answer. Invalid entries and numbers
// outside [0, 1] become abs(label-1), the confidently wrong answer.
func NormalizeMinerProbs(raw []RawProbability, labels []float64) []float64 {
	if len(raw) != len(labels) {
		raw = DefaultProbabilities(len(labels))
	}

	normalized := make([]float64, len(labels))
	for i, label := range labels {
		p, ok := raw[i].Float()
		if !ok {
			p = InvalidPrediction
		}
		if p >= 0 && p <= 1 {
			normalized[i] = p
			continue
		}
		normalized[i] = math.Abs(label - 1)
	}
	return normalized
}

func L1Normalize(arr []float64) []float64 {
	result := make([]float64, len(arr))
	copy(result, arr)

	sum := floats.Sum(result)
	if sum > 0 {
		floats.Scale(1.0/sum, result)
	}

	return result
}
