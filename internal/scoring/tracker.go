package scoring

import (
	"math"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

// PerformanceTracker keeps the most recent predictions and labels of every
// miner for a single task. It is not safe for concurrent use; the validator
// runs one scoring round at a time.
type PerformanceTracker struct {
	predictionHistory map[int64]*deque.Deque[float64]
	labelHistory      map[int64]*deque.Deque[float64]
	minerHotkeys      map[int64]string
	storeLastN        int
}

func NewPerformanceTracker(storeLastNPredictions int) *PerformanceTracker {
	if storeLastNPredictions <= 0 {
		storeLastNPredictions = DefaultStoreLastNPredictions
	}
	return &PerformanceTracker{
		predictionHistory: make(map[int64]*deque.Deque[float64]),
		labelHistory:      make(map[int64]*deque.Deque[float64]),
		minerHotkeys:      make(map[int64]string),
		storeLastN:        storeLastNPredictions,
	}
}

// Capacity is the number of (prediction, label) pairs kept per miner.
func (t *PerformanceTracker) Capacity() int {
	return t.storeLastN
}

// ResetMinerHistory drops whatever is stored for uid and binds it to hotkey.
func (t *PerformanceTracker) ResetMinerHistory(uid int64, hotkey string) {
	t.predictionHistory[uid] = &deque.Deque[float64]{}
	t.labelHistory[uid] = &deque.Deque[float64]{}
	t.minerHotkeys[uid] = hotkey
}

// Update appends one scored article for uid. History is discarded first when
// the uid is new or now belongs to a different hotkey.
func (t *PerformanceTracker) Update(uid int64, prediction, label float64, hotkey string) {
	current, seen := t.minerHotkeys[uid]
	if _, ok := t.predictionHistory[uid]; !ok || !seen || current != hotkey {
		t.ResetMinerHistory(uid, hotkey)
	}

	preds := t.predictionHistory[uid]
	labels := t.labelHistory[uid]
	preds.PushBack(prediction)
	labels.PushBack(label)
	for preds.Len() > t.storeLastN {
		preds.PopFront()
		labels.PopFront()
	}
}

func (t *PerformanceTracker) Hotkey(uid int64) (string, bool) {
	hotkey, ok := t.minerHotkeys[uid]
	return hotkey, ok
}

// HistoryLen returns the number of stored pairs for uid.
func (t *PerformanceTracker) HistoryLen(uid int64) int {
	preds, ok := t.predictionHistory[uid]
	if !ok {
		return 0
	}
	return preds.Len()
}

// History returns copies of the stored predictions and labels, oldest first.
func (t *PerformanceTracker) History(uid int64) (predictions, labels []float64) {
	preds, ok := t.predictionHistory[uid]
	if !ok {
		return nil, nil
	}
	return dequeToSlice(preds), dequeToSlice(t.labelHistory[uid])
}

// UIDs lists every uid the tracker holds a history for.
func (t *PerformanceTracker) UIDs() []int64 {
	uids := make([]int64, 0, len(t.predictionHistory))
	for uid := range t.predictionHistory {
		uids = append(uids, uid)
	}
	return uids
}

// ResizeHistory changes the capacity and trims every history to its newest
// entries.
func (t *PerformanceTracker) ResizeHistory(storeLastNPredictions int) {
	if storeLastNPredictions <= 0 {
		storeLastNPredictions = DefaultStoreLastNPredictions
	}
	if storeLastNPredictions != t.storeLastN {
		log.Info().Msgf("Resizing prediction history from %d to %d", t.storeLastN, storeLastNPredictions)
	}
	t.storeLastN = storeLastNPredictions

	for uid, preds := range t.predictionHistory {
		labels := t.labelHistory[uid]
		for preds.Len() > t.storeLastN {
			preds.PopFront()
			labels.PopFront()
		}
	}
}

// GetMetrics computes the accuracy of uid over its last window predictions.
// WindowAll uses the whole history. When fewer than window predictions are
// stored the accuracy is scaled by available/window. Invalid predictions are
// skipped and the rest are rounded half to even before comparison. Failures
// are logged and reported as zero accuracy.
func (t *PerformanceTracker) GetMetrics(uid int64, window int, targetMetrics ...string) (metrics Metrics) {
	metrics = Metrics{MetricAccuracy: 0}

	preds, ok := t.predictionHistory[uid]
	if !ok {
		return filterMetrics(metrics, targetMetrics)
	}
	if window < 0 {
		log.Error().Int64("uid", uid).Int("window", window).Msg("Invalid metrics window")
		return filterMetrics(metrics, targetMetrics)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Int64("uid", uid).Msgf("Failed to compute metrics: %v", r)
			metrics = filterMetrics(Metrics{MetricAccuracy: 0}, targetMetrics)
		}
	}()

	labels := t.labelHistory[uid]
	n := preds.Len()
	start, windowK := 0, 1.0
	if window != WindowAll {
		w := min(window, n)
		if window > n {
			log.Debug().Int64("uid", uid).Msgf("Window %d exceeds history of %d predictions", window, n)
		}
		start = n - w
		windowK = float64(w) / float64(window)
	}

	hits := make([]float64, 0, n-start)
	for i := start; i < n; i++ {
		p := preds.At(i)
		if p == InvalidPrediction {
			continue
		}
		if math.RoundToEven(p) == labels.At(i) {
			hits = append(hits, 1)
		} else {
			hits = append(hits, 0)
		}
	}
	if len(hits) == 0 {
		return filterMetrics(metrics, targetMetrics)
	}

	metrics[MetricAccuracy] = stat.Mean(hits, nil) * windowK
	return filterMetrics(metrics, targetMetrics)
}

func filterMetrics(metrics Metrics, targetMetrics []string) Metrics {
	if len(targetMetrics) == 0 {
		return metrics
	}
	filtered := make(Metrics, len(targetMetrics))
	for _, name := range targetMetrics {
		if v, ok := metrics[name]; ok {
			filtered[name] = v
		}
	}
	return filtered
}

func dequeToSlice(d *deque.Deque[float64]) []float64 {
	out := make([]float64, d.Len())
	for i := range out {
		out[i] = d.At(i)
	}
	return out
}
