package scoring

import "github.com/gammazero/deque"

// TrackerSnapshot is the persisted form of a PerformanceTracker.
type TrackerSnapshot struct {
	PredictionHistory     map[int64][]float64 `json:"prediction_history"`
	LabelHistory          map[int64][]float64 `json:"label_history"`
	MinerHotkeys          map[int64]string    `json:"miner_hotkeys"`
	StoreLastNPredictions int                 `json:"store_last_n_predictions"`
}

func (t *PerformanceTracker) Snapshot() TrackerSnapshot {
	snap := TrackerSnapshot{
		PredictionHistory:     make(map[int64][]float64, len(t.predictionHistory)),
		LabelHistory:          make(map[int64][]float64, len(t.labelHistory)),
		MinerHotkeys:          make(map[int64]string, len(t.minerHotkeys)),
		StoreLastNPredictions: t.storeLastN,
	}
	for uid, preds := range t.predictionHistory {
		snap.PredictionHistory[uid] = dequeToSlice(preds)
	}
	for uid, labels := range t.labelHistory {
		snap.LabelHistory[uid] = dequeToSlice(labels)
	}
	for uid, hotkey := range t.minerHotkeys {
		snap.MinerHotkeys[uid] = hotkey
	}
	return snap
}

// RestorePerformanceTracker rebuilds a tracker from a snapshot. Histories are
// restored as stored, even when longer than the capacity; ResizeHistory
// enforces a capacity afterwards. A uid whose prediction and label histories
// differ in length keeps only its newest aligned pairs.
func RestorePerformanceTracker(snap TrackerSnapshot) *PerformanceTracker {
	t := NewPerformanceTracker(snap.StoreLastNPredictions)
	for uid, preds := range snap.PredictionHistory {
		labels := snap.LabelHistory[uid]
		n := min(len(preds), len(labels))
		t.predictionHistory[uid] = sliceToDeque(preds[len(preds)-n:])
		t.labelHistory[uid] = sliceToDeque(labels[len(labels)-n:])
		t.minerHotkeys[uid] = snap.MinerHotkeys[uid]
	}
	for uid, hotkey := range snap.MinerHotkeys {
		t.minerHotkeys[uid] = hotkey
	}
	return t
}

func sliceToDeque(values []float64) *deque.Deque[float64] {
	d := &deque.Deque[float64]{}
	for _, v := range values {
		d.PushBack(v)
	}
	return d
}
