package scoring

// TrackerEntry pairs a task with the tracker holding its miner history.
type TrackerEntry struct {
	Task    Task
	Tracker *PerformanceTracker
}

// TrackerRegistry is the ordered set of trackers, one per task. It is built
// once at startup and handed to every scoring round.
type TrackerRegistry struct {
	entries []TrackerEntry
	index   map[string]int
}

func NewTrackerRegistry() *TrackerRegistry {
	return &TrackerRegistry{index: make(map[string]int)}
}

// Register adds a tracker for task. A task with the same name is replaced in
// place so iteration order does not change.
func (r *TrackerRegistry) Register(task Task, tracker *PerformanceTracker) {
	if i, ok := r.index[task.Name()]; ok {
		r.entries[i] = TrackerEntry{Task: task, Tracker: tracker}
		return
	}
	r.index[task.Name()] = len(r.entries)
	r.entries = append(r.entries, TrackerEntry{Task: task, Tracker: tracker})
}

func (r *TrackerRegistry) Tracker(taskName string) (*PerformanceTracker, bool) {
	i, ok := r.index[taskName]
	if !ok {
		return nil, false
	}
	return r.entries[i].Tracker, true
}

func (r *TrackerRegistry) Entry(taskName string) (TrackerEntry, bool) {
	i, ok := r.index[taskName]
	if !ok {
		return TrackerEntry{}, false
	}
	return r.entries[i], true
}

func (r *TrackerRegistry) Contains(task Task) bool {
	_, ok := r.index[task.Name()]
	return ok
}

// Entries returns the registered trackers in registration order.
func (r *TrackerRegistry) Entries() []TrackerEntry {
	out := make([]TrackerEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *TrackerRegistry) Len() int {
	return len(r.entries)
}
