package progress

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrRunNotFound is returned when updating a manifest that was never queued or started.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunFinished is returned when updating a run that already succeeded or failed.
	ErrRunFinished = errors.New("run already finished")
)

// Tracker records the progress of every manifest in a batch. It is safe for
// concurrent use by pipeline workers and the status server.
type Tracker struct {
	mu    sync.RWMutex
	store Store
	now   func() time.Time
}

// NewTracker constructs a tracker backed by an in-memory store.
func NewTracker() *Tracker {
	return NewTrackerWithStore(NewInMemoryStore())
}

// NewTrackerWithStore constructs a tracker that uses the given Store.
func NewTrackerWithStore(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// Queue registers manifest as pending. Queueing a known manifest is a no-op.
func (t *Tracker) Queue(manifest string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.store.GetRun(manifest); ok {
		return
	}
	t.store.SetRun(&Run{Manifest: manifest, State: StatePending})
}

// Start marks manifest as running under a fresh RunID and returns it.
// A previous run of the same manifest is replaced.
func (t *Tracker) Start(manifest, output string) RunID {
	t.mu.Lock()
	defer t.mu.Unlock()

	started := t.now().UTC()
	run := &Run{
		ID:        RunID(uuid.NewString()),
		Manifest:  manifest,
		Output:    output,
		State:     StateRunning,
		StartedAt: &started,
	}
	t.store.SetRun(run)
	return run.ID
}

// SetTotal records how many segments the run's media playlist lists.
func (t *Tracker) SetTotal(manifest string, total int) error {
	return t.update(manifest, func(r *Run) {
		r.SegmentsTotal = total
	})
}

// RecordSegment counts one finished segment fetch.
func (t *Tracker) RecordSegment(manifest string, ok bool, bytes int64) error {
	return t.update(manifest, func(r *Run) {
		if ok {
			r.SegmentsDownloaded++
			r.Bytes += bytes
			return
		}
		r.SegmentsFailed++
	})
}

// Finish moves the run to succeeded when err is nil, failed otherwise.
func (t *Tracker) Finish(manifest string, err error) error {
	return t.update(manifest, func(r *Run) {
		finished := t.now().UTC()
		r.FinishedAt = &finished
		if err != nil {
			r.State = StateFailed
			r.Error = err.Error()
			return
		}
		r.State = StateSucceeded
	})
}

// Snapshot returns a copy of the run for manifest.
func (t *Tracker) Snapshot(manifest string) (Run, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.store.GetRun(manifest)
	if !ok {
		return Run{}, false
	}
	return *r, true
}

// List returns copies of all runs sorted by manifest name.
func (t *Tracker) List() []Run {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := t.store.ListManifests()
	sort.Strings(names)

	runs := make([]Run, 0, len(names))
	for _, name := range names {
		if r, ok := t.store.GetRun(name); ok {
			runs = append(runs, *r)
		}
	}
	return runs
}

// ActiveCount returns the number of running manifests. Used for metrics.
func (t *Tracker) ActiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, name := range t.store.ListManifests() {
		if r, ok := t.store.GetRun(name); ok && r.State == StateRunning {
			n++
		}
	}
	return n
}

func (t *Tracker) update(manifest string, fn func(r *Run)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.store.GetRun(manifest)
	if !ok || r.State == StatePending {
		return ErrRunNotFound
	}
	if r.Done() {
		return ErrRunFinished
	}
	fn(r)
	return nil
}
