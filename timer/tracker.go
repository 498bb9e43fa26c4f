package timer

import (
	"cmp"
	"slices"
	"sync"

	"github.com/maruel/natural"

	"github.com/barsamuebles/cronos/internal/models"
	"github.com/barsamuebles/cronos/internal/timeutil"
)

// ActiveTimer is the in-memory state of one stage timer. RunningSince holds
// the epoch second the current run began and is nil while paused.
type ActiveTimer struct {
	RunningSince      *int64
	Key               models.TimerKey
	CheckpointSeconds int64
	Finished          bool
}

// Running reports whether the timer is counting.
func (a ActiveTimer) Running() bool {
	return a.RunningSince != nil
}

type entry struct {
	ActiveTimer
	// observed is the largest elapsed value handed out since the last
	// checkpoint change, so reads never go backwards if the wall clock does.
	observed int64
}

// Tracker computes elapsed time for any number of stage timers using only
// in-memory state.
type Tracker struct {
	clock  timeutil.Clock
	timers map[models.TimerKey]*entry
	mu     sync.Mutex
}

// NewTracker returns an empty tracker reading time from clock.
func NewTracker(clock timeutil.Clock) *Tracker {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}

	return &Tracker{
		clock:  clock,
		timers: make(map[models.TimerKey]*entry),
	}
}

func (t *Tracker) now() int64 {
	return t.clock.Now().Unix()
}

func (t *Tracker) elapsedLocked(e *entry) int64 {
	if e.RunningSince == nil {
		return e.CheckpointSeconds
	}

	delta := t.now() - *e.RunningSince
	if delta < 0 {
		delta = 0
	}

	v := e.CheckpointSeconds + delta
	if v < e.observed {
		v = e.observed
	}

	e.observed = v

	return v
}

// Start begins counting from checkpoint. Starting a running timer does
// nothing, and a paused timer never resumes below its own checkpoint.
func (t *Tracker) Start(key models.TimerKey, checkpoint int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.timers[key]
	if ok && e.Finished {
		return ErrTimerFinished.Fmt(key)
	}

	if ok && e.RunningSince != nil {
		return nil
	}

	if !ok {
		e = &entry{ActiveTimer: ActiveTimer{Key: key}}
		t.timers[key] = e
	}

	checkpoint = max(checkpoint, e.CheckpointSeconds, 0)
	now := t.now()

	e.CheckpointSeconds = checkpoint
	e.RunningSince = &now
	e.observed = checkpoint

	return nil
}

// CurrentElapsed returns the elapsed seconds for key, or 0 if it is unknown.
func (t *Tracker) CurrentElapsed(key models.TimerKey) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.timers[key]
	if !ok {
		return 0
	}

	return t.elapsedLocked(e)
}

// Stop pauses the timer and returns the elapsed seconds it was stopped at.
func (t *Tracker) Stop(key models.TimerKey) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.timers[key]
	if !ok {
		return 0
	}

	return t.stopLocked(e)
}

func (t *Tracker) stopLocked(e *entry) int64 {
	v := t.elapsedLocked(e)

	e.CheckpointSeconds = v
	e.RunningSince = nil
	e.observed = v

	return v
}

// Reset pauses the timer at zero. Unknown keys are left alone.
func (t *Tracker) Reset(key models.TimerKey) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.timers[key]
	if !ok {
		return nil
	}

	if e.Finished {
		return ErrTimerFinished.Fmt(key)
	}

	e.CheckpointSeconds = 0
	e.RunningSince = nil
	e.observed = 0

	return nil
}

// Finish stops the timer and marks it terminal. Unknown keys are finished
// at zero.
func (t *Tracker) Finish(key models.TimerKey) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.timers[key]
	if !ok {
		e = &entry{ActiveTimer: ActiveTimer{Key: key}}
		t.timers[key] = e
	}

	if e.Finished {
		return e.CheckpointSeconds, ErrTimerFinished.Fmt(key)
	}

	v := t.stopLocked(e)
	e.Finished = true

	return v, nil
}

// Get returns a copy of the timer state for key.
func (t *Tracker) Get(key models.TimerKey) (ActiveTimer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.timers[key]
	if !ok {
		return ActiveTimer{}, false
	}

	return e.copy(), true
}

func (e *entry) copy() ActiveTimer {
	a := e.ActiveTimer

	if e.RunningSince != nil {
		since := *e.RunningSince
		a.RunningSince = &since
	}

	return a
}

// Restore replaces the state for a.Key with a, typically a value previously
// returned by Get.
func (t *Tracker) Restore(a ActiveTimer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := &entry{ActiveTimer: a}
	if a.RunningSince != nil {
		since := *a.RunningSince
		e.RunningSince = &since
	}

	e.observed = e.CheckpointSeconds
	t.timers[a.Key] = e
}

// Forget drops every trace of key.
func (t *Tracker) Forget(key models.TimerKey) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.timers, key)
}

func compareKeys(a, b models.TimerKey) int {
	if c := cmp.Compare(a.JobID, b.JobID); c != 0 {
		return c
	}

	if a.Stage == b.Stage {
		return 0
	}

	if natural.Less(a.Stage, b.Stage) {
		return -1
	}

	return 1
}

// ActiveKeys returns the keys of all running timers ordered by job and stage.
func (t *Tracker) ActiveKeys() []models.TimerKey {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]models.TimerKey, 0, len(t.timers))

	for k, e := range t.timers {
		if e.RunningSince != nil {
			keys = append(keys, k)
		}
	}

	slices.SortFunc(keys, compareKeys)

	return keys
}

// ActiveCount returns the number of running timers.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var n int

	for _, e := range t.timers {
		if e.RunningSince != nil {
			n++
		}
	}

	return n
}

// Status returns the live view of key.
func (t *Tracker) Status(key models.TimerKey) models.Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.timers[key]
	if !ok {
		return models.Status{Key: key}
	}

	return t.statusLocked(e)
}

func (t *Tracker) statusLocked(e *entry) models.Status {
	return models.Status{
		Key:            e.Key,
		ElapsedSeconds: t.elapsedLocked(e),
		Running:        e.RunningSince != nil,
		Finished:       e.Finished,
	}
}

// Statuses returns the live view of every known timer ordered by job and
// stage.
func (t *Tracker) Statuses() []models.Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	statuses := make([]models.Status, 0, len(t.timers))

	for _, e := range t.timers {
		statuses = append(statuses, t.statusLocked(e))
	}

	slices.SortFunc(statuses, func(a, b models.Status) int {
		return compareKeys(a.Key, b.Key)
	})

	return statuses
}
