package change

import (
	"sync"

	"go.uber.org/zap"
)

// Phase is where the edit/compute cycle currently stands.
type Phase int

const (
	Idle             Phase = iota // nothing pending
	AwaitingDebounce              // a write happened, waiting for edits to settle
	ComputeRequested              // settled edits need a recompute
	Computing                     // at least one compute call in flight
	SuppressedApply               // a compute result was written back; the next settle skips it
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "IDLE"
	case AwaitingDebounce:
		return "AWAITING_DEBOUNCE"
	case ComputeRequested:
		return "COMPUTE_REQUESTED"
	case Computing:
		return "COMPUTING"
	case SuppressedApply:
		return "SUPPRESSED_APPLY"
	default:
		return "UNKNOWN"
	}
}

// Detector compares each settled snapshot of the draft with the previous
// settled snapshot and raises a recompute request when an input changed
// and the trades are valid.
//
// Requests are delivered on a channel with capacity one, so any number of
// raises before the consumer gets to it collapse into a single request.
//
// Safe for concurrent use.
type Detector struct {
	mu       sync.Mutex
	phase    Phase
	prev     Snapshot
	applied  Snapshot // draft inputs as left by the last self-inflicted write
	pending  bool     // a write happened after the last settle
	inflight int

	requests chan struct{}
	log      *zap.Logger
}

// NewDetector returns a detector that treats initial as the previous
// settled snapshot, so an untouched draft never triggers a compute.
func NewDetector(initial Snapshot, log *zap.Logger) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{
		phase:    Idle,
		prev:     initial,
		requests: make(chan struct{}, 1),
		log:      log,
	}
}

// Requests delivers one value per raised recompute request.
func (d *Detector) Requests() <-chan struct{} {
	return d.requests
}

func (d *Detector) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// InFlight returns the number of compute calls currently outstanding.
func (d *Detector) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inflight
}

// Touch records that the draft was written.
func (d *Detector) Touch() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = true
	if d.phase == Idle {
		d.phase = AwaitingDebounce
	}
}

// Evaluate is called once edits have settled. It reports whether a
// recompute was requested.
//
// In SuppressedApply the previous snapshot is first replaced by the one
// recorded when the compute result was written, which swallows that write
// while still catching any user edit made since.
func (d *Detector) Evaluate(cur Snapshot, tradesValid bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = false

	switch d.phase {
	case SuppressedApply:
		d.prev = d.applied
		d.applied = Snapshot{}
		d.phase = d.rest()
		d.log.Debug("suppressed self-inflicted change")
	case ComputeRequested:
		// Not yet picked up; the consumer reads the latest draft anyway.
		d.prev = cur
		return false
	}

	changed := cur.Differs(d.prev)
	d.prev = cur

	if !changed || !tradesValid {
		d.phase = d.rest()
		return false
	}

	d.raiseLocked()
	return true
}

// Request raises a recompute regardless of the diff.
func (d *Detector) Request() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.phase == SuppressedApply {
		d.prev = d.applied
		d.applied = Snapshot{}
	}
	d.raiseLocked()
}

// Begin claims a raised request. It reports false when there is nothing to
// claim, e.g. because Reset cleared it.
func (d *Detector) Begin() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.phase != ComputeRequested {
		return false
	}
	d.inflight++
	d.phase = Computing
	return true
}

// Suppress must be called before a compute result is written back to the
// draft. applied is what the draft's inputs look like after that write.
func (d *Detector) Suppress(applied Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.phase == ComputeRequested {
		// A newer request is already queued and will read the written
		// result along with everything else.
		d.prev = applied
		return
	}
	d.applied = applied
	d.phase = SuppressedApply
}

// Finish marks one compute call as complete, however it ended.
func (d *Detector) Finish() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inflight > 0 {
		d.inflight--
	}
	if d.phase == Computing {
		d.phase = d.rest()
	}
}

// Reset makes s the previous settled snapshot and drops any pending
// request or suppression. Used when the draft is discarded.
func (d *Detector) Reset(s Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.prev = s
	d.applied = Snapshot{}
	select {
	case <-d.requests:
	default:
	}
	d.phase = d.rest()
}

func (d *Detector) raiseLocked() {
	d.phase = ComputeRequested
	select {
	case d.requests <- struct{}{}:
		d.log.Debug("recompute requested")
	default:
	}
}

// rest is the phase to fall back to once nothing more specific applies.
func (d *Detector) rest() Phase {
	switch {
	case d.inflight > 0:
		return Computing
	case d.pending:
		return AwaitingDebounce
	default:
		return Idle
	}
}
