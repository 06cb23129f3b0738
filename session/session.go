// Package session runs one create/edit position screen: it owns the draft
// store for the lifetime of the screen and keeps it in step with the
// computation service.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/MudgalLabs/arthveda-sub000/change"
	"github.com/MudgalLabs/arthveda-sub000/compute"
	"github.com/MudgalLabs/arthveda-sub000/draft"
	"github.com/MudgalLabs/arthveda-sub000/position"
)

// DefaultDebounce is the quiet period before settled edits are examined.
const DefaultDebounce = 500 * time.Millisecond

var (
	ErrInvalidDraft = errors.New("session: draft cannot be saved")
	ErrNotEditing   = errors.New("session: position has not been persisted")
	ErrClosed       = errors.New("session: closed")
)

// Persistence stores positions. It is only called on save and delete.
type Persistence interface {
	Create(ctx context.Context, p position.Position) (string, error)
	Update(ctx context.Context, id string, p position.Position) error
	Delete(ctx context.Context, id string) error
}

// Options wires a session to its collaborators. Service and Persistence
// are required.
type Options struct {
	Service     compute.Service
	Persistence Persistence
	Notifier    compute.Notifier
	Logger      *zap.Logger
	Clock       clock.Clock

	Debounce       time.Duration
	ComputeTimeout time.Duration

	// Defaults for a blank draft.
	Instrument position.Instrument
	Currency   string
}

// Session is one editing session. Create it with Open when the screen is
// entered and Close it when the screen is left. All methods are safe for
// concurrent use.
type Session struct {
	mode    Mode
	store   *draft.Store
	det     *change.Detector
	deb     *change.Debouncer
	orch    *compute.Orchestrator
	persist Persistence
	clock   clock.Clock
	log     *zap.Logger

	unsubscribe func()
	cancel      context.CancelFunc
	done        chan struct{}

	mu     sync.Mutex
	closed bool
}

// Open resolves the mode from e, captures the baseline and starts the
// compute loop. The loop stops when ctx is done or Close is called.
func Open(ctx context.Context, e Entry, opts Options) (*Session, error) {
	if opts.Service == nil {
		return nil, errors.New("session: compute service is required")
	}
	if opts.Persistence == nil {
		return nil, errors.New("session: persistence is required")
	}

	mode, err := ResolveMode(e)
	if err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Instrument == "" {
		opts.Instrument = position.InstrumentEquity
	}

	var baseline position.Position
	if mode == ModeEditing {
		baseline = e.Loaded.Clone()
	} else {
		baseline = position.NewDraft(opts.Clock.Now(), opts.Instrument, opts.Currency)
	}

	log := opts.Logger.With(zap.String("mode", mode.String()), zap.String("position_id", baseline.ID))

	s := &Session{
		mode:    mode,
		store:   draft.New(baseline, draft.WithNow(opts.Clock.Now)),
		persist: opts.Persistence,
		clock:   opts.Clock,
		log:     log,
		done:    make(chan struct{}),
	}
	s.det = change.NewDetector(change.SnapshotOf(baseline, false), log)
	s.deb = change.NewDebouncer(opts.Clock, opts.Debounce, s.settle)

	notifier := opts.Notifier
	if notifier == nil {
		notifier = compute.NotifierFunc(func(err error) {
			log.Warn("compute notification", zap.Error(err))
		})
	}
	s.orch = compute.NewOrchestrator(opts.Service, s.store, s.det,
		compute.WithLogger(log),
		compute.WithNotifier(notifier),
		compute.WithTimeout(opts.ComputeTimeout),
	)

	s.unsubscribe = s.store.Subscribe(func() {
		s.det.Touch()
		s.deb.Trigger()
	})

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() {
		defer close(s.done)
		_ = s.orch.Run(runCtx)
	}()

	log.Debug("session opened")
	return s, nil
}

// settle runs once edits have been quiet for the debounce period.
func (s *Session) settle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	st := s.store.State()
	if s.det.Evaluate(change.SnapshotOf(st.Position, st.AutoCharges), draft.TradesAreValid(st.Position.Trades)) {
		s.log.Debug("edits settled, recompute requested")
	}
}

func (s *Session) Mode() Mode { return s.mode }

// Phase reports where the edit/compute cycle stands.
func (s *Session) Phase() change.Phase { return s.det.Phase() }

// Computing reports whether a compute call is in flight.
func (s *Session) Computing() bool { return s.det.InFlight() > 0 }

func (s *Session) Position() position.Position { return s.store.Position() }
func (s *Session) Trades() []position.Trade    { return s.store.Trades() }
func (s *Session) Baseline() position.Position { return s.store.Baseline() }
func (s *Session) AutoCharges() bool           { return s.store.AutoCharges() }
func (s *Session) TradesAreValid() bool        { return s.store.TradesAreValid() }
func (s *Session) CanSave() bool               { return s.store.CanSave() }
func (s *Session) HasChanged() bool            { return s.store.HasChanged() }

func (s *Session) UpdatePosition(p draft.Patch) { s.store.UpdatePosition(p) }
func (s *Session) SetAutoCharges(on bool)       { s.store.SetAutoCharges(on) }

func (s *Session) SetTrades(trades []position.Trade) []position.Trade {
	return s.store.SetTrades(trades)
}

func (s *Session) UpdateTrades(fn func([]position.Trade) []position.Trade) []position.Trade {
	return s.store.UpdateTrades(fn)
}

func (s *Session) UpdateTrade(i int, fn func(*position.Trade)) bool {
	return s.store.UpdateTrade(i, fn)
}

func (s *Session) InsertNewTrade() position.Trade { return s.store.InsertNewTrade() }
func (s *Session) RemoveTrade(i int) bool         { return s.store.RemoveTrade(i) }

// Discard restores the baseline. Pending and in-flight computes are
// dropped so they cannot overwrite the restored derived fields.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orch.Invalidate(func() {
		s.store.Discard()
		s.det.Reset(change.SnapshotOf(s.store.Baseline(), false))
	})
	s.log.Debug("draft discarded")
}

// Recompute asks for a compute without waiting for an edit. It reports
// false when the trades are not valid.
func (s *Session) Recompute() bool {
	if !s.store.TradesAreValid() {
		return false
	}
	s.det.Request()
	return true
}

// WaitIdle blocks until no edit is waiting to settle and no compute is
// queued or in flight. It polls on the session's clock.
func (s *Session) WaitIdle(ctx context.Context) error {
	t := s.clock.Ticker(10 * time.Millisecond)
	defer t.Stop()

	for {
		select {
		case <-s.done:
			return ErrClosed
		default:
		}
		if s.det.Phase() == change.Idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return ErrClosed
		case <-t.C:
		}
	}
}

// Save creates or updates the position depending on the session's mode
// and returns its identity. A successful save ends the session. On
// failure the draft is left as it was so the user can retry.
func (s *Session) Save(ctx context.Context) (string, error) {
	if s.isClosed() {
		return "", ErrClosed
	}
	p := s.store.Position()
	if !draft.CanSave(p) {
		return "", ErrInvalidDraft
	}

	var id string
	switch s.mode {
	case ModeCreating:
		created, err := s.persist.Create(ctx, p)
		if err != nil {
			s.log.Warn("create position failed", zap.Error(err))
			return "", fmt.Errorf("create position: %w", err)
		}
		id = created
	case ModeEditing:
		if err := s.persist.Update(ctx, p.ID, p); err != nil {
			s.log.Warn("update position failed", zap.Error(err))
			return "", fmt.Errorf("update position: %w", err)
		}
		id = p.ID
	default:
		return "", ErrUnresolvedMode
	}

	s.log.Info("position saved", zap.String("saved_id", id), zap.String("symbol", p.Symbol))
	s.Close()
	return id, nil
}

// Delete removes a persisted position and ends the session.
func (s *Session) Delete(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	if s.mode != ModeEditing {
		return ErrNotEditing
	}
	id := s.store.Baseline().ID
	if err := s.persist.Delete(ctx, id); err != nil {
		s.log.Warn("delete position failed", zap.Error(err))
		return fmt.Errorf("delete position: %w", err)
	}

	s.log.Info("position deleted", zap.String("deleted_id", id))
	s.Close()
	return nil
}

// Close tears the session down and waits for the compute loop to stop.
// It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.unsubscribe()
	s.deb.Stop()
	s.cancel()
	<-s.done
	s.log.Debug("session closed")
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
