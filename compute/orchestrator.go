package compute

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MudgalLabs/arthveda-sub000/change"
	"github.com/MudgalLabs/arthveda-sub000/draft"
)

// DefaultTimeout bounds a single compute call.
const DefaultTimeout = 10 * time.Second

// Orchestrator consumes recompute requests from a Detector, calls the
// Service and writes results back into the Store.
//
// Each call gets a generation number. Only the response to the most
// recently issued call is applied; older ones are dropped when they land.
type Orchestrator struct {
	svc      Service
	store    *draft.Store
	detector *change.Detector
	notifier Notifier
	log      *zap.Logger
	timeout  time.Duration

	mu     sync.Mutex
	latest uint64
	wg     sync.WaitGroup
}

type Option func(*Orchestrator)

func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithTimeout bounds each compute call. Zero or negative leaves the
// default in place.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func NewOrchestrator(svc Service, store *draft.Store, detector *change.Detector, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		svc:      svc,
		store:    store,
		detector: detector,
		log:      zap.NewNop(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.notifier == nil {
		o.notifier = NotifierFunc(func(error) {})
	}
	return o
}

// Run consumes requests until ctx is done, then waits for calls still in
// flight to finish.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.detector.Requests():
			o.start(ctx)
		}
	}
}

// Invalidate makes every call currently in flight stale. If reset is not
// nil it runs before any other call can start or be applied.
func (o *Orchestrator) Invalidate(reset func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.latest++
	if reset != nil {
		reset()
	}
}

// Generation returns the number of the most recently issued call.
func (o *Orchestrator) Generation() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.latest
}

func (o *Orchestrator) start(ctx context.Context) {
	o.mu.Lock()
	if !o.detector.Begin() {
		o.mu.Unlock()
		return
	}
	o.latest++
	gen := o.latest
	st := o.store.State()
	sent := change.SnapshotOf(st.Position, st.AutoCharges)
	o.mu.Unlock()

	req := Request{
		Trades:          st.Position.Trades,
		RiskAmount:      st.Position.RiskAmount,
		Instrument:      st.Position.Instrument,
		AutoCharges:     st.AutoCharges,
		BrokerAccountID: st.Position.BrokerAccountID,
	}

	o.log.Debug("compute started",
		zap.Uint64("generation", gen),
		zap.Int("trades", len(req.Trades)),
		zap.Bool("auto_charges", req.AutoCharges),
	)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		cctx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		res, err := o.svc.Compute(cctx, req)
		o.finish(gen, sent, res, err)
	}()
}

// finish applies a response. sent is the snapshot the request was built
// from; the suppressed write is recorded against it, so edits made while
// the call was in flight still differ from it on the next settle.
func (o *Orchestrator) finish(gen uint64, sent change.Snapshot, res Result, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	defer o.detector.Finish()

	if gen != o.latest {
		o.log.Debug("dropping stale compute response",
			zap.Uint64("generation", gen),
			zap.Uint64("latest", o.latest),
		)
		return
	}

	if err != nil {
		o.log.Warn("compute failed", zap.Uint64("generation", gen), zap.Error(err))
		o.notifier.Notify(fmt.Errorf("compute position: %w", err))
		return
	}

	n := len(res.Charges)
	if n > 0 && n == len(sent.Trades) && n == len(o.store.Trades()) {
		applied := sent.WithCharges(res.Charges)
		o.detector.Suppress(applied)
		o.store.ApplyCharges(res.Charges)
	}
	o.store.ApplyDerived(res.Derived)

	o.log.Debug("compute applied",
		zap.Uint64("generation", gen),
		zap.String("status", string(res.Status)),
		zap.String("net_pnl", res.NetPnL.String()),
	)
}

var (
	_ Service = (*Calculator)(nil)
	_ Service = (*HTTPClient)(nil)
)
