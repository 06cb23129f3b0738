package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MudgalLabs/arthveda-sub000/change"
	"github.com/MudgalLabs/arthveda-sub000/compute"
	"github.com/MudgalLabs/arthveda-sub000/draft"
	"github.com/MudgalLabs/arthveda-sub000/position"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

type fakeService struct {
	mu    sync.Mutex
	calls []compute.Request
	gate  chan struct{}
	err   error
}

func (f *fakeService) Compute(ctx context.Context, req compute.Request) (compute.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	gate, err := f.gate, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return compute.Result{}, ctx.Err()
		}
	}
	if err != nil {
		return compute.Result{}, err
	}
	return compute.NewCalculator().Compute(ctx, req)
}

func (f *fakeService) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeService) last() compute.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakePersistence struct {
	mu      sync.Mutex
	created []position.Position
	updated map[string]position.Position
	deleted []string
	err     error
}

func (f *fakePersistence) Create(_ context.Context, p position.Position) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, p)
	return "pos-new", nil
}

func (f *fakePersistence) Update(_ context.Context, id string, p position.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.updated == nil {
		f.updated = map[string]position.Position{}
	}
	f.updated[id] = p
	return nil
}

func (f *fakePersistence) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakePersistence) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fixture struct {
	s       *Session
	clk     *clock.Mock
	svc     *fakeService
	persist *fakePersistence
	notes   chan error
}

func open(t *testing.T, e Entry) *fixture {
	t.Helper()

	f := &fixture{
		clk:     clock.NewMock(),
		svc:     &fakeService{},
		persist: &fakePersistence{},
		notes:   make(chan error, 8),
	}
	s, err := Open(context.Background(), e, Options{
		Service:     f.svc,
		Persistence: f.persist,
		Notifier:    compute.NotifierFunc(func(err error) { f.notes <- err }),
		Clock:       f.clk,
		Currency:    "USD",
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	f.s = s
	return f
}

// settle lets the debounce window pass and waits for the session to go
// quiet. Compute write-backs re-arm the debouncer, so it may take a few
// rounds.
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		if f.s.Phase() == change.Idle {
			return true
		}
		f.clk.Add(DefaultDebounce)
		return false
	}, waitFor, tick)
}

func fillAAPL(s *Session) {
	s.UpdatePosition(draft.Patch{Symbol: strPtr("AAPL")})
	s.UpdateTrade(0, func(tr *position.Trade) {
		tr.Kind = position.KindBuy
		tr.Quantity = dec("10")
		tr.Price = dec("150")
	})
}

func TestOpenRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Entry{NewRoute: true}, Options{Persistence: &fakePersistence{}})
	assert.Error(t, err)
	_, err = Open(context.Background(), Entry{NewRoute: true}, Options{Service: &fakeService{}})
	assert.Error(t, err)
	_, err = Open(context.Background(), Entry{}, Options{Service: &fakeService{}, Persistence: &fakePersistence{}})
	assert.ErrorIs(t, err, ErrUnresolvedMode)
}

func TestNewSessionStartsWithOneEmptyTrade(t *testing.T) {
	t.Parallel()

	f := open(t, Entry{NewRoute: true})

	assert.Equal(t, ModeCreating, f.s.Mode())
	p := f.s.Position()
	require.Len(t, p.Trades, 1)
	assert.Equal(t, position.KindBuy, p.Trades[0].Kind)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, position.InstrumentEquity, p.Instrument)
	assert.False(t, f.s.CanSave())
	assert.False(t, f.s.HasChanged())
	assert.Equal(t, change.Idle, f.s.Phase())
}

func TestAAPLScenario(t *testing.T) {
	t.Parallel()

	f := open(t, Entry{NewRoute: true})
	fillAAPL(f.s)
	assert.Equal(t, change.AwaitingDebounce, f.s.Phase())

	f.settle(t)
	assert.True(t, f.s.CanSave())
	assert.Equal(t, 1, f.svc.count())
	assert.Equal(t, position.StatusOpen, f.s.Position().Status)
	assert.True(t, f.s.HasChanged())

	f.s.Discard()
	assert.False(t, f.s.HasChanged())
	assert.True(t, f.s.Position().Equal(f.s.Baseline()))
	assert.False(t, f.s.AutoCharges())
}

func TestRapidEditsCollapseIntoOneCompute(t *testing.T) {
	t.Parallel()

	f := open(t, Entry{NewRoute: true})
	fillAAPL(f.s)
	f.clk.Add(200 * time.Millisecond)
	f.s.UpdateTrade(0, func(tr *position.Trade) { tr.Price = dec("151") })
	f.clk.Add(200 * time.Millisecond)
	f.s.UpdateTrade(0, func(tr *position.Trade) { tr.Quantity = dec("12") })
	assert.Equal(t, 0, f.svc.count())

	f.settle(t)
	assert.Never(t, func() bool { return f.svc.count() > 1 }, 50*time.Millisecond, tick)
	require.Equal(t, 1, f.svc.count())

	req := f.svc.last()
	require.Len(t, req.Trades, 1)
	assert.True(t, req.Trades[0].Price.Equal(dec("151")))
	assert.True(t, req.Trades[0].Quantity.Equal(dec("12")))
}

func TestAutoChargesWriteBackDoesNotRecompute(t *testing.T) {
	t.Parallel()

	f := open(t, Entry{NewRoute: true})
	fillAAPL(f.s)
	f.s.SetAutoCharges(true)
	f.settle(t)

	require.Equal(t, 1, f.svc.count())
	assert.True(t, f.svc.last().AutoCharges)
	assert.True(t, f.s.Trades()[0].Charges.Equal(dec("0.45")))

	// More quiet time must not produce another call.
	f.clk.Add(5 * DefaultDebounce)
	assert.Never(t, func() bool { return f.svc.count() > 1 }, 50*time.Millisecond, tick)

	// A real edit after the write-back still gets through.
	f.s.InsertNewTrade()
	f.s.UpdateTrade(1, func(tr *position.Trade) {
		tr.Quantity = dec("10")
		tr.Price = dec("160")
	})
	f.settle(t)
	require.Equal(t, 2, f.svc.count())
	assert.Equal(t, position.StatusWin, f.s.Position().Status)
	assert.Equal(t, position.KindSell, f.s.Trades()[1].Kind)
}

func TestInvalidTradesDoNotCompute(t *testing.T) {
	t.Parallel()

	f := open(t, Entry{NewRoute: true})
	f.s.UpdatePosition(draft.Patch{Symbol: strPtr("AAPL")})
	f.s.UpdateTrade(0, func(tr *position.Trade) { tr.Quantity = dec("10") })
	f.settle(t)

	assert.Equal(t, 0, f.svc.count())
	assert.False(t, f.s.TradesAreValid())
	assert.False(t, f.s.Recompute())
}

func TestRecomputeNudge(t *testing.T) {
	t.Parallel()

	loaded := position.Position{
		ID:         "pos-1",
		Symbol:     "INFY",
		Instrument: position.InstrumentEquity,
		Trades: []position.Trade{
			{ID: "t1", Kind: position.KindBuy, Quantity: dec("5"), Price: dec("1500")},
		},
	}
	f := open(t, Entry{TargetID: "pos-1", Loaded: &loaded})

	f.clk.Add(5 * DefaultDebounce)
	assert.Never(t, func() bool { return f.svc.count() > 0 }, 30*time.Millisecond, tick)

	require.True(t, f.s.Recompute())
	require.Eventually(t, func() bool { return f.svc.count() == 1 }, waitFor, tick)
	f.settle(t)
	assert.Equal(t, position.StatusOpen, f.s.Position().Status)
}

func TestComputeFailureNotifiesAndKeepsDraft(t *testing.T) {
	t.Parallel()

	f := open(t, Entry{NewRoute: true})
	boom := errors.New("compute unavailable")
	f.svc.err = boom

	fillAAPL(f.s)
	before := f.s.Position()
	f.settle(t)

	select {
	case err := <-f.notes:
		assert.ErrorIs(t, err, boom)
	case <-time.After(waitFor):
		t.Fatal("no notification")
	}
	assert.True(t, f.s.Position().Equal(before))
	assert.False(t, f.s.Computing())
	assert.Equal(t, 1, f.svc.count())
}

func TestDiscardDropsInFlightCompute(t *testing.T) {
	t.Parallel()

	f := open(t, Entry{NewRoute: true})
	f.svc.gate = make(chan struct{})

	fillAAPL(f.s)
	f.clk.Add(DefaultDebounce)
	require.Eventually(t, f.s.Computing, waitFor, tick)

	f.s.Discard()
	close(f.svc.gate)
	require.Eventually(t, func() bool { return !f.s.Computing() }, waitFor, tick)
	f.settle(t)

	assert.True(t, f.s.Position().Equal(f.s.Baseline()))
	assert.False(t, f.s.HasChanged())
	assert.Equal(t, 1, f.svc.count())
}

func TestEditDuringComputeIsNotSwallowed(t *testing.T) {
	t.Parallel()

	f := open(t, Entry{NewRoute: true})
	f.svc.gate = make(chan struct{})

	fillAAPL(f.s)
	f.s.SetAutoCharges(true)
	f.clk.Add(DefaultDebounce)
	require.Eventually(t, f.s.Computing, waitFor, tick)

	// The edit lands while the call is in flight and the response is
	// applied before the edit settles.
	f.s.UpdateTrade(0, func(tr *position.Trade) { tr.Quantity = dec("20") })
	close(f.svc.gate)
	require.Eventually(t, func() bool { return !f.s.Computing() }, waitFor, tick)
	assert.True(t, f.s.Trades()[0].Charges.Equal(dec("0.45")))

	f.settle(t)
	require.Equal(t, 2, f.svc.count())
	assert.True(t, f.svc.last().Trades[0].Quantity.Equal(dec("20")))

	p := f.s.Position()
	assert.True(t, p.OpenQuantity.Equal(p.Trades[0].Quantity), p.OpenQuantity.String())
	assert.True(t, p.Trades[0].Charges.Equal(dec("0.9")), p.Trades[0].Charges.String())
}

func TestWaitIdleFollowsSessionClock(t *testing.T) {
	t.Parallel()

	f := open(t, Entry{NewRoute: true})
	fillAAPL(f.s)

	done := make(chan error, 1)
	go func() { done <- f.s.WaitIdle(context.Background()) }()

	// Nothing moves until the session clock does.
	assert.Never(t, func() bool { return len(done) > 0 }, 50*time.Millisecond, tick)

	require.Eventually(t, func() bool {
		select {
		case err := <-done:
			assert.NoError(t, err)
			return true
		default:
			f.clk.Add(DefaultDebounce)
			return false
		}
	}, waitFor, tick)
	assert.Equal(t, 1, f.svc.count())
}

func TestSaveCreatesAndCloses(t *testing.T) {
	t.Parallel()

	f := open(t, Entry{NewRoute: true})
	fillAAPL(f.s)

	id, err := f.s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pos-new", id)
	require.Len(t, f.persist.created, 1)
	assert.Equal(t, "AAPL", f.persist.created[0].Symbol)

	_, err = f.s.Save(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSaveRejectsInvalidDraft(t *testing.T) {
	t.Parallel()

	f := open(t, Entry{NewRoute: true})
	f.s.UpdatePosition(draft.Patch{Symbol: strPtr("  ")})

	_, err := f.s.Save(context.Background())
	assert.ErrorIs(t, err, ErrInvalidDraft)
	assert.Empty(t, f.persist.created)
}

func TestSaveFailurePreservesDraft(t *testing.T) {
	t.Parallel()

	f := open(t, Entry{NewRoute: true})
	fillAAPL(f.s)
	f.persist.setErr(errors.New("conflict"))

	_, err := f.s.Save(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create position")
	assert.Equal(t, "AAPL", f.s.Position().Symbol)
	assert.True(t, f.s.CanSave())

	f.persist.setErr(nil)
	id, err := f.s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pos-new", id)
}

func TestEditingSavesUpdate(t *testing.T) {
	t.Parallel()

	loaded := position.Position{
		ID:     "pos-1",
		Symbol: "INFY",
		Trades: []position.Trade{
			{ID: "t1", Kind: position.KindBuy, Quantity: dec("5"), Price: dec("1500")},
		},
	}
	f := open(t, Entry{TargetID: "pos-1", Loaded: &loaded})
	assert.Equal(t, ModeEditing, f.s.Mode())

	notes := "added after review"
	f.s.UpdatePosition(draft.Patch{Notes: &notes})
	id, err := f.s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pos-1", id)
	assert.Equal(t, notes, f.persist.updated["pos-1"].Notes)
	assert.Empty(t, f.persist.created)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	creating := open(t, Entry{NewRoute: true})
	assert.ErrorIs(t, creating.s.Delete(context.Background()), ErrNotEditing)

	loaded := position.Position{ID: "pos-1", Symbol: "INFY"}
	editing := open(t, Entry{TargetID: "pos-1", Loaded: &loaded})
	require.NoError(t, editing.s.Delete(context.Background()))
	assert.Equal(t, []string{"pos-1"}, editing.persist.deleted)
	assert.ErrorIs(t, editing.s.Delete(context.Background()), ErrClosed)
}

func TestWaitIdleWithWallClock(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	s, err := Open(context.Background(), Entry{NewRoute: true}, Options{
		Service:     svc,
		Persistence: &fakePersistence{},
		Debounce:    10 * time.Millisecond,
	})
	require.NoError(t, err)
	defer s.Close()

	fillAAPL(s)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, s.WaitIdle(ctx))

	assert.Equal(t, 1, svc.count())
	assert.Equal(t, position.StatusOpen, s.Position().Status)
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	f := open(t, Entry{NewRoute: true})
	f.s.Close()
	f.s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	fillAAPL(f.s)
	assert.ErrorIs(t, f.s.WaitIdle(ctx), ErrClosed)
}
