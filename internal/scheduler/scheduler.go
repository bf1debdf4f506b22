// Package scheduler keeps a portfolio view live. Each cycle asks the source
// to refresh quotes for the held symbols, then fetches the recomputed view.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stockfolio/internal/models"
	"stockfolio/internal/valuation"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

const (
	DefaultInterval = 15 * time.Second
	DefaultTick     = time.Second
)

// ErrClosed is returned by RunCycle once the scheduler has been closed.
var ErrClosed = errors.New("scheduler closed")

// Source is what a cycle talks to. Both calls may be slow and may fail.
type Source interface {
	RequestQuoteRefresh(ctx context.Context, symbols []string) error
	FetchPortfolio(ctx context.Context) (models.PortfolioView, error)
}

type State int

const (
	Idle State = iota
	Refreshing
	Scheduled
)

func (s State) String() string {
	switch s {
	case Refreshing:
		return "refreshing"
	case Scheduled:
		return "scheduled"
	default:
		return "idle"
	}
}

type Config struct {
	Interval time.Duration
	Tick     time.Duration
	Clock    clock.Clock

	// OnUpdate receives every snapshot that replaces the current one.
	// Callbacks run outside the scheduler lock, one at a time, and must not
	// call RunCycle synchronously.
	OnUpdate func(models.PortfolioView)
	// OnError receives cycle failures. The previous snapshot is kept.
	OnError func(error)
	// OnTick receives the countdown after every tick.
	OnTick func(secondsLeft int)
}

type Scheduler struct {
	src Source
	cfg Config
	log *logrus.Logger

	// notifyMu serialises apply+callback so subscribers see snapshots in
	// the order they were applied.
	notifyMu sync.Mutex

	mu           sync.Mutex
	armed        bool
	alive        bool
	stop         chan struct{}
	nextUpdateIn int
	inFlight     int
	seq          uint64
	applied      uint64
	epoch        uint64
	snapshot     *models.PortfolioView
	lastErr      error

	ctx    context.Context
	cancel context.CancelFunc
}

type cycle struct {
	seq     uint64
	epoch   uint64
	refresh bool
	symbols []string
}

func New(src Source, cfg Config, log *logrus.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{src: src, cfg: cfg, log: log, alive: true, ctx: ctx, cancel: cancel}
}

// Start arms the refresh and countdown timers. Calling it while armed does
// nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed || !s.alive {
		return
	}
	s.armed = true
	s.nextUpdateIn = s.fullCountdown()
	s.stop = make(chan struct{})

	refresh := s.cfg.Clock.Ticker(s.cfg.Interval)
	countdown := s.cfg.Clock.Ticker(s.cfg.Tick)
	go s.loop(refresh, countdown, s.stop)
	s.log.Debugf("scheduler started: interval %s", s.cfg.Interval)
}

// Stop disarms both timers and resets the countdown. Cycles already in flight
// finish but their results are dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	s.epoch++
	s.nextUpdateIn = 0
	if !s.armed {
		return
	}
	s.armed = false
	close(s.stop)
	s.stop = nil
	s.log.Debug("scheduler stopped")
}

// Toggle starts a stopped scheduler and stops a running one. It reports
// whether the scheduler is armed afterwards.
func (s *Scheduler) Toggle() bool {
	s.mu.Lock()
	armed := s.armed
	s.mu.Unlock()
	if armed {
		s.Stop()
		return false
	}
	s.Start()
	return s.IsAutoRefreshing()
}

// Close stops the scheduler for good. Completions arriving afterwards are
// discarded and in-flight timer cycles see their context cancelled.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.stopLocked()
	s.alive = false
	s.mu.Unlock()
	s.cancel()
}

// RunCycle runs one cycle on the caller's goroutine. It may overlap a cycle
// started by the timer.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	c, ok := s.begin(false, nil)
	if !ok {
		return ErrClosed
	}
	return s.run(ctx, c)
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.inFlight > 0:
		return Refreshing
	case s.armed:
		return Scheduled
	default:
		return Idle
	}
}

// Snapshot returns the last view applied, if any.
func (s *Scheduler) Snapshot() (models.PortfolioView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return models.PortfolioView{}, false
	}
	return *s.snapshot, true
}

// LastError is the failure of the most recent applied cycle, nil after a
// success.
func (s *Scheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// NextUpdateIn is the countdown in ticks; zero while stopped.
func (s *Scheduler) NextUpdateIn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextUpdateIn
}

func (s *Scheduler) IsAutoRefreshing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

func (s *Scheduler) loop(refresh, countdown *clock.Ticker, stop chan struct{}) {
	defer refresh.Stop()
	defer countdown.Stop()
	for {
		select {
		case <-stop:
			return
		case <-refresh.C:
			c, ok := s.begin(true, stop)
			if !ok {
				continue
			}
			go func() { _ = s.run(s.ctx, c) }()
		case <-countdown.C:
			s.tick(stop)
		}
	}
}

func (s *Scheduler) tick(stop chan struct{}) {
	s.mu.Lock()
	if !s.armed || s.stop != stop {
		s.mu.Unlock()
		return
	}
	if s.nextUpdateIn <= 1 {
		s.nextUpdateIn = s.fullCountdown()
	} else {
		s.nextUpdateIn--
	}
	left := s.nextUpdateIn
	onTick := s.cfg.OnTick
	s.mu.Unlock()

	if onTick != nil {
		onTick(left)
	}
}

// begin reserves a sequence number for a new cycle. The timer path backs
// off while another cycle is in flight or after its timers were disarmed.
func (s *Scheduler) begin(fromTimer bool, stop chan struct{}) (cycle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive {
		return cycle{}, false
	}
	if fromTimer {
		if !s.armed || s.stop != stop {
			return cycle{}, false
		}
		if s.inFlight > 0 {
			s.log.Debug("refresh tick skipped: cycle in flight")
			return cycle{}, false
		}
	}
	s.seq++
	s.inFlight++
	c := cycle{seq: s.seq, epoch: s.epoch}
	if s.snapshot != nil {
		c.refresh = true
		c.symbols = valuation.Symbols(s.snapshot.Holdings)
	}
	return c, true
}

func (s *Scheduler) run(ctx context.Context, c cycle) error {
	view, err := s.fetch(ctx, c)
	s.finish(c, view, err)
	return err
}

func (s *Scheduler) fetch(ctx context.Context, c cycle) (models.PortfolioView, error) {
	if c.refresh && len(c.symbols) > 0 {
		if err := s.src.RequestQuoteRefresh(ctx, c.symbols); err != nil {
			return models.PortfolioView{}, fmt.Errorf("refresh quotes: %w", err)
		}
	}
	view, err := s.src.FetchPortfolio(ctx)
	if err != nil {
		return models.PortfolioView{}, fmt.Errorf("fetch portfolio: %w", err)
	}
	return view, nil
}

func (s *Scheduler) finish(c cycle, view models.PortfolioView, err error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.inFlight--
	stale := !s.alive || c.epoch != s.epoch || c.seq < s.applied
	if !stale {
		s.applied = c.seq
		if err != nil {
			s.lastErr = err
		} else {
			s.snapshot = &view
			s.lastErr = nil
		}
	}
	onUpdate, onError := s.cfg.OnUpdate, s.cfg.OnError
	s.mu.Unlock()

	if stale {
		s.log.Debugf("discarding result of cycle %d", c.seq)
		return
	}
	if err != nil {
		s.log.Warnf("refresh cycle %d failed: %v", c.seq, err)
		if onError != nil {
			onError(err)
		}
		return
	}
	if onUpdate != nil {
		onUpdate(view)
	}
}

func (s *Scheduler) fullCountdown() int {
	n := int(s.cfg.Interval / s.cfg.Tick)
	if n < 1 {
		return 1
	}
	return n
}
