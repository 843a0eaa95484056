package plan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	day       = 24 * time.Hour
	weekDays  = 7
	fieldUser = "user_id"
)

// Usage holds the rolling comparison counters.
type Usage struct {
	ComparisonsThisWeek int       `json:"comparisonsThisWeek"`
	ComparisonsToday    int       `json:"comparisonsToday"`
	LastComparisonDate  time.Time `json:"lastComparisonDate"`
	WeekStartDate       time.Time `json:"weekStartDate"`
}

// State is the persisted part of a ledger.
type State struct {
	Plan  Tier  `json:"plan"`
	Usage Usage `json:"usage"`
}

// NewState is the state of a user that has never compared candidates.
func NewState(now time.Time) State {
	return State{Plan: TierFree, Usage: Usage{WeekStartDate: now}}
}

// Validate checks the counter invariants of a loaded state.
func (s State) Validate() error {
	if _, ok := table[s.Plan]; !ok {
		return fmt.Errorf("unknown plan %q", s.Plan)
	}
	u := s.Usage
	if u.ComparisonsThisWeek < 0 || u.ComparisonsToday < 0 {
		return fmt.Errorf("negative usage counters: week=%d today=%d", u.ComparisonsThisWeek, u.ComparisonsToday)
	}
	if u.ComparisonsToday > u.ComparisonsThisWeek {
		return fmt.Errorf("comparisons today (%d) exceed comparisons this week (%d)", u.ComparisonsToday, u.ComparisonsThisWeek)
	}
	return nil
}

// Snapshot is a read-only view of a ledger at one instant.
type Snapshot struct {
	Plan           Tier   `json:"plan"`
	Limits         Limits `json:"limits"`
	Usage          Usage  `json:"usage"`
	EffectiveWeek  int    `json:"effectiveWeek"`
	EffectiveToday int    `json:"effectiveToday"`
	CanRun         bool   `json:"canRun"`
}

// Ledger tracks the plan and usage of one user.
//
// Rollover is lazy: stale counters are treated as zero when checked and
// reset on the next record. A day is a calendar day in the ledger's
// location, a week is seven elapsed 24h periods since WeekStartDate.
type Ledger struct {
	user string

	// run serializes check-then-record pairs, see Hold.
	run sync.Mutex

	mu    sync.Mutex
	state State

	store  Store
	now    func() time.Time
	loc    *time.Location
	logger *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLocation sets the time zone used for calendar day comparison.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithLogger sets the ledger logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithStore persists every mutation of the ledger for the given user.
func WithStore(user string, store Store) Option {
	return func(l *Ledger) {
		l.user = user
		l.store = store
	}
}

// NewLedger creates a ledger from an existing state.
func NewLedger(state State, opts ...Option) *Ledger {
	l := &Ledger{
		state:  state,
		now:    time.Now,
		loc:    time.Local,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(zap.String(fieldUser, l.user))
	return l
}

// Hold acquires the run lock of the ledger and returns its release function.
// Callers keep it from CanRunComparison until RecordComparison so two
// runs of the same user cannot both pass the check.
func (l *Ledger) Hold() func() {
	l.run.Lock()
	return l.run.Unlock
}

// CanRunComparison reports whether another comparison fits into the current limits.
func (l *Ledger) CanRunComparison() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.snapshot(l.now()).CanRun
}

// Limits returns the limits of the current plan.
func (l *Ledger) Limits() Limits {
	l.mu.Lock()
	defer l.mu.Unlock()

	return LimitsFor(l.state.Plan)
}

// Snapshot returns the plan, raw usage and the effective counters.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.snapshot(l.now())
}

// RecordComparison consumes one comparison. It must only be called after a
// comparison produced its result. The in-memory counters are updated even
// when persisting fails.
func (l *Ledger) RecordComparison(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	u := &l.state.Usage

	if l.weekElapsed(now) {
		u.ComparisonsThisWeek = 1
		u.ComparisonsToday = 1
		u.WeekStartDate = now
		l.logger.Debug("weekly usage rolled over", zap.Time("week_start", now))
	} else {
		u.ComparisonsThisWeek++
		if l.sameDay(u.LastComparisonDate, now) {
			u.ComparisonsToday++
		} else {
			u.ComparisonsToday = 1
		}
	}
	u.LastComparisonDate = now

	l.logger.Info("comparison recorded",
		zap.Int("week", u.ComparisonsThisWeek),
		zap.Int("today", u.ComparisonsToday),
	)

	return l.persist(ctx)
}

// UpgradePlan switches the tier. Usage is kept.
func (l *Ledger) UpgradePlan(ctx context.Context, tier Tier) error {
	if _, ok := table[tier]; !ok {
		return fmt.Errorf("unknown plan %q", tier)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	from := l.state.Plan
	l.state.Plan = tier
	l.logger.Info("plan changed", zap.String("from", string(from)), zap.String("to", string(tier)))

	return l.persist(ctx)
}

// ResetUsage zeroes the counters and starts a new week now.
func (l *Ledger) ResetUsage(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.Usage = Usage{WeekStartDate: l.now()}
	l.logger.Info("usage reset")

	return l.persist(ctx)
}

func (l *Ledger) snapshot(now time.Time) Snapshot {
	limits := LimitsFor(l.state.Plan)
	u := l.state.Usage

	week := u.ComparisonsThisWeek
	if l.weekElapsed(now) {
		week = 0
	}
	today := 0
	if l.sameDay(u.LastComparisonDate, now) {
		today = u.ComparisonsToday
	}

	return Snapshot{
		Plan:           l.state.Plan,
		Limits:         limits,
		Usage:          u,
		EffectiveWeek:  week,
		EffectiveToday: today,
		CanRun:         week < limits.WeeklyComparisons && today < limits.DailyComparisons,
	}
}

func (l *Ledger) weekElapsed(now time.Time) bool {
	return int(now.Sub(l.state.Usage.WeekStartDate)/day) >= weekDays
}

func (l *Ledger) sameDay(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	ay, am, ad := a.In(l.loc).Date()
	by, bm, bd := b.In(l.loc).Date()
	return ay == by && am == bm && ad == bd
}

func (l *Ledger) persist(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.Save(ctx, l.user, l.state); err != nil {
		return fmt.Errorf("persist usage for %s: %w", l.user, err)
	}
	return nil
}
