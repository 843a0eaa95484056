package plan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Book hands out one Ledger per user. Ledgers are loaded lazily and cached,
// so every caller for a user shares the same run lock.
type Book struct {
	mu      sync.Mutex
	store   Store
	opts    []Option
	now     func() time.Time
	logger  *zap.Logger
	ledgers map[string]*Ledger
}

// NewBook creates a book on top of store. opts are applied to every ledger.
func NewBook(store Store, logger *zap.Logger, opts ...Option) *Book {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemoryStore()
	}

	b := &Book{
		store:   store,
		opts:    opts,
		now:     time.Now,
		logger:  logger,
		ledgers: make(map[string]*Ledger),
	}

	// Pick up an injected clock for the initial state of new users.
	probe := &Ledger{now: time.Now}
	for _, opt := range opts {
		opt(probe)
	}
	b.now = probe.now

	return b
}

// Ledger returns the ledger of user, loading it from the store on first use.
func (b *Book) Ledger(ctx context.Context, user string) (*Ledger, error) {
	if user == "" {
		return nil, errors.New("user id is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if l, ok := b.ledgers[user]; ok {
		return l, nil
	}

	state, err := b.store.Load(ctx, user)
	switch {
	case errors.Is(err, ErrNoState):
		state = NewState(b.now())
		b.logger.Info("starting new plan state", zap.String(fieldUser, user), zap.String("plan", string(state.Plan)))
	case err != nil:
		return nil, fmt.Errorf("load plan for %s: %w", user, err)
	}

	opts := append([]Option{WithLogger(b.logger)}, b.opts...)
	opts = append(opts, WithStore(user, b.store))

	l := NewLedger(state, opts...)
	b.ledgers[user] = l
	return l, nil
}
