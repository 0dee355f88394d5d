// Package period owns the active trading period: creating, loading and
// switching periods against the backing store, and publishing the change
// signal after every successful mutation.
package period

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tillbook/tillbook/internal/ledger"
	"github.com/tillbook/tillbook/internal/platform/store"
)

// ErrNoActivePeriod indicates an operation before any period was loaded.
var ErrNoActivePeriod = errors.New("period: no active period")

// Repository is the single owner of the in-memory period cache. All engine
// access goes through Update and View, which serialise operations with one
// mutex; the engine itself stays lock-free.
type Repository struct {
	mu         sync.Mutex
	store      store.Store
	logger     *slog.Logger
	notifier   *Notifier
	dispatcher Dispatcher

	engine *ledger.Engine

	now   func() time.Time
	newID func() string
}

// NewRepository wires the repository to its store and persistence dispatcher.
func NewRepository(s store.Store, dispatcher Dispatcher, notifier *Notifier, logger *slog.Logger) *Repository {
	return &Repository{
		store:      s,
		logger:     logger,
		notifier:   notifier,
		dispatcher: dispatcher,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

// WithNow overrides the clock for deterministic tests.
func (r *Repository) WithNow(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// WithIDFunc overrides id generation for deterministic tests.
func (r *Repository) WithIDFunc(fn func() string) {
	if fn != nil {
		r.newID = fn
	}
}

// Notifier exposes the change-signal hub.
func (r *Repository) Notifier() *Notifier {
	return r.notifier
}

// Create allocates a new empty period with the default account, persists it
// synchronously and returns its id. The active period does not change.
func (r *Repository) Create(ctx context.Context, name string) (string, error) {
	p := ledger.NewPeriod(r.newID(), name, r.now())
	if err := r.Save(ctx, p); err != nil {
		return "", err
	}
	return p.ID, nil
}

// Save persists a prebuilt period blob synchronously. Used by Create and by
// the rollover engine, which installs a fully formed successor period.
func (r *Repository) Save(ctx context.Context, p *ledger.Period) error {
	blob, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("period: encode %s: %w", p.ID, err)
	}
	if err := r.store.Put(ctx, p.ID, blob); err != nil {
		return fmt.Errorf("period: save %s: %w", p.ID, err)
	}
	return nil
}

// List returns the ids of every stored period.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	return r.store.List(ctx)
}

// Load fetches the stored period and makes it the in-memory cache. A
// missing blob is treated as a brand-new empty period rather than an error;
// Load never fails outright.
func (r *Repository) Load(ctx context.Context, id string) {
	p := r.fetch(ctx, id)
	r.mu.Lock()
	if r.engine == nil {
		r.engine = ledger.NewEngine(p)
	} else {
		r.engine.Reset(p)
	}
	r.mu.Unlock()
}

// SwitchActive loads the period, marks it active and emits the change
// signal.
func (r *Repository) SwitchActive(ctx context.Context, id string) {
	r.Load(ctx, id)
	r.notifier.Notify()
}

// ActiveID returns the id of the loaded period, or "" when none is loaded.
func (r *Repository) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		return ""
	}
	return r.engine.Period().ID
}

// Update runs one mutating operation against the engine, then persists the
// snapshot fire-and-forget and emits the change signal. The error from fn
// aborts both.
func (r *Repository) Update(fn func(*ledger.Engine) error) error {
	r.mu.Lock()
	if r.engine == nil {
		r.mu.Unlock()
		return ErrNoActivePeriod
	}
	if err := fn(r.engine); err != nil {
		r.mu.Unlock()
		return err
	}
	id, blob, err := r.snapshotLocked()
	r.mu.Unlock()
	if err != nil {
		// The in-memory state stays authoritative; only the write is lost.
		r.logger.Error("snapshot period", slog.Any("error", err))
	} else {
		r.dispatcher.Dispatch(id, blob)
	}
	r.notifier.Notify()
	return nil
}

// View runs a read-only operation against the engine under the same mutex,
// so reads never observe a half-applied mutation.
func (r *Repository) View(fn func(*ledger.Engine) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		return ErrNoActivePeriod
	}
	return fn(r.engine)
}

// Persist re-dispatches a snapshot of the current state without mutating
// anything, and emits the change signal.
func (r *Repository) Persist() error {
	r.mu.Lock()
	if r.engine == nil {
		r.mu.Unlock()
		return ErrNoActivePeriod
	}
	id, blob, err := r.snapshotLocked()
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.dispatcher.Dispatch(id, blob)
	r.notifier.Notify()
	return nil
}

func (r *Repository) snapshotLocked() (string, []byte, error) {
	p := r.engine.Period()
	blob, err := json.Marshal(p)
	if err != nil {
		return "", nil, fmt.Errorf("period: encode %s: %w", p.ID, err)
	}
	return p.ID, blob, nil
}

// fetch never fails outright: a missing, unreadable or undecodable blob
// falls back to a brand-new empty period under the same id.
func (r *Repository) fetch(ctx context.Context, id string) *ledger.Period {
	blob, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("period missing, starting empty", slog.String("period", id))
		} else {
			r.logger.Error("load period, starting empty", slog.String("period", id), slog.Any("error", err))
		}
		return ledger.NewPeriod(id, id, r.now())
	}
	p := ledger.NewPeriod(id, id, r.now())
	if err := json.Unmarshal(blob, p); err != nil {
		r.logger.Error("decode period, starting empty", slog.String("period", id), slog.Any("error", err))
		return ledger.NewPeriod(id, id, r.now())
	}
	return p
}
