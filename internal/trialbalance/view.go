package trialbalance

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-reports/internal/locale"
)

// DefaultDebounce delays reloads after a filter change.
const DefaultDebounce = 250 * time.Millisecond

// ErrViewClosed is returned by operations on a closed View.
var ErrViewClosed = errors.New("trialbalance: view closed")

// State is the lifecycle state of a View.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Loader loads snapshots; *Service satisfies it.
type Loader interface {
	Load(ctx context.Context, f Filter) (*Snapshot, error)
}

// ViewParams wires a View.
type ViewParams struct {
	Loader   Loader
	Logger   *slog.Logger
	Language locale.Language
	Debounce time.Duration
	// OnChange is called outside the lock after every completed load.
	OnChange func(State)
}

// View is the interactive controller of one trial balance screen: the
// current filter, the loaded snapshot, and the expansion state. Reloads
// are debounced, skipped while hidden, and ordered by a request token so a
// slow stale load never overwrites a newer one.
type View struct {
	loader   Loader
	logger   *slog.Logger
	lang     locale.Language
	debounce time.Duration
	onChange func(State)

	mu        sync.Mutex
	state     State
	err       error
	filter    Filter
	hasFilter bool
	snapshot  *Snapshot
	expansion *reports.Expansion
	token     uint64
	hidden    bool
	pending   bool
	timer     *time.Timer
	cancel    context.CancelFunc
	closed    bool
}

// NewView constructs an idle View.
func NewView(p ViewParams) *View {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Debounce <= 0 {
		p.Debounce = DefaultDebounce
	}
	if p.Language == "" {
		p.Language = locale.Arabic
	}
	return &View{
		loader:    p.Loader,
		logger:    p.Logger,
		lang:      p.Language,
		debounce:  p.Debounce,
		onChange:  p.OnChange,
		expansion: reports.NewExpansion(),
	}
}

// SetFilter stores f and schedules a debounced reload. Calls inside the
// debounce window collapse into one load of the latest filter.
func (v *View) SetFilter(f Filter) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrViewClosed
	}
	v.filter = f
	v.hasFilter = true
	if v.timer != nil {
		v.timer.Stop()
	}
	v.timer = time.AfterFunc(v.debounce, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.timer = nil
		v.startLocked()
	})
	return nil
}

// Reload loads the current filter immediately.
func (v *View) Reload() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrViewClosed
	}
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.startLocked()
	return nil
}

// Retry reloads after a failure. It is a no-op in any other state.
func (v *View) Retry() error {
	v.mu.Lock()
	failed := v.state == StateFailed
	v.mu.Unlock()
	if !failed {
		return nil
	}
	return v.Reload()
}

// SetHidden pauses reloads while the view is not visible. A reload requested
// while hidden runs when the view is shown again.
func (v *View) SetHidden(hidden bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hidden = hidden
	if !hidden && v.pending && !v.closed {
		v.startLocked()
	}
}

// startLocked begins a load of the current filter. v.mu must be held.
func (v *View) startLocked() {
	if v.closed || !v.hasFilter || v.loader == nil {
		return
	}
	if v.hidden {
		v.pending = true
		return
	}
	v.pending = false
	if v.cancel != nil {
		v.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	v.token++
	v.state = StateLoading
	v.err = nil
	go v.run(ctx, v.token, v.filter)
}

func (v *View) run(ctx context.Context, token uint64, f Filter) {
	snap, err := v.loader.Load(ctx, f)

	v.mu.Lock()
	if v.closed || token != v.token {
		v.mu.Unlock()
		return
	}
	v.cancel = nil
	if err != nil {
		v.state = StateFailed
		v.err = err
		v.snapshot = nil
		v.logger.Warn("trial balance load failed", slog.String("org_id", f.OrgID), slog.Any("error", err))
	} else {
		v.state = StateReady
		v.snapshot = snap
	}
	state, notify := v.state, v.onChange
	v.mu.Unlock()

	if notify != nil {
		notify(state)
	}
}

// Close cancels pending timers and in-flight loads. Further calls fail with
// ErrViewClosed.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

// Toggle flips one node.
func (v *View) Toggle(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.expansion.Toggle(id)
}

// ExpandToLevel expands every node up to level n of the loaded forest.
func (v *View) ExpandToLevel(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.expansion.ExpandToLevel(v.forestLocked(), n)
}

// ExpandAll expands every node of the loaded forest.
func (v *View) ExpandAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.expansion.ExpandAll(v.forestLocked())
}

// CollapseAll collapses every node.
func (v *View) CollapseAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.expansion.CollapseAll()
}

// CollapseBranch collapses id and all its descendants.
func (v *View) CollapseBranch(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n, ok := v.forestLocked().Find(id); ok {
		v.expansion.CollapseBranch(n)
	}
}

func (v *View) forestLocked() *reports.Forest {
	if v.snapshot == nil {
		return nil
	}
	return v.snapshot.Forest
}

// ViewState is a consistent copy of what the screen renders.
type ViewState struct {
	State    State
	Err      error
	Token    uint64
	Snapshot *Snapshot
	Report   reports.TrialBalance
	Expanded []string
}

// Current returns the state and visible rows. A failed view renders an empty
// report.
func (v *View) Current() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ViewState{
		State:    v.state,
		Err:      v.err,
		Token:    v.token,
		Snapshot: v.snapshot,
		Report:   v.snapshot.TrialBalance(v.expansion, v.lang),
		Expanded: v.expansion.IDs(),
	}
}
