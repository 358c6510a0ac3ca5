package draft

import (
	"reflect"
	"time"

	"github.com/example/regionkit/internal/colorspace"
	"github.com/example/regionkit/internal/history"
	"github.com/example/regionkit/internal/labels"
	"github.com/example/regionkit/internal/logging"
	"github.com/example/regionkit/internal/mask"
)

// Releaser is called once for every bitmap that no retained state
// references any more.
type Releaser func(*mask.Bitmap)

type storeOptions struct {
	limit    int
	debounce time.Duration
	release  Releaser
	clock    func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

// WithHistoryLimit bounds the undo depth.
func WithHistoryLimit(n int) StoreOption {
	return func(o *storeOptions) { o.limit = n }
}

// WithDebounce coalesces undo snapshots taken within d of each other.
func WithDebounce(d time.Duration) StoreOption {
	return func(o *storeOptions) { o.debounce = d }
}

// WithReleaser sets the hook that receives unreachable bitmaps.
func WithReleaser(r Releaser) StoreOption {
	return func(o *storeOptions) { o.release = r }
}

// WithClock replaces time.Now for debounce decisions.
func WithClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) { o.clock = now }
}

// Store is the undoable draft for the current labeling target.
type Store struct {
	h *history.Store[State]
}

// NewStore wraps initial in an undo history.
func NewStore(initial State, opts ...StoreOption) *Store {
	o := storeOptions{limit: history.DefaultLimit, release: func(*mask.Bitmap) {}, clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	release := o.release
	return &Store{h: history.New(initial,
		history.WithLimit[State](o.limit),
		history.WithDebounce[State](o.debounce),
		history.WithClock[State](o.clock),
		history.WithSerialize(State.Clone),
		history.WithRelease(func(remove, keep []State) {
			releaseUnreachable(remove, keep, release)
		}),
	)}
}

// releaseUnreachable calls release once for every bitmap referenced by
// remove and by none of keep.
func releaseUnreachable(remove, keep []State, release Releaser) {
	live := map[*mask.Bitmap]bool{}
	for _, s := range keep {
		for _, b := range s.Bitmaps() {
			live[b] = true
		}
	}
	n := 0
	for _, s := range remove {
		for _, b := range s.Bitmaps() {
			if live[b] {
				continue
			}
			live[b] = true
			release(b)
			n++
		}
	}
	if n > 0 {
		logging.Debug("released %d mask bitmaps", n)
	}
}

// Current returns the current state.
func (s *Store) Current() State {
	return s.h.Current()
}

// HistoryLen returns the number of undo steps available.
func (s *Store) HistoryLen() int {
	return s.h.Len()
}

// Apply computes the next state with fn. Only when fn succeeds and returns
// a different state is the current state snapshotted and replaced; on error
// or a no-op nothing changes.
func (s *Store) Apply(fn func(State) (State, error)) error {
	cur := s.h.Current()
	next, err := fn(cur)
	if err != nil {
		return err
	}
	if reflect.DeepEqual(cur, next) {
		return nil
	}
	s.h.Snapshot()
	s.h.Set(next)
	return nil
}

// Update is Apply for transitions that cannot fail.
func (s *Store) Update(fn func(State) State) {
	_ = s.Apply(func(st State) (State, error) { return fn(st), nil })
}

// Click applies a pointer press.
func (s *Store) Click(ev Pointer, env Env) error {
	return s.Apply(func(st State) (State, error) { return st.Click(ev, env) })
}

// Finish commits or deletes the active region.
func (s *Store) Finish(save bool) {
	s.Update(func(st State) State { return st.Finish(save) })
}

// Undo restores the previous state.
func (s *Store) Undo() bool {
	return s.h.Undo()
}

// SetCanvas installs a new frame without recording an undo step.
func (s *Store) SetCanvas(img *colorspace.Image) {
	s.h.Set(s.h.Current().SetCanvas(img))
}

// MarkClean clears the dirty flag without recording an undo step.
func (s *Store) MarkClean() {
	next := s.h.Current().Clone()
	next.Dirty = false
	s.h.Set(next)
}

// Reset replaces the draft with l, keeping the tool settings. History is
// cleared and every bitmap it held is released. A malformed mask leaves the
// store untouched.
func (s *Store) Reset(l labels.Labels, canvas *colorspace.Image) error {
	d, err := labels.ToDraft(l)
	if err != nil {
		return err
	}
	s.h.Reset(New(d, s.h.Current().Drawing, canvas))
	return nil
}

// Subscribe registers fn for every state change. fn is called immediately.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	return s.h.Subscribe(fn)
}
