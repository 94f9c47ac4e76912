package catalog

import (
	"sync"
	"time"
)

// FilterState is the pending/applied state machine behind the shop filters.
// Categories and price bounds are staged in Pending until Apply; search, sort
// and paging change Applied directly. Every transition runs under one lock,
// so the debounced search commit can fire from a timer goroutine.
type FilterState struct {
	mu       sync.Mutex
	applied  ShopFilters
	pending  PendingFilters
	errs     []FilterValidationError
	debounce *Debouncer
	onChange func(ShopFilters)
}

type StateOption func(*FilterState)

// WithSearchDebounce sets the quiet period for SetSearch.
func WithSearchDebounce(d time.Duration) StateOption {
	return func(s *FilterState) { s.debounce = NewDebouncer(d) }
}

// WithOnChange registers fn to receive Applied after every committed change.
// fn is called without the state lock held.
func WithOnChange(fn func(ShopFilters)) StateOption {
	return func(s *FilterState) { s.onChange = fn }
}

// NewFilterState starts Idle: Pending mirrors applied.
func NewFilterState(applied ShopFilters, opts ...StateOption) *FilterState {
	s := &FilterState{applied: applied.Clone()}
	for _, o := range opts {
		o(s)
	}
	if s.debounce == nil {
		s.debounce = NewDebouncer(DefaultSearchDebounce)
	}
	s.pending = s.applied.Staged()
	return s
}

func (s *FilterState) Applied() ShopFilters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied.Clone()
}

func (s *FilterState) Pending() PendingFilters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.clone()
}

func (s *FilterState) Errors() []FilterValidationError {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) == 0 {
		return nil
	}
	return append([]FilterValidationError(nil), s.errs...)
}

// HasPendingChanges is true when the staged fields differ from Applied.
func (s *FilterState) HasPendingChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.pending.Equal(s.applied.Staged())
}

// ToggleCategory flips slug in Pending and clears stale validation errors.
func (s *FilterState) ToggleCategory(slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending.Categories[:0:0]
	found := false
	for _, c := range s.pending.Categories {
		if c == slug {
			found = true
			continue
		}
		out = append(out, c)
	}
	if !found {
		out = append(out, slug)
	}
	if len(out) == 0 {
		out = nil
	}
	s.pending.Categories = out
	s.errs = nil
}

// SetPriceRange replaces both pending bounds at once.
func (s *FilterState) SetPriceRange(lo, hi *int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.PriceMin = copyInt(lo)
	s.pending.PriceMax = copyInt(hi)
	s.errs = nil
}

// Apply commits Pending into Applied and resets the page. When Pending is
// invalid nothing is committed, the errors become visible through Errors,
// and Apply returns false.
func (s *FilterState) Apply() bool {
	s.mu.Lock()
	if errs := ValidatePending(s.pending); len(errs) > 0 {
		s.errs = errs
		s.mu.Unlock()
		return false
	}
	p := s.pending.clone()
	s.applied.Categories = p.Categories
	s.applied.PriceMin = p.PriceMin
	s.applied.PriceMax = p.PriceMax
	s.applied.Page = 1
	s.errs = nil
	applied := s.applied.Clone()
	s.mu.Unlock()

	s.notify(applied)
	return true
}

// ResetPending discards staged edits.
func (s *FilterState) ResetPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = s.applied.Staged()
	s.errs = nil
}

// ClearAll empties the staged fields of both Applied and Pending. Search,
// sort and page size are kept.
func (s *FilterState) ClearAll() {
	s.mu.Lock()
	s.applied.Categories = nil
	s.applied.PriceMin = nil
	s.applied.PriceMax = nil
	s.applied.Page = 1
	s.pending = PendingFilters{}
	s.errs = nil
	applied := s.applied.Clone()
	s.mu.Unlock()

	s.notify(applied)
}

// SetSort applies immediately. Unknown values fall back to the defaults.
func (s *FilterState) SetSort(by, order string) {
	if !validSortBy(by) {
		by = DefaultSortBy
	}
	if !validSortOrder(order) {
		order = DefaultSortOrder
	}
	s.commit(func(f *ShopFilters) {
		f.SortBy = by
		f.SortOrder = order
		f.Page = 1
	})
}

func (s *FilterState) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	s.commit(func(f *ShopFilters) { f.Page = n })
}

func (s *FilterState) SetPerPage(n int) {
	if n < 1 {
		n = DefaultPerPage
	}
	if n > MaxPerPage {
		n = MaxPerPage
	}
	s.commit(func(f *ShopFilters) {
		f.PerPage = n
		f.Page = 1
	})
}

// SetSearch commits q after the debounce window. A later call inside the
// window replaces q, so only the last keystroke is committed.
func (s *FilterState) SetSearch(q string) {
	s.debounce.Trigger(func() { s.CommitSearch(q) })
}

// CommitSearch applies q now and cancels any debounced search.
func (s *FilterState) CommitSearch(q string) {
	s.debounce.Cancel()
	s.commit(func(f *ShopFilters) {
		f.Search = q
		f.Page = 1
	})
}

// FlushSearch commits a debounced search without waiting for the timer.
func (s *FilterState) FlushSearch() {
	s.debounce.Flush()
}

// Close stops the debounce timer.
func (s *FilterState) Close() {
	s.debounce.Stop()
}

func (s *FilterState) commit(fn func(*ShopFilters)) {
	s.mu.Lock()
	fn(&s.applied)
	applied := s.applied.Clone()
	s.mu.Unlock()
	s.notify(applied)
}

func (s *FilterState) notify(applied ShopFilters) {
	if s.onChange != nil {
		s.onChange(applied)
	}
}
