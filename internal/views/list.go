// Package views holds the client-side page controllers: each one fetches a
// collection, filters it, and turns edits into API calls followed by a
// re-fetch. Views never render; internal/cli does that.
package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrRowBusy rejects an edit of a row that already has an update in
	// flight.
	ErrRowBusy       = errors.New("row is already being updated")
	ErrRequiredField = errors.New("required field is empty")
	ErrNotConfirmed  = errors.New("deletion not confirmed")
	ErrNoSelection   = errors.New("no records selected")
	ErrUnknownRecord = errors.New("record not in the current list")
)

// Collection is the CRUD surface a list view drives. *client.Resource
// satisfies it.
type Collection[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, item *T) (*T, error)
	Update(ctx context.Context, id int64, item *T) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// List is the state behind one page: the fetched records, the rows with an
// update in flight and the bulk selection.
type List[T any] struct {
	coll   Collection[T]
	idOf   func(T) int64
	logger *slog.Logger

	mu       sync.Mutex
	items    []T
	loaded   bool
	lastErr  error
	updating map[int64]struct{}
	selected map[int64]struct{}
}

func NewList[T any](coll Collection[T], idOf func(T) int64, logger *slog.Logger) *List[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &List[T]{
		coll:     coll,
		idOf:     idOf,
		logger:   logger,
		updating: make(map[int64]struct{}),
		selected: make(map[int64]struct{}),
	}
}

// Refresh re-fetches the collection. On failure the previous records stay
// in place and the error is kept for Err.
func (l *List[T]) Refresh(ctx context.Context) error {
	items, err := l.coll.List(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = true
	if err != nil {
		l.lastErr = err
		l.logger.Warn("fetching list failed", "error", err)
		return err
	}
	l.lastErr = nil
	l.items = items

	present := make(map[int64]struct{}, len(items))
	for _, it := range items {
		present[l.idOf(it)] = struct{}{}
	}
	for id := range l.selected {
		if _, ok := present[id]; !ok {
			delete(l.selected, id)
		}
	}
	return nil
}

// Items returns a copy of the current records.
func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Err is the error of the last Refresh, if it failed.
func (l *List[T]) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *List[T]) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

func (l *List[T]) Find(id int64) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOf(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	return l.items[i], true
}

func (l *List[T]) indexOf(id int64) int {
	for i, it := range l.items {
		if l.idOf(it) == id {
			return i
		}
	}
	return -1
}

// Save creates the record when editingID is 0 and updates it otherwise, then
// re-fetches. A failed re-fetch is logged but does not fail the save.
func (l *List[T]) Save(ctx context.Context, editingID int64, record *T) (*T, error) {
	var saved *T
	var err error
	if editingID == 0 {
		saved, err = l.coll.Create(ctx, record)
	} else {
		saved, err = l.coll.Update(ctx, editingID, record)
	}
	if err != nil {
		l.logger.Error("saving record failed", "id", editingID, "error", err)
		return nil, err
	}
	_ = l.Refresh(ctx)
	return saved, nil
}

// Delete removes the record once confirm returns true.
func (l *List[T]) Delete(ctx context.Context, id int64, confirm func() bool) error {
	if confirm == nil || !confirm() {
		return ErrNotConfirmed
	}
	if err := l.coll.Delete(ctx, id); err != nil {
		l.logger.Error("deleting record failed", "id", id, "error", err)
		return err
	}
	_ = l.Refresh(ctx)
	return nil
}

// Updating reports whether id has an update in flight.
func (l *List[T]) Updating(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.updating[id]
	return ok
}

// InlineUpdate applies mutate to the local copy of id right away, then sends
// the whole record. On failure the list is re-fetched so the optimistic
// change is rolled back.
func (l *List[T]) InlineUpdate(ctx context.Context, id int64, mutate func(*T)) error {
	l.mu.Lock()
	if _, busy := l.updating[id]; busy {
		l.mu.Unlock()
		return ErrRowBusy
	}
	i := l.indexOf(id)
	if i < 0 {
		l.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownRecord, id)
	}
	record := l.items[i]
	mutate(&record)
	l.items[i] = record
	l.updating[id] = struct{}{}
	l.mu.Unlock()

	saved, err := l.coll.Update(ctx, id, &record)

	l.mu.Lock()
	delete(l.updating, id)
	if err == nil && saved != nil {
		if i := l.indexOf(id); i >= 0 {
			l.items[i] = *saved
		}
	}
	l.mu.Unlock()

	if err != nil {
		l.logger.Error("inline update failed", "id", id, "error", err)
		_ = l.Refresh(ctx)
		return err
	}
	return nil
}

func (l *List[T]) Toggle(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.selected[id]; ok {
		delete(l.selected, id)
		return
	}
	l.selected[id] = struct{}{}
}

func (l *List[T]) Select(ids ...int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		l.selected[id] = struct{}{}
	}
}

// SelectAll selects exactly the given records, normally the filtered view.
// When all of them are already selected it clears the selection instead.
func (l *List[T]) SelectAll(visible []T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all := len(visible) > 0
	for _, it := range visible {
		if _, ok := l.selected[l.idOf(it)]; !ok {
			all = false
			break
		}
	}

	l.selected = make(map[int64]struct{}, len(visible))
	if all {
		return
	}
	for _, it := range visible {
		l.selected[l.idOf(it)] = struct{}{}
	}
}

func (l *List[T]) ClearSelection() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected = make(map[int64]struct{})
}

func (l *List[T]) IsSelected(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.selected[id]
	return ok
}

// Selected returns the selected ids in ascending order.
func (l *List[T]) Selected() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]int64, 0, len(l.selected))
	for id := range l.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BulkUpdate applies mutate to every selected record that is still in the
// list and sends all updates concurrently. It waits for every request, then
// re-fetches. The selection is cleared only when every update succeeded.
// It returns the number of records sent.
func (l *List[T]) BulkUpdate(ctx context.Context, mutate func(*T)) (int, error) {
	l.mu.Lock()
	if len(l.selected) == 0 {
		l.mu.Unlock()
		return 0, ErrNoSelection
	}
	for id := range l.selected {
		if _, busy := l.updating[id]; busy {
			l.mu.Unlock()
			return 0, ErrRowBusy
		}
	}

	type pending struct {
		id     int64
		record T
	}
	var batch []pending
	for id := range l.selected {
		i := l.indexOf(id)
		if i < 0 {
			continue
		}
		record := l.items[i]
		mutate(&record)
		batch = append(batch, pending{id: id, record: record})
		l.updating[id] = struct{}{}
	}
	l.mu.Unlock()

	var g errgroup.Group
	for _, p := range batch {
		p := p
		g.Go(func() error {
			if _, err := l.coll.Update(ctx, p.id, &p.record); err != nil {
				return fmt.Errorf("updating %d: %w", p.id, err)
			}
			return nil
		})
	}
	err := g.Wait()

	l.mu.Lock()
	for _, p := range batch {
		delete(l.updating, p.id)
	}
	l.mu.Unlock()

	_ = l.Refresh(ctx)

	if err != nil {
		l.logger.Error("bulk update failed", "records", len(batch), "error", err)
		return len(batch), err
	}
	l.ClearSelection()
	return len(batch), nil
}

// refreshAll refreshes every list concurrently. Each list settles on its
// own, so one failed fetch does not blank the others.
func refreshAll(ctx context.Context, refreshers ...func(context.Context) error) error {
	var g errgroup.Group
	for _, r := range refreshers {
		r := r
		g.Go(func() error { return r(ctx) })
	}
	return g.Wait()
}
