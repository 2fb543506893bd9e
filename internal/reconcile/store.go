// Package reconcile keeps a client-side replica of one group's items current
// from full pulls and pushed change events.
package reconcile

import (
	"cmp"
	"context"
	"errors"
	"iter"
	"slices"
	"sync"

	"github.com/dukerupert/shopsync/internal/model"
	"github.com/dukerupert/shopsync/internal/protocol"
)

// ErrUnknownItem is returned by ToggleChecked for an id not in the replica.
var ErrUnknownItem = errors.New("unknown item")

// Store is a replica keyed by item id. Every Apply method is idempotent and
// ignores events about items it does not hold, except ApplyAdded which
// inserts them.
type Store struct {
	mu    sync.RWMutex
	items map[string]model.ItemView
}

func New() *Store {
	return &Store{items: make(map[string]model.ItemView)}
}

// ReplaceAll swaps the replica for a full pull. Duplicate ids collapse to the
// last occurrence.
func (s *Store) ReplaceAll(items []model.ItemView) {
	m := make(map[string]model.ItemView, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	s.mu.Lock()
	s.items = m
	s.mu.Unlock()
}

// ApplyAdded inserts item unless an item with the same id is already held,
// which happens when a pull and the push for the same add overlap.
func (s *Store) ApplyAdded(item model.ItemView) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; ok {
		return false
	}
	s.items[item.ID] = item
	return true
}

// ApplyEdited merges the mutable fields of item into the held copy. Edits
// apply in delivery order. The server stamps updatedAt before it commits,
// so the stamp is copied but never compared.
func (s *Store) ApplyEdited(item model.ItemView) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[item.ID]
	if !ok {
		return false
	}
	cur.Name = item.Name
	cur.Quantity = item.Quantity
	cur.Checked = item.Checked
	cur.UpdatedAt = item.UpdatedAt
	s.items[item.ID] = cur
	return true
}

func (s *Store) ApplyChecked(id string, checked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[id]
	if !ok {
		return false
	}
	cur.Checked = checked
	s.items[id] = cur
	return true
}

func (s *Store) ApplyRemoved(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

// Apply dispatches a pushed event to the matching Apply method and reports
// whether the replica changed.
func (s *Store) Apply(ev protocol.ItemEvent) bool {
	switch e := ev.(type) {
	case protocol.ItemAdded:
		return s.ApplyAdded(e.Item)
	case protocol.ItemEdited:
		return s.ApplyEdited(e.Item)
	case protocol.ItemChecked:
		return s.ApplyChecked(e.ItemID, e.Checked)
	case protocol.ItemDeleted:
		return s.ApplyRemoved(e.ItemID)
	}
	return false
}

func (s *Store) Get(id string) (model.ItemView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	return it, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Counts recomputes the item and checked totals from the replica.
func (s *Store) Counts() (total, checked int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.Checked {
			checked++
		}
	}
	return len(s.items), checked
}

// OrderedView returns the items held at call time, oldest first with ties
// broken by id. Sorting is deferred until the first iteration; the sequence
// can be ranged over any number of times and always yields the same snapshot.
func (s *Store) OrderedView() iter.Seq[model.ItemView] {
	s.mu.RLock()
	snapshot := make([]model.ItemView, 0, len(s.items))
	for _, it := range s.items {
		snapshot = append(snapshot, it)
	}
	s.mu.RUnlock()

	var once sync.Once
	return func(yield func(model.ItemView) bool) {
		once.Do(func() {
			slices.SortFunc(snapshot, compareItems)
		})
		for _, it := range snapshot {
			if !yield(it) {
				return
			}
		}
	}
}

func compareItems(a, b model.ItemView) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// ToggleChecked flips an item's checked flag immediately and then calls send
// with the new value. If send fails the flag is restored to its pre-toggle
// value, unless another update has changed it in the meantime.
func (s *Store) ToggleChecked(ctx context.Context, id string, send func(ctx context.Context, checked bool) error) error {
	s.mu.Lock()
	cur, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownItem
	}
	prev := cur.Checked
	cur.Checked = !prev
	s.items[id] = cur
	s.mu.Unlock()

	if err := send(ctx, !prev); err != nil {
		s.mu.Lock()
		if it, ok := s.items[id]; ok && it.Checked == !prev {
			it.Checked = prev
			s.items[id] = it
		}
		s.mu.Unlock()
		return err
	}
	return nil
}
