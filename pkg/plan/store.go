package plan

import (
	"sort"
	"sync"
	"time"
)

const keepAllocations = 2

// Store holds the planned allocations. Allocations are replaced whole and
// never modified, so a reader always sees a complete plan.
type Store struct {
	allocations []*Allocation
	sync.RWMutex
}

func (s *Store) Set(a *Allocation) {
	s.Lock()
	defer s.Unlock()

	next := make([]*Allocation, 0, len(s.allocations)+1)
	for _, old := range s.allocations {
		if sameDay(old.Date(), a.Date()) {
			continue
		}
		next = append(next, old)
	}
	next = append(next, a)
	sort.Slice(next, func(i, j int) bool {
		return next[i].Date().Before(next[j].Date())
	})
	if len(next) > keepAllocations {
		next = next[len(next)-keepAllocations:]
	}
	s.allocations = next
}

// Resolve returns the allocation planned for the day of t. If that day has
// not been planned the newest older allocation is returned and stale is true.
func (s *Store) Resolve(t time.Time) (a *Allocation, stale bool) {
	s.RLock()
	defer s.RUnlock()

	for i := len(s.allocations) - 1; i >= 0; i-- {
		cur := s.allocations[i]
		if sameDay(cur.Date(), t) {
			return cur, false
		}
	}
	for i := len(s.allocations) - 1; i >= 0; i-- {
		cur := s.allocations[i]
		if cur.Date().Before(t) {
			return cur, true
		}
	}
	return nil, false
}

// Has reports if the day of t is planned.
func (s *Store) Has(t time.Time) bool {
	a, stale := s.Resolve(t)
	return a != nil && !stale
}

func sameDay(date, t time.Time) bool {
	t = t.In(date.Location())
	y1, m1, d1 := date.Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
