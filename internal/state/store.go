// Package state holds the shared show state the rendering pipeline reads:
// cue chain assignments, transport, tempo, global effect toggles, and zone
// routing. The store is the write surface for external control (editor,
// control API); the pipeline consumes it through render.StateProvider and
// only ever reads.
package state

import (
	"sort"
	"sync"
	"time"

	"laserd/internal/laser"
	"laserd/internal/render"
)

// Cell addresses one grid cell of global effect toggles.
type Cell struct {
	Row, Col int
}

// Store is a concurrency-safe in-memory implementation of
// render.StateProvider with a setter side for external control.
type Store struct {
	mu          sync.RWMutex
	chains      map[string]laser.CueChain
	playing     bool
	triggerTime time.Time
	bpm         float64
	toggles     map[Cell]laser.EffectChain
	filters     map[string]render.ZoneFilter
	zoneGroups  map[string][]string
}

// NewStore returns an empty store at the given tempo.
func NewStore(bpm float64) *Store {
	return &Store{
		chains:     make(map[string]laser.CueChain),
		bpm:        bpm,
		toggles:    make(map[Cell]laser.EffectChain),
		filters:    make(map[string]render.ZoneFilter),
		zoneGroups: make(map[string][]string),
	}
}

// ActiveChain implements render.StateProvider.
func (s *Store) ActiveChain(target string) (laser.CueChain, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chains[target]
	return c, ok
}

// Playing implements render.StateProvider.
func (s *Store) Playing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}

// TriggerTime implements render.StateProvider.
func (s *Store) TriggerTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.triggerTime
}

// BPM implements render.StateProvider.
func (s *Store) BPM() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bpm
}

// GlobalEffects implements render.StateProvider: the active toggle cells
// flattened row-major by grid coordinate into one chain. The returned chain
// does not alias internal state.
func (s *Store) GlobalEffects() laser.EffectChain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cells := make([]Cell, 0, len(s.toggles))
	for c := range s.toggles {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Col < cells[j].Col
	})

	var out laser.EffectChain
	for _, c := range cells {
		chain := s.toggles[c]
		if !chain.Active {
			continue
		}
		out.Effects = append(out.Effects, chain.Effects...)
	}
	out.Active = len(out.Effects) > 0
	return out
}

// ZoneFilter implements render.StateProvider.
func (s *Store) ZoneFilter(target string) render.ZoneFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters[target]
}

// ZoneMembers implements render.StateProvider.
func (s *Store) ZoneMembers(group string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := s.zoneGroups[group]
	out := make([]string, len(members))
	copy(out, members)
	return out
}

// SetChain assigns a cue chain to an output target.
func (s *Store) SetChain(target string, chain laser.CueChain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains[target] = chain
}

// ClearChain removes the chain assigned to an output target.
func (s *Store) ClearChain(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chains, target)
}

// Play starts the transport with the given trigger timestamp.
func (s *Store) Play(trigger time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
	s.triggerTime = trigger
}

// Stop halts the transport.
func (s *Store) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

// SetBPM changes the tempo. Values <= 0 are ignored.
func (s *Store) SetBPM(bpm float64) {
	if bpm <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bpm = bpm
}

// SetGlobalToggle activates a global effect chain at the given grid cell.
func (s *Store) SetGlobalToggle(cell Cell, chain laser.EffectChain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggles[cell] = chain
}

// ClearGlobalToggle deactivates the global effect chain at the given cell.
func (s *Store) ClearGlobalToggle(cell Cell) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.toggles, cell)
}

// SetZoneFilter sets the zone/preview filter for an output target.
func (s *Store) SetZoneFilter(target string, f render.ZoneFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters[target] = f
}

// SetZoneGroups replaces the zone group membership table.
func (s *Store) SetZoneGroups(groups map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoneGroups = make(map[string][]string, len(groups))
	for g, members := range groups {
		m := make([]string, len(members))
		copy(m, members)
		s.zoneGroups[g] = m
	}
}
