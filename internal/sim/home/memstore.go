package home

import (
	"sort"
	"sync"

	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

// MemStore is a synchronous in-memory Store, used by tests and by servers started
// without a database.
type MemStore struct {
	mu        sync.Mutex
	homes     map[int64]modelpkg.HomeRecord
	cubes     map[int64]map[string]modelpkg.Cube
	warehouse map[int64]map[string]modelpkg.Item
	layouts   map[int64]map[string]modelpkg.Layout
}

func NewMemStore() *MemStore {
	return &MemStore{
		homes:     map[int64]modelpkg.HomeRecord{},
		cubes:     map[int64]map[string]modelpkg.Cube{},
		warehouse: map[int64]map[string]modelpkg.Item{},
		layouts:   map[int64]map[string]modelpkg.Layout{},
	}
}

func (s *MemStore) UpsertHome(rec modelpkg.HomeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.homes[rec.ID] = rec
}

func (s *MemStore) UpsertCube(c modelpkg.Cube) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.cubes[c.HomeID]
	if m == nil {
		m = map[string]modelpkg.Cube{}
		s.cubes[c.HomeID] = m
	}
	m[c.UID] = c
}

func (s *MemStore) DeleteCube(homeID int64, uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cubes[homeID], uid)
}

func (s *MemStore) UpsertWarehouseItem(homeID int64, item modelpkg.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.warehouse[homeID]
	if m == nil {
		m = map[string]modelpkg.Item{}
		s.warehouse[homeID] = m
	}
	m[item.UID] = item
}

func (s *MemStore) DeleteWarehouseItem(homeID int64, uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.warehouse[homeID], uid)
}

func (s *MemStore) UpsertLayout(l modelpkg.Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.layouts[l.HomeID]
	if m == nil {
		m = map[string]modelpkg.Layout{}
		s.layouts[l.HomeID] = m
	}
	m[l.UID] = l
}

func (s *MemStore) DeleteLayout(homeID int64, uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.layouts[homeID], uid)
}

func (s *MemStore) Home(id int64) (modelpkg.HomeRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.homes[id]
	return rec, ok
}

// Homes returns every stored home ordered by id.
func (s *MemStore) Homes() []modelpkg.HomeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]modelpkg.HomeRecord, 0, len(s.homes))
	for _, rec := range s.homes {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemStore) Cubes(homeID int64) []modelpkg.Cube {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]modelpkg.Cube, 0, len(s.cubes[homeID]))
	for _, c := range s.cubes[homeID] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

func (s *MemStore) WarehouseItems(homeID int64) []modelpkg.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]modelpkg.Item, 0, len(s.warehouse[homeID]))
	for _, it := range s.warehouse[homeID] {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

func (s *MemStore) Layouts(homeID int64) []modelpkg.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]modelpkg.Layout, 0, len(s.layouts[homeID]))
	for _, l := range s.layouts[homeID] {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotID < out[j].SlotID })
	return out
}

// Load returns every stored home with its rows, ordered by home id.
func (s *MemStore) Load() []Persisted {
	recs := s.Homes()
	out := make([]Persisted, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Persisted{
			Record:  rec,
			Cubes:   s.Cubes(rec.ID),
			Items:   s.WarehouseItems(rec.ID),
			Layouts: s.Layouts(rec.ID),
		})
	}
	return out
}
