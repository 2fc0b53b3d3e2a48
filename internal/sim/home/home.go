package home

import (
	"sync"

	layoutpkg "homecraft.ai/internal/sim/home/feature/layout"
	permissionspkg "homecraft.ai/internal/sim/home/feature/permissions"
	spatialpkg "homecraft.ai/internal/sim/home/feature/spatial"
	structurepkg "homecraft.ai/internal/sim/home/feature/structure"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

// Home is the aggregate of one player's home. A home can be observed from its residence
// instance and from the plot map instance at the same time, so every access goes
// through mu. Instances never hold two home locks at once.
type Home struct {
	id      int64
	account int64

	mu        sync.Mutex
	rec       modelpkg.HomeRecord
	structure *structurepkg.Store
	layouts   *layoutpkg.Archive
	access    *permissionspkg.Registry
}

func NewHome(rec modelpkg.HomeRecord) *Home {
	if rec.Size == 0 {
		rec.Size = modelpkg.MinSize
	}
	if rec.Height == 0 {
		rec.Height = modelpkg.MinHeight
	}
	if rec.PlannerSize == 0 {
		rec.PlannerSize = modelpkg.MinSize
	}
	if rec.PlannerHeight == 0 {
		rec.PlannerHeight = modelpkg.MinHeight
	}
	return &Home{
		id:        rec.ID,
		account:   rec.AccountID,
		rec:       rec,
		structure: structurepkg.New(),
		layouts:   layoutpkg.NewArchive(),
		access:    permissionspkg.FromRecord(rec.Permissions, rec.BuildingDelegates),
	}
}

// Persisted is everything stored for one home.
type Persisted struct {
	Record  modelpkg.HomeRecord
	Cubes   []modelpkg.Cube
	Items   []modelpkg.Item
	Layouts []modelpkg.Layout
}

// Restore rebuilds a home from persisted rows. Cubes on the home's plot map are
// routed to the plot set, every other cube to the residence interior.
func Restore(rec modelpkg.HomeRecord, cubes []modelpkg.Cube, items []modelpkg.Item, layouts []modelpkg.Layout) *Home {
	h := NewHome(rec)
	for _, c := range cubes {
		if rec.HasPlot() && c.MapID == rec.PlotMapID {
			h.structure.Plot.Insert(c)
			continue
		}
		h.structure.Live.Insert(c)
	}
	for _, it := range items {
		h.structure.Warehouse.Put(it)
	}
	h.layouts.Import(layouts)
	return h
}

func (h *Home) ID() int64        { return h.id }
func (h *Home) AccountID() int64 { return h.account }

// Record returns a copy of the persisted scalar state.
func (h *Home) Record() modelpkg.HomeRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.record()
}

// Cubes returns a copy of the cubes of one set: the planner when planner is set,
// otherwise the plot set when onPlot is set, otherwise the interior.
func (h *Home) Cubes(planner, onPlot bool) []modelpkg.Cube {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.set(planner, onPlot).Cubes()
}

func (h *Home) Warehouse() []modelpkg.Item {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.structure.Warehouse.Items()
}

func (h *Home) Layouts() []modelpkg.Layout {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.layouts.All()
}

func (h *Home) record() modelpkg.HomeRecord {
	rec := h.rec
	rec.Permissions = h.access.Settings()
	rec.BuildingDelegates = h.access.Delegates()
	return rec
}

func (h *Home) set(planner, onPlot bool) *structurepkg.Set {
	switch {
	case planner:
		return h.structure.Planner
	case onPlot:
		return h.structure.Plot
	default:
		return h.structure.Live
	}
}

func (h *Home) occupied(planner, onPlot bool, pos modelpkg.Vec3i) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.set(planner, onPlot).Occupied(pos)
}

func (h *Home) bounds(planner bool) spatialpkg.Bounds {
	if planner {
		return spatialpkg.Bounds{Size: h.rec.PlannerSize, Height: h.rec.PlannerHeight}
	}
	return spatialpkg.Bounds{Size: h.rec.Size, Height: h.rec.Height}
}

func (h *Home) setBounds(planner bool, b spatialpkg.Bounds) {
	if planner {
		h.rec.PlannerSize, h.rec.PlannerHeight = b.Size, b.Height
		return
	}
	h.rec.Size, h.rec.Height = b.Size, b.Height
}
