package home

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"homecraft.ai/internal/protocol"
	economypkg "homecraft.ai/internal/sim/home/feature/economy"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

const (
	residenceMap = 62000000
	plotMap      = 2000062

	ownerAccount   int64 = 100
	visitorAccount int64 = 200
	ownerSID             = "s-owner"
	visitorSID           = "s-visitor"

	itemChair  = 50100001 // 100 mesos, solid
	itemRug    = 50100002 // 30 merets, solid
	itemLamp   = 50100003 // 50 mesos, not solid
	itemHidden = 50100004 // not buyable
)

type recorder struct {
	mu   sync.Mutex
	msgs map[string][]any
}

func newRecorder() *recorder { return &recorder{msgs: map[string][]any{}} }

func (r *recorder) Send(sessionID string, msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs[sessionID] = append(r.msgs[sessionID], msg)
}

func (r *recorder) of(sessionID string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.msgs[sessionID]...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = map[string][]any{}
}

func collect[T any](msgs []any) []T {
	var out []T
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

type fakeMaps struct {
	mu      sync.Mutex
	blocks  map[modelpkg.Vec3i]bool
	plots   map[int][]modelpkg.PlotInfo
	targets map[modelpkg.Vec3i]bool
	lifts   []modelpkg.LiftableSpawn
}

func newFakeMaps() *fakeMaps {
	return &fakeMaps{
		blocks: map[modelpkg.Vec3i]bool{},
		plots: map[int][]modelpkg.PlotInfo{
			residenceMap: {{MapID: residenceMap, Number: 1, HeightLimit: 15, Area: 625, Min: modelpkg.Vec3i{X: -24, Y: -24}, Max: modelpkg.Vec3i{}}},
			plotMap: {
				{MapID: plotMap, Number: 1, HeightLimit: 5, Area: 100, Price: 1000, PriceItem: 90000001, Min: modelpkg.Vec3i{X: 0, Y: 0}, Max: modelpkg.Vec3i{X: 9, Y: 9}},
				{MapID: plotMap, Number: 2, HeightLimit: 5, Area: 100, Price: 500, PriceItem: 90000004, Min: modelpkg.Vec3i{X: 20, Y: 0}, Max: modelpkg.Vec3i{X: 29, Y: 9}},
			},
		},
		targets: map[modelpkg.Vec3i]bool{},
	}
}

func (m *fakeMaps) PlotNumber(mapID int, pos modelpkg.Vec3i) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.plots[mapID] {
		if p.Contains(pos) {
			return p.Number
		}
	}
	return 0
}

func (m *fakeMaps) Plot(mapID, number int) (modelpkg.PlotInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.plots[mapID] {
		if p.Number == number {
			return p, true
		}
	}
	return modelpkg.PlotInfo{}, false
}

func (m *fakeMaps) HasBlock(_ int, pos modelpkg.Vec3i) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blocks[pos]
}

func (m *fakeMaps) LiftableTarget(_ int, pos modelpkg.Vec3i) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.targets[pos]
}

func (m *fakeMaps) Liftables(int) []modelpkg.LiftableSpawn { return m.lifts }

type fakeItems struct {
	shop    map[int]economypkg.ShopEntry
	install map[int]modelpkg.InstallInfo
}

func newFakeItems() *fakeItems {
	return &fakeItems{
		shop: map[int]economypkg.ShopEntry{
			itemChair:  {ItemID: itemChair, Price: 100, Currency: modelpkg.CurrencyMeso, Buyable: true},
			itemRug:    {ItemID: itemRug, Price: 30, Currency: modelpkg.CurrencyMeret, Buyable: true},
			itemLamp:   {ItemID: itemLamp, Price: 50, Currency: modelpkg.CurrencyMeso, Buyable: true},
			itemHidden: {ItemID: itemHidden, Price: 1, Currency: modelpkg.CurrencyMeso, Buyable: false},
		},
		install: map[int]modelpkg.InstallInfo{
			itemChair: {ItemID: itemChair, Solid: true},
			itemRug:   {ItemID: itemRug, Solid: true},
			itemLamp:  {ItemID: itemLamp, Solid: false},
		},
	}
}

func (f *fakeItems) Shop(id int) (economypkg.ShopEntry, bool) {
	e, ok := f.shop[id]
	return e, ok
}

func (f *fakeItems) Install(id int) (modelpkg.InstallInfo, bool) {
	e, ok := f.install[id]
	return e, ok
}

type fakeDir struct {
	mu        sync.Mutex
	byAccount map[int64]PlayerRef
}

func newFakeDir() *fakeDir { return &fakeDir{byAccount: map[int64]PlayerRef{}} }

func (d *fakeDir) add(ref PlayerRef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byAccount[ref.AccountID] = ref
}

func (d *fakeDir) remove(account int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.byAccount, account)
}

func (d *fakeDir) SessionByAccount(account int64) (PlayerRef, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ref, ok := d.byAccount[account]
	return ref, ok
}

func (d *fakeDir) AccountByName(name string) (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, ref := range d.byAccount {
		if ref.Name == name {
			return id, true
		}
	}
	return 0, false
}

type fakeHomes struct {
	mu     sync.Mutex
	byAcct map[int64]*Home
	plots  map[[2]int]int64
	nextID int64
	made   int
}

func newFakeHomes() *fakeHomes {
	return &fakeHomes{byAcct: map[int64]*Home{}, plots: map[[2]int]int64{}, nextID: 1}
}

func (f *fakeHomes) add(h *Home) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byAcct[h.account] = h
	if h.id >= f.nextID {
		f.nextID = h.id + 1
	}
}

func (f *fakeHomes) HomeByAccount(account int64) (*Home, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.byAcct[account]
	return h, ok
}

func (f *fakeHomes) EnsureHome(account int64, name string) *Home {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.byAcct[account]; ok {
		return h
	}
	h := NewHome(modelpkg.HomeRecord{ID: f.nextID, AccountID: account, OwnerName: name})
	f.nextID++
	f.made++
	f.byAcct[account] = h
	return h
}

func (f *fakeHomes) HomesOnMap(mapID int) []*Home {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Home
	for k, id := range f.plots {
		if k[0] != mapID {
			continue
		}
		for _, h := range f.byAcct {
			if h.id == id {
				out = append(out, h)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (f *fakeHomes) PlotOwner(mapID, plot int) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.plots[[2]int{mapID, plot}]
	return id, ok
}

func (f *fakeHomes) ClaimPlot(mapID, plot int, homeID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.plots[[2]int{mapID, plot}]; ok {
		return false
	}
	f.plots[[2]int{mapID, plot}] = homeID
	return true
}

func (f *fakeHomes) ReleasePlot(mapID, plot int, homeID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.plots[[2]int{mapID, plot}] == homeID {
		delete(f.plots, [2]int{mapID, plot})
	}
}

type fakeWarper struct {
	mu     sync.Mutex
	warped []PlayerRef
}

func (w *fakeWarper) Warp(p PlayerRef, _ int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warped = append(w.warped, p)
}

func (w *fakeWarper) list() []PlayerRef {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]PlayerRef(nil), w.warped...)
}

type auditSink struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *auditSink) WriteAudit(e AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	inst   *Instance
	home   *Home
	store  *MemStore
	ledger *economypkg.Ledger
	notes  *recorder
	dir    *fakeDir
	maps   *fakeMaps
	items  *fakeItems
	homes  *fakeHomes
	warper *fakeWarper
	audit  *auditSink
}

var (
	owner   = PlayerRef{SessionID: ownerSID, AccountID: ownerAccount, Name: "Ayla"}
	visitor = PlayerRef{SessionID: visitorSID, AccountID: visitorAccount, Name: "Bex"}
)

func fixedNow() time.Time { return time.Unix(1_700_000_000, 0) }

func newHarness(t *testing.T, mapID int, h *Home, maps *fakeMaps) *harness {
	t.Helper()
	if maps == nil {
		maps = newFakeMaps()
	}
	hs := &harness{
		t:      t,
		home:   h,
		store:  NewMemStore(),
		ledger: economypkg.NewLedger(),
		notes:  newRecorder(),
		dir:    newFakeDir(),
		maps:   maps,
		items:  newFakeItems(),
		homes:  newFakeHomes(),
		warper: &fakeWarper{},
		audit:  &auditSink{},
	}
	key := "map:test"
	if h != nil {
		hs.homes.add(h)
		key = "home:test"
	}
	hs.inst = New(Config{
		Key:            key,
		MapID:          mapID,
		Home:           h,
		ReturnMapID:    plotMap,
		KickDelay:      30 * time.Millisecond,
		LiftableFinish: 30 * time.Millisecond,
		MaxLayoutSlots: 3,
		Now:            fixedNow,
		Audit:          hs.audit,
	}, Deps{
		Store:     hs.store,
		Notifier:  hs.notes,
		Economy:   hs.ledger,
		Maps:      hs.maps,
		Items:     hs.items,
		Directory: hs.dir,
		Homes:     hs.homes,
		Warper:    hs.warper,
	})
	ctx, cancel := context.WithCancel(context.Background())
	hs.ctx = ctx
	go func() { _ = hs.inst.Run(ctx) }()
	t.Cleanup(func() {
		hs.inst.Close()
		cancel()
	})
	return hs
}

// newResidence starts a residence instance for a size 10, height 5 home with the owner inside.
func newResidence(t *testing.T) *harness {
	t.Helper()
	h := NewHome(modelpkg.HomeRecord{ID: 1, AccountID: ownerAccount, OwnerName: "Ayla", Size: 10, Height: 5})
	hs := newHarness(t, residenceMap, h, nil)
	hs.join(owner)
	return hs
}

func (hs *harness) join(ref PlayerRef) {
	hs.t.Helper()
	hs.dir.add(ref)
	if err := hs.inst.Join(hs.ctx, ref); err != nil {
		hs.t.Fatalf("join %s: %v", ref.Name, err)
	}
}

func (hs *harness) place(sid string, itemID int, x, y, z int) (modelpkg.Cube, error) {
	return hs.inst.AddCube(hs.ctx, sid, PlaceRequest{ItemID: itemID, Pos: modelpkg.Vec3i{X: x, Y: y, Z: z}})
}

func (hs *harness) mustPlace(sid string, itemID int, x, y, z int) modelpkg.Cube {
	hs.t.Helper()
	c, err := hs.place(sid, itemID, x, y, z)
	if err != nil {
		hs.t.Fatalf("place %d at (%d,%d,%d): %v", itemID, x, y, z, err)
	}
	return c
}

// stock gives the owner item and moves it into the home warehouse.
func (hs *harness) stock(item modelpkg.Item) {
	hs.t.Helper()
	hs.ledger.AddItem(ownerAccount, item)
	if err := hs.inst.StoreFurnishing(hs.ctx, ownerSID, item.ItemID, item.Amount); err != nil {
		hs.t.Fatalf("store %d: %v", item.ItemID, err)
	}
}

func (hs *harness) live() []modelpkg.Cube    { return hs.home.Cubes(false, false) }
func (hs *harness) planner() []modelpkg.Cube { return hs.home.Cubes(true, false) }

func (hs *harness) errorsOf(sid string) []protocol.ErrorMsg {
	return collect[protocol.ErrorMsg](hs.notes.of(sid))
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
