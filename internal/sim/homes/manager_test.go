package homes

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"homecraft.ai/internal/sim/home"
	economypkg "homecraft.ai/internal/sim/home/feature/economy"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

const (
	residenceMap = 62000000
	plotMap      = 2000062
	otherMap     = 2000063
	chair        = 50100001
)

type nopNotifier struct{}

func (nopNotifier) Send(string, any) {}

type testMaps struct{}

func (testMaps) PlotNumber(mapID int, pos modelpkg.Vec3i) int {
	if mapID == residenceMap {
		return 1
	}
	if pos.X >= 0 && pos.X < 10 && pos.Y >= 0 && pos.Y < 10 {
		return 1
	}
	return 0
}

func (testMaps) Plot(mapID, number int) (modelpkg.PlotInfo, bool) {
	if number != 1 {
		return modelpkg.PlotInfo{}, false
	}
	return modelpkg.PlotInfo{MapID: mapID, Number: 1, HeightLimit: 5, Price: 100, PriceItem: 90000001, Max: modelpkg.Vec3i{X: 9, Y: 9}}, true
}

func (testMaps) HasBlock(int, modelpkg.Vec3i) bool       { return false }
func (testMaps) LiftableTarget(int, modelpkg.Vec3i) bool { return false }
func (testMaps) Liftables(int) []modelpkg.LiftableSpawn  { return nil }

type testItems struct{}

func (testItems) Shop(id int) (economypkg.ShopEntry, bool) {
	if id != chair {
		return economypkg.ShopEntry{}, false
	}
	return economypkg.ShopEntry{ItemID: chair, Price: 10, Currency: modelpkg.CurrencyMeso, Buyable: true}, true
}

func (testItems) Install(id int) (modelpkg.InstallInfo, bool) {
	return modelpkg.InstallInfo{ItemID: id, Solid: true}, id == chair
}

type testDir struct {
	mu   sync.Mutex
	refs map[int64]home.PlayerRef
}

func (d *testDir) add(ref home.PlayerRef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refs[ref.AccountID] = ref
}

func (d *testDir) SessionByAccount(account int64) (home.PlayerRef, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ref, ok := d.refs[account]
	return ref, ok
}

func (d *testDir) AccountByName(name string) (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, ref := range d.refs {
		if ref.Name == name {
			return id, true
		}
	}
	return 0, false
}

type fixture struct {
	m      *Manager
	store  *home.MemStore
	ledger *economypkg.Ledger
	dir    *testDir
}

func newFixture(t *testing.T, stateFile string) *fixture {
	t.Helper()
	f := &fixture{store: home.NewMemStore(), ledger: economypkg.NewLedger(), dir: &testDir{refs: map[int64]home.PlayerRef{}}}
	m, err := NewManager(Config{
		ResidenceMapID: residenceMap,
		PlotMaps:       []int{plotMap, otherMap},
		StateFile:      stateFile,
		Instance:       home.Config{KickDelay: 20 * time.Millisecond},
	}, home.Deps{
		Store:     f.store,
		Notifier:  nopNotifier{},
		Economy:   f.ledger,
		Maps:      testMaps{},
		Items:     testItems{},
		Directory: f.dir,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(m.Close)
	f.m = m
	return f
}

func (f *fixture) ref(sid string, account int64, name string) home.PlayerRef {
	ref := home.PlayerRef{SessionID: sid, AccountID: account, Name: name}
	f.dir.add(ref)
	return ref
}

func TestNewManager_RequiresResidenceMap(t *testing.T) {
	if _, err := NewManager(Config{}, home.Deps{}); err == nil {
		t.Fatalf("expected error without a residence map")
	}
}

func TestEnsureHome_CreatesOnce(t *testing.T) {
	f := newFixture(t, "")
	if err := f.m.LoadHomes([]home.Persisted{{Record: modelpkg.HomeRecord{ID: 5, AccountID: 50}}}); err != nil {
		t.Fatalf("load: %v", err)
	}
	a := f.m.EnsureHome(100, "Ayla")
	b := f.m.EnsureHome(100, "Ayla")
	if a != b || a.ID() != 6 {
		t.Fatalf("EnsureHome gave %d and %d", a.ID(), b.ID())
	}
	if h, ok := f.m.HomeByID(5); !ok || h.AccountID() != 50 {
		t.Fatalf("loaded home missing")
	}
}

func TestLoadHomes_RebuildsPlotIndex(t *testing.T) {
	f := newFixture(t, "")
	rows := []home.Persisted{
		{Record: modelpkg.HomeRecord{ID: 1, AccountID: 10, PlotMapID: plotMap, PlotNumber: 2}},
		{Record: modelpkg.HomeRecord{ID: 2, AccountID: 20, PlotMapID: plotMap, PlotNumber: 1},
			Cubes: []modelpkg.Cube{modelpkg.NewCube(modelpkg.NewItem(chair), plotMap, 1, modelpkg.Vec3i{X: 1, Y: 1, Z: 1}, 0, 2)}},
		{Record: modelpkg.HomeRecord{ID: 3, AccountID: 30}},
	}
	if err := f.m.LoadHomes(rows); err != nil {
		t.Fatalf("load: %v", err)
	}
	if id, ok := f.m.PlotOwner(plotMap, 2); !ok || id != 1 {
		t.Fatalf("plot 2 owner=%d ok=%v", id, ok)
	}
	on := f.m.HomesOnMap(plotMap)
	if len(on) != 2 || on[0].ID() != 2 || on[1].ID() != 1 {
		t.Fatalf("homes on map ordered by plot, got %d", len(on))
	}
	if len(on[0].Cubes(false, true)) != 1 {
		t.Fatalf("plot cubes should be restored")
	}

	g := newFixture(t, "")
	dup := []home.Persisted{
		{Record: modelpkg.HomeRecord{ID: 1, AccountID: 10, PlotMapID: plotMap, PlotNumber: 1}},
		{Record: modelpkg.HomeRecord{ID: 2, AccountID: 20, PlotMapID: plotMap, PlotNumber: 1}},
	}
	if err := g.m.LoadHomes(dup); err == nil {
		t.Fatalf("expected an error for a plot claimed twice")
	}
}

func TestClaimAndReleasePlot(t *testing.T) {
	f := newFixture(t, "")
	if !f.m.ClaimPlot(plotMap, 1, 7) || f.m.ClaimPlot(plotMap, 1, 8) {
		t.Fatalf("second claim of a plot must fail")
	}
	f.m.ReleasePlot(plotMap, 1, 8)
	if _, ok := f.m.PlotOwner(plotMap, 1); !ok {
		t.Fatalf("release by a non-owner must be ignored")
	}
	f.m.ReleasePlot(plotMap, 1, 7)
	if _, ok := f.m.PlotOwner(plotMap, 1); ok {
		t.Fatalf("plot should be free")
	}
}

func TestEnter_MovesSessionBetweenInstances(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	owner := f.ref("s-1", 100, "Ayla")

	if _, err := f.m.EnterMap(ctx, owner, 123); !errors.Is(err, ErrMapUnknown) {
		t.Fatalf("expected ErrMapUnknown, got %v", err)
	}
	if _, err := f.m.EnterHome(ctx, owner, owner.AccountID); !errors.Is(err, ErrNoHome) {
		t.Fatalf("expected ErrNoHome, got %v", err)
	}
	pm, err := f.m.EnterMap(ctx, owner, plotMap)
	if err != nil {
		t.Fatalf("enter map: %v", err)
	}
	if inst, ok := f.m.Instance(owner.SessionID); !ok || inst != pm {
		t.Fatalf("session should be on the plot map")
	}

	f.ledger.SetBalance(owner.AccountID, modelpkg.CurrencyMeso, 100)
	if _, err := pm.BuyPlot(ctx, owner.SessionID, 1); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if id, ok := f.m.PlotOwner(plotMap, 1); !ok || id != 1 {
		t.Fatalf("plot owner=%d ok=%v", id, ok)
	}

	res, err := f.m.EnterHome(ctx, owner, owner.AccountID)
	if err != nil {
		t.Fatalf("enter home: %v", err)
	}
	if res.Key() != "home:1" || res.MapID() != residenceMap {
		t.Fatalf("residence key=%s map=%d", res.Key(), res.MapID())
	}
	occ, err := pm.Occupants(ctx)
	if err != nil || len(occ) != 0 {
		t.Fatalf("plot map occupants=%+v err=%v", occ, err)
	}
	again, _ := f.m.EnterHome(ctx, owner, owner.AccountID)
	if again != res {
		t.Fatalf("a residence has a single instance")
	}

	f.m.Leave(owner.SessionID)
	if _, ok := f.m.Instance(owner.SessionID); ok {
		t.Fatalf("session should be gone")
	}
	if _, _, sessions := f.m.Stats(); sessions != 0 {
		t.Fatalf("sessions=%d", sessions)
	}
}

func TestKick_WarpsVisitorToReturnMap(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	owner := f.ref("s-1", 100, "Ayla")
	visitor := f.ref("s-2", 200, "Bex")
	f.m.EnsureHome(owner.AccountID, owner.Name)

	res, err := f.m.EnterHome(ctx, owner, owner.AccountID)
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	if _, err := f.m.EnterHome(ctx, visitor, owner.AccountID); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if err := res.KickEveryone(ctx, owner.SessionID); err != nil {
		t.Fatalf("kick: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if inst, ok := f.m.Instance(visitor.SessionID); ok && inst.MapID() == plotMap {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("visitor was not warped")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if inst, _ := f.m.Instance(owner.SessionID); inst != res {
		t.Fatalf("owner should stay home")
	}
}

func TestStateFile_RemembersLastMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "residency.json")
	f := newFixture(t, path)
	ctx := context.Background()
	ref := f.ref("s-1", 100, "Ayla")
	if _, err := f.m.EnterMap(ctx, ref, otherMap); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if err := f.m.FlushState(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	f.m.Close()

	g := newFixture(t, path)
	if got := g.m.LastMap(100); got != otherMap {
		t.Fatalf("last map=%d want %d", got, otherMap)
	}
	inst, err := g.m.Resume(ctx, g.ref("s-9", 100, "Ayla"), 0)
	if err != nil || inst.MapID() != otherMap {
		t.Fatalf("resume: %v", err)
	}
}

func TestResume_FallsBackToReturnMap(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	inst, err := f.m.Resume(ctx, f.ref("s-1", 100, "Ayla"), residenceMap)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if inst.MapID() != plotMap {
		t.Fatalf("without a home the session lands on the return map, got %d", inst.MapID())
	}
}
