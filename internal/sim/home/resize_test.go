package home

import (
	"errors"
	"math/rand"
	"testing"

	"homecraft.ai/internal/protocol"
	spatialpkg "homecraft.ai/internal/sim/home/feature/spatial"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

func positions(cubes []modelpkg.Cube) map[modelpkg.Vec3i]bool {
	out := make(map[modelpkg.Vec3i]bool, len(cubes))
	for _, c := range cubes {
		out[c.Pos] = true
	}
	return out
}

func TestResize_AtMinimumIsNoOp(t *testing.T) {
	hs := newHarness(t, residenceMap, NewHome(modelpkg.HomeRecord{ID: 1, AccountID: ownerAccount, OwnerName: "Ayla"}), nil)
	hs.join(owner)

	for _, r := range []spatialpkg.Resize{spatialpkg.DecreaseSize, spatialpkg.DecreaseHeight} {
		b, err := hs.inst.Resize(hs.ctx, ownerSID, r)
		if err != nil {
			t.Fatalf("%s: %v", r, err)
		}
		if b.Size != modelpkg.MinSize || b.Height != modelpkg.MinHeight {
			t.Fatalf("%s changed bounds to %+v", r, b)
		}
	}
	if rec := hs.home.Record(); rec.Size != 4 || rec.Height != 3 {
		t.Fatalf("record=%+v", rec)
	}
}

func TestResize_ShrinkRemovesOnlyTheShell(t *testing.T) {
	hs := newResidence(t)
	hs.join(visitor)
	hs.ledger.SetBalance(ownerAccount, modelpkg.CurrencyMeso, 1000)
	hs.mustPlace(ownerSID, itemChair, -9, 0, 1)
	hs.mustPlace(ownerSID, itemChair, 0, -9, 2)
	hs.mustPlace(ownerSID, itemChair, -8, -8, 1)
	hs.mustPlace(ownerSID, itemChair, 0, 0, 4)

	b, err := hs.inst.Resize(hs.ctx, ownerSID, spatialpkg.DecreaseSize)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if b.Size != 9 || b.Height != 5 {
		t.Fatalf("bounds=%+v", b)
	}
	left := positions(hs.live())
	if len(left) != 2 || !left[modelpkg.Vec3i{X: -8, Y: -8, Z: 1}] || !left[modelpkg.Vec3i{X: 0, Y: 0, Z: 4}] {
		t.Fatalf("left=%+v", left)
	}
	if hs.ledger.Count(ownerAccount, itemChair) != 2 || len(hs.store.Cubes(1)) != 2 {
		t.Fatalf("vacated cubes should be returned and deleted")
	}
	if rec, _ := hs.store.Home(1); rec.Size != 9 {
		t.Fatalf("stored size=%d", rec.Size)
	}
	moves := collect[protocol.PositionMsg](hs.notes.of(visitorSID))
	if len(moves) != 1 || moves[0].Pos != spatialpkg.SafeCoord(9, 150).ToArray() {
		t.Fatalf("visitor moves=%+v", moves)
	}
	if bounds := collect[protocol.BoundsMsg](hs.notes.of(visitorSID)); len(bounds) != 1 || bounds[0].Size != 9 {
		t.Fatalf("visitor bounds=%+v", bounds)
	}
}

func TestResize_HeightShrinkRemovesTopLayer(t *testing.T) {
	hs := newResidence(t)
	hs.ledger.SetBalance(ownerAccount, modelpkg.CurrencyMeso, 1000)
	hs.mustPlace(ownerSID, itemChair, 0, 0, 5)
	hs.mustPlace(ownerSID, itemChair, 0, -1, 4)

	if _, err := hs.inst.Resize(hs.ctx, ownerSID, spatialpkg.DecreaseHeight); err != nil {
		t.Fatalf("resize: %v", err)
	}
	left := positions(hs.live())
	if len(left) != 1 || !left[modelpkg.Vec3i{X: 0, Y: -1, Z: 4}] {
		t.Fatalf("left=%+v", left)
	}
}

func TestResize_GrowthRemovesNothing(t *testing.T) {
	hs := newResidence(t)
	hs.ledger.SetBalance(ownerAccount, modelpkg.CurrencyMeso, 1000)
	hs.mustPlace(ownerSID, itemChair, -9, -9, 5)
	hs.notes.reset()

	for _, r := range []spatialpkg.Resize{spatialpkg.IncreaseSize, spatialpkg.IncreaseHeight} {
		if _, err := hs.inst.Resize(hs.ctx, ownerSID, r); err != nil {
			t.Fatalf("%s: %v", r, err)
		}
	}
	if len(hs.live()) != 1 {
		t.Fatalf("growth must not remove cubes")
	}
	if n := len(collect[protocol.PositionMsg](hs.notes.of(ownerSID))); n != 0 {
		t.Fatalf("growth must not relocate players, got %d moves", n)
	}
	if rec := hs.home.Record(); rec.Size != 11 || rec.Height != 6 {
		t.Fatalf("record=%+v", rec)
	}
}

func TestResize_BoundsStayInRange(t *testing.T) {
	hs := newResidence(t)
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 200; n++ {
		r := spatialpkg.Resize(rng.Intn(4) + 1)
		b, err := hs.inst.Resize(hs.ctx, ownerSID, r)
		if err != nil {
			t.Fatalf("%s: %v", r, err)
		}
		if !b.Valid() {
			t.Fatalf("bounds left range after %d steps: %+v", n, b)
		}
	}
}

func TestResize_OwnerOnly(t *testing.T) {
	hs := newResidence(t)
	hs.join(visitor)
	if err := hs.inst.GrantBuilding(hs.ctx, ownerSID, visitor.Name); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := hs.inst.Resize(hs.ctx, visitorSID, spatialpkg.IncreaseSize); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestResize_PlannerBoundsAreSeparate(t *testing.T) {
	hs := newResidence(t)
	if err := hs.inst.SetPlannerMode(hs.ctx, ownerSID, true); err != nil {
		t.Fatalf("planner: %v", err)
	}
	b, err := hs.inst.Resize(hs.ctx, ownerSID, spatialpkg.IncreaseSize)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	rec := hs.home.Record()
	if b.Size != 5 || rec.PlannerSize != 5 || rec.Size != 10 {
		t.Fatalf("bounds=%+v record=%+v", b, rec)
	}
}
