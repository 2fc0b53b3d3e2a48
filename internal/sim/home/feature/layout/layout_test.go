package layout

import (
	"testing"

	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

func TestSaveOverwritesSlot(t *testing.T) {
	a := NewArchive()
	cubes := []modelpkg.Cube{modelpkg.NewCube(modelpkg.NewItem(1), 2000062, 1, modelpkg.Vec3i{}, 0, 9)}

	first := Capture(9, 2, "first", 10, 5, 100, cubes)
	if _, replaced := a.Save(first); replaced {
		t.Fatalf("empty slot reported a replacement")
	}
	cubes[0].Rotation = 90
	if first.Cubes[0].Rotation != 0 {
		t.Fatalf("capture must copy the cube slice")
	}

	second := Capture(9, 2, "second", 8, 4, 200, nil)
	prev, replaced := a.Save(second)
	if !replaced || prev.UID != first.UID {
		t.Fatalf("expected first layout to be displaced, got %+v", prev)
	}
	got, ok := a.Find(2)
	if !ok || got.Name != "second" || len(got.Cubes) != 0 || a.Len() != 1 {
		t.Fatalf("slot not overwritten: %+v", got)
	}
}

func TestAllOrderedBySlot(t *testing.T) {
	a := NewArchive()
	a.Import([]modelpkg.Layout{
		{UID: "c", SlotID: 3},
		{UID: "a", SlotID: 1},
		{UID: "b", SlotID: 1},
	})
	all := a.All()
	if len(all) != 2 || all[0].UID != "b" || all[1].SlotID != 3 {
		t.Fatalf("unexpected layouts %+v", all)
	}
	if _, ok := a.Find(2); ok {
		t.Fatalf("slot 2 should be empty")
	}
}
