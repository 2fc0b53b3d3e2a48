// Package layout keeps the saved layouts of a home keyed by slot.
package layout

import (
	"sort"

	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

type Archive struct {
	slots map[int]modelpkg.Layout
}

func NewArchive() *Archive { return &Archive{slots: map[int]modelpkg.Layout{}} }

// Capture builds a new layout snapshot from cubes. The cube slice is copied.
func Capture(homeID int64, slot int, name string, size, height int, savedAt int64, cubes []modelpkg.Cube) modelpkg.Layout {
	return modelpkg.Layout{
		UID:     modelpkg.NewUID(),
		HomeID:  homeID,
		SlotID:  slot,
		Name:    name,
		Size:    size,
		Height:  height,
		SavedAt: savedAt,
		Cubes:   append([]modelpkg.Cube(nil), cubes...),
	}
}

// Save stores l in its slot and returns the snapshot it displaced, if any.
func (a *Archive) Save(l modelpkg.Layout) (prev modelpkg.Layout, replaced bool) {
	prev, replaced = a.slots[l.SlotID]
	a.slots[l.SlotID] = l
	return prev, replaced
}

func (a *Archive) Find(slot int) (modelpkg.Layout, bool) {
	l, ok := a.slots[slot]
	return l, ok
}

// All returns the layouts ordered by slot.
func (a *Archive) All() []modelpkg.Layout {
	out := make([]modelpkg.Layout, 0, len(a.slots))
	for _, l := range a.slots {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotID < out[j].SlotID })
	return out
}

func (a *Archive) Len() int { return len(a.slots) }

// Import loads persisted layouts. A later entry for the same slot wins.
func (a *Archive) Import(ls []modelpkg.Layout) {
	for _, l := range ls {
		a.slots[l.SlotID] = l
	}
}
