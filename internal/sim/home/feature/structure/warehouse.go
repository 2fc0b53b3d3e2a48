package structure

import (
	"sort"

	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

// Warehouse holds owned but unplaced items keyed by item uid.
type Warehouse struct {
	items map[string]modelpkg.Item
}

func NewWarehouse() *Warehouse {
	return &Warehouse{items: map[string]modelpkg.Item{}}
}

// Put stores item, replacing any stack with the same uid. Stacks with no amount are dropped.
func (w *Warehouse) Put(item modelpkg.Item) {
	if item.Amount <= 0 {
		delete(w.items, item.UID)
		return
	}
	w.items[item.UID] = item
}

func (w *Warehouse) Get(uid string) (modelpkg.Item, bool) {
	it, ok := w.items[uid]
	return it, ok
}

// FindByItemID returns the first stack of itemID with a positive amount, by uid order.
func (w *Warehouse) FindByItemID(itemID int) (modelpkg.Item, bool) {
	var best modelpkg.Item
	found := false
	for _, it := range w.items {
		if it.ItemID != itemID || it.Amount <= 0 {
			continue
		}
		if !found || it.UID < best.UID {
			best, found = it, true
		}
	}
	return best, found
}

// Consume takes one unit from the stack uid. The returned item carries the remaining
// amount; an amount of zero means the stack was removed.
func (w *Warehouse) Consume(uid string) (modelpkg.Item, bool) {
	it, ok := w.items[uid]
	if !ok || it.Amount <= 0 {
		return modelpkg.Item{}, false
	}
	it.Amount--
	if it.Amount == 0 {
		delete(w.items, uid)
	} else {
		w.items[uid] = it
	}
	return it, true
}

// Stock sums amounts per item id.
func (w *Warehouse) Stock() map[int]int {
	out := map[int]int{}
	for _, it := range w.items {
		if it.Amount > 0 {
			out[it.ItemID] += it.Amount
		}
	}
	return out
}

func (w *Warehouse) Items() []modelpkg.Item {
	out := make([]modelpkg.Item, 0, len(w.items))
	for _, it := range w.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemID != out[j].ItemID {
			return out[i].ItemID < out[j].ItemID
		}
		return out[i].UID < out[j].UID
	})
	return out
}

func (w *Warehouse) Len() int { return len(w.items) }
