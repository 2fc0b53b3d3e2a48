package home

import (
	"context"

	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

// StoreFurnishing moves amount units of itemID from the owner's personal inventory into
// the home warehouse, where placements take stock before buying.
func (i *Instance) StoreFurnishing(ctx context.Context, sessionID string, itemID, amount int) error {
	if amount <= 0 {
		amount = 1
	}
	return i.exec(ctx, sessionID, func(p *Player) error {
		return i.withOwnHome(p, func(h *Home) error {
			item, ok := i.deps.Economy.TakeItem(h.account, itemID, amount)
			if !ok {
				return ErrNotFound
			}
			h.storeItem(item, i.deps.Store)
			i.send(p.SessionID, warehouseMsg(h))
			return nil
		})
	})
}

// storeItem adds an unplaced item to the warehouse. The caller holds h.mu.
func (h *Home) storeItem(item modelpkg.Item, store Store) {
	h.structure.Warehouse.Put(item)
	if store != nil {
		store.UpsertWarehouseItem(h.id, item)
	}
}
