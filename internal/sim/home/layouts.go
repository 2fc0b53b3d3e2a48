package home

import (
	"context"
	"sort"

	"homecraft.ai/internal/protocol"
	economypkg "homecraft.ai/internal/sim/home/feature/economy"
	layoutpkg "homecraft.ai/internal/sim/home/feature/layout"
	spatialpkg "homecraft.ai/internal/sim/home/feature/spatial"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

// SaveLayout snapshots the active mode into slot, replacing what was saved there.
func (i *Instance) SaveLayout(ctx context.Context, sessionID string, slot int, name string) (modelpkg.Layout, error) {
	var out modelpkg.Layout
	err := i.exec(ctx, sessionID, func(p *Player) error {
		if !i.residence() {
			return ErrBadRequest
		}
		if err := i.checkSlot(slot); err != nil {
			return err
		}
		return i.withOwnHome(p, func(h *Home) error {
			planner := i.plannerActive(p)
			b := h.bounds(planner)
			l := layoutpkg.Capture(h.id, slot, name, b.Size, b.Height, i.cfg.Now().Unix(), h.set(planner, false).Cubes())
			if prev, replaced := h.layouts.Save(l); replaced {
				i.deps.Store.DeleteLayout(h.id, prev.UID)
			}
			i.deps.Store.UpsertLayout(l)
			i.send(p.SessionID, protocol.LayoutMsg{
				Type:            protocol.TypeLayout,
				ProtocolVersion: protocol.Version,
				Slot:            slot,
				Name:            name,
				SavedAt:         l.SavedAt,
				Cubes:           len(l.Cubes),
			})
			out = l
			return nil
		})
	})
	return out, err
}

// EstimateLayout prices loading slot into the live structure. It changes nothing.
func (i *Instance) EstimateLayout(ctx context.Context, sessionID string, slot int) (economypkg.Cost, error) {
	var out economypkg.Cost
	err := i.exec(ctx, sessionID, func(p *Player) error {
		if !i.residence() {
			return ErrBadRequest
		}
		return i.withOwnHome(p, func(h *Home) error {
			l, ok := h.layouts.Find(slot)
			if !ok {
				return ErrNotFound
			}
			out = i.layoutCost(h, l)
			costs := make([]protocol.CostObs, 0, len(out.Totals))
			for _, c := range out.Currencies() {
				costs = append(costs, protocol.CostObs{Currency: int(c), Amount: out.Totals[c]})
			}
			i.send(p.SessionID, protocol.LayoutCostMsg{
				Type:            protocol.TypeLayoutCost,
				ProtocolVersion: protocol.Version,
				Slot:            slot,
				Count:           out.Count,
				Costs:           costs,
			})
			return nil
		})
	})
	return out, err
}

// LoadPlannerLayout copies slot into an empty planner. Nothing is charged.
func (i *Instance) LoadPlannerLayout(ctx context.Context, sessionID string, slot int) error {
	return i.exec(ctx, sessionID, func(p *Player) error {
		if !i.residence() {
			return ErrBadRequest
		}
		return i.withOwnHome(p, func(h *Home) error {
			l, ok := h.layouts.Find(slot)
			if !ok {
				return ErrNotFound
			}
			b := spatialpkg.Bounds{Size: l.Size, Height: l.Height}
			if !b.Valid() {
				return ErrBadRequest
			}
			if h.structure.Planner.Len() > 0 {
				return ErrClearFirst
			}
			p.Planner = true
			h.setBounds(true, b)
			i.relocateAll(b.Size)
			for _, lc := range l.Cubes {
				if shop, ok := i.deps.Items.Shop(lc.Item.ItemID); !ok || !shop.Buyable {
					continue
				}
				c := modelpkg.NewCube(freshItem(lc.Item.ItemID, lc.Item.UGC), i.cfg.MapID, lc.PlotNumber, lc.Pos, lc.Rotation, h.id)
				h.structure.Planner.Insert(c)
			}
			i.broadcastPlanner(i.snapshot(h, true))
			return nil
		})
	})
}

// LoadLayout replaces the live structure with slot. The shortfall the warehouse cannot
// cover is charged to the owner up front; the current cubes go back to the owner's
// inventory; then every cube is placed taking warehouse stock first. Units that were
// paid for but could not be placed are refunded.
func (i *Instance) LoadLayout(ctx context.Context, sessionID string, slot int) (economypkg.Cost, error) {
	var out economypkg.Cost
	err := i.exec(ctx, sessionID, func(p *Player) error {
		if !i.residence() {
			return ErrBadRequest
		}
		return i.withOwnHome(p, func(h *Home) error {
			l, ok := h.layouts.Find(slot)
			if !ok {
				return ErrNotFound
			}
			b := spatialpkg.Bounds{Size: l.Size, Height: l.Height}
			if !b.Valid() {
				return ErrBadRequest
			}
			cost := i.layoutCost(h, l)
			if err := i.chargeAll(h.account, cost); err != nil {
				return err
			}

			for _, c := range h.structure.Live.Cubes() {
				i.removeCube(h, p.Name, c.Pos, false, "LOAD_LAYOUT")
			}
			h.setBounds(false, b)
			i.deps.Store.UpsertHome(h.record())
			i.broadcast(i.boundsMsg(h, false))
			i.relocateAll(b.Size)

			prepaid := make(map[int]int, len(cost.Shortfall))
			for id, n := range cost.Shortfall {
				prepaid[id] = n
			}
			for _, lc := range l.Cubes {
				plot, _, err := i.validatePlacement(h, lc.Pos, lc.Item.ItemID, false)
				if err != nil || h.structure.Live.Occupied(lc.Pos) || i.liftables[lc.Pos] != nil {
					continue
				}
				var item modelpkg.Item
				if stack, ok := h.structure.Warehouse.FindByItemID(lc.Item.ItemID); ok {
					item = i.takeFromWarehouse(h, stack)
				} else if prepaid[lc.Item.ItemID] > 0 {
					prepaid[lc.Item.ItemID]--
					item = freshItem(lc.Item.ItemID, lc.Item.UGC)
				} else {
					continue
				}
				c := modelpkg.NewCube(item, i.cfg.MapID, plot, lc.Pos, lc.Rotation, h.id)
				h.structure.Live.Insert(c)
				i.deps.Store.UpsertCube(c)
				i.audit(h, p.Name, "PLACE", c, false, "LOAD_LAYOUT")
			}
			i.refundUnplaced(h.account, prepaid)

			i.broadcast(i.snapshot(h, false))
			i.send(p.SessionID, warehouseMsg(h))
			i.send(p.SessionID, noticeMsg(protocol.NoticeLayoutLoaded, l.Name))
			out = cost
			return nil
		})
	})
	return out, err
}

// ClearInterior removes every cube of the active mode.
func (i *Instance) ClearInterior(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := i.exec(ctx, sessionID, func(p *Player) error {
		if !i.residence() {
			return ErrBadRequest
		}
		return i.withOwnHome(p, func(h *Home) error {
			planner := i.plannerActive(p)
			for _, c := range h.set(planner, false).Cubes() {
				if _, ok := i.removeCube(h, p.Name, c.Pos, planner, "CLEAR"); ok {
					n++
				}
			}
			i.send(p.SessionID, noticeMsg(protocol.NoticeAutomaticRemoval, "All items have been removed."))
			return nil
		})
	})
	return n, err
}

func (i *Instance) checkSlot(slot int) error {
	if slot < 1 || slot > i.cfg.MaxLayoutSlots {
		return ErrBadRequest
	}
	return nil
}

// layoutCost is the single pricing path shared by the estimate and the live load.
func (i *Instance) layoutCost(h *Home, l modelpkg.Layout) economypkg.Cost {
	return economypkg.EstimateCost(l.Cubes, h.structure.Warehouse.Stock(), i.deps.Items.Shop)
}

// chargeAll debits every currency of cost from the account or nothing at all.
func (i *Instance) chargeAll(account int64, cost economypkg.Cost) error {
	var paid []modelpkg.Currency
	for _, c := range cost.Currencies() {
		if i.deps.Economy.DebitWallet(account, c, cost.Totals[c]) {
			paid = append(paid, c)
			continue
		}
		for _, pc := range paid {
			i.deps.Economy.CreditWallet(account, pc, cost.Totals[pc])
		}
		return &InsufficientFundsError{Currency: c}
	}
	return nil
}

func (i *Instance) refundUnplaced(account int64, prepaid map[int]int) {
	ids := make([]int, 0, len(prepaid))
	for id, n := range prepaid {
		if n > 0 {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	for _, id := range ids {
		shop, ok := i.deps.Items.Shop(id)
		if !ok {
			continue
		}
		i.deps.Economy.CreditWallet(account, shop.Currency, shop.Price*int64(prepaid[id]))
	}
}
