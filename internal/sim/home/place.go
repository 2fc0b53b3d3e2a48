package home

import (
	"context"

	"homecraft.ai/internal/protocol"
	economypkg "homecraft.ai/internal/sim/home/feature/economy"
	spatialpkg "homecraft.ai/internal/sim/home/feature/spatial"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

// PlaceRequest asks for one cube. Pos is in block units. ItemUID names a warehouse
// stack to take from; any stack of the same item is used when it is empty or absent.
type PlaceRequest struct {
	ItemID   int
	ItemUID  string
	Pos      modelpkg.Vec3i
	Rotation int
	UGC      *modelpkg.UGC
}

// AddCube places a cube in the active mode of the requester. While carrying a liftable
// the liftable is put down instead and the returned cube is empty.
func (i *Instance) AddCube(ctx context.Context, sessionID string, req PlaceRequest) (modelpkg.Cube, error) {
	var out modelpkg.Cube
	err := i.exec(ctx, sessionID, func(p *Player) error {
		if p.Carrying != nil {
			return i.dropLiftable(p, req.Pos)
		}
		return i.withHome(p, func(h *Home) error {
			c, err := i.addCube(h, p, req)
			out = c
			return err
		})
	})
	return out, err
}

func (i *Instance) addCube(h *Home, p *Player, req PlaceRequest) (modelpkg.Cube, error) {
	planner := i.plannerActive(p)
	plot, shop, err := i.validatePlacement(h, req.Pos, req.ItemID, planner)
	if err != nil {
		return modelpkg.Cube{}, err
	}
	set := h.set(planner, !i.residence())
	if set.Occupied(req.Pos) || i.liftables[req.Pos] != nil {
		return modelpkg.Cube{}, ErrInvalidCoordinate
	}

	if planner {
		c := modelpkg.NewCube(freshItem(req.ItemID, req.UGC), i.cfg.MapID, plot, req.Pos, req.Rotation, h.id)
		set.Insert(c)
		i.broadcastCube(h, protocol.CubePlaced, p.Name, c, nil, true)
		return c, nil
	}

	role, err := i.resolveRole(h, p)
	if err != nil {
		return modelpkg.Cube{}, err
	}
	item, err := i.acquire(h, role, req, shop)
	if err != nil {
		return modelpkg.Cube{}, err
	}
	c := modelpkg.NewCube(item, i.cfg.MapID, plot, req.Pos, req.Rotation, h.id)
	set.Insert(c)
	i.deps.Store.UpsertCube(c)
	i.sendWarehouse(h, role)
	i.broadcastCube(h, protocol.CubePlaced, p.Name, c, nil, false)
	i.audit(h, p.Name, "PLACE", c, false, "")
	return c, nil
}

// validatePlacement checks the coordinate against the plot grid and the bounds that
// apply to it, then looks the item up in the shop. It never mutates.
func (i *Instance) validatePlacement(h *Home, pos modelpkg.Vec3i, itemID int, planner bool) (int, economypkg.ShopEntry, error) {
	plot := i.deps.Maps.PlotNumber(i.cfg.MapID, pos)
	if plot <= 0 {
		return 0, economypkg.ShopEntry{}, ErrInvalidCoordinate
	}
	var height int
	if i.residence() {
		b := h.bounds(planner)
		if spatialpkg.OutsideSizeLimit(pos, b.Size) {
			return 0, economypkg.ShopEntry{}, ErrInvalidCoordinate
		}
		height = b.Height
	} else {
		if h.rec.PlotMapID != i.cfg.MapID || h.rec.PlotNumber != plot {
			return 0, economypkg.ShopEntry{}, ErrInvalidCoordinate
		}
		info, ok := i.deps.Maps.Plot(i.cfg.MapID, plot)
		if !ok {
			return 0, economypkg.ShopEntry{}, ErrInvalidCoordinate
		}
		height = info.HeightLimit
	}
	if spatialpkg.OutsideHeightLimit(i.terrain, pos, height) {
		return 0, economypkg.ShopEntry{}, ErrInvalidCoordinate
	}
	shop, ok := i.deps.Items.Shop(itemID)
	if !ok || !shop.Buyable {
		return 0, economypkg.ShopEntry{}, ErrUnknownItem
	}
	return plot, shop, nil
}

// acquire produces the item for a live placement: one unit of warehouse stock when
// there is any, otherwise a purchase charged to the role's payer.
func (i *Instance) acquire(h *Home, role ActingRole, req PlaceRequest, shop economypkg.ShopEntry) (modelpkg.Item, error) {
	if stack, ok := i.findStock(h, req.ItemUID, req.ItemID); ok {
		return i.takeFromWarehouse(h, stack), nil
	}
	if err := i.charge(h, role, shop.Currency, shop.Price); err != nil {
		return modelpkg.Item{}, err
	}
	return freshItem(req.ItemID, req.UGC), nil
}

func (i *Instance) findStock(h *Home, uid string, itemID int) (modelpkg.Item, bool) {
	if uid != "" {
		if it, ok := h.structure.Warehouse.Get(uid); ok && it.ItemID == itemID && it.Amount > 0 {
			return it, true
		}
	}
	return h.structure.Warehouse.FindByItemID(itemID)
}

// takeFromWarehouse consumes one unit of stack. The last unit keeps the stack uid.
func (i *Instance) takeFromWarehouse(h *Home, stack modelpkg.Item) modelpkg.Item {
	left, _ := h.structure.Warehouse.Consume(stack.UID)
	item := stack
	item.Amount = 1
	if left.Amount == 0 {
		i.deps.Store.DeleteWarehouseItem(h.id, stack.UID)
	} else {
		i.deps.Store.UpsertWarehouseItem(h.id, left)
		item.UID = modelpkg.NewUID()
	}
	return item
}

// charge debits the owner's wallet. A delegate build is paid from the home budget and
// the owner's wallet together; observers see the new budget.
func (i *Instance) charge(h *Home, role ActingRole, c modelpkg.Currency, amount int64) error {
	if amount <= 0 {
		return nil
	}
	if role.Kind == RoleDelegate {
		if !i.deps.Economy.DebitHomeBudget(&h.rec.Budget, c, amount) {
			return &InsufficientFundsError{Currency: c, Budget: true}
		}
		if !i.deps.Economy.DebitWallet(role.Owner.AccountID, c, amount) {
			*h.rec.Budget.Balance(c) += amount
			return &InsufficientFundsError{Currency: c, Budget: true}
		}
		i.deps.Store.UpsertHome(h.record())
		i.broadcast(budgetMsg(h))
		return nil
	}
	if !i.deps.Economy.DebitWallet(role.Actor.AccountID, c, amount) {
		return &InsufficientFundsError{Currency: c}
	}
	return nil
}

func freshItem(itemID int, ugc *modelpkg.UGC) modelpkg.Item {
	it := modelpkg.NewItem(itemID)
	if ugc != nil {
		u := *ugc
		it.UGC = &u
	}
	return it
}
