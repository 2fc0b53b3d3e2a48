package home

import (
	"context"

	"homecraft.ai/internal/protocol"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

// RemoveCube takes the cube at pos out of the requester's active mode. A missing cube
// is reported as ErrNotFound, which is never shown to the client.
func (i *Instance) RemoveCube(ctx context.Context, sessionID string, pos modelpkg.Vec3i) (modelpkg.Cube, error) {
	var out modelpkg.Cube
	err := i.exec(ctx, sessionID, func(p *Player) error {
		return i.withHome(p, func(h *Home) error {
			planner := i.plannerActive(p)
			if !planner {
				if _, err := i.resolveRole(h, p); err != nil {
					return err
				}
			}
			c, ok := i.removeCube(h, p.Name, pos, planner, "")
			if !ok {
				return ErrNotFound
			}
			out = c
			return nil
		})
	})
	return out, err
}

// removeCube deletes, refunds and broadcasts the removal of the cube at pos.
func (i *Instance) removeCube(h *Home, actor string, pos modelpkg.Vec3i, planner bool, reason string) (modelpkg.Cube, bool) {
	c, ok := i.detachCube(h, pos, planner)
	if !ok {
		return c, false
	}
	i.broadcastCube(h, protocol.CubeRemoved, actor, c, nil, planner)
	if !planner {
		i.audit(h, actor, "REMOVE", c, false, reason)
	}
	return c, true
}

// detachCube removes the cube at pos without broadcasting. A live cube is deleted from
// the store and its item goes back to the owner's inventory; planner cubes cost nothing
// and return nothing.
func (i *Instance) detachCube(h *Home, pos modelpkg.Vec3i, planner bool) (modelpkg.Cube, bool) {
	c, ok := h.set(planner, !i.residence()).Remove(pos)
	if !ok || planner {
		return c, ok
	}
	i.deps.Store.DeleteCube(h.id, c.UID)
	item := c.Item
	item.Amount = 1
	i.deps.Economy.AddItem(h.account, item)
	i.notifyAccount(h.account, protocol.ItemReturnMsg{
		Type:            protocol.TypeItemReturn,
		ProtocolVersion: protocol.Version,
		HomeID:          h.id,
		Item:            itemObs(item),
	})
	return c, true
}
