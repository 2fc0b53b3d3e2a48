package home

import (
	"context"

	"homecraft.ai/internal/protocol"
	spatialpkg "homecraft.ai/internal/sim/home/feature/spatial"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

// ReplaceCube swaps the cube at req.Pos for a new one. The old cube is only removed
// once the new one is paid for, so a failed replace leaves the coordinate as it was.
// The floor layer holds default tiles that have no cube; it can be replaced without an
// old cube but only by solid items.
func (i *Instance) ReplaceCube(ctx context.Context, sessionID string, req PlaceRequest) (modelpkg.Cube, error) {
	var out modelpkg.Cube
	err := i.exec(ctx, sessionID, func(p *Player) error {
		return i.withHome(p, func(h *Home) error {
			c, err := i.replaceCube(h, p, req)
			out = c
			return err
		})
	})
	return out, err
}

func (i *Instance) replaceCube(h *Home, p *Player, req PlaceRequest) (modelpkg.Cube, error) {
	planner := i.plannerActive(p)
	plot, shop, err := i.validatePlacement(h, req.Pos, req.ItemID, planner)
	if err != nil {
		return modelpkg.Cube{}, err
	}
	ground := req.Pos == spatialpkg.GroundCoord(req.Pos)
	if ground {
		info, ok := i.deps.Items.Install(req.ItemID)
		if !ok || !info.Solid {
			return modelpkg.Cube{}, ErrInvalidCoordinate
		}
	}
	if i.liftables[req.Pos] != nil {
		return modelpkg.Cube{}, ErrInvalidCoordinate
	}
	set := h.set(planner, !i.residence())
	if _, hasOld := set.At(req.Pos); !hasOld && !ground {
		return modelpkg.Cube{}, ErrNotFound
	}

	var (
		item modelpkg.Item
		role ActingRole
	)
	if planner {
		item = freshItem(req.ItemID, req.UGC)
	} else {
		if role, err = i.resolveRole(h, p); err != nil {
			return modelpkg.Cube{}, err
		}
		if item, err = i.acquire(h, role, req, shop); err != nil {
			return modelpkg.Cube{}, err
		}
	}

	old, hadOld := i.detachCube(h, req.Pos, planner)
	c := modelpkg.NewCube(item, i.cfg.MapID, plot, req.Pos, req.Rotation, h.id)
	set.Insert(c)
	var replaced *modelpkg.Cube
	if hadOld {
		replaced = &old
	}
	if !planner {
		i.deps.Store.UpsertCube(c)
		i.sendWarehouse(h, role)
		i.audit(h, p.Name, "REPLACE", c, false, "")
	}
	i.broadcastCube(h, protocol.CubeReplaced, p.Name, c, replaced, planner)
	return c, nil
}
