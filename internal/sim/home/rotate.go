package home

import (
	"context"

	"homecraft.ai/internal/protocol"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

// RotateCube turns the cube at pos a quarter turn clockwise.
func (i *Instance) RotateCube(ctx context.Context, sessionID string, pos modelpkg.Vec3i) (modelpkg.Cube, error) {
	var out modelpkg.Cube
	err := i.exec(ctx, sessionID, func(p *Player) error {
		return i.withHome(p, func(h *Home) error {
			planner := i.plannerActive(p)
			if !planner {
				if _, err := i.resolveRole(h, p); err != nil {
					return err
				}
			}
			c, ok := h.set(planner, !i.residence()).Rotate(pos, -90)
			if !ok {
				return ErrNotFound
			}
			if !planner {
				i.deps.Store.UpsertCube(c)
				i.audit(h, p.Name, "ROTATE", c, false, "")
			}
			i.broadcastCube(h, protocol.CubeRotated, p.Name, c, nil, planner)
			out = c
			return nil
		})
	})
	return out, err
}
