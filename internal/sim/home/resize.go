package home

import (
	"context"

	spatialpkg "homecraft.ai/internal/sim/home/feature/spatial"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

// Resize grows or shrinks the active mode's bounds of the residence by one step.
// A step past the limits is ignored. Shrinking removes every cube in the vacated
// shell first and then moves all occupants back inside.
func (i *Instance) Resize(ctx context.Context, sessionID string, r spatialpkg.Resize) (spatialpkg.Bounds, error) {
	var out spatialpkg.Bounds
	err := i.exec(ctx, sessionID, func(p *Player) error {
		if !i.residence() {
			return ErrBadRequest
		}
		return i.withOwnHome(p, func(h *Home) error {
			planner := i.plannerActive(p)
			b := h.bounds(planner)
			next, ok := spatialpkg.Apply(b, r)
			if !ok {
				out = b
				return nil
			}
			if r.Shrinks() {
				vacated := h.set(planner, false).Select(func(c modelpkg.Cube) bool {
					return spatialpkg.InVacatedShell(c.Pos, b, r)
				})
				for _, c := range vacated {
					i.removeCube(h, p.Name, c.Pos, planner, "SHRINK")
				}
			}
			h.setBounds(planner, next)
			if !planner {
				i.deps.Store.UpsertHome(h.record())
			}
			i.broadcastMode(planner, i.boundsMsg(h, planner))
			if r.Shrinks() {
				i.relocateAll(next.Size)
			}
			out = next
			return nil
		})
	})
	return out, err
}
