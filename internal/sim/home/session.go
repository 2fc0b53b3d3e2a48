package home

import (
	"context"

	"homecraft.ai/internal/protocol"
	spatialpkg "homecraft.ai/internal/sim/home/feature/spatial"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

// Join adds a session to the instance and sends it the current structure.
func (i *Instance) Join(ctx context.Context, ref PlayerRef) error {
	return i.call(ctx, func() {
		p := &Player{PlayerRef: ref}
		if h := i.cfg.Home; h != nil {
			h.mu.Lock()
			p.Pos = spatialpkg.SafeCoord(h.rec.Size, i.cfg.BlockSize)
			snap := i.snapshot(h, false)
			h.mu.Unlock()
			i.players[ref.SessionID] = p
			i.send(ref.SessionID, snap)
		} else {
			i.players[ref.SessionID] = p
			for _, h := range i.deps.Homes.HomesOnMap(i.cfg.MapID) {
				h.mu.Lock()
				snap := i.snapshot(h, false)
				h.mu.Unlock()
				i.send(ref.SessionID, snap)
			}
		}
		for _, pos := range sortedPositions(i.liftables) {
			l := i.liftables[pos]
			i.send(ref.SessionID, liftableMsg(l.itemID, pos, l.state, ""))
		}
	})
}

// Leave removes a session. A carried liftable goes back to where it was picked up.
func (i *Instance) Leave(ctx context.Context, sessionID string) error {
	return i.call(ctx, func() {
		p := i.players[sessionID]
		if p == nil {
			return
		}
		delete(i.players, sessionID)
		if p.Carrying != nil {
			i.returnLiftable(p)
		}
	})
}

// Occupants returns the sessions in the instance ordered by session id.
func (i *Instance) Occupants(ctx context.Context) ([]PlayerRef, error) {
	var out []PlayerRef
	err := i.call(ctx, func() {
		for _, id := range i.sessionIDs() {
			out = append(out, i.players[id].PlayerRef)
		}
	})
	return out, err
}

// Position returns the world-unit position of a session.
func (i *Instance) Position(ctx context.Context, sessionID string) (modelpkg.Vec3i, bool, error) {
	var (
		pos modelpkg.Vec3i
		ok  bool
	)
	err := i.call(ctx, func() {
		if p := i.players[sessionID]; p != nil {
			pos, ok = p.Pos, true
		}
	})
	return pos, ok, err
}

// SetPlannerMode switches a session between the live structure and the planner.
// Only the owner of the residence may plan; the planner set is kept when leaving it.
func (i *Instance) SetPlannerMode(ctx context.Context, sessionID string, enabled bool) error {
	return i.exec(ctx, sessionID, func(p *Player) error {
		if !i.residence() {
			return ErrBadRequest
		}
		return i.withOwnHome(p, func(h *Home) error {
			p.Planner = enabled
			i.send(p.SessionID, protocol.PlannerMsg{Type: protocol.TypePlanner, ProtocolVersion: protocol.Version, Enabled: enabled})
			i.send(p.SessionID, i.snapshot(h, enabled))
			return nil
		})
	})
}

// LoadFurnishingItem shows the item a player is about to place to everyone in the instance.
// An itemID of zero clears the preview.
func (i *Instance) LoadFurnishingItem(ctx context.Context, sessionID string, itemID int, itemUID string) error {
	return i.exec(ctx, sessionID, func(p *Player) error {
		i.broadcast(protocol.FurnishingMsg{
			Type:            protocol.TypeFurnishing,
			ProtocolVersion: protocol.Version,
			Actor:           p.Name,
			ItemID:          itemID,
			ItemUID:         itemUID,
		})
		return nil
	})
}
