package home

import (
	"context"

	"homecraft.ai/internal/protocol"
)

const kickKey = "kick"

// KickEveryone warns every visitor and, after the grace delay, sends whoever is still
// in the residence back to the return map. The owner stays.
func (i *Instance) KickEveryone(ctx context.Context, sessionID string) error {
	return i.exec(ctx, sessionID, func(p *Player) error {
		if !i.residence() {
			return ErrBadRequest
		}
		h := i.cfg.Home
		if p.AccountID != h.account {
			return ErrPermissionDenied
		}
		msg := protocol.KickMsg{
			Type:            protocol.TypeKick,
			ProtocolVersion: protocol.Version,
			HomeID:          h.id,
			DelayMS:         i.cfg.KickDelay.Milliseconds(),
		}
		for _, id := range i.sessionIDs() {
			if i.players[id].AccountID != h.account {
				i.send(id, msg)
			}
		}
		i.send(p.SessionID, noticeMsg(protocol.NoticeKickScheduled, "Visitors will be removed shortly."))
		i.sched.Schedule(kickKey, i.cfg.KickDelay, func() { i.post(i.kickVisitors) })
		return nil
	})
}

// kickVisitors runs on the instance goroutine and looks at who is present now.
func (i *Instance) kickVisitors() {
	owner := i.cfg.Home.account
	for _, id := range i.sessionIDs() {
		p := i.players[id]
		if p.AccountID == owner {
			continue
		}
		delete(i.players, id)
		if p.Carrying != nil {
			i.returnLiftable(p)
		}
		i.send(id, protocol.WarpMsg{Type: protocol.TypeWarp, ProtocolVersion: protocol.Version, MapID: i.cfg.ReturnMapID})
		if i.deps.Warper != nil {
			i.deps.Warper.Warp(p.PlayerRef, i.cfg.ReturnMapID)
		}
	}
}
