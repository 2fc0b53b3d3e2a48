package home

import (
	"context"
	"fmt"
	"sort"
	"time"

	"homecraft.ai/internal/protocol"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

const (
	liftActive   = protocol.LiftableActive
	liftDisabled = protocol.LiftableDisabled
)

// liftable is a map object players can carry. gen changes every time it is put down,
// which lets a delayed removal tell whether it still refers to the same placement.
type liftable struct {
	itemID int
	state  string
	gen    uint64
	finish time.Duration
}

type carried struct {
	itemID int
	finish time.Duration
	origin modelpkg.Vec3i
}

func finishOf(s modelpkg.LiftableSpawn, def time.Duration) time.Duration {
	if s.FinishTime > 0 {
		return time.Duration(s.FinishTime) * time.Millisecond
	}
	return def
}

func liftKey(pos modelpkg.Vec3i) string {
	return fmt.Sprintf("liftable:%d,%d,%d", pos.X, pos.Y, pos.Z)
}

// LiftObject picks up the active liftable at pos.
func (i *Instance) LiftObject(ctx context.Context, sessionID string, pos modelpkg.Vec3i) error {
	return i.exec(ctx, sessionID, func(p *Player) error {
		if p.Carrying != nil {
			return ErrBadRequest
		}
		l := i.liftables[pos]
		if l == nil || l.state != liftActive {
			return ErrNotFound
		}
		delete(i.liftables, pos)
		i.sched.Cancel(liftKey(pos))
		p.Carrying = &carried{itemID: l.itemID, finish: l.finish, origin: pos}
		i.broadcast(liftableMsg(l.itemID, pos, protocol.LiftableLifted, p.Name))
		return nil
	})
}

// dropLiftable puts the carried liftable at pos. On a target coordinate it is disabled
// and removed once its finish time has passed.
func (i *Instance) dropLiftable(p *Player, pos modelpkg.Vec3i) error {
	if i.liftables[pos] != nil || i.terrain(pos) || i.cubeAt(pos) {
		return ErrInvalidCoordinate
	}
	i.liftGen++
	l := &liftable{itemID: p.Carrying.itemID, state: liftActive, gen: i.liftGen, finish: p.Carrying.finish}
	p.Carrying = nil
	i.liftables[pos] = l
	if i.deps.Maps.LiftableTarget(i.cfg.MapID, pos) {
		l.state = liftDisabled
		gen := l.gen
		i.sched.Schedule(liftKey(pos), l.finish, func() {
			i.post(func() { i.resolveLiftable(pos, gen) })
		})
	}
	i.broadcast(liftableMsg(l.itemID, pos, l.state, p.Name))
	return nil
}

// cubeAt reports whether a live cube occupies pos: the residence's own cubes, or the
// plot cubes of every home built on this map.
func (i *Instance) cubeAt(pos modelpkg.Vec3i) bool {
	if h := i.cfg.Home; h != nil {
		return h.occupied(false, false, pos)
	}
	if i.deps.Homes == nil {
		return false
	}
	for _, h := range i.deps.Homes.HomesOnMap(i.cfg.MapID) {
		if h.occupied(false, true, pos) {
			return true
		}
	}
	return false
}

// returnLiftable puts what p carries back where it was picked up, unless that spot was
// taken in the meantime.
func (i *Instance) returnLiftable(p *Player) {
	c := p.Carrying
	p.Carrying = nil
	if c == nil || i.liftables[c.origin] != nil {
		return
	}
	i.liftGen++
	i.liftables[c.origin] = &liftable{itemID: c.itemID, state: liftActive, gen: i.liftGen, finish: c.finish}
	i.broadcast(liftableMsg(c.itemID, c.origin, liftActive, ""))
}

func (i *Instance) resolveLiftable(pos modelpkg.Vec3i, gen uint64) {
	l := i.liftables[pos]
	if l == nil || l.gen != gen {
		return
	}
	delete(i.liftables, pos)
	i.broadcast(liftableMsg(l.itemID, pos, protocol.LiftableRemoved, ""))
}

func liftableMsg(itemID int, pos modelpkg.Vec3i, state, actor string) protocol.LiftableMsg {
	return protocol.LiftableMsg{
		Type:            protocol.TypeLiftable,
		ProtocolVersion: protocol.Version,
		ItemID:          itemID,
		Pos:             pos.ToArray(),
		State:           state,
		Actor:           actor,
	}
}

func sortedPositions(m map[modelpkg.Vec3i]*liftable) []modelpkg.Vec3i {
	out := make([]modelpkg.Vec3i, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(a, b int) bool {
		x, y := out[a], out[b]
		if x.X != y.X {
			return x.X < y.X
		}
		if x.Y != y.Y {
			return x.Y < y.Y
		}
		return x.Z < y.Z
	})
	return out
}
