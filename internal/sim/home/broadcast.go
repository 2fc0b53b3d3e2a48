package home

import (
	"errors"

	"homecraft.ai/internal/protocol"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

func (i *Instance) send(sessionID string, msg any) {
	if i.deps.Notifier == nil || sessionID == "" {
		return
	}
	i.deps.Notifier.Send(sessionID, msg)
}

// broadcast sends msg to every occupant, the requester included.
func (i *Instance) broadcast(msg any) {
	for _, id := range i.sessionIDs() {
		i.send(id, msg)
	}
}

// broadcastPlanner sends msg to the occupants currently looking at the planner.
func (i *Instance) broadcastPlanner(msg any) {
	for _, id := range i.sessionIDs() {
		if i.players[id].Planner {
			i.send(id, msg)
		}
	}
}

func (i *Instance) broadcastMode(planner bool, msg any) {
	if planner {
		i.broadcastPlanner(msg)
		return
	}
	i.broadcast(msg)
}

// notifyAccount reaches an account wherever it is connected.
func (i *Instance) notifyAccount(account int64, msg any) {
	if i.deps.Directory == nil {
		return
	}
	if ref, ok := i.deps.Directory.SessionByAccount(account); ok {
		i.send(ref.SessionID, msg)
	}
}

func (i *Instance) replyError(sessionID string, err error) {
	if Silent(err) {
		return
	}
	var funds *InsufficientFundsError
	if errors.As(err, &funds) {
		i.send(sessionID, protocol.NewNotice(protocol.ErrInsufficientFunds, funds.Error()))
		return
	}
	i.send(sessionID, protocol.NewError("", Code(err), err.Error()))
}

func (i *Instance) broadcastCube(h *Home, action string, actor string, c modelpkg.Cube, replaced *modelpkg.Cube, planner bool) {
	msg := protocol.CubeMsg{
		Type:            protocol.TypeCube,
		ProtocolVersion: protocol.Version,
		Action:          action,
		HomeID:          h.id,
		Planner:         planner,
		Actor:           actor,
		Cube:            cubeObs(c),
	}
	if replaced != nil {
		obs := cubeObs(*replaced)
		msg.Replaced = &obs
	}
	i.broadcastMode(planner, msg)
}

// sendWarehouse refreshes the warehouse view of the acting player and, for a delegate, of the owner.
func (i *Instance) sendWarehouse(h *Home, role ActingRole) {
	msg := warehouseMsg(h)
	i.send(role.Actor.SessionID, msg)
	if role.Kind == RoleDelegate && role.Owner.SessionID != role.Actor.SessionID {
		i.send(role.Owner.SessionID, msg)
	}
}

func (i *Instance) snapshot(h *Home, planner bool) protocol.SnapshotMsg {
	b := h.bounds(planner)
	cubes := h.set(planner, !i.residence()).Cubes()
	obs := make([]protocol.CubeObs, 0, len(cubes))
	for _, c := range cubes {
		obs = append(obs, cubeObs(c))
	}
	return protocol.SnapshotMsg{
		Type:            protocol.TypeSnapshot,
		ProtocolVersion: protocol.Version,
		HomeID:          h.id,
		OwnerName:       h.rec.OwnerName,
		Planner:         planner,
		Size:            b.Size,
		Height:          b.Height,
		Cubes:           obs,
	}
}

func (i *Instance) boundsMsg(h *Home, planner bool) protocol.BoundsMsg {
	b := h.bounds(planner)
	return protocol.BoundsMsg{
		Type:            protocol.TypeBounds,
		ProtocolVersion: protocol.Version,
		HomeID:          h.id,
		Planner:         planner,
		Size:            b.Size,
		Height:          b.Height,
	}
}

func (i *Instance) audit(h *Home, actor, action string, c modelpkg.Cube, planner bool, reason string) {
	if i.cfg.Audit == nil {
		return
	}
	e := AuditEntry{
		Time:    i.cfg.Now().UnixMilli(),
		MapID:   i.cfg.MapID,
		HomeID:  h.id,
		Actor:   actor,
		Action:  action,
		Pos:     c.Pos.ToArray(),
		ItemID:  c.Item.ItemID,
		CubeUID: c.UID,
		Planner: planner,
		Reason:  reason,
	}
	if err := i.cfg.Audit.WriteAudit(e); err != nil {
		i.log.Printf("audit %s %s: %v", i.cfg.Key, action, err)
	}
}

func cubeObs(c modelpkg.Cube) protocol.CubeObs {
	obs := protocol.CubeObs{
		UID:        c.UID,
		ItemID:     c.Item.ItemID,
		ItemUID:    c.Item.UID,
		Pos:        c.Pos.ToArray(),
		Rotation:   c.Rotation,
		PlotNumber: c.PlotNumber,
	}
	if c.Item.UGC != nil {
		obs.UGC = &protocol.UGCRef{UID: c.Item.UGC.UID, Name: c.Item.UGC.Name, URL: c.Item.UGC.URL}
	}
	return obs
}

func itemObs(it modelpkg.Item) protocol.ItemObs {
	return protocol.ItemObs{UID: it.UID, ItemID: it.ItemID, Amount: it.Amount}
}

func warehouseMsg(h *Home) protocol.WarehouseMsg {
	items := h.structure.Warehouse.Items()
	obs := make([]protocol.ItemObs, 0, len(items))
	for _, it := range items {
		obs = append(obs, itemObs(it))
	}
	return protocol.WarehouseMsg{Type: protocol.TypeWarehouse, ProtocolVersion: protocol.Version, HomeID: h.id, Items: obs}
}

func positionMsg(pos modelpkg.Vec3i) protocol.PositionMsg {
	return protocol.PositionMsg{Type: protocol.TypePosition, ProtocolVersion: protocol.Version, Pos: pos.ToArray()}
}

func noticeMsg(code, text string) protocol.NoticeMsg {
	return protocol.NewNotice(code, text)
}
