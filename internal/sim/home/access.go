package home

import (
	"context"

	"homecraft.ai/internal/protocol"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

// GrantBuilding lets the named character build in the owner's home. Granting twice is a no-op.
func (i *Instance) GrantBuilding(ctx context.Context, sessionID, character string) error {
	return i.setBuilding(ctx, sessionID, character, true)
}

// RevokeBuilding takes the grant back. Revoking an absent grant is a no-op.
func (i *Instance) RevokeBuilding(ctx context.Context, sessionID, character string) error {
	return i.setBuilding(ctx, sessionID, character, false)
}

func (i *Instance) setBuilding(ctx context.Context, sessionID, character string, grant bool) error {
	return i.exec(ctx, sessionID, func(p *Player) error {
		return i.withOwnHome(p, func(h *Home) error {
			target, ok := i.deps.Directory.AccountByName(character)
			if !ok {
				return ErrUnknownCharacter
			}
			if target == h.account {
				return ErrBadRequest
			}
			var changed bool
			if grant {
				changed = h.access.Grant(target)
			} else {
				changed = h.access.Revoke(target)
			}
			if !changed {
				return nil
			}
			i.deps.Store.UpsertHome(h.record())
			msg := protocol.BuildingMsg{
				Type:            protocol.TypeBuilding,
				ProtocolVersion: protocol.Version,
				HomeID:          h.id,
				OwnerName:       h.rec.OwnerName,
				Character:       character,
				Granted:         grant,
			}
			i.send(p.SessionID, msg)
			i.notifyAccount(target, msg)
			return nil
		})
	})
}

// EnablePermission turns a permission on at setting 0, or removes it.
func (i *Instance) EnablePermission(ctx context.Context, sessionID string, kind byte, enabled bool) error {
	return i.exec(ctx, sessionID, func(p *Player) error {
		return i.withOwnHome(p, func(h *Home) error {
			h.access.Enable(kind, enabled)
			i.deps.Store.UpsertHome(h.record())
			i.broadcast(i.permissionMsg(h, kind))
			return nil
		})
	})
}

// SetPermission changes the setting of an enabled permission. A disabled one is left alone.
func (i *Instance) SetPermission(ctx context.Context, sessionID string, kind, value byte) error {
	return i.exec(ctx, sessionID, func(p *Player) error {
		return i.withOwnHome(p, func(h *Home) error {
			if !h.access.Set(kind, value) {
				return nil
			}
			i.deps.Store.UpsertHome(h.record())
			i.broadcast(i.permissionMsg(h, kind))
			return nil
		})
	})
}

// UpdateBudget sets the balances delegates spend from.
func (i *Instance) UpdateBudget(ctx context.Context, sessionID string, budget modelpkg.Budget) error {
	return i.exec(ctx, sessionID, func(p *Player) error {
		if budget.Mesos < 0 || budget.Merets < 0 {
			return ErrBadRequest
		}
		return i.withOwnHome(p, func(h *Home) error {
			h.rec.Budget = budget
			i.deps.Store.UpsertHome(h.record())
			i.broadcast(budgetMsg(h))
			return nil
		})
	})
}

func budgetMsg(h *Home) protocol.BudgetMsg {
	return protocol.BudgetMsg{
		Type:            protocol.TypeBudget,
		ProtocolVersion: protocol.Version,
		HomeID:          h.id,
		Mesos:           h.rec.Budget.Mesos,
		Merets:          h.rec.Budget.Merets,
	}
}

// Settings is a partial update of the home's presentation. Nil fields are kept.
type Settings struct {
	Name        *string
	Description *string
	Password    *string
	Background  *byte
	Lighting    *byte
	Camera      *byte
}

func (i *Instance) UpdateSettings(ctx context.Context, sessionID string, s Settings) error {
	return i.exec(ctx, sessionID, func(p *Player) error {
		return i.withOwnHome(p, func(h *Home) error {
			if s.Name != nil {
				h.rec.Name = *s.Name
			}
			if s.Description != nil {
				h.rec.Description = *s.Description
			}
			if s.Password != nil {
				h.rec.Password = *s.Password
			}
			if s.Background != nil {
				h.rec.Background = *s.Background
			}
			if s.Lighting != nil {
				h.rec.Lighting = *s.Lighting
			}
			if s.Camera != nil {
				h.rec.Camera = *s.Camera
			}
			i.deps.Store.UpsertHome(h.record())
			i.broadcast(protocol.SettingsMsg{
				Type:            protocol.TypeSettings,
				ProtocolVersion: protocol.Version,
				HomeID:          h.id,
				Name:            h.rec.Name,
				Description:     h.rec.Description,
				Locked:          h.rec.Password != "",
				Background:      int(h.rec.Background),
				Lighting:        int(h.rec.Lighting),
				Camera:          int(h.rec.Camera),
			})
			return nil
		})
	})
}

func (i *Instance) permissionMsg(h *Home, kind byte) protocol.PermissionMsg {
	v, ok := h.access.Get(kind)
	return protocol.PermissionMsg{
		Type:            protocol.TypePermission,
		ProtocolVersion: protocol.Version,
		HomeID:          h.id,
		Permission:      int(kind),
		Enabled:         ok,
		Value:           int(v),
	}
}
