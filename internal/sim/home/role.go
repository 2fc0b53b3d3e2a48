package home

type RoleKind int

const (
	RoleOwner RoleKind = iota + 1
	RoleDelegate
)

// ActingRole is who a live-mode request acts as. Owner is the owner's session; for
// RoleOwner it is the actor itself.
type ActingRole struct {
	Kind  RoleKind
	Actor *Player
	Owner PlayerRef
}

// resolveRole decides whether p builds as the owner of h or as a delegate. A delegate
// needs the owner connected and a building grant. The caller holds h.mu.
func (i *Instance) resolveRole(h *Home, p *Player) (ActingRole, error) {
	if p.AccountID == h.account {
		return ActingRole{Kind: RoleOwner, Actor: p, Owner: p.PlayerRef}, nil
	}
	owner, ok := i.deps.Directory.SessionByAccount(h.account)
	if !ok {
		return ActingRole{}, ErrOwnerUnresolved
	}
	if !h.access.CanBuild(p.AccountID) {
		return ActingRole{}, ErrPermissionDenied
	}
	return ActingRole{Kind: RoleDelegate, Actor: p, Owner: owner}, nil
}
