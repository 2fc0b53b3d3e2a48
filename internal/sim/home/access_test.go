package home

import (
	"errors"
	"testing"
	"time"

	"homecraft.ai/internal/protocol"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

func TestGrantRevoke_Idempotent(t *testing.T) {
	hs := newResidence(t)
	hs.join(visitor)

	for n := 0; n < 2; n++ {
		if err := hs.inst.GrantBuilding(hs.ctx, ownerSID, visitor.Name); err != nil {
			t.Fatalf("grant: %v", err)
		}
	}
	if got := hs.home.Record().BuildingDelegates; len(got) != 1 || got[0] != visitorAccount {
		t.Fatalf("delegates=%v", got)
	}
	if rec, _ := hs.store.Home(1); len(rec.BuildingDelegates) != 1 {
		t.Fatalf("stored delegates=%v", rec.BuildingDelegates)
	}
	if n := len(collect[protocol.BuildingMsg](hs.notes.of(visitorSID))); n != 1 {
		t.Fatalf("repeated grant should notify once, got %d", n)
	}

	for n := 0; n < 2; n++ {
		if err := hs.inst.RevokeBuilding(hs.ctx, ownerSID, visitor.Name); err != nil {
			t.Fatalf("revoke: %v", err)
		}
	}
	if got := hs.home.Record().BuildingDelegates; len(got) != 0 {
		t.Fatalf("delegates=%v", got)
	}
	msgs := collect[protocol.BuildingMsg](hs.notes.of(visitorSID))
	if len(msgs) != 2 || msgs[1].Granted {
		t.Fatalf("building msgs=%+v", msgs)
	}
}

func TestGrantBuilding_Errors(t *testing.T) {
	hs := newResidence(t)
	hs.join(visitor)

	if err := hs.inst.GrantBuilding(hs.ctx, ownerSID, "Nobody"); !errors.Is(err, ErrUnknownCharacter) {
		t.Fatalf("expected ErrUnknownCharacter, got %v", err)
	}
	if errs := hs.errorsOf(ownerSID); len(errs) != 1 || errs[0].Code != protocol.ErrCharacterNotFound {
		t.Fatalf("errors=%+v", errs)
	}
	if err := hs.inst.GrantBuilding(hs.ctx, ownerSID, owner.Name); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("self grant: expected ErrBadRequest, got %v", err)
	}
	if err := hs.inst.GrantBuilding(hs.ctx, visitorSID, visitor.Name); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("visitor grant: expected ErrPermissionDenied, got %v", err)
	}
}

func TestPermissions_EnableAndSet(t *testing.T) {
	hs := newResidence(t)
	hs.join(visitor)
	const kind byte = 3

	if err := hs.inst.SetPermission(hs.ctx, ownerSID, kind, 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok := hs.home.Record().Permissions[kind]; ok {
		t.Fatalf("setting a disabled permission must not enable it")
	}
	if err := hs.inst.EnablePermission(hs.ctx, ownerSID, kind, true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := hs.inst.SetPermission(hs.ctx, ownerSID, kind, 2); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := hs.inst.EnablePermission(hs.ctx, ownerSID, kind, true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if v, ok := hs.home.Record().Permissions[kind]; !ok || v != 2 {
		t.Fatalf("re-enabling must keep the setting, got %d %v", v, ok)
	}
	if err := hs.inst.EnablePermission(hs.ctx, ownerSID, kind, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if _, ok := hs.home.Record().Permissions[kind]; ok {
		t.Fatalf("permission should be removed")
	}
	msgs := collect[protocol.PermissionMsg](hs.notes.of(visitorSID))
	if len(msgs) != 4 || msgs[3].Enabled {
		t.Fatalf("permission msgs=%+v", msgs)
	}
}

func TestUpdateBudgetAndSettings(t *testing.T) {
	hs := newResidence(t)
	hs.join(visitor)

	if err := hs.inst.UpdateBudget(hs.ctx, ownerSID, modelpkg.Budget{Mesos: -1}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if err := hs.inst.UpdateBudget(hs.ctx, visitorSID, modelpkg.Budget{Mesos: 10}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	name, pw := "Cozy", "hunter2"
	light := byte(4)
	if err := hs.inst.UpdateSettings(hs.ctx, ownerSID, Settings{Name: &name, Password: &pw, Lighting: &light}); err != nil {
		t.Fatalf("settings: %v", err)
	}
	rec := hs.home.Record()
	if rec.Name != "Cozy" || rec.Password != "hunter2" || rec.Lighting != 4 || rec.OwnerName != "Ayla" {
		t.Fatalf("record=%+v", rec)
	}
	msgs := collect[protocol.SettingsMsg](hs.notes.of(visitorSID))
	if len(msgs) != 1 || !msgs[0].Locked || msgs[0].Lighting != 4 {
		t.Fatalf("settings msgs=%+v", msgs)
	}
}

func TestKickEveryone_ResolvesVisitorsWhenItFires(t *testing.T) {
	hs := newResidence(t)
	hs.inst.cfg.KickDelay = 150 * time.Millisecond
	third := PlayerRef{SessionID: "s-third", AccountID: 300, Name: "Cato"}
	late := PlayerRef{SessionID: "s-late", AccountID: 400, Name: "Dara"}
	hs.join(visitor)
	hs.join(third)

	if err := hs.inst.KickEveryone(hs.ctx, visitorSID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("visitor kick: expected ErrPermissionDenied, got %v", err)
	}
	if err := hs.inst.KickEveryone(hs.ctx, ownerSID); err != nil {
		t.Fatalf("kick: %v", err)
	}
	if kicks := collect[protocol.KickMsg](hs.notes.of(visitorSID)); len(kicks) != 1 || kicks[0].DelayMS != 150 {
		t.Fatalf("kick msgs=%+v", kicks)
	}
	if n := len(collect[protocol.KickMsg](hs.notes.of(ownerSID))); n != 0 {
		t.Fatalf("owner should not be warned")
	}
	if err := hs.inst.Leave(hs.ctx, third.SessionID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	hs.join(late)

	eventually(t, func() bool { return len(hs.warper.list()) >= 2 })
	time.Sleep(20 * time.Millisecond)
	warped := map[string]bool{}
	for _, p := range hs.warper.list() {
		warped[p.SessionID] = true
	}
	if len(warped) != 2 || !warped[visitorSID] || !warped[late.SessionID] {
		t.Fatalf("warped=%v", warped)
	}
	occ, err := hs.inst.Occupants(hs.ctx)
	if err != nil || len(occ) != 1 || occ[0].SessionID != ownerSID {
		t.Fatalf("occupants=%+v err=%v", occ, err)
	}
	if warps := collect[protocol.WarpMsg](hs.notes.of(visitorSID)); len(warps) != 1 || warps[0].MapID != plotMap {
		t.Fatalf("warp msgs=%+v", warps)
	}
}
