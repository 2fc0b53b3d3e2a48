package ws

import (
	"context"
	"errors"
	"fmt"

	"homecraft.ai/internal/protocol"
	"homecraft.ai/internal/sim/home"
	spatialpkg "homecraft.ai/internal/sim/home/feature/spatial"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
	sessionspkg "homecraft.ai/internal/sim/sessions"
)

var (
	errBadRequest  = errors.New("malformed request")
	errNoCharacter = errors.New("character not online")
	errNotPlaced   = errors.New("session is not on a map")
)

// dispatch routes one validated REQ. Engine failures are reported to the session by
// the instance itself; the returned error only matters to fail.
func (s *Server) dispatch(ctx context.Context, sess *sessionspkg.Session, req protocol.RequestMsg) error {
	ref := sess.Ref()

	switch req.Op {
	case protocol.OpEnterMap:
		if req.MapID == s.homes.ResidenceMapID() {
			s.homes.EnsureHome(ref.AccountID, ref.Name)
			_, err := s.homes.EnterHome(ctx, ref, ref.AccountID)
			return err
		}
		_, err := s.homes.EnterMap(ctx, ref, req.MapID)
		return err

	case protocol.OpEnterHome:
		owner := req.OwnerAccount
		if owner == 0 && req.Character != "" {
			id, ok := s.sessions.AccountByName(req.Character)
			if !ok {
				return fmt.Errorf("%w: %s", errNoCharacter, req.Character)
			}
			owner = id
		}
		if owner == 0 || owner == ref.AccountID {
			owner = ref.AccountID
			s.homes.EnsureHome(ref.AccountID, ref.Name)
		}
		_, err := s.homes.EnterHome(ctx, ref, owner)
		return err
	}

	inst, ok := s.homes.Instance(sess.ID)
	if !ok {
		return fmt.Errorf("%w: %s", errNotPlaced, sess.ID)
	}

	switch req.Op {
	case protocol.OpAddCube, protocol.OpReplaceCube:
		pr, err := placeRequest(req)
		if err != nil {
			return err
		}
		if req.Op == protocol.OpAddCube {
			_, err = inst.AddCube(ctx, sess.ID, pr)
		} else {
			_, err = inst.ReplaceCube(ctx, sess.ID, pr)
		}
		return err

	case protocol.OpRemoveCube, protocol.OpRotateCube, protocol.OpLiftObject:
		if req.Pos == nil {
			return errBadRequest
		}
		pos := vec(*req.Pos)
		var err error
		switch req.Op {
		case protocol.OpRemoveCube:
			_, err = inst.RemoveCube(ctx, sess.ID, pos)
		case protocol.OpRotateCube:
			_, err = inst.RotateCube(ctx, sess.ID, pos)
		default:
			err = inst.LiftObject(ctx, sess.ID, pos)
		}
		return err

	case protocol.OpResize:
		r, ok := spatialpkg.ParseResize(req.Resize)
		if !ok {
			return errBadRequest
		}
		_, err := inst.Resize(ctx, sess.ID, r)
		return err

	case protocol.OpSaveLayout:
		_, err := inst.SaveLayout(ctx, sess.ID, req.Slot, req.Name)
		return err
	case protocol.OpLoadLayout:
		_, err := inst.LoadLayout(ctx, sess.ID, req.Slot)
		return err
	case protocol.OpLoadPlannerLayout:
		return inst.LoadPlannerLayout(ctx, sess.ID, req.Slot)
	case protocol.OpEstimateLayout:
		_, err := inst.EstimateLayout(ctx, sess.ID, req.Slot)
		return err
	case protocol.OpClearInterior:
		_, err := inst.ClearInterior(ctx, sess.ID)
		return err

	case protocol.OpGrantBuilding:
		return inst.GrantBuilding(ctx, sess.ID, req.Character)
	case protocol.OpRevokeBuilding:
		return inst.RevokeBuilding(ctx, sess.ID, req.Character)
	case protocol.OpEnablePermission:
		return inst.EnablePermission(ctx, sess.ID, byte(req.Permission), req.Enabled)
	case protocol.OpSetPermission:
		return inst.SetPermission(ctx, sess.ID, byte(req.Permission), byte(req.Value))
	case protocol.OpUpdateBudget:
		return inst.UpdateBudget(ctx, sess.ID, modelpkg.Budget{Mesos: req.Mesos, Merets: req.Merets})
	case protocol.OpUpdateSettings:
		if req.Settings == nil {
			return errBadRequest
		}
		return inst.UpdateSettings(ctx, sess.ID, settings(*req.Settings))
	case protocol.OpKickEveryone:
		return inst.KickEveryone(ctx, sess.ID)

	case protocol.OpBuyPlot:
		_, err := inst.BuyPlot(ctx, sess.ID, req.Plot)
		return err
	case protocol.OpForfeitPlot:
		_, err := inst.ForfeitPlot(ctx, sess.ID)
		return err

	case protocol.OpSetPlannerMode:
		return inst.SetPlannerMode(ctx, sess.ID, req.Enabled)
	case protocol.OpLoadFurnishing:
		return inst.LoadFurnishingItem(ctx, sess.ID, req.ItemID, req.ItemUID)
	case protocol.OpStoreFurnishing:
		return inst.StoreFurnishing(ctx, sess.ID, req.ItemID, req.Amount)
	}
	return fmt.Errorf("%w: op %q", errBadRequest, req.Op)
}

func placeRequest(req protocol.RequestMsg) (home.PlaceRequest, error) {
	if req.Pos == nil {
		return home.PlaceRequest{}, errBadRequest
	}
	pr := home.PlaceRequest{
		ItemID:   req.ItemID,
		ItemUID:  req.ItemUID,
		Pos:      vec(*req.Pos),
		Rotation: req.Rotation,
	}
	if req.UGC != nil {
		pr.UGC = &modelpkg.UGC{UID: req.UGC.UID, Name: req.UGC.Name, URL: req.UGC.URL}
	}
	return pr, nil
}

func settings(in protocol.SettingsReq) home.Settings {
	out := home.Settings{Name: in.Name, Description: in.Description, Password: in.Password}
	out.Background = toByte(in.Background)
	out.Lighting = toByte(in.Lighting)
	out.Camera = toByte(in.Camera)
	return out
}

func toByte(v *int) *byte {
	if v == nil {
		return nil
	}
	b := byte(*v)
	return &b
}

func vec(a [3]int) modelpkg.Vec3i { return modelpkg.Vec3i{X: a[0], Y: a[1], Z: a[2]} }
