package home

import (
	"context"
	"time"

	"homecraft.ai/internal/protocol"
	economypkg "homecraft.ai/internal/sim/home/feature/economy"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

const defaultLeaseDays = 30

// BuyPlot claims a plot of this map for the requester. The requester's home is created
// on the first purchase and re-anchored on later ones.
func (i *Instance) BuyPlot(ctx context.Context, sessionID string, plot int) (modelpkg.HomeRecord, error) {
	var out modelpkg.HomeRecord
	err := i.exec(ctx, sessionID, func(p *Player) error {
		if i.residence() {
			return ErrBadRequest
		}
		info, ok := i.deps.Maps.Plot(i.cfg.MapID, plot)
		if !ok {
			return ErrBadRequest
		}
		cur, ok := economypkg.CurrencyForItemCode(info.PriceItem)
		if !ok {
			return ErrBadRequest
		}
		if _, taken := i.deps.Homes.PlotOwner(i.cfg.MapID, plot); taken {
			return ErrPlotTaken
		}
		if h, ok := i.deps.Homes.HomeByAccount(p.AccountID); ok && h.Record().HasPlot() {
			return ErrPlotTaken
		}
		price := int64(economypkg.ContractPrice(info.Price, info.Discount))
		if price > 0 && !i.deps.Economy.DebitWallet(p.AccountID, cur, price) {
			return &InsufficientFundsError{Currency: cur}
		}

		h := i.deps.Homes.EnsureHome(p.AccountID, p.Name)
		if !i.deps.Homes.ClaimPlot(i.cfg.MapID, plot, h.id) {
			i.deps.Economy.CreditWallet(p.AccountID, cur, price)
			return ErrPlotTaken
		}
		lease := info.LeaseDays
		if lease <= 0 {
			lease = defaultLeaseDays
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		h.rec.PlotMapID = i.cfg.MapID
		h.rec.PlotNumber = plot
		h.rec.Expiration = i.cfg.Now().Add(time.Duration(lease) * 24 * time.Hour).Unix()
		out = h.record()
		i.deps.Store.UpsertHome(out)
		i.broadcast(plotMsg(protocol.PlotBought, out, plot))
		return nil
	})
	return out, err
}

// ForfeitPlot gives the requester's plot on this map back. Its cubes return to the
// owner's inventory and the expiration is parked at the far-future sentinel.
func (i *Instance) ForfeitPlot(ctx context.Context, sessionID string) (modelpkg.HomeRecord, error) {
	var out modelpkg.HomeRecord
	err := i.exec(ctx, sessionID, func(p *Player) error {
		if i.residence() {
			return ErrBadRequest
		}
		h, ok := i.deps.Homes.HomeByAccount(p.AccountID)
		if !ok {
			return ErrNotFound
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		if !h.rec.HasPlot() || h.rec.PlotMapID != i.cfg.MapID {
			return ErrBadRequest
		}
		plot := h.rec.PlotNumber
		for _, c := range h.structure.Plot.Cubes() {
			i.removeCube(h, p.Name, c.Pos, false, "FORFEIT")
		}
		i.deps.Homes.ReleasePlot(i.cfg.MapID, plot, h.id)
		h.rec.PlotMapID = 0
		h.rec.PlotNumber = 0
		h.rec.Expiration = modelpkg.ForfeitExpiration
		out = h.record()
		i.deps.Store.UpsertHome(out)
		msg := plotMsg(protocol.PlotForfeited, out, plot)
		msg.MapID = i.cfg.MapID
		i.broadcast(msg)
		return nil
	})
	return out, err
}

func plotMsg(action string, rec modelpkg.HomeRecord, plot int) protocol.PlotMsg {
	return protocol.PlotMsg{
		Type:            protocol.TypePlot,
		ProtocolVersion: protocol.Version,
		Action:          action,
		MapID:           rec.PlotMapID,
		Plot:            plot,
		HomeID:          rec.ID,
		OwnerName:       rec.OwnerName,
		Expiration:      rec.Expiration,
	}
}
