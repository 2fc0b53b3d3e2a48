package home

import (
	economypkg "homecraft.ai/internal/sim/home/feature/economy"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

// Store persists home state. Calls are fire-and-forget; implementations log their own failures.
type Store interface {
	UpsertHome(rec modelpkg.HomeRecord)
	UpsertCube(c modelpkg.Cube)
	DeleteCube(homeID int64, uid string)
	UpsertWarehouseItem(homeID int64, item modelpkg.Item)
	DeleteWarehouseItem(homeID int64, uid string)
	UpsertLayout(l modelpkg.Layout)
	DeleteLayout(homeID int64, uid string)
}

// Notifier delivers one outbound message to a session. It must not block.
type Notifier interface {
	Send(sessionID string, msg any)
}

// Economy debits wallets and home budgets and keeps personal inventories. Debits are
// all-or-nothing.
type Economy interface {
	DebitWallet(account int64, c modelpkg.Currency, amount int64) bool
	CreditWallet(account int64, c modelpkg.Currency, amount int64)
	// DebitHomeBudget is called with the home lock held.
	DebitHomeBudget(budget *modelpkg.Budget, c modelpkg.Currency, amount int64) bool
	AddItem(account int64, item modelpkg.Item)
	// TakeItem removes amount units of itemID from the account's personal inventory.
	TakeItem(account int64, itemID, amount int) (modelpkg.Item, bool)
}

type MapMetadata interface {
	PlotNumber(mapID int, pos modelpkg.Vec3i) int
	Plot(mapID, number int) (modelpkg.PlotInfo, bool)
	HasBlock(mapID int, pos modelpkg.Vec3i) bool
	LiftableTarget(mapID int, pos modelpkg.Vec3i) bool
	Liftables(mapID int) []modelpkg.LiftableSpawn
}

type ItemCatalog interface {
	Shop(itemID int) (economypkg.ShopEntry, bool)
	Install(itemID int) (modelpkg.InstallInfo, bool)
}

// PlayerRef identifies a connected session.
type PlayerRef struct {
	SessionID string
	AccountID int64
	Name      string
}

// Directory is a read-only view of the connected sessions.
type Directory interface {
	SessionByAccount(account int64) (PlayerRef, bool)
	AccountByName(name string) (int64, bool)
}

// HomeLookup resolves homes outside the instance. ClaimPlot and ReleasePlot keep the
// plot index; ClaimPlot fails when the plot already belongs to another home.
type HomeLookup interface {
	HomeByAccount(account int64) (*Home, bool)
	EnsureHome(account int64, ownerName string) *Home
	HomesOnMap(mapID int) []*Home
	PlotOwner(mapID, plot int) (int64, bool)
	ClaimPlot(mapID, plot int, homeID int64) bool
	ReleasePlot(mapID, plot int, homeID int64)
}

// Warper moves a session that was removed from an instance back to its return map.
// It must not block on the calling instance.
type Warper interface {
	Warp(p PlayerRef, mapID int)
}

// AuditEntry records one structure mutation.
type AuditEntry struct {
	Time    int64  `json:"time"`
	MapID   int    `json:"map_id"`
	HomeID  int64  `json:"home_id"`
	Actor   string `json:"actor"`
	Action  string `json:"action"`
	Pos     [3]int `json:"pos"`
	ItemID  int    `json:"item_id,omitempty"`
	CubeUID string `json:"cube_uid,omitempty"`
	Planner bool   `json:"planner,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type AuditLogger interface {
	WriteAudit(e AuditEntry) error
}
