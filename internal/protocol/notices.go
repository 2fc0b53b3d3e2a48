package protocol

type CubeObs struct {
	UID        string  `json:"uid"`
	ItemID     int     `json:"item_id"`
	ItemUID    string  `json:"item_uid"`
	Pos        [3]int  `json:"pos"`
	Rotation   int     `json:"rotation"`
	PlotNumber int     `json:"plot_number"`
	UGC        *UGCRef `json:"ugc,omitempty"`
}

type ItemObs struct {
	UID    string `json:"uid"`
	ItemID int    `json:"item_id"`
	Amount int    `json:"amount"`
}

// Cube actions.
const (
	CubePlaced   = "PLACED"
	CubeRemoved  = "REMOVED"
	CubeRotated  = "ROTATED"
	CubeReplaced = "REPLACED"
)

// CUBE (server -> observers)
type CubeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Action          string   `json:"action"`
	HomeID          int64    `json:"home_id"`
	Planner         bool     `json:"planner,omitempty"`
	Actor           string   `json:"actor,omitempty"`
	Cube            CubeObs  `json:"cube"`
	Replaced        *CubeObs `json:"replaced,omitempty"`
}

// HOME_SNAPSHOT (server -> session) is the full structure of a home in one mode.
type SnapshotMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	HomeID          int64     `json:"home_id"`
	OwnerName       string    `json:"owner_name,omitempty"`
	Planner         bool      `json:"planner,omitempty"`
	Size            int       `json:"size"`
	Height          int       `json:"height"`
	Cubes           []CubeObs `json:"cubes"`
}

type WarehouseMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	HomeID          int64     `json:"home_id"`
	Items           []ItemObs `json:"items"`
}

// ITEM_RETURNED tells an owner a removed cube went back to their inventory.
type ItemReturnMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	HomeID          int64   `json:"home_id"`
	Item            ItemObs `json:"item"`
}

type BoundsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	HomeID          int64  `json:"home_id"`
	Planner         bool   `json:"planner,omitempty"`
	Size            int    `json:"size"`
	Height          int    `json:"height"`
}

// POSITION moves a session inside its current map. Pos is in world units.
type PositionMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Pos             [3]int `json:"pos"`
}

type WarpMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	MapID           int    `json:"map_id"`
	HomeID          int64  `json:"home_id,omitempty"`
}

type LayoutMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Slot            int    `json:"slot"`
	Name            string `json:"name"`
	SavedAt         int64  `json:"saved_at"`
	Cubes           int    `json:"cubes"`
}

type CostObs struct {
	Currency int   `json:"currency"`
	Amount   int64 `json:"amount"`
}

type LayoutCostMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Slot            int       `json:"slot"`
	Count           int       `json:"count"`
	Costs           []CostObs `json:"costs"`
}

type PermissionMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	HomeID          int64  `json:"home_id"`
	Permission      int    `json:"permission"`
	Enabled         bool   `json:"enabled"`
	Value           int    `json:"value"`
}

type BudgetMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	HomeID          int64  `json:"home_id"`
	Mesos           int64  `json:"mesos"`
	Merets          int64  `json:"merets"`
}

type SettingsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	HomeID          int64  `json:"home_id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Locked          bool   `json:"locked,omitempty"`
	Background      int    `json:"background"`
	Lighting        int    `json:"lighting"`
	Camera          int    `json:"camera"`
}

type BuildingMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	HomeID          int64  `json:"home_id"`
	OwnerName       string `json:"owner_name"`
	Character       string `json:"character"`
	Granted         bool   `json:"granted"`
}

type KickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	HomeID          int64  `json:"home_id"`
	DelayMS         int64  `json:"delay_ms"`
}

// Liftable states.
const (
	LiftableActive   = "ACTIVE"
	LiftableDisabled = "DISABLED"
	LiftableLifted   = "LIFTED"
	LiftableRemoved  = "REMOVED"
)

type LiftableMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ItemID          int    `json:"item_id"`
	Pos             [3]int `json:"pos"`
	State           string `json:"state"`
	Actor           string `json:"actor,omitempty"`
}

// Plot actions.
const (
	PlotBought    = "BOUGHT"
	PlotForfeited = "FORFEITED"
)

type PlotMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Action          string `json:"action"`
	MapID           int    `json:"map_id"`
	Plot            int    `json:"plot"`
	HomeID          int64  `json:"home_id"`
	OwnerName       string `json:"owner_name,omitempty"`
	Expiration      int64  `json:"expiration"`
}

type FurnishingMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Actor           string `json:"actor"`
	ItemID          int    `json:"item_id,omitempty"`
	ItemUID         string `json:"item_uid,omitempty"`
}

type PlannerMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Enabled         bool   `json:"enabled"`
}
