package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeRequest = "REQ"
	TypeError   = "ERROR"
	TypeNotice  = "NOTICE"

	TypeSnapshot   = "HOME_SNAPSHOT"
	TypeCube       = "CUBE"
	TypeWarehouse  = "WAREHOUSE"
	TypeItemReturn = "ITEM_RETURNED"
	TypeBounds     = "HOME_BOUNDS"
	TypePosition   = "POSITION"
	TypeWarp       = "WARP"
	TypeLayout     = "LAYOUT_SAVED"
	TypeLayoutCost = "LAYOUT_COST"
	TypePermission = "PERMISSION"
	TypeBudget     = "BUDGET"
	TypeSettings   = "HOME_SETTINGS"
	TypeBuilding   = "BUILDING_PERMISSION"
	TypeKick       = "KICK_NOTICE"
	TypeLiftable   = "LIFTABLE"
	TypePlot       = "PLOT"
	TypeFurnishing = "FURNISHING_PREVIEW"
	TypePlanner    = "PLANNER_MODE"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
