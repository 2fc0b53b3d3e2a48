package protocol

import (
	"encoding/json"
	"fmt"
)

// Request ops.
const (
	OpEnterMap          = "ENTER_MAP"
	OpEnterHome         = "ENTER_HOME"
	OpAddCube           = "ADD_CUBE"
	OpRemoveCube        = "REMOVE_CUBE"
	OpRotateCube        = "ROTATE_CUBE"
	OpReplaceCube       = "REPLACE_CUBE"
	OpLiftObject        = "LIFT_OBJECT"
	OpResize            = "RESIZE"
	OpSaveLayout        = "SAVE_LAYOUT"
	OpLoadLayout        = "LOAD_LAYOUT"
	OpLoadPlannerLayout = "LOAD_PLANNER_LAYOUT"
	OpEstimateLayout    = "ESTIMATE_LAYOUT"
	OpClearInterior     = "CLEAR_INTERIOR"
	OpGrantBuilding     = "GRANT_BUILDING"
	OpRevokeBuilding    = "REVOKE_BUILDING"
	OpEnablePermission  = "ENABLE_PERMISSION"
	OpSetPermission     = "SET_PERMISSION"
	OpUpdateBudget      = "UPDATE_BUDGET"
	OpUpdateSettings    = "UPDATE_SETTINGS"
	OpKickEveryone      = "KICK_EVERYONE"
	OpBuyPlot           = "BUY_PLOT"
	OpForfeitPlot       = "FORFEIT_PLOT"
	OpSetPlannerMode    = "SET_PLANNER_MODE"
	OpLoadFurnishing    = "LOAD_FURNISHING_ITEM"
	OpStoreFurnishing   = "STORE_FURNISHING"
)

// REQ (client -> server). Only the fields of the named op are read.
type RequestMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Op              string `json:"op"`

	ItemID   int     `json:"item_id,omitempty"`
	ItemUID  string  `json:"item_uid,omitempty"`
	Amount   int     `json:"amount,omitempty"`
	Pos      *[3]int `json:"pos,omitempty"`
	Rotation int     `json:"rotation,omitempty"`
	UGC      *UGCRef `json:"ugc,omitempty"`

	Resize string `json:"resize,omitempty"`
	Slot   int    `json:"slot,omitempty"`
	Name   string `json:"name,omitempty"`

	Character  string `json:"character,omitempty"`
	Permission int    `json:"permission,omitempty"`
	Value      int    `json:"value,omitempty"`
	Enabled    bool   `json:"enabled,omitempty"`

	Mesos  int64 `json:"mesos,omitempty"`
	Merets int64 `json:"merets,omitempty"`

	Settings *SettingsReq `json:"settings,omitempty"`

	MapID        int   `json:"map_id,omitempty"`
	Plot         int   `json:"plot,omitempty"`
	OwnerAccount int64 `json:"owner_account,omitempty"`
}

type UGCRef struct {
	UID  string `json:"uid"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// SettingsReq carries the fields of a home settings update. Nil fields are kept.
type SettingsReq struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Password    *string `json:"password,omitempty"`
	Background  *int    `json:"background,omitempty"`
	Lighting    *int    `json:"lighting,omitempty"`
	Camera      *int    `json:"camera,omitempty"`
}

// DecodeRequest parses a REQ message. Callers validate against the schema first.
func DecodeRequest(b []byte) (RequestMsg, error) {
	var m RequestMsg
	if err := json.Unmarshal(b, &m); err != nil {
		return RequestMsg{}, err
	}
	if m.Type != TypeRequest {
		return RequestMsg{}, fmt.Errorf("unexpected message type %q", m.Type)
	}
	return m, nil
}
