package model

const (
	MinSize   = 4
	MaxSize   = 25
	MinHeight = 3
	MaxHeight = 15

	// ForfeitExpiration is the far-future expiration written when a plot is given up (year 2999).
	ForfeitExpiration int64 = 32503561200
)

// HomeRecord is the persisted scalar state of a home. Cubes, warehouse items and
// layouts are stored separately under the home id.
type HomeRecord struct {
	ID              int64  `json:"id"`
	AccountID       int64  `json:"account_id"`
	OwnerName       string `json:"owner_name"`
	TemplateID      int    `json:"template_id,omitempty"`
	PlotMapID       int    `json:"plot_map_id"`
	PlotNumber      int    `json:"plot_number"`
	ApartmentNumber int    `json:"apartment_number"`
	Expiration      int64  `json:"expiration"`

	Size          int `json:"size"`
	Height        int `json:"height"`
	PlannerSize   int `json:"planner_size"`
	PlannerHeight int `json:"planner_height"`

	Budget Budget `json:"budget"`

	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Password    string `json:"password,omitempty"`
	Background  byte   `json:"background"`
	Lighting    byte   `json:"lighting"`
	Camera      byte   `json:"camera"`

	Permissions       map[byte]byte `json:"permissions,omitempty"`
	BuildingDelegates []int64       `json:"building_delegates,omitempty"`
}

// HasPlot reports whether the home is anchored to a plot.
func (h HomeRecord) HasPlot() bool { return h.PlotMapID != 0 }
