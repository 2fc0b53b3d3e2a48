package model

// PlotInfo is the map metadata of one claimable plot.
type PlotInfo struct {
	MapID       int   `json:"map_id"`
	Number      int   `json:"number"`
	HeightLimit int   `json:"height_limit"`
	Area        int   `json:"area"`
	Price       int   `json:"price"`
	PriceItem   int   `json:"price_item"`
	Discount    int   `json:"contract_discount,omitempty"` // hundredths of a percent
	LeaseDays   int   `json:"lease_days,omitempty"`
	Min         Vec3i `json:"min"`
	Max         Vec3i `json:"max"`
}

// Contains reports whether the horizontal position of pos falls on the plot.
func (p PlotInfo) Contains(pos Vec3i) bool {
	return pos.X >= p.Min.X && pos.X <= p.Max.X && pos.Y >= p.Min.Y && pos.Y <= p.Max.Y
}

// InstallInfo is the placement metadata of a furnishing item.
type InstallInfo struct {
	ItemID   int  `json:"item_id"`
	Solid    bool `json:"solid"`
	Category int  `json:"category,omitempty"`
}

// LiftableSpawn is a liftable object present on a map when an instance starts.
type LiftableSpawn struct {
	ItemID     int   `json:"item_id"`
	Pos        Vec3i `json:"pos"`
	FinishTime int   `json:"finish_ms,omitempty"`
}
