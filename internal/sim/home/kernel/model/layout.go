package model

// Layout is a saved snapshot of a structure. It is never edited in place.
type Layout struct {
	UID     string `json:"uid"`
	HomeID  int64  `json:"home_id"`
	SlotID  int    `json:"slot_id"`
	Name    string `json:"name"`
	Size    int    `json:"size"`
	Height  int    `json:"height"`
	SavedAt int64  `json:"saved_at"`
	Cubes   []Cube `json:"cubes"`
}
