package model

import "github.com/google/uuid"

// UGC is a user-generated content payload attached to an item (custom textures etc).
type UGC struct {
	UID       string `json:"uid"`
	Name      string `json:"name,omitempty"`
	URL       string `json:"url,omitempty"`
	AccountID int64  `json:"account_id,omitempty"`
}

// Item is a stackable object. Warehouse entries use Amount as the stack size.
type Item struct {
	UID    string `json:"uid"`
	ItemID int    `json:"item_id"`
	Amount int    `json:"amount"`
	UGC    *UGC   `json:"ugc,omitempty"`
}

func NewItem(itemID int) Item {
	return Item{UID: NewUID(), ItemID: itemID, Amount: 1}
}

// Cube is one placed decorative object.
type Cube struct {
	UID        string `json:"uid"`
	Item       Item   `json:"item"`
	Pos        Vec3i  `json:"pos"`
	Rotation   int    `json:"rotation"` // degrees, multiple of 90 in [0,360)
	MapID      int    `json:"map_id"`
	PlotNumber int    `json:"plot_number"`
	HomeID     int64  `json:"home_id"`
}

func NewCube(item Item, mapID, plotNumber int, pos Vec3i, rotation int, homeID int64) Cube {
	return Cube{
		UID:        NewUID(),
		Item:       item,
		Pos:        pos,
		Rotation:   NormalizeRotation(rotation),
		MapID:      mapID,
		PlotNumber: plotNumber,
		HomeID:     homeID,
	}
}

// NormalizeRotation snaps an angle in degrees to the nearest quarter turn in [0,360).
func NormalizeRotation(deg int) int {
	q := deg / 90
	if rem := deg % 90; rem >= 45 {
		q++
	} else if rem <= -45 {
		q--
	}
	q %= 4
	if q < 0 {
		q += 4
	}
	return q * 90
}

func NewUID() string { return uuid.NewString() }
