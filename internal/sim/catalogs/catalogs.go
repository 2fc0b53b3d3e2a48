package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	economypkg "homecraft.ai/internal/sim/home/feature/economy"
	spatialpkg "homecraft.ai/internal/sim/home/feature/spatial"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

// Catalogs is the static game data. It implements home.MapMetadata and home.ItemCatalog
// and is read-only after Load.
type Catalogs struct {
	Items ItemCatalog
	Maps  MapCatalog
}

type ItemCatalog struct {
	Defs   map[int]ItemDef
	Digest string
}

type ItemDef struct {
	ID       int               `json:"id"`
	Name     string            `json:"name"`
	Price    int64             `json:"price"`
	Currency modelpkg.Currency `json:"currency"`
	Buyable  bool              `json:"buyable"`
	Solid    bool              `json:"solid"`
	Category int               `json:"category,omitempty"`
}

type MapCatalog struct {
	Defs        map[int]*MapDef
	ResidenceID int
	Digest      string
}

type MapDef struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Residence bool   `json:"residence,omitempty"`
	// ReturnMapID is where sessions kicked from this map go.
	ReturnMapID     int                      `json:"return_map_id,omitempty"`
	Plots           []modelpkg.PlotInfo      `json:"plots,omitempty"`
	Blocks          [][3]int                 `json:"blocks,omitempty"`
	LiftableTargets [][3]int                 `json:"liftable_targets,omitempty"`
	Liftables       []modelpkg.LiftableSpawn `json:"liftables,omitempty"`

	blocks  map[modelpkg.Vec3i]bool
	targets map[modelpkg.Vec3i]bool
	plots   map[int]modelpkg.PlotInfo
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadMaps(filepath.Join(configDir, "maps.json"), &c.Maps); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = make(map[int]ItemDef, len(defs))
	for _, d := range defs {
		if d.ID <= 0 {
			return fmt.Errorf("items.json: bad id %d", d.ID)
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %d", d.ID)
		}
		if d.Buyable && (!d.Currency.Valid() || d.Price < 0) {
			return fmt.Errorf("items.json: item %d: bad price %d %s", d.ID, d.Price, d.Currency)
		}
		out.Defs[d.ID] = d
	}
	return nil
}

func loadMaps(path string, out *MapCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []*MapDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("maps.json: %w", err)
	}
	out.Defs = make(map[int]*MapDef, len(defs))
	for _, d := range defs {
		if d.ID <= 0 {
			return fmt.Errorf("maps.json: bad id %d", d.ID)
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("maps.json: duplicate id %d", d.ID)
		}
		if d.Residence {
			if out.ResidenceID != 0 {
				return fmt.Errorf("maps.json: residence maps %d and %d", out.ResidenceID, d.ID)
			}
			out.ResidenceID = d.ID
		}
		if err := d.index(); err != nil {
			return fmt.Errorf("maps.json: map %d: %w", d.ID, err)
		}
		out.Defs[d.ID] = d
	}
	if out.ResidenceID == 0 {
		return fmt.Errorf("maps.json: missing residence map")
	}
	return nil
}

func (d *MapDef) index() error {
	d.blocks = make(map[modelpkg.Vec3i]bool, len(d.Blocks))
	for _, b := range d.Blocks {
		d.blocks[vec(b)] = true
	}
	d.targets = make(map[modelpkg.Vec3i]bool, len(d.LiftableTargets))
	for _, b := range d.LiftableTargets {
		d.targets[vec(b)] = true
	}
	d.plots = make(map[int]modelpkg.PlotInfo, len(d.Plots))
	for i := range d.Plots {
		p := &d.Plots[i]
		p.MapID = d.ID
		if p.Number <= 0 {
			return fmt.Errorf("plot number %d", p.Number)
		}
		if _, dup := d.plots[p.Number]; dup {
			return fmt.Errorf("duplicate plot %d", p.Number)
		}
		if !d.Residence {
			if _, ok := economypkg.CurrencyForItemCode(p.PriceItem); !ok {
				return fmt.Errorf("plot %d: unknown price item %d", p.Number, p.PriceItem)
			}
		}
		d.plots[p.Number] = *p
	}
	return nil
}

func vec(a [3]int) modelpkg.Vec3i { return modelpkg.Vec3i{X: a[0], Y: a[1], Z: a[2]} }

func (c *Catalogs) Shop(itemID int) (economypkg.ShopEntry, bool) {
	d, ok := c.Items.Defs[itemID]
	if !ok {
		return economypkg.ShopEntry{}, false
	}
	return economypkg.ShopEntry{ItemID: d.ID, Price: d.Price, Currency: d.Currency, Buyable: d.Buyable}, true
}

func (c *Catalogs) Install(itemID int) (modelpkg.InstallInfo, bool) {
	d, ok := c.Items.Defs[itemID]
	if !ok {
		return modelpkg.InstallInfo{}, false
	}
	return modelpkg.InstallInfo{ItemID: d.ID, Solid: d.Solid, Category: d.Category}, true
}

// PlotNumber is the plot holding pos, or 0. A residence without a plot grid is one
// plot as large as the biggest home.
func (c *Catalogs) PlotNumber(mapID int, pos modelpkg.Vec3i) int {
	d := c.Maps.Defs[mapID]
	if d == nil {
		return 0
	}
	if d.Residence && len(d.Plots) == 0 {
		if spatialpkg.OutsideSizeLimit(pos, modelpkg.MaxSize) {
			return 0
		}
		return 1
	}
	for _, p := range d.Plots {
		if p.Contains(pos) {
			return p.Number
		}
	}
	return 0
}

func (c *Catalogs) Plot(mapID, number int) (modelpkg.PlotInfo, bool) {
	d := c.Maps.Defs[mapID]
	if d == nil {
		return modelpkg.PlotInfo{}, false
	}
	p, ok := d.plots[number]
	return p, ok
}

func (c *Catalogs) HasBlock(mapID int, pos modelpkg.Vec3i) bool {
	d := c.Maps.Defs[mapID]
	return d != nil && d.blocks[pos]
}

func (c *Catalogs) LiftableTarget(mapID int, pos modelpkg.Vec3i) bool {
	d := c.Maps.Defs[mapID]
	return d != nil && d.targets[pos]
}

func (c *Catalogs) Liftables(mapID int) []modelpkg.LiftableSpawn {
	d := c.Maps.Defs[mapID]
	if d == nil {
		return nil
	}
	return append([]modelpkg.LiftableSpawn(nil), d.Liftables...)
}

func (c *Catalogs) ResidenceMapID() int { return c.Maps.ResidenceID }

// PlotMapIDs lists the shared maps that carry plots, ascending.
func (c *Catalogs) PlotMapIDs() []int {
	var out []int
	for id, d := range c.Maps.Defs {
		if !d.Residence && len(d.Plots) > 0 {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// ReturnMapID is the map kicked sessions are sent to: the residence's configured
// return map, else the first plot map.
func (c *Catalogs) ReturnMapID() int {
	if d := c.Maps.Defs[c.Maps.ResidenceID]; d != nil && d.ReturnMapID != 0 {
		return d.ReturnMapID
	}
	if ids := c.PlotMapIDs(); len(ids) > 0 {
		return ids[0]
	}
	return 0
}
