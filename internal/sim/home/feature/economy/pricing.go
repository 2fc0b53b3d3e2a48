package economy

import (
	"sort"

	"homecraft.ai/internal/sim/home/kernel/model"
)

// ShopEntry is the furnishing-shop price of an item.
type ShopEntry struct {
	ItemID   int            `json:"item_id"`
	Price    int64          `json:"price"`
	Currency model.Currency `json:"currency"`
	Buyable  bool           `json:"buyable"`
}

// ShopLookup resolves an item id to its shop entry.
type ShopLookup func(itemID int) (ShopEntry, bool)

// Cost is a bill for the part of a layout the warehouse cannot cover.
type Cost struct {
	Totals    map[model.Currency]int64
	Count     int
	Shortfall map[int]int // item id -> units to buy
}

// Currencies returns the currencies of c in ascending order.
func (c Cost) Currencies() []model.Currency {
	out := make([]model.Currency, 0, len(c.Totals))
	for k := range c.Totals {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GroupByItem counts cubes per item id.
func GroupByItem(cubes []model.Cube) map[int]int {
	out := map[int]int{}
	for _, c := range cubes {
		out[c.Item.ItemID]++
	}
	return out
}

// EstimateCost prices the cubes of a layout against the stock already warehoused.
// stock maps item id to the units available. Items missing from the shop or not buyable
// are skipped because they can never be placed.
func EstimateCost(cubes []model.Cube, stock map[int]int, shop ShopLookup) Cost {
	cost := Cost{Totals: map[model.Currency]int64{}, Shortfall: map[int]int{}}
	for id, want := range GroupByItem(cubes) {
		entry, ok := shop(id)
		if !ok || !entry.Buyable {
			continue
		}
		missing := want - stock[id]
		if missing <= 0 {
			continue
		}
		cost.Totals[entry.Currency] += entry.Price * int64(missing)
		cost.Shortfall[id] = missing
		cost.Count += missing
	}
	return cost
}

// ContractPrice applies a contract-sale discount. discount is in hundredths of a
// percent and the formula truncates twice, so anything under 10000 yields no markdown.
func ContractPrice(price, discount int) int {
	markdown := price * (discount / 100 / 100)
	return price - markdown
}

// CurrencyForItemCode maps a plot price item code to the currency it is paid in.
func CurrencyForItemCode(code int) (model.Currency, bool) {
	switch code {
	case 90000001, 90000002, 90000003:
		return model.CurrencyMeso, true
	case 90000004:
		return model.CurrencyMeret, true
	default:
		return 0, false
	}
}
