package economy

import (
	"testing"

	"homecraft.ai/internal/sim/home/kernel/model"
)

func shopOf(entries ...ShopEntry) ShopLookup {
	m := map[int]ShopEntry{}
	for _, e := range entries {
		m[e.ItemID] = e
	}
	return func(id int) (ShopEntry, bool) {
		e, ok := m[id]
		return e, ok
	}
}

func cubesOf(ids ...int) []model.Cube {
	out := make([]model.Cube, 0, len(ids))
	for i, id := range ids {
		out = append(out, model.Cube{UID: model.NewUID(), Item: model.Item{ItemID: id}, Pos: model.Vec3i{X: -i}})
	}
	return out
}

func TestEstimateCostSubtractsWarehouse(t *testing.T) {
	shop := shopOf(ShopEntry{ItemID: 1, Price: 100, Currency: model.CurrencyMeso, Buyable: true})
	cost := EstimateCost(cubesOf(1, 1, 1), map[int]int{1: 1}, shop)
	if cost.Totals[model.CurrencyMeso] != 200 {
		t.Fatalf("mesos=%d want 200", cost.Totals[model.CurrencyMeso])
	}
	if cost.Count != 2 || cost.Shortfall[1] != 2 {
		t.Fatalf("unexpected shortfall %+v", cost)
	}
}

func TestEstimateCostGroupsByCurrency(t *testing.T) {
	shop := shopOf(
		ShopEntry{ItemID: 1, Price: 100, Currency: model.CurrencyMeso, Buyable: true},
		ShopEntry{ItemID: 2, Price: 30, Currency: model.CurrencyMeso, Buyable: true},
		ShopEntry{ItemID: 3, Price: 7, Currency: model.CurrencyMeret, Buyable: true},
		ShopEntry{ItemID: 4, Price: 999, Currency: model.CurrencyMeret, Buyable: false},
	)
	cost := EstimateCost(cubesOf(1, 2, 2, 3, 3, 3, 4, 5), map[int]int{3: 5}, shop)
	if cost.Totals[model.CurrencyMeso] != 160 {
		t.Fatalf("mesos=%d want 160", cost.Totals[model.CurrencyMeso])
	}
	if _, ok := cost.Totals[model.CurrencyMeret]; ok {
		t.Fatalf("merets fully covered by warehouse, got %+v", cost.Totals)
	}
	if cost.Count != 3 {
		t.Fatalf("count=%d want 3", cost.Count)
	}
	if got := cost.Currencies(); len(got) != 1 || got[0] != model.CurrencyMeso {
		t.Fatalf("currencies=%v", got)
	}
}

func TestContractPriceTruncatesTwice(t *testing.T) {
	cases := []struct{ price, discount, want int }{
		{1000, 0, 1000},
		{1000, 5000, 1000}, // 50.00% truncates to zero markdown
		{1000, 9999, 1000},
		{1000, 10000, 0},
		{1000, 20000, -1000},
	}
	for _, tc := range cases {
		if got := ContractPrice(tc.price, tc.discount); got != tc.want {
			t.Fatalf("ContractPrice(%d,%d)=%d want %d", tc.price, tc.discount, got, tc.want)
		}
	}
}

func TestCurrencyForItemCode(t *testing.T) {
	if c, ok := CurrencyForItemCode(90000002); !ok || c != model.CurrencyMeso {
		t.Fatalf("unexpected %v %v", c, ok)
	}
	if c, ok := CurrencyForItemCode(90000004); !ok || c != model.CurrencyMeret {
		t.Fatalf("unexpected %v %v", c, ok)
	}
	if _, ok := CurrencyForItemCode(90000017); ok {
		t.Fatalf("unsupported currency should not map")
	}
}
