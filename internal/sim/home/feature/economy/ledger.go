// Package economy holds currency debits, personal inventories and layout pricing.
package economy

import (
	"sort"
	"sync"

	"homecraft.ai/internal/sim/home/kernel/model"
)

// Journal receives every wallet and personal inventory change of a Ledger, in order.
// Calls are made with the ledger lock held.
type Journal interface {
	UpsertWallet(account int64, c model.Currency, amount int64)
	UpsertPersonalItem(account int64, item model.Item)
	DeletePersonalItem(account int64, uid string)
}

// Ledger is an in-memory wallet and personal-inventory book keyed by account id.
// It is safe for concurrent use; every debit is all-or-nothing.
type Ledger struct {
	mu      sync.Mutex
	wallets map[int64]map[model.Currency]int64
	items   map[int64][]model.Item
	journal Journal
	start   model.Budget
}

type LedgerOption func(*Ledger)

// WithJournal makes the ledger durable through j.
func WithJournal(j Journal) LedgerOption {
	return func(l *Ledger) { l.journal = j }
}

// WithStartingBalance is what OpenAccount credits to an account seen for the first time.
func WithStartingBalance(b model.Budget) LedgerOption {
	return func(l *Ledger) { l.start = b }
}

func NewLedger(opts ...LedgerOption) *Ledger {
	l := &Ledger{
		wallets: map[int64]map[model.Currency]int64{},
		items:   map[int64][]model.Item{},
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Restore loads a persisted account without journaling it.
func (l *Ledger) Restore(account int64, balances map[model.Currency]int64, items []model.Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := map[model.Currency]int64{}
	for c, v := range balances {
		w[c] = v
	}
	l.wallets[account] = w
	l.items[account] = append([]model.Item(nil), items...)
}

// OpenAccount gives an unknown account its starting balance. It reports whether the
// account was new.
func (l *Ledger) OpenAccount(account int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.wallets[account]; ok {
		return false
	}
	l.wallets[account] = map[model.Currency]int64{
		model.CurrencyMeso:  l.start.Mesos,
		model.CurrencyMeret: l.start.Merets,
	}
	l.logWallet(account, model.CurrencyMeso)
	l.logWallet(account, model.CurrencyMeret)
	return true
}

func (l *Ledger) logWallet(account int64, c model.Currency) {
	if l.journal != nil {
		l.journal.UpsertWallet(account, c, l.wallets[account][c])
	}
}

func (l *Ledger) SetBalance(account int64, c model.Currency, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.wallets[account]
	if w == nil {
		w = map[model.Currency]int64{}
		l.wallets[account] = w
	}
	w[c] = amount
	l.logWallet(account, c)
}

func (l *Ledger) Balance(account int64, c model.Currency) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wallets[account][c]
}

// DebitWallet removes amount from the account's wallet. It fails rather than go negative.
func (l *Ledger) DebitWallet(account int64, c model.Currency, amount int64) bool {
	if amount < 0 || !c.Valid() {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.wallets[account]
	if w[c] < amount {
		return false
	}
	if amount == 0 {
		return true
	}
	w[c] -= amount
	l.logWallet(account, c)
	return true
}

func (l *Ledger) CreditWallet(account int64, c model.Currency, amount int64) {
	if amount <= 0 || !c.Valid() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.wallets[account]
	if w == nil {
		w = map[model.Currency]int64{}
		l.wallets[account] = w
	}
	w[c] += amount
	l.logWallet(account, c)
}

// DebitHomeBudget removes amount from a home budget. The caller must hold the home's lock.
func (l *Ledger) DebitHomeBudget(budget *model.Budget, c model.Currency, amount int64) bool {
	if budget == nil || amount < 0 {
		return false
	}
	bal := budget.Balance(c)
	if bal == nil || *bal-amount < 0 {
		return false
	}
	*bal -= amount
	return true
}

// AddItem returns an item to the account's personal inventory, stacking on the same item id.
func (l *Ledger) AddItem(account int64, item model.Item) {
	if item.Amount <= 0 {
		item.Amount = 1
	}
	if item.UID == "" {
		item.UID = model.NewUID()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	inv := l.items[account]
	for i := range inv {
		if inv[i].ItemID == item.ItemID && inv[i].UGC == nil && item.UGC == nil {
			inv[i].Amount += item.Amount
			l.logItem(account, inv[i])
			return
		}
	}
	l.items[account] = append(inv, item)
	l.logItem(account, item)
}

// TakeItem removes amount units of itemID from one personal stack. Taking a whole stack
// keeps its uid; a partial take gets a new one.
func (l *Ledger) TakeItem(account int64, itemID, amount int) (model.Item, bool) {
	if amount <= 0 {
		return model.Item{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	inv := l.items[account]
	for i := range inv {
		if inv[i].ItemID != itemID || inv[i].Amount < amount {
			continue
		}
		if inv[i].Amount == amount {
			out := inv[i]
			l.items[account] = append(inv[:i:i], inv[i+1:]...)
			if l.journal != nil {
				l.journal.DeletePersonalItem(account, out.UID)
			}
			return out, true
		}
		inv[i].Amount -= amount
		l.logItem(account, inv[i])
		out := inv[i]
		out.UID = model.NewUID()
		out.Amount = amount
		if out.UGC != nil {
			u := *out.UGC
			out.UGC = &u
		}
		return out, true
	}
	return model.Item{}, false
}

func (l *Ledger) logItem(account int64, item model.Item) {
	if l.journal != nil {
		l.journal.UpsertPersonalItem(account, item)
	}
}

// Items returns a copy of the account's personal inventory sorted by item id.
func (l *Ledger) Items(account int64) []model.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := append([]model.Item(nil), l.items[account]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// Count returns how many units of itemID the account holds.
func (l *Ledger) Count(account int64, itemID int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, it := range l.items[account] {
		if it.ItemID == itemID {
			n += it.Amount
		}
	}
	return n
}
