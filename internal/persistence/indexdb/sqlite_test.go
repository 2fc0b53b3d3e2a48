package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"homecraft.ai/internal/sim/catalogs"
	"homecraft.ai/internal/sim/home"
	economypkg "homecraft.ai/internal/sim/home/feature/economy"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
	"homecraft.ai/internal/sim/tuning"
)

func openTemp(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db", "homes.sqlite")
	s, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s, path
}

func flush(t *testing.T, s *SQLiteStore) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s, path := openTemp(t)

	rec := modelpkg.HomeRecord{ID: 7, AccountID: 100, OwnerName: "Ada", Size: 10, Height: 5, PlannerSize: 10, PlannerHeight: 5, Name: "Ada's Home"}
	rec.Budget.Mesos = 300
	s.UpsertHome(rec)

	kept := modelpkg.NewCube(modelpkg.NewItem(50100001), 62000000, 1, modelpkg.Vec3i{X: -1, Y: -1, Z: 1}, 90, 7)
	gone := modelpkg.NewCube(modelpkg.NewItem(50100002), 62000000, 1, modelpkg.Vec3i{X: -2, Y: -1, Z: 1}, 0, 7)
	s.UpsertCube(kept)
	s.UpsertCube(gone)
	s.DeleteCube(7, gone.UID)

	stack := modelpkg.NewItem(50100003)
	stack.Amount = 4
	s.UpsertWarehouseItem(7, stack)
	s.UpsertWarehouseItem(7, modelpkg.NewItem(50100004))
	s.DeleteWarehouseItem(7, "missing-uid")

	lay := modelpkg.Layout{UID: "lay-1", HomeID: 7, SlotID: 2, Name: "cozy", Size: 10, Height: 5, Cubes: []modelpkg.Cube{kept}}
	s.UpsertLayout(lay)
	s.UpsertLayout(modelpkg.Layout{UID: "lay-2", HomeID: 7, SlotID: 1, Name: "old"})
	s.DeleteLayout(7, "lay-2")

	// rows for an unknown home are ignored by Load
	s.UpsertCube(modelpkg.NewCube(modelpkg.NewItem(50100001), 62000000, 1, modelpkg.Vec3i{}, 0, 99))

	flush(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, err := s2.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("homes=%d want 1", len(got))
	}
	p := got[0]
	if p.Record.OwnerName != "Ada" || p.Record.Budget.Mesos != 300 || p.Record.Size != 10 {
		t.Fatalf("record=%+v", p.Record)
	}
	if len(p.Cubes) != 1 || p.Cubes[0].UID != kept.UID || p.Cubes[0].Rotation != 90 {
		t.Fatalf("cubes=%+v", p.Cubes)
	}
	if len(p.Items) != 2 {
		t.Fatalf("items=%+v", p.Items)
	}
	if len(p.Layouts) != 1 || p.Layouts[0].Name != "cozy" || len(p.Layouts[0].Cubes) != 1 {
		t.Fatalf("layouts=%+v", p.Layouts)
	}
}

func TestSQLiteStore_AuditsAndCatalogs(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	for i := 0; i < 3; i++ {
		_ = s.WriteAudit(home.AuditEntry{Time: int64(i), MapID: 62000000, HomeID: 7, Actor: "Ada", Action: "PLACE", Pos: [3]int{i, 0, 1}, ItemID: 50100001})
	}
	flush(t, s)

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM audits WHERE home_id=7 AND action='PLACE'`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("audits=%d want 3", n)
	}

	cats := &catalogs.Catalogs{}
	cats.Items.Digest = "abc"
	if err := s.UpsertCatalogs(t.TempDir(), cats, tuning.Defaults()); err != nil {
		t.Fatalf("upsert catalogs: %v", err)
	}
	var digest string
	if err := s.db.QueryRow(`SELECT digest FROM catalogs WHERE name='tuning'`).Scan(&digest); err != nil {
		t.Fatalf("tuning row: %v", err)
	}
	if len(digest) != 64 {
		t.Fatalf("digest=%q", digest)
	}
	if st := s.Stats(); st.AppliedTotal < 3 || st.WriteErrTotal != 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestSQLiteStore_ClosedIgnoresWrites(t *testing.T) {
	s, _ := openTemp(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	s.UpsertHome(modelpkg.HomeRecord{ID: 1})
	if err := s.Flush(context.Background()); err == nil {
		t.Fatalf("flush on closed store should fail")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSQLiteStore_Accounts(t *testing.T) {
	s, path := openTemp(t)

	s.UpsertWallet(100, modelpkg.CurrencyMeso, 5000)
	s.UpsertWallet(100, modelpkg.CurrencyMeret, 20)
	s.UpsertWallet(100, modelpkg.CurrencyMeso, 4900)
	s.UpsertWallet(200, modelpkg.CurrencyMeso, 7)

	chairs := modelpkg.NewItem(50100001)
	chairs.Amount = 3
	s.UpsertPersonalItem(100, chairs)
	chairs.Amount = 2
	s.UpsertPersonalItem(100, chairs)
	sold := modelpkg.NewItem(50100002)
	s.UpsertPersonalItem(100, sold)
	s.DeletePersonalItem(100, sold.UID)

	flush(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, err := s2.LoadAccounts(context.Background())
	if err != nil {
		t.Fatalf("load accounts: %v", err)
	}
	if len(got) != 2 || got[0].ID != 100 || got[1].ID != 200 {
		t.Fatalf("accounts=%+v", got)
	}
	a := got[0]
	if a.Balances[modelpkg.CurrencyMeso] != 4900 || a.Balances[modelpkg.CurrencyMeret] != 20 {
		t.Fatalf("balances=%v", a.Balances)
	}
	if len(a.Items) != 1 || a.Items[0].UID != chairs.UID || a.Items[0].Amount != 2 {
		t.Fatalf("items=%+v", a.Items)
	}
	if len(got[1].Items) != 0 || got[1].Balances[modelpkg.CurrencyMeso] != 7 {
		t.Fatalf("second account=%+v", got[1])
	}
}

func TestSQLiteStore_JournalsLedger(t *testing.T) {
	s, path := openTemp(t)

	ledger := economypkg.NewLedger(economypkg.WithJournal(s), economypkg.WithStartingBalance(modelpkg.Budget{Mesos: 1000}))
	ledger.OpenAccount(100)
	if !ledger.DebitWallet(100, modelpkg.CurrencyMeso, 250) {
		t.Fatalf("debit refused")
	}
	ledger.AddItem(100, modelpkg.NewItem(50100003))

	flush(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	accounts, err := s2.LoadAccounts(context.Background())
	if err != nil {
		t.Fatalf("load accounts: %v", err)
	}

	restored := economypkg.NewLedger(economypkg.WithStartingBalance(modelpkg.Budget{Mesos: 1000}))
	for _, a := range accounts {
		restored.Restore(a.ID, a.Balances, a.Items)
	}
	if got := restored.Balance(100, modelpkg.CurrencyMeso); got != 750 {
		t.Fatalf("restored mesos=%d want 750", got)
	}
	if restored.Count(100, 50100003) != 1 {
		t.Fatalf("restored items=%+v", restored.Items(100))
	}
	if restored.OpenAccount(100) {
		t.Fatalf("restored account seeded again")
	}
}
