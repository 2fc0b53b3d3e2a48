package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"homecraft.ai/internal/sim/catalogs"
	"homecraft.ai/internal/sim/home"
	economypkg "homecraft.ai/internal/sim/home/feature/economy"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
	"homecraft.ai/internal/sim/tuning"
)

var (
	_ home.Store         = (*SQLiteStore)(nil)
	_ economypkg.Journal = (*SQLiteStore)(nil)
)

// SQLiteStore persists home state, wallets and personal inventories. Writes are queued
// and applied in batches by a single writer goroutine; callers never wait on the
// database unless the queue is full.
type SQLiteStore struct {
	db  *sql.DB
	log *log.Logger

	mu     sync.RWMutex // guards closed against ch sends
	closed bool
	ch     chan req
	wg     sync.WaitGroup
	once   sync.Once

	queueFullTotal atomic.Uint64
	writeErrTotal  atomic.Uint64
	appliedTotal   atomic.Uint64
}

type reqKind int

const (
	reqHome reqKind = iota + 1
	reqCube
	reqDeleteCube
	reqItem
	reqDeleteItem
	reqLayout
	reqDeleteLayout
	reqAudit
	reqWallet
	reqPersonalItem
	reqDeletePersonalItem
	reqFlush
)

type req struct {
	kind    reqKind
	homeID  int64
	account int64
	uid     string

	currency modelpkg.Currency
	amount   int64

	home   modelpkg.HomeRecord
	cube   modelpkg.Cube
	item   modelpkg.Item
	layout modelpkg.Layout
	audit  home.AuditEntry

	done chan struct{}
}

type Stats struct {
	QueueDepth     int
	QueueCapacity  int
	QueueFullTotal uint64
	WriteErrTotal  uint64
	AppliedTotal   uint64
}

func OpenSQLite(path string, logger *log.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{
		db:  db,
		log: logger,
		ch:  make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS homes (
			id INTEGER PRIMARY KEY,
			account_id INTEGER NOT NULL UNIQUE,
			owner_name TEXT NOT NULL,
			plot_map_id INTEGER NOT NULL,
			plot_number INTEGER NOT NULL,
			expiration INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_homes_plot ON homes(plot_map_id, plot_number);`,
		`CREATE TABLE IF NOT EXISTS cubes (
			home_id INTEGER NOT NULL,
			uid TEXT NOT NULL,
			item_id INTEGER NOT NULL,
			map_id INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (home_id, uid)
		);`,
		`CREATE TABLE IF NOT EXISTS warehouse (
			home_id INTEGER NOT NULL,
			uid TEXT NOT NULL,
			item_id INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (home_id, uid)
		);`,
		`CREATE TABLE IF NOT EXISTS layouts (
			home_id INTEGER NOT NULL,
			uid TEXT NOT NULL,
			slot_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			saved_at INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (home_id, uid)
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			time INTEGER NOT NULL,
			map_id INTEGER NOT NULL,
			home_id INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			item_id INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_home_time ON audits(home_id, time);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_time ON audits(actor, time);`,
		`CREATE TABLE IF NOT EXISTS wallets (
			account_id INTEGER NOT NULL,
			currency INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			PRIMARY KEY (account_id, currency)
		);`,
		`CREATE TABLE IF NOT EXISTS personal_items (
			account_id INTEGER NOT NULL,
			uid TEXT NOT NULL,
			item_id INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (account_id, uid)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// enqueue blocks when the queue is full. Home state has no other copy, so writes are
// never dropped.
func (s *SQLiteStore) enqueue(r req) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- r:
	default:
		s.queueFullTotal.Add(1)
		s.ch <- r
	}
	return true
}

func (s *SQLiteStore) UpsertHome(rec modelpkg.HomeRecord) {
	s.enqueue(req{kind: reqHome, home: rec})
}

func (s *SQLiteStore) UpsertCube(c modelpkg.Cube) {
	s.enqueue(req{kind: reqCube, cube: c})
}

func (s *SQLiteStore) DeleteCube(homeID int64, uid string) {
	s.enqueue(req{kind: reqDeleteCube, homeID: homeID, uid: uid})
}

func (s *SQLiteStore) UpsertWarehouseItem(homeID int64, item modelpkg.Item) {
	s.enqueue(req{kind: reqItem, homeID: homeID, item: item})
}

func (s *SQLiteStore) DeleteWarehouseItem(homeID int64, uid string) {
	s.enqueue(req{kind: reqDeleteItem, homeID: homeID, uid: uid})
}

func (s *SQLiteStore) UpsertLayout(l modelpkg.Layout) {
	s.enqueue(req{kind: reqLayout, layout: l})
}

func (s *SQLiteStore) DeleteLayout(homeID int64, uid string) {
	s.enqueue(req{kind: reqDeleteLayout, homeID: homeID, uid: uid})
}

func (s *SQLiteStore) UpsertWallet(account int64, c modelpkg.Currency, amount int64) {
	s.enqueue(req{kind: reqWallet, account: account, currency: c, amount: amount})
}

func (s *SQLiteStore) UpsertPersonalItem(account int64, item modelpkg.Item) {
	s.enqueue(req{kind: reqPersonalItem, account: account, item: item})
}

func (s *SQLiteStore) DeletePersonalItem(account int64, uid string) {
	s.enqueue(req{kind: reqDeletePersonalItem, account: account, uid: uid})
}

func (s *SQLiteStore) WriteAudit(e home.AuditEntry) error {
	s.enqueue(req{kind: reqAudit, audit: e})
	return nil
}

// Flush waits until every write queued before the call is committed.
func (s *SQLiteStore) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !s.enqueue(req{kind: reqFlush, done: done}) {
		return fmt.Errorf("store closed")
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteStore) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		QueueFullTotal: s.queueFullTotal.Load(),
		WriteErrTotal:  s.writeErrTotal.Load(),
		AppliedTotal:   s.appliedTotal.Load(),
	}
}

// UpsertCatalogs records the catalogs and tuning the server started with.
func (s *SQLiteStore) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, err := os.ReadFile(filepath.Join(configDir, "items.json")); err == nil {
		rows = append(rows, kv{name: "items", digest: cats.Items.Digest, json: b})
	}
	if b, err := os.ReadFile(filepath.Join(configDir, "maps.json")); err == nil {
		rows = append(rows, kv{name: "maps", digest: cats.Maps.Digest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load reads every stored home. It must run before the first write is queued.
func (s *SQLiteStore) Load(ctx context.Context) ([]home.Persisted, error) {
	byID := map[int64]*home.Persisted{}
	var ids []int64

	rows, err := s.db.QueryContext(ctx, `SELECT raw_json FROM homes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	err = scanJSON(rows, func(raw []byte) error {
		var rec modelpkg.HomeRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		byID[rec.ID] = &home.Persisted{Record: rec}
		ids = append(ids, rec.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("homes: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT raw_json FROM cubes ORDER BY home_id, uid`)
	if err != nil {
		return nil, err
	}
	err = scanJSON(rows, func(raw []byte) error {
		var c modelpkg.Cube
		if err := json.Unmarshal(raw, &c); err != nil {
			return err
		}
		if p := byID[c.HomeID]; p != nil {
			p.Cubes = append(p.Cubes, c)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cubes: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT home_id, raw_json FROM warehouse ORDER BY home_id, uid`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var homeID int64
		var raw []byte
		if err := rows.Scan(&homeID, &raw); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("warehouse: %w", err)
		}
		var it modelpkg.Item
		if err := json.Unmarshal(raw, &it); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("warehouse: %w", err)
		}
		if p := byID[homeID]; p != nil {
			p.Items = append(p.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("warehouse: %w", err)
	}
	_ = rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT raw_json FROM layouts ORDER BY home_id, slot_id`)
	if err != nil {
		return nil, err
	}
	err = scanJSON(rows, func(raw []byte) error {
		var l modelpkg.Layout
		if err := json.Unmarshal(raw, &l); err != nil {
			return err
		}
		if p := byID[l.HomeID]; p != nil {
			p.Layouts = append(p.Layouts, l)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("layouts: %w", err)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]home.Persisted, 0, len(ids))
	for _, id := range ids {
		out = append(out, *byID[id])
	}
	return out, nil
}

// Account is the persisted wallet and personal inventory of one account.
type Account struct {
	ID       int64
	Balances map[modelpkg.Currency]int64
	Items    []modelpkg.Item
}

// LoadAccounts reads every stored wallet and personal inventory, ordered by account.
func (s *SQLiteStore) LoadAccounts(ctx context.Context) ([]Account, error) {
	byID := map[int64]*Account{}
	get := func(id int64) *Account {
		a := byID[id]
		if a == nil {
			a = &Account{ID: id, Balances: map[modelpkg.Currency]int64{}}
			byID[id] = a
		}
		return a
	}

	rows, err := s.db.QueryContext(ctx, `SELECT account_id, currency, amount FROM wallets`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			id, amount int64
			c          int
		)
		if err := rows.Scan(&id, &c, &amount); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("wallets: %w", err)
		}
		get(id).Balances[modelpkg.Currency(c)] = amount
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("wallets: %w", err)
	}
	_ = rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT account_id, raw_json FROM personal_items ORDER BY account_id, uid`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id int64
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("personal_items: %w", err)
		}
		var it modelpkg.Item
		if err := json.Unmarshal(raw, &it); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("personal_items: %w", err)
		}
		a := get(id)
		a.Items = append(a.Items, it)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("personal_items: %w", err)
	}
	_ = rows.Close()

	out := make([]Account, 0, len(byID))
	for _, a := range byID {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func scanJSON(rows *sql.Rows, fn func(raw []byte) error) error {
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) loop() {
	ctx := context.Background()

	upsertHome, _ := s.db.Prepare(`INSERT OR REPLACE INTO homes(id,account_id,owner_name,plot_map_id,plot_number,expiration,raw_json) VALUES(?,?,?,?,?,?,?)`)
	upsertCube, _ := s.db.Prepare(`INSERT OR REPLACE INTO cubes(home_id,uid,item_id,map_id,x,y,z,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	deleteCube, _ := s.db.Prepare(`DELETE FROM cubes WHERE home_id=? AND uid=?`)
	upsertItem, _ := s.db.Prepare(`INSERT OR REPLACE INTO warehouse(home_id,uid,item_id,amount,raw_json) VALUES(?,?,?,?,?)`)
	deleteItem, _ := s.db.Prepare(`DELETE FROM warehouse WHERE home_id=? AND uid=?`)
	upsertLayout, _ := s.db.Prepare(`INSERT OR REPLACE INTO layouts(home_id,uid,slot_id,name,saved_at,raw_json) VALUES(?,?,?,?,?,?)`)
	deleteLayout, _ := s.db.Prepare(`DELETE FROM layouts WHERE home_id=? AND uid=?`)
	insertAudit, _ := s.db.Prepare(`INSERT INTO audits(time,map_id,home_id,actor,action,x,y,z,item_id,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	upsertWallet, _ := s.db.Prepare(`INSERT OR REPLACE INTO wallets(account_id,currency,amount) VALUES(?,?,?)`)
	upsertPersonal, _ := s.db.Prepare(`INSERT OR REPLACE INTO personal_items(account_id,uid,item_id,amount,raw_json) VALUES(?,?,?,?,?)`)
	deletePersonal, _ := s.db.Prepare(`DELETE FROM personal_items WHERE account_id=? AND uid=?`)
	stmts := []*sql.Stmt{upsertHome, upsertCube, deleteCube, upsertItem, deleteItem, upsertLayout, deleteLayout, insertAudit, upsertWallet, upsertPersonal, deletePersonal}
	defer func() {
		for _, st := range stmts {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 200 * time.Millisecond
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.log.Printf("sqlite begin: %v", err)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrTotal.Add(1)
			s.log.Printf("sqlite commit: %v", err)
		} else {
			s.appliedTotal.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			s.writeErrTotal.Add(1)
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			s.writeErrTotal.Add(1)
			s.log.Printf("sqlite write: %v", err)
			return
		}
		opCount++
	}

	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	for {
		var r req
		var ok bool
		select {
		case r, ok = <-s.ch:
			if !ok {
				commit()
				return
			}
		case <-ticker.C:
			flushIfNeeded()
			continue
		}

		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}

		begin()
		switch r.kind {
		case reqHome:
			h := r.home
			raw, _ := json.Marshal(h)
			exec(upsertHome, h.ID, h.AccountID, h.OwnerName, h.PlotMapID, h.PlotNumber, h.Expiration, string(raw))
		case reqCube:
			c := r.cube
			raw, _ := json.Marshal(c)
			exec(upsertCube, c.HomeID, c.UID, c.Item.ItemID, c.MapID, c.Pos.X, c.Pos.Y, c.Pos.Z, string(raw))
		case reqDeleteCube:
			exec(deleteCube, r.homeID, r.uid)
		case reqItem:
			raw, _ := json.Marshal(r.item)
			exec(upsertItem, r.homeID, r.item.UID, r.item.ItemID, r.item.Amount, string(raw))
		case reqDeleteItem:
			exec(deleteItem, r.homeID, r.uid)
		case reqLayout:
			l := r.layout
			raw, _ := json.Marshal(l)
			exec(upsertLayout, l.HomeID, l.UID, l.SlotID, l.Name, l.SavedAt, string(raw))
		case reqDeleteLayout:
			exec(deleteLayout, r.homeID, r.uid)
		case reqAudit:
			a := r.audit
			raw, _ := json.Marshal(a)
			exec(insertAudit, a.Time, a.MapID, a.HomeID, a.Actor, a.Action, a.Pos[0], a.Pos[1], a.Pos[2], a.ItemID, a.Reason, string(raw))
		case reqWallet:
			exec(upsertWallet, r.account, int(r.currency), r.amount)
		case reqPersonalItem:
			raw, _ := json.Marshal(r.item)
			exec(upsertPersonal, r.account, r.item.UID, r.item.ItemID, r.item.Amount, string(raw))
		case reqDeletePersonalItem:
			exec(deletePersonal, r.account, r.uid)
		}
		flushIfNeeded()
	}
}
