package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"homecraft.ai/internal/sim/home"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

func rollbackCmd(args []string) {
	fs := flag.NewFlagSet("rollback", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/db/homes.sqlite)")
	homeID := fs.Int64("home", 0, "home id (required)")
	actor := fs.String("actor", "", "actor whose placements are undone (required)")
	since := fs.Int64("since", 0, "only placements at or after this unix ms")
	dryRun := fs.Bool("dry_run", false, "report without writing")
	_ = fs.Parse(args)

	if *homeID == 0 || strings.TrimSpace(*actor) == "" {
		fmt.Fprintln(os.Stderr, "missing -home or -actor")
		os.Exit(2)
	}

	db := openDB(*dataDir, *dbPath)
	defer db.Close()

	res, err := rollbackPlacements(db, *homeID, strings.TrimSpace(*actor), *since, *dryRun)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rollback:", err)
		os.Exit(1)
	}
	fmt.Printf("rollback ok: home=%d actor=%s since=%d audited=%d returned=%d gone=%d dry_run=%v\n",
		*homeID, *actor, *since, res.Audited, res.Returned, res.Gone, *dryRun)
}

type rollbackResult struct {
	Audited  int
	Returned int
	Gone     int
}

// rollbackPlacements moves every live cube the actor placed in the home back into the
// home's warehouse. Cubes already removed or replaced since are counted as gone.
func rollbackPlacements(db *sql.DB, homeID int64, actor string, since int64, dryRun bool) (rollbackResult, error) {
	var res rollbackResult

	rows, err := db.Query(`SELECT raw_json FROM audits WHERE home_id=? AND actor=? AND action IN ('PLACE','REPLACE') AND time>=? ORDER BY seq`, homeID, actor, since)
	if err != nil {
		return res, err
	}
	var uids []string
	seen := map[string]bool{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			_ = rows.Close()
			return res, err
		}
		var e home.AuditEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			_ = rows.Close()
			return res, err
		}
		if e.Planner || e.CubeUID == "" || seen[e.CubeUID] {
			continue
		}
		seen[e.CubeUID] = true
		uids = append(uids, e.CubeUID)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return res, err
	}
	_ = rows.Close()
	res.Audited = len(uids)

	tx, err := db.Begin()
	if err != nil {
		return res, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, uid := range uids {
		var raw []byte
		err := tx.QueryRow(`SELECT raw_json FROM cubes WHERE home_id=? AND uid=?`, homeID, uid).Scan(&raw)
		if err == sql.ErrNoRows {
			res.Gone++
			continue
		}
		if err != nil {
			return res, err
		}
		var c modelpkg.Cube
		if err := json.Unmarshal(raw, &c); err != nil {
			return res, err
		}
		res.Returned++
		if dryRun {
			continue
		}
		// fresh uid: the cube may share its uid with a stack still in the warehouse
		item := c.Item
		item.UID = modelpkg.NewUID()
		item.Amount = 1
		itemRaw, _ := json.Marshal(item)
		if _, err := tx.Exec(`DELETE FROM cubes WHERE home_id=? AND uid=?`, homeID, uid); err != nil {
			return res, err
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO warehouse(home_id,uid,item_id,amount,raw_json) VALUES(?,?,?,?,?)`,
			homeID, item.UID, item.ItemID, item.Amount, string(itemRaw)); err != nil {
			return res, err
		}
	}
	if dryRun {
		return res, nil
	}
	return res, tx.Commit()
}
