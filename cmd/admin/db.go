package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func openDB(dataDir, dbPath string) *sql.DB {
	path := strings.TrimSpace(dbPath)
	if path == "" {
		path = filepath.Join(dataDir, "db", "homes.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return db
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/db/homes.sqlite)")
	homeID := fs.Int64("home", 0, "home id (required for cubes|layouts|warehouse)")
	account := fs.Int64("account", 0, "account id (filters wallets|inventory)")
	limit := fs.Int("limit", 50, "result limit")
	_ = fs.Parse(args)

	q := "homes"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 50
	}

	db := openDB(*dataDir, *dbPath)
	defer db.Close()

	needHome := func() {
		if *homeID == 0 {
			fmt.Fprintln(os.Stderr, "missing -home")
			os.Exit(2)
		}
	}

	var err error
	switch q {
	case "homes":
		err = printRawRows(db, `SELECT raw_json FROM homes ORDER BY id LIMIT ?`, *limit)
	case "cubes":
		needHome()
		err = printRawRows(db, `SELECT raw_json FROM cubes WHERE home_id=? ORDER BY z, y, x LIMIT ?`, *homeID, *limit)
	case "layouts":
		needHome()
		err = printRawRows(db, `SELECT raw_json FROM layouts WHERE home_id=? ORDER BY slot_id LIMIT ?`, *homeID, *limit)
	case "warehouse":
		needHome()
		err = printRawRows(db, `SELECT raw_json FROM warehouse WHERE home_id=? ORDER BY item_id LIMIT ?`, *homeID, *limit)
	case "audits":
		if *homeID != 0 {
			err = printRawRows(db, `SELECT raw_json FROM audits WHERE home_id=? ORDER BY seq DESC LIMIT ?`, *homeID, *limit)
		} else {
			err = printRawRows(db, `SELECT raw_json FROM audits ORDER BY seq DESC LIMIT ?`, *limit)
		}
	case "inventory":
		if *account != 0 {
			err = printRawRows(db, `SELECT raw_json FROM personal_items WHERE account_id=? ORDER BY item_id LIMIT ?`, *account, *limit)
		} else {
			err = printRawRows(db, `SELECT raw_json FROM personal_items ORDER BY account_id, item_id LIMIT ?`, *limit)
		}
	case "wallets":
		rows, qerr := db.Query(`SELECT account_id,currency,amount FROM wallets WHERE ?=0 OR account_id=? ORDER BY account_id, currency LIMIT ?`, *account, *account, *limit)
		if qerr != nil {
			err = qerr
			break
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				AccountID int64 `json:"account_id"`
				Currency  int   `json:"currency"`
				Amount    int64 `json:"amount"`
			}
			if err = rows.Scan(&r.AccountID, &r.Currency, &r.Amount); err != nil {
				break
			}
			printJSON(r)
		}
		if err == nil {
			err = rows.Err()
		}
	case "catalogs":
		rows, qerr := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		if qerr != nil {
			err = qerr
			break
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			if err = rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
				break
			}
			printJSON(r)
		}
		if err == nil {
			err = rows.Err()
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data|-db PATH] [-home ID] [-account ID] homes|cubes|layouts|warehouse|audits|wallets|inventory|catalogs")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
}

// printRawRows prints the raw_json column of every row as one JSON line.
func printRawRows(db *sql.DB, query string, args ...any) error {
	rows, err := db.Query(query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		printJSON(json.RawMessage(raw))
	}
	return rows.Err()
}
