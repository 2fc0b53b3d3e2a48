package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"homecraft.ai/internal/sim/home"
)

const usage = `usage: admin <command> [flags]

commands:
  audit     print audit log entries (zstd JSONL under <data>/audit/<home>)
  db        query the home store: homes|cubes|layouts|warehouse|audits|wallets|inventory|catalogs
  rollback  return cubes placed by one actor to the owner's warehouse (server must be stopped)
  state     print /admin/v1/state of a running server`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	switch os.Args[1] {
	case "audit":
		auditCmd(os.Args[2:])
	case "db":
		dbCmd(os.Args[2:])
	case "rollback":
		rollbackCmd(os.Args[2:])
	case "state":
		stateCmd(os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

type auditFilter struct {
	HomeID int64
	Actor  string
	Action string
	Since  int64
	Until  int64
}

func (f auditFilter) match(e home.AuditEntry) bool {
	if f.HomeID != 0 && e.HomeID != f.HomeID {
		return false
	}
	if f.Actor != "" && !strings.EqualFold(e.Actor, f.Actor) {
		return false
	}
	if f.Action != "" && !strings.EqualFold(e.Action, f.Action) {
		return false
	}
	if f.Since != 0 && e.Time < f.Since {
		return false
	}
	if f.Until != 0 && e.Time > f.Until {
		return false
	}
	return true
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	var f auditFilter
	fs.Int64Var(&f.HomeID, "home", 0, "home id filter")
	fs.StringVar(&f.Actor, "actor", "", "actor name filter")
	fs.StringVar(&f.Action, "action", "", "action filter (PLACE|REMOVE|REPLACE|ROTATE)")
	fs.Int64Var(&f.Since, "since", 0, "unix ms lower bound (inclusive)")
	fs.Int64Var(&f.Until, "until", 0, "unix ms upper bound (inclusive)")
	limit := fs.Int("limit", 0, "print at most this many entries (0 = all)")
	_ = fs.Parse(args)

	entries, err := readAudit(filepath.Join(*dataDir, "audit"), f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	if *limit > 0 && len(entries) > *limit {
		entries = entries[len(entries)-*limit:]
	}
	for _, e := range entries {
		printJSON(e)
	}
}

// readAudit returns matching entries from the per-home daily files under dir, oldest
// first. A home filter only opens that home's directory.
func readAudit(dir string, f auditFilter) ([]home.AuditEntry, error) {
	root := dir
	if f.HomeID != 0 {
		root = filepath.Join(dir, strconv.FormatInt(f.HomeID, 10))
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if !d.IsDir() && strings.HasPrefix(name, "audit-") && strings.HasSuffix(name, ".jsonl.zst") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if f.HomeID != 0 && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	sort.Strings(paths)

	var out []home.AuditEntry
	for _, path := range paths {
		if err := scanAuditFile(path, func(e home.AuditEntry) {
			if f.match(e) {
				out = append(out, e)
			}
		}); err != nil {
			rel, _ := filepath.Rel(dir, path)
			return nil, fmt.Errorf("%s: %w", rel, err)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

// scanAuditFile decodes one audit file. The file of a running server ends in an open
// frame; a truncated tail ends the scan without an error.
func scanAuditFile(path string, fn func(home.AuditEntry)) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	dec, err := zstd.NewReader(file)
	if err != nil {
		return err
	}
	defer dec.Close()
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var e home.AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		fn(e)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
