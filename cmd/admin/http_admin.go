package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"homecraft.ai/internal/persistence/indexdb"
)

// serverState mirrors the body of /admin/v1/state.
type serverState struct {
	Homes     int           `json:"homes"`
	Instances int           `json:"instances"`
	Sessions  int           `json:"sessions"`
	Store     indexdb.Stats `json:"store"`
}

func (s serverState) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "homes=%d instances=%d sessions=%d", s.Homes, s.Instances, s.Sessions)
	if s.Store.QueueCapacity == 0 {
		b.WriteString(" store=memory")
		return b.String()
	}
	fmt.Fprintf(&b, " store_queue=%d/%d store_applied=%d store_queue_full=%d store_write_errors=%d",
		s.Store.QueueDepth, s.Store.QueueCapacity, s.Store.AppliedTotal, s.Store.QueueFullTotal, s.Store.WriteErrTotal)
	return b.String()
}

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	asJSON := fs.Bool("json", false, "print the decoded state as JSON")
	watch := fs.Duration("watch", 0, "poll at this interval until interrupted (0 = once)")
	_ = fs.Parse(args)

	cl := &http.Client{Timeout: 5 * time.Second}
	for {
		st, err := fetchState(context.Background(), cl, *baseURL)
		if err != nil {
			fmt.Fprintln(os.Stderr, "state:", err)
			os.Exit(1)
		}
		if *asJSON {
			printJSON(st)
		} else {
			fmt.Printf("%s %s\n", time.Now().UTC().Format(time.RFC3339), st)
		}
		if *watch <= 0 {
			return
		}
		time.Sleep(*watch)
	}
}

func fetchState(ctx context.Context, cl *http.Client, baseURL string) (serverState, error) {
	var st serverState
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/admin/v1/state"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return st, err
	}
	resp, err := cl.Do(req)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return st, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("decode: %w", err)
	}
	return st, nil
}
