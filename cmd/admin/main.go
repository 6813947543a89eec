// Command admin inspects a server's runtime data: the sqlite index and the
// live admin HTTP surface.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"strands.run/internal/persistence/indexdb"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "sessions":
			sessionsCmd(os.Args[2:])
			return
		case "snapshots":
			snapshotsCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin <db|sessions|snapshots|state> [flags]")
	os.Exit(2)
}

func openIndex(dataDir string) *indexdb.SQLiteIndex {
	idx, err := indexdb.OpenSQLite(filepath.Join(dataDir, "index.db"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}
	return idx
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	idx := openIndex(*dataDir)
	defer idx.Close()

	counts, err := idx.CommandCounts()
	if err != nil {
		fmt.Fprintln(os.Stderr, "command counts:", err)
		os.Exit(1)
	}
	total, open, err := idx.SessionCount()
	if err != nil {
		fmt.Fprintln(os.Stderr, "session counts:", err)
		os.Exit(1)
	}

	fmt.Printf("sessions: total=%d open=%d\n", total, open)
	fmt.Println("commands:")
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("  %-12s %d\n", k, counts[k])
	}
}

func sessionsCmd(args []string) {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	limit := fs.Int("limit", 20, "max sessions to list")
	_ = fs.Parse(args)

	idx := openIndex(*dataDir)
	defer idx.Close()

	sessions, err := idx.RecentSessions(*limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sessions:", err)
		os.Exit(1)
	}
	for _, s := range sessions {
		closed := s.ClosedAt
		if closed == "" {
			closed = "(open)"
		}
		fmt.Printf("%s  %-21s  opened=%s  closed=%s\n", s.ID, s.RemoteAddr, s.OpenedAt, closed)
	}
}

func snapshotsCmd(args []string) {
	fs := flag.NewFlagSet("snapshots", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	limit := fs.Int("limit", 20, "max snapshots to list")
	_ = fs.Parse(args)

	idx := openIndex(*dataDir)
	defer idx.Close()

	snaps, err := idx.RecentSnapshots(*limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "snapshots:", err)
		os.Exit(1)
	}
	for _, sn := range snaps {
		ts := time.Unix(0, int64(sn.TS*float64(time.Second))).UTC().Format(time.RFC3339)
		fmt.Printf("%s  pos=(%.1f %.1f %.1f) yaw=%.1f  %s\n", ts, sn.Pos[0], sn.Pos[1], sn.Pos[2], sn.Yaw, sn.Path)
	}
}

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	adminAddr := fs.String("admin_addr", "127.0.0.1:8080", "server admin http address")
	_ = fs.Parse(args)

	resp, err := http.Get("http://" + *adminAddr + "/admin/v1/state")
	if err != nil {
		fmt.Fprintln(os.Stderr, "get state:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "state: %s: %s\n", resp.Status, body)
		os.Exit(1)
	}

	var pretty json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&pretty); err != nil {
		fmt.Fprintln(os.Stderr, "decode:", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
}
