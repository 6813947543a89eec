package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteIndex is an optional read-model index of server activity: sessions,
// per-command counters and written state snapshots. Writes go through a
// single goroutine over a bounded queue so the frame loop never touches the
// database; under backlog entries are dropped (the zstd journal remains the
// source of truth).
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqSessionOpen reqKind = iota + 1
	reqSessionClose
	reqCommand
	reqSnapshot
)

type req struct {
	kind reqKind

	session  sessionRow
	cmd      string
	snapshot snapshotRow
}

type sessionRow struct {
	ID         string
	RemoteAddr string
	At         string
}

type snapshotRow struct {
	TS   float64
	Path string
	Pos  [3]float64
	Yaw  float64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
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

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits this append-style workload; NORMAL durability is enough
	// for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
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
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			remote_addr TEXT NOT NULL,
			opened_at TEXT NOT NULL,
			closed_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS command_counts (
			kind TEXT PRIMARY KEY,
			count INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS state_snapshots (
			ts REAL NOT NULL,
			path TEXT NOT NULL,
			pos_x REAL NOT NULL,
			pos_y REAL NOT NULL,
			pos_z REAL NOT NULL,
			yaw REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_state_snapshots_ts ON state_snapshots(ts);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) RecordSessionOpen(id, remoteAddr string) {
	s.enqueue(req{kind: reqSessionOpen, session: sessionRow{
		ID:         id,
		RemoteAddr: remoteAddr,
		At:         time.Now().UTC().Format(time.RFC3339Nano),
	}})
}

func (s *SQLiteIndex) RecordSessionClose(id string) {
	s.enqueue(req{kind: reqSessionClose, session: sessionRow{
		ID: id,
		At: time.Now().UTC().Format(time.RFC3339Nano),
	}})
}

// RecordCommand bumps the counter for one command kind (or decode error code).
func (s *SQLiteIndex) RecordCommand(kind string) {
	if kind == "" {
		return
	}
	s.enqueue(req{kind: reqCommand, cmd: kind})
}

func (s *SQLiteIndex) RecordStateSnapshot(ts float64, path string, pos [3]float64, yaw float64) {
	s.enqueue(req{kind: reqSnapshot, snapshot: snapshotRow{TS: ts, Path: path, Pos: pos, Yaw: yaw}})
}

func (s *SQLiteIndex) enqueue(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind.
	}
}

func (s *SQLiteIndex) loop() {
	for r := range s.ch {
		switch r.kind {
		case reqSessionOpen:
			_, _ = s.db.Exec(
				`INSERT OR REPLACE INTO sessions (id, remote_addr, opened_at) VALUES (?, ?, ?)`,
				r.session.ID, r.session.RemoteAddr, r.session.At)
		case reqSessionClose:
			_, _ = s.db.Exec(
				`UPDATE sessions SET closed_at = ? WHERE id = ?`,
				r.session.At, r.session.ID)
		case reqCommand:
			_, _ = s.db.Exec(
				`INSERT INTO command_counts (kind, count) VALUES (?, 1)
				 ON CONFLICT(kind) DO UPDATE SET count = count + 1`,
				r.cmd)
		case reqSnapshot:
			_, _ = s.db.Exec(
				`INSERT INTO state_snapshots (ts, path, pos_x, pos_y, pos_z, yaw) VALUES (?, ?, ?, ?, ?, ?)`,
				r.snapshot.TS, r.snapshot.Path,
				r.snapshot.Pos[0], r.snapshot.Pos[1], r.snapshot.Pos[2], r.snapshot.Yaw)
		}
	}
}

// CommandCount reads one counter. Intended for admin queries and tests, not
// the frame loop.
func (s *SQLiteIndex) CommandCount(kind string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT count FROM command_counts WHERE kind = ?`, kind).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

// CommandCounts reads every counter, keyed by command kind.
func (s *SQLiteIndex) CommandCounts() (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT kind, count FROM command_counts ORDER BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[kind] = n
	}
	return out, rows.Err()
}

// Session is one recorded connection, read back for admin queries.
type Session struct {
	ID         string
	RemoteAddr string
	OpenedAt   string
	ClosedAt   string // empty while still open
}

// RecentSessions lists the newest sessions first.
func (s *SQLiteIndex) RecentSessions(limit int) ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT id, remote_addr, opened_at, COALESCE(closed_at, '') FROM sessions
		 ORDER BY opened_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.RemoteAddr, &sess.OpenedAt, &sess.ClosedAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Snapshot is one recorded state document, read back for admin queries.
type Snapshot struct {
	TS   float64
	Path string
	Pos  [3]float64
	Yaw  float64
}

// RecentSnapshots lists the newest state documents first.
func (s *SQLiteIndex) RecentSnapshots(limit int) ([]Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT ts, path, pos_x, pos_y, pos_z, yaw FROM state_snapshots
		 ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var sn Snapshot
		if err := rows.Scan(&sn.TS, &sn.Path, &sn.Pos[0], &sn.Pos[1], &sn.Pos[2], &sn.Yaw); err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// SessionCount reports total and still-open session counts.
func (s *SQLiteIndex) SessionCount() (total, open int64, err error) {
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&total); err != nil {
		return 0, 0, err
	}
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE closed_at IS NULL`).Scan(&open); err != nil {
		return 0, 0, err
	}
	return total, open, nil
}
