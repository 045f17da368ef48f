// Package indexdb maintains a queryable SQLite index of the tick ledger.
// Writes go through a single writer goroutine; the compressed JSONL stats
// log remains the source of truth, so a lagging index may drop entries.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"campusgrid.ai/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqFlush
)

type req struct {
	kind reqKind
	tick world.TickStats
	done chan struct{}
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
		// Buffered so a slow disk never stalls the tick loop.
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
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
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			hour INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS occupancy (
			tick INTEGER NOT NULL,
			poi TEXT NOT NULL,
			agents INTEGER NOT NULL,
			PRIMARY KEY (tick, poi)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_occupancy_poi_tick ON occupancy(poi, tick);`,
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

// OnTick enqueues a tick for indexing. Drops the entry if the writer is
// saturated rather than blocking the simulation.
func (s *SQLiteIndex) OnTick(ts world.TickStats, _ []world.AgentView) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: ts}:
	default:
	}
	return nil
}

// Flush blocks until every previously enqueued tick is committed.
func (s *SQLiteIndex) Flush() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{kind: reqFlush, done: done}
	<-done
}

type OccupancyPoint struct {
	Tick   int64
	Agents int
}

// OccupancyRange returns per-tick agent counts at one POI for ticks in
// [fromTick, toTick], ascending.
func (s *SQLiteIndex) OccupancyRange(poi string, fromTick, toTick int64) ([]OccupancyPoint, error) {
	rows, err := s.db.Query(
		`SELECT tick, agents FROM occupancy WHERE poi = ? AND tick BETWEEN ? AND ? ORDER BY tick`,
		poi, fromTick, toTick,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OccupancyPoint
	for rows.Next() {
		var p OccupancyPoint
		if err := rows.Scan(&p.Tick, &p.Agents); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecentTicks returns the newest n indexed ticks, ascending by tick.
func (s *SQLiteIndex) RecentTicks(n int) ([]world.TickStats, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT raw_json FROM (SELECT tick, raw_json FROM ticks ORDER BY tick DESC LIMIT ?) ORDER BY tick`,
		n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []world.TickStats
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var ts world.TickStats
		if err := json.Unmarshal([]byte(raw), &ts); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,hour,raw_json) VALUES(?,?,?)`)
	insertOcc, _ := s.db.Prepare(`INSERT OR REPLACE INTO occupancy(tick,poi,agents) VALUES(?,?,?)`)
	defer func() {
		if insertTick != nil {
			_ = insertTick.Close()
		}
		if insertOcc != nil {
			_ = insertOcc.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
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
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}

		begin()
		if tx == nil {
			continue
		}

		ts := r.tick
		raw, _ := json.Marshal(ts)
		if insertTick != nil {
			if _, err := tx.Stmt(insertTick).Exec(ts.Tick, ts.Hour, string(raw)); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		ok := true
		for _, poi := range sortedPOIs(ts.Occupancy) {
			if insertOcc == nil {
				break
			}
			if _, err := tx.Stmt(insertOcc).Exec(ts.Tick, poi, ts.Occupancy[poi]); err != nil {
				rollback()
				ok = false
				break
			}
			opCount++
		}
		if !ok {
			continue
		}

		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

func sortedPOIs(occ map[string]int) []string {
	names := make([]string, 0, len(occ))
	for name := range occ {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
