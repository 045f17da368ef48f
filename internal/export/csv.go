// Package export renders the tick ledger as CSV for offline analysis.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"campusgrid.ai/internal/sim/world"
)

// Columns returns the CSV header for a ledger: tick, hour, then every POI
// seen anywhere in the ledger in lexicographic order.
func Columns(stats []world.TickStats) []string {
	seen := map[string]bool{}
	for _, ts := range stats {
		for poi := range ts.Occupancy {
			seen[poi] = true
		}
	}
	pois := make([]string, 0, len(seen))
	for poi := range seen {
		pois = append(pois, poi)
	}
	sort.Strings(pois)
	return append([]string{"tick", "hour"}, pois...)
}

// WriteCSV writes the ledger with one row per tick. POIs missing from a
// tick's snapshot are written as zero.
func WriteCSV(w io.Writer, stats []world.TickStats) error {
	cols := Columns(stats)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	row := make([]string, len(cols))
	for _, ts := range stats {
		row[0] = strconv.FormatInt(ts.Tick, 10)
		row[1] = strconv.Itoa(ts.Hour)
		for i, poi := range cols[2:] {
			row[2+i] = strconv.Itoa(ts.Occupancy[poi])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the ledger to a file, creating parent directories.
func SaveCSV(path string, stats []world.TickStats) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, stats); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// AggregateFiles concatenates per-run CSVs into one file with a single
// header and a leading run column identifying the source file.
func AggregateFiles(outPath string, inPaths []string) error {
	if len(inPaths) == 0 {
		return fmt.Errorf("no input files")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(out)

	var header []string
	for _, path := range inPaths {
		f, err := os.Open(path)
		if err != nil {
			_ = out.Close()
			return err
		}
		rows, err := csv.NewReader(f).ReadAll()
		_ = f.Close()
		if err != nil {
			_ = out.Close()
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if len(rows) == 0 {
			continue
		}
		if header == nil {
			header = rows[0]
			if err := cw.Write(append([]string{"run"}, header...)); err != nil {
				_ = out.Close()
				return err
			}
		} else if !equalRows(header, rows[0]) {
			_ = out.Close()
			return fmt.Errorf("%s: header mismatch", filepath.Base(path))
		}
		run := runName(path)
		for _, row := range rows[1:] {
			if err := cw.Write(append([]string{run}, row...)); err != nil {
				_ = out.Close()
				return err
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func runName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func equalRows(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
