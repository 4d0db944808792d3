// Package stats keeps cumulative per-player winnings across hands in a JSON
// file.
package stats

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lox/robobot/internal/fileutil"
	"github.com/lox/robobot/internal/snapshot"
)

// DefaultFile is the ledger file name used when none is configured.
const DefaultFile = "stats.json"

// ErrNoPlayers is returned when a snapshot to record lists nobody.
var ErrNoPlayers = errors.New("snapshot lists no players")

// Entry is one player's running record.
type Entry struct {
	Total      int     `json:"total"`
	Hands      int     `json:"hands"`
	SumSquares float64 `json:"sum_squares"`
}

// UnmarshalJSON accepts both the object form and a bare integer total, the
// format older ledgers were written in.
func (e *Entry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		var total int
		if err := json.Unmarshal(trimmed, &total); err != nil {
			return fmt.Errorf("ledger entry: %w", err)
		}
		*e = Entry{Total: total}
		return nil
	}

	type plain Entry
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*e = Entry(p)
	return nil
}

func (e *Entry) add(net int) {
	e.Total += net
	e.Hands++
	e.SumSquares += float64(net) * float64(net)
}

// Mean is the average result per recorded hand.
func (e Entry) Mean() float64 {
	if e.Hands == 0 {
		return 0
	}
	return float64(e.Total) / float64(e.Hands)
}

// StdDev is the sample standard deviation of per-hand results.
func (e Entry) StdDev() float64 {
	if e.Hands < 2 {
		return 0
	}
	mean := e.Mean()
	variance := (e.SumSquares - float64(e.Hands)*mean*mean) / float64(e.Hands-1)
	if variance < 0 {
		return 0
	}
	return math.Sqrt(variance)
}

// Standing is a player's position in the ledger.
type Standing struct {
	Name   string  `json:"name"`
	Total  int     `json:"total"`
	Hands  int     `json:"hands"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// Ledger reads and writes the winnings file. Each Record is a serialised
// read-modify-write; the file is replaced atomically.
type Ledger struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewLedger returns a ledger backed by path. The file is created by the first
// Record.
func NewLedger(path string, logger zerolog.Logger) *Ledger {
	if path == "" {
		path = DefaultFile
	}
	return &Ledger{
		path:   path,
		logger: logger.With().Str("component", "stats").Logger(),
	}
}

// Path returns the backing file.
func (l *Ledger) Path() string { return l.path }

// Record adds stack minus in_stack for every player in a completed hand and
// returns the updated totals.
func (l *Ledger) Record(snap *snapshot.Snapshot) (map[string]int, error) {
	if snap == nil || len(snap.Players) == 0 {
		return nil, ErrNoPlayers
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return nil, err
	}
	for _, p := range snap.Players {
		e := entries[p.Name]
		e.add(p.Net())
		entries[p.Name] = e
	}
	if err := l.save(entries); err != nil {
		return nil, err
	}

	l.logger.Debug().
		Int("players", len(snap.Players)).
		Str("path", l.path).
		Msg("Recorded hand")

	return totals(entries), nil
}

// Totals returns a copy of the cumulative winnings.
func (l *Ledger) Totals() (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return nil, err
	}
	return totals(entries), nil
}

// Standings returns every player sorted by total, best first. Ties are broken
// by name.
func (l *Ledger) Standings() ([]Standing, error) {
	l.mu.Lock()
	entries, err := l.load()
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]Standing, 0, len(entries))
	for name, e := range entries {
		out = append(out, Standing{
			Name:   name,
			Total:  e.Total,
			Hands:  e.Hands,
			Mean:   e.Mean(),
			StdDev: e.StdDev(),
		})
	}
	slices.SortFunc(out, func(a, b Standing) int {
		if a.Total != b.Total {
			return b.Total - a.Total
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (l *Ledger) load() (map[string]Entry, error) {
	data, err := fileutil.ReadFileIfExists(l.path)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	entries := make(map[string]Entry)
	if len(bytes.TrimSpace(data)) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode ledger %s: %w", l.path, err)
	}
	return entries, nil
}

func (l *Ledger) save(entries map[string]Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := fileutil.WriteFileAtomic(l.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

func totals(entries map[string]Entry) map[string]int {
	out := make(map[string]int, len(entries))
	for name, e := range entries {
		out[name] = e.Total
	}
	return out
}
