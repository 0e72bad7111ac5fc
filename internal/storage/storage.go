package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"lukechampine.com/frand"
)

// Storage keys
const (
	keySettings = "settings"
	keyStats    = "stats"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("not found")

// Settings are the engine settings persisted between runs.
type Settings struct {
	HashMB     int    `json:"hash_mb"`
	PVHashMB   int    `json:"pv_hash_mb"`
	Seed       uint64 `json:"seed"`
	Positional bool   `json:"positional"`
	NullMove   bool   `json:"null_move"`
	LogLevel   string `json:"log_level"`
}

// DefaultSettings returns the settings used before anything is stored.
// Seed is left zero; NewSeed fills it on first launch.
func DefaultSettings() *Settings {
	return &Settings{
		HashMB:     16,
		PVHashMB:   5,
		Positional: true,
		NullMove:   true,
		LogLevel:   "info",
	}
}

// NewSeed returns a random non-zero Zobrist seed.
func NewSeed() uint64 {
	for {
		if seed := frand.Uint64n(1<<64 - 1); seed != 0 {
			return seed
		}
	}
}

// SearchStats accumulates totals over completed searches.
type SearchStats struct {
	Searches     int           `json:"searches"`
	TotalNodes   uint64        `json:"total_nodes"`
	TotalTime    time.Duration `json:"total_time"`
	DeepestDepth int           `json:"deepest_depth"`
	LastBestMove string        `json:"last_best_move"`
	LastSearch   time.Time     `json:"last_search"`
}

// NodesPerSecond returns the average search speed.
func (s *SearchStats) NodesPerSecond() float64 {
	if s.TotalTime <= 0 {
		return 0
	}
	return float64(s.TotalNodes) / s.TotalTime.Seconds()
}

// SearchRecord is the outcome of one search as seen by storage.
type SearchRecord struct {
	BestMove string
	Depth    int
	Nodes    uint64
	Elapsed  time.Duration
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// Open opens (creating if needed) the database under dir.
func Open(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	return open(opts)
}

// OpenDir opens the database below dataDir, or below the platform data
// directory when dataDir is empty.
func OpenDir(dataDir string) (*Storage, error) {
	dbDir, err := GetDatabaseDir(dataDir)
	if err != nil {
		return nil, err
	}
	return Open(dbDir)
}

// OpenInMemory opens a database that is never written to disk.
func OpenInMemory() (*Storage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return open(opts)
}

func open(opts badger.Options) (*Storage, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// get decodes the JSON value under key into v.
func (s *Storage) get(key string, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

// put stores v as JSON under key.
func (s *Storage) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// SaveSettings saves engine settings
func (s *Storage) SaveSettings(settings *Settings) error {
	if err := s.put(keySettings, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// LoadSettings loads engine settings. On first launch nothing is stored yet:
// defaults with a fresh random seed are saved and returned.
func (s *Storage) LoadSettings() (*Settings, error) {
	settings := DefaultSettings()

	err := s.get(keySettings, settings)
	if errors.Is(err, ErrNotFound) {
		settings.Seed = NewSeed()
		return settings, s.SaveSettings(settings)
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	return settings, nil
}

// LoadStats loads search statistics, returns empty stats if not found
func (s *Storage) LoadStats() (*SearchStats, error) {
	stats := &SearchStats{}

	err := s.get(keyStats, stats)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	return stats, nil
}

// RecordSearch folds one completed search into the stored statistics.
func (s *Storage) RecordSearch(rec SearchRecord) error {
	stats, err := s.LoadStats()
	if err != nil {
		return err
	}

	stats.Searches++
	stats.TotalNodes += rec.Nodes
	stats.TotalTime += rec.Elapsed
	stats.DeepestDepth = max(stats.DeepestDepth, rec.Depth)
	stats.LastBestMove = rec.BestMove
	stats.LastSearch = time.Now()

	if err := s.put(keyStats, stats); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}
