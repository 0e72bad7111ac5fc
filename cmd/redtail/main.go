package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/redtail/internal/engine"
	"github.com/hailam/redtail/internal/storage"
	"github.com/hailam/redtail/internal/uci"
)

var (
	hashMB     = flag.Int("hash", 0, "transposition table size in MB (default: stored setting)")
	pvHashMB   = flag.Int("pvhash", 0, "PV table size in MB (default: stored setting)")
	seed       = flag.Uint64("seed", 0, "Zobrist seed (default: stored setting)")
	dataDir    = flag.String("data", "", "data directory (default: platform data dir)")
	noStore    = flag.Bool("nostore", false, "do not read or write persistent settings and stats")
	logLevel   = flag.String("log-level", "", "log level: debug, info, warn, error (default: stored setting)")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	// Protocol output owns stdout; logs go to stderr.
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("exiting")
	}
}

func run() error {
	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", profilePath).Msg("cpu-profiling")
	}

	settings := storage.DefaultSettings()
	settings.Seed = engine.DefaultConfig().Seed

	var store *storage.Storage
	if !*noStore {
		var err error
		store, err = storage.OpenDir(*dataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		if settings, err = store.LoadSettings(); err != nil {
			return err
		}
	}

	applyFlags(settings)

	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Int("hash_mb", settings.HashMB).
		Int("pv_hash_mb", settings.PVHashMB).
		Uint64("seed", settings.Seed).
		Bool("positional", settings.Positional).
		Bool("null_move", settings.NullMove).
		Bool("store", store != nil).
		Msg("engine-config")

	eng := engine.NewEngine(engine.Config{
		HashMB:   settings.HashMB,
		PVHashMB: settings.PVHashMB,
		Seed:     settings.Seed,
		Options: engine.Options{
			UseTT:       true,
			UseNullMove: settings.NullMove,
			Positional:  settings.Positional,
		},
	})

	protocol := uci.New(eng, os.Stdin, os.Stdout)
	if store != nil {
		protocol.OnSearchDone = func(result engine.SearchResult) {
			err := store.RecordSearch(storage.SearchRecord{
				BestMove: result.BestMove.String(),
				Depth:    result.Depth,
				Nodes:    result.Nodes,
				Elapsed:  result.Elapsed,
			})
			if err != nil {
				log.Warn().Err(err).Msg("record-search-failed")
			}
		}
		protocol.OnOption = func(name, value string) {
			if !updateSetting(settings, name, value) {
				return
			}
			if err := store.SaveSettings(settings); err != nil {
				log.Warn().Err(err).Msg("save-settings-failed")
			}
		}
	}

	if err := protocol.Run(); err != nil {
		return err
	}

	if store != nil {
		if stats, err := store.LoadStats(); err == nil {
			log.Info().
				Int("searches", stats.Searches).
				Uint64("total_nodes", stats.TotalNodes).
				Int("deepest_depth", stats.DeepestDepth).
				Float64("nps", stats.NodesPerSecond()).
				Msg("search-stats")
		}
	}
	return nil
}

// applyFlags overrides stored settings with flags given on the command line.
func applyFlags(settings *storage.Settings) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "hash":
			settings.HashMB = *hashMB
		case "pvhash":
			settings.PVHashMB = *pvHashMB
		case "seed":
			settings.Seed = *seed
		case "log-level":
			settings.LogLevel = *logLevel
		}
	})
}

// updateSetting mirrors a setoption change into settings. It reports whether
// anything persistent changed.
func updateSetting(settings *storage.Settings, name, value string) bool {
	switch strings.ToLower(name) {
	case strings.ToLower(uci.OptionHash):
		settings.HashMB, _ = strconv.Atoi(value)
	case strings.ToLower(uci.OptionPVHash):
		settings.PVHashMB, _ = strconv.Atoi(value)
	case strings.ToLower(uci.OptionPositional):
		settings.Positional, _ = strconv.ParseBool(value)
	case strings.ToLower(uci.OptionNullMove):
		settings.NullMove, _ = strconv.ParseBool(value)
	case strings.ToLower(uci.OptionSeed):
		settings.Seed, _ = strconv.ParseUint(value, 0, 64)
	default:
		return false
	}
	return true
}
