package main

import (
	"flag"
	"time"

	"github.com/spf13/viper"
)

// cliFlags are the command line options. The config file provides the
// defaults; explicitly set flags win.
type cliFlags struct {
	configDir      string
	vehicles       int
	capacity       int
	duration       time.Duration
	seed           int64
	logLevel       string
	version        bool
	migrateBackups bool
	export         string

	set map[string]bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configDir, "config", ".", "directory containing depotsim.cfg.json")
	flag.IntVar(&f.vehicles, "vehicles", 0, "fleet size (overrides fleet.count)")
	flag.IntVar(&f.capacity, "capacity", 0, "seats per vehicle (overrides fleet.capacity)")
	flag.DurationVar(&f.duration, "duration", 0, "how long to run the service day (0 = until interrupted)")
	flag.Int64Var(&f.seed, "seed", 0, "simulation seed (0 = derived from the clock)")
	flag.StringVar(&f.logLevel, "log-level", "info", "log level (overrides logLevel)")
	flag.BoolVar(&f.version, "version", false, "print version and exit")
	flag.BoolVar(&f.migrateBackups, "migrate-backups", false, "migrate local SQLite backups into Postgres and exit")
	flag.StringVar(&f.export, "export", "", "comma-separated service day IDs to export as JSON and exit")
	flag.Parse()

	f.set = make(map[string]bool)
	flag.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f
}

// applyFlagOverrides pushes explicitly set flags over the loaded config.
func applyFlagOverrides(f cliFlags) {
	if f.set["vehicles"] {
		viper.Set("fleet.count", f.vehicles)
	}
	if f.set["capacity"] {
		viper.Set("fleet.capacity", f.capacity)
	}
	if f.set["log-level"] {
		viper.Set("logLevel", f.logLevel)
	}
}
