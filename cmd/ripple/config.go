package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultCacheTTL = time.Hour

type Config struct {
	ScenarioPath  string
	DBPath        string
	RedisAddr     string
	CacheTTL      time.Duration
	JSONOutput    bool
	OutputFile    string
	TrajectoryCSV string
	SummaryCSV    string
	Mode          string // run, sensitivity, risks
	Magnitude     float64
	Periods       int
}

func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	dbPath := os.Getenv("RIPPLE_DB_PATH")
	redisAddr := os.Getenv("RIPPLE_REDIS_ADDR")
	cacheTTL := defaultCacheTTL
	if ttlEnv := os.Getenv("RIPPLE_CACHE_TTL"); ttlEnv != "" {
		parsed, err := time.ParseDuration(ttlEnv)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RIPPLE_CACHE_TTL: %w", err)
		}
		if parsed < 0 {
			return Config{}, errors.New("RIPPLE_CACHE_TTL must not be negative")
		}
		cacheTTL = parsed
	}

	flagSet := flag.NewFlagSet("ripple", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagScenario := flagSet.String("scenario", "", "path to scenario YAML file")
	flagMode := flagSet.String("mode", "run", "run, sensitivity, or risks")
	flagJSON := flagSet.Bool("json", false, "output results as JSON")
	flagOut := flagSet.String("out", "", "write output to file instead of stdout")
	flagCSV := flagSet.String("csv", "", "write the per-period trajectory CSV to this path")
	flagSummaryCSV := flagSet.String("summary-csv", "", "write the per-variable summary CSV to this path")
	flagDB := flagSet.String("db", dbPath, "path to SQLite run database (empty disables persistence)")
	flagRedis := flagSet.String("redis", redisAddr, "redis address for the result cache (empty disables caching)")
	flagMagnitude := flagSet.Float64("magnitude", 1.0, "probe magnitude for risks mode")
	flagPeriods := flagSet.Int("periods", 12, "periods for sensitivity and risks modes")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	config := Config{
		ScenarioPath:  resolvePath(*flagScenario, cwd),
		DBPath:        resolvePath(*flagDB, cwd),
		RedisAddr:     strings.TrimSpace(*flagRedis),
		CacheTTL:      cacheTTL,
		JSONOutput:    *flagJSON,
		OutputFile:    resolvePath(*flagOut, cwd),
		TrajectoryCSV: resolvePath(*flagCSV, cwd),
		SummaryCSV:    resolvePath(*flagSummaryCSV, cwd),
		Mode:          strings.ToLower(strings.TrimSpace(*flagMode)),
		Magnitude:     *flagMagnitude,
		Periods:       *flagPeriods,
	}

	if config.ScenarioPath == "" {
		return Config{}, errors.New("scenario path is required")
	}
	switch config.Mode {
	case "run", "sensitivity", "risks":
	default:
		return Config{}, fmt.Errorf("unsupported mode: %s", config.Mode)
	}
	if config.Periods <= 0 {
		return Config{}, errors.New("periods must be positive")
	}

	return config, nil
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
