package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/econlab/ripple/pkg/engine"
	"github.com/econlab/ripple/pkg/reports"
	"github.com/econlab/ripple/pkg/scenario"
	"github.com/econlab/ripple/pkg/store"
	redisstore "github.com/econlab/ripple/pkg/store/redis"
)

var (
	Version   = "v1.0.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("Invalid configuration: %v", err)
	}

	sc, err := scenario.Load(cfg.ScenarioPath)
	if err != nil {
		log.Fatalf("Failed to load scenario: %v", err)
	}

	ctx := context.Background()

	switch cfg.Mode {
	case "sensitivity":
		runSensitivity(ctx, cfg, sc)
	case "risks":
		runRisks(ctx, cfg, sc)
	default:
		runScenario(ctx, cfg, sc)
	}
}

func runScenario(ctx context.Context, cfg Config, sc *scenario.Scenario) {
	var cache *redisstore.ResultCache
	var digest string
	if cfg.RedisAddr != "" {
		d, err := sc.Digest()
		if err != nil {
			log.Fatalf("Failed to hash scenario: %v", err)
		}
		digest = d
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		cache = redisstore.NewResultCache(client, cfg.CacheTTL)
		if res, ok := cache.Get(ctx, digest); ok {
			slog.Info("using cached result", "scenario", sc.Name, "digest", digest)
			finishRun(cfg, res)
			return
		}
	}

	res, err := sc.Run(ctx)
	if err != nil {
		log.Fatalf("Propagation failed: %v", err)
	}

	if cache != nil {
		cache.Set(ctx, digest, res)
	}

	if cfg.DBPath != "" {
		st, err := store.NewStore(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to open run database: %v", err)
		}
		defer st.Close()
		if digest == "" {
			digest, _ = sc.Digest()
		}
		runID, err := st.SaveRun(ctx, "", sc.Name, digest, res.Results)
		if err != nil {
			log.Fatalf("Failed to persist run: %v", err)
		}
		slog.Info("run saved", "run_id", runID, "scenario", sc.Name)
	}

	finishRun(cfg, res)
}

func finishRun(cfg Config, res *scenario.Result) {
	if cfg.TrajectoryCSV != "" {
		writeCSVReport(reports.ReportTypeTrajectory, res.Results, cfg.TrajectoryCSV)
	}
	if cfg.SummaryCSV != "" {
		writeCSVReport(reports.ReportTypeSummary, res.Results, cfg.SummaryCSV)
	}

	writeReport(res, cfg.JSONOutput, cfg.OutputFile)

	if !res.Success {
		os.Exit(1)
	}
}

func runSensitivity(ctx context.Context, cfg Config, sc *scenario.Scenario) {
	eng, err := sc.Build()
	if err != nil {
		log.Fatalf("Failed to build scenario: %v", err)
	}
	summaries, err := eng.AnalyzeSensitivity(ctx, sc.ShockEvent(), nil, nil, cfg.Periods)
	if err != nil {
		log.Fatalf("Sensitivity analysis failed: %v", err)
	}

	if cfg.JSONOutput {
		writeOutput(mustMarshal(summaries), cfg.OutputFile)
		return
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("\n--- Sensitivity Report: %s ---\n", sc.Name))
	for _, key := range sortedKeys(summaries) {
		s := summaries[key]
		buf.WriteString(fmt.Sprintf("%-18s converged=%-5v periods=%-3d peak=%s %+.4f total=%.4f\n",
			key, s.Converged, s.PeriodsRun, s.MaxPeakVariable, s.MaxPeakDeviation, s.TotalAbsoluteImpact))
	}
	writeOutput(buf.Bytes(), cfg.OutputFile)
}

func runRisks(ctx context.Context, cfg Config, sc *scenario.Scenario) {
	eng, err := sc.Build()
	if err != nil {
		log.Fatalf("Failed to build scenario: %v", err)
	}
	scores, err := eng.IdentifySystemicRisks(ctx, cfg.Magnitude, cfg.Periods)
	if err != nil {
		log.Fatalf("Risk scan failed: %v", err)
	}

	if cfg.JSONOutput {
		writeOutput(mustMarshal(scores), cfg.OutputFile)
		return
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("\n--- Systemic Risk Report: %s ---\n", sc.Name))
	for i, s := range scores {
		buf.WriteString(fmt.Sprintf("%2d. %-24s score=%.4f converged=%v\n", i+1, s.Variable, s.Score, s.Converged))
	}
	writeOutput(buf.Bytes(), cfg.OutputFile)
}

func writeReport(res *scenario.Result, jsonFmt bool, filePath string) {
	var output []byte

	if jsonFmt {
		output = mustMarshal(res)
	} else {
		var buf bytes.Buffer
		buf.WriteString(fmt.Sprintf("\n--- Propagation Report: %s ---\n", res.ScenarioName))
		buf.WriteString(fmt.Sprintf("Shock: %s\n", res.Results.Shock.String()))
		buf.WriteString(fmt.Sprintf("Outcome: %s after %d periods\n", res.Results.Outcome(), res.Results.Meta.PeriodsRun))

		peaks := res.Results.PeakEffects()
		buf.WriteString("\nPeak effects:\n")
		for _, name := range res.Results.Variables() {
			p := peaks[name]
			buf.WriteString(fmt.Sprintf("  %-24s %+.4f at period %d\n", name, p.Deviation, p.Period))
		}

		if len(res.Invariants) > 0 {
			buf.WriteString("\nInvariants:\n")
			for _, inv := range res.Invariants {
				status := "FAIL"
				if inv.Passed {
					status = "PASS"
				}
				buf.WriteString(fmt.Sprintf("[%s] %s %s: Expected %s, Got %s\n", status, inv.Metric, inv.Variable, inv.Expected, inv.Actual))
			}
		}
		output = buf.Bytes()
	}

	writeOutput(output, filePath)
}

func writeCSVReport(reportType reports.ReportType, results *engine.Results, filePath string) {
	gen, err := reports.NewReportGenerator(reportType)
	if err != nil {
		log.Fatalf("Failed to create %s report: %v", reportType, err)
	}
	reader, err := gen.Generate(context.Background(), results, reports.ReportParams{})
	if err != nil {
		log.Fatalf("Failed to generate %s report: %v", reportType, err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		log.Fatalf("Failed to read %s report: %v", reportType, err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		log.Fatalf("Failed to write %s report to %s: %v", reportType, filePath, err)
	}
	slog.Info("report written", "type", string(reportType), "path", filePath)
}

func writeOutput(output []byte, filePath string) {
	if filePath != "" {
		if err := os.WriteFile(filePath, output, 0644); err != nil {
			log.Fatalf("Failed to write report to %s: %v", filePath, err)
		}
		fmt.Printf("Report written to %s\n", filePath)
	} else {
		fmt.Println(string(output))
	}
}

func mustMarshal(v any) []byte {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal report: %v", err)
	}
	return output
}

func sortedKeys(m map[string]engine.ScenarioSummary) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
