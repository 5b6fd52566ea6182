// Command mocap-extract turns a directory of capture files into a
// windowed feature dataset.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/mocap.features/internal/config"
	"github.com/banshee-data/mocap.features/internal/fsutil"
	"github.com/banshee-data/mocap.features/internal/mocap/diagnostics"
	"github.com/banshee-data/mocap.features/internal/mocap/export"
	"github.com/banshee-data/mocap.features/internal/mocap/features"
	"github.com/banshee-data/mocap.features/internal/mocap/ingest"
	"github.com/banshee-data/mocap.features/internal/mocap/recording"
	"github.com/banshee-data/mocap.features/internal/mocap/storage/sqlite"
	"github.com/banshee-data/mocap.features/internal/monitoring"
	"github.com/banshee-data/mocap.features/internal/security"
	"github.com/banshee-data/mocap.features/internal/version"
)

type options struct {
	configPath string
	input      string
	output     string
	dbPath     string
	workers    int
	plotDir    string
	yieldChart string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Pipeline config JSON (defaults apply when empty)")
	flag.StringVar(&opts.input, "input", "", "Directory of capture files")
	flag.StringVar(&opts.output, "output", "features.csv", "Output dataset CSV")
	flag.StringVar(&opts.dbPath, "db", "", "SQLite database to persist the run into (optional)")
	flag.IntVar(&opts.workers, "workers", 0, "Extraction workers (0 uses the config value)")
	flag.StringVar(&opts.plotDir, "plot-dir", "", "Directory for per-recording height plots (optional)")
	flag.StringVar(&opts.yieldChart, "yield-chart", "", "HTML window yield chart output (optional)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("mocap-extract"))
		return
	}

	if opts.input == "" {
		log.Fatalf("-input is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, fsutil.OSFileSystem{}); err != nil {
		log.Fatalf("mocap-extract: %v", err)
	}
}

func loadConfig(path string) (*config.PipelineConfig, error) {
	if path == "" {
		return config.EmptyPipelineConfig(), nil
	}
	return config.LoadPipelineConfig(path)
}

func run(ctx context.Context, opts options, fsys fsutil.FileSystem) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	fc, err := cfg.FeatureConfig()
	if err != nil {
		return err
	}
	pipeline, err := features.NewPipeline(fc)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	recs, loadStats, err := ingest.LoadDir(fsys, opts.input, cfg.GetBounds())
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return fmt.Errorf("no recordings found in %s", opts.input)
	}

	if opts.plotDir != "" {
		if err := writeHeightPlots(fsys, opts.plotDir, recs); err != nil {
			return err
		}
	}

	workers := opts.workers
	if workers <= 0 {
		workers = cfg.GetWorkers()
	}
	counters := monitoring.NewCounters()
	ex := &features.Extractor{
		Pipeline:   pipeline,
		WindowSize: cfg.GetWindowSize(),
		Step:       cfg.GetStep(),
		Workers:    workers,
		Counters:   counters,
	}
	ds, err := ex.Run(ctx, recs)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	counters.Add("rows_skipped", int64(loadStats.RowsSkipped))
	counters.Add("files_skipped", int64(loadStats.FilesSkipped))

	if err := writeDataset(fsys, opts.output, pipeline, ds); err != nil {
		return err
	}
	log.Printf("Wrote %d rows x %d columns to %s", len(ds.Rows), pipeline.Width(), opts.output)

	if opts.yieldChart != "" {
		if err := writeYieldChart(fsys, opts.yieldChart, ds.Yield); err != nil {
			return err
		}
	}

	if opts.dbPath != "" {
		runID, err := persist(opts, cfg, ex, ds)
		if err != nil {
			return err
		}
		log.Printf("Persisted run %s to %s", runID, opts.dbPath)
	}

	counters.LogSummary("mocap-extract: ")
	return nil
}

func writeHeightPlots(fsys fsutil.FileSystem, dir string, recs []*recording.Recording) error {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create plot directory: %w", err)
	}
	for _, rec := range recs {
		name, err := security.JoinWithin(dir, diagnostics.HeightPlotName(rec))
		if err != nil {
			return err
		}
		f, err := fsys.Create(name)
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		err = diagnostics.WriteHeightPlot(f, rec)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("plot %s: %w", name, err)
		}
	}
	return nil
}

func writeDataset(fsys fsutil.FileSystem, path string, p *features.Pipeline, ds *features.Dataset) (err error) {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return export.WriteCSV(f, p, ds)
}

func writeYieldChart(fsys fsutil.FileSystem, path string, yield []features.RecordingYield) (err error) {
	entries := make([]diagnostics.YieldEntry, len(yield))
	for i, y := range yield {
		entries[i] = diagnostics.YieldEntry{
			Label:     y.Subject + "/" + y.Activity,
			Kept:      y.Stats.Windows,
			Discarded: y.Stats.Discarded,
			Skipped:   y.Stats.Skipped,
		}
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create yield chart: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return diagnostics.WindowYieldChart(f, entries)
}

func persist(opts options, cfg *config.PipelineConfig, ex *features.Extractor, ds *features.Dataset) (string, error) {
	db, err := sqlite.Open(opts.dbPath)
	if err != nil {
		return "", err
	}
	defer db.Close()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	run := &sqlite.Run{
		InputDir:   opts.input,
		WindowSize: ex.WindowSize,
		Step:       ex.Step,
		ConfigJSON: cfgJSON,
		Stats:      ds.Stats,
	}
	if err := sqlite.NewRunStore(db.DB, nil).Insert(run); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	if err := sqlite.NewFeatureStore(db.DB).Save(run.RunID, ds); err != nil {
		return "", fmt.Errorf("save features for run %s: %w", run.RunID, err)
	}
	return run.RunID, nil
}
