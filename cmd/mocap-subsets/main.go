// Command mocap-subsets lists the sensor subsets admitted by the configured
// usage rules, smallest first.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/banshee-data/mocap.features/internal/config"
	"github.com/banshee-data/mocap.features/internal/mocap/subsets"
	"github.com/banshee-data/mocap.features/internal/version"
)

type options struct {
	configPath string
	sensors    string
	workers    int
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Pipeline config JSON (defaults apply when empty)")
	flag.StringVar(&opts.sensors, "sensors", "", "Comma-separated sensor universe (defaults to the config sensors)")
	flag.IntVar(&opts.workers, "workers", 0, "Generator workers (0 uses the config value)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("mocap-subsets"))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatalf("mocap-subsets: %v", err)
	}
}

// parseSensors splits a comma-separated list, dropping blanks.
func parseSensors(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func run(ctx context.Context, opts options, w io.Writer) error {
	cfg := config.EmptyPipelineConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.LoadPipelineConfig(opts.configPath); err != nil {
			return err
		}
	}
	rules, err := cfg.SubsetRules()
	if err != nil {
		return err
	}

	labels := parseSensors(opts.sensors)
	if len(labels) == 0 {
		labels = cfg.GetSensors()
	}
	workers := opts.workers
	if workers <= 0 {
		workers = cfg.GetWorkers()
	}

	gen := &subsets.Generator{Universe: subsets.NewUniverse(labels), Rules: rules, Workers: workers}
	found, err := gen.Generate(ctx)
	if err != nil {
		return err
	}
	for _, s := range found {
		if _, err := fmt.Fprintln(w, s.String()); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "%d admissible subsets of %d sensors\n", len(found), len(gen.Universe))
	return err
}
