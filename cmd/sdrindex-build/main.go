// Command sdrindex-build runs the batch merge-and-index engine: it reads
// a YAML config naming input chunks and an output directory, classifies
// records into bands, and seals each band's waterfall/summary/tier/
// manifest artifacts (spec.md §6).
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cwsl/sdrindex/internal/build"
	"github.com/cwsl/sdrindex/internal/decoder"
	"github.com/cwsl/sdrindex/internal/metrics"
	"github.com/cwsl/sdrindex/internal/registry"
)

// Exit codes, per spec.md §6.
const (
	exitSuccess      = 0
	exitInputMissing = 2
	exitDecodeFatal  = 3
	exitIOFailure    = 4
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the batch configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("sdrindex-build: %v", err)
	}
	if *debug {
		log.Printf("sdrindex-build: loaded config from %s: %d chunk(s) -> %s", *configFile, len(cfg.Input.Chunks), cfg.Output.Dir)
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		log.Fatalf("sdrindex-build: create output dir %s: %v", cfg.Output.Dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("sdrindex-build: signal received, cancelling in-flight bands")
		cancel()
	}()

	reg := registry.New()
	promReg := prometheus.NewRegistry()
	buildMetrics := metrics.NewBuild(promReg)

	opts := build.Options{
		OutDir:        cfg.Output.Dir,
		GridTolerance: cfg.Band.GridTolerance,
		ReservoirCap:  cfg.Band.ReservoirCap,
		TierCap:       cfg.Band.TierCap,
		Seed:          cfg.Band.Seed,
	}

	result, err := build.Run(ctx, decoder.JSONLOpener{}, cfg.Input.Chunks, reg, buildMetrics, opts)
	cancel()
	if err != nil {
		var buildErr *build.Error
		code := exitIOFailure
		if errors.As(err, &buildErr) {
			switch buildErr.Kind {
			case build.InputMissing:
				code = exitInputMissing
			case build.DecodeFatal:
				code = exitDecodeFatal
			default:
				code = exitIOFailure
			}
		}
		log.Printf("sdrindex-build: run failed: %v", err)
		os.Exit(code)
	}

	log.Printf("sdrindex-build: sealed %d band(s), %d failed/dropped", result.BandsSealed, result.BandsFailed)
	if cfg.Metrics.Enabled && cfg.Metrics.TextfilePath != "" {
		if err := writeMetricsTextfile(promReg, cfg.Metrics.TextfilePath); err != nil {
			log.Printf("sdrindex-build: metrics textfile write failed: %v", err)
		}
	}

	os.Exit(exitSuccess)
}
