// Package main runs the segmentation engine over a single EDF file and
// prints the resulting segment table, without touching the catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/neurovault/neurovault-server/internal/edf"
	"github.com/neurovault/neurovault-server/internal/segment"
)

func main() {
	mode := flag.String("mode", "pairs", "Segmentation mode: boundary, pairs, grouped")
	minDuration := flag.Float64("min-duration", 5.0, "Minimum segment duration in seconds")
	workers := flag.Int("workers", 4, "Worker pool size")
	shortNames := flag.Bool("short-names", false, "Use truncated-prefix segment names")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: segtest [flags] <file.edf>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	path := flag.Arg(0)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	rec, err := edf.Open(path, edf.Options{})
	if err != nil {
		logger.Error("open failed", "path", path, "error", err)
		os.Exit(1)
	}

	fmt.Printf("File:        %s\n", rec.Path())
	fmt.Printf("Patient:     %s\n", rec.Patient().Name)
	fmt.Printf("Start:       %s\n", rec.StartTime().Format(time.RFC3339))
	fmt.Printf("Duration:    %.1f s\n", rec.DurationSeconds())
	fmt.Printf("Sample rate: %.1f Hz\n", rec.SampleRate())
	fmt.Printf("Channels:    %d\n", len(rec.ChannelNames()))
	fmt.Printf("Events:      %d\n\n", len(rec.Events()))

	cfg := segment.Config{
		Mode:               segment.ParseMode(*mode),
		MinSegmentDuration: *minDuration,
		Workers:            *workers,
		ShortNames:         *shortNames,
	}
	eng := segment.New(cfg, nil, logger)
	if err := eng.Load(rec); err != nil {
		logger.Error("load failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := eng.Process(ctx)
	if err != nil {
		logger.Error("segmentation failed", "error", err)
		os.Exit(1)
	}

	fmt.Println("=== Segments ===")
	for _, seg := range result.Segments() {
		fmt.Printf("%-40s %8.1f .. %8.1f  (%6.1f s)\n",
			seg.Name, seg.Start, seg.End, seg.Duration())
	}
	if result.Len() == 0 {
		fmt.Printf("(none)")
		if result.Stats.Reason != "" {
			fmt.Printf("  reason: %s", result.Stats.Reason)
		}
		fmt.Println()
	}

	fmt.Printf("\nEvents total/valid/excluded: %d/%d/%d\n",
		result.Stats.EventsTotal, result.Stats.EventsValid, result.Stats.EventsExcluded)
	fmt.Printf("Dropped short: %d\n", result.Stats.DroppedShort)
	if len(result.Failures) > 0 {
		fmt.Printf("Crop failures: %d\n", len(result.Failures))
		for _, f := range result.Failures {
			fmt.Printf("  %.1f .. %.1f: %v\n", f.Start, f.End, f.Err)
		}
	}
}
