package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lungprep/pkg/config"
	"lungprep/pkg/pipeline"
)

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing one subdirectory per patient")
	configPath := flag.String("config", "lungprep.yaml", "Path to YAML configuration file")
	outputDir := flag.String("output", "", "Output directory (overrides config)")
	workers := flag.Int("workers", 0, "Number of patients to process concurrently (overrides config)")
	previews := flag.Bool("previews", false, "Save per-slice preview PNGs of the segmented CT")
	quiet := flag.Bool("quiet", false, "Suppress per-stage progress output")
	flag.Parse()

	// Validate inputs
	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *workers > 0 {
		cfg.Processing.Workers = *workers
	}
	if *previews {
		cfg.Output.SavePreviews = true
	}
	if *quiet {
		cfg.Output.Verbose = false
	}

	fmt.Println("================================")
	fmt.Println("LUNGPREP: CT/PET ISOTROPIC RESAMPLING AND LUNG SEGMENTATION")
	fmt.Println("================================")

	patients, err := pipeline.DiscoverPatients(*inputDir)
	if err != nil {
		log.Fatalf("Failed to discover patients: %v", err)
	}
	if len(patients) == 0 {
		log.Fatalf("No patient directories found in %s", *inputDir)
	}
	fmt.Printf("Found %d patient(s) in %s\n", len(patients), *inputDir)
	fmt.Printf("Processing with %d worker(s), output to %s\n", cfg.Processing.Workers, cfg.Output.Dir)

	// Ctrl-C stops the batch at the next stage boundary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startTime := time.Now()
	results := pipeline.New(cfg).Run(ctx, patients)
	totalTime := time.Since(startTime)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Printf("FAILED  %-20s %v\n", res.Patient.ID, res.Err)
		} else {
			fmt.Printf("OK      %-20s %.2fs\n", res.Patient.ID, res.Duration.Seconds())
		}
	}

	fmt.Printf("\nProcessed %d/%d patient(s) in %.2f seconds\n",
		len(results)-failed, len(results), totalTime.Seconds())
	if failed > 0 {
		os.Exit(1)
	}
}
