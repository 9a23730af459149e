package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"isoslicer/pkg/config"
	"isoslicer/pkg/slicer"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", defaultConfigPath(), "Path to the YAML config with persisted defaults")
	inputDir := flag.String("input", "", "Directory containing the 2D slice images of the stack")
	outDir := flag.String("out-dir", "", "Directory to save the xy/zx/zy slice sequences")
	zAxis := flag.String("z-axis", "", "Z axis: 'first'|'last'|signed index")
	cAxis := flag.String("c-axis", "", "Channel axis: 'none'|'first'|'last'|signed index")
	zAspect := flag.Float64("z-aspect", 0, "zSpacing / xySpacing (e.g. 5.0)")
	mode := flag.String("mode", "", "Interpolation along Z: 'labels' or 'image'")
	skipEmpty := flag.Bool("skip-empty", false, "Skip all-zero tiles")
	parallel := flag.Bool("parallel", false, "Export the three slice directions concurrently")
	flag.Parse()

	// Settings not given on the command line fall back to the persisted
	// configuration.
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["input"] {
		*inputDir = cfg.LastInput
	}
	if !set["out-dir"] {
		*outDir = cfg.Output.Dir
	}
	if !set["z-axis"] {
		*zAxis = cfg.Slicing.ZAxis
	}
	if !set["c-axis"] {
		*cAxis = cfg.Slicing.CAxis
	}
	if !set["z-aspect"] {
		*zAspect = cfg.Slicing.ZAspect
	}
	if !set["mode"] {
		*mode = cfg.Slicing.Mode
	}
	if !set["skip-empty"] {
		*skipEmpty = cfg.Output.SkipEmpty
	}
	if !set["parallel"] {
		*parallel = cfg.Output.Parallel
	}

	// Validate inputs
	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	fmt.Println("================================")
	fmt.Println("ISOTROPIC SLICER FOR VOLUMETRIC Z-STACKS")
	fmt.Println("================================")

	params := &slicer.Params{
		InputDir:  *inputDir,
		OutDir:    *outDir,
		ZAxis:     *zAxis,
		CAxis:     *cAxis,
		ZAspect:   *zAspect,
		Mode:      *mode,
		SkipEmpty: *skipEmpty,
		Parallel:  *parallel,
		Progress: func(done, total int, note string) {
			fmt.Printf("\r[%d/%d] %-16s", done, total, note)
		},
	}

	result, err := slicer.NewSlicer(params).Process()
	if err != nil {
		log.Fatalf("Slicing failed: %v", err)
	}
	fmt.Println()

	fmt.Printf("\nDone. Saved XY/ZX/ZY slices to: %s\n", result.OutDir)
	if result.C > 0 {
		fmt.Printf("Z=%d, Y=%d, X=%d, C=%d; channels=%s\n", result.Z, result.Y, result.X, result.C, result.Placement)
	} else {
		fmt.Printf("Z=%d, Y=%d, X=%d\n", result.Z, result.Y, result.X)
	}
	fmt.Printf("Interpolation engine: %s; tiles written: %d, skipped: %d\n", result.Engine, result.Written, result.Skipped)

	// Persist the settings that produced this run.
	cfg.Slicing.ZAxis = *zAxis
	cfg.Slicing.CAxis = *cAxis
	cfg.Slicing.ZAspect = *zAspect
	cfg.Slicing.Mode = *mode
	cfg.Output.Dir = *outDir
	cfg.Output.SkipEmpty = *skipEmpty
	cfg.Output.Parallel = *parallel
	cfg.LastInput = *inputDir
	if err := config.SaveConfig(cfg, *configPath); err != nil {
		log.Printf("Warning: failed to save config: %v", err)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".isoslicer.yaml"
	}
	return filepath.Join(home, ".isoslicer.yaml")
}
