// Package main is the entry point for the voxelizer, which converts a binary
// point cloud of weighted events into an 8-bit MetaImage volume.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/atlasmap-sc/voxelizer/internal/config"
	"github.com/atlasmap-sc/voxelizer/internal/service"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	runCfg, err := config.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, config.Usage)
		if len(args) == 4 {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logCloser := cfg.Log.SetLogger()
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := service.NewPipelineFromConfig(runCfg, cfg, os.Stdout)
	if _, err := pipeline.Run(ctx); err != nil {
		log.Printf("[Voxelizer] conversion failed: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
