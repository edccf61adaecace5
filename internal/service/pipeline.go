// Package service wires the voxelizer stages into one conversion run:
// ingestion, bounds, spatial index, flattening, rasterization, quantization
// and output.
package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/atlasmap-sc/voxelizer/internal/bounds"
	"github.com/atlasmap-sc/voxelizer/internal/config"
	"github.com/atlasmap-sc/voxelizer/internal/data/events"
	"github.com/atlasmap-sc/voxelizer/internal/octree"
	"github.com/atlasmap-sc/voxelizer/internal/render"
	"github.com/atlasmap-sc/voxelizer/internal/volume"
	"github.com/atlasmap-sc/voxelizer/pkg/colormap"
)

// PreviewSuffix is appended to the output path to name the preview image.
const PreviewSuffix = ".png"

// PipelineConfig contains pipeline configuration.
type PipelineConfig struct {
	Run       config.Run
	Workers   int
	ZeroCells volume.ZeroCells

	Preview         bool
	PreviewColormap string

	// Kernel evaluates voxel densities; nil selects render.DensityKernel.
	Kernel render.Kernel
	// Progress receives rasterization progress; nil discards it.
	Progress io.Writer
}

// Pipeline runs one point cloud to volume conversion.
type Pipeline struct {
	cfg        PipelineConfig
	rasterizer *render.Rasterizer
	preview    *render.PreviewRenderer
}

// Result summarizes a finished run.
type Result struct {
	Events        int
	TrailingBytes int
	Skipped       int
	Tight         bounds.Box
	Expanded      bounds.Box
	Dims          octree.Dims
	NodeCount     int
	Range         volume.Range
	Header        volume.Header
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Kernel == nil {
		cfg.Kernel = render.DensityKernel{}
	}
	p := &Pipeline{
		cfg: cfg,
		rasterizer: render.NewRasterizer(cfg.Kernel, render.Config{
			Workers:  cfg.Workers,
			Progress: cfg.Progress,
		}),
	}
	if cfg.Preview {
		p.preview = render.NewPreviewRenderer(cfg.PreviewColormap)
	}
	return p
}

// NewPipelineFromConfig builds a pipeline from parsed arguments and tuning config.
func NewPipelineFromConfig(run config.Run, cfg *config.Config, progress io.Writer) *Pipeline {
	zero := volume.ZeroCellsNoData
	if cfg.Quantize.ZeroCells == config.ZeroCellsLegacy {
		zero = volume.ZeroCellsLegacy
	}
	return NewPipeline(PipelineConfig{
		Run:             run,
		Workers:         cfg.Render.Workers,
		ZeroCells:       zero,
		Preview:         cfg.Preview.Enabled,
		PreviewColormap: cfg.Preview.Colormap,
		Progress:        progress,
	})
}

// Run executes the conversion. Every failure aborts the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	run := p.cfg.Run
	res := &Result{}

	// Resolve the preview colormap before anything is written
	if p.preview != nil {
		if _, ok := colormap.ByName(p.cfg.PreviewColormap); !ok {
			return nil, fmt.Errorf("unknown preview colormap %q (available: %s)",
				p.cfg.PreviewColormap, strings.Join(colormap.Names(), ", "))
		}
	}

	// Ingest events
	set, err := events.ReadFile(run.InputPath)
	if err != nil {
		return nil, err
	}
	res.Events = len(set.Events)
	res.TrailingBytes = set.TrailingBytes
	if set.TrailingBytes > 0 {
		log.Printf("[Voxelizer] WARNING: %s ends with a partial record, discarded %d of %d bytes",
			run.InputPath, set.TrailingBytes, events.RecordSize)
	}

	// Bound the weighted events and build the index over the expanded box
	res.Tight, err = bounds.FromEvents(set.Events)
	if err != nil {
		return nil, fmt.Errorf("input %s (%d events): %w", run.InputPath, len(set.Events), err)
	}
	res.Expanded = res.Tight.Expand(bounds.MarginFactor)

	idx, err := octree.Build(set.Events, run.VoxelSize, res.Expanded.Min, res.Expanded.Max)
	if err != nil {
		return nil, fmt.Errorf("failed to build spatial index: %w", err)
	}
	res.Dims = idx.Dims()
	res.NodeCount = idx.NodeCount()
	res.Skipped = idx.Skipped()
	res.Header = volume.NewHeader(res.Dims, res.Expanded.Min, res.Tight.Size(), run.OutputPath)

	p.logSummary(res, idx)

	// Flatten and rasterize
	flat := octree.NewFlat(idx.LevelCounts())
	if err := octree.Flatten(idx.Root(), idx.MaxLevel(), flat); err != nil {
		return nil, fmt.Errorf("failed to flatten spatial index: %w", err)
	}

	grid, err := p.rasterizer.Rasterize(ctx, &render.KernelInput{
		Span:      run.Span,
		VoxelSize: run.VoxelSize,
		NodeCount: idx.NodeCount(),
		Dims:      res.Dims,
		Origin:    idx.Origin(),
		Flat:      flat,
	})
	if err != nil {
		return nil, fmt.Errorf("rasterization failed: %w", err)
	}

	// Normalize, quantize and write
	res.Range, err = volume.FindRange(grid)
	if err != nil {
		return nil, fmt.Errorf("cannot normalize %s: %w", run.InputPath, err)
	}
	log.Printf("[Voxelizer] Normalization [%g - %g] %g", res.Range.Min, res.Range.Max, res.Range.Scale())

	data := volume.Quantize(grid, res.Range, p.cfg.ZeroCells)
	if err := volume.Write(run.OutputPath, data, res.Header); err != nil {
		return nil, err
	}
	log.Printf("[Voxelizer] Wrote %s (%s) and %s", run.OutputPath,
		humanize.Bytes(uint64(len(data))), run.OutputPath+volume.HeaderSuffix)

	if p.preview != nil {
		if err := p.writePreview(data, res.Dims); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (p *Pipeline) writePreview(data []byte, dims octree.Dims) error {
	img, err := p.preview.RenderProjection(data, dims, p.cfg.PreviewColormap)
	if err != nil {
		return fmt.Errorf("failed to render preview: %w", err)
	}
	path := p.cfg.Run.OutputPath + PreviewSuffix
	if err := volume.WriteFileAtomic(path, img); err != nil {
		return fmt.Errorf("failed to write preview %s: %w", path, err)
	}
	log.Printf("[Voxelizer] Wrote preview %s", path)
	return nil
}

func (p *Pipeline) logSummary(res *Result, idx *octree.Index) {
	run := p.cfg.Run
	e := res.Expanded
	size := res.Tight.Size()
	log.Printf("[Voxelizer] Element spacing   : %g", run.VoxelSize)
	log.Printf("[Voxelizer] Span              : %d", run.Span)
	log.Printf("[Voxelizer] Input file        : %s (%d events)", run.InputPath, res.Events)
	log.Printf("[Voxelizer] Output file       : %s", run.OutputPath)
	log.Printf("[Voxelizer] Scene AABB        : [%g,%g,%g] [%g,%g,%g]", e.Min.X, e.Min.Y, e.Min.Z, e.Max.X, e.Max.Y, e.Max.Z)
	log.Printf("[Voxelizer] Scene size        : [%g,%g,%g]", size.X, size.Y, size.Z)
	log.Printf("[Voxelizer] Volume dimensions : %v %s", res.Dims, humanize.Bytes(idx.VolumeSize()))
	log.Printf("[Voxelizer] Octree            : %d levels, %s nodes", idx.MaxLevel()+1, humanize.Comma(int64(idx.NodeCount())))
	if res.Skipped > 0 {
		log.Printf("[Voxelizer] Skipped %d events outside the volume", res.Skipped)
	}
}
