package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/atlasmap-sc/voxelizer/internal/octree"
)

// SlabDepth is the number of z slices evaluated per kernel call.
const SlabDepth = 8

// Config contains rasterizer configuration.
type Config struct {
	// Workers bounds the number of slabs evaluated concurrently.
	Workers int
	// Progress receives "NN%\r" updates; nil discards them.
	Progress io.Writer
}

// Rasterizer drives a Kernel over a dense grid in z slabs. It holds no
// per-run state, so concurrent Rasterize calls are safe.
type Rasterizer struct {
	kernel  Kernel
	workers int
	out     io.Writer
}

// progress prints completion percentages for one Rasterize call.
type progress struct {
	out   io.Writer
	total int64
	done  *atomic.Int64

	mu   sync.Mutex
	last int
}

// NewRasterizer creates a rasterizer for the given kernel.
func NewRasterizer(k Kernel, cfg Config) *Rasterizer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Progress == nil {
		cfg.Progress = io.Discard
	}
	return &Rasterizer{
		kernel:  k,
		workers: cfg.Workers,
		out:     cfg.Progress,
	}
}

// Rasterize evaluates every slab of the grid described by in and returns the
// dense grid. Slabs own disjoint regions of the grid, so they are dispatched
// to up to Workers goroutines; in is shared read-only.
func (r *Rasterizer) Rasterize(ctx context.Context, in *KernelInput) ([]float32, error) {
	if in.Flat == nil {
		return nil, errors.New("rasterize: missing flattened index")
	}
	if in.Flat.NodeCount() != in.NodeCount {
		return nil, fmt.Errorf("rasterize: flattened index holds %d nodes, expected %d", in.Flat.NodeCount(), in.NodeCount)
	}
	dims := in.Dims
	if dims.X <= 0 || dims.Y <= 0 || dims.Z <= 0 {
		return nil, fmt.Errorf("rasterize: invalid grid dimensions %v", dims)
	}
	if float64(dims.X)*float64(dims.Y)*float64(dims.Z) > octree.MaxCells {
		return nil, fmt.Errorf("rasterize: %w: %v exceeds %d cells", octree.ErrGridTooLarge, dims, octree.MaxCells)
	}

	plane := dims.X * dims.Y
	grid := make([]float32, plane*dims.Z)
	slabs := (dims.Z + SlabDepth - 1) / SlabDepth

	prog := &progress{out: r.out, total: int64(slabs), done: atomic.NewInt64(0), last: -1}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
dispatch:
	for s := 0; s < slabs; s++ {
		select {
		case <-gctx.Done():
			break dispatch
		default:
		}

		zBegin := s * SlabDepth
		zEnd := min(zBegin+SlabDepth, dims.Z)
		dst := grid[zBegin*plane : zEnd*plane]
		g.Go(func() error {
			r.kernel.Evaluate(zBegin, zEnd, in, dst)
			prog.step()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prog.finish()
	return grid, nil
}

// step records a finished slab; printed values never decrease.
func (p *progress) step() {
	pct := int(p.done.Inc() * 100 / p.total)
	p.mu.Lock()
	defer p.mu.Unlock()
	if pct > p.last {
		fmt.Fprintf(p.out, "%d%%\r", pct)
		p.last = pct
	}
}

func (p *progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out)
}
