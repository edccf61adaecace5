package render

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/atlasmap-sc/voxelizer/internal/octree"
)

// KernelInput is the read-only state shared by every slab evaluation.
type KernelInput struct {
	Span      int
	VoxelSize float64
	NodeCount int
	Dims      octree.Dims
	Origin    r3.Vector
	Flat      *octree.Flat
}

// Kernel evaluates the density of every voxel in slices [zBegin, zEnd).
// dst holds exactly those slices, row-major with x fastest. Implementations
// must not touch anything but dst, and must treat in as read-only.
type Kernel interface {
	Evaluate(zBegin, zEnd int, in *KernelInput, dst []float32)
}

// KernelFunc adapts a function to the Kernel interface.
type KernelFunc func(zBegin, zEnd int, in *KernelInput, dst []float32)

// Evaluate calls f.
func (f KernelFunc) Evaluate(zBegin, zEnd int, in *KernelInput, dst []float32) {
	f(zBegin, zEnd, in, dst)
}

// DensityKernel sums, for each voxel center, the values of the leaves within
// (span + 0.5) voxels, each attenuated by 1 / (1 + (d / voxelSize)^2).
// Subtrees whose bounding sphere lies entirely beyond that radius are pruned.
type DensityKernel struct{}

type flatRef struct {
	level int
	i     int
}

// Evaluate implements Kernel.
func (DensityKernel) Evaluate(zBegin, zEnd int, in *KernelInput, dst []float32) {
	f := in.Flat
	if f == nil || f.Levels() == 0 {
		return
	}
	voxel := in.VoxelSize
	radius := (float64(in.Span) + 0.5) * voxel
	top := f.MaxLevel()

	halfDiag := make([]float64, top+1)
	for l := range halfDiag {
		halfDiag[l] = voxel * float64(int(1)<<l) * math.Sqrt(3) / 2
	}

	nx, ny := in.Dims.X, in.Dims.Y
	stack := make([]flatRef, 0, 64)
	for z := zBegin; z < zEnd; z++ {
		pz := in.Origin.Z + (float64(z)+0.5)*voxel
		for y := 0; y < ny; y++ {
			py := in.Origin.Y + (float64(y)+0.5)*voxel
			row := ((z-zBegin)*ny + y) * nx
			for x := 0; x < nx; x++ {
				px := in.Origin.X + (float64(x)+0.5)*voxel

				var acc float64
				stack = stack[:0]
				for i := 0; i < f.Count(top); i++ {
					stack = append(stack, flatRef{top, i})
				}
				for len(stack) > 0 {
					ref := stack[len(stack)-1]
					stack = stack[:len(stack)-1]

					cx, cy, cz, v := f.Entry(ref.level, ref.i)
					dx, dy, dz := px-float64(cx), py-float64(cy), pz-float64(cz)
					d := math.Sqrt(dx*dx + dy*dy + dz*dz)
					if d-halfDiag[ref.level] > radius {
						continue
					}
					if start, end, ok := f.Children(ref.level, ref.i); ok {
						for c := start; c <= end; c++ {
							stack = append(stack, flatRef{ref.level - 1, int(c)})
						}
						continue
					}
					if d <= radius {
						r := d / voxel
						acc += float64(v) / (1 + r*r)
					}
				}
				dst[row+x] = float32(acc)
			}
		}
	}
}
