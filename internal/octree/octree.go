// Package octree implements the hierarchical spatial index over the events and
// its serialization into flat, level-partitioned arrays.
//
// Level 0 is the leaf tier: its cells are one voxel wide. A cell at level L
// spans 2^L voxels per axis, and the single root sits at MaxLevel.
package octree

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sort"

	"github.com/golang/geo/r3"

	"github.com/atlasmap-sc/voxelizer/internal/data/events"
)

// GridAlignment is the boundary each non-degenerate grid axis is rounded up to.
const GridAlignment = 8

// MaxCells bounds the dense grid a run may allocate.
const MaxCells = 1 << 31

// ErrEmptyIndex is returned when no event falls inside the grid.
var ErrEmptyIndex = errors.New("no event inside the index bounds")

// ErrGridTooLarge is returned when the grid would exceed MaxCells.
var ErrGridTooLarge = errors.New("grid too large")

// Dims holds grid dimensions in voxels.
type Dims struct {
	X, Y, Z int
}

// Cells returns the number of grid cells.
func (d Dims) Cells() int { return d.X * d.Y * d.Z }

// Max returns the largest dimension.
func (d Dims) Max() int { return max(d.X, d.Y, d.Z) }

func (d Dims) String() string { return fmt.Sprintf("[%d, %d, %d]", d.X, d.Y, d.Z) }

// GridDims returns the grid dimensions covering a box of the given size.
// An axis with zero extent gets a single voxel; any other axis is rounded up
// to a multiple of GridAlignment.
func GridDims(size r3.Vector, voxelSize float64) Dims {
	axis := func(extent float64) int {
		if !(extent > 0) {
			return 1
		}
		n := int(math.Ceil(extent / voxelSize))
		if n < 1 {
			n = 1
		}
		return (n + GridAlignment - 1) / GridAlignment * GridAlignment
	}
	return Dims{X: axis(size.X), Y: axis(size.Y), Z: axis(size.Z)}
}

// CheckGrid rejects boxes whose grid at voxelSize would exceed MaxCells.
// The product is taken in floating point so it cannot overflow.
func CheckGrid(size r3.Vector, voxelSize float64) error {
	axis := func(extent float64) float64 {
		if !(extent > 0) {
			return 1
		}
		return math.Ceil(math.Ceil(extent/voxelSize)/GridAlignment) * GridAlignment
	}
	x, y, z := axis(size.X), axis(size.Y), axis(size.Z)
	if cells := x * y * z; !(cells <= MaxCells) {
		return fmt.Errorf("%w: [%.0f, %.0f, %.0f] voxels of size %v exceed %d cells",
			ErrGridTooLarge, x, y, z, voxelSize, MaxCells)
	}
	return nil
}

// Node is one cell of the index.
type Node struct {
	Center   r3.Vector
	Value    float64
	Children []*Node
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Index is the built spatial index.
type Index struct {
	origin      r3.Vector
	voxelSize   float64
	dims        Dims
	maxLevel    int
	root        *Node
	levelCounts []int
	skipped     int
}

type cellKey struct {
	x, y, z int
}

func (k cellKey) parent() cellKey { return cellKey{k.x >> 1, k.y >> 1, k.z >> 1} }

func (k cellKey) less(o cellKey) bool {
	if k.z != o.z {
		return k.z < o.z
	}
	if k.y != o.y {
		return k.y < o.y
	}
	return k.x < o.x
}

// Build bins the events into an octree spanning [minP, maxP] with leaf cells
// of voxelSize. Events outside the box are skipped and counted.
func Build(evs []events.Event, voxelSize float64, minP, maxP r3.Vector) (*Index, error) {
	if !(voxelSize > 0) {
		return nil, fmt.Errorf("invalid voxel size %v", voxelSize)
	}

	if err := CheckGrid(maxP.Sub(minP), voxelSize); err != nil {
		return nil, err
	}
	dims := GridDims(maxP.Sub(minP), voxelSize)
	maxLevel := bits.Len(uint(pow2RoundUp(dims.Max()) - 1))

	levels := make([]map[cellKey]*Node, maxLevel+1)
	for l := range levels {
		levels[l] = make(map[cellKey]*Node)
	}

	idx := &Index{
		origin:    minP,
		voxelSize: voxelSize,
		dims:      dims,
		maxLevel:  maxLevel,
	}

	for _, e := range evs {
		key, ok := idx.cellOf(r3.Vector{X: float64(e.X), Y: float64(e.Y), Z: float64(e.Z)}, maxP)
		if !ok {
			idx.skipped++
			continue
		}
		for l := 0; l <= maxLevel; l++ {
			n, ok := levels[l][key]
			if !ok {
				n = &Node{Center: idx.cellCenter(key, l)}
				levels[l][key] = n
			}
			n.Value += float64(e.Weight)
			key = key.parent()
		}
	}

	if len(levels[maxLevel]) == 0 {
		return nil, ErrEmptyIndex
	}

	// Link bottom-up in key order so the tree shape is deterministic.
	for l := 0; l < maxLevel; l++ {
		keys := sortedKeys(levels[l])
		for _, k := range keys {
			parent := levels[l+1][k.parent()]
			parent.Children = append(parent.Children, levels[l][k])
		}
	}

	idx.levelCounts = make([]int, maxLevel+1)
	for l := range levels {
		idx.levelCounts[l] = len(levels[l])
	}
	for _, n := range levels[maxLevel] {
		idx.root = n
	}
	return idx, nil
}

func (idx *Index) cellOf(p, maxP r3.Vector) (cellKey, bool) {
	axis := func(v, lo, hi float64, n int) (int, bool) {
		if v < lo || v > hi || math.IsNaN(v) {
			return 0, false
		}
		i := int(math.Floor((v - lo) / idx.voxelSize))
		if i >= n {
			i = n - 1
		}
		return i, true
	}
	x, okX := axis(p.X, idx.origin.X, maxP.X, idx.dims.X)
	y, okY := axis(p.Y, idx.origin.Y, maxP.Y, idx.dims.Y)
	z, okZ := axis(p.Z, idx.origin.Z, maxP.Z, idx.dims.Z)
	return cellKey{x, y, z}, okX && okY && okZ
}

func (idx *Index) cellCenter(k cellKey, level int) r3.Vector {
	span := float64(int(1) << level)
	c := func(i int) float64 { return (float64(i)*span + span/2) * idx.voxelSize }
	return idx.origin.Add(r3.Vector{X: c(k.x), Y: c(k.y), Z: c(k.z)})
}

func sortedKeys(m map[cellKey]*Node) []cellKey {
	keys := make([]cellKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

func pow2RoundUp(x int) int {
	if x <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(x-1))
}

// Root returns the root node.
func (idx *Index) Root() *Node { return idx.root }

// MaxLevel returns the level of the root.
func (idx *Index) MaxLevel() int { return idx.maxLevel }

// Dims returns the dense grid dimensions.
func (idx *Index) Dims() Dims { return idx.dims }

// Origin returns the grid's minimum corner.
func (idx *Index) Origin() r3.Vector { return idx.origin }

// VoxelSize returns the leaf cell size.
func (idx *Index) VoxelSize() float64 { return idx.voxelSize }

// VolumeSize returns the number of dense grid cells, which is also the size
// in bytes of the quantized volume.
func (idx *Index) VolumeSize() uint64 { return uint64(idx.dims.Cells()) }

// LevelCounts returns the node count per level, indexed by level.
func (idx *Index) LevelCounts() []int {
	out := make([]int, len(idx.levelCounts))
	copy(out, idx.levelCounts)
	return out
}

// NodeCount returns the total node count.
func (idx *Index) NodeCount() int {
	total := 0
	for _, c := range idx.levelCounts {
		total += c
	}
	return total
}

// Skipped returns the number of events that fell outside the grid.
func (idx *Index) Skipped() int { return idx.skipped }
