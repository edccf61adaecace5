package octree

import (
	"errors"
	"fmt"
	"math"
)

// NoChildren marks an index slot whose node has no serialized children.
const NoChildren = math.MaxUint32

// ErrSizeMismatch is matched by every SizeMismatchError.
var ErrSizeMismatch = errors.New("flat arrays do not match octree level sizes")

// SizeMismatchError reports flat arrays sized differently from the tree.
type SizeMismatchError struct {
	Level    int
	Expected int
	Actual   int
	Reason   string
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%v: level %d: %s (expected %d, got %d)", ErrSizeMismatch, e.Level, e.Reason, e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrSizeMismatch) hold.
func (e *SizeMismatchError) Is(target error) bool { return target == ErrSizeMismatch }

// Flat is the level-partitioned serialization of an octree.
//
// Data holds 4 floats per node (center x, y, z, value). Levels occupy
// contiguous blocks ordered from the top level down to level 0, so the root
// is entry 0. Index holds 2 uint32 per entry of every level above 0, in the
// slot of the entry itself: the inclusive range of the node's children,
// counted from the start of the level directly below.
type Flat struct {
	Data  []float32
	Index []uint32
	// Offsets is the per-level write cursor. After Flatten it holds the
	// number of entries written at each level.
	Offsets []uint32
	// BlockStart is the entry position of each level's first node.
	BlockStart []int

	counts []int
}

// NewFlat allocates arrays sized exactly for the given per-level node counts.
func NewFlat(levelCounts []int) *Flat {
	levels := len(levelCounts)
	f := &Flat{
		Offsets:    make([]uint32, levels),
		BlockStart: make([]int, levels),
		counts:     append([]int(nil), levelCounts...),
	}
	total := 0
	for l := levels - 1; l >= 0; l-- {
		f.BlockStart[l] = total
		total += levelCounts[l]
	}
	indexed := total
	if levels > 0 {
		indexed -= levelCounts[0]
	}
	f.Data = make([]float32, total*4)
	f.Index = make([]uint32, indexed*2)
	for i := range f.Index {
		f.Index[i] = NoChildren
	}
	return f
}

// Levels returns the number of levels the arrays were sized for.
func (f *Flat) Levels() int { return len(f.counts) }

// MaxLevel returns the top level.
func (f *Flat) MaxLevel() int { return len(f.counts) - 1 }

// Count returns the number of entries sized for level.
func (f *Flat) Count(level int) int { return f.counts[level] }

// NodeCount returns the total number of entries.
func (f *Flat) NodeCount() int { return len(f.Data) / 4 }

// Entry returns the record of the i-th node of a level.
func (f *Flat) Entry(level, i int) (x, y, z, value float32) {
	p := (f.BlockStart[level] + i) * 4
	return f.Data[p], f.Data[p+1], f.Data[p+2], f.Data[p+3]
}

// Children returns the inclusive child range, within level-1, of the i-th
// node of a level. ok is false for level 0 and for childless nodes.
func (f *Flat) Children(level, i int) (start, end uint32, ok bool) {
	if level == 0 {
		return 0, 0, false
	}
	p := (f.BlockStart[level] + i) * 2
	start, end = f.Index[p], f.Index[p+1]
	if start == NoChildren {
		return 0, 0, false
	}
	return start, end, true
}

// Flatten serializes the tree under root, placed at maxLevel, into f.
//
// A node's record is written before its children. Nodes without children,
// and every node reached at level 0, are written as leaves; deeper nodes
// under a level 0 node are not serialized. f must be sized with the exact
// per-level counts (see CountLevels); any disagreement fails with a
// SizeMismatchError and no write outside a level's block happens.
func Flatten(root *Node, maxLevel int, f *Flat) error {
	if root == nil {
		return errors.New("flatten: nil root")
	}
	if maxLevel < 0 || maxLevel >= len(f.counts) {
		return &SizeMismatchError{Level: maxLevel, Expected: len(f.counts) - 1, Actual: maxLevel, Reason: "max level outside sized levels"}
	}

	for l := range f.Offsets {
		f.Offsets[l] = 0
	}
	if err := f.flattenNode(root, maxLevel); err != nil {
		return err
	}
	for l, c := range f.counts {
		if int(f.Offsets[l]) != c {
			return &SizeMismatchError{Level: l, Expected: c, Actual: int(f.Offsets[l]), Reason: "level block not filled"}
		}
	}
	return nil
}

func (f *Flat) flattenNode(n *Node, level int) error {
	pos := int(f.Offsets[level])
	if pos >= f.counts[level] {
		return &SizeMismatchError{Level: level, Expected: f.counts[level], Actual: pos + 1, Reason: "level block overflow"}
	}

	entry := f.BlockStart[level] + pos
	f.Data[entry*4] = float32(n.Center.X)
	f.Data[entry*4+1] = float32(n.Center.Y)
	f.Data[entry*4+2] = float32(n.Center.Z)
	f.Data[entry*4+3] = float32(n.Value)

	if n.IsLeaf() || level == 0 {
		f.Offsets[level]++
		return nil
	}

	start := f.Offsets[level-1]
	f.Offsets[level]++
	for _, c := range n.Children {
		if err := f.flattenNode(c, level-1); err != nil {
			return err
		}
	}
	end := f.Offsets[level-1] - 1

	f.Index[entry*2] = start
	f.Index[entry*2+1] = end
	return nil
}

// CountLevels returns the per-level entry counts Flatten will produce for
// the tree under root placed at maxLevel.
func CountLevels(root *Node, maxLevel int) []int {
	if maxLevel < 0 {
		return nil
	}
	counts := make([]int, maxLevel+1)
	var walk func(n *Node, level int)
	walk = func(n *Node, level int) {
		counts[level]++
		if level == 0 {
			return
		}
		for _, c := range n.Children {
			walk(c, level-1)
		}
	}
	if root != nil {
		walk(root, maxLevel)
	}
	return counts
}
