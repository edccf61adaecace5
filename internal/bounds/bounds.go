// Package bounds derives the working volume from the weighted events.
package bounds

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"

	"github.com/atlasmap-sc/voxelizer/internal/data/events"
)

// MarginFactor is the fixed extent scale applied around the tight box so the
// spatial index has room around boundary points.
const MarginFactor = 1.5

// ErrNoWeightedEvents is returned when no event has a nonzero weight.
var ErrNoWeightedEvents = errors.New("no event with nonzero weight")

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max r3.Vector
}

// Size returns the per-axis extent.
func (b Box) Size() r3.Vector { return b.Max.Sub(b.Min) }

// Center returns the box center.
func (b Box) Center() r3.Vector { return b.Min.Add(b.Max).Mul(0.5) }

// Contains reports whether p lies inside the closed box.
func (b Box) Contains(p r3.Vector) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Expand scales the box extent by factor around its center.
func (b Box) Expand(factor float64) Box {
	c := b.Center()
	half := b.Size().Mul(factor / 2)
	return Box{Min: c.Sub(half), Max: c.Add(half)}
}

// FromEvents returns the tight box around every event with nonzero weight.
// Zero-weight events are ignored entirely.
func FromEvents(evs []events.Event) (Box, error) {
	minP := r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	maxP := r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	found := false
	for _, e := range evs {
		if e.Weight == 0 {
			continue
		}
		found = true
		p := r3.Vector{X: float64(e.X), Y: float64(e.Y), Z: float64(e.Z)}
		minP = r3.Vector{X: math.Min(minP.X, p.X), Y: math.Min(minP.Y, p.Y), Z: math.Min(minP.Z, p.Z)}
		maxP = r3.Vector{X: math.Max(maxP.X, p.X), Y: math.Max(maxP.Y, p.Y), Z: math.Max(maxP.Z, p.Z)}
	}
	if !found {
		return Box{}, ErrNoWeightedEvents
	}
	return Box{Min: minP, Max: maxP}, nil
}
