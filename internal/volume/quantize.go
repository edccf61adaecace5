// Package volume normalizes dense density grids to 8 bits and writes them as
// MetaImage volumes.
package volume

import (
	"errors"
	"math"
)

// ErrEmptyVolume is returned when no grid cell holds a nonzero value.
var ErrEmptyVolume = errors.New("volume has no nonzero cell")

// ZeroCells selects how cells the kernel never touched are quantized.
type ZeroCells int

const (
	// ZeroCellsNoData maps untouched cells to 0.
	ZeroCellsNoData ZeroCells = iota
	// ZeroCellsLegacy quantizes untouched cells like any other value,
	// (0 - min) * scale, clamped to the byte range.
	ZeroCellsLegacy
)

// Range is the observed value range over the nonzero cells.
type Range struct {
	Min, Max float32
}

// Scale returns the factor mapping the range onto [0, 255], or 0 when the
// range is a single value.
func (r Range) Scale() float64 {
	if r.Max == r.Min {
		return 0
	}
	return 255 / (float64(r.Max) - float64(r.Min))
}

// FindRange scans the grid for the extrema of its nonzero cells.
func FindRange(grid []float32) (Range, error) {
	r := Range{Min: math.MaxFloat32, Max: -math.MaxFloat32}
	found := false
	for _, v := range grid {
		if v == 0 || math.IsNaN(float64(v)) {
			continue
		}
		found = true
		r.Min = min(r.Min, v)
		r.Max = max(r.Max, v)
	}
	if !found {
		return Range{}, ErrEmptyVolume
	}
	return r, nil
}

// Quantize maps every cell to a byte: round((v - min) * 255 / (max - min)).
// When min equals max every nonzero cell becomes 255.
func Quantize(grid []float32, r Range, zero ZeroCells) []byte {
	a := r.Scale()
	out := make([]byte, len(grid))
	for i, v := range grid {
		switch {
		case v == 0 && zero == ZeroCellsNoData:
			out[i] = 0
		case a == 0:
			if v != 0 {
				out[i] = 255
			}
		default:
			out[i] = clampByte(math.Round((float64(v) - float64(r.Min)) * a))
		}
	}
	return out
}

func clampByte(v float64) byte {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return byte(v)
	}
}
