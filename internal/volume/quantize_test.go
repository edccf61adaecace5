package volume

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFindRange(t *testing.T) {
	t.Run("ignoresZeros", func(t *testing.T) {
		r, err := FindRange([]float32{0, 3, 0, 1.5, 9, 0})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r != (Range{Min: 1.5, Max: 9}) {
			t.Fatalf("unexpected range %+v", r)
		}
	})

	t.Run("negativeValues", func(t *testing.T) {
		r, err := FindRange([]float32{-2, 0, 4})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r != (Range{Min: -2, Max: 4}) {
			t.Fatalf("unexpected range %+v", r)
		}
	})

	t.Run("empty", func(t *testing.T) {
		for _, grid := range [][]float32{nil, {0, 0, 0}} {
			if _, err := FindRange(grid); !errors.Is(err, ErrEmptyVolume) {
				t.Fatalf("grid %v: expected ErrEmptyVolume, got %v", grid, err)
			}
		}
	})
}

func TestQuantize(t *testing.T) {
	grid := []float32{0, 2, 4, 6, 10, 3.3}
	r, err := FindRange(grid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("formula", func(t *testing.T) {
		out := Quantize(grid, r, ZeroCellsNoData)
		for i, v := range grid {
			if v == 0 {
				continue
			}
			want := byte(math.Round((float64(v) - 2) * 255 / 8))
			if out[i] != want {
				t.Errorf("cell %d (%v): expected %d, got %d", i, v, want, out[i])
			}
		}
		if out[1] != 0 || out[4] != 255 {
			t.Errorf("expected min->0 and max->255, got %d and %d", out[1], out[4])
		}
	})

	t.Run("noDataZeros", func(t *testing.T) {
		out := Quantize(grid, r, ZeroCellsNoData)
		if out[0] != 0 {
			t.Fatalf("expected untouched cell to be 0, got %d", out[0])
		}
	})

	t.Run("legacyZeros", func(t *testing.T) {
		neg := []float32{0, -5, 5}
		nr, err := FindRange(neg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := Quantize(neg, nr, ZeroCellsLegacy)
		if diff := cmp.Diff([]byte{128, 0, 255}, out); diff != "" {
			t.Fatalf("mismatch (-want +got):\n%s", diff)
		}
		// Positive minimum would map zero below the byte range.
		out = Quantize(grid, r, ZeroCellsLegacy)
		if out[0] != 0 {
			t.Fatalf("expected clamped 0, got %d", out[0])
		}
	})

	t.Run("singleValue", func(t *testing.T) {
		flat := []float32{0, 7, 7}
		fr, err := FindRange(flat)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]byte{0, 255, 255}, Quantize(flat, fr, ZeroCellsNoData)); diff != "" {
			t.Fatalf("mismatch (-want +got):\n%s", diff)
		}
	})
}
