package render

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"

	"github.com/fogleman/gg"

	"github.com/atlasmap-sc/voxelizer/internal/octree"
	"github.com/atlasmap-sc/voxelizer/pkg/colormap"
)

// PreviewRenderer draws maximum intensity projections of quantized volumes.
type PreviewRenderer struct {
	defaultColormap string
}

// NewPreviewRenderer creates a preview renderer.
func NewPreviewRenderer(defaultColormap string) *PreviewRenderer {
	return &PreviewRenderer{defaultColormap: defaultColormap}
}

// Project returns the per-column maximum along z, row-major with x fastest.
func Project(volume []byte, dims octree.Dims) ([]byte, error) {
	if len(volume) != dims.Cells() {
		return nil, fmt.Errorf("volume holds %d cells, dims %v need %d", len(volume), dims, dims.Cells())
	}
	plane := dims.X * dims.Y
	mip := make([]byte, plane)
	for z := 0; z < dims.Z; z++ {
		slice := volume[z*plane : (z+1)*plane]
		for i, v := range slice {
			if v > mip[i] {
				mip[i] = v
			}
		}
	}
	return mip, nil
}

// RenderProjection renders the z projection of volume as a PNG image.
// Empty columns stay white; y grows upwards.
func (r *PreviewRenderer) RenderProjection(volume []byte, dims octree.Dims, colormapName string) ([]byte, error) {
	cmap, ok := colormap.ByName(colormapName)
	if !ok {
		cmap, ok = colormap.ByName(r.defaultColormap)
	}
	if !ok {
		return nil, fmt.Errorf("unknown colormap %q", colormapName)
	}

	mip, err := Project(volume, dims)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(dims.X, dims.Y)
	dc.SetColor(color.White)
	dc.Clear()

	for y := 0; y < dims.Y; y++ {
		for x := 0; x < dims.X; x++ {
			v := mip[y*dims.X+x]
			if v == 0 {
				continue
			}
			dc.SetColor(cmap.At(float64(v) / 255))
			dc.SetPixel(x, dims.Y-1-y)
		}
	}

	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(&buf, dc.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
