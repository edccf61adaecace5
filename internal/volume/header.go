package volume

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"

	"github.com/atlasmap-sc/voxelizer/internal/octree"
)

// HeaderSuffix is appended to the data file path to name its header.
const HeaderSuffix = ".mhd"

// Header describes the geometry of a written volume.
type Header struct {
	Dims           octree.Dims
	Offset         r3.Vector
	ElementSpacing r3.Vector
	DataFile       string
}

// NewHeader builds the header for a volume written to dataPath. Offset is the
// grid origin; spacing is the scene size divided by the grid dimensions.
func NewHeader(dims octree.Dims, offset, sceneSize r3.Vector, dataPath string) Header {
	return Header{
		Dims:   dims,
		Offset: offset,
		ElementSpacing: r3.Vector{
			X: sceneSize.X / float64(dims.X),
			Y: sceneSize.Y / float64(dims.Y),
			Z: sceneSize.Z / float64(dims.Z),
		},
		DataFile: filepath.Base(dataPath),
	}
}

// WriteTo writes the header in MetaImage text form.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	lines := []string{
		"ObjectType = Image",
		"NDims = 3",
		"BinaryData = True",
		"BinaryDataByteOrderMSB = False",
		"CompressedData = False",
		"TransformMatrix = 1 0 0 0 1 0 0 0 1",
		"Offset = " + formatVec(h.Offset),
		"CenterOfRotation = 0 0 0",
		"AnatomicalOrientation = RAI",
		"ElementSpacing = " + formatVec(h.ElementSpacing),
		fmt.Sprintf("DimSize = %d %d %d", h.Dims.X, h.Dims.Y, h.Dims.Z),
		"ElementType = MET_UCHAR",
		"ElementDataFile = " + h.DataFile,
	}
	n, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return int64(n), err
}

// ReadHeader parses the fields of a MetaImage header that Header carries.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	seen := make(map[string]bool)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		seen[key] = true

		var err error
		switch key {
		case "NDims":
			if value != "3" {
				err = fmt.Errorf("unsupported NDims %q", value)
			}
		case "ElementType":
			if value != "MET_UCHAR" {
				err = fmt.Errorf("unsupported ElementType %q", value)
			}
		case "Offset":
			h.Offset, err = parseVec(value)
		case "ElementSpacing":
			h.ElementSpacing, err = parseVec(value)
		case "DimSize":
			h.Dims, err = parseDims(value)
		case "ElementDataFile":
			h.DataFile = value
		}
		if err != nil {
			return Header{}, fmt.Errorf("header %s: %w", key, err)
		}
	}
	if err := sc.Err(); err != nil {
		return Header{}, err
	}
	for _, key := range []string{"DimSize", "ElementDataFile"} {
		if !seen[key] {
			return Header{}, fmt.Errorf("header: missing %s", key)
		}
	}
	return h, nil
}

// Values are written with float32 precision, matching the event data.
func formatVec(v r3.Vector) string {
	f := func(x float64) string { return strconv.FormatFloat(x, 'g', -1, 32) }
	return f(v.X) + " " + f(v.Y) + " " + f(v.Z)
}

func parseVec(s string) (r3.Vector, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return r3.Vector{}, fmt.Errorf("expected 3 values, got %q", s)
	}
	var xyz [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return r3.Vector{}, err
		}
		xyz[i] = v
	}
	return r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

func parseDims(s string) (octree.Dims, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return octree.Dims{}, fmt.Errorf("expected 3 values, got %q", s)
	}
	var d [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return octree.Dims{}, err
		}
		d[i] = v
	}
	return octree.Dims{X: d[0], Y: d[1], Z: d[2]}, nil
}
