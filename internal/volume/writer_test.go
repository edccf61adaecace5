package volume

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"

	"github.com/atlasmap-sc/voxelizer/internal/octree"
)

func TestHeader_WriteTo(t *testing.T) {
	h := NewHeader(octree.Dims{X: 8, Y: 1, Z: 1}, r3.Vector{X: -2.5}, r3.Vector{X: 10}, "/tmp/out/volume.raw")

	var buf bytes.Buffer
	if _, err := h.WriteTo(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := strings.Join([]string{
		"ObjectType = Image",
		"NDims = 3",
		"BinaryData = True",
		"BinaryDataByteOrderMSB = False",
		"CompressedData = False",
		"TransformMatrix = 1 0 0 0 1 0 0 0 1",
		"Offset = -2.5 0 0",
		"CenterOfRotation = 0 0 0",
		"AnatomicalOrientation = RAI",
		"ElementSpacing = 1.25 0 0",
		"DimSize = 8 1 1",
		"ElementType = MET_UCHAR",
		"ElementDataFile = volume.raw",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestReadHeader(t *testing.T) {
	h := NewHeader(octree.Dims{X: 16, Y: 8, Z: 24}, r3.Vector{X: 1.5, Y: -3, Z: 0.25}, r3.Vector{X: 4, Y: 2, Z: 6}, "v.raw")

	var buf bytes.Buffer
	if _, err := h.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(h, got); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}

	if _, err := ReadHeader(strings.NewReader("NDims = 2\nDimSize = 1 1 1\n")); err == nil {
		t.Fatal("expected error for 2-D header")
	}
	if _, err := ReadHeader(strings.NewReader("NDims = 3\n")); err == nil {
		t.Fatal("expected error for header without DimSize")
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "volume.raw")
	dims := octree.Dims{X: 2, Y: 2, Z: 1}
	data := []byte{0, 64, 128, 255}

	if err := Write(path, data, NewHeader(dims, r3.Vector{}, r3.Vector{X: 1, Y: 1}, path)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read volume: %v", err)
	}
	if diff := cmp.Diff(data, got); diff != "" {
		t.Fatalf("volume mismatch (-want +got):\n%s", diff)
	}

	f, err := os.Open(path + HeaderSuffix)
	if err != nil {
		t.Fatalf("failed to open header: %v", err)
	}
	defer f.Close()
	h, err := ReadHeader(f)
	if err != nil {
		t.Fatalf("failed to parse header: %v", err)
	}
	if h.Dims != dims || h.DataFile != "volume.raw" {
		t.Fatalf("unexpected header %+v", h)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected only the volume and its header, found %d entries", len(entries))
	}
}

func TestWrite_Failures(t *testing.T) {
	t.Run("sizeMismatch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "v.raw")
		err := Write(path, []byte{1, 2, 3}, NewHeader(octree.Dims{X: 2, Y: 2, Z: 1}, r3.Vector{}, r3.Vector{}, path))
		if err == nil {
			t.Fatal("expected size mismatch error")
		}
		if _, statErr := os.Stat(path + HeaderSuffix); !os.IsNotExist(statErr) {
			t.Fatal("header written despite failure")
		}
	})

	t.Run("missingDirectory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nope", "v.raw")
		dims := octree.Dims{X: 1, Y: 1, Z: 1}
		if err := Write(path, []byte{1}, NewHeader(dims, r3.Vector{}, r3.Vector{}, path)); err == nil {
			t.Fatal("expected error for missing directory")
		}
	})
}
