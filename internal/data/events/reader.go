// Package events reads weighted 3-D point samples from raw binary files.
//
// An event file is a headerless sequence of little-endian float32 values,
// five per event: x, y, z, a free scalar and the weight. Files whose name
// ends in ".zst" are zstd-decompressed first.
package events

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// RecordFields is the number of float32 fields per event.
const RecordFields = 5

// RecordSize is the size in bytes of one event record.
const RecordSize = RecordFields * 4

// Event is a single weighted point sample.
type Event struct {
	X, Y, Z float32
	Scalar  float32
	Weight  float32
}

// Set is the result of reading an event file.
type Set struct {
	Events []Event
	// TrailingBytes counts the bytes of a partial record that were discarded.
	TrailingBytes int
}

// ReadFile reads all events from path.
func ReadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder for %s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input %s: %w", path, err)
	}
	return Decode(data), nil
}

// Decode converts raw bytes into events. A trailing partial record is
// dropped and reported in TrailingBytes.
func Decode(data []byte) *Set {
	n := len(data) / RecordSize
	set := &Set{
		Events:        make([]Event, n),
		TrailingBytes: len(data) - n*RecordSize,
	}
	for i := 0; i < n; i++ {
		rec := data[i*RecordSize : (i+1)*RecordSize]
		set.Events[i] = Event{
			X:      f32(rec[0:]),
			Y:      f32(rec[4:]),
			Z:      f32(rec[8:]),
			Scalar: f32(rec[12:]),
			Weight: f32(rec[16:]),
		}
	}
	return set
}

// Encode is the inverse of Decode.
func Encode(evs []Event) []byte {
	out := make([]byte, 0, len(evs)*RecordSize)
	for _, e := range evs {
		for _, v := range [RecordFields]float32{e.X, e.Y, e.Z, e.Scalar, e.Weight} {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
		}
	}
	return out
}

func f32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
