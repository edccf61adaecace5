package volume

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// Write stores the quantized volume at dataPath and its header at
// dataPath + HeaderSuffix. Each file is written to a temporary sibling and
// renamed into place; the header is only written once the data file is in
// place.
func Write(dataPath string, data []byte, h Header) error {
	if want := h.Dims.Cells(); len(data) != want {
		return fmt.Errorf("volume holds %d bytes, dims %v need %d", len(data), h.Dims, want)
	}
	if err := WriteFileAtomic(dataPath, data); err != nil {
		return fmt.Errorf("failed to write volume %s: %w", dataPath, err)
	}

	var buf bytes.Buffer
	if _, err := h.WriteTo(&buf); err != nil {
		return err
	}
	headerPath := dataPath + HeaderSuffix
	if err := WriteFileAtomic(headerPath, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write header %s: %w", headerPath, err)
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so path never holds a partial file.
func WriteFileAtomic(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	_, err = f.Write(data)
	err = multierr.Append(err, f.Close())
	if err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
