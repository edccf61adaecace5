package colormap

import (
	"image/color"
	"testing"
)

func TestViridisEndpoints(t *testing.T) {
	t.Parallel()

	c0, ok := Viridis.At(0).(color.RGBA)
	if !ok {
		t.Fatalf("expected color.RGBA at t=0")
	}
	if c0 != (color.RGBA{R: 68, G: 1, B: 84, A: 255}) {
		t.Fatalf("unexpected Viridis.At(0): %#v", c0)
	}

	c1, ok := Viridis.At(1).(color.RGBA)
	if !ok {
		t.Fatalf("expected color.RGBA at t=1")
	}
	if c1 != (color.RGBA{R: 253, G: 231, B: 37, A: 255}) {
		t.Fatalf("unexpected Viridis.At(1): %#v", c1)
	}
}

func TestGrayMidpoint(t *testing.T) {
	t.Parallel()

	c := Gray.At(0.5).(color.RGBA)
	if c.R != c.G || c.G != c.B || c.R < 126 || c.R > 128 {
		t.Fatalf("unexpected Gray.At(0.5): %#v", c)
	}
}

func TestByName(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		if _, ok := ByName(name); !ok {
			t.Errorf("listed colormap %q not found", name)
		}
	}
	if _, ok := ByName("jet"); ok {
		t.Error("unexpected colormap jet")
	}
}
