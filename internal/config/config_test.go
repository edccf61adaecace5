package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseArgs(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		run, err := ParseArgs([]string{"2", "1", "in.bin", "out.raw"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := Run{VoxelSize: 2, Span: 1, InputPath: "in.bin", OutputPath: "out.raw"}
		if run != want {
			t.Fatalf("expected %+v, got %+v", want, run)
		}
	})

	t.Run("wrongCount", func(t *testing.T) {
		for _, args := range [][]string{nil, {"2"}, {"2", "1", "in"}, {"2", "1", "in", "out", "extra"}} {
			if _, err := ParseArgs(args); !errors.Is(err, ErrUsage) {
				t.Errorf("args %q: expected ErrUsage, got %v", args, err)
			}
		}
	})

	t.Run("badNumbers", func(t *testing.T) {
		cases := [][]string{
			{"abc", "1", "in", "out"},
			{"0", "1", "in", "out"},
			{"-1.5", "1", "in", "out"},
			{"2", "x", "in", "out"},
			{"2", "-3", "in", "out"},
			{"2", "1", "", "out"},
		}
		for _, args := range cases {
			if _, err := ParseArgs(args); !errors.Is(err, ErrUsage) {
				t.Errorf("args %q: expected ErrUsage, got %v", args, err)
			}
		}
	})
}

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Render.Workers <= 0 {
		t.Errorf("expected positive default workers, got %d", cfg.Render.Workers)
	}
	if cfg.Quantize.ZeroCells != ZeroCellsNoData {
		t.Errorf("expected zero_cells %q, got %q", ZeroCellsNoData, cfg.Quantize.ZeroCells)
	}
	if cfg.Preview.Enabled {
		t.Error("expected preview disabled by default")
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	content := `
render:
  workers: 0
preview:
  enabled: true
`
	cfg := loadFromString(t, content)

	if cfg.Render.Workers != DefaultConfig().Render.Workers {
		t.Errorf("expected default workers, got %d", cfg.Render.Workers)
	}
	if !cfg.Preview.Enabled {
		t.Error("expected preview enabled")
	}
	if cfg.Preview.Colormap != "viridis" {
		t.Errorf("expected default colormap viridis, got %q", cfg.Preview.Colormap)
	}
	if cfg.Log.MaxSizeMB != 100 || cfg.Log.MaxAgeDays != 7 {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoad_ExplicitValues(t *testing.T) {
	content := `
render:
  workers: 3
quantize:
  zero_cells: legacy
log:
  file: /tmp/voxelizer.log
  max_size_mb: 5
`
	cfg := loadFromString(t, content)

	if cfg.Render.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Render.Workers)
	}
	if cfg.Quantize.ZeroCells != ZeroCellsLegacy {
		t.Errorf("expected legacy zero cells, got %q", cfg.Quantize.ZeroCells)
	}
	if cfg.Log.File != "/tmp/voxelizer.log" || cfg.Log.MaxSizeMB != 5 {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
}

func TestLoad_UnknownZeroCellsMode(t *testing.T) {
	path := writeConfig(t, "quantize:\n  zero_cells: sometimes\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown zero_cells mode")
	}
}

func TestLoad_UnknownPreviewColormap(t *testing.T) {
	path := writeConfig(t, "preview:\n  enabled: true\n  colormap: jet\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown preview colormap")
	}

	// The colormap is only checked when the preview is enabled.
	cfg := loadFromString(t, "preview:\n  enabled: false\n  colormap: jet\n")
	if cfg.Preview.Colormap != "jet" {
		t.Errorf("expected colormap jet, got %q", cfg.Preview.Colormap)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "render:\n  workers: 2\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Render.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Render.Workers)
	}
}

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}
