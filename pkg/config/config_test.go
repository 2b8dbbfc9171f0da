package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/james-see/meeblipcc/pkg/layout"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !cfg.EchoEnabled() {
		t.Error("EchoEnabled() = false, want true")
	}
}

func TestLoadFromMissing(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.HTTPPort != DefaultConfig().HTTPPort {
		t.Errorf("HTTPPort = %d, want default", cfg.HTTPPort)
	}
}

func TestLoadFromPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"outChannel": 10, "echo": false}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.OutChannel != 10 || cfg.EchoEnabled() {
		t.Errorf("LoadFrom() = outChannel %d echo %v, want 10 false", cfg.OutChannel, cfg.EchoEnabled())
	}
	if cfg.BlockSize != 512 {
		t.Errorf("BlockSize = %d, want default 512", cfg.BlockSize)
	}
}

func TestLoadFromInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"channel", `{"inChannel": 17}`},
		{"block size", `{"blockSize": -1}`},
		{"port", `{"httpPort": 70000}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(tt.body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFrom(path); err == nil {
				t.Error("LoadFrom() error = nil, want error")
			}
		})
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Ports.Output = "USB MIDI"
	cfg.InChannel = 5
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if got.Ports.Output != "USB MIDI" || got.InChannel != 5 {
		t.Errorf("LoadFrom() = %+v", got)
	}
}

func TestEngineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutChannel = 16
	off := false
	cfg.Echo = &off

	ec, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig() error = %v", err)
	}
	if ec.OutChannel != 15 || ec.InChannel != 0 || ec.EchoEnabled {
		t.Errorf("EngineConfig() = out %d in %d echo %v", ec.OutChannel, ec.InChannel, ec.EchoEnabled)
	}
	if ec.Layout.Len() != layout.Meeblip().Len() {
		t.Errorf("layout len = %d, want reference table", ec.Layout.Len())
	}
}

func TestEngineConfigLayoutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	small := layout.Table{{Name: "CUTOFF", Kind: layout.ControlKnob, MaxValue: 127, StepCount: 127, CC: 74}}
	if err := small.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Layout = path
	ec, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig() error = %v", err)
	}
	if ec.Layout.Len() != 1 || ec.Layout[0].CC != 74 {
		t.Errorf("layout = %+v, want file contents", ec.Layout)
	}

	cfg.Layout = filepath.Join(t.TempDir(), "missing.json")
	if _, err := cfg.EngineConfig(); err == nil {
		t.Error("EngineConfig() with missing layout error = nil")
	}
}
