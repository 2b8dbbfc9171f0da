package layout

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestMeeblipValidate(t *testing.T) {
	table := Meeblip()
	if err := table.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if table.Len() != 28 {
		t.Errorf("Len() = %d, want 28", table.Len())
	}
}

func TestStepCountInvariant(t *testing.T) {
	for i, d := range Meeblip() {
		if d.MinValue+d.StepCount != d.MaxValue {
			t.Errorf("parameter %d (%s): min %d + steps %d != max %d", i, d.Name, d.MinValue, d.StepCount, d.MaxValue)
		}
	}
}

func TestCCUniqueness(t *testing.T) {
	table := Meeblip()
	for cc := 0; cc <= MaxCC; cc++ {
		matches := 0
		for _, d := range table {
			if int(d.CC) == cc {
				matches++
			}
		}
		if matches > 1 {
			t.Errorf("cc %d claimed by %d parameters", cc, matches)
		}
	}
}

func TestCCToParameter(t *testing.T) {
	table := Meeblip()

	tests := []struct {
		cc    uint8
		index int
		found bool
	}{
		{75, 0, true},
		{49, 22, true},
		{48, 23, true},
		{58, 27, true},
		{63, -1, false}, // spare knob
		{0, -1, false},
		{127, -1, false},
	}

	for _, tt := range tests {
		index, found := table.CCToParameter(tt.cc)
		if found != tt.found || index != tt.index {
			t.Errorf("CCToParameter(%d) = (%d, %v), want (%d, %v)", tt.cc, index, found, tt.index, tt.found)
		}
	}
}

func TestParameterToCC(t *testing.T) {
	table := Meeblip()
	for i := range table {
		cc := table.ParameterToCC(i)
		index, ok := table.CCToParameter(cc)
		if !ok || index != i {
			t.Errorf("CCToParameter(ParameterToCC(%d)) = (%d, %v), want (%d, true)", i, index, ok, i)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	base := Descriptor{Name: "CUTOFF", Kind: ControlKnob, MinValue: 0, MaxValue: 127, StepCount: 127, CC: 49}

	tests := []struct {
		name   string
		mutate func(Table) Table
		reason string
	}{
		{"empty", func(Table) Table { return Table{} }, "empty"},
		{"step mismatch", func(t Table) Table { t[0].StepCount = 64; return t }, "stepCount"},
		{"zero steps", func(t Table) Table { t[0].StepCount = 0; t[0].MaxValue = 0; return t }, "positive"},
		{"default out of range", func(t Table) Table { t[0].DefaultValue = 200; return t }, "default"},
		{"cc out of range", func(t Table) Table { t[0].CC = 128; return t }, "out of range"},
		{"duplicate cc", func(t Table) Table {
			d := base
			d.Name = "RESONANCE"
			return append(t, d)
		}, "already used"},
		{"no name", func(t Table) Table { t[0].Name = ""; return t }, "empty name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := tt.mutate(Table{base})
			err := table.Validate()
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if !errors.Is(err, ErrInvalidLayout) {
				t.Errorf("Validate() error = %v, want wrapping ErrInvalidLayout", err)
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.reason)
			}
		})
	}
}

func TestControlKindText(t *testing.T) {
	for _, kind := range []ControlKind{ControlKnob, ControlBipolarKnob, ControlButton} {
		text, err := kind.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText() error = %v", err)
		}
		var got ControlKind
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", text, err)
		}
		if got != kind {
			t.Errorf("UnmarshalText(%q) = %v, want %v", text, got, kind)
		}
	}

	var k ControlKind
	if err := k.UnmarshalText([]byte("slider")); err == nil {
		t.Error("UnmarshalText(slider) should fail")
	}
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := Meeblip().Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"controlKind": "bipolar-knob"`) {
		t.Error("encoded layout should name control kinds")
	}

	table, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if table[16].Name != "OSC_DETUNE" || table[16].MinValue != -64 {
		t.Errorf("Decode() entry 16 = %+v", table[16])
	}
}

func TestDecodeInvalid(t *testing.T) {
	src := `[{"name":"A","controlKind":"knob","minValue":0,"maxValue":127,"defaultValue":0,"stepCount":100,"ccNumber":1}]`
	if _, err := Decode(strings.NewReader(src)); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("Decode() error = %v, want ErrInvalidLayout", err)
	}

	if _, err := Decode(strings.NewReader(`[{"name":"A","color":"red"}]`)); err == nil {
		t.Error("Decode() should reject unknown fields")
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := Meeblip().WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	table, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if table.Len() != Meeblip().Len() {
		t.Errorf("LoadFile() len = %d, want %d", table.Len(), Meeblip().Len())
	}
}
