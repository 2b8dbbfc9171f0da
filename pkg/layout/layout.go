// Package layout describes every controllable parameter of the Meeblip synthesizer
package layout

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// MaxCC is the highest valid MIDI Control-Change number
const MaxCC = 127

// ErrInvalidLayout is wrapped by every layout validation failure
var ErrInvalidLayout = errors.New("invalid layout")

// ControlKind identifies the GUI widget that renders a parameter.
// The engine never interprets it; it is carried through for the editor.
type ControlKind int

const (
	ControlUnknown ControlKind = iota
	ControlKnob
	ControlBipolarKnob
	ControlButton
)

var controlKindNames = map[ControlKind]string{
	ControlKnob:        "knob",
	ControlBipolarKnob: "bipolar-knob",
	ControlButton:      "button",
}

// String returns the layout file name of the control kind
func (k ControlKind) String() string {
	if name, ok := controlKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler
func (k ControlKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *ControlKind) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for kind, n := range controlKindNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown control kind %q", string(text))
}

// Descriptor is one immutable entry of the layout table.
// Its position in the Table is the parameter index used everywhere else.
type Descriptor struct {
	Name         string      `json:"name"`
	Kind         ControlKind `json:"controlKind"`
	PosX         int         `json:"posX"`
	PosY         int         `json:"posY"`
	MinValue     int         `json:"minValue"`
	MaxValue     int         `json:"maxValue"`
	DefaultValue int         `json:"defaultValue"`
	StepCount    int         `json:"stepCount"`
	CC           uint8       `json:"ccNumber"`
}

// IsToggle reports whether the parameter is a binary on/off control
func (d Descriptor) IsToggle() bool {
	return d.StepCount == 1
}

// Table is the ordered set of parameter descriptors
type Table []Descriptor

// Len returns the number of quantized parameters
func (t Table) Len() int {
	return len(t)
}

// CCToParameter returns the index of the parameter driven by cc.
// Unclaimed controllers report false; they are ignored, not errors.
func (t Table) CCToParameter(cc uint8) (int, bool) {
	for i := range t {
		if t[i].CC == cc {
			return i, true
		}
	}
	return -1, false
}

// ParameterToCC returns the outbound controller number of a parameter.
// The caller guarantees 0 <= index < t.Len().
func (t Table) ParameterToCC(index int) uint8 {
	return t[index].CC
}

// Validate checks the layout invariants. Any violation is a configuration
// error and must abort initialization.
func (t Table) Validate() error {
	if len(t) == 0 {
		return errors.Wrap(ErrInvalidLayout, "table is empty")
	}

	owners := make(map[uint8]int, len(t))
	for i, d := range t {
		if d.Name == "" {
			return errors.Wrapf(ErrInvalidLayout, "parameter %d: empty name", i)
		}
		if d.StepCount <= 0 {
			return errors.Wrapf(ErrInvalidLayout, "parameter %d (%s): stepCount %d must be positive", i, d.Name, d.StepCount)
		}
		if d.MaxValue-d.MinValue != d.StepCount {
			return errors.Wrapf(ErrInvalidLayout, "parameter %d (%s): stepCount %d != maxValue-minValue %d",
				i, d.Name, d.StepCount, d.MaxValue-d.MinValue)
		}
		if d.DefaultValue < d.MinValue || d.DefaultValue > d.MaxValue {
			return errors.Wrapf(ErrInvalidLayout, "parameter %d (%s): default %d outside [%d, %d]",
				i, d.Name, d.DefaultValue, d.MinValue, d.MaxValue)
		}
		if d.CC > MaxCC {
			return errors.Wrapf(ErrInvalidLayout, "parameter %d (%s): cc %d out of range", i, d.Name, d.CC)
		}
		if prev, dup := owners[d.CC]; dup {
			return errors.Wrapf(ErrInvalidLayout, "parameter %d (%s): cc %d already used by parameter %d (%s)",
				i, d.Name, d.CC, prev, t[prev].Name)
		}
		owners[d.CC] = i
	}
	return nil
}

// Clone returns a copy that can be modified without touching t
func (t Table) Clone() Table {
	out := make(Table, len(t))
	copy(out, t)
	return out
}
