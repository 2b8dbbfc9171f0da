// Package quantize maps normalized parameter values to stepped knob values and back
package quantize

import (
	"math"
	"strconv"

	"github.com/james-see/meeblipcc/pkg/layout"
)

// MIDI and channel scaling constants
const (
	MaxMIDIValue = 127
	MaxChannel   = 15
)

// ValueToStep snaps a normalized value in [0,1] onto one of the
// StepCount+1 levels of d. Each level owns an equal-width bucket; the
// outermost levels own the half-step dead zones at either end. NaN maps to
// the minimum.
func ValueToStep(value float64, d layout.Descriptor) int {
	n := float64(d.StepCount)
	half := 1.0 / (2 * n)

	switch {
	case math.IsNaN(value), value < half:
		return d.MinValue
	case value >= 1.0-half:
		return d.MaxValue
	}

	step := int(math.Floor((value-half)*n)) + 1
	interval := (d.MaxValue - d.MinValue) / d.StepCount
	return d.MinValue + step*interval
}

// StepToValue returns the normalized position of a knob value.
// It is not the inverse of ValueToStep at bucket edges; it seeds defaults.
func StepToValue(step int, d layout.Descriptor) float64 {
	return float64(step-d.MinValue) / float64(d.StepCount)
}

// Display renders a normalized value the way the host shows it
func Display(value float64, d layout.Descriptor) string {
	if d.IsToggle() {
		if value < 0.5 {
			return "Off"
		}
		return "On"
	}

	step := ValueToStep(value, d)
	if step == 0 {
		// the host int formatter yields "" for zero
		return "0"
	}
	return strconv.Itoa(step)
}

// RoundToInt rounds half away from zero
func RoundToInt(x float64) int {
	if x >= 0 {
		return int(x + 0.5)
	}
	return int(x - 0.5)
}

// MIDIToValue converts a 7-bit data byte to a normalized value
func MIDIToValue(data uint8) float64 {
	return float64(data&0x7f) / MaxMIDIValue
}

// ValueToMIDI converts a normalized value to a 7-bit data byte
func ValueToMIDI(value float64) uint8 {
	return uint8(clampInt(RoundToInt(value*MaxMIDIValue), 0, MaxMIDIValue))
}

// ChannelToValue stores a 0-based MIDI channel as a normalized value
func ChannelToValue(channel uint8) float64 {
	return float64(channel&0x0f) / MaxChannel
}

// ValueToChannel recovers the 0-based MIDI channel from a normalized value
func ValueToChannel(value float64) uint8 {
	return uint8(clampInt(RoundToInt(value*MaxChannel), 0, MaxChannel))
}

// Clamp limits a normalized value to [0,1]. NaN maps to 0.
func Clamp(value float64) float64 {
	switch {
	case math.IsNaN(value), value < 0:
		return 0
	case value > 1:
		return 1
	}
	return value
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
