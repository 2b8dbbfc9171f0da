// Package midi buffers MIDI and System-Exclusive events between a host and the engine
package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// EventType tags the wire type of an event
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeMIDI
	EventTypeSysex
)

func (t EventType) String() string {
	switch t {
	case EventTypeMIDI:
		return "midi"
	case EventTypeSysex:
		return "sysex"
	default:
		return "unknown"
	}
}

// Status nibbles of the channel-voice messages the engine classifies
const (
	StatusNoteOff       uint8 = 0x80
	StatusNoteOn        uint8 = 0x90
	StatusControlChange uint8 = 0xB0
	StatusSysExStart    uint8 = 0xF0
	StatusSysExEnd      uint8 = 0xF7
)

// Event is anything the host can hand to the engine
type Event interface {
	Type() EventType
	DeltaFrames() int32
	String() string
}

// MIDIEvent is a short channel-voice message inside the current block
type MIDIEvent struct {
	Delta int32   // frame offset within the block
	Data  [3]byte // status, data1, data2

	// Host extensions carried through untouched
	Flags           int32
	NoteLength      int32
	NoteOffset      int32
	Detune          int8
	NoteOffVelocity uint8
}

func (e MIDIEvent) Type() EventType {
	return EventTypeMIDI
}

func (e MIDIEvent) DeltaFrames() int32 {
	return e.Delta
}

// Status returns the message class with the channel stripped
func (e MIDIEvent) Status() uint8 {
	return e.Data[0] & 0xF0
}

// Channel returns the 0-based channel
func (e MIDIEvent) Channel() uint8 {
	return e.Data[0] & 0x0F
}

// Data1 returns the first data byte masked to 7 bits
func (e MIDIEvent) Data1() uint8 {
	return e.Data[1] & 0x7F
}

// Data2 returns the second data byte masked to 7 bits
func (e MIDIEvent) Data2() uint8 {
	return e.Data[2] & 0x7F
}

// Message returns the event as a gomidi message
func (e MIDIEvent) Message() gomidi.Message {
	return gomidi.Message(e.Data[:messageLen(e.Data[0])])
}

func (e MIDIEvent) String() string {
	return fmt.Sprintf("MIDI{offset:%d, %s}", e.Delta, e.Message())
}

// SysexEvent is an opaque System-Exclusive payload. The engine only times
// and forwards it.
type SysexEvent struct {
	Delta int32
	Data  []byte
	Flags int32
}

func (e SysexEvent) Type() EventType {
	return EventTypeSysex
}

func (e SysexEvent) DeltaFrames() int32 {
	return e.Delta
}

// Len returns the payload length in bytes
func (e SysexEvent) Len() int {
	return len(e.Data)
}

// Message returns the payload framed as a complete SysEx message
func (e SysexEvent) Message() gomidi.Message {
	if len(e.Data) > 0 && e.Data[0] == StatusSysExStart {
		return gomidi.Message(e.Data)
	}
	return gomidi.SysEx(e.Data)
}

func (e SysexEvent) String() string {
	return fmt.Sprintf("SysEx{offset:%d, len:%d}", e.Delta, len(e.Data))
}

// NewControlChange builds an outgoing Control-Change event
func NewControlChange(delta int32, channel, controller, value uint8) MIDIEvent {
	ev := MIDIEvent{Delta: delta}
	copy(ev.Data[:], gomidi.ControlChange(channel&0x0F, controller&0x7F, value&0x7F))
	return ev
}

// FromMessage converts a raw wire message into an engine event.
// Empty messages and stray SysEx terminators are rejected.
func FromMessage(delta int32, msg []byte) (Event, bool) {
	if len(msg) == 0 {
		return nil, false
	}

	switch {
	case msg[0] == StatusSysExStart:
		data := make([]byte, len(msg))
		copy(data, msg)
		return SysexEvent{Delta: delta, Data: data}, true
	case msg[0] == StatusSysExEnd, msg[0] < 0x80:
		return nil, false
	}

	ev := MIDIEvent{Delta: delta}
	copy(ev.Data[:], msg)
	return ev, true
}

// messageLen returns the wire length of a short message by status byte
func messageLen(status uint8) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 2
	case 0xF0:
		switch status {
		case 0xF1, 0xF3:
			return 2
		case 0xF2:
			return 3
		default:
			return 1
		}
	default:
		return 3
	}
}
