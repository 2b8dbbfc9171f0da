package midi

import "sync"

// Sink receives outbound packets at the end of every block. A packet slice
// is only valid for the duration of the call.
type Sink interface {
	SendMIDI(events []MIDIEvent) error
	SendSysex(events []SysexEvent) error
}

// DiscardSink drops everything it is given
type DiscardSink struct{}

func (DiscardSink) SendMIDI([]MIDIEvent) error   { return nil }
func (DiscardSink) SendSysex([]SysexEvent) error { return nil }

// Packet is one recorded delivery call
type Packet struct {
	Type   EventType
	MIDI   []MIDIEvent
	Sysex  []SysexEvent
	Offset int64 // block start frame when recorded
}

// Len returns the number of events in the packet
func (p Packet) Len() int {
	if p.Type == EventTypeSysex {
		return len(p.Sysex)
	}
	return len(p.MIDI)
}

// Recorder is a Sink that keeps a copy of every packet it receives
type Recorder struct {
	mu      sync.Mutex
	packets []Packet
	offset  int64
}

// SetOffset stamps subsequent packets with the given block start frame
func (r *Recorder) SetOffset(frame int64) {
	r.mu.Lock()
	r.offset = frame
	r.mu.Unlock()
}

func (r *Recorder) SendMIDI(events []MIDIEvent) error {
	cp := make([]MIDIEvent, len(events))
	copy(cp, events)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.packets = append(r.packets, Packet{Type: EventTypeMIDI, MIDI: cp, Offset: r.offset})
	return nil
}

func (r *Recorder) SendSysex(events []SysexEvent) error {
	cp := make([]SysexEvent, len(events))
	for i, ev := range events {
		data := make([]byte, len(ev.Data))
		copy(data, ev.Data)
		ev.Data = data
		cp[i] = ev
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.packets = append(r.packets, Packet{Type: EventTypeSysex, Sysex: cp, Offset: r.offset})
	return nil
}

// Packets returns the recorded packets in delivery order
func (r *Recorder) Packets() []Packet {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Packet, len(r.packets))
	copy(out, r.packets)
	return out
}

// MIDIEvents flattens every recorded MIDI packet
func (r *Recorder) MIDIEvents() []MIDIEvent {
	var out []MIDIEvent
	for _, p := range r.Packets() {
		out = append(out, p.MIDI...)
	}
	return out
}

// SysexEvents flattens every recorded SysEx packet
func (r *Recorder) SysexEvents() []SysexEvent {
	var out []SysexEvent
	for _, p := range r.Packets() {
		out = append(out, p.Sysex...)
	}
	return out
}

// Reset forgets everything recorded so far
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.packets = nil
	r.mu.Unlock()
}
