package midi

const defaultQueueCapacity = 128

// Port holds the four event buffers of one MIDI port for the current block
type Port struct {
	MIDIIn   *Queue[MIDIEvent]
	SysexIn  *Queue[SysexEvent]
	MIDIOut  *Queue[MIDIEvent]
	SysexOut *Queue[SysexEvent]
}

// NewPort returns a port with empty buffers
func NewPort() *Port {
	return &Port{
		MIDIIn:   NewQueue[MIDIEvent](defaultQueueCapacity),
		SysexIn:  NewQueue[SysexEvent](defaultQueueCapacity),
		MIDIOut:  NewQueue[MIDIEvent](defaultQueueCapacity),
		SysexOut: NewQueue[SysexEvent](defaultQueueCapacity),
	}
}

// Ingest routes a host event into the matching input buffer.
// Unknown event kinds are rejected and reported false.
func (p *Port) Ingest(event Event) bool {
	switch ev := event.(type) {
	case MIDIEvent:
		p.MIDIIn.Add(ev)
	case *MIDIEvent:
		p.MIDIIn.Add(*ev)
	case SysexEvent:
		p.SysexIn.Add(ev)
	case *SysexEvent:
		p.SysexIn.Add(*ev)
	default:
		return false
	}
	return true
}

// PassthroughSysex copies every inbound SysEx event to the outbound buffer
func (p *Port) PassthroughSysex() {
	p.SysexOut.AddAll(p.SysexIn.Events())
}

// ClearInputs empties the inbound buffers
func (p *Port) ClearInputs() {
	p.MIDIIn.Clear()
	p.SysexIn.Clear()
}

// ClearOutputs empties the outbound buffers
func (p *Port) ClearOutputs() {
	p.MIDIOut.Clear()
	p.SysexOut.Clear()
}

// Pending reports the number of outbound events not yet drained
func (p *Port) Pending() int {
	return p.MIDIOut.Len() + p.SysexOut.Len()
}
