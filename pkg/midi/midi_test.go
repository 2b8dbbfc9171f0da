package midi

import (
	"bytes"
	"errors"
	"testing"
)

func TestNewControlChange(t *testing.T) {
	ev := NewControlChange(0, 3, 49, 127)
	want := [3]byte{0xB3, 49, 127}
	if ev.Data != want {
		t.Errorf("NewControlChange() data = % X, want % X", ev.Data, want)
	}
	if ev.Status() != StatusControlChange || ev.Channel() != 3 {
		t.Errorf("Status()/Channel() = %#x/%d, want %#x/3", ev.Status(), ev.Channel(), StatusControlChange)
	}

	var ch, cc, val uint8
	if !ev.Message().GetControlChange(&ch, &cc, &val) {
		t.Fatal("Message() is not a control change")
	}
	if ch != 3 || cc != 49 || val != 127 {
		t.Errorf("GetControlChange() = (%d, %d, %d), want (3, 49, 127)", ch, cc, val)
	}
}

func TestFromMessage(t *testing.T) {
	tests := []struct {
		name   string
		msg    []byte
		ok     bool
		evType EventType
	}{
		{"control change", []byte{0xB0, 49, 64}, true, EventTypeMIDI},
		{"note on", []byte{0x90, 60, 100}, true, EventTypeMIDI},
		{"program change", []byte{0xC0, 5}, true, EventTypeMIDI},
		{"sysex", []byte{0xF0, 0x7D, 0x01, 0xF7}, true, EventTypeSysex},
		{"empty", nil, false, EventTypeUnknown},
		{"stray terminator", []byte{0xF7}, false, EventTypeUnknown},
		{"running status", []byte{49, 64}, false, EventTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := FromMessage(7, tt.msg)
			if ok != tt.ok {
				t.Fatalf("FromMessage() ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if ev.Type() != tt.evType {
				t.Errorf("Type() = %v, want %v", ev.Type(), tt.evType)
			}
			if ev.DeltaFrames() != 7 {
				t.Errorf("DeltaFrames() = %d, want 7", ev.DeltaFrames())
			}
		})
	}
}

func TestFromMessageCopiesSysex(t *testing.T) {
	raw := []byte{0xF0, 0x01, 0x02, 0xF7}
	ev, _ := FromMessage(0, raw)
	raw[1] = 0x55

	sx := ev.(SysexEvent)
	if sx.Data[1] != 0x01 {
		t.Error("FromMessage() should copy the sysex payload")
	}
	if sx.Len() != 4 {
		t.Errorf("Len() = %d, want 4", sx.Len())
	}
}

func TestSysexMessageFraming(t *testing.T) {
	framed := SysexEvent{Data: []byte{0xF0, 0x01, 0xF7}}
	if !bytes.Equal(framed.Message(), framed.Data) {
		t.Errorf("Message() = % X, want unchanged % X", framed.Message(), framed.Data)
	}

	bare := SysexEvent{Data: []byte{0x01, 0x02}}
	msg := bare.Message()
	if msg[0] != StatusSysExStart || msg[len(msg)-1] != StatusSysExEnd {
		t.Errorf("Message() = % X, want F0 ... F7 framing", msg)
	}
}

func TestDataMasking(t *testing.T) {
	ev := MIDIEvent{Data: [3]byte{0xB0, 0xB1, 0xFF}}
	if ev.Data1() != 0x31 || ev.Data2() != 0x7F {
		t.Errorf("Data1()/Data2() = %#x/%#x, want 0x31/0x7f", ev.Data1(), ev.Data2())
	}
}

func TestQueue(t *testing.T) {
	q := NewQueue[MIDIEvent](2)
	if !q.IsEmpty() {
		t.Error("new queue should be empty")
	}

	for i := 0; i < 5; i++ {
		q.Add(MIDIEvent{Delta: int32(i)})
	}
	q.AddAll([]MIDIEvent{{Delta: 5}, {Delta: 6}})

	if q.Len() != 7 {
		t.Fatalf("Len() = %d, want 7", q.Len())
	}
	for i, ev := range q.Events() {
		if ev.Delta != int32(i) {
			t.Errorf("Events()[%d].Delta = %d, want insertion order", i, ev.Delta)
		}
	}

	q.Clear()
	if !q.IsEmpty() {
		t.Errorf("Len() after Clear = %d, want 0", q.Len())
	}
}

func TestPortIngest(t *testing.T) {
	p := NewPort()

	tests := []struct {
		event Event
		ok    bool
	}{
		{MIDIEvent{Data: [3]byte{0xB0, 1, 2}}, true},
		{&MIDIEvent{Data: [3]byte{0x90, 60, 1}}, true},
		{SysexEvent{Data: []byte{0xF0, 0xF7}}, true},
		{&SysexEvent{Data: []byte{0xF0, 0xF7}}, true},
		{nil, false},
	}
	for _, tt := range tests {
		if got := p.Ingest(tt.event); got != tt.ok {
			t.Errorf("Ingest(%v) = %v, want %v", tt.event, got, tt.ok)
		}
	}

	if p.MIDIIn.Len() != 2 || p.SysexIn.Len() != 2 {
		t.Errorf("inputs = %d midi / %d sysex, want 2 / 2", p.MIDIIn.Len(), p.SysexIn.Len())
	}

	p.PassthroughSysex()
	if p.SysexOut.Len() != 2 {
		t.Errorf("SysexOut.Len() = %d, want 2", p.SysexOut.Len())
	}
	if p.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", p.Pending())
	}

	p.ClearInputs()
	p.ClearOutputs()
	if p.MIDIIn.Len()+p.SysexIn.Len()+p.Pending() != 0 {
		t.Error("port buffers should be empty after clearing")
	}
}

func TestBatcherDrain(t *testing.T) {
	tests := []struct {
		events int
		calls  int
		last   int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{255, 1, 255},
		{256, 1, 256},
		{257, 2, 1},
		{300, 2, 44},
		{512, 2, 256},
		{513, 3, 1},
	}

	for _, tt := range tests {
		q := NewQueue[MIDIEvent](tt.events)
		for i := 0; i < tt.events; i++ {
			q.Add(MIDIEvent{Delta: int32(i)})
		}

		var sizes []int
		var next int32
		calls, err := NewBatcher[MIDIEvent](MaxEventsPerBlock).Drain(q, func(packet []MIDIEvent) error {
			sizes = append(sizes, len(packet))
			for _, ev := range packet {
				if ev.Delta != next {
					t.Errorf("%d events: got delta %d, want %d", tt.events, ev.Delta, next)
				}
				next++
			}
			return nil
		})

		if err != nil {
			t.Errorf("Drain(%d) error = %v", tt.events, err)
		}
		if calls != tt.calls || len(sizes) != tt.calls {
			t.Errorf("Drain(%d) calls = %d, want %d", tt.events, calls, tt.calls)
		}
		if tt.calls > 0 && sizes[len(sizes)-1] != tt.last {
			t.Errorf("Drain(%d) last packet = %d, want %d", tt.events, sizes[len(sizes)-1], tt.last)
		}
		if int(next) != tt.events {
			t.Errorf("Drain(%d) delivered %d events", tt.events, next)
		}
		if !q.IsEmpty() {
			t.Errorf("Drain(%d) left %d events queued", tt.events, q.Len())
		}
	}
}

func TestBatcherContinuesAfterError(t *testing.T) {
	q := NewQueue[SysexEvent](600)
	for i := 0; i < 600; i++ {
		q.Add(SysexEvent{Delta: int32(i)})
	}

	failure := errors.New("host rejected packet")
	delivered := 0
	calls, err := NewBatcher[SysexEvent](0).Drain(q, func(packet []SysexEvent) error {
		delivered += len(packet)
		if delivered <= MaxEventsPerBlock {
			return failure
		}
		return nil
	})

	if !errors.Is(err, failure) {
		t.Errorf("Drain() error = %v, want %v", err, failure)
	}
	if calls != 3 || delivered != 600 {
		t.Errorf("Drain() = %d calls / %d events, want 3 / 600", calls, delivered)
	}
}

func TestNewBatcherSize(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, MaxEventsPerBlock},
		{-1, MaxEventsPerBlock},
		{1000, MaxEventsPerBlock},
		{16, 16},
	}
	for _, tt := range tests {
		if got := NewBatcher[MIDIEvent](tt.in).Size(); got != tt.want {
			t.Errorf("NewBatcher(%d).Size() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRecorderCopies(t *testing.T) {
	var r Recorder
	packet := []MIDIEvent{NewControlChange(0, 0, 49, 64)}
	sx := []SysexEvent{{Data: []byte{0xF0, 0x01, 0xF7}}}

	r.SetOffset(512)
	_ = r.SendMIDI(packet)
	_ = r.SendSysex(sx)
	packet[0].Data[2] = 0
	sx[0].Data[1] = 0x7F

	if got := r.MIDIEvents(); len(got) != 1 || got[0].Data[2] != 64 {
		t.Errorf("MIDIEvents() = %v, want recorded copy", got)
	}
	if got := r.SysexEvents(); len(got) != 1 || got[0].Data[1] != 0x01 {
		t.Errorf("SysexEvents() = %v, want recorded copy", got)
	}

	packets := r.Packets()
	if len(packets) != 2 || packets[0].Offset != 512 || packets[1].Len() != 1 {
		t.Errorf("Packets() = %+v", packets)
	}

	r.Reset()
	if len(r.Packets()) != 0 {
		t.Error("Reset() should forget packets")
	}
}
