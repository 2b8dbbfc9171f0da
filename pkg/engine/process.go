package engine

import (
	"go.uber.org/zap"

	"github.com/james-see/meeblipcc/pkg/midi"
	"github.com/james-see/meeblipcc/pkg/quantize"
)

// ProcessEvents queues host events for the next block on the given port.
// It returns how many were accepted; unknown event types are dropped.
func (e *Engine) ProcessEvents(port int, events []midi.Event) int {
	p := e.Port(port)
	if p == nil {
		e.logger.Debug("events for unknown port dropped", zap.Int("port", port), zap.Int("count", len(events)))
		return 0
	}

	accepted := 0
	for _, ev := range events {
		if p.Ingest(ev) {
			accepted++
			continue
		}
		e.logger.Debug("unsupported event dropped", zap.Int("port", port))
	}
	e.stats.EventsIn += uint64(accepted)
	return accepted
}

// ProcessReplacing runs one block in single precision: dispatch queued
// input, copy audio through, then deliver all egress.
func (e *Engine) ProcessReplacing(inputs, outputs [][]float32, frames int) {
	e.dispatch()
	passthrough(inputs, outputs, frames)
	e.postProcess()
}

// ProcessDoubleReplacing is ProcessReplacing in double precision
func (e *Engine) ProcessDoubleReplacing(inputs, outputs [][]float64, frames int) {
	e.dispatch()
	passthrough(inputs, outputs, frames)
	e.postProcess()
}

func (e *Engine) dispatch() {
	for _, p := range e.ports {
		for _, ev := range p.MIDIIn.Events() {
			e.dispatchMIDI(ev)
		}
		p.PassthroughSysex()
	}
}

func (e *Engine) dispatchMIDI(ev midi.MIDIEvent) {
	switch ev.Status() {
	case midi.StatusNoteOff:
		e.logger.Debug("note off", zap.Uint8("key", ev.Data1()), zap.Uint8("velocity", ev.Data2()))
	case midi.StatusNoteOn:
		e.logger.Debug("note on", zap.Uint8("key", ev.Data1()), zap.Uint8("velocity", ev.Data2()))
	case midi.StatusControlChange:
		e.stats.ControlChanges++
		cc, value := ev.Data1(), ev.Data2()

		index, ok := e.layout.CCToParameter(cc)
		e.logger.Debug("control change",
			zap.Uint8("cc", cc),
			zap.Uint8("value", value),
			zap.Int("param", index),
			zap.Bool("mapped", ok))
		if !ok {
			e.stats.Unmapped++
			return
		}
		e.SetParameter(Quantized(index), quantize.MIDIToValue(value), OriginControlChange)
	}
}

func (e *Engine) sendControlChange(index int, value uint8) {
	ev := midi.NewControlChange(0, e.OutChannel(), e.layout.ParameterToCC(index), value)
	e.ports[0].MIDIOut.Add(ev)
}

// postProcess drains every output queue through the batchers and clears
// the input queues. Nothing survives into the next block.
func (e *Engine) postProcess() {
	for i, p := range e.ports {
		e.stats.EventsOut += uint64(p.Pending())

		calls, err := e.midiBatch.Drain(p.MIDIOut, e.sink.SendMIDI)
		e.recordDelivery(i, midi.EventTypeMIDI, calls, err)

		calls, err = e.sysexBatch.Drain(p.SysexOut, e.sink.SendSysex)
		e.recordDelivery(i, midi.EventTypeSysex, calls, err)

		p.ClearInputs()
	}
	e.stats.Blocks++
}

func (e *Engine) recordDelivery(port int, t midi.EventType, calls int, err error) {
	if calls == 0 {
		return
	}
	e.stats.Deliveries += uint64(calls)
	e.logger.Debug("delivered", zap.Int("port", port), zap.Stringer("type", t), zap.Int("packets", calls))
	if err != nil {
		e.stats.DeliveryErrors++
		e.logger.Warn("sink rejected packet", zap.Int("port", port), zap.Stringer("type", t), zap.Error(err))
	}
}

type sample interface {
	~float32 | ~float64
}

// passthrough copies each input channel to the matching output channel.
// Output channels without an input are silenced.
func passthrough[S sample](inputs, outputs [][]S, frames int) {
	for ch, out := range outputs {
		n := min(frames, len(out))
		if ch < len(inputs) {
			n = min(n, len(inputs[ch]))
			copy(out[:n], inputs[ch][:n])
			continue
		}
		clear(out[:n])
	}
}
