package host

import (
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"

	"github.com/james-see/meeblipcc/pkg/engine"
	"github.com/james-see/meeblipcc/pkg/midi"
)

// SysExBufferSize bounds inbound SysEx messages read from a port
const SysExBufferSize = 4096

// port scans can hang on some CoreMIDI setups
const scanTimeout = 3 * time.Second

// PortSink delivers egress packets to a MIDI output port
type PortSink struct {
	send   func(gomidi.Message) error
	logger *zap.Logger
}

// NewPortSink opens out for sending
func NewPortSink(out drivers.Out, logger *zap.Logger) (*PortSink, error) {
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("failed to open output %q: %w", out.String(), err)
	}
	return newPortSink(send, logger), nil
}

func newPortSink(send func(gomidi.Message) error, logger *zap.Logger) *PortSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortSink{send: send, logger: logger.Named("sink")}
}

func (s *PortSink) SendMIDI(events []midi.MIDIEvent) error {
	var firstErr error
	for _, ev := range events {
		if err := s.send(ev.Message()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *PortSink) SendSysex(events []midi.SysexEvent) error {
	var firstErr error
	for _, ev := range events {
		if err := s.send(ev.Message()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Listen feeds every message arriving on in to the runner as events of the
// given engine port. The returned func stops listening.
func Listen(in drivers.In, r *Runner, port int) (func(), error) {
	stop, err := gomidi.ListenTo(in, receiver(r, port), gomidi.UseSysEx(), gomidi.SysExBufferSize(SysExBufferSize))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %q: %w", in.String(), err)
	}
	r.logger.Info("listening", zap.String("in", in.String()), zap.Int("port", port))
	return stop, nil
}

// receiver converts raw port messages. Live input has no block position,
// so every event lands at frame 0 of the next block.
func receiver(r *Runner, port int) func(gomidi.Message, int32) {
	return func(msg gomidi.Message, _ int32) {
		ev, ok := midi.FromMessage(0, msg)
		if !ok {
			r.logger.Debug("ignored message", zap.Stringer("msg", msg))
			return
		}
		r.Post(port, ev)
	}
}

// endpoints opens the two directions of a bridge. Each opener returns a
// closer that releases what it opened.
type endpoints struct {
	output func(fragment string, logger *zap.Logger) (midi.Sink, func(), error)
	input  func(fragment string, r *Runner) (func(), error)
}

var systemEndpoints = endpoints{output: openOutput, input: openInput}

func openOutput(fragment string, logger *zap.Logger) (midi.Sink, func(), error) {
	out, err := FindOutPort(fragment)
	if err != nil {
		return nil, nil, err
	}
	sink, err := NewPortSink(out, logger)
	if err != nil {
		_ = out.Close()
		return nil, nil, err
	}
	logger.Info("output connected", zap.String("port", out.String()))
	return sink, func() { _ = out.Close() }, nil
}

func openInput(fragment string, r *Runner) (func(), error) {
	in, err := FindInPort(fragment)
	if err != nil {
		return nil, err
	}
	stop, err := Listen(in, r, 0)
	if err != nil {
		_ = in.Close()
		return nil, err
	}
	return func() {
		stop()
		_ = in.Close()
	}, nil
}

// Bridge connects an engine to a pair of hardware ports
type Bridge struct {
	runner  *Runner
	closers []func()
	sink    bool
	logger  *zap.Logger
}

// OpenBridge finds ports by name fragment, starts listening on the input
// and installs the output as the engine sink. An empty fragment skips that
// direction. On error nothing stays open and the engine sink is untouched.
func OpenBridge(r *Runner, inFragment, outFragment string, logger *zap.Logger) (*Bridge, error) {
	return openBridge(r, inFragment, outFragment, logger, systemEndpoints)
}

func openBridge(r *Runner, inFragment, outFragment string, logger *zap.Logger, ep endpoints) (*Bridge, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{runner: r, logger: logger.Named("bridge")}

	var sink midi.Sink
	if outFragment != "" {
		s, closeOut, err := ep.output(outFragment, b.logger)
		if err != nil {
			return nil, err
		}
		sink = s
		b.closers = append(b.closers, closeOut)
	}

	if inFragment != "" {
		closeIn, err := ep.input(inFragment, r)
		if err != nil {
			b.release()
			return nil, err
		}
		b.closers = append(b.closers, closeIn)
	}

	if sink != nil {
		r.Do(func(e *engine.Engine) { e.SetSink(sink) })
		b.sink = true
	}
	return b, nil
}

// Close stops listening, detaches the engine sink and closes the ports
func (b *Bridge) Close() {
	if b.sink {
		b.runner.Do(func(e *engine.Engine) { e.SetSink(nil) })
		b.sink = false
	}
	b.release()
	b.logger.Info("closed")
}

func (b *Bridge) release() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// PortNames lists the available input and output port names
func PortNames() (ins, outs []string, err error) {
	inPorts, outPorts, err := scanPorts()
	if err != nil {
		return nil, nil, err
	}
	for _, in := range inPorts {
		ins = append(ins, in.String())
	}
	for _, out := range outPorts {
		outs = append(outs, out.String())
	}
	return ins, outs, nil
}

// FindInPort returns the first input whose name contains fragment,
// ignoring case.
func FindInPort(fragment string) (drivers.In, error) {
	ins, _, err := scanPorts()
	if err != nil {
		return nil, err
	}
	if len(ins) == 0 {
		return nil, fmt.Errorf("no MIDI inputs available")
	}
	for _, in := range ins {
		if matchPort(in.String(), fragment) {
			return in, nil
		}
	}
	return nil, fmt.Errorf("no MIDI input contains %q", fragment)
}

// FindOutPort returns the first output whose name contains fragment,
// ignoring case.
func FindOutPort(fragment string) (drivers.Out, error) {
	_, outs, err := scanPorts()
	if err != nil {
		return nil, err
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("no MIDI outputs available")
	}
	for _, out := range outs {
		if matchPort(out.String(), fragment) {
			return out, nil
		}
	}
	return nil, fmt.Errorf("no MIDI output contains %q", fragment)
}

func matchPort(name, fragment string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(fragment))
}

func scanPorts() ([]drivers.In, []drivers.Out, error) {
	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}

	ch := make(chan result, 1)
	go func() {
		ch <- result{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()

	select {
	case res := <-ch:
		return res.ins, res.outs, nil
	case <-time.After(scanTimeout):
		return nil, nil, fmt.Errorf("timed out listing MIDI ports")
	}
}
