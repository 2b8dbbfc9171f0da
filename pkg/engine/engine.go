// Package engine is one Meeblip controller instance: parameter state,
// programs, and the per-block MIDI dispatch and egress cycle.
//
// An Engine is single-threaded. The host calls ProcessEvents and then one of
// the Process*Replacing methods for each block, on the same goroutine that
// performs every other call.
package engine

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/james-see/meeblipcc/pkg/layout"
	"github.com/james-see/meeblipcc/pkg/midi"
	"github.com/james-see/meeblipcc/pkg/quantize"
)

const (
	// DefaultPrograms is the number of program slots of a new instance
	DefaultPrograms = 128

	// DefaultProgramName labels every freshly initialised program
	DefaultProgramName = "-init-"

	// MaxProgramNameLen bounds program names, longer names are truncated
	MaxProgramNameLen = 24
)

// Reflector mirrors parameter writes into a GUI or any other observer.
// It is called on the block goroutine for every quantized parameter write.
type Reflector interface {
	ReflectParameter(index int, value float64)
}

// ReflectorFunc adapts a plain function to Reflector
type ReflectorFunc func(index int, value float64)

func (f ReflectorFunc) ReflectParameter(index int, value float64) {
	f(index, value)
}

// Config holds construction settings of an Engine
type Config struct {
	Layout       layout.Table
	Programs     int
	EchoEnabled  bool
	MaxBatchSize int
	Ports        int

	// Initial MIDI channels, 0-based
	InChannel  uint8
	OutChannel uint8

	Logger    *zap.Logger
	Reflector Reflector
}

// DefaultConfig returns the reference Meeblip setup
func DefaultConfig() Config {
	return Config{
		Layout:       layout.Meeblip(),
		Programs:     DefaultPrograms,
		EchoEnabled:  true,
		MaxBatchSize: midi.MaxEventsPerBlock,
		Ports:        1,
	}
}

// Program is one preset slot
type Program struct {
	Name   string
	Values []float64
}

// Engine is a single controller instance
type Engine struct {
	layout   layout.Table
	programs []Program
	active   int

	inChannel  float64
	outChannel float64
	echo       bool

	ports      []*midi.Port
	midiBatch  *midi.Batcher[midi.MIDIEvent]
	sysexBatch *midi.Batcher[midi.SysexEvent]
	sink       midi.Sink

	reflector Reflector
	logger    *zap.Logger
	stats     Stats
}

// Stats counts block traffic since the engine was created
type Stats struct {
	Blocks         uint64 `json:"blocks"`
	EventsIn       uint64 `json:"eventsIn"`
	ControlChanges uint64 `json:"controlChanges"`
	Unmapped       uint64 `json:"unmapped"`
	EventsOut      uint64 `json:"eventsOut"`
	Deliveries     uint64 `json:"deliveries"`
	DeliveryErrors uint64 `json:"deliveryErrors"`
}

// New validates cfg and builds an engine delivering egress to sink.
// A nil sink discards egress.
func New(cfg Config, sink midi.Sink) (*Engine, error) {
	if err := cfg.Layout.Validate(); err != nil {
		return nil, err
	}
	if cfg.Programs <= 0 {
		return nil, errors.Errorf("program count %d must be positive", cfg.Programs)
	}
	if cfg.Ports <= 0 {
		return nil, errors.Errorf("port count %d must be positive", cfg.Ports)
	}
	if cfg.MaxBatchSize <= 0 || cfg.MaxBatchSize > midi.MaxEventsPerBlock {
		return nil, errors.Errorf("max batch size %d outside (0, %d]", cfg.MaxBatchSize, midi.MaxEventsPerBlock)
	}
	if cfg.InChannel > quantize.MaxChannel || cfg.OutChannel > quantize.MaxChannel {
		return nil, errors.Errorf("midi channels %d/%d outside [0, %d]", cfg.InChannel, cfg.OutChannel, quantize.MaxChannel)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = midi.DiscardSink{}
	}

	e := &Engine{
		layout:     cfg.Layout.Clone(),
		inChannel:  quantize.ChannelToValue(cfg.InChannel),
		outChannel: quantize.ChannelToValue(cfg.OutChannel),
		echo:       cfg.EchoEnabled,
		midiBatch:  midi.NewBatcher[midi.MIDIEvent](cfg.MaxBatchSize),
		sysexBatch: midi.NewBatcher[midi.SysexEvent](cfg.MaxBatchSize),
		sink:       sink,
		reflector:  cfg.Reflector,
		logger:     logger.Named("engine"),
	}

	e.ports = make([]*midi.Port, cfg.Ports)
	for i := range e.ports {
		e.ports[i] = midi.NewPort()
	}

	defaults := e.defaultValues()
	e.programs = make([]Program, cfg.Programs)
	for i := range e.programs {
		values := make([]float64, len(defaults))
		copy(values, defaults)
		e.programs[i] = Program{Name: DefaultProgramName, Values: values}
	}

	e.logger.Debug("engine ready",
		zap.Int("parameters", e.layout.Len()),
		zap.Int("programs", len(e.programs)),
		zap.Int("ports", len(e.ports)),
		zap.Bool("echo", e.echo))
	return e, nil
}

func (e *Engine) defaultValues() []float64 {
	values := make([]float64, e.layout.Len())
	for i, d := range e.layout {
		values[i] = quantize.StepToValue(d.DefaultValue, d)
	}
	return values
}

// Layout returns a copy of the parameter table
func (e *Engine) Layout() layout.Table {
	return e.layout.Clone()
}

// SetEchoEnabled switches outgoing CC for automation writes
func (e *Engine) SetEchoEnabled(enabled bool) {
	e.echo = enabled
}

func (e *Engine) EchoEnabled() bool {
	return e.echo
}

// SetSink replaces the egress collaborator. A nil sink discards egress.
func (e *Engine) SetSink(sink midi.Sink) {
	if sink == nil {
		sink = midi.DiscardSink{}
	}
	e.sink = sink
}

// SetReflector replaces the parameter observer
func (e *Engine) SetReflector(r Reflector) {
	e.reflector = r
}

// Port returns the buffers of MIDI port i, or nil
func (e *Engine) Port(i int) *midi.Port {
	if i < 0 || i >= len(e.ports) {
		return nil
	}
	return e.ports[i]
}

// NumPorts returns the number of MIDI ports
func (e *Engine) NumPorts() int {
	return len(e.ports)
}

// Stats returns the traffic counters
func (e *Engine) Stats() Stats {
	return e.stats
}
