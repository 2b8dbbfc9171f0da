package engine

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/james-see/meeblipcc/pkg/quantize"
)

// ErrParameterIndex is returned for flat host indices outside the parameter range
var ErrParameterIndex = errors.New("parameter index out of range")

// ChannelKind selects one of the two MIDI channel parameters
type ChannelKind int

const (
	ChannelIn ChannelKind = iota
	ChannelOut
)

func (k ChannelKind) String() string {
	if k == ChannelOut {
		return "Midi Out"
	}
	return "Midi In"
}

// ParamID addresses a parameter: either a layout entry or a channel selector
type ParamID struct {
	channel bool
	index   int
	kind    ChannelKind
}

// Quantized addresses layout entry i
func Quantized(i int) ParamID {
	return ParamID{index: i}
}

// Channel addresses a MIDI channel selector
func Channel(kind ChannelKind) ParamID {
	return ParamID{channel: true, kind: kind}
}

// IsChannel reports whether id addresses a channel selector
func (id ParamID) IsChannel() bool {
	return id.channel
}

// Index returns the layout index of a quantized parameter
func (id ParamID) Index() int {
	return id.index
}

// ChannelKind returns the selector of a channel parameter
func (id ParamID) ChannelKind() ChannelKind {
	return id.kind
}

func (id ParamID) String() string {
	if id.channel {
		return id.kind.String()
	}
	return fmt.Sprintf("param[%d]", id.index)
}

// Origin tells the write path where a parameter change came from
type Origin int

const (
	// OriginAutomation is a host, GUI or remote-control write. It echoes a CC
	// when echo is enabled.
	OriginAutomation Origin = iota

	// OriginControlChange is a write driven by an inbound CC. It never echoes.
	OriginControlChange
)

func (o Origin) String() string {
	if o == OriginControlChange {
		return "control-change"
	}
	return "automation"
}

// NumParameters returns the flat host parameter count: the layout entries
// followed by the In and Out channel selectors.
func (e *Engine) NumParameters() int {
	return e.layout.Len() + 2
}

// Resolve maps a flat host index onto a ParamID
func (e *Engine) Resolve(index int) (ParamID, error) {
	n := e.layout.Len()
	switch {
	case index >= 0 && index < n:
		return Quantized(index), nil
	case index == n:
		return Channel(ChannelIn), nil
	case index == n+1:
		return Channel(ChannelOut), nil
	}
	return ParamID{}, errors.Wrapf(ErrParameterIndex, "index %d not in [0, %d)", index, n+2)
}

// FlatIndex is the inverse of Resolve
func (e *Engine) FlatIndex(id ParamID) int {
	if !id.channel {
		return id.index
	}
	return e.layout.Len() + int(id.kind)
}

// Parameter returns the normalized value of id from the active program
func (e *Engine) Parameter(id ParamID) float64 {
	if id.channel {
		return *e.channelSlot(id.kind)
	}
	return e.programs[e.active].Values[id.index]
}

// SetParameter is the single write path of every parameter change. The
// value is clamped to [0,1]. A quantized write updates the active program,
// reflects to the observer and, for automation with echo enabled, queues an
// outgoing CC on port 0. Channel writes only store the value.
func (e *Engine) SetParameter(id ParamID, value float64, origin Origin) {
	value = quantize.Clamp(value)

	if id.channel {
		*e.channelSlot(id.kind) = value
		e.logger.Debug("channel set",
			zap.Stringer("param", id),
			zap.Uint8("channel", quantize.ValueToChannel(value)))
		return
	}

	e.programs[e.active].Values[id.index] = value
	e.logger.Debug("parameter set",
		zap.String("name", e.layout[id.index].Name),
		zap.Float64("value", value),
		zap.Stringer("origin", origin))

	if origin == OriginAutomation && e.echo {
		e.sendControlChange(id.index, quantize.ValueToMIDI(value))
	}
	if e.reflector != nil {
		e.reflector.ReflectParameter(id.index, value)
	}
}

func (e *Engine) channelSlot(kind ChannelKind) *float64 {
	if kind == ChannelOut {
		return &e.outChannel
	}
	return &e.inChannel
}

// ParameterAt reads by flat host index
func (e *Engine) ParameterAt(index int) (float64, error) {
	id, err := e.Resolve(index)
	if err != nil {
		return 0, err
	}
	return e.Parameter(id), nil
}

// SetParameterAt writes by flat host index with automation origin
func (e *Engine) SetParameterAt(index int, value float64) error {
	id, err := e.Resolve(index)
	if err != nil {
		return err
	}
	e.SetParameter(id, value, OriginAutomation)
	return nil
}

// ParameterName returns the display name of id
func (e *Engine) ParameterName(id ParamID) string {
	if id.channel {
		return id.kind.String()
	}
	return e.layout[id.index].Name
}

// ParameterDisplay renders the current value of id. Channels are shown
// 1-based.
func (e *Engine) ParameterDisplay(id ParamID) string {
	value := e.Parameter(id)
	if id.channel {
		return strconv.Itoa(int(quantize.ValueToChannel(value)) + 1)
	}
	return quantize.Display(value, e.layout[id.index])
}

// ParameterNameAt is ParameterName by flat host index
func (e *Engine) ParameterNameAt(index int) (string, error) {
	id, err := e.Resolve(index)
	if err != nil {
		return "", err
	}
	return e.ParameterName(id), nil
}

// ParameterDisplayAt is ParameterDisplay by flat host index
func (e *Engine) ParameterDisplayAt(index int) (string, error) {
	id, err := e.Resolve(index)
	if err != nil {
		return "", err
	}
	return e.ParameterDisplay(id), nil
}

// Step returns the quantized knob value of layout entry i
func (e *Engine) Step(i int) int {
	return quantize.ValueToStep(e.programs[e.active].Values[i], e.layout[i])
}

// InChannel returns the 0-based inbound MIDI channel
func (e *Engine) InChannel() uint8 {
	return quantize.ValueToChannel(e.inChannel)
}

// OutChannel returns the 0-based outbound MIDI channel
func (e *Engine) OutChannel() uint8 {
	return quantize.ValueToChannel(e.outChannel)
}
