// Package replay runs an engine offline against a Standard MIDI File. The
// file is cut into fixed-size blocks, fed through the engine, and whatever
// the engine delivers is written to a new file.
package replay

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"
	"go.uber.org/zap"

	"github.com/james-see/meeblipcc/pkg/engine"
	"github.com/james-see/meeblipcc/pkg/midi"
)

const (
	DefaultSampleRate  = 44100.0
	DefaultBlockSize   = 512
	DefaultMaxDuration = time.Hour

	// 120 BPM
	defaultMicrosPerQuarter = 500000
)

// ErrTooLong is returned for files whose last event lies beyond MaxDuration
var ErrTooLong = errors.New("replay too long")

// Options controls block timing
type Options struct {
	SampleRate  float64
	BlockSize   int
	MaxDuration time.Duration
	Logger      *zap.Logger
}

// automation is a host parameter write scheduled at an absolute frame
type automation struct {
	frame int64
	index int
	value float64
}

// Player owns an engine whose egress is recorded
type Player struct {
	engine     *engine.Engine
	recorder   *midi.Recorder
	sampleRate float64
	blockSize  int
	maxFrames  int64
	automation []automation
	logger     *zap.Logger
}

// New builds a player around a fresh engine
func New(cfg engine.Config, opts Options) (*Player, error) {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = opts.Logger
	}

	rec := &midi.Recorder{}
	e, err := engine.New(cfg, rec)
	if err != nil {
		return nil, err
	}

	return &Player{
		engine:     e,
		recorder:   rec,
		sampleRate: opts.SampleRate,
		blockSize:  opts.BlockSize,
		maxFrames:  int64(opts.MaxDuration.Seconds() * opts.SampleRate),
		logger:     opts.Logger.Named("replay"),
	}, nil
}

// Engine returns the engine driven by the player
func (p *Player) Engine() *engine.Engine {
	return p.engine
}

// SysexOut returns the System-Exclusive messages delivered so far, in order
func (p *Player) SysexOut() []midi.SysexEvent {
	return p.recorder.SysexEvents()
}

// Automate schedules a host write of a flat parameter index at frame.
// Writes run before the events of the block that contains frame.
func (p *Player) Automate(frame int64, index int, value float64) error {
	if _, err := p.engine.Resolve(index); err != nil {
		return err
	}
	p.automation = append(p.automation, automation{frame: frame, index: index, value: value})
	sort.SliceStable(p.automation, func(i, j int) bool {
		return p.automation[i].frame < p.automation[j].frame
	})
	return nil
}

type timedEvent struct {
	frame int64
	event midi.Event
}

// clock converts between ticks and frames at a fixed tempo
type clock struct {
	resolution       float64
	microsPerQuarter float64
	sampleRate       float64
}

// frame saturates at math.MaxInt64 for positions no int64 can hold
func (c clock) frame(tick int64) int64 {
	seconds := float64(tick) / c.resolution * c.microsPerQuarter / 1e6
	f := math.Floor(seconds * c.sampleRate)
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

func (c clock) tick(frame int64) int64 {
	quarters := float64(frame) / c.sampleRate * 1e6 / c.microsPerQuarter
	return int64(math.Round(quarters * c.resolution))
}

// Play runs every event of s through the engine and returns the egress as
// a single-track file with the same resolution and tempo. Blocks with
// nothing scheduled are skipped. Play stops early when ctx is done.
func (p *Player) Play(ctx context.Context, s *smf.SMF) (*smf.SMF, error) {
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("unsupported time format %v", s.TimeFormat)
	}

	clk := clock{
		resolution:       float64(ticks.Resolution()),
		microsPerQuarter: defaultMicrosPerQuarter,
		sampleRate:       p.sampleRate,
	}
	if tempo, found := firstTempo(s); found {
		clk.microsPerQuarter = float64(tempo)
	}

	events := p.collect(s, clk)
	p.logger.Debug("playing",
		zap.Int("events", len(events)),
		zap.Float64("microsPerQuarter", clk.microsPerQuarter),
		zap.Int("blockSize", p.blockSize))

	var last int64 = -1
	if len(events) > 0 {
		last = events[len(events)-1].frame
	}
	if n := len(p.automation); n > 0 && p.automation[n-1].frame > last {
		last = p.automation[n-1].frame
	}
	if last >= p.maxFrames {
		return nil, errors.Wrapf(ErrTooLong, "last event at %.0fs, limit %.0fs",
			float64(last)/p.sampleRate, float64(p.maxFrames)/p.sampleRate)
	}
	end := last + 1

	p.recorder.Reset()
	if err := p.run(ctx, events, end); err != nil {
		return nil, err
	}

	out, err := p.render(clk, ticks)
	if err != nil {
		return nil, err
	}
	p.logger.Info("replay finished",
		zap.Int64("frames", end),
		zap.Uint64("blocks", p.engine.Stats().Blocks),
		zap.Uint64("eventsOut", p.engine.Stats().EventsOut))
	return out, nil
}

// PlayFile replays the file at in and writes the egress to out
func (p *Player) PlayFile(ctx context.Context, in, out string) error {
	s, err := smf.ReadFile(in)
	if err != nil {
		return fmt.Errorf("failed to read MIDI file: %w", err)
	}
	res, err := p.Play(ctx, s)
	if err != nil {
		return err
	}
	if err := res.WriteFile(out); err != nil {
		return fmt.Errorf("failed to write MIDI file: %w", err)
	}
	return nil
}

func firstTempo(s *smf.SMF) (uint32, bool) {
	var (
		best   int64 = -1
		micros uint32
	)
	for _, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			msg := ev.Message
			// FF 51 03 tt tt tt
			if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
				if best < 0 || tick < best {
					best = tick
					micros = uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
				}
				break
			}
		}
	}
	return micros, best >= 0 && micros > 0
}

// collect merges all tracks into frame order. Meta events are skipped.
func (p *Player) collect(s *smf.SMF, clk clock) []timedEvent {
	var out []timedEvent
	for _, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			msg := ev.Message
			if len(msg) == 0 || msg[0] == 0xFF {
				continue
			}
			me, ok := midi.FromMessage(0, msg)
			if !ok {
				continue
			}
			out = append(out, timedEvent{frame: clk.frame(tick), event: me})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].frame < out[j].frame })
	return out
}

func (p *Player) run(ctx context.Context, events []timedEvent, end int64) error {
	var (
		in     = [][]float32{make([]float32, p.blockSize), make([]float32, p.blockSize)}
		out    = [][]float32{make([]float32, p.blockSize), make([]float32, p.blockSize)}
		size   = int64(p.blockSize)
		block  []midi.Event
		next   int
		nextAt int
	)

	for start := int64(0); start < end; start += size {
		if err := ctx.Err(); err != nil {
			return err
		}

		// jump to the block holding the next event or automation
		due := end
		if next < len(events) {
			due = events[next].frame
		}
		if nextAt < len(p.automation) && p.automation[nextAt].frame < due {
			due = p.automation[nextAt].frame
		}
		if due >= start+size {
			start = due / size * size
		}
		stop := start + size

		for ; nextAt < len(p.automation) && p.automation[nextAt].frame < stop; nextAt++ {
			a := p.automation[nextAt]
			if err := p.engine.SetParameterAt(a.index, a.value); err != nil {
				p.logger.Warn("automation rejected", zap.Int("index", a.index), zap.Error(err))
			}
		}

		block = block[:0]
		for ; next < len(events) && events[next].frame < stop; next++ {
			block = append(block, withDelta(events[next].event, int32(events[next].frame-start)))
		}

		p.engine.ProcessEvents(0, block)
		p.recorder.SetOffset(start)
		p.engine.ProcessReplacing(in, out, p.blockSize)
	}
	return nil
}

func withDelta(ev midi.Event, delta int32) midi.Event {
	switch e := ev.(type) {
	case midi.MIDIEvent:
		e.Delta = delta
		return e
	case midi.SysexEvent:
		e.Delta = delta
		return e
	}
	return ev
}

func (p *Player) render(clk clock, ticks smf.MetricTicks) (*smf.SMF, error) {
	type stamped struct {
		frame int64
		msg   []byte
	}

	var egress []stamped
	for _, packet := range p.recorder.Packets() {
		for _, ev := range packet.MIDI {
			egress = append(egress, stamped{packet.Offset + int64(ev.Delta), ev.Message()})
		}
		for _, ev := range packet.Sysex {
			egress = append(egress, stamped{packet.Offset + int64(ev.Delta), ev.Message()})
		}
	}
	sort.SliceStable(egress, func(i, j int) bool { return egress[i].frame < egress[j].frame })

	s := smf.New()
	s.TimeFormat = ticks

	var track smf.Track
	micros := uint32(clk.microsPerQuarter)
	track.Add(0, smf.Message([]byte{0xFF, 0x51, 0x03, byte(micros >> 16), byte(micros >> 8), byte(micros)}))

	var last int64
	for _, ev := range egress {
		tick := clk.tick(ev.frame)
		if tick < last {
			tick = last
		}
		track.Add(uint32(tick-last), ev.msg)
		last = tick
	}
	track.Close(0)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}
	return s, nil
}
