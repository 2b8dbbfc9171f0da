// Package host drives an engine the way a plugin host does: one block at a
// time on a single goroutine, with inbound traffic and remote-control
// writes handed over between blocks.
package host

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/james-see/meeblipcc/pkg/engine"
	"github.com/james-see/meeblipcc/pkg/midi"
)

// DefaultBlockSize is the number of frames rendered per block
const DefaultBlockSize = 512

// ErrStopped is returned by Call once the runner loop has exited
var ErrStopped = errors.New("runner stopped")

type posted struct {
	port  int
	event midi.Event
}

// Runner owns an engine and serialises everything that touches it onto the
// block goroutine.
type Runner struct {
	engine    *engine.Engine
	blockSize int
	logger    *zap.Logger

	mu      sync.Mutex
	calls   []func(*engine.Engine)
	pending []posted
	stopped bool
	quit    chan struct{}

	// block goroutine only
	in, out [][]float32
	batch   []midi.Event
	frames  int64
}

// NewRunner wraps e. Blocks carry blockSize frames of silent stereo audio.
func NewRunner(e *engine.Engine, blockSize int, logger *zap.Logger) *Runner {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runner{
		engine:    e,
		blockSize: blockSize,
		logger:    logger.Named("runner"),
		quit:      make(chan struct{}),
	}
	for ch := 0; ch < 2; ch++ {
		r.in = append(r.in, make([]float32, blockSize))
		r.out = append(r.out, make([]float32, blockSize))
	}
	return r
}

// BlockSize returns the frames per block
func (r *Runner) BlockSize() int {
	return r.blockSize
}

// Frames returns the number of frames rendered so far. Block goroutine only.
func (r *Runner) Frames() int64 {
	return r.frames
}

// Do queues fn to run on the block goroutine at the start of the next block
func (r *Runner) Do(fn func(*engine.Engine)) {
	r.mu.Lock()
	r.calls = append(r.calls, fn)
	r.mu.Unlock()
}

// call claim states
const (
	callPending int32 = iota
	callRunning
	callAbandoned
)

// Call runs fn at the start of the next block and waits for its result.
// It gives up when ctx is done or the runner has stopped; a call given up on
// before its block starts never runs.
func (r *Runner) Call(ctx context.Context, fn func(*engine.Engine) error) error {
	done := make(chan error, 1)
	var state atomic.Int32

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrStopped
	}
	r.calls = append(r.calls, func(e *engine.Engine) {
		if !state.CompareAndSwap(callPending, callRunning) {
			return
		}
		done <- fn(e)
	})
	r.mu.Unlock()

	select {
	case err := <-done:
		return err
	case <-r.quit:
		if state.CompareAndSwap(callPending, callAbandoned) {
			return ErrStopped
		}
	case <-ctx.Done():
		if state.CompareAndSwap(callPending, callAbandoned) {
			return ctx.Err()
		}
	}
	// already running on the block goroutine
	return <-done
}

// Post queues inbound events for the next block on the given port
func (r *Runner) Post(port int, events ...midi.Event) {
	r.mu.Lock()
	for _, ev := range events {
		r.pending = append(r.pending, posted{port: port, event: ev})
	}
	r.mu.Unlock()
}

// Block runs one cycle: queued calls, then inbound events, then the engine
// block with its egress delivery.
func (r *Runner) Block() {
	r.mu.Lock()
	calls := r.calls
	pending := r.pending
	r.calls = nil
	r.pending = nil
	r.mu.Unlock()

	for _, fn := range calls {
		fn(r.engine)
	}

	for start := 0; start < len(pending); {
		port := pending[start].port
		r.batch = r.batch[:0]
		end := start
		for ; end < len(pending) && pending[end].port == port; end++ {
			r.batch = append(r.batch, pending[end].event)
		}
		r.engine.ProcessEvents(port, r.batch)
		start = end
	}

	r.engine.ProcessReplacing(r.in, r.out, r.blockSize)
	r.frames += int64(r.blockSize)
}

// Run calls Block every period until ctx is done. Calls still queued when
// it returns are dropped and later ones fail with ErrStopped.
func (r *Runner) Run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		return errors.Errorf("block period %v must be positive", period)
	}

	r.logger.Info("block loop started", zap.Duration("period", period), zap.Int("blockSize", r.blockSize))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			dropped := len(r.calls)
			r.calls = nil
			if !r.stopped {
				r.stopped = true
				close(r.quit)
			}
			r.mu.Unlock()
			r.logger.Info("block loop stopped", zap.Int64("frames", r.frames), zap.Int("droppedCalls", dropped))
			return nil
		case <-ticker.C:
			r.Block()
		}
	}
}

// BlockPeriod returns the wall-clock length of one block at sampleRate
func BlockPeriod(blockSize int, sampleRate float64) time.Duration {
	if blockSize <= 0 || sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(blockSize) / sampleRate * float64(time.Second))
}
