package audio

import (
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/rishikanthc/scriberr-desktop/internal/ring"
)

const (
	// levelWindow is the number of mixed ticks per RMS update: ~23 updates
	// per second for an interleaved stereo stream at 48 kHz.
	levelWindow = 4096

	// idleSleep bounds CPU usage while the master channel is empty without
	// adding meaningful output latency.
	idleSleep = time.Millisecond
)

// SampleWriter receives the mixed output stream one tick at a time.
type SampleWriter interface {
	WriteSample(float32) error
}

// Source pairs a sample channel with its per-session enabled flag. Sources
// are uniform records; the engine is parameterized by which are enabled, not
// by source type.
type Source struct {
	Ch      *ring.Buffer
	Enabled bool
}

// Engine owns the consumer side of both sample channels and runs the
// synchronization/mixing loop on a dedicated worker goroutine.
//
// The microphone is the master clock whenever it is enabled: it is hardware
// timed, while system-audio delivery is bursty. Master samples are drained
// as they arrive; the other source contributes a sample when it has one and
// silence when it doesn't. The engine therefore never stalls waiting on a
// source that stopped delivering.
type Engine struct {
	system Source
	mic    Source
	out    SampleWriter

	running atomic.Bool
	done    chan struct{}

	level   atomic.Uint64 // math.Float64bits of the latest RMS
	onLevel func(float64)

	// RMS accumulator, touched only by the worker goroutine.
	sumSquares float64
	ticks      int

	writeFailed bool
}

// NewEngine wires the engine to its two sources and the output sink.
func NewEngine(system, mic Source, out SampleWriter) *Engine {
	return &Engine{
		system: system,
		mic:    mic,
		out:    out,
		done:   make(chan struct{}),
	}
}

// SetLevelFunc registers a callback invoked from the worker goroutine with
// each new RMS value. Must be called before Start.
func (e *Engine) SetLevelFunc(fn func(float64)) {
	e.onLevel = fn
}

// Start spawns the worker goroutine.
func (e *Engine) Start() {
	e.running.Store(true)
	go e.run()
}

// Stop signals the worker to exit and waits up to grace for it to drain
// in-flight samples and finish. It reports whether the worker exited within
// the grace period.
func (e *Engine) Stop(grace time.Duration) bool {
	e.running.Store(false)
	select {
	case <-e.done:
		return true
	case <-time.After(grace):
		slog.Warn("mixing engine did not drain within grace period", "grace", grace)
		return false
	}
}

// Level returns the most recent RMS metric, 0 before the first window
// completes.
func (e *Engine) Level() float64 {
	return math.Float64frombits(e.level.Load())
}

func (e *Engine) run() {
	defer close(e.done)

	for e.running.Load() {
		master, other := e.masterSource()
		if master == nil {
			// Neither source enabled; idle until stopped.
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if master.Ch.Empty() {
			time.Sleep(idleSleep)
			continue
		}
		e.drain(master, other)
	}

	// The controller stops the adapters before signaling us, so one final
	// drain flushes everything that was in flight.
	if master, other := e.masterSource(); master != nil {
		e.drain(master, other)
	}
}

// masterSource selects the source that paces the output. The choice depends
// only on which sources are enabled, never on buffer state.
func (e *Engine) masterSource() (master, other *Source) {
	if e.mic.Enabled {
		return &e.mic, &e.system
	}
	if e.system.Enabled {
		return &e.system, &e.mic
	}
	return nil, nil
}

func (e *Engine) drain(master, other *Source) {
	for {
		m, ok := master.Ch.Pop()
		if !ok {
			return
		}

		// Opportunistic pop from the other source: underrun or a disabled
		// source contributes silence for this tick instead of stalling.
		var o float32
		if other.Enabled {
			o, _ = other.Ch.Pop()
		}

		e.write(mix(m, o))
	}
}

// mix combines two samples additively with a hard clip to [-1, 1].
func mix(a, b float32) float32 {
	s := a + b
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}

func (e *Engine) write(s float32) {
	e.sumSquares += float64(s) * float64(s)
	e.ticks++
	if e.ticks == levelWindow {
		rms := math.Sqrt(e.sumSquares / levelWindow)
		e.level.Store(math.Float64bits(rms))
		if e.onLevel != nil {
			e.onLevel(rms)
		}
		e.sumSquares = 0
		e.ticks = 0
	}

	if err := e.out.WriteSample(s); err != nil {
		// Mid-session write failures degrade the session, they do not end
		// it. Log the first one; at 96k ticks/s repeating it would swamp
		// the log.
		if !e.writeFailed {
			e.writeFailed = true
			slog.Error("writing mixed sample", "error", err)
		}
	}
}
