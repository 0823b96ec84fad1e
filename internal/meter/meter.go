package meter

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/mictape/internal/graph"
)

// DefaultCadence is the default sampling interval.
const DefaultCadence = 100 * time.Millisecond

// Meter samples the analyser tap on a fixed cadence and reduces the
// frequency-domain buffer to one normalized volume scalar. Each sample
// schedules the next one; there is no repeating timer. Stop flips the
// liveness flag, so a sample that fires after teardown sees a dead meter
// and neither publishes nor reschedules.
type Meter struct {
	log      zerolog.Logger
	analyser *graph.Analyser
	cadence  time.Duration
	onSample func(float64)

	mu      sync.Mutex
	live    bool
	timer   *time.Timer
	current float64
}

func New(a *graph.Analyser, cadence time.Duration, onSample func(float64), log zerolog.Logger) *Meter {
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	return &Meter{
		log:      log,
		analyser: a,
		cadence:  cadence,
		onSample: onSample,
	}
}

// Start schedules the first sample. Starting an already-live meter is a
// no-op.
func (m *Meter) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live {
		return
	}
	m.live = true
	m.scheduleLocked()
	m.log.Debug().Dur("cadence", m.cadence).Msg("Volume meter started")
}

func (m *Meter) scheduleLocked() {
	m.timer = time.AfterFunc(m.cadence, m.sample)
}

func (m *Meter) sample() {
	m.mu.Lock()
	if !m.live {
		m.mu.Unlock()
		return
	}
	v := m.analyser.Level()
	m.current = v
	cb := m.onSample
	m.scheduleLocked()
	m.mu.Unlock()

	if cb != nil {
		cb(v)
	}
}

// Current returns the most recently published volume in [0,1].
func (m *Meter) Current() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Stop cancels the pending sample and marks the meter dead.
func (m *Meter) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.live {
		return
	}
	m.live = false
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.current = 0
}
