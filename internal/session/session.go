package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/petems/mictape/internal/artifact"
	"github.com/petems/mictape/internal/audio"
	"github.com/petems/mictape/internal/caps"
	"github.com/petems/mictape/internal/chunk"
	"github.com/petems/mictape/internal/effects"
	"github.com/petems/mictape/internal/graph"
	"github.com/petems/mictape/internal/meter"
	"github.com/petems/mictape/internal/metrics"
)

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateRecording
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateRequesting:
		return "requesting"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	}
	return "idle"
}

// DefaultTimeslice is the default chunk emission interval.
const DefaultTimeslice = 500 * time.Millisecond

// Labels under which the PortAudio engine emits raw linear PCM. Chunks
// captured under these need WAV framing at assembly time.
var rawPCMLabels = map[string]bool{
	"audio/wav": true,
	"audio/pcm": true,
	"audio/l16": true,
}

// Observer carries optional callbacks for session events. Nil fields are
// skipped. Callbacks run outside the session lock.
type Observer struct {
	OnStateChange func(State)
	OnVolume      func(float64)
	OnChunk       func(chunk.Chunk)
	OnError       func(error)
}

// Config configures one capture session. Only Engine is required.
type Config struct {
	Engine        audio.Engine
	Constraints   audio.Constraints
	Timeslice     time.Duration // chunk emission interval, default 500ms
	PreferredType string
	BitrateHint   int // advisory, passed to the engine via constraints
	MeterCadence  time.Duration
	InitialEffect effects.Spec
	// OnNotSupported is invoked instead of an error when capture
	// capability is absent at start.
	OnNotSupported func()
	Observer       Observer
	Logger         zerolog.Logger
	Metrics        *metrics.Metrics
}

// Session drives one microphone capture attempt from start through
// stop or cancel: it owns the device stream, the chunk buffer, the
// signal graph with its effect routing and volume meter, and the
// artifact handles issued against the buffer.
type Session struct {
	log    zerolog.Logger
	engine audio.Engine
	det    *caps.Detector
	cfg    Config
	met    *metrics.Metrics

	mu               sync.Mutex
	state            State
	gen              int // bumped on every teardown; stale callbacks check it
	buf              *chunk.Buffer
	reg              *artifact.Registry
	stream           audio.Stream
	gctx             *graph.Context
	router           *effects.Router
	vol              *meter.Meter
	durTask          *task
	duration         int
	effect           effects.Spec
	mimeType         string
	pcm              *artifact.PCMInfo
	volume           float64
	permissionDenied bool
	lastErr          error

	// tickInterval is one second in production; injectable for tests.
	tickInterval time.Duration
}

// New builds a session around a capture engine. Capability answers are
// memoized here and stay fixed for the session's lifetime.
func New(cfg Config) *Session {
	if cfg.Timeslice <= 0 {
		cfg.Timeslice = DefaultTimeslice
	}
	if cfg.MeterCadence <= 0 {
		cfg.MeterCadence = meter.DefaultCadence
	}
	met := cfg.Metrics
	if met == nil {
		met = metrics.New(prometheus.NewRegistry())
	}
	effect := cfg.InitialEffect
	if effect.Type == "" {
		effect.Type = effects.None
	}
	return &Session{
		log:          cfg.Logger,
		engine:       cfg.Engine,
		det:          caps.NewDetector(cfg.Engine),
		cfg:          cfg,
		met:          met,
		buf:          chunk.NewBuffer(),
		reg:          artifact.NewRegistry(),
		effect:       effect,
		tickInterval: time.Second,
	}
}

// Start begins a capture attempt: Idle → Requesting, then Recording once
// the device is granted. Missing capability and refused permission both
// leave the session Idle without an error return.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.log.Warn().Stringer("state", s.state).Msg("Start ignored: session already active")
		s.mu.Unlock()
		return
	}

	// A new lifetime: previous capture data and handles are gone.
	s.buf.Reset()
	s.reg.RevokeAll()
	s.met.BytesBuffered.Set(0)
	s.duration = 0
	s.lastErr = nil
	s.permissionDenied = false

	rep := s.det.Report()
	if !rep.Supported {
		s.log.Warn().Msg("Capture not supported on this platform")
		notSupported := s.cfg.OnNotSupported
		s.mu.Unlock()
		if notSupported != nil {
			notSupported()
		}
		return
	}

	s.state = StateRequesting
	gen := s.gen
	s.mu.Unlock()
	s.notifyState(StateRequesting)

	constraints := s.acquireConstraints()
	stream, err := s.engine.Acquire(ctx, constraints)

	s.mu.Lock()
	if s.gen != gen || s.state != StateRequesting {
		// Torn down while the grant was pending.
		s.mu.Unlock()
		if err == nil && stream != nil {
			stream.Release()
		}
		return
	}
	if err != nil {
		if errors.Is(err, audio.ErrPermissionDenied) {
			s.permissionDenied = true
			s.met.PermissionDenials.Inc()
			s.log.Warn().Msg("Microphone access refused")
		} else {
			s.log.Error().Err(err).Msg("Device acquisition failed")
		}
		s.lastErr = err
		s.state = StateIdle
		s.mu.Unlock()
		s.notifyState(StateIdle)
		s.notifyError(err)
		return
	}

	s.stream = stream
	s.mimeType = s.det.ResolveType(s.cfg.PreferredType)
	if rawPCMLabels[s.mimeType] {
		s.pcm = &artifact.PCMInfo{SampleRate: stream.SampleRate(), Channels: stream.Channels()}
	} else {
		s.pcm = nil
	}

	if rep.Analysis {
		s.buildGraphLocked(gen)
	}

	if err := stream.Start(s.cfg.Timeslice, s.chunkCallback(gen), s.errCallback(gen)); err != nil {
		s.log.Error().Err(err).Msg("Failed to start capture emission")
		s.lastErr = err
		release := s.teardownLocked(false)
		s.mu.Unlock()
		release()
		s.notifyState(StateIdle)
		s.notifyError(err)
		return
	}

	s.durTask = startTask(s.tickInterval, s.durationTick(gen))
	s.state = StateRecording
	s.met.SessionsStarted.Inc()
	s.log.Info().Str("content_type", s.mimeType).Dur("timeslice", s.cfg.Timeslice).Msg("Recording started")
	s.mu.Unlock()
	s.notifyState(StateRecording)
}

func (s *Session) acquireConstraints() audio.Constraints {
	c := audio.Constraints{}
	for k, v := range s.cfg.Constraints {
		c[k] = v
	}
	if s.cfg.BitrateHint > 0 {
		c["bitrate"] = s.cfg.BitrateHint
	}
	return c
}

// buildGraphLocked establishes the live routing graph: effect routing
// from the source to the destination plus a non-destructive analyser tap
// feeding the volume meter.
func (s *Session) buildGraphLocked(gen int) {
	g := graph.New(float64(s.stream.SampleRate()))
	s.gctx = g
	s.router = effects.NewRouter(g, s.log)
	if err := s.router.Apply(s.effect); err != nil {
		s.lastErr = err
		s.met.EffectFaults.Inc()
	}

	analyser := g.NewAnalyser()
	g.Connect(g.Source(), analyser)
	s.vol = meter.New(analyser, s.cfg.MeterCadence, s.volumeSample(gen), s.log)
	s.vol.Start()

	go renderLoop(s.stream.Samples(), g)
}

// renderLoop pushes live sample blocks through the graph until either the
// stream's tap closes or the graph context is torn down.
func renderLoop(samples <-chan []float64, g *graph.Context) {
	for block := range samples {
		if g.Render(block) == nil {
			return
		}
	}
}

// Pause moves the active chunk span into the committed sequence, stops
// the duration timer and suspends capture emission. No-op unless
// Recording.
func (s *Session) Pause() {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return
	}
	s.buf.CommitActive()
	s.stream.Pause()
	dur := s.durTask
	s.durTask = nil
	s.state = StatePaused
	s.log.Info().Int("duration_s", s.duration).Msg("Recording paused")
	s.mu.Unlock()

	dur.cancel()
	s.notifyState(StatePaused)
}

// Resume restarts capture emission into a fresh active span and restarts
// (does not reset) the duration timer. No-op unless Paused.
func (s *Session) Resume() {
	s.mu.Lock()
	if s.state != StatePaused {
		s.mu.Unlock()
		return
	}
	s.stream.Resume()
	s.durTask = startTask(s.tickInterval, s.durationTick(s.gen))
	s.state = StateRecording
	s.log.Info().Msg("Recording resumed")
	s.mu.Unlock()
	s.notifyState(StateRecording)
}

// Stop flushes pending data, releases the device and all scheduled work,
// and returns to Idle. Buffered chunks are retained for later artifact
// retrieval until the next Start or a Cancel.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != StateRecording && s.state != StatePaused {
		s.mu.Unlock()
		return
	}
	stream := s.stream
	s.mu.Unlock()

	// Deliver any pending unemitted data before the generation changes.
	if stream != nil {
		stream.Flush()
	}

	s.mu.Lock()
	if s.state != StateRecording && s.state != StatePaused {
		s.mu.Unlock()
		return
	}
	seconds := s.duration
	release := s.teardownLocked(false)
	s.mu.Unlock()

	release()
	s.met.SessionsCompleted.Inc()
	s.met.RecordingSeconds.Observe(float64(seconds))
	s.log.Info().Int("duration_s", seconds).Int("buffered_bytes", s.BufferedBytes()).Msg("Recording stopped")
	s.notifyState(StateIdle)
}

// Cancel releases everything immediately and discards all chunk data,
// revoking any outstanding artifact handle. Valid from any state.
func (s *Session) Cancel() {
	s.mu.Lock()
	wasActive := s.state != StateIdle
	release := s.teardownLocked(true)
	s.mu.Unlock()

	release()
	if wasActive {
		s.met.SessionsCancelled.Inc()
		s.log.Info().Msg("Recording cancelled, data discarded")
		s.notifyState(StateIdle)
	}
}

// Close tears the session down, discarding data and revoking handles.
func (s *Session) Close() {
	s.Cancel()
}

// teardownLocked resets to Idle and detaches every owned resource. The
// returned func must be run after the lock is dropped: the stream release
// waits for the read loop, which may itself be blocked on a callback into
// the session.
func (s *Session) teardownLocked(discard bool) func() {
	s.gen++
	dur := s.durTask
	s.durTask = nil
	vol := s.vol
	s.vol = nil
	g := s.gctx
	s.gctx = nil
	s.router = nil
	stream := s.stream
	s.stream = nil
	s.volume = 0
	if discard {
		s.buf.Reset()
		s.met.BytesBuffered.Set(0)
		s.duration = 0
		s.reg.RevokeAll()
	}
	s.state = StateIdle

	return func() {
		dur.cancel()
		if vol != nil {
			vol.Stop()
		}
		if g != nil {
			g.Close()
		}
		if stream != nil {
			stream.Release()
		}
	}
}

// ApplyEffect always updates the current effect. It is audible only once
// a live routing graph exists; otherwise it takes effect on the next
// graph construction. A routing construction failure is logged and
// recorded but never faults the session.
func (s *Session) ApplyEffect(spec effects.Spec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effect = spec
	if s.router == nil {
		return
	}
	if err := s.router.Apply(spec); err != nil {
		s.lastErr = err
		s.met.EffectFaults.Inc()
		return
	}
	s.met.EffectSwitches.Inc()
}

// Save assembles a fresh artifact from the buffer and issues a handle
// for it. Absent when nothing has been ingested this lifetime.
func (s *Session) Save() (*artifact.Artifact, *artifact.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := artifact.Assemble(s.buf, s.mimeType, s.det, s.pcm)
	if !ok {
		return nil, nil, false
	}
	s.met.ArtifactsAssembled.Inc()
	s.met.ArtifactBytes.Observe(float64(len(a.Data)))
	return a, s.reg.Issue(a), true
}

// Play assembles a fresh artifact and returns only its handle, revoking
// the previously issued one. Absent when nothing has been ingested.
func (s *Session) Play() (*artifact.Handle, bool) {
	_, h, ok := s.Save()
	return h, ok
}

// chunkCallback ingests emitted chunks. A callback left over from a
// previous generation (after cancel or teardown) is a guarded no-op.
func (s *Session) chunkCallback(gen int) func([]byte) {
	return func(data []byte) {
		s.mu.Lock()
		if s.gen != gen || (s.state != StateRecording && s.state != StatePaused) {
			s.mu.Unlock()
			s.log.Debug().Int("bytes", len(data)).Msg("Dropping stale chunk")
			return
		}
		s.buf.Append(data)
		chunks := s.buf.Chunks()
		last := chunks[len(chunks)-1]
		s.met.ChunksIngested.Inc()
		s.met.BytesBuffered.Set(float64(s.buf.Len()))
		cb := s.cfg.Observer.OnChunk
		s.mu.Unlock()
		if cb != nil {
			cb(last)
		}
	}
}

// errCallback handles a fatal capture-engine fault: the session force
// returns to Idle and the device is released, but buffered chunks
// survive for partial retrieval.
func (s *Session) errCallback(gen int) func(error) {
	return func(err error) {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.log.Error().Err(err).Msg("Fatal device fault")
		s.lastErr = err
		s.met.DeviceFaults.Inc()
		release := s.teardownLocked(false)
		s.mu.Unlock()

		release()
		s.notifyState(StateIdle)
		s.notifyError(err)
	}
}

func (s *Session) durationTick(gen int) func() {
	return func() {
		s.mu.Lock()
		if s.gen == gen && s.state == StateRecording {
			s.duration++
		}
		s.mu.Unlock()
	}
}

func (s *Session) volumeSample(gen int) func(float64) {
	return func(v float64) {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.volume = v
		cb := s.cfg.Observer.OnVolume
		s.mu.Unlock()
		if cb != nil {
			cb(v)
		}
	}
}

func (s *Session) notifyState(st State) {
	if cb := s.cfg.Observer.OnStateChange; cb != nil {
		cb(st)
	}
}

func (s *Session) notifyError(err error) {
	if cb := s.cfg.Observer.OnError; cb != nil {
		cb(err)
	}
}

// Observables

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) IsRecording() bool { return s.State() == StateRecording }

func (s *Session) IsPaused() bool { return s.State() == StatePaused }

// Duration returns the accumulated recording time in whole seconds.
func (s *Session) Duration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// Stream returns the live device stream handle, or nil.
func (s *Session) Stream() audio.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

// Volume returns the current normalized volume in [0,1].
func (s *Session) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *Session) LastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) PermissionDenied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permissionDenied
}

// Capabilities returns the memoized capability report.
func (s *Session) Capabilities() caps.Report {
	return s.det.Report()
}

func (s *Session) CurrentEffect() effects.Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effect
}

// ContentType returns the resolved content-type label for the current
// lifetime, empty before the first successful start.
func (s *Session) ContentType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mimeType
}

// BufferedBytes returns the number of bytes currently buffered.
func (s *Session) BufferedBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}
