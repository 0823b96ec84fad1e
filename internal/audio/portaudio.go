package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"github.com/petems/mictape/internal/permissions"
)

// The engine emits linear PCM; these are the only labels it can honestly
// claim to produce.
var pcmTypes = []string{"audio/wav", "audio/pcm", "audio/l16"}

type portAudioEngine struct {
	log zerolog.Logger
}

// NewPortAudio creates a PortAudio-backed capture engine.
func NewPortAudio(log zerolog.Logger) (Engine, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioEngine{log: log}, nil
}

func (p *portAudioEngine) Supports() Support {
	types := make(map[string]bool, len(pcmTypes))
	for _, t := range pcmTypes {
		types[t] = true
	}
	_, err := portaudio.DefaultInputDevice()
	return Support{
		Acquisition: err == nil,
		Capture:     err == nil,
		Analysis:    true,
		Types:       types,
	}
}

func (p *portAudioEngine) DeviceClass() DeviceClass {
	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return ClassGeneral
	}
	// Low-rate or mono-only devices (telephony headsets, embedded mics)
	// get the narrowband codec ordering.
	if dev.DefaultSampleRate <= 16000 || dev.MaxInputChannels == 1 {
		return ClassNarrowband
	}
	return ClassGeneral
}

func (p *portAudioEngine) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	// The permission prompt is the only step that may suspend.
	if err := permissions.Microphone(); err != nil {
		p.log.Warn().Err(err).Msg("Microphone permission refused")
		return nil, ErrPermissionDenied
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deviceID, _ := c["device"].(string)
	var device *portaudio.DeviceInfo
	if deviceID == "" {
		var err error
		device, err = portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
	} else {
		devices, err := portaudio.Devices()
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate devices: %w", err)
		}
		for _, d := range devices {
			if d.Name == deviceID {
				device = d
				break
			}
		}
	}
	if device == nil {
		return nil, fmt.Errorf("device not found: %s", deviceID)
	}

	sampleRate := int(device.DefaultSampleRate)
	if sr, ok := c["sample_rate"].(int); ok && sr > 0 {
		sampleRate = sr
	}
	channels := 1
	if device.MaxInputChannels < 1 {
		return nil, fmt.Errorf("device has no input channels: %s", device.Name)
	}

	buffer := make([]float32, 512*channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: 512,
	}, buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start audio stream: %w", err)
	}

	p.log.Info().Str("device", device.Name).Int("sample_rate", sampleRate).Msg("Device acquired")
	return &paStream{
		log:      p.log,
		stream:   stream,
		rate:     sampleRate,
		channels: channels,
		buffer:   buffer,
		samples:  make(chan []float64, 8),
	}, nil
}

func (p *portAudioEngine) ListDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]Device, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultInputDevice()
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, Device{
				ID:         d.Name,
				Name:       d.Name,
				Default:    d == defaultDevice,
				SampleRate: d.DefaultSampleRate,
				Channels:   d.MaxInputChannels,
			})
		}
	}
	return result, nil
}

func (p *portAudioEngine) Close() error {
	return portaudio.Terminate()
}

type paStream struct {
	log      zerolog.Logger
	stream   *portaudio.Stream
	rate     int
	channels int
	buffer   []float32
	samples  chan []float64

	mu       sync.Mutex
	pending  []byte
	paused   bool
	started  bool
	released bool
	onChunk  func([]byte)
	cancel   context.CancelFunc
	done     chan struct{}

	emitMu sync.Mutex
}

func (s *paStream) Start(interval time.Duration, onChunk func(data []byte), onErr func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("stream already started")
	}
	s.started = true
	s.onChunk = onChunk

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.readLoop(ctx, interval, onErr)
	return nil
}

func (s *paStream) readLoop(ctx context.Context, interval time.Duration, onErr func(error)) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.emit()
		default:
		}

		if err := s.stream.Read(); err != nil {
			select {
			case <-ctx.Done():
				// Read failure during teardown is expected.
			default:
				s.log.Error().Err(err).Msg("Device read failed")
				// Dispatched off the read loop so the handler may call
				// Release, which waits for this goroutine.
				go onErr(fmt.Errorf("device read failed: %w", err))
			}
			return
		}

		frames := len(s.buffer) / s.channels
		mono := downmixInterleaved(s.buffer, s.channels, frames)

		s.mu.Lock()
		paused := s.paused
		if !paused {
			s.pending = appendPCM16(s.pending, mono)
		}
		s.mu.Unlock()
		if paused {
			continue
		}

		select {
		case s.samples <- mono:
		default:
			// Drop if the analysis tap is not keeping up.
		}
	}
}

// emit delivers the pending bytes as one chunk. Serialized so ticker
// emission and Flush never interleave chunk callbacks.
func (s *paStream) emit() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	data := s.pending
	s.pending = nil
	onChunk := s.onChunk
	s.mu.Unlock()

	if len(data) > 0 && onChunk != nil {
		onChunk(data)
	}
}

func (s *paStream) Pause() error {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	return nil
}

func (s *paStream) Resume() error {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	return nil
}

func (s *paStream) Flush() {
	s.emit()
}

func (s *paStream) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.stream.Stop()
	s.stream.Close()
	close(s.samples)
}

func (s *paStream) SampleRate() int { return s.rate }

func (s *paStream) Channels() int { return s.channels }

func (s *paStream) Samples() <-chan []float64 { return s.samples }

// downmixInterleaved averages interleaved channels into a mono block.
// Mono input is copied so callers never alias the device buffer.
func downmixInterleaved(buf []float32, channels, frames int) []float64 {
	mono := make([]float64, frames)
	if channels <= 1 {
		for i := 0; i < frames && i < len(buf); i++ {
			mono[i] = float64(buf[i])
		}
		return mono
	}
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf[f*channels+c])
		}
		mono[f] = sum / float64(channels)
	}
	return mono
}

// appendPCM16 encodes samples as little-endian 16-bit PCM.
func appendPCM16(dst []byte, samples []float64) []byte {
	var b [2]byte
	for _, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(b[:], uint16(int16(math.Round(v*32767))))
		dst = append(dst, b[0], b[1])
	}
	return dst
}
