package audio

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPermissionDenied is returned by Acquire when the user refuses
	// microphone access.
	ErrPermissionDenied = errors.New("audio: microphone permission denied")
	// ErrNotSupported is returned when no capture primitive exists.
	ErrNotSupported = errors.New("audio: capture not supported")
)

// Constraints are opaque acquisition hints passed through to the engine
// (device name, sample rate and the like).
type Constraints map[string]any

// Device represents an audio input device.
type Device struct {
	ID         string
	Name       string
	Default    bool
	SampleRate float64
	Channels   int
}

// DeviceClass coarsely classifies the capture device; it selects which
// codec preference ordering is consulted.
type DeviceClass int

const (
	ClassGeneral DeviceClass = iota
	ClassNarrowband
)

func (c DeviceClass) String() string {
	if c == ClassNarrowband {
		return "narrowband"
	}
	return "general"
}

// Support reports which capture primitives an engine provides and which
// content-type labels it can emit.
type Support struct {
	Acquisition bool
	Capture     bool
	Analysis    bool
	Types       map[string]bool
}

// Engine is the capture-engine collaborator: it answers capability
// queries and acquires live device streams.
type Engine interface {
	Supports() Support
	DeviceClass() DeviceClass
	// Acquire requests device access. It may suspend pending an external
	// permission grant and returns ErrPermissionDenied when refused.
	Acquire(ctx context.Context, c Constraints) (Stream, error)
	ListDevices() ([]Device, error)
	Close() error
}

// Stream is a live, exclusively-owned device stream. Chunk callbacks are
// delivered strictly in emission order and never concurrently.
type Stream interface {
	// Start begins chunk emission on the given interval.
	Start(interval time.Duration, onChunk func(data []byte), onErr func(error)) error
	// Pause suspends chunk emission without releasing the device.
	Pause() error
	// Resume restarts chunk emission after Pause.
	Resume() error
	// Flush synchronously emits any pending unemitted data.
	Flush()
	// Release stops the device and frees its tracks. The Samples channel
	// is closed once the read loop exits.
	Release()
	SampleRate() int
	Channels() int
	// Samples exposes a live tap of raw sample blocks for analysis and
	// effect routing.
	Samples() <-chan []float64
}
