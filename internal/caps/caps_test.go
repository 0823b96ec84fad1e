package caps

import (
	"context"
	"testing"

	"github.com/petems/mictape/internal/audio"
)

// Mock engine for capability probing
type mockEngine struct {
	support audio.Support
	class   audio.DeviceClass
}

func (m *mockEngine) Supports() audio.Support          { return m.support }
func (m *mockEngine) DeviceClass() audio.DeviceClass   { return m.class }
func (m *mockEngine) ListDevices() ([]audio.Device, error) { return nil, nil }
func (m *mockEngine) Close() error                     { return nil }
func (m *mockEngine) Acquire(ctx context.Context, c audio.Constraints) (audio.Stream, error) {
	return nil, audio.ErrNotSupported
}

func newEngine(class audio.DeviceClass, types ...string) *mockEngine {
	m := map[string]bool{}
	for _, t := range types {
		m[t] = true
	}
	return &mockEngine{
		support: audio.Support{Acquisition: true, Capture: true, Analysis: true, Types: m},
		class:   class,
	}
}

func TestPreferredTypeWinsWhenSupported(t *testing.T) {
	d := NewDetector(newEngine(audio.ClassGeneral, "audio/wav", "audio/webm"))
	if got := d.ResolveType("audio/wav"); got != "audio/wav" {
		t.Errorf("expected preferred type to win, got %q", got)
	}
}

func TestUnsupportedPreferredFallsBackToList(t *testing.T) {
	d := NewDetector(newEngine(audio.ClassGeneral, "audio/ogg;codecs=opus", "audio/wav"))
	if got := d.ResolveType("audio/flac"); got != "audio/ogg;codecs=opus" {
		t.Errorf("expected first supported list entry, got %q", got)
	}
	if !d.Report().Supported {
		t.Error("overall support should hold when a preference entry is supported")
	}
}

func TestNothingSupportedUsesDefault(t *testing.T) {
	d := NewDetector(newEngine(audio.ClassGeneral))
	if got := d.ResolveType(""); got != DefaultType {
		t.Errorf("expected default label, got %q", got)
	}
	r := d.Report()
	if r.Supported || r.AnyType {
		t.Errorf("no supported types should mean no overall support: %+v", r)
	}
	if !r.Acquisition || !r.Capture {
		t.Errorf("individual flags should still be reported: %+v", r)
	}
}

func TestNarrowbandUsesNarrowbandOrdering(t *testing.T) {
	d := NewDetector(newEngine(audio.ClassNarrowband, "audio/mp4", "audio/webm;codecs=opus"))
	if got := d.ResolveType(""); got != "audio/mp4" {
		t.Errorf("narrowband ordering should prefer mp4, got %q", got)
	}
}

func TestAnswersMemoizedAtConstruction(t *testing.T) {
	eng := newEngine(audio.ClassGeneral, "audio/wav")
	d := NewDetector(eng)

	// Flip the engine after construction; answers must not change.
	eng.support.Types["audio/wav"] = false
	eng.support.Capture = false
	eng.class = audio.ClassNarrowband

	if !d.TypeSupported("audio/wav") {
		t.Error("type support answer flipped mid-session")
	}
	if !d.Report().Capture {
		t.Error("capture flag flipped mid-session")
	}
	if d.Class() != audio.ClassGeneral {
		t.Error("device class flipped mid-session")
	}
}

func TestNativeFriendlySubstitution(t *testing.T) {
	d := NewDetector(newEngine(audio.ClassNarrowband, "audio/mp4", "audio/webm"))
	if got := d.SubstituteType("audio/webm"); got != "audio/mp4" {
		t.Errorf("expected substitution to audio/mp4, got %q", got)
	}
	if got := d.SubstituteType("audio/mp4"); got != "audio/mp4" {
		t.Errorf("native label should stand, got %q", got)
	}
}

func TestGeneralClassNeverSubstitutes(t *testing.T) {
	d := NewDetector(newEngine(audio.ClassGeneral, "audio/mp4"))
	if got := d.SubstituteType("audio/webm"); got != "audio/webm" {
		t.Errorf("general class should keep the captured label, got %q", got)
	}
}

func TestSubstitutionWithoutSupportedNativeKeepsLabel(t *testing.T) {
	d := NewDetector(newEngine(audio.ClassNarrowband, "audio/webm"))
	if got := d.SubstituteType("audio/webm"); got != "audio/webm" {
		t.Errorf("no supported native label: captured label should stand, got %q", got)
	}
}
