package artifact

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/petems/mictape/internal/audio"
	"github.com/petems/mictape/internal/caps"
	"github.com/petems/mictape/internal/chunk"
)

type mockEngine struct {
	support audio.Support
	class   audio.DeviceClass
}

func (m *mockEngine) Supports() audio.Support            { return m.support }
func (m *mockEngine) DeviceClass() audio.DeviceClass     { return m.class }
func (m *mockEngine) ListDevices() ([]audio.Device, error) { return nil, nil }
func (m *mockEngine) Close() error                       { return nil }
func (m *mockEngine) Acquire(ctx context.Context, c audio.Constraints) (audio.Stream, error) {
	return nil, audio.ErrNotSupported
}

func newDetector(class audio.DeviceClass, types ...string) *caps.Detector {
	m := map[string]bool{}
	for _, t := range types {
		m[t] = true
	}
	return caps.NewDetector(&mockEngine{
		support: audio.Support{Acquisition: true, Capture: true, Analysis: true, Types: m},
		class:   class,
	})
}

func TestAssembleEmptyBufferIsAbsent(t *testing.T) {
	det := newDetector(audio.ClassGeneral, "audio/webm")
	if a, ok := Assemble(chunk.NewBuffer(), "audio/webm", det, nil); ok || a != nil {
		t.Errorf("expected absent result for empty buffer, got %+v", a)
	}
}

func TestAssembleConcatenatesInIngestionOrder(t *testing.T) {
	buf := chunk.NewBuffer()
	buf.Append([]byte("aaaa"))
	buf.CommitActive()
	buf.Append([]byte("bb"))

	det := newDetector(audio.ClassGeneral, "audio/webm")
	a, ok := Assemble(buf, "audio/webm", det, nil)
	if !ok {
		t.Fatal("expected artifact")
	}
	if !bytes.Equal(a.Data, []byte("aaaabb")) {
		t.Errorf("unexpected byte order: %q", a.Data)
	}
	if a.ContentType != "audio/webm" {
		t.Errorf("unexpected label: %q", a.ContentType)
	}
}

func TestNarrowbandSubstitutionKeepsBytes(t *testing.T) {
	buf := chunk.NewBuffer()
	buf.Append([]byte{1, 2, 3, 4})

	det := newDetector(audio.ClassNarrowband, "audio/mp4", "audio/webm")
	a, ok := Assemble(buf, "audio/webm", det, nil)
	if !ok {
		t.Fatal("expected artifact")
	}
	if a.ContentType != "audio/mp4" {
		t.Errorf("expected native-friendly substitution, got %q", a.ContentType)
	}
	if !bytes.Equal(a.Data, []byte{1, 2, 3, 4}) {
		t.Errorf("substitution must not touch bytes: %v", a.Data)
	}
}

func TestAssembleWavFraming(t *testing.T) {
	buf := chunk.NewBuffer()
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	buf.Append(pcm)

	det := newDetector(audio.ClassGeneral, "audio/wav")
	a, ok := Assemble(buf, "audio/wav", det, &PCMInfo{SampleRate: 8000, Channels: 1})
	if !ok {
		t.Fatal("expected artifact")
	}
	if len(a.Data) != 44+len(pcm) {
		t.Fatalf("expected 44-byte header plus payload, got %d bytes", len(a.Data))
	}
	if string(a.Data[0:4]) != "RIFF" || string(a.Data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if got := binary.LittleEndian.Uint32(a.Data[24:28]); got != 8000 {
		t.Errorf("expected sample rate 8000, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(a.Data[40:44]); got != uint32(len(pcm)) {
		t.Errorf("expected data size %d, got %d", len(pcm), got)
	}
	if !bytes.Equal(a.Data[44:], pcm) {
		t.Error("payload mismatch")
	}
}

func TestRegistrySingleOutstandingHandle(t *testing.T) {
	r := NewRegistry()
	a := &Artifact{Data: []byte{1}, ContentType: "audio/wav"}

	h1 := r.Issue(a)
	if h1.Revoked() || h1.Artifact() != a {
		t.Fatal("fresh handle should resolve")
	}

	h2 := r.Issue(a)
	if !h1.Revoked() {
		t.Error("issuing a new handle must revoke the previous one")
	}
	if h1.Artifact() != nil {
		t.Error("revoked handle must not resolve")
	}
	if h2.Revoked() {
		t.Error("new handle should be live")
	}
	if h1.URI == h2.URI {
		t.Error("handles should have distinct URIs")
	}
}

func TestRegistryRevokeAll(t *testing.T) {
	r := NewRegistry()
	h := r.Issue(&Artifact{Data: []byte{1}})
	r.RevokeAll()
	if !h.Revoked() {
		t.Error("RevokeAll should revoke the outstanding handle")
	}
	// Idempotent.
	r.RevokeAll()
}
