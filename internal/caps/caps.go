package caps

import (
	"github.com/petems/mictape/internal/audio"
)

// DefaultType is the fixed fallback label when no preference is supported.
const DefaultType = "audio/webm"

// Ordered codec preference lists, consulted MIME-by-MIME. Constrained
// devices get a narrowband-first ordering.
var (
	generalPreference = []string{
		"audio/webm;codecs=opus",
		"audio/webm",
		"audio/ogg;codecs=opus",
		"audio/mp4",
		"audio/wav",
	}
	narrowbandPreference = []string{
		"audio/mp4",
		"audio/aac",
		"audio/3gpp",
		"audio/webm;codecs=opus",
		"audio/wav",
	}
	// Labels a narrowband platform can play natively. Assembly may
	// substitute onto these without touching the bytes.
	narrowbandNative = map[string]bool{
		"audio/mp4":  true,
		"audio/aac":  true,
		"audio/3gpp": true,
		"audio/mpeg": true,
		"audio/wav":  true,
	}
)

// Report is the aggregate capability answer for one session instance.
type Report struct {
	Supported   bool
	Acquisition bool
	Capture     bool
	Analysis    bool
	AnyType     bool
	Class       audio.DeviceClass
}

// Detector answers capability queries. All answers are memoized once at
// construction so they cannot flip mid-session.
type Detector struct {
	acquisition bool
	capture     bool
	analysis    bool
	types       map[string]bool
	class       audio.DeviceClass
}

// NewDetector snapshots the engine's capabilities.
func NewDetector(e audio.Engine) *Detector {
	s := e.Supports()
	types := make(map[string]bool, len(s.Types))
	for k, v := range s.Types {
		types[k] = v
	}
	return &Detector{
		acquisition: s.Acquisition,
		capture:     s.Capture,
		analysis:    s.Analysis,
		types:       types,
		class:       e.DeviceClass(),
	}
}

func (d *Detector) TypeSupported(mime string) bool {
	return d.types[mime]
}

func (d *Detector) Class() audio.DeviceClass { return d.class }

func (d *Detector) preference() []string {
	if d.class == audio.ClassNarrowband {
		return narrowbandPreference
	}
	return generalPreference
}

// Report aggregates the individual flags. Overall support requires the
// acquisition and capture primitives plus at least one supported entry in
// the active preference list.
func (d *Detector) Report() Report {
	any := false
	for _, m := range d.preference() {
		if d.types[m] {
			any = true
			break
		}
	}
	return Report{
		Supported:   d.acquisition && d.capture && any,
		Acquisition: d.acquisition,
		Capture:     d.capture,
		Analysis:    d.analysis,
		AnyType:     any,
		Class:       d.class,
	}
}

// ResolveType picks the content-type label for a capture: a supported
// caller preference wins, then the first supported entry of the class
// preference list, then the fixed default.
func (d *Detector) ResolveType(preferred string) string {
	if preferred != "" && d.types[preferred] {
		return preferred
	}
	for _, m := range d.preference() {
		if d.types[m] {
			return m
		}
	}
	return DefaultType
}

// NativeFriendly reports whether a label is already playable natively on
// the detected device class. General-class devices accept anything.
func (d *Detector) NativeFriendly(label string) bool {
	if d.class != audio.ClassNarrowband {
		return true
	}
	return narrowbandNative[label]
}

// SubstituteType maps a captured label to a native-friendly supported one
// for constrained devices. The substitution is label-only; callers keep
// the bytes unchanged. When no native-friendly label is supported the
// captured label stands.
func (d *Detector) SubstituteType(label string) string {
	if d.NativeFriendly(label) {
		return label
	}
	for _, m := range narrowbandPreference {
		if narrowbandNative[m] && d.types[m] {
			return m
		}
	}
	return label
}
