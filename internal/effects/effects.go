package effects

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Type names a real-time signal transform.
type Type string

const (
	None       Type = "none"
	Reverb     Type = "reverb"
	Echo       Type = "echo"
	Distortion Type = "distortion"
	LowPass    Type = "lowpass"
	HighPass   Type = "highpass"
	Telephone  Type = "telephone"
)

// ParseType resolves a user-supplied effect name.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case "", None:
		return None, nil
	case Reverb:
		return Reverb, nil
	case Echo:
		return Echo, nil
	case Distortion:
		return Distortion, nil
	case LowPass:
		return LowPass, nil
	case HighPass:
		return HighPass, nil
	case Telephone:
		return Telephone, nil
	}
	return None, fmt.Errorf("effects: unknown effect %q", s)
}

// Spec declaratively describes a desired transform. Mix is the wet
// proportion in [0,1]; Params override the per-type defaults.
type Spec struct {
	Type   Type               `yaml:"type" json:"type"`
	Mix    float64            `yaml:"mix" json:"mix"`
	Params map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
}

// Defaults returns the canonical spec for an effect type.
func Defaults(t Type) Spec {
	s := Spec{Type: t, Mix: 0.5}
	switch t {
	case Reverb:
		s.Params = map[string]float64{"decay": 2}
	case Echo:
		s.Params = map[string]float64{"delay": 0.3, "feedback": 0.4}
	case Distortion:
		s.Params = map[string]float64{"amount": 20}
	case LowPass:
		s.Params = map[string]float64{"cutoff": 800, "q": 1}
	case HighPass:
		s.Params = map[string]float64{"cutoff": 1500, "q": 1}
	case Telephone:
		s.Params = map[string]float64{"highpass": 700, "lowpass": 2500}
	case None:
		s.Mix = 0
	}
	return s
}

// Param reads a named parameter, falling back to the type default.
func (s Spec) Param(name string, fallback float64) float64 {
	if v, ok := s.Params[name]; ok {
		return v
	}
	if d, ok := Defaults(s.Type).Params[name]; ok {
		return d
	}
	return fallback
}

// WetMix returns Mix clamped to [0,1].
func (s Spec) WetMix() float64 {
	if s.Mix < 0 {
		return 0
	}
	if s.Mix > 1 {
		return 1
	}
	return s.Mix
}

// synthImpulse builds a decaying-noise impulse response for the reverb
// convolver: random[-1,1] scaled by (1 - position/length)^decay.
func synthImpulse(sampleRate, decay float64) []float64 {
	n := int(sampleRate * decay)
	if n <= 0 {
		return nil
	}
	imp := make([]float64, n)
	for i := range imp {
		env := math.Pow(1-float64(i)/float64(n), decay)
		imp[i] = (rand.Float64()*2 - 1) * env
	}
	return imp
}
