package graph

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Gain scales its summed input by a fixed factor.
type Gain struct {
	base
}

func (c *Context) NewGain(gain float64) *Gain {
	g := &Gain{}
	g.proc = func(in []float64) []float64 {
		for i := range in {
			in[i] *= gain
		}
		return in
	}
	return g
}

// Delay is a feedback delay line.
type Delay struct {
	base
}

func (c *Context) NewDelay(delay, feedback float64) (*Delay, error) {
	n := int(delay * c.sampleRate)
	if n <= 0 {
		return nil, fmt.Errorf("graph: delay must be positive, got %gs", delay)
	}
	ring := make([]float64, n)
	pos := 0
	d := &Delay{}
	d.proc = func(in []float64) []float64 {
		for i := range in {
			out := ring[pos]
			ring[pos] = in[i] + out*feedback
			in[i] = out
			pos++
			if pos == n {
				pos = 0
			}
		}
		return in
	}
	return d, nil
}

// FilterKind selects the biquad response.
type FilterKind int

const (
	LowPass FilterKind = iota
	HighPass
)

// Biquad is a single second-order resonant filter (RBJ cookbook).
type Biquad struct {
	base
}

func (c *Context) NewBiquad(kind FilterKind, cutoff, q float64) (*Biquad, error) {
	if cutoff <= 0 || cutoff >= c.sampleRate/2 {
		return nil, fmt.Errorf("graph: cutoff %gHz out of range for %gHz sample rate", cutoff, c.sampleRate)
	}
	if q <= 0 {
		q = 1
	}
	w0 := 2 * math.Pi * cutoff / c.sampleRate
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	var b0, b1, b2 float64
	switch kind {
	case LowPass:
		b0 = (1 - cosw0) / 2
		b1 = 1 - cosw0
		b2 = (1 - cosw0) / 2
	case HighPass:
		b0 = (1 + cosw0) / 2
		b1 = -(1 + cosw0)
		b2 = (1 + cosw0) / 2
	default:
		return nil, fmt.Errorf("graph: unknown filter kind %d", kind)
	}
	a0 := 1 + alpha
	a1 := -2 * cosw0
	a2 := 1 - alpha
	b0, b1, b2 = b0/a0, b1/a0, b2/a0
	a1, a2 = a1/a0, a2/a0

	var x1, x2, y1, y2 float64
	f := &Biquad{}
	f.proc = func(in []float64) []float64 {
		for i := range in {
			x := in[i]
			y := b0*x + b1*x1 + b2*x2 - a1*y1 - a2*y2
			x2, x1 = x1, x
			y2, y1 = y1, y
			in[i] = y
		}
		return in
	}
	return f, nil
}

// Waveshaper applies a soft-clip nonlinearity. amount controls drive.
type Waveshaper struct {
	base
}

func (c *Context) NewWaveshaper(amount float64) *Waveshaper {
	k := amount
	if k < 0 {
		k = 0
	}
	w := &Waveshaper{}
	w.proc = func(in []float64) []float64 {
		for i := range in {
			x := in[i]
			in[i] = (1 + k) * x / (1 + k*math.Abs(x))
		}
		return in
	}
	return w
}

// Convolver convolves the input with a fixed impulse response, carrying the
// tail across blocks.
type Convolver struct {
	base
}

func (c *Context) NewConvolver(impulse []float64) (*Convolver, error) {
	if len(impulse) == 0 {
		return nil, fmt.Errorf("graph: empty impulse response")
	}
	tail := make([]float64, len(impulse)-1)
	cv := &Convolver{}
	cv.proc = func(in []float64) []float64 {
		out := make([]float64, len(in)+len(impulse)-1)
		copy(out, tail)
		for i, x := range in {
			if x == 0 {
				continue
			}
			for j, h := range impulse {
				out[i+j] += x * h
			}
		}
		res := out[:len(in)]
		tail = make([]float64, len(impulse)-1)
		copy(tail, out[len(in):])
		return res
	}
	return cv, nil
}

// Analyser is a non-destructive tap: it captures the block flowing through
// it each render pass and exposes a frequency-domain view of it.
type Analyser struct {
	base
	mu      sync.Mutex
	capture []float64
}

func (c *Context) NewAnalyser() *Analyser {
	a := &Analyser{}
	a.proc = func(in []float64) []float64 {
		a.mu.Lock()
		a.capture = append(a.capture[:0], in...)
		a.mu.Unlock()
		return in
	}
	c.mu.Lock()
	c.analysers = append(c.analysers, a)
	c.mu.Unlock()
	return a
}

// Magnitudes returns the magnitude spectrum of the last captured block.
func (a *Analyser) Magnitudes() []float64 {
	a.mu.Lock()
	block := append([]float64(nil), a.capture...)
	a.mu.Unlock()
	if len(block) == 0 {
		return nil
	}
	fft := fourier.NewFFT(len(block))
	coeffs := fft.Coefficients(nil, block)
	mags := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mags[i] = math.Hypot(real(c), imag(c))
	}
	return mags
}

// Level reduces the current spectrum to one normalized scalar: mean
// magnitude divided by the maximum representable magnitude for the block.
func (a *Analyser) Level() float64 {
	a.mu.Lock()
	n := len(a.capture)
	a.mu.Unlock()
	mags := a.Magnitudes()
	if len(mags) == 0 || n == 0 {
		return 0
	}
	var sum float64
	for _, m := range mags {
		sum += m
	}
	mean := sum / float64(len(mags))
	level := mean / (float64(n) / 2)
	if level > 1 {
		level = 1
	}
	return level
}
