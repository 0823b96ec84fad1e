package graph

import (
	"math"
	"testing"
)

func TestDirectConnection(t *testing.T) {
	ctx := New(8000)
	if err := ctx.Connect(ctx.Source(), ctx.Destination()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	in := []float64{0.1, -0.2, 0.3}
	out := ctx.Render(in)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d: expected %f, got %f", i, in[i], out[i])
		}
	}
}

func TestGainScales(t *testing.T) {
	ctx := New(8000)
	g := ctx.NewGain(0.5)
	ctx.Connect(ctx.Source(), g)
	ctx.Connect(g, ctx.Destination())

	out := ctx.Render([]float64{1.0, -1.0})
	if out[0] != 0.5 || out[1] != -0.5 {
		t.Errorf("expected scaled output, got %v", out)
	}
}

func TestDestinationSumsParallelPaths(t *testing.T) {
	ctx := New(8000)
	a := ctx.NewGain(0.25)
	b := ctx.NewGain(0.75)
	ctx.Connect(ctx.Source(), a)
	ctx.Connect(ctx.Source(), b)
	ctx.Connect(a, ctx.Destination())
	ctx.Connect(b, ctx.Destination())

	out := ctx.Render([]float64{1.0})
	if math.Abs(out[0]-1.0) > 1e-9 {
		t.Errorf("expected summed 1.0, got %f", out[0])
	}
	if ctx.Destination().InputCount() != 2 {
		t.Errorf("expected 2 destination inputs, got %d", ctx.Destination().InputCount())
	}
}

func TestDisconnectRemovesEdge(t *testing.T) {
	ctx := New(8000)
	g := ctx.NewGain(1.0)
	ctx.Connect(ctx.Source(), g)
	ctx.Connect(g, ctx.Destination())
	ctx.Disconnect(g, ctx.Destination())

	out := ctx.Render([]float64{1.0})
	if out[0] != 0 {
		t.Errorf("expected silence after disconnect, got %f", out[0])
	}
	if ctx.Destination().InputCount() != 0 {
		t.Errorf("expected 0 destination inputs, got %d", ctx.Destination().InputCount())
	}
}

func TestDelayLine(t *testing.T) {
	ctx := New(4)
	d, err := ctx.NewDelay(0.5, 0) // 2 samples at 4Hz
	if err != nil {
		t.Fatalf("delay: %v", err)
	}
	ctx.Connect(ctx.Source(), d)
	ctx.Connect(d, ctx.Destination())

	out := ctx.Render([]float64{1, 0, 0, 0})
	want := []float64{0, 0, 1, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("sample %d: expected %f, got %f", i, want[i], out[i])
		}
	}
}

func TestDelayRejectsNonPositive(t *testing.T) {
	ctx := New(8000)
	if _, err := ctx.NewDelay(0, 0.4); err == nil {
		t.Error("expected error for zero delay")
	}
}

func TestBiquadLowPassAttenuatesHighFrequency(t *testing.T) {
	ctx := New(8000)
	f, err := ctx.NewBiquad(LowPass, 200, 1)
	if err != nil {
		t.Fatalf("biquad: %v", err)
	}
	ctx.Connect(ctx.Source(), f)
	ctx.Connect(f, ctx.Destination())

	// 3kHz tone, well above a 200Hz cutoff.
	n := 2048
	in := make([]float64, n)
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * 3000 * float64(i) / 8000)
	}
	out := ctx.Render(in)

	rms := func(s []float64) float64 {
		var sum float64
		for _, v := range s {
			sum += v * v
		}
		return math.Sqrt(sum / float64(len(s)))
	}
	// Skip the settling portion.
	if got, want := rms(out[n/2:]), rms(in[n/2:]); got > want*0.1 {
		t.Errorf("lowpass barely attenuated: in rms %f, out rms %f", want, got)
	}
}

func TestBiquadRejectsBadCutoff(t *testing.T) {
	ctx := New(8000)
	if _, err := ctx.NewBiquad(LowPass, 5000, 1); err == nil {
		t.Error("expected error for cutoff above nyquist")
	}
}

func TestConvolverIdentityImpulse(t *testing.T) {
	ctx := New(8000)
	cv, err := ctx.NewConvolver([]float64{1})
	if err != nil {
		t.Fatalf("convolver: %v", err)
	}
	ctx.Connect(ctx.Source(), cv)
	ctx.Connect(cv, ctx.Destination())

	in := []float64{0.5, -0.5, 0.25}
	out := ctx.Render(in)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("identity impulse changed sample %d: %f", i, out[i])
		}
	}
}

func TestConvolverCarriesTailAcrossBlocks(t *testing.T) {
	ctx := New(8000)
	cv, err := ctx.NewConvolver([]float64{0, 0, 1}) // pure 2-sample delay
	if err != nil {
		t.Fatalf("convolver: %v", err)
	}
	ctx.Connect(ctx.Source(), cv)
	ctx.Connect(cv, ctx.Destination())

	first := ctx.Render([]float64{1, 0})
	if first[0] != 0 || first[1] != 0 {
		t.Fatalf("expected silence in first block, got %v", first)
	}
	second := ctx.Render([]float64{0, 0})
	if second[0] != 1 {
		t.Errorf("expected delayed impulse at start of second block, got %v", second)
	}
}

func TestConvolverRejectsEmptyImpulse(t *testing.T) {
	ctx := New(8000)
	if _, err := ctx.NewConvolver(nil); err == nil {
		t.Error("expected error for empty impulse")
	}
}

func TestAnalyserTapDoesNotAlterSignal(t *testing.T) {
	ctx := New(8000)
	a := ctx.NewAnalyser()
	ctx.Connect(ctx.Source(), ctx.Destination())
	ctx.Connect(ctx.Source(), a)

	in := []float64{0.5, 0.5, 0.5, 0.5}
	out := ctx.Render(in)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("tap altered main path at %d: %f", i, out[i])
		}
	}
	if a.Level() == 0 {
		t.Error("analyser should report non-zero level for non-silent input")
	}
}

func TestAnalyserLevelSilence(t *testing.T) {
	ctx := New(8000)
	a := ctx.NewAnalyser()
	ctx.Connect(ctx.Source(), a)
	ctx.Render([]float64{0, 0, 0, 0})
	if a.Level() != 0 {
		t.Errorf("expected zero level for silence, got %f", a.Level())
	}
}

func TestRenderAfterClose(t *testing.T) {
	ctx := New(8000)
	ctx.Connect(ctx.Source(), ctx.Destination())
	ctx.Close()
	if out := ctx.Render([]float64{1}); out != nil {
		t.Errorf("expected nil render after close, got %v", out)
	}
	if err := ctx.Connect(ctx.Source(), ctx.Destination()); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
