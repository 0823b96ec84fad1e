package effects

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/petems/mictape/internal/graph"
)

type edge struct {
	from, to graph.Node
}

// Router wires the capture source through an optional transform stage to
// the destination as a dry/wet mix. It owns every edge it creates and
// fully disconnects them before rewiring, so the destination never sees
// two simultaneous wet paths.
type Router struct {
	log   zerolog.Logger
	ctx   *graph.Context
	edges []edge
}

func NewRouter(ctx *graph.Context, log zerolog.Logger) *Router {
	return &Router{log: log, ctx: ctx}
}

// Apply replaces the current routing with the given spec. On construction
// failure the previous wiring is already torn down; a plain dry connection
// is restored so the signal keeps flowing, and the error is returned for
// the caller to record.
func (r *Router) Apply(spec Spec) error {
	r.clear()

	if spec.Type == None {
		r.connect(r.ctx.Source(), r.ctx.Destination())
		return nil
	}

	chain, err := r.buildChain(spec)
	if err != nil {
		r.log.Error().Err(err).Str("effect", string(spec.Type)).Msg("Effect construction failed")
		r.connect(r.ctx.Source(), r.ctx.Destination())
		return err
	}

	mix := spec.WetMix()
	dry := r.ctx.NewGain(1 - mix)
	wet := r.ctx.NewGain(mix)

	r.connect(r.ctx.Source(), dry)
	r.connect(dry, r.ctx.Destination())

	prev := graph.Node(r.ctx.Source())
	for _, n := range chain {
		r.connect(prev, n)
		prev = n
	}
	r.connect(prev, wet)
	r.connect(wet, r.ctx.Destination())

	r.log.Debug().Str("effect", string(spec.Type)).Float64("mix", mix).Msg("Effect routed")
	return nil
}

func (r *Router) buildChain(spec Spec) ([]graph.Node, error) {
	sr := r.ctx.SampleRate()
	switch spec.Type {
	case Reverb:
		imp := synthImpulse(sr, spec.Param("decay", 2))
		cv, err := r.ctx.NewConvolver(imp)
		if err != nil {
			return nil, err
		}
		return []graph.Node{cv}, nil
	case Echo:
		d, err := r.ctx.NewDelay(spec.Param("delay", 0.3), spec.Param("feedback", 0.4))
		if err != nil {
			return nil, err
		}
		return []graph.Node{d}, nil
	case Distortion:
		return []graph.Node{r.ctx.NewWaveshaper(spec.Param("amount", 20))}, nil
	case LowPass:
		f, err := r.ctx.NewBiquad(graph.LowPass, spec.Param("cutoff", 800), spec.Param("q", 1))
		if err != nil {
			return nil, err
		}
		return []graph.Node{f}, nil
	case HighPass:
		f, err := r.ctx.NewBiquad(graph.HighPass, spec.Param("cutoff", 1500), spec.Param("q", 1))
		if err != nil {
			return nil, err
		}
		return []graph.Node{f}, nil
	case Telephone:
		hp, err := r.ctx.NewBiquad(graph.HighPass, spec.Param("highpass", 700), 1)
		if err != nil {
			return nil, err
		}
		lp, err := r.ctx.NewBiquad(graph.LowPass, spec.Param("lowpass", 2500), 1)
		if err != nil {
			return nil, err
		}
		return []graph.Node{hp, lp, r.ctx.NewWaveshaper(3)}, nil
	}
	return nil, fmt.Errorf("effects: unknown effect type %q", spec.Type)
}

func (r *Router) connect(from, to graph.Node) {
	if err := r.ctx.Connect(from, to); err != nil {
		return
	}
	r.edges = append(r.edges, edge{from, to})
}

// clear disconnects every edge this router established.
func (r *Router) clear() {
	for _, e := range r.edges {
		r.ctx.Disconnect(e.from, e.to)
	}
	r.edges = nil
}
