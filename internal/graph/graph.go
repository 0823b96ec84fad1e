package graph

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("graph: context closed")

// Node is a processing stage in the signal graph. Nodes sum their inputs,
// apply their transform, and memoize the result per render pass.
type Node interface {
	pull(pass uint64, frames int) []float64
	addInput(n Node)
	removeInput(n Node)
}

// Context owns a signal graph: one source, one destination, and any number
// of intermediate nodes wired between them. Rendering pushes one block of
// samples from the source through every path to the destination; analyser
// taps hanging off side paths are rendered in the same pass.
type Context struct {
	sampleRate float64

	mu        sync.Mutex
	closed    bool
	pass      uint64
	source    *Source
	dest      *Destination
	analysers []*Analyser
}

func New(sampleRate float64) *Context {
	c := &Context{sampleRate: sampleRate}
	c.source = &Source{}
	c.dest = &Destination{}
	c.dest.base.proc = identity
	return c
}

func (c *Context) SampleRate() float64 { return c.sampleRate }

func (c *Context) Source() *Source { return c.source }

func (c *Context) Destination() *Destination { return c.dest }

// Connect wires from's output into to's input set.
func (c *Context) Connect(from, to Node) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	to.addInput(from)
	return nil
}

// Disconnect removes a single edge previously made with Connect.
func (c *Context) Disconnect(from, to Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	to.removeInput(from)
}

// Render feeds one block through the graph and returns the destination
// output. Returns nil once the context is closed.
func (c *Context) Render(block []float64) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.pass++
	c.source.block = block
	out := c.dest.pull(c.pass, len(block))
	for _, a := range c.analysers {
		a.pull(c.pass, len(block))
	}
	return out
}

// Close tears the context down. Further Connect and Render calls fail.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func identity(in []float64) []float64 { return in }

// base carries the shared input-summing and per-pass memoization logic.
type base struct {
	inputs []Node
	proc   func([]float64) []float64
	seen   uint64
	out    []float64
}

func (b *base) addInput(n Node) {
	b.inputs = append(b.inputs, n)
}

func (b *base) removeInput(n Node) {
	for i, in := range b.inputs {
		if in == n {
			b.inputs = append(b.inputs[:i], b.inputs[i+1:]...)
			return
		}
	}
}

func (b *base) pull(pass uint64, frames int) []float64 {
	if b.seen == pass {
		return b.out
	}
	b.seen = pass
	sum := make([]float64, frames)
	for _, in := range b.inputs {
		o := in.pull(pass, frames)
		for i := 0; i < frames && i < len(o); i++ {
			sum[i] += o[i]
		}
	}
	b.out = b.proc(sum)
	return b.out
}

// Source injects the live sample block into the graph. It has no inputs.
type Source struct {
	block []float64
}

func (s *Source) pull(pass uint64, frames int) []float64 { return s.block }
func (s *Source) addInput(Node)                          {}
func (s *Source) removeInput(Node)                       {}

// Destination sums every connected path. The rendered block of the last
// pass is kept for inspection.
type Destination struct {
	base
}

// Last returns the destination output of the most recent render pass.
func (d *Destination) Last() []float64 { return d.out }

// InputCount reports how many edges currently terminate at the destination.
func (d *Destination) InputCount() int { return len(d.inputs) }
