package forcegraph

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ritzau/mindmesh/pkg/cogmap"
)

// Position is the externally visible state of one body.
type Position struct {
	ID     cogmap.ID `json:"id"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Pinned bool      `json:"pinned,omitempty"`
}

// body is a node in the solver. A non-nil pin overrides the physics.
type body struct {
	id  cogmap.ID
	pos r2.Vec
	vel r2.Vec
	pin *r2.Vec
}

type spring struct {
	source, target int
	strength       float64
	bias           float64
}

// Simulation is one force-directed layout. It is not safe for concurrent
// use; Runner serialises access.
type Simulation struct {
	opts        Options
	bodies      []body
	springs     []spring
	resolution  *cogmap.Resolution
	alpha       float64
	alphaTarget float64
	rng         *rand.Rand
}

// NewSimulation seeds the bodies on a phyllotaxis spiral around the viewport
// center and resolves the edges. Edges with unknown endpoints and self loops
// exert no force.
func NewSimulation(nodes []cogmap.Node, edges []cogmap.Edge, opts Options) *Simulation {
	opts = opts.withDefaults()
	s := &Simulation{
		opts:       opts,
		bodies:     make([]body, len(nodes)),
		resolution: cogmap.Resolve(nodes, edges),
		alpha:      1,
		rng:        rand.New(rand.NewPCG(uint64(len(nodes)), uint64(len(edges)))),
	}

	center := r2.Vec{X: opts.Width / 2, Y: opts.Height / 2}
	angle := math.Pi * (3 - math.Sqrt(5))
	for i, n := range nodes {
		radius := opts.InitialRadius * math.Sqrt(0.5+float64(i))
		a := float64(i) * angle
		s.bodies[i] = body{
			id:  n.ID,
			pos: r2.Add(center, r2.Vec{X: radius * math.Cos(a), Y: radius * math.Sin(a)}),
		}
	}

	degree := s.resolution.Degree(len(nodes))
	for _, e := range s.resolution.Edges {
		ds, dt := float64(degree[e.Source]), float64(degree[e.Target])
		s.springs = append(s.springs, spring{
			source:   e.Source,
			target:   e.Target,
			strength: 1 / math.Min(ds, dt),
			bias:     ds / (ds + dt),
		})
	}
	return s
}

// Alpha is the current energy of the simulation.
func (s *Simulation) Alpha() float64 {
	return s.alpha
}

// Settled reports whether the energy dropped below AlphaMin.
func (s *Simulation) Settled() bool {
	return s.alpha < s.opts.AlphaMin
}

// SetAlphaTarget sets the value alpha decays (or rises) toward.
func (s *Simulation) SetAlphaTarget(target float64) {
	s.alphaTarget = target
}

// Tick advances the simulation by one step: link springs, many-body
// repulsion, centering, then velocity integration.
func (s *Simulation) Tick() {
	s.alpha += (s.alphaTarget - s.alpha) * s.opts.AlphaDecay

	s.applySprings()
	s.applyCharge()
	s.applyCenter()

	keep := 1 - s.opts.VelocityDecay
	for i := range s.bodies {
		b := &s.bodies[i]
		if b.pin != nil {
			b.pos = *b.pin
			b.vel = r2.Vec{}
			continue
		}
		b.vel = r2.Scale(keep, b.vel)
		b.pos = r2.Add(b.pos, b.vel)
	}
}

func (s *Simulation) applySprings() {
	for _, sp := range s.springs {
		src, tgt := &s.bodies[sp.source], &s.bodies[sp.target]
		d := r2.Sub(r2.Add(tgt.pos, tgt.vel), r2.Add(src.pos, src.vel))
		if d.X == 0 {
			d.X = s.jiggle()
		}
		if d.Y == 0 {
			d.Y = s.jiggle()
		}
		l := r2.Norm(d)
		k := (l - s.opts.LinkDistance) / l * s.alpha * sp.strength
		d = r2.Scale(k, d)
		tgt.vel = r2.Sub(tgt.vel, r2.Scale(sp.bias, d))
		src.vel = r2.Add(src.vel, r2.Scale(1-sp.bias, d))
	}
}

// applyCharge is the exact O(n²) many-body force; maps are small enough
// that a Barnes-Hut tree buys nothing.
func (s *Simulation) applyCharge() {
	minSq := s.opts.DistanceMin * s.opts.DistanceMin
	for i := range s.bodies {
		bi := &s.bodies[i]
		for j := range s.bodies {
			if i == j {
				continue
			}
			d := r2.Sub(s.bodies[j].pos, bi.pos)
			if d.X == 0 {
				d.X = s.jiggle()
			}
			if d.Y == 0 {
				d.Y = s.jiggle()
			}
			l := r2.Norm2(d)
			if l < minSq {
				l = math.Sqrt(minSq * l)
			}
			bi.vel = r2.Add(bi.vel, r2.Scale(s.opts.Charge*s.alpha/l, d))
		}
	}
}

func (s *Simulation) applyCenter() {
	if len(s.bodies) == 0 {
		return
	}
	var mean r2.Vec
	for _, b := range s.bodies {
		mean = r2.Add(mean, b.pos)
	}
	mean = r2.Scale(1/float64(len(s.bodies)), mean)
	shift := r2.Sub(r2.Vec{X: s.opts.Width / 2, Y: s.opts.Height / 2}, mean)
	for i := range s.bodies {
		s.bodies[i].pos = r2.Add(s.bodies[i].pos, shift)
	}
}

func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}

// Pin fixes body i at (x, y); the solver no longer moves it.
func (s *Simulation) Pin(i int, x, y float64) {
	p := r2.Vec{X: x, Y: y}
	s.bodies[i].pin = &p
}

// Unpin hands body i back to the solver.
func (s *Simulation) Unpin(i int) {
	s.bodies[i].pin = nil
}

// Index returns the body index of id.
func (s *Simulation) Index(id cogmap.ID) (int, bool) {
	return s.resolution.Index(id)
}

// Position returns the position of body i.
func (s *Simulation) Position(i int) Position {
	b := s.bodies[i]
	return Position{ID: b.id, X: b.pos.X, Y: b.pos.Y, Pinned: b.pin != nil}
}

// Positions returns a copy of all body positions in node order.
func (s *Simulation) Positions() []Position {
	out := make([]Position, len(s.bodies))
	for i := range s.bodies {
		out[i] = s.Position(i)
	}
	return out
}
