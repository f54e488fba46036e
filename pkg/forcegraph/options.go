package forcegraph

import (
	"math"
	"time"
)

// Options configures the physics and the tick scheduler.
type Options struct {
	Width  float64 // viewport width, the centering force aims at Width/2
	Height float64 // viewport height

	LinkDistance  float64 // spring rest length
	Charge        float64 // many-body strength, negative repels
	DistanceMin   float64 // many-body distance floor
	InitialRadius float64 // phyllotaxis seed radius

	AlphaMin        float64 // simulation settles below this
	AlphaDecay      float64 // per-tick approach of alpha to its target
	VelocityDecay   float64 // friction, fraction of velocity lost per tick
	DragAlphaTarget float64 // alpha target while a node is dragged

	TickInterval time.Duration
}

// DefaultOptions mirrors the classic d3-force settings used by the viewer:
// 140px links, -400 charge, alpha decaying to 0.001 over 300 ticks.
func DefaultOptions() Options {
	return Options{
		Width:           1100,
		Height:          700,
		LinkDistance:    140,
		Charge:          -400,
		DistanceMin:     1,
		InitialRadius:   10,
		AlphaMin:        0.001,
		AlphaDecay:      1 - math.Pow(0.001, 1.0/300),
		VelocityDecay:   0.4,
		DragAlphaTarget: 0.3,
		TickInterval:    16 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width > 0 {
		d.Width = o.Width
	}
	if o.Height > 0 {
		d.Height = o.Height
	}
	if o.LinkDistance > 0 {
		d.LinkDistance = o.LinkDistance
	}
	if o.Charge != 0 {
		d.Charge = o.Charge
	}
	if o.DistanceMin > 0 {
		d.DistanceMin = o.DistanceMin
	}
	if o.InitialRadius > 0 {
		d.InitialRadius = o.InitialRadius
	}
	if o.AlphaMin > 0 {
		d.AlphaMin = o.AlphaMin
	}
	if o.AlphaDecay > 0 {
		d.AlphaDecay = o.AlphaDecay
	}
	if o.VelocityDecay > 0 {
		d.VelocityDecay = o.VelocityDecay
	}
	if o.DragAlphaTarget > 0 {
		d.DragAlphaTarget = o.DragAlphaTarget
	}
	if o.TickInterval > 0 {
		d.TickInterval = o.TickInterval
	}
	return d
}
