package motion

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

// Avoid runs one pass of pairwise avoidance over the active pedestrians.
// Pairs within MinDist receive equal and opposite lateral biases and
// positional pushes; every pair within DetectRadius slows both agents.
func Avoid(peds []*Agent, cfg AvoidanceConfig) {
	for i, me := range peds {
		if !isAvoider(me) {
			continue
		}
		for _, other := range peds[i+1:] {
			if !isAvoider(other) {
				continue
			}

			offset := sub(me.Position, other.Position)
			dist := length(offset)
			if dist > cfg.DetectRadius || dist < cfg.MinSeparation {
				continue
			}
			dir := scale(offset, 1/dist)

			if dist < cfg.MinDist {
				gap := cfg.MinDist - dist
				side := orb.Point{-dir[1], dir[0]}
				lateral := scale(side, gap*cfg.AvoidForce*cfg.LateralGain)
				me.Avoid = add(me.Avoid, lateral)
				other.Avoid = sub(other.Avoid, lateral)

				push := scale(dir, gap*cfg.PushGain)
				me.Position = add(me.Position, push)
				other.Position = sub(other.Position, push)

				me.AvoidTimer = 1
				other.AvoidTimer = 1
			}

			slow := lo.Clamp(dist/cfg.DetectRadius, cfg.SlowFloor, 1)
			me.SpeedFactor = math.Min(me.SpeedFactor, slow)
			other.SpeedFactor = math.Min(other.SpeedFactor, slow)
		}
	}
}

// Relax decays the avoidance transients of every pedestrian after a tick.
// The avoid timer never drops below zero.
func Relax(peds []*Agent, delta float64, cfg AvoidanceConfig) {
	frames := delta * nominalFPS
	keep := math.Pow(cfg.ReturnRate, frames)
	regain := perFrame(cfg.SpeedRecover, delta)
	for _, a := range peds {
		if a.Kind != Pedestrian {
			continue
		}
		a.Avoid = scale(a.Avoid, keep)
		a.SpeedFactor += (1 - a.SpeedFactor) * regain
		a.AvoidTimer = math.Max(0, a.AvoidTimer-cfg.TimerDecay*delta)
	}
}

func isAvoider(a *Agent) bool {
	return a.Kind == Pedestrian && a.State == Traveling
}
