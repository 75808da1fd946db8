package motorpair

import "golang.org/x/exp/constraints"

type Wheel int

const (
	Left Wheel = iota
	Right
	NumWheels
)

type Number interface {
	constraints.Integer | constraints.Float
}

// PerWheelVal holds one value per drive wheel, indexed by Wheel.
type PerWheelVal[T Number] [NumWheels]T

// accumulate credits the odometer with commanded wheel rotation.  The hub's
// encoders aren't exposed over every transport, so this is dead reckoning
// from what we asked the motors to do.
func (p *Pair) accumulate(leftDeg, rightDeg int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.traveled[Left] += int64(leftDeg)
	p.traveled[Right] += int64(rightDeg)
}

// AccumulatedRotations returns the signed wheel rotations commanded since
// startup (or the last Zero).
func (p *Pair) AccumulatedRotations() (rotations PerWheelVal[float64]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for w, deg := range p.traveled {
		rotations[w] = float64(deg) / 360
	}
	return
}

// AccumulatedDistancesMM returns the signed distance each wheel has rolled.
func (p *Pair) AccumulatedDistancesMM() (distances PerWheelVal[float64]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for w, deg := range p.traveled {
		distances[w] = p.Profile.Geometry.DegreesToDistance(float64(deg))
	}
	return
}

// Zero resets the odometer.
func (p *Pair) Zero() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.traveled = PerWheelVal[int64]{}
}
