// Package simhub is an in-process hub backend that integrates commanded
// wheel speeds into a 2-D pose.  It stands in for a real hub on the bench
// and in tests, where it lets the closed-loop turn code run against
// something that actually responds to motor commands.
package simhub

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/kiwibots/spikedrive/pkg/angle"
	"github.com/kiwibots/spikedrive/pkg/chassis"
	"github.com/kiwibots/spikedrive/pkg/hub"
)

type Pose struct {
	XMM, YMM   float64
	HeadingDeg float64
}

type Sim struct {
	// YawSkew scales the simulated yaw rate, modelling a robot whose
	// open-loop turns over- or under-shoot.  1.0 is a perfect robot.
	// Set before first use.
	YawSkew float64

	// LeftWheelSkew scales the left wheel's effective speed, modelling a
	// drive that pulls to one side when both wheels are commanded
	// equally.  1.0 is a perfect robot.  Set before first use.
	LeftWheelSkew float64

	// FailPairing and FailRunForDegrees force those operations to
	// return hub.ErrNotSupported, to exercise the fallback ladder.
	FailPairing       bool
	FailRunForDegrees bool

	geom           chassis.Geometry
	maxSpeedMMPerS float64
	leftPort       hub.Port
	rightPort      hub.Port

	mu         sync.Mutex
	x, y       float64
	heading    angle.PlusMinus180 // true heading, +ve anticlockwise
	yawZero    angle.PlusMinus180
	leftPct    float64
	rightPct   float64
	lastUpdate time.Time
	distanceMM int
	hasRanger  bool
}

var _ hub.Interface = (*Sim)(nil)

func New(p chassis.Profile) *Sim {
	return &Sim{
		YawSkew:        1.0,
		LeftWheelSkew:  1.0,
		geom:           p.Geometry,
		maxSpeedMMPerS: p.MaxSpeedMMPerS,
		leftPort:       hub.Port(p.LeftMotorPort),
		rightPort:      hub.Port(p.RightMotorPort),
		lastUpdate:     time.Now(),
	}
}

// integrate advances the pose up to now using the current wheel speeds.
// Callers must hold s.mu.
func (s *Sim) integrate() {
	now := time.Now()
	dt := now.Sub(s.lastUpdate).Seconds()
	s.lastUpdate = now
	if dt <= 0 {
		return
	}

	vl := s.leftPct / 100 * s.maxSpeedMMPerS * s.LeftWheelSkew
	vr := s.rightPct / 100 * s.maxSpeedMMPerS

	forward := (vl + vr) / 2
	yawRate := (vr - vl) / s.geom.WheelBaseMM * 180 / math.Pi * s.YawSkew

	headingRad := s.heading.Float() * math.Pi / 180
	s.x += forward * math.Cos(headingRad) * dt
	s.y += forward * math.Sin(headingRad) * dt
	s.heading = s.heading.AddFloat(yawRate * dt)
}

func (s *Sim) setSpeeds(leftPct, rightPct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.integrate()
	s.leftPct = leftPct
	s.rightPct = rightPct
}

// Pose returns the ground-truth pose, for assertions and trace recording.
func (s *Sim) Pose() Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.integrate()
	return Pose{XMM: s.x, YMM: s.y, HeadingDeg: s.heading.Float()}
}

func (s *Sim) PairMotors(left, right hub.Port) (hub.MotorPair, error) {
	if s.FailPairing {
		return nil, hub.ErrNotSupported
	}
	if left != s.leftPort || right != s.rightPort {
		return nil, hub.ErrNoDevice
	}
	return &simPair{s}, nil
}

func (s *Sim) Motor(port hub.Port) (hub.Motor, error) {
	switch port {
	case s.leftPort:
		return &simMotor{s: s, left: true}, nil
	case s.rightPort:
		return &simMotor{s: s, left: false}, nil
	}
	return nil, hub.ErrNoDevice
}

func (s *Sim) Yaw() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.integrate()
	return s.heading.Sub(s.yawZero).Float(), nil
}

func (s *Sim) ResetYaw() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.integrate()
	s.yawZero = s.heading
	return nil
}

// SetDistanceMM fits a simulated ultrasonic sensor reporting the given
// reading.
func (s *Sim) SetDistanceMM(mm int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.distanceMM = mm
	s.hasRanger = true
}

func (s *Sim) DistanceMM() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasRanger {
		return 0, hub.ErrNoDevice
	}
	return s.distanceMM, nil
}

func (s *Sim) Beep(freqHz, durationMS int) {}

func (s *Sim) Close() error {
	s.setSpeeds(0, 0)
	return nil
}

// wheelDegPerSec returns the wheel rotation rate at the given speed
// percentage.
func (s *Sim) wheelDegPerSec(speedPct float64) float64 {
	return math.Abs(speedPct) / 100 * s.maxSpeedMMPerS / s.geom.WheelCircumMM() * 360
}

// runWindow holds the given wheel speeds for as long as it takes each wheel
// to rotate through degrees, then stops.  Honours ctx.
func (s *Sim) runWindow(ctx context.Context, degrees int, leftPct, rightPct float64) error {
	rate := s.wheelDegPerSec(math.Max(math.Abs(leftPct), math.Abs(rightPct)))
	if rate == 0 || degrees == 0 {
		return nil
	}
	d := time.Duration(math.Abs(float64(degrees)) / rate * float64(time.Second))

	s.setSpeeds(leftPct, rightPct)
	defer s.setSpeeds(0, 0)

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type simPair struct {
	s *Sim
}

func (p *simPair) RunForDegrees(ctx context.Context, degrees, speedPct int) error {
	if p.s.FailRunForDegrees {
		return hub.ErrNotSupported
	}
	v := float64(speedPct)
	return p.s.runWindow(ctx, degrees, v, v)
}

func (p *simPair) TankForDegrees(ctx context.Context, degrees, leftPct, rightPct int) error {
	return p.s.runWindow(ctx, degrees, float64(leftPct), float64(rightPct))
}

func (p *simPair) Tank(leftPct, rightPct int) error {
	p.s.setSpeeds(float64(leftPct), float64(rightPct))
	return nil
}

func (p *simPair) Stop() error {
	p.s.setSpeeds(0, 0)
	return nil
}

type simMotor struct {
	s    *Sim
	left bool
}

func (m *simMotor) set(pct float64) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.integrate()
	if m.left {
		m.s.leftPct = pct
	} else {
		m.s.rightPct = pct
	}
}

func (m *simMotor) RunForDegrees(ctx context.Context, degrees, speedPct int) error {
	rate := m.s.wheelDegPerSec(float64(speedPct))
	if rate == 0 || degrees == 0 {
		return nil
	}
	d := time.Duration(math.Abs(float64(degrees)) / rate * float64(time.Second))

	m.set(float64(speedPct))
	defer m.set(0)

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *simMotor) Run(speedPct int) error {
	m.set(float64(speedPct))
	return nil
}

func (m *simMotor) Stop() error {
	m.set(0)
	return nil
}
