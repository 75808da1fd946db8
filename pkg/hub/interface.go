package hub

import (
	"context"
	"errors"
)

// Port identifies one of the hub's six device ports.
type Port string

const (
	PortA Port = "A"
	PortB Port = "B"
	PortC Port = "C"
	PortD Port = "D"
	PortE Port = "E"
	PortF Port = "F"
)

var (
	// ErrNotSupported is returned by backends that can't perform a
	// particular operation; the movement code treats it as a cue to try
	// the next fallback strategy.
	ErrNotSupported = errors.New("operation not supported by this hub")

	// ErrNoDevice is returned when no device is attached to the port.
	ErrNoDevice = errors.New("no device on port")
)

// Interface is the hub hardware as seen by the movement code.  All speeds
// are percentages of full motor speed in range -100..100; positive drives
// the robot forwards when applied to both wheels.
type Interface interface {
	// PairMotors couples the drive motors so they can be commanded as a
	// unit.  Pairing an already-paired port combination is allowed and
	// returns the existing pair.
	PairMotors(left, right Port) (MotorPair, error)

	// Motor gives direct access to a single motor, used as a fallback
	// when pairing is unavailable.
	Motor(port Port) (Motor, error)

	// Yaw returns the current heading in degrees.  Positive is
	// anticlockwise (a left turn), matching the hub's motion sensor.
	Yaw() (float64, error)

	// ResetYaw zeroes the heading at the robot's current orientation.
	ResetYaw() error

	// DistanceMM reads the ultrasonic sensor, if fitted.
	DistanceMM() (int, error)

	// Beep plays a tone on the hub's speaker.  Best effort.
	Beep(freqHz, durationMS int)

	Close() error
}

// MotorPair commands the two drive motors as a unit.
type MotorPair interface {
	// RunForDegrees drives both wheels forward through the given motor
	// rotation, blocking until the move completes or ctx is cancelled.
	// Negative speed reverses.
	RunForDegrees(ctx context.Context, degrees, speedPct int) error

	// TankForDegrees drives the wheels at independent speeds until each
	// has rotated through the given magnitude.  Opposite signs produce a
	// tank turn.
	TankForDegrees(ctx context.Context, degrees, leftPct, rightPct int) error

	// Tank starts the wheels at independent speeds and returns
	// immediately.  The motors run until Stop or another command.
	Tank(leftPct, rightPct int) error

	Stop() error
}

// Motor is a single motor, for the direct-control fallback path.
type Motor interface {
	RunForDegrees(ctx context.Context, degrees, speedPct int) error
	Run(speedPct int) error
	Stop() error
}
