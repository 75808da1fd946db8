// Package motorpair drives the two wheel motors as a unit: straight moves
// by distance or time, open-loop tank turns, and raw tank control.
//
// Degree-based moves are the precise path, but not every hub firmware
// supports every call, so each movement works down a ladder of strategies:
// paired degree move, then per-motor degree moves, then a timed estimate.
package motorpair

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/kiwibots/spikedrive/pkg/chassis"
	"github.com/kiwibots/spikedrive/pkg/hub"
)

// DefaultMoveMM is the distance moved when a caller asks for a move with
// neither distance nor duration.
const DefaultMoveMM = 25.4

type Pair struct {
	Profile chassis.Profile

	hw        hub.Interface
	setupDone bool
	pair      hub.MotorPair // nil when pairing is unavailable
	left      hub.Motor
	right     hub.Motor

	mu       sync.Mutex
	traveled PerWheelVal[int64] // commanded wheel degrees, signed
}

func New(hw hub.Interface, profile chassis.Profile) *Pair {
	return &Pair{
		Profile: profile,
		hw:      hw,
	}
}

// Setup pairs the motors, falling back to direct per-motor control if the
// hub can't pair them.  Safe to call more than once.
func (p *Pair) Setup() error {
	if p.setupDone {
		return nil
	}

	leftPort := hub.Port(p.Profile.LeftMotorPort)
	rightPort := hub.Port(p.Profile.RightMotorPort)

	pair, err := p.hw.PairMotors(leftPort, rightPort)
	if err == nil {
		p.pair = pair
		p.setupDone = true
		return nil
	}
	fmt.Println("Motor pairing unavailable, using direct motor control:", err)

	if p.left, err = p.hw.Motor(leftPort); err != nil {
		return fmt.Errorf("open left motor %s: %w", leftPort, err)
	}
	if p.right, err = p.hw.Motor(rightPort); err != nil {
		return fmt.Errorf("open right motor %s: %w", rightPort, err)
	}
	p.setupDone = true
	return nil
}

// MoveDistance moves straight by distanceMM at the profile's default speed.
// Negative distance reverses.  Zero distance moves DefaultMoveMM forward.
func (p *Pair) MoveDistance(ctx context.Context, distanceMM float64) error {
	if err := p.Setup(); err != nil {
		return err
	}
	if distanceMM == 0 {
		distanceMM = DefaultMoveMM
	}

	degrees := p.Profile.Geometry.DistanceToDegrees(math.Abs(distanceMM))
	speed := p.Profile.DefaultSpeedPct
	if distanceMM < 0 {
		speed = -speed
	}
	fmt.Printf("Moving %.0fmm (%d degrees)\n", distanceMM, degrees)

	// Strategy 1: paired degree-based move.
	if p.pair != nil {
		err := p.pair.RunForDegrees(ctx, degrees, speed)
		if err == nil {
			p.accumulate(signed(degrees, speed), signed(degrees, speed))
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		fmt.Println("Paired degree move failed:", err)
	}

	// Strategy 2: direct per-motor degree moves.
	if err := p.runMotorsForDegrees(ctx, degrees, speed, speed); err == nil {
		p.accumulate(signed(degrees, speed), signed(degrees, speed))
		return nil
	} else if ctx.Err() != nil {
		return err
	} else {
		fmt.Println("Direct degree move failed:", err)
	}

	// Strategy 3: timed estimate from the profile's straight-line speed.
	estimate := time.Duration(math.Abs(distanceMM) /
		(p.Profile.MaxSpeedMMPerS * math.Abs(float64(speed)) / 100) *
		float64(time.Second))
	fmt.Printf("Falling back to timed movement, estimate %v\n", estimate)
	return p.moveTimed(ctx, estimate, speed)
}

// MoveTimed moves straight for the given duration at the default speed.
// Non-positive duration is an error.
func (p *Pair) MoveTimed(ctx context.Context, d time.Duration) error {
	if err := p.Setup(); err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("move duration must be positive, got %v", d)
	}
	return p.moveTimed(ctx, d, p.Profile.DefaultSpeedPct)
}

func (p *Pair) moveTimed(ctx context.Context, d time.Duration, speed int) error {
	if err := p.Tank(speed, speed); err != nil {
		return err
	}
	defer func() {
		if err := p.Stop(); err != nil {
			fmt.Println("Failed to stop motors:", err)
		}
	}()

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	// Credit the odometer with the estimated rotation.
	deg := p.Profile.Geometry.DistanceToDegrees(
		p.Profile.MaxSpeedMMPerS * math.Abs(float64(speed)) / 100 * d.Seconds())
	p.accumulate(signed(deg, speed), signed(deg, speed))
	return nil
}

// TurnOpenLoop performs a tank turn through turnDegrees without consulting
// the gyro.  Positive turns clockwise (a right turn): left wheel forward,
// right wheel backward.
func (p *Pair) TurnOpenLoop(ctx context.Context, turnDegrees float64) error {
	if err := p.Setup(); err != nil {
		return err
	}
	wheelDeg := p.Profile.Geometry.TurnToWheelDegrees(math.Abs(turnDegrees))
	speed := p.Profile.TurnSpeedPct
	leftSpeed, rightSpeed := speed, -speed
	if turnDegrees < 0 {
		leftSpeed, rightSpeed = -speed, speed
	}
	fmt.Printf("Open-loop turn %.0f degrees (%d wheel degrees)\n", turnDegrees, wheelDeg)

	if p.pair != nil {
		err := p.pair.TankForDegrees(ctx, wheelDeg, leftSpeed, rightSpeed)
		if err == nil {
			p.accumulate(signed(wheelDeg, leftSpeed), signed(wheelDeg, rightSpeed))
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		fmt.Println("Paired tank turn failed:", err)
	}

	if err := p.runMotorsForDegrees(ctx, wheelDeg, leftSpeed, rightSpeed); err != nil {
		return err
	}
	p.accumulate(signed(wheelDeg, leftSpeed), signed(wheelDeg, rightSpeed))
	return nil
}

// Tank starts the wheels at independent speeds and returns immediately.
func (p *Pair) Tank(leftPct, rightPct int) error {
	if err := p.Setup(); err != nil {
		return err
	}
	if p.pair != nil {
		return p.pair.Tank(leftPct, rightPct)
	}
	if err := p.left.Run(leftPct); err != nil {
		return err
	}
	return p.right.Run(rightPct)
}

// Stop stops both motors.  Both are attempted even if the first fails.
func (p *Pair) Stop() error {
	if !p.setupDone {
		return nil
	}
	if p.pair != nil {
		return p.pair.Stop()
	}
	return errors.Join(p.left.Stop(), p.right.Stop())
}

// runMotorsForDegrees drives the two motors concurrently through the same
// rotation magnitude on the direct-control path.
func (p *Pair) runMotorsForDegrees(ctx context.Context, degrees, leftSpeed, rightSpeed int) error {
	left, right := p.left, p.right
	if left == nil || right == nil {
		var err error
		if left, err = p.hw.Motor(hub.Port(p.Profile.LeftMotorPort)); err != nil {
			return err
		}
		if right, err = p.hw.Motor(hub.Port(p.Profile.RightMotorPort)); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	var leftErr, rightErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		leftErr = left.RunForDegrees(ctx, degrees, leftSpeed)
	}()
	go func() {
		defer wg.Done()
		rightErr = right.RunForDegrees(ctx, degrees, rightSpeed)
	}()
	wg.Wait()
	return errors.Join(leftErr, rightErr)
}

func signed(degrees, speed int) int {
	if speed < 0 {
		return -degrees
	}
	return degrees
}
