// Package gyroturn makes turns honest: open-loop tank turns drift with
// battery level and floor surface, so turns here are monitored against the
// hub's gyro, and a bounded proportional correction loop trims any residual
// error afterwards.
package gyroturn

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kiwibots/spikedrive/pkg/angle"
	"github.com/kiwibots/spikedrive/pkg/chassis"
)

// ErrGaveUp is returned when a turn or correction exhausts its attempt cap
// before reaching tolerance.  The final heading error is reported alongside.
var ErrGaveUp = errors.New("gave up before reaching target heading")

// Drive is the part of the motor pair a turn needs.
type Drive interface {
	Tank(leftPct, rightPct int) error
	Stop() error
}

// Gyro reads the hub's heading.  Positive yaw is anticlockwise.
type Gyro interface {
	Yaw() (float64, error)
	ResetYaw() error
}

type Config struct {
	// TurnSpeedPct is the wheel speed for the main part of a turn.
	TurnSpeedPct int

	// MinCorrectSpeedPct floors the correction speed so small errors
	// still overcome motor stiction.
	MinCorrectSpeedPct int

	// GainPctPerDeg converts heading error to correction wheel speed.
	GainPctPerDeg float64

	// ToleranceDeg is how close is close enough.
	ToleranceDeg float64

	// PollInterval is how often the gyro is sampled while turning.
	PollInterval time.Duration

	// SettleDelay is the pause after a yaw reset before trusting the
	// sensor.
	SettleDelay time.Duration

	// MaxTurnPolls and MaxCorrectPolls cap the two loops.
	MaxTurnPolls    int
	MaxCorrectPolls int

	// DriveSpeedPct is the wheel speed for gyro-held straight driving.
	DriveSpeedPct int

	// StraightGainPctPerDeg converts heading error to a wheel speed trim
	// while driving straight.
	StraightGainPctPerDeg float64

	// StraightDeadbandDeg is the heading error below which no trim is
	// applied, so a well-behaved drive isn't twitched about.
	StraightDeadbandDeg float64

	// MinWheelSpeedPct floors each wheel's trimmed speed so neither
	// wheel stalls mid-drive.
	MinWheelSpeedPct int

	// MaxSpeedMMPerS is the straight-line speed at 100%, used to time
	// distance-based straight drives.
	MaxSpeedMMPerS float64

	// MaxStraightPolls caps the straight-drive loop.
	MaxStraightPolls int
}

// DefaultConfig returns the turn settings used in the lessons, taking the
// speed and tolerance from the robot's profile.
func DefaultConfig(p chassis.Profile) Config {
	return Config{
		TurnSpeedPct:       p.TurnSpeedPct,
		MinCorrectSpeedPct: 5,
		GainPctPerDeg:      1.5,
		ToleranceDeg:       p.TurnToleranceDeg,
		PollInterval:       20 * time.Millisecond,
		SettleDelay:        100 * time.Millisecond,
		MaxTurnPolls:       300,
		MaxCorrectPolls:    150,

		DriveSpeedPct:         p.DefaultSpeedPct,
		StraightGainPctPerDeg: 1.5,
		StraightDeadbandDeg:   1,
		MinWheelSpeedPct:      10,
		MaxSpeedMMPerS:        p.MaxSpeedMMPerS,
		MaxStraightPolls:      500,
	}
}

type Turner struct {
	Drive  Drive
	Gyro   Gyro
	Config Config
}

func New(drive Drive, gyro Gyro, cfg Config) *Turner {
	return &Turner{
		Drive:  drive,
		Gyro:   gyro,
		Config: cfg,
	}
}

// TurnBy turns in place through turnDegrees, monitored against the gyro.
// Positive is clockwise (a right turn).  The yaw reference is reset at the
// start, so headings from before the call don't survive it.  Turns larger
// than 120 degrees are split into chunks so the wrap-around arithmetic
// stays well clear of the 180 degree boundary.  Returns the final heading
// error in degrees.
func (t *Turner) TurnBy(ctx context.Context, turnDegrees float64) (float64, error) {
	remaining := turnDegrees
	var finalErr float64
	for remaining != 0 {
		step := remaining
		if step > 120 {
			step = 120
		} else if step < -120 {
			step = -120
		}
		remaining -= step

		if err := t.Gyro.ResetYaw(); err != nil {
			return 0, fmt.Errorf("reset yaw: %w", err)
		}
		if !sleepCtx(ctx, t.Config.SettleDelay) {
			return 0, ctx.Err()
		}
		var err error
		finalErr, err = t.monitoredTurn(ctx, step)
		if err != nil {
			return finalErr, err
		}
	}
	return finalErr, nil
}

// TurnTo turns to an absolute yaw value in the gyro's current reference
// frame, then runs the correction loop to trim the result.  Returns the
// final heading error.
func (t *Turner) TurnTo(ctx context.Context, targetYaw float64) (float64, error) {
	yaw, err := t.Gyro.Yaw()
	if err != nil {
		return 0, err
	}
	delta := angle.FromFloat(targetYaw - yaw)
	if !delta.Within(t.Config.ToleranceDeg) {
		// Positive yaw delta is anticlockwise, i.e. a negative
		// (left) monitored turn.
		if _, err := t.monitoredTurn(ctx, -delta.Float()); err != nil && !errors.Is(err, ErrGaveUp) {
			return 0, err
		}
	}
	return t.Correct(ctx, targetYaw)
}

// monitoredTurn tank-turns through turnDegrees relative to the current yaw,
// polling the gyro until the remaining angle is inside tolerance or the
// poll cap pops.  Motors are always stopped on return.
func (t *Turner) monitoredTurn(ctx context.Context, turnDegrees float64) (float64, error) {
	initialYaw, err := t.Gyro.Yaw()
	if err != nil {
		return 0, err
	}
	// A clockwise (right) turn takes the yaw down.
	targetYaw := initialYaw - turnDegrees

	speed := t.Config.TurnSpeedPct
	left, right := speed, -speed
	if turnDegrees < 0 {
		left, right = -speed, speed
	}
	if err := t.Drive.Tank(left, right); err != nil {
		return 0, err
	}
	defer t.stop()

	for polls := 0; polls < t.Config.MaxTurnPolls; polls++ {
		yaw, err := t.Gyro.Yaw()
		if err != nil {
			return 0, err
		}
		remaining := angle.FromFloat(yaw - targetYaw).Float()
		if turnDegrees < 0 {
			remaining = -remaining
		}
		if polls%10 == 0 {
			fmt.Printf("Turning: current=%.1f target=%.1f remaining=%.1f\n", yaw, targetYaw, remaining)
		}
		if remaining <= t.Config.ToleranceDeg {
			finalErr := t.headingError(targetYaw)
			fmt.Printf("Turn complete: target=%.1f error=%.1f\n", targetYaw, finalErr)
			return finalErr, nil
		}
		if !sleepCtx(ctx, t.Config.PollInterval) {
			return 0, ctx.Err()
		}
	}
	finalErr := t.headingError(targetYaw)
	return finalErr, fmt.Errorf("turn timed out with %.1f degrees of error: %w", finalErr, ErrGaveUp)
}

// Correct trims the heading onto targetYaw with a bounded proportional
// loop: wheels driven in opposite directions at a speed proportional to the
// error magnitude, floored at MinCorrectSpeedPct, sampling the gyro every
// PollInterval.  Gives up after MaxCorrectPolls.  Returns the final heading
// error.
func (t *Turner) Correct(ctx context.Context, targetYaw float64) (float64, error) {
	defer t.stop()

	for polls := 0; polls < t.Config.MaxCorrectPolls; polls++ {
		yaw, err := t.Gyro.Yaw()
		if err != nil {
			return 0, err
		}
		headingError := angle.FromFloat(targetYaw - yaw)
		if headingError.Within(t.Config.ToleranceDeg) {
			if err := t.Drive.Stop(); err != nil {
				return headingError.Float(), err
			}
			fmt.Printf("Correction done: error=%.1f after %d polls\n", headingError.Float(), polls)
			return headingError.Float(), nil
		}

		speed := int(t.Config.GainPctPerDeg * headingError.Abs())
		if speed < t.Config.MinCorrectSpeedPct {
			speed = t.Config.MinCorrectSpeedPct
		}
		if speed > t.Config.TurnSpeedPct {
			speed = t.Config.TurnSpeedPct
		}

		// Positive error means the target is anticlockwise of us.
		left, right := -speed, speed
		if headingError.Float() < 0 {
			left, right = speed, -speed
		}
		if err := t.Drive.Tank(left, right); err != nil {
			return headingError.Float(), err
		}
		if !sleepCtx(ctx, t.Config.PollInterval) {
			return headingError.Float(), ctx.Err()
		}
	}
	finalErr := t.headingError(targetYaw)
	return finalErr, fmt.Errorf("correction exhausted %d polls with %.1f degrees of error: %w",
		t.Config.MaxCorrectPolls, finalErr, ErrGaveUp)
}

// DriveStraight drives straight for distanceMM, holding the heading with the
// gyro: the yaw reference is reset at the start, then any drift is trimmed
// out by speeding up one wheel and slowing the other in proportion to the
// heading error, floored at MinWheelSpeedPct.  Negative distance reverses.
// The distance is timed from the profile's straight-line speed, so it is an
// estimate; MaxStraightPolls bounds the drive regardless.  Motors are always
// stopped on return.  Returns the final heading error in degrees.
func (t *Turner) DriveStraight(ctx context.Context, distanceMM float64) (float64, error) {
	if distanceMM == 0 {
		return 0, fmt.Errorf("drive distance must be non-zero")
	}
	speed := t.Config.DriveSpeedPct
	if distanceMM < 0 {
		speed = -speed
	}
	duration := time.Duration(math.Abs(distanceMM) /
		(t.Config.MaxSpeedMMPerS * float64(t.Config.DriveSpeedPct) / 100) *
		float64(time.Second))
	fmt.Printf("Driving %.0fmm holding heading, estimate %v\n", distanceMM, duration)

	if err := t.Gyro.ResetYaw(); err != nil {
		return 0, fmt.Errorf("reset yaw: %w", err)
	}
	if !sleepCtx(ctx, t.Config.SettleDelay) {
		return 0, ctx.Err()
	}

	if err := t.Drive.Tank(speed, speed); err != nil {
		return 0, err
	}
	defer t.stop()

	deadline := time.Now().Add(duration)
	for polls := 0; polls < t.Config.MaxStraightPolls && time.Now().Before(deadline); polls++ {
		yaw, err := t.Gyro.Yaw()
		if err != nil {
			return 0, err
		}
		headingError := angle.FromFloat(yaw)
		if !headingError.Within(t.Config.StraightDeadbandDeg) {
			// Positive error means we've drifted anticlockwise, so
			// the left wheel speeds up and the right slows down.
			// The trim works unchanged in reverse: the wheel speeds
			// are negative, so the same additions swap which wheel
			// is the faster one.
			trim := int(t.Config.StraightGainPctPerDeg * headingError.Float())
			left := t.trimWheel(speed+trim, speed)
			right := t.trimWheel(speed-trim, speed)
			if polls%10 == 0 {
				fmt.Printf("Holding heading: error=%.1f left=%d right=%d\n",
					headingError.Float(), left, right)
			}
			if err := t.Drive.Tank(left, right); err != nil {
				return headingError.Float(), err
			}
		}
		if !sleepCtx(ctx, t.Config.PollInterval) {
			return headingError.Float(), ctx.Err()
		}
	}
	return t.headingError(0), nil
}

// trimWheel clamps a trimmed wheel speed so it keeps base's drive direction
// and neither stalls nor exceeds full speed.
func (t *Turner) trimWheel(v, base int) int {
	lo, hi := t.Config.MinWheelSpeedPct, 100
	if base < 0 {
		if v > -lo {
			return -lo
		}
		if v < -hi {
			return -hi
		}
		return v
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (t *Turner) headingError(targetYaw float64) float64 {
	yaw, err := t.Gyro.Yaw()
	if err != nil {
		return math.NaN()
	}
	return angle.FromFloat(targetYaw - yaw).Float()
}

func (t *Turner) stop() {
	if err := t.Drive.Stop(); err != nil {
		fmt.Println("Failed to stop motors:", err)
	}
}

// sleepCtx sleeps for d, returning false if ctx finished first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
