package gyroturn

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kiwibots/spikedrive/pkg/chassis"
	"github.com/kiwibots/spikedrive/pkg/hub/simhub"
	"github.com/kiwibots/spikedrive/pkg/motorpair"
)

func fastProfile() chassis.Profile {
	p := chassis.DefaultProfile()
	p.MaxSpeedMMPerS = 1000
	p.DefaultSpeedPct = 50
	p.TurnSpeedPct = 30
	return p
}

func fastConfig(p chassis.Profile) Config {
	cfg := DefaultConfig(p)
	cfg.PollInterval = 5 * time.Millisecond
	cfg.SettleDelay = time.Millisecond
	return cfg
}

func newTurner(t *testing.T, p chassis.Profile) (*Turner, *simhub.Sim) {
	t.Helper()
	sim := simhub.New(p)
	pair := motorpair.New(sim, p)
	if err := pair.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return New(pair, sim, fastConfig(p)), sim
}

func TestTurnByRight(t *testing.T) {
	p := fastProfile()
	turner, sim := newTurner(t, p)

	finalErr, err := turner.TurnBy(context.Background(), 90)
	if err != nil {
		t.Fatalf("TurnBy(90): %v", err)
	}
	if math.Abs(finalErr) > p.TurnToleranceDeg+3 {
		t.Fatalf("final error %.1f, want within tolerance-ish", finalErr)
	}

	yaw, err := sim.Yaw()
	if err != nil {
		t.Fatalf("Yaw: %v", err)
	}
	if math.Abs(yaw+90) > 8 {
		t.Fatalf("yaw = %.1f after 90-degree right turn, want ~-90", yaw)
	}
}

func TestTurnByLeft(t *testing.T) {
	turner, sim := newTurner(t, fastProfile())

	if _, err := turner.TurnBy(context.Background(), -90); err != nil {
		t.Fatalf("TurnBy(-90): %v", err)
	}
	yaw, err := sim.Yaw()
	if err != nil {
		t.Fatalf("Yaw: %v", err)
	}
	if math.Abs(yaw-90) > 8 {
		t.Fatalf("yaw = %.1f after 90-degree left turn, want ~90", yaw)
	}
}

func TestTurnByOvershootingRobot(t *testing.T) {
	// A robot whose turns run 15% hot still ends up close, because the
	// turn is monitored rather than open loop.
	p := fastProfile()
	sim := simhub.New(p)
	sim.YawSkew = 1.15
	pair := motorpair.New(sim, p)
	if err := pair.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	turner := New(pair, sim, fastConfig(p))

	if _, err := turner.TurnBy(context.Background(), 90); err != nil {
		t.Fatalf("TurnBy: %v", err)
	}
	yaw, err := sim.Yaw()
	if err != nil {
		t.Fatalf("Yaw: %v", err)
	}
	if math.Abs(yaw+90) > 10 {
		t.Fatalf("yaw = %.1f, want ~-90 despite overshoot", yaw)
	}
}

func TestCorrectTrimsError(t *testing.T) {
	p := fastProfile()
	turner, sim := newTurner(t, p)

	// Ask the correction loop to rotate onto a heading we're 12 degrees
	// away from.
	finalErr, err := turner.Correct(context.Background(), 12)
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if math.Abs(finalErr) > p.TurnToleranceDeg {
		t.Fatalf("final error %.1f, want within %.1f", finalErr, p.TurnToleranceDeg)
	}
	yaw, err := sim.Yaw()
	if err != nil {
		t.Fatalf("Yaw: %v", err)
	}
	if math.Abs(yaw-12) > p.TurnToleranceDeg+2 {
		t.Fatalf("yaw = %.1f, want ~12", yaw)
	}
}

func TestCorrectAlreadyInTolerance(t *testing.T) {
	turner, sim := newTurner(t, fastProfile())

	finalErr, err := turner.Correct(context.Background(), 1)
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if math.Abs(finalErr) > 3 {
		t.Fatalf("final error %.1f, want ~1", finalErr)
	}
	// No motion should have happened.
	pose := sim.Pose()
	if math.Abs(pose.HeadingDeg) > 0.5 {
		t.Fatalf("correction moved an in-tolerance robot: %+v", pose)
	}
}

func TestCorrectGivesUp(t *testing.T) {
	p := fastProfile()
	turner, sim := newTurner(t, p)
	turner.Config.MaxCorrectPolls = 2
	turner.Config.ToleranceDeg = 0.5

	_, err := turner.Correct(context.Background(), 150)
	if !errors.Is(err, ErrGaveUp) {
		t.Fatalf("Correct with tiny poll cap = %v, want ErrGaveUp", err)
	}

	// Motors must be stopped after giving up.
	yaw1, _ := sim.Yaw()
	time.Sleep(30 * time.Millisecond)
	yaw2, _ := sim.Yaw()
	if math.Abs(yaw2-yaw1) > 0.5 {
		t.Fatalf("motors still running after giving up: yaw moved %.2f", yaw2-yaw1)
	}
}

func TestTurnByCancelled(t *testing.T) {
	turner, sim := newTurner(t, fastProfile())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	_, err := turner.TurnBy(ctx, 90)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("TurnBy on cancelled ctx = %v, want context.Canceled", err)
	}

	yaw1, _ := sim.Yaw()
	time.Sleep(30 * time.Millisecond)
	yaw2, _ := sim.Yaw()
	if math.Abs(yaw2-yaw1) > 0.5 {
		t.Fatalf("motors still running after cancellation: yaw moved %.2f", yaw2-yaw1)
	}
}

func TestDriveStraightHoldsHeading(t *testing.T) {
	p := fastProfile()

	// Open loop first: a drive whose left wheel runs 10% fast pulls well
	// off line over 300mm.
	openLoop := simhub.New(p)
	openLoop.LeftWheelSkew = 1.1
	olPair := motorpair.New(openLoop, p)
	if err := olPair.MoveDistance(context.Background(), 300); err != nil {
		t.Fatalf("MoveDistance: %v", err)
	}
	olY := math.Abs(openLoop.Pose().YMM)
	if olY < 25 {
		t.Fatalf("open loop only drifted %.1fmm; the skew isn't biting", olY)
	}

	// Same robot with the heading hold tracks far straighter.
	held := simhub.New(p)
	held.LeftWheelSkew = 1.1
	pair := motorpair.New(held, p)
	if err := pair.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	turner := New(pair, held, fastConfig(p))

	finalErr, err := turner.DriveStraight(context.Background(), 300)
	if err != nil {
		t.Fatalf("DriveStraight: %v", err)
	}
	if math.Abs(finalErr) > 5 {
		t.Fatalf("final heading error %.1f, want near zero", finalErr)
	}
	pose := held.Pose()
	if math.Abs(pose.YMM) > 20 || math.Abs(pose.YMM) > olY/2 {
		t.Fatalf("held drive drifted %.1fmm off line (open loop %.1fmm)", pose.YMM, olY)
	}
	if pose.XMM < 250 || pose.XMM > 380 {
		t.Fatalf("held drive covered %.1fmm, want roughly 300", pose.XMM)
	}
}

func TestDriveStraightOnPerfectRobot(t *testing.T) {
	p := fastProfile()
	turner, sim := newTurner(t, p)

	if _, err := turner.DriveStraight(context.Background(), 200); err != nil {
		t.Fatalf("DriveStraight: %v", err)
	}
	pose := sim.Pose()
	if math.Abs(pose.XMM-200) > 30 {
		t.Fatalf("moved %.1fmm, want ~200", pose.XMM)
	}
	// Inside the deadband no trim is applied, so a straight robot stays
	// dead straight.
	if math.Abs(pose.YMM) > 2 || math.Abs(pose.HeadingDeg) > 1 {
		t.Fatalf("perfect robot wandered: %+v", pose)
	}
}

func TestDriveStraightReverse(t *testing.T) {
	p := fastProfile()
	sim := simhub.New(p)
	sim.LeftWheelSkew = 1.1
	pair := motorpair.New(sim, p)
	if err := pair.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	turner := New(pair, sim, fastConfig(p))

	if _, err := turner.DriveStraight(context.Background(), -300); err != nil {
		t.Fatalf("DriveStraight(-300): %v", err)
	}
	pose := sim.Pose()
	if pose.XMM > -250 || pose.XMM < -380 {
		t.Fatalf("reverse drive covered %.1fmm, want roughly -300", pose.XMM)
	}
	if math.Abs(pose.YMM) > 20 {
		t.Fatalf("reverse held drive drifted %.1fmm off line", pose.YMM)
	}
}

func TestDriveStraightRejectsZero(t *testing.T) {
	turner, _ := newTurner(t, fastProfile())
	if _, err := turner.DriveStraight(context.Background(), 0); err == nil {
		t.Fatalf("DriveStraight(0) accepted, want error")
	}
}

func TestTurnToUsesCurrentFrame(t *testing.T) {
	p := fastProfile()
	turner, sim := newTurner(t, p)

	// Get the robot to roughly -90 first, then ask for an absolute 0.
	if _, err := turner.TurnBy(context.Background(), 90); err != nil {
		t.Fatalf("TurnBy: %v", err)
	}
	if err := sim.ResetYaw(); err != nil {
		t.Fatalf("ResetYaw: %v", err)
	}
	finalErr, err := turner.TurnTo(context.Background(), 45)
	if err != nil {
		t.Fatalf("TurnTo: %v", err)
	}
	if math.Abs(finalErr) > p.TurnToleranceDeg {
		t.Fatalf("final error %.1f, want within %.1f", finalErr, p.TurnToleranceDeg)
	}
	yaw, _ := sim.Yaw()
	if math.Abs(yaw-45) > p.TurnToleranceDeg+2 {
		t.Fatalf("yaw = %.1f, want ~45", yaw)
	}
}
