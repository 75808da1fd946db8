package motorpair

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kiwibots/spikedrive/pkg/chassis"
	"github.com/kiwibots/spikedrive/pkg/hub"
	"github.com/kiwibots/spikedrive/pkg/hub/simhub"
)

func fastProfile() chassis.Profile {
	p := chassis.DefaultProfile()
	p.MaxSpeedMMPerS = 1000
	p.DefaultSpeedPct = 50
	p.TurnSpeedPct = 30
	return p
}

func TestMoveDistance(t *testing.T) {
	p := fastProfile()
	sim := simhub.New(p)
	pair := New(sim, p)

	if err := pair.MoveDistance(context.Background(), 200); err != nil {
		t.Fatalf("MoveDistance: %v", err)
	}

	pose := sim.Pose()
	if math.Abs(pose.XMM-200) > 25 {
		t.Fatalf("moved %.1fmm, want ~200", pose.XMM)
	}

	// The odometer records exactly the commanded degrees.
	wantMM := p.Geometry.DegreesToDistance(float64(p.Geometry.DistanceToDegrees(200)))
	dists := pair.AccumulatedDistancesMM()
	if math.Abs(dists[Left]-wantMM) > 0.01 || math.Abs(dists[Right]-wantMM) > 0.01 {
		t.Fatalf("odometer = %v, want both ~%.2f", dists, wantMM)
	}
}

func TestMoveDistanceZeroUsesDefault(t *testing.T) {
	p := fastProfile()
	sim := simhub.New(p)
	pair := New(sim, p)

	if err := pair.MoveDistance(context.Background(), 0); err != nil {
		t.Fatalf("MoveDistance: %v", err)
	}
	pose := sim.Pose()
	if math.Abs(pose.XMM-DefaultMoveMM) > 8 {
		t.Fatalf("moved %.1fmm, want ~%.1f", pose.XMM, DefaultMoveMM)
	}
}

func TestMoveDistanceReverse(t *testing.T) {
	p := fastProfile()
	sim := simhub.New(p)
	pair := New(sim, p)

	if err := pair.MoveDistance(context.Background(), -150); err != nil {
		t.Fatalf("MoveDistance: %v", err)
	}
	pose := sim.Pose()
	if math.Abs(pose.XMM+150) > 20 {
		t.Fatalf("moved %.1fmm, want ~-150", pose.XMM)
	}
	dists := pair.AccumulatedDistancesMM()
	if dists[Left] >= 0 || dists[Right] >= 0 {
		t.Fatalf("odometer should be negative for a reverse move: %v", dists)
	}
}

func TestSetupFallsBackToDirectMotors(t *testing.T) {
	p := fastProfile()
	sim := simhub.New(p)
	sim.FailPairing = true
	pair := New(sim, p)

	if err := pair.Setup(); err != nil {
		t.Fatalf("Setup with pairing unavailable: %v", err)
	}
	if err := pair.MoveDistance(context.Background(), 150); err != nil {
		t.Fatalf("MoveDistance on direct motors: %v", err)
	}
	pose := sim.Pose()
	if math.Abs(pose.XMM-150) > 20 {
		t.Fatalf("moved %.1fmm, want ~150", pose.XMM)
	}
}

func TestMoveDistanceFallsBackToDirectDegrees(t *testing.T) {
	p := fastProfile()
	sim := simhub.New(p)
	sim.FailRunForDegrees = true
	pair := New(sim, p)

	if err := pair.MoveDistance(context.Background(), 150); err != nil {
		t.Fatalf("MoveDistance: %v", err)
	}
	pose := sim.Pose()
	if math.Abs(pose.XMM-150) > 20 {
		t.Fatalf("moved %.1fmm, want ~150", pose.XMM)
	}
}

func TestTurnOpenLoop(t *testing.T) {
	p := fastProfile()
	sim := simhub.New(p)
	pair := New(sim, p)

	if err := pair.TurnOpenLoop(context.Background(), 90); err != nil {
		t.Fatalf("TurnOpenLoop: %v", err)
	}
	yaw, err := sim.Yaw()
	if err != nil {
		t.Fatalf("Yaw: %v", err)
	}
	if math.Abs(yaw+90) > 10 {
		t.Fatalf("yaw = %.1f after a 90-degree right turn, want ~-90", yaw)
	}

	dists := pair.AccumulatedDistancesMM()
	if dists[Left] <= 0 || dists[Right] >= 0 {
		t.Fatalf("right turn should roll left wheel forward, right back: %v", dists)
	}
}

// brokenDegreesHub fails every degree-based strategy so moves have to fall
// back to the timed estimate.
type brokenDegreesHub struct {
	*simhub.Sim
}

type brokenMotor struct {
	hub.Motor
}

func (m brokenMotor) RunForDegrees(ctx context.Context, degrees, speedPct int) error {
	return hub.ErrNotSupported
}

func (h brokenDegreesHub) Motor(port hub.Port) (hub.Motor, error) {
	inner, err := h.Sim.Motor(port)
	if err != nil {
		return nil, err
	}
	return brokenMotor{inner}, nil
}

func TestMoveDistanceTimedFallback(t *testing.T) {
	p := fastProfile()
	p.MaxSpeedMMPerS = 4000
	p.DefaultSpeedPct = 100
	sim := simhub.New(p)
	sim.FailRunForDegrees = true
	pair := New(brokenDegreesHub{sim}, p)

	if err := pair.MoveDistance(context.Background(), 200); err != nil {
		t.Fatalf("MoveDistance via timed fallback: %v", err)
	}
	pose := sim.Pose()
	if math.Abs(pose.XMM-200) > 60 {
		t.Fatalf("timed fallback moved %.1fmm, want roughly 200", pose.XMM)
	}
	// Motors must not still be running.
	before := pose.XMM
	time.Sleep(30 * time.Millisecond)
	after := sim.Pose().XMM
	if math.Abs(after-before) > 1 {
		t.Fatalf("motors still running after timed fallback")
	}
}

func TestMoveDistanceCancelled(t *testing.T) {
	p := fastProfile()
	p.DefaultSpeedPct = 5 // slow, so cancellation lands mid-move
	sim := simhub.New(p)
	pair := New(sim, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pair.MoveDistance(ctx, 500)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("MoveDistance on cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestMoveTimedRejectsBadDuration(t *testing.T) {
	p := fastProfile()
	pair := New(simhub.New(p), p)
	if err := pair.MoveTimed(context.Background(), 0); err == nil {
		t.Fatalf("MoveTimed(0) accepted, want error")
	}
}
