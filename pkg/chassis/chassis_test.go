package chassis

import (
	"math"
	"testing"
)

var testGeom = Geometry{WheelDiameterMM: 56, WheelBaseMM: 112}

func TestDistanceToDegrees(t *testing.T) {
	circum := 56 * math.Pi

	// One full wheel circumference is exactly one rotation.
	if got := testGeom.DistanceToDegrees(circum); got != 360 {
		t.Fatalf("one circumference = %d degrees, want 360", got)
	}
	if got := testGeom.DistanceToDegrees(0); got != 0 {
		t.Fatalf("zero distance = %d degrees, want 0", got)
	}

	// Truncation is toward zero, matching the lesson formulas.
	if got := testGeom.DistanceToDegrees(100); got != 204 {
		t.Fatalf("100mm = %d degrees, want 204", got)
	}
	if got := testGeom.DistanceToDegrees(-100); got != -204 {
		t.Fatalf("-100mm = %d degrees, want -204", got)
	}
}

func TestDegreesToDistanceInverts(t *testing.T) {
	d := testGeom.DegreesToDistance(360)
	if math.Abs(d-56*math.Pi) > 1e-9 {
		t.Fatalf("360 degrees = %vmm, want %v", d, 56*math.Pi)
	}
}

func TestTurnToWheelDegrees(t *testing.T) {
	// With the wheel base exactly twice the wheel diameter, a 90-degree
	// turn needs exactly half a wheel rotation.
	if got := testGeom.TurnToWheelDegrees(90); got != 180 {
		t.Fatalf("90-degree turn = %d wheel degrees, want 180", got)
	}
	if got := testGeom.TurnToWheelDegrees(360); got != 720 {
		t.Fatalf("360-degree turn = %d wheel degrees, want 720", got)
	}
}

func TestGeometryValidate(t *testing.T) {
	if err := testGeom.Validate(); err != nil {
		t.Fatalf("valid geometry rejected: %v", err)
	}
	if err := (Geometry{WheelDiameterMM: 0, WheelBaseMM: 112}).Validate(); err == nil {
		t.Fatalf("zero wheel diameter accepted")
	}
	if err := (Geometry{WheelDiameterMM: 56, WheelBaseMM: -1}).Validate(); err == nil {
		t.Fatalf("negative wheel base accepted")
	}
}
