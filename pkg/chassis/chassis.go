package chassis

import (
	"fmt"
	"math"
)

// Geometry describes the drive base: two motors driving one wheel each,
// steered tank-style.
type Geometry struct {
	// Diameter of each drive wheel.
	WheelDiameterMM float64 `yaml:"wheel_diameter_mm"`

	// Centre-to-centre distance between the two drive wheels.
	WheelBaseMM float64 `yaml:"wheel_base_mm"`
}

func (g Geometry) Validate() error {
	if g.WheelDiameterMM <= 0 {
		return fmt.Errorf("wheel diameter must be positive, got %v", g.WheelDiameterMM)
	}
	if g.WheelBaseMM <= 0 {
		return fmt.Errorf("wheel base must be positive, got %v", g.WheelBaseMM)
	}
	return nil
}

// WheelCircumMM returns the circumference of a drive wheel.
func (g Geometry) WheelCircumMM() float64 {
	return g.WheelDiameterMM * math.Pi
}

// DistanceToDegrees converts a linear travel distance to motor rotation
// degrees, truncated toward zero.  Negative distances give negative degrees.
func (g Geometry) DistanceToDegrees(distanceMM float64) int {
	return int((distanceMM / g.WheelCircumMM()) * 360)
}

// DegreesToDistance is the inverse of DistanceToDegrees, without truncation.
func (g Geometry) DegreesToDistance(degrees float64) float64 {
	return (degrees / 360) * g.WheelCircumMM()
}

// TurnToWheelDegrees converts an in-place (tank) turn angle to the rotation
// each wheel motor must make.  During a tank turn each wheel sweeps an arc of
// the circle whose diameter is the wheel base.
func (g Geometry) TurnToWheelDegrees(turnDegrees float64) int {
	arcMM := (turnDegrees / 360) * math.Pi * g.WheelBaseMM
	return g.DistanceToDegrees(arcMM)
}
