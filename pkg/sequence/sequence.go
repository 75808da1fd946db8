// Package sequence runs scripted paths: lists of forward/backward moves,
// in-place turns and pauses, of the kind used to drive shapes on the floor.
package sequence

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Step is one element of a path.  Exactly one field should be set; a zero
// Step is a no-op.
type Step struct {
	// ForwardMM moves straight by this many millimetres (negative is
	// backwards).
	ForwardMM float64 `yaml:"forward_mm,omitempty"`

	// TurnDeg turns in place, positive clockwise.
	TurnDeg float64 `yaml:"turn_deg,omitempty"`

	// PauseMS waits without moving.
	PauseMS int `yaml:"pause_ms,omitempty"`
}

func Forward(mm float64) Step    { return Step{ForwardMM: mm} }
func Backward(mm float64) Step   { return Step{ForwardMM: -mm} }
func Turn(deg float64) Step      { return Step{TurnDeg: deg} }
func Pause(d time.Duration) Step { return Step{PauseMS: int(d.Milliseconds())} }

func (s Step) String() string {
	switch {
	case s.ForwardMM != 0:
		return fmt.Sprintf("forward %.0fmm", s.ForwardMM)
	case s.TurnDeg != 0:
		return fmt.Sprintf("turn %.0f degrees", s.TurnDeg)
	case s.PauseMS != 0:
		return fmt.Sprintf("pause %dms", s.PauseMS)
	}
	return "no-op"
}

// Polygon builds the steps to drive a regular polygon clockwise: drive a
// side, turn through the exterior angle, repeat.  The turns always total
// exactly 360 degrees.
func Polygon(sides int, sideMM float64) ([]Step, error) {
	if sides < 3 {
		return nil, fmt.Errorf("a polygon needs at least 3 sides, got %d", sides)
	}
	if sideMM <= 0 {
		return nil, fmt.Errorf("side length must be positive, got %v", sideMM)
	}
	exterior := 360 / float64(sides)
	var steps []Step
	for i := 0; i < sides; i++ {
		steps = append(steps, Forward(sideMM), Turn(exterior))
	}
	return steps, nil
}

// Script is the on-disk form of a path.
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// LoadScript reads a path script from a yaml file.
func LoadScript(path string) (Script, error) {
	var sc Script
	data, err := os.ReadFile(path)
	if err != nil {
		return sc, err
	}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return sc, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(sc.Steps) == 0 {
		return sc, fmt.Errorf("%s: script has no steps", path)
	}
	return sc, nil
}

// Save writes the script to a yaml file.
func (sc Script) Save(path string) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0666)
}
