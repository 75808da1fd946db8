package chassis

import (
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// Profile is the per-robot configuration file.  Classroom kits vary (wheel
// sizes, motor ports, how well the gyro behaves) so everything the movement
// code needs to know about a particular build lives here.
type Profile struct {
	Geometry Geometry `yaml:"geometry"`

	LeftMotorPort  string `yaml:"left_motor_port"`
	RightMotorPort string `yaml:"right_motor_port"`

	// Speeds are percentages of full motor speed, range 1-100.
	DefaultSpeedPct int `yaml:"default_speed_pct"`
	TurnSpeedPct    int `yaml:"turn_speed_pct"`

	// Straight-line speed at 100%, used for the timed-movement fallback
	// when degree-based moves are unavailable.
	MaxSpeedMMPerS float64 `yaml:"max_speed_mm_per_s"`

	// Heading tolerance for gyro-monitored turns and corrections.
	TurnToleranceDeg float64 `yaml:"turn_tolerance_deg"`
}

// DefaultProfile matches the standard two-small-wheel SPIKE Prime build used
// in the lessons: 56mm wheels, 112mm apart, motors on ports C and D.
func DefaultProfile() Profile {
	return Profile{
		Geometry: Geometry{
			WheelDiameterMM: 56,
			WheelBaseMM:     112,
		},
		LeftMotorPort:    "C",
		RightMotorPort:   "D",
		DefaultSpeedPct:  30,
		TurnSpeedPct:     20,
		MaxSpeedMMPerS:   300,
		TurnToleranceDeg: 3,
	}
}

func (p Profile) Validate() error {
	if err := p.Geometry.Validate(); err != nil {
		return err
	}
	for _, port := range []string{p.LeftMotorPort, p.RightMotorPort} {
		if len(port) != 1 || !strings.Contains("ABCDEF", port) {
			return fmt.Errorf("bad motor port %q, want A-F", port)
		}
	}
	if p.LeftMotorPort == p.RightMotorPort {
		return fmt.Errorf("left and right motors can't share port %s", p.LeftMotorPort)
	}
	if p.DefaultSpeedPct < 1 || p.DefaultSpeedPct > 100 {
		return fmt.Errorf("default speed %d%% out of range 1-100", p.DefaultSpeedPct)
	}
	if p.TurnSpeedPct < 1 || p.TurnSpeedPct > 100 {
		return fmt.Errorf("turn speed %d%% out of range 1-100", p.TurnSpeedPct)
	}
	if p.MaxSpeedMMPerS <= 0 {
		return fmt.Errorf("max speed must be positive, got %v", p.MaxSpeedMMPerS)
	}
	if p.TurnToleranceDeg <= 0 {
		return fmt.Errorf("turn tolerance must be positive, got %v", p.TurnToleranceDeg)
	}
	return nil
}

// LoadProfile reads path, overlaying the file's values on DefaultProfile.  A
// missing file is not an error; the defaults are used unchanged.  Whatever
// ends up in effect is written back next to the input as "<path>-in-use" so
// there's a record of the exact numbers a run used.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	cfg, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(cfg, &p); err != nil {
			return p, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return p, err
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("%s: %w", path, err)
	}

	cfgBytes, err := yaml.Marshal(&p)
	if err == nil {
		if err := os.WriteFile(path+"-in-use", cfgBytes, 0666); err != nil {
			fmt.Println("Failed to write in-use config copy:", err)
		}
	}
	return p, nil
}
