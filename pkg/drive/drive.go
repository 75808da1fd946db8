// Package drive wires a hub backend, motor pair and gyro turner together,
// so commands don't each repeat the assembly.
package drive

import (
	"fmt"
	"os"

	"github.com/kiwibots/spikedrive/pkg/chassis"
	"github.com/kiwibots/spikedrive/pkg/gyroturn"
	"github.com/kiwibots/spikedrive/pkg/hub"
	"github.com/kiwibots/spikedrive/pkg/hub/serialhub"
	"github.com/kiwibots/spikedrive/pkg/hub/simhub"
	"github.com/kiwibots/spikedrive/pkg/motorpair"
	"github.com/kiwibots/spikedrive/pkg/sequence"
)

type Drive struct {
	Hub    hub.Interface
	Pair   *motorpair.Pair
	Turner *gyroturn.Turner
	Runner *sequence.Runner

	// Sim is non-nil when the simulated backend is in use.
	Sim *simhub.Sim
}

// Open connects to the hub on portName (or $SPIKEDRIVE_PORT if empty) and
// builds the movement stack on top.  If no port is known, or the port can't
// be opened and $SPIKEDRIVE_ALLOW_SIM is "true", the simulated hub is used
// instead so scripts can be dry-run at a desk.
func Open(profile chassis.Profile, portName string) (*Drive, error) {
	if portName == "" {
		portName = os.Getenv("SPIKEDRIVE_PORT")
	}

	var hw hub.Interface
	var sim *simhub.Sim
	if portName != "" {
		var err error
		hw, err = serialhub.Open(portName)
		if err != nil {
			fmt.Printf("Failed to open hub: %v.\n", err)
			if os.Getenv("SPIKEDRIVE_ALLOW_SIM") != "true" {
				return nil, err
			}
			hw = nil
		}
	}
	if hw == nil {
		fmt.Println("Using simulated hub")
		sim = simhub.New(profile)
		hw = sim
	}

	pair := motorpair.New(hw, profile)
	if err := pair.Setup(); err != nil {
		_ = hw.Close()
		return nil, err
	}
	turner := gyroturn.New(pair, hw, gyroturn.DefaultConfig(profile))

	return &Drive{
		Hub:    hw,
		Pair:   pair,
		Turner: turner,
		Runner: sequence.NewRunner(pair, turner),
		Sim:    sim,
	}, nil
}

// Close stops the motors and releases the hub.
func (d *Drive) Close() {
	if err := d.Pair.Stop(); err != nil {
		fmt.Println("Failed to stop motors:", err)
	}
	if err := d.Hub.Close(); err != nil {
		fmt.Println("Failed to close hub:", err)
	}
}
