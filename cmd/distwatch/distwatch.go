// Command distwatch polls the hub's distance sensor and prints the
// readings, for checking a sensor is plugged in and pointing the right way.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kiwibots/spikedrive/pkg/chassis"
	"github.com/kiwibots/spikedrive/pkg/hub"
	"github.com/kiwibots/spikedrive/pkg/hub/serialhub"
)

func main() {
	configFile := flag.String("config", "robot.yaml", "robot profile file")
	port := flag.String("port", "", "hub serial port (default $SPIKEDRIVE_PORT)")
	interval := flag.Duration("interval", 200*time.Millisecond, "poll interval")
	flag.Parse()

	if _, err := chassis.LoadProfile(*configFile); err != nil {
		fmt.Println("Failed to load profile:", err)
		os.Exit(1)
	}

	portName := *port
	if portName == "" {
		portName = os.Getenv("SPIKEDRIVE_PORT")
	}
	if portName == "" {
		fmt.Println("No hub port given; use -port or $SPIKEDRIVE_PORT")
		os.Exit(1)
	}

	h, err := serialhub.Open(portName)
	if err != nil {
		fmt.Println("Failed to open hub:", err)
		os.Exit(1)
	}
	defer func() {
		_ = h.Close()
	}()

	for {
		mm, err := h.DistanceMM()
		switch {
		case errors.Is(err, hub.ErrNoDevice):
			fmt.Println("No distance sensor connected")
		case err != nil:
			fmt.Println("Failed to read distance:", err)
			os.Exit(1)
		default:
			fmt.Printf("Distance: %dmm\n", mm)
		}
		time.Sleep(*interval)
	}
}
