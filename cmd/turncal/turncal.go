// turncal calibrates the wheel-base number in a robot profile.  Open-loop
// turns depend on the wheel base being right: if the robot consistently
// under- or over-turns, the true wheel base differs from the profile's.
// This tool commands a series of open-loop turns, asks for the angle the
// robot actually turned (measure with a protractor or floor markings), and
// prints the corrected wheel base to put back into the yaml.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kiwibots/spikedrive/pkg/chassis"
	"github.com/kiwibots/spikedrive/pkg/drive"
)

var scanner *bufio.Scanner

func init() {
	scanner = bufio.NewScanner(os.Stdin)
}

func getMeasuredAngle(commanded float64) float64 {
	for {
		fmt.Printf("Enter the angle the robot actually turned (commanded %.0f):\n", commanded)
		if !scanner.Scan() {
			panic(scanner.Err())
		}
		measured, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			fmt.Printf("error: %v, please try again:\n", err)
			continue
		}
		if measured <= 0 {
			fmt.Println("measured angle must be positive, please try again:")
			continue
		}
		return measured
	}
}

func main() {
	configPath := flag.String("config", "robot.yaml", "robot profile yaml")
	portName := flag.String("port", "", "hub serial device, e.g. /dev/ttyACM0")
	rounds := flag.Int("rounds", 3, "number of 90-degree test turns")
	flag.Parse()

	fmt.Println("---- Turn Calibration ----")

	profile, err := chassis.LoadProfile(*configPath)
	if err != nil {
		fmt.Println("Failed to load profile:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := drive.Open(profile, *portName)
	if err != nil {
		fmt.Println("Failed to open drive:", err)
		os.Exit(1)
	}
	defer d.Close()

	const commanded = 90.0
	var ratioSum float64

	for i := 1; i <= *rounds; i++ {
		fmt.Printf("Turn %d/%d: commanding an open-loop %.0f-degree right turn...\n", i, *rounds, commanded)
		if err := d.Pair.TurnOpenLoop(ctx, commanded); err != nil {
			fmt.Println("Turn failed:", err)
			os.Exit(1)
		}
		time.Sleep(500 * time.Millisecond)

		measured := getMeasuredAngle(commanded)
		ratio := commanded / measured
		ratioSum += ratio
		fmt.Printf("  commanded/measured = %.3f\n", ratio)
	}

	// The wheels swept the arc we asked for; if the body turned less than
	// commanded, the true wheel base is larger in the same proportion.
	meanRatio := ratioSum / float64(*rounds)
	corrected := profile.Geometry.WheelBaseMM * meanRatio

	fmt.Println()
	fmt.Printf("Profile wheel base:   %.1fmm\n", profile.Geometry.WheelBaseMM)
	fmt.Printf("Corrected wheel base: %.1fmm\n", corrected)
	fmt.Printf("Update %s with:\n\n  geometry:\n    wheel_base_mm: %.1f\n", *configPath, corrected)
}
