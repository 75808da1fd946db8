package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiwibots/spikedrive/pkg/chassis"
	"github.com/kiwibots/spikedrive/pkg/drive"
	"github.com/kiwibots/spikedrive/pkg/plot"
	"github.com/kiwibots/spikedrive/pkg/sequence"
)

func main() {
	configPath := flag.String("config", "robot.yaml", "robot profile yaml")
	portName := flag.String("port", "", "hub serial device, e.g. /dev/ttyACM0")
	sides := flag.Int("sides", 4, "number of polygon sides")
	sideMM := flag.Float64("side-mm", 150, "side length in millimetres")
	tracePath := flag.String("trace", "", "write the dead-reckoned path to this PNG")
	flag.Parse()

	fmt.Print("---- drawshape ----\n\n")

	profile, err := chassis.LoadProfile(*configPath)
	if err != nil {
		fmt.Println("Failed to load profile:", err)
		os.Exit(1)
	}

	steps, err := sequence.Polygon(*sides, *sideMM)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		fmt.Println("Signal:", s)
		cancel()
		time.Sleep(2 * time.Second)
		os.Exit(1)
	}()

	d, err := drive.Open(profile, *portName)
	if err != nil {
		fmt.Println("Failed to open drive:", err)
		os.Exit(1)
	}
	defer d.Close()

	fmt.Printf("Drawing a %d-sided polygon, %.0fmm sides\n", *sides, *sideMM)
	trace, err := d.Runner.Run(ctx, steps)
	if err != nil {
		fmt.Println("Run failed:", err)
	} else {
		fmt.Println("Shape complete")
	}

	if *tracePath != "" && len(trace) >= 2 {
		if plotErr := plot.Render(trace, *tracePath); plotErr != nil {
			fmt.Println("Failed to render trace:", plotErr)
		} else {
			fmt.Println("Wrote trace to", *tracePath)
		}
	}
	if err != nil {
		os.Exit(1)
	}
}
