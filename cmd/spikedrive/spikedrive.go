package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiwibots/spikedrive/pkg/chassis"
	"github.com/kiwibots/spikedrive/pkg/drive"
	"github.com/kiwibots/spikedrive/pkg/gyroturn"
	"github.com/kiwibots/spikedrive/pkg/plot"
	"github.com/kiwibots/spikedrive/pkg/sequence"
	"github.com/kiwibots/spikedrive/pkg/sound"
)

func main() {
	configPath := flag.String("config", "robot.yaml", "robot profile yaml")
	scriptPath := flag.String("script", "", "path script yaml to run")
	portName := flag.String("port", "", "hub serial device, e.g. /dev/ttyACM0")
	tracePath := flag.String("trace", "", "write the dead-reckoned path to this PNG")
	soundsDir := flag.String("sounds", "", "directory of cue wav files")
	holdHeading := flag.Bool("hold-heading", false, "hold heading with the gyro on straight moves")
	flag.Parse()

	fmt.Print("---- spikedrive ----\n\n")

	if *scriptPath == "" {
		fmt.Println("No -script given, nothing to do")
		flag.Usage()
		os.Exit(1)
	}

	profile, err := chassis.LoadProfile(*configPath)
	if err != nil {
		fmt.Println("Failed to load profile:", err)
		os.Exit(1)
	}

	script, err := sequence.LoadScript(*scriptPath)
	if err != nil {
		fmt.Println("Failed to load script:", err)
		os.Exit(1)
	}

	// Our global context, we cancel it to trigger shutdown.
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
	d.Runner.HoldHeading = *holdHeading

	var cues *sound.Player
	if *soundsDir != "" {
		cues = sound.NewPlayer(*soundsDir)
		defer cues.Close()
	}

	play := func(cue string) {
		if cues != nil {
			cues.Play(cue)
		}
	}

	fmt.Printf("----- %s -----\n", script.Name)
	play(sound.CueReady)
	d.Hub.Beep(880, 200)

	trace, err := d.Runner.Run(ctx, script.Steps)
	switch {
	case errors.Is(err, gyroturn.ErrGaveUp):
		fmt.Println("Run finished with heading error:", err)
		play(sound.CueGaveUp)
	case err != nil:
		fmt.Println("Run failed:", err)
		play(sound.CueGaveUp)
	default:
		fmt.Println("Run complete")
		play(sound.CueDone)
		d.Hub.Beep(1760, 200)
	}

	if *tracePath != "" && len(trace) >= 2 {
		if err := plot.Render(trace, *tracePath); err != nil {
			fmt.Println("Failed to render trace:", err)
		} else {
			fmt.Println("Wrote trace to", *tracePath)
		}
	}

	// Give a queued cue a moment to play before we tear down.
	time.Sleep(300 * time.Millisecond)
	if err != nil {
		os.Exit(1)
	}
}
