// Package sound plays short audio cues on the driving laptop so students
// know what the robot is doing without watching the terminal.
package sound

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Cue names map to <dir>/<cue>.wav.
const (
	CueReady  = "ready"
	CueDone   = "done"
	CueGaveUp = "gave-up"
)

type Player struct {
	dir  string
	cues chan string
}

// NewPlayer starts the playback goroutine.  If the speaker can't be opened
// (headless classroom machines), cues are logged and dropped.
func NewPlayer(dir string) *Player {
	p := &Player{
		dir:  dir,
		cues: make(chan string),
	}
	go p.loop()
	return p
}

func (p *Player) loop() {
	sampleRate := beep.SampleRate(44100)
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/5)); err != nil {
		fmt.Println("Failed to open speaker:", err)
		for cue := range p.cues {
			fmt.Println("Unable to play cue:", cue)
		}
		return
	}

	var ctrl *beep.Ctrl
	var current beep.StreamSeekCloser
	for cue := range p.cues {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if current != nil {
			current.Close()
		}

		f, err := os.Open(filepath.Join(p.dir, cue+".wav"))
		if err != nil {
			fmt.Println("Failed to open cue:", err)
			continue
		}
		s, _, err := wav.Decode(f)
		if err != nil {
			fmt.Println("Failed to decode cue:", err)
			continue
		}
		current = s
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
}

// Play queues a cue without blocking the movement code; if playback is
// backed up the cue is dropped.
func (p *Player) Play(cue string) {
	defer func() {
		recover() // Don't die if the channel is already closed.
	}()
	select {
	case p.cues <- cue:
	case <-time.After(10 * time.Millisecond):
		fmt.Println("Timed out trying to play cue:", cue)
	}
}

func (p *Player) Close() {
	close(p.cues)
}
