// teleop drives the robot from the keyboard, with live-tunable speeds, for
// testing a build before handing it to a class.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kiwibots/spikedrive/pkg/chassis"
	"github.com/kiwibots/spikedrive/pkg/drive"
	"github.com/kiwibots/spikedrive/pkg/motorpair"
	"github.com/kiwibots/spikedrive/pkg/tunable"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

const speedStepPct = 10

type model struct {
	d *drive.Drive

	throttle int // percent, +ve forward
	steer    int // percent, +ve right

	tunables     tunable.Tunables
	turnSpeed    *tunable.Tunable
	defaultSpeed *tunable.Tunable
	correctGain  *tunable.Tunable // hundredths of % per degree

	yaw     float64
	lastErr string

	quitting bool
}

type tickMsg struct{}

type correctedMsg struct {
	finalErr float64
	err      error
}

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func newModel(d *drive.Drive) *model {
	m := &model{d: d}
	m.turnSpeed = m.tunables.Create("Turn speed %", d.Turner.Config.TurnSpeedPct)
	m.defaultSpeed = m.tunables.Create("Default speed %", d.Pair.Profile.DefaultSpeedPct)
	m.correctGain = m.tunables.Create("Correction gain (100ths)", int(d.Turner.Config.GainPctPerDeg*100))
	return m
}

func (m *model) Init() tea.Cmd {
	return tick()
}

// applyTunables pushes the tunable values into the live movement config.
func (m *model) applyTunables() {
	m.d.Turner.Config.TurnSpeedPct = m.turnSpeed.Get()
	m.d.Pair.Profile.DefaultSpeedPct = m.defaultSpeed.Get()
	m.d.Turner.Config.GainPctPerDeg = float64(m.correctGain.Get()) / 100
}

func (m *model) applyMotion() {
	left := clampPct(m.throttle + m.steer)
	right := clampPct(m.throttle - m.steer)
	if err := m.d.Pair.Tank(left, right); err != nil {
		m.lastErr = err.Error()
	}
}

func clampPct(v int) int {
	if v > 100 {
		return 100
	}
	if v < -100 {
		return -100
	}
	return v
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.throttle, m.steer = 0, 0
			m.applyMotion()
			return m, tea.Quit
		case "up":
			m.throttle = clampPct(m.throttle + speedStepPct)
			m.applyMotion()
		case "down":
			m.throttle = clampPct(m.throttle - speedStepPct)
			m.applyMotion()
		case "left":
			m.steer = clampPct(m.steer - speedStepPct)
			m.applyMotion()
		case "right":
			m.steer = clampPct(m.steer + speedStepPct)
			m.applyMotion()
		case " ":
			m.throttle, m.steer = 0, 0
			m.applyMotion()
		case "r":
			if err := m.d.Hub.ResetYaw(); err != nil {
				m.lastErr = err.Error()
			}
		case "c":
			m.throttle, m.steer = 0, 0
			m.applyMotion()
			return m, m.correctToZero()
		case "tab":
			m.tunables.SelectNext()
		case "shift+tab":
			m.tunables.SelectPrev()
		case "+", "=":
			m.tunables.Current().Add(1)
			m.applyTunables()
		case "-":
			m.tunables.Current().Add(-1)
			m.applyTunables()
		}

	case tickMsg:
		if yaw, err := m.d.Hub.Yaw(); err == nil {
			m.yaw = yaw
		} else {
			m.lastErr = err.Error()
		}
		return m, tick()

	case correctedMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		} else {
			m.lastErr = ""
		}
		m.yaw = msg.finalErr
	}
	return m, nil
}

// correctToZero runs the gyro correction loop back onto heading zero.
func (m *model) correctToZero() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		finalErr, err := m.d.Turner.Correct(ctx, 0)
		return correctedMsg{finalErr: finalErr, err: err}
	}
}

func (m *model) View() string {
	if m.quitting {
		return "Teleop stopped.\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("spikedrive teleop"))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Throttle: %4d%%    Steer: %4d%%    Yaw: %6.1f\n", m.throttle, m.steer, m.yaw))
	rot := m.d.Pair.AccumulatedRotations()
	sb.WriteString(fmt.Sprintf("Wheels:   L %.1f rot    R %.1f rot\n\n",
		rot[motorpair.Left], rot[motorpair.Right]))

	for _, t := range m.tunables.All {
		line := fmt.Sprintf("  %s = %d", t.Name, t.Get())
		if t == m.tunables.Current() {
			line = selectedStyle.Render("> " + line[2:])
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	if m.lastErr != "" {
		sb.WriteString(errorStyle.Render(m.lastErr))
		sb.WriteString("\n")
	}
	sb.WriteString(statusStyle.Render("arrows drive, space stops, r resets yaw, c corrects to zero,\ntab selects a tunable, +/- adjusts, q quits"))
	sb.WriteString("\n")
	return sb.String()
}

func main() {
	configPath := flag.String("config", "robot.yaml", "robot profile yaml")
	portName := flag.String("port", "", "hub serial device, e.g. /dev/ttyACM0")
	flag.Parse()

	profile, err := chassis.LoadProfile(*configPath)
	if err != nil {
		fmt.Println("Failed to load profile:", err)
		os.Exit(1)
	}

	d, err := drive.Open(profile, *portName)
	if err != nil {
		fmt.Println("Failed to open drive:", err)
		os.Exit(1)
	}
	defer d.Close()

	p := tea.NewProgram(newModel(d), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running teleop:", err)
		os.Exit(1)
	}
}
