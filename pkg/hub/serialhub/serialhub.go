// Package serialhub drives a real hub over its USB serial link.  The hub
// side runs a small MicroPython command shim; the wire format is one
// whitespace-separated command per line, answered by "ok", "err <reason>" or
// "<key> <value>".
package serialhub

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/kiwibots/spikedrive/pkg/hub"
)

const (
	baudRate    = 115200
	readTimeout = 100 * time.Millisecond
	writeTries  = 3
)

type Serial struct {
	portName string

	mu   sync.Mutex
	port serial.Port
}

var _ hub.Interface = (*Serial)(nil)

// Open connects to the hub on the named serial device, e.g. /dev/ttyACM0.
func Open(portName string) (*Serial, error) {
	s := &Serial{portName: portName}
	if err := s.reopen(); err != nil {
		return nil, fmt.Errorf("open hub on %s: %w", portName, err)
	}
	// Flush anything the hub printed at boot.
	_, _ = s.command(context.Background(), "echo ping")
	return s, nil
}

func (s *Serial) reopen() error {
	if s.port != nil {
		_ = s.port.Close()
		s.port = nil
	}
	port, err := serial.Open(s.portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return err
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return err
	}
	s.port = port
	return nil
}

// command sends one command line and waits for its reply.  Writes are
// retried a bounded number of times, reopening the port between attempts;
// the hub is single-threaded so one in-flight command at a time.
func (s *Serial) command(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for tries := 0; tries < writeTries; tries++ {
		if s.port == nil {
			if err = s.reopen(); err != nil {
				fmt.Println("Failed to reopen hub port:", err)
				continue
			}
		}
		if _, err = s.port.Write([]byte(cmd + "\r\n")); err != nil {
			fmt.Println("Failed to write to hub:", err)
			_ = s.port.Close()
			s.port = nil
			continue
		}
		var reply string
		reply, err = s.readReply(ctx, cmd)
		if err != nil {
			return "", err
		}
		if tries > 0 {
			fmt.Println("Hub command succeeded after retries")
		}
		return reply, nil
	}
	return "", fmt.Errorf("hub command %q: %w", strings.Fields(cmd)[0], err)
}

// readReply reads lines until it sees a reply, skipping echoes and boot
// noise.  Long-running commands (degree-based moves) only reply when the
// move finishes, so this can legitimately block for seconds; ctx is checked
// on every read timeout.
func (s *Serial) readReply(ctx context.Context, cmd string) (string, error) {
	var line []byte
	buf := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			// Best effort: don't leave the motors running.
			_, _ = s.port.Write([]byte("stop\r\n"))
			return "", err
		}
		n, err := s.port.Read(buf)
		if err != nil {
			_ = s.port.Close()
			s.port = nil
			return "", fmt.Errorf("read from hub: %w", err)
		}
		for _, b := range buf[:n] {
			if b != '\n' {
				if b != '\r' {
					line = append(line, b)
				}
				continue
			}
			text := strings.TrimSpace(string(line))
			line = line[:0]
			if text == "" || text == cmd {
				continue
			}
			if reason, ok := strings.CutPrefix(text, "err "); ok {
				if reason == "unsupported" {
					return "", hub.ErrNotSupported
				}
				if reason == "no device" {
					return "", hub.ErrNoDevice
				}
				return "", fmt.Errorf("hub: %s", reason)
			}
			return text, nil
		}
	}
}

// ok runs a command whose only interesting outcome is success.
func (s *Serial) ok(ctx context.Context, format string, args ...any) error {
	reply, err := s.command(ctx, fmt.Sprintf(format, args...))
	if err != nil {
		return err
	}
	if reply != "ok" {
		return fmt.Errorf("unexpected hub reply %q", reply)
	}
	return nil
}

// value runs a query command and returns the value after the expected key.
func (s *Serial) value(ctx context.Context, cmd, key string) (float64, error) {
	reply, err := s.command(ctx, cmd)
	if err != nil {
		return 0, err
	}
	rest, ok := strings.CutPrefix(reply, key+" ")
	if !ok {
		return 0, fmt.Errorf("unexpected hub reply %q, want %q", reply, key)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s value %q: %w", key, rest, err)
	}
	return v, nil
}

func (s *Serial) PairMotors(left, right hub.Port) (hub.MotorPair, error) {
	if err := s.ok(context.Background(), "pair %s %s", left, right); err != nil {
		return nil, err
	}
	return &serialPair{s}, nil
}

func (s *Serial) Motor(port hub.Port) (hub.Motor, error) {
	if err := s.ok(context.Background(), "motor_check %s", port); err != nil {
		return nil, err
	}
	return &serialMotor{s: s, port: port}, nil
}

func (s *Serial) Yaw() (float64, error) {
	return s.value(context.Background(), "yaw", "yaw")
}

func (s *Serial) ResetYaw() error {
	return s.ok(context.Background(), "reset_yaw")
}

func (s *Serial) DistanceMM() (int, error) {
	v, err := s.value(context.Background(), "dist", "dist")
	return int(v), err
}

func (s *Serial) Beep(freqHz, durationMS int) {
	if err := s.ok(context.Background(), "beep %d %d", freqHz, durationMS); err != nil {
		fmt.Println("Failed to beep:", err)
	}
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	_, _ = s.port.Write([]byte("stop\r\n"))
	err := s.port.Close()
	s.port = nil
	return err
}

type serialPair struct {
	s *Serial
}

func (p *serialPair) RunForDegrees(ctx context.Context, degrees, speedPct int) error {
	return p.s.ok(ctx, "run_deg %d %d", degrees, speedPct)
}

func (p *serialPair) TankForDegrees(ctx context.Context, degrees, leftPct, rightPct int) error {
	return p.s.ok(ctx, "tank_deg %d %d %d", degrees, leftPct, rightPct)
}

func (p *serialPair) Tank(leftPct, rightPct int) error {
	return p.s.ok(context.Background(), "tank %d %d", leftPct, rightPct)
}

func (p *serialPair) Stop() error {
	return p.s.ok(context.Background(), "stop")
}

type serialMotor struct {
	s    *Serial
	port hub.Port
}

func (m *serialMotor) RunForDegrees(ctx context.Context, degrees, speedPct int) error {
	return m.s.ok(ctx, "motor_deg %s %d %d", m.port, degrees, speedPct)
}

func (m *serialMotor) Run(speedPct int) error {
	return m.s.ok(context.Background(), "motor_run %s %d", m.port, speedPct)
}

func (m *serialMotor) Stop() error {
	return m.s.ok(context.Background(), "motor_stop %s", m.port)
}
