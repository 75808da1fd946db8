package plot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kiwibots/spikedrive/pkg/sequence"
)

func TestRenderWritesPNG(t *testing.T) {
	trace := []sequence.Pose{
		{XMM: 0, YMM: 0},
		{XMM: 150, YMM: 0},
		{XMM: 150, YMM: -150},
		{XMM: 0, YMM: -150},
		{XMM: 0, YMM: 0},
	}
	path := filepath.Join(t.TempDir(), "trace.png")
	if err := Render(trace, path); err != nil {
		t.Fatalf("Render: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("output PNG is empty")
	}
}

func TestRenderDegenerateTraces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.png")
	if err := Render(nil, path); err == nil {
		t.Fatalf("empty trace accepted")
	}
	if err := Render([]sequence.Pose{{}}, path); err == nil {
		t.Fatalf("single-pose trace accepted")
	}

	// A trace with no spatial extent must still render without dividing
	// by zero.
	same := []sequence.Pose{{XMM: 10, YMM: 10}, {XMM: 10, YMM: 10}}
	if err := Render(same, path); err != nil {
		t.Fatalf("zero-extent trace: %v", err)
	}
}
