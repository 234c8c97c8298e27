package monitoring

import (
	"strings"
	"sync"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("test message")
	if !called {
		t.Error("custom logger was not called")
	}

	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("no-op logger should not have triggered callback")
	}
}

func TestComponent(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	logf := Component("fit")

	// Installed after the component logger was built.
	var rec Recorder
	SetLogger(rec.Logf)
	logf("voxel %d done", 3)

	lines := rec.Lines()
	if len(lines) != 1 || lines[0] != "[fit] voxel 3 done" {
		t.Errorf("lines = %q", lines)
	}
}

func TestTimed(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var rec Recorder
	SetLogger(rec.Logf)
	done := Component("store").Timed("insert")
	done()

	lines := rec.Lines()
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "[store] insert took ") {
		t.Errorf("lines = %q", lines)
	}
}

func TestRecorderConcurrent(t *testing.T) {
	var rec Recorder
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec.Logf("line %d", i)
		}(i)
	}
	wg.Wait()
	if got := len(rec.Lines()); got != 20 {
		t.Errorf("recorded %d lines, want 20", got)
	}
}
