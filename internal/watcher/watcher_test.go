package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcherCoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 100*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	// Give the watcher time to register before generating events.
	time.Sleep(150 * time.Millisecond)

	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "rec"+string(rune('a'+i))+".edf")
		if err := os.WriteFile(name, []byte("header"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-w.Triggers():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a scan trigger after the burst settled")
	}

	// The burst must have collapsed to a single pending trigger.
	select {
	case <-w.Triggers():
		t.Fatal("burst produced more than one trigger")
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 50*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(150 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hidden.edf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Triggers():
		t.Fatal("non-EDF changes must not trigger a scan")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherQuietPeriodPrecedesTrigger(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 200*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(150 * time.Millisecond)

	// Steady writes for longer than the debounce window; the window must
	// keep sliding, so no trigger fires while activity continues.
	stop := time.After(600 * time.Millisecond)
	i := 0
writing:
	for {
		select {
		case <-stop:
			break writing
		case <-w.Triggers():
			t.Fatal("trigger fired before the directory went quiet")
		default:
		}
		name := filepath.Join(dir, "busy"+string(rune('a'+i%20))+".edf")
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		i++
		time.Sleep(30 * time.Millisecond)
	}

	select {
	case <-w.Triggers():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a trigger once writes stopped")
	}
}

func TestWatcherDefaultDebounce(t *testing.T) {
	w := New(t.TempDir(), 0, testLogger())
	if w.debounce != 5*time.Second {
		t.Fatalf("debounce = %v, want 5s", w.debounce)
	}
}
