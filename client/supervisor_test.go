package client

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gomosh/internal/metrics"
	"gomosh/util"
)

func testLogger() *util.Logger { return util.NewLogger(0) }

// spawnTest launches an ordinary binary under the session PTY using
// the same fork/exec path as the real client.
func spawnTest(t *testing.T, argv ...string) *Session {
	t.Helper()
	s, err := spawn(argv, os.Environ(), nil, testLogger(), metrics.New())
	if err != nil {
		t.Fatalf("spawn %v: %v", argv, err)
	}
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSpawn_MissingBinary(t *testing.T) {
	_, err := Spawn(Command{
		Binary: "/nonexistent/mosh-client-for-test",
		Host:   "127.0.0.1",
		Port:   "60001",
		Key:    "k3y",
	}, testLogger(), metrics.New())
	if err == nil {
		t.Fatal("expected spawn failure for a missing binary")
	}
}

func TestSpawn_HandleState(t *testing.T) {
	s := spawnTest(t, "sleep", "30")

	if s.Pid() == 0 {
		t.Error("owned session must have a non-zero pid")
	}
	if !s.Connected() {
		t.Error("fresh session must report connected")
	}
}

func TestWatchExit_DetectsExit(t *testing.T) {
	s := spawnTest(t, "sh", "-c", "exit 0")

	exited := make(chan struct{})
	s.WatchExit(func() { close(exited) })

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("exit watch never fired")
	}
	if s.Connected() {
		t.Error("connected flag still set after exit")
	}
	if s.Pid() != 0 {
		t.Error("pid not cleared to the unowned sentinel")
	}
}

func TestWatchExit_SkippedAfterClose(t *testing.T) {
	s := spawnTest(t, "sleep", "30")

	var exits atomic.Int32
	done := make(chan struct{})
	s.WatchExit(func() {
		exits.Add(1)
		close(done)
	})

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The SIGTERM from Close ends the process; the watcher must see
	// that the session was closed by request and stay quiet.
	select {
	case <-done:
		t.Fatal("exit callback fired for an explicitly closed session")
	case <-time.After(500 * time.Millisecond):
	}
	if got := exits.Load(); got != 0 {
		t.Errorf("exit callbacks = %d, want 0", got)
	}
}

func TestClose_AfterExit_SendsNoSignal(t *testing.T) {
	// Once the watcher has reaped the child its pid is up for reuse;
	// ownership must already be cleared so a later Close has nothing
	// to signal.
	s := spawnTest(t, "sh", "-c", "exit 0")

	exited := make(chan struct{})
	s.WatchExit(func() { close(exited) })

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("exit watch never fired")
	}
	if s.Pid() != 0 {
		t.Fatal("pid still owned after the exit watch fired")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := s.metrics.SignalsSent(); got != 0 {
		t.Errorf("signals sent = %d, want 0 for a reaped child", got)
	}
}

func TestClose_Idempotent(t *testing.T) {
	s := spawnTest(t, "sleep", "30")

	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if s.Pid() != 0 {
		t.Error("pid not cleared")
	}
	if s.Connected() {
		t.Error("still connected after Close")
	}
}

func TestCloseExitRace_SingleRelease(t *testing.T) {
	// A fast-exiting child races an immediate Close. Whatever the
	// interleaving, the exit callback fires at most once and the
	// handle ends released.
	for i := 0; i < 20; i++ {
		s := spawnTest(t, "sh", "-c", "exit 0")

		var exits atomic.Int32
		s.WatchExit(func() { exits.Add(1) })
		s.Close() //nolint:errcheck

		waitFor(t, 2*time.Second, func() bool { return s.Pid() == 0 },
			"pid never cleared")
		if got := exits.Load(); got > 1 {
			t.Fatalf("iteration %d: exit callback fired %d times", i, got)
		}
	}
}

func TestReadWrite_Echo(t *testing.T) {
	// cat under a PTY echoes its input back (line discipline echo
	// plus cat itself), so a write must produce readable output.
	s := spawnTest(t, "cat")

	if _, err := s.Write([]byte("hello\r")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, 256)
	var got strings.Builder
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && !strings.Contains(got.String(), "hello") {
		n, err := s.Read(buf)
		if n > 0 {
			got.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	if !strings.Contains(got.String(), "hello") {
		t.Errorf("echo not observed, read %q", got.String())
	}
}

func TestResize_NoProcess(t *testing.T) {
	s := &Session{logger: testLogger(), metrics: metrics.New()}
	if err := s.Resize(24, 80, 0, 0); err != nil {
		t.Fatalf("resize without a process must be a no-op, got %v", err)
	}
}

func TestResize_Owned(t *testing.T) {
	s := spawnTest(t, "sleep", "30")
	if err := s.Resize(50, 132, 1320, 1000); err != nil {
		t.Fatalf("Resize: %v", err)
	}
}

func TestSuspendResume_NoProcess(t *testing.T) {
	s := &Session{logger: testLogger(), metrics: metrics.New()}
	if err := s.Suspend(); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if err := s.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got := s.metrics.SignalsSent(); got != 0 {
		t.Errorf("signals sent = %d, want 0", got)
	}
}

func TestSuspendResume_Cycle(t *testing.T) {
	s := spawnTest(t, "sleep", "30")
	pid := s.Pid()

	if err := s.Suspend(); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return procState(pid) == "T" },
		"process never stopped after SIGSTOP")

	if err := s.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return procState(pid) != "T" },
		"process still stopped after SIGCONT")

	if got := s.metrics.SignalsSent(); got != 2 {
		t.Errorf("signals sent = %d, want 2", got)
	}
}

// procState returns the single-letter process state from
// /proc/<pid>/stat ("T" while stopped), or "" when unreadable.
func procState(pid int) string {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return ""
	}
	// comm may contain spaces; the state letter follows the closing
	// parenthesis.
	i := strings.LastIndexByte(string(data), ')')
	fields := strings.Fields(string(data[i+1:]))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
