// Package metrics provides lightweight, lock-free counters for
// tracking runtime statistics of a gomosh session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one session bootstrap and the
// native session that follows it.
// A nil Collector is safe to use — all methods become no-ops.
type Collector struct {
	helperLaunches atomic.Int64
	pollTicks      atomic.Int64
	spawns         atomic.Int64
	signalsSent    atomic.Int64
	bytesIn        atomic.Int64
	bytesOut       atomic.Int64
	setupFailures  atomic.Int64
	errorsTotal    atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	connectedAt  time.Time
	lastError    time.Time
	lastErrorMsg string
	disconnect   string // "", "graceful", "ungraceful"
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Bootstrap metrics ────────────────────────────────────────────────

// HelperLaunched records one remote helper invocation.
func (c *Collector) HelperLaunched() {
	if c == nil {
		return
	}
	c.helperLaunches.Add(1)
}

// PollTick records one scan of the helper output buffer.
func (c *Collector) PollTick() {
	if c == nil {
		return
	}
	c.pollTicks.Add(1)
}

// PollTicks returns the number of scans performed.
func (c *Collector) PollTicks() int64 {
	if c == nil {
		return 0
	}
	return c.pollTicks.Load()
}

// SetupFailed records a failed connection attempt.
func (c *Collector) SetupFailed() {
	if c == nil {
		return
	}
	c.setupFailures.Add(1)
}

// ── Native session metrics ───────────────────────────────────────────

// NativeSpawned records a native client launch and the moment the
// session went live.
func (c *Collector) NativeSpawned() {
	if c == nil {
		return
	}
	c.spawns.Add(1)
	c.mu.Lock()
	c.connectedAt = time.Now()
	c.mu.Unlock()
}

// SignalSent records one signal delivered to the native process
// (stop, continue, or terminate).
func (c *Collector) SignalSent() {
	if c == nil {
		return
	}
	c.signalsSent.Add(1)
}

// SignalsSent returns the number of signals delivered.
func (c *Collector) SignalsSent() int64 {
	if c == nil {
		return 0
	}
	return c.signalsSent.Load()
}

// Disconnected records how the session ended. The first call wins.
func (c *Collector) Disconnected(graceful bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.disconnect == "" {
		if graceful {
			c.disconnect = "graceful"
		} else {
			c.disconnect = "ungraceful"
		}
	}
	c.mu.Unlock()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the native stream.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the native stream.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	HelperLaunches   int64  `json:"helper_launches"`
	PollTicks        int64  `json:"poll_ticks"`
	NativeSpawns     int64  `json:"native_spawns"`
	SignalsSent      int64  `json:"signals_sent"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	SetupFailures    int64  `json:"setup_failures"`
	ErrorsTotal      int64  `json:"errors_total"`
	ConnectedAt      string `json:"connected_at,omitempty"`
	Disconnect       string `json:"disconnect,omitempty"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:         time.Since(c.startTime).Truncate(time.Second).String(),
		HelperLaunches: c.helperLaunches.Load(),
		PollTicks:      c.pollTicks.Load(),
		NativeSpawns:   c.spawns.Load(),
		SignalsSent:    c.signalsSent.Load(),
		BytesIn:        c.bytesIn.Load(),
		BytesOut:       c.bytesOut.Load(),
		SetupFailures:  c.setupFailures.Load(),
		ErrorsTotal:    c.errorsTotal.Load(),
		Disconnect:     c.disconnect,
	}
	if !c.connectedAt.IsZero() {
		s.ConnectedAt = c.connectedAt.Format(time.RFC3339)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
