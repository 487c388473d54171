// Package install stages the terminfo database the native client
// depends on and lets any number of goroutines wait for it to become
// ready. It is the Go rendition of a one-time asset installer: an
// observable lifecycle (created, initializing, ready) with a single
// broadcast on completion, injected into the session instead of
// reached through a global.
package install

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"gomosh/config"
	"gomosh/util"
)

// State is the service lifecycle position.
type State int32

const (
	StateCreated State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Service stages a terminfo tree in the background. Waiters block on
// a channel that is closed exactly once when staging finishes; late
// waiters return immediately.
type Service struct {
	src    string // optional source tree to copy; empty means detect
	dst    string // destination when copying
	logger *util.Logger

	state atomic.Int32
	done  chan struct{}

	mu   sync.Mutex
	path string
}

// NewService creates a service that will stage src into dst when src
// is non-empty, and otherwise detect an existing system terminfo
// database. Nothing happens until [Service.Start].
func NewService(src, dst string, logger *util.Logger) *Service {
	if dst == "" {
		dst = config.DefaultTerminfoTempPath
	}
	return &Service{
		src:    src,
		dst:    dst,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start kicks the background staging exactly once. Further calls are
// no-ops.
func (s *Service) Start() {
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateInitializing)) {
		return
	}
	go s.run()
}

func (s *Service) run() {
	path := s.stage()

	s.mu.Lock()
	s.path = path
	s.mu.Unlock()

	s.state.Store(int32(StateReady))
	close(s.done) // broadcast: releases every waiter, past and future
	s.logger.Debug("install: terminfo ready at %s", path)
}

// stage produces the terminfo path. Copy failures and missing system
// databases degrade instead of failing: the native client falls back
// to built-in terminal behavior when the path turns out unusable.
func (s *Service) stage() string {
	if s.src != "" {
		if err := copyTree(s.src, s.dst); err != nil {
			s.logger.Warn("install: staging %s: %v", s.src, err)
		} else {
			return s.dst
		}
	}
	if dir := Detect(); dir != "" {
		return dir
	}
	return config.DefaultTerminfoTempPath
}

// Wait blocks until the service is ready. A positive timeout bounds
// the wait; zero or negative waits indefinitely. Returns readiness.
func (s *Service) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		<-s.done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return true
	case <-timer.C:
		return false
	}
}

// Path returns the staged or detected terminfo directory. Valid once
// the service is ready; empty before that.
func (s *Service) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Detect returns the first existing terminfo database, honoring
// $TERMINFO before the well-known system locations, or "" when none
// exists.
func Detect() string {
	candidates := make([]string, 0, len(config.DefaultTerminfoDirs)+1)
	if env := os.Getenv("TERMINFO"); env != "" {
		candidates = append(candidates, env)
	}
	candidates = append(candidates, config.DefaultTerminfoDirs...)

	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return ""
}

// copyTree mirrors the directory tree at src into dst, preserving
// relative layout. Regular files and directories only; terminfo
// databases contain nothing else.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck
		return err
	}
	return out.Close()
}
