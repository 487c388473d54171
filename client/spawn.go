// Package client spawns the native mosh-client process under a PTY
// and supervises it for the rest of the session: exit watch, window
// resize, suspend/resume on host backgrounding, and termination.
package client

import (
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"gomosh/config"
	ncerr "gomosh/internal/errors"
	"gomosh/internal/metrics"
	"gomosh/util"
)

// Command describes one native client launch. Host must already be a
// literal IP: the native client cannot re-resolve once it is running.
type Command struct {
	Binary   string // client binary; empty means the shipped default
	Host     string // literal IP of the helper's UDP endpoint
	Port     string // UDP port from the credentials
	Key      string // MOSH_KEY; travels in the environment, never argv
	Terminfo string // terminfo database path
	Locale   string // LANG / LC_ALL; empty means the shipped default
	Term     string // TERM; empty means the shipped default

	// Initial PTY dimensions. Zero rows means "no size known yet";
	// the first resize after connect sets it.
	Rows, Cols        uint16
	WidthPx, HeightPx uint16
}

// Session is the handle to a running native client. It is a
// single-owner resource: acquired by [Spawn], released exactly once
// by Close or by the exit watch, whichever happens first.
type Session struct {
	logger  *util.Logger
	metrics *metrics.Collector

	cmd    *exec.Cmd
	master *os.File // PTY master, used for resize ioctls
	reader *os.File // dup'd master for reads
	writer *os.File // dup'd master for writes

	// pid is the owned process identifier; 0 is the unowned sentinel.
	// Every signal path loads it atomically and skips when 0, and the
	// swap to 0 elects exactly one releaser.
	pid       atomic.Int64
	connected atomic.Bool

	wait      func() error // blocks until the process exits
	closeOnce sync.Once
}

// Spawn forks the native client with the given credentials and wires
// a PTY to it. It must be invoked at most once per connection: it is
// the single crossing point from the reliable transport to the
// datagram protocol.
func Spawn(c Command, logger *util.Logger, collector *metrics.Collector) (*Session, error) {
	binary := c.Binary
	if binary == "" {
		binary = config.DefaultClientBinary
	}
	locale := c.Locale
	if locale == "" {
		locale = config.DefaultLocale
	}
	term := c.Term
	if term == "" {
		term = config.DefaultTerm
	}

	env := append(os.Environ(),
		"MOSH_KEY="+c.Key,
		"TERM="+term,
		"TERMINFO="+c.Terminfo,
		"LANG="+locale,
		"LC_ALL="+locale,
	)

	var size *pty.Winsize
	if c.Rows > 0 {
		size = &pty.Winsize{Rows: c.Rows, Cols: c.Cols, X: c.WidthPx, Y: c.HeightPx}
	}

	logger.Verbose("client: spawning %s %s %s", binary, c.Host, c.Port)
	sess, err := spawn([]string{binary, c.Host, c.Port}, env, size, logger, collector)
	if err != nil {
		return nil, err
	}
	collector.NativeSpawned()
	logger.Debug("client: native pid %d", sess.Pid())
	return sess, nil
}

// spawn is the fork/exec primitive underneath [Spawn]. Tests use it
// directly to supervise ordinary binaries.
func spawn(argv, env []string, size *pty.Winsize, logger *util.Logger, collector *metrics.Collector) (*Session, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = env

	// StartWithSize gives the child the PTY slave as its controlling
	// terminal (setsid + TIOCSCTTY) and closes the slave end in the
	// parent once the fork succeeded.
	var (
		master *os.File
		err    error
	)
	if size != nil {
		master, err = pty.StartWithSize(cmd, size)
	} else {
		master, err = pty.Start(cmd)
	}
	if err != nil {
		return nil, ncerr.New("spawning native client: " + err.Error())
	}

	// Dup the master into independent reader and writer handles so
	// teardown can close each on its own.
	rfd, err := unix.Dup(int(master.Fd()))
	if err != nil {
		master.Close()     //nolint:errcheck
		cmd.Process.Kill() //nolint:errcheck
		go cmd.Wait()      //nolint:errcheck // reap
		return nil, ncerr.New("dup pty master: " + err.Error())
	}
	wfd, err := unix.Dup(int(master.Fd()))
	if err != nil {
		unix.Close(rfd)    //nolint:errcheck
		master.Close()     //nolint:errcheck
		cmd.Process.Kill() //nolint:errcheck
		go cmd.Wait()      //nolint:errcheck
		return nil, ncerr.New("dup pty master: " + err.Error())
	}

	s := &Session{
		logger:  logger,
		metrics: collector,
		cmd:     cmd,
		master:  master,
		reader:  os.NewFile(uintptr(rfd), "pty-read"),
		writer:  os.NewFile(uintptr(wfd), "pty-write"),
		wait:    cmd.Wait,
	}
	s.pid.Store(int64(cmd.Process.Pid))
	s.connected.Store(true)
	return s, nil
}

// Pid returns the owned process id, or 0 when no process is owned.
func (s *Session) Pid() int {
	return int(s.pid.Load())
}

// Connected reports whether the native process is still believed to
// be running.
func (s *Session) Connected() bool {
	return s.connected.Load()
}

// Read reads output from the native client's PTY. It blocks; do not
// call it from a UI thread. A PTY master whose child has exited fails
// with EIO on Linux rather than EOF, so that case is normalized here.
func (s *Session) Read(p []byte) (int, error) {
	n, err := s.reader.Read(p)
	if n > 0 {
		s.metrics.BytesReceived(int64(n))
	}
	if err != nil && ncerr.Is(err, unix.EIO) {
		err = io.EOF
	}
	return n, err
}

// Write sends input to the native client's PTY.
func (s *Session) Write(p []byte) (int, error) {
	n, err := s.writer.Write(p)
	if n > 0 {
		s.metrics.BytesSent(int64(n))
	}
	return n, err
}

// closeStreams closes the reader, writer, and master independently,
// logging failures instead of propagating them, so one bad descriptor
// never leaks the others.
func (s *Session) closeStreams() {
	s.closeOnce.Do(func() {
		for _, f := range []*os.File{s.reader, s.writer, s.master} {
			if f == nil {
				continue
			}
			if err := f.Close(); err != nil {
				s.logger.Debug("client: closing %s: %v", f.Name(), err)
			}
		}
	})
}
