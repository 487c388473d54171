package tunnel

import (
	"io"
	"sync"

	"golang.org/x/crypto/ssh"

	ncerr "gomosh/internal/errors"
	"gomosh/util"
)

// execChannel implements [ExecChannel] over an SSH session channel.
// Stdout and stderr are folded into one cumulative buffer because the
// helper prints its banner on either stream depending on version, and
// the scraper wants everything it has said so far.
type execChannel struct {
	sess   *ssh.Session
	logger *util.Logger

	mu      sync.Mutex
	buf     []byte
	err     error
	started bool
	closed  bool
}

func newExecChannel(sess *ssh.Session, logger *util.Logger) *execChannel {
	return &execChannel{sess: sess, logger: logger}
}

// Start launches command on the channel and begins capturing output.
func (c *execChannel) Start(command string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ncerr.ErrTransportClosed
	}
	if c.started {
		c.mu.Unlock()
		return ncerr.New("command already started")
	}
	c.started = true
	c.mu.Unlock()

	sink := &outputSink{ch: c}
	c.sess.Stdout = sink
	c.sess.Stderr = sink

	c.logger.Debug("exec: %s", command)
	if err := c.sess.Start(command); err != nil {
		return ncerr.New("starting remote command: " + err.Error())
	}

	// Watch for command completion in the background. Wait is the
	// only reader of the session's exit status.
	go func() {
		err := c.sess.Wait()
		c.mu.Lock()
		if err != nil {
			c.err = err
		} else {
			c.err = io.EOF // clean exit, output is complete
		}
		c.mu.Unlock()
		c.logger.Debug("exec: command finished: %v", err)
	}()

	return nil
}

// Output returns a copy of everything captured so far.
func (c *execChannel) Output() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.buf))
	copy(out, c.buf)
	return out
}

// Err reports how the command ended. nil means still running.
func (c *execChannel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close releases the channel. Safe to call more than once; a channel
// the remote already closed is not an error.
func (c *execChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if err := c.sess.Close(); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// outputSink appends writes to the channel's cumulative buffer. Both
// output streams share it, so writes are serialized by the mutex.
type outputSink struct {
	ch *execChannel
}

func (s *outputSink) Write(p []byte) (int, error) {
	s.ch.mu.Lock()
	s.ch.buf = append(s.ch.buf, p...)
	s.ch.mu.Unlock()
	return len(p), nil
}
