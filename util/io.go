package util

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
)

// RelayStreams shuttles bytes between a duplex stream (an SSH channel,
// a PTY master, a socket) and a separate reader/writer pair (typically
// stdin/stdout) until one side ends or the context is cancelled.
// Buffers come from BufPool.
func RelayStreams(ctx context.Context, stream io.ReadWriter, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	// stream → out
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := GetBuf()
		_, err := io.CopyBuffer(out, stream, *buf)
		PutBuf(buf)
		errCh <- err
		cancel()
	}()

	// in → stream
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := GetBuf()
		_, err := io.CopyBuffer(stream, in, *buf)
		PutBuf(buf)
		// Half-close the write side where the stream supports it so
		// the far end sees EOF, but keep the read side open to drain
		// whatever it is still sending (the other goroutine does that).
		if cw, ok := stream.(closeWriter); ok {
			cw.CloseWrite() //nolint:errcheck
		}
		errCh <- err
		// Only cancel on real errors; a normal EOF from the local
		// reader must NOT tear down the stream before the far end
		// finishes sending.
		if err != nil {
			cancel()
		}
	}()

	<-ctx.Done()
	if c, ok := stream.(io.Closer); ok {
		c.Close() // unblock any pending reads/writes
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil && !isHarmless(err) {
			return err
		}
	}
	return nil
}

// closeWriter is the half-close surface shared by TCP connections and
// SSH channels.
type closeWriter interface {
	CloseWrite() error
}

// isHarmless returns true for errors that are expected during shutdown.
func isHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
		return true
	}
	// Reading a PTY master after the child hung up fails with EIO
	// rather than EOF on Linux.
	if errors.Is(err, syscall.EIO) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
