package core

import (
	"context"
	"fmt"
	"io"
	"os"

	"gomosh/config"
)

// BookmarkMode renders the target as a mosh:// bookmark URI and
// exits. No connection is made.
type BookmarkMode struct {
	Spec string // raw [user@]host[:port] input

	// Out defaults to os.Stdout when nil. Override in tests.
	Out io.Writer
}

func (m *BookmarkMode) out() io.Writer {
	if m.Out != nil {
		return m.Out
	}
	return os.Stdout
}

// Run prints the bookmark URI for the configured target.
func (m *BookmarkMode) Run(ctx context.Context) error {
	uri, err := config.CreateBookmark(m.Spec)
	if err != nil {
		return fmt.Errorf("bookmark: %w", err)
	}
	_, err = fmt.Fprintln(m.out(), uri)
	return err
}
