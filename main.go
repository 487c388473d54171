// gomosh - a roaming-tolerant remote shell: SSH bootstrap, UDP session.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gomosh/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "gomosh: %v\n", err)
		os.Exit(1)
	}
}
