// Command jartrack manages an inventory of home-canned jars stored in a
// local SQLite database.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/vbonduro/jartrack/internal/domain"
)

const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode maps storage and transaction failures to exitSysError and
// everything else, including flag and validation errors, to exitUserError.
func exitCode(err error) int {
	if errors.Is(err, domain.ErrStorageUnavailable) || errors.Is(err, domain.ErrTransactionFailed) {
		return exitSysError
	}
	return exitUserError
}
