// Command rql formats, checks and compiles resource queries.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/nlstn/go-rql/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
