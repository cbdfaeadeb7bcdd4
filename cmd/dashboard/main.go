// Command dashboard is the operator console for evacuation plans: an
// interactive terminal UI plus scriptable subcommands.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit status.
// Failures already reported by the controller's notifier are not printed again.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	a := newApp(in, out, errOut)
	root := a.rootCmd()
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		if !a.reported {
			fmt.Fprintln(a.errOut, "Error:", err)
		}
		return 1
	}
	return 0
}
