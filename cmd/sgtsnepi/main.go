package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sgtsnepi/internal/cli"
	sgerrors "github.com/matzehuels/sgtsnepi/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context) error {
	var verbose bool

	// The verbose flag is read in PersistentPreRunE, after flag parsing.
	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	// Apply the log level before command execution
	originalPreRun := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := cli.LogInfo
		if verbose {
			level = cli.LogDebug
		}
		c.SetLogLevel(level)

		if originalPreRun != nil {
			return originalPreRun(cmd, args)
		}
		return nil
	}

	return root.ExecuteContext(ctx)
}

// exitCode maps error codes to distinct exit statuses.
func exitCode(err error) int {
	switch sgerrors.GetCode(err) {
	case sgerrors.ErrCodeInvalidInput, sgerrors.ErrCodeInvalidFormat, sgerrors.ErrCodeFileNotFound, sgerrors.ErrCodeInvalidPath:
		return 2
	case sgerrors.ErrCodeConfiguration:
		return 3
	case sgerrors.ErrCodeNumericalInstability:
		return 4
	}
	return 1
}
