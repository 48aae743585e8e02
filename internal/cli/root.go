// Package cli implements the gamx command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/gamx/internal/domain/scoring"
	"github.com/okian/gamx/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	tablesDir  string
	upperBound int
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "gamx",
		Short: "Score weightlifting totals with the GAMX model",
		Long: "gamx scores competition totals against body-mass (and age) fitted distributions, " +
			"solves for the total needed to beat a score and load-tests a standings server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithLevel(g.logLevel))
		},
	}
	cmd.PersistentFlags().StringVar(&g.tablesDir, "tables-dir", "", "Load parameter tables from this directory instead of the bundled ones")
	cmd.PersistentFlags().IntVar(&g.upperBound, "upper-bound", scoring.DefaultTargetUpperBound, "Largest total the target solver tries")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newScoreCmd(g))
	cmd.AddCommand(newTargetCmd(g))
	cmd.AddCommand(newParamsCmd(g))
	cmd.AddCommand(newSimulateCmd(g))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// Execute runs the command line until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// engine builds a scoring engine from the global flags.
func (g *globalFlags) engine() (*scoring.Engine, error) {
	opts := []scoring.Option{scoring.WithTargetUpperBound(g.upperBound)}
	if g.tablesDir != "" {
		tables, err := scoring.LoadTables(os.DirFS(g.tablesDir))
		if err != nil {
			return nil, fmt.Errorf("loading tables from %s: %w", g.tablesDir, err)
		}
		opts = append(opts, scoring.WithTables(tables))
	}
	return scoring.NewEngine(opts...)
}
