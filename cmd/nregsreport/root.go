package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/nregsmp/nregsreport/internal/config"
	"github.com/nregsmp/nregsreport/internal/llm"
	"github.com/nregsmp/nregsreport/internal/model"
)

// Process exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
	exitConfig     = 3
)

// environment is what commands take from the process: the clock that
// decides which dates are in the future, and the environment variables.
type environment struct {
	clock  clockwork.Clock
	getenv func(string) string
}

func defaultEnvironment() environment {
	return environment{
		clock:  clockwork.NewRealClock(),
		getenv: os.Getenv,
	}
}

// NewRootCmd creates the root command for nregsreport.
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultEnvironment())
}

func newRootCmd(env environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nregsreport",
		Short: "Narrative NREGS performance reports for Madhya Pradesh districts",
		Long: `nregsreport generates a district performance report from the NREGS
Madhya Pradesh dashboard (dashboard.nregsmp.org).

For a report date and a district it fetches the state-wide and block-wise
statistics of eleven topics, asks a large language model to analyse each
topic and writes the result as a single Markdown, JSON or text file.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &model.ValidationError{Field: "flags", Value: "", Err: err}
	})

	cmd.AddCommand(newGenerateCmd(env))
	cmd.AddCommand(NewDistrictsCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return exitCode(err)
}

// exitCode maps an error to the process exit code:
// 2 for invalid input, 3 for configuration problems, 1 for anything else.
func exitCode(err error) int {
	var validationErr *model.ValidationError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &validationErr):
		return exitValidation
	case errors.Is(err, config.ErrConfig), errors.Is(err, llm.ErrMissingAPIKey):
		return exitConfig
	default:
		return exitFailure
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
