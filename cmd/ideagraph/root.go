package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes (spec.md §6): 0 success, 1 unrecoverable config error, 2
// partial failure, 130 cancelled.
const (
	exitOK             = 0
	exitConfigError    = 1
	exitPartialFailure = 2
	exitCancelled      = 130
)

var rootCmd = &cobra.Command{
	Use:   "ideagraph",
	Short: "Drive the IdeaGraph core: poll sources, sync GitHub, run maintenance jobs",
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to .env.ideagraph (default: executable dir, then cwd)")
}

// Execute runs the root command and translates its outcome into one of the
// exit codes spec.md §6 fixes. Cobra's own usage/flag errors are reported
// as config errors; everything else comes back through exitError.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if asExitError(err, &ee) {
			if ee.message != "" {
				fmt.Fprintln(os.Stderr, ee.message)
			}
			os.Exit(ee.code)
		}
		os.Exit(exitConfigError)
	}
}

// exitError carries an explicit exit code through cobra's RunE return path.
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string { return e.message }

func asExitError(err error, target **exitError) bool {
	ee, ok := err.(*exitError)
	if ok {
		*target = ee
	}
	return ok
}

func configFilePath(cmd *cobra.Command) string {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	return path
}
