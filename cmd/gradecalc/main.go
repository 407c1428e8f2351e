// Package main provides the gradecalc CLI: the grade engine over local
// policy and grade files, without the HTTP server or a language model.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}

	rootCmd := &cobra.Command{
		Use:   "gradecalc",
		Short: "Weighted grade calculations from policy and grade files",
		Long: `gradecalc reads a grading policy and recorded grades from JSON or YAML
files and reports the current grade, what-if projections, the scores
needed for a target letter and best/worst/current-pace scenarios.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.policyPath, "policy", "", "Path to the grading policy (JSON or YAML, required)")
	flags.StringVar(&opts.gradesPath, "grades", "", "Path to the recorded grades (JSON or YAML)")
	flags.StringVar(&opts.outputFmt, "output", "text", "Output format: text or json")
	flags.BoolVar(&opts.verbose, "verbose", false, "Log engine activity to stderr")
	_ = rootCmd.MarkPersistentFlagRequired("policy")

	rootCmd.AddCommand(
		newCalculateCmd(opts),
		newWhatIfCmd(opts),
		newNeededCmd(opts),
		newScenariosCmd(opts),
	)

	return rootCmd
}
