package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/grade-predictor-api/internal/dto"
	"github.com/noah-isme/grade-predictor-api/internal/grading"
	"github.com/noah-isme/grade-predictor-api/internal/service"
)

type rootOpts struct {
	policyPath string
	gradesPath string
	outputFmt  string
	verbose    bool
}

func (o *rootOpts) gradeService(stderr io.Writer) service.GradeService {
	logger := zerolog.Nop()
	if o.verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).With().Timestamp().Logger()
	}
	engine := grading.NewEngine(grading.DefaultConfig())
	return service.NewGradeService(engine, validator.New(validator.WithRequiredStructEnabled()), logger)
}

func (o *rootOpts) checkOutput() error {
	switch o.outputFmt {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("unknown output format %q: use text or json", o.outputFmt)
	}
}

func newCalculateCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "calculate",
		Short: "Current grade with best, worst and current-pace scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.checkOutput(); err != nil {
				return err
			}
			req, err := opts.calculateRequest()
			if err != nil {
				return err
			}
			result, err := opts.gradeService(cmd.ErrOrStderr()).Calculate(commandContext(cmd), req)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.outputFmt, result, func(w io.Writer) {
				writeOverall(w, result.OverallResult)
				writeScenarios(w, result.Scenarios)
				writeWarnings(w, result.Warnings)
			})
		},
	}
}

func newWhatIfCmd(opts *rootOpts) *cobra.Command {
	var hypotheticalPath string

	cmd := &cobra.Command{
		Use:   "what-if",
		Short: "Projected grade with hypothetical scores applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.checkOutput(); err != nil {
				return err
			}
			req, err := opts.calculateRequest()
			if err != nil {
				return err
			}
			hypothetical, err := loadHypothetical(hypotheticalPath)
			if err != nil {
				return err
			}
			result, err := opts.gradeService(cmd.ErrOrStderr()).WhatIf(commandContext(cmd), dto.WhatIfRequest{
				CalculateRequest:   req,
				HypotheticalScores: hypothetical,
			})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.outputFmt, result, func(w io.Writer) {
				writeOverall(w, result.OverallResult)
				writeWarnings(w, result.Warnings)
			})
		},
	}

	cmd.Flags().StringVar(&hypotheticalPath, "hypothetical", "", "Path to hypothetical scores keyed by assignment name (required)")
	_ = cmd.MarkFlagRequired("hypothetical")

	return cmd
}

func newNeededCmd(opts *rootOpts) *cobra.Command {
	var (
		target        string
		remainingPath string
	)

	cmd := &cobra.Command{
		Use:   "needed",
		Short: "Average needed on remaining work to reach a target letter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.checkOutput(); err != nil {
				return err
			}
			req, err := opts.calculateRequest()
			if err != nil {
				return err
			}
			remaining, err := loadRemaining(remainingPath)
			if err != nil {
				return err
			}
			result, err := opts.gradeService(cmd.ErrOrStderr()).NeededScores(commandContext(cmd), dto.NeededScoresRequest{
				CalculateRequest:     req,
				TargetGrade:          target,
				RemainingAssignments: remaining,
			})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.outputFmt, result, func(w io.Writer) {
				writeNeeded(w, result.NeededScoresResult)
				writeWarnings(w, result.Warnings)
			})
		},
	}

	cmd.Flags().StringVar(&target, "target", "A", "Target letter grade")
	cmd.Flags().StringVar(&remainingPath, "remaining", "", "Path to remaining assignments (default: derived from item counts)")

	return cmd
}

func newScenariosCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "Best, worst and current-pace projections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.checkOutput(); err != nil {
				return err
			}
			req, err := opts.calculateRequest()
			if err != nil {
				return err
			}
			result, err := opts.gradeService(cmd.ErrOrStderr()).Scenarios(commandContext(cmd), req)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.outputFmt, result, func(w io.Writer) {
				writeScenarios(w, result.ScenariosResult)
				writeWarnings(w, result.Warnings)
			})
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

