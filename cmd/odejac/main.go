package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/san-kum/odejac/internal/config"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	verbose bool
	logger  = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Problem overrides
	preset   string
	dtype    string
	mode     string
	evalTime float64

	// Solver overrides
	integrator string
	dt         float64
	duration   float64
	adaptive   bool

	// Output
	jsonOut   string
	csvOut    string
	saveRun   bool
	plotWidth int
	tolerance float64
)

// main registers the odejac commands and runs the root command, exiting
// with status 1 when it fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "odejac",
		Short:         "jacobian utilities for ODE solvers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".odejac", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	jacobianCmd := &cobra.Command{
		Use:   "jacobian [problem.yaml]",
		Short: "evaluate the jacobian and vec · J",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runJacobian,
	}
	addProblemFlags(jacobianCmd)
	jacobianCmd.Flags().StringVar(&jsonOut, "json", "", "write report as JSON")
	jacobianCmd.Flags().StringVar(&csvOut, "csv", "", "write jacobian as CSV")
	jacobianCmd.Flags().BoolVar(&saveRun, "save", false, "save report to the data directory")

	solveCmd := &cobra.Command{
		Use:   "solve [problem.yaml]",
		Short: "integrate the problem and plot the trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSolve,
	}
	addProblemFlags(solveCmd)
	solveCmd.Flags().StringVar(&integrator, "integrator", "", "integrator (euler, rk4, backward_euler)")
	solveCmd.Flags().Float64Var(&dt, "dt", 0, "timestep")
	solveCmd.Flags().Float64Var(&duration, "duration", 0, "duration")
	solveCmd.Flags().BoolVar(&adaptive, "adaptive", false, "adaptive stepping")
	solveCmd.Flags().StringVar(&jsonOut, "json", "", "write report as JSON")
	solveCmd.Flags().BoolVar(&saveRun, "save", false, "save report to the data directory")
	solveCmd.Flags().IntVar(&plotWidth, "width", 60, "plot width")

	checkCmd := &cobra.Command{
		Use:   "check [problem.yaml]",
		Short: "compare jacobians from every source",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCheck,
	}
	addProblemFlags(checkCmd)
	checkCmd.Flags().Float64Var(&tolerance, "tol", 1e-6, "maximum allowed difference")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved reports",
		Args:  cobra.NoArgs,
		RunE:  listReports,
	}

	rootCmd.AddCommand(jacobianCmd, solveCmd, checkCmd, presetsCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func addProblemFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "use preset problem")
	cmd.Flags().StringVar(&dtype, "dtype", "", "jacobian precision (float32, float64)")
	cmd.Flags().StringVar(&mode, "mode", "", "jacobian source (autodiff, dense, nested)")
	cmd.Flags().Float64Var(&evalTime, "time", 0, "evaluation time")
}
