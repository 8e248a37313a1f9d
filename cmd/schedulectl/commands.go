package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fastygo/scheduler/api/transport"
	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/internal/scheduler"
	"github.com/fastygo/scheduler/pkg/logger"
)

type globalOptions struct {
	file     string
	logLevel string
	stdin    io.Reader
}

func newRootCmd(version string, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{stdin: stdin}

	cmd := &cobra.Command{
		Use:           "schedulectl",
		Short:         "Offline therapist assignment over snapshot files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.file, "file", "f", "", "snapshot file in YAML or JSON, - for stdin")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	_ = cmd.MarkPersistentFlagRequired("file")

	cmd.AddCommand(newSolveCmd(opts))
	cmd.AddCommand(newConflictsCmd(opts))

	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.Version = version
	return cmd
}

func newSolveCmd(opts *globalOptions) *cobra.Command {
	var (
		mode           string
		workers        int
		failInfeasible bool
	)
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Assign therapists to the sessions of a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(logger.Config{Level: opts.logLevel, Encoding: "console", Output: "stderr"})
			if err != nil {
				return err
			}
			defer log.Sync()

			req, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("mode") {
				req.Mode = mode
			}
			tasks, resources, m, err := req.Tasks()
			if err != nil {
				return err
			}

			solver := scheduler.New(scheduler.WithWorkers(workers), scheduler.WithLogger(log))
			result, err := solver.Solve(cmd.Context(), tasks, resources, m)
			if err != nil {
				return err
			}
			log.Info("solved", zap.Int("sessions", len(tasks)), zap.Bool("feasible", result.Feasible()))

			if err := writeJSON(cmd.OutOrStdout(), transport.NewSolveResponse(result, nil)); err != nil {
				return err
			}
			if failInfeasible && !result.Feasible() {
				return fmt.Errorf("%w: %d session(s) unplaced", errInfeasible, len(result.Infeasible.Unplaced))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "strict_all", "strict_all or best_effort, overrides the file")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "dates solved concurrently")
	cmd.Flags().BoolVar(&failInfeasible, "fail-infeasible", false, "exit with status 2 when some session stays unplaced")
	return cmd
}

func newConflictsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List pairs of sessions that overlap on the same date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.load()
			if err != nil {
				return err
			}
			tasks, _, _, err := req.Tasks()
			if err != nil {
				return err
			}
			set, err := scheduler.BuildConflicts(tasks)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				Count     int              `json:"count"`
				Conflicts []scheduler.Pair `json:"conflicts"`
			}{Count: set.Len(), Conflicts: set.Pairs()})
		},
	}
}

func (o *globalOptions) load() (transport.SolveRequest, error) {
	var req transport.SolveRequest

	var (
		raw []byte
		err error
	)
	if o.file == "-" {
		raw, err = io.ReadAll(o.stdin)
	} else {
		raw, err = os.ReadFile(o.file)
	}
	if err != nil {
		return req, err
	}
	if err := yaml.Unmarshal(raw, &req); err != nil {
		return req, domain.WrapError(domain.ErrCodeInvalid, "invalid snapshot file", err)
	}
	return req, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
