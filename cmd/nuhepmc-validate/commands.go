package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NuHepMC/ReferenceImplementation/pkg/config"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/reference"
	"github.com/NuHepMC/ReferenceImplementation/pkg/report"
	"github.com/NuHepMC/ReferenceImplementation/pkg/rules"
	"github.com/NuHepMC/ReferenceImplementation/pkg/validation"
	"github.com/NuHepMC/ReferenceImplementation/pkg/watch"
)

// exitError carries an exit code already explained by the printed report.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func exitWith(code int) error {
	if code == ExitOK {
		return nil
	}
	return &exitError{code: code}
}

// options are the flags shared by the commands.
type options struct {
	configPath string
	mode       string
	workers    int
	output     string
	reportFile string
	cache      bool
	progress   bool
	logLevel   string
	logFormat  string
}

// apply overrides the loaded configuration with the flags set on cmd.
func (o *options) apply(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		c.Validation.Mode = o.mode
	}
	if flags.Changed("workers") && cmd.Name() != "batch" {
		c.Validation.Workers = o.workers
	}
	if flags.Changed("output") {
		c.Output.Format = o.output
	}
	if flags.Changed("progress") {
		c.Output.Progress = o.progress
	}
	if flags.Changed("log-level") {
		c.Log.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		c.Log.Format = o.logFormat
	}
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root, _ := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return errorExitCode(err)
}

func newRootCmd(stdout, stderr io.Writer) (*cobra.Command, *app) {
	opts := &options{}
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "nuhepmc-validate <file>",
		Short: "Check a HepMC3 event file against the NuHepMC conventions",
		Long: `nuhepmc-validate reads a HepMC3 Asciiv3 event file (plain, .gz or .zst,
local or s3://bucket/key) and checks the run metadata and every event against
the NuHepMC requirements and the conventions the file declares.

Exit codes:
  0  conformant
  1  file cannot be opened or is not a HepMC3 file
  2  a requirement is violated
  3  a declared convention is violated
  4  the file cannot be read to the end
  5  usage or configuration error

Examples:
  nuhepmc-validate events.hepmc3
  nuhepmc-validate --mode collect-all --output json events.hepmc3.gz
  nuhepmc-validate --report-file report.xlsx s3://runs/neut/events.hepmc3`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			m := config.NewManager()
			if err := m.Load(opts.configPath); err != nil {
				return err
			}
			a.cfg = m.Get()
			opts.apply(cmd, a.cfg)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			a.cache = opts.cache
			a.log = newLogger(a.cfg, stderr)
			a.log.Debug("configuration loaded", zap.Strings("paths", m.GetPaths()))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), a, opts, args[0])
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (loaded after the standard locations)")
	pf.StringVar(&opts.mode, "mode", "fail-fast", "Validation mode (fail-fast, collect-all)")
	pf.StringVarP(&opts.output, "output", "o", "text", "Report format (text, json, yaml)")
	pf.StringVar(&opts.reportFile, "report-file", "", "Also write the report to a file (.xlsx, .parquet, .json, .yaml)")
	pf.BoolVar(&opts.cache, "cache", false, "Reuse a stored report when the file content is unchanged")
	pf.BoolVar(&opts.progress, "progress", false, "Show an event progress bar on stderr")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "console", "Log format (console, json)")
	root.Flags().IntVarP(&opts.workers, "workers", "w", 1, "Goroutines running per-event checks")

	root.AddCommand(
		newBatchCmd(a, opts),
		newWatchCmd(a, opts),
		newReferenceCmd(a),
		newRulesCmd(a),
		newVersionCmd(a),
	)
	return root, a
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func writeReports(a *app, opts *options, reports ...*report.Report) error {
	if err := report.RenderAll(a.stdout, reports, a.format, a.cfg.Output.Color); err != nil {
		return err
	}
	if opts.reportFile != "" {
		return report.ExportFile(opts.reportFile, reports...)
	}
	return nil
}

func runValidate(ctx context.Context, a *app, opts *options, location string) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	if err := a.prepare(ctx, false); err != nil {
		return err
	}
	defer a.close(ctx)

	if a.cfg.Output.Progress {
		attachProgress(a.hooks, a.stderr, location)
	}
	r, err := a.validate(ctx, location)
	if err != nil {
		return err
	}
	if err := writeReports(a, opts, r); err != nil {
		return err
	}
	return exitWith(reportExitCode(r))
}

func newBatchCmd(a *app, opts *options) *cobra.Command {
	var (
		files    int
		failFast bool
	)
	cmd := &cobra.Command{
		Use:   "batch <pattern>...",
		Short: "Validate many files",
		Long: `Validate every file matching the patterns. Patterns support ** to match
any number of directories.

Examples:
  nuhepmc-validate batch 'runs/**/*.hepmc3.gz'
  nuhepmc-validate batch --workers 8 --report-file summary.xlsx 'runs/*/*.hepmc3'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), a, opts, args, files, failFast)
		},
	}
	cmd.Flags().IntVarP(&files, "workers", "w", 4, "Number of files validated in parallel")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop at the first file that is not conformant")
	return cmd
}

// expand resolves glob patterns to a sorted list of files. A pattern with
// no match is kept when it names an existing file or an s3:// object.
func expand(log *zap.Logger, patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, lferrors.InvalidConfig("pattern", pattern, err.Error())
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil || isObject(pattern) {
				matches = []string{pattern}
			} else {
				log.Warn("no files match pattern", zap.String("pattern", pattern))
			}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func isObject(location string) bool {
	return len(location) > 5 && location[:5] == "s3://"
}

var errStopBatch = errors.New("batch stopped")

func runBatch(ctx context.Context, a *app, opts *options, patterns []string, workers int, failFast bool) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	files, err := expand(a.log, patterns)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return lferrors.New(lferrors.CodeOpenFailed, "no input files found")
	}
	if err := a.prepare(ctx, false); err != nil {
		return err
	}
	defer a.close(ctx)

	start := time.Now()
	reports := make([]*report.Report, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, f := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			reports[i], errs[i] = a.validate(gctx, f)
			if failFast && (errs[i] != nil || !reports[i].OK()) {
				return errStopBatch
			}
			return nil
		})
	}
	_ = g.Wait()

	var (
		done  []*report.Report
		code  = ExitOK
		count = map[report.Outcome]int{}
	)
	for i, r := range reports {
		var c int
		switch {
		case errs[i] != nil:
			fmt.Fprintf(a.stderr, "Error: %s: %v\n", files[i], errs[i])
			c = errorExitCode(errs[i])
		case r == nil:
			continue
		case failFast && ctx.Err() == nil && r.ErrorCode == string(lferrors.CodeContextCanceled):
			// stopped after another file failed
			continue
		default:
			done = append(done, r)
			count[r.Outcome]++
			c = reportExitCode(r)
		}
		if code == ExitOK {
			code = c
		}
	}

	if err := writeReports(a, opts, done...); err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "\n%d of %d files validated in %s: %d conformant, %d non-conformant, %d unreadable\n",
		len(done), len(files), time.Since(start).Round(time.Millisecond),
		count[report.OutcomeConformant], count[report.OutcomeNonConformant], count[report.OutcomeUnreadable])
	return exitWith(code)
}

func newWatchCmd(a *app, opts *options) *cobra.Command {
	var (
		interval    time.Duration
		poll        time.Duration
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Validate a file again whenever it changes",
		Long: `Validate a local file, then validate it again every time it is written.
Useful while a generator is producing the file.

Examples:
  nuhepmc-validate watch events.hepmc3
  nuhepmc-validate watch --interval 2s --metrics-addr :9090 events.hepmc3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("metrics-addr") {
				a.cfg.Metrics.Addr = metricsAddr
			}
			return runWatch(cmd.Context(), a, opts, args[0], interval, poll)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "Debounce interval for change detection")
	cmd.Flags().DurationVar(&poll, "poll", 0, "Also poll the file at this interval (0 disables)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func runWatch(ctx context.Context, a *app, opts *options, path string, interval, poll time.Duration) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	if err := a.prepare(ctx, a.cfg.Metrics.Addr != ""); err != nil {
		return err
	}
	defer a.close(ctx)

	w, err := watch.New(path, watch.Options{Debounce: interval, Interval: poll, Logger: a.log})
	if err != nil {
		return lferrors.OpenFailed(path, err)
	}

	if a.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.WithoutCancel(ctx))
		a.log.Info("serving metrics", zap.String("addr", a.cfg.Metrics.Addr))
	}

	fmt.Fprintf(a.stderr, "Watching %s (Ctrl+C to stop)\n", w.Path())
	err = w.Run(ctx, func(ctx context.Context, p string) {
		r, err := a.validate(ctx, p)
		if err != nil {
			a.log.Error("validation failed", zap.Error(err))
			return
		}
		if err := writeReports(a, opts, r); err != nil {
			a.log.Error("cannot write report", zap.Error(err))
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newReferenceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reference <out>",
		Short: "Write the reference NuHepMC example file",
		Long: `Write a small event file that follows every convention the validator
checks. A .gz suffix compresses the output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := reference.WriteFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.stderr, "Wrote %s (%d events)\n", args[0], len(reference.ProcessIDs))
			return nil
		},
	}
}

func newRulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the rules the validator knows",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RULE\tCATEGORY\tLEVEL\tCHECKED\tTITLE")
			for _, r := range rules.Catalog() {
				checked := "yes"
				if !r.Checked {
					checked = "no"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.ID.Category(), r.ID.Level(), checked, r.Title)
			}
			return tw.Flush()
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(a.stdout, "nuhepmc-validate %s (%s)\n", version, commit)
			fmt.Fprintf(a.stdout, "NuHepMC conventions %s\n", validation.Supported)
		},
	}
}
