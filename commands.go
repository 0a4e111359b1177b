package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"qzxopt/internal/circuit"
	"qzxopt/internal/config"
	"qzxopt/internal/optimizer"
	"qzxopt/internal/zx"
)

// skipConfig marks commands that run without loading the config file.
const skipConfig = "skip-config"

// rootOptions holds global flags and what PersistentPreRunE builds from them.
type rootOptions struct {
	configPath string
	logLevel   string

	cfg config.Config
	log *zap.Logger
}

// newRootCommand creates the qzx command tree.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{log: zap.NewNop(), cfg: config.DefaultConfig()}

	cmd := &cobra.Command{
		Use:           "qzx",
		Short:         "Optimize quantum circuits with ZX-calculus rewriting",
		Long:          "qzx reads OpenQASM 2.0 circuits, simplifies them as ZX diagrams and extracts\nan equivalent circuit that is never more expensive than the input.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] != "" {
				return nil
			}
			return opts.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.log.Sync()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (defaults apply when empty)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level (debug|info|warn|error)")

	cmd.AddCommand(newOptimizeCommand(opts))
	cmd.AddCommand(newBatchCommand(opts))
	cmd.AddCommand(newViewCommand(opts))
	cmd.AddCommand(newRulesCommand(opts))
	cmd.AddCommand(newConfigCommand())

	return cmd
}

func (o *rootOptions) setup() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	log, err := newLogger(cfg.ZapLevel())
	if err != nil {
		return fmt.Errorf("failed to build the logger: %w", err)
	}
	o.cfg, o.log = cfg, log
	return nil
}

// newLogger builds a development logger for debug output and a production
// (JSON) logger otherwise. Both write to stderr.
func newLogger(level zapcore.Level) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// ──────────────────────────── optimize ────────────────────────────

func newOptimizeCommand(root *rootOptions) *cobra.Command {
	var (
		out    string
		verify bool
		stats  bool
	)
	cmd := &cobra.Command{
		Use:   "optimize [file.qasm|-]",
		Short: "Optimize one circuit",
		Long: `Optimize one OpenQASM 2.0 circuit and print the result.

The input is read from the file argument, or from stdin when it is "-" or
missing. Measurements, resets and other non-unitary operations stay where
they are; the gates between them are optimized.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			cfg := root.cfg
			if cmd.Flags().Changed("verify") {
				cfg.Pipeline.Verify = verify
			}
			return runOptimize(cmd, root.log, cfg, path, out, stats)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the optimized circuit here instead of stdout")
	cmd.Flags().BoolVar(&verify, "verify", false, "check every optimized segment against the simulator")
	cmd.Flags().BoolVar(&stats, "stats", false, "print a before/after summary to stderr")
	return cmd
}

func runOptimize(cmd *cobra.Command, log *zap.Logger, cfg config.Config, path, out string, stats bool) error {
	c, err := readCircuit(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}
	o, err := optimizer.New(optimizer.WithConfig(cfg), optimizer.WithLogger(log))
	if err != nil {
		return err
	}
	res, err := o.Optimize(cmd.Context(), c)
	if err != nil {
		return err
	}

	qasm := res.Circuit.ToQASM()
	if out == "" {
		if _, err := io.WriteString(cmd.OutOrStdout(), qasm); err != nil {
			return err
		}
	} else if err := os.WriteFile(out, []byte(qasm), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	if stats {
		fmt.Fprintln(cmd.ErrOrStderr(), statsReport(res, cfg))
	}
	return nil
}

// readCircuit parses the circuit at path, or from stdin for "" and "-".
func readCircuit(stdin io.Reader, path string) (*circuit.Circuit, error) {
	var (
		src []byte
		err error
	)
	name := path
	if path == "" || path == "-" {
		name = "stdin"
		src, err = io.ReadAll(stdin)
	} else {
		src, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	c, err := circuit.ParseQASM(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

// statsReport renders the diagnostics of one run as a small table.
func statsReport(res *optimizer.Result, cfg config.Config) string {
	d := res.Diagnostics
	itoa := strconv.Itoa

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("", "before", "after").
		Row("interior nodes", itoa(d.NodesBefore), itoa(d.NodesAfter)).
		Row("two-qubit gates", itoa(d.CostBefore.TwoQubit), itoa(d.CostAfter.TwoQubit)).
		Row("gates", itoa(d.CostBefore.Total), itoa(d.CostAfter.Total)).
		Row("depth", itoa(d.CostBefore.Depth), itoa(d.CostAfter.Depth))

	var sb strings.Builder
	status := acceptedStyle.Render("accepted")
	if !d.Accepted {
		status = rejectedStyle.Render("kept original: " + d.FallbackReason)
	}
	fmt.Fprintf(&sb, "run %s  %s  %s\n", d.RunID, status, d.Duration)
	sb.WriteString(t.String())

	order, _ := zx.ParseRuleOrder(cfg.Simplify.RuleOrder)
	applied := d.Applied()
	var parts []string
	for _, k := range order {
		parts = append(parts, fmt.Sprintf("%s=%d", k, applied[k]))
	}
	sb.WriteString("\nrules: " + strings.Join(parts, " "))
	for _, s := range d.Segments {
		if s.Fallback != "" {
			fmt.Fprintf(&sb, "\nsegment %d kept its gates: %s", s.Index, s.Fallback)
		}
	}
	return sb.String()
}

// ──────────────────────────── batch ────────────────────────────

func newBatchCommand(root *rootOptions) *cobra.Command {
	var (
		outDir      string
		metricsAddr string
		workers     int
	)
	cmd := &cobra.Command{
		Use:   "batch file.qasm...",
		Short: "Optimize many circuits in parallel",
		Long: `Optimize independent circuits in parallel and print one summary line per file.

With --out-dir every result is written as <name>.opt.qasm. With --metrics-addr
the Prometheus metrics are served on /metrics while the batch runs and until
the command is interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("workers") {
				workers = root.cfg.Pipeline.Workers
			}
			return runBatch(cmd, root, args, outDir, metricsAddr, workers)
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for optimized circuits")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel workers (default from config)")
	return cmd
}

func runBatch(cmd *cobra.Command, root *rootOptions, paths []string, outDir, metricsAddr string, workers int) error {
	ctx := cmd.Context()
	log := root.log

	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr, log)
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	o, err := optimizer.New(optimizer.WithConfig(root.cfg), optimizer.WithLogger(log))
	if err != nil {
		return err
	}

	errs := make([]error, len(paths))
	var (
		circuits []*circuit.Circuit
		index    []int
	)
	for i, p := range paths {
		c, err := readCircuit(cmd.InOrStdin(), p)
		if err != nil {
			errs[i] = err
			continue
		}
		circuits = append(circuits, c)
		index = append(index, i)
	}

	results := make([]*optimizer.Result, len(paths))
	for j, item := range o.Batch(ctx, circuits, workers) {
		results[index[j]], errs[index[j]] = item.Result, item.Err
	}

	failed := 0
	w := cmd.OutOrStdout()
	for i, p := range paths {
		if errs[i] == nil && outDir != "" {
			errs[i] = writeResult(outDir, p, results[i].Circuit)
		}
		if errs[i] != nil {
			failed++
			fmt.Fprintf(w, "%s\terror: %v\n", p, errs[i])
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", p, summaryLine(results[i].Diagnostics))
	}

	if metricsAddr != "" && ctx.Err() == nil {
		log.Info("batch finished, serving metrics until interrupted", zap.String("addr", metricsAddr))
		<-ctx.Done()
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d circuits failed", failed, len(paths))
	}
	return nil
}

func serveMetrics(addr string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}

func writeResult(dir, path string, c *circuit.Circuit) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".opt.qasm"
	return os.WriteFile(filepath.Join(dir, name), []byte(c.ToQASM()), 0o644)
}

// summaryLine is the one-line batch report for a circuit.
func summaryLine(d optimizer.Diagnostics) string {
	status := "accepted"
	if !d.Accepted {
		status = "kept (" + d.FallbackReason + ")"
	}
	return fmt.Sprintf("%s\t2q %d→%d\tgates %d→%d\tnodes %d→%d",
		status,
		d.CostBefore.TwoQubit, d.CostAfter.TwoQubit,
		d.CostBefore.Total, d.CostAfter.Total,
		d.NodesBefore, d.NodesAfter)
}

// ──────────────────────────── view ────────────────────────────

func newViewCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "view file.qasm",
		Short: "Compare a circuit with its optimized form in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := readCircuit(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			// log lines would tear the alternate screen
			m, err := newModel(args[0], c, root.cfg, zap.NewNop())
			if err != nil {
				return err
			}
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}
}

// ──────────────────────────── rules ────────────────────────────

func newRulesCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the rewrite rules and their configured priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := zx.ParseRuleOrder(root.cfg.Simplify.RuleOrder)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rulesTable(order))
			return nil
		},
	}
}

// rulesTable lists every rule family; rules missing from order are disabled.
func rulesTable(order []zx.RuleKind) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("priority", "rule", "description")
	for i, r := range menuRulesFor(order) {
		prio := "off"
		if r.enabled {
			prio = strconv.Itoa(i + 1)
		}
		t.Row(prio, r.kind.String(), r.kind.Description())
	}
	return t.String()
}

// ──────────────────────────── config ────────────────────────────

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:         "init [path]",
		Short:       "Write the default configuration (qzx.yaml)",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "qzx.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})
	return cmd
}
