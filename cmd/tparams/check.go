package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/orizon-lang/tparams/internal/cli"
	"github.com/orizon-lang/tparams/internal/config"
	"github.com/orizon-lang/tparams/internal/diagnostic"
	"github.com/orizon-lang/tparams/internal/loader"
	"github.com/orizon-lang/tparams/internal/metrics"
	"github.com/orizon-lang/tparams/internal/symbols"
	"github.com/orizon-lang/tparams/internal/typechecker"
	"github.com/orizon-lang/tparams/internal/watch"
)

type checkOptions struct {
	configPath string
	workers    int
	watch      bool
	metrics    bool
	jsonOutput bool
	color      string
}

func newCheckCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check <graph.yaml>",
		Short: "Resolve every type parameter of a symbol graph and report problems",
		Example: "  tparams check graph.yaml\n" +
			"  tparams check graph.yaml --json\n" +
			"  tparams check graph.yaml --watch --config tparams.yaml",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), args[0], opts, stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "configuration file (YAML)")
	f.IntVar(&opts.workers, "workers", 0, "parallel resolution workers (overrides config)")
	f.BoolVar(&opts.watch, "watch", false, "re-check whenever the graph or config file changes")
	f.BoolVar(&opts.metrics, "metrics", false, "print resolver metrics after each check")
	f.BoolVar(&opts.jsonOutput, "json", false, "write results as JSON")
	f.StringVar(&opts.color, "color", "", "colour output: auto, always or never (overrides config)")
	return cmd
}

// checker holds what survives between runs in watch mode.
type checker struct {
	graphPath string
	opts      checkOptions
	cfg       config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	observer  symbols.Observer
	stdout    io.Writer
}

func runCheck(ctx context.Context, graphPath string, opts checkOptions, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.workers > 0 {
		cfg.Workers = opts.workers
	}
	if opts.color != "" {
		cfg.Color = opts.color
	}
	if opts.metrics {
		cfg.Metrics.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c := &checker{
		graphPath: graphPath,
		opts:      opts,
		cfg:       cfg,
		logger:    cli.NewLogger(stderr, cfg.SlogLevel()),
		stdout:    stdout,
	}
	if cfg.Metrics.Enabled {
		c.registry = prometheus.NewRegistry()
		c.observer = metrics.NewResolverMetrics(c.registry)
	}

	if !opts.watch {
		hasErrors, err := c.once(ctx)
		if err != nil {
			return err
		}
		if hasErrors {
			return exitError{code: cli.ExitDiagnostics}
		}
		return nil
	}
	return c.watch(ctx)
}

// once loads, checks and renders the graph. It reports whether any
// error diagnostics were produced.
func (c *checker) once(ctx context.Context) (bool, error) {
	start := time.Now()
	graph, err := loader.Load(c.graphPath, loader.Options{Observer: c.observer, Logger: c.logger})
	if err != nil {
		return false, err
	}

	engine := diagnostic.NewEngine(c.cfg.DiagnosticConfig())
	tc := typechecker.NewConstraintChecker(engine, typechecker.CheckerConfig{
		Workers: c.cfg.Workers,
		Logger:  c.logger,
	})
	summaries, err := tc.Check(ctx, graph.Params)
	if err != nil {
		return false, err
	}

	r := renderer{w: c.stdout, paint: cli.Painter{Enabled: !c.opts.jsonOutput && c.colorEnabled()}}
	if c.opts.jsonOutput {
		err = r.writeJSON(summaries, engine)
	} else {
		err = r.writeText(summaries, engine)
	}
	if err != nil {
		return false, err
	}
	if c.registry != nil && !c.opts.jsonOutput {
		fmt.Fprintln(c.stdout)
		if err := metrics.WriteSummary(c.stdout, c.registry); err != nil {
			return false, err
		}
	}

	c.logger.Info("check complete",
		slog.String("graph", c.graphPath),
		slog.Int("parameters", len(summaries)),
		slog.Int("diagnostics", engine.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return engine.HasErrors(), nil
}

func (c *checker) colorEnabled() bool {
	if f, ok := c.stdout.(*os.File); ok {
		return cli.UseColor(c.cfg.Color, f)
	}
	return cli.UseColor(c.cfg.Color, nil)
}

// watch re-runs the check on every change until interrupted. Graph
// errors are logged rather than fatal so an edit can fix them.
func (c *checker) watch(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := []string{c.graphPath}
	if c.opts.configPath != "" {
		paths = append(paths, c.opts.configPath)
	}
	w, err := watch.New(paths, watch.DefaultDebounce, c.logger)
	if err != nil {
		return err
	}
	defer w.Close()
	go w.Run(ctx)

	if c.registry != nil && c.cfg.Metrics.Addr != "" {
		srv, err := c.serveMetrics()
		if err != nil {
			return err
		}
		defer srv.Close()
	}

	c.recheck(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.Errors():
			c.logger.Warn("watch error", slog.Any("error", err))
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			c.logger.Info("change detected", slog.String("path", ev.Path))
			if ev.Path != "" && c.opts.configPath != "" && sameFile(ev.Path, c.opts.configPath) {
				c.reloadConfig()
			}
			c.recheck(ctx)
		}
	}
}

func (c *checker) recheck(ctx context.Context) {
	if _, err := c.once(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("check failed", slog.Any("error", err))
	}
}

func (c *checker) reloadConfig() {
	cfg, err := config.Load(c.opts.configPath)
	if err != nil {
		c.logger.Error("config reload failed, keeping previous configuration", slog.Any("error", err))
		return
	}
	if c.opts.workers > 0 {
		cfg.Workers = c.opts.workers
	}
	if c.opts.color != "" {
		cfg.Color = c.opts.color
	}
	cfg.Metrics = c.cfg.Metrics
	c.cfg = cfg
}

func (c *checker) serveMetrics() (*http.Server, error) {
	ln, err := net.Listen("tcp", c.cfg.Metrics.Addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server stopped", slog.Any("error", err))
		}
	}()
	c.logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))
	return srv, nil
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
