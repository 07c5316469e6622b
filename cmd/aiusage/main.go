package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yuxishi/aiusage/internal/cache"
	"github.com/yuxishi/aiusage/internal/config"
	"github.com/yuxishi/aiusage/internal/format"
	"github.com/yuxishi/aiusage/internal/handler"
	"github.com/yuxishi/aiusage/internal/logger"
	"github.com/yuxishi/aiusage/internal/metrics"
	"github.com/yuxishi/aiusage/internal/model"
	"github.com/yuxishi/aiusage/internal/poller"
	"github.com/yuxishi/aiusage/internal/provider"
	"github.com/yuxishi/aiusage/internal/store"
)

var version = "dev"

const usageText = `Usage: aiusage [command] [flags]

Commands:
  usage     fetch usage once and print it (default)
  serve     run the HTTP server with /metrics and the JSON API
  version   print the version

Flags:
`

var errAllFailed = errors.New("no provider returned usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "aiusage:", err)
		}
		stop()
		os.Exit(1)
	}
}

type options struct {
	configPath string
	format     string
	providers  string
	logLevel   string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := "usage"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "version":
		fmt.Fprintln(stdout, "aiusage", version)
		return nil
	case "usage", "serve":
	default:
		return fmt.Errorf("unknown command %q (want usage, serve or version)", cmd)
	}

	var opts options
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configPath, "config", config.DefaultPath(), "path to the YAML config file")
	fs.StringVar(&opts.format, "format", "", "output format: text, tsv, json or prometheus")
	fs.StringVar(&opts.providers, "provider", "", "comma-separated providers to query (default: all enabled)")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if err := logger.Configure(stderr, cfg.LogLevel); err != nil {
		return err
	}

	client := provider.NewClient(cfg.GetTimeout())
	providers, err := provider.FromConfig(cfg, client, splitList(opts.providers))
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		return errors.New("no providers enabled")
	}
	fetcher := provider.NewFetcher(providers, cfg.MaxConcurrency)

	if cmd == "serve" {
		return serve(ctx, cfg, fetcher)
	}

	outFormat := cfg.Format
	if opts.format != "" {
		outFormat = opts.format
	}
	f, err := format.ParseFormat(outFormat)
	if err != nil {
		return err
	}
	return printUsage(ctx, stdout, f, fetcher)
}

func printUsage(ctx context.Context, w io.Writer, f format.Format, fetcher *provider.Fetcher) error {
	results := fetcher.FetchAll(ctx)
	if err := format.Render(w, f, results, time.Now()); err != nil {
		return err
	}
	for _, r := range results {
		if r.OK() {
			return nil
		}
	}
	return errAllFailed
}

func serve(ctx context.Context, cfg *config.Config, fetcher *provider.Fetcher) error {
	gin.SetMode(gin.ReleaseMode)

	c := cache.New[model.Result](cfg.GetCacheTTL())
	defer c.Close()

	exporter := metrics.NewExporter()

	opts := poller.Options{
		Fetcher:   fetcher,
		Cache:     c,
		Exporter:  exporter,
		Interval:  cfg.GetPollInterval(),
		Retention: cfg.GetRetention(),
	}
	var history handler.HistoryStore
	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		opts.Store = st
		history = st
		logger.Info("snapshot history enabled", "path", st.Path())
	}

	p := poller.New(opts)
	// runs before the deferred st.Close so no poll outlives the store
	stopPoller := startBackground(ctx, p.Run)
	defer stopPoller()

	srv := &http.Server{
		Addr:              ":" + cfg.GetPort(),
		Handler:           handler.NewRouter(handler.New(p, exporter, history)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", "http://localhost:"+cfg.GetPort())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startBackground runs fn in a goroutine. The returned stop cancels fn's
// context and blocks until fn has returned; it may be called more than once.
func startBackground(ctx context.Context, fn func(context.Context)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
