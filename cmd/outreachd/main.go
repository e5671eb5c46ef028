// Command outreachd runs the outreach engine HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/creatorops/outreach/config"
	"github.com/creatorops/outreach/core"
	"github.com/creatorops/outreach/generator"
	genanthropic "github.com/creatorops/outreach/generator/anthropic"
	genopenai "github.com/creatorops/outreach/generator/openai"
	"github.com/creatorops/outreach/ledger"
	"github.com/creatorops/outreach/logging"
	"github.com/creatorops/outreach/manager"
	"github.com/creatorops/outreach/scraper"
	"github.com/creatorops/outreach/server"
	"github.com/creatorops/outreach/session"
	"github.com/creatorops/outreach/uploads"
	"github.com/creatorops/outreach/workflow"
)

var (
	flagAddr       string
	flagConfig     string
	flagRedis      string
	flagBridgeURL  string
	flagSessionTTL time.Duration
	flagLogLevel   string
	flagLogFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "outreachd",
	Short: "Session-scoped workflow engine for Instagram outreach",
	Long: `outreachd runs the outreach engine: interrupt-driven workflows for
collaboration search, profile scraping, personalized messaging and caption
analysis, exposed over the dashboard HTTP API.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":8000", "listen address")
	serveCmd.Flags().StringVar(&flagConfig, "config", "config.yaml", "path to the configuration file")
	serveCmd.Flags().StringVar(&flagRedis, "redis", "", "redis address for session persistence (empty = in-memory)")
	serveCmd.Flags().StringVar(&flagBridgeURL, "bridge-url", "http://127.0.0.1:8090", "browser-automation bridge base URL")
	serveCmd.Flags().DurationVar(&flagSessionTTL, "session-ttl", time.Hour, "session inactivity expiry")
	serveCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&flagLogFormat, "log-format", "json", "log format (json, text)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := logging.NewSlogLogger(parseLevel(flagLogLevel), flagLogFormat, false)

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	store := newSessionStore(logger)

	bridge := scraper.NewClient(func(o *scraper.Options) {
		o.BaseURL = flagBridgeURL
	})

	deps := workflow.Deps{
		Config:    cfg,
		Generator: newGenerator(logger),
		Scraper:   bridge,
		Sender:    scraper.NewSender(bridge),
		Ledger:    ledger.NewInMemoryLedger(),
		Uploads:   uploads.NewInMemoryStore(),
	}
	executor := workflow.New(deps, func(o *workflow.Options) {
		o.Logger = logger.WithComponent("workflow")
	})

	mgr := manager.New(store, executor, func(o *manager.Options) {
		o.Logger = logger.WithComponent("manager")
	})

	srv := server.New(mgr, deps.Uploads, cfg,
		func(o *server.Options) {
			o.Logger = logger.WithComponent("server")
			o.Workflows = executor.Kinds()
		},
	)

	httpSrv := &http.Server{
		Addr:              flagAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", flagAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// newSessionStore picks Redis persistence when --redis is set, in-memory
// otherwise.
func newSessionStore(logger logging.Logger) core.SessionStore {
	if flagRedis == "" {
		return session.NewInMemoryStore(func(o *session.InMemoryOptions) {
			o.MaxIdle = flagSessionTTL
		})
	}
	client := redis.NewClient(&redis.Options{Addr: flagRedis})
	logger.Info("using redis session store", "addr", flagRedis)
	return session.NewRedisStore(client, func(o *session.RedisOptions) {
		o.TTL = flagSessionTTL
	})
}

// newGenerator prefers Anthropic, then OpenAI, then the offline template
// generator, keyed off the standard environment variables.
func newGenerator(logger logging.Logger) core.Generator {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		logger.Info("using anthropic generator")
		return genanthropic.NewGenerator(func(o *genanthropic.Options) {
			o.APIKey = key
		})
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		logger.Info("using openai generator")
		return genopenai.NewGenerator()
	}
	logger.Warn("no model API key configured, using template generator")
	return generator.NewTemplateGenerator()
}

func parseLevel(s string) logging.LogLevel {
	switch s {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
