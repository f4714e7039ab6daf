package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crystal-mush/tickmud/pkg/config"
	"github.com/crystal-mush/tickmud/pkg/logx"
	"github.com/crystal-mush/tickmud/pkg/server"
	"github.com/crystal-mush/tickmud/pkg/sessionlog"
	"github.com/crystal-mush/tickmud/pkg/textfile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// envDefault returns the environment variable value if set, otherwise the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tickmud: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	confFile := flag.String("conf", envDefault("MUD_CONF", ""), "Path to YAML config file, created with defaults if missing (env: MUD_CONF)")
	host := flag.String("host", "", "Interface to listen on, overrides config")
	port := flag.Int("port", 0, "TCP port to listen on, overrides config")
	tick := flag.Duration("tick", 0, "Tick interval, overrides config")
	metricsAddr := flag.String("metrics", "", "Address for the Prometheus /metrics endpoint, overrides config")
	sessionDB := flag.String("sessiondb", "", "Path to bbolt session journal, overrides config")
	greeting := flag.String("greeting", "", "Path to greeting file shown instead of the name prompt, overrides config")
	logLevel := flag.String("loglevel", "", "Log level (trace, debug, info, warn, error), overrides config")
	flag.Parse()

	bootLog := logx.New(envDefault("MUD_LOG_LEVEL", "info"))
	cfg, err := config.Load(bootLog, *confFile)
	if err != nil {
		return err
	}

	// Command-line flags override config file values
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *tick != 0 {
		cfg.TickInterval = *tick
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *sessionDB != "" {
		cfg.SessionDB = *sessionDB
	}
	if *greeting != "" {
		cfg.GreetingFile = *greeting
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logx.New(cfg.LogLevel).With().Str("mud", cfg.MudName).Logger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := server.NewMetrics(reg)

	srv, err := server.Listen(server.Config{
		Addr:          cfg.ListenAddr(),
		ProbeInterval: cfg.ProbeInterval,
		ReadChunk:     cfg.ReadChunk,
		NamePrompt:    cfg.NamePrompt,
	}, server.WithLogger(logger), server.WithMetrics(metrics))
	if err != nil {
		return err
	}
	logger.Info().Str("addr", srv.ListenAddr().String()).Dur("tick", cfg.TickInterval).Msg("listening")

	if cfg.MetricsAddr != "" {
		stopMetrics := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer stopMetrics()
	}

	var journal *sessionlog.Journal
	if cfg.SessionDB != "" {
		journal, err = sessionlog.Open(cfg.SessionDB)
		if err != nil {
			srv.Shutdown()
			return err
		}
		defer journal.Close()
		logger.Info().Str("path", cfg.SessionDB).Int("boot", journal.Boots()).Str("boot_id", journal.Boot().String()).Msg("session journal opened")
	}

	var watcher *textfile.Watcher
	if cfg.GreetingFile != "" {
		if text, err := textfile.Load(cfg.GreetingFile); err != nil {
			logger.Warn().Err(err).Msg("greeting not loaded, using name prompt")
		} else {
			srv.SetNamePrompt(text)
		}
		watcher, err = textfile.Watch(cfg.GreetingFile, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("greeting will not be reloaded")
		} else {
			defer watcher.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g := newGame(srv, journal, logger)
	loop(ctx, srv, g, watcher, cfg.TickInterval)

	g.shutdown()
	if err := srv.Shutdown(); err != nil {
		logger.Warn().Err(err).Msg("shutdown incomplete")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// loop ticks the server until ctx is cancelled. A tick always runs to
// completion before the context is checked again.
func loop(ctx context.Context, srv *server.Server, g *game, watcher *textfile.Watcher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if watcher != nil {
			if text, ok := watcher.Latest(); ok {
				srv.SetNamePrompt(text)
			}
		}
		srv.Tick()
		g.step()
	}
}

// serveMetrics runs the /metrics endpoint in the background and returns a
// function that stops it.
func serveMetrics(addr string, reg *prometheus.Registry, logger zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", server.Handler(reg))
	hs := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", addr).Msg("metrics listening")
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hs.Shutdown(ctx)
	}
}
