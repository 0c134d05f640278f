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

	"go.uber.org/zap"

	"github.com/jaminalder/codex-connect-four/internal/app"
	"github.com/jaminalder/codex-connect-four/internal/config"
	"github.com/jaminalder/codex-connect-four/internal/console"
	"github.com/jaminalder/codex-connect-four/internal/opponent"
	"github.com/jaminalder/codex-connect-four/internal/web"
)

var (
	configPath = flag.String("config", os.Getenv("CONNECT4_CONFIG"), "Path to a YAML config file")
	mode       = flag.String("mode", "", "Override the mode: console or web")
)

func main() {
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *mode != "" {
		cfg.Mode = *mode
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(2)
		}
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer log.Sync()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Mode {
	case config.ModeWeb:
		err = serveWeb(ctx, cfg, seed, log)
	default:
		err = playConsole(ctx, cfg, seed, log)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("exiting", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}

func playConsole(ctx context.Context, cfg *config.Config, seed int64, log *zap.Logger) error {
	var opp opponent.Picker
	if !cfg.HotSeat() {
		opp = opponent.NewRandom(seed)
	}
	c := console.NewClient(os.Stdin, os.Stdout, opp, log)

	computer, err := cfg.ComputerColour()
	if err != nil {
		return err
	}
	if computer != nil {
		_, err = c.Play(ctx, computer.Opponent())
	} else {
		_, err = c.Run(ctx)
	}
	return err
}

func serveWeb(ctx context.Context, cfg *config.Config, seed int64, log *zap.Logger) error {
	svc := app.NewService(
		app.WithLogger(log.Named("app")),
		app.WithOpponent(opponent.NewRandom(seed)),
	)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.NewServer(svc, web.WithLogger(log.Named("http")), web.WithHeartbeat(cfg.Heartbeat)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
