package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/yeetcoin/blockchain/foundation/blockchain/network"
	"github.com/yeetcoin/blockchain/foundation/blockchain/tracker"
	"github.com/yeetcoin/blockchain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {
	log, err := logger.New("TRACKER")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Host    string        `conf:"default:0.0.0.0:9000"`
		Timeout time.Duration `conf:"default:5s"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "yeetcoin tracker",
		},
	}

	const prefix = "TRACKER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Start Tracker

	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...))
	}

	t := tracker.New(network.NewClient(cfg.Timeout, ev), ev)

	srv := network.NewServer(t.Handler(), cfg.Timeout, ev)
	if err := srv.Listen(cfg.Host); err != nil {
		return fmt.Errorf("tracker listener: %w", err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Infow("startup", "status", "tracker started", "host", srv.Addr())
		serverErrors <- srv.Serve()
	}()

	// =========================================================================
	// Shutdown

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig, "peers", len(t.Peers()))
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		if err := srv.Shutdown(); err != nil {
			return fmt.Errorf("could not stop tracker gracefully: %w", err)
		}
	}

	return nil
}
