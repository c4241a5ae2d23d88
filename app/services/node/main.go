package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/yeetcoin/blockchain/app/services/node/handlers"
	"github.com/yeetcoin/blockchain/business/sys/metrics"
	"github.com/yeetcoin/blockchain/foundation/blockchain/database/storage"
	"github.com/yeetcoin/blockchain/foundation/blockchain/genesis"
	"github.com/yeetcoin/blockchain/foundation/blockchain/network"
	"github.com/yeetcoin/blockchain/foundation/blockchain/peer"
	"github.com/yeetcoin/blockchain/foundation/blockchain/state"
	"github.com/yeetcoin/blockchain/foundation/blockchain/wallet"
	"github.com/yeetcoin/blockchain/foundation/blockchain/worker"
	"github.com/yeetcoin/blockchain/foundation/events"
	"github.com/yeetcoin/blockchain/foundation/logger"
	"github.com/yeetcoin/blockchain/foundation/nameservice"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
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
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:60s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
		}
		Peer struct {
			Host      string        `conf:"default:0.0.0.0:9080"`
			Advertise string        `conf:"default:127.0.0.1:9080"`
			Timeout   time.Duration `conf:"default:30s"`
		}
		State struct {
			MinerName   string   `conf:"default:miner1"`
			DBPath      string   `conf:"default:zblock/blocks"`
			GenesisPath string   `conf:"default:zblock/genesis.json"`
			KnownPeers  []string `conf:"help:host:port of the peers known at startup"`
			Tracker     string   `conf:"help:host:port of the tracker"`
			Mine        bool     `conf:"default:false"`
			Strategy    string   `conf:"default:fifo"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "yeetcoin node",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The names come from the file names in the accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	for address, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "address", address)
	}

	// =========================================================================
	// Blockchain Support

	// The miner's key pair is credited with the rewards and fees and signs
	// the transactions sent through this node. A fresh one is generated on
	// the first start.
	path := filepath.Join(cfg.NameService.Folder, cfg.State.MinerName+".ecdsa")
	wal, generated, err := wallet.LoadOrGenerate(path)
	if err != nil {
		return fmt.Errorf("unable to load private key for node: %w", err)
	}
	log.Infow("startup", "status", "wallet loaded", "path", path, "generated", generated, "address", wal.Address())

	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	strg, err := storage.NewDisk(cfg.State.DBPath)
	if err != nil {
		return fmt.Errorf("unable to open storage: %w", err)
	}

	self, err := peer.Parse(cfg.Peer.Advertise)
	if err != nil {
		return fmt.Errorf("parsing advertise address: %w", err)
	}

	var tracker peer.Peer
	if cfg.State.Tracker != "" {
		if tracker, err = peer.Parse(cfg.State.Tracker); err != nil {
			return fmt.Errorf("parsing tracker address: %w", err)
		}
	}

	// A peer set is a collection of known nodes in the network so transactions
	// and blocks can be shared.
	peerSet := peer.NewPeerSet()
	for _, host := range cfg.State.KnownPeers {
		p, err := peer.Parse(host)
		if err != nil {
			return fmt.Errorf("parsing known peer: %w", err)
		}
		if !p.Match(self) {
			peerSet.Add(p)
		}
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		if strings.HasPrefix(s, "viewer: block:") {
			metrics.AddBlocks()
		}
		evts.Send(s)
	}

	// The state value represents the blockchain node and manages the blockchain
	// database and provides an API for application support.
	st, err := state.New(state.Config{
		MinerAddress:   wal.Address(),
		Self:           self,
		Tracker:        tracker,
		Genesis:        gen,
		Storage:        strg,
		KnownPeers:     peerSet,
		Client:         network.NewClient(cfg.Peer.Timeout, ev),
		SelectStrategy: cfg.State.Strategy,
		EvHandler:      ev,
	})
	if err != nil {
		return err
	}

	// Persist the chain and the key pair on the way out.
	defer func() {
		log.Infow("shutdown", "status", "saving chain and wallet")
		if err := st.Shutdown(); err != nil {
			log.Errorw("shutdown", "status", "saving chain", "ERROR", err)
		}
		if err := wal.Save(); err != nil {
			log.Errorw("shutdown", "status", "saving wallet", "ERROR", err)
		}
	}()

	// =========================================================================
	// Start Peer Service

	// Make a channel to listen for errors coming from the listeners. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 2)

	peerSrv := network.NewServer(network.NodeHandler(st), cfg.Peer.Timeout, ev)
	if err := peerSrv.Listen(cfg.Peer.Host); err != nil {
		return fmt.Errorf("peer listener: %w", err)
	}

	go func() {
		log.Infow("startup", "status", "peer router started", "host", peerSrv.Addr())
		serverErrors <- peerSrv.Serve()
	}()

	// The worker package implements the different workflows such as mining,
	// transaction peer sharing, and peer updates. The worker will register
	// itself with the state.
	worker.Run(st, ev)

	if cfg.State.Mine {
		st.StartMining()
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		NS:       ns,
		Wallet:   wal,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}

		log.Infow("shutdown", "status", "shutdown peer router started")
		if err := peerSrv.Shutdown(); err != nil {
			return fmt.Errorf("could not stop peer service gracefully: %w", err)
		}
	}

	return nil
}
