// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"sync"

	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
	"github.com/yeetcoin/blockchain/foundation/blockchain/genesis"
	"github.com/yeetcoin/blockchain/foundation/blockchain/network"
	"github.com/yeetcoin/blockchain/foundation/blockchain/peer"
	"github.com/yeetcoin/blockchain/foundation/blockchain/selector"
	"github.com/yeetcoin/blockchain/foundation/blockchain/signature"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, peer updates, and transaction sharing.
type Worker interface {
	Shutdown()
	Sync()
	SignalSync()
	SignalShareTx(tx database.Tx)
	StartMining() bool
	StopMining() bool
	IsMining() bool
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	MinerAddress   string
	Self           peer.Peer
	Tracker        peer.Peer
	Genesis        genesis.Genesis
	Storage        database.Storage
	KnownPeers     *peer.PeerSet
	Client         *network.Client
	SelectStrategy string
	EvHandler      EventHandler
}

// State manages the blockchain database.
type State struct {
	mu sync.Mutex

	minerAddress string
	self         peer.Peer
	tracker      peer.Peer
	evHandler    EventHandler

	knownPeers *peer.PeerSet
	client     *network.Client
	genesis    genesis.Genesis
	selector   selector.Func
	db         *database.Database

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if !signature.IsAddress(cfg.MinerAddress) {
		return nil, errors.New("miner address is not a valid public key")
	}

	if cfg.Storage == nil {
		return nil, errors.New("storage is required")
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	// Select the strategy used to order the pending pool into a block.
	selectFn, err := selector.Retrieve(cfg.SelectStrategy)
	if err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		client = network.NewClient(network.DefaultTimeout, ev)
	}

	// Load the chain held by the storage, generating the genesis block for
	// an empty storage.
	db, err := database.New(cfg.Genesis, cfg.Storage, ev)
	if err != nil {
		return nil, err
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		minerAddress: cfg.MinerAddress,
		self:         cfg.Self,
		tracker:      cfg.Tracker,
		evHandler:    ev,

		knownPeers: knownPeers,
		client:     client,
		genesis:    cfg.Genesis,
		selector:   selectFn,
		db:         db,
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down and persists the chain.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure the storage is properly closed.
	defer func() {
		s.db.Close()
	}()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return s.db.Save()
}

// =============================================================================

// StartMining starts the mining loop. It reports false when the loop is
// already running or no worker is registered.
func (s *State) StartMining() bool {
	if s.Worker == nil {
		return false
	}
	return s.Worker.StartMining()
}

// StopMining stops the mining loop and waits for it to return. It reports
// false when the loop was not running.
func (s *State) StopMining() bool {
	if s.Worker == nil {
		return false
	}
	return s.Worker.StopMining()
}

// IsMining reports whether the mining loop is running.
func (s *State) IsMining() bool {
	if s.Worker == nil {
		return false
	}
	return s.Worker.IsMining()
}
