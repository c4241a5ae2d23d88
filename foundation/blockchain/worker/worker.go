// Package worker implements mining, peer updates, and transaction sharing for
// the blockchain.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
	"github.com/yeetcoin/blockchain/foundation/blockchain/state"
)

// peerUpdateInterval represents the interval of finding new peer nodes
// and updating the blockchain with the longest chain.
const peerUpdateInterval = time.Minute

// miningIdleInterval represents the time the mining loop sleeps when there
// are not enough pending transactions to mine.
const miningIdleInterval = 2 * time.Second

// =============================================================================

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state     *state.State
	wg        sync.WaitGroup
	ticker    *time.Ticker
	shut      chan struct{}
	syncing   chan bool
	txSharing chan database.Tx
	evHandler state.EventHandler
	idle      time.Duration

	mu         sync.Mutex
	stopMining context.CancelFunc
	miningDone chan struct{}
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes. Mining is not started.
func Run(st *state.State, evHandler state.EventHandler) {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	w := Worker{
		state:     st,
		ticker:    time.NewTicker(peerUpdateInterval),
		shut:      make(chan struct{}),
		syncing:   make(chan bool, 1),
		txSharing: make(chan database.Tx, maxTxShareRequests),
		evHandler: evHandler,
		idle:      miningIdleInterval,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Update this node before starting any support G's.
	w.Sync()

	// Load the set of operations we need to run.
	operations := []func(){
		w.peerOperations,
		w.shareTxOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop ticker")
	w.ticker.Stop()

	w.evHandler("worker: shutdown: stop mining")
	w.StopMining()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalSync queues a sync with the peers. If a sync is already pending,
// just return since one will run.
func (w *Worker) SignalSync() {
	select {
	case w.syncing <- true:
		w.evHandler("worker: SignalSync: sync signaled")
	default:
	}
}

// SignalShareTx signals a share transaction operation. If
// maxTxShareRequests signals exist in the channel, we won't send these.
func (w *Worker) SignalShareTx(tx database.Tx) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: share Tx signaled")
	default:
		w.evHandler("worker: SignalShareTx: queue full, transactions won't be shared.")
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
