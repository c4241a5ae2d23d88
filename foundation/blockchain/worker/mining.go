package worker

import (
	"context"
	"errors"
	"time"

	"github.com/yeetcoin/blockchain/foundation/blockchain/state"
)

// StartMining spawns the mining loop. It reports false when the loop is
// already running or a shutdown has been signaled.
func (w *Worker) StartMining() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopMining != nil || w.isShutdown() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	w.stopMining = cancel
	w.miningDone = done

	go func() {
		defer close(done)
		w.miningLoop(ctx)
	}()

	w.evHandler("worker: StartMining: MINING: started")

	return true
}

// StopMining cancels the mining loop and waits for it to return. Any proof
// of work in progress is interrupted. It reports false when the loop was not
// running.
func (w *Worker) StopMining() bool {
	w.mu.Lock()
	cancel := w.stopMining
	done := w.miningDone
	w.stopMining = nil
	w.miningDone = nil
	w.mu.Unlock()

	if cancel == nil {
		return false
	}

	cancel()
	<-done

	w.evHandler("worker: StopMining: MINING: stopped")

	return true
}

// IsMining reports whether the mining loop is running.
func (w *Worker) IsMining() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.stopMining != nil
}

// =============================================================================

// miningLoop pulls the longest chain from the peers and mines once enough
// transactions are pending. It sleeps between checks until the context is
// cancelled.
func (w *Worker) miningLoop(ctx context.Context) {
	w.evHandler("worker: miningLoop: G started")
	defer w.evHandler("worker: miningLoop: G completed")

	for ctx.Err() == nil {
		if _, err := w.state.UpdateBlockchain(); err != nil {
			w.evHandler("worker: miningLoop: UpdateBlockchain: WARNING: %s", err)
		}

		if ctx.Err() != nil {
			return
		}

		if w.state.BlockReached() {
			w.runMiningOperation(ctx)
			continue
		}

		select {
		case <-time.After(w.idle):
		case <-ctx.Done():
		}
	}
}

// runMiningOperation takes the transactions from the pending pool and
// attempts to mine a new block.
func (w *Worker) runMiningOperation(ctx context.Context) {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	t := time.Now()
	block, err := w.state.Mine(ctx)
	duration := time.Since(t)

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	if err != nil {
		switch {
		case errors.Is(err, state.ErrNothingToMine):
			w.evHandler("worker: runMiningOperation: MINING: WARNING: no valid transactions to mine")
		case ctx.Err() != nil:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
		case errors.Is(err, state.ErrNotMined):
			w.evHandler("worker: runMiningOperation: MINING: not mined: %s", err)
		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
		}
		return
	}

	w.evHandler("worker: runMiningOperation: MINING: SOLVED: blk[%s]", block)
}
