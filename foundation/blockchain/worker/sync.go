package worker

// Sync updates the peer list, the pending pool and the chain.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	// Announce this node and learn about new peers.
	w.state.NetRequestPeers()

	// Pull the transactions pending on the peers.
	w.state.NetRequestPeerPool()

	// If a peer has a longer valid chain, adopt it.
	replaced, err := w.state.UpdateBlockchain()
	if err != nil {
		w.evHandler("worker: sync: UpdateBlockchain: ERROR: %s", err)
		return
	}

	if replaced {
		w.evHandler("worker: sync: chain replaced: height[%d]", w.state.ChainInfo().Height)
	}
}
