package state

import (
	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
	"github.com/yeetcoin/blockchain/foundation/blockchain/network"
	"github.com/yeetcoin/blockchain/foundation/blockchain/peer"
)

// NetSendBlockToPeers takes the new mined block and sends it to all known
// peers. Peers that can't be reached are skipped.
func (s *State) NetSendBlockToPeers(block database.Block) {
	s.evHandler("state: NetSendBlockToPeers: started")
	defer s.evHandler("state: NetSendBlockToPeers: completed")

	msg, err := network.NewMessage(network.TypeNewBlock, block)
	if err != nil {
		s.evHandler("state: NetSendBlockToPeers: ERROR: %s", err)
		return
	}

	for _, resp := range s.client.Broadcast(s.KnownPeers(), msg) {
		if resp.Err != nil {
			s.evHandler("state: NetSendBlockToPeers: peer[%s]: WARNING: %s", resp.Peer, resp.Err)
			continue
		}
		s.evHandler("state: NetSendBlockToPeers: sent to peer[%s]", resp.Peer)
	}
}

// NetSendTxToPeers shares a new transaction with the known peers.
func (s *State) NetSendTxToPeers(tx database.Tx) {
	s.evHandler("state: NetSendTxToPeers: started")
	defer s.evHandler("state: NetSendTxToPeers: completed")

	msg, err := network.NewMessage(network.TypeNewTransaction, tx)
	if err != nil {
		s.evHandler("state: NetSendTxToPeers: ERROR: %s", err)
		return
	}

	for _, resp := range s.client.Broadcast(s.KnownPeers(), msg) {
		if resp.Err != nil {
			s.evHandler("state: NetSendTxToPeers: peer[%s]: WARNING: %s", resp.Peer, resp.Err)
		}
	}
}

// NetRequestPeers announces this node to the tracker and to the known peers
// and merges the peers they know about.
func (s *State) NetRequestPeers() {
	s.evHandler("state: NetRequestPeers: started")
	defer s.evHandler("state: NetRequestPeers: completed")

	if s.tracker != (peer.Peer{}) {
		s.netRequestPeers(s.tracker)
	}

	for _, pr := range s.KnownPeers() {
		s.netRequestPeers(pr)
	}
}

// netRequestPeers exchanges peer lists with a single node.
func (s *State) netRequestPeers(pr peer.Peer) {
	req := network.PeersRequest{
		Self:  s.self,
		Known: s.KnownPeers(),
	}

	peers, err := s.client.GetPeers(pr, req)
	if err != nil {
		s.evHandler("state: NetRequestPeers: peer[%s]: ERROR: %s", pr, err)
		return
	}

	if added := s.knownPeers.Merge(peers, s.self); added > 0 {
		s.evHandler("state: NetRequestPeers: peer[%s]: added peers[%d]", pr, added)
	}
}

// NetRequestPeerPool asks the known peers for the transactions in their
// pending pool and keeps the valid ones.
func (s *State) NetRequestPeerPool() {
	s.evHandler("state: NetRequestPeerPool: started")
	defer s.evHandler("state: NetRequestPeerPool: completed")

	for _, pr := range s.KnownPeers() {
		txs, err := s.client.GetTransactions(pr)
		if err != nil {
			s.evHandler("state: NetRequestPeerPool: peer[%s]: ERROR: %s", pr, err)
			continue
		}

		var added int
		for _, tx := range txs {
			if err := s.UpsertNodeTransaction(tx); err == nil {
				added++
			}
		}

		s.evHandler("state: NetRequestPeerPool: peer[%s]: received[%d]: added[%d]", pr, len(txs), added)
	}
}

// MergePeers answers a peer exchange. The caller receives the peers known
// before the exchange, without itself, then the caller and its peers are
// added to the known peers.
func (s *State) MergePeers(caller peer.Peer, known []peer.Peer) []peer.Peer {
	peers := s.knownPeers.Copy(caller)

	if caller.Host != "" && caller.Port > 0 {
		known = append(known, caller)
	}

	if added := s.knownPeers.Merge(known, s.self); added > 0 {
		s.evHandler("state: MergePeers: peer[%s]: added peers[%d]", caller, added)
	}

	return peers
}
