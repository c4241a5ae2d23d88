package state

import (
	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
	"github.com/yeetcoin/blockchain/foundation/blockchain/peer"
)

// UpdateBlockchain pulls the longest chain known by the peers. The chain
// replaces the local one when it is strictly longer and passes full
// validation. It reports whether the local chain was replaced.
func (s *State) UpdateBlockchain() (bool, error) {
	s.evHandler("state: UpdateBlockchain: started")
	defer s.evHandler("state: UpdateBlockchain: completed")

	blocks, from, err := s.client.GetLongestChain(s.KnownPeers(), s.db.ChainInfo())
	if err != nil {
		s.evHandler("state: UpdateBlockchain: GetLongestChain: ERROR: %s", err)
		return false, err
	}

	if blocks == nil {
		return false, nil
	}

	return s.ReplaceChain(blocks, from)
}

// ReplaceChain replaces the local chain with the specified one when it is
// strictly longer and passes full validation. Transactions of the discarded
// blocks that are still valid go back to the pending pool.
func (s *State) ReplaceChain(blocks []database.Block, from peer.Peer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	local := s.db.Blocks()
	if len(blocks) <= len(local) {
		s.evHandler("state: ReplaceChain: peer[%s]: chain not longer: local[%d] peer[%d]", from, len(local), len(blocks))
		return false, nil
	}

	ledger, err := database.ValidateChain(s.genesis, blocks, s.evHandler)
	if err != nil {
		s.evHandler("state: ReplaceChain: peer[%s]: chain rejected, keeping local chain: %s", from, err)
		return false, err
	}

	s.evHandler("state: ReplaceChain: peer[%s]: replacing chain: local[%d] peer[%d]", from, len(local), len(blocks))

	if err := s.db.Replace(blocks); err != nil {
		return false, err
	}

	// Find where the chains diverge and pool what only the local chain had.
	fork := 0
	for fork < len(local) && local[fork].Hash() == blocks[fork].Hash() {
		fork++
	}

	for _, block := range local[fork:] {
		for _, tx := range block.Transactions {
			if tx.IsCoinbase() {
				continue
			}

			if err := database.ValidateTx(tx, ledger); err != nil {
				s.evHandler("state: ReplaceChain: orphaned tx[%s] dropped: %s", tx, err)
				continue
			}

			s.db.AddTransaction(tx)
		}
	}

	s.evHandler(`viewer: chain: {"height":%d,"hash":%q}`, len(blocks), blocks[len(blocks)-1].Hash())

	return true, nil
}
