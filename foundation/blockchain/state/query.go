package state

import (
	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
	"github.com/yeetcoin/blockchain/foundation/blockchain/genesis"
	"github.com/yeetcoin/blockchain/foundation/blockchain/peer"
)

// Genesis returns the network parameters of the chain.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// MinerAddress returns the account receiving the rewards of this node.
func (s *State) MinerAddress() string {
	return s.minerAddress
}

// Self returns the peer address of this node.
func (s *State) Self() peer.Peer {
	return s.self
}

// Balance returns the confirmed balance of the account.
func (s *State) Balance(address string) int64 {
	return s.db.Balance(address)
}

// Balances returns the confirmed balance of every account.
func (s *State) Balances() map[string]int64 {
	return s.db.Ledger().Balances()
}

// History returns the confirmed transactions sent or received by the account.
func (s *State) History(address string) []database.Tx {
	return s.db.History(address)
}

// Chain returns a copy of the full chain.
func (s *State) Chain() []database.Block {
	return s.db.Blocks()
}

// ChainInfo returns the summary of the chain used during fork negotiation.
func (s *State) ChainInfo() database.ChainInfo {
	return s.db.ChainInfo()
}

// LatestBlock returns the last block in the chain.
func (s *State) LatestBlock() database.Block {
	return s.db.LatestBlock()
}

// Block returns the block at the specified height.
func (s *State) Block(height uint64) (database.Block, error) {
	return s.db.GetBlock(height)
}

// Pending returns the transactions waiting to be mined.
func (s *State) Pending() []database.Tx {
	return s.db.Pending()
}

// BlockReached reports whether enough transactions are pending to mine.
func (s *State) BlockReached() bool {
	return s.db.BlockReached()
}

// KnownPeers returns the known peers without this node.
func (s *State) KnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.self)
}
