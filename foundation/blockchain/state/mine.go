package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
	"github.com/yeetcoin/blockchain/foundation/blockchain/pow"
)

// Set of outcomes of a mining attempt that produced no block.
var (
	ErrNothingToMine = errors.New("no valid transactions to mine")
	ErrNotMined      = errors.New("block not mined")
)

// =============================================================================

// Mine attempts to create a new block from the pending pool with a proper
// hash that can become the next block in the chain. Transactions that fail
// validation are left out of the block and evicted from the pool. Mining is
// abandoned with ErrNotMined once the chain grows past the block's height.
func (s *State) Mine(ctx context.Context) (database.Block, error) {
	s.evHandler("state: Mine: MINING: started")
	defer s.evHandler("state: Mine: MINING: completed")

	// Take a consistent snapshot of the chain and the pool.
	s.mu.Lock()
	latest := s.db.LatestBlock()
	ledger := s.db.Ledger()
	pending := s.selector(s.db.Pending(), -1)
	s.mu.Unlock()

	s.evHandler("state: Mine: MINING: select transactions: pending[%d]", len(pending))

	var txs, invalid []database.Tx
	for _, tx := range pending {
		if err := database.ValidateTx(tx, ledger); err != nil {
			s.evHandler("state: Mine: MINING: tx[%s] dropped: %s", tx, err)
			invalid = append(invalid, tx)
			continue
		}

		ledger.ApplyTx(tx)
		txs = append(txs, tx)
	}

	if len(invalid) > 0 {
		s.db.RemovePending(invalid)
	}

	if len(txs) == 0 {
		return database.Block{}, ErrNothingToMine
	}

	height := latest.Header.Height + 1
	difficulty := pow.CalculateDifficulty(latest, s.genesis.DifficultyInterval, s.knownPeers.Len())

	block := database.NewBlock(latest.Hash(), s.minerAddress, difficulty, height, txs)
	if block.Header.Timestamp <= latest.Header.Timestamp {
		block.Header.Timestamp = latest.Header.Timestamp + 1
	}

	s.evHandler("state: Mine: MINING: perform POW: blk[%d]: difficulty[%d]: txs[%d]", height, difficulty, len(txs))

	// Another node won the race once our chain holds a block at this height.
	cancel := func() bool {
		return s.db.Height() > height
	}

	if err := pow.ProofOfWork(ctx, &block.Header, cancel, s.evHandler); err != nil {
		if errors.Is(err, pow.ErrMiningAborted) || ctx.Err() != nil {
			return database.Block{}, fmt.Errorf("%w: %s", ErrNotMined, err)
		}
		return database.Block{}, err
	}

	if err := pow.Reward(&block, s.genesis.CalcReward(height)); err != nil {
		return database.Block{}, fmt.Errorf("%w: %s", ErrNotMined, err)
	}

	s.evHandler("state: Mine: MINING: validate and update database")

	// The chain could have moved between the proof of work and now.
	if err := s.validateUpdateDatabase(block); err != nil {
		return database.Block{}, fmt.Errorf("%w: %s", ErrNotMined, err)
	}

	// WOW, we mined a block. Send the new block to the network.
	s.NetSendBlockToPeers(block)

	return block, nil
}

// ProcessProposedBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain. A block further
// ahead than the next height means this node is behind and a resync is
// signaled.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%.12s]: newBlk[%s]: numTrans[%d]", block.Header.PreviousHash, block, len(block.Transactions))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block)

	err := s.validateUpdateDatabase(block)
	if errors.Is(err, database.ErrChainForked) {
		s.evHandler("state: ProcessProposedBlock: chain forked: signal resync")
		if s.Worker != nil {
			s.Worker.SignalSync()
		}
	}

	return err
}

// =============================================================================

// validateUpdateDatabase takes the block and validates the block against the
// consensus rules. If the block passes, the block is appended to the chain
// and its transactions are removed from the pending pool.
func (s *State) validateUpdateDatabase(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: validateUpdateDatabase: validate block")

	if _, err := database.ValidateBlock(s.genesis, s.db.LatestBlock(), block, s.db.Ledger(), s.evHandler); err != nil {
		return err
	}

	s.evHandler("state: validateUpdateDatabase: append block and remove from pool")

	s.db.AddBlock(block)
	s.db.RemovePending(block.Transactions)

	// Send an event about this new block.
	s.blockEvent(block)

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockHeaderJSON, err := json.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = fmt.Appendf(nil, "%q", err.Error())
	}

	blockTransJSON, err := json.Marshal(block.Transactions)
	if err != nil {
		blockTransJSON = fmt.Appendf(nil, "%q", err.Error())
	}

	s.evHandler(`viewer: block: {"hash":%q,"header":%s,"trans":%s}`, block.Hash(), string(blockHeaderJSON), string(blockTransJSON))
}
