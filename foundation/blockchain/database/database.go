// Package database handles the ledger: the chain of blocks, the pool of
// pending transactions and the lower level support for persisting the
// chain through a storage implementation.
package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/yeetcoin/blockchain/foundation/blockchain/genesis"
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Storage interface {
	Write(block Block) error
	GetBlock(height uint64) (Block, error)
	ForEach() Iterator
	Close() error
	Replace(blocks []Block) error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (Block, error)
	Done() bool
}

// =============================================================================

// Database manages the chain of blocks and the pending transactions. The
// database performs no validation, callers validate before writing.
type Database struct {
	mu sync.RWMutex

	genesis genesis.Genesis
	blocks  []Block
	pool    []Tx
	pooled  map[string]struct{}

	storage   Storage
	evHandler func(v string, args ...any)
}

// New constructs a database, loads the chain held by the storage and
// validates it. An empty storage produces a chain holding the genesis block.
func New(gen genesis.Genesis, storage Storage, evHandler func(v string, args ...any)) (*Database, error) {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	db := Database{
		genesis:   gen,
		pooled:    make(map[string]struct{}),
		storage:   storage,
		evHandler: evHandler,
	}

	var blocks []Block

	iter := storage.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, fmt.Errorf("reading block %d: %w", len(blocks), err)
		}
		blocks = append(blocks, block)
	}

	if len(blocks) > 0 {
		if _, err := ValidateChain(gen, blocks, evHandler); err != nil {
			return nil, fmt.Errorf("loading chain: %w", err)
		}
		db.blocks = blocks
		evHandler("database: New: loaded chain: height[%d]", len(blocks))
	}

	db.Genesis()

	return &db, nil
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.storage.Close()
}

// Save replaces what the storage holds with the current chain. The storage
// keeps the previously saved chain if the replacement fails part way.
func (db *Database) Save() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if err := db.storage.Replace(db.blocks); err != nil {
		return fmt.Errorf("replace storage: %w", err)
	}

	db.evHandler("database: Save: saved chain: height[%d]", len(db.blocks))

	return nil
}

// =============================================================================

// Genesis adds the genesis block when the chain is empty. It is a no-op
// otherwise.
func (db *Database) Genesis() {
	db.mu.Lock()
	defer db.mu.Unlock()

	if len(db.blocks) > 0 {
		return
	}

	block := GenesisBlock(db.genesis)
	db.blocks = append(db.blocks, block)

	db.evHandler("database: Genesis: created genesis block: blk[%s]", block)
}

// GenesisConfig returns the parameters the chain was created with.
func (db *Database) GenesisConfig() genesis.Genesis {
	return db.genesis
}

// AddBlock appends the block at the current height. The block must already
// be validated.
func (db *Database) AddBlock(block Block) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.blocks = append(db.blocks, block.Copy())
}

// Replace swaps the whole chain for the specified one. Pending transactions
// the new chain already includes are removed from the pool.
func (db *Database) Replace(blocks []Block) error {
	if len(blocks) == 0 {
		return errors.New("can't replace the chain with an empty chain")
	}

	chain := make([]Block, len(blocks))
	for i, block := range blocks {
		chain[i] = block.Copy()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.blocks = chain

	for _, block := range chain {
		db.removePending(block.Transactions)
	}

	return nil
}

// Height returns the number of blocks in the chain.
func (db *Database) Height() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return uint64(len(db.blocks))
}

// LatestBlock returns the last block in the chain.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[len(db.blocks)-1].Copy()
}

// Blocks returns a copy of the chain.
func (db *Database) Blocks() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks := make([]Block, len(db.blocks))
	for i, block := range db.blocks {
		blocks[i] = block.Copy()
	}

	return blocks
}

// GetBlock returns the block at the specified height.
func (db *Database) GetBlock(height uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if height >= uint64(len(db.blocks)) {
		return Block{}, fmt.Errorf("block %d does not exist", height)
	}

	return db.blocks[height].Copy(), nil
}

// ChainInfo returns the summary of the chain used during fork negotiation.
func (db *Database) ChainInfo() ChainInfo {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return ChainInfo{
		Height:  uint64(len(db.blocks)),
		TipHash: db.blocks[len(db.blocks)-1].Hash(),
	}
}

// CalcReward returns the reward for the next block to be mined.
func (db *Database) CalcReward() uint64 {
	return db.genesis.CalcReward(db.Height())
}

// =============================================================================

// Ledger computes the account balances by scanning the whole chain.
func (db *Database) Ledger() Ledger {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return NewLedger(db.blocks)
}

// Balance returns the confirmed balance for the account.
func (db *Database) Balance(address string) int64 {
	return db.Ledger().Balance(address)
}

// History returns the confirmed transactions sent or received by the account.
func (db *Database) History(address string) []Tx {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var txs []Tx
	for _, block := range db.blocks {
		for _, tx := range block.Transactions {
			if tx.Sender == address || tx.Recipient == address {
				txs = append(txs, tx)
			}
		}
	}

	return txs
}

// =============================================================================

// AddTransaction appends the transaction to the pending pool. The
// transaction must already be validated. It reports false when the
// transaction is already pending.
func (db *Database) AddTransaction(tx Tx) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.pooled[tx.Signature]; exists {
		return false
	}

	db.pooled[tx.Signature] = struct{}{}
	db.pool = append(db.pool, tx)

	return true
}

// Pending returns a copy of the pending pool in arrival order.
func (db *Database) Pending() []Tx {
	db.mu.RLock()
	defer db.mu.RUnlock()

	txs := make([]Tx, len(db.pool))
	copy(txs, db.pool)

	return txs
}

// PendingCount returns the number of pending transactions.
func (db *Database) PendingCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.pool)
}

// RemovePending removes the specified transactions from the pool.
func (db *Database) RemovePending(txs []Tx) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.removePending(txs)
}

// BlockReached reports whether enough transactions are pending to mine.
func (db *Database) BlockReached() bool {
	return db.PendingCount() >= db.genesis.TransPerBlock
}

// removePending removes transactions from the pool. The caller must hold
// the write lock.
func (db *Database) removePending(txs []Tx) {
	remove := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		if _, exists := db.pooled[tx.Signature]; exists && !tx.IsCoinbase() {
			remove[tx.Signature] = struct{}{}
			delete(db.pooled, tx.Signature)
		}
	}

	if len(remove) == 0 {
		return
	}

	pool := db.pool[:0:0]
	for _, tx := range db.pool {
		if _, exists := remove[tx.Signature]; !exists {
			pool = append(pool, tx)
		}
	}
	db.pool = pool
}
