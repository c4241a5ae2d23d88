package database

import (
	"errors"
	"fmt"
	"math"

	"github.com/yeetcoin/blockchain/foundation/blockchain/genesis"
	"github.com/yeetcoin/blockchain/foundation/blockchain/signature"
)

// Set of errors for transaction validation. These are the reasons a
// transaction is dropped from a block candidate or rejected from a peer.
var (
	ErrNegativeAmount     = errors.New("transaction amount is negative")
	ErrNegativeFee        = errors.New("transaction fee is negative")
	ErrUnexpectedCoinbase = errors.New("coinbase transaction not allowed here")
	ErrInvalidSignature   = errors.New("transaction signature does not verify")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrDuplicateTx        = errors.New("transaction already in the chain")
	ErrAmountOverflow     = errors.New("amount overflows")
)

// ErrChainForked is returned when a block is more than one block ahead of
// our chain. We are behind and need to ask the network for its chain.
var ErrChainForked = errors.New("blockchain forked, start resync")

// ErrIntegrity is returned when a chain fails full validation.
var ErrIntegrity = errors.New("chain failed integrity validation")

// =============================================================================

// ValidateTx checks a regular transaction against the ledger it would be
// applied to. The ledger is not changed.
func ValidateTx(tx Tx, ledger Ledger) error {
	if tx.IsCoinbase() {
		return ErrUnexpectedCoinbase
	}

	if tx.Amount < 0 {
		return ErrNegativeAmount
	}

	if tx.Fee < 0 {
		return ErrNegativeFee
	}

	if tx.Amount > math.MaxInt64-tx.Fee {
		return ErrAmountOverflow
	}

	if !signature.IsAddress(tx.Recipient) {
		return fmt.Errorf("recipient: %w", signature.ErrInvalidAddress)
	}

	if !tx.Verify() {
		return ErrInvalidSignature
	}

	if ledger.Applied(tx.Signature) {
		return ErrDuplicateTx
	}

	if balance := ledger.Balance(tx.Sender); tx.Cost() > balance {
		return fmt.Errorf("%w, bal %d, needed %d", ErrInsufficientFunds, balance, tx.Cost())
	}

	return nil
}

// =============================================================================

// GenesisBlock returns the height 0 block for the specified parameters. It
// is derived from the genesis values only so every node builds the same one.
func GenesisBlock(gen genesis.Genesis) Block {
	timestamp := gen.Date.UTC().UnixNano()

	block := Block{
		Header: BlockHeader{
			PreviousHash: signature.ZeroHash,
			MinerAddress: gen.Recipient,
			Difficulty:   gen.Difficulty,
			Timestamp:    timestamp,
			Height:       0,
			BlockSize:    1,
		},
		Transactions: []Tx{NewCoinbaseTx(gen.Recipient, gen.InitialSupply, timestamp)},
	}
	block.Header.Seal()

	return block
}

// ValidateGenesis checks the block is the genesis block for the parameters.
func ValidateGenesis(gen genesis.Genesis, block Block) error {
	exp := GenesisBlock(gen)

	if block.Header != exp.Header {
		return fmt.Errorf("genesis header mismatch, got %s, exp %s", block.Header.Hash, exp.Header.Hash)
	}

	if len(block.Transactions) != 1 || block.Transactions[0].Recipient != gen.Recipient || block.Transactions[0].Amount != gen.InitialSupply || !block.Transactions[0].IsCoinbase() {
		return errors.New("genesis transactions mismatch")
	}

	return nil
}

// ValidateBlock takes a block and validates it to be included into the
// blockchain after the previous block. The ledger must reflect the chain up
// to and including the previous block. On success the ledger with the block
// applied is returned; the ledger passed in is never changed.
func ValidateBlock(gen genesis.Genesis, previousBlock Block, block Block, ledger Ledger, evHandler func(v string, args ...any)) (Ledger, error) {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: chain is not forked", block.Header.Height)

	// The node who sent this block has a chain that is two or more blocks
	// ahead of ours. This means we are behind or on the wrong side of a fork.
	nextHeight := previousBlock.Header.Height + 1
	if block.Header.Height > nextHeight {
		return Ledger{}, ErrChainForked
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block height is the next height", block.Header.Height)

	if block.Header.Height != nextHeight {
		return Ledger{}, fmt.Errorf("this block is not the next height, got %d, exp %d", block.Header.Height, nextHeight)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: previous hash does match previous block", block.Header.Height)

	if block.Header.PreviousHash != previousBlock.Hash() {
		return Ledger{}, fmt.Errorf("previous block hash doesn't match our known previous block, got %s, exp %s", block.Header.PreviousHash, previousBlock.Hash())
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", block.Header.Height)

	if hash := block.Header.ComputeHash(); hash != block.Header.Hash {
		return Ledger{}, fmt.Errorf("block hash doesn't match header, got %s, exp %s", block.Header.Hash, hash)
	}

	if !IsHashSolved(block.Header.Difficulty, block.Header.Hash) {
		return Ledger{}, fmt.Errorf("%s invalid block hash for difficulty %d", block.Header.Hash, block.Header.Difficulty)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: difficulty follows the schedule", block.Header.Height)

	switch {
	case block.Header.Height%gen.DifficultyInterval != 0:
		if block.Header.Difficulty != previousBlock.Header.Difficulty {
			return Ledger{}, fmt.Errorf("block difficulty changed off schedule, previous %d, block %d", previousBlock.Header.Difficulty, block.Header.Difficulty)
		}

	default:
		if block.Header.Difficulty < 1 {
			return Ledger{}, errors.New("block difficulty must be at least 1")
		}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block's timestamp is greater than previous block's timestamp", block.Header.Height)

	if block.Header.Timestamp <= previousBlock.Header.Timestamp {
		return Ledger{}, fmt.Errorf("block timestamp is before previous block, previous %d, block %d", previousBlock.Header.Timestamp, block.Header.Timestamp)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: coinbase pays reward and fees", block.Header.Height)

	if len(block.Transactions) != block.Header.BlockSize+1 {
		return Ledger{}, fmt.Errorf("block size mismatch, got %d transactions, exp %d plus coinbase", len(block.Transactions), block.Header.BlockSize)
	}

	coinbase := block.Transactions[0]
	if !coinbase.IsCoinbase() || coinbase.Recipient != block.Header.MinerAddress {
		return Ledger{}, errors.New("first transaction must be the coinbase paying the miner")
	}

	fees, err := block.Fees()
	if err != nil {
		return Ledger{}, err
	}

	reward, err := AddAmounts(int64(gen.CalcReward(block.Header.Height)), fees)
	if err != nil {
		return Ledger{}, err
	}

	if coinbase.Amount != reward {
		return Ledger{}, fmt.Errorf("coinbase amount mismatch, got %d, exp %d", coinbase.Amount, reward)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: transactions are valid", block.Header.Height)

	next := ledger.Clone()
	next.ApplyTx(coinbase)

	for _, tx := range block.Transactions[1:] {
		if err := ValidateTx(tx, next); err != nil {
			return Ledger{}, fmt.Errorf("tx[%s]: %w", tx, err)
		}
		next.ApplyTx(tx)
	}

	return next, nil
}

// ValidateChain validates every block of a chain from genesis, including
// every transaction against the chain's own history. The resulting ledger
// is returned on success.
func ValidateChain(gen genesis.Genesis, blocks []Block, evHandler func(v string, args ...any)) (Ledger, error) {
	if len(blocks) == 0 {
		return Ledger{}, fmt.Errorf("%w: empty chain", ErrIntegrity)
	}

	if err := ValidateGenesis(gen, blocks[0]); err != nil {
		return Ledger{}, fmt.Errorf("%w: %s", ErrIntegrity, err)
	}

	ledger := NewLedger(blocks[:1])
	for i := 1; i < len(blocks); i++ {
		next, err := ValidateBlock(gen, blocks[i-1], blocks[i], ledger, evHandler)
		if err != nil {
			return Ledger{}, fmt.Errorf("%w: blk[%d]: %s", ErrIntegrity, i, err)
		}
		ledger = next
	}

	return ledger, nil
}
