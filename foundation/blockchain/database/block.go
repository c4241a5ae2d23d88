package database

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/yeetcoin/blockchain/foundation/blockchain/signature"
)

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	PreviousHash string `json:"previous_hash"` // Hash of the previous block, "0" for genesis.
	MinerAddress string `json:"miner_address"` // Account receiving the reward and the fees.
	Difficulty   uint   `json:"difficulty"`    // Number of leading 0's the hash needs.
	Timestamp    int64  `json:"timestamp"`     // Unix nano time the block was created.
	Height       uint64 `json:"height"`        // Block number in the chain, genesis is 0.
	Nonce        uint64 `json:"nonce"`         // Value identified to solve the hash solution.
	BlockSize    int    `json:"block_size"`    // Transactions the block was created with.
	Hash         string `json:"hash"`          // Digest of every other header field.
}

// ComputeHash returns the digest of every header field except the hash,
// encoded in a fixed order.
func (h BlockHeader) ComputeHash() string {
	canonical := struct {
		PreviousHash string `json:"previous_hash"`
		MinerAddress string `json:"miner_address"`
		Difficulty   uint   `json:"difficulty"`
		Timestamp    int64  `json:"timestamp"`
		Height       uint64 `json:"height"`
		Nonce        uint64 `json:"nonce"`
		BlockSize    int    `json:"block_size"`
	}{
		PreviousHash: h.PreviousHash,
		MinerAddress: h.MinerAddress,
		Difficulty:   h.Difficulty,
		Timestamp:    h.Timestamp,
		Height:       h.Height,
		Nonce:        h.Nonce,
		BlockSize:    h.BlockSize,
	}

	// Marshalling a struct of strings and integers can't fail.
	data, _ := json.Marshal(canonical)

	return signature.Hash(data)
}

// Seal recomputes and stores the hash. It is called once the nonce is fixed.
func (h *BlockHeader) Seal() {
	h.Hash = h.ComputeHash()
}

// =============================================================================

// Block represents a group of transactions batched together.
type Block struct {
	Header       BlockHeader `json:"header"`
	Transactions []Tx        `json:"transactions"`
}

// NewBlock constructs an unsealed block. The nonce and hash are filled in by
// the proof of work.
func NewBlock(previousHash string, minerAddress string, difficulty uint, height uint64, trans []Tx) Block {
	txs := make([]Tx, len(trans))
	copy(txs, trans)

	return Block{
		Header: BlockHeader{
			PreviousHash: previousHash,
			MinerAddress: minerAddress,
			Difficulty:   difficulty,
			Timestamp:    time.Now().UTC().UnixNano(),
			Height:       height,
			BlockSize:    len(txs),
		},
		Transactions: txs,
	}
}

// Hash returns the sealed hash of the block.
func (b Block) Hash() string {
	return b.Header.Hash
}

// Fees returns the sum of the fees paid by the transactions in the block.
func (b Block) Fees() (int64, error) {
	var fees int64
	for _, tx := range b.Transactions {
		if tx.IsCoinbase() {
			continue
		}

		var err error
		if fees, err = AddAmounts(fees, tx.Fee); err != nil {
			return 0, fmt.Errorf("tx[%s]: %w", tx, err)
		}
	}
	return fees, nil
}

// AddAmounts sums the reward and fee amounts of a block, failing instead of
// wrapping. Negative values are rejected as a negative fee.
func AddAmounts(a int64, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, ErrNegativeFee
	}

	if a > math.MaxInt64-b {
		return 0, ErrAmountOverflow
	}

	return a + b, nil
}

// Copy returns a block that shares no memory with the original.
func (b Block) Copy() Block {
	txs := make([]Tx, len(b.Transactions))
	copy(txs, b.Transactions)
	b.Transactions = txs
	return b
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("%d:%s", b.Header.Height, short(b.Header.Hash))
}

// =============================================================================

// IsHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func IsHashSolved(difficulty uint, hash string) bool {
	const hashLength = 64

	if len(hash) != hashLength || difficulty > hashLength {
		return false
	}

	for i := uint(0); i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}

	return true
}

// =============================================================================

// ChainInfo is the summary exchanged when nodes negotiate which chain is
// the longest.
type ChainInfo struct {
	Height  uint64 `json:"height"`
	TipHash string `json:"tip_hash"`
}
