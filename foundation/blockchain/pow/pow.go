// Package pow implements the consensus engine: the nonce search, the
// difficulty schedule and the block reward.
package pow

import (
	"context"
	"errors"
	"math"

	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
)

// ErrMiningAborted is returned when the search is abandoned because the
// cancel predicate fired. Another node produced the block first which is a
// normal outcome.
var ErrMiningAborted = errors.New("mining aborted")

// PeersPerDifficulty is the number of known peers that add one leading zero
// to the difficulty when it is recomputed.
const PeersPerDifficulty = 100

// =============================================================================

// ProofOfWork searches for the nonce that solves the header. The nonce starts
// at zero and is incremented by one. The cancel predicate and the context are
// checked before every hash so an abort never waits on more than one hash.
func ProofOfWork(ctx context.Context, header *database.BlockHeader, cancel func() bool, ev func(v string, args ...any)) error {
	if ev == nil {
		ev = func(string, ...any) {}
	}
	if cancel == nil {
		cancel = func() bool { return false }
	}

	ev("pow: ProofOfWork: MINING: started: blk[%d]: difficulty[%d]", header.Height, header.Difficulty)
	defer ev("pow: ProofOfWork: MINING: completed: blk[%d]", header.Height)

	var attempts uint64
	for nonce := uint64(0); ; nonce++ {
		if cancel() {
			ev("pow: ProofOfWork: MINING: ABORTED: attempts[%d]", attempts)
			return ErrMiningAborted
		}

		if ctx.Err() != nil {
			ev("pow: ProofOfWork: MINING: CANCELLED: attempts[%d]", attempts)
			return ctx.Err()
		}

		attempts++
		if attempts%1_000_000 == 0 {
			ev("pow: ProofOfWork: MINING: attempts[%d]", attempts)
		}

		header.Nonce = nonce
		header.Seal()

		if database.IsHashSolved(header.Difficulty, header.Hash) {
			ev("pow: ProofOfWork: MINING: SOLVED: prevBlk[%.12s]: newBlk[%.12s]: attempts[%d]", header.PreviousHash, header.Hash, attempts)
			return nil
		}

		if nonce == math.MaxUint64 {
			return errors.New("nonce space exhausted")
		}
	}
}

// =============================================================================

// CalculateDifficulty returns the difficulty for the block that follows the
// chain. The difficulty only changes every interval blocks where it is
// recomputed from the number of known peers.
func CalculateDifficulty(latest database.Block, interval uint64, knownPeers int) uint {
	height := latest.Header.Height + 1

	if interval == 0 || height%interval != 0 {
		return latest.Header.Difficulty
	}

	difficulty := uint(math.Round(float64(knownPeers) / PeersPerDifficulty))

	return max(difficulty, 1)
}

// Reward prepends the coinbase transaction paying the miner the block reward
// plus the fees of the transactions in the block. It is applied once the
// proof of work succeeded.
func Reward(block *database.Block, reward uint64) error {
	fees, err := block.Fees()
	if err != nil {
		return err
	}

	amount, err := database.AddAmounts(int64(reward), fees)
	if err != nil {
		return err
	}

	coinbase := database.NewCoinbaseTx(block.Header.MinerAddress, amount, block.Header.Timestamp)

	block.Transactions = append([]database.Tx{coinbase}, block.Transactions...)

	return nil
}
