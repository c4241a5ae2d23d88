package commands

import (
	"fmt"
	"io"

	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
)

// Chain prints the header of every block.
func Chain(w io.Writer, db *database.Database) error {
	for _, block := range db.Blocks() {
		h := block.Header
		fmt.Fprintf(w, "Block: %d  Hash: %s  Prev: %s  Difficulty: %d  Nonce: %d  Txs: %d\n",
			h.Height, h.Hash, h.PreviousHash, h.Difficulty, h.Nonce, len(block.Transactions))
	}

	return nil
}

// Verify validates the stored chain from the genesis block up.
func Verify(w io.Writer, db *database.Database) error {
	blocks := db.Blocks()

	if _, err := database.ValidateChain(db.GenesisConfig(), blocks, nil); err != nil {
		return err
	}

	fmt.Fprintf(w, "Chain verified: %d blocks\n", len(blocks))
	return nil
}
