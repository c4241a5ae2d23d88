package commands

import (
	"fmt"
	"io"

	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
)

// Transactions prints the confirmed transactions of every account, or of a
// single address when one is specified.
func Transactions(w io.Writer, args []string, db *database.Database) error {
	var address string
	if len(args) == 3 {
		address = args[2]
	}

	fmt.Fprintf(w, "LatestBlockHash: %s\n\n", db.LatestBlock().Hash())

	show := func(height uint64, tx database.Tx) {
		fmt.Fprintf(w, "Block: %d  From: %s  To: %s  Amount: %d  Fee: %d  Data: %s\n",
			height, tx.Sender, tx.Recipient, tx.Amount, tx.Fee, tx.Data)
	}

	for _, block := range db.Blocks() {
		for _, tx := range block.Transactions {
			if address == "" || tx.Sender == address || tx.Recipient == address {
				show(block.Header.Height, tx)
			}
		}
	}

	return nil
}
