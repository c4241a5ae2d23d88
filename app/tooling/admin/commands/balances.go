// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
)

// Balances prints the current set of balances, or the balance of a single
// address when one is specified.
func Balances(w io.Writer, args []string, db *database.Database) error {
	fmt.Fprintf(w, "LatestBlockHash: %s\n\n", db.LatestBlock().Hash())

	if len(args) == 3 {
		fmt.Fprintf(w, "Account: %s  Balance: %d\n", args[2], db.Balance(args[2]))
		return nil
	}

	bals := db.Ledger().Balances()

	addresses := make([]string, 0, len(bals))
	for address := range bals {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	for _, address := range addresses {
		fmt.Fprintf(w, "Account: %s  Balance: %d\n", address, bals[address])
	}

	return nil
}
