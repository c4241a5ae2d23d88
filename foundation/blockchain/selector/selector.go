// Package selector provides different transaction selecting algorithms used
// to order the pending pool into a block.
package selector

import (
	"fmt"

	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFIFO = "fifo"
	StrategyFee  = "fee"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFIFO: fifoSelect,
	StrategyFee:  feeSelect,
}

// Func defines a function that takes the pending pool in arrival order and
// selects howMany of them in an order based on the functions strategy. All
// selector functions MUST keep the arrival order of the transactions of a
// single sender. Receiving -1 for howMany must return all the transactions
// in the strategies ordering.
type Func func(pending []database.Tx, howMany int) []database.Tx

// Retrieve returns the specified select strategy function. An empty strategy
// selects in arrival order.
func Retrieve(strategy string) (Func, error) {
	if strategy == "" {
		strategy = StrategyFIFO
	}

	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// fifoSelect returns the transactions in the order they entered the pool.
var fifoSelect = func(pending []database.Tx, howMany int) []database.Tx {
	if howMany < 0 || howMany > len(pending) {
		howMany = len(pending)
	}

	final := make([]database.Tx, howMany)
	copy(final, pending[:howMany])

	return final
}

// =============================================================================

// byFee provides sorting support by the transaction fee value.
type byFee []database.Tx

// Len returns the number of transactions in the list.
func (bf byFee) Len() int {
	return len(bf)
}

// Less helps to sort the list by fee in descending order to pick the
// transactions that provide the best reward.
func (bf byFee) Less(i, j int) bool {
	return bf[i].Fee > bf[j].Fee
}

// Swap moves transactions in the order of the fee value.
func (bf byFee) Swap(i, j int) {
	bf[i], bf[j] = bf[j], bf[i]
}
