package selector

import (
	"sort"

	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
)

// feeSelect returns transactions with the best fee while keeping the arrival
// order of each sender's transactions.
var feeSelect = func(pending []database.Tx, howMany int) []database.Tx {
	if howMany < 0 || howMany > len(pending) {
		howMany = len(pending)
	}

	// Group the transactions per sender in arrival order. Senders are kept in
	// the order they first appear so the selection is deterministic.
	var senders []string
	m := make(map[string][]database.Tx)
	for _, tx := range pending {
		if _, exists := m[tx.Sender]; !exists {
			senders = append(senders, tx.Sender)
		}
		m[tx.Sender] = append(m[tx.Sender], tx)
	}

	/*
		A: {Fee: 1}, {Fee: 9}
		B: {Fee: 5}
		C: {Fee: 3}, {Fee: 2}
	*/

	// Pick the first transaction for each sender. Each iteration represents a
	// new row of selections. Keep doing that until all the transactions have
	// been selected.
	var rows [][]database.Tx
	for {
		var row []database.Tx
		for _, sender := range senders {
			if len(m[sender]) > 0 {
				row = append(row, m[sender][0])
				m[sender] = m[sender][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	/*
		0: A {Fee: 1}, B {Fee: 5}, C {Fee: 3}
		1: A {Fee: 9}, C {Fee: 2}
	*/

	// Sort each row by fee and keep pulling transactions from each row until
	// the amount is fulfilled or there are no more transactions.
	final := make([]database.Tx, 0, howMany)
	for _, row := range rows {
		sort.Stable(byFee(row))

		need := howMany - len(final)
		if len(row) >= need {
			final = append(final, row[:need]...)
			break
		}
		final = append(final, row...)
	}

	/*
		0: B {Fee: 5}
		1: C {Fee: 3}
		2: A {Fee: 1}
		3: A {Fee: 9}
		4: C {Fee: 2}
	*/

	return final
}
