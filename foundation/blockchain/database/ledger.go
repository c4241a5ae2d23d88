package database

// Ledger is a view of account balances computed by replaying blocks. It also
// remembers the signatures it applied so a transaction can't be replayed.
type Ledger struct {
	balances map[string]int64
	applied  map[string]struct{}
}

// NewLedger replays the specified blocks from the start of the chain.
func NewLedger(blocks []Block) Ledger {
	ledger := Ledger{
		balances: make(map[string]int64),
		applied:  make(map[string]struct{}),
	}

	for _, block := range blocks {
		ledger.ApplyBlock(block)
	}

	return ledger
}

// Balance returns the balance for the account, zero if never seen.
func (l Ledger) Balance(address string) int64 {
	return l.balances[address]
}

// Balances returns a copy of every account balance.
func (l Ledger) Balances() map[string]int64 {
	cpy := make(map[string]int64, len(l.balances))
	for address, balance := range l.balances {
		cpy[address] = balance
	}
	return cpy
}

// Applied reports whether a transaction with this signature is already part
// of the ledger.
func (l Ledger) Applied(signature string) bool {
	_, exists := l.applied[signature]
	return exists
}

// ApplyTx performs the accounting for a single transaction. The fee leaves
// the sender here and reaches the miner through the block's coinbase.
func (l Ledger) ApplyTx(tx Tx) {
	if !tx.IsCoinbase() {
		l.balances[tx.Sender] -= tx.Cost()
		l.applied[tx.Signature] = struct{}{}
	}
	l.balances[tx.Recipient] += tx.Amount
}

// ApplyBlock performs the accounting for every transaction in the block.
func (l Ledger) ApplyBlock(block Block) {
	for _, tx := range block.Transactions {
		l.ApplyTx(tx)
	}
}

// Clone returns a copy that can be changed without affecting the original.
func (l Ledger) Clone() Ledger {
	cpy := Ledger{
		balances: l.Balances(),
		applied:  make(map[string]struct{}, len(l.applied)),
	}

	for sig := range l.applied {
		cpy.applied[sig] = struct{}{}
	}

	return cpy
}
