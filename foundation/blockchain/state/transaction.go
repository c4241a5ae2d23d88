package state

import (
	"crypto/ecdsa"
	"errors"

	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
	"github.com/yeetcoin/blockchain/foundation/blockchain/signature"
)

// ErrDuplicatePending is returned when a transaction is already pending.
var ErrDuplicatePending = errors.New("transaction already pending")

// Send builds and signs a transaction from the account owning the private
// key and submits it like a wallet transaction.
func (s *State) Send(privateKey *ecdsa.PrivateKey, recipient string, amount int64, fee int64, data []byte) (database.Tx, error) {
	sender := signature.PublicKeyToAddress(privateKey.PublicKey)

	tx, err := database.NewTx(sender, recipient, amount, fee, data)
	if err != nil {
		return database.Tx{}, err
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		return database.Tx{}, err
	}

	if err := s.UpsertWalletTransaction(signedTx); err != nil {
		return database.Tx{}, err
	}

	return signedTx, nil
}

// UpsertWalletTransaction accepts a transaction from a wallet for inclusion
// and shares it with the peers.
func (s *State) UpsertWalletTransaction(tx database.Tx) error {
	if err := s.upsertTransaction(tx); err != nil {
		return err
	}

	if s.Worker != nil {
		s.Worker.SignalShareTx(tx)
	}

	return nil
}

// UpsertNodeTransaction accepts a transaction from a node for inclusion.
func (s *State) UpsertNodeTransaction(tx database.Tx) error {
	return s.upsertTransaction(tx)
}

// upsertTransaction validates the transaction against the confirmed chain
// and adds it to the pending pool.
func (s *State) upsertTransaction(tx database.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := database.ValidateTx(tx, s.db.Ledger()); err != nil {
		s.evHandler("state: upsertTransaction: tx[%s] rejected: %s", tx, err)
		return err
	}

	if !s.db.AddTransaction(tx) {
		return ErrDuplicatePending
	}

	s.evHandler("state: upsertTransaction: tx[%s] added: pending[%d]", tx, s.db.PendingCount())

	return nil
}
