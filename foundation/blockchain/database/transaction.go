package database

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yeetcoin/blockchain/foundation/blockchain/signature"
)

// Set of errors for transaction handling.
var (
	ErrCoinbaseSigned = errors.New("coinbase transactions are never signed")
	ErrWrongSigner    = errors.New("private key does not belong to the sender")
)

// =============================================================================

// Tx is the transactional information between two parties.
type Tx struct {
	Sender    string `json:"sender"`              // Public key of the sender or "0" for a coinbase.
	Recipient string `json:"recipient"`           // Public key of the account receiving the value.
	Amount    int64  `json:"amount"`              // Value moved from sender to recipient.
	Fee       int64  `json:"fee"`                 // Fee paid by the sender to the miner.
	Timestamp int64  `json:"timestamp"`           // Unix nano time the transaction was created.
	Data      []byte `json:"data,omitempty"`      // Optional payload.
	Signature string `json:"signature,omitempty"` // Signature over the canonical bytes, empty for a coinbase.
}

// NewTx constructs a new unsigned transaction from the sender's public key.
func NewTx(sender string, recipient string, amount int64, fee int64, data []byte) (Tx, error) {
	if !signature.IsAddress(sender) {
		return Tx{}, fmt.Errorf("sender: %w", signature.ErrInvalidAddress)
	}

	if !signature.IsAddress(recipient) {
		return Tx{}, fmt.Errorf("recipient: %w", signature.ErrInvalidAddress)
	}

	tx := Tx{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		Fee:       fee,
		Timestamp: time.Now().UTC().UnixNano(),
		Data:      data,
	}

	return tx, nil
}

// NewCoinbaseTx constructs the unsigned transaction that creates value.
func NewCoinbaseTx(recipient string, amount int64, timestamp int64) Tx {
	return Tx{
		Sender:    signature.CoinbaseAddress,
		Recipient: recipient,
		Amount:    amount,
		Timestamp: timestamp,
	}
}

// IsCoinbase reports whether the transaction is a reward transaction.
func (tx Tx) IsCoinbase() bool {
	return tx.Sender == signature.CoinbaseAddress
}

// CanonicalBytes returns the bytes covered by the signature. Every field but
// the signature is encoded in a fixed order. Empty data encodes as null, the
// same as data dropped on the wire.
func (tx Tx) CanonicalBytes() ([]byte, error) {
	data := tx.Data
	if len(data) == 0 {
		data = nil
	}

	canonical := struct {
		Sender    string `json:"sender"`
		Recipient string `json:"recipient"`
		Amount    int64  `json:"amount"`
		Fee       int64  `json:"fee"`
		Timestamp int64  `json:"timestamp"`
		Data      []byte `json:"data"`
	}{
		Sender:    tx.Sender,
		Recipient: tx.Recipient,
		Amount:    tx.Amount,
		Fee:       tx.Fee,
		Timestamp: tx.Timestamp,
		Data:      data,
	}

	return json.Marshal(canonical)
}

// Sign uses the specified private key to sign the transaction. The returned
// copy carries the signature.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (Tx, error) {
	if tx.IsCoinbase() {
		return Tx{}, ErrCoinbaseSigned
	}

	if signature.PublicKeyToAddress(privateKey.PublicKey) != tx.Sender {
		return Tx{}, ErrWrongSigner
	}

	data, err := tx.CanonicalBytes()
	if err != nil {
		return Tx{}, err
	}

	sig, err := signature.Sign(data, privateKey)
	if err != nil {
		return Tx{}, err
	}

	tx.Signature = sig

	return tx, nil
}

// Verify checks the signature was produced by the sender. Coinbase
// transactions always verify.
func (tx Tx) Verify() bool {
	if tx.IsCoinbase() {
		return true
	}

	data, err := tx.CanonicalBytes()
	if err != nil {
		return false
	}

	return signature.Verify(data, tx.Sender, tx.Signature) == nil
}

// Cost returns what the transaction takes from the sender.
func (tx Tx) Cost() int64 {
	return tx.Amount + tx.Fee
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	sig := tx.Signature
	if len(sig) > 18 {
		sig = sig[:18]
	}

	return fmt.Sprintf("%s:%d:%d:%s", short(tx.Sender), tx.Amount, tx.Fee, sig)
}

// =============================================================================

// short trims a public key for logging.
func short(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:12]
}
