// Package wallet maintains the key pair of an account on disk.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/yeetcoin/blockchain/foundation/blockchain/signature"
)

// Wallet holds the private key of an account and where it is kept.
type Wallet struct {
	path       string
	privateKey *ecdsa.PrivateKey
}

// Load reads the private key stored at the specified path.
func Load(path string) (*Wallet, error) {
	privateKey, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("loading key %q: %w", path, err)
	}

	return &Wallet{path: path, privateKey: privateKey}, nil
}

// LoadOrGenerate reads the private key stored at the specified path. When
// no key exists yet, a new one is generated and saved there. The boolean
// reports whether a key was generated.
func LoadOrGenerate(path string) (*Wallet, bool, error) {
	w, err := Load(path)
	if err == nil {
		return w, false, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, false, fmt.Errorf("generating key: %w", err)
	}

	w = &Wallet{path: path, privateKey: privateKey}
	if err := w.Save(); err != nil {
		return nil, false, err
	}

	return w, true, nil
}

// Save writes the private key back to its file.
func (w *Wallet) Save() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("creating key folder: %w", err)
	}

	if err := crypto.SaveECDSA(w.path, w.privateKey); err != nil {
		return fmt.Errorf("saving key %q: %w", w.path, err)
	}

	return nil
}

// PrivateKey returns the key used to sign transactions.
func (w *Wallet) PrivateKey() *ecdsa.PrivateKey {
	return w.privateKey
}

// Address returns the account address of the wallet.
func (w *Wallet) Address() string {
	return signature.PublicKeyToAddress(w.privateKey.PublicKey)
}

// Path returns the file holding the key.
func (w *Wallet) Path() string {
	return w.path
}
