// Package signature provides helper functions for handling the blockchain
// signature needs.
package signature

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// CoinbaseAddress is the sender used by reward transactions. It is not a
// public key and nothing can be signed for it.
const CoinbaseAddress = "0"

// ZeroHash is the previous hash recorded by the genesis block.
const ZeroHash = "0"

// Set of error variables for signature processing.
var (
	ErrInvalidAddress   = errors.New("invalid address")
	ErrInvalidSignature = errors.New("invalid signature")
)

// yeetStamp is mixed into every signed digest so signatures produced for this
// network can't be replayed as signatures over other ethereum style messages.
const yeetStamp = "\x19Yeet Signed Message:\n32"

// =============================================================================

// Hash returns the hex encoded sha256 digest of the data without any prefix
// so the leading characters can be compared against the difficulty.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return common.Bytes2Hex(hash[:])
}

// Sign uses the specified private key to sign the data. The signature is
// returned in its hex encoded [R|S|V] form.
func Sign(data []byte, privateKey *ecdsa.PrivateKey) (string, error) {
	digest := stamp(data)

	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return "", err
	}

	// Check the public key extracted from the data and signature.
	publicKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", err
	}

	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), digest, sig[:crypto.RecoveryIDOffset]) {
		return "", ErrInvalidSignature
	}

	return hexutil.Encode(sig), nil
}

// Verify checks the signature was produced over the data by the private key
// that belongs to the specified address. Only the exact encoding Sign
// produces is accepted so a signature has a single string form: lowercase
// hex, a low S value and the recovery id that yields the signer.
func Verify(data []byte, address string, sig string) error {
	publicKey, err := ToPublicKey(address)
	if err != nil {
		return err
	}

	sigBytes, err := hexutil.Decode(sig)
	if err != nil || len(sigBytes) != crypto.SignatureLength {
		return ErrInvalidSignature
	}

	if hexutil.Encode(sigBytes) != sig {
		return ErrInvalidSignature
	}

	if v := sigBytes[crypto.RecoveryIDOffset]; v != 0 && v != 1 {
		return ErrInvalidSignature
	}

	hash := stamp(data)
	pub := crypto.FromECDSAPub(publicKey)

	if !crypto.VerifySignature(pub, hash, sigBytes[:crypto.RecoveryIDOffset]) {
		return ErrInvalidSignature
	}

	recovered, err := crypto.Ecrecover(hash, sigBytes)
	if err != nil || !bytes.Equal(recovered, pub) {
		return ErrInvalidSignature
	}

	return nil
}

// =============================================================================

// PublicKeyToAddress converts the public key to the address format used on
// the blockchain. The address is the public key itself.
func PublicKeyToAddress(pk ecdsa.PublicKey) string {
	return hexutil.Encode(crypto.FromECDSAPub(&pk))
}

// ToPublicKey recovers the public key encoded in the address.
func ToPublicKey(address string) (*ecdsa.PublicKey, error) {
	if !strings.HasPrefix(address, "0x") {
		return nil, ErrInvalidAddress
	}

	pkBytes, err := hexutil.Decode(address)
	if err != nil {
		return nil, ErrInvalidAddress
	}

	publicKey, err := crypto.UnmarshalPubkey(pkBytes)
	if err != nil {
		return nil, ErrInvalidAddress
	}

	return publicKey, nil
}

// IsAddress reports whether the string decodes into a valid public key.
func IsAddress(address string) bool {
	_, err := ToPublicKey(address)
	return err == nil
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this data with
// the network stamp embedded into the final hash.
func stamp(data []byte) []byte {
	return crypto.Keccak256([]byte(yeetStamp), crypto.Keccak256(data))
}
