// Package signing authenticates ledger transactions with Ed25519.
//
// It signs and verifies canonical transaction bytes, encodes key material as
// PEM (PKCS#8 for private keys, PKIX for public keys), derives account
// addresses from public keys, and resolves addresses back to public keys
// through the KeyResolver interface.
package signing

import (
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"

	"github.com/xraph/n1c/types"
)

// AddressPrefix starts every account address.
const AddressPrefix = "n1c_"

// addressHexLen is the number of hex characters of the key hash kept in an address.
const addressHexLen = 32

// PEM block types.
const (
	pemPrivateKey = "PRIVATE KEY"
	pemPublicKey  = "PUBLIC KEY"
)

// PublicKey is an Ed25519 public key.
type PublicKey = ed25519.PublicKey

// PrivateKey is an Ed25519 private key.
type PrivateKey = ed25519.PrivateKey

// GenerateKey creates a new key pair using entropy from rand.
// A nil rand uses crypto/rand.
func GenerateKey(rand io.Reader) (PublicKey, PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, nil, fmt.Errorf("signing: generate key: %w", err)
	}
	return pub, priv, nil
}

// Sign signs message with priv. It fails with types.ErrKey when the key has
// the wrong length.
func Sign(message []byte, priv PrivateKey) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signing: private key is %d bytes, want %d: %w",
			len(priv), ed25519.PrivateKeySize, types.ErrKey)
	}
	return ed25519.Sign(priv, message), nil
}

// Verify reports whether signature is a valid signature of message by pub.
// Malformed keys or signatures verify as false.
func Verify(message, signature []byte, pub PublicKey) bool {
	if len(pub) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, message, signature)
}

// AddressFromPublicKey derives the account address of pub: the address
// prefix followed by the first 32 hex characters of blake2b-256(pub).
func AddressFromPublicKey(pub PublicKey) string {
	h := blake2b.Sum256(pub)
	return AddressPrefix + hex.EncodeToString(h[:])[:addressHexLen]
}

// ValidateAddress checks that addr carries the address prefix and a
// non-empty remainder.
func ValidateAddress(addr string) error {
	if !strings.HasPrefix(addr, AddressPrefix) || len(addr) == len(AddressPrefix) {
		return fmt.Errorf("signing: address %q must start with %q: %w", addr, AddressPrefix, types.ErrInvalidInput)
	}
	return nil
}

// EncodePrivateKeyPEM encodes priv as an unencrypted PKCS#8 PEM block.
func EncodePrivateKeyPEM(priv PrivateKey) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signing: encode private key: %w", types.ErrKey)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("signing: encode private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: der}), nil
}

// ParsePrivateKeyPEM decodes a PKCS#8 PEM block holding an Ed25519 key.
func ParsePrivateKeyPEM(data []byte) (PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemPrivateKey {
		return nil, fmt.Errorf("signing: no %s PEM block: %w", pemPrivateKey, types.ErrKey)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("signing: parse private key: %v: %w", err, types.ErrKey)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signing: private key is %T, not Ed25519: %w", key, types.ErrKey)
	}
	return priv, nil
}

// EncodePublicKeyPEM encodes pub as a PKIX PEM block.
func EncodePublicKeyPEM(pub PublicKey) ([]byte, error) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("signing: encode public key: %w", types.ErrKey)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("signing: encode public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPublicKey, Bytes: der}), nil
}

// ParsePublicKeyPEM decodes a PKIX PEM block holding an Ed25519 key.
func ParsePublicKeyPEM(data []byte) (PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemPublicKey {
		return nil, fmt.Errorf("signing: no %s PEM block: %w", pemPublicKey, types.ErrKey)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("signing: parse public key: %v: %w", err, types.ErrKey)
	}
	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("signing: public key is %T, not Ed25519: %w", key, types.ErrKey)
	}
	return pub, nil
}
