package signing

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/renameio"
	"golang.org/x/crypto/ed25519"

	"github.com/xraph/n1c/types"
)

// KeyResolver maps an account address to the public key that authorizes
// spending from it.
type KeyResolver interface {
	PublicKey(address string) (PublicKey, bool)
}

// KeyResolverFunc adapts a function to KeyResolver.
type KeyResolverFunc func(address string) (PublicKey, bool)

// PublicKey implements KeyResolver.
func (f KeyResolverFunc) PublicKey(address string) (PublicKey, bool) { return f(address) }

// Keyring is an in-memory KeyResolver. It can also hold private keys for
// wallets created on this node. Safe for concurrent use.
type Keyring struct {
	mu      sync.RWMutex
	public  map[string]PublicKey
	private map[string]PrivateKey
}

// NewKeyring returns an empty keyring.
func NewKeyring() *Keyring {
	return &Keyring{
		public:  make(map[string]PublicKey),
		private: make(map[string]PrivateKey),
	}
}

// Compile-time check.
var _ KeyResolver = (*Keyring)(nil)

// Generate creates a key pair, stores both halves, and returns the derived address.
func (k *Keyring) Generate(rand io.Reader) (string, error) {
	_, priv, err := GenerateKey(rand)
	if err != nil {
		return "", err
	}
	return k.Add(priv)
}

// Add stores priv and its public half under the derived address.
func (k *Keyring) Add(priv PrivateKey) (string, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("signing: keyring add: %w", types.ErrKey)
	}
	pub, ok := priv.Public().(PublicKey)
	if !ok {
		return "", fmt.Errorf("signing: keyring add: %w", types.ErrKey)
	}
	addr := AddressFromPublicKey(pub)

	k.mu.Lock()
	defer k.mu.Unlock()
	k.public[addr] = pub
	k.private[addr] = priv
	return addr, nil
}

// AddPublic registers pub for address without a private key.
func (k *Keyring) AddPublic(address string, pub PublicKey) error {
	if err := ValidateAddress(address); err != nil {
		return err
	}
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("signing: keyring add public: %w", types.ErrKey)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.public[address] = pub
	return nil
}

// PublicKey implements KeyResolver.
func (k *Keyring) PublicKey(address string) (PublicKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	pub, ok := k.public[address]
	return pub, ok
}

// PrivateKey returns the private key held for address, if any.
func (k *Keyring) PrivateKey(address string) (PrivateKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	priv, ok := k.private[address]
	return priv, ok
}

// Addresses returns every address with a known public key, sorted.
func (k *Keyring) Addresses() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]string, 0, len(k.public))
	for addr := range k.public {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Key file suffixes used by Save and Load.
const (
	privateKeySuffix = ".key"
	publicKeySuffix  = ".pub"
)

// Save writes every key to dir as <address>.key (PKCS#8) and <address>.pub
// (PKIX). Each file is replaced atomically.
func (k *Keyring) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("signing: keyring save: %w", err)
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	for addr, pub := range k.public {
		data, err := EncodePublicKeyPEM(pub)
		if err != nil {
			return err
		}
		if err := renameio.WriteFile(filepath.Join(dir, addr+publicKeySuffix), data, 0o644); err != nil {
			return fmt.Errorf("signing: keyring save %s: %w", addr, err)
		}
	}
	for addr, priv := range k.private {
		data, err := EncodePrivateKeyPEM(priv)
		if err != nil {
			return err
		}
		if err := renameio.WriteFile(filepath.Join(dir, addr+privateKeySuffix), data, 0o600); err != nil {
			return fmt.Errorf("signing: keyring save %s: %w", addr, err)
		}
	}
	return nil
}

// Load reads keys previously written by Save. A missing dir is not an error.
func (k *Keyring) Load(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("signing: keyring load: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("signing: keyring load %s: %w", name, err)
		}

		switch {
		case strings.HasSuffix(name, privateKeySuffix):
			priv, err := ParsePrivateKeyPEM(data)
			if err != nil {
				return fmt.Errorf("signing: keyring load %s: %w", name, err)
			}
			if _, err := k.Add(priv); err != nil {
				return err
			}
		case strings.HasSuffix(name, publicKeySuffix):
			pub, err := ParsePublicKeyPEM(data)
			if err != nil {
				return fmt.Errorf("signing: keyring load %s: %w", name, err)
			}
			if err := k.AddPublic(strings.TrimSuffix(name, publicKeySuffix), pub); err != nil {
				return err
			}
		}
	}
	return nil
}
