package signing_test

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/n1c/signing"
	"github.com/xraph/n1c/types"
)

// deterministic entropy so addresses are stable across runs
func seed(b byte) *bytes.Reader {
	return bytes.NewReader(bytes.Repeat([]byte{b}, 64))
}

func TestSignVerify(t *testing.T) {
	pub, priv, err := signing.GenerateKey(rand.Reader)
	require.NoError(t, err)

	msg := []byte("tx_01h2xcejqtf2nbrexx3vqjhp41|n1c_a|n1c_b|100|0|2024-01-01T00:00:00Z")
	sig, err := signing.Sign(msg, priv)
	require.NoError(t, err)

	assert.True(t, signing.Verify(msg, sig, pub))
	assert.False(t, signing.Verify(append(msg, '!'), sig, pub), "tampered message")

	otherPub, _, err := signing.GenerateKey(rand.Reader)
	require.NoError(t, err)
	assert.False(t, signing.Verify(msg, sig, otherPub), "wrong key")
}

func TestVerifyMalformedNeverPanics(t *testing.T) {
	pub, priv, err := signing.GenerateKey(seed(1))
	require.NoError(t, err)
	msg := []byte("m")
	sig, err := signing.Sign(msg, priv)
	require.NoError(t, err)

	tests := []struct {
		name string
		sig  []byte
		pub  signing.PublicKey
	}{
		{"nil signature", nil, pub},
		{"short signature", sig[:10], pub},
		{"nil key", sig, nil},
		{"short key", sig, pub[:5]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, signing.Verify(msg, tt.sig, tt.pub))
			})
		})
	}
}

func TestSignMalformedKey(t *testing.T) {
	_, err := signing.Sign([]byte("m"), signing.PrivateKey([]byte{1, 2, 3}))
	require.ErrorIs(t, err, types.ErrKey)
}

func TestAddressFromPublicKey(t *testing.T) {
	pub, _, err := signing.GenerateKey(seed(7))
	require.NoError(t, err)

	addr := signing.AddressFromPublicKey(pub)
	assert.True(t, strings.HasPrefix(addr, signing.AddressPrefix))
	assert.Len(t, addr, len(signing.AddressPrefix)+32)
	assert.Equal(t, addr, signing.AddressFromPublicKey(pub), "derivation is deterministic")
	require.NoError(t, signing.ValidateAddress(addr))

	other, _, err := signing.GenerateKey(seed(8))
	require.NoError(t, err)
	assert.NotEqual(t, addr, signing.AddressFromPublicKey(other))
}

func TestValidateAddress(t *testing.T) {
	for _, bad := range []string{"", "n1c_", "abc", "N1C_abc"} {
		assert.ErrorIs(t, signing.ValidateAddress(bad), types.ErrInvalidInput, bad)
	}
	assert.NoError(t, signing.ValidateAddress("n1c_alice"))
}

func TestPEMRoundTrip(t *testing.T) {
	pub, priv, err := signing.GenerateKey(rand.Reader)
	require.NoError(t, err)

	privPEM, err := signing.EncodePrivateKeyPEM(priv)
	require.NoError(t, err)
	assert.Contains(t, string(privPEM), "BEGIN PRIVATE KEY")

	gotPriv, err := signing.ParsePrivateKeyPEM(privPEM)
	require.NoError(t, err)
	assert.Equal(t, priv, gotPriv)

	pubPEM, err := signing.EncodePublicKeyPEM(pub)
	require.NoError(t, err)
	assert.Contains(t, string(pubPEM), "BEGIN PUBLIC KEY")

	gotPub, err := signing.ParsePublicKeyPEM(pubPEM)
	require.NoError(t, err)
	assert.Equal(t, pub, gotPub)
}

func TestParsePEMErrors(t *testing.T) {
	_, err := signing.ParsePrivateKeyPEM([]byte("garbage"))
	assert.ErrorIs(t, err, types.ErrKey)

	_, err = signing.ParsePublicKeyPEM([]byte("garbage"))
	assert.ErrorIs(t, err, types.ErrKey)

	pub, _, err := signing.GenerateKey(rand.Reader)
	require.NoError(t, err)
	pubPEM, err := signing.EncodePublicKeyPEM(pub)
	require.NoError(t, err)
	_, err = signing.ParsePrivateKeyPEM(pubPEM)
	assert.ErrorIs(t, err, types.ErrKey, "public block is not a private key")
}

func TestKeyring(t *testing.T) {
	kr := signing.NewKeyring()

	addr, err := kr.Generate(rand.Reader)
	require.NoError(t, err)

	pub, ok := kr.PublicKey(addr)
	require.True(t, ok)
	assert.Equal(t, addr, signing.AddressFromPublicKey(pub))

	priv, ok := kr.PrivateKey(addr)
	require.True(t, ok)

	msg := []byte("hello")
	sig, err := signing.Sign(msg, priv)
	require.NoError(t, err)
	assert.True(t, signing.Verify(msg, sig, pub))

	_, ok = kr.PublicKey("n1c_unknown")
	assert.False(t, ok)

	otherPub, _, err := signing.GenerateKey(rand.Reader)
	require.NoError(t, err)
	require.NoError(t, kr.AddPublic("n1c_watch", otherPub))
	_, ok = kr.PrivateKey("n1c_watch")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{addr, "n1c_watch"}, kr.Addresses())
}

func TestKeyringSaveLoad(t *testing.T) {
	dir := t.TempDir()

	kr := signing.NewKeyring()
	addr, err := kr.Generate(rand.Reader)
	require.NoError(t, err)
	watchPub, _, err := signing.GenerateKey(rand.Reader)
	require.NoError(t, err)
	require.NoError(t, kr.AddPublic("n1c_watch", watchPub))

	require.NoError(t, kr.Save(dir))

	loaded := signing.NewKeyring()
	require.NoError(t, loaded.Load(dir))
	assert.Equal(t, kr.Addresses(), loaded.Addresses())

	_, ok := loaded.PrivateKey(addr)
	assert.True(t, ok)
	got, ok := loaded.PublicKey("n1c_watch")
	require.True(t, ok)
	assert.Equal(t, watchPub, got)

	require.NoError(t, signing.NewKeyring().Load(dir+"/missing"))
}

func TestKeyResolverFunc(t *testing.T) {
	pub, _, err := signing.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var r signing.KeyResolver = signing.KeyResolverFunc(func(a string) (signing.PublicKey, bool) {
		return pub, a == "n1c_x"
	})
	_, ok := r.PublicKey("n1c_x")
	assert.True(t, ok)
	_, ok = r.PublicKey("n1c_y")
	assert.False(t, ok)
}
