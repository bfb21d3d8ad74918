package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionKeyEstablishAndRoundtrip(t *testing.T) {
	alice, err := NewSessionKey()
	require.NoError(t, err)
	bob, err := NewSessionKey()
	require.NoError(t, err)

	require.NoError(t, alice.Establish(bob.EphemeralPublic()))
	require.NoError(t, bob.Establish(alice.EphemeralPublic()))

	ct, err := alice.Encrypt([]byte("hello aex"))
	require.NoError(t, err)

	pt, err := bob.Decrypt(ct)
	require.NoError(t, err)
	require.Equal(t, "hello aex", string(pt))
}

func TestSessionKeyEstablishTwiceFails(t *testing.T) {
	alice, err := NewSessionKey()
	require.NoError(t, err)
	bob, err := NewSessionKey()
	require.NoError(t, err)

	require.NoError(t, alice.Establish(bob.EphemeralPublic()))
	err = alice.Establish(bob.EphemeralPublic())
	require.Error(t, err)
}

func TestSessionKeyEncryptBeforeEstablishFails(t *testing.T) {
	sk, err := NewSessionKey()
	require.NoError(t, err)
	_, err = sk.Encrypt([]byte("nope"))
	require.Error(t, err)
}

func TestSessionKeyDecryptShortCiphertextFails(t *testing.T) {
	alice, err := NewSessionKey()
	require.NoError(t, err)
	bob, err := NewSessionKey()
	require.NoError(t, err)
	require.NoError(t, alice.Establish(bob.EphemeralPublic()))

	_, err = alice.Decrypt([]byte("short"))
	require.Error(t, err)
}
