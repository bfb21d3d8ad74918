package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionKeyManagerFullLifecycle(t *testing.T) {
	clientMgr := NewSessionKeyManager(16)
	serverMgr := NewSessionKeyManager(16)

	clientID, clientPub, err := clientMgr.Create()
	require.NoError(t, err)
	serverID, serverPub, err := serverMgr.Create()
	require.NoError(t, err)

	require.NoError(t, clientMgr.Save(clientID, clientID))
	require.NoError(t, serverMgr.Save(serverID, serverID))

	require.NoError(t, clientMgr.SessionEstablish(clientID, serverPub))
	require.NoError(t, serverMgr.SessionEstablish(serverID, clientPub))

	ct, err := clientMgr.Encrypt(clientID, []byte("ping"))
	require.NoError(t, err)

	pt, err := serverMgr.Decrypt(serverID, ct)
	require.NoError(t, err)
	require.Equal(t, "ping", string(pt))
}

func TestSessionKeyManagerSaveRekeysUnderDifferentID(t *testing.T) {
	mgr := NewSessionKeyManager(16)
	tempID, _, err := mgr.Create()
	require.NoError(t, err)

	mainID := "confirmed-session-id"
	require.NoError(t, mgr.Save(tempID, mainID))

	_, err = mgr.Encrypt(tempID, []byte("x"))
	require.Error(t, err, "temp id must not resolve in main store")

	_, err = mgr.lookup(mainID)
	require.NoError(t, err, "entry must be reachable under its new id")
}

func TestSessionKeyManagerSaveMissingTempFails(t *testing.T) {
	mgr := NewSessionKeyManager(16)
	err := mgr.Save("nonexistent", "nonexistent")
	require.Error(t, err)
}

func TestSessionKeyManagerLookupMissingFails(t *testing.T) {
	mgr := NewSessionKeyManager(16)
	_, err := mgr.Encrypt("nonexistent", []byte("x"))
	require.Error(t, err)
}

func TestSessionKeyManagerRejectsReplayedNonce(t *testing.T) {
	clientMgr := NewSessionKeyManager(16)
	serverMgr := NewSessionKeyManager(16)

	clientID, clientPub, err := clientMgr.Create()
	require.NoError(t, err)
	serverID, serverPub, err := serverMgr.Create()
	require.NoError(t, err)
	require.NoError(t, clientMgr.Save(clientID, clientID))
	require.NoError(t, serverMgr.Save(serverID, serverID))
	require.NoError(t, clientMgr.SessionEstablish(clientID, serverPub))
	require.NoError(t, serverMgr.SessionEstablish(serverID, clientPub))

	ct, err := clientMgr.Encrypt(clientID, []byte("once"))
	require.NoError(t, err)

	_, err = serverMgr.Decrypt(serverID, ct)
	require.NoError(t, err)

	_, err = serverMgr.Decrypt(serverID, ct)
	require.Error(t, err)
}

func TestSessionKeyManagerCleanupDropsExpired(t *testing.T) {
	mgr := NewSessionKeyManager(16)
	id, _, err := mgr.Create()
	require.NoError(t, err)
	require.NoError(t, mgr.Save(id, id))
	require.Equal(t, 1, mgr.Len())

	mgr.Cleanup(0)
	require.Equal(t, 0, mgr.Len())
}
