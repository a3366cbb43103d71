package session

import (
	"testing"

	"github.com/objectstream/crudfs/internal/log_service/logrus"
	"github.com/objectstream/crudfs/internal/objectstore/inmemory"
	"github.com/objectstream/crudfs/internal/server"
	"github.com/objectstream/crudfs/internal/wire"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) string {
	t.Helper()
	ls := logruslog.NewLogrusLogService("test", "ERROR")
	srv := server.NewDefaultServer("127.0.0.1:0", inmemory.NewInMemoryObjectStore(), ls)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })
	return srv.Address()
}

func newSession(t *testing.T, addr string) *DefaultSession {
	t.Helper()
	return NewDefaultSession(addr, logruslog.NewLogrusLogService("test", "ERROR"))
}

func TestLazyConnectOnFirstRequest(t *testing.T) {
	sess := newSession(t, startServer(t))
	require.False(t, sess.Connected())

	_, err := sess.Request(wire.OpFormat, 0, 0, wire.FlagNone, nil)
	require.NoError(t, err)
	require.True(t, sess.Connected())
}

func TestEnsureConnectedIsIdempotent(t *testing.T) {
	sess := newSession(t, startServer(t))

	require.NoError(t, sess.EnsureConnected())
	require.True(t, sess.Connected())
	require.NoError(t, sess.EnsureConnected())
	require.True(t, sess.Connected())
}

func TestCloseTearsDownAndReconnects(t *testing.T) {
	sess := newSession(t, startServer(t))

	_, err := sess.Request(wire.OpClose, 0, 0, wire.FlagNone, nil)
	require.NoError(t, err)
	require.False(t, sess.Connected())

	// The next operation reconnects transparently.
	_, err = sess.Request(wire.OpFormat, 0, 0, wire.FlagNone, nil)
	require.NoError(t, err)
	require.True(t, sess.Connected())
}

func TestProtocolFailureSurfaces(t *testing.T) {
	sess := newSession(t, startServer(t))

	buf := make([]byte, 16)
	resp, err := sess.Request(wire.OpRead, 9999, 16, wire.FlagNone, buf)
	require.ErrorIs(t, err, ErrProtocolFailure)
	require.Equal(t, wire.ResultFailure, resp.Result)

	// A rejected request does not kill the session.
	require.True(t, sess.Connected())
	_, err = sess.Request(wire.OpFormat, 0, 0, wire.FlagNone, nil)
	require.NoError(t, err)
}

func TestConnectionFailure(t *testing.T) {
	sess := newSession(t, "127.0.0.1:1")

	err := sess.EnsureConnected()
	require.ErrorIs(t, err, ErrConnectionFailed)
	require.False(t, sess.Connected())
}

func TestRoundTripData(t *testing.T) {
	sess := newSession(t, startServer(t))

	payload := []byte("directory contents")
	created, err := sess.Request(wire.OpCreate, 0, uint32(len(payload)), wire.FlagPriorityObject, payload)
	require.NoError(t, err)
	require.NotZero(t, created.ObjectID)

	buf := make([]byte, len(payload))
	resp, err := sess.Request(wire.OpRead, 0, uint32(len(payload)), wire.FlagPriorityObject, buf)
	require.NoError(t, err)
	require.Equal(t, uint32(len(payload)), resp.Length)
	require.Equal(t, payload, buf)
}
