package accessory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// pairedSession returns a connected session paired with addr.
func pairedSession(t *testing.T, tr *scriptTransport, addr Address) *Session {
	t.Helper()
	tr.on("PAIR "+addr.String(), respond("OK PAIRED"))
	s := connectedSession(t, testConfig(), tr)
	require.NoError(t, s.Discovery().Pair(addr))
	return s
}

func TestAudioConnectRequiresExactPairing(t *testing.T) {
	tr := newScriptTransport()
	s := connectedSession(t, testConfig(), tr)
	addr := mustAddr(t, "00:11:22:33:44:55")

	var stateErr *StateError
	before := tr.writeCount()
	require.ErrorAs(t, s.Audio().Connect(addr), &stateErr)
	require.Equal(t, before, tr.writeCount(), "refusal must not touch the wire")
}

func TestAudioConnectWrongAddress(t *testing.T) {
	tr := newScriptTransport()
	addr := mustAddr(t, "00:11:22:33:44:55")
	s := pairedSession(t, tr, addr)

	var stateErr *StateError
	require.ErrorAs(t, s.Audio().Connect(mustAddr(t, "AA:BB:CC:DD:EE:FF")), &stateErr)
}

func TestAudioConnectAfterUnpairRejected(t *testing.T) {
	tr := newScriptTransport()
	addr := mustAddr(t, "00:11:22:33:44:55")
	tr.on("UNPAIR "+addr.String(), respond("OK"))
	s := pairedSession(t, tr, addr)
	require.NoError(t, s.Discovery().Unpair(addr))

	var stateErr *StateError
	before := tr.writeCount()
	require.ErrorAs(t, s.Audio().Connect(addr), &stateErr)
	require.Equal(t, before, tr.writeCount())
}

func TestAudioConnectStreams(t *testing.T) {
	tr := newScriptTransport()
	addr := mustAddr(t, "00:11:22:33:44:55")
	tr.on("OPEN "+addr.String()+" A2DP", respond("PENDING", "OPEN_OK 12"))
	tr.on("OPEN "+addr.String()+" AVRCP", respond("OPEN_OK 13"))
	s := pairedSession(t, tr, addr)

	require.NoError(t, s.Audio().Connect(addr))
	st, target := s.Audio().State()
	require.Equal(t, Streaming, st)
	require.Equal(t, addr, target)

	avrcp, streaming := s.Audio().streamingLinks()
	require.True(t, streaming)
	require.Equal(t, "13", avrcp)
}

func TestAudioConnectWithoutAVRCP(t *testing.T) {
	tr := newScriptTransport()
	addr := mustAddr(t, "00:11:22:33:44:55")
	tr.on("OPEN "+addr.String()+" A2DP", respond("OPEN_OK"))
	// AVRCP open is unscripted and times out; the stream still comes up.
	s := pairedSession(t, tr, addr)

	require.NoError(t, s.Audio().Connect(addr))
	st, _ := s.Audio().State()
	require.Equal(t, Streaming, st)

	avrcp, streaming := s.Audio().streamingLinks()
	require.True(t, streaming)
	require.Empty(t, avrcp)
}

func TestAudioConnectFailureReturnsIdle(t *testing.T) {
	tr := newScriptTransport()
	addr := mustAddr(t, "00:11:22:33:44:55")
	tr.on("OPEN "+addr.String()+" A2DP", respond("ERROR no such device"))
	s := pairedSession(t, tr, addr)

	require.Error(t, s.Audio().Connect(addr))
	st, target := s.Audio().State()
	require.Equal(t, AudioIdle, st)
	require.True(t, target.IsZero())
}

func TestAudioDisconnect(t *testing.T) {
	tr := newScriptTransport()
	addr := mustAddr(t, "00:11:22:33:44:55")
	tr.on("OPEN "+addr.String()+" A2DP", respond("OPEN_OK 10"))
	tr.on("OPEN "+addr.String()+" AVRCP", respond("OPEN_OK 11"))
	tr.on("CLOSE 10", respond("OK"))
	tr.on("CLOSE 11", respond("OK"))
	s := pairedSession(t, tr, addr)
	require.NoError(t, s.Audio().Connect(addr))

	require.NoError(t, s.Audio().Disconnect())
	st, _ := s.Audio().State()
	require.Equal(t, AudioIdle, st)
	require.Equal(t, 1, tr.countWrites("CLOSE 10"))
	require.Equal(t, 1, tr.countWrites("CLOSE 11"))

	// From idle it is a no-op.
	before := tr.writeCount()
	require.NoError(t, s.Audio().Disconnect())
	require.Equal(t, before, tr.writeCount())
}

func TestDisconnectForcesAudioIdle(t *testing.T) {
	tr := newScriptTransport()
	addr := mustAddr(t, "00:11:22:33:44:55")
	tr.on("OPEN "+addr.String()+" A2DP", respond("OPEN_OK 10"))
	tr.on("OPEN "+addr.String()+" AVRCP", respond("OPEN_OK 11"))
	s := pairedSession(t, tr, addr)
	require.NoError(t, s.Audio().Connect(addr))

	require.NoError(t, s.Disconnect())
	st, _ := s.Audio().State()
	require.Equal(t, AudioIdle, st)
}
