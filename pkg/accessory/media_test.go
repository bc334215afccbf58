package accessory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// streamingSession returns a session with an established A2DP stream
// and an AVRCP control link.
func streamingSession(t *testing.T, tr *scriptTransport) *Session {
	t.Helper()
	addr := mustAddr(t, "00:11:22:33:44:55")
	tr.on("OPEN "+addr.String()+" A2DP", respond("OPEN_OK 10"))
	tr.on("OPEN "+addr.String()+" AVRCP", respond("OPEN_OK 11"))
	s := pairedSession(t, tr, addr)
	require.NoError(t, s.Audio().Connect(addr))
	return s
}

func TestMediaRefusedWhenNotStreaming(t *testing.T) {
	tr := newScriptTransport()
	s := connectedSession(t, testConfig(), tr)
	m := s.Media()

	before := tr.writeCount()
	for _, call := range []func() error{
		m.Play, m.Pause, m.Stop, m.Next, m.Previous, m.VolumeUp, m.VolumeDown,
		func() error { return m.SetVolume(64) },
	} {
		require.ErrorIs(t, call(), ErrNotStreaming)
	}
	require.Equal(t, before, tr.writeCount(), "refused media calls must write nothing")
}

func TestMediaUsesAVRCPLink(t *testing.T) {
	tr := newScriptTransport()
	s := streamingSession(t, tr)
	tr.onRepeat("MUSIC 11 PLAY", "OK")
	tr.onRepeat("MUSIC 11 PAUSE", "OK")
	tr.onRepeat("AVRCP FORWARD", "OK")

	require.NoError(t, s.Media().Play())
	require.Equal(t, 1, tr.countWrites("MUSIC 11 PLAY"))
	require.NoError(t, s.Media().Pause())
	require.Equal(t, 1, tr.countWrites("MUSIC 11 PAUSE"))
	require.NoError(t, s.Media().Next())
	require.Equal(t, 1, tr.countWrites("AVRCP FORWARD"))
}

func TestMediaFallsBackWithoutAVRCPLink(t *testing.T) {
	tr := newScriptTransport()
	addr := mustAddr(t, "00:11:22:33:44:55")
	tr.on("OPEN "+addr.String()+" A2DP", respond("OPEN_OK 10"))
	s := pairedSession(t, tr, addr)
	require.NoError(t, s.Audio().Connect(addr))

	tr.onRepeat("AVRCP PLAY", "OK")
	require.NoError(t, s.Media().Play())
	require.Equal(t, 1, tr.countWrites("AVRCP PLAY"))
}

func TestMediaSetVolumeClamps(t *testing.T) {
	tr := newScriptTransport()
	s := streamingSession(t, tr)
	tr.onRepeat("VOLUME 11 127", "OK")
	tr.onRepeat("VOLUME 11 0", "OK")

	require.NoError(t, s.Media().SetVolume(900))
	require.Equal(t, 1, tr.countWrites("VOLUME 11 127"))
	require.NoError(t, s.Media().SetVolume(-5))
	require.Equal(t, 1, tr.countWrites("VOLUME 11 0"))
}
