package comm

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptReply struct {
	lines   []string
	timeout bool
}

func respond(lines ...string) scriptReply {
	return scriptReply{lines: lines}
}

func noReply() scriptReply {
	return scriptReply{timeout: true}
}

// scriptTransport serves canned response lines per written command and
// flags any second write issued before the previous exchange resolved.
type scriptTransport struct {
	mu      sync.Mutex
	replies map[string][]scriptReply
	writes  []string
	queue   []string
	active  bool
	overlap bool
	tokens  Tokens
}

func newScriptTransport() *scriptTransport {
	return &scriptTransport{
		replies: make(map[string][]scriptReply),
		tokens:  DefaultTokens(),
	}
}

func (t *scriptTransport) on(cmd string, replies ...scriptReply) *scriptTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies[cmd] = append(t.replies[cmd], replies...)
	return t
}

func (t *scriptTransport) WriteLine(line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = append(t.writes, line)
	if t.active {
		t.overlap = true
	}
	t.active = true
	if rs := t.replies[line]; len(rs) > 0 {
		r := rs[0]
		t.replies[line] = rs[1:]
		if !r.timeout {
			t.queue = append(t.queue, r.lines...)
		}
	}
	return nil
}

func (t *scriptTransport) ReadLine(timeout time.Duration) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.queue) == 0 {
		t.active = false
		return "", ErrTimeout
	}
	line := t.queue[0]
	t.queue = t.queue[1:]
	if ev, ok := t.tokens.Classify(line); ok && ev.Kind != EventData {
		t.active = false
	}
	return line, nil
}

func (t *scriptTransport) Close() error {
	return nil
}

func (t *scriptTransport) writeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.writes)
}

func newTestChannel(tr Transport) *Channel {
	ch := NewChannel(tr, DefaultTokens())
	ch.Timeout = 50 * time.Millisecond
	ch.Settle = -1
	return ch
}

func TestChannelDo(t *testing.T) {
	testCases := []struct {
		name    string
		script  func(*scriptTransport)
		cmd     Command
		res     Result
		err     error
		writes  int
	}{
		{
			name: "simple ok",
			script: func(tr *scriptTransport) {
				tr.on("GET STATUS", respond("OK STATUS READY"))
			},
			cmd:    Command{Text: "GET STATUS"},
			res:    Result{Payload: "STATUS READY"},
			writes: 1,
		},
		{
			name: "data accumulated until terminal",
			script: func(tr *scriptTransport) {
				tr.on("LIST", respond("F84E1776FDB1 LinkBuds", "AABBCCDDEEFF Speaker", "OK"))
			},
			cmd:    Command{Text: "LIST"},
			res:    Result{Data: []string{"F84E1776FDB1 LinkBuds", "AABBCCDDEEFF Speaker"}},
			writes: 1,
		},
		{
			name: "rejection surfaces immediately",
			script: func(tr *scriptTransport) {
				tr.on("PAIR XX", respond("ERROR invalid address"))
			},
			cmd:    Command{Text: "PAIR XX"},
			err:    &CommandError{Message: "invalid address"},
			writes: 1,
		},
		{
			name: "timeout retried then succeeds",
			script: func(tr *scriptTransport) {
				tr.on("PAIR 00:11:22:33:44:55", noReply(), noReply(), respond("OK PAIRED"))
			},
			cmd:    Command{Text: "PAIR 00:11:22:33:44:55"},
			res:    Result{Payload: "PAIRED"},
			writes: 3,
		},
		{
			name: "retry budget exhausted",
			script: func(tr *scriptTransport) {
				tr.on("VERSION", noReply(), noReply(), noReply())
			},
			cmd:    Command{Text: "VERSION"},
			err:    ErrCommandTimeout,
			writes: 3,
		},
		{
			name: "no retry",
			script: func(tr *scriptTransport) {
				tr.on("RESET", noReply())
			},
			cmd:    Command{Text: "RESET", Retries: NoRetry},
			err:    ErrCommandTimeout,
			writes: 1,
		},
		{
			name: "empty lines discarded",
			script: func(tr *scriptTransport) {
				tr.on("STATUS", respond("", "DISCOVERABLE", "", "OK"))
			},
			cmd:    Command{Text: "STATUS"},
			res:    Result{Data: []string{"DISCOVERABLE"}},
			writes: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := newScriptTransport()
			tc.script(tr)
			res, err := newTestChannel(tr).Do(tc.cmd)
			if tc.err != nil {
				require.Equal(t, tc.err, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.res, res)
			}
			require.Equal(t, tc.writes, tr.writeCount())
			require.False(t, tr.overlap, "overlapping exchanges")
		})
	}
}

func TestChannelSerializes(t *testing.T) {
	tr := newScriptTransport()
	for i := 0; i < 16; i++ {
		tr.on(fmt.Sprintf("CMD %d", i), respond("PENDING", fmt.Sprintf("OK %d", i)))
	}
	ch := newTestChannel(tr)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := ch.Do(Command{Text: fmt.Sprintf("CMD %d", i)})
			require.NoError(t, err)
			require.Equal(t, fmt.Sprintf("%d", i), res.Payload)
		}(i)
	}
	wg.Wait()
	require.Equal(t, 16, tr.writeCount())
	require.False(t, tr.overlap, "more than one command in flight")
}

func TestChannelDrainsStaleLines(t *testing.T) {
	tr := newScriptTransport()
	tr.queue = []string{"STALE FROM LAST EXCHANGE"}
	tr.on("VERSION", respond("OK 1.2.0"))

	res, err := newTestChannel(tr).Do(Command{Text: "VERSION"})
	require.NoError(t, err)
	require.Equal(t, "1.2.0", res.Payload)
	require.Empty(t, res.Data)
}
