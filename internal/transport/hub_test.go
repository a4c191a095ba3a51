package transport

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/rpggio/dirstream/internal/domain/stream"
	"github.com/rpggio/dirstream/internal/metrics"
	"github.com/stretchr/testify/require"
)

type hubFixture struct {
	server  *httptest.Server
	hub     *Hub
	metrics *metrics.Metrics
}

func newHubFixture(t *testing.T, pacing time.Duration) *hubFixture {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	source := stream.NewSource(directory.NewSampleRepository(), pacing, nil)
	hub := NewHub(stream.NewHandler(source, m, nil), nil)
	server := httptest.NewServer(NewServer(Options{Hub: hub}))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return &hubFixture{server: server, hub: hub, metrics: m}
}

func (f *hubFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/hub"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func read(t *testing.T, ws *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	msg, err := ParseMessage(data)
	require.NoError(t, err)
	return msg
}

func TestHub_StreamUsersAckFirst(t *testing.T) {
	f := newHubFixture(t, time.Millisecond)
	ws := f.dial(t)

	send(t, ws, `{"jsonrpc":"2.0","method":"startStream","params":{"kind":"users"},"id":1}`)

	ack := read(t, ws)
	require.False(t, ack.IsNotification())
	require.Nil(t, ack.Error)
	require.JSONEq(t, `1`, string(ack.ID))
	require.JSONEq(t, `{"accepted":true}`, string(ack.Result))

	want := directory.SampleUsers()
	for i := range want {
		msg := read(t, ws)
		require.True(t, msg.IsNotification())
		require.Equal(t, stream.EventUserChunk, msg.Method)

		var chunk stream.Chunk[directory.User]
		require.NoError(t, json.Unmarshal(msg.Params, &chunk))
		require.Equal(t, i, chunk.ChunkIndex)
		require.Equal(t, len(want), *chunk.TotalChunks)
		require.Equal(t, want[i], *chunk.Data)
		require.Equal(t, i == len(want)-1, chunk.IsComplete)
	}
}

func TestHub_StreamProjectsKeepsOwner(t *testing.T) {
	f := newHubFixture(t, 0)
	ws := f.dial(t)

	send(t, ws, `{"jsonrpc":"2.0","method":"startStream","params":{"kind":"projects"},"id":"a"}`)
	read(t, ws)

	users := directory.SampleUsers()
	for i := 0; i < 3; i++ {
		msg := read(t, ws)
		require.Equal(t, stream.EventProjectChunk, msg.Method)
		var chunk stream.Chunk[directory.Project]
		require.NoError(t, json.Unmarshal(msg.Params, &chunk))
		require.Contains(t, users, chunk.Data.Owner)
	}
}

func TestHub_InvalidRequests(t *testing.T) {
	f := newHubFixture(t, 0)
	ws := f.dial(t)

	tests := []struct {
		name  string
		frame string
		code  int
	}{
		{name: "not json", frame: `{nope`, code: ErrParseCode},
		{name: "missing method", frame: `{"jsonrpc":"2.0","id":1}`, code: ErrInvalidReq},
		{name: "unknown method", frame: `{"jsonrpc":"2.0","method":"explode","id":2}`, code: ErrMethodNotFound},
		{name: "unknown kind", frame: `{"jsonrpc":"2.0","method":"startStream","params":{"kind":"tasks"},"id":3}`, code: ErrInvalidParams},
		{name: "bad params", frame: `{"jsonrpc":"2.0","method":"startStream","params":[1],"id":4}`, code: ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, ws, tt.frame)
			msg := read(t, ws)
			require.NotNil(t, msg.Error)
			require.Equal(t, tt.code, msg.Error.Code)
		})
	}
}

func TestHub_Ping(t *testing.T) {
	f := newHubFixture(t, 0)
	ws := f.dial(t)

	send(t, ws, `{"jsonrpc":"2.0","method":"ping","id":9}`)
	msg := read(t, ws)
	require.Nil(t, msg.Error)

	var result PingResult
	require.NoError(t, json.Unmarshal(msg.Result, &result))
	require.NotEmpty(t, result.Timestamp)
}

func TestHub_StopStream(t *testing.T) {
	f := newHubFixture(t, 100*time.Millisecond)
	ws := f.dial(t)

	send(t, ws, `{"jsonrpc":"2.0","method":"startStream","params":{"kind":"users"},"id":1}`)
	read(t, ws)

	// materialization takes four pacing intervals, so the stop lands before any chunk
	send(t, ws, `{"jsonrpc":"2.0","method":"stopStream","id":2}`)
	msg := read(t, ws)
	require.JSONEq(t, `2`, string(msg.ID))
	require.Nil(t, msg.Error)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := ws.ReadMessage()
	require.Error(t, err, "no envelope may follow a stopped stream")

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.StreamsTotal.WithLabelValues("users", metrics.OutcomeCancelled)) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_StartRightAfterStop(t *testing.T) {
	f := newHubFixture(t, 10*time.Millisecond)
	ws := f.dial(t)

	send(t, ws, `{"jsonrpc":"2.0","method":"startStream","params":{"kind":"users"},"id":1}`)
	require.JSONEq(t, `1`, string(read(t, ws).ID))

	// both frames go out without waiting for the stop reply
	send(t, ws, `{"jsonrpc":"2.0","method":"stopStream","id":2}`)
	send(t, ws, `{"jsonrpc":"2.0","method":"startStream","params":{"kind":"users"},"id":3}`)

	var chunks []stream.Chunk[directory.User]
	for {
		msg := read(t, ws)
		if !msg.IsNotification() {
			require.Nil(t, msg.Error)
			continue
		}
		var chunk stream.Chunk[directory.User]
		require.NoError(t, json.Unmarshal(msg.Params, &chunk))
		require.False(t, chunk.Failed(), "restart rejected: %s", chunk.ErrorMessage())
		chunks = append(chunks, chunk)
		if chunk.IsComplete {
			break
		}
	}
	require.Len(t, chunks, 5)
	require.Equal(t, 4, chunks[4].ChunkIndex)
}

func TestHub_DisconnectClosesSession(t *testing.T) {
	f := newHubFixture(t, 50*time.Millisecond)
	ws := f.dial(t)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.SessionsActive) == 1
	}, time.Second, 5*time.Millisecond)

	send(t, ws, `{"jsonrpc":"2.0","method":"startStream","params":{"kind":"users"},"id":1}`)
	read(t, ws)
	require.NoError(t, ws.Close())

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.SessionsActive) == 0 && f.hub.Connections() == 0
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.StreamsTotal.WithLabelValues("users", metrics.OutcomeCancelled)) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
