package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rpggio/dirstream/internal/client"
	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/rpggio/dirstream/internal/metrics"
	"github.com/rpggio/dirstream/internal/testserver"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, ts *testserver.TestServer) *client.Adapter {
	t.Helper()
	a := client.NewAdapter(client.NewRemoteTransport(ts.HubURL(), client.RemoteOptions{}), nil)
	require.NoError(t, a.Connect(context.Background()))
	t.Cleanup(func() { _ = a.Disconnect() })
	return a
}

func TestIntegration_UsersEndToEnd(t *testing.T) {
	ts := testserver.New(t, testserver.Options{Pacing: time.Millisecond})
	acc := client.NewUserAccumulator(connect(t, ts))

	require.NoError(t, acc.Collect(context.Background()))

	snap := acc.Snapshot()
	require.Equal(t, directory.SampleUsers(), snap.Items)
	require.Equal(t, 5, snap.Progress.Current)
	require.Equal(t, 5, *snap.Progress.Total)
	require.False(t, snap.IsStreaming)
	require.NoError(t, snap.Error)
	require.Equal(t, client.PhaseCompleted, acc.Phase())

	// the server records the outcome after the terminal envelope is written
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(ts.Metrics.StreamsTotal.WithLabelValues("users", metrics.OutcomeCompleted)) == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, float64(5), testutil.ToFloat64(ts.Metrics.ChunksSent.WithLabelValues("users")))
}

func TestIntegration_ProjectOwnersRoundTrip(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})
	acc := client.NewProjectAccumulator(connect(t, ts))

	require.NoError(t, acc.Collect(context.Background()))

	got := acc.Snapshot().Items
	want := directory.SampleProjects()
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].Owner, got[i].Owner)
		require.NoError(t, got[i].Validate())
	}
}

func TestIntegration_SequentialStreamsOnOneConnection(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})
	a := connect(t, ts)

	users := client.NewUserAccumulator(a)
	projects := client.NewProjectAccumulator(a)
	require.NoError(t, users.Collect(context.Background()))
	require.NoError(t, projects.Collect(context.Background()))
	require.NoError(t, users.Collect(context.Background()))

	require.Len(t, users.Snapshot().Items, 5)
	require.Len(t, projects.Snapshot().Items, 3)
}

func TestIntegration_ConcurrentConnectionsAreIndependent(t *testing.T) {
	ts := testserver.New(t, testserver.Options{Pacing: 5 * time.Millisecond})

	first := client.NewUserAccumulator(connect(t, ts))
	second := client.NewProjectAccumulator(connect(t, ts))

	errs := make(chan error, 2)
	go func() { errs <- first.Collect(context.Background()) }()
	go func() { errs <- second.Collect(context.Background()) }()
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	require.Equal(t, directory.SampleUsers(), first.Snapshot().Items)
	require.Equal(t, directory.SampleProjects(), second.Snapshot().Items)
}

func TestIntegration_DisconnectCancelsStream(t *testing.T) {
	ts := testserver.New(t, testserver.Options{Pacing: 50 * time.Millisecond})

	ws, _, err := websocket.DefaultDialer.Dial(ts.HubURL(), nil)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "startStream",
		"params":  map[string]any{"kind": "users"},
	}))

	// the ack arrives first, then at least one chunk
	for i := 0; i < 2; i++ {
		_, _, err := ws.ReadMessage()
		require.NoError(t, err)
	}
	require.NoError(t, ws.Close())

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(ts.Metrics.StreamsTotal.WithLabelValues("users", metrics.OutcomeCancelled)) == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return ts.Hub.Connections() == 0 }, 5*time.Second, 10*time.Millisecond)
	require.Less(t, testutil.ToFloat64(ts.Metrics.ChunksSent.WithLabelValues("users")), float64(5))
}
