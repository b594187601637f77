package heartbeatclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bsbds/xline-operator-go/pkg/heartbeat"
	"github.com/bsbds/xline-operator-go/pkg/heartbeatclient"
)

func TestProbeIncludesSelfAndReachablePeers(t *testing.T) {
	peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer peer.Close()

	prober := heartbeatclient.New("self", map[string]string{"peer": strings.TrimPrefix(peer.URL, "http://")}, "", time.Second)

	report, err := prober.Probe(context.Background())
	require.NoError(t, err)
	require.Contains(t, report.ReachableIDs, "self")
	require.Contains(t, report.ReachableIDs, "peer")
}

func TestProbeExcludesUnreachablePeers(t *testing.T) {
	prober := heartbeatclient.New("self", map[string]string{"peer": "127.0.0.1:1"}, "", 50*time.Millisecond)

	report, err := prober.Probe(context.Background())
	require.NoError(t, err)
	require.Contains(t, report.ReachableIDs, "self")
	require.NotContains(t, report.ReachableIDs, "peer")
}

func TestSendHeartbeatPostsToIngestionEndpoint(t *testing.T) {
	ch := make(chan heartbeat.Report, 1)
	srv := heartbeat.NewServer(ch)
	mux := http.NewServeMux()
	srv.AttachTo(mux, "/status")
	ts := httptest.NewServer(mux)
	defer ts.Close()

	prober := heartbeatclient.New("self", nil, strings.TrimPrefix(ts.URL, "http://"), time.Second)
	err := prober.SendHeartbeat(context.Background(), heartbeat.Report{ID: "self", Timestamp: 42, ReachableIDs: []string{"self"}})
	require.NoError(t, err)

	select {
	case got := <-ch:
		require.Equal(t, "self", got.ID)
		require.Equal(t, uint64(42), got.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("heartbeat was not received")
	}
}
