package poller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0xPuncker/chain-gatekeeper/internal/testutil"
	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticNetworks []types.ChainParams

func (s staticNetworks) List() []types.ChainParams { return s }
func (s staticNetworks) Count() int                { return len(s) }
func (s staticNetworks) CustomRPCExistsWith(rpcURL, chainID string) bool {
	return false
}

func chainIDServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPollerConfiguration(t *testing.T) {
	testCases := []struct {
		name     string
		interval time.Duration
	}{
		{"Default interval", 5 * time.Minute},
		{"Short interval", 1 * time.Minute},
		{"Long interval", 1 * time.Hour},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			poller := New(staticNetworks{}, testutil.Logger(), tc.interval, 1000)

			assert.NotNil(t, poller)
			assert.Equal(t, tc.interval, poller.interval)
			assert.Empty(t, poller.Results())
		})
	}
}

func TestPollerUpdateCycle(t *testing.T) {
	healthy := chainIDServer(t, `{"jsonrpc":"2.0","id":1,"result":"0xFA"}`, http.StatusOK)
	mismatch := chainIDServer(t, `{"jsonrpc":"2.0","id":1,"result":"0x1"}`, http.StatusOK)
	failing := chainIDServer(t, `oops`, http.StatusBadGateway)
	rpcError := chainIDServer(t, `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"nope"}}`, http.StatusOK)

	networks := staticNetworks{
		testutil.Chain("a-healthy", "0xfa", healthy.URL),
		testutil.Chain("b-mismatch", "0xfa", mismatch.URL),
		testutil.Chain("c-failing", "0xfa", failing.URL),
		testutil.Chain("d-rpc-error", "0xfa", rpcError.URL),
	}

	poller := New(networks, testutil.Logger(), time.Hour, 2000)
	poller.update(context.Background())

	results := poller.Results()
	require.Len(t, results, 4)

	assert.Equal(t, StatusHealthy, results[0].Status)
	assert.Equal(t, "0xFA", results[0].Reported)

	assert.Equal(t, StatusMismatch, results[1].Status)
	assert.Equal(t, "0x1", results[1].Reported)

	assert.Equal(t, StatusUnreachable, results[2].Status)
	assert.Contains(t, results[2].Error, "502")

	assert.Equal(t, StatusUnreachable, results[3].Status)
	assert.Contains(t, results[3].Error, "nope")
}

func TestPollerDropsRemovedNetworks(t *testing.T) {
	server := chainIDServer(t, `{"jsonrpc":"2.0","id":1,"result":"0xa"}`, http.StatusOK)

	poller := New(staticNetworks{testutil.Chain("op", "0xa", server.URL)}, testutil.Logger(), time.Hour, 2000)
	poller.update(context.Background())
	require.Len(t, poller.Results(), 1)

	poller.networks = staticNetworks{}
	poller.update(context.Background())
	assert.Empty(t, poller.Results())
}

func TestPollerStop(t *testing.T) {
	poller := New(staticNetworks{}, testutil.Logger(), 10*time.Millisecond, 1000)
	poller.Start(context.Background())

	time.Sleep(30 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		poller.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerStopImmediatelyAfterStart(t *testing.T) {
	poller := New(staticNetworks{}, testutil.Logger(), time.Hour, 1000)
	poller.Start(context.Background())
	poller.Stop()
	poller.Stop()
}

func TestPollerStopAbortsInFlightCycle(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	hanging := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(hanging.Close)
	t.Cleanup(func() { close(release) })

	networks := staticNetworks{
		testutil.Chain("a", "0x1", hanging.URL),
		testutil.Chain("b", "0x2", hanging.URL),
		testutil.Chain("c", "0x3", hanging.URL),
	}
	poller := New(networks, testutil.Logger(), time.Hour, 500)
	poller.Start(context.Background())

	time.Sleep(100 * time.Millisecond)

	started := time.Now()
	poller.Stop()
	elapsed := time.Since(started)

	assert.Less(t, elapsed, 300*time.Millisecond)
	assert.Equal(t, int32(1), hits.Load())
	assert.Empty(t, poller.Results())
}
