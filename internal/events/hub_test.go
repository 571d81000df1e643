package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/0xPuncker/chain-gatekeeper/internal/approval"
	"github.com/0xPuncker/chain-gatekeeper/internal/testutil"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 5*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var e Event
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

func TestHubStreamsEvents(t *testing.T) {
	hub := NewHub(testutil.Logger())
	conn := dialHub(t, hub)

	a := approval.Approval{ID: "abc", Origin: "https://dapp.example"}
	require.NoError(t, hub.NotifyPendingApproval(a))
	require.NoError(t, hub.NotifyApprovalResolved(a, approval.OutcomeApproved))
	require.NoError(t, hub.NotifyNetworkAdded(testutil.Chain("optimism", "0xa", "https://mainnet.optimism.io")))

	e := readEvent(t, conn)
	assert.Equal(t, TypeApprovalPending, e.Type)
	require.NotNil(t, e.Approval)
	assert.Equal(t, "abc", e.Approval.ID)
	assert.False(t, e.Time.IsZero())

	e = readEvent(t, conn)
	assert.Equal(t, TypeApprovalResolved, e.Type)
	assert.Equal(t, approval.OutcomeApproved, e.Outcome)

	e = readEvent(t, conn)
	assert.Equal(t, TypeNetworkAdded, e.Type)
	require.NotNil(t, e.Network)
	assert.Equal(t, "0xa", e.Network.ChainID)
}

func TestHubRemovesClosedClient(t *testing.T) {
	hub := NewHub(testutil.Logger())
	conn := dialHub(t, hub)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(testutil.Logger())
	slow := &client{send: make(chan []byte)}
	hub.clients[slow] = struct{}{}

	require.NoError(t, hub.Publish(Event{Type: TypeNetworkAdded}))
	assert.Equal(t, 0, hub.ClientCount())

	_, open := <-slow.send
	assert.False(t, open)
}

func TestHubClose(t *testing.T) {
	hub := NewHub(testutil.Logger())
	conn := dialHub(t, hub)

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
