package approval

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/0xPuncker/chain-gatekeeper/internal/rpc"
	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	chain types.ChainParams
	err   error
}

func newTestController(timeout time.Duration) *Controller {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewController(logger, timeout)
}

func testRequest(origin string) types.ApprovalRequest {
	return types.ApprovalRequest{
		Origin: origin,
		Type:   types.MessageTypeAddEthereumChain,
		RequestData: types.ChainParams{
			ChainID:     "0x89",
			RPCURL:      "https://polygon-rpc.com",
			NetworkName: "Polygon",
			Ticker:      "MATIC",
		},
	}
}

func request(ctx context.Context, c *Controller, req types.ApprovalRequest) <-chan result {
	out := make(chan result, 1)
	go func() {
		chain, err := c.RequestUserApproval(ctx, req)
		out <- result{chain: chain, err: err}
	}()
	return out
}

func waitPending(t *testing.T, c *Controller, n int) []Approval {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(c.Pending()) == n
	}, time.Second, 5*time.Millisecond)
	return c.Pending()
}

func receive(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(time.Second):
		t.Fatal("approval did not resolve")
		return result{}
	}
}

type recordingNotifier struct {
	mu        sync.Mutex
	approvals []Approval
	outcomes  []Outcome
}

func (n *recordingNotifier) NotifyApprovalResolved(a Approval, outcome Outcome) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, outcome)
	return nil
}

func (n *recordingNotifier) NotifyPendingApproval(a Approval) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approvals = append(n.approvals, a)
	return errors.New("ignored")
}

func TestApprove(t *testing.T) {
	c := newTestController(time.Minute)
	notifier := &recordingNotifier{}
	c.AddNotifier(notifier)

	out := request(context.Background(), c, testRequest("https://dapp.example"))
	pending := waitPending(t, c, 1)

	a, ok := c.Get(pending[0].ID)
	require.True(t, ok)
	assert.Equal(t, "https://dapp.example", a.Origin)
	assert.Equal(t, types.MessageTypeAddEthereumChain, a.Type)
	assert.Equal(t, time.Minute, a.ExpiresAt.Sub(a.CreatedAt))

	require.NoError(t, c.Approve(pending[0].ID))

	r := receive(t, out)
	require.NoError(t, r.err)
	assert.Equal(t, "0x89", r.chain.ChainID)
	assert.Empty(t, c.Pending())

	notifier.mu.Lock()
	assert.Len(t, notifier.approvals, 1)
	assert.Equal(t, []Outcome{OutcomeApproved}, notifier.outcomes)
	notifier.mu.Unlock()

	assert.ErrorIs(t, c.Approve(pending[0].ID), ErrNotFound)
	_, ok = c.Get(pending[0].ID)
	assert.False(t, ok)
}

func TestReject(t *testing.T) {
	c := newTestController(time.Minute)
	notifier := &recordingNotifier{}
	c.AddNotifier(notifier)

	out := request(context.Background(), c, testRequest("origin"))
	pending := waitPending(t, c, 1)

	require.NoError(t, c.Reject(pending[0].ID))
	assert.ErrorIs(t, c.Reject(pending[0].ID), ErrNotFound)

	r := receive(t, out)
	require.Error(t, r.err)
	assert.Equal(t, rpc.CodeUserRejected, rpc.AsError(r.err).Code)

	notifier.mu.Lock()
	assert.Equal(t, []Outcome{OutcomeRejected}, notifier.outcomes)
	notifier.mu.Unlock()
}

func TestExpireStale(t *testing.T) {
	c := newTestController(time.Minute)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := base
	c.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	out := request(context.Background(), c, testRequest("origin"))
	waitPending(t, c, 1)

	assert.Equal(t, 0, c.ExpireStale())

	mu.Lock()
	now = base.Add(2 * time.Minute)
	mu.Unlock()

	assert.Equal(t, 1, c.ExpireStale())

	r := receive(t, out)
	require.Error(t, r.err)
	assert.Equal(t, rpc.CodeInternal, rpc.AsError(r.err).Code)
	assert.Contains(t, r.err.Error(), "expired")
}

func TestExpiresWithoutSweeper(t *testing.T) {
	c := newTestController(50 * time.Millisecond)
	notifier := &recordingNotifier{}
	c.AddNotifier(notifier)

	out := request(context.Background(), c, testRequest("origin"))

	r := receive(t, out)
	require.Error(t, r.err)
	assert.Equal(t, rpc.CodeInternal, rpc.AsError(r.err).Code)
	assert.Contains(t, r.err.Error(), "expired")
	assert.Empty(t, c.Pending())

	notifier.mu.Lock()
	assert.Equal(t, []Outcome{OutcomeExpired}, notifier.outcomes)
	notifier.mu.Unlock()
}

func TestContextCancel(t *testing.T) {
	c := newTestController(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	out := request(ctx, c, testRequest("origin"))
	waitPending(t, c, 1)
	cancel()

	r := receive(t, out)
	assert.ErrorIs(t, r.err, context.Canceled)
	assert.Empty(t, c.Pending())
}

func TestPendingOrder(t *testing.T) {
	c := newTestController(0)
	assert.Equal(t, 5*time.Minute, c.Timeout())

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	c.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	first := request(context.Background(), c, testRequest("first"))
	waitPending(t, c, 1)
	second := request(context.Background(), c, testRequest("second"))
	pending := waitPending(t, c, 2)

	assert.Equal(t, "first", pending[0].Origin)
	assert.Equal(t, "second", pending[1].Origin)

	for _, a := range pending {
		require.NoError(t, c.Approve(a.ID))
	}
	assert.NoError(t, receive(t, first).err)
	assert.NoError(t, receive(t, second).err)
}
