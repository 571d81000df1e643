package approval

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/0xPuncker/chain-gatekeeper/internal/rpc"
	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("approval not found")

// Notifier is told about every new pending approval.
type Notifier interface {
	NotifyPendingApproval(a Approval) error
}

// ResolutionNotifier is an optional extension of Notifier that is also
// told how each approval ended.
type ResolutionNotifier interface {
	NotifyApprovalResolved(a Approval, outcome Outcome) error
}

type Outcome string

const (
	OutcomeApproved  Outcome = "approved"
	OutcomeRejected  Outcome = "rejected"
	OutcomeExpired   Outcome = "expired"
	OutcomeCancelled Outcome = "cancelled"
)

// Approval is a request waiting for the user.
type Approval struct {
	ID          string            `json:"id"`
	Origin      string            `json:"origin"`
	Type        string            `json:"type"`
	RequestData types.ChainParams `json:"requestData"`
	CreatedAt   time.Time         `json:"createdAt"`
	ExpiresAt   time.Time         `json:"expiresAt"`
}

type decision struct {
	outcome Outcome
	err     error
}

type pending struct {
	approval Approval
	result   chan decision
}

// Controller holds pending approvals until the user approves or rejects
// them, or they expire.
type Controller struct {
	mu        sync.Mutex
	pending   map[string]*pending
	timeout   time.Duration
	logger    *logrus.Logger
	notifiers []Notifier
	now       func() time.Time
}

func NewController(logger *logrus.Logger, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Controller{
		pending: make(map[string]*pending),
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// AddNotifier registers n for pending approvals. Call before serving.
func (c *Controller) AddNotifier(n Notifier) {
	c.notifiers = append(c.notifiers, n)
}

func (c *Controller) Timeout() time.Duration {
	return c.timeout
}

// RequestUserApproval blocks until the request is approved, rejected,
// expired or ctx is done. A request expires after the controller timeout
// even when nothing calls ExpireStale. On approval it returns the
// approved network.
func (c *Controller) RequestUserApproval(ctx context.Context, req types.ApprovalRequest) (types.ChainParams, error) {
	id, err := newID()
	if err != nil {
		return types.ChainParams{}, err
	}

	now := c.now()
	p := &pending{
		approval: Approval{
			ID:          id,
			Origin:      req.Origin,
			Type:        req.Type,
			RequestData: req.RequestData,
			CreatedAt:   now,
			ExpiresAt:   now.Add(c.timeout),
		},
		result: make(chan decision, 1),
	}

	c.mu.Lock()
	c.pending[id] = p
	c.mu.Unlock()

	logger := c.logger.WithFields(logrus.Fields{
		"approval_id": id,
		"origin":      req.Origin,
		"type":        req.Type,
	})
	logger.Info("Approval requested")

	for _, n := range c.notifiers {
		if err := n.NotifyPendingApproval(p.approval); err != nil {
			logger.Warnf("Failed to send approval notification: %v", err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d decision
	select {
	case d = <-p.result:
	case <-waitCtx.Done():
		// Lost the race if the user answered first; take their answer.
		if ctx.Err() != nil {
			_ = c.resolve(id, decision{outcome: OutcomeCancelled, err: ctx.Err()})
		} else {
			_ = c.resolve(id, expiredDecision())
		}
		d = <-p.result
	}

	for _, n := range c.notifiers {
		rn, ok := n.(ResolutionNotifier)
		if !ok {
			continue
		}
		if err := rn.NotifyApprovalResolved(p.approval, d.outcome); err != nil {
			logger.Warnf("Failed to send resolution notification: %v", err)
		}
	}

	if d.err != nil {
		logger.WithField("error", d.err.Error()).Info("Approval not granted")
		return types.ChainParams{}, d.err
	}

	logger.Info("Approval granted")
	return p.approval.RequestData, nil
}

// Approve grants a pending approval.
func (c *Controller) Approve(id string) error {
	return c.resolve(id, decision{outcome: OutcomeApproved})
}

// Reject denies a pending approval.
func (c *Controller) Reject(id string) error {
	return c.resolve(id, decision{outcome: OutcomeRejected, err: rpc.UserRejected("")})
}

// ExpireStale fails every approval past its deadline and returns how many
// were expired.
func (c *Controller) ExpireStale() int {
	now := c.now()

	c.mu.Lock()
	var stale []string
	for id, p := range c.pending {
		if now.After(p.approval.ExpiresAt) {
			stale = append(stale, id)
		}
	}
	c.mu.Unlock()

	expired := 0
	for _, id := range stale {
		if err := c.resolve(id, expiredDecision()); err == nil {
			expired++
		}
	}

	if expired > 0 {
		c.logger.WithField("count", expired).Info("Expired stale approvals")
	}
	return expired
}

func (c *Controller) Get(id string) (Approval, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[id]
	if !ok {
		return Approval{}, false
	}
	return p.approval, true
}

// Pending returns waiting approvals, oldest first.
func (c *Controller) Pending() []Approval {
	c.mu.Lock()
	approvals := make([]Approval, 0, len(c.pending))
	for _, p := range c.pending {
		approvals = append(approvals, p.approval)
	}
	c.mu.Unlock()

	sort.Slice(approvals, func(i, j int) bool {
		if approvals[i].CreatedAt.Equal(approvals[j].CreatedAt) {
			return approvals[i].ID < approvals[j].ID
		}
		return approvals[i].CreatedAt.Before(approvals[j].CreatedAt)
	})
	return approvals
}

// resolve removes a pending approval and hands it its decision. Only the
// first resolution of an ID succeeds.
func (c *Controller) resolve(id string, d decision) error {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p.result <- d
	return nil
}

func expiredDecision() decision {
	return decision{outcome: OutcomeExpired, err: rpc.Internal("approval request expired")}
}

func newID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate approval id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
