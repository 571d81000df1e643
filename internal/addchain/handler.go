package addchain

import (
	"context"
	"encoding/json"

	"github.com/0xPuncker/chain-gatekeeper/internal/rpc"
	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"github.com/sirupsen/logrus"
)

// ExistenceChecker answers whether a network is already registered.
type ExistenceChecker interface {
	CustomRPCExistsWith(rpcURL, chainID string) bool
}

// Approver asks the user to confirm a new network. It may block for as
// long as the user takes; any timeout is its own business.
type Approver interface {
	RequestUserApproval(ctx context.Context, req types.ApprovalRequest) (types.ChainParams, error)
}

// Committer stores an approved network.
type Committer interface {
	AddCustomRPC(ctx context.Context, chain types.ChainParams) error
}

// Handler implements wallet_addEthereumChain.
type Handler struct {
	exists    ExistenceChecker
	approver  Approver
	committer Committer
	logger    *logrus.Logger
}

func NewHandler(exists ExistenceChecker, approver Approver, committer Committer, logger *logrus.Logger) *Handler {
	return &Handler{
		exists:    exists,
		approver:  approver,
		committer: committer,
		logger:    logger,
	}
}

// ServeRPC adapts the handler to rpc.MethodFunc.
func (h *Handler) ServeRPC(ctx context.Context, origin string, req *rpc.Request) error {
	return h.AddEthereumChain(ctx, origin, req.PositionalParams())
}

// AddEthereumChain validates params, rejects known networks, then asks for
// approval and stores the approved network. Approval and storage errors are
// returned as is.
func (h *Handler) AddEthereumChain(ctx context.Context, origin string, params []json.RawMessage) error {
	run := &request{logger: h.logger.WithField("origin", origin)}

	run.enter(StateValidating)
	chain, rawChainID, err := validate(params)
	if err != nil {
		return run.fail(err)
	}
	run.logger = run.logger.WithFields(logrus.Fields{
		"chain_id": chain.ChainID,
		"rpc_url":  chain.RPCURL,
	})

	run.enter(StateCheckingDuplicates)
	if h.exists.CustomRPCExistsWith(chain.RPCURL, chain.ChainID) {
		return run.fail(rpc.Conflict(
			"Ethereum chain with the given RPC URL and chain ID already exists.",
			map[string]string{
				"rpcUrl":            chain.RPCURL,
				"chainId":           rawChainID,
				"normalizedChainId": chain.ChainID,
			},
		))
	}

	run.enter(StateAwaitingApproval)
	approved, err := h.approver.RequestUserApproval(ctx, types.ApprovalRequest{
		Origin:      origin,
		Type:        types.MessageTypeAddEthereumChain,
		RequestData: chain,
	})
	if err != nil {
		return run.fail(err)
	}

	run.enter(StateCommitting)
	if err := h.committer.AddCustomRPC(ctx, approved); err != nil {
		return run.fail(err)
	}

	run.enter(StateSucceeded)
	return nil
}

type request struct {
	state  State
	logger *logrus.Entry
}

func (r *request) enter(s State) {
	r.state = s
	entry := r.logger.WithField("state", s.String())
	if s.Terminal() {
		entry.Info("add chain request finished")
		return
	}
	entry.Debug("add chain request")
}

func (r *request) fail(err error) error {
	r.logger.WithFields(logrus.Fields{
		"state":  StateFailed.String(),
		"step":   r.state.String(),
		"reason": rpc.KindOf(err).String(),
	}).Debugf("add chain request failed: %v", err)
	r.state = StateFailed
	return err
}
