package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/0xPuncker/chain-gatekeeper/internal/approval"
	"github.com/0xPuncker/chain-gatekeeper/internal/cron"
	"github.com/0xPuncker/chain-gatekeeper/internal/events"
	"github.com/0xPuncker/chain-gatekeeper/internal/poller"
	"github.com/0xPuncker/chain-gatekeeper/internal/rpc"
	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxRPCBodyBytes = 1 << 20

type Handler struct {
	dispatcher *rpc.Dispatcher
	networks   types.NetworkRegistry
	approvals  *approval.Controller
	Scheduler  *cron.Scheduler
	health     HealthReporter
	events     *events.Hub
	logger     *logrus.Logger
}

// HealthReporter supplies the latest endpoint check results.
type HealthReporter interface {
	Results() []poller.Health
}

type NetworkHealthResponse struct {
	Networks []poller.Health `json:"networks"`
	Count    int             `json:"count"`
}

type NetworksResponse struct {
	Networks []types.ChainParams `json:"networks"`
	Count    int                 `json:"count"`
}

type ApprovalsResponse struct {
	Approvals []approval.Approval `json:"approvals"`
	Count     int                 `json:"count"`
}

func NewHandler(dispatcher *rpc.Dispatcher, networks types.NetworkRegistry, approvals *approval.Controller, scheduler *cron.Scheduler, logger *logrus.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		networks:   networks,
		approvals:  approvals,
		Scheduler:  scheduler,
		logger:     logger,
	}
}

type HealthResponse struct {
	Status   string   `json:"status"`
	Methods  []string `json:"methods"`
	Networks int      `json:"networks"`
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Methods:  h.dispatcher.Methods(),
		Networks: h.networks.Count(),
	})
}

// networkRemover is implemented by registries that support deletion.
type networkRemover interface {
	Remove(rpcURL, chainID string) bool
}

// RemoveNetwork deletes the network identified by the rpcUrl and chainId
// query parameters.
func (h *Handler) RemoveNetwork(w http.ResponseWriter, r *http.Request) {
	remover, ok := h.networks.(networkRemover)
	if !ok {
		h.handleError(w, errors.New("network removal not supported"), http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	rpcURL, chainID := query.Get("rpcUrl"), query.Get("chainId")
	if rpcURL == "" || chainID == "" {
		h.handleError(w, errors.New("rpcUrl and chainId are required"), http.StatusBadRequest)
		return
	}

	if !remover.Remove(rpcURL, chainID) {
		h.handleError(w, errors.New("network not found"), http.StatusNotFound)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"chain_id": chainID,
		"rpc_url":  rpcURL,
	}).Info("Network removed")
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// HandleRPC serves a single JSON-RPC call. Every call gets exactly one
// JSON-RPC response with HTTP status 200.
func (h *Handler) HandleRPC(w http.ResponseWriter, r *http.Request) {
	var req rpc.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRPCBodyBytes)).Decode(&req); err != nil {
		h.writeRPC(w, rpc.Response{Error: rpc.ParseError("Parse error: " + err.Error())})
		return
	}

	resp := h.dispatcher.Dispatch(r.Context(), requestOrigin(r), &req)
	h.writeRPC(w, resp)
}

func (h *Handler) ListNetworks(w http.ResponseWriter, r *http.Request) {
	networks := h.networks.List()
	writeJSON(w, http.StatusOK, NetworksResponse{
		Networks: networks,
		Count:    len(networks),
	})
}

// SetHealthReporter enables GET /api/v1/networks/health.
func (h *Handler) SetHealthReporter(r HealthReporter) {
	h.health = r
}

func (h *Handler) NetworkHealth(w http.ResponseWriter, r *http.Request) {
	results := []poller.Health{}
	if h.health != nil {
		results = h.health.Results()
	}
	writeJSON(w, http.StatusOK, NetworkHealthResponse{
		Networks: results,
		Count:    len(results),
	})
}

// SetEventHub enables the websocket event stream.
func (h *Handler) SetEventHub(hub *events.Hub) {
	h.events = hub
}

func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		h.handleError(w, errors.New("event stream disabled"), http.StatusNotFound)
		return
	}
	h.events.ServeWS(w, r)
}

func (h *Handler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	approvals := h.approvals.Pending()
	writeJSON(w, http.StatusOK, ApprovalsResponse{
		Approvals: approvals,
		Count:     len(approvals),
	})
}

func (h *Handler) GetApproval(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	a, ok := h.approvals.Get(id)
	if !ok {
		h.handleError(w, approval.ErrNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.resolveApproval(w, r, "approved", h.approvals.Approve)
}

func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.resolveApproval(w, r, "rejected", h.approvals.Reject)
}

func (h *Handler) resolveApproval(w http.ResponseWriter, r *http.Request, status string, resolve func(string) error) {
	id := mux.Vars(r)["id"]

	if err := resolve(id); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, approval.ErrNotFound) {
			code = http.StatusNotFound
		}
		h.handleError(w, err, code)
		return
	}

	h.logger.WithField("approval_id", id).Infof("Approval %s", status)
	writeJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": status,
	})
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.Scheduler.ListJobs()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":        jobs,
		"active_jobs": len(jobs),
		"running":     h.Scheduler.IsRunning(),
	})
}

func (h *Handler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Scheduler.GetJobStatus(mux.Vars(r)["name"])
	if err != nil {
		h.handleError(w, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// RunJob runs a scheduled job now and reports its outcome.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	err := h.Scheduler.RunNow(name)
	switch {
	case errors.Is(err, cron.ErrJobNotFound):
		h.handleError(w, err, http.StatusNotFound)
		return
	case errors.Is(err, cron.ErrTooManyActiveJobs):
		h.handleError(w, err, http.StatusConflict)
		return
	case err != nil:
		h.handleError(w, err, http.StatusInternalServerError)
		return
	}

	status, err := h.Scheduler.GetJobStatus(name)
	if err != nil {
		h.handleError(w, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) StartScheduler(w http.ResponseWriter, r *http.Request) {
	if err := h.Scheduler.Start(); err != nil {
		h.handleError(w, err, http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "scheduler started successfully",
	})
}

func (h *Handler) StopScheduler(w http.ResponseWriter, r *http.Request) {
	h.Scheduler.Stop()
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "scheduler stopped successfully",
	})
}

func (h *Handler) handleError(w http.ResponseWriter, err error, code int) {
	h.logger.Error(err)
	writeJSON(w, code, map[string]string{
		"error": err.Error(),
	})
}

func (h *Handler) writeRPC(w http.ResponseWriter, resp rpc.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Errorf("Failed to encode RPC response: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// requestOrigin identifies the caller from the Origin header, then the
// Referer's scheme and host.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" && origin != "null" {
		return origin
	}
	if referer := r.Header.Get("Referer"); referer != "" {
		if u, err := url.Parse(referer); err == nil && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	return "unknown"
}
