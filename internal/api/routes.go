package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func SetupRoutes(router *mux.Router, handler *Handler) {
	router.HandleFunc("/rpc", handler.HandleRPC).Methods(http.MethodPost)

	router.HandleFunc("/api/v1/health", handler.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/networks", handler.ListNetworks).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/networks", handler.RemoveNetwork).Methods(http.MethodDelete)
	router.HandleFunc("/api/v1/networks/health", handler.NetworkHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/approvals", handler.ListApprovals).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/approvals/{id}", handler.GetApproval).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/approvals/{id}/approve", handler.ApproveRequest).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/approvals/{id}/reject", handler.RejectRequest).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/events", handler.StreamEvents).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/jobs", handler.ListJobs).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/jobs/{name}", handler.GetJobStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/jobs/{name}/run", handler.RunJob).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/scheduler/start", handler.StartScheduler).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/scheduler/stop", handler.StopScheduler).Methods(http.MethodPost)
}
