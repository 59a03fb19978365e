package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	rithmic "github.com/rithmic-go/rithmic-client"
)

// plantStatus is the /status response: the account id, the current
// trade-route cache contents, and the response time, for local operational
// visibility only (SPEC_FULL.md §6 **[NEW]** debug/status surface — the core
// library itself has no HTTP server). It carries no per-plant connection
// state.
type plantStatus struct {
	Account     string            `json:"account,omitempty"`
	TradeRoutes map[string]string `json:"trade_routes"`
	Timestamp   string            `json:"timestamp"`
}

// newStatusServer mounts a read-only status endpoint over client. The
// access log wraps every request with handlers.CombinedLoggingHandler,
// matching the Apache combined-log format operators already expect from the
// rest of this client's ambient tooling.
func newStatusServer(client *rithmic.Client) *http.Server {
	router := mux.NewRouter()
	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		resp := plantStatus{
			Account:     client.Identity().AccountID,
			TradeRoutes: client.TradeRoutes(),
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}).Methods(http.MethodGet)

	return &http.Server{
		Handler: handlers.CombinedLoggingHandler(logOutput, router),
	}
}
