package router

import (
	"net/http"
)

// StateReporter reports whether conversation state persistence has degraded
// to process-local memory.
type StateReporter interface {
	MemoryOnly() bool
}

// Health returns the readiness handler. An unreachable backend degrades the
// reported status but keeps the HTTP code 200: the channel keeps delivering
// webhooks either way, and a non-200 would only make load balancers stop
// routing the traffic we can still buffer.
func Health(state StateReporter, backendOK func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		body := map[string]any{}
		if state != nil {
			mode := "redis"
			if state.MemoryOnly() {
				mode = "memory"
			}
			body["state_store"] = mode
		}
		if backendOK != nil {
			reachable := backendOK()
			body["backend_reachable"] = reachable
			if !reachable {
				status = "degraded"
			}
		}
		body["status"] = status
		writeJSON(w, http.StatusOK, body)
	}
}
