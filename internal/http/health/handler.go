// Package health serves the unauthenticated liveness endpoint.
package health

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Info describes the running server.
type Info struct {
	Version   string
	Backend   string
	Companion bool
}

// Response is the health payload.
type Response struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Backend   string `json:"backend,omitempty"`
	Companion bool   `json:"companion"`
}

// Handler reports the server as healthy. The body never changes after
// startup, so it is encoded once.
func Handler(info Info) http.HandlerFunc {
	body, _ := json.Marshal(Response{
		Status:    "healthy",
		Version:   info.Version,
		Backend:   info.Backend,
		Companion: info.Companion,
	})
	length := strconv.Itoa(len(body))
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Type", "application/json")
		h.Set("Content-Length", length)
		h.Set("Cache-Control", "no-store")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(body)
	}
}
