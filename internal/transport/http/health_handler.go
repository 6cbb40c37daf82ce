package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// Version is stamped by the build; "dev" for local builds.
var Version = "dev"

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthHandler answers liveness probes. It deliberately performs no
// license check so operators can reach the service while a license
// problem is being resolved.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().UTC(),
	})
}
