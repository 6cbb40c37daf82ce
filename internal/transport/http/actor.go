package http

import (
	"net/http"
	"strings"
)

// ActorHeader carries the authenticated identity of the caller, set by
// the platform's authentication proxy in front of this service.
const ActorHeader = "X-Actor"

// actorFromRequest extracts the caller identity. An empty result means
// the proxy did not authenticate the request; protected operations
// treat that as a configuration error.
func actorFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(ActorHeader))
}
