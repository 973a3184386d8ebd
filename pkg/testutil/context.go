package testutil

import (
	"net/http"

	"shiftguard/pkg/requestcontext"
)

// WithActor marks the request as made by actor, the way the admin bearer
// middleware does after validating a token. An empty actor leaves the request
// anonymous.
func WithActor(req *http.Request, actor string) *http.Request {
	if actor == "" {
		return req
	}
	return req.WithContext(requestcontext.WithActorID(req.Context(), actor))
}
