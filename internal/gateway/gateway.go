package gateway

import (
	"log/slog"
	"time"

	"github.com/timgst1/aegis/internal/authn"
	"github.com/timgst1/aegis/internal/authz"
)

type Status string

const (
	StatusAllowed         Status = "allowed"
	StatusDenied          Status = "denied"
	StatusUnauthenticated Status = "unauthenticated"
)

// Result is the tagged outcome of one decision. Unauthenticated means
// the token never yielded an identity; Denied means the identity is
// valid but no rule grants the action.
type Result struct {
	Status   Status
	Identity authn.Identity
	Reason   string
}

type TokenVerifier interface {
	Verify(tokenString string, now time.Time) (authn.Identity, error)
}

// Gateway orchestrates verification and authorization. It keeps no
// state between calls; concurrent use is safe.
type Gateway struct {
	verifier   TokenVerifier
	authorizer authz.Authorizer
	log        *slog.Logger
}

func New(verifier TokenVerifier, authorizer authz.Authorizer, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{verifier: verifier, authorizer: authorizer, log: log}
}

func (g *Gateway) Decide(tokenString string, action authz.Action, now time.Time) Result {
	id, err := g.verifier.Verify(tokenString, now)
	if err != nil {
		g.log.Debug("authentication failed", "err", err)
		return Result{Status: StatusUnauthenticated, Reason: err.Error()}
	}

	dec := g.authorizer.Authorize(id, action)
	g.log.Debug("access decision",
		"subject", id.String(),
		"verb", action.Verb,
		"resource", action.Resource,
		"namespace", action.Namespace,
		"allowed", dec.Allowed)

	if dec.Allowed {
		return Result{Status: StatusAllowed, Identity: id, Reason: dec.Reason}
	}
	return Result{Status: StatusDenied, Identity: id, Reason: dec.Reason}
}
