package authz

import "github.com/timgst1/aegis/internal/authn"

// Action is one authorization query. Namespace is empty for
// cluster-scoped resources; Name is empty for collection-level
// requests (list, watch, create).
type Action struct {
	Verb      string `json:"verb"`
	APIGroup  string `json:"apiGroup"`
	Resource  string `json:"resource"`
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name,omitempty"`
}

type Decision struct {
	Allowed bool
	Reason  string
}

func Allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func Deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

type Authorizer interface {
	Authorize(id authn.Identity, action Action) Decision
}
