package authz

import (
	"fmt"
	"slices"

	"github.com/timgst1/aegis/internal/authn"
	"github.com/timgst1/aegis/internal/policy"
)

const wildcard = "*"

// PolicySource is the read path into the policy store.
type PolicySource interface {
	RolesBoundTo(id authn.Identity) []policy.BoundRole
}

// Engine decides allow/deny with default deny. Rules only grant, never
// restrict, so any matching rule wins and ordering is irrelevant.
type Engine struct {
	policies PolicySource
}

func NewEngine(policies PolicySource) *Engine {
	return &Engine{policies: policies}
}

func (e *Engine) Authorize(id authn.Identity, action Action) Decision {
	for _, br := range e.policies.RolesBoundTo(id) {
		if br.Namespace != "" && br.Namespace != action.Namespace {
			continue
		}
		for _, rule := range br.Rules {
			if ruleMatches(rule, action) {
				return Allow(fmt.Sprintf("%s via %s grants verb=%s on %s",
					br.Role, br.Binding, action.Verb, action.Resource))
			}
		}
	}
	return Deny(denyReason(id, action))
}

func ruleMatches(r policy.Rule, a Action) bool {
	if !matchField(r.APIGroups, a.APIGroup) {
		return false
	}
	if !matchField(r.Resources, a.Resource) {
		return false
	}
	if !matchField(r.Verbs, a.Verb) {
		return false
	}
	// A name-scoped rule never matches a collection-level action.
	if len(r.ResourceNames) > 0 {
		if a.Name == "" {
			return false
		}
		if !slices.Contains(r.ResourceNames, a.Name) {
			return false
		}
	}
	return true
}

func matchField(set []string, v string) bool {
	for _, s := range set {
		if s == v || s == wildcard {
			return true
		}
	}
	return false
}

func denyReason(id authn.Identity, a Action) string {
	target := a.Resource
	if a.APIGroup != "" {
		target = a.Resource + "." + a.APIGroup
	}
	if a.Name != "" {
		target += "/" + a.Name
	}
	if a.Namespace != "" {
		return fmt.Sprintf("no rule grants verb=%s on %s in namespace=%s for subject=%s",
			a.Verb, target, a.Namespace, id)
	}
	return fmt.Sprintf("no rule grants verb=%s on %s for subject=%s", a.Verb, target, id)
}
