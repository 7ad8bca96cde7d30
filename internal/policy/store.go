package policy

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/timgst1/aegis/internal/authn"
)

type key struct {
	namespace string
	name      string
}

// index is an immutable view of the policy set. Writers build a fresh
// index and swap it in; in-flight reads keep the one they started with.
type index struct {
	version             uint64
	roles               map[key]Role
	clusterRoles        map[string]ClusterRole
	roleBindings        map[key]RoleBinding
	clusterRoleBindings map[string]ClusterRoleBinding
}

// Store owns all role and binding entities. Upserts and deletes are
// idempotent by name (and namespace, where scoped); the read path never
// observes a partial update.
type Store struct {
	mu      sync.Mutex // serializes writers
	current atomic.Pointer[index]
}

func NewStore() *Store {
	s := &Store{}
	s.current.Store(emptyIndex(0))
	return s
}

func emptyIndex(version uint64) *index {
	return &index{
		version:             version,
		roles:               map[key]Role{},
		clusterRoles:        map[string]ClusterRole{},
		roleBindings:        map[key]RoleBinding{},
		clusterRoleBindings: map[string]ClusterRoleBinding{},
	}
}

func (s *Store) Version() uint64 { return s.current.Load().version }

func (s *Store) mutate(f func(next *index)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	next := emptyIndex(cur.version + 1)
	for k, v := range cur.roles {
		next.roles[k] = v
	}
	for k, v := range cur.clusterRoles {
		next.clusterRoles[k] = v
	}
	for k, v := range cur.roleBindings {
		next.roleBindings[k] = v
	}
	for k, v := range cur.clusterRoleBindings {
		next.clusterRoleBindings[k] = v
	}

	f(next)
	s.current.Store(next)
}

func (s *Store) UpsertRole(r Role) {
	s.mutate(func(next *index) { next.roles[key{r.Namespace, r.Name}] = r })
}

func (s *Store) UpsertClusterRole(cr ClusterRole) {
	s.mutate(func(next *index) { next.clusterRoles[cr.Name] = cr })
}

func (s *Store) UpsertRoleBinding(rb RoleBinding) {
	s.mutate(func(next *index) { next.roleBindings[key{rb.Namespace, rb.Name}] = rb })
}

func (s *Store) UpsertClusterRoleBinding(crb ClusterRoleBinding) {
	s.mutate(func(next *index) { next.clusterRoleBindings[crb.Name] = crb })
}

func (s *Store) DeleteRole(namespace, name string) {
	s.mutate(func(next *index) { delete(next.roles, key{namespace, name}) })
}

func (s *Store) DeleteClusterRole(name string) {
	s.mutate(func(next *index) { delete(next.clusterRoles, name) })
}

func (s *Store) DeleteRoleBinding(namespace, name string) {
	s.mutate(func(next *index) { delete(next.roleBindings, key{namespace, name}) })
}

func (s *Store) DeleteClusterRoleBinding(name string) {
	s.mutate(func(next *index) { delete(next.clusterRoleBindings, name) })
}

// Replace swaps the entire policy set for the bundle's contents in one
// atomic step. Used by the manager on (re)load.
func (s *Store) Replace(b *Bundle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := emptyIndex(s.current.Load().version + 1)
	for _, r := range b.Roles {
		next.roles[key{r.Namespace, r.Name}] = r
	}
	for _, cr := range b.ClusterRoles {
		next.clusterRoles[cr.Name] = cr
	}
	for _, rb := range b.RoleBindings {
		next.roleBindings[key{rb.Namespace, rb.Name}] = rb
	}
	for _, crb := range b.ClusterRoleBindings {
		next.clusterRoleBindings[crb.Name] = crb
	}
	s.current.Store(next)
}

// BoundRole is one resolved grant for an identity. Namespace scopes the
// rules to a single namespace; empty means cluster-wide.
type BoundRole struct {
	Rules     []Rule
	Namespace string
	Binding   string
	Role      string
}

// RolesBoundTo resolves every binding whose subjects match the identity.
// Bindings with a dangling role reference contribute nothing.
func (s *Store) RolesBoundTo(id authn.Identity) []BoundRole {
	idx := s.current.Load()

	var bound []BoundRole
	for _, rb := range idx.roleBindings {
		if !subjectsMatch(rb.Subjects, id) {
			continue
		}
		rules, roleName, ok := idx.resolve(rb.RoleRef, rb.Namespace)
		if !ok {
			continue
		}
		bound = append(bound, BoundRole{
			Rules:     rules,
			Namespace: rb.Namespace,
			Binding:   "rolebinding " + rb.Namespace + "/" + rb.Name,
			Role:      roleName,
		})
	}

	for _, crb := range idx.clusterRoleBindings {
		if !subjectsMatch(crb.Subjects, id) {
			continue
		}
		cr, ok := idx.clusterRoles[crb.RoleRef.Name]
		if !ok {
			continue
		}
		bound = append(bound, BoundRole{
			Rules:   cr.Rules,
			Binding: "clusterrolebinding " + crb.Name,
			Role:    "clusterrole " + cr.Name,
		})
	}

	return bound
}

// resolve follows a RoleBinding's roleRef: a Role resolves in the
// binding's own namespace, a ClusterRole resolves cluster-wide but its
// rules stay scoped to the binding's namespace.
func (idx *index) resolve(ref RoleRef, namespace string) ([]Rule, string, bool) {
	switch ref.Kind {
	case RoleRefKindRole:
		r, ok := idx.roles[key{namespace, ref.Name}]
		if !ok {
			return nil, "", false
		}
		return r.Rules, "role " + namespace + "/" + r.Name, true
	case RoleRefKindClusterRole:
		cr, ok := idx.clusterRoles[ref.Name]
		if !ok {
			return nil, "", false
		}
		return cr.Rules, "clusterrole " + cr.Name, true
	}
	return nil, "", false
}

// subjectsMatch reports whether any subject names the identity.
// ServiceAccount subjects need name and namespace; Users match by name;
// Groups match against the identity's group memberships.
func subjectsMatch(subjects []Subject, id authn.Identity) bool {
	for _, s := range subjects {
		switch s.Kind {
		case "ServiceAccount":
			if id.Kind == authn.KindServiceAccount && s.Name == id.Name && s.Namespace == id.Namespace {
				return true
			}
		case "User":
			if id.Kind == authn.KindUser && s.Name == id.Name {
				return true
			}
		case "Group":
			if slices.Contains(id.Groups, s.Name) {
				return true
			}
		}
	}
	return false
}
