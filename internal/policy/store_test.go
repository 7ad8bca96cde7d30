package policy_test

import (
	"testing"

	"github.com/timgst1/aegis/internal/authn"
	"github.com/timgst1/aegis/internal/policy"
)

func podReaderRole(namespace string) policy.Role {
	return policy.Role{
		Name:      "pod-reader",
		Namespace: namespace,
		Rules: []policy.Rule{{
			APIGroups: []string{"", "apps"},
			Resources: []string{"pods", "deployments"},
			Verbs:     []string{"get", "list", "watch"},
		}},
	}
}

func saBinding(namespace string) policy.RoleBinding {
	return policy.RoleBinding{
		Name:      "pod-reader",
		Namespace: namespace,
		Subjects: []policy.Subject{{
			Kind:      "ServiceAccount",
			Name:      "my-pod-sa",
			Namespace: "demo",
		}},
		RoleRef: policy.RoleRef{Kind: policy.RoleRefKindRole, Name: "pod-reader"},
	}
}

func saIdentity() authn.Identity {
	return authn.Identity{Kind: authn.KindServiceAccount, Name: "my-pod-sa", Namespace: "demo"}
}

func TestRolesBoundTo_ServiceAccountMatch(t *testing.T) {
	s := policy.NewStore()
	s.UpsertRole(podReaderRole("demo"))
	s.UpsertRoleBinding(saBinding("demo"))

	bound := s.RolesBoundTo(saIdentity())
	if len(bound) != 1 {
		t.Fatalf("expected 1 bound role, got %d", len(bound))
	}
	if bound[0].Namespace != "demo" {
		t.Fatalf("expected binding scoped to demo, got %q", bound[0].Namespace)
	}
	if len(bound[0].Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(bound[0].Rules))
	}
}

func TestRolesBoundTo_WrongNamespaceServiceAccount(t *testing.T) {
	s := policy.NewStore()
	s.UpsertRole(podReaderRole("demo"))
	s.UpsertRoleBinding(saBinding("demo"))

	other := authn.Identity{Kind: authn.KindServiceAccount, Name: "my-pod-sa", Namespace: "other"}
	if bound := s.RolesBoundTo(other); len(bound) != 0 {
		t.Fatalf("expected no bound roles for other namespace, got %d", len(bound))
	}
}

func TestRolesBoundTo_UserAndGroupSubjects(t *testing.T) {
	s := policy.NewStore()
	s.UpsertClusterRole(policy.ClusterRole{
		Name:  "viewer",
		Rules: []policy.Rule{{APIGroups: []string{""}, Resources: []string{"pods"}, Verbs: []string{"get"}}},
	})
	s.UpsertClusterRoleBinding(policy.ClusterRoleBinding{
		Name: "viewers",
		Subjects: []policy.Subject{
			{Kind: "User", Name: "alice"},
			{Kind: "Group", Name: "auditors"},
		},
		RoleRef: policy.RoleRef{Kind: policy.RoleRefKindClusterRole, Name: "viewer"},
	})

	alice := authn.Identity{Kind: authn.KindUser, Name: "alice"}
	if bound := s.RolesBoundTo(alice); len(bound) != 1 {
		t.Fatalf("expected user match, got %d bound roles", len(bound))
	}

	bob := authn.Identity{Kind: authn.KindUser, Name: "bob", Groups: []string{"auditors"}}
	if bound := s.RolesBoundTo(bob); len(bound) != 1 {
		t.Fatalf("expected group match, got %d bound roles", len(bound))
	}

	eve := authn.Identity{Kind: authn.KindUser, Name: "eve"}
	if bound := s.RolesBoundTo(eve); len(bound) != 0 {
		t.Fatalf("expected no match, got %d bound roles", len(bound))
	}
}

func TestRolesBoundTo_DanglingRoleRefIsInert(t *testing.T) {
	s := policy.NewStore()
	s.UpsertRoleBinding(saBinding("demo")) // no role upserted

	if bound := s.RolesBoundTo(saIdentity()); len(bound) != 0 {
		t.Fatalf("dangling reference must contribute nothing, got %d", len(bound))
	}
}

func TestRolesBoundTo_RoleBindingToClusterRoleScopesToNamespace(t *testing.T) {
	s := policy.NewStore()
	s.UpsertClusterRole(policy.ClusterRole{
		Name:  "viewer",
		Rules: []policy.Rule{{APIGroups: []string{""}, Resources: []string{"pods"}, Verbs: []string{"get"}}},
	})
	rb := saBinding("demo")
	rb.RoleRef = policy.RoleRef{Kind: policy.RoleRefKindClusterRole, Name: "viewer"}
	s.UpsertRoleBinding(rb)

	bound := s.RolesBoundTo(saIdentity())
	if len(bound) != 1 {
		t.Fatalf("expected 1 bound role, got %d", len(bound))
	}
	if bound[0].Namespace != "demo" {
		t.Fatalf("RoleBinding to ClusterRole must stay namespace-scoped, got %q", bound[0].Namespace)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	s := policy.NewStore()
	s.UpsertRole(podReaderRole("demo"))
	s.UpsertRoleBinding(saBinding("demo"))

	before := s.RolesBoundTo(saIdentity())

	s.UpsertRoleBinding(saBinding("demo"))
	after := s.RolesBoundTo(saIdentity())

	if len(before) != len(after) {
		t.Fatalf("upsert must be idempotent: %d != %d", len(before), len(after))
	}
}

func TestDelete_Idempotent(t *testing.T) {
	s := policy.NewStore()
	s.UpsertRole(podReaderRole("demo"))
	s.UpsertRoleBinding(saBinding("demo"))

	s.DeleteRoleBinding("demo", "pod-reader")
	s.DeleteRoleBinding("demo", "pod-reader") // second delete is a no-op

	if bound := s.RolesBoundTo(saIdentity()); len(bound) != 0 {
		t.Fatalf("expected no bound roles after delete, got %d", len(bound))
	}
}

func TestVersion_IncrementsOnWrite(t *testing.T) {
	s := policy.NewStore()
	if s.Version() != 0 {
		t.Fatalf("expected version 0, got %d", s.Version())
	}
	s.UpsertRole(podReaderRole("demo"))
	if s.Version() != 1 {
		t.Fatalf("expected version 1, got %d", s.Version())
	}
	s.Replace(&policy.Bundle{})
	if s.Version() != 2 {
		t.Fatalf("expected version 2 after replace, got %d", s.Version())
	}
}

func TestReplace_SwapsEntirePolicySet(t *testing.T) {
	s := policy.NewStore()
	s.UpsertRole(podReaderRole("demo"))
	s.UpsertRoleBinding(saBinding("demo"))

	s.Replace(&policy.Bundle{
		Roles:        []policy.Role{podReaderRole("other")},
		RoleBindings: []policy.RoleBinding{saBinding("other")},
	})

	bound := s.RolesBoundTo(saIdentity())
	if len(bound) != 1 || bound[0].Namespace != "other" {
		t.Fatalf("expected only the replaced binding, got %+v", bound)
	}
}
