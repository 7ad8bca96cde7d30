package policy_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/timgst1/aegis/internal/authn"
	"github.com/timgst1/aegis/internal/policy"
)

const managerBundle = `
apiVersion: aegis.gateway/v1alpha1
kind: PolicyBundle
metadata:
  name: default
roles:
  - name: pod-reader
    namespace: demo
    rules:
      - apiGroups: [""]
        resources: [pods]
        verbs: [get]
roleBindings:
  - name: pod-reader
    namespace: demo
    subjects:
      - kind: ServiceAccount
        name: my-pod-sa
        namespace: demo
    roleRef:
      kind: Role
      name: pod-reader
`

func TestManager_InitialLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte(managerBundle), 0o600); err != nil {
		t.Fatalf("write bundle: %v", err)
	}

	store := policy.NewStore()
	m := policy.NewManager(path, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if store.Version() == 0 {
		t.Fatalf("expected store populated on start")
	}

	id := authn.Identity{Kind: authn.KindServiceAccount, Name: "my-pod-sa", Namespace: "demo"}
	if bound := store.RolesBoundTo(id); len(bound) != 1 {
		t.Fatalf("expected 1 bound role after load, got %d", len(bound))
	}
}

func TestManager_StartFailsOnMissingFile(t *testing.T) {
	store := policy.NewStore()
	m := policy.NewManager(filepath.Join(t.TempDir(), "absent.yaml"), store)

	if err := m.Start(context.Background()); err == nil {
		t.Fatalf("expected error for missing policy file")
	}
}

func TestManager_StartFailsOnInvalidBundle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte("kind: PolicyBundle\n"), 0o600); err != nil {
		t.Fatalf("write bundle: %v", err)
	}

	store := policy.NewStore()
	m := policy.NewManager(path, store)

	if err := m.Start(context.Background()); err == nil {
		t.Fatalf("expected error for invalid bundle")
	}
}
